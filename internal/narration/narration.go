// Package narration implements the delta engine of §4.4: turning a
// sliding-window STT re-transcription into a stream of never-repeated,
// correctly-punctuated output fragments. The stability/hash/prefix-delta
// pipeline has no direct analogue in aiwisper (which transcribes
// finalized chunks, not a live window), so its shape is new; the
// bounded-ring and bounded-hash-set bookkeeping follows the same
// fixed-capacity-slice idiom aiwisper's session/manager.go uses for
// ExecutedCommand history.
package narration

import (
	"crypto/sha256"
	"strings"
)

const (
	recentEmissionsCapacity = 20
	recentHashesCapacity    = 50
	stabilityRequired       = 2
	longPauseMillis         = 800
	shortPauseMillis        = 200
)

// contractionTable is the fixed lowercase→canonical table from spec.md §6.
var contractionTable = map[string]string{
	"i":        "I",
	"im":       "I'm",
	"ive":      "I've",
	"ill":      "I'll",
	"dont":     "don't",
	"wont":     "won't",
	"cant":     "can't",
	"shouldnt": "shouldn't",
	"wouldnt":  "wouldn't",
	"couldnt":  "couldn't",
	"thats":    "that's",
	"its":      "it's",
	"youre":    "you're",
	"theyre":   "they're",
	"were":     "we're",
}

var standalonePunctuation = map[byte]bool{
	'.': true, ',': true, '!': true, '?': true, ':': true, ';': true,
	'(': true, ')': true, '[': true, ']': true, '{': true, '}': true,
	'"': true, '\'': true, '-': true,
}

// Engine holds the delta-engine state (§4.4 "State").
type Engine struct {
	lastFullText      string
	lastEmitLength    int
	accumulatedOutput strings.Builder
	lastOutputTimeSet bool
	sentenceStart     bool

	recentEmissions []string
	recentHashes    map[string]struct{}
	hashOrder       []string

	stabilityCount     int
	lastStableFullText string
}

// New creates an empty delta engine; sentenceStart begins true so the
// very first emitted fragment is capitalized.
func New() *Engine {
	return &Engine{
		recentHashes:  make(map[string]struct{}),
		sentenceStart: true,
	}
}

func normalize(s string) string {
	return strings.ToLower(strings.Join(strings.Fields(s), " "))
}

func hashOf(s string) string {
	sum := sha256.Sum256([]byte(s))
	return string(sum[:])
}

// Push feeds the latest full_text re-transcription of the narration
// window, along with the elapsed time since the previous Push in
// milliseconds (gapMillis), and returns the fragment to emit, or "" if
// nothing qualifies yet.
func (e *Engine) Push(fullText string, gapMillis int64) string {
	// 1. Stability gate.
	if fullText == e.lastStableFullText {
		e.stabilityCount++
	} else {
		e.stabilityCount = 1
		e.lastStableFullText = fullText
	}
	if e.stabilityCount < stabilityRequired {
		return ""
	}

	// 2. Hash dedup.
	norm := normalize(fullText)
	h := hashOf(norm)
	if _, seen := e.recentHashes[h]; seen {
		e.lastFullText = fullText
		return ""
	}

	// 3. Delta extraction: longest common byte prefix vs last_full_text.
	delta := fullText
	if e.lastFullText != "" {
		delta = longestSuffixAfterCommonPrefix(e.lastFullText, fullText)
	}
	e.lastFullText = fullText

	if strings.TrimSpace(delta) == "" {
		return ""
	}

	// 4. Repetition guard.
	if e.isRepetitive(delta) {
		return ""
	}

	// 5. Formatting.
	formatted := e.format(delta, gapMillis)
	if formatted == "" {
		return ""
	}

	// 6. Bookkeeping.
	e.accumulatedOutput.WriteString(formatted)
	e.pushEmission(delta)
	e.pushHash(h)

	return formatted
}

// longestSuffixAfterCommonPrefix returns the suffix of b after the
// longest common byte prefix with a.
func longestSuffixAfterCommonPrefix(a, b string) string {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	i := 0
	for i < n && a[i] == b[i] {
		i++
	}
	return b[i:]
}

// isRepetitive implements the repetition guard (§4.4 step 4): Jaccard
// overlap with recent emissions, or internal duplication of equal-length
// word runs.
func (e *Engine) isRepetitive(delta string) bool {
	words := strings.Fields(delta)
	if len(words) < 3 {
		return false
	}

	set := make(map[string]struct{}, len(words))
	for _, w := range words {
		set[strings.ToLower(w)] = struct{}{}
	}

	for _, prev := range e.recentEmissions {
		prevWords := strings.Fields(prev)
		if len(prevWords) < 3 {
			continue
		}
		prevSet := make(map[string]struct{}, len(prevWords))
		for _, w := range prevWords {
			prevSet[strings.ToLower(w)] = struct{}{}
		}
		if jaccard(set, prevSet) > 0.7 {
			return true
		}
	}

	return hasInternalDuplication(words)
}

func jaccard(a, b map[string]struct{}) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	inter := 0
	for w := range a {
		if _, ok := b[w]; ok {
			inter++
		}
	}
	union := len(a) + len(b) - inter
	if union == 0 {
		return 0
	}
	return float64(inter) / float64(union)
}

// hasInternalDuplication reports whether words contains two adjacent
// equal-length word sequences of length >= 3 that are identical.
func hasInternalDuplication(words []string) bool {
	n := len(words)
	for l := 3; l*2 <= n; l++ {
		for start := 0; start+2*l <= n; start++ {
			a := words[start : start+l]
			b := words[start+l : start+2*l]
			if equalWords(a, b) {
				return true
			}
		}
	}
	return false
}

func equalWords(a, b []string) bool {
	for i := range a {
		if strings.ToLower(a[i]) != strings.ToLower(b[i]) {
			return false
		}
	}
	return true
}

// format applies the pause classification, capitalization, contraction
// table, and punctuation attachment rules of §4.4 step 5.
func (e *Engine) format(delta string, gapMillis int64) string {
	longPause := gapMillis > longPauseMillis
	shortPause := gapMillis > shortPauseMillis

	var b strings.Builder
	prefix := ""
	acc := e.accumulatedOutput.String()
	if longPause && acc != "" && !endsWithSentencePunct(acc) {
		prefix = ". "
		e.sentenceStart = true
	} else if shortPause && acc != "" && !strings.HasSuffix(acc, " ") {
		prefix = " "
	}

	tokens := tokenize(delta)
	for i, tok := range tokens {
		canonical := canonicalize(tok)
		if i == 0 && e.sentenceStart {
			canonical = capitalize(canonical)
			e.sentenceStart = false
		}
		if len(canonical) == 1 && standalonePunctuation[canonical[0]] {
			b.WriteString(canonical)
		} else {
			if b.Len() > 0 {
				b.WriteByte(' ')
			}
			b.WriteString(canonical)
		}
	}

	return prefix + b.String()
}

func endsWithSentencePunct(s string) bool {
	if s == "" {
		return false
	}
	c := s[len(s)-1]
	return c == '.' || c == '?' || c == '!' || c == ':' || c == ';'
}

func tokenize(s string) []string {
	return strings.Fields(s)
}

func canonicalize(tok string) string {
	lower := strings.ToLower(strings.Trim(tok, ".,!?;:"))
	if c, ok := contractionTable[lower]; ok {
		return c
	}
	return tok
}

func capitalize(tok string) string {
	if tok == "" {
		return tok
	}
	return strings.ToUpper(tok[:1]) + tok[1:]
}

func (e *Engine) pushEmission(s string) {
	e.recentEmissions = append(e.recentEmissions, s)
	if len(e.recentEmissions) > recentEmissionsCapacity {
		e.recentEmissions = e.recentEmissions[len(e.recentEmissions)-recentEmissionsCapacity:]
	}
}

func (e *Engine) pushHash(h string) {
	e.recentHashes[h] = struct{}{}
	e.hashOrder = append(e.hashOrder, h)
	if len(e.hashOrder) > recentHashesCapacity {
		evict := e.hashOrder[0]
		e.hashOrder = e.hashOrder[1:]
		delete(e.recentHashes, evict)
	}
}

// Accumulated returns everything emitted so far.
func (e *Engine) Accumulated() string {
	return e.accumulatedOutput.String()
}

// Reset clears all narration state; called on mode exit.
func (e *Engine) Reset() {
	*e = *New()
}
