// Package search implements the inverted-index search engine of §4.9:
// word/phrase/tag/date/confidence/session/language indexes built over
// transcript.Entry, full-text ranking, exact-phrase lookup, regex scan,
// fuzzy Jaccard search, and snippet generation. Ranking arithmetic uses
// gonum.org/v1/gonum/floats, the same dependency aiwisper's
// ai/mel_spectrogram.go pulls in (there for dsp/fourier spectral
// analysis; here for the score-vector arithmetic of full-text ranking).
package search

import (
	"math"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	"gonum.org/v1/gonum/floats"

	"github.com/askidmobile/clipstty/internal/clipsttyerr"
	"github.com/askidmobile/clipstty/internal/transcript"
)

const defaultMinWordLength = 2
const defaultMaxPhraseLength = 5

var defaultStopWords = map[string]bool{
	"the": true, "a": true, "an": true, "and": true, "or": true, "is": true,
	"of": true, "to": true, "in": true, "it": true, "that": true,
}

type posting struct {
	Frequency int
	Positions []int
}

// Index holds the search indexes of §4.9, plus an in-memory mirror of
// every entry for snippet generation.
type Index struct {
	minWordLength   int
	maxPhraseLength int
	stopWords       map[string]bool

	wordIndex       map[string]map[string]*posting // word -> entryID -> posting
	phraseIndex     map[string]map[string]int       // phrase -> entryID -> frequency
	tagIndex        map[string]map[string]bool
	dateIndex       map[string]map[string]bool // YYYY-MM-DD -> entryID
	confidenceIndex map[int]map[string]bool    // decile bucket -> entryID
	sessionIndex    map[string]map[string]bool
	languageIndex   map[string]map[string]bool

	entries map[string]transcript.Entry
}

// NewIndex creates an empty Index with the given tokenization knobs (0
// selects the §6 defaults).
func NewIndex(minWordLength, maxPhraseLength int, stopWords map[string]bool) *Index {
	if minWordLength <= 0 {
		minWordLength = defaultMinWordLength
	}
	if maxPhraseLength <= 0 {
		maxPhraseLength = defaultMaxPhraseLength
	}
	if stopWords == nil {
		stopWords = defaultStopWords
	}
	return &Index{
		minWordLength:   minWordLength,
		maxPhraseLength: maxPhraseLength,
		stopWords:       stopWords,
		wordIndex:       make(map[string]map[string]*posting),
		phraseIndex:     make(map[string]map[string]int),
		tagIndex:        make(map[string]map[string]bool),
		dateIndex:       make(map[string]map[string]bool),
		confidenceIndex: make(map[int]map[string]bool),
		sessionIndex:    make(map[string]map[string]bool),
		languageIndex:   make(map[string]map[string]bool),
		entries:         make(map[string]transcript.Entry),
	}
}

var tokenStrip = regexp.MustCompile(`[^a-z0-9]`)

// Tokenize lowercases, splits on whitespace, strips non-alphanumerics per
// token, and drops tokens shorter than minWordLength or in the stop-word
// set (§4.9 "Tokenization").
func (idx *Index) Tokenize(text string) []string {
	fields := strings.Fields(strings.ToLower(text))
	tokens := make([]string, 0, len(fields))
	for _, f := range fields {
		t := tokenStrip.ReplaceAllString(f, "")
		if len(t) < idx.minWordLength || idx.stopWords[t] {
			continue
		}
		tokens = append(tokens, t)
	}
	return tokens
}

// Add indexes entry across every sub-index.
func (idx *Index) Add(e transcript.Entry) {
	idx.entries[e.ID] = e
	tokens := idx.Tokenize(e.Text)

	for pos, tok := range tokens {
		m, ok := idx.wordIndex[tok]
		if !ok {
			m = make(map[string]*posting)
			idx.wordIndex[tok] = m
		}
		p, ok := m[e.ID]
		if !ok {
			p = &posting{}
			m[e.ID] = p
		}
		p.Frequency++
		p.Positions = append(p.Positions, pos)
	}

	for n := 2; n <= idx.maxPhraseLength; n++ {
		for i := 0; i+n <= len(tokens); i++ {
			phrase := strings.Join(tokens[i:i+n], " ")
			m, ok := idx.phraseIndex[phrase]
			if !ok {
				m = make(map[string]int)
				idx.phraseIndex[phrase] = m
			}
			m[e.ID]++
		}
	}

	for _, tag := range e.Tags {
		m, ok := idx.tagIndex[tag]
		if !ok {
			m = make(map[string]bool)
			idx.tagIndex[tag] = m
		}
		m[e.ID] = true
	}

	day := e.Timestamp.Format("2006-01-02")
	if idx.dateIndex[day] == nil {
		idx.dateIndex[day] = make(map[string]bool)
	}
	idx.dateIndex[day][e.ID] = true

	bucket := confidenceBucket(e.Confidence)
	if idx.confidenceIndex[bucket] == nil {
		idx.confidenceIndex[bucket] = make(map[string]bool)
	}
	idx.confidenceIndex[bucket][e.ID] = true

	if e.SessionID != "" {
		if idx.sessionIndex[e.SessionID] == nil {
			idx.sessionIndex[e.SessionID] = make(map[string]bool)
		}
		idx.sessionIndex[e.SessionID][e.ID] = true
	}
	if e.Language != "" {
		if idx.languageIndex[e.Language] == nil {
			idx.languageIndex[e.Language] = make(map[string]bool)
		}
		idx.languageIndex[e.Language][e.ID] = true
	}
}

// confidenceBucket returns a 10%-wide bucket index in [0,9] (§4.9).
func confidenceBucket(c float64) int {
	b := int(c * 10)
	if b > 9 {
		b = 9
	}
	if b < 0 {
		b = 0
	}
	return b
}

// Remove drops entry id from every sub-index (used when the store
// deletes a transcript the index has already mirrored).
func (idx *Index) Remove(id string) {
	e, ok := idx.entries[id]
	if !ok {
		return
	}
	for _, m := range idx.wordIndex {
		delete(m, id)
	}
	for _, m := range idx.phraseIndex {
		delete(m, id)
	}
	for _, tag := range e.Tags {
		delete(idx.tagIndex[tag], id)
	}
	delete(idx.dateIndex[e.Timestamp.Format("2006-01-02")], id)
	delete(idx.confidenceIndex[confidenceBucket(e.Confidence)], id)
	delete(idx.sessionIndex[e.SessionID], id)
	delete(idx.languageIndex[e.Language], id)
	delete(idx.entries, id)
}

// Sort orders search results (§4.9 "Sorting").
type Sort int

const (
	SortRelevance Sort = iota
	SortNewest
	SortOldest
	SortHighestConfidence
	SortLongest
)

// Filters applied after ranking (§4.9 "Filters").
type Filters struct {
	Since      *time.Time
	Until      *time.Time
	MinConf    *float64
	MaxConf    *float64
	SessionID  string
	Language   string
}

// HighlightSpan marks a match's character offsets within a Snippet.
type HighlightSpan struct {
	Start int
	End   int
}

// SnippetResult is one generated snippet (§4.9 "Snippet generation").
type SnippetResult struct {
	Text       string
	Highlights []HighlightSpan
}

// Result is one ranked search hit.
type Result struct {
	Entry     transcript.Entry
	Score     float64
	Snippets  []SnippetResult
}

func (idx *Index) applyFilters(id string, f Filters) bool {
	e := idx.entries[id]
	if f.Since != nil && e.Timestamp.Before(*f.Since) {
		return false
	}
	if f.Until != nil && e.Timestamp.After(*f.Until) {
		return false
	}
	if f.MinConf != nil && e.Confidence < *f.MinConf {
		return false
	}
	if f.MaxConf != nil && e.Confidence > *f.MaxConf {
		return false
	}
	if f.SessionID != "" && e.SessionID != f.SessionID {
		return false
	}
	if f.Language != "" && e.Language != f.Language {
		return false
	}
	return true
}

// FullText ranks candidates by Σ tf · ln(N/df) (§4.9 "FullText").
func (idx *Index) FullText(query string, f Filters, order Sort) []Result {
	tokens := idx.Tokenize(query)
	N := float64(len(idx.entries))

	scores := make(map[string]float64)
	for _, tok := range tokens {
		postings, ok := idx.wordIndex[tok]
		if !ok {
			continue
		}
		df := float64(len(postings))
		idf := math.Log(N / math.Max(df, 1))
		for id, p := range postings {
			scores[id] += float64(p.Frequency) * idf
		}
	}

	return idx.rank(scores, f, order, query)
}

// rank converts a score map into filtered, sorted Results with snippets.
// The raw scores are normalized by their maximum, computed with
// gonum/floats; the relative order of results with equal scores is not
// defined.
func (idx *Index) rank(scores map[string]float64, f Filters, order Sort, query string) []Result {
	ids := make([]string, 0, len(scores))
	raw := make([]float64, 0, len(scores))
	for id, score := range scores {
		if !idx.applyFilters(id, f) {
			continue
		}
		ids = append(ids, id)
		raw = append(raw, score)
	}
	if len(raw) == 0 {
		return nil
	}
	maxScore := floats.Max(raw)
	if maxScore <= 0 {
		maxScore = 1
	}

	results := make([]Result, len(ids))
	for i, id := range ids {
		results[i] = Result{
			Entry:    idx.entries[id],
			Score:    raw[i] / maxScore,
			Snippets: idx.snippets(idx.entries[id], query),
		}
	}

	sortResults(results, order)
	return results
}

func sortResults(results []Result, order Sort) {
	switch order {
	case SortNewest:
		sort.Slice(results, func(i, j int) bool { return results[i].Entry.Timestamp.After(results[j].Entry.Timestamp) })
	case SortOldest:
		sort.Slice(results, func(i, j int) bool { return results[i].Entry.Timestamp.Before(results[j].Entry.Timestamp) })
	case SortHighestConfidence:
		sort.Slice(results, func(i, j int) bool { return results[i].Entry.Confidence > results[j].Entry.Confidence })
	case SortLongest:
		sort.Slice(results, func(i, j int) bool { return len(results[i].Entry.Text) > len(results[j].Entry.Text) })
	default:
		sort.Slice(results, func(i, j int) bool { return results[i].Score > results[j].Score })
	}
}

// ExactPhrase looks up phrase directly in the phrase index; score is raw
// frequency (§4.9 "ExactPhrase").
func (idx *Index) ExactPhrase(phrase string, f Filters, order Sort) []Result {
	norm := strings.Join(idx.Tokenize(phrase), " ")
	postings, ok := idx.phraseIndex[norm]
	if !ok {
		return nil
	}
	scores := make(map[string]float64, len(postings))
	for id, freq := range postings {
		scores[id] = float64(freq)
	}
	return idx.rank(scores, f, order, phrase)
}

// Regex linear-scans the in-memory mirror (§4.9 "Regex").
func (idx *Index) Regex(pattern string, f Filters, order Sort) ([]Result, error) {
	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, clipsttyerr.ErrRegexError
	}
	scores := make(map[string]float64)
	for id, e := range idx.entries {
		if re.MatchString(e.Text) {
			scores[id] = 1
		}
	}
	return idx.rank(scores, f, order, pattern), nil
}

// Fuzzy retains entries whose Jaccard token-set similarity to query is >=
// threshold (§4.9 "Fuzzy").
func (idx *Index) Fuzzy(query string, threshold float64, f Filters, order Sort) []Result {
	qset := tokenSet(idx.Tokenize(query))
	scores := make(map[string]float64)
	for id, e := range idx.entries {
		eset := tokenSet(idx.Tokenize(e.Text))
		sim := jaccard(qset, eset)
		if sim >= threshold {
			scores[id] = sim
		}
	}
	return idx.rank(scores, f, order, query)
}

func tokenSet(tokens []string) map[string]bool {
	s := make(map[string]bool, len(tokens))
	for _, t := range tokens {
		s[t] = true
	}
	return s
}

func jaccard(a, b map[string]bool) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	inter := 0
	for t := range a {
		if b[t] {
			inter++
		}
	}
	union := len(a) + len(b) - inter
	if union == 0 {
		return 0
	}
	return float64(inter) / float64(union)
}

// Tags returns entries tagged with every tag in tags (intersection,
// §4.9 "Tags").
func (idx *Index) Tags(tags []string, f Filters, order Sort) []Result {
	if len(tags) == 0 {
		return nil
	}
	var ids map[string]bool
	for i, tag := range tags {
		m := idx.tagIndex[tag]
		if i == 0 {
			ids = make(map[string]bool, len(m))
			for id := range m {
				ids[id] = true
			}
			continue
		}
		for id := range ids {
			if !m[id] {
				delete(ids, id)
			}
		}
	}
	scores := make(map[string]float64, len(ids))
	for id := range ids {
		scores[id] = 1
	}
	return idx.rank(scores, f, order, "")
}

const snippetRadius = 5
const maxSnippetsPerMatch = 3

// snippets generates up to maxSnippetsPerMatch windows of ±snippetRadius
// tokens around each query-term match (§4.9 "Snippet generation").
func (idx *Index) snippets(e transcript.Entry, query string) []SnippetResult {
	qTokens := tokenSet(idx.Tokenize(query))
	if len(qTokens) == 0 {
		return nil
	}

	words := strings.Fields(e.Text)
	lower := make([]string, len(words))
	for i, w := range words {
		lower[i] = tokenStrip.ReplaceAllString(strings.ToLower(w), "")
	}

	var out []SnippetResult
	for i, w := range lower {
		if len(out) >= maxSnippetsPerMatch {
			break
		}
		if !qTokens[w] {
			continue
		}
		start := i - snippetRadius
		if start < 0 {
			start = 0
		}
		end := i + snippetRadius + 1
		if end > len(words) {
			end = len(words)
		}

		snippetWords := words[start:end]
		text := strings.Join(snippetWords, " ")
		matchOffset := len(strings.Join(words[start:i], " "))
		if matchOffset > 0 {
			matchOffset++ // account for the joining space
		}
		out = append(out, SnippetResult{
			Text:       text,
			Highlights: []HighlightSpan{{Start: matchOffset, End: matchOffset + len(words[i])}},
		})
	}
	return out
}

// parseConfidence is a small helper for CLI-style filter parsing
// (e.g. "0.8" -> 0.8); kept here since the search package owns the only
// confidence-bucket semantics in the module.
func parseConfidence(s string) (float64, error) {
	return strconv.ParseFloat(s, 64)
}
