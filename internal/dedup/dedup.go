// Package dedup implements the transcript deduplicator of §4.10: exact
// hash matching under a configurable scheme, fuzzy Levenshtein-ratio
// matching over a recent window, and a confidence-weighted merge policy.
// The Levenshtein-based ratio reuses antzucaro/matchr the same way
// internal/command does for fuzzy pattern resolution.
package dedup

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"github.com/antzucaro/matchr"
)

// Scheme selects the content-hash algorithm (§4.10 "Mechanism").
type Scheme int

const (
	SchemeSimple Scheme = iota
	SchemeContentBased
	SchemeSemantic
)

const (
	defaultRecentWindow        = 10 * time.Minute
	defaultSimilarityThreshold = 0.85
)

// Candidate is one previously-seen transcript the deduplicator compares
// against.
type Candidate struct {
	ID         string
	Text       string
	Hash       string
	Confidence float64
	At         time.Time
}

// Verdict is the deduplicator's decision (§4.10 "Contract").
type Verdict int

const (
	Unique Verdict = iota
	ExactDuplicate
	SimilarTranscript
)

// Outcome bundles the verdict with the matched candidate (when any) and
// the computed similarity for SimilarTranscript.
type Outcome struct {
	Verdict    Verdict
	MatchID    string
	Similarity float64
}

// Deduplicator holds the hashing scheme and fuzzy-matching knobs.
type Deduplicator struct {
	Scheme              Scheme
	FuzzyEnabled        bool
	SimilarityThreshold float64
	RecentWindow        time.Duration
}

// New creates a Deduplicator with the §6 defaults applied where zero.
func New(scheme Scheme, fuzzyEnabled bool) *Deduplicator {
	return &Deduplicator{
		Scheme:              scheme,
		FuzzyEnabled:        fuzzyEnabled,
		SimilarityThreshold: defaultSimilarityThreshold,
		RecentWindow:        defaultRecentWindow,
	}
}

// Hash computes the content hash for text under d.Scheme.
func (d *Deduplicator) Hash(text string) string {
	switch d.Scheme {
	case SchemeContentBased:
		return hashString(normalizeContentBased(text))
	case SchemeSemantic:
		return hashString(semanticFeatures(text))
	default:
		return hashString(text)
	}
}

func hashString(s string) string {
	sum := sha256.Sum256([]byte(s))
	return hex.EncodeToString(sum[:])
}

func normalizeContentBased(text string) string {
	var b strings.Builder
	lastSpace := false
	for _, r := range strings.ToLower(text) {
		switch {
		case (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9'):
			b.WriteRune(r)
			lastSpace = false
		case r == ' ' || r == '\t' || r == '\n':
			if !lastSpace {
				b.WriteByte(' ')
				lastSpace = true
			}
		}
	}
	return strings.TrimSpace(b.String())
}

// semanticFeatures builds the (word_count, avg_word_len, first_word_lc,
// last_word_lc) tuple of §4.10 and serializes it to a stable string.
func semanticFeatures(text string) string {
	words := strings.Fields(text)
	if len(words) == 0 {
		return "0|0|<empty>|<empty>"
	}
	totalLen := 0
	for _, w := range words {
		totalLen += len(w)
	}
	avg := float64(totalLen) / float64(len(words))
	first := strings.ToLower(words[0])
	last := strings.ToLower(words[len(words)-1])
	return fmt.Sprintf("%d|%.2f|%s|%s", len(words), avg, first, last)
}

// Check compares text (and its hash, computed with d.Hash) against
// recent, rejecting candidates older than d.RecentWindow
// when fuzzy matching.
func (d *Deduplicator) Check(text string, now time.Time, recent []Candidate) Outcome {
	hash := d.Hash(text)
	for _, c := range recent {
		if c.Hash == hash {
			return Outcome{Verdict: ExactDuplicate, MatchID: c.ID, Similarity: 1}
		}
	}

	if !d.FuzzyEnabled {
		return Outcome{Verdict: Unique}
	}

	for _, c := range recent {
		if now.Sub(c.At) > d.RecentWindow {
			continue
		}
		sim := levenshteinRatio(text, c.Text)
		if sim >= d.SimilarityThreshold {
			return Outcome{Verdict: SimilarTranscript, MatchID: c.ID, Similarity: sim}
		}
	}

	return Outcome{Verdict: Unique}
}

// levenshteinRatio is 1 - distance/max(len), matchr-backed.
func levenshteinRatio(a, b string) float64 {
	maxLen := len(a)
	if len(b) > maxLen {
		maxLen = len(b)
	}
	if maxLen == 0 {
		return 1
	}
	dist := matchr.Levenshtein(a, b)
	return 1 - float64(dist)/float64(maxLen)
}

// Merged is the result of merging a set of similar transcripts (§4.10
// "Merge policy").
type Merged struct {
	Text       string
	Confidence float64
}

// Merge picks the maximum-confidence text as merged_text and averages
// confidence across the set.
func Merge(candidates []Candidate) Merged {
	if len(candidates) == 0 {
		return Merged{}
	}
	best := candidates[0]
	var total float64
	for _, c := range candidates {
		total += c.Confidence
		if c.Confidence > best.Confidence {
			best = c
		}
	}
	return Merged{Text: best.Text, Confidence: total / float64(len(candidates))}
}
