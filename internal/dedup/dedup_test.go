package dedup

import (
	"testing"
	"time"
)

func TestExactDuplicateSimpleScheme(t *testing.T) {
	d := New(SchemeSimple, false)
	now := time.Now()
	recent := []Candidate{{ID: "a1", Text: "hello world", Hash: d.Hash("hello world"), At: now}}

	outcome := d.Check("hello world", now, recent)
	if outcome.Verdict != ExactDuplicate || outcome.MatchID != "a1" {
		t.Fatalf("outcome = %+v, want ExactDuplicate a1", outcome)
	}
}

func TestContentBasedSchemeIgnoresCaseAndSpacing(t *testing.T) {
	d := New(SchemeContentBased, false)
	h1 := d.Hash("Hello   World")
	h2 := d.Hash("hello world")
	if h1 != h2 {
		t.Fatalf("content-based hashes should match regardless of case/spacing")
	}
}

func TestSemanticSchemeDiffersOnWordCount(t *testing.T) {
	d := New(SchemeSemantic, false)
	h1 := d.Hash("one two three")
	h2 := d.Hash("one two three four")
	if h1 == h2 {
		t.Fatalf("semantic hash should differ when word_count differs")
	}
}

func TestFuzzyMatchWithinWindow(t *testing.T) {
	d := New(SchemeSimple, true)
	now := time.Now()
	recent := []Candidate{{ID: "a1", Text: "the quick brown fox", Hash: d.Hash("some other text"), At: now}}

	outcome := d.Check("the quick brown fax", now, recent)
	if outcome.Verdict != SimilarTranscript {
		t.Fatalf("expected SimilarTranscript, got %+v", outcome)
	}
}

func TestFuzzyMatchIgnoresStaleWindow(t *testing.T) {
	d := New(SchemeSimple, true)
	now := time.Now()
	stale := now.Add(-20 * time.Minute)
	recent := []Candidate{{ID: "a1", Text: "the quick brown fox", Hash: d.Hash("some other text"), At: stale}}

	outcome := d.Check("the quick brown fax", now, recent)
	if outcome.Verdict != Unique {
		t.Fatalf("expected Unique for stale candidate, got %+v", outcome)
	}
}

func TestMergePicksMaxConfidenceTextAndAveragesScore(t *testing.T) {
	merged := Merge([]Candidate{
		{Text: "low confidence text", Confidence: 0.4},
		{Text: "high confidence text", Confidence: 0.9},
	})
	if merged.Text != "high confidence text" {
		t.Fatalf("merged.Text = %q, want highest-confidence text", merged.Text)
	}
	if merged.Confidence != 0.65 {
		t.Fatalf("merged.Confidence = %v, want 0.65", merged.Confidence)
	}
}
