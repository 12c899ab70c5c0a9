package narration

import "testing"

func TestStabilityGateSuppressesFlicker(t *testing.T) {
	e := New()
	if out := e.Push("hello", 50); out != "" {
		t.Fatalf("first push before stability should emit nothing, got %q", out)
	}
	out := e.Push("hello", 50)
	if out == "" {
		t.Fatalf("second identical push should pass the stability gate")
	}
}

func TestDeltaExtractionOnlyEmitsSuffix(t *testing.T) {
	e := New()
	e.Push("hello world", 50)
	first := e.Push("hello world", 50)
	if first == "" {
		t.Fatalf("expected an emission once stable")
	}

	// Grow the window; only the new suffix should be emitted next time,
	// after it too stabilizes.
	e.Push("hello world and more", 50)
	second := e.Push("hello world and more", 50)
	if second == "" {
		t.Fatalf("expected a delta emission for the grown window")
	}
	if second == first {
		t.Fatalf("delta should not repeat the already-emitted prefix, got %q", second)
	}
}

func TestHashDedupSuppressesRepeatedFullText(t *testing.T) {
	e := New()
	e.Push("test phrase here", 50)
	e.Push("test phrase here", 50)
	// Reset lastFullText to empty to force delta = full text again, while
	// the hash of the normalized text is already recorded.
	e.lastFullText = ""
	out := e.Push("test phrase here", 50)
	if out != "" {
		t.Fatalf("expected hash dedup to suppress repeated full text, got %q", out)
	}
}

func TestContractionCanonicalization(t *testing.T) {
	if got := canonicalize("dont"); got != "don't" {
		t.Fatalf("canonicalize(dont) = %q, want don't", got)
	}
	if got := canonicalize("i"); got != "I" {
		t.Fatalf("canonicalize(i) = %q, want I", got)
	}
	if got := canonicalize("hello"); got != "hello" {
		t.Fatalf("canonicalize(hello) = %q, want hello unchanged", got)
	}
}

func TestInternalDuplicationDetected(t *testing.T) {
	words := []string{"the", "cat", "sat", "the", "cat", "sat"}
	if !hasInternalDuplication(words) {
		t.Fatalf("expected internal duplication to be detected")
	}
}

func TestNoInternalDuplicationForDistinctWords(t *testing.T) {
	words := []string{"the", "cat", "sat", "on", "mat", "today"}
	if hasInternalDuplication(words) {
		t.Fatalf("unexpected internal duplication reported")
	}
}

func TestResetClearsState(t *testing.T) {
	e := New()
	e.Push("hello", 50)
	e.Push("hello", 50)
	e.Reset()
	if e.Accumulated() != "" {
		t.Fatalf("Reset should clear accumulated output")
	}
}
