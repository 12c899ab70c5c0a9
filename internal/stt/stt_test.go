package stt

import (
	"errors"
	"testing"

	"github.com/askidmobile/clipstty/internal/clipsttyerr"
)

func TestMockBackendReturnsScriptInOrder(t *testing.T) {
	m := &MockBackend{Script: []Result{
		{Text: "first", Backend: "mock"},
		{Text: "second", Backend: "mock"},
	}}
	samples := make([]float32, MinimumSamples)

	r1, err := m.Transcribe(samples)
	if err != nil || r1.Text != "first" {
		t.Fatalf("first call = (%v, %v)", r1, err)
	}
	r2, err := m.Transcribe(samples)
	if err != nil || r2.Text != "second" {
		t.Fatalf("second call = (%v, %v)", r2, err)
	}
	if _, err := m.Transcribe(samples); !errors.Is(err, clipsttyerr.ErrTranscribeFailed) {
		t.Fatalf("expected ErrTranscribeFailed past end of script, got %v", err)
	}
}

func TestMockBackendRejectsShortInput(t *testing.T) {
	m := &MockBackend{Script: []Result{{Text: "x"}}}
	if _, err := m.Transcribe(make([]float32, 100)); !errors.Is(err, clipsttyerr.ErrInputTooShort) {
		t.Fatalf("expected ErrInputTooShort, got %v", err)
	}
}
