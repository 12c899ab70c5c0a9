package vad

import (
	"testing"
	"time"
)

const sr = 16000

func loudFrame(n int) []float32 {
	f := make([]float32, n)
	for i := range f {
		f[i] = 0.5
	}
	return f
}

func silentFrame(n int) []float32 {
	return make([]float32, n)
}

func TestSegmenterDropsShortUtterance(t *testing.T) {
	s := New(Config{
		FrameDuration:   60 * time.Millisecond,
		EnergyThreshold: 0.01,
		Hangover:        100 * time.Millisecond,
		MinSpeech:       500 * time.Millisecond,
	})
	now := time.Unix(0, 0)
	frame := loudFrame(960) // 60ms @ 16kHz

	var utt *Utterance
	// Voice for only 60ms, well under MinSpeech, then silence past hangover.
	utt = s.Push(frame, sr, now)
	if utt != nil {
		t.Fatalf("unexpected utterance on first voiced frame")
	}
	now = now.Add(200 * time.Millisecond)
	utt = s.Push(silentFrame(960), sr, now)
	if utt != nil {
		t.Fatalf("short utterance should be dropped, got one of %d samples", len(utt.Samples))
	}
}

func TestSegmenterEmitsQualifyingUtterance(t *testing.T) {
	s := New(Config{
		FrameDuration:   60 * time.Millisecond,
		EnergyThreshold: 0.01,
		Hangover:        100 * time.Millisecond,
		MinSpeech:       50 * time.Millisecond,
	})
	now := time.Unix(0, 0)
	frame := loudFrame(16000) // 1s of voiced audio per push, well above 1s minimum

	if utt := s.Push(frame, sr, now); utt != nil {
		t.Fatalf("should not finalize while still voiced")
	}
	now = now.Add(1 * time.Second)
	if utt := s.Push(frame, sr, now); utt != nil {
		t.Fatalf("should not finalize while still voiced")
	}
	now = now.Add(200 * time.Millisecond) // exceeds 100ms hangover
	utt := s.Push(silentFrame(960), sr, now)
	if utt == nil {
		t.Fatalf("expected a finalized utterance")
	}
	if len(utt.Samples) < sr {
		t.Fatalf("utterance shorter than 1s minimum: %d samples", len(utt.Samples))
	}
}

func TestSegmenterGateBlocksVoicing(t *testing.T) {
	s := New(DefaultConfig())
	s.SetGate(true)
	now := time.Unix(0, 0)
	if utt := s.Push(loudFrame(960), sr, now); utt != nil {
		t.Fatalf("gated segmenter must never start voicing")
	}
	if s.st != stateSilent {
		t.Fatalf("gated segmenter transitioned to voiced")
	}
}

func TestSegmenterResetClearsState(t *testing.T) {
	s := New(Config{
		FrameDuration:   60 * time.Millisecond,
		EnergyThreshold: 0.01,
		Hangover:        500 * time.Millisecond,
		MinSpeech:       50 * time.Millisecond,
	})
	now := time.Unix(0, 0)
	s.Push(loudFrame(960), sr, now)
	if s.st != stateVoiced {
		t.Fatalf("expected voiced state before reset")
	}
	s.Reset()
	if s.st != stateSilent || len(s.buffer) != 0 {
		t.Fatalf("Reset did not clear state")
	}
}

func TestEnergyThresholdClamped(t *testing.T) {
	s := New(DefaultConfig())
	s.SetEnergyThreshold(5)
	if s.EnergyThreshold() != 1 {
		t.Fatalf("EnergyThreshold = %v, want clamped to 1", s.EnergyThreshold())
	}
	s.SetEnergyThreshold(-5)
	if s.EnergyThreshold() != 0 {
		t.Fatalf("EnergyThreshold = %v, want clamped to 0", s.EnergyThreshold())
	}
}
