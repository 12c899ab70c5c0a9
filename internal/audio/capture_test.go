package audio

import (
	"testing"
	"time"
)

func newTestRing() *Ring {
	return &Ring{}
}

func TestRingAppendAndSnapshot(t *testing.T) {
	r := newTestRing()
	r.append([]Sample{0.1, 0.2, 0.3}, 16000)

	snap := r.Snapshot(0)
	if len(snap) != 3 {
		t.Fatalf("len = %d, want 3", len(snap))
	}
	if snap[0] != 0.1 || snap[2] != 0.3 {
		t.Fatalf("unexpected snapshot contents: %v", snap)
	}
}

func TestRingSnapshotIsClone(t *testing.T) {
	r := newTestRing()
	r.append([]Sample{1, 2, 3}, 16000)
	snap := r.Snapshot(0)
	snap[0] = 99
	if r.samples[0] == 99 {
		t.Fatalf("Snapshot must return a clone, not a view into the ring buffer")
	}
}

func TestRingSnapshotWindow(t *testing.T) {
	r := newTestRing()
	frame := make([]Sample, 16000) // 1 second at 16kHz
	r.append(frame, 16000)

	half := r.Snapshot(500 * time.Millisecond)
	if len(half) != 8000 {
		t.Fatalf("len = %d, want 8000 (500ms at 16kHz)", len(half))
	}
}

func TestRingRetentionTrims(t *testing.T) {
	r := newTestRing()
	r.SetRetention(10)
	for i := 0; i < 5; i++ {
		r.append([]Sample{1, 2, 3, 4}, 16000)
	}
	if len(r.samples) != 10 {
		t.Fatalf("len = %d, want 10 (retention bound)", len(r.samples))
	}
}

func TestRingClear(t *testing.T) {
	r := newTestRing()
	r.append([]Sample{1, 2, 3}, 16000)
	r.Clear()
	if len(r.samples) != 0 {
		t.Fatalf("Clear left %d samples", len(r.samples))
	}
	if r.SampleRate() != 16000 {
		t.Fatalf("Clear must not reset the published sample rate")
	}
}

func TestRingAddListenerInvokedOnAppend(t *testing.T) {
	r := newTestRing()
	var got []Sample
	if err := r.AddListener(func(frame []Sample, sampleRate int) {
		got = append(got, frame...)
	}); err != nil {
		t.Fatalf("AddListener: %v", err)
	}
	r.append([]Sample{0.5, -0.5}, 16000)
	if len(got) != 2 {
		t.Fatalf("listener saw %d samples, want 2", len(got))
	}
}
