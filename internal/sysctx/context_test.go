package sysctx

import (
	"testing"
	"time"
)

func TestModeRoundTrip(t *testing.T) {
	c := New()
	if c.Mode() != ModeNormal {
		t.Fatalf("default mode = %v, want Normal", c.Mode())
	}
	c.SetMode(ModeNarration)
	if c.Mode() != ModeNarration {
		t.Fatalf("Mode() = %v, want Narration", c.Mode())
	}
}

func TestAdjustSensitivityClamps(t *testing.T) {
	c := New()
	if v := c.AdjustSensitivity(0.9); v != 0.9 {
		t.Fatalf("AdjustSensitivity = %v, want 0.9", v)
	}
	if v := c.AdjustSensitivity(0.5); v != 1.0 {
		t.Fatalf("AdjustSensitivity should clamp to 1.0, got %v", v)
	}
	if v := c.AdjustSensitivity(-5); v != 0.0 {
		t.Fatalf("AdjustSensitivity should clamp to 0.0, got %v", v)
	}
}

func TestRecentCommandsBounded(t *testing.T) {
	c := New()
	base := time.Unix(0, 0)
	for i := 0; i < recentCommandsCapacity+10; i++ {
		c.RecordCommand("noop", "", base.Add(time.Duration(i)*time.Second))
	}
	snap := c.Snapshot()
	if len(snap.RecentCommands) != recentCommandsCapacity {
		t.Fatalf("len(RecentCommands) = %d, want %d", len(snap.RecentCommands), recentCommandsCapacity)
	}
}

func TestLastCommandAt(t *testing.T) {
	c := New()
	if _, ok := c.LastCommandAt("start_recording"); ok {
		t.Fatalf("expected no record for unseen command")
	}
	now := time.Now()
	c.RecordCommand("start_recording", "start recording", now)
	got, ok := c.LastCommandAt("start_recording")
	if !ok || !got.Equal(now) {
		t.Fatalf("LastCommandAt = (%v, %v), want (%v, true)", got, ok, now)
	}
}

func TestQuietUntil(t *testing.T) {
	c := New()
	now := time.Now()
	c.SetCommandQuietUntil(now.Add(1500 * time.Millisecond))
	c.SetTTSQuietUntil(now.Add(3 * time.Second))

	cmdQuiet, ttsQuiet := c.QuietUntil(now)
	if !cmdQuiet || !ttsQuiet {
		t.Fatalf("expected both quiet windows active immediately after set")
	}
	cmdQuiet, ttsQuiet = c.QuietUntil(now.Add(2 * time.Second))
	if cmdQuiet {
		t.Fatalf("command quiet window should have expired")
	}
	if !ttsQuiet {
		t.Fatalf("tts quiet window should still be active")
	}
}

func TestSessionDataRoundTrip(t *testing.T) {
	c := New()
	if _, ok := c.SessionDataGet("missing"); ok {
		t.Fatalf("expected no value for missing key")
	}
	c.SessionDataSet("last_command_result", "ok")
	v, ok := c.SessionDataGet("last_command_result")
	if !ok || v != "ok" {
		t.Fatalf("SessionDataGet = (%v, %v), want (ok, true)", v, ok)
	}
}

func TestSnapshotIsIndependentCopy(t *testing.T) {
	c := New()
	c.SessionDataSet("k", "v")
	snap := c.Snapshot()
	snap.SessionData["k"] = "mutated"

	v, _ := c.SessionDataGet("k")
	if v != "v" {
		t.Fatalf("mutating a Snapshot must not affect the live context, got %v", v)
	}
}
