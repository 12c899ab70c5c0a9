package config

import (
	"os"
	"testing"
	"time"
)

func TestDefaultMatchesSpecTable(t *testing.T) {
	cfg := Default()
	if cfg.PollInterval != 80*time.Millisecond {
		t.Errorf("PollInterval = %v, want 80ms", cfg.PollInterval)
	}
	if cfg.VADEnergyThresh != 1e-4 {
		t.Errorf("VADEnergyThresh = %v, want 1e-4", cfg.VADEnergyThresh)
	}
	if cfg.CommandTimeout != 10*time.Second {
		t.Errorf("CommandTimeout = %v, want 10s", cfg.CommandTimeout)
	}
	if cfg.IndexMaxPerFile != 1000 {
		t.Errorf("IndexMaxPerFile = %d, want 1000", cfg.IndexMaxPerFile)
	}
}

func TestExpandHome(t *testing.T) {
	home, _ := os.UserHomeDir()
	got := expandHome("~/.clipstty")
	want := home + "/.clipstty"
	if got != want {
		t.Errorf("expandHome = %q, want %q", got, want)
	}
	if expandHome("/abs/path") != "/abs/path" {
		t.Errorf("expandHome should leave absolute paths untouched")
	}
}

func TestLoadAppliesEnvOverride(t *testing.T) {
	t.Setenv("CLIPSTTY_DATA_DIR", "/tmp/custom-clipstty")
	t.Setenv("WHISPER_MODEL_PATH", "/models/ggml-base.bin")

	cfg, err := Load(nil)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.DataDir != "/tmp/custom-clipstty" {
		t.Errorf("DataDir = %q, want /tmp/custom-clipstty", cfg.DataDir)
	}
	if cfg.WhisperModel != "/models/ggml-base.bin" {
		t.Errorf("WhisperModel = %q, want /models/ggml-base.bin", cfg.WhisperModel)
	}
}

func TestLoadFlagsOverrideEnv(t *testing.T) {
	t.Setenv("CLIPSTTY_DATA_DIR", "/tmp/from-env")

	cfg, err := Load([]string{"--data-dir", "/tmp/from-flag"})
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.DataDir != "/tmp/from-flag" {
		t.Errorf("DataDir = %q, want /tmp/from-flag", cfg.DataDir)
	}
}
