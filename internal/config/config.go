// Package config loads clipstty's runtime configuration from, in
// increasing order of priority: built-in defaults, an optional YAML file,
// an optional .env file, environment variables, and command-line flags.
// The layering mirrors aiwisper's internal/config.Load, generalized with
// pflag/yaml/godotenv the way the rest of the retrieved pack uses them for
// CLI tools (doismellburning-samoyed's pflag-based flags,
// team-hashing-lokutor-orchestrator's godotenv, glyphoxa's yaml.v3).
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	flag "github.com/spf13/pflag"
	"gopkg.in/yaml.v3"
)

// Config is the fully-resolved set of runtime parameters. Field groups
// mirror spec.md §6's default-parameter table.
type Config struct {
	DataDir        string `yaml:"data_dir"`
	WhisperModel   string `yaml:"whisper_model"`
	LogLevel       string `yaml:"log_level"`
	Device         string `yaml:"device"`

	PollInterval     time.Duration `yaml:"poll_ms"`

	VADFrameDuration  time.Duration `yaml:"vad_frame_ms"`
	VADEnergyThresh   float64       `yaml:"vad_energy_threshold"`
	VADHangover       time.Duration `yaml:"vad_hangover_ms"`
	VADMinSpeech      time.Duration `yaml:"vad_min_speech_ms"`

	NarrationWindow time.Duration `yaml:"narration_window_ms"`
	NarrationCheck  time.Duration `yaml:"narration_check_ms"`

	CommandTimeout        time.Duration `yaml:"command_timeout"`
	CommandDuplicateWindow time.Duration `yaml:"command_duplicate_window"`
	CommandQuietAfter     time.Duration `yaml:"command_quiet_after"`
	TTSQuietAfter         time.Duration `yaml:"tts_quiet_after"`

	DedupThreshold float64       `yaml:"dedup_threshold"`
	DedupWindow    time.Duration `yaml:"dedup_window"`

	IndexMaxPerFile int `yaml:"index_max_per_file"`
}

// Default returns the parameter table from spec.md §6.
func Default() Config {
	home, _ := os.UserHomeDir()
	return Config{
		DataDir:      filepath.Join(home, ".clipstty"),
		WhisperModel: "",
		LogLevel:     "info",
		Device:       "",

		PollInterval:   80 * time.Millisecond,

		VADFrameDuration: 60 * time.Millisecond,
		VADEnergyThresh:  1e-4,
		VADHangover:      600 * time.Millisecond,
		VADMinSpeech:     100 * time.Millisecond,

		NarrationWindow: 8 * time.Second,
		NarrationCheck:  120 * time.Millisecond,

		CommandTimeout:         10 * time.Second,
		CommandDuplicateWindow: 1500 * time.Millisecond,
		CommandQuietAfter:      1500 * time.Millisecond,
		TTSQuietAfter:          3 * time.Second,

		DedupThreshold: 0.85,
		DedupWindow:    10 * time.Minute,

		IndexMaxPerFile: 1000,
	}
}

// expandHome replaces a leading "~/" the way spec.md §6 requires for
// CLIPSTTY_DATA_DIR.
func expandHome(path string) string {
	if !strings.HasPrefix(path, "~/") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, path[2:])
}

// Load builds a Config from defaults, an optional YAML file, a .env file,
// process environment, and command-line flags, in that priority order
// (later sources win).
func Load(args []string) (Config, error) {
	cfg := Default()

	// .env is best-effort: a missing file is not an error, mirroring
	// godotenv.Load's typical CLI usage.
	_ = godotenv.Load()

	if configPath := os.Getenv("CLIPSTTY_CONFIG"); configPath != "" {
		if err := mergeYAMLFile(&cfg, configPath); err != nil {
			return cfg, fmt.Errorf("config: failed to load %s: %w", configPath, err)
		}
	}

	applyEnv(&cfg)

	fs := flag.NewFlagSet("clipstty", flag.ContinueOnError)
	dataDir := fs.String("data-dir", cfg.DataDir, "root directory for sessions and transcripts")
	model := fs.String("model", cfg.WhisperModel, "path to the local whisper model")
	logLevel := fs.String("log-level", cfg.LogLevel, "log level: debug, info, warn, error")
	device := fs.String("device", cfg.Device, "input device name (empty = system default)")
	pollMs := fs.Int("poll-ms", int(cfg.PollInterval/time.Millisecond), "pipeline poll interval in ms")

	if err := fs.Parse(args); err != nil {
		return cfg, err
	}

	cfg.DataDir = expandHome(*dataDir)
	cfg.WhisperModel = *model
	cfg.LogLevel = *logLevel
	cfg.Device = *device
	cfg.PollInterval = time.Duration(*pollMs) * time.Millisecond

	return cfg, nil
}

func mergeYAMLFile(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	return yaml.Unmarshal(data, cfg)
}

func applyEnv(cfg *Config) {
	if v := os.Getenv("WHISPER_MODEL_PATH"); v != "" {
		cfg.WhisperModel = v
	}
	if v := os.Getenv("CLIPSTTY_DATA_DIR"); v != "" {
		cfg.DataDir = expandHome(v)
	}
	if v := os.Getenv("CLIPSTTY_LOG_LEVEL"); v != "" {
		cfg.LogLevel = v
	}
	if v := os.Getenv("CLIPSTTY_DEVICE"); v != "" {
		cfg.Device = v
	}
	if v := os.Getenv("CLIPSTTY_VAD_ENERGY_THRESHOLD"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.VADEnergyThresh = f
		}
	}
}
