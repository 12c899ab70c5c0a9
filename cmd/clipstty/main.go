// Command clipstty runs the capture → VAD → STT → output pipeline of
// spec.md as a standalone background process. Wiring order follows the
// teacher's main.go: load configuration, bootstrap directories, build
// each subsystem, then hand off to a blocking driver loop.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/askidmobile/clipstty/internal/audio"
	"github.com/askidmobile/clipstty/internal/command"
	"github.com/askidmobile/clipstty/internal/config"
	"github.com/askidmobile/clipstty/internal/dedup"
	"github.com/askidmobile/clipstty/internal/logging"
	"github.com/askidmobile/clipstty/internal/output"
	"github.com/askidmobile/clipstty/internal/pipeline"
	"github.com/askidmobile/clipstty/internal/search"
	"github.com/askidmobile/clipstty/internal/session"
	"github.com/askidmobile/clipstty/internal/stt"
	"github.com/askidmobile/clipstty/internal/sysctx"
	"github.com/askidmobile/clipstty/internal/transcript"
	"github.com/askidmobile/clipstty/internal/vad"
)

func main() {
	cfg, err := config.Load(os.Args[1:])
	if err != nil {
		fmt.Fprintln(os.Stderr, "clipstty: config:", err)
		os.Exit(1)
	}

	log := logging.New(cfg.LogLevel)

	if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
		log.Fatal().Err(err).Str("data_dir", cfg.DataDir).Msg("failed to create data directory")
	}

	if v := os.Getenv("WHISPER_MODEL_PATH"); v != "" && cfg.WhisperModel == "" {
		cfg.WhisperModel = v
	}

	ring, err := audio.NewRing()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize audio capture")
	}
	defer ring.Close()
	const (
		retentionWindowSeconds = 60 // matches pipeline.window_ms default (§6)
		deviceRateUpperBound   = 48000
	)
	ring.SetRetention(retentionWindowSeconds * deviceRateUpperBound)

	if err := ring.Start(cfg.Device); err != nil {
		log.Fatal().Err(err).Str("device", cfg.Device).Msg("failed to start audio capture")
	}

	sysCtx := sysctx.New()
	sysCtx.SetCurrentDevice(cfg.Device)
	sysCtx.SetInstantOutput(false)

	vadCfg := vad.Config{
		FrameDuration:   cfg.VADFrameDuration,
		EnergyThreshold: cfg.VADEnergyThresh,
		Hangover:        cfg.VADHangover,
		MinSpeech:       cfg.VADMinSpeech,
	}
	segmenter := vad.New(vadCfg)

	var backend stt.Backend
	whisperBackend, err := stt.NewWhisperBackend(cfg.WhisperModel, "")
	if err != nil {
		log.Warn().Err(err).Msg("whisper model unavailable; voice pipeline will reject audio until WHISPER_MODEL_PATH is set")
		backend = &stt.MockBackend{}
	} else {
		defer whisperBackend.Close()
		backend = whisperBackend
	}

	transcripts, err := transcript.Open(filepath.Join(cfg.DataDir, "transcripts"), cfg.IndexMaxPerFile)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to open transcript store")
	}

	searchIndex := search.NewIndex(0, 0, nil)
	if entries, err := transcripts.All(); err != nil {
		log.Warn().Err(err).Msg("failed to rebuild search index from transcript store")
	} else {
		for _, e := range entries {
			searchIndex.Add(e)
		}
	}

	deduplicator := dedup.New(dedup.SchemeContentBased, true)
	deduplicator.SimilarityThreshold = cfg.DedupThreshold
	deduplicator.RecentWindow = cfg.DedupWindow

	sessionMgr := session.NewManager(filepath.Join(cfg.DataDir), ring, sysCtx, log, false)
	if err := sessionMgr.LoadHistory(); err != nil {
		log.Warn().Err(err).Msg("failed to load prior session history")
	}

	injector := output.New()

	engine := command.New(true, 0)
	command.RegisterBuiltins(engine, command.Deps{
		Sessions:  sessionMgr,
		Search:    searchIndex,
		Segmenter: segmenter,
	})

	driverCfg := pipeline.DefaultConfig()
	driverCfg.PollInterval = cfg.PollInterval
	driverCfg.NarrationWindow = cfg.NarrationWindow
	driverCfg.NarrationCheck = cfg.NarrationCheck
	driverCfg.CommandQuiet = cfg.CommandQuietAfter
	driverCfg.TTSQuiet = cfg.TTSQuietAfter
	driverCfg.DuplicateWindow = cfg.CommandDuplicateWindow

	driver := pipeline.New(driverCfg, ring, segmenter, backend, sysCtx, engine, injector, sessionMgr, transcripts, searchIndex, deduplicator, log)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	log.Info().Str("data_dir", cfg.DataDir).Msg("clipstty started")
	driver.Run(ctx)
	log.Info().Msg("clipstty stopped")
}
