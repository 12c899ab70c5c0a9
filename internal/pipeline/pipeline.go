// Package pipeline drives the cooperative poll loop of §4.3: snapshot
// the ring, resample, consult SystemContext, then dispatch to quiet,
// narration, or normal handling. The sleep/snapshot/dispatch loop shape
// is new (aiwisper has no sliding-window narration mode), but the
// single-worker cooperative loop and RTF-style timing log follow
// aiwisper's main.go wiring, which also logs wall-clock-vs-audio timing
// around each transcription call.
package pipeline

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/askidmobile/clipstty/internal/audio"
	"github.com/askidmobile/clipstty/internal/command"
	"github.com/askidmobile/clipstty/internal/dedup"
	"github.com/askidmobile/clipstty/internal/narration"
	"github.com/askidmobile/clipstty/internal/output"
	"github.com/askidmobile/clipstty/internal/search"
	"github.com/askidmobile/clipstty/internal/session"
	"github.com/askidmobile/clipstty/internal/stt"
	"github.com/askidmobile/clipstty/internal/sysctx"
	"github.com/askidmobile/clipstty/internal/transcript"
	"github.com/askidmobile/clipstty/internal/vad"
)

// recentCandidateCapacity bounds the in-memory window dedup.Check
// compares fresh transcriptions against; persisted history is already
// durable in the transcript store, this is only for the cheap recent
// fuzzy-match scan.
const recentCandidateCapacity = 20

// Config holds the §6 default parameters relevant to the driver.
type Config struct {
	PollInterval    time.Duration
	NarrationWindow time.Duration
	NarrationCheck  time.Duration
	CommandQuiet    time.Duration
	TTSQuiet        time.Duration
	DuplicateWindow time.Duration
}

// DefaultConfig returns the §6 defaults.
func DefaultConfig() Config {
	return Config{
		PollInterval:    80 * time.Millisecond,
		NarrationWindow: 8 * time.Second,
		NarrationCheck:  120 * time.Millisecond,
		CommandQuiet:    1500 * time.Millisecond,
		TTSQuiet:        3 * time.Second,
		DuplicateWindow: 1500 * time.Millisecond,
	}
}

// ringSource is the slice of *audio.Ring the driver depends on, narrowed
// to an interface so tests can drive the loop without a real capture
// device.
type ringSource interface {
	Snapshot(window time.Duration) []audio.Sample
	SampleRate() int
	Clear()
}

// Driver is the pipeline driver of §4.3.
type Driver struct {
	cfg Config

	ring       ringSource
	segmenter  *vad.Segmenter
	backend    stt.Backend
	sysCtx     *sysctx.Context
	commands   *command.Engine
	injector   *output.Injector
	sessionMgr *session.Manager
	narr       *narration.Engine
	log        zerolog.Logger

	transcripts *transcript.Store
	searchIndex *search.Index
	dedup       *dedup.Deduplicator
	recent      []dedup.Candidate

	lastNarrationCheck time.Time
}

// New wires a Driver from its collaborators. transcripts/searchIndex/dd
// may be nil, in which case normal-mode transcriptions are dispatched to
// output without being persisted or indexed.
func New(cfg Config, ring *audio.Ring, seg *vad.Segmenter, backend stt.Backend, sysCtx *sysctx.Context, commands *command.Engine, injector *output.Injector, sessionMgr *session.Manager, transcripts *transcript.Store, searchIndex *search.Index, dd *dedup.Deduplicator, log zerolog.Logger) *Driver {
	return newWithRing(cfg, ring, seg, backend, sysCtx, commands, injector, sessionMgr, transcripts, searchIndex, dd, log)
}

func newWithRing(cfg Config, ring ringSource, seg *vad.Segmenter, backend stt.Backend, sysCtx *sysctx.Context, commands *command.Engine, injector *output.Injector, sessionMgr *session.Manager, transcripts *transcript.Store, searchIndex *search.Index, dd *dedup.Deduplicator, log zerolog.Logger) *Driver {
	return &Driver{
		cfg:         cfg,
		ring:        ring,
		segmenter:   seg,
		backend:     backend,
		sysCtx:      sysCtx,
		commands:    commands,
		injector:    injector,
		sessionMgr:  sessionMgr,
		narr:        narration.New(),
		log:         log,
		transcripts: transcripts,
		searchIndex: searchIndex,
		dedup:       dd,
	}
}

// Run blocks, polling every cfg.PollInterval until ctx is canceled.
func (d *Driver) Run(ctx context.Context) {
	ticker := time.NewTicker(d.cfg.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			d.tick(ctx, now)
		}
	}
}

func (d *Driver) tick(ctx context.Context, now time.Time) {
	commandQuiet, ttsQuiet := d.sysCtx.QuietUntil(now)
	quiet := commandQuiet || ttsQuiet

	pushToTalk, _ := d.sysCtx.SessionDataGet(command.PushToTalkSessionKey)
	engaged, _ := pushToTalk.(bool)
	d.segmenter.SetGate(quiet || engaged)

	if quiet {
		return
	}

	if d.sysCtx.Mode() == sysctx.ModeNarration {
		d.tickNarration(now)
		return
	}

	d.tickNormal(ctx, now)
}

// tickNarration implements §4.3's narration dispatch: every
// NarrationCheck, transcribe the last NarrationWindow and push the
// result through the delta engine.
func (d *Driver) tickNarration(now time.Time) {
	if !d.lastNarrationCheck.IsZero() && now.Sub(d.lastNarrationCheck) < d.cfg.NarrationCheck {
		return
	}
	gap := d.cfg.NarrationCheck
	if !d.lastNarrationCheck.IsZero() {
		gap = now.Sub(d.lastNarrationCheck)
	}
	d.lastNarrationCheck = now

	raw := d.ring.Snapshot(d.cfg.NarrationWindow)
	samples := audio.Resample(raw, d.ring.SampleRate())
	if len(samples) < stt.MinimumSamples {
		return
	}

	start := time.Now()
	result, err := d.backend.Transcribe(samples)
	wall := time.Since(start)
	d.logRTF(len(samples), wall)
	if err != nil {
		d.log.Warn().Err(err).Msg("narration transcription failed")
		return
	}

	delta := d.narr.Push(result.Text, gap.Milliseconds())
	if delta == "" {
		return
	}
	if err := d.injector.TypeOrFallback(delta); err != nil {
		d.log.Warn().Err(err).Msg("narration output injection failed")
	}
}

// tickNormal implements §4.3's normal dispatch: feed the audio captured
// since the last poll into the segmenter one poll-interval-sized chunk
// at a time (rather than a large sliding window), so the segmenter's own
// hangover clock — driven by the wall-clock `now` passed to Push — stays
// meaningful; on a finalized utterance, transcribe, then attempt a
// command parse before falling back to plain output.
func (d *Driver) tickNormal(ctx context.Context, now time.Time) {
	if !d.sysCtx.Snapshot().Audio.VADEnabled {
		return
	}

	raw := d.ring.Snapshot(d.cfg.PollInterval)
	sr := d.ring.SampleRate()
	samples := audio.Resample(raw, sr)
	if len(samples) == 0 {
		return
	}

	utt := d.segmenter.Push(samples, audio.TargetSampleRate, now)
	if utt == nil {
		return
	}

	start := time.Now()
	result, err := d.backend.Transcribe(utt.Samples)
	wall := time.Since(start)
	d.logRTF(len(utt.Samples), wall)
	if err != nil {
		d.log.Warn().Err(err).Msg("transcription failed")
		return
	}
	d.sysCtx.SetLastTranscription(result.Text)

	if result.Text == "" {
		return
	}

	if cmd, resolveErr := d.commands.Resolve(result.Text); resolveErr == nil {
		if command.IsDuplicate(d.sysCtx, cmd.Name, now, d.cfg.DuplicateWindow) {
			return
		}
		res, execErr := d.commands.Execute(ctx, cmd, d.sysCtx, result.Text)
		d.sysCtx.RecordCommand(cmd.Name, result.Text, now)
		if execErr != nil {
			d.log.Warn().Err(execErr).Str("command", cmd.Name).Msg("command execution failed")
		}
		d.ring.Clear()
		d.segmenter.Reset()
		d.sysCtx.SetCommandQuietUntil(now.Add(d.cfg.CommandQuiet))
		if res.Spoke {
			if err := d.injector.Speaker.Speak(res.Message); err != nil {
				d.log.Warn().Err(err).Str("command", cmd.Name).Msg("command speech failed")
			}
			d.sysCtx.SetTTSQuietUntil(now.Add(d.cfg.TTSQuiet))
		}
		return
	}

	// Record the dictated text as the last transcription.
	d.sysCtx.SetLastTranscription(result.Text)

	if d.sysCtx.Mode() == sysctx.ModeMaintenance {
		return
	}

	d.persistTranscript(result, utt, wall, now)

	instant, _ := d.sysCtx.SessionDataGet("instant_output_override")
	useInstant := instant == true
	if !useInstant {
		snap := d.sysCtx.Snapshot()
		useInstant = snap.STT.InstantOutput
	}

	if useInstant {
		if err := d.injector.TypeOrFallback(result.Text); err != nil {
			d.log.Warn().Err(err).Msg("output injection failed")
		}
	} else {
		if err := d.injector.CopyOnly(result.Text); err != nil {
			d.log.Warn().Err(err).Msg("clipboard copy failed")
		}
	}
}

// persistTranscript deduplicates result.Text against the recent-candidate
// window, then stores and indexes it when unique (§4.8/§4.10). Dedup
// gates storage only — the output dispatch that follows in tickNormal
// runs regardless, since deduplication is a transcript-history concern,
// not a suppression of what the user hears/sees.
func (d *Driver) persistTranscript(result stt.Result, utt *vad.Utterance, wall time.Duration, now time.Time) {
	if d.transcripts == nil || d.dedup == nil {
		return
	}

	outcome := d.dedup.Check(result.Text, now, d.recent)
	hash := d.dedup.Hash(result.Text)
	candidate := dedup.Candidate{ID: uuid.NewString(), Text: result.Text, Hash: hash, Confidence: result.Confidence, At: now}
	d.recent = append(d.recent, candidate)
	if len(d.recent) > recentCandidateCapacity {
		d.recent = d.recent[len(d.recent)-recentCandidateCapacity:]
	}

	if outcome.Verdict != dedup.Unique {
		d.log.Debug().Str("verdict", "duplicate").Float64("similarity", outcome.Similarity).Msg("transcript deduplicated")
		return
	}

	entry := transcript.Entry{
		ID:          candidate.ID,
		Timestamp:   utt.StartTime,
		Text:        result.Text,
		Confidence:  result.Confidence,
		Model:       result.ModelName,
		DurationMs:  wall.Milliseconds(),
		ContentHash: hash,
	}
	if err := d.transcripts.Store(entry); err != nil {
		d.log.Warn().Err(err).Msg("failed to persist transcript")
		return
	}
	if d.searchIndex != nil {
		d.searchIndex.Add(entry)
	}
	d.sysCtx.SessionDataSet("last_transcript_id", entry.ID)
}

func (d *Driver) logRTF(sampleCount int, wall time.Duration) {
	audioSeconds := float64(sampleCount) / float64(audio.TargetSampleRate)
	wallSeconds := wall.Seconds()
	rtf := 0.0
	if audioSeconds > 0 {
		rtf = wallSeconds / audioSeconds
	}
	d.log.Debug().
		Float64("audio_seconds", audioSeconds).
		Float64("wall_seconds", wallSeconds).
		Float64("rtf", rtf).
		Msg("transcription timing")
}
