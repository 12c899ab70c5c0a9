// Package stt wraps the STT collaborator contract of §6:
// transcribe(samples_16k_mono_f32) → STTResult, minimum input length 1s.
// The whisper backend's context-per-call shape (fresh whisper.Context per
// Transcribe, language set best-effort, segments concatenated until
// io.EOF) is grounded directly on glyphoxa's
// pkg/provider/stt/whisper/native.go nativeSession.infer.
package stt

import (
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"

	whisperlib "github.com/ggerganov/whisper.cpp/bindings/go/pkg/whisper"

	"github.com/askidmobile/clipstty/internal/clipsttyerr"
)

// MinimumSamples is the 1-second minimum input length (§6); shorter
// inputs must be padded or refused by the caller (the pipeline driver
// never calls Transcribe below this, per §4.3).
const MinimumSamples = 16000

// Result is the STTResult of §3.
type Result struct {
	Text      string
	Confidence float64
	ModelName string
	Backend   string
}

// Backend transcribes a 16kHz mono f32 utterance.
type Backend interface {
	Transcribe(samples []float32) (Result, error)
	Close() error
}

// WhisperBackend wraps the upstream whisper.cpp Go bindings. The model is
// loaded once; each Transcribe call opens a fresh whisper.Context, since
// a Context is not safe for concurrent reuse (per the bindings' own
// contract, mirrored by glyphoxa's native.go comment on NewContext).
type WhisperBackend struct {
	mu       sync.Mutex
	model    whisperlib.Model
	language string
	path     string
}

// NewWhisperBackend loads the ggml model at modelPath. language may be
// empty to use the model default.
func NewWhisperBackend(modelPath, language string) (*WhisperBackend, error) {
	if modelPath == "" {
		return nil, fmt.Errorf("%w: WHISPER_MODEL_PATH not set", clipsttyerr.ErrModelMissing)
	}
	model, err := whisperlib.New(modelPath)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", clipsttyerr.ErrModelMissing, err)
	}
	return &WhisperBackend{model: model, language: language, path: modelPath}, nil
}

// Transcribe runs whisper.cpp inference over samples and concatenates
// all emitted segments with a single space.
func (b *WhisperBackend) Transcribe(samples []float32) (Result, error) {
	if len(samples) < MinimumSamples {
		return Result{}, clipsttyerr.ErrInputTooShort
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	wctx, err := b.model.NewContext()
	if err != nil {
		return Result{}, fmt.Errorf("%w: create context: %v", clipsttyerr.ErrTranscribeFailed, err)
	}

	if b.language != "" {
		_ = wctx.SetLanguage(b.language)
	}

	if err := wctx.Process(samples, nil, nil, nil); err != nil {
		return Result{}, fmt.Errorf("%w: %v", clipsttyerr.ErrTranscribeFailed, err)
	}

	var parts []string
	for {
		segment, err := wctx.NextSegment()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return Result{}, fmt.Errorf("%w: read segment: %v", clipsttyerr.ErrTranscribeFailed, err)
		}
		text := strings.TrimSpace(segment.Text)
		if text != "" {
			parts = append(parts, text)
		}
	}

	return Result{
		Text:      strings.Join(parts, " "),
		ModelName: b.path,
		Backend:   "whisper.cpp",
	}, nil
}

// Close releases the underlying model.
func (b *WhisperBackend) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.model.Close()
}

// MockBackend is a deterministic in-memory Backend for tests: it returns
// a fixed script of results, one per call, and ErrTranscribeFailed past
// the end of the script.
type MockBackend struct {
	mu     sync.Mutex
	Script []Result
	calls  int
}

func (m *MockBackend) Transcribe(samples []float32) (Result, error) {
	if len(samples) < MinimumSamples {
		return Result{}, clipsttyerr.ErrInputTooShort
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.calls >= len(m.Script) {
		return Result{}, clipsttyerr.ErrTranscribeFailed
	}
	r := m.Script[m.calls]
	m.calls++
	return r, nil
}

func (m *MockBackend) Close() error { return nil }
