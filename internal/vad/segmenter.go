// Package vad implements the energy-gate + hangover voice-activity
// segmenter from spec.md §4.2. The energy metric (mean of squares over a
// trailing frame) is grounded on aiwisper/session/vad.go's
// calculateWindowEnergy, generalized from that file's one-shot
// "find speech start" scan into a streaming Silent/Voiced state machine
// that emits whole utterances.
package vad

import (
	"sync/atomic"
	"time"
)

// Gate values for the push-to-talk short-circuit (§4.2 "gate flag").
const (
	GateOpen  int32 = 0
	GateClosed int32 = 1
)

// Config holds the segmenter's tunable knobs; defaults match spec.md §6.
type Config struct {
	FrameDuration   time.Duration
	EnergyThreshold float64
	Hangover        time.Duration
	MinSpeech       time.Duration
}

// DefaultConfig returns spec.md §6's defaults.
func DefaultConfig() Config {
	return Config{
		FrameDuration:   60 * time.Millisecond,
		EnergyThreshold: 1e-4,
		Hangover:        600 * time.Millisecond,
		MinSpeech:       100 * time.Millisecond,
	}
}

type state int

const (
	stateSilent state = iota
	stateVoiced
)

// Utterance is a finalized span of 16kHz mono audio (§3).
type Utterance struct {
	Samples       []float32
	StartTime     time.Time
	EndTime       time.Time
	StartSample   int64
	EndSample     int64
}

// Segmenter runs the Silent→Voiced→Silent state machine over a stream of
// 16kHz frames fed by the pipeline driver. It is not safe for concurrent
// use by more than one goroutine — the driver owns it exclusively.
type Segmenter struct {
	cfg Config

	st            state
	segmentStart  time.Time
	lastVoice     time.Time
	startSample   int64
	sampleCursor  int64
	buffer        []float32

	gate atomic.Int32
}

// New creates a segmenter with cfg; a zero Config is replaced with
// DefaultConfig's values field by field where unset.
func New(cfg Config) *Segmenter {
	if cfg.FrameDuration == 0 {
		cfg.FrameDuration = DefaultConfig().FrameDuration
	}
	if cfg.EnergyThreshold == 0 {
		cfg.EnergyThreshold = DefaultConfig().EnergyThreshold
	}
	if cfg.Hangover == 0 {
		cfg.Hangover = DefaultConfig().Hangover
	}
	if cfg.MinSpeech == 0 {
		cfg.MinSpeech = DefaultConfig().MinSpeech
	}
	return &Segmenter{cfg: cfg, st: stateSilent}
}

// SetGate opens or closes the push-to-talk gate. While closed, incoming
// frames never trigger Silent→Voiced regardless of energy.
func (s *Segmenter) SetGate(closed bool) {
	if closed {
		s.gate.Store(GateClosed)
	} else {
		s.gate.Store(GateOpen)
	}
}

// SetEnergyThreshold clamps and applies a new threshold; used by the
// sensitivity voice commands (§4.2, §4.6).
func (s *Segmenter) SetEnergyThreshold(t float64) {
	if t < 0 {
		t = 0
	}
	if t > 1 {
		t = 1
	}
	s.cfg.EnergyThreshold = t
}

// EnergyThreshold returns the current gate threshold.
func (s *Segmenter) EnergyThreshold() float64 {
	return s.cfg.EnergyThreshold
}

// AdjustEnergyThreshold applies an additive delta to the energy
// threshold, clamped to [0,1], and returns the resulting value (§4.2:
// "Sensitivity commands adjust energy_threshold by an additive delta,
// clamped").
func (s *Segmenter) AdjustEnergyThreshold(delta float64) float64 {
	t := s.cfg.EnergyThreshold + delta
	if t < 0 {
		t = 0
	}
	if t > 1 {
		t = 1
	}
	s.cfg.EnergyThreshold = t
	return t
}

// Reset clears in-flight voicing state, discarding any partially-buffered
// utterance. Called after the ring is cleared (§4.2 edge policy, §8
// invariant 5) so no utterance spans samples from before the clear.
func (s *Segmenter) Reset() {
	s.st = stateSilent
	s.buffer = nil
	s.sampleCursor = 0
	s.startSample = 0
}

// energy computes mean(x^2) over frame.
func energy(frame []float32) float64 {
	if len(frame) == 0 {
		return 0
	}
	var sum float64
	for _, x := range frame {
		sum += float64(x) * float64(x)
	}
	return sum / float64(len(frame))
}

// Push feeds one chunk of canonical-rate samples (the pipeline driver
// passes one poll interval's worth) at wall-clock time now; the gate
// metric is the energy of the chunk's trailing FrameDuration of samples.
// It returns a finalized utterance when the Voiced→Silent edge fires with
// enough accumulated audio, or nil otherwise.
func (s *Segmenter) Push(frame []float32, sampleRate int, now time.Time) *Utterance {
	tail := frame
	if n := int(s.cfg.FrameDuration.Seconds() * float64(sampleRate)); n > 0 && n < len(tail) {
		tail = tail[len(tail)-n:]
	}
	e := energy(tail)
	gateClosed := s.gate.Load() == GateClosed

	switch s.st {
	case stateSilent:
		if !gateClosed && e >= s.cfg.EnergyThreshold {
			s.st = stateVoiced
			s.segmentStart = now
			s.lastVoice = now
			s.startSample = s.sampleCursor
			s.buffer = append(s.buffer[:0], frame...)
		}

	case stateVoiced:
		s.buffer = append(s.buffer, frame...)
		if e >= s.cfg.EnergyThreshold {
			s.lastVoice = now
		}
		if now.Sub(s.lastVoice) >= s.cfg.Hangover {
			utt := s.finalize(now, sampleRate)
			s.st = stateSilent
			s.buffer = nil
			s.sampleCursor += int64(len(frame))
			return utt
		}
	}

	s.sampleCursor += int64(len(frame))
	return nil
}

// finalize decides whether the buffered voiced span qualifies as an
// utterance (§4.2's hangover-edge rule) and trims it to drop the trailing
// hangover silence.
func (s *Segmenter) finalize(now time.Time, sampleRate int) *Utterance {
	if now.Sub(s.segmentStart) < s.cfg.MinSpeech {
		return nil
	}

	hangoverSamples := int(s.cfg.Hangover.Seconds() * float64(sampleRate))
	trimmed := s.buffer
	if hangoverSamples > 0 && hangoverSamples < len(trimmed) {
		trimmed = trimmed[:len(trimmed)-hangoverSamples]
	}

	if len(trimmed) < sampleRate { // shorter than 1s minimum STT input
		return nil
	}

	out := make([]float32, len(trimmed))
	copy(out, trimmed)

	return &Utterance{
		Samples:     out,
		StartTime:   s.segmentStart,
		EndTime:     now,
		StartSample: s.startSample,
		EndSample:   s.startSample + int64(len(out)),
	}
}
