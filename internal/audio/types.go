// Package audio owns the device callback → capture ring → resampler slice
// of the pipeline (§4.1). Device enumeration and the malgo wiring are
// grounded on aiwisper/audio/capture.go; the ring/resampler split and the
// sample-rate broadcast are new, generalized to spec.md's single-mic
// contract.
package audio

// Sample is a single mono audio sample in [-1.0, 1.0].
type Sample = float32

// Listener receives every frame the capture ring appends, synchronously,
// inside the device callback. Implementations must return immediately —
// blocking here drops audio (spec.md §5, "Backpressure").
type Listener func(frame []Sample, sampleRate int)
