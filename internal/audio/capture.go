package audio

import (
	"fmt"
	"math"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gen2brain/malgo"

	"github.com/askidmobile/clipstty/internal/clipsttyerr"
)

// Device describes one enumerated audio device.
type Device struct {
	ID      string
	Name    string
	IsInput bool
}

// Ring is the capture ring from spec.md §4.1: a device callback appends
// down-mixed mono float32 frames under an exclusive lock, and consumers
// clone a trailing window. The retained window is bounded to
// retention (samples), trimming the oldest data on every append — this is
// the practical reading of "unbounded-append" in §3: logically unbounded,
// physically capped to what the pipeline could ever need.
type Ring struct {
	mu        sync.Mutex
	samples   []Sample
	retention int // max retained samples; 0 = unbounded

	sampleRate atomic.Int64
	listeners  []Listener
	listenerMu sync.Mutex

	ctx        *malgo.AllocatedContext
	device     *malgo.Device
	running    atomic.Bool
	deviceName string
}

// NewRing creates a capture ring with unbounded retention; call
// SetRetention to bound it.
func NewRing() (*Ring, error) {
	ctx, err := malgo.InitContext(nil, malgo.ContextConfig{}, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", clipsttyerr.ErrDeviceInit, err)
	}
	r := &Ring{ctx: ctx}
	return r, nil
}

// SetRetention bounds the ring to retentionSamples of audio; must be at
// least as large as the longest utterance the segmenter can produce.
func (r *Ring) SetRetention(retentionSamples int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.retention = retentionSamples
}

// SampleRate returns the currently published sample rate, or 0 before the
// first callback.
func (r *Ring) SampleRate() int {
	return int(r.sampleRate.Load())
}

// ListDevices enumerates capture devices.
func (r *Ring) ListDevices() ([]Device, error) {
	raw, err := r.ctx.Devices(malgo.Capture)
	if err != nil {
		return nil, fmt.Errorf("failed to enumerate capture devices: %w", err)
	}
	devices := make([]Device, 0, len(raw))
	for _, d := range raw {
		devices = append(devices, Device{ID: deviceIDToString(d.ID), Name: d.Name(), IsInput: true})
	}
	return devices, nil
}

// findDeviceByName resolves an exact device name; spec.md §4.1 requires
// exact-name matching, unlike the teacher's substring search.
func (r *Ring) findDeviceByName(name string) (*malgo.DeviceID, error) {
	raw, err := r.ctx.Devices(malgo.Capture)
	if err != nil {
		return nil, err
	}
	for _, d := range raw {
		if d.Name() == name {
			id := d.ID
			return &id, nil
		}
	}
	return nil, clipsttyerr.ErrDeviceNotFound
}

// Start opens the device (default input if name is empty) and begins
// appending down-mixed mono float32 frames to the ring.
func (r *Ring) Start(name string) error {
	r.mu.Lock()
	if r.running.Load() {
		r.mu.Unlock()
		return clipsttyerr.ErrAlreadyRecording
	}
	r.mu.Unlock()

	deviceConfig := malgo.DefaultDeviceConfig(malgo.Capture)
	deviceConfig.Capture.Format = malgo.FormatF32
	deviceConfig.Capture.Channels = 1
	deviceConfig.SampleRate = 48000

	if name != "" {
		id, err := r.findDeviceByName(name)
		if err != nil {
			return err
		}
		deviceConfig.Capture.DeviceID = id.Pointer()
	}

	channels := int(deviceConfig.Capture.Channels)

	onRecvFrames := func(_, in []byte, frameCount uint32) {
		sampleCount := int(frameCount) * channels
		if len(in) != sampleCount*4 {
			return
		}
		mono := make([]Sample, int(frameCount))
		for i := 0; i < int(frameCount); i++ {
			var sum float32
			for ch := 0; ch < channels; ch++ {
				idx := (i*channels + ch) * 4
				bits := uint32(in[idx]) | uint32(in[idx+1])<<8 | uint32(in[idx+2])<<16 | uint32(in[idx+3])<<24
				sum += math.Float32frombits(bits)
			}
			mono[i] = sum / float32(channels)
		}
		r.append(mono, int(deviceConfig.SampleRate))
	}

	device, err := malgo.InitDevice(r.ctx.Context, deviceConfig, malgo.DeviceCallbacks{Data: onRecvFrames})
	if err != nil {
		return fmt.Errorf("%w: %v", clipsttyerr.ErrCaptureStart, err)
	}
	if err := device.Start(); err != nil {
		return fmt.Errorf("%w: %v", clipsttyerr.ErrCaptureStart, err)
	}

	r.mu.Lock()
	r.device = device
	r.deviceName = name
	r.mu.Unlock()
	r.sampleRate.Store(int64(deviceConfig.SampleRate))
	r.running.Store(true)
	return nil
}

// Stop tears down the device stream. No further callback invocations
// observe the ring once Stop returns.
func (r *Ring) Stop() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.running.Load() {
		return nil
	}
	if r.device != nil {
		r.device.Uninit()
		r.device = nil
	}
	r.running.Store(false)
	return nil
}

// Close releases the malgo context. The ring must not be used afterward.
func (r *Ring) Close() {
	_ = r.Stop()
	if r.ctx != nil {
		r.ctx.Uninit()
		r.ctx.Free()
	}
}

// AddListener registers fn to be invoked synchronously on every appended
// frame. Per §4.1, adding a listener while capturing restarts the stream
// (stop → start) — the only supported mutation of the listener set during
// capture.
func (r *Ring) AddListener(fn Listener) error {
	wasRunning := r.running.Load()
	r.mu.Lock()
	deviceName := r.deviceName
	r.mu.Unlock()

	if wasRunning {
		if err := r.Stop(); err != nil {
			return err
		}
	}

	r.listenerMu.Lock()
	r.listeners = append(r.listeners, fn)
	r.listenerMu.Unlock()

	if wasRunning {
		return r.Start(deviceName)
	}
	return nil
}

// append publishes the current sample rate and fans frame out to every
// registered listener; there is no listener-removal primitive (func
// values aren't comparable), so consumers gate themselves off instead —
// see session.Manager's recording flag, matching §4.7.
func (r *Ring) append(frame []Sample, sampleRate int) {
	r.sampleRate.Store(int64(sampleRate))

	r.listenerMu.Lock()
	listeners := r.listeners
	r.listenerMu.Unlock()
	for _, l := range listeners {
		l(frame, sampleRate)
	}

	r.mu.Lock()
	r.samples = append(r.samples, frame...)
	if r.retention > 0 && len(r.samples) > r.retention {
		excess := len(r.samples) - r.retention
		r.samples = r.samples[excess:]
	}
	r.mu.Unlock()
}

// Snapshot clones the trailing window of duration window at the current
// sample rate; a non-positive or oversized window returns the whole ring.
// An empty ring or zero sample rate returns an empty slice.
func (r *Ring) Snapshot(window time.Duration) []Sample {
	sr := r.SampleRate()
	if sr == 0 {
		return nil
	}
	n := int(window.Seconds() * float64(sr))

	r.mu.Lock()
	defer r.mu.Unlock()
	if n <= 0 || n > len(r.samples) {
		n = len(r.samples)
	}
	out := make([]Sample, n)
	copy(out, r.samples[len(r.samples)-n:])
	return out
}

// Clear discards all retained samples; used after a command executes to
// prevent the segmenter from re-processing stale audio (§4.3).
func (r *Ring) Clear() {
	r.mu.Lock()
	r.samples = r.samples[:0]
	r.mu.Unlock()
}

func deviceIDToString(id malgo.DeviceID) string {
	var b strings.Builder
	for _, c := range id[:32] {
		if c == 0 {
			break
		}
		b.WriteByte(c)
	}
	return b.String()
}
