package session

import (
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/braheezy/shine-mp3/pkg/mp3"
	"github.com/rs/zerolog"
)

// MP3Writer streams float32 samples to a mono MP3 file via shine-mp3's
// pure-Go Layer III encoder — no ffmpeg subprocess. Grounded directly on
// aiwisper/session/mp3_writer_shine.go; narrowed to mono (clipstty never
// records multi-channel) and switched from log.Printf to an injected
// zerolog.Logger.
type MP3Writer struct {
	file       *os.File
	encoder    *mp3.Encoder
	filePath   string
	sampleRate int
	log        zerolog.Logger

	buffer []int16

	samplesWritten int64
	startTime      time.Time
	mu             sync.Mutex
	closed         bool
}

// minEncodeBlock matches shine's 1152-samples-per-channel MP3 Layer III
// frame, batched four at a time before each encoder write.
const minEncodeBlock = 1152 * 4

// NewMP3Writer creates filePath and a mono shine-mp3 encoder at sampleRate.
func NewMP3Writer(filePath string, sampleRate int, log zerolog.Logger) (*MP3Writer, error) {
	file, err := os.Create(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to create file: %w", err)
	}

	encoder := mp3.NewEncoder(sampleRate, channels)
	log.Debug().Str("path", filePath).Int("sample_rate", sampleRate).Msg("mp3 writer started")

	return &MP3Writer{
		file:       file,
		encoder:    encoder,
		filePath:   filePath,
		sampleRate: sampleRate,
		log:        log,
		buffer:     make([]int16, 0, 8192),
		startTime:  time.Now(),
	}, nil
}

// Write appends samples, encoding whenever enough has accumulated.
func (w *MP3Writer) Write(samples []float32) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return fmt.Errorf("writer is closed")
	}

	for _, s := range samples {
		w.buffer = append(w.buffer, f32ToPCM16(s))
	}
	w.samplesWritten += int64(len(samples))

	if len(w.buffer) >= minEncodeBlock {
		w.encoder.Write(w.file, w.buffer)
		w.buffer = w.buffer[:0]
	}
	return nil
}

// SamplesWritten returns the running sample count.
func (w *MP3Writer) SamplesWritten() int64 {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.samplesWritten
}

// Duration returns the recorded duration so far.
func (w *MP3Writer) Duration() time.Duration {
	w.mu.Lock()
	defer w.mu.Unlock()
	return time.Duration(w.samplesWritten) * time.Second / time.Duration(w.sampleRate)
}

// Close flushes the remaining buffer (zero-padded to a whole number of
// 1152-sample frames) and
// closes the file.
func (w *MP3Writer) Close() error {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return nil
	}
	w.closed = true
	w.mu.Unlock()

	if len(w.buffer) > 0 {
		for len(w.buffer)%1152 != 0 {
			w.buffer = append(w.buffer, 0)
		}
		w.encoder.Write(w.file, w.buffer)
	}

	if err := w.file.Close(); err != nil {
		return fmt.Errorf("failed to close file: %w", err)
	}

	w.log.Debug().Str("path", w.filePath).Dur("duration", w.Duration()).Msg("mp3 writer closed")
	return nil
}

// FilePath returns the underlying file path.
func (w *MP3Writer) FilePath() string {
	return w.filePath
}
