package session

import (
	"encoding/binary"
	"fmt"
	"math"
	"os"
	"sync"
)

// WAVWriter streams float32 samples to a mono 16-bit PCM WAV container,
// writing a placeholder RIFF header on creation and rewriting it in place
// on Finalize or FlushHeader. Grounded on
// aiwisper/session/wav_writer.go; adapted to the spec's fixed mono,
// 16-bit, round(clamp(x,-1,1)*32767) conversion (§6) rather than the
// teacher's truncating int16(s*32767).
type WAVWriter struct {
	file           *os.File
	filePath       string
	sampleRate     int
	samplesWritten int64
	mu             sync.Mutex
}

const bitsPerSample = 16
const channels = 1

// NewWAVWriter creates filePath and writes a placeholder header.
func NewWAVWriter(filePath string, sampleRate int) (*WAVWriter, error) {
	file, err := os.Create(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to create WAV file: %w", err)
	}

	w := &WAVWriter{file: file, filePath: filePath, sampleRate: sampleRate}
	if err := w.writeHeader(); err != nil {
		file.Close()
		return nil, err
	}
	return w, nil
}

func (w *WAVWriter) writeHeader() error {
	if _, err := w.file.Seek(0, 0); err != nil {
		return err
	}

	byteRate := w.sampleRate * channels * bitsPerSample / 8
	blockAlign := channels * bitsPerSample / 8
	dataSize := uint32(w.samplesWritten * int64(bitsPerSample/8))

	w.file.WriteString("RIFF")
	binary.Write(w.file, binary.LittleEndian, uint32(36+dataSize))
	w.file.WriteString("WAVE")

	w.file.WriteString("fmt ")
	binary.Write(w.file, binary.LittleEndian, uint32(16))
	binary.Write(w.file, binary.LittleEndian, uint16(1)) // PCM
	binary.Write(w.file, binary.LittleEndian, uint16(channels))
	binary.Write(w.file, binary.LittleEndian, uint32(w.sampleRate))
	binary.Write(w.file, binary.LittleEndian, uint32(byteRate))
	binary.Write(w.file, binary.LittleEndian, uint16(blockAlign))
	binary.Write(w.file, binary.LittleEndian, uint16(bitsPerSample))

	w.file.WriteString("data")
	return binary.Write(w.file, binary.LittleEndian, dataSize)
}

// f32ToPCM16 converts one sample per §6: round(clamp(x,-1,1) * 32767).
func f32ToPCM16(s float32) int16 {
	if s > 1.0 {
		s = 1.0
	} else if s < -1.0 {
		s = -1.0
	}
	return int16(math.Round(float64(s) * 32767))
}

// Write appends samples, converting to PCM16 as it goes.
func (w *WAVWriter) Write(samples []float32) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	for _, s := range samples {
		if err := binary.Write(w.file, binary.LittleEndian, f32ToPCM16(s)); err != nil {
			return err
		}
		w.samplesWritten++
	}
	return nil
}

// SamplesWritten returns the running sample count.
func (w *WAVWriter) SamplesWritten() int64 {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.samplesWritten
}

// Finalize rewrites the header with the final data size.
func (w *WAVWriter) Finalize() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.writeHeader()
}

// FlushHeader rewrites the header mid-stream (crash-safety) and restores
// the write cursor to the end of the file.
func (w *WAVWriter) FlushHeader() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	pos, err := w.file.Seek(0, 1)
	if err != nil {
		return err
	}
	if err := w.writeHeader(); err != nil {
		return err
	}
	_, err = w.file.Seek(pos, 0)
	return err
}

// Close finalizes the header and closes the file.
func (w *WAVWriter) Close() error {
	if err := w.Finalize(); err != nil {
		w.file.Close()
		return err
	}
	return w.file.Close()
}

// FilePath returns the underlying file path.
func (w *WAVWriter) FilePath() string {
	return w.filePath
}

// FileSize stats the file for RecordingSession.file_size (§3).
func (w *WAVWriter) FileSize() (int64, error) {
	info, err := os.Stat(w.filePath)
	if err != nil {
		return 0, err
	}
	return info.Size(), nil
}
