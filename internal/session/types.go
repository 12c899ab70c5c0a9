// Package session implements the recording session manager of §4.7: a
// WAV/MP3-backed lifecycle (start/pause/resume/stop) over the capture
// ring, sidecar JSON metadata, and history recovery. JSON tagging and
// the atomic temp-file-then-rename persistence strategy are grounded on
// aiwisper/session/types.go and voiceprint/store.go respectively.
package session

import (
	"time"
)

// AudioSource is RecordingSession.audio_source (§3).
type AudioSource string

const (
	SourceMicrophone  AudioSource = "microphone"
	SourceSystemAudio AudioSource = "system_audio"
	SourceMixed       AudioSource = "mixed"
)

// DeviceSource builds the Device(name) variant.
func DeviceSource(name string) AudioSource {
	return AudioSource("device:" + name)
}

// State is RecordingSession.state (§3).
type State string

const (
	StateIdle      State = "idle"
	StateRecording State = "recording"
	StatePaused    State = "paused"
	StateStopped   State = "stopped"
	StateError     State = "error"
)

// FormatInfo describes the container's audio format.
type FormatInfo struct {
	SampleRate int    `json:"sample_rate"`
	Channels   int    `json:"channels"`
	BitDepth   int    `json:"bit_depth"`
	Container  string `json:"container"` // "wav" | "mp3"
}

// QualityMetrics is a small set of post-hoc audio stats; populated best
// effort, zero value means "not computed".
type QualityMetrics struct {
	AverageRMS    float64 `json:"average_rms"`
	ClippedFrames int64   `json:"clipped_frames"`
}

// TranscriptSegment is §3's TranscriptSegment: invariant
// 0 ≤ start < end ≤ session.duration, strictly time-ordered within a
// session.
type TranscriptSegment struct {
	ID         string        `json:"id"`
	Start      time.Duration `json:"start"`
	End        time.Duration `json:"end"`
	Text       string        `json:"text"`
	Confidence float64       `json:"confidence"`
	Speaker    string        `json:"speaker,omitempty"`
	Language   string        `json:"language,omitempty"`
	WordCount  int           `json:"word_count"`
	IsFinal    bool          `json:"is_final"`
}

// RecordingSession is §3's RecordingSession, persisted as the sidecar
// metadata document (§6) beside the audio file.
type RecordingSession struct {
	ID                string              `json:"id"`
	Name              string              `json:"name"`
	Description       string              `json:"description,omitempty"`
	AudioSource       AudioSource         `json:"audio_source"`
	StartTime         time.Time           `json:"start_time"`
	EndTime           *time.Time          `json:"end_time,omitempty"`
	Duration          time.Duration       `json:"duration"`
	FilePath          string              `json:"file_path"`
	FileSize          int64               `json:"file_size"`
	FormatInfo        FormatInfo          `json:"format_info"`
	TranscriptSegments []TranscriptSegment `json:"transcript_segments"`
	Tags              []string            `json:"tags,omitempty"`
	Metadata          map[string]string   `json:"metadata,omitempty"`
	State             State               `json:"state"`
	ErrorMessage      string              `json:"error_message,omitempty"`
	QualityMetrics    QualityMetrics      `json:"quality_metrics"`
}
