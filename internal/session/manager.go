package session

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/askidmobile/clipstty/internal/audio"
	"github.com/askidmobile/clipstty/internal/clipsttyerr"
	"github.com/askidmobile/clipstty/internal/sysctx"
)

// sessionWriter is the common surface of WAVWriter and MP3Writer the
// manager needs; it lets Manager stay agnostic of container choice.
type sessionWriter interface {
	Write(samples []float32) error
	Close() error
	FilePath() string
}

var filenameDisallowed = regexp.MustCompile(`[^A-Za-z0-9_-]`)

// sanitizeFilename implements §4.7's filename sanitization: replace any
// disallowed character with '_' and truncate to 50 chars. An empty name
// stays empty; Start substitutes the session ID in that case.
func sanitizeFilename(name string) string {
	s := filenameDisallowed.ReplaceAllString(name, "_")
	if len(s) > 50 {
		s = s[:50]
	}
	return s
}

// active holds the in-flight session's mutable state. The capture-ring
// listener closure reads `recording` atomically on every frame rather
// than being added/removed from the ring — aiwisper's ring equivalent
// (and ours, see audio.Ring's AddListener) has no listener-removal
// primitive, so pause/resume/stop are modeled as a gate the listener
// consults instead.
type active struct {
	meta      RecordingSession
	writer    sessionWriter
	recording atomic.Bool // true while Recording, false while Paused/Stopped
}

// Manager owns the one-active-session-at-a-time lifecycle of §4.7.
type Manager struct {
	mu      sync.Mutex
	root    string
	ring    *audio.Ring
	sysCtx  *sysctx.Context
	log     zerolog.Logger
	mp3     bool // compress with shine-mp3 instead of WAV
	active  *active
	history []RecordingSession

	listenerOnce sync.Once
}

// NewManager creates a Manager rooted at root; sessions are written under
// root/sessions.
func NewManager(root string, ring *audio.Ring, sysCtx *sysctx.Context, log zerolog.Logger, mp3 bool) *Manager {
	return &Manager{root: root, ring: ring, sysCtx: sysCtx, log: log, mp3: mp3}
}

func (m *Manager) ensureListener() {
	m.listenerOnce.Do(func() {
		m.ring.AddListener(func(frame []audio.Sample, sampleRate int) {
			m.mu.Lock()
			a := m.active
			m.mu.Unlock()
			if a == nil || !a.recording.Load() {
				return
			}
			if err := a.writer.Write(frame); err != nil {
				m.log.Error().Err(err).Msg("session audio write failed")
			}
		})
	})
}

// Start begins a new session, rejecting if one is already active.
func (m *Manager) Start(name, description string, source AudioSource, tags []string) (*RecordingSession, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.active != nil {
		return nil, clipsttyerr.ErrAlreadyRecording
	}

	switch source {
	case SourceSystemAudio, SourceMixed:
		m.log.Warn().Str("requested", string(source)).Msg("system/mixed audio source not supported, degrading to microphone")
		source = SourceMicrophone
	}

	id := uuid.New().String()
	now := time.Now()
	dir := filepath.Join(m.root, "sessions", fmt.Sprintf("%04d", now.Year()), fmt.Sprintf("%02d", now.Month()), fmt.Sprintf("%02d", now.Day()))
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("%w: %v", clipsttyerr.ErrIoError, err)
	}

	sanitized := sanitizeFilename(name)
	if sanitized == "" {
		sanitized = id
	}

	ext, container := ".wav", "wav"
	if m.mp3 {
		ext, container = ".mp3", "mp3"
	}
	filePath := filepath.Join(dir, fmt.Sprintf("%s_%s%s", sanitized, id, ext))

	sampleRate := m.ring.SampleRate()
	if sampleRate == 0 {
		sampleRate = audio.TargetSampleRate
	}

	var writer sessionWriter
	var err error
	if m.mp3 {
		writer, err = NewMP3Writer(filePath, sampleRate, m.log)
	} else {
		writer, err = NewWAVWriter(filePath, sampleRate)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", clipsttyerr.ErrIoError, err)
	}

	meta := RecordingSession{
		ID:          id,
		Name:        name,
		Description: description,
		AudioSource: source,
		StartTime:   now,
		FilePath:    filePath,
		FormatInfo:  FormatInfo{SampleRate: sampleRate, Channels: channels, BitDepth: bitsPerSample, Container: container},
		Tags:        tags,
		Metadata:    make(map[string]string),
		State:       StateRecording,
	}

	a := &active{meta: meta, writer: writer}
	a.recording.Store(true)
	m.active = a

	m.ensureListener()
	m.sysCtx.SetRecordingActive(true)

	metaCopy := meta
	return &metaCopy, nil
}

// Pause stops accumulating frames without finalizing the file.
func (m *Manager) Pause() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.active == nil || m.active.meta.State != StateRecording {
		return clipsttyerr.ErrInvalidParameters
	}
	m.active.recording.Store(false)
	m.active.meta.State = StatePaused
	return nil
}

// Resume continues accumulating frames after Pause.
func (m *Manager) Resume() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.active == nil || m.active.meta.State != StatePaused {
		return clipsttyerr.ErrInvalidParameters
	}
	m.active.recording.Store(true)
	m.active.meta.State = StateRecording
	return nil
}

// AddSegment appends a transcript segment to the active session only; a
// no-op if no session is active (§4.7 "Transcript segments").
func (m *Manager) AddSegment(seg TranscriptSegment) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.active == nil {
		return
	}
	m.active.meta.TranscriptSegments = append(m.active.meta.TranscriptSegments, seg)
}

// Stop finalizes the active session: closes the writer (finalizing the WAV
// header or flushing the MP3 encoder), records
// end_time/duration/file_size, persists the sidecar JSON, and appends to
// history.
func (m *Manager) Stop() (*RecordingSession, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.active == nil {
		return nil, clipsttyerr.ErrInvalidParameters
	}

	a := m.active
	a.recording.Store(false)

	if err := a.writer.Close(); err != nil {
		a.meta.State = StateError
		a.meta.ErrorMessage = err.Error()
	} else {
		a.meta.State = StateStopped
	}

	end := time.Now()
	a.meta.EndTime = &end
	a.meta.Duration = end.Sub(a.meta.StartTime)

	if info, err := os.Stat(a.meta.FilePath); err == nil {
		a.meta.FileSize = info.Size()
	}

	if err := m.persist(&a.meta); err != nil {
		m.log.Error().Err(err).Msg("failed to persist session metadata")
	}

	m.history = append(m.history, a.meta)
	m.active = nil
	m.sysCtx.SetRecordingActive(false)

	result := a.meta
	return &result, nil
}

func sidecarPath(audioPath string) string {
	ext := filepath.Ext(audioPath)
	return audioPath[:len(audioPath)-len(ext)] + ".json"
}

// persist writes the sidecar metadata document atomically (temp file
// then rename), the same pattern aiwisper's voiceprint store uses for
// its JSON persistence.
func (m *Manager) persist(meta *RecordingSession) error {
	data, err := json.MarshalIndent(meta, "", "  ")
	if err != nil {
		return fmt.Errorf("%w: %v", clipsttyerr.ErrSerializationError, err)
	}
	path := sidecarPath(meta.FilePath)
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return fmt.Errorf("%w: %v", clipsttyerr.ErrIoError, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("%w: %v", clipsttyerr.ErrIoError, err)
	}
	return nil
}

// History returns a copy of completed sessions loaded/recorded so far.
func (m *Manager) History() []RecordingSession {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]RecordingSession, len(m.history))
	copy(out, m.history)
	return out
}

// LoadHistory recursively scans <root>/sessions for *.json metadata
// files and rebuilds history; malformed or unreadable files are skipped
// with a warning (§4.7 "Recovery").
func (m *Manager) LoadHistory() error {
	sessionsDir := filepath.Join(m.root, "sessions")
	var loaded []RecordingSession

	err := filepath.WalkDir(sessionsDir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return nil // unreadable entry: skip and keep walking
		}
		if d.IsDir() || filepath.Ext(path) != ".json" {
			return nil
		}
		data, readErr := os.ReadFile(path)
		if readErr != nil {
			m.log.Warn().Err(readErr).Str("path", path).Msg("skipping unreadable session metadata")
			return nil
		}
		var meta RecordingSession
		if jsonErr := json.Unmarshal(data, &meta); jsonErr != nil {
			m.log.Warn().Err(jsonErr).Str("path", path).Msg("skipping malformed session metadata")
			return nil
		}
		loaded = append(loaded, meta)
		return nil
	})
	if err != nil {
		return fmt.Errorf("%w: %v", clipsttyerr.ErrIoError, err)
	}

	m.mu.Lock()
	m.history = loaded
	m.mu.Unlock()
	return nil
}
