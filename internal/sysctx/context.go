// Package sysctx holds the process-wide SystemContext (§3): the single
// piece of mutable state shared between the command engine and the
// pipeline driver. It is built on syncx.Guard, a typed lock wrapper,
// rather than the ad-hoc sync.Mutex fields the capture ring and session
// manager use.
package sysctx

import (
	"time"

	"github.com/askidmobile/clipstty/internal/syncx"
)

// Mode is the operating mode of the agent (§3).
type Mode int

const (
	ModeNormal Mode = iota
	ModeNarration
	ModeRecording
	ModeConfiguration
	ModeHelp
	ModeMaintenance
)

func (m Mode) String() string {
	switch m {
	case ModeNormal:
		return "normal"
	case ModeNarration:
		return "narration"
	case ModeRecording:
		return "recording"
	case ModeConfiguration:
		return "configuration"
	case ModeHelp:
		return "help"
	case ModeMaintenance:
		return "maintenance"
	default:
		return "unknown"
	}
}

// AudioState is the audio sub-struct of SystemContext.
type AudioState struct {
	VADEnabled      bool
	Sensitivity     float64 // [0,1]
	SampleRate      int
	Channels        int
	BufferSize      int
	CurrentDevice   string
	RecordingActive bool
}

// STTState is the stt sub-struct of SystemContext.
type STTState struct {
	Model              string
	Language           string
	InstantOutput      bool
	ConfidenceThreshold float64
	LastTranscription  string
}

// CommandRecord is one entry of the recent_commands ring (§3).
type CommandRecord struct {
	Name      string
	Input     string
	Timestamp time.Time
}

const recentCommandsCapacity = 100

// State is the full SystemContext payload guarded by Context's Guard.
type State struct {
	Mode            Mode
	Audio           AudioState
	STT             STTState
	RecentCommands  []CommandRecord
	SessionData     map[string]any

	CommandQuietUntil time.Time
	TTSQuietUntil     time.Time
}

// Context wraps State in a syncx.Guard, giving the command engine and the
// pipeline driver exclusive, short-critical-section access (§5).
type Context struct {
	guard *syncx.Guard[State]
}

// New builds a Context with sensible zero-value defaults; callers
// typically overwrite Audio/STT immediately after construction from
// config.Config.
func New() *Context {
	return &Context{guard: syncx.NewGuard(State{
		Mode:        ModeNormal,
		Audio:       AudioState{VADEnabled: true},
		SessionData: make(map[string]any),
	})}
}

// Snapshot returns a copy of the current state. The RecentCommands slice
// and SessionData map are shallow-copied so callers cannot mutate shared
// state through the returned value.
func (c *Context) Snapshot() State {
	return syncx.Read(c.guard, func(s State) State {
		cp := s
		cp.RecentCommands = append([]CommandRecord(nil), s.RecentCommands...)
		cp.SessionData = make(map[string]any, len(s.SessionData))
		for k, v := range s.SessionData {
			cp.SessionData[k] = v
		}
		return cp
	})
}

// Mode returns the current mode.
func (c *Context) Mode() Mode {
	return syncx.Read(c.guard, func(s State) Mode { return s.Mode })
}

// SetMode transitions to m. Invariant (§3): entering any mode other than
// Recording while RecordingActive is true is permitted (recording can
// continue in the background); the converse — recording_active without
// an active session — is the session manager's responsibility to avoid,
// not this package's to enforce.
func (c *Context) SetMode(m Mode) {
	syncx.Write(c.guard, func(s *State) { s.Mode = m })
}

// SetVADEnabled toggles VAD on/off (the "pause listening" / "resume
// listening" commands, §4.6 category Audio).
func (c *Context) SetVADEnabled(enabled bool) {
	syncx.Write(c.guard, func(s *State) { s.Audio.VADEnabled = enabled })
}

// AdjustSensitivity applies an additive delta to sensitivity, clamped to
// [0,1], and returns the resulting value. Mirrors the vad package's
// energy-threshold clamping so a command can drive both in lockstep.
func (c *Context) AdjustSensitivity(delta float64) float64 {
	return syncx.Update(c.guard, func(s *State) float64 {
		v := s.Audio.Sensitivity + delta
		if v < 0 {
			v = 0
		}
		if v > 1 {
			v = 1
		}
		s.Audio.Sensitivity = v
		return v
	})
}

// SetRecordingActive updates the audio.recording_active flag. The session
// manager calls this on start/stop so pipeline consultations (§4.3) see a
// consistent view without reaching into session internals.
func (c *Context) SetRecordingActive(active bool) {
	syncx.Write(c.guard, func(s *State) { s.Audio.RecordingActive = active })
}

// SetCurrentDevice records the active input device name.
func (c *Context) SetCurrentDevice(name string) {
	syncx.Write(c.guard, func(s *State) { s.Audio.CurrentDevice = name })
}

// SetInstantOutput toggles stt.instant_output.
func (c *Context) SetInstantOutput(instant bool) {
	syncx.Write(c.guard, func(s *State) { s.STT.InstantOutput = instant })
}

// SetLastTranscription records the most recent transcription text.
func (c *Context) SetLastTranscription(text string) {
	syncx.Write(c.guard, func(s *State) { s.STT.LastTranscription = text })
}

// RecordCommand appends to the bounded recent_commands ring, evicting the
// oldest entry past recentCommandsCapacity.
func (c *Context) RecordCommand(name, input string, at time.Time) {
	syncx.Write(c.guard, func(s *State) {
		s.RecentCommands = append(s.RecentCommands, CommandRecord{Name: name, Input: input, Timestamp: at})
		if len(s.RecentCommands) > recentCommandsCapacity {
			s.RecentCommands = s.RecentCommands[len(s.RecentCommands)-recentCommandsCapacity:]
		}
	})
}

type commandLookup struct {
	at    time.Time
	found bool
}

// LastCommandAt returns the timestamp of the most recent recorded
// invocation of name, and whether one exists. Used for the 1.5s
// duplicate-suppression window (§4.3).
func (c *Context) LastCommandAt(name string) (time.Time, bool) {
	r := syncx.Read(c.guard, func(s State) commandLookup {
		for i := len(s.RecentCommands) - 1; i >= 0; i-- {
			if s.RecentCommands[i].Name == name {
				return commandLookup{at: s.RecentCommands[i].Timestamp, found: true}
			}
		}
		return commandLookup{}
	})
	return r.at, r.found
}

// SetCommandQuietUntil sets the command-quiet deadline.
func (c *Context) SetCommandQuietUntil(t time.Time) {
	syncx.Write(c.guard, func(s *State) { s.CommandQuietUntil = t })
}

// SetTTSQuietUntil sets the TTS-quiet deadline.
func (c *Context) SetTTSQuietUntil(t time.Time) {
	syncx.Write(c.guard, func(s *State) { s.TTSQuietUntil = t })
}

type quietWindows struct {
	command bool
	tts     bool
}

// QuietUntil reports whether now is within either quiet-period deadline
// (§4.3 dispatch modes).
func (c *Context) QuietUntil(now time.Time) (command, tts bool) {
	w := syncx.Read(c.guard, func(s State) quietWindows {
		return quietWindows{command: now.Before(s.CommandQuietUntil), tts: now.Before(s.TTSQuietUntil)}
	})
	return w.command, w.tts
}

type sessionLookup struct {
	value any
	found bool
}

// SessionDataGet reads a value from the free-form session_data map.
func (c *Context) SessionDataGet(key string) (any, bool) {
	r := syncx.Read(c.guard, func(s State) sessionLookup {
		v, ok := s.SessionData[key]
		return sessionLookup{value: v, found: ok}
	})
	return r.value, r.found
}

// SessionDataSet writes a value into the free-form session_data map.
func (c *Context) SessionDataSet(key string, value any) {
	syncx.Write(c.guard, func(s *State) {
		if s.SessionData == nil {
			s.SessionData = make(map[string]any)
		}
		s.SessionData[key] = value
	})
}
