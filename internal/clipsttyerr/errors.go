// Package clipsttyerr collects the error taxonomy shared by every
// subsystem (§7 of the design: audio, clipboard, STT, voice command and
// transcript errors). Each category is a small set of sentinel values so
// callers can compare with errors.Is and wrap with extra context using
// fmt.Errorf("...: %w", err), the way aiwisper's own packages do.
package clipsttyerr

import "errors"

// Audio errors.
var (
	ErrDeviceNotFound     = errors.New("audio: device not found")
	ErrDeviceInit         = errors.New("audio: device init failed")
	ErrUnsupportedFormat  = errors.New("audio: unsupported sample format")
	ErrCaptureStart       = errors.New("audio: failed to start capture")
	ErrAlreadyRecording   = errors.New("audio: capture already running")
)

// Clipboard/keyboard output errors.
var (
	ErrClipboardRead    = errors.New("clipboard: read failed")
	ErrClipboardWrite   = errors.New("clipboard: write failed")
	ErrUnsupportedInput = errors.New("output: no input simulator on this platform")
)

// STT errors.
var (
	ErrModelMissing     = errors.New("stt: model missing")
	ErrTranscribeFailed = errors.New("stt: transcription failed")
	ErrInputTooShort    = errors.New("stt: input shorter than minimum duration")
)

// Voice command errors.
var (
	ErrCommandNotFound         = errors.New("command: not found")
	ErrInvalidParameters       = errors.New("command: invalid parameters")
	ErrExecutionFailed         = errors.New("command: execution failed")
	ErrPermissionDenied        = errors.New("command: permission denied")
	ErrTimeout                 = errors.New("command: timed out")
	ErrServiceUnavailable      = errors.New("command: service unavailable")
	ErrContextValidationFailed = errors.New("command: context validation failed")
)

// Transcript store errors.
var (
	ErrStorageError         = errors.New("transcript: storage error")
	ErrDeduplicationError   = errors.New("transcript: deduplication error")
	ErrSearchError          = errors.New("transcript: search error")
	ErrAnalyticsError       = errors.New("transcript: analytics error")
	ErrTranscriptNotFound   = errors.New("transcript: not found")
	ErrInvalidConfiguration = errors.New("transcript: invalid configuration")
	ErrIoError              = errors.New("transcript: io error")
	ErrSerializationError   = errors.New("transcript: serialization error")
	ErrRegexError           = errors.New("transcript: invalid regex")
)
