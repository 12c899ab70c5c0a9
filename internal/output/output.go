// Package output implements the two injection primitives of §4.5: typed
// keystrokes at the focused cursor, and clipboard-set-then-paste-chord as
// a fallback. Clipboard access is grounded on the atotto/clipboard
// dependency used by the coldmic and ramble repos in the pack; keystroke
// synthesis has no such library in the pack (no repo imports robotgo or
// an equivalent), so Keyboard is a narrow interface with a stub
// implementation that reports Unsupported, exactly the failure mode
// §4.5 defines for "platforms without an input simulator" — the pipeline
// driver's type-then-fallback logic (§4.3 step 2) already treats that as
// the ordinary path into clipboard_paste.
package output

import (
	"fmt"
	"runtime"
	"time"

	"github.com/atotto/clipboard"

	"github.com/askidmobile/clipstty/internal/clipsttyerr"
)

// Clipboard sets and reads the system clipboard.
type Clipboard interface {
	SetText(s string) error
	GetText() (string, error)
}

// Keyboard synthesizes keystrokes and the platform paste chord.
type Keyboard interface {
	Type(s string) error
	Chord(keys ...string) error
}

// Speaker is the fire-and-forget TTS collaborator (§6); absence silently
// degrades to no audio feedback.
type Speaker interface {
	Speak(text string) error
}

// SystemClipboard wraps atotto/clipboard.
type SystemClipboard struct{}

func (SystemClipboard) SetText(s string) error {
	if err := clipboard.WriteAll(s); err != nil {
		return fmt.Errorf("%w: %v", clipsttyerr.ErrClipboardWrite, err)
	}
	return nil
}

func (SystemClipboard) GetText() (string, error) {
	s, err := clipboard.ReadAll()
	if err != nil {
		return "", fmt.Errorf("%w: %v", clipsttyerr.ErrClipboardRead, err)
	}
	return s, nil
}

// UnsupportedKeyboard is the default Keyboard: every call fails with
// ErrUnsupportedInput, per §4.5's documented failure mode for platforms with
// no input simulator wired in.
type UnsupportedKeyboard struct{}

func (UnsupportedKeyboard) Type(string) error {
	return clipsttyerr.ErrUnsupportedInput
}

func (UnsupportedKeyboard) Chord(...string) error {
	return clipsttyerr.ErrUnsupportedInput
}

// NoopSpeaker is the default Speaker: TTS absence degrades silently
// (§6), so Speak always succeeds without producing audio.
type NoopSpeaker struct{}

func (NoopSpeaker) Speak(string) error { return nil }

// PasteChordKeys returns the platform paste chord: Meta+V on macOS,
// Ctrl+V elsewhere (§4.5, §6).
func PasteChordKeys() []string {
	if runtime.GOOS == "darwin" {
		return []string{"meta", "v"}
	}
	return []string{"ctrl", "v"}
}

// Injector combines the three collaborators and implements the
// type-then-fallback policy (§4.3 step 2, §4.5 Policy).
type Injector struct {
	Clipboard Clipboard
	Keyboard  Keyboard
	Speaker   Speaker
}

// New builds an Injector wired to the real clipboard and stub keyboard
// and speaker.
func New() *Injector {
	return &Injector{
		Clipboard: SystemClipboard{},
		Keyboard:  UnsupportedKeyboard{},
		Speaker:   NoopSpeaker{},
	}
}

// TypeOrFallback tries Type first; on any error it falls back to
// ClipboardPaste with a 100ms delay, per §4.5 Policy.
func (inj *Injector) TypeOrFallback(text string) error {
	if err := inj.Keyboard.Type(text); err == nil {
		return nil
	}
	return inj.ClipboardPaste(text, 100*time.Millisecond)
}

// ClipboardPaste sets the clipboard, waits delay, then synthesizes the
// platform paste chord.
func (inj *Injector) ClipboardPaste(text string, delay time.Duration) error {
	if err := inj.Clipboard.SetText(text); err != nil {
		return err
	}
	if delay > 0 {
		time.Sleep(delay)
	}
	return inj.Keyboard.Chord(PasteChordKeys()...)
}

// CopyOnly sets the clipboard without attempting any keystroke
// synthesis; used when stt.instant_output is false (§4.3 step 2).
func (inj *Injector) CopyOnly(text string) error {
	return inj.Clipboard.SetText(text)
}
