package output

import (
	"errors"
	"testing"
	"time"

	"github.com/askidmobile/clipstty/internal/clipsttyerr"
)

type fakeClipboard struct {
	text string
	err  error
}

func (f *fakeClipboard) SetText(s string) error {
	if f.err != nil {
		return f.err
	}
	f.text = s
	return nil
}

func (f *fakeClipboard) GetText() (string, error) { return f.text, f.err }

type fakeKeyboard struct {
	typed     string
	typeErr   error
	chordArgs []string
	chordErr  error
}

func (f *fakeKeyboard) Type(s string) error {
	if f.typeErr != nil {
		return f.typeErr
	}
	f.typed = s
	return nil
}

func (f *fakeKeyboard) Chord(keys ...string) error {
	if f.chordErr != nil {
		return f.chordErr
	}
	f.chordArgs = keys
	return nil
}

func TestTypeOrFallbackUsesKeyboardWhenSupported(t *testing.T) {
	kb := &fakeKeyboard{}
	cb := &fakeClipboard{}
	inj := &Injector{Clipboard: cb, Keyboard: kb, Speaker: NoopSpeaker{}}

	if err := inj.TypeOrFallback("hello"); err != nil {
		t.Fatalf("TypeOrFallback: %v", err)
	}
	if kb.typed != "hello" {
		t.Fatalf("keyboard got %q, want hello", kb.typed)
	}
	if cb.text != "" {
		t.Fatalf("clipboard should not be touched when Type succeeds")
	}
}

func TestTypeOrFallbackFallsBackOnTypeError(t *testing.T) {
	kb := &fakeKeyboard{typeErr: errors.New("unsupported")}
	cb := &fakeClipboard{}
	inj := &Injector{Clipboard: cb, Keyboard: kb, Speaker: NoopSpeaker{}}

	if err := inj.TypeOrFallback("hello"); err != nil {
		t.Fatalf("TypeOrFallback: %v", err)
	}
	if cb.text != "hello" {
		t.Fatalf("clipboard = %q, want hello (fallback path)", cb.text)
	}
	if len(kb.chordArgs) == 0 {
		t.Fatalf("expected a paste chord to be synthesized")
	}
}

func TestCopyOnlyNeverTypes(t *testing.T) {
	kb := &fakeKeyboard{}
	cb := &fakeClipboard{}
	inj := &Injector{Clipboard: cb, Keyboard: kb, Speaker: NoopSpeaker{}}

	if err := inj.CopyOnly("quiet mode text"); err != nil {
		t.Fatalf("CopyOnly: %v", err)
	}
	if cb.text != "quiet mode text" {
		t.Fatalf("clipboard = %q", cb.text)
	}
	if kb.typed != "" || len(kb.chordArgs) != 0 {
		t.Fatalf("CopyOnly must never touch the keyboard")
	}
}

func TestUnsupportedKeyboardAlwaysFails(t *testing.T) {
	var kb UnsupportedKeyboard
	if err := kb.Type("x"); !errors.Is(err, clipsttyerr.ErrUnsupportedInput) {
		t.Fatalf("Type should return the unsupported sentinel")
	}
}

func TestClipboardPasteRespectsDelay(t *testing.T) {
	kb := &fakeKeyboard{}
	cb := &fakeClipboard{}
	inj := &Injector{Clipboard: cb, Keyboard: kb, Speaker: NoopSpeaker{}}

	start := time.Now()
	if err := inj.ClipboardPaste("x", 10*time.Millisecond); err != nil {
		t.Fatalf("ClipboardPaste: %v", err)
	}
	if time.Since(start) < 10*time.Millisecond {
		t.Fatalf("ClipboardPaste did not honor delay")
	}
}
