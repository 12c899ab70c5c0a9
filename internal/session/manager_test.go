package session

import "testing"

func TestSanitizeFilename(t *testing.T) {
	cases := map[string]string{
		"hello world":      "hello_world",
		"a/b\\c:d*e?":       "a_b_c_d_e_",
		"":                  "",
		"valid-name_123":    "valid-name_123",
	}
	for in, want := range cases {
		if got := sanitizeFilename(in); got != want {
			t.Errorf("sanitizeFilename(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestSanitizeFilenameTruncates(t *testing.T) {
	long := ""
	for i := 0; i < 100; i++ {
		long += "a"
	}
	got := sanitizeFilename(long)
	if len(got) != 50 {
		t.Fatalf("len = %d, want 50", len(got))
	}
}

func TestSidecarPath(t *testing.T) {
	got := sidecarPath("/data/sessions/2026/07/29/foo_abc.wav")
	want := "/data/sessions/2026/07/29/foo_abc.json"
	if got != want {
		t.Fatalf("sidecarPath = %q, want %q", got, want)
	}
}
