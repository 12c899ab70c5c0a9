package audio

import "testing"

func TestResampleEmpty(t *testing.T) {
	if out := Resample(nil, 44100); out != nil {
		t.Fatalf("Resample(nil) = %v, want nil", out)
	}
}

func TestResampleIdentity(t *testing.T) {
	in := []Sample{0.1, -0.2, 0.3, -0.4}
	out := Resample(in, TargetSampleRate)
	if len(out) != len(in) {
		t.Fatalf("len = %d, want %d", len(out), len(in))
	}
	for i := range in {
		if out[i] != in[i] {
			t.Errorf("out[%d] = %v, want %v", i, out[i], in[i])
		}
	}
}

func TestResampleLengthFormula(t *testing.T) {
	in := make([]Sample, 44100) // 1 second at 44.1kHz
	out := Resample(in, 44100)
	want := 16000
	if len(out) != want {
		t.Fatalf("len = %d, want %d", len(out), want)
	}
}

func TestResampleClampsOutput(t *testing.T) {
	in := []Sample{2.0, -2.0, 0.5}
	out := Resample(in, TargetSampleRate)
	for _, s := range out {
		if s > 1.0 || s < -1.0 {
			t.Fatalf("sample %v out of [-1,1]", s)
		}
	}
}

func TestResampleMonotoneLength(t *testing.T) {
	for _, fsIn := range []int{8000, 22050, 44100, 48000} {
		in := make([]Sample, fsIn) // 1 second
		out := Resample(in, fsIn)
		want := int(float64(len(in))*float64(TargetSampleRate)/float64(fsIn) + 0.5)
		if len(out) != want {
			t.Errorf("fsIn=%d: len = %d, want %d", fsIn, len(out), want)
		}
	}
}
