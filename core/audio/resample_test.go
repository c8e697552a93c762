package audio

import (
	"math"
	"testing"
)

func TestResampleSameRateIsClampedIdentity(t *testing.T) {
	in := []float32{0, 0.5, -0.5, 1, -1, 1.7, -3}
	out := Resample(in, 16000, 16000)

	if len(out) != len(in) {
		t.Fatalf("expected %d samples, got %d", len(in), len(out))
	}

	want := []int16{0, 16383, -16384, 32767, -32768, 32767, -32768}
	for i := range want {
		if out[i] != want[i] {
			t.Fatalf("expected sample %d to be %d, got %d", i, want[i], out[i])
		}
	}
}

func TestResampleHalvingAveragesPairs(t *testing.T) {
	in := make([]float32, 64)
	for i := range in {
		in[i] = float32(math.Sin(float64(i) / 5))
	}

	out := Resample(in, 32000, 16000)
	if len(out) != len(in)/2 {
		t.Fatalf("expected %d samples, got %d", len(in)/2, len(out))
	}

	for i, got := range out {
		mean := (in[2*i] + in[2*i+1]) / 2
		want := FloatToPCM16(mean)
		if diff := int(got) - int(want); diff < -1 || diff > 1 {
			t.Fatalf("expected sample %d to be ~%d, got %d", i, want, got)
		}
	}
}

func TestResampleDownsamples48kTo16k(t *testing.T) {
	in := make([]float32, 480)
	for i := range in {
		in[i] = 0.25
	}

	out := Resample(in, 48000, 16000)
	if len(out) != 160 {
		t.Fatalf("expected 160 samples, got %d", len(out))
	}
	for i, s := range out {
		if s != FloatToPCM16(0.25) {
			t.Fatalf("expected constant input to stay constant at %d, got %d", i, s)
		}
	}
}

func TestResampleRoundsOutputLength(t *testing.T) {
	// 44.1k -> 16k: 441 samples map to 160.0 outputs, 442 to 160.36.
	if got := len(Resample(make([]float32, 441), 44100, 16000)); got != 160 {
		t.Fatalf("expected 160 samples, got %d", got)
	}
	if got := len(Resample(make([]float32, 442), 44100, 16000)); got != 160 {
		t.Fatalf("expected 160 samples, got %d", got)
	}
}

func TestResampleEmptyInput(t *testing.T) {
	if out := Resample(nil, 48000, 16000); out != nil {
		t.Fatalf("expected nil output for empty input, got %v", out)
	}
	if out := Resample([]float32{0.1}, 0, 16000); out != nil {
		t.Fatalf("expected nil output for invalid rate, got %v", out)
	}
}
