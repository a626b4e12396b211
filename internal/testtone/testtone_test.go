package testtone

import (
	"math"
	"testing"
)

func sineBuffer(freq, sampleRate float64, frames int) []float64 {
	out := make([]float64, frames)
	for i := range out {
		out[i] = math.Sin(2 * math.Pi * freq * float64(i) / sampleRate)
	}
	return out
}

func TestDominantFrequencyFindsExactBin(t *testing.T) {
	samples := sineBuffer(440, 48000, 4096)
	peak, err := DominantFrequency(samples, 48000, 420, 460, 0.25)
	if err != nil {
		t.Fatalf("DominantFrequency: %v", err)
	}
	if math.Abs(peak-440) > 1 {
		t.Fatalf("expected peak near 440Hz, got %v", peak)
	}
}

func TestAssertPeakNearSucceedsWithinTolerance(t *testing.T) {
	samples := sineBuffer(440, 48000, 4096)
	peak, ok, err := AssertPeakNear(samples, 48000, 440, 1)
	if err != nil {
		t.Fatalf("AssertPeakNear: %v", err)
	}
	if !ok {
		t.Fatalf("expected peak %v to be within tolerance of 440Hz", peak)
	}
}

func TestAssertPeakNearFailsForWrongFrequency(t *testing.T) {
	samples := sineBuffer(220, 48000, 4096)
	_, ok, err := AssertPeakNear(samples, 48000, 440, 1)
	if err != nil {
		t.Fatalf("AssertPeakNear: %v", err)
	}
	if ok {
		t.Fatalf("expected a 220Hz tone not to register near 440Hz")
	}
}

func TestDeinterleaveExtractsCorrectChannel(t *testing.T) {
	interleaved := []float32{1, 2, 3, 4, 5, 6}
	left := Deinterleave(interleaved, 2, 0)
	right := Deinterleave(interleaved, 2, 1)
	wantLeft := []float64{1, 3, 5}
	wantRight := []float64{2, 4, 6}
	for i := range wantLeft {
		if left[i] != wantLeft[i] || right[i] != wantRight[i] {
			t.Fatalf("deinterleave mismatch at %d: left=%v right=%v", i, left, right)
		}
	}
}
