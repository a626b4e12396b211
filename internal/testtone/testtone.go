// Package testtone provides Goertzel-based spectral assertions for test
// code exercising a compiled ExecutionPlan's output, the tool TESTABLE
// SCENARIO 1's "440Hz +/-1Hz FFT peak on both channels" check needs.
// It is deliberately lightweight: a full FFT package is overkill for
// asserting a single dominant frequency in a test tone.
package testtone

import (
	"fmt"

	"github.com/cwbudde/algo-dsp/dsp/spectrum"
)

// Deinterleave extracts one channel's samples from an interleaved stereo
// (or wider) buffer as float64, the precision spectrum.Goertzel expects.
func Deinterleave(interleaved []float32, channels, channel int) []float64 {
	if channels <= 0 {
		channels = 1
	}
	frames := len(interleaved) / channels
	out := make([]float64, frames)
	for i := 0; i < frames; i++ {
		idx := i*channels + channel
		if idx < len(interleaved) {
			out[i] = float64(interleaved[idx])
		}
	}
	return out
}

// DominantFrequency scans [minHz, maxHz] in stepHz increments with a bank
// of Goertzel analyzers and returns the frequency with the highest power,
// the peak-picking TESTABLE SCENARIO 1 needs without pulling in a full FFT.
func DominantFrequency(samples []float64, sampleRate, minHz, maxHz, stepHz float64) (float64, error) {
	if stepHz <= 0 {
		return 0, fmt.Errorf("testtone: stepHz must be > 0")
	}
	if maxHz < minHz {
		return 0, fmt.Errorf("testtone: maxHz must be >= minHz")
	}

	var freqs []float64
	for f := minHz; f <= maxHz; f += stepHz {
		freqs = append(freqs, f)
	}
	mg, err := spectrum.NewMultiGoertzel(freqs, sampleRate)
	if err != nil {
		return 0, err
	}
	mg.ProcessBlock(samples)
	powers := mg.Powers()

	bestIdx := 0
	for i, p := range powers {
		if p > powers[bestIdx] {
			bestIdx = i
		}
	}
	return freqs[bestIdx], nil
}

// AssertPeakNear reports whether samples' dominant frequency in
// [targetHz-tolHz, targetHz+tolHz] is within tolHz of targetHz, scanning a
// search window wide enough to find it even if it isn't.
func AssertPeakNear(samples []float64, sampleRate, targetHz, tolHz float64) (peakHz float64, ok bool, err error) {
	searchLow := targetHz - targetHz*0.5
	if searchLow < 0 {
		searchLow = 0
	}
	searchHigh := targetHz + targetHz*0.5
	step := tolHz / 4
	if step <= 0 {
		step = 0.25
	}
	peakHz, err = DominantFrequency(samples, sampleRate, searchLow, searchHigh, step)
	if err != nil {
		return 0, false, err
	}
	diff := peakHz - targetHz
	if diff < 0 {
		diff = -diff
	}
	return peakHz, diff <= tolHz, nil
}
