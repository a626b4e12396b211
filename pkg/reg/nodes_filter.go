package reg

import (
	"github.com/cwbudde/algo-dsp/dsp/filter/biquad"
	"github.com/cwbudde/algo-dsp/dsp/filter/design"
	"github.com/hyasynth/hyasynth/pkg/node"
)

// FILTER_LP's parameters: cutoff in Hz and resonance/Q.
const (
	ParamFilterCutoff node.ParamID = 0
	ParamFilterQ      node.ParamID = 1
)

func filterLPDescriptor() node.Descriptor {
	return node.Descriptor{
		Type: TypeFilterLP, Name: "FILTER_LP", Polyphony: node.Global,
		ChannelCount: 2, InputPorts: 1, Factory: newFilterLPDSP,
	}
}

const (
	defaultFilterCutoff = 1000.0
	defaultFilterQ      = 0.707
)

// filterLPDSP is a two-channel RBJ lowpass built from one biquad.Section
// per channel, recomputing its coefficients from design.Lowpass whenever
// cutoff or Q changes. It is Global (one shared instance downstream of the
// mix, the way a send/bus filter is typically placed) rather than PerVoice;
// a per-voice lowpass is just this same node type wired before the mixer
// instead, nothing in the compiler privileges either placement.
type filterLPDSP struct {
	sampleRate float64
	cutoff, q  float64
	sections   [2]*biquad.Section
}

func newFilterLPDSP() node.DSP {
	d := &filterLPDSP{sampleRate: 48000, cutoff: defaultFilterCutoff, q: defaultFilterQ}
	d.rebuild()
	return d
}

func (d *filterLPDSP) rebuild() {
	coeffs := design.Lowpass(d.cutoff, d.q, d.sampleRate)
	for ch := range d.sections {
		if d.sections[ch] == nil {
			d.sections[ch] = biquad.NewSection(coeffs)
		} else {
			d.sections[ch].Coefficients = coeffs
		}
	}
}

func (d *filterLPDSP) Prepare(sampleRate float64, _ int) {
	d.sampleRate = sampleRate
	d.rebuild()
}

func (d *filterLPDSP) Process(_ *node.Context, inputs [][]float32, out []float32) bool {
	var in []float32
	if len(inputs) > 0 {
		in = inputs[0]
	}
	frames := len(out) / 2
	silent := true
	for i := 0; i < frames; i++ {
		left, right := stereoSample(in, frames, i)
		samples := [2]float64{float64(left), float64(right)}
		for ch := 0; ch < 2; ch++ {
			filtered := d.sections[ch].ProcessSample(samples[ch])
			out[i*2+ch] = float32(filtered)
			if out[i*2+ch] != 0 {
				silent = false
			}
		}
	}
	return silent
}

func (d *filterLPDSP) SetParam(p node.ParamID, v float32) {
	switch p {
	case ParamFilterCutoff:
		d.cutoff = float64(v)
	case ParamFilterQ:
		d.q = float64(v)
	default:
		return
	}
	d.rebuild()
}

func (d *filterLPDSP) Reset() {
	for ch := range d.sections {
		d.sections[ch] = biquad.NewSection(d.sections[ch].Coefficients)
	}
}
