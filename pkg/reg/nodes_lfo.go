package reg

import (
	"github.com/hyasynth/hyasynth/pkg/dsp/modulation"
	"github.com/hyasynth/hyasynth/pkg/node"
)

// LFO's parameters: rate in Hz and depth in [0, 1]. It has no waveform
// parameter - SINE_OSC/SAW_OSC/SQUARE_OSC/TRIANGLE_OSC already cover
// waveform choice as separate node types, so LFO only needs to pick one
// default shape (sine) to stay a single node rather than reproducing
// that whole family at control rate.
const (
	ParamLFORate  node.ParamID = 0
	ParamLFODepth node.ParamID = 1
)

func lfoDescriptor() node.Descriptor {
	return node.Descriptor{
		Type: TypeLFO, Name: "LFO", Polyphony: node.Global,
		ChannelCount: 1, InputPorts: 0, Factory: newLFODSP,
	}
}

// lfoDSP has no note gating, unlike the audio oscillators: a modulation
// source runs continuously from the moment its graph is compiled, the
// way the original engine's Lfo node has no note-on/note-off handling
// either. Its output is an ordinary mono buffer a host patches into any
// other node's input port like any audio signal - there is no separate
// modulation-routing concept in this graph, matching how the original
// wires its Lfo node through the same Node/AudioBuffer contract every
// audio node uses.
type lfoDSP struct {
	lfo *modulation.LFO
}

func newLFODSP() node.DSP {
	d := &lfoDSP{lfo: modulation.NewLFO(48000)}
	d.lfo.SetWaveform(modulation.WaveformSine)
	return d
}

func (d *lfoDSP) Prepare(sampleRate float64, _ int) {
	d.lfo = modulation.NewLFO(sampleRate)
	d.lfo.SetWaveform(modulation.WaveformSine)
}

func (d *lfoDSP) Process(_ *node.Context, _ [][]float32, out []float32) bool {
	silent := true
	for i := range out {
		out[i] = float32(d.lfo.Process())
		if out[i] != 0 {
			silent = false
		}
	}
	return silent
}

func (d *lfoDSP) SetParam(p node.ParamID, v float32) {
	switch p {
	case ParamLFORate:
		d.lfo.SetFrequency(float64(v))
	case ParamLFODepth:
		d.lfo.SetDepth(float64(v))
	}
}

func (d *lfoDSP) Reset() { d.lfo.Reset() }
