package reg

import (
	"github.com/hyasynth/hyasynth/pkg/dsp/oscillator"
	"github.com/hyasynth/hyasynth/pkg/node"
)

// ParamSineFreq is SINE_OSC's only parameter: frequency in Hz.
const ParamSineFreq node.ParamID = 0

func sineOscDescriptor() node.Descriptor {
	return node.Descriptor{
		Type: TypeSineOsc, Name: "SINE_OSC", Polyphony: node.PerVoice,
		ChannelCount: 1, InputPorts: 0, Factory: newSineOscDSP,
	}
}

// sineOscDSP is a bare sine generator gated by NoteOn/NoteOff: it plays at
// a fixed, explicitly set frequency regardless of the triggering note
// number (TESTABLE SCENARIO 1 builds SINE_OSC(freq=440) and triggers it
// with NoteOn(69, ...) expecting 440Hz out, not a pitch derived from note
// 69), scaled by the triggering velocity.
type sineOscDSP struct {
	osc      *oscillator.Oscillator
	gate     bool
	velocity float32
}

func newSineOscDSP() node.DSP {
	return &sineOscDSP{osc: oscillator.New(48000), velocity: 1}
}

func (d *sineOscDSP) Prepare(sampleRate float64, _ int) {
	d.osc = oscillator.New(sampleRate)
}

func (d *sineOscDSP) Process(ctx *node.Context, _ [][]float32, out []float32) bool {
	for _, ev := range ctx.Events {
		switch ev.Kind {
		case node.KindNoteOn:
			d.gate = true
			d.velocity = ev.Velocity
		case node.KindNoteOff:
			d.gate = false
		}
	}
	if !d.gate {
		for i := range out {
			out[i] = 0
		}
		return true
	}
	d.osc.ProcessSine(out)
	for i := range out {
		out[i] *= d.velocity
	}
	return false
}

func (d *sineOscDSP) SetParam(p node.ParamID, v float32) {
	if p == ParamSineFreq {
		d.osc.SetFrequency(float64(v))
	}
}

func (d *sineOscDSP) Reset() {
	d.osc.Reset()
	d.gate = false
}

// ParamSawFreq, ParamSquareFreq, and ParamTriangleFreq mirror
// ParamSineFreq for the other three oscillator waveforms the original
// engine's Oscillators block (node IDs 1-9) defines alongside SINE_OSC.
const (
	ParamSawFreq      node.ParamID = 0
	ParamSquareFreq   node.ParamID = 0
	ParamTriangleFreq node.ParamID = 0
)

func sawOscDescriptor() node.Descriptor {
	return node.Descriptor{
		Type: TypeSawOsc, Name: "SAW_OSC", Polyphony: node.PerVoice,
		ChannelCount: 1, InputPorts: 0, Factory: func() node.DSP { return newOscDSP((*oscillator.Oscillator).ProcessSaw) },
	}
}

func squareOscDescriptor() node.Descriptor {
	return node.Descriptor{
		Type: TypeSquareOsc, Name: "SQUARE_OSC", Polyphony: node.PerVoice,
		ChannelCount: 1, InputPorts: 0, Factory: func() node.DSP { return newOscDSP((*oscillator.Oscillator).ProcessSquare) },
	}
}

func triangleOscDescriptor() node.Descriptor {
	return node.Descriptor{
		Type: TypeTriangleOsc, Name: "TRIANGLE_OSC", Polyphony: node.PerVoice,
		ChannelCount: 1, InputPorts: 0, Factory: func() node.DSP { return newOscDSP((*oscillator.Oscillator).ProcessTriangle) },
	}
}

// oscDSP is sineOscDSP generalized over which of *oscillator.Oscillator's
// Process* methods fills the buffer, so SAW_OSC/SQUARE_OSC/TRIANGLE_OSC
// share every bit of gating/velocity bookkeeping with SINE_OSC instead of
// re-deriving it per waveform.
type oscDSP struct {
	osc      *oscillator.Oscillator
	fill     func(*oscillator.Oscillator, []float32)
	gate     bool
	velocity float32
}

func newOscDSP(fill func(*oscillator.Oscillator, []float32)) node.DSP {
	return &oscDSP{osc: oscillator.New(48000), fill: fill, velocity: 1}
}

func (d *oscDSP) Prepare(sampleRate float64, _ int) {
	d.osc = oscillator.New(sampleRate)
}

func (d *oscDSP) Process(ctx *node.Context, _ [][]float32, out []float32) bool {
	for _, ev := range ctx.Events {
		switch ev.Kind {
		case node.KindNoteOn:
			d.gate = true
			d.velocity = ev.Velocity
		case node.KindNoteOff:
			d.gate = false
		}
	}
	if !d.gate {
		for i := range out {
			out[i] = 0
		}
		return true
	}
	d.fill(d.osc, out)
	for i := range out {
		out[i] *= d.velocity
	}
	return false
}

func (d *oscDSP) SetParam(_ node.ParamID, v float32) {
	d.osc.SetFrequency(float64(v))
}

func (d *oscDSP) Reset() {
	d.osc.Reset()
	d.gate = false
}
