package reg

import (
	"github.com/hyasynth/hyasynth/pkg/dsp/envelope"
	"github.com/hyasynth/hyasynth/pkg/node"
)

// ADSR_ENV's parameter space: attack/decay/release in seconds, sustain 0-1.
const (
	ParamADSRAttack  node.ParamID = 0
	ParamADSRDecay   node.ParamID = 1
	ParamADSRSustain node.ParamID = 2
	ParamADSRRelease node.ParamID = 3
)

func adsrEnvDescriptor() node.Descriptor {
	return node.Descriptor{
		Type: TypeADSREnv, Name: "ADSR_ENV", Polyphony: node.PerVoice,
		ChannelCount: 1, InputPorts: 1, Factory: newADSREnvDSP,
	}
}

// adsrEnvDSP gates a single input signal with an envelope.ADSR, triggered
// and released by the same NoteOn/NoteOff events that gate a preceding
// SINE_OSC (TESTABLE SCENARIO 2 chains exactly this: SINE_OSC -> ADSR_ENV ->
// OUTPUT and asserts the output amplitude follows the A/D/S/R stages).
type adsrEnvDSP struct {
	env *envelope.ADSR
}

func newADSREnvDSP() node.DSP {
	return &adsrEnvDSP{env: envelope.New(48000)}
}

func (d *adsrEnvDSP) Prepare(sampleRate float64, _ int) {
	d.env = envelope.New(sampleRate)
}

func (d *adsrEnvDSP) Process(ctx *node.Context, inputs [][]float32, out []float32) bool {
	for _, ev := range ctx.Events {
		switch ev.Kind {
		case node.KindNoteOn:
			d.env.Trigger()
		case node.KindNoteOff:
			d.env.Release()
		}
	}

	var in []float32
	if len(inputs) > 0 {
		in = inputs[0]
	}
	silent := true
	for i := range out {
		var sample float32
		if i < len(in) {
			sample = in[i]
		}
		sample *= d.env.Next()
		if sample != 0 {
			silent = false
		}
		out[i] = sample
	}
	return silent
}

func (d *adsrEnvDSP) SetParam(p node.ParamID, v float32) {
	switch p {
	case ParamADSRAttack:
		d.env.SetAttack(float64(v))
	case ParamADSRDecay:
		d.env.SetDecay(float64(v))
	case ParamADSRSustain:
		d.env.SetSustain(float64(v))
	case ParamADSRRelease:
		d.env.SetRelease(float64(v))
	}
}

func (d *adsrEnvDSP) Reset() { d.env.Reset() }
