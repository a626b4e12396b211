package reg

import (
	"github.com/hyasynth/hyasynth/pkg/dsp/gain"
	"github.com/hyasynth/hyasynth/pkg/dsp/pan"
	"github.com/hyasynth/hyasynth/pkg/node"
)

// VOLUME's only parameter: linear gain (1.0 = unity).
const ParamVolumeGain node.ParamID = 0

func volumeDescriptor() node.Descriptor {
	return node.Descriptor{
		Type: TypeVolume, Name: "VOLUME", Polyphony: node.Global,
		ChannelCount: 2, InputPorts: 1, Factory: newVolumeDSP,
	}
}

// volumeDSP is a standalone stereo gain stage, for graphs that want
// explicit volume control outside the compiler's per-track strip (a
// mastering-chain gain stage downstream of the Mixer, say).
type volumeDSP struct {
	level float32
}

func newVolumeDSP() node.DSP { return &volumeDSP{level: 1} }

func (d *volumeDSP) Prepare(float64, int) {}

func (d *volumeDSP) Process(_ *node.Context, inputs [][]float32, out []float32) bool {
	var in []float32
	if len(inputs) > 0 {
		in = inputs[0]
	}
	frames := len(out) / 2
	silent := true
	for i := 0; i < frames; i++ {
		left, right := stereoSample(in, frames, i)
		left = gain.Apply(left, d.level)
		right = gain.Apply(right, d.level)
		if left != 0 || right != 0 {
			silent = false
		}
		out[i*2] = left
		out[i*2+1] = right
	}
	return silent
}

func (d *volumeDSP) SetParam(p node.ParamID, v float32) {
	if p == ParamVolumeGain {
		d.level = v
	}
}

func (d *volumeDSP) Reset() {}

// PAN's only parameter: position in [-1, 1], constant-power law.
const ParamPanPosition node.ParamID = 0

func panDescriptor() node.Descriptor {
	return node.Descriptor{
		Type: TypePan, Name: "PAN", Polyphony: node.Global,
		ChannelCount: 2, InputPorts: 1, Factory: newPanDSP,
	}
}

// panDSP positions a mono or already-stereo input across two output
// channels with a constant-power pan law, the same law and helper the
// compiler's synthetic track strip uses.
type panDSP struct {
	position float32
}

func newPanDSP() node.DSP { return &panDSP{} }

func (d *panDSP) Prepare(float64, int) {}

func (d *panDSP) Process(_ *node.Context, inputs [][]float32, out []float32) bool {
	frames := len(out) / 2
	var in []float32
	if len(inputs) > 0 {
		in = inputs[0]
	}

	left, right := pan.MonoToStereo(d.position, pan.ConstantPower)
	silent := true
	for i := 0; i < frames; i++ {
		sample := monoSample(in, frames, i)
		if sample != 0 {
			silent = false
		}
		out[i*2] = sample * left
		out[i*2+1] = sample * right
	}
	return silent
}

func (d *panDSP) SetParam(p node.ParamID, v float32) {
	if p == ParamPanPosition {
		d.position = v
	}
}

func (d *panDSP) Reset() {}
