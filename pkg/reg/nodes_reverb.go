package reg

import (
	"github.com/hyasynth/hyasynth/pkg/dsp/reverb"
	"github.com/hyasynth/hyasynth/pkg/node"
)

// REVERB's parameters: room size, damping, and wet level, all 0-1.
const (
	ParamReverbRoomSize node.ParamID = 0
	ParamReverbDamping  node.ParamID = 1
	ParamReverbWet      node.ParamID = 2
)

func reverbDescriptor() node.Descriptor {
	return node.Descriptor{
		Type: TypeReverb, Name: "REVERB", Polyphony: node.Global,
		ChannelCount: 2, InputPorts: 1, Factory: newReverbDSP,
	}
}

// reverbDSP wraps the Freeverb algorithm (the canonical comb/allpass
// reverb this corpus carries; the engine's REVERB node id has room for
// exactly one implementation, and Freeverb is the only algorithm the
// reverb package carries). Global, like FILTER_LP
// and DELAY: a send/bus reverb shared across all voices rather than one
// per voice.
type reverbDSP struct {
	fv *reverb.Freeverb
}

// newReverbDSP relies on NewFreeverb's own zero dry level: like DELAY and
// FILTER_LP, this node outputs 100% processed signal and leaves dry/wet
// blending to the graph (a parallel dry path, if wanted).
func newReverbDSP() node.DSP {
	return &reverbDSP{fv: reverb.NewFreeverb(48000)}
}

func (d *reverbDSP) Prepare(sampleRate float64, _ int) {
	d.fv = reverb.NewFreeverb(sampleRate)
}

func (d *reverbDSP) Process(_ *node.Context, inputs [][]float32, out []float32) bool {
	var in []float32
	if len(inputs) > 0 {
		in = inputs[0]
	}
	frames := len(out) / 2
	silent := true
	for i := 0; i < frames; i++ {
		left, right := stereoSample(in, frames, i)
		wetLeft, wetRight := d.fv.ProcessStereo(left, right)
		out[i*2] = wetLeft
		out[i*2+1] = wetRight
		if wetLeft != 0 || wetRight != 0 {
			silent = false
		}
	}
	return silent
}

func (d *reverbDSP) SetParam(p node.ParamID, v float32) {
	switch p {
	case ParamReverbRoomSize:
		d.fv.SetRoomSize(float64(v))
	case ParamReverbDamping:
		d.fv.SetDamping(float64(v))
	case ParamReverbWet:
		d.fv.SetWetLevel(float64(v))
	}
}

func (d *reverbDSP) Reset() { d.fv.Reset() }
