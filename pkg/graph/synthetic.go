package graph

import (
	"github.com/hyasynth/hyasynth/pkg/dsp/gain"
	"github.com/hyasynth/hyasynth/pkg/dsp/pan"
	"github.com/hyasynth/hyasynth/pkg/node"
)

// trackStripDSP applies a track's Volume and Pan to its single mono or
// stereo input and always outputs stereo, using the same gain.Apply and
// pan.MonoToStereo(ConstantPower) the teacher's effect nodes use for their
// own level/width stages: track strips are Global and their values only
// ever change via infrequent SetParam commands, not per-voice modulation,
// so recomputing the pan gains once per block here is enough.
type trackStripDSP struct {
	volume, pan float32
}

func newTrackStrip() node.DSP { return &trackStripDSP{volume: 1, pan: 0} }

func (s *trackStripDSP) Prepare(float64, int) {}

func (s *trackStripDSP) Process(_ *node.Context, inputs [][]float32, out []float32) bool {
	frames := len(out) / 2
	var in []float32
	inChannels := 1
	if len(inputs) > 0 {
		in = inputs[0]
		if len(in) > 0 && frames > 0 {
			inChannels = len(in) / frames
			if inChannels < 1 {
				inChannels = 1
			}
		}
	}

	leftGain, rightGain := pan.MonoToStereo(s.pan, pan.ConstantPower)
	silent := true
	for i := 0; i < frames; i++ {
		var sample float32
		if len(in) > 0 {
			if inChannels == 2 {
				sample = (in[i*2] + in[i*2+1]) * 0.5
			} else if i < len(in) {
				sample = in[i]
			}
		}
		if sample != 0 {
			silent = false
		}
		sample = gain.Apply(sample, s.volume)
		out[i*2] = sample * leftGain
		out[i*2+1] = sample * rightGain
	}
	return silent
}

func (s *trackStripDSP) SetParam(p node.ParamID, v float32) {
	switch p {
	case ParamStripVolume:
		s.volume = v
	case ParamStripPan:
		s.pan = v
	}
}

func (s *trackStripDSP) Reset() {}

// mixerDSP sums every connected input port, all already stereo.
type mixerDSP struct{}

func newMixer() node.DSP { return &mixerDSP{} }

func (m *mixerDSP) Prepare(float64, int) {}

func (m *mixerDSP) Process(_ *node.Context, inputs [][]float32, out []float32) bool {
	for i := range out {
		out[i] = 0
	}
	silent := true
	for _, in := range inputs {
		for i := 0; i < len(out) && i < len(in); i++ {
			if in[i] != 0 {
				silent = false
			}
			out[i] += in[i]
		}
	}
	return silent
}

func (m *mixerDSP) SetParam(node.ParamID, float32) {}
func (m *mixerDSP) Reset()                         {}

// sinkDSP is a transparent passthrough, used only when a GraphDef names no
// explicit output node so the ExecutionPlan always has a terminal node the
// engine can read the final mix from for Readback.
type sinkDSP struct{}

func newSink() node.DSP { return &sinkDSP{} }

func (s *sinkDSP) Prepare(float64, int) {}

func (s *sinkDSP) Process(_ *node.Context, inputs [][]float32, out []float32) bool {
	if len(inputs) == 0 {
		for i := range out {
			out[i] = 0
		}
		return true
	}
	in := inputs[0]
	silent := true
	for i := range out {
		var v float32
		if i < len(in) {
			v = in[i]
		}
		if v != 0 {
			silent = false
		}
		out[i] = v
	}
	return silent
}

func (s *sinkDSP) SetParam(node.ParamID, float32) {}
func (s *sinkDSP) Reset()                         {}
