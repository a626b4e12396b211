package reg

import (
	"github.com/hyasynth/hyasynth/pkg/dsp/distortion"
	"github.com/hyasynth/hyasynth/pkg/dsp/utility"
	"github.com/hyasynth/hyasynth/pkg/node"
)

// DISTORTION's parameters: drive amount (>=1.0) and dry/wet mix (0-1).
// Not part of the original engine's published node palette - this
// engine's Effects block (20-39) otherwise only covers GAIN/PAN/DELAY/
// REVERB, so DISTORTION takes the next free id in that block rather than
// colliding with anything already published.
const (
	ParamDistortionDrive node.ParamID = 0
	ParamDistortionMix   node.ParamID = 1
)

func distortionDescriptor() node.Descriptor {
	return node.Descriptor{
		Type: TypeDistortion, Name: "DISTORTION", Polyphony: node.Global,
		ChannelCount: 2, InputPorts: 1, Factory: newDistortionDSP,
	}
}

// distortionDSP runs one Waveshaper per channel (soft clipping, the most
// broadly useful of the package's curve types) followed by a DCBlocker,
// since driving a waveshaper's DC offset/asymmetry controls - or just an
// asymmetric input signal - pushes a DC component into the output that a
// following filter or speaker shouldn't see.
type distortionDSP struct {
	shapers [2]*distortion.Waveshaper
	dc      *utility.DCBlocker
}

func newDistortionDSP() node.DSP {
	d := &distortionDSP{}
	for ch := range d.shapers {
		d.shapers[ch] = distortion.NewWaveshaper(distortion.CurveSoftClip)
	}
	d.dc = utility.NewDCBlocker(2, 20, 48000)
	return d
}

func (d *distortionDSP) Prepare(sampleRate float64, _ int) {
	d.dc = utility.NewDCBlocker(2, 20, sampleRate)
}

func (d *distortionDSP) Process(_ *node.Context, inputs [][]float32, out []float32) bool {
	var in []float32
	if len(inputs) > 0 {
		in = inputs[0]
	}
	frames := len(out) / 2
	silent := true
	for i := 0; i < frames; i++ {
		left, right := stereoSample(in, frames, i)
		shaped := [2]float32{
			float32(d.shapers[0].Process(float64(left))),
			float32(d.shapers[1].Process(float64(right))),
		}
		for ch := 0; ch < 2; ch++ {
			out[i*2+ch] = d.dc.Process(shaped[ch], ch)
			if out[i*2+ch] != 0 {
				silent = false
			}
		}
	}
	return silent
}

func (d *distortionDSP) SetParam(p node.ParamID, v float32) {
	switch p {
	case ParamDistortionDrive:
		for _, s := range d.shapers {
			s.SetDrive(float64(v))
		}
	case ParamDistortionMix:
		for _, s := range d.shapers {
			s.SetMix(float64(v))
		}
	}
}

func (d *distortionDSP) Reset() { d.dc.Reset() }
