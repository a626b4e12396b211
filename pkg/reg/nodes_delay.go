package reg

import (
	"github.com/cwbudde/algo-dsp/dsp/effects"
	"github.com/hyasynth/hyasynth/pkg/node"
)

// DELAY's parameters: time in seconds, feedback 0-0.99, dry/wet mix 0-1.
const (
	ParamDelayTime     node.ParamID = 0
	ParamDelayFeedback node.ParamID = 1
	ParamDelayMix      node.ParamID = 2
)

func delayDescriptor() node.Descriptor {
	return node.Descriptor{
		Type: TypeDelay, Name: "DELAY", Polyphony: node.Global,
		ChannelCount: 2, InputPorts: 1, Factory: newDelayDSP,
	}
}

// delayDSP runs one effects.Delay line per channel so stereo feedback
// delays don't bleed between channels.
type delayDSP struct {
	lines [2]*effects.Delay
}

func newDelayDSP() node.DSP {
	d := &delayDSP{}
	d.rebuild(48000)
	return d
}

func (d *delayDSP) rebuild(sampleRate float64) {
	for ch := range d.lines {
		line, err := effects.NewDelay(sampleRate)
		if err != nil {
			// sampleRate is always validated finite and positive by the
			// caller (session.Config / Prepare); this path is unreachable
			// in practice but a nil line would panic on the next block.
			line, _ = effects.NewDelay(48000)
		}
		d.lines[ch] = line
	}
}

func (d *delayDSP) Prepare(sampleRate float64, _ int) {
	d.rebuild(sampleRate)
}

func (d *delayDSP) Process(_ *node.Context, inputs [][]float32, out []float32) bool {
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
			wet := d.lines[ch].ProcessSample(samples[ch])
			out[i*2+ch] = float32(wet)
			if out[i*2+ch] != 0 {
				silent = false
			}
		}
	}
	return silent
}

func (d *delayDSP) SetParam(p node.ParamID, v float32) {
	switch p {
	case ParamDelayTime:
		for _, line := range d.lines {
			line.SetTime(float64(v))
		}
	case ParamDelayFeedback:
		for _, line := range d.lines {
			line.SetFeedback(float64(v))
		}
	case ParamDelayMix:
		for _, line := range d.lines {
			line.SetMix(float64(v))
		}
	}
}

func (d *delayDSP) Reset() {
	for _, line := range d.lines {
		line.Reset()
	}
}
