package reg

import "github.com/hyasynth/hyasynth/pkg/node"

func outputDescriptor() node.Descriptor {
	return node.Descriptor{
		Type: TypeOutput, Name: "OUTPUT", Polyphony: node.Global,
		ChannelCount: 2, InputPorts: 1, Factory: newOutputDSP,
	}
}

// outputDSP is a transparent stereo passthrough a graph designates with
// session.GraphDef.SetOutput, mirroring the compiler's own implicit
// sinkDSP but available as a real, explicit node type users can place and
// address directly (the implicit sink only exists when no node is
// designated at all).
type outputDSP struct{}

func newOutputDSP() node.DSP { return &outputDSP{} }

func (d *outputDSP) Prepare(float64, int) {}

func (d *outputDSP) Process(_ *node.Context, inputs [][]float32, out []float32) bool {
	var in []float32
	if len(inputs) > 0 {
		in = inputs[0]
	}
	frames := len(out) / 2
	silent := true
	for i := 0; i < frames; i++ {
		left, right := stereoSample(in, frames, i)
		if left != 0 || right != 0 {
			silent = false
		}
		out[i*2] = left
		out[i*2+1] = right
	}
	return silent
}

func (d *outputDSP) SetParam(node.ParamID, float32) {}
func (d *outputDSP) Reset()                         {}
