package graph

import (
	"github.com/hyasynth/hyasynth/pkg/id"
	"github.com/hyasynth/hyasynth/pkg/node"
)

// InputBinding resolves one input port of a RuntimeNode to its upstream
// source, decided once at compile time so Process never branches on graph
// shape: it only ever reads Scratch or Src.Output[v] (spec §4.1: "input
// bindings are recorded as indices into the buffer pool; no reads happen
// during compile").
type InputBinding struct {
	Present bool
	Src     *RuntimeNode

	// Mix is true when Src is PerVoice and this node is Global: its
	// per-voice output buffers must be summed into Scratch before this
	// node's Process call, once per block (spec §4.1 item 4).
	Mix     bool
	Scratch []float32
}

// RuntimeNode is one compiled node: its DSP instance(s) - one for Global,
// MaxVoices for PerVoice - its pre-allocated output buffers, and its
// resolved input bindings.
type RuntimeNode struct {
	ID        id.NodeID
	Type      node.TypeID
	Poly      node.Polyphony
	Channels  int
	Synthetic bool // true for compiler-inserted nodes (track strip, mixer, sink)

	Instances []node.DSP
	Output    [][]float32 // Output[v] sized maxBlockSize*Channels
	Silent    []bool

	Inputs []InputBinding // indexed by destination port
}

// ExecutionPlan is the fully compiled, audio-thread-ready graph: nodes in
// topological order, buffers pre-allocated, parameters pre-loaded, audio
// pool hydrated. Process reuses those buffers and never blocks; it does
// allocate a small input-slice header list and a filtered event slice for
// each node it runs.
type ExecutionPlan struct {
	Nodes        []*RuntimeNode // topological order; safe to Process in this order
	ByID         map[id.NodeID]*RuntimeNode
	Output       *RuntimeNode
	SampleRate   float64
	MaxBlockSize int
	MaxVoices    int

	// Params snapshots the parameters each non-synthetic node was compiled
	// with, since node.DSP exposes SetParam but no getter. Decompile reads
	// this rather than asking live instances for their state.
	Params map[id.NodeID]map[node.ParamID]float32
}

// Lookup returns the compiled RuntimeNode for a user or synthetic node id.
func (p *ExecutionPlan) Lookup(n id.NodeID) (*RuntimeNode, bool) {
	rn, ok := p.ByID[n]
	return rn, ok
}

// Reset clears every node instance's internal state (on transport stop and
// on an explicit engine reset).
func (p *ExecutionPlan) Reset() {
	for _, rn := range p.Nodes {
		for _, inst := range rn.Instances {
			inst.Reset()
		}
	}
}

// Process runs one block through the compiled graph in topological order.
// activeVoices (length MaxVoices) marks which voice slots are currently
// playing; inactive voices' PerVoice instances are not called and their
// output buffers are zeroed instead, which is the silence-propagation
// optimization of spec §4.1 item 6 applied at the buffer level.
//
// eventsByNode groups this block's already-materialized Events by the
// RuntimeNode they target (see scheduler.Materialize), so Process never
// itself searches or sorts.
func (p *ExecutionPlan) Process(eventsByNode map[id.NodeID][]node.Event, activeVoices []bool, blockFrames int, beatStart, beatEnd float64) {
	for _, rn := range p.Nodes {
		events := eventsByNode[rn.ID]

		// Prepare Mix scratch buffers for inputs sourced from PerVoice
		// nodes feeding a Global consumer.
		for i := range rn.Inputs {
			in := &rn.Inputs[i]
			if !in.Present || !in.Mix {
				continue
			}
			n := blockFrames * in.Src.Channels
			for k := 0; k < n; k++ {
				in.Scratch[k] = 0
			}
			for v, active := range activeVoices {
				if !active {
					continue
				}
				src := in.Src.Output[v]
				for k := 0; k < n; k++ {
					in.Scratch[k] += src[k]
				}
			}
		}

		if rn.Poly == node.Global {
			inputs := gatherInputs(rn, 0, activeVoices, blockFrames)
			ctx := &node.Context{
				SampleRate:  p.SampleRate,
				BlockFrames: blockFrames,
				BeatStart:   beatStart,
				BeatEnd:     beatEnd,
				Voice:       -1,
				Events:      filterEvents(events, node.TargetGlobal, -1),
			}
			out := rn.Output[0][:blockFrames*rn.Channels]
			rn.Silent[0] = rn.Instances[0].Process(ctx, inputs, out)
			continue
		}

		for v := 0; v < len(rn.Instances); v++ {
			out := rn.Output[v][:blockFrames*rn.Channels]
			if v >= len(activeVoices) || !activeVoices[v] {
				for k := range out {
					out[k] = 0
				}
				rn.Silent[v] = true
				continue
			}
			inputs := gatherInputs(rn, v, activeVoices, blockFrames)
			ctx := &node.Context{
				SampleRate:  p.SampleRate,
				BlockFrames: blockFrames,
				BeatStart:   beatStart,
				BeatEnd:     beatEnd,
				Voice:       v,
				Events:      filterEvents(events, node.TargetVoice, v),
			}
			rn.Silent[v] = rn.Instances[v].Process(ctx, inputs, out)
		}
	}
}

// gatherInputs builds the inputs slice for one Process call: for Global
// consumers, a direct or mixed buffer per port; for a PerVoice consumer's
// voice v, its own voice's upstream buffer (PerVoice source) or the shared
// Global source buffer (broadcast, no copy).
func gatherInputs(rn *RuntimeNode, voice int, activeVoices []bool, blockFrames int) [][]float32 {
	if len(rn.Inputs) == 0 {
		return nil
	}
	out := make([][]float32, len(rn.Inputs))
	for i := range rn.Inputs {
		in := &rn.Inputs[i]
		if !in.Present {
			continue
		}
		if in.Mix {
			out[i] = in.Scratch[:blockFrames*in.Src.Channels]
			continue
		}
		if in.Src.Poly == node.Global {
			out[i] = in.Src.Output[0][:blockFrames*in.Src.Channels]
			continue
		}
		// PerVoice source feeding a PerVoice or Global consumer that isn't
		// mixing (only possible when the consumer is itself PerVoice,
		// matched 1:1 by voice index).
		out[i] = in.Src.Output[voice][:blockFrames*in.Src.Channels]
	}
	return out
}

func filterEvents(events []node.Event, fallbackTarget node.EventTarget, voice int) []node.Event {
	if len(events) == 0 {
		return nil
	}
	out := make([]node.Event, 0, len(events))
	for _, e := range events {
		switch e.Target {
		case node.TargetGlobal:
			if fallbackTarget == node.TargetGlobal {
				out = append(out, e)
			}
		case node.TargetVoiceAll:
			if fallbackTarget != node.TargetGlobal {
				out = append(out, e)
			}
		case node.TargetVoice:
			if fallbackTarget != node.TargetGlobal && e.Voice == voice {
				out = append(out, e)
			}
		}
	}
	return out
}
