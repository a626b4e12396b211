package graph

import (
	"testing"

	"github.com/hyasynth/hyasynth/pkg/id"
	"github.com/hyasynth/hyasynth/pkg/node"
	"github.com/hyasynth/hyasynth/pkg/session"
)

const (
	typeGen  node.TypeID = 1 // PerVoice generator, mono, no inputs
	typeFX   node.TypeID = 2 // Global effect, mono, 1 input port
	typeGain node.TypeID = 3 // PerVoice passthrough with gain param, 1 input port
)

type constDSP struct {
	value float32
	gain  float32
}

func (d *constDSP) Prepare(float64, int) {}
func (d *constDSP) Process(ctx *node.Context, inputs [][]float32, out []float32) bool {
	v := d.value * d.gain
	for i := range out {
		sum := v
		for _, in := range inputs {
			if i < len(in) {
				sum += in[i]
			}
		}
		out[i] = sum
	}
	return v == 0 && len(inputs) == 0
}
func (d *constDSP) SetParam(p node.ParamID, v float32) {
	if p == 0 {
		d.gain = v
	}
}
func (d *constDSP) Reset() {}

func testRegistry() *node.Registry {
	reg := node.NewRegistry()
	reg.Register(node.Descriptor{Type: typeGen, Name: "Gen", Polyphony: node.PerVoice, ChannelCount: 1, InputPorts: 0,
		Factory: func() node.DSP { return &constDSP{value: 1, gain: 1} }})
	reg.Register(node.Descriptor{Type: typeFX, Name: "FX", Polyphony: node.Global, ChannelCount: 1, InputPorts: 1,
		Factory: func() node.DSP { return &constDSP{value: 0, gain: 1} }})
	reg.Register(node.Descriptor{Type: typeGain, Name: "Gain", Polyphony: node.PerVoice, ChannelCount: 1, InputPorts: 1,
		Factory: func() node.DSP { return &constDSP{value: 0, gain: 1} }})
	return reg
}

func TestCompileSimpleChainTopoOrder(t *testing.T) {
	g := session.NewGraphDef()
	gen := g.AddNode(typeGen, 0, 0)
	fx := g.AddNode(typeFX, 0, 0)
	if err := g.Connect(gen, 0, fx, 0); err != nil {
		t.Fatalf("connect: %v", err)
	}

	arr := session.NewArrangement()
	plan, err := Compile(g, arr, testRegistry(), Config{SampleRate: 48000, MaxBlockSize: 64, MaxVoices: 4})
	if err != nil {
		t.Fatalf("compile: %v", err)
	}

	pos := make(map[id.NodeID]int, len(plan.Nodes))
	for i, rn := range plan.Nodes {
		pos[rn.ID] = i
	}
	if pos[gen] >= pos[fx] {
		t.Fatalf("expected gen before fx in topological order, got gen=%d fx=%d", pos[gen], pos[fx])
	}
	if plan.Output == nil || !plan.Output.Synthetic || plan.Output.Type != TypeSink {
		t.Fatalf("expected an implicit sink output since no explicit output node was set and no tracks route to fx")
	}
}

func TestCompileExplicitOutputNodeReceivesMixer(t *testing.T) {
	g := session.NewGraphDef()
	gen := g.AddNode(typeGen, 0, 0)
	out := g.AddNode(typeFX, 0, 0) // a dedicated node, never otherwise wired, designated as the output
	g.SetOutput(out)

	arr := session.NewArrangement()
	tr := arr.CreateTrack("lead")
	arr.SetTrackTarget(tr, gen)

	plan, err := Compile(g, arr, testRegistry(), Config{SampleRate: 48000, MaxBlockSize: 16, MaxVoices: 1})
	if err != nil {
		t.Fatalf("compile: %v", err)
	}
	if plan.Output == nil || plan.Output.ID != out {
		t.Fatalf("expected the explicitly designated node to be the output, got %v", plan.Output)
	}
	if !plan.Output.Inputs[0].Present {
		t.Fatalf("expected the mixer to be wired into the explicit output node's port 0")
	}
}

// TestCompileDirectConnectionToOutputSurvivesWithNoTracks guards against a
// regression where the compiler unconditionally rewired the output node's
// port 0 to the synthetic Mixer even with zero tracks in the Arrangement,
// discarding a direct user connection into an explicit output node (the
// bare SINE_OSC -> OUTPUT topology with no Arrangement at all).
func TestCompileDirectConnectionToOutputSurvivesWithNoTracks(t *testing.T) {
	g := session.NewGraphDef()
	gen := g.AddNode(typeGen, 0, 0)
	out := g.AddNode(typeFX, 0, 0)
	if err := g.Connect(gen, 0, out, 0); err != nil {
		t.Fatalf("connect: %v", err)
	}
	g.SetOutput(out)

	arr := session.NewArrangement()
	plan, err := Compile(g, arr, testRegistry(), Config{SampleRate: 48000, MaxBlockSize: 16, MaxVoices: 1})
	if err != nil {
		t.Fatalf("compile: %v", err)
	}
	if plan.Output == nil || plan.Output.ID != out {
		t.Fatalf("expected the explicitly designated node to be the output, got %v", plan.Output)
	}
	if !plan.Output.Inputs[0].Present || plan.Output.Inputs[0].Src.ID != gen {
		t.Fatalf("expected the user's direct gen->out connection to survive with no tracks present, got %+v", plan.Output.Inputs[0])
	}
	for _, rn := range plan.Nodes {
		if rn.Type == TypeMixer {
			t.Fatalf("expected no synthetic Mixer node when no track feeds it, found %+v", rn)
		}
	}

	active := []bool{true}
	plan.Process(nil, active, 16, 0, 1)
	if plan.Output.Output[0][0] == 0 {
		t.Fatalf("expected the sine generator's signal to reach the output directly")
	}
}

func TestCompileDetectsCycle(t *testing.T) {
	g := session.NewGraphDef()
	a := g.AddNode(typeFX, 0, 0)
	b := g.AddNode(typeFX, 0, 0)
	if err := g.Connect(a, 0, b, 0); err != nil {
		t.Fatalf("connect a->b: %v", err)
	}
	// Bypass GraphDef.Connect's duplicate-port check to force a second
	// binding directly, closing a cycle b->a.
	g.Connections = append(g.Connections, session.Connection{SrcNode: b, SrcPort: 0, DstNode: a, DstPort: 1})

	arr := session.NewArrangement()
	_, err := Compile(g, arr, testRegistry(), Config{SampleRate: 48000, MaxBlockSize: 64, MaxVoices: 1})
	if err == nil {
		t.Fatalf("expected a cycle error")
	}
	ce, ok := err.(*CompileError)
	if !ok || ce.Code != CycleDetected {
		t.Fatalf("expected CycleDetected, got %v", err)
	}
}

func TestCompileUnknownTypeError(t *testing.T) {
	g := session.NewGraphDef()
	g.AddNode(node.TypeID(999), 0, 0)
	arr := session.NewArrangement()
	_, err := Compile(g, arr, testRegistry(), Config{SampleRate: 48000, MaxBlockSize: 64, MaxVoices: 1})
	ce, ok := err.(*CompileError)
	if !ok || ce.Code != UnknownType {
		t.Fatalf("expected UnknownType, got %v", err)
	}
}

func TestCompileDuplicatePortBindingViaRawConnection(t *testing.T) {
	g := session.NewGraphDef()
	a := g.AddNode(typeGen, 0, 0)
	b := g.AddNode(typeGen, 0, 0)
	fx := g.AddNode(typeFX, 0, 0)
	g.Connections = append(g.Connections,
		session.Connection{SrcNode: a, SrcPort: 0, DstNode: fx, DstPort: 0},
		session.Connection{SrcNode: b, SrcPort: 0, DstNode: fx, DstPort: 0},
	)
	arr := session.NewArrangement()
	_, err := Compile(g, arr, testRegistry(), Config{SampleRate: 48000, MaxBlockSize: 64, MaxVoices: 1})
	ce, ok := err.(*CompileError)
	if !ok || ce.Code != DuplicatePortBinding {
		t.Fatalf("expected DuplicatePortBinding, got %v", err)
	}
}

func TestCompileTrackStripMixesIntoOutput(t *testing.T) {
	g := session.NewGraphDef()
	gen := g.AddNode(typeGen, 0, 0)

	arr := session.NewArrangement()
	tr := arr.CreateTrack("lead")
	arr.SetTrackTarget(tr, gen)

	plan, err := Compile(g, arr, testRegistry(), Config{SampleRate: 48000, MaxBlockSize: 32, MaxVoices: 2})
	if err != nil {
		t.Fatalf("compile: %v", err)
	}
	if plan.Output == nil || !plan.Output.Synthetic {
		t.Fatalf("expected an implicit synthetic sink output")
	}

	active := []bool{true, false}
	plan.Process(nil, active, 32, 0, 1)

	out := plan.Output.Output[0]
	if out[0] == 0 {
		t.Fatalf("expected non-silent output reaching the sink through the track strip and mixer")
	}
}

func TestCompileMutedTrackExcludedFromMixer(t *testing.T) {
	g := session.NewGraphDef()
	gen := g.AddNode(typeGen, 0, 0)

	arr := session.NewArrangement()
	tr := arr.CreateTrack("lead")
	arr.SetTrackTarget(tr, gen)
	arr.Tracks[tr].Mute = true

	plan, err := Compile(g, arr, testRegistry(), Config{SampleRate: 48000, MaxBlockSize: 32, MaxVoices: 2})
	if err != nil {
		t.Fatalf("compile: %v", err)
	}

	if _, ok := plan.Lookup(findMixerID(plan)); ok {
		t.Fatalf("expected no synthetic Mixer when the only track is muted")
	}
	if len(plan.Output.Inputs) != 0 {
		t.Fatalf("expected muted track to contribute no input to the output, got %+v", plan.Output.Inputs)
	}
}

func findMixerID(plan *ExecutionPlan) id.NodeID {
	for _, rn := range plan.Nodes {
		if rn.Type == TypeMixer {
			return rn.ID
		}
	}
	return id.NoNode
}

func TestDecompileRoundTripsTopology(t *testing.T) {
	g := session.NewGraphDef()
	gen := g.AddNode(typeGen, 0, 0)
	fx := g.AddNode(typeFX, 0, 0)
	out := g.AddNode(typeFX, 0, 0) // dedicated output node, left unwired by the user
	g.Connect(gen, 0, fx, 0)
	g.SetOutput(out)
	g.SetParam(gen, 0, 0.75)

	arr := session.NewArrangement()
	plan, err := Compile(g, arr, testRegistry(), Config{SampleRate: 48000, MaxBlockSize: 16, MaxVoices: 1})
	if err != nil {
		t.Fatalf("compile: %v", err)
	}

	decompiled := Decompile(plan)
	if len(decompiled.Nodes) != 3 {
		t.Fatalf("expected 3 user nodes after decompile, got %d", len(decompiled.Nodes))
	}
	if decompiled.Nodes[gen].Type != typeGen || decompiled.Nodes[fx].Type != typeFX {
		t.Fatalf("unexpected node types after decompile: %+v", decompiled.Nodes)
	}
	if decompiled.Nodes[gen].Params[0] != 0.75 {
		t.Fatalf("expected param round-trip, got %+v", decompiled.Nodes[gen].Params)
	}
	if len(decompiled.Connections) != 1 || decompiled.Connections[0].SrcNode != gen || decompiled.Connections[0].DstNode != fx {
		t.Fatalf("unexpected connections after decompile: %+v", decompiled.Connections)
	}
	if decompiled.OutputNode != out {
		t.Fatalf("expected output node %v, got %v", out, decompiled.OutputNode)
	}
}
