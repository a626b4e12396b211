package engine

import (
	"testing"

	"github.com/hyasynth/hyasynth/internal/testtone"
	"github.com/hyasynth/hyasynth/pkg/bridge"
	"github.com/hyasynth/hyasynth/pkg/id"
	"github.com/hyasynth/hyasynth/pkg/node"
	"github.com/hyasynth/hyasynth/pkg/reg"
	"github.com/hyasynth/hyasynth/pkg/session"
)

// TestScenario1SineOscOutputsFixedFrequency reproduces TESTABLE SCENARIO 1
// end to end against the real reference node types: SINE_OSC -> OUTPUT with
// its frequency set to 523.25Hz, triggered by NoteOn(69, 1.0), must yield a
// 523.25Hz +/-1Hz spectral peak on both channels.
func TestScenario1SineOscOutputsFixedFrequency(t *testing.T) {
	registry := node.NewRegistry()
	if err := reg.Register(registry); err != nil {
		t.Fatalf("reg.Register: %v", err)
	}

	const sampleRate = 48000
	const blockFrames = 4096
	cfg := session.Config{SampleRate: sampleRate, MaxVoices: 4, MaxBlockSize: blockFrames, CommandRingCapacity: 64, DiagRingCapacity: 64}
	commands, drain := bridge.NewChannel(cfg.CommandRingCapacity, cfg.DiagRingCapacity)
	readback := bridge.NewReadback()
	c := New(cfg, registry, commands, drain, readback)

	const targetFreq = 523.25 // C5, distinct from SINE_OSC's 440Hz default

	oscID, outID := id.NodeID(0), id.NodeID(1)
	commands.Send(bridge.Command{Kind: bridge.CmdAddNode, Node: oscID, Type: reg.TypeSineOsc})
	commands.Send(bridge.Command{Kind: bridge.CmdAddNode, Node: outID, Type: reg.TypeOutput})
	commands.Send(bridge.Command{Kind: bridge.CmdConnect, SrcNode: oscID, SrcPort: 0, DstNode: outID, DstPort: 0})
	commands.Send(bridge.Command{Kind: bridge.CmdSetOutput, Node: outID})

	out := make([]float32, blockFrames*2)
	// The graph must exist in a compiled plan before a SetParam addressing
	// oscID can take effect (spec §7: a SetParam naming an unknown node id
	// is silently ignored) - compile first, then set the frequency and
	// trigger the note in a second block.
	c.RenderBlock(out, blockFrames)
	if !c.PlanCompiled() {
		t.Fatalf("expected the SINE_OSC -> OUTPUT graph to compile")
	}

	commands.Send(bridge.Command{Kind: bridge.CmdSetParam, Node: oscID, Param: reg.ParamSineFreq, Value: targetFreq})
	commands.Send(bridge.Command{Kind: bridge.CmdNoteOn, Note: bridge.NoteEventPayload{Note: 69, Velocity: 1}})
	c.RenderBlock(out, blockFrames)

	for ch, name := range []string{"left", "right"} {
		samples := testtone.Deinterleave(out, 2, ch)
		peak, ok, err := testtone.AssertPeakNear(samples, sampleRate, targetFreq, 1)
		if err != nil {
			t.Fatalf("%s channel: AssertPeakNear: %v", name, err)
		}
		if !ok {
			t.Fatalf("%s channel: expected peak near %vHz, got %v", name, targetFreq, peak)
		}
	}
}
