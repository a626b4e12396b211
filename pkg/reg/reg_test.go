package reg

import (
	"math"
	"testing"

	"github.com/hyasynth/hyasynth/pkg/node"
)

func TestRegisterAddsAllReferenceTypes(t *testing.T) {
	r := node.NewRegistry()
	if err := Register(r); err != nil {
		t.Fatalf("Register: %v", err)
	}
	want := []node.TypeID{
		TypeSineOsc, TypeSawOsc, TypeSquareOsc, TypeTriangleOsc,
		TypeADSREnv, TypeFilterLP, TypeDelay, TypeReverb, TypeDistortion,
		TypeLFO, TypeAudioPlayer, TypeVolume, TypePan, TypeOutput,
	}
	if r.Count() != len(want) {
		t.Fatalf("expected %d registered types, got %d", len(want), r.Count())
	}
	for _, typ := range want {
		if _, ok := r.Lookup(typ); !ok {
			t.Fatalf("expected type %d to be registered", typ)
		}
	}
}

func ctxWithEvents(events ...node.Event) *node.Context {
	return &node.Context{SampleRate: 48000, BlockFrames: 8, Voice: 0, Events: events}
}

// TestSineOscPlaysFixedFrequencyRegardlessOfNote mirrors TESTABLE SCENARIO
// 1's shape: a SINE_OSC with an explicit frequency gated by NoteOn must
// produce non-zero output independent of which note triggered it.
func TestSineOscPlaysFixedFrequencyRegardlessOfNote(t *testing.T) {
	d := newSineOscDSP()
	d.Prepare(48000, 64)
	d.SetParam(ParamSineFreq, 440)

	out := make([]float32, 8)
	silent := d.Process(ctxWithEvents(), nil, out)
	if !silent {
		t.Fatalf("expected silence before any NoteOn")
	}

	out = make([]float32, 8)
	silent = d.Process(ctxWithEvents(node.Event{Kind: node.KindNoteOn, Note: 69, Velocity: 1}), nil, out)
	if silent {
		t.Fatalf("expected sound after NoteOn")
	}
	anyNonZero := false
	for _, v := range out {
		if v != 0 {
			anyNonZero = true
		}
	}
	if !anyNonZero {
		t.Fatalf("expected non-zero samples after NoteOn, got %v", out)
	}

	silent = d.Process(ctxWithEvents(node.Event{Kind: node.KindNoteOff, Note: 69}), nil, out)
	if !silent {
		t.Fatalf("expected silence after NoteOff")
	}
}

// TestADSREnvGatesInputAcrossStages verifies the envelope rises toward the
// input's level on Trigger and decays to zero well after Release, the shape
// of TESTABLE SCENARIO 2's amplitude assertions.
func TestADSREnvGatesInputAcrossStages(t *testing.T) {
	d := newADSREnvDSP()
	d.Prepare(48000, 512)
	d.SetParam(ParamADSRAttack, 0.001)
	d.SetParam(ParamADSRDecay, 0.001)
	d.SetParam(ParamADSRSustain, 0.5)
	d.SetParam(ParamADSRRelease, 0.001)

	in := make([]float32, 512)
	for i := range in {
		in[i] = 1
	}
	out := make([]float32, 512)

	silent := d.Process(ctxWithEvents(node.Event{Kind: node.KindNoteOn}), [][]float32{in}, out)
	if silent {
		t.Fatalf("expected sound while the envelope is active")
	}
	if out[len(out)-1] < 0.4 {
		t.Fatalf("expected the envelope to have settled near sustain by the end of the block, got %v", out[len(out)-1])
	}

	silent = d.Process(ctxWithEvents(node.Event{Kind: node.KindNoteOff}), [][]float32{in}, out)
	if !silent {
		t.Fatalf("expected the envelope to have fully released within one more block")
	}
}

// TestFilterLPProducesFiniteOutput exercises the float32/float64 boundary
// and confirms the filter never emits non-finite samples on a simple
// impulse-like input.
func TestFilterLPProducesFiniteOutput(t *testing.T) {
	d := newFilterLPDSP()
	d.Prepare(48000, 64)
	d.SetParam(ParamFilterCutoff, 1000)
	d.SetParam(ParamFilterQ, 0.707)

	in := make([]float32, 128)
	in[0], in[1] = 1, 1
	out := make([]float32, 128)
	d.Process(ctxWithEvents(), [][]float32{in}, out)
	for i, v := range out {
		if math.IsNaN(float64(v)) || math.IsInf(float64(v), 0) {
			t.Fatalf("expected finite output, got out[%d]=%v", i, v)
		}
	}
}

// TestDelayEchoesAfterConfiguredTime checks that a short impulse produces
// energy later in the buffer, proving the feedback delay line is wired and
// not a silent passthrough.
func TestDelayEchoesAfterConfiguredTime(t *testing.T) {
	d := newDelayDSP()
	d.Prepare(48000, 4096)
	d.SetParam(ParamDelayTime, 0.01) // 480 samples at 48kHz
	d.SetParam(ParamDelayFeedback, 0.5)
	d.SetParam(ParamDelayMix, 1.0)

	frames := 4096
	in := make([]float32, frames*2)
	in[0], in[1] = 1, 1
	out := make([]float32, frames*2)
	d.Process(ctxWithEvents(), [][]float32{in}, out)

	anyLater := false
	for i := 600 * 2; i < len(out); i++ {
		if out[i] != 0 {
			anyLater = true
			break
		}
	}
	if !anyLater {
		t.Fatalf("expected the delayed impulse to reappear later in the block")
	}
}

// TestAudioPlayerStartStopAndSilence verifies LoadAudio/StartAudio/
// StopAudio through the node.AudioPlayer capability and the ordinary
// node.DSP Process path together.
func TestAudioPlayerStartStopAndSilence(t *testing.T) {
	d := newAudioPlayerDSP().(*audioPlayerDSP)
	d.Prepare(48000, 64)

	samples := make([]float32, 16)
	for i := range samples {
		samples[i] = 1
	}
	d.LoadAudio(node.AudioHandle{ID: 7, SampleRate: 48000, Channels: 1, Samples: samples})

	out := make([]float32, 8*2)
	silent := d.Process(ctxWithEvents(), nil, out)
	if !silent {
		t.Fatalf("expected silence before StartAudio")
	}

	d.StartAudio(7, 0, 0, 1)
	out = make([]float32, 8*2)
	silent = d.Process(ctxWithEvents(), nil, out)
	if silent {
		t.Fatalf("expected sound after StartAudio")
	}

	d.StopAudio(7)
	out = make([]float32, 8*2)
	silent = d.Process(ctxWithEvents(), nil, out)
	if !silent {
		t.Fatalf("expected silence after StopAudio")
	}
}

func TestVolumeAppliesGain(t *testing.T) {
	d := newVolumeDSP()
	d.Prepare(48000, 8)
	d.SetParam(ParamVolumeGain, 0.5)
	in := []float32{1, 1, 1, 1}
	out := make([]float32, 4)
	d.Process(ctxWithEvents(), [][]float32{in}, out)
	for i, v := range out {
		if v != 0.5 {
			t.Fatalf("expected out[%d]=0.5, got %v", i, v)
		}
	}
}

func TestPanHardLeftSilencesRightChannel(t *testing.T) {
	d := newPanDSP()
	d.Prepare(48000, 8)
	d.SetParam(ParamPanPosition, -1)
	in := []float32{1, 1}
	out := make([]float32, 4)
	d.Process(ctxWithEvents(), [][]float32{in}, out)
	if out[1] != 0 || out[3] != 0 {
		t.Fatalf("expected silent right channel when panned hard left, got %v", out)
	}
	if out[0] == 0 || out[2] == 0 {
		t.Fatalf("expected non-zero left channel when panned hard left, got %v", out)
	}
}

// TestSawSquareTriangleOscGateLikeSine checks the three added oscillator
// waveforms share sineOscDSP's NoteOn/NoteOff gating rather than just its
// buffer-filling call.
func TestSawSquareTriangleOscGateLikeSine(t *testing.T) {
	descs := map[string]node.Descriptor{
		"saw":      sawOscDescriptor(),
		"square":   squareOscDescriptor(),
		"triangle": triangleOscDescriptor(),
	}
	for name, desc := range descs {
		d := desc.Factory()
		d.Prepare(48000, 64)
		d.SetParam(0, 220)

		out := make([]float32, 8)
		if silent := d.Process(ctxWithEvents(), nil, out); !silent {
			t.Fatalf("%s: expected silence before NoteOn", name)
		}

		out = make([]float32, 8)
		silent := d.Process(ctxWithEvents(node.Event{Kind: node.KindNoteOn, Note: 60, Velocity: 1}), nil, out)
		if silent {
			t.Fatalf("%s: expected sound after NoteOn", name)
		}

		silent = d.Process(ctxWithEvents(node.Event{Kind: node.KindNoteOff}), nil, out)
		if !silent {
			t.Fatalf("%s: expected silence after NoteOff", name)
		}
	}
}

// TestReverbProducesTailAfterImpulse checks REVERB leaves energy in the
// output well after a single-sample impulse, proving it's wired to the
// Freeverb algorithm and not a silent passthrough.
func TestReverbProducesTailAfterImpulse(t *testing.T) {
	d := newReverbDSP()
	d.Prepare(48000, 4096)
	d.SetParam(ParamReverbRoomSize, 0.8)
	d.SetParam(ParamReverbDamping, 0.3)
	d.SetParam(ParamReverbWet, 1.0)

	frames := 4096
	in := make([]float32, frames*2)
	in[0], in[1] = 1, 1
	out := make([]float32, frames*2)
	d.Process(ctxWithEvents(), [][]float32{in}, out)

	anyLater := false
	for i := 1000 * 2; i < len(out); i++ {
		if out[i] != 0 {
			anyLater = true
			break
		}
	}
	if !anyLater {
		t.Fatalf("expected reverb tail energy later in the block")
	}
}

// TestDistortionClipsLoudInputAndStaysFinite checks DISTORTION compresses
// an over-unity input toward the waveshaper's clip ceiling without ever
// producing non-finite samples.
func TestDistortionClipsLoudInputAndStaysFinite(t *testing.T) {
	d := newDistortionDSP()
	d.Prepare(48000, 8)
	d.SetParam(ParamDistortionDrive, 10)
	d.SetParam(ParamDistortionMix, 1)

	in := []float32{2, -2, 2, -2}
	out := make([]float32, 4)
	d.Process(ctxWithEvents(), [][]float32{in}, out)
	for i, v := range out {
		if math.IsNaN(float64(v)) || math.IsInf(float64(v), 0) {
			t.Fatalf("expected finite output, got out[%d]=%v", i, v)
		}
		if math.Abs(float64(v)) >= 2 {
			t.Fatalf("expected the waveshaper to compress the input, got out[%d]=%v", i, v)
		}
	}
}

// TestLFOFreeRunsWithoutNoteEvents confirms LFO produces a continuous
// modulation signal with no NoteOn gating, unlike the oscillators.
func TestLFOFreeRunsWithoutNoteEvents(t *testing.T) {
	d := newLFODSP()
	d.Prepare(48000, 64)
	d.SetParam(ParamLFORate, 4)
	d.SetParam(ParamLFODepth, 1)

	out := make([]float32, 64)
	silent := d.Process(ctxWithEvents(), nil, out)
	if silent {
		t.Fatalf("expected LFO output without any NoteOn event")
	}
}

func TestOutputPassesThroughUnchanged(t *testing.T) {
	d := newOutputDSP()
	d.Prepare(48000, 4)
	in := []float32{0.25, -0.25, 0.5, -0.5}
	out := make([]float32, 4)
	silent := d.Process(ctxWithEvents(), [][]float32{in}, out)
	if silent {
		t.Fatalf("expected non-silent passthrough")
	}
	for i := range in {
		if out[i] != in[i] {
			t.Fatalf("expected passthrough, out[%d]=%v want %v", i, out[i], in[i])
		}
	}
}
