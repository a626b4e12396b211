// Package node defines the DSP node contract that the graph runtime executes,
// the per-voice/global polyphony tag, and the per-node event types the
// scheduler fans out each block. Concrete DSP bodies (oscillators, filters,
// reverbs, ...) are external collaborators - this package only specifies the
// interface they must satisfy (see package reg for reference implementations).
package node

// Polyphony tags whether a node type gets one shared instance (Global) or
// max_voices parallel instances, one per voice (PerVoice).
type Polyphony int

const (
	// Global nodes have a single instance shared across all voices (mixer,
	// output, bus effects).
	Global Polyphony = iota
	// PerVoice nodes are instantiated max_voices times, one per voice
	// (oscillators, envelopes).
	PerVoice
)

func (p Polyphony) String() string {
	if p == PerVoice {
		return "PerVoice"
	}
	return "Global"
}

// TypeID is a stable, public ABI constant identifying a node type.
type TypeID uint32

// ParamID is a stable, public ABI constant identifying a parameter within a
// node type's parameter space.
type ParamID uint32

// EventTarget selects which node instances an Event applies to.
type EventTarget int

const (
	// TargetGlobal addresses the node's single Global instance.
	TargetGlobal EventTarget = iota
	// TargetVoiceAll addresses every currently active voice's PerVoice
	// instance of the node.
	TargetVoiceAll
	// TargetVoice addresses one specific voice's PerVoice instance.
	TargetVoice
)

// EventKind enumerates the musical/control events a node may receive.
type EventKind int

const (
	KindNoteOn EventKind = iota
	KindNoteOff
	KindAudioStart
	KindAudioStop
	KindSetParam
)

// Event is one musical or control event scheduled for a node at a specific
// sample offset within the current block.
type Event struct {
	Kind         EventKind
	SampleOffset int
	Target       EventTarget
	Voice        int // meaningful only when Target == TargetVoice

	Note     uint8
	Velocity float32

	AudioID        uint32
	SourceOffsetS  float64
	Gain           float32

	ParamID ParamID
	Value   float32
}

// Context is handed to Process for one block. It carries the facts a node
// needs beyond its input/output buffers: timing, and the subset of this
// block's events that target this node (and, for PerVoice nodes, this
// voice).
type Context struct {
	SampleRate   float64
	BlockFrames  int
	BeatStart    float64
	BeatEnd      float64
	Voice        int // -1 for Global nodes
	Events       []Event
}

// DSP is the contract every node type's boxed runtime object must satisfy.
// Implementations must be safe to move to (and execute entirely on) the
// audio thread: no UI-thread-only handles, no allocation inside Process.
type DSP interface {
	// Prepare performs one-time allocation and reset for the given sample
	// rate and maximum block size. Called once at compile time, never from
	// inside the per-block audio path.
	Prepare(sampleRate float64, maxBlockSize int)

	// Process fills output for ctx.BlockFrames frames using inputs and
	// ctx.Events, and reports whether the result is silence (all zero) so
	// downstream Global consumers may skip reading it.
	Process(ctx *Context, inputs [][]float32, output []float32) (silent bool)

	// SetParam applies a parameter change. Called only from the audio
	// thread; implementations must not block or allocate.
	SetParam(param ParamID, value float32)

	// Reset clears internal state (envelopes, delay lines, ...). Called on
	// transport stop and on an explicit engine reset.
	Reset()
}

// AudioPlayer is an optional capability for node types that play sample
// data from the audio pool.
type AudioPlayer interface {
	StartAudio(audioID uint32, startFrame int, duration int, gain float32)
	StopAudio(audioID uint32)
	LoadAudio(handle AudioHandle)
}

// AudioHandle is a shared, immutable, reference-counted view of audio pool
// sample data. Many player nodes may hold the same handle without copying;
// the backing samples are released on the UI side only, never from the
// audio callback.
type AudioHandle struct {
	ID         uint32
	Name       string
	SampleRate float64
	Channels   int
	Samples    []float32 // interleaved if Channels > 1
}

// Factory produces a fresh DSP instance for the compiler. A type's factory
// is called once per Global instance and once per voice for PerVoice types.
type Factory func() DSP

// Descriptor is the registry's metadata for one node type.
type Descriptor struct {
	Type      TypeID
	Name      string
	Polyphony Polyphony

	// ChannelCount is the width of this node type's single output buffer:
	// 1 for mono, 2 for stereo (spec §3: "exactly one output buffer of its
	// declared channel count").
	ChannelCount int

	// InputPorts is the fixed number of input ports this node type
	// exposes, or VariablePorts for a type (only the synthetic Mixer node)
	// whose port count is decided per compile from the derived graph.
	InputPorts int

	Factory Factory
}

// VariablePorts marks a Descriptor whose input port count is decided at
// compile time rather than fixed by the type (only the synthetic Mixer
// node uses this).
const VariablePorts = -1
