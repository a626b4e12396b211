// Package bridge implements the lock-free UI/audio boundary described in
// spec §4.4 and §5: a bounded single-producer/single-consumer command ring
// carrying value-type Commands from the UI side to the audio callback, an
// atomic Readback struct carrying meter state the other way, and a
// diagnostic ring the audio thread uses to report non-fatal runtime errors
// without blocking or allocating.
package bridge

import (
	"github.com/hyasynth/hyasynth/pkg/id"
	"github.com/hyasynth/hyasynth/pkg/node"
)

// Kind enumerates every command the UI side may send, matching the table
// in spec §4.4.
type Kind int

const (
	CmdAddNode Kind = iota
	CmdRemoveNode
	CmdConnect
	CmdDisconnect
	CmdSetOutput
	CmdClearGraph

	CmdSetParam

	CmdCreateTrack
	CmdDeleteTrack
	CmdSetTrackTarget
	CmdSetTrackVolume
	CmdSetTrackPan
	CmdSetTrackMute
	CmdSetTrackSolo

	CmdPlay
	CmdStop
	CmdSetTempo
	CmdSeek

	CmdCreateClip
	CmdDeleteClip
	CmdAddNote
	CmdAddAudioToClip
	CmdClearClip

	CmdLaunchScene
	CmdLaunchClip
	CmdStopClip
	CmdStopAllClips

	CmdScheduleClip
	CmdRemoveClipPlacement
	CmdSetClipSlot

	CmdCreateScene
	CmdAddAudioToPool

	CmdNoteOn
	CmdNoteOff

	CmdRecompileGraph
)

// structuralKinds is the set of commands that require a graph recompile,
// per the "Requires recompile" column of spec §4.4's command table.
var structuralKinds = map[Kind]bool{
	CmdAddNode:        true,
	CmdRemoveNode:     true,
	CmdConnect:        true,
	CmdDisconnect:     true,
	CmdSetOutput:      true,
	CmdClearGraph:     true,
	CmdCreateTrack:    true,
	CmdDeleteTrack:    true,
	CmdSetTrackTarget: true,
	CmdRecompileGraph: true,

	// AddAudioToPool is structural despite not touching GraphDef: the
	// compiler hydrates every AudioPlayer instance from the audio pool at
	// compile time (spec §4.1 item 7), so a new pool entry is invisible to
	// already-placed player nodes until the next recompile.
	CmdAddAudioToPool: true,
}

// IsStructural reports whether k requires a graph recompile before the
// next block.
func (k Kind) IsStructural() bool { return structuralKinds[k] }

// Command is a value-type command traveling UI -> audio. Only the fields
// relevant to Kind are populated; this mirrors the teacher's tagged-event
// style (pkg/midi.Event variants) collapsed into one struct so the ring
// buffer can store commands inline with zero heap allocation per send.
type Command struct {
	Kind Kind

	Node    id.NodeID
	Type    node.TypeID
	X, Y    float64
	SrcNode id.NodeID
	SrcPort int
	DstNode id.NodeID
	DstPort int

	Param node.ParamID
	Value float32

	Track      id.TrackID
	Target     id.NodeID
	Name       string
	Bool       bool

	BPM  float64
	Beat float64

	Clip        id.ClipID
	LengthBeats float64
	Loop        bool
	Note        NoteEventPayload
	AudioRegion AudioRegionPayload

	Scene   int
	SceneID id.SceneID

	AudioID    id.AudioID
	AudioEntry AudioPoolPayload

	Velocity float32
}

// NoteEventPayload carries AddNote's note data without depending on
// package session (commands must not import the UI-owned data model, to
// keep the dependency edge one-directional: session depends on bridge,
// not the reverse).
type NoteEventPayload struct {
	StartBeat    float64
	DurationBeat float64
	Note         uint8
	Velocity     float32
}

// AudioRegionPayload carries AddAudioToClip's region data.
type AudioRegionPayload struct {
	StartBeat       float64
	DurationBeat    float64
	AudioID         id.AudioID
	SourceOffsetSec float64
	Gain            float32
}

// AudioPoolPayload carries AddAudioToPool's sample data. Samples is shared,
// not copied, across this send - the UI side must treat it as read-only
// once sent, matching AudioPool's own "shared, immutable sample data"
// contract (spec §3, §9).
type AudioPoolPayload struct {
	Name       string
	SampleRate float64
	Channels   int
	Samples    []float32
}
