package session

import (
	"github.com/hyasynth/hyasynth/pkg/bridge"
	"github.com/hyasynth/hyasynth/pkg/id"
	"github.com/hyasynth/hyasynth/pkg/node"
)

// Config are the fixed parameters chosen at session creation.
type Config struct {
	SampleRate          float64
	MaxVoices           int
	MaxBlockSize        int
	CommandRingCapacity int
	DiagRingCapacity    int
}

// DefaultConfig returns sensible defaults (48kHz, 512-frame blocks, 32
// voices, a 256-deep command ring).
func DefaultConfig() Config {
	return Config{SampleRate: 48000, MaxVoices: 32, MaxBlockSize: 512, CommandRingCapacity: 256, DiagRingCapacity: 256}
}

// Session is the UI-owned root of the declarative data model: name,
// format, transport, graph, and arrangement, plus the SessionHandle
// bridging it to a running engine.
type Session struct {
	Name   string
	Config Config

	Transport   *Transport
	Graph       *GraphDef
	Arrangement *Arrangement

	Handle *SessionHandle

	gestures map[ParamTarget]bool
}

// SessionHandle wraps the command producer and readback consumer that let
// the UI side talk to an EngineController without ever touching its
// memory directly (spec §2, §5).
type SessionHandle struct {
	commands *bridge.Producer
	readback *bridge.Readback
}

// NewSessionHandle wraps a command producer and the readback struct the
// engine publishes to.
func NewSessionHandle(commands *bridge.Producer, readback *bridge.Readback) *SessionHandle {
	return &SessionHandle{commands: commands, readback: readback}
}

// Readback returns the latest published engine state.
func (h *SessionHandle) Readback() bridge.Snapshot { return h.readback.Read() }

// Diag returns the diagnostic ring shared with the engine, for draining
// non-fatal runtime errors (spec §7).
func (h *SessionHandle) Diag() *bridge.DiagRing { return h.commands.Diag() }

// DroppedCommands returns how many commands have been dropped by ring
// overflow since session creation.
func (h *SessionHandle) DroppedCommands() uint64 { return h.commands.DroppedCount() }

// Create builds a new Session with a fresh, empty GraphDef/Arrangement/
// Transport. The caller wires Handle separately once the matching engine
// exists (see package engine), since the two are constructed together by
// whatever owns the audio callback.
func Create(name string, cfg Config) *Session {
	return &Session{
		Name:        name,
		Config:      cfg,
		Transport:   NewTransport(),
		Graph:       NewGraphDef(),
		Arrangement: NewArrangement(),
	}
}

// Destroy releases session-owned resources. Present for API parity with
// spec §6's session_destroy/engine_destroy pair; Go's GC does the rest.
func (s *Session) Destroy() { s.Handle = nil }

// --- UI-side convenience methods -----------------------------------------
//
// Open Question (spec §9): these update local Session state optimistically
// and fire-and-forget the equivalent Command - they do not roll back if
// the engine later rejects the command (e.g. AddNode against an exhausted
// registry). This keeps the UI thread non-blocking and matches how the
// rest of the bridge is built (no ack channel exists). A host that needs
// stronger consistency can poll Readback/diagnostics and reconcile by
// replaying its local log against a fresh engine state, which is exactly
// what SaveState/LoadState (state.go) round-trips.

// AddNode creates a node in the local GraphDef and enqueues the matching
// command.
func (s *Session) AddNode(t node.TypeID, x, y float64) id.NodeID {
	nid := s.Graph.AddNode(t, x, y)
	s.Handle.commands.Send(bridge.Command{Kind: bridge.CmdAddNode, Node: nid, Type: t, X: x, Y: y})
	return nid
}

// RemoveNode deletes a node locally and enqueues the matching command.
func (s *Session) RemoveNode(n id.NodeID) {
	s.Graph.RemoveNode(n)
	s.Handle.commands.Send(bridge.Command{Kind: bridge.CmdRemoveNode, Node: n})
}

// Connect binds src/dst locally and enqueues the matching command. The
// local error (if any) is informational only - the engine performs the
// authoritative check at compile time.
func (s *Session) Connect(src id.NodeID, srcPort int, dst id.NodeID, dstPort int) error {
	if err := s.Graph.Connect(src, srcPort, dst, dstPort); err != nil {
		return err
	}
	s.Handle.commands.Send(bridge.Command{Kind: bridge.CmdConnect, SrcNode: src, SrcPort: srcPort, DstNode: dst, DstPort: dstPort})
	return nil
}

// Disconnect unbinds dst/dstPort locally and enqueues the matching
// command.
func (s *Session) Disconnect(dst id.NodeID, dstPort int) {
	s.Graph.Disconnect(dst, dstPort)
	s.Handle.commands.Send(bridge.Command{Kind: bridge.CmdDisconnect, DstNode: dst, DstPort: dstPort})
}

// SetOutput designates n as the output node locally and enqueues the
// matching command.
func (s *Session) SetOutput(n id.NodeID) {
	s.Graph.SetOutput(n)
	s.Handle.commands.Send(bridge.Command{Kind: bridge.CmdSetOutput, Node: n})
}

// ClearGraph empties the local GraphDef and enqueues the matching command.
func (s *Session) ClearGraph() {
	s.Graph.ClearGraph()
	s.Handle.commands.Send(bridge.Command{Kind: bridge.CmdClearGraph})
}

// SetParam updates the local GraphDef's stored value and forwards the
// change to the live DSP instance; no recompile is required.
func (s *Session) SetParam(n id.NodeID, p node.ParamID, value float32) {
	s.Graph.SetParam(n, p, value)
	s.Handle.commands.Send(bridge.Command{Kind: bridge.CmdSetParam, Node: n, Param: p, Value: value})
}

// ParamTarget names one node/parameter pair, the unit a gesture spans.
type ParamTarget struct {
	Node  id.NodeID
	Param node.ParamID
}

// BeginGesture records that the UI has started a continuous parameter edit
// (e.g. a mouse-down drag on a knob), mirroring the teacher's automation-
// touch bookkeeping. It is a UI-side hint only: no command is sent, and a
// host that never calls it still gets correct SetParam behavior - this just
// lets a host group the SetParams between begin/end into one automation
// write. Safe to call redundantly; a target already mid-gesture is left as
// is.
func (s *Session) BeginGesture(n id.NodeID, p node.ParamID) {
	if s.gestures == nil {
		s.gestures = make(map[ParamTarget]bool)
	}
	s.gestures[ParamTarget{Node: n, Param: p}] = true
}

// EndGesture closes a gesture opened by BeginGesture. Ending a target that
// was never begun is a no-op.
func (s *Session) EndGesture(n id.NodeID, p node.ParamID) {
	delete(s.gestures, ParamTarget{Node: n, Param: p})
}

// InGesture reports whether target is currently between a BeginGesture and
// EndGesture call.
func (s *Session) InGesture(n id.NodeID, p node.ParamID) bool {
	return s.gestures[ParamTarget{Node: n, Param: p}]
}

// RecompileGraph forces a full recompile on the next block.
func (s *Session) RecompileGraph() {
	s.Handle.commands.Send(bridge.Command{Kind: bridge.CmdRecompileGraph})
}

// CreateTrack creates a track locally and enqueues the matching command;
// this is one of the "convenience methods that imply structural change"
// spec §4.4 calls out as auto-enqueuing RecompileGraph.
func (s *Session) CreateTrack(name string) id.TrackID {
	tid := s.Arrangement.CreateTrack(name)
	s.Handle.commands.Send(bridge.Command{Kind: bridge.CmdCreateTrack, Track: tid, Name: name})
	s.RecompileGraph()
	return tid
}

// DeleteTrack removes a track locally, enqueues the matching command, and
// forces a recompile.
func (s *Session) DeleteTrack(t id.TrackID) {
	s.Arrangement.DeleteTrack(t)
	s.Handle.commands.Send(bridge.Command{Kind: bridge.CmdDeleteTrack, Track: t})
	s.RecompileGraph()
}

// SetTrackTarget rewires a track's instrument root locally, enqueues the
// matching command, and forces a recompile (it changes the derived
// graph's Volume->Pan chain wiring).
func (s *Session) SetTrackTarget(t id.TrackID, target id.NodeID) {
	s.Arrangement.SetTrackTarget(t, target)
	s.Handle.commands.Send(bridge.Command{Kind: bridge.CmdSetTrackTarget, Track: t, Target: target})
	s.RecompileGraph()
}

// SetTrackVolume updates a track's volume locally and forwards a
// SetParam-equivalent command; no recompile required.
func (s *Session) SetTrackVolume(t id.TrackID, volume float32) {
	if tr, ok := s.Arrangement.Tracks[t]; ok {
		tr.Volume = volume
	}
	s.Handle.commands.Send(bridge.Command{Kind: bridge.CmdSetTrackVolume, Track: t, Value: volume})
}

// SetTrackPan updates a track's pan locally and forwards the command.
func (s *Session) SetTrackPan(t id.TrackID, pan float32) {
	if tr, ok := s.Arrangement.Tracks[t]; ok {
		tr.Pan = pan
	}
	s.Handle.commands.Send(bridge.Command{Kind: bridge.CmdSetTrackPan, Track: t, Value: pan})
}

// SetTrackMute updates a track's mute flag locally and forwards the
// command (updates the engine's emission filter, no recompile).
func (s *Session) SetTrackMute(t id.TrackID, mute bool) {
	if tr, ok := s.Arrangement.Tracks[t]; ok {
		tr.Mute = mute
	}
	s.Handle.commands.Send(bridge.Command{Kind: bridge.CmdSetTrackMute, Track: t, Bool: mute})
}

// SetTrackSolo updates a track's solo flag locally and forwards the
// command.
func (s *Session) SetTrackSolo(t id.TrackID, solo bool) {
	if tr, ok := s.Arrangement.Tracks[t]; ok {
		tr.Solo = solo
	}
	s.Handle.commands.Send(bridge.Command{Kind: bridge.CmdSetTrackSolo, Track: t, Bool: solo})
}

// Play starts the transport locally and forwards the command.
func (s *Session) Play() {
	s.Transport.Playing = true
	s.Handle.commands.Send(bridge.Command{Kind: bridge.CmdPlay})
}

// Stop halts the transport locally and forwards the command.
func (s *Session) Stop() {
	s.Transport.Playing = false
	s.Handle.commands.Send(bridge.Command{Kind: bridge.CmdStop})
}

// SetTempo updates bpm locally and forwards the command; it takes effect
// at the engine's next block boundary (spec §4.3).
func (s *Session) SetTempo(bpm float64) {
	s.Transport.BPM = bpm
	s.Handle.commands.Send(bridge.Command{Kind: bridge.CmdSetTempo, BPM: bpm})
}

// Seek moves the transport to a beat position locally and forwards the
// command.
func (s *Session) Seek(beat float64) {
	s.Transport.BeatPosition = beat
	s.Handle.commands.Send(bridge.Command{Kind: bridge.CmdSeek, Beat: beat})
}

// CreateClip creates a clip locally and forwards the command; no
// recompile required (arrangement reads happen next block per §4.4).
func (s *Session) CreateClip(name string, lengthBeats float64, loop bool) id.ClipID {
	cid := s.Arrangement.CreateClip(name, lengthBeats, loop)
	s.Handle.commands.Send(bridge.Command{Kind: bridge.CmdCreateClip, Clip: cid, Name: name, LengthBeats: lengthBeats, Loop: loop})
	return cid
}

// DeleteClip removes a clip locally and forwards the command.
func (s *Session) DeleteClip(c id.ClipID) {
	s.Arrangement.DeleteClip(c)
	s.Handle.commands.Send(bridge.Command{Kind: bridge.CmdDeleteClip, Clip: c})
}

// AddNote appends a note locally and forwards the command.
func (s *Session) AddNote(c id.ClipID, n NoteEvent) {
	s.Arrangement.AddNote(c, n)
	s.Handle.commands.Send(bridge.Command{Kind: bridge.CmdAddNote, Clip: c, Note: bridge.NoteEventPayload{
		StartBeat: n.StartBeat, DurationBeat: n.DurationBeat, Note: n.Note, Velocity: n.Velocity,
	}})
}

// AddAudioToClip appends an audio region locally and forwards the
// command.
func (s *Session) AddAudioToClip(c id.ClipID, region AudioRegion) {
	s.Arrangement.AddAudioToClip(c, region)
	s.Handle.commands.Send(bridge.Command{Kind: bridge.CmdAddAudioToClip, Clip: c, AudioRegion: bridge.AudioRegionPayload{
		StartBeat: region.StartBeat, DurationBeat: region.DurationBeat, AudioID: region.AudioID,
		SourceOffsetSec: region.SourceOffsetSec, Gain: region.Gain,
	}})
}

// ClearClip clears a clip's contents locally and forwards the command.
func (s *Session) ClearClip(c id.ClipID) {
	s.Arrangement.ClearClip(c)
	s.Handle.commands.Send(bridge.Command{Kind: bridge.CmdClearClip, Clip: c})
}

// LaunchScene enqueues a scene launch; session-view transitions are
// entirely engine-side state, so there is no local mirror to update.
func (s *Session) LaunchScene(sceneIndex int) {
	s.Handle.commands.Send(bridge.Command{Kind: bridge.CmdLaunchScene, Scene: sceneIndex})
}

// LaunchClip enqueues a single-track clip launch.
func (s *Session) LaunchClip(t id.TrackID, c id.ClipID) {
	s.Handle.commands.Send(bridge.Command{Kind: bridge.CmdLaunchClip, Track: t, Clip: c})
}

// StopClip enqueues a stop for one track's session-view clip.
func (s *Session) StopClip(t id.TrackID) {
	s.Handle.commands.Send(bridge.Command{Kind: bridge.CmdStopClip, Track: t})
}

// StopAllClips enqueues a stop for every track's session-view clip.
func (s *Session) StopAllClips() {
	s.Handle.commands.Send(bridge.Command{Kind: bridge.CmdStopAllClips})
}

// ScheduleClip places a clip on the timeline locally and forwards the
// command.
func (s *Session) ScheduleClip(t id.TrackID, c id.ClipID, startBeat float64) {
	s.Arrangement.ScheduleClip(t, c, startBeat)
	s.Handle.commands.Send(bridge.Command{Kind: bridge.CmdScheduleClip, Track: t, Clip: c, Beat: startBeat})
}

// RemoveClipPlacement removes a timeline placement locally and forwards
// the command.
func (s *Session) RemoveClipPlacement(t id.TrackID, c id.ClipID, startBeat float64) {
	s.Arrangement.RemoveClipPlacement(t, c, startBeat)
	s.Handle.commands.Send(bridge.Command{Kind: bridge.CmdRemoveClipPlacement, Track: t, Clip: c, Beat: startBeat})
}

// SetClipSlot binds a clip to a scene/track slot locally and forwards the
// command (bulk session-view editing like "set_clip_slot").
func (s *Session) SetClipSlot(t id.TrackID, sceneIndex int, c id.ClipID) {
	s.Arrangement.SetClipSlot(t, sceneIndex, c)
	s.Handle.commands.Send(bridge.Command{Kind: bridge.CmdSetClipSlot, Track: t, Scene: sceneIndex, Clip: c})
}

// CreateScene creates a scene (a column in the clip-slot grid) locally and
// enqueues the matching command. No recompile required - a scene is pure
// session-view bookkeeping with no effect on the compiled graph.
func (s *Session) CreateScene(name string) id.SceneID {
	sid := s.Arrangement.CreateScene(name)
	s.Handle.commands.Send(bridge.Command{Kind: bridge.CmdCreateScene, SceneID: sid, Name: name})
	return sid
}

// AddAudioToPool registers sample data in the shared audio pool locally and
// enqueues the matching command. Forces a recompile: the graph compiler
// only hydrates AudioPlayer node instances from the audio pool at compile
// time (spec §4.1 item 7), so an already-placed player node needs one to
// see a newly added entry.
func (s *Session) AddAudioToPool(name string, sampleRate float64, channels int, samples []float32) id.AudioID {
	aid := s.Arrangement.AudioPool.Add(name, sampleRate, channels, samples)
	s.Handle.commands.Send(bridge.Command{Kind: bridge.CmdAddAudioToPool, AudioID: aid, AudioEntry: bridge.AudioPoolPayload{
		Name: name, SampleRate: sampleRate, Channels: channels, Samples: samples,
	}})
	s.RecompileGraph()
	return aid
}

// NoteOn injects an immediate live note-on at sample offset 0.
func (s *Session) NoteOn(note uint8, velocity float32) {
	s.Handle.commands.Send(bridge.Command{Kind: bridge.CmdNoteOn, Note: bridge.NoteEventPayload{Note: note, Velocity: velocity}})
}

// NoteOff injects an immediate live note-off.
func (s *Session) NoteOff(note uint8) {
	s.Handle.commands.Send(bridge.Command{Kind: bridge.CmdNoteOff, Note: bridge.NoteEventPayload{Note: note}})
}
