// Package main implements the C-ABI surface of spec §6: every
// session_*/engine_*/registry_* entry point a host embeds against, built
// as a cgo c-shared/c-archive library. Unlike the teacher's VST3 cgo
// bridge (pkg/plugin, pkg/vst3), which depends on Steinberg SDK headers
// never present in this tree, every exported function here uses only
// plain scalar and pointer types cgo can translate on its own - no C
// headers to include, no missing dependency to work around.
//
// The handle-table idiom (a map guarded by a mutex, keyed by a
// monotonically increasing counter) is adapted from the teacher's
// pkg/plugin/wrapper.go component registry, generalized with a generic
// handleTable and switched from uintptr to uint32 handles so the sentinel
// convention matches pkg/id.Max across the whole boundary: a MAX return
// value means "failed", exactly as spec §6's "NodeId|MAX" already implies
// for session_add_node.
package main

import "C"

import (
	"errors"
	"sync"
	"unsafe"

	"github.com/hyasynth/hyasynth/internal/lasterror"
	"github.com/hyasynth/hyasynth/pkg/bridge"
	"github.com/hyasynth/hyasynth/pkg/engine"
	"github.com/hyasynth/hyasynth/pkg/id"
	"github.com/hyasynth/hyasynth/pkg/node"
	"github.com/hyasynth/hyasynth/pkg/reg"
	"github.com/hyasynth/hyasynth/pkg/session"
)

// sentinel is the collapsed "absent"/"failed" return value for every
// handle and NodeId this boundary hands back, per spec §7.
const sentinel = uint32(id.Max)

// errs is the side-band last-error store keyed by session handle, for a
// host that wants more than a sentinel after a false/MAX return.
var errs = lasterror.New()

// handleTable is a concurrency-safe handle->value map with a monotonically
// increasing uint32 counter, the pattern every *_create export below uses.
type handleTable[T any] struct {
	mu   sync.RWMutex
	next uint32
	m    map[uint32]*T
}

func newHandleTable[T any]() *handleTable[T] {
	return &handleTable[T]{m: make(map[uint32]*T)}
}

func (t *handleTable[T]) add(v *T) uint32 {
	t.mu.Lock()
	defer t.mu.Unlock()
	for {
		h := t.next
		t.next++
		if h == sentinel {
			continue // never hand out the sentinel as a real handle
		}
		t.m[h] = v
		return h
	}
}

func (t *handleTable[T]) get(h uint32) (*T, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	v, ok := t.m[h]
	return v, ok
}

func (t *handleTable[T]) remove(h uint32) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.m, h)
}

// registryEntry wraps one node.Registry. A host may load several (e.g. one
// per plugin format variant); registry_create always returns the
// reference node palette from package reg, since nothing else in this
// tree has node types to offer.
type registryEntry struct {
	reg *node.Registry
}

// sessionEntry pairs a UI-owned session.Session with the bridge channel
// endpoints its paired engine handle shares.
type sessionEntry struct {
	sess     *session.Session
	commands *bridge.Producer
	drain    *bridge.Consumer
	readback *bridge.Readback
	engine   uint32
}

// engineEntry wraps the audio-side Controller. ctrl is nil until
// engine_compile_graph succeeds at least once - every engine_* export
// below that touches ctrl must check for nil, since a host is free to
// call engine_render before ever compiling (spec §7: undefined operations
// against an uncompiled engine must not crash).
type engineEntry struct {
	session uint32
	ctrl    *engine.Controller
	cfg     session.Config
	scratch []float32
}

var (
	registries = newHandleTable[registryEntry]()
	sessions   = newHandleTable[sessionEntry]()
	engines    = newHandleTable[engineEntry]()
)

// --- Lifecycle ---------------------------------------------------------

//export registry_create
func registry_create() uint32 {
	r := node.NewRegistry()
	if err := reg.Register(r); err != nil {
		return sentinel
	}
	return registries.add(&registryEntry{reg: r})
}

//export registry_destroy
func registry_destroy(handle uint32) {
	registries.remove(handle)
}

//export registry_count
func registry_count(handle uint32) int32 {
	e, ok := registries.get(handle)
	if !ok {
		return -1
	}
	return int32(e.reg.Count())
}

//export session_create
func session_create(name *C.char, outEngine *uint32) uint32 {
	cfg := session.DefaultConfig()
	sess := session.Create(C.GoString(name), cfg)
	commands, drain := bridge.NewChannel(cfg.CommandRingCapacity, cfg.DiagRingCapacity)
	readback := bridge.NewReadback()
	sess.Handle = session.NewSessionHandle(commands, readback)

	se := &sessionEntry{sess: sess, commands: commands, drain: drain, readback: readback}
	sessionHandle := sessions.add(se)

	ee := &engineEntry{session: sessionHandle, cfg: cfg}
	engineHandle := engines.add(ee)
	se.engine = engineHandle

	if outEngine != nil {
		*outEngine = engineHandle
	}
	return sessionHandle
}

//export session_destroy
func session_destroy(sessionHandle uint32) {
	if se, ok := sessions.get(sessionHandle); ok {
		engines.remove(se.engine)
	}
	sessions.remove(sessionHandle)
	errs.Clear(sessionHandle)
}

//export engine_destroy
func engine_destroy(engineHandle uint32) {
	engines.remove(engineHandle)
}

// --- Graph --------------------------------------------------------------

//export session_add_node
func session_add_node(sessionHandle uint32, typeID uint32, x, y float64) uint32 {
	se, ok := sessions.get(sessionHandle)
	if !ok {
		return sentinel
	}
	nid := se.sess.AddNode(node.TypeID(typeID), x, y)
	return uint32(nid)
}

//export session_remove_node
func session_remove_node(sessionHandle uint32, nodeID uint32) {
	if se, ok := sessions.get(sessionHandle); ok {
		se.sess.RemoveNode(id.NodeID(nodeID))
	}
}

//export session_connect
func session_connect(sessionHandle uint32, srcNode uint32, srcPort int32, dstNode uint32, dstPort int32) bool {
	se, ok := sessions.get(sessionHandle)
	if !ok {
		return false
	}
	err := se.sess.Connect(id.NodeID(srcNode), int(srcPort), id.NodeID(dstNode), int(dstPort))
	errs.Set(sessionHandle, err)
	return err == nil
}

//export session_disconnect
func session_disconnect(sessionHandle uint32, dstNode uint32, dstPort int32) {
	if se, ok := sessions.get(sessionHandle); ok {
		se.sess.Disconnect(id.NodeID(dstNode), int(dstPort))
	}
}

//export session_set_output
func session_set_output(sessionHandle uint32, nodeID uint32) {
	if se, ok := sessions.get(sessionHandle); ok {
		se.sess.SetOutput(id.NodeID(nodeID))
	}
}

//export session_clear_graph
func session_clear_graph(sessionHandle uint32) {
	if se, ok := sessions.get(sessionHandle); ok {
		se.sess.ClearGraph()
	}
}

// --- Params ---------------------------------------------------------------

//export session_set_param
func session_set_param(sessionHandle uint32, nodeID uint32, param uint32, value float32) {
	if se, ok := sessions.get(sessionHandle); ok {
		se.sess.SetParam(id.NodeID(nodeID), node.ParamID(param), value)
	}
}

//export session_begin_gesture
func session_begin_gesture(sessionHandle uint32, nodeID uint32, param uint32) {
	if se, ok := sessions.get(sessionHandle); ok {
		se.sess.BeginGesture(id.NodeID(nodeID), node.ParamID(param))
	}
}

//export session_end_gesture
func session_end_gesture(sessionHandle uint32, nodeID uint32, param uint32) {
	if se, ok := sessions.get(sessionHandle); ok {
		se.sess.EndGesture(id.NodeID(nodeID), node.ParamID(param))
	}
}

// --- Transport --------------------------------------------------------

//export session_play
func session_play(sessionHandle uint32) {
	if se, ok := sessions.get(sessionHandle); ok {
		se.sess.Play()
	}
}

//export session_stop
func session_stop(sessionHandle uint32) {
	if se, ok := sessions.get(sessionHandle); ok {
		se.sess.Stop()
	}
}

//export session_set_tempo
func session_set_tempo(sessionHandle uint32, bpm float64) {
	if se, ok := sessions.get(sessionHandle); ok {
		se.sess.SetTempo(bpm)
	}
}

//export session_seek
func session_seek(sessionHandle uint32, beat float64) {
	if se, ok := sessions.get(sessionHandle); ok {
		se.sess.Seek(beat)
	}
}

// --- MIDI ---------------------------------------------------------------

//export session_note_on
func session_note_on(sessionHandle uint32, note uint8, velocity float32) {
	if se, ok := sessions.get(sessionHandle); ok {
		se.sess.NoteOn(note, velocity)
	}
}

//export session_note_off
func session_note_off(sessionHandle uint32, note uint8) {
	if se, ok := sessions.get(sessionHandle); ok {
		se.sess.NoteOff(note)
	}
}

// --- Arrangement ----------------------------------------------------------
//
// Every export below is a thin wrap of an existing pkg/session.Session
// method (see session.go); none of this group touches the audio thread
// directly - it mutates the UI-owned Session and enqueues the matching
// bridge.Command the same way the Graph/Params/Transport groups above do.

//export session_create_track
func session_create_track(sessionHandle uint32, name *C.char) uint32 {
	se, ok := sessions.get(sessionHandle)
	if !ok {
		return sentinel
	}
	return uint32(se.sess.CreateTrack(C.GoString(name)))
}

//export session_delete_track
func session_delete_track(sessionHandle uint32, trackID uint32) {
	if se, ok := sessions.get(sessionHandle); ok {
		se.sess.DeleteTrack(id.TrackID(trackID))
	}
}

//export session_set_track_target
func session_set_track_target(sessionHandle uint32, trackID, nodeID uint32) {
	if se, ok := sessions.get(sessionHandle); ok {
		se.sess.SetTrackTarget(id.TrackID(trackID), id.NodeID(nodeID))
	}
}

//export session_set_track_volume
func session_set_track_volume(sessionHandle uint32, trackID uint32, volume float32) {
	if se, ok := sessions.get(sessionHandle); ok {
		se.sess.SetTrackVolume(id.TrackID(trackID), volume)
	}
}

//export session_set_track_pan
func session_set_track_pan(sessionHandle uint32, trackID uint32, pan float32) {
	if se, ok := sessions.get(sessionHandle); ok {
		se.sess.SetTrackPan(id.TrackID(trackID), pan)
	}
}

//export session_set_track_mute
func session_set_track_mute(sessionHandle uint32, trackID uint32, mute bool) {
	if se, ok := sessions.get(sessionHandle); ok {
		se.sess.SetTrackMute(id.TrackID(trackID), mute)
	}
}

//export session_set_track_solo
func session_set_track_solo(sessionHandle uint32, trackID uint32, solo bool) {
	if se, ok := sessions.get(sessionHandle); ok {
		se.sess.SetTrackSolo(id.TrackID(trackID), solo)
	}
}

//export session_create_clip
func session_create_clip(sessionHandle uint32, name *C.char, lengthBeats float64, loop bool) uint32 {
	se, ok := sessions.get(sessionHandle)
	if !ok {
		return sentinel
	}
	return uint32(se.sess.CreateClip(C.GoString(name), lengthBeats, loop))
}

//export session_delete_clip
func session_delete_clip(sessionHandle uint32, clipID uint32) {
	if se, ok := sessions.get(sessionHandle); ok {
		se.sess.DeleteClip(id.ClipID(clipID))
	}
}

//export session_add_note_to_clip
func session_add_note_to_clip(sessionHandle uint32, clipID uint32, startBeat, durationBeat float64, note uint8, velocity float32) {
	if se, ok := sessions.get(sessionHandle); ok {
		se.sess.AddNote(id.ClipID(clipID), session.NoteEvent{
			StartBeat: startBeat, DurationBeat: durationBeat, Note: note, Velocity: velocity,
		})
	}
}

//export session_add_audio_to_clip
func session_add_audio_to_clip(sessionHandle uint32, clipID uint32, startBeat, durationBeat float64, audioID uint32, sourceOffsetSec float64, gain float32) {
	if se, ok := sessions.get(sessionHandle); ok {
		se.sess.AddAudioToClip(id.ClipID(clipID), session.AudioRegion{
			StartBeat: startBeat, DurationBeat: durationBeat, AudioID: id.AudioID(audioID),
			SourceOffsetSec: sourceOffsetSec, Gain: gain,
		})
	}
}

//export session_clear_clip
func session_clear_clip(sessionHandle uint32, clipID uint32) {
	if se, ok := sessions.get(sessionHandle); ok {
		se.sess.ClearClip(id.ClipID(clipID))
	}
}

//export session_create_scene
func session_create_scene(sessionHandle uint32, name *C.char) uint32 {
	se, ok := sessions.get(sessionHandle)
	if !ok {
		return sentinel
	}
	return uint32(se.sess.CreateScene(C.GoString(name)))
}

// session_add_audio_to_pool copies samples (interleaved if channels > 1)
// into a Go-owned slice before handing it to the pool: the pool's contract
// is shared, immutable sample data outliving this call, which caller-owned
// C memory cannot guarantee.
//
//export session_add_audio_to_pool
func session_add_audio_to_pool(sessionHandle uint32, name *C.char, sampleRate float64, channels int32, samples *float32, sampleCount int32) uint32 {
	se, ok := sessions.get(sessionHandle)
	if !ok || samples == nil || sampleCount <= 0 {
		return sentinel
	}
	src := unsafe.Slice(samples, int(sampleCount))
	owned := make([]float32, len(src))
	copy(owned, src)
	return uint32(se.sess.AddAudioToPool(C.GoString(name), sampleRate, int(channels), owned))
}

//export session_launch_scene
func session_launch_scene(sessionHandle uint32, sceneIndex int32) {
	if se, ok := sessions.get(sessionHandle); ok {
		se.sess.LaunchScene(int(sceneIndex))
	}
}

//export session_launch_clip
func session_launch_clip(sessionHandle uint32, trackID, clipID uint32) {
	if se, ok := sessions.get(sessionHandle); ok {
		se.sess.LaunchClip(id.TrackID(trackID), id.ClipID(clipID))
	}
}

//export session_stop_clip
func session_stop_clip(sessionHandle uint32, trackID uint32) {
	if se, ok := sessions.get(sessionHandle); ok {
		se.sess.StopClip(id.TrackID(trackID))
	}
}

//export session_stop_all_clips
func session_stop_all_clips(sessionHandle uint32) {
	if se, ok := sessions.get(sessionHandle); ok {
		se.sess.StopAllClips()
	}
}

//export session_schedule_clip
func session_schedule_clip(sessionHandle uint32, trackID, clipID uint32, startBeat float64) {
	if se, ok := sessions.get(sessionHandle); ok {
		se.sess.ScheduleClip(id.TrackID(trackID), id.ClipID(clipID), startBeat)
	}
}

//export session_remove_clip_placement
func session_remove_clip_placement(sessionHandle uint32, trackID, clipID uint32, startBeat float64) {
	if se, ok := sessions.get(sessionHandle); ok {
		se.sess.RemoveClipPlacement(id.TrackID(trackID), id.ClipID(clipID), startBeat)
	}
}

//export session_set_clip_slot
func session_set_clip_slot(sessionHandle uint32, trackID uint32, sceneIndex int32, clipID uint32) {
	if se, ok := sessions.get(sessionHandle); ok {
		se.sess.SetClipSlot(id.TrackID(trackID), int(sceneIndex), id.ClipID(clipID))
	}
}

// --- Readback -----------------------------------------------------------

// ReadbackSnapshot mirrors spec §6's session_get_readback result
// one-for-one; cgo emits a matching C struct in the generated header since
// every field is a plain fixed-width scalar.
type ReadbackSnapshot struct {
	SamplePosition uint64
	BeatPosition   float64
	CPULoad        float32
	ActiveVoices   int32
	PeakLeft       float32
	PeakRight      float32
	Running        bool
}

//export session_get_readback
func session_get_readback(sessionHandle uint32, out *ReadbackSnapshot) bool {
	se, ok := sessions.get(sessionHandle)
	if !ok || out == nil {
		return false
	}
	snap := se.readback.Read()
	*out = ReadbackSnapshot{
		SamplePosition: snap.SamplePosition,
		BeatPosition:   snap.BeatPosition,
		CPULoad:        snap.CPULoad,
		ActiveVoices:   int32(snap.ActiveVoices),
		PeakLeft:       snap.PeakLeft,
		PeakRight:      snap.PeakRight,
		Running:        snap.Running,
	}
	return true
}

//export session_is_playing
func session_is_playing(sessionHandle uint32) bool {
	se, ok := sessions.get(sessionHandle)
	return ok && se.sess.Transport.Playing
}

//export session_get_tempo
func session_get_tempo(sessionHandle uint32) float64 {
	se, ok := sessions.get(sessionHandle)
	if !ok {
		return 0
	}
	return se.sess.Transport.BPM
}

//export session_node_count
func session_node_count(sessionHandle uint32) int32 {
	se, ok := sessions.get(sessionHandle)
	if !ok {
		return -1
	}
	return int32(len(se.sess.Graph.Nodes))
}

//export session_get_output_node
func session_get_output_node(sessionHandle uint32) uint32 {
	se, ok := sessions.get(sessionHandle)
	if !ok {
		return sentinel
	}
	return uint32(se.sess.Graph.OutputNode)
}

// session_get_last_error writes the last recorded error message for
// sessionHandle into the caller-owned buf (bufLen bytes, NUL-terminated)
// and returns the message's length excluding the NUL, truncating if buf
// is too small - the same caller-supplies-the-buffer convention the
// teacher's own string-returning exports use (C.strcpy into a
// fixed-size field) rather than handing back a Go-allocated *C.char for
// the caller to free.
//
//export session_get_last_error
func session_get_last_error(sessionHandle uint32, buf *C.char, bufLen int32) int32 {
	msg := errs.Last(sessionHandle)
	if buf == nil || bufLen <= 0 {
		return int32(len(msg))
	}
	n := len(msg)
	if n > int(bufLen)-1 {
		n = int(bufLen) - 1
	}
	dst := unsafe.Slice((*byte)(unsafe.Pointer(buf)), bufLen)
	copy(dst, msg[:n])
	dst[n] = 0
	return int32(n)
}

// --- Engine (audio thread) -----------------------------------------------

//export engine_compile_graph
func engine_compile_graph(sessionHandle, engineHandle, registryHandle uint32, sampleRate float64) bool {
	se, ok1 := sessions.get(sessionHandle)
	ee, ok2 := engines.get(engineHandle)
	re, ok3 := registries.get(registryHandle)
	if !ok1 || !ok2 || !ok3 {
		errs.Set(sessionHandle, errors.New("ffi: unknown session, engine, or registry handle"))
		return false
	}
	ee.cfg.SampleRate = sampleRate
	ee.ctrl = engine.New(ee.cfg, re.reg, se.commands, se.drain, se.readback)
	ok := ee.ctrl.PlanCompiled()
	if !ok {
		errs.Set(sessionHandle, errors.New("ffi: initial graph compile failed"))
	}
	return ok
}

//export engine_prepare
func engine_prepare(engineHandle uint32, sampleRate float64) {
	if ee, ok := engines.get(engineHandle); ok && ee.ctrl != nil {
		ee.ctrl.Prepare(sampleRate)
	}
}

//export engine_reset
func engine_reset(engineHandle uint32) {
	if ee, ok := engines.get(engineHandle); ok && ee.ctrl != nil {
		ee.ctrl.ResetEngine()
	}
}

//export engine_process_commands
func engine_process_commands(engineHandle uint32) bool {
	ee, ok := engines.get(engineHandle)
	if !ok || ee.ctrl == nil {
		return false
	}
	return ee.ctrl.ProcessCommands()
}

// interleaved returns ee's reusable scratch buffer, sized frames*2,
// avoiding a per-call allocation on the audio thread the way the rest of
// the engine avoids allocating per block.
func (ee *engineEntry) interleaved(frames int) []float32 {
	need := frames * 2
	if cap(ee.scratch) < need {
		ee.scratch = make([]float32, need)
	}
	return ee.scratch[:need]
}

//export engine_render
func engine_render(engineHandle uint32, frames int32, left, right *float32) {
	ee, ok := engines.get(engineHandle)
	if !ok || ee.ctrl == nil || left == nil || right == nil || frames <= 0 {
		return
	}
	buf := ee.interleaved(int(frames))
	ee.ctrl.Render(buf, int(frames))

	leftOut := unsafe.Slice(left, int(frames))
	rightOut := unsafe.Slice(right, int(frames))
	for i := 0; i < int(frames); i++ {
		leftOut[i] = buf[i*2]
		rightOut[i] = buf[i*2+1]
	}
}

//export engine_render_interleaved
func engine_render_interleaved(engineHandle uint32, frames int32, out *float32) {
	ee, ok := engines.get(engineHandle)
	if !ok || ee.ctrl == nil || out == nil || frames <= 0 {
		return
	}
	buf := unsafe.Slice(out, int(frames)*2)
	ee.ctrl.Render(buf, int(frames))
}

//export engine_is_playing
func engine_is_playing(engineHandle uint32) bool {
	ee, ok := engines.get(engineHandle)
	return ok && ee.ctrl != nil && ee.ctrl.IsPlaying()
}

//export engine_get_tempo
func engine_get_tempo(engineHandle uint32) float64 {
	ee, ok := engines.get(engineHandle)
	if !ok || ee.ctrl == nil {
		return 0
	}
	return ee.ctrl.Tempo()
}

//export engine_get_active_voices
func engine_get_active_voices(engineHandle uint32) int32 {
	ee, ok := engines.get(engineHandle)
	if !ok || ee.ctrl == nil {
		return 0
	}
	return int32(ee.ctrl.ActiveVoiceCount())
}

func main() {}
