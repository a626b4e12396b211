package main

import (
	"testing"

	"github.com/hyasynth/hyasynth/pkg/id"
	"github.com/hyasynth/hyasynth/pkg/reg"
)

// TestLifecycleCreatesPairedSessionAndEngineHandles checks session_create
// hands back two live, distinct handles and that session_destroy cleans up
// both.
func TestLifecycleCreatesPairedSessionAndEngineHandles(t *testing.T) {
	name := cstr("test session")
	defer freeCstr(name)

	var engineHandle uint32
	sessionHandle := session_create(name, &engineHandle)
	if sessionHandle == sentinel {
		t.Fatalf("expected a valid session handle")
	}
	if engineHandle == sentinel {
		t.Fatalf("expected a valid paired engine handle")
	}
	if _, ok := sessions.get(sessionHandle); !ok {
		t.Fatalf("expected session handle to be registered")
	}
	if _, ok := engines.get(engineHandle); !ok {
		t.Fatalf("expected engine handle to be registered")
	}

	session_destroy(sessionHandle)
	if _, ok := sessions.get(sessionHandle); ok {
		t.Fatalf("expected session handle to be removed after destroy")
	}
	if _, ok := engines.get(engineHandle); ok {
		t.Fatalf("expected paired engine handle to be removed after destroy")
	}
}

// TestRegistryCreateRegistersReferenceNodeTypes confirms registry_create
// wires up every type package reg registers, and registry_count/destroy
// round-trip.
func TestRegistryCreateRegistersReferenceNodeTypes(t *testing.T) {
	h := registry_create()
	if h == sentinel {
		t.Fatalf("expected a valid registry handle")
	}
	e, ok := registries.get(h)
	if !ok {
		t.Fatalf("expected registry handle to be registered")
	}
	want := e.reg.Count()
	if got := registry_count(h); got != int32(want) {
		t.Fatalf("registry_count = %d, want %d", got, want)
	}
	if _, ok := e.reg.Lookup(reg.TypeSineOsc); !ok {
		t.Fatalf("expected SINE_OSC to be registered")
	}

	registry_destroy(h)
	if registry_count(h) != -1 {
		t.Fatalf("expected registry_count on a destroyed handle to return -1")
	}
}

// TestGraphLifecycleEndToEnd exercises add/connect/set_output/compile/
// render/destroy through the exported functions exactly as a host would,
// reproducing TESTABLE SCENARIO 1's topology (SINE_OSC -> OUTPUT).
func TestGraphLifecycleEndToEnd(t *testing.T) {
	name := cstr("scenario1")
	defer freeCstr(name)

	var engineHandle uint32
	sessionHandle := session_create(name, &engineHandle)
	defer session_destroy(sessionHandle)

	registryHandle := registry_create()
	defer registry_destroy(registryHandle)

	oscID := session_add_node(sessionHandle, uint32(reg.TypeSineOsc), 0, 0)
	outID := session_add_node(sessionHandle, uint32(reg.TypeOutput), 100, 0)
	if oscID == sentinel || outID == sentinel {
		t.Fatalf("expected valid node ids, got osc=%d out=%d", oscID, outID)
	}
	if !session_connect(sessionHandle, oscID, 0, outID, 0) {
		t.Fatalf("expected session_connect to succeed")
	}
	session_set_output(sessionHandle, outID)

	if !engine_compile_graph(sessionHandle, engineHandle, registryHandle, 48000) {
		t.Fatalf("expected engine_compile_graph to succeed, last error: %s", lastErrorString(sessionHandle))
	}

	session_set_param(sessionHandle, oscID, uint32(reg.ParamSineFreq), 440)
	session_note_on(sessionHandle, 69, 1)
	engine_process_commands(engineHandle)

	const frames = 256
	out := make([]float32, frames*2)
	engine_render_interleaved(engineHandle, int32(frames), &out[0])

	anyNonZero := false
	for _, v := range out {
		if v != 0 {
			anyNonZero = true
			break
		}
	}
	if !anyNonZero {
		t.Fatalf("expected non-zero rendered output after NoteOn")
	}

	var snap ReadbackSnapshot
	if !session_get_readback(sessionHandle, &snap) {
		t.Fatalf("expected session_get_readback to succeed")
	}
	if snap.SamplePosition == 0 {
		t.Fatalf("expected sample position to advance after rendering")
	}
}

// TestArrangementLifecycleEndToEnd exercises the Arrangement group's
// exports together: a track and a scene-view launch of a clip with one
// note, plus a timeline placement, reproducing the shape of a host driving
// the session/scene and arrangement views through the FFI boundary alone.
func TestArrangementLifecycleEndToEnd(t *testing.T) {
	name := cstr("arrangement")
	defer freeCstr(name)
	trackName := cstr("lead")
	defer freeCstr(trackName)
	clipName := cstr("verse")
	defer freeCstr(clipName)
	sceneName := cstr("intro")
	defer freeCstr(sceneName)
	audioName := cstr("kick.wav")
	defer freeCstr(audioName)

	var engineHandle uint32
	sessionHandle := session_create(name, &engineHandle)
	defer session_destroy(sessionHandle)

	trackID := session_create_track(sessionHandle, trackName)
	if trackID == sentinel {
		t.Fatalf("expected a valid track id")
	}
	clipID := session_create_clip(sessionHandle, clipName, 4, true)
	if clipID == sentinel {
		t.Fatalf("expected a valid clip id")
	}
	sceneID := session_create_scene(sessionHandle, sceneName)
	if sceneID == sentinel {
		t.Fatalf("expected a valid scene id")
	}

	session_add_note_to_clip(sessionHandle, clipID, 0, 1, 60, 1)
	if n := len(mustSession(sessionHandle).sess.Arrangement.Clips[id.ClipID(clipID)].Notes); n != 1 {
		t.Fatalf("expected 1 note on the clip, got %d", n)
	}

	samples := make([]float32, 4)
	audioID := session_add_audio_to_pool(sessionHandle, audioName, 48000, 1, &samples[0], int32(len(samples)))
	if audioID == sentinel {
		t.Fatalf("expected a valid audio pool id")
	}
	session_add_audio_to_clip(sessionHandle, clipID, 1, 1, audioID, 0, 1)

	session_set_track_volume(sessionHandle, trackID, 0.5)
	session_set_track_pan(sessionHandle, trackID, -0.5)
	session_set_track_mute(sessionHandle, trackID, true)
	session_set_track_solo(sessionHandle, trackID, false)

	session_schedule_clip(sessionHandle, trackID, clipID, 8)
	session_set_clip_slot(sessionHandle, trackID, 0, clipID)
	session_launch_scene(sessionHandle, 0)
	session_launch_clip(sessionHandle, trackID, clipID)
	session_stop_clip(sessionHandle, trackID)
	session_stop_all_clips(sessionHandle)
	session_remove_clip_placement(sessionHandle, trackID, clipID, 8)

	session_clear_clip(sessionHandle, clipID)
	session_delete_clip(sessionHandle, clipID)
	session_delete_track(sessionHandle, trackID)

	_ = sceneID
}

func mustSession(sessionHandle uint32) *sessionEntry {
	se, _ := sessions.get(sessionHandle)
	return se
}

func lastErrorString(sessionHandle uint32) string {
	buf := make([]byte, 256)
	n := session_get_last_error(sessionHandle, bytePtrToCChar(&buf[0]), int32(len(buf)))
	return string(buf[:n])
}

// TestUnknownHandlesAreSafe checks every export tolerates a handle that was
// never allocated (or already destroyed) without panicking, per spec §7's
// "undefined operations must not crash" posture.
func TestUnknownHandlesAreSafe(t *testing.T) {
	const bogus = uint32(12345)

	session_remove_node(bogus, 0)
	session_disconnect(bogus, 0, 0)
	session_set_output(bogus, 0)
	session_clear_graph(bogus)
	session_set_param(bogus, 0, 0, 0)
	session_begin_gesture(bogus, 0, 0)
	session_end_gesture(bogus, 0, 0)
	session_play(bogus)
	session_stop(bogus)
	session_set_tempo(bogus, 120)
	session_seek(bogus, 0)
	session_note_on(bogus, 60, 1)
	session_note_off(bogus, 60)
	engine_prepare(bogus, 48000)
	engine_reset(bogus)

	session_delete_track(bogus, 0)
	session_set_track_target(bogus, 0, 0)
	session_set_track_volume(bogus, 0, 1)
	session_set_track_pan(bogus, 0, 0)
	session_set_track_mute(bogus, 0, true)
	session_set_track_solo(bogus, 0, true)
	session_delete_clip(bogus, 0)
	session_add_note_to_clip(bogus, 0, 0, 1, 60, 1)
	session_add_audio_to_clip(bogus, 0, 0, 1, 0, 0, 1)
	session_clear_clip(bogus, 0)
	session_launch_scene(bogus, 0)
	session_launch_clip(bogus, 0, 0)
	session_stop_clip(bogus, 0)
	session_stop_all_clips(bogus)
	session_schedule_clip(bogus, 0, 0, 0)
	session_remove_clip_placement(bogus, 0, 0, 0)
	session_set_clip_slot(bogus, 0, 0, 0)

	x := cstr("x")
	defer freeCstr(x)
	if session_create_track(bogus, x) != sentinel {
		t.Fatalf("expected session_create_track against an unknown session to return the sentinel")
	}
	if session_create_clip(bogus, x, 4, false) != sentinel {
		t.Fatalf("expected session_create_clip against an unknown session to return the sentinel")
	}
	if session_create_scene(bogus, x) != sentinel {
		t.Fatalf("expected session_create_scene against an unknown session to return the sentinel")
	}
	sample := float32(1)
	if session_add_audio_to_pool(bogus, x, 48000, 1, &sample, 1) != sentinel {
		t.Fatalf("expected session_add_audio_to_pool against an unknown session to return the sentinel")
	}
	if session_add_audio_to_pool(bogus, x, 48000, 1, nil, 0) != sentinel {
		t.Fatalf("expected session_add_audio_to_pool with no samples to return the sentinel")
	}

	if session_add_node(bogus, 1, 0, 0) != sentinel {
		t.Fatalf("expected session_add_node against an unknown session to return the sentinel")
	}
	if session_connect(bogus, 0, 0, 1, 0) {
		t.Fatalf("expected session_connect against an unknown session to fail")
	}
	if session_is_playing(bogus) {
		t.Fatalf("expected session_is_playing against an unknown session to be false")
	}
	if session_node_count(bogus) != -1 {
		t.Fatalf("expected session_node_count against an unknown session to return -1")
	}
	if session_get_output_node(bogus) != sentinel {
		t.Fatalf("expected session_get_output_node against an unknown session to return the sentinel")
	}
	if engine_process_commands(bogus) {
		t.Fatalf("expected engine_process_commands against an unknown engine to return false")
	}
	if engine_is_playing(bogus) {
		t.Fatalf("expected engine_is_playing against an unknown engine to be false")
	}
	if engine_get_active_voices(bogus) != 0 {
		t.Fatalf("expected engine_get_active_voices against an unknown engine to be 0")
	}

	out := make([]float32, 16)
	engine_render_interleaved(bogus, 8, &out[0])
	for _, v := range out {
		if v != 0 {
			t.Fatalf("expected engine_render_interleaved against an unknown engine to leave the buffer untouched")
		}
	}
}
