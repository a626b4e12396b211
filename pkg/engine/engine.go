// Package engine implements EngineController: the audio-side owner of the
// compiled graph, voice allocator, and clip playback (spec §2, §4). It
// drains bridge.Commands, applies them against its own mirrored
// session.GraphDef/session.Arrangement/session.Transport, recompiles when
// structural state changed, renders one block, and publishes readback.
// Nothing here runs on any thread but the audio callback.
package engine

import (
	"math"

	"github.com/hyasynth/hyasynth/pkg/bridge"
	"github.com/hyasynth/hyasynth/pkg/clip"
	"github.com/hyasynth/hyasynth/pkg/graph"
	"github.com/hyasynth/hyasynth/pkg/id"
	"github.com/hyasynth/hyasynth/pkg/node"
	"github.com/hyasynth/hyasynth/pkg/scheduler"
	"github.com/hyasynth/hyasynth/pkg/session"
	"github.com/hyasynth/hyasynth/pkg/voice"
)

// Controller is the real-time-safe audio engine. Create it alongside a
// session.Session sharing the same bridge channel; call RenderBlock once
// per audio callback invocation.
type Controller struct {
	cfg graph.Config
	reg *node.Registry

	commands *bridge.Producer
	drain    *bridge.Consumer
	readback *bridge.Readback

	graphDef  *session.GraphDef
	arr       *session.Arrangement
	transport *session.Transport

	plan       *graph.ExecutionPlan
	compileErr error

	playback *clip.Playback
	voices   *voice.Allocator

	// liveEvents accumulates this block's injected live NoteOn/NoteOff
	// (and transport-stop Reset) Events, always at sample offset 0.
	liveEvents []node.Event
}

// New builds a Controller sharing commands/readback with a session.Session
// created with the matching Config. The returned Controller holds the
// compiled plan of an empty graph.
func New(cfg session.Config, reg *node.Registry, commands *bridge.Producer, drain *bridge.Consumer, readback *bridge.Readback) *Controller {
	c := &Controller{
		cfg:       graph.Config{SampleRate: cfg.SampleRate, MaxBlockSize: cfg.MaxBlockSize, MaxVoices: cfg.MaxVoices},
		reg:       reg,
		commands:  commands,
		drain:     drain,
		readback:  readback,
		graphDef:  session.NewGraphDef(),
		arr:       session.NewArrangement(),
		transport: session.NewTransport(),
		playback:  clip.New(clip.DefaultQuantizeBeats),
		voices:    voice.NewAllocator(cfg.MaxVoices),
	}
	c.recompile()
	return c
}

// PlanCompiled reports whether the controller currently holds a compiled
// plan. False only if every compile attempt, including the very first, has
// failed (spec §7: "failed recompile leaves the previous graph in place").
func (c *Controller) PlanCompiled() bool { return c.plan != nil }

// recompile rebuilds the ExecutionPlan from the current mirrored
// GraphDef/Arrangement. On failure the previous plan (possibly nil, only
// on the first-ever compile) is left untouched and the audio thread keeps
// rendering with it. A successful recompile replaces every DSP instance
// but keeps the voice allocator, so a NoteOn drained in the same block as
// a structural command still reaches the new plan.
func (c *Controller) recompile() {
	plan, err := graph.Compile(c.graphDef, c.arr, c.reg, c.cfg)
	if err != nil {
		c.compileErr = err
		c.commands.Diag().Push(bridge.DiagEvent{Kind: bridge.DiagRecompileFailed, Detail: err.Error()})
		return
	}
	c.compileErr = nil
	c.plan = plan
}

// applyCommand mutates the mirrored session state for one drained Command,
// per the table in spec §4.4. Returns whether the change requires a
// recompile.
func (c *Controller) applyCommand(cmd bridge.Command) bool {
	switch cmd.Kind {
	case bridge.CmdAddNode:
		c.graphDef.PutNode(cmd.Node, session.NodeDef{Type: cmd.Type, X: cmd.X, Y: cmd.Y, Params: make(map[node.ParamID]float32)})
		return true
	case bridge.CmdRemoveNode:
		c.graphDef.RemoveNode(cmd.Node)
		return true
	case bridge.CmdConnect:
		c.graphDef.Connect(cmd.SrcNode, cmd.SrcPort, cmd.DstNode, cmd.DstPort)
		return true
	case bridge.CmdDisconnect:
		c.graphDef.Disconnect(cmd.DstNode, cmd.DstPort)
		return true
	case bridge.CmdSetOutput:
		c.graphDef.SetOutput(cmd.Node)
		return true
	case bridge.CmdClearGraph:
		c.graphDef.ClearGraph()
		return true
	case bridge.CmdRecompileGraph:
		return true

	case bridge.CmdSetParam:
		c.setParamLive(cmd.Node, cmd.Param, cmd.Value)
		return false

	case bridge.CmdCreateTrack:
		c.arr.Tracks[cmd.Track] = &session.Track{ID: cmd.Track, Name: cmd.Name, Volume: 1, Pan: 0, TargetNode: id.NoNode}
		return true
	case bridge.CmdDeleteTrack:
		c.arr.DeleteTrack(cmd.Track)
		return true
	case bridge.CmdSetTrackTarget:
		c.arr.SetTrackTarget(cmd.Track, cmd.Target)
		return true
	case bridge.CmdSetTrackVolume:
		if tr, ok := c.arr.Tracks[cmd.Track]; ok {
			tr.Volume = cmd.Value
		}
		return false
	case bridge.CmdSetTrackPan:
		if tr, ok := c.arr.Tracks[cmd.Track]; ok {
			tr.Pan = cmd.Value
		}
		return false
	case bridge.CmdSetTrackMute:
		if tr, ok := c.arr.Tracks[cmd.Track]; ok {
			tr.Mute = cmd.Bool
		}
		return false
	case bridge.CmdSetTrackSolo:
		if tr, ok := c.arr.Tracks[cmd.Track]; ok {
			tr.Solo = cmd.Bool
		}
		return false

	case bridge.CmdPlay:
		c.transport.Playing = true
		return false
	case bridge.CmdStop:
		c.transport.Playing = false
		c.liveEvents = append(c.liveEvents, c.voices.Reset()...)
		if c.plan != nil {
			c.plan.Reset()
		}
		return false
	case bridge.CmdSetTempo:
		c.transport.BPM = cmd.BPM
		return false
	case bridge.CmdSeek:
		c.transport.BeatPosition = cmd.Beat
		return false

	case bridge.CmdCreateClip:
		if _, ok := c.arr.Clips[cmd.Clip]; !ok {
			c.arr.Clips[cmd.Clip] = &session.ClipDef{ID: cmd.Clip, Name: cmd.Name, LengthBeats: cmd.LengthBeats, Loop: cmd.Loop}
		}
		return false
	case bridge.CmdDeleteClip:
		c.arr.DeleteClip(cmd.Clip)
		return false
	case bridge.CmdAddNote:
		c.arr.AddNote(cmd.Clip, session.NoteEvent{
			StartBeat: cmd.Note.StartBeat, DurationBeat: cmd.Note.DurationBeat, Note: cmd.Note.Note, Velocity: cmd.Note.Velocity,
		})
		return false
	case bridge.CmdAddAudioToClip:
		c.arr.AddAudioToClip(cmd.Clip, session.AudioRegion{
			StartBeat: cmd.AudioRegion.StartBeat, DurationBeat: cmd.AudioRegion.DurationBeat,
			AudioID: cmd.AudioRegion.AudioID, SourceOffsetSec: cmd.AudioRegion.SourceOffsetSec, Gain: cmd.AudioRegion.Gain,
		})
		return false
	case bridge.CmdClearClip:
		c.arr.ClearClip(cmd.Clip)
		return false

	case bridge.CmdLaunchScene:
		c.playback.LaunchScene(c.arr, cmd.Scene, c.transport.BeatPosition)
		return false
	case bridge.CmdLaunchClip:
		c.playback.LaunchClip(cmd.Track, cmd.Clip, c.transport.BeatPosition)
		return false
	case bridge.CmdStopClip:
		c.playback.StopClip(cmd.Track, c.transport.BeatPosition)
		return false
	case bridge.CmdStopAllClips:
		c.playback.StopAllClips(c.arr, c.transport.BeatPosition)
		return false

	case bridge.CmdScheduleClip:
		c.arr.ScheduleClip(cmd.Track, cmd.Clip, cmd.Beat)
		return false
	case bridge.CmdRemoveClipPlacement:
		c.arr.RemoveClipPlacement(cmd.Track, cmd.Clip, cmd.Beat)
		return false
	case bridge.CmdSetClipSlot:
		c.arr.SetClipSlot(cmd.Track, cmd.Scene, cmd.Clip)
		return false

	case bridge.CmdCreateScene:
		c.arr.Scenes[cmd.SceneID] = &session.Scene{ID: cmd.SceneID, Name: cmd.Name}
		return false
	case bridge.CmdAddAudioToPool:
		c.arr.AudioPool.Put(cmd.AudioID, cmd.AudioEntry.Name, cmd.AudioEntry.SampleRate, cmd.AudioEntry.Channels, cmd.AudioEntry.Samples)
		return true

	case bridge.CmdNoteOn:
		c.liveEvents = append(c.liveEvents, c.voices.NoteOn(cmd.Note.Note, cmd.Note.Velocity, 0)...)
		return false
	case bridge.CmdNoteOff:
		c.liveEvents = append(c.liveEvents, c.voices.NoteOff(cmd.Note.Note, 0)...)
		return false
	}
	return false
}

// setParamLive forwards a parameter change directly to the live DSP
// instance(s), per spec §4.4: no recompile. A missing node is reported to
// the diagnostic ring and otherwise ignored (spec §7: "failed SetParam is
// silently ignored").
func (c *Controller) setParamLive(n id.NodeID, p node.ParamID, value float32) {
	if c.plan == nil {
		return
	}
	rn, ok := c.plan.Lookup(n)
	if !ok {
		c.commands.Diag().Push(bridge.DiagEvent{Kind: bridge.DiagUnknownNodeID, Command: bridge.CmdSetParam, NodeID: uint32(n)})
		return
	}
	for _, inst := range rn.Instances {
		inst.SetParam(p, value)
	}
}

// Prepare changes the sample rate the engine compiles and runs DSP at,
// forcing a full recompile against the current graph (spec §6's
// engine_prepare). Every node's internal state starts fresh because the
// recompile builds new instances, and the voice pool is reset.
func (c *Controller) Prepare(sampleRate float64) {
	c.cfg.SampleRate = sampleRate
	c.recompile()
	c.voices = voice.NewAllocator(c.cfg.MaxVoices)
}

// ResetEngine clears every compiled node's internal state and the voice
// pool without recompiling (spec §6's engine_reset): the graph shape is
// unchanged, only runtime state (filter histories, envelope stages, voice
// assignments) is zeroed, the way a transport stop already does for voices
// via CmdStop.
func (c *Controller) ResetEngine() {
	if c.plan != nil {
		c.plan.Reset()
	}
	c.voices = voice.NewAllocator(c.cfg.MaxVoices)
	c.liveEvents = c.liveEvents[:0]
}

// ProcessCommands drains every queued Command, applying each against the
// mirrored session state, and recompiles once if any of them (or a prior
// overflow) required it. It returns whether a recompile was performed, per
// spec §6's engine_process_commands() -> needs_recompile. Callers that
// don't need this separated from rendering can keep using RenderBlock,
// which calls this directly.
func (c *Controller) ProcessCommands() bool {
	c.liveEvents = c.liveEvents[:0]
	needsRecompile := c.commands.ConsumePendingRecompile()
	c.drain.Drain(func(cmd bridge.Command) {
		if c.applyCommand(cmd) {
			needsRecompile = true
		}
	})
	if needsRecompile {
		c.recompile()
	}
	return needsRecompile
}

// IsPlaying reports the mirrored transport's running state (spec §6's
// engine_is_playing).
func (c *Controller) IsPlaying() bool { return c.transport.Playing }

// Tempo returns the mirrored transport's tempo in BPM (spec §6's
// engine_get_tempo).
func (c *Controller) Tempo() float64 { return c.transport.BPM }

// ActiveVoiceCount returns how many voice slots are currently in use (spec
// §6's engine_get_active_voices).
func (c *Controller) ActiveVoiceCount() int { return c.voices.ActiveVoiceCount() }

// RenderBlock drains commands, advances the transport and clip playback,
// materializes events, runs the compiled plan, writes interleaved stereo
// output into out (len >= blockFrames*2), and publishes readback. This is
// the entire per-block pipeline of spec §2's data-flow line; engine_render/
// engine_render_interleaved at the FFI boundary call Render directly once
// ProcessCommands has already been called separately.
func (c *Controller) RenderBlock(out []float32, blockFrames int) {
	c.ProcessCommands()
	c.Render(out, blockFrames)
}

// Render advances the transport and clip playback, materializes events,
// runs the compiled plan, writes interleaved stereo output into out, and
// publishes readback, without draining commands first. Split out of
// RenderBlock so the FFI boundary can expose engine_process_commands and
// engine_render as the two separate operations spec §6 names.
func (c *Controller) Render(out []float32, blockFrames int) {
	samplesPerBeat := scheduler.SamplesPerBeat(c.transport.BPM, c.cfg.SampleRate)
	blockStartBeat := c.transport.BeatPosition
	blockEndBeat := scheduler.BlockEndBeat(blockStartBeat, blockFrames, samplesPerBeat)

	var clipEvents []scheduler.ClipEvent
	if c.transport.Playing {
		c.playback.Sync(c.arr, blockStartBeat, blockEndBeat)
		clipEvents = c.playback.Materialize(c.arr, blockStartBeat, blockEndBeat)
	}
	scheduled := scheduler.Materialize(clipEvents, blockStartBeat, samplesPerBeat)

	for i := range out {
		out[i] = 0
	}

	if c.plan != nil {
		eventsByNode, activeVoices := c.resolveEvents(scheduled)
		c.plan.Process(eventsByNode, activeVoices, blockFrames, blockStartBeat, blockEndBeat)
		c.reclaimSilentVoices(activeVoices)
		c.writeOutput(out, blockFrames)
	}

	c.transport.BeatPosition = scheduler.AdvanceBeatPosition(blockStartBeat, c.transport.Playing, blockFrames, samplesPerBeat)
	c.transport.SamplePosition += uint64(blockFrames)

	peakL, peakR := peaks(out, blockFrames)
	c.readback.Publish(c.transport.SamplePosition, c.transport.BeatPosition, c.voices.ActiveVoiceCount(), peakL, peakR, 0, c.transport.Playing)
}

// resolveEvents turns this block's live Events and sample-scheduled clip
// Events into the per-RuntimeNode event map and active-voice mask
// ExecutionPlan.Process expects.
//
// Live events (from CmdNoteOn/CmdNoteOff, or the Reset fired by CmdStop)
// carry no track/target context - spec's TESTABLE SCENARIOS 1-3 issue bare
// NoteOn against a graph with no arrangement at all - so they broadcast to
// every PerVoice RuntimeNode in the plan.
//
// Clip-driven events already name their target node directly
// (scheduler.ClipEvent.Target, set from track.target_node by package clip,
// per spec §4.3's "emit NoteOn(note, velocity, target=track.target_node)"),
// so they route straight to eventsByNode[target] rather than broadcasting.
// One shared voice.Allocator assigns voice indices for both paths, since
// ExecutionPlan.Process applies a single activeVoices mask across every
// PerVoice node regardless of which instrument it belongs to; two
// different instrument targets sounding concurrently therefore share one
// voice pool rather than each having an independent one (see DESIGN.md).
func (c *Controller) resolveEvents(scheduled []scheduler.ScheduledEvent) (map[id.NodeID][]node.Event, []bool) {
	eventsByNode := make(map[id.NodeID][]node.Event, len(c.plan.Nodes))

	if len(c.liveEvents) > 0 {
		for _, rn := range c.plan.Nodes {
			if rn.Poly == node.PerVoice {
				eventsByNode[rn.ID] = append(eventsByNode[rn.ID], c.liveEvents...)
			}
		}
	}

	for _, se := range scheduled {
		if !se.Target.Valid() {
			continue
		}
		switch se.Kind {
		case node.KindNoteOn:
			evs := c.voices.NoteOn(se.Note, se.Velocity, se.SampleOffset)
			eventsByNode[se.Target] = append(eventsByNode[se.Target], evs...)
		case node.KindNoteOff:
			evs := c.voices.NoteOff(se.Note, se.SampleOffset)
			eventsByNode[se.Target] = append(eventsByNode[se.Target], evs...)
		case node.KindAudioStart:
			eventsByNode[se.Target] = append(eventsByNode[se.Target], node.Event{
				Kind: node.KindAudioStart, SampleOffset: se.SampleOffset, Target: node.TargetGlobal,
				AudioID: se.AudioID, SourceOffsetS: se.SourceOffsetSec, Gain: se.Gain,
			})
		case node.KindAudioStop:
			eventsByNode[se.Target] = append(eventsByNode[se.Target], node.Event{
				Kind: node.KindAudioStop, SampleOffset: se.SampleOffset, Target: node.TargetGlobal,
				AudioID: se.AudioID,
			})
		}
	}

	activeVoices := make([]bool, c.cfg.MaxVoices)
	for v := 0; v < c.cfg.MaxVoices; v++ {
		if _, active := c.voices.NoteAt(v); active {
			activeVoices[v] = true
		}
	}
	return eventsByNode, activeVoices
}

// reclaimSilentVoices polls every voice this block marked releasing and
// tells the allocator it's idle once every PerVoice node instance at that
// voice index reports silent (spec §4.5: "the slot becomes idle once all
// its PerVoice nodes report silent").
func (c *Controller) reclaimSilentVoices(activeVoices []bool) {
	for v := range activeVoices {
		if !c.voices.IsReleasing(v) {
			continue
		}
		allSilent := true
		for _, rn := range c.plan.Nodes {
			if rn.Poly != node.PerVoice {
				continue
			}
			if v >= len(rn.Silent) || !rn.Silent[v] {
				allSilent = false
				break
			}
		}
		if allSilent {
			c.voices.MarkVoiceSilent(v)
		}
	}
}

// writeOutput copies the compiled plan's terminal node into out, clamping
// against NaN/Inf (TESTABLE SCENARIO 5: hot-swap-under-load must never
// emit non-finite samples).
func (c *Controller) writeOutput(out []float32, blockFrames int) {
	src := c.plan.Output.Output[0][:blockFrames*c.plan.Output.Channels]
	if c.plan.Output.Channels == 2 {
		n := blockFrames * 2
		if n > len(out) {
			n = len(out)
		}
		for i := 0; i < n && i < len(src); i++ {
			out[i] = sanitize(src[i])
		}
		return
	}
	for i := 0; i < blockFrames && i*2+1 < len(out) && i < len(src); i++ {
		v := sanitize(src[i])
		out[i*2] = v
		out[i*2+1] = v
	}
}

func sanitize(v float32) float32 {
	if math.IsNaN(float64(v)) || math.IsInf(float64(v), 0) {
		return 0
	}
	return v
}

func peaks(out []float32, blockFrames int) (left, right float32) {
	for i := 0; i < blockFrames; i++ {
		if i*2 >= len(out) {
			break
		}
		if v := abs32(out[i*2]); v > left {
			left = v
		}
		if i*2+1 < len(out) {
			if v := abs32(out[i*2+1]); v > right {
				right = v
			}
		}
	}
	return left, right
}

func abs32(v float32) float32 {
	if v < 0 {
		return -v
	}
	return v
}
