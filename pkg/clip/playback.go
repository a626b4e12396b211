// Package clip implements ClipPlayback: the session-view (scene/clip
// launch, quantized to bar boundaries) and timeline-view (linear
// Placement) event generation of spec §4.3. It reads an
// *session.Arrangement snapshot and produces scheduler.ClipEvent values
// for a block's beat range; it holds no reference to the audio graph.
package clip

import (
	"math"

	"github.com/hyasynth/hyasynth/pkg/id"
	"github.com/hyasynth/hyasynth/pkg/node"
	"github.com/hyasynth/hyasynth/pkg/scheduler"
	"github.com/hyasynth/hyasynth/pkg/session"
)

// DefaultQuantizeBeats is "the next bar" per spec §4.3: four beats.
const DefaultQuantizeBeats = 4.0

type activeSessionClip struct {
	clip      id.ClipID
	startBeat float64 // absolute beat at which this instance began
}

type pendingTransition struct {
	target    id.ClipID // id.NoClip means "stop"
	atBeat    float64
	committed bool
}

// Playback tracks, per track, which session-view clip is currently
// sounding and any quantized transition waiting to take effect. Timeline
// placements are stateless and read directly from the Arrangement each
// block.
type Playback struct {
	quantizeBeats float64
	active        map[id.TrackID]activeSessionClip
	pending       map[id.TrackID]pendingTransition
	seq           int
}

// New returns a Playback quantizing scene/clip launches to the next
// multiple of quantizeBeats (spec default: 4, i.e. the next bar).
func New(quantizeBeats float64) *Playback {
	if quantizeBeats <= 0 {
		quantizeBeats = DefaultQuantizeBeats
	}
	return &Playback{
		quantizeBeats: quantizeBeats,
		active:        make(map[id.TrackID]activeSessionClip),
		pending:       make(map[id.TrackID]pendingTransition),
	}
}

// nextBoundary returns the next quantization boundary at or after
// currentBeat: if currentBeat already sits on one, that is the boundary
// (a launch issued exactly on a bar line takes effect immediately at the
// start of the block containing it, rather than waiting a full bar).
func (p *Playback) nextBoundary(currentBeat float64) float64 {
	n := math.Floor(currentBeat / p.quantizeBeats)
	boundary := n * p.quantizeBeats
	if boundary < currentBeat-1e-9 {
		boundary += p.quantizeBeats
	}
	return boundary
}

// LaunchScene plans, for every track with a clip bound at (track,
// sceneIndex), a quantized transition to that clip, replacing whatever
// that track's session view is currently playing (spec §4.3). Tracks with
// no clip bound at this scene are left untouched.
func (p *Playback) LaunchScene(arr *session.Arrangement, sceneIndex int, currentBeat float64) {
	boundary := p.nextBoundary(currentBeat)
	for tid := range arr.Tracks {
		if c, ok := arr.ClipAt(tid, sceneIndex); ok {
			p.pending[tid] = pendingTransition{target: c, atBeat: boundary}
		}
	}
}

// LaunchClip plans a quantized transition for a single track.
func (p *Playback) LaunchClip(track id.TrackID, clipID id.ClipID, currentBeat float64) {
	p.pending[track] = pendingTransition{target: clipID, atBeat: p.nextBoundary(currentBeat)}
}

// StopClip plans a quantized stop for a single track's session view.
func (p *Playback) StopClip(track id.TrackID, currentBeat float64) {
	p.pending[track] = pendingTransition{target: id.NoClip, atBeat: p.nextBoundary(currentBeat)}
}

// StopAllClips plans a quantized stop for every track currently playing
// or about to play a session-view clip.
func (p *Playback) StopAllClips(arr *session.Arrangement, currentBeat float64) {
	boundary := p.nextBoundary(currentBeat)
	for tid := range arr.Tracks {
		p.pending[tid] = pendingTransition{target: id.NoClip, atBeat: boundary}
	}
}

// Sync commits any pending transition whose quantization boundary falls
// within [blockStartBeat, blockEndBeat), and retires any non-looping
// session clip that finished during the previous block. Called once per
// block before event generation.
func (p *Playback) Sync(arr *session.Arrangement, blockStartBeat, blockEndBeat float64) {
	for tid, pend := range p.pending {
		if pend.atBeat >= blockStartBeat && pend.atBeat < blockEndBeat {
			if pend.target == id.NoClip {
				delete(p.active, tid)
			} else {
				p.active[tid] = activeSessionClip{clip: pend.target, startBeat: pend.atBeat}
			}
			delete(p.pending, tid)
		}
	}

	for tid, sc := range p.active {
		c, ok := arr.Clips[sc.clip]
		if !ok {
			delete(p.active, tid)
			continue
		}
		if !c.Loop && blockStartBeat-sc.startBeat >= c.LengthBeats {
			delete(p.active, tid)
		}
	}
}

// Materialize generates every NoteOn/NoteOff/AudioStart/AudioStop event
// falling within [blockStartBeat, blockEndBeat) across both session-view
// and timeline-view playback, honoring track mute/solo (spec §4.3).
func (p *Playback) Materialize(arr *session.Arrangement, blockStartBeat, blockEndBeat float64) []scheduler.ClipEvent {
	anySolo := false
	for _, tr := range arr.Tracks {
		if tr.Solo {
			anySolo = true
			break
		}
	}

	var out []scheduler.ClipEvent
	for tid, tr := range arr.Tracks {
		if tr.Mute || (anySolo && !tr.Solo) || !tr.TargetNode.Valid() {
			continue
		}

		if sc, ok := p.active[tid]; ok {
			if c, ok := arr.Clips[sc.clip]; ok {
				out = append(out, p.emit(c, tr.TargetNode, sc.startBeat, c.Loop, blockStartBeat, blockEndBeat)...)
			}
		}

		for _, pl := range arr.Timeline[tid] {
			c, ok := arr.Clips[pl.ClipID]
			if !ok {
				continue
			}
			rangeStart := math.Max(blockStartBeat, pl.StartBeat)
			rangeEnd := math.Min(blockEndBeat, pl.StartBeat+c.LengthBeats)
			if rangeStart >= rangeEnd {
				continue
			}
			out = append(out, p.emit(c, tr.TargetNode, pl.StartBeat, false, blockStartBeat, blockEndBeat)...)
		}
	}
	return out
}

// emit enumerates one clip instance's notes and audio regions overlapping
// [blockStartBeat, blockEndBeat), relative to clipStart, wrapping at
// clip.LengthBeats when loop is true.
func (p *Playback) emit(c *session.ClipDef, target id.NodeID, clipStart float64, loop bool, blockStartBeat, blockEndBeat float64) []scheduler.ClipEvent {
	relStart := blockStartBeat - clipStart
	relEnd := blockEndBeat - clipStart
	if relEnd <= 0 {
		return nil
	}
	if relStart < 0 {
		relStart = 0
	}

	firstCycle := 0
	lastCycle := 0
	if loop && c.LengthBeats > 0 {
		firstCycle = int(math.Floor(relStart / c.LengthBeats))
		lastCycle = int(math.Floor((relEnd - 1e-9) / c.LengthBeats))
	} else if !loop && relStart >= c.LengthBeats {
		return nil
	}

	var out []scheduler.ClipEvent
	for cycle := firstCycle; cycle <= lastCycle; cycle++ {
		cycleOffset := clipStart + float64(cycle)*c.LengthBeats
		for _, n := range c.Notes {
			onBeat := cycleOffset + n.StartBeat
			offBeat := onBeat + n.DurationBeat
			if onBeat >= blockStartBeat && onBeat < blockEndBeat {
				out = append(out, p.event(target, node.KindNoteOn, onBeat, n.Note, n.Velocity, 0, 0, 0))
			}
			if offBeat >= blockStartBeat && offBeat < blockEndBeat {
				out = append(out, p.event(target, node.KindNoteOff, offBeat, n.Note, 0, 0, 0, 0))
			}
		}
		for _, r := range c.AudioRegions {
			onBeat := cycleOffset + r.StartBeat
			offBeat := onBeat + r.DurationBeat
			if onBeat >= blockStartBeat && onBeat < blockEndBeat {
				out = append(out, p.event(target, node.KindAudioStart, onBeat, 0, 0, uint32(r.AudioID), r.SourceOffsetSec, r.Gain))
			}
			if offBeat >= blockStartBeat && offBeat < blockEndBeat {
				out = append(out, p.event(target, node.KindAudioStop, offBeat, 0, 0, uint32(r.AudioID), 0, 0))
			}
		}
	}
	return out
}

func (p *Playback) event(target id.NodeID, kind node.EventKind, beat float64, note uint8, velocity float32, audioID uint32, sourceOffsetSec float64, gain float32) scheduler.ClipEvent {
	p.seq++
	return scheduler.ClipEvent{
		Beat: beat, Target: target, Kind: kind,
		Note: note, Velocity: velocity,
		AudioID: audioID, SourceOffsetSec: sourceOffsetSec, Gain: gain,
		Seq: p.seq,
	}
}

// ProjectEndBeat returns the latest beat at which any timeline placement
// ends. Per DESIGN.md's timeline-looping decision the project never loops
// back to beat 0; pkg/engine does not call this function, so the transport
// keeps advancing past this point until it is stopped.
func ProjectEndBeat(arr *session.Arrangement) float64 {
	end := 0.0
	for _, placements := range arr.Timeline {
		for _, pl := range placements {
			if c, ok := arr.Clips[pl.ClipID]; ok {
				if e := pl.StartBeat + c.LengthBeats; e > end {
					end = e
				}
			}
		}
	}
	return end
}
