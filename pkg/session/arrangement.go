package session

import (
	"github.com/hyasynth/hyasynth/pkg/id"
	"github.com/hyasynth/hyasynth/pkg/node"
)

// Track is one mixer/arrangement track: a volume/pan/mute/solo strip
// routing into target_node, the instrument or effect chain root this
// track's notes and audio regions feed.
type Track struct {
	ID         id.TrackID
	Name       string
	Volume     float32 // [0,1]
	Pan        float32 // [-1,1]
	Mute       bool
	Solo       bool
	TargetNode id.NodeID // id.NoNode if unset
}

// NoteEvent is one note within a ClipDef, in beats relative to the clip
// start.
type NoteEvent struct {
	StartBeat    float64
	DurationBeat float64
	Note         uint8   // 0..127
	Velocity     float32 // [0,1]
}

// AudioRegion places a slice of an AudioPool entry within a ClipDef, in
// beats relative to the clip start.
type AudioRegion struct {
	StartBeat       float64
	DurationBeat    float64
	AudioID         id.AudioID
	SourceOffsetSec float64
	Gain            float32
}

// ClipDef is a reusable pattern: a fixed-length container of notes and
// audio regions, optionally looping.
type ClipDef struct {
	ID            id.ClipID
	Name          string
	LengthBeats   float64
	Notes         []NoteEvent
	AudioRegions  []AudioRegion
	Loop          bool
}

// Scene is a column in the clip-slot grid; launching it fires one clip per
// track (the clip bound to that track at this scene's index, if any).
type Scene struct {
	ID   id.SceneID
	Name string
}

// slotKey addresses one cell of the clip-slot grid.
type slotKey struct {
	Track id.TrackID
	Scene int // scene index, not SceneID, matching spec's "(TrackId, scene_index)"
}

// Placement binds a ClipID to a beat position on a specific track, within
// the Timeline (arrangement/linear view, as opposed to session/scene view).
type Placement struct {
	ClipID    id.ClipID
	StartBeat float64
}

// AudioEntry is one pool entry: shared, immutable sample data plus its
// format. Many AudioRegions/player nodes may reference the same entry
// without copying.
type AudioEntry struct {
	ID         id.AudioID
	Name       string
	SampleRate float64
	Channels   int
	Samples    []float32 // interleaved if Channels > 1, shared/read-only
	refs       int
	removed    bool
}

// AudioPool is the mapping of AudioID to AudioEntry, reference-counted so
// that removal only frees memory once the last clip/region referencing an
// entry releases it (spec §3, §9).
type AudioPool struct {
	entries map[id.AudioID]*AudioEntry
	ids     *id.Allocator
}

// NewAudioPool returns an empty AudioPool.
func NewAudioPool() *AudioPool {
	return &AudioPool{entries: make(map[id.AudioID]*AudioEntry), ids: id.NewAllocator()}
}

// Add registers sample data under a new AudioID.
func (p *AudioPool) Add(name string, sampleRate float64, channels int, samples []float32) id.AudioID {
	raw := p.ids.Alloc()
	aid := id.AudioID(raw)
	p.entries[aid] = &AudioEntry{ID: aid, Name: name, SampleRate: sampleRate, Channels: channels, Samples: samples}
	return aid
}

// Put registers sample data under an already-allocated AudioID, for
// mirroring a UI-side Add onto the engine's own pool by the same ID
// (the command-bridge counterpart to Add, the way CmdCreateTrack/
// CmdCreateClip mirror their session-allocated ids directly rather than
// re-deriving one on the engine side).
func (p *AudioPool) Put(aid id.AudioID, name string, sampleRate float64, channels int, samples []float32) {
	p.entries[aid] = &AudioEntry{ID: aid, Name: name, SampleRate: sampleRate, Channels: channels, Samples: samples}
}

// Get returns the entry for aid, taking a reference on behalf of the
// caller (a clip or player node). Call Release when the reference is no
// longer needed.
func (p *AudioPool) Get(aid id.AudioID) (*AudioEntry, bool) {
	e, ok := p.entries[aid]
	if !ok {
		return nil, false
	}
	e.refs++
	return e, true
}

// Release drops a reference previously taken by Get.
func (p *AudioPool) Release(aid id.AudioID) {
	e, ok := p.entries[aid]
	if !ok {
		return
	}
	if e.refs > 0 {
		e.refs--
	}
}

// Remove marks an entry for removal; it is only actually dropped once no
// reference remains (spec §3 lifecycle).
func (p *AudioPool) Remove(aid id.AudioID) {
	e, ok := p.entries[aid]
	if !ok {
		return
	}
	if e.refs <= 0 {
		delete(p.entries, aid)
		p.ids.Release(uint32(aid))
		return
	}
	e.removed = true
	// Removal is deferred; a later Release may complete it via Sweep.
}

// Handles returns every live entry as a node.AudioHandle, for the compiler
// to hand to AudioPlayer node instances at compile time (spec §4.1 item 7:
// "audio pool hydration").
func (p *AudioPool) Handles() []node.AudioHandle {
	out := make([]node.AudioHandle, 0, len(p.entries))
	for _, e := range p.entries {
		out = append(out, node.AudioHandle{
			ID: uint32(e.ID), Name: e.Name, SampleRate: e.SampleRate, Channels: e.Channels, Samples: e.Samples,
		})
	}
	return out
}

// Sweep drops any entry that was Removed while still referenced and has
// since reached zero references. The UI side calls this periodically;
// it is never invoked from the audio callback.
func (p *AudioPool) Sweep() {
	for aid, e := range p.entries {
		if e.refs <= 0 && e.removed {
			delete(p.entries, aid)
			p.ids.Release(uint32(aid))
		}
	}
}

// Arrangement is the UI-owned musical structure: tracks, clip
// definitions, the scene/clip-slot grid, the linear timeline, and the
// shared audio pool.
type Arrangement struct {
	Tracks    map[id.TrackID]*Track
	Clips     map[id.ClipID]*ClipDef
	Scenes    map[id.SceneID]*Scene
	Slots     map[slotKey]id.ClipID
	Timeline  map[id.TrackID][]Placement
	AudioPool *AudioPool

	trackIDs *id.Allocator
	clipIDs  *id.Allocator
	sceneIDs *id.Allocator
}

// NewArrangement returns an empty Arrangement.
func NewArrangement() *Arrangement {
	return &Arrangement{
		Tracks:    make(map[id.TrackID]*Track),
		Clips:     make(map[id.ClipID]*ClipDef),
		Scenes:    make(map[id.SceneID]*Scene),
		Slots:     make(map[slotKey]id.ClipID),
		Timeline:  make(map[id.TrackID][]Placement),
		AudioPool: NewAudioPool(),
		trackIDs:  id.NewAllocator(),
		clipIDs:   id.NewAllocator(),
		sceneIDs:  id.NewAllocator(),
	}
}

// CreateTrack adds a new track with default volume=1, pan=0, no target.
func (a *Arrangement) CreateTrack(name string) id.TrackID {
	tid := id.TrackID(a.trackIDs.Alloc())
	a.Tracks[tid] = &Track{ID: tid, Name: name, Volume: 1, Pan: 0, TargetNode: id.NoNode}
	return tid
}

// DeleteTrack removes a track, its timeline placements, and its slot-grid
// entries.
func (a *Arrangement) DeleteTrack(t id.TrackID) {
	if _, ok := a.Tracks[t]; !ok {
		return
	}
	delete(a.Tracks, t)
	a.trackIDs.Release(uint32(t))
	delete(a.Timeline, t)
	for k := range a.Slots {
		if k.Track == t {
			delete(a.Slots, k)
		}
	}
}

// SetTrackTarget sets the instrument/effect chain root a track routes
// into.
func (a *Arrangement) SetTrackTarget(t id.TrackID, target id.NodeID) {
	if tr, ok := a.Tracks[t]; ok {
		tr.TargetNode = target
	}
}

// CreateClip adds a new, empty clip of the given length.
func (a *Arrangement) CreateClip(name string, lengthBeats float64, loop bool) id.ClipID {
	cid := id.ClipID(a.clipIDs.Alloc())
	a.Clips[cid] = &ClipDef{ID: cid, Name: name, LengthBeats: lengthBeats, Loop: loop}
	return cid
}

// DeleteClip removes a clip definition and any slot/timeline references
// to it.
func (a *Arrangement) DeleteClip(c id.ClipID) {
	if _, ok := a.Clips[c]; !ok {
		return
	}
	delete(a.Clips, c)
	a.clipIDs.Release(uint32(c))
	for k, v := range a.Slots {
		if v == c {
			delete(a.Slots, k)
		}
	}
	for t, placements := range a.Timeline {
		kept := placements[:0]
		for _, p := range placements {
			if p.ClipID != c {
				kept = append(kept, p)
			}
		}
		a.Timeline[t] = kept
	}
}

// AddNote appends a note to a clip.
func (a *Arrangement) AddNote(c id.ClipID, n NoteEvent) {
	if clip, ok := a.Clips[c]; ok {
		clip.Notes = append(clip.Notes, n)
	}
}

// AddAudioToClip appends an audio region to a clip, taking a pool
// reference.
func (a *Arrangement) AddAudioToClip(c id.ClipID, region AudioRegion) {
	clip, ok := a.Clips[c]
	if !ok {
		return
	}
	if _, ok := a.AudioPool.Get(region.AudioID); ok {
		clip.AudioRegions = append(clip.AudioRegions, region)
	}
}

// ClearClip removes all notes and audio regions from a clip, releasing
// any audio pool references they held.
func (a *Arrangement) ClearClip(c id.ClipID) {
	clip, ok := a.Clips[c]
	if !ok {
		return
	}
	for _, r := range clip.AudioRegions {
		a.AudioPool.Release(r.AudioID)
	}
	clip.Notes = nil
	clip.AudioRegions = nil
}

// CreateScene adds a new scene (clip-slot grid column).
func (a *Arrangement) CreateScene(name string) id.SceneID {
	sid := id.SceneID(a.sceneIDs.Alloc())
	a.Scenes[sid] = &Scene{ID: sid, Name: name}
	return sid
}

// DeleteScene removes a scene. It does not affect the slot grid, which is
// addressed by integer scene_index rather than SceneID (spec §3).
func (a *Arrangement) DeleteScene(s id.SceneID) {
	delete(a.Scenes, s)
	a.sceneIDs.Release(uint32(s))
}

// SetClipSlot binds clip to (track, sceneIndex) in the clip-slot grid, or
// clears the slot if clip is id.NoClip.
func (a *Arrangement) SetClipSlot(t id.TrackID, sceneIndex int, clip id.ClipID) {
	key := slotKey{Track: t, Scene: sceneIndex}
	if clip == id.NoClip {
		delete(a.Slots, key)
		return
	}
	a.Slots[key] = clip
}

// ClipAt returns the clip bound to (track, sceneIndex), if any.
func (a *Arrangement) ClipAt(t id.TrackID, sceneIndex int) (id.ClipID, bool) {
	c, ok := a.Slots[slotKey{Track: t, Scene: sceneIndex}]
	return c, ok
}

// ScheduleClip places a clip at a beat position on the timeline.
func (a *Arrangement) ScheduleClip(t id.TrackID, clip id.ClipID, startBeat float64) {
	a.Timeline[t] = append(a.Timeline[t], Placement{ClipID: clip, StartBeat: startBeat})
}

// RemoveClipPlacement removes the first placement of clip at exactly
// startBeat on track t.
func (a *Arrangement) RemoveClipPlacement(t id.TrackID, clip id.ClipID, startBeat float64) {
	placements := a.Timeline[t]
	for i, p := range placements {
		if p.ClipID == clip && p.StartBeat == startBeat {
			a.Timeline[t] = append(placements[:i], placements[i+1:]...)
			return
		}
	}
}

// AudioHandles returns every live audio pool entry as a node.AudioHandle.
func (a *Arrangement) AudioHandles() []node.AudioHandle {
	return a.AudioPool.Handles()
}

// Clone returns a deep copy of the arrangement for the engine-side mirror.
func (a *Arrangement) Clone() *Arrangement {
	out := NewArrangement()
	for tid, t := range a.Tracks {
		cp := *t
		out.Tracks[tid] = &cp
	}
	for cid, c := range a.Clips {
		cp := *c
		cp.Notes = append([]NoteEvent(nil), c.Notes...)
		cp.AudioRegions = append([]AudioRegion(nil), c.AudioRegions...)
		out.Clips[cid] = &cp
	}
	for sid, s := range a.Scenes {
		cp := *s
		out.Scenes[sid] = &cp
	}
	for k, v := range a.Slots {
		out.Slots[k] = v
	}
	for t, placements := range a.Timeline {
		out.Timeline[t] = append([]Placement(nil), placements...)
	}
	for aid, e := range a.AudioPool.entries {
		cp := *e
		out.AudioPool.entries[aid] = &cp
	}
	return out
}
