// Package graph compiles the UI-owned declarative session.GraphDef and
// session.Arrangement into an ExecutionPlan the audio thread runs block by
// block. Compilation is the only place node instances are created or audio
// buffers allocated; Process (see plan.go) reuses those buffers but still
// allocates small per-node input and event slices.
package graph

import (
	"sort"

	"github.com/hyasynth/hyasynth/pkg/id"
	"github.com/hyasynth/hyasynth/pkg/node"
	"github.com/hyasynth/hyasynth/pkg/session"
)

// Synthetic node types the compiler inserts to realize the derived mixing
// graph (spec §4.1 item 1): a Volume->Pan strip per track, a summing
// Mixer, and - only when the GraphDef names no explicit output node - an
// implicit passthrough Sink so an ExecutionPlan always has a terminal
// node to read back from.
const (
	TypeTrackStrip node.TypeID = 0xFFFF0001
	TypeMixer      node.TypeID = 0xFFFF0002
	TypeSink       node.TypeID = 0xFFFF0003
)

// Parameter ids on the synthetic TypeTrackStrip instance.
const (
	ParamStripVolume node.ParamID = 0
	ParamStripPan    node.ParamID = 1
)

// syntheticBase separates compiler-inserted node ids from user GraphDef ids,
// which are dense and allocated from zero (pkg/id.Allocator). User sessions
// never reach this range in practice; DESIGN.md records the assumption.
const syntheticBase = uint32(1 << 28)

// Config carries the compile-time constants a GraphDef alone doesn't know:
// sample rate, block size ceiling, and voice count.
type Config struct {
	SampleRate   float64
	MaxBlockSize int
	MaxVoices    int
}

type draft struct {
	id        id.NodeID
	typ       node.TypeID
	desc      node.Descriptor
	params    map[node.ParamID]float32
	inputs    map[int]id.NodeID // dstPort -> srcNode
	synthetic bool
}

// Compile builds a fresh ExecutionPlan from g and arr. On any CompileError,
// the caller (pkg/engine) must keep running its previous plan unchanged -
// compilation never leaves the caller without a working graph.
func Compile(g *session.GraphDef, arr *session.Arrangement, reg *node.Registry, cfg Config) (*ExecutionPlan, error) {
	drafts := make(map[id.NodeID]*draft, len(g.Nodes)+len(arr.Tracks)*2+1)

	for nid, def := range g.Nodes {
		desc, ok := reg.Lookup(def.Type)
		if !ok {
			return nil, &CompileError{Code: UnknownType, NodeID: uint32(nid)}
		}
		params := make(map[node.ParamID]float32, len(def.Params))
		for k, v := range def.Params {
			params[k] = v
		}
		drafts[nid] = &draft{id: nid, typ: def.Type, desc: desc, params: params, inputs: make(map[int]id.NodeID)}
	}

	boundPorts := make(map[[2]uint32]bool, len(g.Connections))
	for _, c := range g.Connections {
		key := [2]uint32{uint32(c.DstNode), uint32(c.DstPort)}
		if boundPorts[key] {
			return nil, &CompileError{Code: DuplicatePortBinding, NodeID: uint32(c.DstNode),
				Detail: "duplicate binding on destination port"}
		}
		boundPorts[key] = true

		if _, ok := drafts[c.SrcNode]; !ok {
			return nil, &CompileError{Code: MissingNode, NodeID: uint32(c.SrcNode)}
		}
		dst, ok := drafts[c.DstNode]
		if !ok {
			return nil, &CompileError{Code: MissingNode, NodeID: uint32(c.DstNode)}
		}
		dst.inputs[c.DstPort] = c.SrcNode
	}

	nextSynthetic := syntheticBase
	allocSynthetic := func() id.NodeID {
		n := id.NodeID(nextSynthetic)
		nextSynthetic++
		return n
	}

	stripDesc := node.Descriptor{Type: TypeTrackStrip, Name: "TrackStrip", Polyphony: node.Global, ChannelCount: 2, InputPorts: 1, Factory: newTrackStrip}
	mixerDesc := node.Descriptor{Type: TypeMixer, Name: "Mixer", Polyphony: node.Global, ChannelCount: 2, InputPorts: node.VariablePorts, Factory: newMixer}
	sinkDesc := node.Descriptor{Type: TypeSink, Name: "Sink", Polyphony: node.Global, ChannelCount: 2, InputPorts: 1, Factory: newSink}

	mixerID := allocSynthetic()
	mixerDraft := &draft{id: mixerID, typ: TypeMixer, desc: mixerDesc, params: map[node.ParamID]float32{}, inputs: map[int]id.NodeID{}, synthetic: true}
	drafts[mixerID] = mixerDraft

	trackIDs := make([]id.TrackID, 0, len(arr.Tracks))
	for tid := range arr.Tracks {
		trackIDs = append(trackIDs, tid)
	}
	sort.Slice(trackIDs, func(i, j int) bool { return trackIDs[i] < trackIDs[j] })

	anySolo := false
	for _, tid := range trackIDs {
		if arr.Tracks[tid].Solo {
			anySolo = true
			break
		}
	}

	mixerPort := 0
	for _, tid := range trackIDs {
		tr := arr.Tracks[tid]
		active := !tr.Mute && (tr.Solo || !anySolo)
		if !active {
			continue
		}
		stripID := allocSynthetic()
		stripDraft := &draft{
			id: stripID, typ: TypeTrackStrip, desc: stripDesc,
			params:    map[node.ParamID]float32{ParamStripVolume: tr.Volume, ParamStripPan: tr.Pan},
			inputs:    map[int]id.NodeID{},
			synthetic: true,
		}
		if tr.TargetNode.Valid() {
			if _, ok := drafts[tr.TargetNode]; ok {
				stripDraft.inputs[0] = tr.TargetNode
			}
		}
		drafts[stripID] = stripDraft
		mixerDraft.inputs[mixerPort] = stripID
		mixerPort++
	}

	// The derived mixing graph only exists when at least one track
	// actually feeds it; an Arrangement with no tracks (or none active)
	// leaves the synthetic Mixer with nothing to sum, so it is dropped
	// and the output node keeps whatever the user's own GraphDef wired
	// into it (spec §4.1 item 1 applies "for each Track" - zero tracks
	// means nothing to insert). This is what lets a bare GraphDef like
	// SINE_OSC -> OUTPUT, with no Arrangement at all, reach the output
	// directly.
	//
	// When at least one track is active, the designated output node's
	// port 0 is reserved for the mixer sum; any user connection already
	// bound there is overridden. A GraphDef whose output node needs its
	// own port-0 input should route that signal through a track's
	// target_node instead, upstream of the mixer, rather than
	// designating that node as the output directly.
	outputID := g.OutputNode
	if !outputID.Valid() || drafts[outputID] == nil {
		outputID = allocSynthetic()
		drafts[outputID] = &draft{id: outputID, typ: TypeSink, desc: sinkDesc, params: map[node.ParamID]float32{}, inputs: map[int]id.NodeID{}, synthetic: true}
	}
	if mixerPort == 0 {
		delete(drafts, mixerID)
	} else {
		drafts[outputID].inputs[0] = mixerID
	}

	order, err := topoSort(drafts)
	if err != nil {
		return nil, err
	}

	plan := &ExecutionPlan{
		ByID:         make(map[id.NodeID]*RuntimeNode, len(drafts)),
		SampleRate:   cfg.SampleRate,
		MaxBlockSize: cfg.MaxBlockSize,
		MaxVoices:    cfg.MaxVoices,
		Params:       make(map[id.NodeID]map[node.ParamID]float32, len(g.Nodes)),
	}

	for _, nid := range order {
		d := drafts[nid]
		instanceCount := 1
		if d.desc.Polyphony == node.PerVoice {
			instanceCount = cfg.MaxVoices
		}
		rn := &RuntimeNode{
			ID: nid, Type: d.typ, Poly: d.desc.Polyphony, Channels: d.desc.ChannelCount, Synthetic: d.synthetic,
			Instances: make([]node.DSP, instanceCount),
			Output:    make([][]float32, instanceCount),
			Silent:    make([]bool, instanceCount),
		}
		for i := 0; i < instanceCount; i++ {
			inst := d.desc.Factory()
			inst.Prepare(cfg.SampleRate, cfg.MaxBlockSize)
			for pid, v := range d.params {
				inst.SetParam(pid, v)
			}
			rn.Instances[i] = inst
			rn.Output[i] = make([]float32, cfg.MaxBlockSize*d.desc.ChannelCount)
		}
		plan.ByID[nid] = rn
		plan.Nodes = append(plan.Nodes, rn)
		if !d.synthetic {
			params := make(map[node.ParamID]float32, len(d.params))
			for k, v := range d.params {
				params[k] = v
			}
			plan.Params[nid] = params
		}
	}

	for _, nid := range order {
		d := drafts[nid]
		rn := plan.ByID[nid]
		maxPort := -1
		for p := range d.inputs {
			if p > maxPort {
				maxPort = p
			}
		}
		rn.Inputs = make([]InputBinding, maxPort+1)
		for p, srcID := range d.inputs {
			src := plan.ByID[srcID]
			if src == nil {
				continue
			}
			b := InputBinding{Present: true, Src: src}
			if src.Poly == node.PerVoice && rn.Poly == node.Global {
				b.Mix = true
				b.Scratch = make([]float32, cfg.MaxBlockSize*src.Channels)
			}
			rn.Inputs[p] = b
		}
	}

	plan.Output = plan.ByID[outputID]
	if plan.Output == nil {
		return nil, &CompileError{Code: NoOutput}
	}

	hydrateAudioPool(plan, arr)

	return plan, nil
}

// hydrateAudioPool loads every shared sample handle into every node
// instance capable of playing it, so StartAudio events never trigger a
// sample-data lookup or copy from the audio thread (spec §4.1 item 7).
func hydrateAudioPool(plan *ExecutionPlan, arr *session.Arrangement) {
	handles := arr.AudioHandles()
	for _, rn := range plan.Nodes {
		for _, inst := range rn.Instances {
			player, ok := inst.(node.AudioPlayer)
			if !ok {
				continue
			}
			for _, h := range handles {
				player.LoadAudio(h)
			}
		}
	}
}

// topoSort runs Kahn's algorithm over drafts' dependency edges (input ->
// owner), breaking ties by ascending NodeID so compiling the same GraphDef
// twice yields the same node order (spec §4.1 item 3, TESTABLE PROPERTY 2).
func topoSort(drafts map[id.NodeID]*draft) ([]id.NodeID, error) {
	indegree := make(map[id.NodeID]int, len(drafts))
	dependents := make(map[id.NodeID][]id.NodeID, len(drafts))
	for nid := range drafts {
		indegree[nid] = 0
	}
	for nid, d := range drafts {
		seen := make(map[id.NodeID]bool)
		for _, src := range d.inputs {
			if seen[src] {
				continue
			}
			seen[src] = true
			indegree[nid]++
			dependents[src] = append(dependents[src], nid)
		}
	}

	ready := make([]id.NodeID, 0, len(drafts))
	for nid, deg := range indegree {
		if deg == 0 {
			ready = append(ready, nid)
		}
	}
	sort.Slice(ready, func(i, j int) bool { return ready[i] < ready[j] })

	order := make([]id.NodeID, 0, len(drafts))
	for len(ready) > 0 {
		sort.Slice(ready, func(i, j int) bool { return ready[i] < ready[j] })
		n := ready[0]
		ready = ready[1:]
		order = append(order, n)

		next := append([]id.NodeID(nil), dependents[n]...)
		sort.Slice(next, func(i, j int) bool { return next[i] < next[j] })
		for _, dep := range next {
			indegree[dep]--
			if indegree[dep] == 0 {
				ready = append(ready, dep)
			}
		}
	}

	if len(order) != len(drafts) {
		for nid, deg := range indegree {
			if deg > 0 {
				return nil, &CompileError{Code: CycleDetected, NodeID: uint32(nid)}
			}
		}
		return nil, &CompileError{Code: CycleDetected}
	}
	return order, nil
}
