// Package session holds the UI-owned declarative data model: the node
// graph users describe (GraphDef), the musical arrangement (Arrangement),
// and transport state (Transport). None of these types are touched by the
// audio thread directly - see package bridge for how changes cross over.
package session

import (
	"fmt"

	"github.com/hyasynth/hyasynth/pkg/id"
	"github.com/hyasynth/hyasynth/pkg/node"
)

// NodeDef is one user-visible node in a GraphDef.
type NodeDef struct {
	Type   node.TypeID
	X, Y   float64
	Params map[node.ParamID]float32
}

// Connection binds one source node's output port to one destination
// node's input port.
type Connection struct {
	SrcNode id.NodeID
	SrcPort int
	DstNode id.NodeID
	DstPort int
}

// GraphDef is the declarative, UI-owned node graph: a dense mapping of
// NodeID to NodeDef, an ordered connection list, and an optional explicit
// output node.
type GraphDef struct {
	Nodes       map[id.NodeID]NodeDef
	Connections []Connection
	OutputNode  id.NodeID

	ids *id.Allocator
}

// NewGraphDef returns an empty GraphDef with no output node.
func NewGraphDef() *GraphDef {
	return &GraphDef{
		Nodes:      make(map[id.NodeID]NodeDef),
		OutputNode: id.NoNode,
		ids:        id.NewAllocator(),
	}
}

// AddNode allocates a new NodeID and registers it with the given type and
// position, and returns that id.
func (g *GraphDef) AddNode(typeID node.TypeID, x, y float64) id.NodeID {
	raw := g.ids.Alloc()
	nid := id.NodeID(raw)
	g.Nodes[nid] = NodeDef{Type: typeID, X: x, Y: y, Params: make(map[node.ParamID]float32)}
	return nid
}

// RemoveNode deletes a node and transitively removes every connection that
// touches it, per spec §3 lifecycle rules.
func (g *GraphDef) RemoveNode(n id.NodeID) {
	if _, ok := g.Nodes[n]; !ok {
		return
	}
	delete(g.Nodes, n)
	g.ids.Release(uint32(n))

	kept := g.Connections[:0]
	for _, c := range g.Connections {
		if c.SrcNode == n || c.DstNode == n {
			continue
		}
		kept = append(kept, c)
	}
	g.Connections = kept

	if g.OutputNode == n {
		g.OutputNode = id.NoNode
	}
}

// Connect records a connection, rejecting a duplicate destination-port
// binding or a self-loop per spec §3 invariants. The cycle invariant is
// checked at compile time, not here, so edits can be made in any order.
func (g *GraphDef) Connect(src id.NodeID, srcPort int, dst id.NodeID, dstPort int) error {
	if src == dst {
		return fmt.Errorf("session: self-loop on node %d", src)
	}
	if _, ok := g.Nodes[src]; !ok {
		return fmt.Errorf("session: unknown src node %d", src)
	}
	if _, ok := g.Nodes[dst]; !ok {
		return fmt.Errorf("session: unknown dst node %d", dst)
	}
	for _, c := range g.Connections {
		if c.DstNode == dst && c.DstPort == dstPort {
			return fmt.Errorf("session: dst port (%d,%d) already bound", dst, dstPort)
		}
	}
	g.Connections = append(g.Connections, Connection{SrcNode: src, SrcPort: srcPort, DstNode: dst, DstPort: dstPort})
	return nil
}

// Disconnect removes the connection bound to (dst, dstPort), if any.
func (g *GraphDef) Disconnect(dst id.NodeID, dstPort int) {
	kept := g.Connections[:0]
	for _, c := range g.Connections {
		if c.DstNode == dst && c.DstPort == dstPort {
			continue
		}
		kept = append(kept, c)
	}
	g.Connections = kept
}

// SetOutput designates n as the explicit output node.
func (g *GraphDef) SetOutput(n id.NodeID) {
	g.OutputNode = n
}

// ClearGraph removes every node and connection.
func (g *GraphDef) ClearGraph() {
	g.Nodes = make(map[id.NodeID]NodeDef)
	g.Connections = nil
	g.OutputNode = id.NoNode
	g.ids = id.NewAllocator()
}

// SetParam records a parameter value on a node definition. This only
// updates the declarative model; forwarding the live value to the audio
// thread is the SetParam command's job (package bridge).
func (g *GraphDef) SetParam(n id.NodeID, p node.ParamID, value float32) {
	def, ok := g.Nodes[n]
	if !ok {
		return
	}
	if def.Params == nil {
		def.Params = make(map[node.ParamID]float32)
	}
	def.Params[p] = value
	g.Nodes[n] = def
}

// Clone returns a deep copy, used so the engine can hold its own mutable
// mirror independent of the UI-owned GraphDef (spec §5: audio never
// accesses Session owning memory). The clone's own id allocator starts
// fresh since a mirror only ever receives nodes with explicit, already-
// assigned ids via commands - it never allocates ids itself.
func (g *GraphDef) Clone() *GraphDef {
	out := NewGraphDef()
	out.OutputNode = g.OutputNode
	for nid, def := range g.Nodes {
		params := make(map[node.ParamID]float32, len(def.Params))
		for k, v := range def.Params {
			params[k] = v
		}
		out.Nodes[nid] = NodeDef{Type: def.Type, X: def.X, Y: def.Y, Params: params}
	}
	out.Connections = append([]Connection(nil), g.Connections...)
	return out
}

// PutNode inserts or overwrites a node at an explicit id, used by the
// engine-side mirror when applying an AddNode command that carries the
// id the UI side already allocated.
func (g *GraphDef) PutNode(n id.NodeID, def NodeDef) {
	if def.Params == nil {
		def.Params = make(map[node.ParamID]float32)
	}
	g.Nodes[n] = def
}
