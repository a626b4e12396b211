package graph

import (
	"github.com/hyasynth/hyasynth/pkg/id"
	"github.com/hyasynth/hyasynth/pkg/node"
	"github.com/hyasynth/hyasynth/pkg/session"
)

// Decompile reconstructs a GraphDef from a compiled ExecutionPlan,
// discarding the compiler-inserted track strips, mixer, and sink. It
// exists to exercise TESTABLE PROPERTY 5 (compile(decompile(graph)) is
// equivalent to graph) and to let the engine answer an introspection
// query without keeping a second copy of the UI's GraphDef around.
//
// Decompile cannot recover original node (x, y) editor positions - those
// never reach the ExecutionPlan - so callers that need them should read
// from the original session.GraphDef instead and use Decompile only to
// validate node/connection/parameter equivalence.
func Decompile(plan *ExecutionPlan) *session.GraphDef {
	g := session.NewGraphDef()

	for _, rn := range plan.Nodes {
		if rn.Synthetic {
			continue
		}
		params := make(map[node.ParamID]float32, len(plan.Params[rn.ID]))
		for k, v := range plan.Params[rn.ID] {
			params[k] = v
		}
		g.PutNode(rn.ID, session.NodeDef{Type: rn.Type, Params: params})
	}

	for _, rn := range plan.Nodes {
		if rn.Synthetic {
			continue
		}
		for port, in := range rn.Inputs {
			if !in.Present || in.Src.Synthetic {
				continue
			}
			g.Connections = append(g.Connections, session.Connection{
				SrcNode: in.Src.ID, SrcPort: 0, DstNode: rn.ID, DstPort: port,
			})
		}
	}

	if plan.Output != nil && !plan.Output.Synthetic {
		g.OutputNode = plan.Output.ID
	} else {
		g.OutputNode = id.NoNode
	}

	return g
}
