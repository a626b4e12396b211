package session

import (
	"encoding/binary"
	"fmt"
	"io"

	"github.com/hyasynth/hyasynth/pkg/id"
	"github.com/hyasynth/hyasynth/pkg/node"
)

// stateMagic and stateVersion identify the binary format written by
// SaveState, adapted from the teacher's pkg/framework/state.Manager. This
// round-trips the GraphDef and the transport tempo (the Arrangement is not
// written) well enough to satisfy TESTABLE PROPERTY 5 (compile(decompile(graph)) =
// graph); full project/UI serialization is out of scope per spec.md §1.
const (
	stateMagic   = "HYAS"
	stateVersion = uint32(1)
)

// SaveState writes the GraphDef (nodes with their parameters, connections,
// output node) and the transport BPM to w. Tracks, clips, scenes and audio
// are not written.
func SaveState(s *Session, w io.Writer) error {
	if _, err := w.Write([]byte(stateMagic)); err != nil {
		return err
	}
	if err := binary.Write(w, binary.LittleEndian, stateVersion); err != nil {
		return err
	}

	if err := binary.Write(w, binary.LittleEndian, uint32(len(s.Graph.Nodes))); err != nil {
		return err
	}
	for nid, def := range s.Graph.Nodes {
		if err := writeNode(w, nid, def); err != nil {
			return err
		}
	}

	if err := binary.Write(w, binary.LittleEndian, uint32(len(s.Graph.Connections))); err != nil {
		return err
	}
	for _, c := range s.Graph.Connections {
		for _, v := range []uint32{uint32(c.SrcNode), uint32(c.SrcPort), uint32(c.DstNode), uint32(c.DstPort)} {
			if err := binary.Write(w, binary.LittleEndian, v); err != nil {
				return err
			}
		}
	}

	if err := binary.Write(w, binary.LittleEndian, uint32(s.Graph.OutputNode)); err != nil {
		return err
	}

	return binary.Write(w, binary.LittleEndian, s.Transport.BPM)
}

func writeNode(w io.Writer, nid id.NodeID, def NodeDef) error {
	if err := binary.Write(w, binary.LittleEndian, uint32(nid)); err != nil {
		return err
	}
	if err := binary.Write(w, binary.LittleEndian, uint32(def.Type)); err != nil {
		return err
	}
	if err := binary.Write(w, binary.LittleEndian, def.X); err != nil {
		return err
	}
	if err := binary.Write(w, binary.LittleEndian, def.Y); err != nil {
		return err
	}
	if err := binary.Write(w, binary.LittleEndian, uint32(len(def.Params))); err != nil {
		return err
	}
	for pid, v := range def.Params {
		if err := binary.Write(w, binary.LittleEndian, uint32(pid)); err != nil {
			return err
		}
		if err := binary.Write(w, binary.LittleEndian, v); err != nil {
			return err
		}
	}
	return nil
}

// LoadState reads a GraphDef, connections, output node, and tempo
// previously written by SaveState into a fresh GraphDef and Transport.
func LoadState(r io.Reader) (*GraphDef, *Transport, error) {
	header := make([]byte, 4)
	if _, err := io.ReadFull(r, header); err != nil {
		return nil, nil, err
	}
	if string(header) != stateMagic {
		return nil, nil, fmt.Errorf("session: bad state magic %q", header)
	}
	var version uint32
	if err := binary.Read(r, binary.LittleEndian, &version); err != nil {
		return nil, nil, err
	}
	if version > stateVersion {
		return nil, nil, fmt.Errorf("session: state version %d newer than supported %d", version, stateVersion)
	}

	g := NewGraphDef()

	var nodeCount uint32
	if err := binary.Read(r, binary.LittleEndian, &nodeCount); err != nil {
		return nil, nil, err
	}
	for i := uint32(0); i < nodeCount; i++ {
		nid, def, err := readNode(r)
		if err != nil {
			return nil, nil, err
		}
		g.PutNode(nid, def)
	}

	var connCount uint32
	if err := binary.Read(r, binary.LittleEndian, &connCount); err != nil {
		return nil, nil, err
	}
	for i := uint32(0); i < connCount; i++ {
		var src, srcPort, dst, dstPort uint32
		for _, v := range []*uint32{&src, &srcPort, &dst, &dstPort} {
			if err := binary.Read(r, binary.LittleEndian, v); err != nil {
				return nil, nil, err
			}
		}
		g.Connections = append(g.Connections, Connection{
			SrcNode: id.NodeID(src), SrcPort: int(srcPort), DstNode: id.NodeID(dst), DstPort: int(dstPort),
		})
	}

	var outputNode uint32
	if err := binary.Read(r, binary.LittleEndian, &outputNode); err != nil {
		return nil, nil, err
	}
	g.OutputNode = id.NodeID(outputNode)

	t := NewTransport()
	if err := binary.Read(r, binary.LittleEndian, &t.BPM); err != nil {
		return nil, nil, err
	}

	return g, t, nil
}

func readNode(r io.Reader) (id.NodeID, NodeDef, error) {
	var nid, typeID uint32
	var x, y float64
	if err := binary.Read(r, binary.LittleEndian, &nid); err != nil {
		return 0, NodeDef{}, err
	}
	if err := binary.Read(r, binary.LittleEndian, &typeID); err != nil {
		return 0, NodeDef{}, err
	}
	if err := binary.Read(r, binary.LittleEndian, &x); err != nil {
		return 0, NodeDef{}, err
	}
	if err := binary.Read(r, binary.LittleEndian, &y); err != nil {
		return 0, NodeDef{}, err
	}
	var paramCount uint32
	if err := binary.Read(r, binary.LittleEndian, &paramCount); err != nil {
		return 0, NodeDef{}, err
	}
	params := make(map[node.ParamID]float32, paramCount)
	for i := uint32(0); i < paramCount; i++ {
		var pid uint32
		var v float32
		if err := binary.Read(r, binary.LittleEndian, &pid); err != nil {
			return 0, NodeDef{}, err
		}
		if err := binary.Read(r, binary.LittleEndian, &v); err != nil {
			return 0, NodeDef{}, err
		}
		params[node.ParamID(pid)] = v
	}
	return id.NodeID(nid), NodeDef{Type: node.TypeID(typeID), X: x, Y: y, Params: params}, nil
}
