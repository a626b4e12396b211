package graph

import "fmt"

// ErrorCode classifies a CompileError, letting callers (the engine, the FFI
// layer) branch on failure kind without parsing strings.
type ErrorCode int

const (
	CycleDetected ErrorCode = iota
	MissingNode
	DuplicatePortBinding
	UnknownType
	NoOutput
)

func (c ErrorCode) String() string {
	switch c {
	case CycleDetected:
		return "CycleDetected"
	case MissingNode:
		return "MissingNode"
	case DuplicatePortBinding:
		return "DuplicatePortBinding"
	case UnknownType:
		return "UnknownType"
	case NoOutput:
		return "NoOutput"
	default:
		return "Unknown"
	}
}

// CompileError is returned by Compile when a GraphDef cannot be turned into
// an ExecutionPlan. The engine must hold on to the previous ExecutionPlan
// and keep running it when this happens (spec §7: recompile failure is
// non-fatal).
type CompileError struct {
	Code   ErrorCode
	NodeID uint32 // meaningful for MissingNode, UnknownType; 0 otherwise
	Detail string
}

func (e *CompileError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("graph: %s: %s", e.Code, e.Detail)
	}
	return fmt.Sprintf("graph: %s (node %d)", e.Code, e.NodeID)
}
