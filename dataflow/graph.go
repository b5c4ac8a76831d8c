// Package dataflow builds the per-file data-flow graph: a value graph
// over literals, reads, property accesses, and call/operation results,
// connected by assignment and value-derivation edges. The graph is
// intentionally over-approximating (flow-insensitive across loop
// iterations, flow-sensitive for straight-line code) and carries no
// taint state of its own; the taint package keeps its labels in
// per-search side tables.
package dataflow

import "github.com/kzn-tools/kaizen/model"

// Kind classifies what a Node represents.
type Kind string

const (
	KindLiteral      Kind = "literal"
	KindRead         Kind = "read"
	KindDefinition   Kind = "definition"
	KindPropertyRead Kind = "property-read"
	KindPropertyWrite Kind = "property-write"
	KindCallResult   Kind = "call-result"
	KindOperation    Kind = "operation"
	KindMerge        Kind = "merge"
)

// Node is one DFG value node.
type Node struct {
	ID   int
	Kind Kind
	AST  model.Node

	// Path is the dotted property-access path ("req.body.id") for
	// KindPropertyRead/KindPropertyWrite nodes, the called function's
	// dotted name for KindCallResult, or the bare identifier name for
	// KindRead/KindDefinition.
	Path string
	// Text is the literal source text, set only for KindLiteral nodes
	// (consulted by rules matching string-literal shapes, e.g.
	// hardcoded-secret).
	Text string
	// ArgEdges holds, for KindCallResult nodes, the node ID feeding each
	// positional call argument (in order; -1 for an argument with no
	// resolvable value), so the taint propagator can test a sink
	// pattern's designated argument index.
	ArgEdges []int

	Incoming []int
}

// Graph is one file's data-flow graph.
type Graph struct {
	file  model.ParsedFile
	Nodes []*Node
}

func (g *Graph) newNode(kind Kind, ast model.Node) *Node {
	n := &Node{ID: len(g.Nodes), Kind: kind, AST: ast}
	g.Nodes = append(g.Nodes, n)
	return n
}

// RangeOf converts a node's originating AST span into a file location.
func (g *Graph) RangeOf(n *Node) model.Range {
	if n.AST == nil {
		return model.Range{}
	}
	return g.file.SpanToLocation(n.AST.Span())
}
