// Package cfg builds the per-function control-flow graph: basic blocks
// linked by typed edges, with reachability and dominance queries used
// by the unreachable-code rule and by the taint propagator's
// must-pass-through-sanitizer reasoning.
package cfg

import "github.com/kzn-tools/kaizen/model"

// EdgeKind names how control reaches one block from another.
type EdgeKind string

const (
	EdgeFallthrough EdgeKind = "fallthrough"
	EdgeTrue        EdgeKind = "true"
	EdgeFalse       EdgeKind = "false"
	EdgeSwitchCase  EdgeKind = "switch-case"
	EdgeThrow       EdgeKind = "throw"
	EdgeBreak       EdgeKind = "break"
	EdgeContinue    EdgeKind = "continue"
	EdgeReturn      EdgeKind = "return"
)

// Terminator classifies how a block ends.
type Terminator string

const (
	TerminatorNone        Terminator = ""
	TerminatorReturn      Terminator = "return"
	TerminatorThrow       Terminator = "throw"
	TerminatorImplicitEnd Terminator = "implicit-end"
)

// Edge is one outgoing control-flow edge.
type Edge struct {
	To   int
	Kind EdgeKind
}

// Block is one basic block: the statement range it covers, its
// terminator kind, and its typed edges.
type Block struct {
	ID           int
	Stmts        []model.Node
	Terminator   Terminator
	Successors   []Edge
	Predecessors []int
}

// Span is the byte range spanning this block's first through last
// recorded statement.
func (b *Block) Span() model.Span {
	if len(b.Stmts) == 0 {
		return model.Span{}
	}
	return model.Span{Start: b.Stmts[0].Span().Start, End: b.Stmts[len(b.Stmts)-1].Span().End}
}

// Graph is one function's control-flow graph.
type Graph struct {
	file     model.ParsedFile
	Blocks   []*Block
	EntryID  int
	ExitIDs  []int

	domCache map[int]map[int]bool
}

func (g *Graph) newBlock() *Block {
	b := &Block{ID: len(g.Blocks)}
	g.Blocks = append(g.Blocks, b)
	return b
}

func (g *Graph) block(id int) *Block { return g.Blocks[id] }

func (g *Graph) addEdge(from, to int, kind EdgeKind) {
	g.Blocks[from].Successors = append(g.Blocks[from].Successors, Edge{To: to, Kind: kind})
	g.Blocks[to].Predecessors = append(g.Blocks[to].Predecessors, from)
}

// RangeOf converts a block's covered statement span into a location
// using the graph's originating file.
func (g *Graph) RangeOf(b *Block) model.Range {
	return g.file.SpanToLocation(b.Span())
}

// ReachableFromEntry reports whether id can be reached by following
// successor edges from the entry block.
func (g *Graph) ReachableFromEntry(id int) bool {
	return g.reachableSet()[id]
}

func (g *Graph) reachableSet() map[int]bool {
	visited := map[int]bool{g.EntryID: true}
	queue := []int{g.EntryID}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		for _, e := range g.Blocks[cur].Successors {
			if !visited[e.To] {
				visited[e.To] = true
				queue = append(queue, e.To)
			}
		}
	}
	return visited
}

// Dominates reports whether block a dominates block b: every path from
// the entry to b passes through a.
func (g *Graph) Dominates(a, b int) bool {
	doms := g.dominatorSets()
	set, ok := doms[b]
	if !ok {
		return false
	}
	return set[a]
}

// dominatorSets computes, for every block reachable from entry, the set
// of blocks that dominate it, via the standard iterative data-flow
// fixpoint.
func (g *Graph) dominatorSets() map[int]map[int]bool {
	if g.domCache != nil {
		return g.domCache
	}
	reachable := g.reachableSet()
	all := make(map[int]bool, len(reachable))
	for id := range reachable {
		all[id] = true
	}

	dom := make(map[int]map[int]bool, len(all))
	dom[g.EntryID] = map[int]bool{g.EntryID: true}
	for id := range all {
		if id == g.EntryID {
			continue
		}
		full := make(map[int]bool, len(all))
		for other := range all {
			full[other] = true
		}
		dom[id] = full
	}

	changed := true
	for changed {
		changed = false
		for id := range all {
			if id == g.EntryID {
				continue
			}
			var intersection map[int]bool
			for _, pred := range g.Blocks[id].Predecessors {
				if !all[pred] {
					continue
				}
				if intersection == nil {
					intersection = copySet(dom[pred])
					continue
				}
				intersectInPlace(intersection, dom[pred])
			}
			if intersection == nil {
				continue
			}
			intersection[id] = true
			if !setsEqual(intersection, dom[id]) {
				dom[id] = intersection
				changed = true
			}
		}
	}

	g.domCache = dom
	return dom
}

// BlockAt returns the id of the block whose covered statement range
// contains point, if any.
func (g *Graph) BlockAt(point model.Point) (int, bool) {
	for _, b := range g.Blocks {
		r := g.RangeOf(b)
		if r.StartLine == 0 && r.EndLine == 0 {
			continue
		}
		if point.Line < r.StartLine || point.Line > r.EndLine {
			continue
		}
		return b.ID, true
	}
	return 0, false
}

func copySet(s map[int]bool) map[int]bool {
	out := make(map[int]bool, len(s))
	for k := range s {
		out[k] = true
	}
	return out
}

func intersectInPlace(dst, src map[int]bool) {
	for k := range dst {
		if !src[k] {
			delete(dst, k)
		}
	}
}

func setsEqual(a, b map[int]bool) bool {
	if len(a) != len(b) {
		return false
	}
	for k := range a {
		if !b[k] {
			return false
		}
	}
	return true
}
