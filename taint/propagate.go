// Package taint implements the taint reachability search: label DFG
// nodes matching source patterns, propagate labels forward along DFG
// edges (clearing a category wherever a sanitizer call consumes it),
// then for every sink-labeled node run a reverse search for the nearest
// same-category source, emitting one de-duplicated Finding per
// (source, sink, category) with a deterministic shortest-witness-path
// tie-break.
package taint

import (
	"sort"

	"github.com/kzn-tools/kaizen/dataflow"
	"github.com/kzn-tools/kaizen/model"
	"github.com/kzn-tools/kaizen/patterns"
)

// Finding is one confirmed taint flow.
type Finding struct {
	Category   patterns.Category
	SourceID   int
	SinkID     int
	ArgIndex   int // the sink call's tainted argument index, or -1
	Path       []int
	Confidence model.Confidence
}

// Registries bundles the three pattern catalogs consulted during a
// propagation pass, already merged with any
// configuration-supplied additions.
type Registries struct {
	Sources    *patterns.Registry
	Sinks      *patterns.Registry
	Sanitizers *patterns.Registry

	// Dominance, when non-nil, enables the control-flow clause of
	// sanitization: a sanitizer invocation on the same value chain whose basic block
	// dominates the sink's block clears the category at the sink even
	// when the sanitized result does not itself flow on to the sink
	// (guard-style sanitization: `validate(x); db.query(x)`).
	Dominance DominanceOracle
}

// DominanceOracle answers whether the basic block containing AST node a
// dominates the block containing AST node b in the enclosing function's
// CFG. Implemented by the engine over its per-function cfg.Graphs.
type DominanceOracle interface {
	Dominates(a, b model.Node) bool
}

type label struct {
	confidence model.Confidence
	// heuristic marks that this label's initial source match (or a
	// sanitizer crossed while propagating it) was not an exact match,
	// so the eventual finding's confidence is lowered one notch.
	heuristic bool
	// sourceID is the node ID nearest to this label's origin; ties
	// during search are broken by earliest source in source order.
	sourceID int
}

type nodeLabels map[patterns.Category]label

// Propagate runs the full initialization + forward-propagation +
// reverse-search pipeline over g and returns every TaintFinding,
// de-duplicated per (source, sink, category) and sorted for determinism.
func Propagate(g *dataflow.Graph, reg Registries) []Finding {
	labels := initializeSources(g, reg.Sources)
	barriers := propagateForward(g, reg.Sanitizers, labels)
	findings := searchSinks(g, reg, labels, barriers)
	sort.Slice(findings, func(i, j int) bool {
		a, b := findings[i], findings[j]
		if a.SinkID != b.SinkID {
			return a.SinkID < b.SinkID
		}
		if a.SourceID != b.SourceID {
			return a.SourceID < b.SourceID
		}
		return a.Category < b.Category
	})
	return findings
}

// initializeSources labels every DFG node whose Path matches a source
// pattern. Only property-access and
// bare-read nodes carry a Path worth matching as a source; call results
// are never themselves sources.
func initializeSources(g *dataflow.Graph, sources *patterns.Registry) []nodeLabels {
	labels := make([]nodeLabels, len(g.Nodes))
	for i := range labels {
		labels[i] = nodeLabels{}
	}
	for _, n := range g.Nodes {
		if n.Path == "" {
			continue
		}
		switch n.Kind {
		case dataflow.KindPropertyRead, dataflow.KindRead, dataflow.KindDefinition:
		default:
			continue
		}
		categories, conf, ok := sources.MatchPath(n.Path)
		if !ok {
			continue
		}
		for _, c := range categories {
			labels[n.ID][c] = label{confidence: conf, heuristic: conf != model.ConfidenceHigh, sourceID: n.ID}
		}
	}
	return labels
}

// propagateForward unions incoming labels into each node in ID order.
// The DFG's node IDs are assigned in dependency order (every Incoming
// edge points to a strictly lower ID), so a single forward pass reaches
// a fixpoint without iteration. It also returns, per node, the set of
// categories that node's call sanitizes — consulted by reverseSearch so
// a search never walks past a sanitizer barrier even though the
// sanitizing node's own surviving labels say nothing about the category
// it just cleared.
func propagateForward(g *dataflow.Graph, sanitizers *patterns.Registry, labels []nodeLabels) []map[patterns.Category]bool {
	barriers := make([]map[patterns.Category]bool, len(g.Nodes))
	for _, n := range g.Nodes {
		cur := labels[n.ID]
		for _, inID := range n.Incoming {
			for cat, l := range labels[inID] {
				if existing, ok := cur[cat]; !ok || l.confidence.Rank() > existing.confidence.Rank() ||
					(l.confidence.Rank() == existing.confidence.Rank() && l.sourceID < existing.sourceID) {
					cur[cat] = l
				}
			}
		}
		if n.Kind == dataflow.KindCallResult {
			cleared, crossedHeuristic := clearedCategories(n, sanitizers)
			if len(cleared) > 0 {
				barrier := make(map[patterns.Category]bool, len(cleared))
				for _, c := range cleared {
					delete(cur, c)
					barrier[c] = true
				}
				barriers[n.ID] = barrier
			}
			if crossedHeuristic {
				for c, l := range cur {
					l.heuristic = true
					cur[c] = l
				}
			}
		}
		labels[n.ID] = cur
	}
	return barriers
}

// clearedCategories reports which categories a call result is a
// sanitizer for, checked against every argument position, plus whether any such match was
// only a heuristic (wildcard) one — a "partial sanitizer" whose
// surviving labels should be discounted.
func clearedCategories(n *dataflow.Node, sanitizers *patterns.Registry) ([]patterns.Category, bool) {
	if n.Path == "" {
		return nil, false
	}
	seen := map[patterns.Category]bool{}
	var out []patterns.Category
	heuristic := false
	for i := range n.ArgEdges {
		categories, conf, ok := sanitizers.MatchCall(n.Path, i)
		if !ok {
			continue
		}
		if conf != model.ConfidenceHigh {
			heuristic = true
		}
		for _, c := range categories {
			if !seen[c] {
				seen[c] = true
				out = append(out, c)
			}
		}
	}
	return out, heuristic
}

type sinkMatch struct {
	node     *dataflow.Node
	category patterns.Category
	confidence model.Confidence
	argIndex int
	// searchFrom is the node ID the reverse search starts at: the
	// specific argument's node for an arity-qualified call sink, the
	// assigned value for a property-write sink, or the node itself
	// otherwise.
	searchFrom int
}

func searchSinks(g *dataflow.Graph, reg Registries, labels []nodeLabels, barriers []map[patterns.Category]bool) []Finding {
	sinks := reg.Sinks
	var matches []sinkMatch
	for _, n := range g.Nodes {
		switch n.Kind {
		case dataflow.KindCallResult:
			for i := range n.ArgEdges {
				categories, conf, ok := sinks.MatchCall(n.Path, i)
				if !ok {
					continue
				}
				for _, c := range categories {
					matches = append(matches, sinkMatch{node: n, category: c, confidence: conf, argIndex: i, searchFrom: n.ArgEdges[i]})
				}
			}
		case dataflow.KindPropertyWrite, dataflow.KindPropertyRead:
			categories, conf, ok := sinks.MatchPath(n.Path)
			if !ok {
				continue
			}
			from := n.ID
			if len(n.Incoming) > 0 {
				from = n.Incoming[0]
			}
			for _, c := range categories {
				matches = append(matches, sinkMatch{node: n, category: c, confidence: conf, argIndex: -1, searchFrom: from})
			}
		}
	}

	type dedupKey struct {
		sourceID int
		sinkID   int
		category patterns.Category
	}
	seen := map[dedupKey]bool{}
	var findings []Finding
	for _, m := range matches {
		srcID, path, crossedHeuristicSanitizer, ok := reverseSearch(g, labels, barriers, m.searchFrom, m.category)
		if !ok {
			continue
		}
		if dominatedBySanitizer(g, reg, m.node, m.category, path) {
			continue
		}
		key := dedupKey{sourceID: srcID, sinkID: m.node.ID, category: m.category}
		if seen[key] {
			continue
		}
		seen[key] = true

		conf := minConfidenceAlongPath(labels, path, m.category)
		if conf.Rank() > m.confidence.Rank() {
			conf = m.confidence
		}
		if crossedHeuristicSanitizer {
			conf = conf.Lower()
		}

		findings = append(findings, Finding{
			Category:   m.category,
			SourceID:   srcID,
			SinkID:     m.node.ID,
			ArgIndex:   m.argIndex,
			Path:       path,
			Confidence: conf,
		})
	}
	return findings
}

// dominatedBySanitizer implements the control-flow sanitization clause:
// the finding is cleared when some sanitizer call for the same category takes an
// argument off the witness path (same value chain) and sits in a block
// dominating the sink's block — every path to the sink passed through
// the sanitizing guard, whether or not its result flowed onward.
func dominatedBySanitizer(g *dataflow.Graph, reg Registries, sink *dataflow.Node, category patterns.Category, path []int) bool {
	if reg.Dominance == nil || sink.AST == nil {
		return false
	}
	onPath := make(map[int]bool, len(path))
	for _, id := range path {
		onPath[id] = true
	}
	for _, n := range g.Nodes {
		if n.Kind != dataflow.KindCallResult || n.AST == nil || n.ID == sink.ID {
			continue
		}
		cleared, _ := clearedCategories(n, reg.Sanitizers)
		match := false
		for _, c := range cleared {
			if c == category {
				match = true
				break
			}
		}
		if !match {
			continue
		}
		sameChain := false
		for _, argID := range n.ArgEdges {
			if argID >= 0 && onPath[argID] {
				sameChain = true
				break
			}
		}
		if !sameChain {
			continue
		}
		if reg.Dominance.Dominates(n.AST, sink.AST) {
			return true
		}
	}
	return false
}

// reverseSearch runs a BFS over Incoming edges starting at startID,
// looking for the nearest node carrying a label for category. Among
// equal-length paths, ties are broken by earliest source-node ID.
func reverseSearch(g *dataflow.Graph, labels []nodeLabels, barriers []map[patterns.Category]bool, startID int, category patterns.Category) (sourceID int, path []int, crossedHeuristicSanitizer bool, ok bool) {
	type queued struct {
		id   int
		path []int
	}
	visited := make([]bool, len(g.Nodes))
	queue := []queued{{id: startID, path: []int{startID}}}
	visited[startID] = true

	var bestPath []int
	bestSource := -1
	bestHeuristic := false

	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]

		if l, has := labels[cur.id][category]; has {
			if bestSource == -1 || l.sourceID < bestSource {
				bestSource = l.sourceID
				bestPath = cur.path
				bestHeuristic = l.heuristic
			}
			continue // a labeled node need not be expanded further
		}

		if barriers[cur.id] != nil && barriers[cur.id][category] {
			continue // a sanitizer barrier for this category blocks the search here
		}

		for _, inID := range g.Nodes[cur.id].Incoming {
			if visited[inID] {
				continue
			}
			visited[inID] = true
			next := make([]int, len(cur.path)+1)
			copy(next, cur.path)
			next[len(cur.path)] = inID
			queue = append(queue, queued{id: inID, path: next})
		}
	}

	if bestSource == -1 {
		return 0, nil, false, false
	}
	return bestSource, bestPath, bestHeuristic, true
}

// minConfidenceAlongPath reports the lowest label confidence for
// category seen along path.
func minConfidenceAlongPath(labels []nodeLabels, path []int, category patterns.Category) model.Confidence {
	min := model.ConfidenceHigh
	found := false
	for _, id := range path {
		if l, ok := labels[id][category]; ok {
			if !found || l.confidence.Rank() < min.Rank() {
				min = l.confidence
				found = true
			}
		}
	}
	if !found {
		return model.ConfidenceLow
	}
	return min
}
