// Package patterns implements the declarative source/sink/sanitizer
// catalogs: plain-data registries matched structurally (never by
// evaluation) against dotted property paths and call targets. The
// wildcard grammar is exact / "*" / "*substring*" / "*suffix" /
// "prefix*".
package patterns

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/kzn-tools/kaizen/model"
)

// Category names a taint vulnerability class.
type Category string

const (
	CategorySqlInjection     Category = "SqlInjection"
	CategoryXss              Category = "Xss"
	CategoryCommandInjection Category = "CommandInjection"
	CategoryCodeInjection    Category = "CodeInjection"
	CategoryPathTraversal    Category = "PathTraversal"
)

// Pattern is one registry entry, one of four shapes: an exact dotted
// path, a wildcard-suffix path, a call pattern with an arg index, or a
// heuristic prefix/suffix name match. A bare wildcard character
// anywhere in Raw marks the pattern heuristic rather than exact.
type Pattern struct {
	Raw        string
	Categories []Category
	// ArgIndex is the sink-argument index a call pattern designates, or
	// -1 if the pattern is a plain property path, or a call pattern with
	// no explicit argument (matches regardless of which argument taint
	// reaches).
	ArgIndex int
	IsCall   bool
}

var callPatternRE = regexp.MustCompile(`^([A-Za-z0-9_.$]+)\(arg(\d+)\)$`)

// ParsePattern classifies raw text into a Pattern. Call-arity patterns
// look like "exec(arg0)"; everything else is a property-path pattern,
// exact unless it contains a "*".
func ParsePattern(raw string, categories ...Category) Pattern {
	if m := callPatternRE.FindStringSubmatch(raw); m != nil {
		idx, _ := strconv.Atoi(m[2])
		return Pattern{Raw: m[1], Categories: categories, ArgIndex: idx, IsCall: true}
	}
	return Pattern{Raw: raw, Categories: categories, ArgIndex: -1}
}

func (p Pattern) wildcard() bool { return strings.Contains(p.Raw, "*") }

// Registry holds an ordered list of patterns: defaults first, then any
// configuration-appended patterns.
type Registry struct {
	patterns []Pattern
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry { return &Registry{} }

// Add appends a pattern, preserving insertion order.
func (r *Registry) Add(p Pattern) { r.patterns = append(r.patterns, p) }

// Patterns returns the registered patterns in insertion order, letting a
// caller build a new registry that extends this one (e.g. the engine
// merging a configuration's additional patterns onto the defaults).
func (r *Registry) Patterns() []Pattern {
	out := make([]Pattern, len(r.patterns))
	copy(out, r.patterns)
	return out
}

// MatchPath matches a dotted property-access path (e.g. "req.body.id")
// against property-path patterns. Exact patterns are tried first; only
// if none match are wildcard/heuristic patterns considered, so a
// heuristic never shadows an exact catalog entry.
func (r *Registry) MatchPath(path string) ([]Category, model.Confidence, bool) {
	for _, p := range r.patterns {
		if p.IsCall || p.wildcard() {
			continue
		}
		if p.Raw == path {
			return p.Categories, model.ConfidenceHigh, true
		}
	}
	for _, p := range r.patterns {
		if p.IsCall || !p.wildcard() {
			continue
		}
		if matchesPattern(path, p.Raw) {
			return p.Categories, model.ConfidenceMedium, true
		}
	}
	return nil, "", false
}

// MatchCall matches a called function's dotted name and the index of
// the argument taint is flowing through against call-arity patterns. A
// pattern with no explicit argument index matches any argIndex.
func (r *Registry) MatchCall(calleeName string, argIndex int) ([]Category, model.Confidence, bool) {
	for _, p := range r.patterns {
		if !p.IsCall {
			continue
		}
		if !matchesPattern(calleeName, p.Raw) {
			continue
		}
		if p.ArgIndex >= 0 && p.ArgIndex != argIndex {
			continue
		}
		conf := model.ConfidenceHigh
		if p.wildcard() {
			conf = model.ConfidenceMedium
		}
		return p.Categories, conf, true
	}
	return nil, "", false
}

// matchesPattern implements the wildcard grammar: exact match, "*"
// matches everything, "*substring*" containment, "*suffix" and
// "prefix*" affix matching.
func matchesPattern(text, pattern string) bool {
	if pattern == "*" {
		return true
	}
	if strings.HasPrefix(pattern, "*") && strings.HasSuffix(pattern, "*") && len(pattern) > 1 {
		inner := pattern[1 : len(pattern)-1]
		return strings.Contains(text, inner)
	}
	if strings.HasPrefix(pattern, "*") {
		return strings.HasSuffix(text, pattern[1:])
	}
	if strings.HasSuffix(pattern, "*") {
		return strings.HasPrefix(text, pattern[:len(pattern)-1])
	}
	return text == pattern
}
