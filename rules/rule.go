// Package rules implements the quality and security rules as pure
// functions over the artifacts package ruleengine prepares.
package rules

import (
	"github.com/kzn-tools/kaizen/lang"
	"github.com/kzn-tools/kaizen/model"
	"github.com/kzn-tools/kaizen/ruleengine"
)

// ruleFunc adapts a plain function into a ruleengine.Rule, avoiding a
// hand-written type for each of the ~21 rules here.
type ruleFunc struct {
	meta model.RuleMetadata
	fn   func(model.ParsedFile, *ruleengine.Artifacts, model.Configuration) ([]model.Diagnostic, error)
}

func (r ruleFunc) Metadata() model.RuleMetadata { return r.meta }

func (r ruleFunc) Check(file model.ParsedFile, artifacts *ruleengine.Artifacts, config model.Configuration) ([]model.Diagnostic, error) {
	return r.fn(file, artifacts, config)
}

func newRule(meta model.RuleMetadata, fn func(model.ParsedFile, *ruleengine.Artifacts, model.Configuration) ([]model.Diagnostic, error)) ruleengine.Rule {
	return ruleFunc{meta: meta, fn: fn}
}

// walk visits n and every descendant named node, pre-order.
func walk(n model.Node, visit func(model.Node)) {
	if n == nil {
		return
	}
	visit(n)
	for _, c := range n.NamedChildren() {
		walk(c, visit)
	}
}

// collectFunctions returns every function-like node in source order.
func collectFunctions(root model.Node) []model.Node {
	var out []model.Node
	walk(root, func(n model.Node) {
		if lang.IsFunctionLike(n.Kind()) {
			out = append(out, n)
		}
	})
	return out
}

func rangeOf(file model.ParsedFile, n model.Node) model.Range {
	return file.SpanToLocation(n.Span())
}
