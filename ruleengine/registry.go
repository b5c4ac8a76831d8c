// Package ruleengine holds the rule registry: an ordered collection of
// Rule implementations, a should_run filter combining
// category/disable-list/tier gating, and a deterministic dispatch loop
// that isolates a failing rule from the rest of the run.
package ruleengine

import (
	"fmt"

	"github.com/kzn-tools/kaizen/cfg"
	"github.com/kzn-tools/kaizen/dataflow"
	"github.com/kzn-tools/kaizen/model"
	"github.com/kzn-tools/kaizen/scope"
	"github.com/kzn-tools/kaizen/taint"
)

// Artifacts bundles the semantic and data-flow structures built once per
// file and handed to every rule.
type Artifacts struct {
	Scopes *scope.Tree
	// CFGs maps each analyzed function's AST node to its control-flow
	// graph. A function whose CFG could not be built is
	// simply absent from this map.
	CFGs map[model.Node]*cfg.Graph
	DFG  *dataflow.Graph
	// Taint is the full taint-finding list produced once per file by
	// package taint, shared read-only across every taint-consuming rule.
	Taint []taint.Finding
}

// Rule is a pure function over a file's prepared artifacts. Implementations must
// not retain file or artifacts beyond the call.
type Rule interface {
	Metadata() model.RuleMetadata
	Check(file model.ParsedFile, artifacts *Artifacts, config model.Configuration) ([]model.Diagnostic, error)
}

// Registry holds registered rules in registration order and the logic to
// decide, per analysis call, which ones run.
type Registry struct {
	rules []Rule
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry { return &Registry{} }

// Register appends a rule. Registration order is preserved and is the
// iteration order `RunAll` uses.
func (r *Registry) Register(rule Rule) { r.rules = append(r.rules, rule) }

// Rules returns the registered rules in registration order.
func (r *Registry) Rules() []Rule {
	out := make([]Rule, len(r.rules))
	copy(out, r.rules)
	return out
}

// ShouldRun reports whether a rule is eligible under config and tier:
// its category toggle is on, it is not disabled by ID or display name,
// and the tier meets its minimum.
func ShouldRun(rule Rule, config model.Configuration, tier model.ActivationTier) bool {
	meta := rule.Metadata()
	if !config.CategoryEnabled(meta.Category) {
		return false
	}
	if config.IsDisabled(meta.ID, meta.DisplayName) {
		return false
	}
	if !tier.AtLeast(meta.MinTier) {
		return false
	}
	return true
}

// RunAll executes every eligible rule in registration order, applies the
// configured severity override to each emitted diagnostic, and isolates
// a rule that panics or errors into a single `rule-internal-error`
// diagnostic rather than losing the rest of the run.
func (r *Registry) RunAll(file model.ParsedFile, artifacts *Artifacts, config model.Configuration, tier model.ActivationTier) []model.Diagnostic {
	diags, _ := r.RunAllCancellable(file, artifacts, config, tier, nil)
	return diags
}

// RunAllCancellable is RunAll plus a cancellation checkpoint consulted
// before every rule dispatch. A nil cancel behaves exactly
// like RunAll. The returned bool reports whether cancel fired before
// every eligible rule had a chance to run; diagnostics collected up to
// that point are still returned.
func (r *Registry) RunAllCancellable(file model.ParsedFile, artifacts *Artifacts, config model.Configuration, tier model.ActivationTier, cancel func() bool) ([]model.Diagnostic, bool) {
	var out []model.Diagnostic
	for _, rule := range r.rules {
		if cancel != nil && cancel() {
			return out, true
		}
		if !ShouldRun(rule, config, tier) {
			continue
		}
		meta := rule.Metadata()
		diags, err := runSafely(rule, file, artifacts, config)
		if err != nil {
			out = append(out, model.RuleInternalErrorDiagnostic(file.Filename(), meta.ID, err.Error()))
			continue
		}
		for _, d := range diags {
			d.Severity = config.SeverityFor(meta.ID, meta.DisplayName, d.Severity)
			out = append(out, d)
		}
	}
	return out, false
}

// runSafely recovers a panicking rule into an error so one rule's defect
// can never abort the whole invocation.
func runSafely(rule Rule, file model.ParsedFile, artifacts *Artifacts, config model.Configuration) (diags []model.Diagnostic, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("%v", rec)
		}
	}()
	return rule.Check(file, artifacts, config)
}
