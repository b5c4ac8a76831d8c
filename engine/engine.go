// Package engine is the analysis facade: the single entry point that
// turns a parsed file and a configuration into a sorted, filtered
// diagnostic list. It owns the pipeline order (scope, then per-function
// CFG, then DFG, then taint, then rules) and the sentinel diagnostics
// that belong to the engine rather than to any rule (parse-error,
// internal-analysis-limit, analysis-cancelled).
package engine

import (
	"sort"

	"github.com/kzn-tools/kaizen/cfg"
	"github.com/kzn-tools/kaizen/dataflow"
	"github.com/kzn-tools/kaizen/disposable"
	"github.com/kzn-tools/kaizen/lang"
	"github.com/kzn-tools/kaizen/model"
	"github.com/kzn-tools/kaizen/patterns"
	"github.com/kzn-tools/kaizen/ruleengine"
	"github.com/kzn-tools/kaizen/rules"
	"github.com/kzn-tools/kaizen/scope"
	"github.com/kzn-tools/kaizen/suppress"
	"github.com/kzn-tools/kaizen/taint"
)

// Engine bundles the rule registry and the default pattern/catalog data
// every analysis run starts from.
type Engine struct {
	registry  *ruleengine.Registry
	catalog   *disposable.Catalog
	sources   *patterns.Registry
	sinks     *patterns.Registry
	sanitizers *patterns.Registry

	maxCyclomatic int
	maxNesting    int
}

// Option configures an Engine at construction time.
type Option func(*Engine)

// WithCyclomaticThreshold overrides Q010's default complexity threshold.
func WithCyclomaticThreshold(n int) Option {
	return func(e *Engine) { e.maxCyclomatic = n }
}

// WithNestingThreshold overrides Q011's default nesting-depth threshold.
func WithNestingThreshold(n int) Option {
	return func(e *Engine) { e.maxNesting = n }
}

// WithDisposableCatalog replaces the default disposable-resource catalog
// Q020 (prefer-scoped-resource) matches against.
func WithDisposableCatalog(c *disposable.Catalog) Option {
	return func(e *Engine) { e.catalog = c }
}

const (
	defaultMaxCyclomatic = 10
	defaultMaxNesting    = 4
)

// New builds an Engine with every quality and security rule registered
// in a fixed order so dispatch is deterministic.
func New(opts ...Option) *Engine {
	e := &Engine{
		catalog:    disposable.Default(),
		sources:    patterns.DefaultSources(),
		sinks:      patterns.DefaultSinks(),
		sanitizers: patterns.DefaultSanitizers(),

		maxCyclomatic: defaultMaxCyclomatic,
		maxNesting:    defaultMaxNesting,
	}
	for _, opt := range opts {
		opt(e)
	}

	e.registry = ruleengine.NewRegistry()
	e.registry.Register(rules.NewUnusedBinding())
	e.registry.Register(rules.NewUnusedImport())
	e.registry.Register(rules.NewUnreachableCode())
	e.registry.Register(rules.NewMaxCyclomatic(e.maxCyclomatic))
	e.registry.Register(rules.NewMaxNesting(e.maxNesting))
	e.registry.Register(rules.NewPreferScopedResource(e.catalog))
	e.registry.Register(rules.NewUnhandledAsync())
	e.registry.Register(rules.NewSuggestOptionalChain())
	e.registry.Register(rules.NewSuggestNullishDefault())
	e.registry.Register(rules.NewDisallowLegacyBinding())
	e.registry.Register(rules.NewPreferImmutableBinding())
	e.registry.Register(rules.NewDisallowConsole())
	e.registry.Register(rules.NewStrictEquality())
	e.registry.Register(rules.NewDisallowDynamicEval())

	e.registry.Register(rules.NewSQLInjection())
	e.registry.Register(rules.NewXSS())
	e.registry.Register(rules.NewCommandInjection())
	e.registry.Register(rules.NewCodeInjection())
	e.registry.Register(rules.NewPathTraversal())
	e.registry.Register(rules.NewHardcodedSecret())
	e.registry.Register(rules.NewWeakHash())
	e.registry.Register(rules.NewInsecureRandomness())

	return e
}

// Registry exposes the underlying rule registry, e.g. so a CLI can list
// rule metadata without running an analysis.
func (e *Engine) Registry() *ruleengine.Registry { return e.registry }

// Analyze runs the full pipeline over file and returns its sorted,
// filtered diagnostics. It never returns an error: every failure mode
// the pipeline can hit is itself represented as a diagnostic.
func (e *Engine) Analyze(file model.ParsedFile, config model.Configuration, tier model.ActivationTier) []model.Diagnostic {
	out, _ := e.AnalyzeCancellable(file, config, tier, nil)
	return out
}

// AnalyzeCancellable is Analyze plus a cancellation predicate consulted
// at coarse boundaries: before semantic artifacts, before the data-flow
// graph, and between rule executions. A nil cancel
// behaves exactly like Analyze. The returned bool reports whether
// cancellation fired; the returned diagnostics are always what had been
// produced up to that point, with the `analysis-cancelled` sentinel
// appended when it did.
func (e *Engine) AnalyzeCancellable(file model.ParsedFile, config model.Configuration, tier model.ActivationTier, cancel func() bool) ([]model.Diagnostic, bool) {
	if errs := file.ParseErrors(); len(errs) > 0 {
		return []model.Diagnostic{parseErrorDiagnostic(file, errs)}, false
	}

	suppression := suppress.Build(file.SourceText())

	if cancel != nil && cancel() {
		return finalize([]model.Diagnostic{model.CancelledDiagnostic(file.Filename())}, file, suppression, config), true
	}

	scopes := scope.Build(file)

	cfgs := make(map[model.Node]*cfg.Graph)
	var internalLimits []model.Diagnostic
	for _, fn := range collectFunctionsFor(file) {
		g, ok := buildCFGSafely(fn, file)
		if !ok {
			internalLimits = append(internalLimits, model.InternalLimitDiagnostic(
				file.Filename(), file.SpanToLocation(fn.Span()), functionDescription(fn)))
			continue
		}
		cfgs[fn] = g
	}

	if cancel != nil && cancel() {
		diags := append(internalLimits, model.CancelledDiagnostic(file.Filename()))
		return finalize(diags, file, suppression, config), true
	}

	dfg, dfgOK := buildDFGSafely(file)
	var taintFindings []taint.Finding
	if dfgOK {
		reg := e.mergedRegistries(config)
		reg.Dominance = &cfgDominance{file: file, cfgs: cfgs}
		taintFindings = taint.Propagate(dfg, reg)
	} else {
		internalLimits = append(internalLimits, model.InternalLimitDiagnostic(
			file.Filename(), model.RangeAt(model.Point{Line: 1, Column: 1}), "this file (data-flow graph)"))
	}

	artifacts := &ruleengine.Artifacts{
		Scopes: scopes,
		CFGs:   cfgs,
		DFG:    dfg,
		Taint:  taintFindings,
	}

	ruleDiags, cancelled := e.registry.RunAllCancellable(file, artifacts, config, tier, cancel)

	diags := make([]model.Diagnostic, 0, len(internalLimits)+len(ruleDiags)+1)
	diags = append(diags, internalLimits...)
	diags = append(diags, ruleDiags...)
	if cancelled {
		diags = append(diags, model.CancelledDiagnostic(file.Filename()))
	}

	return finalize(diags, file, suppression, config), cancelled
}

func parseErrorDiagnostic(file model.ParsedFile, errs []model.ParseError) model.Diagnostic {
	first := errs[0]
	return model.ParseErrorDiagnostic(file.Filename(), file.SpanToLocation(first.Span), first.Message)
}

// mergedRegistries combines the engine's default source/sink/sanitizer
// catalogs with a configuration's additional patterns. An
// additional pattern string carries no category of its own, so it is
// conservatively tagged with every known taint category — consistent
// with the data-flow graph's own over-approximation bias.
func (e *Engine) mergedRegistries(config model.Configuration) taint.Registries {
	allCategories := []patterns.Category{
		patterns.CategorySqlInjection, patterns.CategoryXss,
		patterns.CategoryCommandInjection, patterns.CategoryCodeInjection,
		patterns.CategoryPathTraversal,
	}

	sources := e.sources
	if len(config.AdditionalSources) > 0 {
		sources = mergeRegistry(e.sources, config.AdditionalSources, allCategories)
	}
	sinks := e.sinks
	if len(config.AdditionalSinks) > 0 {
		sinks = mergeRegistry(e.sinks, config.AdditionalSinks, allCategories)
	}
	sanitizers := e.sanitizers
	if len(config.AdditionalSanitizers) > 0 {
		sanitizers = mergeRegistry(e.sanitizers, config.AdditionalSanitizers, allCategories)
	}

	return taint.Registries{Sources: sources, Sinks: sinks, Sanitizers: sanitizers}
}

func mergeRegistry(base *patterns.Registry, additions []string, categories []patterns.Category) *patterns.Registry {
	merged := patterns.NewRegistry()
	for _, p := range base.Patterns() {
		merged.Add(p)
	}
	for _, raw := range additions {
		merged.Add(patterns.ParsePattern(raw, categories...))
	}
	return merged
}

// cfgDominance adapts the per-function CFG map into the taint package's
// DominanceOracle. Dominance holds iff some
// function's graph contains blocks for both nodes and reports the first
// dominating the second; top-level statements, which have no CFG, never
// claim dominance, keeping the gate conservative.
type cfgDominance struct {
	file model.ParsedFile
	cfgs map[model.Node]*cfg.Graph
}

func (d *cfgDominance) Dominates(a, b model.Node) bool {
	pa := startPoint(d.file, a)
	pb := startPoint(d.file, b)
	for _, g := range d.cfgs {
		ba, okA := g.BlockAt(pa)
		if !okA {
			continue
		}
		bb, okB := g.BlockAt(pb)
		if okB && g.Dominates(ba, bb) {
			return true
		}
	}
	return false
}

func startPoint(file model.ParsedFile, n model.Node) model.Point {
	r := file.SpanToLocation(n.Span())
	return model.Point{Line: r.StartLine, Column: r.StartColumn}
}

// collectFunctionsFor returns every function-like node in file, in
// source order, matching the walk rules/rule.go's collectFunctions uses.
func collectFunctionsFor(file model.ParsedFile) []model.Node {
	var out []model.Node
	var walk func(n model.Node)
	walk = func(n model.Node) {
		if n == nil {
			return
		}
		if lang.IsFunctionLike(n.Kind()) {
			out = append(out, n)
		}
		for _, c := range n.NamedChildren() {
			walk(c)
		}
	}
	walk(file.Root())
	return out
}

func functionDescription(fn model.Node) string {
	name := fn.ChildByFieldName("name")
	if name != nil {
		return "function '" + name.Text() + "'"
	}
	return "an anonymous function"
}

// buildCFGSafely isolates a single function's CFG construction from the
// rest of the run.
func buildCFGSafely(fn model.Node, file model.ParsedFile) (g *cfg.Graph, ok bool) {
	defer func() {
		if recover() != nil {
			g, ok = nil, false
		}
	}()
	return cfg.Build(fn, file), true
}

// buildDFGSafely isolates data-flow graph construction for the whole
// file.
func buildDFGSafely(file model.ParsedFile) (g *dataflow.Graph, ok bool) {
	defer func() {
		if recover() != nil {
			g, ok = nil, false
		}
	}()
	return dataflow.Build(file), true
}

// finalize applies suppression-comment filtering, the configured
// min-severity/min-confidence output filters, and the final
// final (file, line, column, rule_id) sort.
func finalize(diags []model.Diagnostic, file model.ParsedFile, suppression *suppress.Index, config model.Configuration) []model.Diagnostic {
	out := make([]model.Diagnostic, 0, len(diags))
	for _, d := range diags {
		if suppression != nil && suppression.IsSuppressed(d.Range.StartLine, d.RuleID, d.RuleName) {
			continue
		}
		if !d.Severity.AtLeast(config.MinSeverity) {
			continue
		}
		if !d.Confidence.AtLeast(config.MinConfidence) {
			continue
		}
		out = append(out, d)
	}
	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.File != b.File {
			return a.File < b.File
		}
		if a.Range.StartLine != b.Range.StartLine {
			return a.Range.StartLine < b.Range.StartLine
		}
		if a.Range.StartColumn != b.Range.StartColumn {
			return a.Range.StartColumn < b.Range.StartColumn
		}
		return a.RuleID < b.RuleID
	})
	return out
}
