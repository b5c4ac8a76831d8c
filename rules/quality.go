package rules

import (
	"sort"
	"strings"

	"github.com/kzn-tools/kaizen/disposable"
	"github.com/kzn-tools/kaizen/lang"
	"github.com/kzn-tools/kaizen/model"
	"github.com/kzn-tools/kaizen/ruleengine"
	"github.com/kzn-tools/kaizen/scope"
)

// childWithText returns the first direct child (named or not) whose text
// equals want, used to locate keyword/operator tokens that tree-sitter
// grammars expose as anonymous children rather than named fields.
func childWithText(n model.Node, want string) model.Node {
	for i := 0; i < n.ChildCount(); i++ {
		c := n.Child(i)
		if c != nil && c.Text() == want {
			return c
		}
	}
	return nil
}

// --- Q001: unused-binding ---

func NewUnusedBinding() ruleengine.Rule {
	return newRule(model.RuleMetadata{
		ID: "Q001", DisplayName: "unused-binding", Category: model.CategoryQuality,
		DefaultSeverity: model.SeverityWarning, DefaultConfidence: model.ConfidenceHigh,
		Description: "Flags declared bindings that are never read.",
	}, func(file model.ParsedFile, artifacts *ruleengine.Artifacts, config model.Configuration) ([]model.Diagnostic, error) {
		if artifacts.Scopes == nil {
			return nil, nil
		}
		var out []model.Diagnostic
		artifacts.Scopes.Walk(func(s *scope.Scope) {
			for _, sym := range s.LocalSymbols() {
				if sym.Reads != 0 || sym.Exported || sym.Underscore {
					continue
				}
				switch sym.Kind {
				case scope.SymbolImport, scope.SymbolTypeAlias:
					continue // handled by unused-import / not applicable
				}
				msg := "'" + sym.Name + "' is declared but never read"
				ruleID, name := "Q001", "unused-binding"
				if sym.Writes > 0 {
					msg = "'" + sym.Name + "' is written but never read"
				}
				out = append(out, model.Diagnostic{
					RuleID: ruleID, RuleName: name, Category: model.CategoryQuality,
					Severity: model.SeverityWarning, Confidence: model.ConfidenceHigh,
					Message: msg, File: file.Filename(), Range: sym.Declaration,
				})
			}
		})
		sortDiagnostics(out)
		return out, nil
	})
}

// --- Q002: unused-import ---

// importBinding is one locally-bound name of an import statement: the
// identifier it binds, the removable syntax unit (the import_specifier,
// the namespace_import, or the default-import identifier), and the unit's
// parent, whose token children hold the commas separating units.
type importBinding struct {
	nameNode model.Node
	unit     model.Node
	parent   model.Node
}

func collectImportBindings(stmt model.Node) []importBinding {
	var out []importBinding
	for _, clause := range stmt.NamedChildren() {
		if clause.Kind() != lang.ImportClause {
			continue
		}
		for _, c := range clause.NamedChildren() {
			switch c.Kind() {
			case lang.Identifier: // default import
				out = append(out, importBinding{nameNode: c, unit: c, parent: clause})
			case lang.NamespaceImport:
				named := c.NamedChildren()
				if len(named) > 0 {
					out = append(out, importBinding{nameNode: named[len(named)-1], unit: c, parent: clause})
				}
			case lang.NamedImports:
				for _, spec := range c.NamedChildren() {
					if spec.Kind() != lang.ImportSpecifier {
						continue
					}
					bound := spec.ChildByFieldName("alias")
					if bound == nil {
						bound = spec.ChildByFieldName("name")
					}
					if bound != nil {
						out = append(out, importBinding{nameNode: bound, unit: spec, parent: c})
					}
				}
			}
		}
	}
	return out
}

// specifierDeletionSpan widens the unit's span over the comma joining it
// to its neighbor, so removing a leading or middle specifier leaves a
// valid list behind.
func specifierDeletionSpan(b importBinding) model.Span {
	span := b.unit.Span()
	if b.parent == nil {
		return span
	}
	var prev model.Node
	for i := 0; i < b.parent.ChildCount(); i++ {
		c := b.parent.Child(i)
		if c == nil {
			continue
		}
		if c.Kind() == b.unit.Kind() && c.Span() == b.unit.Span() {
			if i+1 < b.parent.ChildCount() {
				if next := b.parent.Child(i + 1); next != nil && next.Text() == "," {
					span.End = next.Span().End
					return span
				}
			}
			if prev != nil && prev.Text() == "," {
				span.Start = prev.Span().Start
			}
			return span
		}
		prev = c
	}
	return span
}

func rootImportSymbol(root *scope.Scope, name string) *scope.Symbol {
	for _, sym := range root.LocalSymbols() {
		if sym.Name == name && sym.Kind == scope.SymbolImport {
			return sym
		}
	}
	return nil
}

func NewUnusedImport() ruleengine.Rule {
	return newRule(model.RuleMetadata{
		ID: "Q002", DisplayName: "unused-import", Category: model.CategoryQuality,
		DefaultSeverity: model.SeverityWarning, DefaultConfidence: model.ConfidenceHigh,
		Description: "Flags imported names that are never read, with a fix deleting the specifier or the whole statement.",
	}, func(file model.ParsedFile, artifacts *ruleengine.Artifacts, config model.Configuration) ([]model.Diagnostic, error) {
		if artifacts.Scopes == nil {
			return nil, nil
		}
		root := artifacts.Scopes.Root
		var out []model.Diagnostic
		walk(file.Root(), func(n model.Node) {
			if n.Kind() != lang.ImportStatement {
				return
			}
			bindings := collectImportBindings(n)
			for _, b := range bindings {
				sym := rootImportSymbol(root, b.nameNode.Text())
				if sym == nil || sym.Reads != 0 || sym.Underscore {
					continue
				}
				// the sole binding makes the whole statement dead; a
				// specifier among live neighbors is removed on its own,
				// comma included.
				edit := model.Edit{Range: rangeOf(file, n)}
				if len(bindings) > 1 {
					edit = model.Edit{Range: file.SpanToLocation(specifierDeletionSpan(b))}
				}
				out = append(out, model.Diagnostic{
					RuleID: "Q002", RuleName: "unused-import", Category: model.CategoryQuality,
					Severity: model.SeverityWarning, Confidence: model.ConfidenceHigh,
					Message:    "'" + b.nameNode.Text() + "' is imported but never used",
					Suggestion: "remove the unused import specifier",
					File:       file.Filename(), Range: rangeOf(file, b.nameNode),
					Fix: &model.Fix{Edits: []model.Edit{edit}},
				})
			}
		})
		sortDiagnostics(out)
		return out, nil
	})
}

// --- Q004: unreachable-code ---

func NewUnreachableCode() ruleengine.Rule {
	return newRule(model.RuleMetadata{
		ID: "Q004", DisplayName: "unreachable-code", Category: model.CategoryQuality,
		DefaultSeverity: model.SeverityWarning, DefaultConfidence: model.ConfidenceHigh,
		Description: "Flags basic blocks unreachable from their function's entry.",
	}, func(file model.ParsedFile, artifacts *ruleengine.Artifacts, config model.Configuration) ([]model.Diagnostic, error) {
		var out []model.Diagnostic
		for _, g := range artifacts.CFGs {
			for _, b := range g.Blocks {
				if b.ID == g.EntryID || g.ReachableFromEntry(b.ID) || len(b.Stmts) == 0 {
					continue
				}
				out = append(out, model.Diagnostic{
					RuleID: "Q004", RuleName: "unreachable-code", Category: model.CategoryQuality,
					Severity: model.SeverityWarning, Confidence: model.ConfidenceHigh,
					Message: "unreachable code", File: file.Filename(), Range: g.RangeOf(b),
				})
			}
		}
		sortDiagnostics(out)
		return out, nil
	})
}

// --- Q010: max-cyclomatic ---

const defaultMaxCyclomatic = 10

func cyclomaticComplexity(fn model.Node) int {
	count := 1
	var visit func(n model.Node)
	visit = func(n model.Node) {
		if n == nil {
			return
		}
		// nested functions get their own count; don't descend into them.
		if n != fn && lang.IsFunctionLike(n.Kind()) {
			return
		}
		switch n.Kind() {
		case lang.IfStatement, lang.WhileStatement, lang.DoStatement,
			lang.ForStatement, lang.ForInStatement, lang.SwitchCase,
			lang.CatchClause, lang.TernaryExpression:
			count++
		case lang.BinaryExpression:
			op := childWithText(n, lang.OpLogicalAnd)
			if op == nil {
				op = childWithText(n, lang.OpLogicalOr)
			}
			if op == nil {
				op = childWithText(n, lang.OpNullish)
			}
			if op != nil {
				count++
			}
		}
		for _, c := range n.NamedChildren() {
			visit(c)
		}
	}
	visit(fn)
	return count
}

func NewMaxCyclomatic(threshold int) ruleengine.Rule {
	if threshold <= 0 {
		threshold = defaultMaxCyclomatic
	}
	return newRule(model.RuleMetadata{
		ID: "Q010", DisplayName: "max-cyclomatic", Category: model.CategoryQuality,
		DefaultSeverity: model.SeverityWarning, DefaultConfidence: model.ConfidenceHigh,
		Description: "Flags functions whose cyclomatic complexity exceeds a threshold.",
	}, func(file model.ParsedFile, artifacts *ruleengine.Artifacts, config model.Configuration) ([]model.Diagnostic, error) {
		var out []model.Diagnostic
		for _, fn := range collectFunctions(file.Root()) {
			c := cyclomaticComplexity(fn)
			if c <= threshold {
				continue
			}
			out = append(out, model.Diagnostic{
				RuleID: "Q010", RuleName: "max-cyclomatic", Category: model.CategoryQuality,
				Severity: model.SeverityWarning, Confidence: model.ConfidenceHigh,
				Message: "function has cyclomatic complexity of too many decision points",
				File:    file.Filename(), Range: rangeOf(file, fn),
			})
		}
		sortDiagnostics(out)
		return out, nil
	})
}

// --- Q011: max-nesting ---

const defaultMaxNesting = 4

func nestingKinds(kind string) bool {
	switch kind {
	case lang.IfStatement, lang.WhileStatement, lang.DoStatement,
		lang.ForStatement, lang.ForInStatement, lang.SwitchStatement,
		lang.TryStatement, lang.WithStatement:
		return true
	default:
		return false
	}
}

func maxNestingDepth(fn model.Node) int {
	var deepest int
	var visit func(n model.Node, depth int)
	visit = func(n model.Node, depth int) {
		if n == nil {
			return
		}
		if n != fn && lang.IsFunctionLike(n.Kind()) {
			return
		}
		if nestingKinds(n.Kind()) {
			depth++
			if depth > deepest {
				deepest = depth
			}
		}
		for _, c := range n.NamedChildren() {
			visit(c, depth)
		}
	}
	visit(fn, 0)
	return deepest
}

func NewMaxNesting(threshold int) ruleengine.Rule {
	if threshold <= 0 {
		threshold = defaultMaxNesting
	}
	return newRule(model.RuleMetadata{
		ID: "Q011", DisplayName: "max-nesting", Category: model.CategoryQuality,
		DefaultSeverity: model.SeverityWarning, DefaultConfidence: model.ConfidenceHigh,
		Description: "Flags functions whose nesting depth exceeds a threshold.",
	}, func(file model.ParsedFile, artifacts *ruleengine.Artifacts, config model.Configuration) ([]model.Diagnostic, error) {
		var out []model.Diagnostic
		for _, fn := range collectFunctions(file.Root()) {
			depth := maxNestingDepth(fn)
			if depth <= threshold {
				continue
			}
			out = append(out, model.Diagnostic{
				RuleID: "Q011", RuleName: "max-nesting", Category: model.CategoryQuality,
				Severity: model.SeverityWarning, Confidence: model.ConfidenceHigh,
				Message: "function nests control structures too deeply",
				File:    file.Filename(), Range: rangeOf(file, fn),
			})
		}
		sortDiagnostics(out)
		return out, nil
	})
}

// --- Q020: prefer-scoped-resource ---

func NewPreferScopedResource(catalog *disposable.Catalog) ruleengine.Rule {
	if catalog == nil {
		catalog = disposable.Default()
	}
	return newRule(model.RuleMetadata{
		ID: "Q020", DisplayName: "prefer-scoped-resource", Category: model.CategoryQuality,
		DefaultSeverity: model.SeverityWarning, DefaultConfidence: model.ConfidenceMedium,
		Description: "Flags disposable resources assigned to a binding instead of a scoped declaration.",
	}, func(file model.ParsedFile, artifacts *ruleengine.Artifacts, config model.Configuration) ([]model.Diagnostic, error) {
		if artifacts.Scopes == nil {
			return nil, nil
		}
		var out []model.Diagnostic
		walk(file.Root(), func(n model.Node) {
			if n.Kind() != lang.VariableDeclarator {
				return
			}
			value := n.ChildByFieldName("value")
			name := n.ChildByFieldName("name")
			if value == nil || name == nil || value.Kind() != lang.CallExpression {
				return
			}
			callee := value.ChildByFieldName("function")
			path, ok := calleePath(callee)
			if !ok {
				return
			}
			conf, matched := catalog.Match(path)
			if !matched {
				return
			}
			if onlyUseIsReturn(artifacts.Scopes, name.Text()) {
				return
			}
			out = append(out, model.Diagnostic{
				RuleID: "Q020", RuleName: "prefer-scoped-resource", Category: model.CategoryQuality,
				Severity: model.SeverityWarning, Confidence: conf,
				Message:    "'" + name.Text() + "' holds a disposable resource; prefer a scoped declaration that releases it",
				Suggestion: "wrap the resource acquisition in a scoped/using declaration",
				File:       file.Filename(), Range: rangeOf(file, n),
			})
		})
		sortDiagnostics(out)
		return out, nil
	})
}

func calleePath(n model.Node) (string, bool) {
	if n == nil {
		return "", false
	}
	switch n.Kind() {
	case lang.Identifier:
		return n.Text(), true
	case lang.MemberExpression:
		obj := n.ChildByFieldName("object")
		prop := n.ChildByFieldName("property")
		if obj == nil || prop == nil {
			return "", false
		}
		base, ok := calleePath(obj)
		if !ok {
			return "", false
		}
		return base + "." + prop.Text(), true
	default:
		return "", false
	}
}

func onlyUseIsReturn(tree *scope.Tree, name string) bool {
	var sym *scope.Symbol
	tree.Walk(func(s *scope.Scope) {
		for _, candidate := range s.LocalSymbols() {
			if candidate.Name == name {
				sym = candidate
			}
		}
	})
	if sym == nil {
		return false
	}
	return sym.Reads == 1 && sym.Writes == 0
}

// --- Q021: unhandled-async ---

var promiseProducingSuffixes = []string{"fetch", "Async", "Promise"}

func looksPromiseProducing(path string) bool {
	for _, suffix := range promiseProducingSuffixes {
		if strings.HasSuffix(path, suffix) || path == "fetch" {
			return true
		}
	}
	return false
}

func NewUnhandledAsync() ruleengine.Rule {
	return newRule(model.RuleMetadata{
		ID: "Q021", DisplayName: "unhandled-async", Category: model.CategoryQuality,
		DefaultSeverity: model.SeverityWarning, DefaultConfidence: model.ConfidenceMedium,
		Description: "Flags a likely promise-producing call whose result is discarded.",
	}, func(file model.ParsedFile, artifacts *ruleengine.Artifacts, config model.Configuration) ([]model.Diagnostic, error) {
		var out []model.Diagnostic
		walk(file.Root(), func(n model.Node) {
			if n.Kind() != lang.ExpressionStatement {
				return
			}
			children := n.NamedChildren()
			if len(children) != 1 || children[0].Kind() != lang.CallExpression {
				return
			}
			call := children[0]
			path, ok := calleePath(call.ChildByFieldName("function"))
			if !ok || !looksPromiseProducing(path) {
				return
			}
			out = append(out, model.Diagnostic{
				RuleID: "Q021", RuleName: "unhandled-async", Category: model.CategoryQuality,
				Severity: model.SeverityWarning, Confidence: model.ConfidenceMedium,
				Message:    "promise-producing call '" + path + "' is not awaited, assigned, or handled",
				Suggestion: "await the call, chain .then/.catch, or assign the result",
				File:       file.Filename(), Range: rangeOf(file, call),
			})
		})
		sortDiagnostics(out)
		return out, nil
	})
}

// --- Q022: suggest-optional-chain ---

func NewSuggestOptionalChain() ruleengine.Rule {
	return newRule(model.RuleMetadata{
		ID: "Q022", DisplayName: "suggest-optional-chain", Category: model.CategoryQuality,
		DefaultSeverity: model.SeverityHint, DefaultConfidence: model.ConfidenceHigh,
		Description: "Detects 'A && A.b' and suggests 'A?.b'.",
	}, func(file model.ParsedFile, artifacts *ruleengine.Artifacts, config model.Configuration) ([]model.Diagnostic, error) {
		var out []model.Diagnostic
		walk(file.Root(), func(n model.Node) {
			if n.Kind() != lang.BinaryExpression || childWithText(n, lang.OpLogicalAnd) == nil {
				return
			}
			left := n.ChildByFieldName("left")
			right := n.ChildByFieldName("right")
			if left == nil || right == nil {
				return
			}
			leftPath, ok := calleePath(left)
			if !ok {
				return
			}
			rightPath, ok := calleePath(right)
			if !ok || rightPath == leftPath || !strings.HasPrefix(rightPath, leftPath+".") {
				return
			}
			if containsCall(right) {
				return
			}
			out = append(out, model.Diagnostic{
				RuleID: "Q022", RuleName: "suggest-optional-chain", Category: model.CategoryQuality,
				Severity: model.SeverityHint, Confidence: model.ConfidenceHigh,
				Message:    "'" + leftPath + " && " + rightPath + "' can use optional chaining",
				Suggestion: "use '" + leftPath + "?." + strings.TrimPrefix(rightPath, leftPath+".") + "'",
				File:       file.Filename(), Range: rangeOf(file, n),
			})
		})
		sortDiagnostics(out)
		return out, nil
	})
}

func containsCall(n model.Node) bool {
	found := false
	walk(n, func(c model.Node) {
		if c.Kind() == lang.CallExpression {
			found = true
		}
	})
	return found
}

// --- Q023: suggest-nullish-default ---

func isLiteralKind(kind string) bool {
	switch kind {
	case lang.String, lang.Number, lang.True, lang.False, lang.Array, lang.Object:
		return true
	default:
		return false
	}
}

func NewSuggestNullishDefault() ruleengine.Rule {
	return newRule(model.RuleMetadata{
		ID: "Q023", DisplayName: "suggest-nullish-default", Category: model.CategoryQuality,
		DefaultSeverity: model.SeverityHint, DefaultConfidence: model.ConfidenceHigh,
		Description: "Detects 'X || literal' and suggests 'X ?? literal'.",
	}, func(file model.ParsedFile, artifacts *ruleengine.Artifacts, config model.Configuration) ([]model.Diagnostic, error) {
		var out []model.Diagnostic
		walk(file.Root(), func(n model.Node) {
			if n.Kind() != lang.BinaryExpression || childWithText(n, lang.OpLogicalOr) == nil {
				return
			}
			right := n.ChildByFieldName("right")
			if right == nil || !isLiteralKind(right.Kind()) {
				return
			}
			out = append(out, model.Diagnostic{
				RuleID: "Q023", RuleName: "suggest-nullish-default", Category: model.CategoryQuality,
				Severity: model.SeverityHint, Confidence: model.ConfidenceHigh,
				Message:    "'X || literal' defaults on any falsy value; '??' only defaults on null/undefined",
				Suggestion: "use '??' instead of '||' for this default",
				File:       file.Filename(), Range: rangeOf(file, n),
			})
		})
		sortDiagnostics(out)
		return out, nil
	})
}

// --- Q030: disallow-legacy-binding ---

func NewDisallowLegacyBinding() ruleengine.Rule {
	return newRule(model.RuleMetadata{
		ID: "Q030", DisplayName: "disallow-legacy-binding", Category: model.CategoryQuality,
		DefaultSeverity: model.SeverityWarning, DefaultConfidence: model.ConfidenceHigh,
		Description: "Flags 'var' declarations and offers a 'let' replacement.",
	}, func(file model.ParsedFile, artifacts *ruleengine.Artifacts, config model.Configuration) ([]model.Diagnostic, error) {
		var out []model.Diagnostic
		walk(file.Root(), func(n model.Node) {
			if n.Kind() != lang.VariableDeclaration {
				return
			}
			kw := childWithText(n, "var")
			r := rangeOf(file, n)
			var fix *model.Fix
			if kw != nil {
				kwRange := rangeOf(file, kw)
				fix = &model.Fix{Edits: []model.Edit{{Range: kwRange, Replacement: "let"}}}
			}
			out = append(out, model.Diagnostic{
				RuleID: "Q030", RuleName: "disallow-legacy-binding", Category: model.CategoryQuality,
				Severity: model.SeverityWarning, Confidence: model.ConfidenceHigh,
				Message: "'var' has function-scoped, hoisted semantics; prefer block-scoped 'let'/'const'",
				File:    file.Filename(), Range: r, Fix: fix,
			})
		})
		sortDiagnostics(out)
		return out, nil
	})
}

// --- Q031: prefer-immutable-binding ---

func NewPreferImmutableBinding() ruleengine.Rule {
	return newRule(model.RuleMetadata{
		ID: "Q031", DisplayName: "prefer-immutable-binding", Category: model.CategoryQuality,
		DefaultSeverity: model.SeverityHint, DefaultConfidence: model.ConfidenceHigh,
		Description: "Flags a 'let' binding that is never reassigned after initialization.",
	}, func(file model.ParsedFile, artifacts *ruleengine.Artifacts, config model.Configuration) ([]model.Diagnostic, error) {
		if artifacts.Scopes == nil {
			return nil, nil
		}
		var out []model.Diagnostic
		artifacts.Scopes.Walk(func(s *scope.Scope) {
			for _, sym := range s.LocalSymbols() {
				// let and var are both reassignable; either earns the
				// suggestion when nothing ever writes it again.
				if sym.Kind != scope.SymbolMutableBinding && sym.Kind != scope.SymbolFunctionScoped {
					continue
				}
				if sym.Writes != 0 {
					continue
				}
				out = append(out, model.Diagnostic{
					RuleID: "Q031", RuleName: "prefer-immutable-binding", Category: model.CategoryQuality,
					Severity: model.SeverityHint, Confidence: model.ConfidenceHigh,
					Message:    "'" + sym.Name + "' is never reassigned after initialization",
					Suggestion: "declare with 'const' instead of 'let'",
					File:       file.Filename(), Range: sym.Declaration,
				})
			}
		})
		sortDiagnostics(out)
		return out, nil
	})
}

// --- Q032: disallow-console ---

func NewDisallowConsole() ruleengine.Rule {
	return newRule(model.RuleMetadata{
		ID: "Q032", DisplayName: "disallow-console", Category: model.CategoryQuality,
		DefaultSeverity: model.SeverityInfo, DefaultConfidence: model.ConfidenceHigh,
		Description: "Flags console.* calls.",
	}, func(file model.ParsedFile, artifacts *ruleengine.Artifacts, config model.Configuration) ([]model.Diagnostic, error) {
		var out []model.Diagnostic
		walk(file.Root(), func(n model.Node) {
			if n.Kind() != lang.CallExpression {
				return
			}
			path, ok := calleePath(n.ChildByFieldName("function"))
			if !ok || !strings.HasPrefix(path, "console.") {
				return
			}
			out = append(out, model.Diagnostic{
				RuleID: "Q032", RuleName: "disallow-console", Category: model.CategoryQuality,
				Severity: model.SeverityInfo, Confidence: model.ConfidenceHigh,
				Message: "'" + path + "' should not ship in production code",
				File:    file.Filename(), Range: rangeOf(file, n),
			})
		})
		sortDiagnostics(out)
		return out, nil
	})
}

// --- Q033: strict-equality ---

func NewStrictEquality() ruleengine.Rule {
	return newRule(model.RuleMetadata{
		ID: "Q033", DisplayName: "strict-equality", Category: model.CategoryQuality,
		DefaultSeverity: model.SeverityWarning, DefaultConfidence: model.ConfidenceHigh,
		Description: "Flags '==' and '!=' and offers a strict-equality fix.",
	}, func(file model.ParsedFile, artifacts *ruleengine.Artifacts, config model.Configuration) ([]model.Diagnostic, error) {
		var out []model.Diagnostic
		walk(file.Root(), func(n model.Node) {
			if n.Kind() != lang.BinaryExpression {
				return
			}
			op := childWithText(n, lang.OpLooseEqual)
			replacement := lang.OpStrictEqual
			if op == nil {
				op = childWithText(n, lang.OpLooseNotEqual)
				replacement = lang.OpStrictNotEqual
			}
			if op == nil {
				return
			}
			opRange := rangeOf(file, op)
			out = append(out, model.Diagnostic{
				RuleID: "Q033", RuleName: "strict-equality", Category: model.CategoryQuality,
				Severity: model.SeverityWarning, Confidence: model.ConfidenceHigh,
				Message: "'" + op.Text() + "' performs type coercion; prefer '" + replacement + "'",
				File:    file.Filename(), Range: rangeOf(file, n),
				Fix: &model.Fix{Edits: []model.Edit{{Range: opRange, Replacement: replacement}}},
			})
		})
		sortDiagnostics(out)
		return out, nil
	})
}

// --- Q034: disallow-dynamic-eval ---

func NewDisallowDynamicEval() ruleengine.Rule {
	return newRule(model.RuleMetadata{
		ID: "Q034", DisplayName: "disallow-dynamic-eval", Category: model.CategoryQuality,
		DefaultSeverity: model.SeverityWarning, DefaultConfidence: model.ConfidenceHigh,
		Description: "Flags eval, Function construction, and string-argument setTimeout/setInterval.",
	}, func(file model.ParsedFile, artifacts *ruleengine.Artifacts, config model.Configuration) ([]model.Diagnostic, error) {
		var out []model.Diagnostic
		walk(file.Root(), func(n model.Node) {
			var fn model.Node
			switch n.Kind() {
			case lang.CallExpression:
				fn = n.ChildByFieldName("function")
			case lang.NewExpression:
				fn = n.ChildByFieldName("constructor")
			default:
				return
			}
			path, ok := calleePath(fn)
			if !ok {
				return
			}
			switch path {
			case "eval", "Function":
			case "setTimeout", "setInterval":
				if !firstArgIsStringLike(n) {
					return
				}
			default:
				return
			}
			out = append(out, model.Diagnostic{
				RuleID: "Q034", RuleName: "disallow-dynamic-eval", Category: model.CategoryQuality,
				Severity: model.SeverityWarning, Confidence: model.ConfidenceHigh,
				Message: "dynamic code execution via '" + path + "' is a code-injection risk",
				File:    file.Filename(), Range: rangeOf(file, n),
			})
		})
		sortDiagnostics(out)
		return out, nil
	})
}

func firstArgIsStringLike(call model.Node) bool {
	args := call.ChildByFieldName("arguments")
	if args == nil {
		return false
	}
	children := args.NamedChildren()
	if len(children) == 0 {
		return false
	}
	first := children[0]
	return first.Kind() == lang.String || first.Kind() == lang.TemplateString ||
		first.Kind() == lang.BinaryExpression
}

func sortDiagnostics(d []model.Diagnostic) {
	sort.Slice(d, func(i, j int) bool {
		a, b := d[i].Range, d[j].Range
		if a.StartLine != b.StartLine {
			return a.StartLine < b.StartLine
		}
		return a.StartColumn < b.StartColumn
	})
}
