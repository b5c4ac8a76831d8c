package rules_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kzn-tools/kaizen/cfg"
	"github.com/kzn-tools/kaizen/internal/astfixture"
	"github.com/kzn-tools/kaizen/model"
	"github.com/kzn-tools/kaizen/ruleengine"
	"github.com/kzn-tools/kaizen/rules"
	"github.com/kzn-tools/kaizen/scope"
)

// lexicalDecl builds `<kw> <name> = <value>;`, anchoring keyword, name,
// and value at their next occurrences in the cursor's source.
func lexicalDecl(c *astfixture.Cursor, kw, name, valueKind, valueText string) *astfixture.Node {
	kwNode := c.NextAnon(kw)
	nameNode := c.Next("identifier", name)
	value := c.Next(valueKind, valueText)
	declarator := astfixture.New("variable_declarator").Field("name", nameNode).Field("value", value)
	kind := "lexical_declaration"
	if kw == "var" {
		kind = "variable_declaration"
	}
	return astfixture.New(kind).Add(kwNode).Add(declarator).
		At(kwNode.Span().Start, value.Span().End)
}

func scopedArtifacts(file model.ParsedFile) *ruleengine.Artifacts {
	return &ruleengine.Artifacts{Scopes: scope.Build(file)}
}

func TestUnusedBindingFlagsNeverReadConst(t *testing.T) {
	src := "const leftover = 1;\n"
	c := astfixture.NewCursor(src)
	decl := lexicalDecl(c, "const", "leftover", "number", "1")
	file := astfixture.NewFile("a.js", src, astfixture.New("program").Add(decl))

	diags, err := rules.NewUnusedBinding().Check(file, scopedArtifacts(file), model.DefaultConfiguration())
	require.NoError(t, err)
	require.Len(t, diags, 1)
	assert.Equal(t, "Q001", diags[0].RuleID)
	assert.Contains(t, diags[0].Message, "leftover")
}

func TestUnusedBindingIgnoresUnderscorePrefix(t *testing.T) {
	src := "const _ignored = 1;\n"
	c := astfixture.NewCursor(src)
	decl := lexicalDecl(c, "const", "_ignored", "number", "1")
	file := astfixture.NewFile("a.js", src, astfixture.New("program").Add(decl))

	diags, err := rules.NewUnusedBinding().Check(file, scopedArtifacts(file), model.DefaultConfiguration())
	require.NoError(t, err)
	assert.Empty(t, diags)
}

func TestUnusedBindingIgnoresExported(t *testing.T) {
	src := "export const api = 1;\n"
	c := astfixture.NewCursor(src)
	c.NextAnon("export")
	decl := lexicalDecl(c, "const", "api", "number", "1")
	exportStmt := astfixture.New("export_statement").Add(decl)
	file := astfixture.NewFile("a.js", src, astfixture.New("program").Add(exportStmt))

	diags, err := rules.NewUnusedBinding().Check(file, scopedArtifacts(file), model.DefaultConfiguration())
	require.NoError(t, err)
	assert.Empty(t, diags)
}

func TestUnusedImportSoleSpecifierDeletesWholeStatement(t *testing.T) {
	src := `import { helper } from "lib";` + "\n"
	stmtSpan := astfixture.Span(src, `import { helper } from "lib";`)
	c := astfixture.NewCursor(src)
	name := c.Next("identifier", "helper")
	specifier := astfixture.New("import_specifier").Field("name", name).
		At(name.Span().Start, name.Span().End)
	namedImports := astfixture.New("named_imports").Add(specifier)
	clause := astfixture.New("import_clause").Add(namedImports)
	source := c.Next("string", `"lib"`)
	importStmt := astfixture.New("import_statement").Add(clause).Field("source", source).
		At(stmtSpan.Start, stmtSpan.End)
	file := astfixture.NewFile("a.js", src, astfixture.New("program").Add(importStmt))

	diags, err := rules.NewUnusedImport().Check(file, scopedArtifacts(file), model.DefaultConfiguration())
	require.NoError(t, err)
	require.Len(t, diags, 1)
	assert.Equal(t, "Q002", diags[0].RuleID)
	require.NotNil(t, diags[0].Fix)
	require.Len(t, diags[0].Fix.Edits, 1)
	assert.Equal(t, "", diags[0].Fix.Edits[0].Replacement)
	// the only specifier: removing it empties the statement, so the fix
	// deletes the statement itself.
	assert.Equal(t, file.SpanToLocation(stmtSpan), diags[0].Fix.Edits[0].Range)
}

func TestUnusedImportAmongLiveOnesDeletesSpecifierAndComma(t *testing.T) {
	src := `import { used, unused } from "lib";` + "\nused();\n"
	c := astfixture.NewCursor(src)
	usedName := c.Next("identifier", "used")
	usedSpec := astfixture.New("import_specifier").Field("name", usedName).
		At(usedName.Span().Start, usedName.Span().End)
	comma := c.NextAnon(",")
	unusedName := c.Next("identifier", "unused")
	unusedSpec := astfixture.New("import_specifier").Field("name", unusedName).
		At(unusedName.Span().Start, unusedName.Span().End)
	namedImports := astfixture.New("named_imports").Add(usedSpec).Add(comma).Add(unusedSpec)
	clause := astfixture.New("import_clause").Add(namedImports)
	source := c.Next("string", `"lib"`)
	importStmt := astfixture.New("import_statement").Add(clause).Field("source", source).
		At(0, source.Span().End+1)

	call := astfixture.New("call_expression").Field("function", c.Next("identifier", "used")).
		Field("arguments", astfixture.New("arguments"))
	callStmt := astfixture.New("expression_statement").Add(call)

	file := astfixture.NewFile("a.js", src, astfixture.New("program").Add(importStmt).Add(callStmt))

	diags, err := rules.NewUnusedImport().Check(file, scopedArtifacts(file), model.DefaultConfiguration())
	require.NoError(t, err)
	require.Len(t, diags, 1)
	assert.Contains(t, diags[0].Message, "unused")
	require.NotNil(t, diags[0].Fix)
	// deletion reaches back over the separating comma so the remaining
	// list stays valid.
	want := model.Span{Start: comma.Span().Start, End: unusedSpec.Span().End}
	assert.Equal(t, file.SpanToLocation(want), diags[0].Fix.Edits[0].Range)
}

func TestUnreachableCodeFlagsStatementAfterReturn(t *testing.T) {
	src := "function f() {\n  return 1;\n  const x = 2;\n}\n"
	c := astfixture.NewCursor(src)

	fnName := c.Next("identifier", "f")
	params := astfixture.New("formal_parameters")
	retVal := c.Next("number", "1")
	returnStmt := astfixture.New("return_statement").Add(retVal).At(retVal.Span().Start, retVal.Span().End)
	decl := lexicalDecl(c, "const", "x", "number", "2")
	body := astfixture.New("statement_block").Add(returnStmt).Add(decl)
	fnDecl := astfixture.New("function_declaration").Field("name", fnName).Field("parameters", params).Field("body", body)
	file := astfixture.NewFile("c.js", src, astfixture.New("program").Add(fnDecl))

	g := cfg.Build(fnDecl, file)
	artifacts := &ruleengine.Artifacts{CFGs: map[model.Node]*cfg.Graph{fnDecl: g}}

	diags, err := rules.NewUnreachableCode().Check(file, artifacts, model.DefaultConfiguration())
	require.NoError(t, err)
	require.Len(t, diags, 1)
	assert.Equal(t, "Q004", diags[0].RuleID)
	assert.Equal(t, 3, diags[0].Range.StartLine)
}

// ifWrapping nests body inside `depth` if-statements sharing one condition
// identifier. The cursor-anchored spans don't matter to the threshold
// rules, so the conditions reuse a single leaf.
func ifWrapping(cond *astfixture.Node, body *astfixture.Node, depth int) *astfixture.Node {
	n := body
	for i := 0; i < depth; i++ {
		n = astfixture.New("if_statement").Field("condition", cond).
			Field("consequence", astfixture.New("statement_block").Add(n))
	}
	return n
}

func TestMaxCyclomaticDoesNotFireAtExactThreshold(t *testing.T) {
	src := "function g(a) { if (a) { work(); } }\n"
	c := astfixture.NewCursor(src)
	fnName := c.Next("identifier", "g")
	param := c.Next("identifier", "a")
	params := astfixture.New("formal_parameters").Add(param)
	cond := c.Next("identifier", "a")
	workName := c.Next("identifier", "work")
	workCall := astfixture.New("call_expression").Field("function", workName).
		Field("arguments", astfixture.New("arguments"))
	stmt := astfixture.New("expression_statement").Add(workCall)
	ifStmt := ifWrapping(cond, stmt, 1)
	body := astfixture.New("statement_block").Add(ifStmt)
	fnDecl := astfixture.New("function_declaration").Field("name", fnName).Field("parameters", params).Field("body", body)
	file := astfixture.NewFile("g.js", src, astfixture.New("program").Add(fnDecl))

	// one if -> complexity 2: equal to the threshold, so no diagnostic.
	diags, err := rules.NewMaxCyclomatic(2).Check(file, &ruleengine.Artifacts{}, model.DefaultConfiguration())
	require.NoError(t, err)
	assert.Empty(t, diags)

	diags, err = rules.NewMaxCyclomatic(1).Check(file, &ruleengine.Artifacts{}, model.DefaultConfiguration())
	require.NoError(t, err)
	require.Len(t, diags, 1)
	assert.Equal(t, "Q010", diags[0].RuleID)
}

func TestMaxNestingFlagsOnlyAboveThreshold(t *testing.T) {
	src := "function h(a) { if (a) { if (a) { work(); } } }\n"
	c := astfixture.NewCursor(src)
	fnName := c.Next("identifier", "h")
	param := c.Next("identifier", "a")
	params := astfixture.New("formal_parameters").Add(param)
	cond := c.Next("identifier", "a")
	workName := astfixture.Leaf("identifier", src, "work")
	workCall := astfixture.New("call_expression").Field("function", workName).
		Field("arguments", astfixture.New("arguments"))
	stmt := astfixture.New("expression_statement").Add(workCall)
	nested := ifWrapping(cond, stmt, 2)
	body := astfixture.New("statement_block").Add(nested)
	fnDecl := astfixture.New("function_declaration").Field("name", fnName).Field("parameters", params).Field("body", body)
	file := astfixture.NewFile("h.js", src, astfixture.New("program").Add(fnDecl))

	diags, err := rules.NewMaxNesting(2).Check(file, &ruleengine.Artifacts{}, model.DefaultConfiguration())
	require.NoError(t, err)
	assert.Empty(t, diags)

	diags, err = rules.NewMaxNesting(1).Check(file, &ruleengine.Artifacts{}, model.DefaultConfiguration())
	require.NoError(t, err)
	require.Len(t, diags, 1)
	assert.Equal(t, "Q011", diags[0].RuleID)
}

func TestPreferScopedResourceFlagsDisposableInitializer(t *testing.T) {
	src := `const handle = fs.openSync("data.txt");` + "\n"
	c := astfixture.NewCursor(src)
	kw := c.NextAnon("const")
	name := c.Next("identifier", "handle")
	callee := memberPath(c, "fs", "openSync")
	arg := c.Next("string", `"data.txt"`)
	call := astfixture.New("call_expression").Field("function", callee).
		Field("arguments", astfixture.New("arguments").Add(arg))
	declarator := astfixture.New("variable_declarator").Field("name", name).Field("value", call)
	decl := astfixture.New("lexical_declaration").Add(kw).Add(declarator)
	file := astfixture.NewFile("r.js", src, astfixture.New("program").Add(decl))

	diags, err := rules.NewPreferScopedResource(nil).Check(file, scopedArtifacts(file), model.DefaultConfiguration())
	require.NoError(t, err)
	require.Len(t, diags, 1)
	assert.Equal(t, "Q020", diags[0].RuleID)
	assert.Equal(t, model.ConfidenceHigh, diags[0].Confidence)
}

func TestUnhandledAsyncFlagsDiscardedFetch(t *testing.T) {
	src := `fetch("/api");` + "\n"
	c := astfixture.NewCursor(src)
	callee := c.Next("identifier", "fetch")
	arg := c.Next("string", `"/api"`)
	call := astfixture.New("call_expression").Field("function", callee).
		Field("arguments", astfixture.New("arguments").Add(arg))
	stmt := astfixture.New("expression_statement").Add(call)
	file := astfixture.NewFile("p.js", src, astfixture.New("program").Add(stmt))

	diags, err := rules.NewUnhandledAsync().Check(file, &ruleengine.Artifacts{}, model.DefaultConfiguration())
	require.NoError(t, err)
	require.Len(t, diags, 1)
	assert.Equal(t, "Q021", diags[0].RuleID)
}

func TestSuggestOptionalChainOffersRewrite(t *testing.T) {
	src := "user && user.name;\n"
	c := astfixture.NewCursor(src)
	left := c.Next("identifier", "user")
	op := c.NextAnon("&&")
	right := memberPath(c, "user", "name")
	expr := astfixture.New("binary_expression").Field("left", left).Add(op).Field("right", right)
	file := astfixture.NewFile("o.js", src, astfixture.New("program").
		Add(astfixture.New("expression_statement").Add(expr)))

	diags, err := rules.NewSuggestOptionalChain().Check(file, &ruleengine.Artifacts{}, model.DefaultConfiguration())
	require.NoError(t, err)
	require.Len(t, diags, 1)
	assert.Equal(t, "Q022", diags[0].RuleID)
	assert.Contains(t, diags[0].Suggestion, "user?.name")
}

func TestSuggestOptionalChainSkipsCallOnRightSide(t *testing.T) {
	src := "user && user.load();\n"
	c := astfixture.NewCursor(src)
	left := c.Next("identifier", "user")
	op := c.NextAnon("&&")
	callee := memberPath(c, "user", "load")
	call := astfixture.New("call_expression").Field("function", callee).
		Field("arguments", astfixture.New("arguments"))
	expr := astfixture.New("binary_expression").Field("left", left).Add(op).Field("right", call)
	file := astfixture.NewFile("o.js", src, astfixture.New("program").
		Add(astfixture.New("expression_statement").Add(expr)))

	diags, err := rules.NewSuggestOptionalChain().Check(file, &ruleengine.Artifacts{}, model.DefaultConfiguration())
	require.NoError(t, err)
	assert.Empty(t, diags)
}

func TestSuggestNullishDefaultFlagsLiteralFallback(t *testing.T) {
	src := `name || "anonymous";` + "\n"
	c := astfixture.NewCursor(src)
	left := c.Next("identifier", "name")
	op := c.NextAnon("||")
	right := c.Next("string", `"anonymous"`)
	expr := astfixture.New("binary_expression").Field("left", left).Add(op).Field("right", right)
	file := astfixture.NewFile("n.js", src, astfixture.New("program").
		Add(astfixture.New("expression_statement").Add(expr)))

	diags, err := rules.NewSuggestNullishDefault().Check(file, &ruleengine.Artifacts{}, model.DefaultConfiguration())
	require.NoError(t, err)
	require.Len(t, diags, 1)
	assert.Equal(t, "Q023", diags[0].RuleID)
}

func TestDisallowLegacyBindingEmitsLetFix(t *testing.T) {
	src := "var x = 1;\n"
	c := astfixture.NewCursor(src)
	decl := lexicalDecl(c, "var", "x", "number", "1")
	file := astfixture.NewFile("b.js", src, astfixture.New("program").Add(decl))

	diags, err := rules.NewDisallowLegacyBinding().Check(file, &ruleengine.Artifacts{}, model.DefaultConfiguration())
	require.NoError(t, err)
	require.Len(t, diags, 1)
	assert.Equal(t, "Q030", diags[0].RuleID)
	assert.Equal(t, 1, diags[0].Range.StartColumn)
	require.NotNil(t, diags[0].Fix)
	require.Len(t, diags[0].Fix.Edits, 1)
	assert.Equal(t, "let", diags[0].Fix.Edits[0].Replacement)
}

func TestPreferImmutableBindingFlagsNeverReassignedLet(t *testing.T) {
	src := "let total = 1;\n"
	c := astfixture.NewCursor(src)
	decl := lexicalDecl(c, "let", "total", "number", "1")
	file := astfixture.NewFile("b.js", src, astfixture.New("program").Add(decl))

	diags, err := rules.NewPreferImmutableBinding().Check(file, scopedArtifacts(file), model.DefaultConfiguration())
	require.NoError(t, err)
	require.Len(t, diags, 1)
	assert.Equal(t, "Q031", diags[0].RuleID)
	assert.Contains(t, diags[0].Suggestion, "const")
}

func TestPreferImmutableBindingSilentWhenReassigned(t *testing.T) {
	src := "let count = 1;\ncount = 2;\n"
	c := astfixture.NewCursor(src)
	decl := lexicalDecl(c, "let", "count", "number", "1")
	target := c.Next("identifier", "count")
	op := c.NextAnon("=")
	value := c.Next("number", "2")
	assign := astfixture.New("assignment_expression").Field("left", target).Add(op).Field("right", value)
	stmt := astfixture.New("expression_statement").Add(assign)
	file := astfixture.NewFile("b.js", src, astfixture.New("program").Add(decl).Add(stmt))

	diags, err := rules.NewPreferImmutableBinding().Check(file, scopedArtifacts(file), model.DefaultConfiguration())
	require.NoError(t, err)
	assert.Empty(t, diags)
}

func TestDisallowConsoleFlagsCallSite(t *testing.T) {
	src := "console.log(1);\n"
	c := astfixture.NewCursor(src)
	callee := memberPath(c, "console", "log")
	arg := c.Next("number", "1")
	call := astfixture.New("call_expression").Field("function", callee).
		Field("arguments", astfixture.New("arguments").Add(arg))
	file := astfixture.NewFile("l.js", src, astfixture.New("program").
		Add(astfixture.New("expression_statement").Add(call)))

	diags, err := rules.NewDisallowConsole().Check(file, &ruleengine.Artifacts{}, model.DefaultConfiguration())
	require.NoError(t, err)
	require.Len(t, diags, 1)
	assert.Equal(t, "Q032", diags[0].RuleID)
	assert.Equal(t, model.SeverityInfo, diags[0].Severity)
}

func TestStrictEqualityRewritesLooseOperators(t *testing.T) {
	cases := []struct {
		op          string
		replacement string
	}{
		{"==", "==="},
		{"!=", "!=="},
	}
	for _, tc := range cases {
		t.Run(tc.op, func(t *testing.T) {
			src := "a " + tc.op + " b;\n"
			c := astfixture.NewCursor(src)
			left := c.Next("identifier", "a")
			op := c.NextAnon(tc.op)
			right := c.Next("identifier", "b")
			expr := astfixture.New("binary_expression").Field("left", left).Add(op).Field("right", right)
			file := astfixture.NewFile("e.js", src, astfixture.New("program").
				Add(astfixture.New("expression_statement").Add(expr)))

			diags, err := rules.NewStrictEquality().Check(file, &ruleengine.Artifacts{}, model.DefaultConfiguration())
			require.NoError(t, err)
			require.Len(t, diags, 1)
			assert.Equal(t, "Q033", diags[0].RuleID)
			require.NotNil(t, diags[0].Fix)
			assert.Equal(t, tc.replacement, diags[0].Fix.Edits[0].Replacement)
		})
	}
}

func TestDisallowDynamicEvalFlagsStringTimeout(t *testing.T) {
	src := `setTimeout("doWork()", 100);` + "\n"
	c := astfixture.NewCursor(src)
	callee := c.Next("identifier", "setTimeout")
	code := c.Next("string", `"doWork()"`)
	delay := c.Next("number", "100")
	call := astfixture.New("call_expression").Field("function", callee).
		Field("arguments", astfixture.New("arguments").Add(code).Add(delay))
	file := astfixture.NewFile("t.js", src, astfixture.New("program").
		Add(astfixture.New("expression_statement").Add(call)))

	diags, err := rules.NewDisallowDynamicEval().Check(file, &ruleengine.Artifacts{}, model.DefaultConfiguration())
	require.NoError(t, err)
	require.Len(t, diags, 1)
	assert.Equal(t, "Q034", diags[0].RuleID)
}

func TestDisallowDynamicEvalSilentForFunctionTimeout(t *testing.T) {
	src := "setTimeout(tick, 100);\n"
	c := astfixture.NewCursor(src)
	callee := c.Next("identifier", "setTimeout")
	fn := c.Next("identifier", "tick")
	delay := c.Next("number", "100")
	call := astfixture.New("call_expression").Field("function", callee).
		Field("arguments", astfixture.New("arguments").Add(fn).Add(delay))
	file := astfixture.NewFile("t.js", src, astfixture.New("program").
		Add(astfixture.New("expression_statement").Add(call)))

	diags, err := rules.NewDisallowDynamicEval().Check(file, &ruleengine.Artifacts{}, model.DefaultConfiguration())
	require.NoError(t, err)
	assert.Empty(t, diags)
}
