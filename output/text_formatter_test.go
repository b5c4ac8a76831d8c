package output

import (
	"bytes"
	"strings"
	"testing"

	"github.com/kzn-tools/kaizen/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewTextFormatter(t *testing.T) {
	tf := NewTextFormatter(nil)
	require.NotNil(t, tf)
	assert.NotNil(t, tf.options)
}

func TestTextFormatterNoFindings(t *testing.T) {
	var buf bytes.Buffer
	tf := NewTextFormatterWithWriter(&buf, nil)

	require.NoError(t, tf.Format(nil, &Summary{}))

	output := buf.String()
	assert.Contains(t, output, "No issues found")
}

func TestTextFormatterWithFindings(t *testing.T) {
	var buf bytes.Buffer
	tf := NewTextFormatterWithWriter(&buf, nil)

	diagnostics := []*EnrichedDiagnostic{
		makeEnriched(model.Diagnostic{
			RuleID:     "S003",
			RuleName:   "command-injection",
			Category:   model.CategorySecurity,
			Severity:   model.SeverityError,
			Confidence: model.ConfidenceHigh,
			Message:    "tainted value reaches eval",
			File:       "auth/login.js",
			Range:      model.Range{StartLine: 10, StartColumn: 1},
		}),
	}

	diags := []model.Diagnostic{diagnostics[0].Diagnostic}
	summary := BuildSummary(diags, 1)

	require.NoError(t, tf.Format(diagnostics, summary))

	output := buf.String()
	assert.Contains(t, output, "S003")
	assert.Contains(t, output, "command-injection")
	assert.Contains(t, output, "auth/login.js:10")
	assert.Contains(t, output, "Security")
}

func TestTextFormatterSeverityGrouping(t *testing.T) {
	var buf bytes.Buffer
	tf := NewTextFormatterWithWriter(&buf, nil)

	diagnostics := []*EnrichedDiagnostic{
		makeEnriched(model.Diagnostic{RuleID: "r1", RuleName: "Rule One", Severity: model.SeverityError, File: "a.js", Range: model.Range{StartLine: 1}}),
		makeEnriched(model.Diagnostic{RuleID: "r2", RuleName: "Rule Two", Severity: model.SeverityWarning, File: "b.js", Range: model.Range{StartLine: 2}}),
		makeEnriched(model.Diagnostic{RuleID: "r3", RuleName: "Rule Three", Severity: model.SeverityInfo, File: "c.js", Range: model.Range{StartLine: 3}}),
		makeEnriched(model.Diagnostic{RuleID: "r4", RuleName: "Rule Four", Severity: model.SeverityHint, File: "d.js", Range: model.Range{StartLine: 4}}),
	}

	diags := make([]model.Diagnostic, len(diagnostics))
	for i, d := range diagnostics {
		diags[i] = d.Diagnostic
	}
	summary := BuildSummary(diags, 4)

	require.NoError(t, tf.Format(diagnostics, summary))

	output := buf.String()

	errIdx := strings.Index(output, "Error Issues")
	warnIdx := strings.Index(output, "Warning Issues")
	infoIdx := strings.Index(output, "Info Issues")
	hintIdx := strings.Index(output, "Hint Issues")

	require.NotEqual(t, -1, errIdx)
	require.NotEqual(t, -1, warnIdx)
	require.NotEqual(t, -1, infoIdx)
	require.NotEqual(t, -1, hintIdx)

	assert.Less(t, errIdx, warnIdx)
	assert.Less(t, warnIdx, infoIdx)
	assert.Less(t, infoIdx, hintIdx)
}

func TestTextFormatterDetailedVsAbbreviated(t *testing.T) {
	var buf bytes.Buffer
	tf := NewTextFormatterWithWriter(&buf, nil)

	diagnostics := []*EnrichedDiagnostic{
		makeEnriched(model.Diagnostic{
			RuleID:   "err-rule",
			RuleName: "Error Rule",
			Severity: model.SeverityError,
			Message:  "an error finding",
			File:     "a.js",
			Range:    model.Range{StartLine: 1},
		}),
		makeEnriched(model.Diagnostic{
			RuleID:   "info-rule",
			RuleName: "Info Rule",
			Severity: model.SeverityInfo,
			Message:  "an info finding",
			File:     "b.js",
			Range:    model.Range{StartLine: 2},
		}),
	}

	diags := make([]model.Diagnostic, len(diagnostics))
	for i, d := range diagnostics {
		diags[i] = d.Diagnostic
	}
	summary := BuildSummary(diags, 2)

	require.NoError(t, tf.Format(diagnostics, summary))

	output := buf.String()
	assert.Contains(t, output, "err-rule: Error Rule")
	assert.Contains(t, output, "info-rule: b.js:2")
	assert.NotContains(t, output, "info-rule: Info Rule")
}

func TestTextFormatterCodeSnippet(t *testing.T) {
	var buf bytes.Buffer
	tf := NewTextFormatterWithWriter(&buf, nil)

	ed := makeEnriched(model.Diagnostic{
		RuleID:   "r1",
		RuleName: "Rule One",
		Severity: model.SeverityError,
		File:     "a.js",
		Range:    model.Range{StartLine: 5},
	})
	ed.Snippet = CodeSnippet{
		StartLine: 4,
		Lines: []SnippetLine{
			{Number: 4, Content: "const x = 1;"},
			{Number: 5, Content: "eval(x);", IsHighlight: true},
			{Number: 6, Content: "return x;"},
		},
	}

	summary := BuildSummary([]model.Diagnostic{ed.Diagnostic}, 1)
	require.NoError(t, tf.Format([]*EnrichedDiagnostic{ed}, summary))

	output := buf.String()
	assert.Contains(t, output, "eval(x);")
	assert.Contains(t, output, ">")
}

func TestTextFormatterTaintFlow(t *testing.T) {
	var buf bytes.Buffer
	tf := NewTextFormatterWithWriter(&buf, nil)

	ed := makeEnriched(model.Diagnostic{
		RuleID:   "r1",
		RuleName: "Rule One",
		Severity: model.SeverityError,
		File:     "a.js",
		Range:    model.Range{StartLine: 20},
		Related: []model.RelatedLocation{
			{File: "a.js", Range: model.Range{StartLine: 10}, Label: "source: request.query"},
		},
	})

	summary := BuildSummary([]model.Diagnostic{ed.Diagnostic}, 1)
	require.NoError(t, tf.Format([]*EnrichedDiagnostic{ed}, summary))

	output := buf.String()
	assert.Contains(t, output, "source: request.query")
	assert.Contains(t, output, "a.js:10")
	assert.Contains(t, output, "Tainted value reaches this sink without sanitization")
}

func TestTextFormatterSuggestion(t *testing.T) {
	var buf bytes.Buffer
	tf := NewTextFormatterWithWriter(&buf, nil)

	ed := makeEnriched(model.Diagnostic{
		RuleID:     "r1",
		RuleName:   "Rule One",
		Severity:   model.SeverityError,
		File:       "a.js",
		Range:      model.Range{StartLine: 1},
		Suggestion: "use parameterized queries instead",
	})

	summary := BuildSummary([]model.Diagnostic{ed.Diagnostic}, 1)
	require.NoError(t, tf.Format([]*EnrichedDiagnostic{ed}, summary))

	assert.Contains(t, buf.String(), "use parameterized queries instead")
}

func TestTextFormatterSummaryLine(t *testing.T) {
	var buf bytes.Buffer
	tf := NewTextFormatterWithWriter(&buf, nil)

	diagnostics := []*EnrichedDiagnostic{
		makeEnriched(model.Diagnostic{RuleID: "r1", Severity: model.SeverityError, File: "a.js", Range: model.Range{StartLine: 1}}),
		makeEnriched(model.Diagnostic{RuleID: "r2", Severity: model.SeverityError, File: "b.js", Range: model.Range{StartLine: 2}}),
		makeEnriched(model.Diagnostic{RuleID: "r3", Severity: model.SeverityWarning, File: "c.js", Range: model.Range{StartLine: 3}}),
	}

	diags := make([]model.Diagnostic, len(diagnostics))
	for i, d := range diagnostics {
		diags[i] = d.Diagnostic
	}
	summary := BuildSummary(diags, 3)

	require.NoError(t, tf.Format(diagnostics, summary))

	output := buf.String()
	assert.Contains(t, output, "3 findings across 3 rules")
	assert.Contains(t, output, "2 error")
	assert.Contains(t, output, "1 warning")
}

func TestTextFormatterStatisticsVerbosity(t *testing.T) {
	var buf bytes.Buffer
	opts := NewDefaultOptions()
	opts.Verbosity = VerbosityVerbose
	tf := NewTextFormatterWithWriter(&buf, opts)

	ed := makeEnriched(model.Diagnostic{RuleID: "r1", Category: model.CategorySecurity, Severity: model.SeverityError, File: "a.js", Range: model.Range{StartLine: 1}})
	summary := BuildSummary([]model.Diagnostic{ed.Diagnostic}, 1)

	require.NoError(t, tf.Format([]*EnrichedDiagnostic{ed}, summary))

	output := buf.String()
	assert.Contains(t, output, "By Category:")
	assert.Contains(t, output, "Security: 1 findings")
}

func TestTextFormatterStatisticsHiddenByDefault(t *testing.T) {
	var buf bytes.Buffer
	tf := NewTextFormatterWithWriter(&buf, NewDefaultOptions())

	ed := makeEnriched(model.Diagnostic{RuleID: "r1", Category: model.CategorySecurity, Severity: model.SeverityError, File: "a.js", Range: model.Range{StartLine: 1}})
	summary := BuildSummary([]model.Diagnostic{ed.Diagnostic}, 1)

	require.NoError(t, tf.Format([]*EnrichedDiagnostic{ed}, summary))

	assert.NotContains(t, buf.String(), "By Category:")
}

func TestBuildSummary(t *testing.T) {
	diags := []model.Diagnostic{
		{RuleID: "r1", Severity: model.SeverityError, Category: model.CategorySecurity},
		{RuleID: "r2", Severity: model.SeverityError, Category: model.CategoryQuality},
		{RuleID: "r3", Severity: model.SeverityWarning, Category: model.CategorySecurity},
	}

	summary := BuildSummary(diags, 5)

	assert.Equal(t, 3, summary.TotalFindings)
	assert.Equal(t, 5, summary.RulesExecuted)
	assert.Equal(t, 2, summary.BySeverity["error"])
	assert.Equal(t, 1, summary.BySeverity["warning"])
	assert.Equal(t, 2, summary.ByCategory["Security"])
	assert.Equal(t, 1, summary.ByCategory["Quality"])
}

func TestBuildSummaryEmpty(t *testing.T) {
	summary := BuildSummary(nil, 0)

	assert.Equal(t, 0, summary.TotalFindings)
	assert.Empty(t, summary.BySeverity)
	assert.Empty(t, summary.ByCategory)
}
