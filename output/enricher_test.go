package output

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/kzn-tools/kaizen/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewEnricher(t *testing.T) {
	tests := []struct {
		name string
		opts *OutputOptions
	}{
		{"nil options uses defaults", nil},
		{"custom options preserved", &OutputOptions{Verbosity: VerbosityDebug}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := NewEnricher(tt.opts)
			require.NotNil(t, e)
			assert.NotNil(t, e.fileCache)
		})
	}
}

func TestExtractSnippet(t *testing.T) {
	tmpDir := t.TempDir()
	testFile := filepath.Join(tmpDir, "test.js")
	content := "line 1\nline 2\nline 3\nline 4\nline 5\nline 6\nline 7"
	require.NoError(t, os.WriteFile(testFile, []byte(content), 0644))

	e := NewEnricher(&OutputOptions{ContextLines: 2})

	tests := []struct {
		name          string
		line          int
		expectedStart int
		expectedCount int
	}{
		{"middle line", 4, 2, 5},
		{"first line", 1, 1, 3},
		{"last line", 7, 5, 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			snippet, err := e.extractSnippet(testFile, tt.line)
			require.NoError(t, err)
			assert.Equal(t, tt.expectedStart, snippet.StartLine)
			assert.Len(t, snippet.Lines, tt.expectedCount)
			assert.Equal(t, tt.line, snippet.HighlightLine)
		})
	}
}

func TestExtractSnippetMissingFile(t *testing.T) {
	e := NewEnricher(nil)
	_, err := e.extractSnippet("/nonexistent/file.js", 10)
	assert.Error(t, err)
}

func TestExtractSnippetEmptyPath(t *testing.T) {
	e := NewEnricher(nil)
	snippet, err := e.extractSnippet("", 10)
	require.NoError(t, err)
	assert.Empty(t, snippet.Lines)
}

func TestFileCache(t *testing.T) {
	tmpDir := t.TempDir()
	testFile := filepath.Join(tmpDir, "cached.js")
	require.NoError(t, os.WriteFile(testFile, []byte("line1\nline2\n"), 0644))

	e := NewEnricher(nil)

	lines1, err := e.readFileLines(testFile)
	require.NoError(t, err)

	lines2, err := e.readFileLines(testFile)
	require.NoError(t, err)

	assert.Same(t, &lines1[0], &lines2[0], "expected cached result")
}

func TestShouldShowStatistics(t *testing.T) {
	tests := []struct {
		name      string
		verbosity VerbosityLevel
		expected  bool
	}{
		{"default does not show stats", VerbosityDefault, false},
		{"verbose shows stats", VerbosityVerbose, true},
		{"debug shows stats", VerbosityDebug, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opts := &OutputOptions{Verbosity: tt.verbosity}
			assert.Equal(t, tt.expected, opts.ShouldShowStatistics())
		})
	}
}

func TestShouldShowDebug(t *testing.T) {
	tests := []struct {
		name      string
		verbosity VerbosityLevel
		expected  bool
	}{
		{"default does not show debug", VerbosityDefault, false},
		{"verbose does not show debug", VerbosityVerbose, false},
		{"debug shows debug", VerbosityDebug, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opts := &OutputOptions{Verbosity: tt.verbosity}
			assert.Equal(t, tt.expected, opts.ShouldShowDebug())
		})
	}
}

func TestEnrich(t *testing.T) {
	tmpDir := t.TempDir()
	testFile := filepath.Join(tmpDir, "test.js")
	content := "function dangerous() {\n  const userInput = input();\n  eval(userInput);\n}\n"
	require.NoError(t, os.WriteFile(testFile, []byte(content), 0644))

	opts := &OutputOptions{ShowSnippets: true, ContextLines: 1}
	e := NewEnricher(opts)

	d := model.Diagnostic{
		RuleID:   "S004",
		RuleName: "code-injection",
		Severity: model.SeverityError,
		File:     testFile,
		Range:    model.Range{StartLine: 3, StartColumn: 3},
		Message:  "tainted value flows into eval",
	}

	enriched := e.Enrich(d)
	require.NotNil(t, enriched)
	assert.Equal(t, "S004", enriched.RuleID)
	assert.Equal(t, 3, enriched.Snippet.HighlightLine)
	assert.Len(t, enriched.Snippet.Lines, 3)
}

func TestEnrich_SnippetsDisabled(t *testing.T) {
	tmpDir := t.TempDir()
	testFile := filepath.Join(tmpDir, "test.js")
	require.NoError(t, os.WriteFile(testFile, []byte("const x = 1;\n"), 0644))

	opts := &OutputOptions{ShowSnippets: false}
	e := NewEnricher(opts)

	d := model.Diagnostic{RuleID: "q001", File: testFile, Range: model.Range{StartLine: 1, StartColumn: 1}}
	enriched := e.Enrich(d)
	assert.Empty(t, enriched.Snippet.Lines)
}

func TestEnrichAll(t *testing.T) {
	e := NewEnricher(&OutputOptions{ShowSnippets: false})

	diagnostics := []model.Diagnostic{
		{RuleID: "q001", File: "a.js", Range: model.Range{StartLine: 10, StartColumn: 1}},
		{RuleID: "q002", File: "b.js", Range: model.Range{StartLine: 20, StartColumn: 1}},
	}

	enriched := e.EnrichAll(diagnostics)
	require.Len(t, enriched, 2)
	assert.Equal(t, "q001", enriched[0].RuleID)
	assert.Equal(t, "q002", enriched[1].RuleID)
}
