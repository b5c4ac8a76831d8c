package output

import (
	"bufio"
	"os"

	"github.com/kzn-tools/kaizen/model"
)

// SnippetLine is a single numbered line of source context around a
// diagnostic's primary range.
type SnippetLine struct {
	Number      int
	Content     string
	IsHighlight bool
}

// CodeSnippet is a short window of source lines surrounding a
// diagnostic, used by the text/JSON formatters to show the reader the
// offending code without them having to open the file themselves.
type CodeSnippet struct {
	StartLine     int
	Lines         []SnippetLine
	HighlightLine int
}

// EnrichedDiagnostic pairs a model.Diagnostic with display-only context
// the engine itself never computes: a code snippet. The core engine's
// output is driver-agnostic text and ranges; snippet extraction requires
// reading the analyzed file from disk, which only the driver does.
type EnrichedDiagnostic struct {
	model.Diagnostic
	Snippet CodeSnippet
}

// Enricher attaches code snippets to diagnostics by reading the
// analyzed files from disk. Diagnostics already carry an exact file
// path and range, so enrichment reduces to snippet extraction; file
// contents are cached across the run.
type Enricher struct {
	options   *OutputOptions
	fileCache map[string][]string
}

// NewEnricher creates an enricher. opts.ContextLines controls how many
// lines surround the highlighted line; zero uses the package default.
func NewEnricher(opts *OutputOptions) *Enricher {
	if opts == nil {
		opts = NewDefaultOptions()
	}
	return &Enricher{
		options:   opts,
		fileCache: make(map[string][]string),
	}
}

// Enrich wraps a single diagnostic with its code snippet.
func (e *Enricher) Enrich(d model.Diagnostic) *EnrichedDiagnostic {
	enriched := &EnrichedDiagnostic{Diagnostic: d}
	if !e.options.ShowSnippets {
		return enriched
	}
	snippet, err := e.extractSnippet(d.File, d.Range.StartLine)
	if err == nil {
		enriched.Snippet = snippet
	}
	return enriched
}

// EnrichAll enriches every diagnostic in diags, preserving order.
func (e *Enricher) EnrichAll(diags []model.Diagnostic) []*EnrichedDiagnostic {
	out := make([]*EnrichedDiagnostic, 0, len(diags))
	for _, d := range diags {
		out = append(out, e.Enrich(d))
	}
	return out
}

const defaultContextLines = 3

func (e *Enricher) extractSnippet(filePath string, highlightLine int) (CodeSnippet, error) {
	snippet := CodeSnippet{HighlightLine: highlightLine}
	if filePath == "" || highlightLine <= 0 {
		return snippet, nil
	}

	lines, err := e.readFileLines(filePath)
	if err != nil {
		return snippet, err
	}

	contextLines := e.options.ContextLines
	if contextLines == 0 {
		contextLines = defaultContextLines
	}

	startLine := highlightLine - contextLines
	if startLine < 1 {
		startLine = 1
	}
	endLine := highlightLine + contextLines
	if endLine > len(lines) {
		endLine = len(lines)
	}
	snippet.StartLine = startLine

	for i := startLine; i <= endLine; i++ {
		if i > 0 && i <= len(lines) {
			snippet.Lines = append(snippet.Lines, SnippetLine{
				Number:      i,
				Content:     lines[i-1],
				IsHighlight: i == highlightLine,
			})
		}
	}
	return snippet, nil
}

func (e *Enricher) readFileLines(filePath string) ([]string, error) {
	if lines, ok := e.fileCache[filePath]; ok {
		return lines, nil
	}

	file, err := os.Open(filePath)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	var lines []string
	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		lines = append(lines, scanner.Text())
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}

	e.fileCache[filePath] = lines
	return lines, nil
}
