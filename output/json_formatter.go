package output

import (
	"encoding/json"
	"io"
	"os"
	"time"

	"github.com/kzn-tools/kaizen/model"
)

// JSONFormatter formats enriched diagnostics as JSON.
type JSONFormatter struct {
	writer  io.Writer
	options *OutputOptions
}

// NewJSONFormatter creates a JSON formatter.
func NewJSONFormatter(opts *OutputOptions) *JSONFormatter {
	if opts == nil {
		opts = NewDefaultOptions()
	}
	return &JSONFormatter{
		writer:  os.Stdout,
		options: opts,
	}
}

// NewJSONFormatterWithWriter creates a formatter with custom writer (for testing).
func NewJSONFormatterWithWriter(w io.Writer, opts *OutputOptions) *JSONFormatter {
	jf := NewJSONFormatter(opts)
	jf.writer = w
	return jf
}

// JSONOutput represents the complete JSON output structure.
type JSONOutput struct {
	Tool    JSONTool     `json:"tool"`
	Scan    JSONScan     `json:"scan"`
	Results []JSONResult `json:"results"`
	Summary JSONSummary  `json:"summary"`
	Errors  []string     `json:"errors,omitempty"`
}

// JSONTool contains tool metadata.
type JSONTool struct {
	Name    string `json:"name"`
	Version string `json:"version"`
	URL     string `json:"url"`
}

// JSONScan contains scan metadata.
type JSONScan struct {
	Target        string  `json:"target"`
	Timestamp     string  `json:"timestamp"`
	Duration      float64 `json:"duration"`
	RulesExecuted int     `json:"rules_executed"` //nolint:tagliatelle
}

// JSONResult represents a single finding.
type JSONResult struct {
	RuleID     string        `json:"rule_id"`   //nolint:tagliatelle
	RuleName   string        `json:"rule_name"` //nolint:tagliatelle
	Category   string        `json:"category"`
	Message    string        `json:"message"`
	Suggestion string        `json:"suggestion,omitempty"`
	Severity   string        `json:"severity"`
	Confidence string        `json:"confidence"`
	Location   JSONLocation  `json:"location"`
	Related    []JSONRelated `json:"related,omitempty"`
}

// JSONLocation contains finding location.
type JSONLocation struct {
	File    string       `json:"file"`
	Line    int          `json:"line"`
	Column  int          `json:"column,omitempty"`
	Snippet *JSONSnippet `json:"snippet,omitempty"`
}

// JSONSnippet contains code context.
type JSONSnippet struct {
	StartLine int      `json:"start_line"` //nolint:tagliatelle
	EndLine   int      `json:"end_line"`   //nolint:tagliatelle
	Lines     []string `json:"lines"`
}

// JSONRelated represents a secondary location attached to a finding,
// e.g. the source of a tainted value that reaches a sink.
type JSONRelated struct {
	File  string `json:"file"`
	Line  int    `json:"line"`
	Label string `json:"label,omitempty"`
}

// JSONSummary contains aggregated statistics.
type JSONSummary struct {
	Total      int            `json:"total"`
	BySeverity map[string]int `json:"by_severity"` //nolint:tagliatelle
	ByCategory map[string]int `json:"by_category"` //nolint:tagliatelle
}

// ScanInfo contains metadata about the scan.
type ScanInfo struct {
	Target        string
	Version       string
	Duration      time.Duration
	RulesExecuted int
	Errors        []string
}

// Format outputs all diagnostics as JSON.
func (f *JSONFormatter) Format(diagnostics []*EnrichedDiagnostic, summary *Summary, scanInfo ScanInfo) error {
	out := f.buildOutput(diagnostics, summary, scanInfo)

	encoder := json.NewEncoder(f.writer)
	encoder.SetIndent("", "  ")
	return encoder.Encode(out)
}

func (f *JSONFormatter) buildOutput(diagnostics []*EnrichedDiagnostic, summary *Summary, scanInfo ScanInfo) JSONOutput {
	version := scanInfo.Version
	if version == "" {
		version = "unknown"
	}

	return JSONOutput{
		Tool: JSONTool{
			Name:    "Kaizen",
			Version: version,
			URL:     "https://github.com/kzn-tools/kaizen",
		},
		Scan: JSONScan{
			Target:        scanInfo.Target,
			Timestamp:     time.Now().UTC().Format(time.RFC3339),
			Duration:      scanInfo.Duration.Seconds(),
			RulesExecuted: scanInfo.RulesExecuted,
		},
		Results: f.buildResults(diagnostics),
		Summary: JSONSummary{
			Total:      summary.TotalFindings,
			BySeverity: summary.BySeverity,
			ByCategory: summary.ByCategory,
		},
		Errors: scanInfo.Errors,
	}
}

func (f *JSONFormatter) buildResults(diagnostics []*EnrichedDiagnostic) []JSONResult {
	results := make([]JSONResult, 0, len(diagnostics))

	for _, d := range diagnostics {
		results = append(results, JSONResult{
			RuleID:     d.RuleID,
			RuleName:   d.RuleName,
			Category:   string(d.Category),
			Message:    d.Message,
			Suggestion: d.Suggestion,
			Severity:   string(d.Severity),
			Confidence: string(d.Confidence),
			Location:   f.buildLocation(d),
			Related:    f.buildRelated(d.Related),
		})
	}

	return results
}

func (f *JSONFormatter) buildLocation(d *EnrichedDiagnostic) JSONLocation {
	loc := JSONLocation{
		File:   d.File,
		Line:   d.Range.StartLine,
		Column: d.Range.StartColumn,
	}

	if len(d.Snippet.Lines) > 0 {
		lines := make([]string, len(d.Snippet.Lines))
		for i, sl := range d.Snippet.Lines {
			lines[i] = sl.Content
		}
		loc.Snippet = &JSONSnippet{
			StartLine: d.Snippet.StartLine,
			EndLine:   d.Snippet.StartLine + len(d.Snippet.Lines) - 1,
			Lines:     lines,
		}
	}

	return loc
}

func (f *JSONFormatter) buildRelated(related []model.RelatedLocation) []JSONRelated {
	if len(related) == 0 {
		return nil
	}
	out := make([]JSONRelated, len(related))
	for i, r := range related {
		out[i] = JSONRelated{File: r.File, Line: r.Range.StartLine, Label: r.Label}
	}
	return out
}
