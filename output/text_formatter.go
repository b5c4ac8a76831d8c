package output

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/kzn-tools/kaizen/model"
)

// TextFormatter formats enriched diagnostics as human-readable text.
type TextFormatter struct {
	writer  io.Writer
	options *OutputOptions
}

// NewTextFormatter creates a text formatter writing to stdout.
func NewTextFormatter(opts *OutputOptions) *TextFormatter {
	if opts == nil {
		opts = NewDefaultOptions()
	}
	return &TextFormatter{
		writer:  os.Stdout,
		options: opts,
	}
}

// NewTextFormatterWithWriter creates a formatter with custom writer (for testing).
func NewTextFormatterWithWriter(w io.Writer, opts *OutputOptions) *TextFormatter {
	tf := NewTextFormatter(opts)
	tf.writer = w
	return tf
}

var severityOrder = []model.Severity{
	model.SeverityError, model.SeverityWarning, model.SeverityInfo, model.SeverityHint,
}

// Format outputs all diagnostics as formatted text.
func (f *TextFormatter) Format(diagnostics []*EnrichedDiagnostic, summary *Summary) error {
	if len(diagnostics) == 0 {
		f.writeNoFindings()
		return nil
	}

	f.writeHeader()
	f.writeResults(diagnostics)
	f.writeSummary(summary)

	if f.options.ShouldShowStatistics() {
		f.writeStatistics(summary)
	}

	return nil
}

func (f *TextFormatter) writeHeader() {
	fmt.Fprintln(f.writer, "Kaizen Static Analysis")
	fmt.Fprintln(f.writer)
}

func (f *TextFormatter) writeNoFindings() {
	fmt.Fprintln(f.writer, "Kaizen Static Analysis")
	fmt.Fprintln(f.writer)
	fmt.Fprintln(f.writer, "No issues found.")
}

func (f *TextFormatter) writeResults(diagnostics []*EnrichedDiagnostic) {
	fmt.Fprintln(f.writer, "Results:")
	fmt.Fprintln(f.writer)

	grouped := f.groupBySeverity(diagnostics)

	for _, sev := range severityOrder {
		if ds, ok := grouped[sev]; ok && len(ds) > 0 {
			f.writeSeverityGroup(sev, ds)
		}
	}
}

func (f *TextFormatter) groupBySeverity(diagnostics []*EnrichedDiagnostic) map[model.Severity][]*EnrichedDiagnostic {
	grouped := make(map[model.Severity][]*EnrichedDiagnostic)
	for _, d := range diagnostics {
		grouped[d.Severity] = append(grouped[d.Severity], d)
	}
	return grouped
}

func (f *TextFormatter) writeSeverityGroup(severity model.Severity, diagnostics []*EnrichedDiagnostic) {
	title := fmt.Sprintf("%s Issues (%d):", strings.Title(string(severity)), len(diagnostics))
	fmt.Fprintln(f.writer, title)
	fmt.Fprintln(f.writer)

	showDetailed := severity == model.SeverityError || severity == model.SeverityWarning

	for _, d := range diagnostics {
		if showDetailed {
			f.writeDetailedFinding(d)
		} else {
			f.writeAbbreviatedFinding(d)
		}
	}
	fmt.Fprintln(f.writer)
}

func (f *TextFormatter) writeDetailedFinding(d *EnrichedDiagnostic) {
	fmt.Fprintf(f.writer, "  [%s] %s: %s\n", d.Severity, d.RuleID, d.RuleName)

	if d.Category != "" {
		fmt.Fprintf(f.writer, "    %s\n", d.Category)
	}
	fmt.Fprintln(f.writer)

	fmt.Fprintf(f.writer, "    %s\n", f.formatLocation(d.Diagnostic))

	if len(d.Snippet.Lines) > 0 {
		f.writeCodeSnippet(d.Snippet)
	}
	fmt.Fprintln(f.writer)

	if len(d.Related) > 0 {
		f.writeTaintFlow(d)
	}

	if d.Suggestion != "" {
		fmt.Fprintf(f.writer, "    Suggestion: %s\n", d.Suggestion)
	}

	fmt.Fprintf(f.writer, "    Confidence: %s\n", strings.Title(string(d.Confidence)))
	fmt.Fprintln(f.writer)
}

func (f *TextFormatter) writeAbbreviatedFinding(d *EnrichedDiagnostic) {
	fmt.Fprintf(f.writer, "  [%s] %s: %s\n", d.Severity, d.RuleID, f.formatLocation(d.Diagnostic))
}

func (f *TextFormatter) formatLocation(d model.Diagnostic) string {
	if d.Range.StartLine > 0 {
		return fmt.Sprintf("%s:%d", d.File, d.Range.StartLine)
	}
	return d.File
}

func (f *TextFormatter) writeCodeSnippet(snippet CodeSnippet) {
	maxLineNum := 0
	for _, line := range snippet.Lines {
		if line.Number > maxLineNum {
			maxLineNum = line.Number
		}
	}
	lineWidth := len(fmt.Sprintf("%d", maxLineNum))

	for _, line := range snippet.Lines {
		marker := " "
		if line.IsHighlight {
			marker = ">"
		}
		fmt.Fprintf(f.writer, "      %s %*d | %s\n", marker, lineWidth, line.Number, line.Content)
	}
}

func (f *TextFormatter) writeTaintFlow(d *EnrichedDiagnostic) {
	for _, rel := range d.Related {
		label := rel.Label
		if label == "" {
			label = "related"
		}
		fmt.Fprintf(f.writer, "    Flow: %s at %s:%d\n", label, rel.File, rel.Range.StartLine)
	}
	fmt.Fprintln(f.writer, "    Tainted value reaches this sink without sanitization")
}

func (f *TextFormatter) writeSummary(summary *Summary) {
	fmt.Fprintln(f.writer, "Summary:")
	fmt.Fprintf(f.writer, "  %d findings across %d rules\n", summary.TotalFindings, summary.RulesExecuted)

	var parts []string
	for _, sev := range severityOrder {
		if count, ok := summary.BySeverity[string(sev)]; ok && count > 0 {
			parts = append(parts, fmt.Sprintf("%d %s", count, sev))
		}
	}
	if len(parts) > 0 {
		fmt.Fprintf(f.writer, "  %s\n", strings.Join(parts, " | "))
	}
	fmt.Fprintln(f.writer)
}

func (f *TextFormatter) writeStatistics(summary *Summary) {
	fmt.Fprintln(f.writer, "By Category:")
	for category, count := range summary.ByCategory {
		fmt.Fprintf(f.writer, "  %s: %d findings\n", category, count)
	}
	fmt.Fprintln(f.writer)
}

// Summary holds aggregated statistics about a run, shown by every
// formatter and computed once from the final diagnostic list.
type Summary struct {
	TotalFindings int
	RulesExecuted int
	BySeverity    map[string]int
	ByCategory    map[string]int
	FilesScanned  int
	Duration      string
}

// BuildSummary computes a Summary from the diagnostics a run produced.
func BuildSummary(diagnostics []model.Diagnostic, rulesExecuted int) *Summary {
	summary := &Summary{
		TotalFindings: len(diagnostics),
		RulesExecuted: rulesExecuted,
		BySeverity:    make(map[string]int),
		ByCategory:    make(map[string]int),
	}

	for _, d := range diagnostics {
		summary.BySeverity[string(d.Severity)]++
		summary.ByCategory[string(d.Category)]++
	}

	return summary
}
