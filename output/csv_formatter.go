package output

import (
	"encoding/csv"
	"io"
	"os"
	"strconv"

	"github.com/kzn-tools/kaizen/model"
)

// CSVFormatter formats diagnostics as CSV.
type CSVFormatter struct {
	writer  io.Writer
	options *OutputOptions
}

// NewCSVFormatter creates a CSV formatter.
func NewCSVFormatter(opts *OutputOptions) *CSVFormatter {
	if opts == nil {
		opts = NewDefaultOptions()
	}
	return &CSVFormatter{
		writer:  os.Stdout,
		options: opts,
	}
}

// NewCSVFormatterWithWriter creates a formatter with custom writer (for testing).
func NewCSVFormatterWithWriter(w io.Writer, opts *OutputOptions) *CSVFormatter {
	cf := NewCSVFormatter(opts)
	cf.writer = w
	return cf
}

// CSVHeaders returns the CSV column headers.
func CSVHeaders() []string {
	return []string{
		"severity",
		"confidence",
		"rule_id",
		"rule_name",
		"category",
		"file",
		"line",
		"column",
		"message",
		"suggestion",
		"related_file",
		"related_line",
	}
}

// Format outputs all diagnostics as CSV.
func (f *CSVFormatter) Format(diagnostics []model.Diagnostic) error {
	w := csv.NewWriter(f.writer)
	defer w.Flush()

	if err := w.Write(CSVHeaders()); err != nil {
		return err
	}

	for _, d := range diagnostics {
		if err := w.Write(f.buildRow(d)); err != nil {
			return err
		}
	}

	return w.Error()
}

func (f *CSVFormatter) buildRow(d model.Diagnostic) []string {
	relatedFile, relatedLine := "", ""
	if len(d.Related) > 0 {
		relatedFile = d.Related[0].File
		relatedLine = intToString(d.Related[0].Range.StartLine)
	}

	return []string{
		string(d.Severity),
		string(d.Confidence),
		d.RuleID,
		d.RuleName,
		string(d.Category),
		d.File,
		intToString(d.Range.StartLine),
		intToString(d.Range.StartColumn),
		d.Message,
		d.Suggestion,
		relatedFile,
		relatedLine,
	}
}

func intToString(n int) string {
	if n == 0 {
		return ""
	}
	return strconv.Itoa(n)
}
