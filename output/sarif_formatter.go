package output

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	sarif "github.com/owenrumney/go-sarif/v2/sarif"

	"github.com/kzn-tools/kaizen/model"
)

// SARIFFormatter formats enriched diagnostics as SARIF 2.1.0.
type SARIFFormatter struct {
	writer  io.Writer
	options *OutputOptions
}

// NewSARIFFormatter creates a SARIF formatter.
func NewSARIFFormatter(opts *OutputOptions) *SARIFFormatter {
	if opts == nil {
		opts = NewDefaultOptions()
	}
	return &SARIFFormatter{
		writer:  os.Stdout,
		options: opts,
	}
}

// NewSARIFFormatterWithWriter creates a formatter with custom writer (for testing).
func NewSARIFFormatterWithWriter(w io.Writer, opts *OutputOptions) *SARIFFormatter {
	sf := NewSARIFFormatter(opts)
	sf.writer = w
	return sf
}

// Format outputs all diagnostics as SARIF.
func (f *SARIFFormatter) Format(diagnostics []*EnrichedDiagnostic, scanInfo ScanInfo) error {
	report, err := sarif.New(sarif.Version210)
	if err != nil {
		return err
	}

	run := sarif.NewRunWithInformationURI("Kaizen", "https://github.com/kzn-tools/kaizen")

	f.buildRules(diagnostics, run)

	for _, d := range diagnostics {
		f.buildResult(d, run)
	}

	report.AddRun(run)

	encoder := json.NewEncoder(f.writer)
	encoder.SetIndent("", "  ")
	return encoder.Encode(report)
}

func (f *SARIFFormatter) buildRules(diagnostics []*EnrichedDiagnostic, run *sarif.Run) {
	seen := make(map[string]bool)

	for _, d := range diagnostics {
		if seen[d.RuleID] {
			continue
		}
		seen[d.RuleID] = true

		fullDesc := d.Message
		if d.Category != "" {
			fullDesc += " (" + string(d.Category) + ")"
		}

		sarifRule := run.AddRule(d.RuleID).
			WithDescription(fullDesc).
			WithName(d.RuleName).
			WithHelpURI("https://github.com/kzn-tools/kaizen")

		level := f.severityToLevelString(d.Severity)
		sarifRule.WithDefaultConfiguration(sarif.NewReportingConfiguration().WithLevel(level))

		sarifRule.WithProperties(f.buildRuleProperties(d.Severity))
	}
}

func (f *SARIFFormatter) severityToLevelString(severity model.Severity) string {
	switch severity {
	case model.SeverityError:
		return "error"
	case model.SeverityWarning:
		return "warning"
	case model.SeverityInfo, model.SeverityHint:
		return "note"
	default:
		return "warning"
	}
}

func (f *SARIFFormatter) buildRuleProperties(severity model.Severity) map[string]interface{} {
	props := make(map[string]interface{})
	props["tags"] = []string{"security"}
	props["security-severity"] = f.severityToScore(severity)
	props["precision"] = "high"
	return props
}

func (f *SARIFFormatter) severityToScore(severity model.Severity) string {
	switch severity {
	case model.SeverityError:
		return "9.0"
	case model.SeverityWarning:
		return "6.0"
	case model.SeverityInfo:
		return "3.0"
	default:
		return "1.0"
	}
}

func (f *SARIFFormatter) buildResult(d *EnrichedDiagnostic, run *sarif.Run) {
	message := d.Message
	if d.Confidence != "" {
		message += fmt.Sprintf(" (confidence: %s)", d.Confidence)
	}

	result := run.CreateResultForRule(d.RuleID).
		WithMessage(sarif.NewTextMessage(message))

	f.addLocation(d, result)

	if len(d.Related) > 0 {
		f.addCodeFlow(d, result)
	}
}

func (f *SARIFFormatter) addLocation(d *EnrichedDiagnostic, result *sarif.Result) {
	region := sarif.NewRegion().WithStartLine(d.Range.StartLine)
	if d.Range.StartColumn > 0 {
		region.WithStartColumn(d.Range.StartColumn)
	}

	location := sarif.NewLocation().
		WithPhysicalLocation(
			sarif.NewPhysicalLocation().
				WithArtifactLocation(sarif.NewArtifactLocation().WithUri(d.File)).
				WithRegion(region),
		)

	result.AddLocation(location)
}

func (f *SARIFFormatter) addCodeFlow(d *EnrichedDiagnostic, result *sarif.Result) {
	threadLocations := make([]*sarif.ThreadFlowLocation, 0, len(d.Related)+1)

	for _, rel := range d.Related {
		msg := "Taint source"
		if rel.Label != "" {
			msg = rel.Label
		}
		loc := sarif.NewLocation().
			WithPhysicalLocation(
				sarif.NewPhysicalLocation().
					WithArtifactLocation(sarif.NewArtifactLocation().WithUri(rel.File)).
					WithRegion(sarif.NewRegion().WithStartLine(rel.Range.StartLine)),
			).
			WithMessage(sarif.NewTextMessage(msg))
		threadLocations = append(threadLocations, sarif.NewThreadFlowLocation().WithLocation(loc))
	}

	sinkLocation := sarif.NewLocation().
		WithPhysicalLocation(
			sarif.NewPhysicalLocation().
				WithArtifactLocation(sarif.NewArtifactLocation().WithUri(d.File)).
				WithRegion(sarif.NewRegion().WithStartLine(d.Range.StartLine)),
		).
		WithMessage(sarif.NewTextMessage("Taint sink"))
	threadLocations = append(threadLocations, sarif.NewThreadFlowLocation().WithLocation(sinkLocation))

	threadFlow := sarif.NewThreadFlow().WithLocations(threadLocations)

	flowMsg := fmt.Sprintf("Taint flow reaching %s:%d", d.File, d.Range.StartLine)
	codeFlow := sarif.NewCodeFlow().
		WithThreadFlows([]*sarif.ThreadFlow{threadFlow}).
		WithMessage(sarif.NewTextMessage(flowMsg))

	result.WithCodeFlows([]*sarif.CodeFlow{codeFlow})

	first := d.Related[0]
	relatedMsg := "Taint source"
	if first.Label != "" {
		relatedMsg = first.Label
	}
	relatedLocation := sarif.NewLocation().
		WithPhysicalLocation(
			sarif.NewPhysicalLocation().
				WithArtifactLocation(sarif.NewArtifactLocation().WithUri(first.File)).
				WithRegion(sarif.NewRegion().WithStartLine(first.Range.StartLine)),
		).
		WithMessage(sarif.NewTextMessage(relatedMsg))

	result.WithRelatedLocations([]*sarif.Location{relatedLocation})
}
