package model

// Edit is a single text replacement anchored to a range in the analyzed
// file. Edits are emitted as descriptors only — the engine never applies
// them.
type Edit struct {
	Range       Range  `json:"range"`
	Replacement string `json:"replacement"`
}

// Fix groups one or more edits to the same file that together address a
// diagnostic.
type Fix struct {
	Edits []Edit `json:"edits"`
}

// RelatedLocation is a secondary range attached to a diagnostic, e.g. the
// source location a taint finding's sink points back to.
type RelatedLocation struct {
	File  string `json:"file"`
	Range Range  `json:"range"`
	Label string `json:"label,omitempty"`
}

// Diagnostic is an immutable finding produced by a rule. Field names
// are stable; output formatters rely on them.
type Diagnostic struct {
	RuleID     string            `json:"rule_id"`
	RuleName   string            `json:"rule_name"`
	Category   Category          `json:"category"`
	Severity   Severity          `json:"severity"`
	Confidence Confidence        `json:"confidence"`
	Message    string            `json:"message"`
	Suggestion string            `json:"suggestion,omitempty"`
	Fix        *Fix              `json:"fix,omitempty"`
	File       string            `json:"file"`
	Range      Range             `json:"-"`
	Related    []RelatedLocation `json:"related,omitempty"`
}

// MarshalFlat exposes Range's fields at the top level of the JSON
// shape consumers expect.
func (d Diagnostic) MarshalFlat() map[string]any {
	return map[string]any{
		"rule_id":      d.RuleID,
		"rule_name":    d.RuleName,
		"category":     d.Category,
		"severity":     d.Severity,
		"confidence":   d.Confidence,
		"message":      d.Message,
		"suggestion":   d.Suggestion,
		"fix":          d.Fix,
		"file":         d.File,
		"start_line":   d.Range.StartLine,
		"start_column": d.Range.StartColumn,
		"end_line":     d.Range.EndLine,
		"end_column":   d.Range.EndColumn,
		"related":      d.Related,
	}
}

// Sentinel diagnostic identifiers emitted directly by the engine rather
// than by any rule.
const (
	DiagnosticParseError         = "parse-error"
	DiagnosticInternalLimit      = "internal-analysis-limit"
	DiagnosticRuleInternalError  = "rule-internal-error"
	DiagnosticAnalysisCancelled  = "analysis-cancelled"
)

// ParseErrorDiagnostic builds the single diagnostic emitted when a file's
// AST is non-recoverable.
func ParseErrorDiagnostic(file string, r Range, message string) Diagnostic {
	return Diagnostic{
		RuleID:     DiagnosticParseError,
		RuleName:   "Parse Error",
		Category:   CategoryQuality,
		Severity:   SeverityError,
		Confidence: ConfidenceHigh,
		Message:    message,
		File:       file,
		Range:      r,
	}
}

// InternalLimitDiagnostic builds the diagnostic emitted when a single
// function's CFG/DFG could not be built.
func InternalLimitDiagnostic(file string, r Range, functionDesc string) Diagnostic {
	return Diagnostic{
		RuleID:     DiagnosticInternalLimit,
		RuleName:   "Internal Analysis Limit",
		Category:   CategoryQuality,
		Severity:   SeverityWarning,
		Confidence: ConfidenceHigh,
		Message:    "analysis could not build a control/data-flow graph for " + functionDesc,
		File:       file,
		Range:      r,
	}
}

// RuleInternalErrorDiagnostic builds the diagnostic emitted when a rule
// panics or returns an unexpected error.
func RuleInternalErrorDiagnostic(file string, ruleID string, reason string) Diagnostic {
	return Diagnostic{
		RuleID:     DiagnosticRuleInternalError,
		RuleName:   "Rule Internal Error",
		Category:   CategoryQuality,
		Severity:   SeverityWarning,
		Confidence: ConfidenceHigh,
		Message:    "rule " + ruleID + " failed: " + reason,
		File:       file,
		Range:      RangeAt(Point{Line: 1, Column: 1}),
	}
}

// CancelledDiagnostic builds the sentinel diagnostic returned alongside
// partial results when analysis is cancelled mid-flight.
func CancelledDiagnostic(file string) Diagnostic {
	return Diagnostic{
		RuleID:     DiagnosticAnalysisCancelled,
		RuleName:   "Analysis Cancelled",
		Category:   CategoryQuality,
		Severity:   SeverityInfo,
		Confidence: ConfidenceHigh,
		Message:    "analysis was cancelled before all rules completed",
		File:       file,
		Range:      RangeAt(Point{Line: 1, Column: 1}),
	}
}
