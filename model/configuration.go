package model

// Configuration is an immutable per-analysis record. Callers
// construct it (directly, or by loading the `rules.*`/`security.taint.*`
// configuration keys) and hand it to the engine by value; the engine
// never mutates it.
type Configuration struct {
	QualityEnabled  bool
	SecurityEnabled bool

	// DisabledRules holds rule identifiers or display names. Lookups are
	// case-sensitive exact matches against model.RuleMetadata.ID/DisplayName.
	DisabledRules map[string]struct{}

	// SeverityOverrides maps a rule identifier or display name to the
	// severity that should replace its default.
	SeverityOverrides map[string]Severity

	MinSeverity   Severity
	MinConfidence Confidence

	AdditionalSources    []string
	AdditionalSinks      []string
	AdditionalSanitizers []string
}

// DefaultConfiguration returns the default configuration: both
// categories on, nothing disabled, no overrides, no output filtering.
func DefaultConfiguration() Configuration {
	return Configuration{
		QualityEnabled:    true,
		SecurityEnabled:   true,
		DisabledRules:     map[string]struct{}{},
		SeverityOverrides: map[string]Severity{},
		MinSeverity:       SeverityHint,
		MinConfidence:     ConfidenceLow,
	}
}

// IsDisabled reports whether a rule identified by id or displayName has
// been disabled by either name.
func (c Configuration) IsDisabled(id, displayName string) bool {
	if _, ok := c.DisabledRules[id]; ok {
		return true
	}
	if _, ok := c.DisabledRules[displayName]; ok {
		return true
	}
	return false
}

// SeverityFor resolves the effective severity for a rule: the override
// keyed by identifier first, then by display name, else the default.
func (c Configuration) SeverityFor(id, displayName string, defaultSeverity Severity) Severity {
	if s, ok := c.SeverityOverrides[id]; ok {
		return s
	}
	if s, ok := c.SeverityOverrides[displayName]; ok {
		return s
	}
	return defaultSeverity
}

// CategoryEnabled reports whether the given rule category's toggle is on.
func (c Configuration) CategoryEnabled(cat Category) bool {
	switch cat {
	case CategoryQuality:
		return c.QualityEnabled
	case CategorySecurity:
		return c.SecurityEnabled
	default:
		return true
	}
}
