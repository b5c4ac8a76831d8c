package output

// VerbosityLevel controls how much progress and statistics output the
// CLI driver prints while an analysis runs.
type VerbosityLevel int

const (
	VerbosityQuiet VerbosityLevel = iota
	VerbosityDefault
	VerbosityVerbose
	VerbosityDebug
)

// OutputOptions configures a formatter: which fields to include and how
// noisy to be. Formatters take a *OutputOptions rather than individual
// parameters so new knobs don't ripple through every constructor
// signature.
type OutputOptions struct {
	Verbosity    VerbosityLevel
	ShowSnippets bool
	NoColor      bool
	// ContextLines is how many source lines of context surround a
	// diagnostic's highlighted line in an enriched snippet. Zero means
	// "use the enricher's default" rather than "no context".
	ContextLines int
}

// NewDefaultOptions returns the options a bare `kaizen analyze` run uses:
// default verbosity, code snippets shown, color left to the terminal.
func NewDefaultOptions() *OutputOptions {
	return &OutputOptions{
		Verbosity:    VerbosityDefault,
		ShowSnippets: true,
	}
}

// ShouldShowStatistics reports whether the run summary (rules executed,
// files scanned, duration) should be printed.
func (o *OutputOptions) ShouldShowStatistics() bool {
	return o.Verbosity >= VerbosityVerbose
}

// ShouldShowDebug reports whether internal diagnostics (per-file timing,
// cache hits) should be printed.
func (o *OutputOptions) ShouldShowDebug() bool {
	return o.Verbosity >= VerbosityDebug
}
