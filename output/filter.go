package output

import "github.com/kzn-tools/kaizen/model"

// DiffFilter restricts diagnostics to only those in a changed-files set.
// Used for diff-aware scanning where the whole file is analyzed but
// output is limited to files touched in a PR/commit.
type DiffFilter struct {
	changedFiles map[string]bool
}

// NewDiffFilter creates a filter from a list of changed file paths.
// Paths should be exactly as they appear in model.Diagnostic.File.
func NewDiffFilter(changedFiles []string) *DiffFilter {
	fileSet := make(map[string]bool, len(changedFiles))
	for _, f := range changedFiles {
		fileSet[f] = true
	}
	return &DiffFilter{changedFiles: fileSet}
}

// Filter returns only diagnostics whose File is in the changed-files set.
// If no changed files were provided (empty set), all diagnostics are returned.
func (f *DiffFilter) Filter(diagnostics []model.Diagnostic) []model.Diagnostic {
	if len(f.changedFiles) == 0 {
		return diagnostics
	}
	filtered := make([]model.Diagnostic, 0, len(diagnostics))
	for _, d := range diagnostics {
		if f.changedFiles[d.File] {
			filtered = append(filtered, d)
		}
	}
	return filtered
}

// FilteredCount returns the number of diagnostics that would be removed.
func (f *DiffFilter) FilteredCount(diagnostics []model.Diagnostic) int {
	if len(f.changedFiles) == 0 {
		return 0
	}
	count := 0
	for _, d := range diagnostics {
		if !f.changedFiles[d.File] {
			count++
		}
	}
	return count
}

// ChangedFileCount returns the number of changed files in the filter set.
func (f *DiffFilter) ChangedFileCount() int {
	return len(f.changedFiles)
}
