// Package suppress builds and queries the disable-comment index: a
// sparse line -> suppressed-rule-set mapping parsed from
// `// kaizen-disable-line` / `// kaizen-disable-next-line` comments.
//
// Markers are modeled as a line-indexed map rather than AST attachments,
// so that round-tripping a rule's fix and re-analyzing never has to worry
// about re-attaching a suppression comment to a moved AST node.
package suppress

import (
	"regexp"
	"strings"
)

// marker regexp matches the two recognized prefixes, case-sensitively,
// with optional whitespace before an optional comma-separated rule list.
// There is no block-comment form.
var markerPattern = regexp.MustCompile(`//[ \t]*kaizen-disable-(line|next-line)[ \t]*([^\r\n]*)`)

// ruleSet is the suppression state attached to a single line: either every
// rule ("*" — an empty rule list in the comment) or a specific set of
// rule identifiers/display names.
type ruleSet struct {
	all   bool
	names map[string]struct{}
}

func (rs ruleSet) matches(ruleID, displayName string) bool {
	if rs.all {
		return true
	}
	_, byID := rs.names[ruleID]
	_, byName := rs.names[displayName]
	return byID || byName
}

// Index answers "is position suppressed for rule R" without re-scanning
// source text per query.
type Index struct {
	byLine map[int]ruleSet
}

// Build parses every line of source for suppression markers and returns
// the resulting Index. source is the file's full text, the same bytes
// model.ParsedFile.SourceText returns.
func Build(source []byte) *Index {
	lines := splitLines(source)
	idx := &Index{byLine: make(map[int]ruleSet)}

	for i, line := range lines {
		lineNo := i + 1 // 1-based
		m := markerPattern.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		kind := m[1]
		rs := parseRuleList(m[2])

		switch kind {
		case "line":
			idx.merge(lineNo, rs)
		case "next-line":
			target := nextNonBlankLine(lines, i)
			if target >= 0 {
				idx.merge(target+1, rs)
			}
		}
	}

	return idx
}

func (idx *Index) merge(line int, rs ruleSet) {
	existing, ok := idx.byLine[line]
	if !ok {
		idx.byLine[line] = rs
		return
	}
	if existing.all || rs.all {
		idx.byLine[line] = ruleSet{all: true}
		return
	}
	for name := range rs.names {
		existing.names[name] = struct{}{}
	}
	idx.byLine[line] = existing
}

// IsSuppressed reports whether a diagnostic on the given 1-based line for
// the given rule (by identifier or display name) should be dropped.
func (idx *Index) IsSuppressed(line int, ruleID, displayName string) bool {
	rs, ok := idx.byLine[line]
	if !ok {
		return false
	}
	return rs.matches(ruleID, displayName)
}

func parseRuleList(rest string) ruleSet {
	rest = strings.TrimSpace(rest)
	if rest == "" {
		return ruleSet{all: true}
	}
	names := make(map[string]struct{})
	for _, part := range strings.Split(rest, ",") {
		name := strings.TrimSpace(part)
		if name != "" {
			names[name] = struct{}{}
		}
	}
	if len(names) == 0 {
		return ruleSet{all: true}
	}
	return ruleSet{names: names}
}

func splitLines(source []byte) []string {
	text := string(source)
	// Normalize CRLF so line numbering matches span_to_location's line count.
	text = strings.ReplaceAll(text, "\r\n", "\n")
	return strings.Split(text, "\n")
}

func nextNonBlankLine(lines []string, from int) int {
	for i := from + 1; i < len(lines); i++ {
		if strings.TrimSpace(lines[i]) != "" {
			return i
		}
	}
	return -1
}
