package model

// Span is a half-open byte range [Start, End) in a file's source text,
// as produced by the parser collaborator.
type Span struct {
	Start uint32
	End   uint32
}

// Range is a 1-based, UTF-16 line/column range, matching the editor
// protocol convention every Diagnostic location uses.
type Range struct {
	StartLine   int `json:"start_line"`
	StartColumn int `json:"start_column"`
	EndLine     int `json:"end_line"`
	EndColumn   int `json:"end_column"`
}

// Valid reports whether the range respects the start <= end invariant
// required of every diagnostic range.
func (r Range) Valid() bool {
	if r.StartLine > r.EndLine {
		return false
	}
	if r.StartLine == r.EndLine && r.StartColumn > r.EndColumn {
		return false
	}
	return r.StartLine >= 1 && r.StartColumn >= 1
}

// Point is a single 1-based line/column position, used for diagnostics
// anchored at a location rather than a range (e.g. "(1,1)" sentinels).
type Point struct {
	Line   int
	Column int
}

// RangeAt builds a zero-width Range at a single point.
func RangeAt(p Point) Range {
	return Range{StartLine: p.Line, StartColumn: p.Column, EndLine: p.Line, EndColumn: p.Column}
}
