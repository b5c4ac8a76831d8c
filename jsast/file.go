package jsast

import (
	"sort"
	"unicode/utf16"
	"unicode/utf8"

	sitter "github.com/smacker/go-tree-sitter"

	"github.com/kzn-tools/kaizen/model"
)

// File is the jsast implementation of model.ParsedFile:
// one tree-sitter tree plus enough bookkeeping to translate byte spans
// into the UTF-16 line/column ranges diagnostics are reported in.
//
// The File keeps the tree-sitter root node and the original source
// bytes together for the lifetime of an analysis, and precomputes a
// line-start index so SpanToLocation never re-scans the whole file per
// call.
type File struct {
	filename string
	language model.LanguageMode
	source   []byte
	tree     *sitter.Tree

	lineStarts []int
}

func newFile(filename string, language model.LanguageMode, source []byte, tree *sitter.Tree) *File {
	f := &File{filename: filename, language: language, source: source, tree: tree}
	f.lineStarts = []int{0}
	for i, b := range source {
		if b == '\n' {
			f.lineStarts = append(f.lineStarts, i+1)
		}
	}
	return f
}

func (f *File) Filename() string          { return f.filename }
func (f *File) Language() model.LanguageMode { return f.language }
func (f *File) SourceText() []byte        { return f.source }
func (f *File) Root() model.Node          { return wrap(f.tree.RootNode(), f.source) }

// Close releases the underlying tree-sitter tree. Not part of
// model.ParsedFile; callers that construct a File directly (rather than
// through a longer-lived cache) should defer it.
func (f *File) Close() {
	if f.tree != nil {
		f.tree.Close()
	}
}

// SpanToLocation converts a byte span into the 1-based, UTF-16
// line/column range diagnostics carry, matching the editor-protocol
// convention rather than tree-sitter's own byte-oriented Point.
func (f *File) SpanToLocation(span model.Span) model.Range {
	startLine, startCol := f.position(span.Start)
	endLine, endCol := f.position(span.End)
	return model.Range{
		StartLine: startLine, StartColumn: startCol,
		EndLine: endLine, EndColumn: endCol,
	}
}

func (f *File) position(offset uint32) (line, column int) {
	target := int(offset)
	idx := sort.Search(len(f.lineStarts), func(i int) bool { return f.lineStarts[i] > target }) - 1
	if idx < 0 {
		idx = 0
	}
	lineStart := f.lineStarts[idx]
	if target > len(f.source) {
		target = len(f.source)
	}
	return idx + 1, utf16ColumnOffset(f.source[lineStart:target]) + 1
}

// utf16ColumnOffset counts the UTF-16 code units in b, treating invalid
// byte sequences as one code unit each so a malformed file still yields
// a monotonic, if imprecise, column.
func utf16ColumnOffset(b []byte) int {
	col := 0
	for len(b) > 0 {
		r, size := utf8.DecodeRune(b)
		if r == utf8.RuneError && size <= 1 {
			col++
			b = b[1:]
			continue
		}
		col += len(utf16.Encode([]rune{r}))
		b = b[size:]
	}
	return col
}

// ParseErrors walks the tree for tree-sitter ERROR and MISSING nodes,
// collecting one ParseError per such node in source order.
func (f *File) ParseErrors() []model.ParseError {
	var out []model.ParseError
	var walk func(n *sitter.Node)
	walk = func(n *sitter.Node) {
		if n == nil {
			return
		}
		switch {
		case n.IsMissing():
			out = append(out, model.ParseError{
				Message: "missing " + n.Type(),
				Span:    model.Span{Start: n.StartByte(), End: n.EndByte()},
			})
		case n.Type() == "ERROR":
			out = append(out, model.ParseError{
				Message: "syntax error",
				Span:    model.Span{Start: n.StartByte(), End: n.EndByte()},
			})
		}
		for i := 0; i < int(n.ChildCount()); i++ {
			walk(n.Child(i))
		}
	}
	walk(f.tree.RootNode())
	return out
}
