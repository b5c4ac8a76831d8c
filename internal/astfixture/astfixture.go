// Package astfixture builds in-memory model.Node / model.ParsedFile trees
// for exercising the semantic layer (scope, cfg, dataflow, taint, rules)
// independently of any concrete parser collaborator. The core packages
// depend only on the model.Node vocabulary, so a hand-built
// tree using the same tree-sitter-javascript node-kind strings that
// package jsast produces is a faithful stand-in for tests.
package astfixture

import (
	"strings"

	"github.com/kzn-tools/kaizen/model"
)

// Node is a mutable, hand-built model.Node. Tests build trees with New
// and AddChild, then freeze them into a File with NewFile.
type Node struct {
	kind     string
	named    bool
	text     string
	span     model.Span
	children []*Node
	fields   map[int]string
}

// New creates an anonymous-by-default node of the given grammar kind.
func New(kind string) *Node {
	return &Node{kind: kind, named: true, fields: make(map[int]string)}
}

// Anon marks a node as a punctuation/anonymous token (e.g. "(", "+").
func (n *Node) Anon() *Node {
	n.named = false
	return n
}

// At sets the node's byte span.
func (n *Node) At(start, end uint32) *Node {
	n.span = model.Span{Start: start, End: end}
	return n
}

// WithText sets the node's literal source text.
func (n *Node) WithText(text string) *Node {
	n.text = text
	return n
}

// Add appends an unnamed-field child.
func (n *Node) Add(child *Node) *Node {
	n.children = append(n.children, child)
	return n
}

// Field appends a child bound to the given grammar field name.
func (n *Node) Field(name string, child *Node) *Node {
	n.fields[len(n.children)] = name
	n.children = append(n.children, child)
	return n
}

func (n *Node) Kind() string   { return n.kind }
func (n *Node) IsNamed() bool  { return n.named }
func (n *Node) Span() model.Span { return n.span }
func (n *Node) Text() string  { return n.text }
func (n *Node) ChildCount() int { return len(n.children) }

func (n *Node) Child(i int) model.Node {
	if i < 0 || i >= len(n.children) {
		return nil
	}
	return n.children[i]
}

func (n *Node) ChildByFieldName(name string) model.Node {
	for i, fn := range n.fields {
		if fn == name && i < len(n.children) {
			return n.children[i]
		}
	}
	return nil
}

func (n *Node) NamedChildren() []model.Node {
	out := make([]model.Node, 0, len(n.children))
	for _, c := range n.children {
		if c.named {
			out = append(out, c)
		}
	}
	return out
}

// File is a frozen model.ParsedFile backed by a Node tree and the
// source text it was built from.
type File struct {
	filename string
	language model.LanguageMode
	root     *Node
	source   []byte
	errs     []model.ParseError
}

// NewFile wraps root as a complete parsed file over source.
func NewFile(filename string, source string, root *Node) *File {
	return &File{filename: filename, language: model.LanguageJavaScript, source: []byte(source), root: root}
}

// WithLanguage overrides the default JavaScript language mode.
func (f *File) WithLanguage(lang model.LanguageMode) *File {
	f.language = lang
	return f
}

// WithParseErrors attaches parser-reported errors.
func (f *File) WithParseErrors(errs ...model.ParseError) *File {
	f.errs = errs
	return f
}

func (f *File) Filename() string         { return f.filename }
func (f *File) Language() model.LanguageMode { return f.language }
func (f *File) Root() model.Node         { return f.root }
func (f *File) ParseErrors() []model.ParseError { return f.errs }
func (f *File) SourceText() []byte       { return f.source }

// SpanToLocation converts a byte span into a 1-based line/column range by
// counting newlines in the preceding source text. Test fixtures use plain
// ASCII, so byte offsets double as UTF-16 code unit offsets.
func (f *File) SpanToLocation(span model.Span) model.Range {
	startLine, startCol := lineCol(f.source, span.Start)
	endLine, endCol := lineCol(f.source, span.End)
	return model.Range{StartLine: startLine, StartColumn: startCol, EndLine: endLine, EndColumn: endCol}
}

func lineCol(source []byte, offset uint32) (line, col int) {
	if int(offset) > len(source) {
		offset = uint32(len(source))
	}
	prefix := string(source[:offset])
	line = 1 + strings.Count(prefix, "\n")
	if idx := strings.LastIndexByte(prefix, '\n'); idx >= 0 {
		col = len(prefix) - idx
	} else {
		col = len(prefix) + 1
	}
	return line, col
}

// Span locates the first occurrence of substr within source and returns
// its byte span, so fixtures can anchor nodes to real text instead of
// hand-computed offsets.
func Span(source, substr string) model.Span {
	idx := strings.Index(source, substr)
	if idx < 0 {
		panic("astfixture: substring not found: " + substr)
	}
	return model.Span{Start: uint32(idx), End: uint32(idx + len(substr))}
}

// Leaf builds a named leaf node (identifier, literal, ...) anchored at
// substr's first occurrence in source, with its text set to substr.
func Leaf(kind, source, substr string) *Node {
	sp := Span(source, substr)
	return New(kind).At(sp.Start, sp.End).WithText(substr)
}

// Cursor anchors nodes to successive, left-to-right occurrences of their
// text in source, so fixtures with repeated identifiers (shadowing,
// reassignment) get correct, distinct spans without hand counts.
type Cursor struct {
	source string
	pos    int
}

// NewCursor starts a cursor at the beginning of source.
func NewCursor(source string) *Cursor {
	return &Cursor{source: source}
}

// Next finds substr starting at or after the cursor position, advances
// past it, and returns a named leaf node of the given kind.
func (c *Cursor) Next(kind, substr string) *Node {
	sp := c.advance(substr)
	return New(kind).At(sp.Start, sp.End).WithText(substr)
}

// NextAnon is like Next but marks the node anonymous (a keyword or
// punctuation token rather than a named grammar node).
func (c *Cursor) NextAnon(substr string) *Node {
	sp := c.advance(substr)
	return New("").At(sp.Start, sp.End).WithText(substr).Anon()
}

func (c *Cursor) advance(substr string) model.Span {
	idx := strings.Index(c.source[c.pos:], substr)
	if idx < 0 {
		panic("astfixture: substring not found after cursor: " + substr)
	}
	start := c.pos + idx
	end := start + len(substr)
	c.pos = end
	return model.Span{Start: uint32(start), End: uint32(end)}
}
