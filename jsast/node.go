package jsast

import (
	sitter "github.com/smacker/go-tree-sitter"

	"github.com/kzn-tools/kaizen/model"
)

// node wraps a tree-sitter node behind the model.Node interface so the
// rest of the engine never imports go-tree-sitter directly. The node
// carries the original source bytes alongside, resolving text lazily
// rather than copying it up front.
type node struct {
	n      *sitter.Node
	source []byte
}

func wrap(n *sitter.Node, source []byte) model.Node {
	if n == nil {
		return nil
	}
	return &node{n: n, source: source}
}

func (nd *node) Kind() string    { return nd.n.Type() }
func (nd *node) IsNamed() bool   { return nd.n.IsNamed() }
func (nd *node) Span() model.Span {
	return model.Span{Start: nd.n.StartByte(), End: nd.n.EndByte()}
}
func (nd *node) Text() string {
	return string(nd.source[nd.n.StartByte():nd.n.EndByte()])
}
func (nd *node) ChildCount() int { return int(nd.n.ChildCount()) }

func (nd *node) Child(i int) model.Node {
	if i < 0 || i >= int(nd.n.ChildCount()) {
		return nil
	}
	return wrap(nd.n.Child(i), nd.source)
}

func (nd *node) ChildByFieldName(name string) model.Node {
	return wrap(nd.n.ChildByFieldName(name), nd.source)
}

func (nd *node) NamedChildren() []model.Node {
	count := int(nd.n.NamedChildCount())
	out := make([]model.Node, 0, count)
	for i := 0; i < count; i++ {
		if c := wrap(nd.n.NamedChild(i), nd.source); c != nil {
			out = append(out, c)
		}
	}
	return out
}
