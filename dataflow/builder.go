package dataflow

import (
	"github.com/kzn-tools/kaizen/lang"
	"github.com/kzn-tools/kaizen/model"
)

// env is one function's latest-definition map, chained to
// its enclosing function's env so a closure's reads of a captured
// variable fall through to the outer definition.
type env struct {
	defs   map[string]int
	parent *env
}

func newEnv(parent *env) *env { return &env{defs: map[string]int{}, parent: parent} }

func (e *env) lookup(name string) (int, bool) {
	for cur := e; cur != nil; cur = cur.parent {
		if id, ok := cur.defs[name]; ok {
			return id, true
		}
	}
	return 0, false
}

// resolveEnv returns the env in the chain (starting at e) that already
// binds name, or e itself if none does: a write to a name introduced
// by an outer function rebinds it there, while a write to an unseen
// name defines it locally.
func (e *env) resolveEnv(name string) *env {
	for cur := e; cur != nil; cur = cur.parent {
		if _, ok := cur.defs[name]; ok {
			return cur
		}
	}
	return e
}

func (e *env) snapshot() map[string]int {
	out := make(map[string]int, len(e.defs))
	for k, v := range e.defs {
		out[k] = v
	}
	return out
}

func (e *env) restore(snap map[string]int) {
	e.defs = snap
}

type builder struct {
	file model.ParsedFile
	g    *Graph
}

// Build walks an entire parsed file in source order and returns its
// data-flow graph. The builder never consults the
// source/sink/sanitizer registries itself — it only shapes the value
// graph; package taint matches node Path/AST fragments against the
// registries during propagation.
//
// The walk follows the tree-sitter-javascript grammar's node shapes
// directly; no intermediate statement list is built.
func Build(file model.ParsedFile) *Graph {
	g := &Graph{file: file}
	b := &builder{file: file, g: g}
	root := newEnv(nil)
	for _, c := range file.Root().NamedChildren() {
		b.visitStatement(c, root)
	}
	return g
}

func (b *builder) free(n model.Node) *Node {
	node := b.g.newNode(KindRead, n)
	return node
}

// --- statements ---

func (b *builder) visitStatements(list []model.Node, e *env) {
	for _, s := range list {
		b.visitStatement(s, e)
	}
}

func (b *builder) visitBody(n model.Node, e *env) {
	if n == nil {
		return
	}
	if n.Kind() == lang.StatementBlock {
		b.visitStatements(n.NamedChildren(), e)
		return
	}
	b.visitStatement(n, e)
}

func (b *builder) visitStatement(n model.Node, e *env) {
	if n == nil {
		return
	}
	switch n.Kind() {
	case lang.LexicalDeclaration, lang.VariableDeclaration:
		for _, c := range n.NamedChildren() {
			if c.Kind() == lang.VariableDeclarator {
				b.visitDeclarator(c, e)
			}
		}

	case lang.ExpressionStatement:
		for _, c := range n.NamedChildren() {
			b.visitExpr(c, e)
		}

	case lang.FunctionDeclaration:
		b.visitFunctionLike(n, e)

	case lang.ClassDeclaration:
		if body := n.ChildByFieldName("body"); body != nil {
			for _, c := range body.NamedChildren() {
				if c.Kind() == lang.MethodDefinition {
					b.visitFunctionLike(c, e)
				}
			}
		}

	case lang.StatementBlock:
		b.visitStatements(n.NamedChildren(), e)

	case lang.IfStatement:
		b.visitIf(n, e)

	case lang.WhileStatement:
		b.visitLoop(n.ChildByFieldName("condition"), n.ChildByFieldName("body"), nil, e)

	case lang.DoStatement:
		b.visitLoop(n.ChildByFieldName("condition"), n.ChildByFieldName("body"), nil, e)

	case lang.ForStatement:
		if init := n.ChildByFieldName("initializer"); init != nil {
			b.visitStatement(init, e)
		}
		b.visitLoop(n.ChildByFieldName("condition"), n.ChildByFieldName("body"), n.ChildByFieldName("increment"), e)

	case lang.ForInStatement:
		if right := n.ChildByFieldName("right"); right != nil {
			b.visitExpr(right, e)
		}
		if left := n.ChildByFieldName("left"); left != nil {
			b.bindPattern(left, e, b.free(n))
		}
		b.visitLoopBody(n.ChildByFieldName("body"), e)

	case lang.SwitchStatement:
		if disc := n.ChildByFieldName("value"); disc != nil {
			b.visitExpr(disc, e)
		}
		for _, c := range n.NamedChildren() {
			if c.Kind() == lang.SwitchCase || c.Kind() == lang.SwitchDefault {
				b.visitStatements(c.NamedChildren(), e)
			}
		}

	case lang.TryStatement:
		if body := n.ChildByFieldName("body"); body != nil {
			b.visitBody(body, e)
		}
		if handler := n.ChildByFieldName("handler"); handler != nil {
			b.visitBody(handler.ChildByFieldName("body"), e)
		}
		if finalizer := n.ChildByFieldName("finalizer"); finalizer != nil {
			b.visitBody(finalizer.ChildByFieldName("body"), e)
		}

	case lang.ReturnStatement, lang.ThrowStatement:
		for _, c := range n.NamedChildren() {
			b.visitExpr(c, e)
		}

	case lang.ImportStatement, lang.BreakStatement, lang.ContinueStatement, lang.EmptyStatement:
		// No data-flow value.

	default:
		for _, c := range n.NamedChildren() {
			b.visitStatement(c, e)
		}
	}
}

func (b *builder) visitIf(n model.Node, e *env) {
	if cond := n.ChildByFieldName("condition"); cond != nil {
		b.visitExpr(cond, e)
	}

	before := e.snapshot()

	e.restore(copyMap(before))
	b.visitBody(unwrapElse(n.ChildByFieldName("consequence")), e)
	thenDefs := e.snapshot()

	e.restore(copyMap(before))
	if alt := n.ChildByFieldName("alternative"); alt != nil {
		b.visitBody(unwrapElse(alt), e)
	}
	elseDefs := e.snapshot()

	e.restore(mergeDefs(b.g, thenDefs, elseDefs))
}

func unwrapElse(n model.Node) model.Node {
	if n != nil && n.Kind() == lang.ElseClause {
		children := n.NamedChildren()
		if len(children) > 0 {
			return children[0]
		}
		return nil
	}
	return n
}

// visitLoop handles while/do/for: condition and increment are expressions
// evaluated each iteration; the body's effect on defs is unioned with the
// pre-loop defs to approximate the flow-insensitive "edges accumulate
// across iterations" treatment loops get.
func (b *builder) visitLoop(cond, body, increment model.Node, e *env) {
	if cond != nil {
		b.visitExpr(cond, e)
	}
	b.visitLoopBody(body, e)
	if increment != nil {
		b.visitExpr(increment, e)
	}
	if cond != nil {
		b.visitExpr(cond, e)
	}
}

func (b *builder) visitLoopBody(body model.Node, e *env) {
	before := e.snapshot()
	b.visitBody(body, e)
	after := e.snapshot()
	e.restore(mergeDefs(b.g, before, after))
}

func mergeDefs(g *Graph, a, b map[string]int) map[string]int {
	out := make(map[string]int, len(a)+len(b))
	for k, v := range a {
		out[k] = v
	}
	for k, v := range b {
		if existing, ok := out[k]; ok && existing != v {
			merge := g.newNode(KindMerge, nil)
			merge.Incoming = append(merge.Incoming, existing, v)
			out[k] = merge.ID
		} else {
			out[k] = v
		}
	}
	return out
}

func copyMap(m map[string]int) map[string]int {
	out := make(map[string]int, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

func (b *builder) visitDeclarator(decl model.Node, e *env) {
	nameNode := decl.ChildByFieldName("name")
	var valueNode *Node
	if v := decl.ChildByFieldName("value"); v != nil {
		valueNode = b.visitExpr(v, e)
	} else {
		valueNode = b.g.newNode(KindLiteral, decl)
	}
	if nameNode == nil {
		return
	}
	b.bindPattern(nameNode, e, valueNode)
}

// bindPattern binds a declarator/assignment-target pattern (identifier or
// destructuring) to a single source value node, creating one definition
// node per leaf binding (all sharing the same incoming value, which
// over-approximates destructured fan-out, favoring detection of real
// flows over precision).
func (b *builder) bindPattern(n model.Node, e *env, value *Node) {
	if n == nil || value == nil {
		return
	}
	switch n.Kind() {
	case lang.Identifier, lang.ShorthandPropertyIdentifier:
		def := b.g.newNode(KindDefinition, n)
		def.Path = n.Text()
		def.Incoming = append(def.Incoming, value.ID)
		target := e.resolveEnv(n.Text())
		target.defs[n.Text()] = def.ID

	case lang.ObjectPattern, lang.ArrayPattern:
		for _, c := range n.NamedChildren() {
			switch c.Kind() {
			case lang.Pair:
				if v := c.ChildByFieldName("value"); v != nil {
					b.bindPattern(v, e, value)
				}
			case lang.AssignmentPattern:
				if left := c.ChildByFieldName("left"); left != nil {
					b.bindPattern(left, e, value)
				}
			case lang.RestPattern:
				rc := c.NamedChildren()
				if len(rc) > 0 {
					b.bindPattern(rc[0], e, value)
				}
			default:
				b.bindPattern(c, e, value)
			}
		}

	case lang.MemberExpression, lang.SubscriptExpression:
		b.assignToAccessPath(n, e, value)

	default:
		// Unrecognized target shape; nothing to bind.
	}
}

func (b *builder) assignToAccessPath(target model.Node, e *env, value *Node) {
	if obj := target.ChildByFieldName("object"); obj != nil {
		b.visitExpr(obj, e)
	}
	path, _ := computeAccessPath(target)
	write := b.g.newNode(KindPropertyWrite, target)
	write.Path = path
	write.Incoming = append(write.Incoming, value.ID)
}

func (b *builder) visitFunctionLike(n model.Node, e *env) {
	fnEnv := newEnv(e)
	if params := n.ChildByFieldName("parameters"); params != nil {
		for _, p := range params.NamedChildren() {
			b.bindParameter(p, fnEnv)
		}
	}
	b.visitBody(n.ChildByFieldName("body"), fnEnv)
}

func (b *builder) bindParameter(p model.Node, e *env) {
	switch p.Kind() {
	case lang.AssignmentPattern:
		left := p.ChildByFieldName("left")
		var val *Node
		if right := p.ChildByFieldName("right"); right != nil {
			val = b.visitExpr(right, e)
		} else {
			val = b.g.newNode(KindLiteral, p)
		}
		b.bindPattern(left, e, val)
	case lang.RestPattern:
		children := p.NamedChildren()
		if len(children) > 0 {
			b.bindPattern(children[0], e, b.g.newNode(KindLiteral, p))
		}
	default:
		b.bindPattern(p, e, b.g.newNode(KindLiteral, p))
	}
}

// --- expressions ---

// visitExpr returns the DFG node representing n's value. Never
// returns nil.
func (b *builder) visitExpr(n model.Node, e *env) *Node {
	if n == nil {
		return b.g.newNode(KindLiteral, nil)
	}
	switch n.Kind() {
	case lang.String, lang.Number, lang.True, lang.False, lang.Null, lang.Regex:
		lit := b.g.newNode(KindLiteral, n)
		lit.Text = n.Text()
		return lit

	case lang.Identifier:
		if id, ok := e.lookup(n.Text()); ok {
			return b.g.Nodes[id]
		}
		read := b.g.newNode(KindRead, n)
		read.Path = n.Text()
		return read

	case lang.This, lang.Super:
		read := b.g.newNode(KindRead, n)
		read.Path = n.Kind()
		return read

	case lang.MemberExpression, lang.SubscriptExpression:
		return b.visitAccess(n, e)

	case lang.CallExpression, lang.NewExpression:
		return b.visitCall(n, e)

	case lang.TemplateString:
		return b.visitTemplate(n, e)

	case lang.BinaryExpression:
		left := b.visitExpr(n.ChildByFieldName("left"), e)
		right := b.visitExpr(n.ChildByFieldName("right"), e)
		op := b.g.newNode(KindOperation, n)
		op.Incoming = append(op.Incoming, left.ID, right.ID)
		return op

	case lang.TernaryExpression:
		children := n.NamedChildren()
		if len(children) > 0 {
			b.visitExpr(children[0], e) // condition, no data-flow edge
		}
		before := e.snapshot()
		e.restore(copyMap(before))
		var thenNode, elseNode *Node
		if cons := n.ChildByFieldName("consequence"); cons != nil {
			thenNode = b.visitExpr(cons, e)
		}
		e.restore(copyMap(before))
		if alt := n.ChildByFieldName("alternative"); alt != nil {
			elseNode = b.visitExpr(alt, e)
		}
		merge := b.g.newNode(KindMerge, n)
		if thenNode != nil {
			merge.Incoming = append(merge.Incoming, thenNode.ID)
		}
		if elseNode != nil {
			merge.Incoming = append(merge.Incoming, elseNode.ID)
		}
		return merge

	case lang.AssignmentExpression:
		value := b.visitExpr(n.ChildByFieldName("right"), e)
		if left := n.ChildByFieldName("left"); left != nil {
			b.bindPattern(left, e, value)
		}
		return value

	case lang.AugmentedAssignmentExpression:
		left := n.ChildByFieldName("left")
		leftVal := b.visitExpr(left, e)
		rightVal := b.visitExpr(n.ChildByFieldName("right"), e)
		op := b.g.newNode(KindOperation, n)
		op.Incoming = append(op.Incoming, leftVal.ID, rightVal.ID)
		b.bindPattern(left, e, op)
		return op

	case lang.UpdateExpression:
		children := n.NamedChildren()
		if len(children) == 0 {
			return b.g.newNode(KindLiteral, n)
		}
		target := children[0]
		val := b.visitExpr(target, e)
		op := b.g.newNode(KindOperation, n)
		op.Incoming = append(op.Incoming, val.ID)
		b.bindPattern(target, e, op)
		return op

	case lang.UnaryExpression:
		children := n.NamedChildren()
		if len(children) == 0 {
			return b.g.newNode(KindLiteral, n)
		}
		operand := b.visitExpr(children[len(children)-1], e)
		op := b.g.newNode(KindOperation, n)
		op.Incoming = append(op.Incoming, operand.ID)
		return op

	case lang.SequenceExpression:
		children := n.NamedChildren()
		var last *Node
		for _, c := range children {
			last = b.visitExpr(c, e)
		}
		if last == nil {
			last = b.g.newNode(KindLiteral, n)
		}
		return last

	case lang.ParenthesizedExpression:
		children := n.NamedChildren()
		if len(children) > 0 {
			return b.visitExpr(children[0], e)
		}
		return b.g.newNode(KindLiteral, n)

	case lang.SpreadElement:
		children := n.NamedChildren()
		if len(children) > 0 {
			return b.visitExpr(children[0], e)
		}
		return b.g.newNode(KindLiteral, n)

	case lang.Array, lang.Object:
		op := b.g.newNode(KindOperation, n)
		for _, c := range n.NamedChildren() {
			if c.Kind() == lang.Pair {
				if v := c.ChildByFieldName("value"); v != nil {
					op.Incoming = append(op.Incoming, b.visitExpr(v, e).ID)
				}
				continue
			}
			op.Incoming = append(op.Incoming, b.visitExpr(c, e).ID)
		}
		return op

	case lang.FunctionExpression, lang.ArrowFunction, lang.GeneratorFunction, lang.MethodDefinition:
		b.visitFunctionLike(n, e)
		return b.g.newNode(KindLiteral, n)

	default:
		op := b.g.newNode(KindOperation, n)
		for _, c := range n.NamedChildren() {
			op.Incoming = append(op.Incoming, b.visitExpr(c, e).ID)
		}
		return op
	}
}

// visitAccess handles a property read: member_expression / a computed
// subscript_expression. The access path is computed structurally
// and
// an incoming edge from the base object's node is kept so taint flows
// through even when the path itself doesn't match any registry pattern.
func (b *builder) visitAccess(n model.Node, e *env) *Node {
	obj := n.ChildByFieldName("object")
	var objNode *Node
	if obj != nil {
		objNode = b.visitExpr(obj, e)
	}
	if n.Kind() == lang.SubscriptExpression {
		if idx := n.ChildByFieldName("index"); idx != nil {
			b.visitExpr(idx, e)
		}
	}
	path, _ := computeAccessPath(n)
	node := b.g.newNode(KindPropertyRead, n)
	node.Path = path
	if objNode != nil {
		node.Incoming = append(node.Incoming, objNode.ID)
	}
	return node
}

func (b *builder) visitCall(n model.Node, e *env) *Node {
	var calleeNode model.Node
	if n.Kind() == lang.NewExpression {
		calleeNode = n.ChildByFieldName("constructor")
	} else {
		calleeNode = n.ChildByFieldName("function")
	}
	calleePath := ""
	if calleeNode != nil {
		if p, ok := computeAccessPath(calleeNode); ok {
			calleePath = p
		}
		// Visiting the callee itself (e.g. obj in obj.method()) keeps
		// its own reads/taint tracked, mirroring visitAccess.
		if calleeNode.Kind() == lang.MemberExpression || calleeNode.Kind() == lang.SubscriptExpression {
			b.visitExpr(calleeNode, e)
		}
	}

	result := b.g.newNode(KindCallResult, n)
	result.Path = calleePath

	if args := n.ChildByFieldName("arguments"); args != nil {
		for _, a := range args.NamedChildren() {
			argNode := b.visitExpr(a, e)
			result.ArgEdges = append(result.ArgEdges, argNode.ID)
			result.Incoming = append(result.Incoming, argNode.ID)
		}
	}
	return result
}

func (b *builder) visitTemplate(n model.Node, e *env) *Node {
	op := b.g.newNode(KindOperation, n)
	for _, c := range n.NamedChildren() {
		if c.Kind() != lang.TemplateSubstitution {
			continue
		}
		inner := c.NamedChildren()
		if len(inner) == 0 {
			continue
		}
		op.Incoming = append(op.Incoming, b.visitExpr(inner[0], e).ID)
	}
	return op
}

// computeAccessPath structurally flattens an identifier/member/subscript
// chain into a dotted path (e.g. "req.body.id"), matching the structural
// text a source/sink/sanitizer Pattern is written against.
// A computed subscript collapses to a synthetic "<computed>" leaf so a
// wildcard-suffix pattern on the base path still matches it, at lower
// confidence.
func computeAccessPath(n model.Node) (string, bool) {
	if n == nil {
		return "", false
	}
	switch n.Kind() {
	case lang.Identifier:
		return n.Text(), true
	case lang.This:
		return "this", true
	case lang.MemberExpression:
		obj := n.ChildByFieldName("object")
		prop := n.ChildByFieldName("property")
		if obj == nil || prop == nil {
			return "", false
		}
		base, ok := computeAccessPath(obj)
		if !ok {
			return "", false
		}
		return base + "." + prop.Text(), true
	case lang.SubscriptExpression:
		obj := n.ChildByFieldName("object")
		base, ok := computeAccessPath(obj)
		if !ok {
			return "", false
		}
		return base + ".<computed>", true
	default:
		return "", false
	}
}
