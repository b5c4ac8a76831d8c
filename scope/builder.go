package scope

import (
	"github.com/kzn-tools/kaizen/lang"
	"github.com/kzn-tools/kaizen/model"
)

// Builder runs the single scope-and-symbol pass over a file's AST.
type Builder struct {
	file      model.ParsedFile
	nextID    int
	tree      *Tree
	exporting bool
}

// Build constructs the scope tree and symbol table for one parsed file.
func Build(file model.ParsedFile) *Tree {
	b := &Builder{file: file}
	root := newScope(0, KindGlobal, nil, file.Root())
	b.nextID = 1
	b.tree = &Tree{Root: root, All: []*Scope{root}}
	b.visit(file.Root(), root)
	return b.tree
}

func (b *Builder) loc(n model.Node) model.Range { return b.file.SpanToLocation(n.Span()) }

func (b *Builder) pushScope(kind Kind, parent *Scope, node model.Node) *Scope {
	s := newScope(b.nextID, kind, parent, node)
	b.nextID++
	b.tree.All = append(b.tree.All, s)
	return s
}

func (b *Builder) resolveRead(s *Scope, idNode model.Node) {
	rng := b.loc(idNode)
	if sym, ok := s.Lookup(idNode.Text()); ok {
		sym.Reads++
		sym.Uses = append(sym.Uses, rng)
		return
	}
	b.tree.Root.FreeReferences = append(b.tree.Root.FreeReferences, rng)
}

func (b *Builder) resolveWrite(s *Scope, idNode model.Node) {
	rng := b.loc(idNode)
	if sym, ok := s.Lookup(idNode.Text()); ok {
		sym.Writes++
		sym.Uses = append(sym.Uses, rng)
		return
	}
	b.tree.Root.FreeReferences = append(b.tree.Root.FreeReferences, rng)
}

func (b *Builder) handleAssignmentTarget(s *Scope, left model.Node) {
	switch left.Kind() {
	case lang.Identifier:
		b.resolveWrite(s, left)
	case lang.MemberExpression:
		if obj := left.ChildByFieldName("object"); obj != nil {
			b.visit(obj, s)
		}
	case lang.SubscriptExpression:
		if obj := left.ChildByFieldName("object"); obj != nil {
			b.visit(obj, s)
		}
		if idx := left.ChildByFieldName("index"); idx != nil {
			b.visit(idx, s)
		}
	case lang.ObjectPattern, lang.ArrayPattern:
		for _, idNode := range collectBindingNames(left) {
			b.resolveWrite(s, idNode)
		}
	default:
		b.visit(left, s)
	}
}

func (b *Builder) handleDeclarator(s *Scope, declarator model.Node, kind SymbolKind, hoist bool) {
	nameNode := declarator.ChildByFieldName("name")
	if valueNode := declarator.ChildByFieldName("value"); valueNode != nil {
		b.visit(valueNode, s)
	}
	if nameNode == nil {
		return
	}
	target := s
	if hoist {
		target = s.nearestHoistTarget()
	}
	for _, idNode := range collectBindingNames(nameNode) {
		sym := target.declare(idNode.Text(), kind, b.loc(idNode))
		if b.exporting {
			sym.Exported = true
		}
	}
}

func (b *Builder) visitFunctionLike(n model.Node, s *Scope) {
	fnScope := b.pushScope(KindFunction, s, n)
	if params := n.ChildByFieldName("parameters"); params != nil {
		for _, p := range params.NamedChildren() {
			for _, idNode := range collectBindingNames(p) {
				fnScope.declare(idNode.Text(), SymbolParameter, b.loc(idNode))
			}
			if p.Kind() == lang.AssignmentPattern {
				if def := p.ChildByFieldName("right"); def != nil {
					b.visit(def, fnScope)
				}
			}
		}
	}
	if body := n.ChildByFieldName("body"); body != nil {
		if body.Kind() == lang.StatementBlock {
			for _, c := range body.NamedChildren() {
				b.visit(c, fnScope)
			}
		} else {
			b.visit(body, fnScope)
		}
	}
}

func (b *Builder) visit(n model.Node, s *Scope) {
	if n == nil {
		return
	}
	switch n.Kind() {
	case lang.Identifier:
		b.resolveRead(s, n)

	case lang.LexicalDeclaration:
		kind := SymbolMutableBinding
		if leadingKeyword(n, "const", "let") == "const" {
			kind = SymbolConst
		}
		for _, c := range n.NamedChildren() {
			if c.Kind() == lang.VariableDeclarator {
				b.handleDeclarator(s, c, kind, false)
			}
		}

	case lang.VariableDeclaration:
		for _, c := range n.NamedChildren() {
			if c.Kind() == lang.VariableDeclarator {
				b.handleDeclarator(s, c, SymbolFunctionScoped, true)
			}
		}

	case lang.FunctionDeclaration:
		if nameNode := n.ChildByFieldName("name"); nameNode != nil {
			target := s.nearestHoistTarget()
			sym := target.declare(nameNode.Text(), SymbolFunctionDecl, b.loc(nameNode))
			if b.exporting {
				sym.Exported = true
			}
		}
		b.visitFunctionLike(n, s)

	case lang.FunctionExpression, lang.ArrowFunction, lang.MethodDefinition, lang.GeneratorFunction:
		b.visitFunctionLike(n, s)

	case lang.ClassDeclaration:
		if nameNode := n.ChildByFieldName("name"); nameNode != nil {
			sym := s.declare(nameNode.Text(), SymbolClass, b.loc(nameNode))
			if b.exporting {
				sym.Exported = true
			}
		}
		if body := n.ChildByFieldName("body"); body != nil {
			b.visit(body, s)
		}

	case lang.CatchClause:
		catchScope := b.pushScope(KindCatch, s, n)
		if param := n.ChildByFieldName("parameter"); param != nil {
			for _, idNode := range collectBindingNames(param) {
				catchScope.declare(idNode.Text(), SymbolParameter, b.loc(idNode))
			}
		}
		if body := n.ChildByFieldName("body"); body != nil {
			if body.Kind() == lang.StatementBlock {
				for _, c := range body.NamedChildren() {
					b.visit(c, catchScope)
				}
			} else {
				b.visit(body, catchScope)
			}
		}

	case lang.StatementBlock:
		blockScope := b.pushScope(KindBlock, s, n)
		for _, c := range n.NamedChildren() {
			b.visit(c, blockScope)
		}

	case lang.SwitchStatement:
		if disc := n.ChildByFieldName("value"); disc != nil {
			b.visit(disc, s)
		}
		switchScope := b.pushScope(KindBlock, s, n)
		for _, c := range n.NamedChildren() {
			if c.Kind() == lang.SwitchCase || c.Kind() == lang.SwitchDefault {
				for _, cc := range c.NamedChildren() {
					b.visit(cc, switchScope)
				}
			}
		}

	case lang.ForStatement:
		forScope := b.pushScope(KindBlock, s, n)
		if init := n.ChildByFieldName("initializer"); init != nil {
			b.visit(init, forScope)
		}
		if cond := n.ChildByFieldName("condition"); cond != nil {
			b.visit(cond, forScope)
		}
		if upd := n.ChildByFieldName("increment"); upd != nil {
			b.visit(upd, forScope)
		}
		if body := n.ChildByFieldName("body"); body != nil {
			b.visit(body, forScope)
		}

	case lang.ForInStatement:
		forScope := b.pushScope(KindBlock, s, n)
		leftKind := SymbolMutableBinding
		hoist := false
		switch leadingKeyword(n, "const", "let", "var") {
		case "const":
			leftKind = SymbolConst
		case "var":
			leftKind, hoist = SymbolFunctionScoped, true
		}
		if left := n.ChildByFieldName("left"); left != nil {
			for _, idNode := range collectBindingNames(left) {
				target := forScope
				if hoist {
					target = forScope.nearestHoistTarget()
				}
				target.declare(idNode.Text(), leftKind, b.loc(idNode))
			}
		}
		if right := n.ChildByFieldName("right"); right != nil {
			b.visit(right, forScope)
		}
		if body := n.ChildByFieldName("body"); body != nil {
			b.visit(body, forScope)
		}

	case lang.MemberExpression:
		if obj := n.ChildByFieldName("object"); obj != nil {
			b.visit(obj, s)
		}

	case lang.SubscriptExpression:
		if obj := n.ChildByFieldName("object"); obj != nil {
			b.visit(obj, s)
		}
		if idx := n.ChildByFieldName("index"); idx != nil {
			b.visit(idx, s)
		}

	case lang.AssignmentExpression:
		if right := n.ChildByFieldName("right"); right != nil {
			b.visit(right, s)
		}
		if left := n.ChildByFieldName("left"); left != nil {
			b.handleAssignmentTarget(s, left)
		}

	case lang.AugmentedAssignmentExpression:
		if right := n.ChildByFieldName("right"); right != nil {
			b.visit(right, s)
		}
		if left := n.ChildByFieldName("left"); left != nil {
			if left.Kind() == lang.Identifier {
				b.resolveRead(s, left)
				b.resolveWrite(s, left)
			} else {
				b.handleAssignmentTarget(s, left)
			}
		}

	case lang.UpdateExpression:
		children := n.NamedChildren()
		if len(children) > 0 {
			target := children[0]
			if target.Kind() == lang.Identifier {
				b.resolveRead(s, target)
				b.resolveWrite(s, target)
			} else {
				b.visit(target, s)
			}
		}

	case lang.ImportStatement:
		var idents []model.Node
		collectImportDecls(n, &idents)
		for _, idNode := range idents {
			b.tree.Root.declare(idNode.Text(), SymbolImport, b.loc(idNode))
		}

	case lang.ExportStatement:
		prev := b.exporting
		b.exporting = true
		for _, c := range n.NamedChildren() {
			b.visit(c, s)
		}
		b.exporting = prev

	case lang.ExportSpecifier:
		nameNode := n.ChildByFieldName("name")
		if nameNode != nil && nameNode.Kind() == lang.Identifier {
			if sym, ok := s.Lookup(nameNode.Text()); ok {
				sym.Exported = true
			}
		}

	default:
		for _, c := range n.NamedChildren() {
			b.visit(c, s)
		}
	}
}

// leadingKeyword scans every child (including anonymous tokens) for the
// first whose text matches one of options, used to distinguish
// const/let/var on declarations that share one grammar node kind.
func leadingKeyword(n model.Node, options ...string) string {
	for i := 0; i < n.ChildCount(); i++ {
		c := n.Child(i)
		if c == nil {
			continue
		}
		text := c.Text()
		for _, opt := range options {
			if text == opt {
				return opt
			}
		}
	}
	return ""
}

// collectBindingNames flattens a binding target (identifier or
// destructuring pattern) into the leaf identifier nodes it declares.
func collectBindingNames(n model.Node) []model.Node {
	if n == nil {
		return nil
	}
	switch n.Kind() {
	case lang.Identifier, lang.ShorthandPropertyIdentifier:
		return []model.Node{n}
	case lang.ObjectPattern, lang.ArrayPattern:
		var out []model.Node
		for _, c := range n.NamedChildren() {
			out = append(out, collectBindingNames(c)...)
		}
		return out
	case lang.Pair:
		return collectBindingNames(n.ChildByFieldName("value"))
	case lang.AssignmentPattern:
		return collectBindingNames(n.ChildByFieldName("left"))
	case lang.RestPattern:
		children := n.NamedChildren()
		if len(children) > 0 {
			return collectBindingNames(children[0])
		}
		return nil
	default:
		return nil
	}
}

// collectImportDecls walks an import_statement collecting the identifier
// nodes it binds locally: default imports, namespace aliases, and named
// specifiers (preferring the "as" alias over the original exported name).
func collectImportDecls(n model.Node, out *[]model.Node) {
	switch n.Kind() {
	case lang.Identifier:
		*out = append(*out, n)
		return
	case lang.ImportSpecifier:
		if alias := n.ChildByFieldName("alias"); alias != nil {
			*out = append(*out, alias)
			return
		}
		if name := n.ChildByFieldName("name"); name != nil {
			*out = append(*out, name)
		}
		return
	default:
		for _, c := range n.NamedChildren() {
			collectImportDecls(c, out)
		}
	}
}
