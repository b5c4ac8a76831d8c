package cfg

import (
	"github.com/kzn-tools/kaizen/lang"
	"github.com/kzn-tools/kaizen/model"
)

// frame tracks a break/continue target: every loop and switch pushes
// one so unlabeled break finds the innermost breakable construct, while
// continue skips switch frames to find the innermost loop (hasContinue).
type frame struct {
	hasContinue   bool
	continueTarget int
	breakEdges    *[]int
}

type builder struct {
	file   model.ParsedFile
	g      *Graph
	frames []frame
}

// Build constructs the control-flow graph for one function-like node
// (function_declaration, function_expression, arrow_function, or
// method_definition). fn's "body" field is either a statement_block or,
// for concise arrow functions, a bare expression treated as an implicit
// return.
func Build(fn model.Node, file model.ParsedFile) *Graph {
	g := &Graph{file: file}
	b := &builder{file: file, g: g}

	entry := g.newBlock()
	g.EntryID = entry.ID

	cur := entry
	if body := fn.ChildByFieldName("body"); body != nil {
		if body.Kind() == lang.StatementBlock {
			cur = b.stmts(body.NamedChildren(), cur)
		} else {
			cur.Stmts = append(cur.Stmts, body)
			cur.Terminator = TerminatorReturn
			cur = g.newBlock()
		}
	}
	if cur != nil && cur.Terminator == TerminatorNone {
		cur.Terminator = TerminatorImplicitEnd
	}

	for _, blk := range g.Blocks {
		if blk.Terminator != TerminatorNone {
			g.ExitIDs = append(g.ExitIDs, blk.ID)
		}
	}
	return g
}

func (b *builder) stmts(list []model.Node, cur *Block) *Block {
	for _, s := range list {
		cur = b.stmt(s, cur)
	}
	return cur
}

// stmtOrBlock processes a single statement position that may itself be a
// statement_block (braced) or, for if/else arms, an else_clause wrapper.
func (b *builder) stmtOrBlock(n model.Node, cur *Block) *Block {
	if n == nil {
		return cur
	}
	switch n.Kind() {
	case lang.StatementBlock:
		return b.stmts(n.NamedChildren(), cur)
	case lang.ElseClause:
		children := n.NamedChildren()
		if len(children) == 0 {
			return cur
		}
		return b.stmtOrBlock(children[0], cur)
	default:
		return b.stmt(n, cur)
	}
}

func (b *builder) stmt(n model.Node, cur *Block) *Block {
	switch n.Kind() {
	case lang.IfStatement:
		return b.ifStmt(n, cur)
	case lang.WhileStatement:
		return b.whileStmt(n, cur)
	case lang.DoStatement:
		return b.doStmt(n, cur)
	case lang.ForStatement:
		return b.forStmt(n, cur)
	case lang.ForInStatement:
		return b.forInStmt(n, cur)
	case lang.SwitchStatement:
		return b.switchStmt(n, cur)
	case lang.TryStatement:
		return b.tryStmt(n, cur)
	case lang.StatementBlock:
		return b.stmts(n.NamedChildren(), cur)

	case lang.ReturnStatement:
		cur.Stmts = append(cur.Stmts, n)
		cur.Terminator = TerminatorReturn
		return b.g.newBlock()

	case lang.ThrowStatement:
		cur.Stmts = append(cur.Stmts, n)
		cur.Terminator = TerminatorThrow
		return b.g.newBlock()

	case lang.BreakStatement:
		cur.Stmts = append(cur.Stmts, n)
		if len(b.frames) > 0 {
			top := b.frames[len(b.frames)-1]
			*top.breakEdges = append(*top.breakEdges, cur.ID)
		}
		return b.g.newBlock()

	case lang.ContinueStatement:
		cur.Stmts = append(cur.Stmts, n)
		for i := len(b.frames) - 1; i >= 0; i-- {
			if b.frames[i].hasContinue {
				b.g.addEdge(cur.ID, b.frames[i].continueTarget, EdgeContinue)
				break
			}
		}
		return b.g.newBlock()

	default:
		cur.Stmts = append(cur.Stmts, n)
		return cur
	}
}

func (b *builder) ifStmt(n model.Node, cur *Block) *Block {
	if cond := n.ChildByFieldName("condition"); cond != nil {
		cur.Stmts = append(cur.Stmts, cond)
	}

	thenBlock := b.g.newBlock()
	b.g.addEdge(cur.ID, thenBlock.ID, EdgeTrue)
	thenEnd := b.stmtOrBlock(n.ChildByFieldName("consequence"), thenBlock)

	altNode := n.ChildByFieldName("alternative")
	var elseEnd *Block
	if altNode != nil {
		elseBlock := b.g.newBlock()
		b.g.addEdge(cur.ID, elseBlock.ID, EdgeFalse)
		elseEnd = b.stmtOrBlock(altNode, elseBlock)
	}

	merge := b.g.newBlock()
	if thenEnd != nil {
		b.g.addEdge(thenEnd.ID, merge.ID, EdgeFallthrough)
	}
	if altNode != nil {
		if elseEnd != nil {
			b.g.addEdge(elseEnd.ID, merge.ID, EdgeFallthrough)
		}
	} else {
		b.g.addEdge(cur.ID, merge.ID, EdgeFalse)
	}
	return merge
}

func (b *builder) whileStmt(n model.Node, cur *Block) *Block {
	condBlock := b.g.newBlock()
	b.g.addEdge(cur.ID, condBlock.ID, EdgeFallthrough)
	if cond := n.ChildByFieldName("condition"); cond != nil {
		condBlock.Stmts = append(condBlock.Stmts, cond)
	}

	bodyBlock := b.g.newBlock()
	b.g.addEdge(condBlock.ID, bodyBlock.ID, EdgeTrue)

	var breakEdges []int
	b.frames = append(b.frames, frame{hasContinue: true, continueTarget: condBlock.ID, breakEdges: &breakEdges})
	bodyEnd := b.stmtOrBlock(n.ChildByFieldName("body"), bodyBlock)
	b.frames = b.frames[:len(b.frames)-1]

	if bodyEnd != nil {
		b.g.addEdge(bodyEnd.ID, condBlock.ID, EdgeFallthrough)
	}

	exitBlock := b.g.newBlock()
	b.g.addEdge(condBlock.ID, exitBlock.ID, EdgeFalse)
	for _, id := range breakEdges {
		b.g.addEdge(id, exitBlock.ID, EdgeBreak)
	}
	return exitBlock
}

func (b *builder) doStmt(n model.Node, cur *Block) *Block {
	condBlock := b.g.newBlock()
	bodyBlock := b.g.newBlock()
	b.g.addEdge(cur.ID, bodyBlock.ID, EdgeFallthrough)

	var breakEdges []int
	b.frames = append(b.frames, frame{hasContinue: true, continueTarget: condBlock.ID, breakEdges: &breakEdges})
	bodyEnd := b.stmtOrBlock(n.ChildByFieldName("body"), bodyBlock)
	b.frames = b.frames[:len(b.frames)-1]

	if bodyEnd != nil {
		b.g.addEdge(bodyEnd.ID, condBlock.ID, EdgeFallthrough)
	}
	if cond := n.ChildByFieldName("condition"); cond != nil {
		condBlock.Stmts = append(condBlock.Stmts, cond)
	}
	b.g.addEdge(condBlock.ID, bodyBlock.ID, EdgeTrue)

	exitBlock := b.g.newBlock()
	b.g.addEdge(condBlock.ID, exitBlock.ID, EdgeFalse)
	for _, id := range breakEdges {
		b.g.addEdge(id, exitBlock.ID, EdgeBreak)
	}
	return exitBlock
}

func (b *builder) forStmt(n model.Node, cur *Block) *Block {
	if init := n.ChildByFieldName("initializer"); init != nil {
		cur.Stmts = append(cur.Stmts, init)
	}

	condBlock := b.g.newBlock()
	b.g.addEdge(cur.ID, condBlock.ID, EdgeFallthrough)
	if cond := n.ChildByFieldName("condition"); cond != nil {
		condBlock.Stmts = append(condBlock.Stmts, cond)
	}

	bodyBlock := b.g.newBlock()
	b.g.addEdge(condBlock.ID, bodyBlock.ID, EdgeTrue)

	incBlock := b.g.newBlock()
	var breakEdges []int
	b.frames = append(b.frames, frame{hasContinue: true, continueTarget: incBlock.ID, breakEdges: &breakEdges})
	bodyEnd := b.stmtOrBlock(n.ChildByFieldName("body"), bodyBlock)
	b.frames = b.frames[:len(b.frames)-1]

	if bodyEnd != nil {
		b.g.addEdge(bodyEnd.ID, incBlock.ID, EdgeFallthrough)
	}
	if inc := n.ChildByFieldName("increment"); inc != nil {
		incBlock.Stmts = append(incBlock.Stmts, inc)
	}
	b.g.addEdge(incBlock.ID, condBlock.ID, EdgeFallthrough)

	exitBlock := b.g.newBlock()
	b.g.addEdge(condBlock.ID, exitBlock.ID, EdgeFalse)
	for _, id := range breakEdges {
		b.g.addEdge(id, exitBlock.ID, EdgeBreak)
	}
	return exitBlock
}

func (b *builder) forInStmt(n model.Node, cur *Block) *Block {
	condBlock := b.g.newBlock()
	b.g.addEdge(cur.ID, condBlock.ID, EdgeFallthrough)
	if left := n.ChildByFieldName("left"); left != nil {
		condBlock.Stmts = append(condBlock.Stmts, left)
	}
	if right := n.ChildByFieldName("right"); right != nil {
		condBlock.Stmts = append(condBlock.Stmts, right)
	}

	bodyBlock := b.g.newBlock()
	b.g.addEdge(condBlock.ID, bodyBlock.ID, EdgeTrue)

	var breakEdges []int
	b.frames = append(b.frames, frame{hasContinue: true, continueTarget: condBlock.ID, breakEdges: &breakEdges})
	bodyEnd := b.stmtOrBlock(n.ChildByFieldName("body"), bodyBlock)
	b.frames = b.frames[:len(b.frames)-1]

	if bodyEnd != nil {
		b.g.addEdge(bodyEnd.ID, condBlock.ID, EdgeFallthrough)
	}

	exitBlock := b.g.newBlock()
	b.g.addEdge(condBlock.ID, exitBlock.ID, EdgeFalse)
	for _, id := range breakEdges {
		b.g.addEdge(id, exitBlock.ID, EdgeBreak)
	}
	return exitBlock
}

func (b *builder) switchStmt(n model.Node, cur *Block) *Block {
	if disc := n.ChildByFieldName("value"); disc != nil {
		cur.Stmts = append(cur.Stmts, disc)
	}

	exitBlock := b.g.newBlock()
	b.g.addEdge(cur.ID, exitBlock.ID, EdgeFallthrough) // no case matches

	var breakEdges []int
	b.frames = append(b.frames, frame{hasContinue: false, breakEdges: &breakEdges})

	var prevEnd *Block
	for _, c := range n.NamedChildren() {
		if c.Kind() != lang.SwitchCase && c.Kind() != lang.SwitchDefault {
			continue
		}
		caseBlock := b.g.newBlock()
		b.g.addEdge(cur.ID, caseBlock.ID, EdgeSwitchCase)
		if prevEnd != nil {
			b.g.addEdge(prevEnd.ID, caseBlock.ID, EdgeFallthrough)
		}

		children := c.NamedChildren()
		start := 0
		if c.Kind() == lang.SwitchCase && len(children) > 0 {
			caseBlock.Stmts = append(caseBlock.Stmts, children[0])
			start = 1
		}
		prevEnd = b.stmts(children[start:], caseBlock)
	}
	b.frames = b.frames[:len(b.frames)-1]

	if prevEnd != nil {
		b.g.addEdge(prevEnd.ID, exitBlock.ID, EdgeFallthrough)
	}
	for _, id := range breakEdges {
		b.g.addEdge(id, exitBlock.ID, EdgeBreak)
	}
	return exitBlock
}

func (b *builder) tryStmt(n model.Node, cur *Block) *Block {
	tryEnd := cur
	if body := n.ChildByFieldName("body"); body != nil {
		tryEnd = b.stmtOrBlock(body, cur)
	}

	handler := n.ChildByFieldName("handler")
	var catchEnd *Block
	if handler != nil {
		catchBlock := b.g.newBlock()
		b.g.addEdge(cur.ID, catchBlock.ID, EdgeThrow)
		if param := handler.ChildByFieldName("parameter"); param != nil {
			catchBlock.Stmts = append(catchBlock.Stmts, param)
		}
		catchEnd = b.stmtOrBlock(handler.ChildByFieldName("body"), catchBlock)
	}

	merge := tryEnd
	if catchEnd != nil {
		mergeBlock := b.g.newBlock()
		if tryEnd != nil {
			b.g.addEdge(tryEnd.ID, mergeBlock.ID, EdgeFallthrough)
		}
		b.g.addEdge(catchEnd.ID, mergeBlock.ID, EdgeFallthrough)
		merge = mergeBlock
	}

	if finalizer := n.ChildByFieldName("finalizer"); finalizer != nil {
		merge = b.stmtOrBlock(finalizer.ChildByFieldName("body"), merge)
	}
	return merge
}
