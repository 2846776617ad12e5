// Package optimize implements the optional AST passes, run after parsing and
// before validation, named by spec §4.8's `-O0..-O3` levels: constant folding (`-O1`+) and dead-block
// elimination (`-O2`+), both grounded on the teacher's single optimisation
// pass (src/ir/optimise.go's `optimise`/`constantFolding`), adapted from its
// infix expression trees to Quadrate's postfix instruction sequences.
package optimize

import (
	"github.com/quadrate-lang/quadrate/internal/ast"
)

// Run applies the passes enabled by level to every function body reachable
// from root, in place.
func Run(root *ast.Node, level int) {
	if level < 1 {
		return
	}
	for _, child := range root.Children {
		if child.Kind != ast.FunctionDeclaration {
			continue
		}
		foldBlock(child.Children[0])
		if level >= 2 {
			trimBlock(child.Children[0])
		}
	}
}

// foldBlock recursively replaces `<lit> <lit> <op>` instruction triples with
// a single folded literal, the postfix analogue of the teacher's
// constantFolding over infix EXPRESSION nodes. Fallible operators (`/`, `%`)
// are left alone when the divisor is zero so the runtime still reports the
// error the way an un-folded program would.
func foldBlock(block *ast.Node) {
	for _, c := range block.Children {
		recurseInto(c)
	}

	changed := true
	for changed {
		changed = false
		children := block.Children
		for i := 0; i+2 < len(children); i++ {
			a, b, op := children[i], children[i+1], children[i+2]
			if a.Kind != ast.Literal || b.Kind != ast.Literal || op.Kind != ast.Instruction {
				continue
			}
			folded, ok := foldArith(a, b, op.Name)
			if !ok {
				continue
			}
			folded.Pos = a.Pos
			folded.Parent = block
			next := append([]*ast.Node{}, children[:i]...)
			next = append(next, folded)
			next = append(next, children[i+3:]...)
			block.Children = next
			changed = true
			break
		}
	}
}

// recurseInto descends into the nested blocks of control-flow statements so
// folding reaches loop and branch bodies too.
func recurseInto(n *ast.Node) {
	switch n.Kind {
	case ast.IfStatement, ast.ForStatement, ast.LoopStatement:
		for _, c := range n.Children {
			if c.Kind == ast.Block {
				foldBlock(c)
			}
		}
	case ast.SwitchStatement:
		for i := range n.Cases {
			foldBlock(n.Cases[i].Body)
		}
	}
}

func foldArith(a, b *ast.Node, op string) (*ast.Node, bool) {
	if a.LitKind == ast.IntLiteral && b.LitKind == ast.IntLiteral {
		x, y := a.IntValue, b.IntValue
		var res int64
		switch op {
		case "+":
			res = x + y
		case "-":
			res = x - y
		case "*":
			res = x * y
		case "/":
			if y == 0 {
				return nil, false
			}
			res = x / y
		case "%":
			if y == 0 {
				return nil, false
			}
			res = x % y
		default:
			return nil, false
		}
		n := &ast.Node{Kind: ast.Literal, LitKind: ast.IntLiteral, IntValue: res}
		return n, true
	}
	if a.LitKind == ast.FloatLiteral && b.LitKind == ast.FloatLiteral {
		x, y := a.FloatValue, b.FloatValue
		var res float64
		switch op {
		case "+":
			res = x + y
		case "-":
			res = x - y
		case "*":
			res = x * y
		case "/":
			if y == 0 {
				return nil, false
			}
			res = x / y
		default:
			return nil, false
		}
		n := &ast.Node{Kind: ast.Literal, LitKind: ast.FloatLiteral, FloatValue: res}
		return n, true
	}
	return nil, false
}

// trimBlock drops every statement following the first unconditional
// terminator (Return, Break, Continue) in a block, the dead-block
// elimination spec §4.8's `-O2` names. Nested blocks are trimmed first so a
// terminator discovered inside an `if`'s both arms doesn't also need special
// casing here.
func trimBlock(block *ast.Node) {
	for _, c := range block.Children {
		recurseIntoTrim(c)
	}
	for i, c := range block.Children {
		if c.Kind == ast.Return || c.Kind == ast.Break || c.Kind == ast.Continue {
			block.Children = block.Children[:i+1]
			return
		}
	}
}

func recurseIntoTrim(n *ast.Node) {
	switch n.Kind {
	case ast.IfStatement, ast.ForStatement, ast.LoopStatement:
		for _, c := range n.Children {
			if c.Kind == ast.Block {
				trimBlock(c)
			}
		}
	case ast.SwitchStatement:
		for i := range n.Cases {
			trimBlock(n.Cases[i].Body)
		}
	}
}
