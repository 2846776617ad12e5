// parser.go implements the recursive-descent parser of spec component C2.
// The language is stack-based and has no conventional operator precedence,
// so unlike the teacher (which drives goyacc over a generated LALR table)
// Quadrate's grammar is simple enough to hand-write directly over the token
// stream, matching the EBNF sketch in spec §4.2. The teacher's concurrent,
// channel-based lexer is kept as-is (lexer.go); this parser just buffers a
// small lookahead window over lexer.nextItem so it can peek without
// requiring a generated table.
package frontend

import (
	"fmt"

	"github.com/quadrate-lang/quadrate/internal/ast"
	"github.com/quadrate-lang/quadrate/internal/builtin"
	"github.com/quadrate-lang/quadrate/internal/diag"
	"github.com/quadrate-lang/quadrate/internal/token"
)

// parser holds the mutable state of one recursive-descent parse.
type parser struct {
	filename string
	lex      *lexer
	buf      []token.Token // Lookahead buffer; buf[0] is the current token.
	bag      diag.Bag
}

// Parse lexes and parses src (from filename) into a Program AST node.
// It always returns a non-nil root (possibly partial, per spec §4.2's error
// recovery contract) along with the diagnostics collected while parsing.
func Parse(filename, src string) (*ast.Node, []diag.Diagnostic) {
	p := &parser{filename: filename, lex: newLexer(filename, src)}
	p.fill(1)
	root := p.parseProgram()
	return root, p.bag.All()
}

// --------------------
// Token buffer helpers
// --------------------

func (p *parser) fill(n int) {
	for len(p.buf) < n {
		p.buf = append(p.buf, p.lex.nextItem())
	}
}

func (p *parser) cur() token.Token {
	p.fill(1)
	return p.buf[0]
}

func (p *parser) peekAt(n int) token.Token {
	p.fill(n + 1)
	return p.buf[n]
}

func (p *parser) advance() token.Token {
	p.fill(1)
	t := p.buf[0]
	p.buf = p.buf[1:]
	return t
}

func (p *parser) at(k token.Kind) bool {
	return p.cur().Kind == k
}

func (p *parser) errorf(pos token.Position, format string, args ...interface{}) {
	p.bag.Errorf(diag.Syntactic, p.filename, pos.Line, pos.Column, format, args...)
}

// expect consumes the current token if it has kind k, else records a
// diagnostic and returns the zero Token without consuming anything (so the
// caller's resync logic still sees the offending token).
func (p *parser) expect(k token.Kind) (token.Token, bool) {
	if p.at(k) {
		return p.advance(), true
	}
	t := p.cur()
	p.errorf(t.Pos, "expected %s, got %s", k, describeToken(t))
	return token.Token{}, false
}

func describeToken(t token.Token) string {
	if t.Kind == token.EOF {
		return "end of file"
	}
	return fmt.Sprintf("%q", t.Lexeme)
}

// isTopLevelKeyword reports whether k starts a new top-level declaration,
// used as a resync point for error recovery (spec §4.2).
func isTopLevelKeyword(k token.Kind) bool {
	switch k {
	case token.KwFn, token.KwUse, token.KwImport, token.KwConst, token.KwStruct, token.KwPub:
		return true
	default:
		return false
	}
}

// resyncTopLevel skips tokens until the next top-level keyword or EOF.
func (p *parser) resyncTopLevel() {
	for !isTopLevelKeyword(p.cur().Kind) && p.cur().Kind != token.EOF {
		p.advance()
	}
}

// resyncBlock skips tokens, respecting nested "{"/"}", until the matching
// closing brace of the current block (or EOF) is consumed.
func (p *parser) resyncBlock() {
	depth := 1
	for depth > 0 {
		switch p.cur().Kind {
		case token.EOF:
			return
		case token.LBrace:
			depth++
		case token.RBrace:
			depth--
		}
		p.advance()
	}
}

// --------------
// Top-level grammar
// --------------

func (p *parser) parseProgram() *ast.Node {
	root := ast.NewNode(ast.Program, token.Position{Line: 1, Column: 1})
	for p.cur().Kind != token.EOF {
		start := p.cur().Kind
		var item *ast.Node
		switch start {
		case token.KwUse:
			item = p.parseUse()
		case token.KwImport:
			item = p.parseImport()
		case token.KwConst:
			item = p.parseConst()
		case token.KwStruct, token.KwPub:
			item = p.parseStruct()
		case token.KwFn:
			item = p.parseFunction()
		default:
			t := p.cur()
			p.errorf(t.Pos, "unexpected token %s at top level", describeToken(t))
			p.advance()
			p.resyncTopLevel()
			continue
		}
		if item != nil {
			root.AddChild(item)
		}
	}
	return root
}

func (p *parser) parseUse() *ast.Node {
	pos := p.cur().Pos
	p.advance() // "use"
	t := p.cur()
	var name string
	if t.Kind == token.String {
		name = t.Literal.(string)
		p.advance()
	} else if tk, ok := p.expect(token.Identifier); ok {
		name = tk.Lexeme
	} else {
		p.resyncTopLevel()
		return nil
	}
	n := ast.NewNode(ast.UseStatement, pos)
	n.Name = name
	return n
}

func (p *parser) parseImport() *ast.Node {
	pos := p.cur().Pos
	p.advance() // "import"
	lib, ok := p.expect(token.String)
	if !ok {
		p.resyncTopLevel()
		return nil
	}
	if _, ok := p.expect(token.KwAs); !ok {
		p.resyncTopLevel()
		return nil
	}
	ns, ok := p.expect(token.Identifier)
	if !ok {
		p.resyncTopLevel()
		return nil
	}
	if _, ok := p.expect(token.LBrace); !ok {
		p.resyncTopLevel()
		return nil
	}
	n := ast.NewNode(ast.ImportStatement, pos)
	n.Library = lib.Literal.(string)
	n.Scope = ns.Lexeme
	for p.at(token.KwFn) {
		n.ImportedFns = append(n.ImportedFns, p.parseImportedFunction())
	}
	p.expect(token.RBrace)
	return n
}

func (p *parser) parseImportedFunction() ast.ImportedFunction {
	pos := p.cur().Pos
	p.advance() // "fn"
	name, _ := p.expect(token.Identifier)
	p.expect(token.LParen)
	in := p.parseParams()
	p.expect(token.Arrow)
	out := p.parseParams()
	p.expect(token.RParen)
	throws := false
	if p.at(token.Bang) {
		p.advance()
		throws = true
	}
	return ast.ImportedFunction{Name: name.Lexeme, Inputs: in, Outputs: out, Throws: throws, Pos: pos}
}

func (p *parser) parseParams() []ast.Parameter {
	var params []ast.Parameter
	for p.at(token.Identifier) {
		name := p.advance().Lexeme
		typ := ""
		if p.at(token.Colon) {
			p.advance()
			if tk, ok := p.expect(token.Identifier); ok {
				typ = tk.Lexeme
			}
		}
		params = append(params, ast.Parameter{Name: name, TypeName: typ})
		if p.at(token.Comma) {
			p.advance()
			continue
		}
		break
	}
	return params
}

func (p *parser) parseConst() *ast.Node {
	pos := p.cur().Pos
	p.advance() // "const"
	name, ok := p.expect(token.Identifier)
	if !ok {
		p.resyncTopLevel()
		return nil
	}
	if _, ok := p.expect(token.Assign); !ok {
		p.resyncTopLevel()
		return nil
	}
	lit := p.parseLiteral()
	if lit == nil {
		p.resyncTopLevel()
		return nil
	}
	n := ast.NewNode(ast.ConstantDeclaration, pos, lit)
	n.Name = name.Lexeme
	return n
}

func (p *parser) parseStruct() *ast.Node {
	pos := p.cur().Pos
	isPublic := false
	if p.at(token.KwPub) {
		isPublic = true
		p.advance()
	}
	if _, ok := p.expect(token.KwStruct); !ok {
		p.resyncTopLevel()
		return nil
	}
	name, ok := p.expect(token.Identifier)
	if !ok {
		p.resyncTopLevel()
		return nil
	}
	if _, ok := p.expect(token.LBrace); !ok {
		p.resyncTopLevel()
		return nil
	}
	n := ast.NewNode(ast.StructDeclaration, pos)
	n.Name = name.Lexeme
	n.IsPublic = isPublic
	for p.at(token.Identifier) {
		fname := p.advance().Lexeme
		ftype := ""
		if _, ok := p.expect(token.Colon); ok {
			if tk, ok := p.expect(token.Identifier); ok {
				ftype = tk.Lexeme
			}
		}
		n.Fields = append(n.Fields, ast.Field{Name: fname, TypeName: ftype})
		if p.at(token.Comma) {
			p.advance()
		}
	}
	p.expect(token.RBrace)
	return n
}

func (p *parser) parseFunction() *ast.Node {
	pos := p.cur().Pos
	p.advance() // "fn"
	name, ok := p.expect(token.Identifier)
	if !ok {
		p.resyncTopLevel()
		return nil
	}
	if _, ok := p.expect(token.LParen); !ok {
		p.resyncTopLevel()
		return nil
	}
	in := p.parseParams()
	if _, ok := p.expect(token.Arrow); !ok {
		p.resyncTopLevel()
		return nil
	}
	out := p.parseParams()
	for i := range out {
		out[i].IsOutput = true
	}
	if _, ok := p.expect(token.RParen); !ok {
		p.resyncTopLevel()
		return nil
	}
	throws := false
	if p.at(token.Bang) {
		p.advance()
		throws = true
	}
	if !p.at(token.LBrace) {
		t := p.cur()
		p.errorf(t.Pos, "expected function body, got %s", describeToken(t))
		p.resyncTopLevel()
		return nil
	}
	body := p.parseBlock()
	n := ast.NewNode(ast.FunctionDeclaration, pos, body)
	n.Name = name.Lexeme
	n.Inputs = in
	n.Outputs = out
	n.Throws = throws
	return n
}

// -------------
// Block & statements
// -------------

func (p *parser) parseBlock() *ast.Node {
	pos := p.cur().Pos
	if _, ok := p.expect(token.LBrace); !ok {
		return ast.NewNode(ast.Block, pos)
	}
	n := ast.NewNode(ast.Block, pos)
	for !p.at(token.RBrace) && !p.at(token.EOF) {
		before := p.cur()
		stmt := p.parseStatement()
		if stmt != nil {
			n.AddChild(stmt)
		}
		if stmt == nil && p.cur() == before {
			// Parser made no progress (unrecoverable token); force advance.
			p.advance()
		}
	}
	p.expect(token.RBrace)
	return n
}

func (p *parser) parseStatement() *ast.Node {
	t := p.cur()
	switch t.Kind {
	case token.KwIf:
		return p.parseIf()
	case token.KwFor:
		return p.parseFor()
	case token.KwLoop:
		return p.parseLoop()
	case token.KwSwitch:
		return p.parseSwitch()
	case token.KwBreak:
		p.advance()
		return ast.NewNode(ast.Break, t.Pos)
	case token.KwContinue:
		p.advance()
		return ast.NewNode(ast.Continue, t.Pos)
	case token.KwReturn:
		p.advance()
		return ast.NewNode(ast.Return, t.Pos)
	case token.KwDefer:
		p.advance()
		return ast.NewNode(ast.Defer, t.Pos, p.parseBlock())
	case token.KwCtx:
		p.advance()
		return ast.NewNode(ast.Ctx, t.Pos, p.parseBlock())
	case token.KwVar:
		return p.parseLocal()
	case token.Integer, token.Float, token.String:
		return p.parseLiteral()
	case token.Amp:
		return p.parseFnPtr()
	case token.Identifier, token.ScopedIdentifier:
		return p.parseCallOrFieldAccess()
	case token.At:
		return p.parseStructConstruction()
	case token.Plus, token.Minus, token.Star, token.Slash, token.Percent,
		token.DoubleEq, token.NotEq, token.Less, token.Greater, token.LessEq, token.GreaterEq:
		p.advance()
		return newInstruction(t.Pos, operatorSpelling(t.Kind))
	case token.RBrace:
		return nil
	default:
		p.errorf(t.Pos, "unexpected token %s in statement", describeToken(t))
		p.advance()
		return nil
	}
}

func (p *parser) parseLiteral() *ast.Node {
	t := p.cur()
	n := ast.NewNode(ast.Literal, t.Pos)
	n.RawText = t.Lexeme
	switch t.Kind {
	case token.Integer:
		n.LitKind = ast.IntLiteral
		n.IntValue = t.Literal.(int64)
		p.advance()
	case token.Float:
		n.LitKind = ast.FloatLiteral
		n.FloatValue = t.Literal.(float64)
		p.advance()
	case token.String:
		n.LitKind = ast.StringLiteral
		n.StringValue = t.Literal.(string)
		p.advance()
	default:
		p.errorf(t.Pos, "expected literal, got %s", describeToken(t))
		return nil
	}
	return n
}

func (p *parser) parseIf() *ast.Node {
	pos := p.cur().Pos
	p.advance() // "if"
	then := p.parseBlock()
	n := ast.NewNode(ast.IfStatement, pos, then)
	if p.at(token.KwElse) {
		p.advance()
		n.AddChild(p.parseBlock())
	}
	return n
}

func (p *parser) parseFor() *ast.Node {
	pos := p.cur().Pos
	p.advance() // "for"
	name, _ := p.expect(token.Identifier)
	body := p.parseBlock()
	n := ast.NewNode(ast.ForStatement, pos, body)
	n.Name = name.Lexeme
	return n
}

func (p *parser) parseLoop() *ast.Node {
	pos := p.cur().Pos
	p.advance() // "loop"
	return ast.NewNode(ast.LoopStatement, pos, p.parseBlock())
}

func (p *parser) parseSwitch() *ast.Node {
	pos := p.cur().Pos
	p.advance() // "switch"
	n := ast.NewNode(ast.SwitchStatement, pos)
	if _, ok := p.expect(token.LBrace); !ok {
		return n
	}
	for p.at(token.KwCase) || p.at(token.KwDefault) {
		isDefault := p.at(token.KwDefault)
		p.advance()
		var val *ast.Node
		if !isDefault {
			val = p.parseLiteral()
		}
		p.expect(token.Colon)
		body := p.parseBlock()
		n.Cases = append(n.Cases, ast.CaseStatement{Value: val, Body: body, IsDefault: isDefault})
		if val != nil {
			n.AddChild(val)
		}
		n.AddChild(body)
	}
	p.expect(token.RBrace)
	return n
}

func (p *parser) parseLocal() *ast.Node {
	pos := p.cur().Pos
	p.advance() // "var"
	name, _ := p.expect(token.Identifier)
	typ := ""
	if _, ok := p.expect(token.Colon); ok {
		if tk, ok := p.expect(token.Identifier); ok {
			typ = tk.Lexeme
		}
	}
	n := ast.NewNode(ast.Local, pos)
	n.Name = name.Lexeme
	n.TypeName = typ
	return n
}

func (p *parser) parseFnPtr() *ast.Node {
	pos := p.cur().Pos
	p.advance() // "&"
	t := p.cur()
	n := ast.NewNode(ast.FunctionPointerReference, pos)
	switch t.Kind {
	case token.Identifier:
		n.Name = t.Lexeme
		p.advance()
	case token.ScopedIdentifier:
		scope, name := splitScoped(t.Lexeme)
		n.Scope = scope
		n.Name = name
		p.advance()
	default:
		p.errorf(t.Pos, "expected function name after '&', got %s", describeToken(t))
	}
	return n
}

func (p *parser) parseStructConstruction() *ast.Node {
	pos := p.cur().Pos
	p.advance() // "@"
	name, _ := p.expect(token.Identifier)
	n := ast.NewNode(ast.StructConstruction, pos)
	n.Name = name.Lexeme
	return n
}

// parseCallOrFieldAccess parses a bare Instruction/Identifier/ScopedIdentifier
// call, optionally suffixed with "!"/"?", or a "var@field" field access.
func (p *parser) parseCallOrFieldAccess() *ast.Node {
	t := p.advance()
	var scope, name string
	isScoped := t.Kind == token.ScopedIdentifier
	if isScoped {
		scope, name = splitScoped(t.Lexeme)
	} else {
		name = t.Lexeme
	}

	if p.at(token.At) {
		// var@field field access.
		p.advance()
		fname, _ := p.expect(token.Identifier)
		n := ast.NewNode(ast.FieldAccess, t.Pos)
		n.Name = name
		n.FieldName = fname.Lexeme
		return n
	}

	if builtin.IsBuiltin(name) && !isScoped {
		return newInstruction(t.Pos, name)
	}

	var n *ast.Node
	if isScoped {
		n = ast.NewNode(ast.ScopedIdentifier, t.Pos)
		n.Scope = scope
	} else {
		n = ast.NewNode(ast.Identifier, t.Pos)
	}
	n.Name = name
	if p.at(token.Bang) {
		p.advance()
		n.AbortOnError = true
	} else if p.at(token.Question) {
		p.advance()
		n.CheckError = true
	}
	return n
}

func newInstruction(pos token.Position, name string) *ast.Node {
	n := ast.NewNode(ast.Instruction, pos)
	n.Name = name
	return n
}

func operatorSpelling(k token.Kind) string {
	switch k {
	case token.Plus:
		return "+"
	case token.Minus:
		return "-"
	case token.Star:
		return "*"
	case token.Slash:
		return "/"
	case token.Percent:
		return "%"
	case token.DoubleEq:
		return "=="
	case token.NotEq:
		return "!="
	case token.Less:
		return "<"
	case token.Greater:
		return ">"
	case token.LessEq:
		return "<="
	case token.GreaterEq:
		return ">="
	default:
		return "?"
	}
}

func splitScoped(lexeme string) (scope, name string) {
	for i := 0; i+1 < len(lexeme); i++ {
		if lexeme[i] == ':' && lexeme[i+1] == ':' {
			return lexeme[:i], lexeme[i+2:]
		}
	}
	return "", lexeme
}
