// Tests the lexer by verifying that a small Quadrate source is tokenised
// into the expected kind/lexeme/position tuples, in the same "manually
// captured expected slice" style as the teacher's lexer_test.go, scaled
// down to Quadrate's simpler token set.
package frontend

import (
	"testing"

	"github.com/quadrate-lang/quadrate/internal/token"
)

type wantTok struct {
	kind   token.Kind
	lexeme string
	line   int
}

func TestLexerBasic(t *testing.T) {
	src := "fn main( -- ) {\n\t5 3 + print\n}\n"
	want := []wantTok{
		{token.KwFn, "fn", 1},
		{token.Identifier, "main", 1},
		{token.LParen, "(", 1},
		{token.Arrow, "--", 1},
		{token.RParen, ")", 1},
		{token.LBrace, "{", 1},
		{token.Integer, "5", 2},
		{token.Integer, "3", 2},
		{token.Plus, "+", 2},
		{token.Identifier, "print", 2},
		{token.RBrace, "}", 3},
		{token.EOF, "", 4},
	}

	l := newLexer("test.qd", src)
	for i, w := range want {
		got := l.nextItem()
		if got.Kind != w.kind {
			t.Fatalf("token %d: kind = %s, want %s", i, got.Kind, w.kind)
		}
		if w.kind != token.EOF && got.Lexeme != w.lexeme {
			t.Fatalf("token %d: lexeme = %q, want %q", i, got.Lexeme, w.lexeme)
		}
		if got.Pos.Line != w.line {
			t.Fatalf("token %d (%s): line = %d, want %d", i, got.Kind, got.Pos.Line, w.line)
		}
	}
}

func TestLexerScopedIdentifier(t *testing.T) {
	l := newLexer("test.qd", "math::add")
	got := l.nextItem()
	if got.Kind != token.ScopedIdentifier || got.Lexeme != "math::add" {
		t.Fatalf("got %s %q, want SCOPED_IDENTIFIER \"math::add\"", got.Kind, got.Lexeme)
	}
}

func TestLexerStringEscapes(t *testing.T) {
	l := newLexer("test.qd", `"a\nb\t\"c\""`)
	got := l.nextItem()
	if got.Kind != token.String {
		t.Fatalf("got %s, want STRING", got.Kind)
	}
	want := "a\nb\t\"c\""
	if got.Literal != want {
		t.Fatalf("decoded literal = %q, want %q", got.Literal, want)
	}
}

func TestLexerBlockCommentNonNesting(t *testing.T) {
	// Per spec §4.1/§9 block comments do not nest: the first "*/" closes
	// the comment, so the trailing stray "*/" surfaces as real tokens.
	l := newLexer("test.qd", "/* outer /* inner */ */ 1")
	got := l.nextItem()
	if got.Kind != token.Star {
		t.Fatalf("got %s %q after non-nesting comment, want '*' from the leftover \"*/\"", got.Kind, got.Lexeme)
	}
}
