// Package token defines the lexical tokens produced by the Quadrate lexer
// (spec component C1) and consumed by the parser (C2).
package token

import "fmt"

// Kind differentiates the tokens scanned by the lexer.
type Kind int

const (
	EOF Kind = iota
	Error

	Identifier
	ScopedIdentifier // a::b, already joined by the lexer.
	Integer
	Float
	String

	// Keywords.
	KwUse
	KwImport
	KwAs
	KwConst
	KwPub
	KwStruct
	KwFn
	KwIf
	KwElse
	KwFor
	KwLoop
	KwSwitch
	KwCase
	KwDefault
	KwBreak
	KwContinue
	KwReturn
	KwDefer
	KwCtx
	KwVar

	// Punctuation and operators: multi-rune operators first, then
	// single-rune punctuation, each with its own Kind (see lexGlobal).
	Arrow     // --
	DoubleEq  // ==
	NotEq     // !=
	LessEq    // <=
	GreaterEq // >=
	ColonColon

	LParen
	RParen
	LBrace
	RBrace
	Comma
	At
	Amp
	Bang
	Question
	Plus
	Minus
	Star
	Slash
	Percent
	Assign
	Less
	Greater
	Colon
)

var names = map[Kind]string{
	EOF:          "EOF",
	Error:        "ERROR",
	Identifier:   "IDENTIFIER",
	ScopedIdentifier: "SCOPED_IDENTIFIER",
	Integer:      "INTEGER",
	Float:        "FLOAT",
	String:       "STRING",
	KwUse:        "use",
	KwImport:     "import",
	KwAs:         "as",
	KwConst:      "const",
	KwPub:        "pub",
	KwStruct:     "struct",
	KwFn:         "fn",
	KwIf:         "if",
	KwElse:       "else",
	KwFor:        "for",
	KwLoop:       "loop",
	KwSwitch:     "switch",
	KwCase:       "case",
	KwDefault:    "default",
	KwBreak:      "break",
	KwContinue:   "continue",
	KwReturn:     "return",
	KwDefer:      "defer",
	KwCtx:        "ctx",
	KwVar:        "var",
	Arrow:        "--",
	DoubleEq:     "==",
	NotEq:        "!=",
	LessEq:       "<=",
	GreaterEq:    ">=",
	ColonColon:   "::",
	LParen: "(", RParen: ")", LBrace: "{", RBrace: "}", Comma: ",", At: "@",
	Amp: "&", Bang: "!", Question: "?", Plus: "+", Minus: "-", Star: "*",
	Slash: "/", Percent: "%", Assign: "=", Less: "<", Greater: ">", Colon: ":",
}

// String returns a human readable name for k, used in diagnostics.
func (k Kind) String() string {
	if s, ok := names[k]; ok {
		return s
	}
	return fmt.Sprintf("%q", rune(k))
}

// Keywords maps reserved words to their token kind. Table-driven the way
// the teacher's frontend.rw table is, but keyed directly by spelling since
// Quadrate's keyword set is small enough that a map beats the teacher's
// length-bucketed array without losing clarity.
var Keywords = map[string]Kind{
	"use":      KwUse,
	"import":   KwImport,
	"as":       KwAs,
	"const":    KwConst,
	"pub":      KwPub,
	"struct":   KwStruct,
	"fn":       KwFn,
	"if":       KwIf,
	"else":     KwElse,
	"for":      KwFor,
	"loop":     KwLoop,
	"switch":   KwSwitch,
	"case":     KwCase,
	"default":  KwDefault,
	"break":    KwBreak,
	"continue": KwContinue,
	"return":   KwReturn,
	"defer":    KwDefer,
	"ctx":      KwCtx,
	"var":      KwVar,
}

// Lookup returns the keyword Kind for s, or (Identifier, false) if s is not
// a reserved word.
func Lookup(s string) (Kind, bool) {
	k, ok := Keywords[s]
	if !ok {
		return Identifier, false
	}
	return k, ok
}

// Position is a 1-based source location, matching spec §3.1.
type Position struct {
	Line   int
	Column int
}

func (p Position) String() string {
	return fmt.Sprintf("%d:%d", p.Line, p.Column)
}

// Token is a single lexeme with its source position.
type Token struct {
	Kind    Kind
	Lexeme  string
	Pos     Position
	Literal interface{} // decoded literal value: int64, float64 or decoded string, nil otherwise.
}

func (t Token) String() string {
	if len(t.Lexeme) > 10 {
		return fmt.Sprintf("%.10q... (%s) at %s", t.Lexeme, t.Kind, t.Pos)
	}
	return fmt.Sprintf("%q (%s) at %s", t.Lexeme, t.Kind, t.Pos)
}
