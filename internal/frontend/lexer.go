// This lexer is based on, and copied in spirit from, Rob Pike's talk on Go
// scanners ("Lexical Scanning in Go"). The lexer runs as a state machine of
// stateFunc values, each consuming runes from the input and emitting items
// on a channel that the caller drains. Running the scanner on its own
// goroutine lets parsing proceed token-by-token without the lexer needing to
// buffer the whole token stream up front.
package frontend

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/quadrate-lang/quadrate/internal/token"
)

// stateFunc defines the current state of the lexer.
type stateFunc func(*lexer) stateFunc

const eof = 0

// lexer traverses a source stream rune by rune and emits items.
type lexer struct {
	filename    string
	input       string
	start       int
	pos         int
	width       int
	line        int
	startOnLine int
	items       chan token.Token
}

// newLexer creates a new lexer over src and starts its state machine on its
// own goroutine. The returned lexer's items channel is closed once the
// stream has been fully scanned or a lexical error was emitted.
func newLexer(filename, src string) *lexer {
	l := &lexer{
		filename:    filename,
		input:       src,
		line:        1,
		startOnLine: 1,
		items:       make(chan token.Token, 2),
	}
	go l.run()
	return l
}

// run drives the state machine to completion.
func (l *lexer) run() {
	defer close(l.items)
	for state := stateFunc(lexGlobal); state != nil; {
		state = state(l)
	}
}

// nextItem blocks until the next token arrives from the scanning goroutine.
func (l *lexer) nextItem() token.Token {
	t, ok := <-l.items
	if !ok {
		return token.Token{Kind: token.EOF, Pos: token.Position{Line: l.line, Column: l.startOnLine}}
	}
	return t
}

// emit sends a token of kind k for the pending lexeme back to the caller.
func (l *lexer) emit(k token.Kind) {
	lexeme := l.input[l.start:l.pos]
	l.items <- token.Token{
		Kind:   k,
		Lexeme: lexeme,
		Pos:    token.Position{Line: l.line, Column: l.startOnLine},
	}
	l.startOnLine += utf8.RuneCountInString(lexeme)
	l.start = l.pos
}

// emitLiteral is like emit but additionally carries a decoded literal value.
func (l *lexer) emitLiteral(k token.Kind, lit interface{}) {
	lexeme := l.input[l.start:l.pos]
	l.items <- token.Token{
		Kind:    k,
		Lexeme:  lexeme,
		Pos:     token.Position{Line: l.line, Column: l.startOnLine},
		Literal: lit,
	}
	l.startOnLine += utf8.RuneCountInString(lexeme)
	l.start = l.pos
}

// next consumes and returns the next rune of input.
func (l *lexer) next() rune {
	if l.pos >= len(l.input) {
		l.width = 0
		return eof
	}
	r, w := utf8.DecodeRuneInString(l.input[l.pos:])
	l.width = w
	l.pos += w
	return r
}

// backup steps back one rune. Must only be called once per call to next.
func (l *lexer) backup() {
	if l.pos > l.start {
		l.pos -= l.width
	}
}

// peek returns, without consuming, the next rune.
func (l *lexer) peek() rune {
	r := l.next()
	l.backup()
	return r
}

// ignore discards the pending lexeme without emitting a token.
func (l *lexer) ignore() {
	l.startOnLine += utf8.RuneCountInString(l.input[l.start:l.pos])
	l.start = l.pos
}

// newline advances the line counter and resets the column tracker.
func (l *lexer) newline() {
	l.line++
	l.startOnLine = 1
}

// errorf emits an error item and terminates the scan.
func (l *lexer) errorf(format string, args ...interface{}) stateFunc {
	l.items <- token.Token{
		Kind:   token.Error,
		Lexeme: fmt.Sprintf(format, args...),
		Pos:    token.Position{Line: l.line, Column: l.startOnLine},
	}
	return nil
}

// acceptRun consumes a run of runes present in valid.
func (l *lexer) acceptRun(valid string) {
	for strings.ContainsRune(valid, l.next()) {
	}
	l.backup()
}
