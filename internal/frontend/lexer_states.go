package frontend

import (
	"strconv"

	"github.com/quadrate-lang/quadrate/internal/token"
)

// lexGlobal is the default lexer state: it classifies the next
// non-whitespace, non-comment rune and dispatches to the matching state,
// per spec §4.1.
func lexGlobal(l *lexer) stateFunc {
	for {
		r := l.next()
		switch {
		case r == eof:
			l.emit(token.EOF)
			return nil
		case r == '\n':
			l.ignore()
			l.newline()
		case isSpace(r):
			l.ignore()
		case isAlpha(r) || r == '_':
			return lexWord
		case isDigit(r):
			return lexNumber
		case r == '"':
			return lexString
		case r == '/' && l.peek() == '/':
			for c := l.next(); c != '\n' && c != eof; c = l.next() {
			}
			l.backup()
			l.ignore()
		case r == '/' && l.peek() == '*':
			l.next()
			return lexBlockComment
		case r == ':' && l.peek() == ':':
			l.next()
			l.emit(token.ColonColon)
		case r == ':' && l.peek() != ':':
			l.emit(token.Colon)
		case r == '-' && l.peek() == '-':
			l.next()
			l.emit(token.Arrow)
		case r == '=' && l.peek() == '=':
			l.next()
			l.emit(token.DoubleEq)
		case r == '!' && l.peek() == '=':
			l.next()
			l.emit(token.NotEq)
		case r == '<' && l.peek() == '=':
			l.next()
			l.emit(token.LessEq)
		case r == '>' && l.peek() == '=':
			l.next()
			l.emit(token.GreaterEq)
		case r == '(':
			l.emit(token.LParen)
		case r == ')':
			l.emit(token.RParen)
		case r == '{':
			l.emit(token.LBrace)
		case r == '}':
			l.emit(token.RBrace)
		case r == ',':
			l.emit(token.Comma)
		case r == '@':
			l.emit(token.At)
		case r == '&':
			l.emit(token.Amp)
		case r == '!':
			l.emit(token.Bang)
		case r == '?':
			l.emit(token.Question)
		case r == '+':
			l.emit(token.Plus)
		case r == '-':
			l.emit(token.Minus)
		case r == '*':
			l.emit(token.Star)
		case r == '/':
			l.emit(token.Slash)
		case r == '%':
			l.emit(token.Percent)
		case r == '=':
			l.emit(token.Assign)
		case r == '<':
			l.emit(token.Less)
		case r == '>':
			l.emit(token.Greater)
		default:
			return l.errorf("line %d:%d: illegal character %q", l.line, l.startOnLine, r)
		}
	}
}

// lexBlockComment scans a /* ... */ comment. Per §9, block comments do not
// nest: the first "*/" closes the comment regardless of any "/*" seen
// inside it. This matches the behaviour of every other C-family language in
// the example corpus and keeps the scanner a single counter-free loop.
func lexBlockComment(l *lexer) stateFunc {
	for {
		r := l.next()
		if r == eof {
			return l.errorf("line %d:%d: unterminated block comment", l.line, l.startOnLine)
		}
		if r == '\n' {
			l.newline()
			continue
		}
		if r == '*' && l.peek() == '/' {
			l.next()
			l.ignore()
			return lexGlobal
		}
	}
}

// lexWord scans an identifier or keyword, then checks for a following "::"
// to build a scoped identifier token in one step.
func lexWord(l *lexer) stateFunc {
	for {
		r := l.next()
		if !isAlpha(r) && !isDigit(r) && r != '_' {
			l.backup()
			break
		}
	}
	word := l.input[l.start:l.pos]
	if l.peek() == ':' {
		// Lookahead for "::" to fold scope::name into one token, per §4.1.
		save := l.pos
		l.next()
		if l.peek() == ':' {
			l.next()
			for {
				r := l.next()
				if !isAlpha(r) && !isDigit(r) && r != '_' {
					l.backup()
					break
				}
			}
			l.emit(token.ScopedIdentifier)
			return lexGlobal
		}
		l.pos = save
	}
	if k, ok := token.Lookup(word); ok {
		l.emit(k)
	} else {
		l.emit(token.Identifier)
	}
	return lexGlobal
}

// lexNumber scans an integer or float literal. Overflow on integer literals
// saturates to math.MaxInt64/MinInt64 rather than erroring, matching the
// "pick one and document it" guidance in spec §9: a saturating literal is
// always representable, never aborts a compile over a single oversized
// constant, and the validator/codegen never observe a partially parsed
// value.
func lexNumber(l *lexer) stateFunc {
	l.acceptRun("0123456789")
	isFloat := false
	if l.peek() == '.' {
		save := l.pos
		l.next()
		if isDigit(l.peek()) {
			isFloat = true
			l.acceptRun("0123456789")
		} else {
			l.pos = save
		}
	}
	lexeme := l.input[l.start:l.pos]
	if isFloat {
		f, _ := strconv.ParseFloat(lexeme, 64)
		l.emitLiteral(token.Float, f)
	} else {
		n, err := strconv.ParseInt(lexeme, 10, 64)
		if err != nil {
			// Saturate on overflow instead of failing the lex.
			if lexeme[0] == '-' {
				n = -1 << 63
			} else {
				n = 1<<63 - 1
			}
		}
		l.emitLiteral(token.Integer, n)
	}
	return lexGlobal
}

// lexString scans a double-quoted string literal, decoding the escapes
// listed in spec §4.1 (\n \r \t \\ \" \0; any other escaped rune passes
// through unchanged).
func lexString(l *lexer) stateFunc {
	l.ignore() // Drop the opening quote.
	var sb []rune
	for {
		r := l.next()
		switch r {
		case eof:
			return l.errorf("line %d:%d: unterminated string literal", l.line, l.startOnLine)
		case '\n':
			return l.errorf("line %d:%d: newline in string literal", l.line, l.startOnLine)
		case '"':
			l.emitLiteral(token.String, string(sb))
			return lexGlobal
		case '\\':
			e := l.next()
			switch e {
			case 'n':
				sb = append(sb, '\n')
			case 'r':
				sb = append(sb, '\r')
			case 't':
				sb = append(sb, '\t')
			case '\\':
				sb = append(sb, '\\')
			case '"':
				sb = append(sb, '"')
			case '0':
				sb = append(sb, 0)
			case eof:
				return l.errorf("line %d:%d: unterminated string literal", l.line, l.startOnLine)
			default:
				sb = append(sb, e)
			}
		default:
			sb = append(sb, r)
		}
	}
}

func isAlpha(r rune) bool {
	return (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z')
}

func isDigit(r rune) bool {
	return r >= '0' && r <= '9'
}

func isSpace(r rune) bool {
	return r == ' ' || r == '\t' || r == '\r' || r == '\f'
}
