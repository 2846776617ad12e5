package frontend

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/quadrate-lang/quadrate/internal/token"
)

// TokenStream runs only the lexer over src and renders every scanned token
// as a tab-aligned table, for the driver's --dump-tokens flag. It stops at
// the first lexical error, which is reported as the returned error.
func TokenStream(filename, src string) (string, error) {
	l := newLexer(filename, src)

	sb := strings.Builder{}
	tw := tabwriter.NewWriter(&sb, 10, 8, 2, ' ', 0)
	fmt.Fprintf(tw, "Lexeme\tKind\tLine\tColumn\n")

	var lexErr error
	for {
		t := l.nextItem()
		if t.Kind == token.EOF {
			break
		}
		if t.Kind == token.Error {
			lexErr = fmt.Errorf("%s:%d:%d: %s", filename, t.Pos.Line, t.Pos.Column, t.Lexeme)
			break
		}
		fmt.Fprintf(tw, "%s\t%s\t%d\t%d\n", t.Lexeme, t.Kind, t.Pos.Line, t.Pos.Column)
	}
	if err := tw.Flush(); err != nil {
		return sb.String(), err
	}
	return sb.String(), lexErr
}
