// Package diag implements the structured diagnostics of spec §7: every
// compile-time error or warning carries a kind, message, filename and
// 1-based line/column instead of the teacher's plain fmt.Errorf strings,
// so the LSP boundary (out of scope here, but named in spec §1) can consume
// them as data rather than parsing messages.
package diag

import "fmt"

// Kind classifies a diagnostic along the axes of spec §7.
type Kind int

const (
	Lexical Kind = iota
	Syntactic
	Semantic
	Resolution
	Internal // IR/linker failures.
)

func (k Kind) String() string {
	switch k {
	case Lexical:
		return "lexical"
	case Syntactic:
		return "syntax"
	case Semantic:
		return "semantic"
	case Resolution:
		return "resolution"
	case Internal:
		return "internal"
	default:
		return "error"
	}
}

// Diagnostic is one compile-time error or warning.
type Diagnostic struct {
	Kind     Kind
	Message  string
	Filename string
	Line     int
	Column   int
	Warning  bool
}

func (d Diagnostic) String() string {
	sev := "error"
	if d.Warning {
		sev = "warning"
	}
	return fmt.Sprintf("%s:%d:%d: %s: %s", d.Filename, d.Line, d.Column, sev, d.Message)
}

// Bag collects diagnostics during a compilation phase. Bag is not safe for
// concurrent use by itself; callers running parallel work (the validator's
// per-function worker pool, the resolver's concurrent module parse) must
// guard it, which internal/validate and internal/resolve do with a mutex or
// by merging per-goroutine bags after an errgroup.Wait.
type Bag struct {
	items []Diagnostic
}

// Add appends a diagnostic to the bag.
func (b *Bag) Add(d Diagnostic) {
	b.items = append(b.items, d)
}

// Errorf appends a non-warning diagnostic built from a format string.
func (b *Bag) Errorf(kind Kind, filename string, line, col int, format string, args ...interface{}) {
	b.Add(Diagnostic{Kind: kind, Message: fmt.Sprintf(format, args...), Filename: filename, Line: line, Column: col})
}

// Warnf appends a warning diagnostic built from a format string.
func (b *Bag) Warnf(kind Kind, filename string, line, col int, format string, args ...interface{}) {
	b.Add(Diagnostic{Kind: kind, Message: fmt.Sprintf(format, args...), Filename: filename, Line: line, Column: col, Warning: true})
}

// Merge appends all diagnostics from other into b.
func (b *Bag) Merge(other *Bag) {
	if other == nil {
		return
	}
	b.items = append(b.items, other.items...)
}

// All returns every diagnostic recorded so far, in insertion order.
func (b *Bag) All() []Diagnostic {
	return b.items
}

// ErrorCount returns the number of diagnostics that are not warnings,
// promoting warnings to errors first when werror is true (spec §4.4, §7
// "--werror merges warnings into errors at count-time").
func (b *Bag) ErrorCount(werror bool) int {
	n := 0
	for _, d := range b.items {
		if !d.Warning || werror {
			n++
		}
	}
	return n
}

// WarningCount returns the number of warnings, or 0 when werror is true
// since they have all been promoted to errors and "do not appear in the
// warning count" (spec §4.4).
func (b *Bag) WarningCount(werror bool) int {
	if werror {
		return 0
	}
	n := 0
	for _, d := range b.items {
		if d.Warning {
			n++
		}
	}
	return n
}
