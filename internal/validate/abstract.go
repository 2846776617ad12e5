// Package validate implements the semantic validator of spec component C4:
// an abstract interpreter that simulates the operand stack through every
// function body, checking arity and types, inserting implicit numeric
// casts, and reporting diagnostics. The teacher's closest analogue is
// src/ir/validate.go, which drives a lookup-table-based type checker over
// expression/assignment nodes (lutExp, lutAssign); Quadrate's validator
// keeps that "static table keyed by operator, driving a stack of abstract
// types" idea but walks a real operand stack instead of an expression tree,
// since Quadrate is a stack language rather than an infix one.
package validate

import "fmt"

// AbsType is the abstract type of one simulated stack slot (spec §4.4).
type AbsType int

const (
	TInt AbsType = iota
	TFloat
	TString
	TPointer
	TStruct
	TAny
	TUnknown
)

func (t AbsType) String() string {
	switch t {
	case TInt:
		return "i"
	case TFloat:
		return "f"
	case TString:
		return "s"
	case TPointer:
		return "p"
	case TStruct:
		return "struct"
	case TAny:
		return "any"
	default:
		return "unknown"
	}
}

// Val is one abstract stack slot: a type plus, for struct instances, the
// concrete struct name, plus whether this slot is error-tainted (spec
// §3.5/§4.4 — only the runtime `err` instruction may observe/clear taint).
type Val struct {
	Type       AbsType
	StructName string
	Tainted    bool
}

func (v Val) String() string {
	if v.Type == TStruct {
		return v.StructName
	}
	return v.Type.String()
}

// typeFromName maps a parsed parameter/field type string ("i","f","s","p",
// "" for any, or a struct name) to an abstract Val.
func typeFromName(name string, structs map[string]bool) Val {
	switch name {
	case "i":
		return Val{Type: TInt}
	case "f":
		return Val{Type: TFloat}
	case "s":
		return Val{Type: TString}
	case "p":
		return Val{Type: TPointer}
	case "":
		return Val{Type: TAny}
	default:
		if structs[name] {
			return Val{Type: TStruct, StructName: name}
		}
		return Val{Type: TUnknown, StructName: name}
	}
}

// stack is the simulated abstract operand stack; the last element is top.
type stack []Val

func (s stack) clone() stack {
	c := make(stack, len(s))
	copy(c, s)
	return c
}

func (s *stack) push(v Val) {
	*s = append(*s, v)
}

func (s *stack) pop() (Val, bool) {
	if len(*s) == 0 {
		return Val{Type: TUnknown}, false
	}
	v := (*s)[len(*s)-1]
	*s = (*s)[:len(*s)-1]
	return v, true
}

func (s stack) depth() int {
	return len(s)
}

// sameShape reports whether a and b have equal depth and element-wise equal
// types, used for if/else merge and for-loop/loop-body stack-neutrality
// checks (spec §4.4).
func sameShape(a, b stack) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i].Type != b[i].Type {
			return false
		}
		if a[i].Type == TStruct && a[i].StructName != b[i].StructName {
			return false
		}
	}
	return true
}

func (s stack) String() string {
	return fmt.Sprint([]Val(s))
}

func isNumeric(t AbsType) bool {
	return t == TInt || t == TFloat
}
