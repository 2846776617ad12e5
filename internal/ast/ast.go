// Package ast defines the Quadrate abstract syntax tree (spec component C3):
// a tagged-variant Node type, one discriminator per §3.2 production, with a
// non-owning parent back-reference and an owned slice of children. The
// teacher's ir.Node (src/ir/nodetype.go) uses the same "one struct, a Typ
// discriminator and an interface{} payload" shape for a virtual-base-free
// tree; Quadrate keeps that shape and adds the Parent field spec §3.2 and
// §3.6 require, plus per-kind payload structs instead of untyped interface{}
// so the validator and code generator can switch on (and the compiler can
// check) the concrete payload rather than type-asserting blindly.
package ast

import (
	"fmt"

	"github.com/quadrate-lang/quadrate/internal/token"
)

// Kind discriminates the AST node variants of spec §3.2.
type Kind int

const (
	Program Kind = iota
	UseStatement
	ImportStatement
	ConstantDeclaration
	StructDeclaration
	FunctionDeclaration
	Block
	Literal
	Instruction
	Identifier
	ScopedIdentifier
	FunctionPointerReference
	IfStatement
	ForStatement
	LoopStatement
	SwitchStatement
	Case
	Break
	Continue
	Return
	Defer
	Ctx
	StructConstruction
	FieldAccess
	Local
)

var kindNames = [...]string{
	"Program", "UseStatement", "ImportStatement", "ConstantDeclaration",
	"StructDeclaration", "FunctionDeclaration", "Block", "Literal",
	"Instruction", "Identifier", "ScopedIdentifier", "FunctionPointerReference",
	"IfStatement", "ForStatement", "LoopStatement", "SwitchStatement",
	"CaseStatement", "Break", "Continue", "Return", "Defer", "Ctx",
	"StructConstruction", "FieldAccess", "Local",
}

func (k Kind) String() string {
	if int(k) >= 0 && int(k) < len(kindNames) {
		return kindNames[k]
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// LiteralKind distinguishes the payload type of a Literal node.
type LiteralKind int

const (
	IntLiteral LiteralKind = iota
	FloatLiteral
	StringLiteral
)

// CastDirection is the implicit widening/narrowing cast the validator (C4)
// may insert at a call site, per spec §3.3.
type CastDirection int

const (
	CastNone CastDirection = iota
	CastIntToFloat
	CastFloatToInt
)

// Parameter is a typed function input or output, per spec §3.2.
type Parameter struct {
	Name     string
	TypeName string // "i", "f", "s", "p", a struct name, or "" for any.
	IsOutput bool
}

// Field is a struct member declaration.
type Field struct {
	Name     string
	TypeName string
}

// ImportedFunction declares one foreign-library function signature inside an
// ImportStatement.
type ImportedFunction struct {
	Name    string
	Inputs  []Parameter
	Outputs []Parameter
	Throws  bool
	Pos     token.Position
}

// CaseStatement is one arm of a SwitchStatement.
type CaseStatement struct {
	Value     *Node // nil when IsDefault.
	Body      *Node
	IsDefault bool
}

// Node is a tagged-variant AST node. Exactly one of the payload fields below
// is meaningful for a given Kind; accessors are written as small
// kind-gated methods rather than a type switch at every call site, mirroring
// the way the teacher's Node.String/Node.Type gate on Typ.
type Node struct {
	Kind   Kind
	Pos    token.Position
	Parent *Node // Non-owning back-reference; never dereferenced after Parent is dropped.
	Children []*Node

	// Payload, populated according to Kind:
	Name           string        // UseStatement.module, ConstantDeclaration/StructDeclaration/FunctionDeclaration/Local.name, Identifier/ScopedIdentifier/FunctionPointerReference/FieldAccess/StructConstruction, ForStatement.loop var
	Scope          string        // ScopedIdentifier.scope, ImportStatement.namespace
	Library        string        // ImportStatement.library
	ImportedFns    []ImportedFunction
	IsPublic       bool          // StructDeclaration.is_public
	Fields         []Field       // StructDeclaration.fields
	Inputs         []Parameter   // FunctionDeclaration.inputs
	Outputs        []Parameter   // FunctionDeclaration.outputs
	Throws         bool          // FunctionDeclaration.throws
	LitKind        LiteralKind
	RawText        string        // Literal.raw_text
	IntValue       int64
	FloatValue     float64
	StringValue    string
	AbortOnError   bool          // Identifier/ScopedIdentifier: call site used "!"
	CheckError     bool          // Identifier/ScopedIdentifier: call site used "?"
	ParameterCasts []CastDirection
	Cases          []CaseStatement
	TypeName       string        // Local.type, Parameter-like uses elsewhere
	FieldName      string        // FieldAccess.field_name
}

// NewNode allocates a node of the given kind at pos with the given children
// already attached, wiring each child's Parent back-reference the moment it
// is attached, per spec §4.2's ownership rule.
func NewNode(k Kind, pos token.Position, children ...*Node) *Node {
	n := &Node{Kind: k, Pos: pos, Children: children}
	for _, c := range children {
		if c != nil {
			c.Parent = n
		}
	}
	return n
}

// AddChild appends c to n's children and wires c.Parent to n.
func (n *Node) AddChild(c *Node) {
	if c == nil {
		return
	}
	c.Parent = n
	n.Children = append(n.Children, c)
}

// EnclosingFunction walks Parent links to find the nearest FunctionDeclaration
// ancestor, or nil if n is not inside one.
func (n *Node) EnclosingFunction() *Node {
	for p := n.Parent; p != nil; p = p.Parent {
		if p.Kind == FunctionDeclaration {
			return p
		}
	}
	return nil
}

// String renders a short, single-line description of n for diagnostics and
// the --dump-ast debug facility. Printing the tree is a debug utility, not a
// correctness concern (spec §4.3).
func (n *Node) String() string {
	if n == nil {
		return "<nil>"
	}
	switch n.Kind {
	case Literal:
		return fmt.Sprintf("%s[%s]", n.Kind, n.RawText)
	case Identifier, FunctionPointerReference:
		return fmt.Sprintf("%s[%s]", n.Kind, n.Name)
	case ScopedIdentifier:
		return fmt.Sprintf("%s[%s::%s]", n.Kind, n.Scope, n.Name)
	case Instruction:
		return fmt.Sprintf("%s[%s]", n.Kind, n.Name)
	case FunctionDeclaration, ConstantDeclaration, StructDeclaration, Local, UseStatement:
		return fmt.Sprintf("%s[%s]", n.Kind, n.Name)
	default:
		return n.Kind.String()
	}
}

// Dump recursively prints n and its children, indented by depth. Debug-only,
// gated by --dump-ast in the driver; never used for correctness decisions.
func (n *Node) Dump(depth int) {
	if n == nil {
		fmt.Printf("%*c---> NIL\n", depth<<1, ' ')
		return
	}
	fmt.Printf("%*c%s (%s)\n", depth<<1, ' ', n.String(), n.Pos)
	for _, c := range n.Children {
		c.Dump(depth + 1)
	}
}
