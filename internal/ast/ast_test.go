package ast

import (
	"testing"

	"github.com/quadrate-lang/quadrate/internal/token"
)

func TestNewNodeWiresParentBackReferences(t *testing.T) {
	lit := &Node{Kind: Literal, RawText: "5"}
	instr := &Node{Kind: Instruction, Name: "+"}
	block := NewNode(Block, token.Position{}, lit, instr)

	if lit.Parent != block || instr.Parent != block {
		t.Fatalf("NewNode did not wire child Parent back-references")
	}
	if len(block.Children) != 2 {
		t.Fatalf("got %d children, want 2", len(block.Children))
	}
}

func TestAddChildWiresParent(t *testing.T) {
	block := NewNode(Block, token.Position{})
	child := &Node{Kind: Literal, RawText: "1"}
	block.AddChild(child)

	if child.Parent != block {
		t.Fatalf("AddChild did not set Parent")
	}
	if len(block.Children) != 1 || block.Children[0] != child {
		t.Fatalf("AddChild did not append to Children")
	}
}

func TestAddChildIgnoresNil(t *testing.T) {
	block := NewNode(Block, token.Position{})
	block.AddChild(nil)
	if len(block.Children) != 0 {
		t.Fatalf("AddChild(nil) should be a no-op, got %d children", len(block.Children))
	}
}

func TestEnclosingFunctionFindsNearestAncestor(t *testing.T) {
	inner := NewNode(Block, token.Position{})
	outer := NewNode(Block, token.Position{}, inner)
	fn := NewNode(FunctionDeclaration, token.Position{}, outer)
	fn.Name = "f"

	if got := inner.EnclosingFunction(); got != fn {
		t.Fatalf("EnclosingFunction() = %v, want %v", got, fn)
	}
}

func TestEnclosingFunctionNilWhenDetached(t *testing.T) {
	n := NewNode(Block, token.Position{})
	if got := n.EnclosingFunction(); got != nil {
		t.Fatalf("EnclosingFunction() = %v, want nil", got)
	}
}

func TestNodeStringFormatsByKind(t *testing.T) {
	cases := []struct {
		n    *Node
		want string
	}{
		{&Node{Kind: Literal, RawText: "5"}, "Literal[5]"},
		{&Node{Kind: Identifier, Name: "foo"}, "Identifier[foo]"},
		{&Node{Kind: ScopedIdentifier, Scope: "math", Name: "add"}, "ScopedIdentifier[math::add]"},
		{&Node{Kind: Instruction, Name: "+"}, "Instruction[+]"},
		{&Node{Kind: FunctionDeclaration, Name: "main"}, "FunctionDeclaration[main]"},
		{&Node{Kind: Block}, "Block"},
	}
	for _, c := range cases {
		if got := c.n.String(); got != c.want {
			t.Fatalf("String() = %q, want %q", got, c.want)
		}
	}
}

func TestNodeStringNilReceiver(t *testing.T) {
	var n *Node
	if got := n.String(); got != "<nil>" {
		t.Fatalf("String() on nil = %q, want <nil>", got)
	}
}

func TestKindStringOutOfRange(t *testing.T) {
	k := Kind(1000)
	if got := k.String(); got != "Kind(1000)" {
		t.Fatalf("Kind(1000).String() = %q, want %q", got, "Kind(1000)")
	}
}
