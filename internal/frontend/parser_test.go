package frontend

import (
	"os"
	"testing"

	"github.com/quadrate-lang/quadrate/internal/ast"
)

func TestParseSimpleFixture(t *testing.T) {
	src, err := os.ReadFile("../../testdata/simple.qd")
	if err != nil {
		t.Fatalf("reading fixture: %v", err)
	}
	root, diags := Parse("simple.qd", string(src))
	if len(diags) != 0 {
		t.Fatalf("unexpected diagnostics: %v", diags)
	}
	if root.Kind != ast.Program {
		t.Fatalf("root kind = %s, want Program", root.Kind)
	}
	if len(root.Children) != 2 {
		t.Fatalf("got %d top-level declarations, want 2", len(root.Children))
	}
	first := root.Children[0]
	if first.Kind != ast.FunctionDeclaration || first.Name != "add_and_print" {
		t.Fatalf("first decl = %s[%s], want FunctionDeclaration[add_and_print]", first.Kind, first.Name)
	}
	body := first.Children[0]
	if body.Kind != ast.Block {
		t.Fatalf("function body kind = %s, want Block", body.Kind)
	}
	if len(body.Children) != 4 {
		t.Fatalf("got %d statements in add_and_print, want 4 (5, 3, +, print)", len(body.Children))
	}
	if body.Children[2].Kind != ast.Instruction || body.Children[2].Name != "+" {
		t.Fatalf("statement 2 = %s[%s], want Instruction[+]", body.Children[2].Kind, body.Children[2].Name)
	}
	for _, c := range body.Children {
		if c.Parent != body {
			t.Fatalf("child %s has wrong parent back-reference", c.Kind)
		}
	}
}

func TestParseErrorRecoveryContinuesToNextFunction(t *testing.T) {
	src := `
fn broken( -- {
	1
}
fn main( -- ) {
	1
}
`
	root, diags := Parse("bad.qd", src)
	if len(diags) == 0 {
		t.Fatalf("expected at least one diagnostic for malformed body")
	}
	var sawMain bool
	for _, d := range root.Children {
		if d.Kind == ast.FunctionDeclaration && d.Name == "main" {
			sawMain = true
		}
	}
	if !sawMain {
		t.Fatalf("parser did not recover to parse the following function declaration")
	}
}

func TestParseIfRequiresBothBranchesAsBlocks(t *testing.T) {
	src := `
fn f( -- ) {
	1 if {
		2
	} else {
		3
	}
}
`
	root, diags := Parse("if.qd", src)
	if len(diags) != 0 {
		t.Fatalf("unexpected diagnostics: %v", diags)
	}
	fn := root.Children[0]
	ifNode := fn.Children[0].Children[1]
	if ifNode.Kind != ast.IfStatement {
		t.Fatalf("expected IfStatement, got %s", ifNode.Kind)
	}
	if len(ifNode.Children) != 2 {
		t.Fatalf("got %d branches, want 2 (then, else)", len(ifNode.Children))
	}
}
