package optimize

import (
	"testing"

	"github.com/quadrate-lang/quadrate/internal/frontend"
)

func TestFoldConstantsCollapsesLiteralTriple(t *testing.T) {
	src := `
fn f( -- ) {
	2 3 + print
}
`
	root, diags := frontend.Parse("t.qd", src)
	if len(diags) != 0 {
		t.Fatalf("parse errors: %v", diags)
	}
	Run(root, 1)

	body := root.Children[0].Children[0]
	if len(body.Children) != 2 {
		t.Fatalf("got %d statements after folding, want 2 (folded literal, print)", len(body.Children))
	}
	lit := body.Children[0]
	if lit.IntValue != 5 {
		t.Fatalf("folded literal = %d, want 5", lit.IntValue)
	}
}

func TestFoldConstantsLeavesDivisionByZeroUnfolded(t *testing.T) {
	src := `
fn f( -- ) {
	1 0 /
}
`
	root, diags := frontend.Parse("t.qd", src)
	if len(diags) != 0 {
		t.Fatalf("parse errors: %v", diags)
	}
	Run(root, 1)

	body := root.Children[0].Children[0]
	if len(body.Children) != 3 {
		t.Fatalf("got %d statements, want the original 3 left unfolded so the runtime still reports the division error", len(body.Children))
	}
}

func TestDeadBlockEliminationAtO2(t *testing.T) {
	src := `
fn f( -- ) {
	return
	1 2 +
}
`
	root, diags := frontend.Parse("t.qd", src)
	if len(diags) != 0 {
		t.Fatalf("parse errors: %v", diags)
	}
	Run(root, 2)

	body := root.Children[0].Children[0]
	if len(body.Children) != 1 {
		t.Fatalf("got %d statements after dead-block elimination, want 1 (just the return)", len(body.Children))
	}
}

func TestOptLevelZeroLeavesTreeUntouched(t *testing.T) {
	src := `
fn f( -- ) {
	2 3 +
}
`
	root, diags := frontend.Parse("t.qd", src)
	if len(diags) != 0 {
		t.Fatalf("parse errors: %v", diags)
	}
	Run(root, 0)

	body := root.Children[0].Children[0]
	if len(body.Children) != 3 {
		t.Fatalf("got %d statements at -O0, want the original 3 untouched", len(body.Children))
	}
}
