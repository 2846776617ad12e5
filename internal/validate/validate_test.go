package validate

import (
	"os"
	"testing"

	"github.com/quadrate-lang/quadrate/internal/diag"
	"github.com/quadrate-lang/quadrate/internal/frontend"
)

func TestValidateSimpleFixturePasses(t *testing.T) {
	src, err := os.ReadFile("../../testdata/simple.qd")
	if err != nil {
		t.Fatalf("reading fixture: %v", err)
	}
	root, diags := frontend.Parse("simple.qd", string(src))
	if len(diags) != 0 {
		t.Fatalf("parse errors: %v", diags)
	}

	bag := &diag.Bag{}
	self := CollectSymbols("simple.qd", root, "main", bag)
	if bag.ErrorCount(false) != 0 {
		t.Fatalf("symbol collection errors: %v", bag.All())
	}
	program := &Program{Modules: map[string]*ModuleSymbols{"main": self}}

	v := New("simple.qd", self, program, Options{Threads: 1})
	valBag := v.ValidateModule(root)
	if valBag.ErrorCount(false) != 0 {
		t.Fatalf("unexpected validation errors: %v", valBag.All())
	}
}

func TestValidateStackUnderflowReported(t *testing.T) {
	src := `
fn f( -- ) {
	+
}
`
	root, diags := frontend.Parse("t.qd", src)
	if len(diags) != 0 {
		t.Fatalf("parse errors: %v", diags)
	}
	bag := &diag.Bag{}
	self := CollectSymbols("t.qd", root, "main", bag)
	program := &Program{Modules: map[string]*ModuleSymbols{"main": self}}
	v := New("t.qd", self, program, Options{Threads: 1})
	valBag := v.ValidateModule(root)
	if valBag.ErrorCount(false) == 0 {
		t.Fatalf("expected a stack-underflow diagnostic for a bare '+' with nothing pushed")
	}
}

func TestValidateIfBranchesMustLeaveSameShape(t *testing.T) {
	src := `
fn f( -- ) {
	1 if {
		2
	} else {
		2.5
	}
}
`
	root, diags := frontend.Parse("t.qd", src)
	if len(diags) != 0 {
		t.Fatalf("parse errors: %v", diags)
	}
	bag := &diag.Bag{}
	self := CollectSymbols("t.qd", root, "main", bag)
	program := &Program{Modules: map[string]*ModuleSymbols{"main": self}}
	v := New("t.qd", self, program, Options{Threads: 1})
	valBag := v.ValidateModule(root)
	if valBag.ErrorCount(false) == 0 {
		t.Fatalf("expected a shape-mismatch diagnostic: then branch leaves an int, else branch leaves a float")
	}
}
