package codegen

import "testing"

func TestRuntimeOpNameMapsOperatorSymbols(t *testing.T) {
	cases := map[string]string{
		"+": "add", "-": "sub", "*": "mul", "/": "div", "%": "mod",
		"==": "eq", "!=": "neq", "<": "lt", ">": "gt", "<=": "lte", ">=": "gte",
	}
	for in, want := range cases {
		if got := runtimeOpName(in); got != want {
			t.Fatalf("runtimeOpName(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestRuntimeOpNamePassesThroughWordSpelledOps(t *testing.T) {
	for _, name := range []string{"add", "dup", "print", "sqrt"} {
		if got := runtimeOpName(name); got != name {
			t.Fatalf("runtimeOpName(%q) = %q, want unchanged %q", name, got, name)
		}
	}
}
