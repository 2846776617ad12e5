package builtin

import "testing"

func TestIsBuiltinRecognisesKnownAndUnknown(t *testing.T) {
	if !IsBuiltin("+") {
		t.Fatalf("IsBuiltin(+) = false, want true")
	}
	if !IsBuiltin("dup") {
		t.Fatalf("IsBuiltin(dup) = false, want true")
	}
	if IsBuiltin("frobnicate") {
		t.Fatalf("IsBuiltin(frobnicate) = true, want false")
	}
}

func TestIsStackShuffleOnlyMarksShuffleOps(t *testing.T) {
	for name := range stackShuffle {
		if !IsStackShuffle(name) {
			t.Fatalf("IsStackShuffle(%q) = false, want true", name)
		}
	}
	if IsStackShuffle("+") {
		t.Fatalf("IsStackShuffle(+) = true, want false")
	}
}

func TestFallibleArithmeticOpsAreMarked(t *testing.T) {
	for _, name := range []string{"/", "%", "div", "mod"} {
		if !Table[name].Fallible {
			t.Fatalf("Table[%q].Fallible = false, want true", name)
		}
	}
	if Table["+"].Fallible {
		t.Fatalf("Table[+].Fallible = true, want false")
	}
}

func TestStackShuffleEntriesOmitOperandsAndResult(t *testing.T) {
	for name := range stackShuffle {
		sch := Table[name]
		if name != "pick" && name != "roll" && len(sch.Operands) != 0 {
			t.Fatalf("Table[%q].Operands = %v, want empty for a structural shuffle op", name, sch.Operands)
		}
		if len(sch.Result) != 0 {
			t.Fatalf("Table[%q].Result = %v, want empty for a structural shuffle op", name, sch.Result)
		}
	}
}
