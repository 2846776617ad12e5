package diag

import "testing"

func TestBagErrorCountIgnoresWarningsByDefault(t *testing.T) {
	b := &Bag{}
	b.Errorf(Semantic, "t.qd", 1, 1, "bad thing")
	b.Warnf(Semantic, "t.qd", 2, 1, "minor thing")

	if got := b.ErrorCount(false); got != 1 {
		t.Fatalf("ErrorCount(false) = %d, want 1", got)
	}
	if got := b.WarningCount(false); got != 1 {
		t.Fatalf("WarningCount(false) = %d, want 1", got)
	}
}

func TestBagErrorCountWerrorPromotesWarnings(t *testing.T) {
	b := &Bag{}
	b.Warnf(Semantic, "t.qd", 2, 1, "minor thing")

	if got := b.ErrorCount(true); got != 1 {
		t.Fatalf("ErrorCount(true) = %d, want 1 (warning promoted)", got)
	}
	if got := b.WarningCount(true); got != 0 {
		t.Fatalf("WarningCount(true) = %d, want 0 (all promoted away)", got)
	}
}

func TestBagMergeAppendsAndToleratesNil(t *testing.T) {
	a := &Bag{}
	a.Errorf(Syntactic, "a.qd", 1, 1, "a error")
	b := &Bag{}
	b.Errorf(Semantic, "b.qd", 2, 2, "b error")

	a.Merge(b)
	if len(a.All()) != 2 {
		t.Fatalf("got %d diagnostics after merge, want 2", len(a.All()))
	}
	a.Merge(nil)
	if len(a.All()) != 2 {
		t.Fatalf("Merge(nil) should be a no-op, got %d diagnostics", len(a.All()))
	}
}

func TestDiagnosticStringFormatsSeverity(t *testing.T) {
	d := Diagnostic{Kind: Lexical, Message: "unexpected rune", Filename: "t.qd", Line: 3, Column: 5}
	want := "t.qd:3:5: error: unexpected rune"
	if got := d.String(); got != want {
		t.Fatalf("String() = %q, want %q", got, want)
	}
	d.Warning = true
	want = "t.qd:3:5: warning: unexpected rune"
	if got := d.String(); got != want {
		t.Fatalf("String() = %q, want %q", got, want)
	}
}

func TestKindStringKnownAndUnknown(t *testing.T) {
	cases := map[Kind]string{
		Lexical: "lexical", Syntactic: "syntax", Semantic: "semantic",
		Resolution: "resolution", Internal: "internal",
	}
	for k, want := range cases {
		if got := k.String(); got != want {
			t.Fatalf("Kind(%d).String() = %q, want %q", k, got, want)
		}
	}
	if got := Kind(99).String(); got != "error" {
		t.Fatalf("Kind(99).String() = %q, want %q", got, "error")
	}
}
