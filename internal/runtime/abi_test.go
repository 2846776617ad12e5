package runtime

import "testing"

func TestMangleUserNamespacedFunction(t *testing.T) {
	cases := []struct {
		namespace, fn, want string
	}{
		{"main", "add_and_print", "usr_main_add_and_print"},
		{"mathutil", "square", "usr_mathutil_square"},
		{"main", "main", "usr_main_main"},
		{"prog", "main", "usr_prog_main"},
	}
	for _, c := range cases {
		if got := MangleUser(c.namespace, c.fn); got != c.want {
			t.Fatalf("MangleUser(%q, %q) = %q, want %q", c.namespace, c.fn, got, c.want)
		}
	}
}

func TestElementTypeString(t *testing.T) {
	cases := []struct {
		typ  ElementType
		want string
	}{
		{TypeInt, "i"},
		{TypeFloat, "f"},
		{TypeString, "s"},
		{TypePointer, "p"},
		{ElementType(99), "?"},
	}
	for _, c := range cases {
		if got := c.typ.String(); got != c.want {
			t.Fatalf("ElementType(%d).String() = %q, want %q", c.typ, got, c.want)
		}
	}
}

func TestTableHasNoDuplicateSymbolNames(t *testing.T) {
	seen := map[string]bool{}
	for _, sym := range Table {
		if seen[sym.Name] {
			t.Fatalf("duplicate runtime symbol %q in Table", sym.Name)
		}
		seen[sym.Name] = true
	}
}
