package resolve

import (
	"os"
	"path/filepath"
	"testing"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

func TestResolveDirectFileUse(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "mathutil.qd"), "fn square(x: i -- r: i) {\n\tx x *\n}\n")
	writeFile(t, filepath.Join(dir, "main.qd"), "use \"./mathutil.qd\"\nfn main( -- ) {\n\t1 mathutil::square print\n}\n")

	graph, bag := Resolve([]string{filepath.Join(dir, "main.qd")}, Options{Threads: 1})
	if bag.ErrorCount(false) != 0 {
		t.Fatalf("unexpected resolution errors: %v", bag.All())
	}
	mods := graph.Modules()
	if len(mods) != 2 {
		t.Fatalf("got %d modules, want 2 (main, mathutil)", len(mods))
	}
	if mods[0].Namespace != "main" {
		t.Fatalf("discovery order[0].Namespace = %q, want %q (seeds come first)", mods[0].Namespace, "main")
	}

	order := graph.CodegenOrder()
	if order[0].Namespace != "mathutil" {
		t.Fatalf("CodegenOrder()[0].Namespace = %q, want %q (leaves first)", order[0].Namespace, "mathutil")
	}
}

func TestResolveDirectoryModuleNamespace(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "geometry", "module.qd"), "fn area( -- ) {}\n")
	writeFile(t, filepath.Join(dir, "main.qd"), "use geometry\nfn main( -- ) {}\n")

	graph, bag := Resolve([]string{filepath.Join(dir, "main.qd")}, Options{Threads: 1})
	if bag.ErrorCount(false) != 0 {
		t.Fatalf("unexpected resolution errors: %v", bag.All())
	}
	var found bool
	for _, m := range graph.Modules() {
		if m.Namespace == "geometry" {
			found = true
			if !m.IsDirModule {
				t.Fatalf("module.qd-rooted module should have IsDirModule = true")
			}
		}
	}
	if !found {
		t.Fatalf("directory module %q was not discovered via bare `use geometry`", "geometry")
	}
}

func TestResolveMissingUseTargetReportsDiagnostic(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "main.qd"), "use nosuchmodule\nfn main( -- ) {}\n")

	_, bag := Resolve([]string{filepath.Join(dir, "main.qd")}, Options{Threads: 1})
	if bag.ErrorCount(false) == 0 {
		t.Fatalf("expected a resolution diagnostic for an unresolvable `use` target")
	}
}
