// Package driver orchestrates spec component C8: it owns the scoped
// temporary-directory guard, wires internal/util's channel-based writer and
// label allocator around the phases that need them, and drives
// parse (via internal/resolve, which parses as it discovers) → collect
// symbols → validate → generate → link → optionally run, mirroring the
// phase sequence of the teacher's run(opt) in src/main.go.
package driver

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"sync"

	"github.com/pkg/errors"

	"github.com/quadrate-lang/quadrate/internal/codegen"
	"github.com/quadrate-lang/quadrate/internal/diag"
	"github.com/quadrate-lang/quadrate/internal/frontend"
	"github.com/quadrate-lang/quadrate/internal/optimize"
	"github.com/quadrate-lang/quadrate/internal/resolve"
	qdruntime "github.com/quadrate-lang/quadrate/internal/runtime"
	"github.com/quadrate-lang/quadrate/internal/util"
	"github.com/quadrate-lang/quadrate/internal/validate"
)

// Run executes the full compile pipeline for opt and returns the process
// exit code (spec §6.1): 0 on success (or, under -r, the program's own exit
// code), 1 on any compile-time error, or the run program's non-zero status.
func Run(opt Options) int {
	wg := sync.WaitGroup{}
	util.ListenWrite(opt.Threads, nil, &wg)
	defer util.Close()
	wr := util.NewWriter()
	defer wr.Close()

	if opt.DumpTokens {
		return dumpTokens(opt, &wr)
	}

	tmpDir, cleanup, err := newBuildDir(opt.SaveTemps)
	if err != nil {
		fmt.Fprintf(os.Stderr, "quadratec: %v\n", err)
		return 1
	}
	defer cleanup()

	mainPath, err := filepath.Abs(opt.Inputs[0])
	if err != nil {
		fmt.Fprintf(os.Stderr, "quadratec: %v\n", err)
		return 1
	}

	graph, bag := resolve.Resolve(opt.Inputs, resolve.Options{
		CLIPins: opt.Links,
		Threads: opt.Threads,
	})
	if reportAndCheck(&wr, bag, opt.Werror) {
		return 1
	}

	for _, mod := range graph.Modules() {
		optimize.Run(mod.AST, opt.OptLevel)
	}

	if opt.DumpAST {
		for _, mod := range graph.Modules() {
			mod.AST.Dump(0)
		}
		return 0
	}

	program := &validate.Program{Modules: map[string]*validate.ModuleSymbols{}}
	symBag := &diag.Bag{}
	for _, mod := range graph.Modules() {
		program.Modules[mod.Namespace] = validate.CollectSymbols(mod.Path, mod.AST, mod.Namespace, symBag)
	}
	if reportAndCheck(&wr, symBag, opt.Werror) {
		return 1
	}

	valBag := &diag.Bag{}
	var mainMod *resolve.Module
	for _, mod := range graph.Modules() {
		if mod.Path == mainPath {
			mainMod = mod
		}
		v := validate.New(mod.Path, program.Modules[mod.Namespace], program, validate.Options{
			Werror:  opt.Werror,
			Threads: opt.Threads,
		})
		valBag.Merge(v.ValidateModule(mod.AST))
	}
	if reportAndCheck(&wr, valBag, opt.Werror) {
		return 1
	}
	if mainMod == nil {
		fmt.Fprintf(os.Stderr, "quadratec: %s was not reachable from its own module graph\n", mainPath)
		return 1
	}

	util.ListenLabel()
	defer util.CloseLabel()

	gen := codegen.New(mainMod.Namespace)
	defer gen.Dispose()
	gen.SetDebugInfo(opt.Debug)
	gen.SetOptimizationLevel(opt.OptLevel)
	for _, path := range graph.LibraryPaths {
		gen.AddLibrarySearchPath(path)
	}
	for _, mod := range graph.Modules() {
		if mod.Path == mainPath {
			continue
		}
		gen.AddModuleAST(mod.Namespace, mod.AST)
	}
	if err := gen.Generate(mainMod.Namespace, mainMod.AST, mainPath); err != nil {
		fmt.Fprintf(os.Stderr, "quadratec: code generation failed: %v\n", err)
		return 1
	}

	if opt.DumpIR {
		wr.WriteString(gen.IRString())
		wr.WriteString("\n")
	}

	objPath := filepath.Join(tmpDir, "module.o")
	if err := gen.WriteObject(objPath); err != nil {
		fmt.Fprintf(os.Stderr, "quadratec: %v\n", err)
		return 1
	}

	runtimeObjPath, err := compileRuntime(tmpDir)
	if err != nil {
		fmt.Fprintf(os.Stderr, "quadratec: %v\n", err)
		return 1
	}

	outPath := opt.Out
	if outPath == "" {
		if opt.Run {
			outPath = filepath.Join(tmpDir, "bin", filepath.Base(mainPath[:len(mainPath)-len(filepath.Ext(mainPath))]))
			if err := os.MkdirAll(filepath.Dir(outPath), 0o755); err != nil {
				fmt.Fprintf(os.Stderr, "quadratec: %v\n", err)
				return 1
			}
		} else {
			outPath = "a.out"
		}
	}
	if err := gen.WriteExecutable(objPath, runtimeObjPath, outPath); err != nil {
		fmt.Fprintf(os.Stderr, "quadratec: %v\n", err)
		return 1
	}

	if opt.Verbose {
		wr.Write("wrote %s\n", outPath)
	}

	if !opt.Run {
		return 0
	}
	return runExecutable(outPath)
}

// reportAndCheck writes every diagnostic in bag through wr and reports
// whether the bag's error count (werror-sensitive) means the caller must
// stop the pipeline.
func reportAndCheck(wr *util.Writer, bag *diag.Bag, werror bool) bool {
	for _, d := range bag.All() {
		wr.WriteString(d.String())
		wr.WriteString("\n")
	}
	return bag.ErrorCount(werror) > 0
}

func dumpTokens(opt Options, wr *util.Writer) int {
	src, err := os.ReadFile(opt.Inputs[0])
	if err != nil {
		fmt.Fprintf(os.Stderr, "quadratec: %v\n", err)
		return 1
	}
	out, err := frontend.TokenStream(opt.Inputs[0], string(src))
	wr.WriteString(out)
	if err != nil {
		fmt.Fprintf(os.Stderr, "quadratec: %v\n", err)
		return 1
	}
	return 0
}

// newBuildDir acquires the scoped temporary-directory guard of spec §5:
// removed on every exit path unless save is set, in which case its path is
// reported instead.
func newBuildDir(save bool) (string, func(), error) {
	dir, err := os.MkdirTemp("", "quadratec-*")
	if err != nil {
		return "", nil, errors.Wrap(err, "creating build directory")
	}
	if save {
		return dir, func() { fmt.Fprintf(os.Stderr, "quadratec: kept build directory %s\n", dir) }, nil
	}
	return dir, func() { _ = os.RemoveAll(dir) }, nil
}

// compileRuntime writes the embedded C runtime to dir and compiles it to an
// object file the linker can combine with the generated module.
func compileRuntime(dir string) (string, error) {
	srcPath := filepath.Join(dir, "runtime.c")
	if err := os.WriteFile(srcPath, []byte(qdruntime.Source), 0o644); err != nil {
		return "", errors.Wrap(err, "writing embedded runtime source")
	}
	objPath := filepath.Join(dir, "runtime.o")
	cmd := exec.Command("clang", "-c", srcPath, "-o", objPath)
	if out, err := cmd.CombinedOutput(); err != nil {
		return "", errors.Wrapf(err, "compiling runtime: %s", string(out))
	}
	return objPath, nil
}

// runExecutable runs path, streaming its stdio, and returns its exit code
// verbatim per spec §6.1.
func runExecutable(path string) int {
	cmd := exec.Command(path)
	cmd.Stdin = os.Stdin
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	if err := cmd.Run(); err != nil {
		if exitErr, ok := err.(*exec.ExitError); ok {
			return exitErr.ExitCode()
		}
		fmt.Fprintf(os.Stderr, "quadratec: %v\n", err)
		return 1
	}
	return 0
}
