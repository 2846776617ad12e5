// Package resolve implements the module resolver of spec component C5: it
// turns a seed list of source files into the transitive dependency graph of
// Quadrate modules, deciding for every `use` target whether it names a
// direct `.qd` file or a logical module name, searching the ordered set of
// roots spec §4.5 describes, and assigning namespaces. The teacher has no
// analogue (VSL programs are single-file), so the shape here is grounded on
// the teacher's concurrency idiom (src/util/perror.go's fan-in, replaced by
// golang.org/x/sync/errgroup) applied to a BFS module graph instead.
package resolve

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"

	"github.com/quadrate-lang/quadrate/internal/ast"
	"github.com/quadrate-lang/quadrate/internal/diag"
	"github.com/quadrate-lang/quadrate/internal/frontend"
)

// Module is the parsed module record of spec §3.4.
type Module struct {
	LogicalName      string
	Namespace        string
	SourceDirectory  string
	PackageDirectory string // non-empty when resolved from the packages cache.
	Path             string // resolved absolute path, the dedup key.
	AST              *ast.Node
	ImportedModules  []string // namespaces this module's `use` statements name.
	IsDirModule      bool     // true when Path's basename is module.qd.
}

// Options configures a resolution run.
type Options struct {
	CLIPins   map[string]string // from -l name@version.
	QuadrateRoot string          // override for $QUADRATE_ROOT, used by tests.
	Threads   int
}

// Graph is the discovered module set plus the order the generator must
// consume it in.
type Graph struct {
	discovery []*Module
	byPath    map[string]*Module

	// LibraryPaths collects packages-cache directories discovered while
	// resolving third-party `use` targets, for the generator to pass to the
	// linker alongside its own fixed search roots (spec §4.6).
	LibraryPaths []string
}

// Modules returns every discovered module in breadth-first discovery order.
func (g *Graph) Modules() []*Module { return g.discovery }

// CodegenOrder returns modules in reverse discovery order, so leaf
// dependencies are lowered before their dependents, per spec §4.5.
func (g *Graph) CodegenOrder() []*Module {
	out := make([]*Module, len(g.discovery))
	for i, m := range g.discovery {
		out[len(out)-1-i] = m
	}
	return out
}

// Resolve builds the transitive module graph rooted at seedFiles.
func Resolve(seedFiles []string, opt Options) (*Graph, *diag.Bag) {
	bag := &diag.Bag{}
	r := &resolver{
		opt:    opt,
		pins:   newPinSet(opt.CLIPins),
		graph:  &Graph{byPath: map[string]*Module{}},
	}

	type seed struct {
		path        string
		namespace   string
		isDirModule bool
	}
	var frontier []seed
	for _, f := range seedFiles {
		abs, err := filepath.Abs(f)
		if err != nil {
			bag.Errorf(diag.Resolution, f, 0, 0, "resolve: %v", err)
			continue
		}
		ns := namespaceFromFilename(abs)
		frontier = append(frontier, seed{path: abs, namespace: ns, isDirModule: filepath.Base(abs) == "module.qd"})
	}

	threads := opt.Threads
	if threads < 1 {
		threads = 1
	}

	for len(frontier) > 0 {
		var next []seed
		var mu sync.Mutex
		g, _ := errgroup.WithContext(context.Background())
		g.SetLimit(threads)

		type result struct {
			mod  *Module
			uses []seed
			errs []diag.Diagnostic
		}
		results := make([]*result, len(frontier))

		for i, sd := range frontier {
			i, sd := i, sd
			mu.Lock()
			_, seen := r.graph.byPath[sd.path]
			mu.Unlock()
			if seen {
				continue
			}
			g.Go(func() error {
				res := &result{}
				src, err := os.ReadFile(sd.path)
				if err != nil {
					res.errs = append(res.errs, diag.Diagnostic{
						Kind: diag.Resolution, Message: fmt.Sprintf("cannot read %s: %v", sd.path, err),
						Filename: sd.path,
					})
					results[i] = res
					return nil
				}
				root, diags := frontend.Parse(sd.path, string(src))
				res.errs = append(res.errs, diags...)
				mod := &Module{
					LogicalName:     moduleLogicalName(sd.path, sd.isDirModule),
					Namespace:       sd.namespace,
					SourceDirectory: filepath.Dir(sd.path),
					Path:            sd.path,
					AST:             root,
					IsDirModule:     sd.isDirModule,
				}
				for _, child := range root.Children {
					if child.Kind != ast.UseStatement {
						continue
					}
					usePath, useNS, useIsDirModule, err := r.resolveUse(child.Name, mod)
					if err != nil {
						res.errs = append(res.errs, diag.Diagnostic{
							Kind: diag.Resolution, Message: err.Error(),
							Filename: sd.path, Line: child.Pos.Line, Column: child.Pos.Column,
						})
						continue
					}
					mod.ImportedModules = append(mod.ImportedModules, useNS)
					res.uses = append(res.uses, seed{path: usePath, namespace: useNS, isDirModule: useIsDirModule})
				}
				res.mod = mod
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			bag.Errorf(diag.Internal, "", 0, 0, "resolve: %v", err)
		}

		for _, res := range results {
			if res == nil {
				continue
			}
			for _, d := range res.errs {
				bag.Add(d)
			}
			if res.mod == nil {
				continue
			}
			mu.Lock()
			if _, seen := r.graph.byPath[res.mod.Path]; !seen {
				if dir := strings.TrimSuffix(res.mod.Path, "/module.qd"); strings.HasPrefix(dir, packagesDir()+string(filepath.Separator)) || dir == packagesDir() {
					res.mod.PackageDirectory = filepath.Dir(res.mod.Path)
					r.graph.LibraryPaths = appendUnique(r.graph.LibraryPaths, res.mod.PackageDirectory)
				}
				r.graph.byPath[res.mod.Path] = res.mod
				r.graph.discovery = append(r.graph.discovery, res.mod)
				next = append(next, res.uses...)
			}
			mu.Unlock()
		}
		frontier = next
	}

	return r.graph, bag
}

type resolver struct {
	opt   Options
	pins  *pinSet
	graph *Graph
}

func appendUnique(s []string, v string) []string {
	for _, e := range s {
		if e == v {
			return s
		}
	}
	return append(s, v)
}

func namespaceFromFilename(path string) string {
	base := filepath.Base(path)
	if base == "module.qd" {
		return filepath.Base(filepath.Dir(path))
	}
	return strings.TrimSuffix(base, filepath.Ext(base))
}

func moduleLogicalName(path string, isDirModule bool) string {
	if isDirModule {
		return filepath.Base(filepath.Dir(path))
	}
	return strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
}

// resolveUse implements spec §4.5: decide whether target is a direct `.qd`
// file path or a logical module name, find its absolute path, and assign
// its namespace per the directory-module inheritance rule.
func (r *resolver) resolveUse(target string, importer *Module) (path, namespace string, isDirModule bool, err error) {
	if looksLikeFilePath(target) {
		p, rerr := resolveFilePath(target, importer.SourceDirectory)
		if rerr != nil {
			return "", "", false, rerr
		}
		isDirModule = filepath.Base(p) == "module.qd"
		if importer.IsDirModule {
			namespace = importer.Namespace
		} else {
			namespace = namespaceFromFilename(p)
		}
		return p, namespace, isDirModule, nil
	}

	p, found := r.searchLogicalModule(target, importer.SourceDirectory)
	if !found {
		return "", "", false, errors.Errorf("module %q not found on any search path", target)
	}
	return p, target, true, nil
}

func looksLikeFilePath(target string) bool {
	if strings.HasSuffix(target, ".qd") {
		return true
	}
	return strings.HasPrefix(target, "./") || strings.HasPrefix(target, "../") ||
		strings.HasPrefix(target, "/") || strings.HasPrefix(target, "~")
}

func resolveFilePath(target, importerDir string) (string, error) {
	if strings.HasPrefix(target, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", errors.Wrap(err, "expanding ~")
		}
		target = filepath.Join(home, strings.TrimPrefix(target, "~"))
	}
	if filepath.IsAbs(target) {
		return filepath.Clean(target), nil
	}
	return filepath.Abs(filepath.Join(importerDir, target))
}

// searchLogicalModule implements the seven-step search order of spec §4.5.
func (r *resolver) searchLogicalModule(name, srcDir string) (string, bool) {
	candidates := []string{filepath.Join(srcDir, name, "module.qd")}

	if version, ok := r.pins.resolveVersion(name); ok {
		candidates = append(candidates, filepath.Join(packagesDir(), name+"@"+version, "module.qd"))
	}

	root := r.opt.QuadrateRoot
	if root == "" {
		root = os.Getenv("QUADRATE_ROOT")
	}
	if root != "" {
		candidates = append(candidates, filepath.Join(root, name, "module.qd"))
	}

	candidates = append(candidates, filepath.Join("lib", "std"+name+"qd", "qd", name, "module.qd"))

	if exe, err := os.Executable(); err == nil {
		candidates = append(candidates, filepath.Join(filepath.Dir(exe), "..", "share", "quadrate", name, "module.qd"))
	}

	if home, err := os.UserHomeDir(); err == nil {
		candidates = append(candidates, filepath.Join(home, "quadrate", name, "module.qd"))
	}

	candidates = append(candidates, filepath.Join("/usr", "share", "quadrate", name, "module.qd"))

	for _, c := range candidates {
		if fi, err := os.Stat(c); err == nil && !fi.IsDir() {
			abs, err := filepath.Abs(c)
			if err == nil {
				return abs, true
			}
		}
	}
	return "", false
}
