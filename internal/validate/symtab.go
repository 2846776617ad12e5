package validate

import (
	"path/filepath"
	"strings"

	"github.com/quadrate-lang/quadrate/internal/ast"
	"github.com/quadrate-lang/quadrate/internal/diag"
)

// FuncSig is the externally-visible signature of a function: enough to
// type-check a call site without re-walking the callee's body.
type FuncSig struct {
	Name    string
	Inputs  []ast.Parameter
	Outputs []ast.Parameter
	Throws  bool
	Foreign bool // true for ImportStatement-declared functions.
}

// ModuleSymbols is the flattened symbol table for one resolved module:
// every function, struct and constant it declares, keyed by name, per spec
// §3.6 ("function/struct/constant names are unique within a module").
type ModuleSymbols struct {
	Namespace string
	Functions map[string]FuncSig
	Structs   map[string]*ast.Node
	Constants map[string]*ast.Node
	Uses      map[string]bool // logical module names this module's `use` statements name.
}

func newModuleSymbols(namespace string) *ModuleSymbols {
	return &ModuleSymbols{
		Namespace: namespace,
		Functions: map[string]FuncSig{},
		Structs:   map[string]*ast.Node{},
		Constants: map[string]*ast.Node{},
		Uses:      map[string]bool{},
	}
}

// CollectSymbols walks a single module's top-level declarations and
// populates a ModuleSymbols, reporting duplicate-name errors into bag. This
// corresponds to the teacher's GenerateSymTab pass (src/ir/symtab.go,
// invoked from src/main.go before ValidateTree): symbol collection is a
// distinct pass from body validation so cross-module calls can be checked
// before any function body is simulated.
func CollectSymbols(filename string, root *ast.Node, namespace string, bag *diag.Bag) *ModuleSymbols {
	ms := newModuleSymbols(namespace)
	for _, child := range root.Children {
		switch child.Kind {
		case ast.UseStatement:
			ms.Uses[child.Name] = true
			if strings.HasSuffix(child.Name, ".qd") {
				base := filepath.Base(child.Name)
				if base == "module.qd" {
					base = filepath.Base(filepath.Dir(child.Name))
				}
				ms.Uses[strings.TrimSuffix(base, ".qd")] = true
			}
		case ast.FunctionDeclaration:
			if _, dup := ms.Functions[child.Name]; dup {
				bag.Errorf(diagKindSemantic(), filename, child.Pos.Line, child.Pos.Column,
					"function %q redeclared in this module", child.Name)
				continue
			}
			ms.Functions[child.Name] = FuncSig{
				Name: child.Name, Inputs: child.Inputs, Outputs: child.Outputs, Throws: child.Throws,
			}
		case ast.ImportStatement:
			for _, fn := range child.ImportedFns {
				if _, dup := ms.Functions[fn.Name]; dup {
					bag.Errorf(diagKindSemantic(), filename, fn.Pos.Line, fn.Pos.Column,
						"function %q redeclared in this module", fn.Name)
					continue
				}
				ms.Functions[fn.Name] = FuncSig{
					Name: fn.Name, Inputs: fn.Inputs, Outputs: fn.Outputs, Throws: fn.Throws, Foreign: true,
				}
			}
		case ast.StructDeclaration:
			if _, dup := ms.Structs[child.Name]; dup {
				bag.Errorf(diagKindSemantic(), filename, child.Pos.Line, child.Pos.Column,
					"struct %q redeclared in this module", child.Name)
				continue
			}
			ms.Structs[child.Name] = child
		case ast.ConstantDeclaration:
			if _, dup := ms.Constants[child.Name]; dup {
				bag.Errorf(diagKindSemantic(), filename, child.Pos.Line, child.Pos.Column,
					"constant %q redeclared in this module", child.Name)
				continue
			}
			ms.Constants[child.Name] = child
		}
	}
	return ms
}

func diagKindSemantic() diag.Kind { return diag.Semantic }
