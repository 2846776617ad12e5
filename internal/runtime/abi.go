// Package runtime describes, on the Go side, the native stack-runtime ABI
// boundary of spec component C7: the symbol table the code generator emits
// calls against, and the stack element / context layouts those symbols
// agree on. The runtime itself is a native peer (spec §1, §4.7) — this
// package does not reimplement it in Go. It carries the matching C source
// (runtime.c, embedded below) that internal/driver compiles and links
// alongside the generated object file, the same way the teacher's driver
// shells out to a system assembler/linker rather than linking in Go.
package runtime

import _ "embed"

// Source is the bundled C implementation of every symbol in Table, embedded
// so internal/driver can write it to the build's temporary directory and
// compile it with the same `clang` invocation used for linking, without
// requiring a separately-installed runtime package for a first build.
//
//go:embed runtime.c
var Source string

// ElementType tags the union value of one stack element.
type ElementType int

const (
	TypeInt ElementType = iota
	TypeFloat
	TypeString
	TypePointer
)

func (t ElementType) String() string {
	switch t {
	case TypeInt:
		return "i"
	case TypeFloat:
		return "f"
	case TypeString:
		return "s"
	case TypePointer:
		return "p"
	default:
		return "?"
	}
}

// Symbol describes one qd_* entry point the generator may call.
type Symbol struct {
	Name     string
	Args     []string // descriptive, not a C prototype; see runtime.c for the real signature.
	Returns  string
	Fallible bool // pushes/returns a status the generated code may branch on.
}

// Table enumerates the fixed runtime entry points of spec §4.6's ABI
// contract. Instruction entry points (qd_add, qd_dup, ...) are generated
// from internal/builtin.Table instead of listed here, since that table is
// the single source of truth for the op set shared with the validator.
var Table = []Symbol{
	{Name: "qd_create_context", Args: []string{"stack_size"}, Returns: "ctx*"},
	{Name: "qd_free_context", Args: []string{"ctx*"}},
	{Name: "qd_push_i", Args: []string{"ctx*", "int64_t"}, Returns: "status"},
	{Name: "qd_push_f", Args: []string{"ctx*", "double"}, Returns: "status"},
	{Name: "qd_push_s", Args: []string{"ctx*", "char*"}, Returns: "status"},
	{Name: "qd_push_p", Args: []string{"ctx*", "void*"}, Returns: "status"},
	{Name: "qd_push_call", Args: []string{"ctx*", "char*"}},
	{Name: "qd_pop_call", Args: []string{"ctx*"}},
	{Name: "qd_check_stack", Args: []string{"ctx*", "n", "types[]", "fn_name*"}},
	{Name: "qd_stack_pop", Args: []string{"ctx*"}, Returns: "element"},
	{Name: "qd_pop_i", Args: []string{"ctx*"}, Returns: "int64_t"},
	{Name: "qd_pop_f", Args: []string{"ctx*"}, Returns: "double"},
	{Name: "qd_pop_s", Args: []string{"ctx*"}, Returns: "char*"},
	{Name: "qd_pop_p", Args: []string{"ctx*"}, Returns: "void*"},
	{Name: "qd_pop_cond", Args: []string{"ctx*"}, Returns: "int (bool)"},
	{Name: "qd_pop_for_bounds", Args: []string{"ctx*", "int64_t*", "int64_t*", "int64_t*"}},
	{Name: "qd_cast_i2f", Args: []string{"ctx*"}, Returns: "status"},
	{Name: "qd_cast_f2i", Args: []string{"ctx*"}, Returns: "status"},
	{Name: "qd_has_error", Args: []string{"ctx*"}, Returns: "bool"},
	{Name: "qd_clear_error", Args: []string{"ctx*"}},
	{Name: "qd_set_error", Args: []string{"ctx*"}},
}

// StdqdPrefix is the symbol prefix for the standard runtime module's
// foreign functions (spec §4.6: "if the library is the standard runtime
// use prefix qd_stdqd_").
const StdqdPrefix = "qd_stdqd_"

// MangleUser returns the C symbol name for a user function `f` in namespace
// `N`, per spec §4.6's `usr_<N>_<f>` convention. The platform entry point is
// a separate decision the code generator makes from the main module's actual
// namespace (internal/resolve derives it from the filename, not the literal
// string "main"), so MangleUser never special-cases it.
func MangleUser(namespace, fn string) string {
	return "usr_" + namespace + "_" + fn
}

// CallStackDepth is the runtime's fixed call-stack ring size (spec §4.7).
const CallStackDepth = 256
