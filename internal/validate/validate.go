package validate

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/quadrate-lang/quadrate/internal/ast"
	"github.com/quadrate-lang/quadrate/internal/builtin"
	"github.com/quadrate-lang/quadrate/internal/diag"
)

// Program is the read-only, already-resolved view the validator needs of
// every module in the compilation, keyed by namespace. The driver builds
// this after internal/resolve has ordered modules and internal/validate has
// run CollectSymbols over each one.
type Program struct {
	Modules map[string]*ModuleSymbols
}

// Options configures a validation run.
type Options struct {
	Werror  bool
	Threads int // > 1 enables concurrent per-function validation via errgroup.
}

// Validator walks every function body of one module's AST against the
// symbol tables of the whole program.
type Validator struct {
	filename string
	self     *ModuleSymbols
	program  *Program
	opt      Options
}

func New(filename string, self *ModuleSymbols, program *Program, opt Options) *Validator {
	return &Validator{filename: filename, self: self, program: program, opt: opt}
}

// ValidateModule validates every FunctionDeclaration under root, returning
// the collected diagnostics. Per spec §5 the compiler has no global mutable
// state across phases beyond the version-pin map, so each function gets its
// own diag.Bag and the bags are merged after all goroutines finish — this
// is the errgroup-based analogue of the teacher's util.perror fan-in
// (src/util/perror.go) used by its parallel Optimise/ValidateTree.
func (v *Validator) ValidateModule(root *ast.Node) *diag.Bag {
	var fns []*ast.Node
	for _, child := range root.Children {
		if child.Kind == ast.FunctionDeclaration {
			fns = append(fns, child)
		}
	}

	bags := make([]diag.Bag, len(fns))
	threads := v.opt.Threads
	if threads < 1 {
		threads = 1
	}
	if threads > len(fns) {
		threads = len(fns)
	}

	if threads <= 1 {
		for i, fn := range fns {
			v.validateFunction(fn, &bags[i])
		}
	} else {
		g, _ := errgroup.WithContext(context.Background())
		g.SetLimit(threads)
		for i, fn := range fns {
			i, fn := i, fn
			g.Go(func() error {
				v.validateFunction(fn, &bags[i])
				return nil
			})
		}
		_ = g.Wait() // validateFunction never returns an error; diagnostics carry failures.
	}

	merged := &diag.Bag{}
	for i := range bags {
		merged.Merge(&bags[i])
	}
	return merged
}

// fnEnv is the per-function validation environment: local variable types
// and the loop-nesting context for break/continue.
type fnEnv struct {
	locals map[string]Val
	fn     *ast.Node
	bag    *diag.Bag
	loopDepth int
}

func (v *Validator) validateFunction(fn *ast.Node, bag *diag.Bag) {
	env := &fnEnv{locals: map[string]Val{}, fn: fn, bag: bag}
	s := stack{}
	for _, in := range fn.Inputs {
		s.push(typeFromName(in.TypeName, v.structSet()))
	}
	body := fn.Children[0]
	out, _ := v.validateBlock(env, body, s)
	v.checkReturnShape(env, fn, out)
}

func (v *Validator) structSet() map[string]bool {
	m := map[string]bool{}
	for name := range v.self.Structs {
		m[name] = true
	}
	for _, mod := range v.program.Modules {
		for name := range mod.Structs {
			m[name] = true
		}
	}
	return m
}

// checkReturnShape verifies the stack at the (implicit or explicit) end of
// a function body matches its declared Outputs, per spec §4.4's Return
// rule, which also governs falling off the end of the body.
func (v *Validator) checkReturnShape(env *fnEnv, fn *ast.Node, out stack) {
	want := stack{}
	for _, o := range fn.Outputs {
		want.push(typeFromName(o.TypeName, v.structSet()))
	}
	if !sameShape(out, want) {
		env.bag.Errorf(diag.Semantic, v.filename, fn.Pos.Line, fn.Pos.Column,
			"function %q: stack at end of body is %s, declared outputs are %s", fn.Name, out, want)
	}
}

// validateBlock walks a Block's statements in order, threading the abstract
// stack through each one, and returns the resulting stack.
func (v *Validator) validateBlock(env *fnEnv, block *ast.Node, in stack) (stack, bool) {
	s := in
	diverged := false
	for _, stmt := range block.Children {
		var ok bool
		s, ok = v.validateStatement(env, stmt, s)
		if !ok {
			diverged = true
		}
	}
	return s, !diverged
}

// validateStatement dispatches on node kind and returns the stack after the
// statement, plus whether control flow can still reach after it (false
// after an unconditional Return/Break/Continue).
func (v *Validator) validateStatement(env *fnEnv, n *ast.Node, in stack) (stack, bool) {
	switch n.Kind {
	case ast.Literal:
		out := in.clone()
		switch n.LitKind {
		case ast.IntLiteral:
			out.push(Val{Type: TInt})
		case ast.FloatLiteral:
			out.push(Val{Type: TFloat})
		case ast.StringLiteral:
			out.push(Val{Type: TString})
		}
		return out, true
	case ast.Instruction:
		return v.validateInstruction(env, n, in), true
	case ast.Identifier:
		return v.validateCall(env, n, n.Name, "", in), true
	case ast.ScopedIdentifier:
		return v.validateCall(env, n, n.Name, n.Scope, in), true
	case ast.FunctionPointerReference:
		out := in.clone()
		out.push(Val{Type: TPointer})
		return out, true
	case ast.IfStatement:
		return v.validateIf(env, n, in), true
	case ast.ForStatement:
		return v.validateFor(env, n, in), true
	case ast.LoopStatement:
		return v.validateLoop(env, n, in), true
	case ast.SwitchStatement:
		return v.validateSwitch(env, n, in), true
	case ast.Break:
		if env.loopDepth == 0 {
			env.bag.Errorf(diag.Semantic, v.filename, n.Pos.Line, n.Pos.Column, "break outside of a loop")
		}
		return in, false
	case ast.Continue:
		if env.loopDepth == 0 {
			env.bag.Errorf(diag.Semantic, v.filename, n.Pos.Line, n.Pos.Column, "continue outside of a loop")
		}
		return in, false
	case ast.Return:
		v.checkReturnShape(env, env.fn, in)
		return in, false
	case ast.Defer:
		// Validated against a saved copy of the stack at declaration point;
		// must be stack-neutral; effects never propagate forward (spec §4.4).
		out, _ := v.validateBlock(env, n.Children[0], in.clone())
		if !sameShape(out, in) {
			env.bag.Errorf(diag.Semantic, v.filename, n.Pos.Line, n.Pos.Column,
				"defer body must not change the stack shape: was %s, became %s", in, out)
		}
		return in, true
	case ast.Ctx:
		// Isolated abstract stack, deep copy in, exactly one value out.
		out, _ := v.validateBlock(env, n.Children[0], in.clone())
		if len(out) != 1 {
			env.bag.Errorf(diag.Semantic, v.filename, n.Pos.Line, n.Pos.Column,
				"ctx block must produce exactly one value, produced %d", len(out))
			result := in.clone()
			result.push(Val{Type: TUnknown})
			return result, true
		}
		result := in.clone()
		result.push(out[len(out)-1])
		return result, true
	case ast.Local:
		env.locals[n.Name] = typeFromName(n.TypeName, v.structSet())
		return in, true
	case ast.StructConstruction:
		out := in.clone()
		out.push(Val{Type: TStruct, StructName: n.Name})
		if !v.structExists(n.Name) {
			env.bag.Errorf(diag.Semantic, v.filename, n.Pos.Line, n.Pos.Column, "undefined struct %q", n.Name)
		}
		return out, true
	case ast.FieldAccess:
		return v.validateFieldAccess(env, n, in), true
	default:
		return in, true
	}
}

func (v *Validator) structExists(name string) bool {
	if _, ok := v.self.Structs[name]; ok {
		return true
	}
	for _, mod := range v.program.Modules {
		if _, ok := mod.Structs[name]; ok {
			return true
		}
	}
	return false
}

func (v *Validator) validateFieldAccess(env *fnEnv, n *ast.Node, in stack) stack {
	local, ok := env.locals[n.Name]
	out := in.clone()
	if !ok || local.Type != TStruct {
		env.bag.Errorf(diag.Semantic, v.filename, n.Pos.Line, n.Pos.Column,
			"%q is not a struct-typed local variable", n.Name)
		out.push(Val{Type: TUnknown})
		return out
	}
	def, ok := v.self.Structs[local.StructName]
	if !ok {
		for _, mod := range v.program.Modules {
			if d, ok2 := mod.Structs[local.StructName]; ok2 {
				def = d
				ok = true
				break
			}
		}
	}
	if !ok {
		out.push(Val{Type: TUnknown})
		return out
	}
	for _, f := range def.Fields {
		if f.Name == n.FieldName {
			out.push(typeFromName(f.TypeName, v.structSet()))
			return out
		}
	}
	env.bag.Errorf(diag.Semantic, v.filename, n.Pos.Line, n.Pos.Column,
		"struct %q has no field %q", local.StructName, n.FieldName)
	out.push(Val{Type: TUnknown})
	return out
}

// validateIf implements spec §4.4's If rule: pop one Int condition,
// validate then/else over clones, and require the two post-stacks to match
// in depth and element-wise type.
func (v *Validator) validateIf(env *fnEnv, n *ast.Node, in stack) stack {
	cond, ok := in.pop()
	if !ok {
		env.bag.Errorf(diag.Semantic, v.filename, n.Pos.Line, n.Pos.Column, "if: stack underflow reading condition")
	} else if cond.Type != TInt {
		env.bag.Errorf(diag.Semantic, v.filename, n.Pos.Line, n.Pos.Column, "if: condition must be int, got %s", cond)
	}

	thenOut, thenOk := v.validateBlock(env, n.Children[0], in.clone())
	var elseOut stack
	elseOk := true
	if len(n.Children) > 1 {
		elseOut, elseOk = v.validateBlock(env, n.Children[1], in.clone())
	} else {
		elseOut = in.clone()
	}

	if thenOk && elseOk && !sameShape(thenOut, elseOut) {
		env.bag.Errorf(diag.Semantic, v.filename, n.Pos.Line, n.Pos.Column,
			"divergent stack shapes at merge: then=%s else=%s", thenOut, elseOut)
	}
	if thenOk {
		return thenOut
	}
	return elseOut
}

// validateFor implements spec §4.4's For rule: pop three integers
// (start, end, step), bind the loop variable to Int, and require the body
// be stack-preserving.
func (v *Validator) validateFor(env *fnEnv, n *ast.Node, in stack) stack {
	s := in.clone()
	for i := 0; i < 3; i++ {
		v1, ok := s.pop()
		if !ok {
			env.bag.Errorf(diag.Semantic, v.filename, n.Pos.Line, n.Pos.Column, "for: stack underflow reading loop bounds")
			break
		}
		if v1.Type != TInt {
			env.bag.Errorf(diag.Semantic, v.filename, n.Pos.Line, n.Pos.Column, "for: loop bound must be int, got %s", v1)
		}
	}
	prevLocal, hadLocal := env.locals[n.Name]
	env.locals[n.Name] = Val{Type: TInt}
	env.loopDepth++
	out, _ := v.validateBlock(env, n.Children[0], s.clone())
	env.loopDepth--
	if hadLocal {
		env.locals[n.Name] = prevLocal
	} else {
		delete(env.locals, n.Name)
	}
	if !sameShape(out, s) {
		env.bag.Errorf(diag.Semantic, v.filename, n.Pos.Line, n.Pos.Column,
			"for body must be stack-preserving: before=%s after=%s", s, out)
	}
	return s
}

// validateLoop implements spec §4.4's Loop rule: body must be
// stack-preserving; break contributes no outgoing stack to merge with.
func (v *Validator) validateLoop(env *fnEnv, n *ast.Node, in stack) stack {
	env.loopDepth++
	out, _ := v.validateBlock(env, n.Children[0], in.clone())
	env.loopDepth--
	if !sameShape(out, in) {
		env.bag.Errorf(diag.Semantic, v.filename, n.Pos.Line, n.Pos.Column,
			"loop body must be stack-preserving: before=%s after=%s", in, out)
	}
	return in
}

// validateSwitch implements switch as a value dispatch: the scrutinee is
// popped once, every non-default case value must share its type, and each
// case body runs against the stack below the scrutinee. The docs do not
// pin this down explicitly; popping a single scrutinee and type-matching
// it against the case literals is the dispatch-table reading consistent
// with every other control-flow form consuming its condition, recorded as
// a resolved design choice alongside the other open questions.
func (v *Validator) validateSwitch(env *fnEnv, n *ast.Node, in stack) stack {
	base := in.clone()
	scrutinee, ok := base.pop()
	if !ok {
		env.bag.Errorf(diag.Semantic, v.filename, n.Pos.Line, n.Pos.Column, "switch: stack underflow reading scrutinee")
	}

	var merged stack
	first := true
	for _, c := range n.Cases {
		if c.Value != nil {
			var lit Val
			switch c.Value.LitKind {
			case ast.IntLiteral:
				lit = Val{Type: TInt}
			case ast.FloatLiteral:
				lit = Val{Type: TFloat}
			case ast.StringLiteral:
				lit = Val{Type: TString}
			}
			if ok && lit.Type != scrutinee.Type {
				env.bag.Errorf(diag.Semantic, v.filename, c.Value.Pos.Line, c.Value.Pos.Column,
					"switch: case value type %s does not match scrutinee type %s", lit, scrutinee)
			}
		}
		out, _ := v.validateBlock(env, c.Body, base.clone())
		if first {
			merged = out
			first = false
		} else if !sameShape(merged, out) {
			env.bag.Errorf(diag.Semantic, v.filename, n.Pos.Line, n.Pos.Column,
				"divergent stack shapes across switch cases")
		}
	}
	if first {
		return base
	}
	return merged
}

// validateInstruction type-checks one built-in instruction against
// internal/builtin's schema table (spec §4.4).
func (v *Validator) validateInstruction(env *fnEnv, n *ast.Node, in stack) stack {
	name := n.Name
	s := in.clone()

	if builtin.IsStackShuffle(name) {
		return v.validateShuffle(env, n, s)
	}

	switch name {
	case "depth":
		s.push(Val{Type: TInt})
		return s
	case "clear":
		return stack{}
	case "err":
		top, ok := s.pop()
		if ok && !top.Tainted {
			env.bag.Errorf(diag.Semantic, v.filename, n.Pos.Line, n.Pos.Column,
				"err: top of stack is not error-tainted")
		}
		s.push(Val{Type: TInt})
		return s
	case "error":
		// Sets the context's error flag; does not touch the abstract stack.
		return s
	}

	sch, ok := builtin.Table[name]
	if !ok {
		env.bag.Errorf(diag.Semantic, v.filename, n.Pos.Line, n.Pos.Column, "undefined instruction %q", name)
		return s
	}
	if s.depth() < sch.MinDepth {
		env.bag.Errorf(diag.Semantic, v.filename, n.Pos.Line, n.Pos.Column,
			"%s: stack underflow, need %d element(s), have %d", name, sch.MinDepth, s.depth())
		return s
	}

	anyFloat := false
	popped := make([]Val, len(sch.Operands))
	for i := len(sch.Operands) - 1; i >= 0; i-- {
		v1, _ := s.pop()
		popped[i] = v1
		want := sch.Operands[i]
		switch want {
		case builtin.TNumeric:
			if !isNumeric(v1.Type) {
				env.bag.Errorf(diag.Semantic, v.filename, n.Pos.Line, n.Pos.Column,
					"%s: expected numeric operand, got %s", name, v1)
			}
			if v1.Type == TFloat {
				anyFloat = true
			}
		case builtin.TInt:
			if v1.Type != TInt {
				env.bag.Errorf(diag.Semantic, v.filename, n.Pos.Line, n.Pos.Column,
					"%s: expected int operand, got %s", name, v1)
			}
		case builtin.TFloat:
			if v1.Type != TFloat {
				if v1.Type == TInt {
					// Implicit widening into a float-only builtin (e.g. sqrt): still a narrowing/widening
					// warning, consistent with the call-site cast rule in spec §4.4.
					env.bag.Warnf(diag.Semantic, v.filename, n.Pos.Line, n.Pos.Column,
						"implicit widening cast: %s expects float, got int", name)
					anyFloat = true
				} else {
					env.bag.Errorf(diag.Semantic, v.filename, n.Pos.Line, n.Pos.Column,
						"%s: expected float operand, got %s", name, v1)
				}
			}
		case builtin.TString:
			if v1.Type != TString {
				env.bag.Errorf(diag.Semantic, v.filename, n.Pos.Line, n.Pos.Column,
					"%s: expected string operand, got %s", name, v1)
			}
		case builtin.TPointer:
			if v1.Type != TPointer {
				env.bag.Errorf(diag.Semantic, v.filename, n.Pos.Line, n.Pos.Column,
					"%s: expected pointer operand, got %s", name, v1)
			}
		}
	}

	for _, r := range sch.Result {
		switch r {
		case builtin.TNumeric:
			if sch.Promote && anyFloat {
				s.push(Val{Type: TFloat})
			} else {
				s.push(Val{Type: TInt})
			}
		case builtin.TInt:
			s.push(Val{Type: TInt})
		case builtin.TFloat:
			s.push(Val{Type: TFloat})
		case builtin.TString:
			s.push(Val{Type: TString})
		case builtin.TPointer:
			s.push(Val{Type: TPointer})
		}
	}
	if sch.Fallible {
		if len(s) > 0 {
			s[len(s)-1].Tainted = true
		}
	}
	return s
}

// validateShuffle implements the structural stack-shuffling operators of
// spec §8 (dup, swap, etc.) directly on the abstract stack slice, since
// their effect is a rearrangement rather than a typed transformation.
func (v *Validator) validateShuffle(env *fnEnv, n *ast.Node, s stack) stack {
	name := n.Name
	need := builtin.Table[name].MinDepth
	if s.depth() < need {
		env.bag.Errorf(diag.Semantic, v.filename, n.Pos.Line, n.Pos.Column,
			"%s: stack underflow, need %d element(s), have %d", name, need, s.depth())
		return s
	}
	top := func(i int) Val { return s[len(s)-1-i] } // 0 = top.
	switch name {
	case "dup":
		s.push(top(0))
	case "dup2":
		a, b := top(1), top(0)
		s.push(a)
		s.push(b)
	case "swap":
		s[len(s)-1], s[len(s)-2] = s[len(s)-2], s[len(s)-1]
	case "swap2":
		s[len(s)-1], s[len(s)-3] = s[len(s)-3], s[len(s)-1]
		s[len(s)-2], s[len(s)-4] = s[len(s)-4], s[len(s)-2]
	case "over":
		s.push(top(1))
	case "over2":
		s.push(top(3))
		s.push(top(3))
	case "nip":
		s[len(s)-2] = s[len(s)-1]
		s = s[:len(s)-1]
	case "nipd":
		s[len(s)-3] = s[len(s)-1]
		s = s[:len(s)-1]
	case "drop":
		s = s[:len(s)-1]
	case "drop2":
		s = s[:len(s)-2]
	case "rot":
		a, b, c := s[len(s)-3], s[len(s)-2], s[len(s)-1]
		s[len(s)-3], s[len(s)-2], s[len(s)-1] = b, c, a
	case "tuck":
		a, b := s[len(s)-2], s[len(s)-1]
		s[len(s)-2] = b
		s[len(s)-1] = a
		s.push(b)
	case "pick", "roll":
		idx, _ := s.pop()
		if idx.Type != TInt {
			env.bag.Errorf(diag.Semantic, v.filename, n.Pos.Line, n.Pos.Column,
				"%s: index must be int, got %s", name, idx)
		}
		s.push(Val{Type: TUnknown})
	case "clear":
		s = stack{}
	}
	return s
}

// validateCall implements spec §4.4's call-site rules: arity/type check
// against the callee signature, implicit cast insertion with warnings, and
// the fallibility/status-push rule.
func (v *Validator) validateCall(env *fnEnv, n *ast.Node, name, scope string, in stack) stack {
	s := in.clone()

	var sig FuncSig
	var ok bool
	if scope == "" {
		if local, isLocal := env.locals[name]; isLocal {
			s.push(local)
			return s
		}
		if c, isConst := v.self.Constants[name]; isConst {
			s.push(constVal(c))
			return s
		}
		sig, ok = v.self.Functions[name]
		if !ok {
			env.bag.Errorf(diag.Semantic, v.filename, n.Pos.Line, n.Pos.Column, "undefined function %q", name)
			return s
		}
	} else {
		if !v.self.Uses[scope] {
			env.bag.Errorf(diag.Semantic, v.filename, n.Pos.Line, n.Pos.Column,
				"module %q is not imported", scope)
			return s
		}
		mod, found := v.program.Modules[scope]
		if !found {
			// Deferred: the driver resolves transitive `use` targets; this
			// scope is declared but its module hasn't been attached to the
			// program symbol table yet. Not an error here (spec §4.4's
			// "is-module" flag suppresses it for later resolution).
			return s
		}
		sig, ok = mod.Functions[name]
		if !ok {
			env.bag.Errorf(diag.Semantic, v.filename, n.Pos.Line, n.Pos.Column,
				"undefined function %q in module %q", name, scope)
			return s
		}
	}

	structs := v.structSet()
	casts := make([]ast.CastDirection, len(sig.Inputs))
	if s.depth() < len(sig.Inputs) {
		env.bag.Errorf(diag.Semantic, v.filename, n.Pos.Line, n.Pos.Column,
			"call to %q: stack underflow, need %d argument(s), have %d", name, len(sig.Inputs), s.depth())
		n.ParameterCasts = casts
		return s
	}
	popped := make([]Val, len(sig.Inputs))
	for i := len(sig.Inputs) - 1; i >= 0; i-- {
		popped[i], _ = s.pop()
	}
	for i, param := range sig.Inputs {
		want := typeFromName(param.TypeName, structs)
		got := popped[i]
		switch {
		case want.Type == TAny:
			// Untyped parameters propagate as Any and never constrain the call.
		case want.Type == TInt && got.Type == TFloat:
			casts[i] = ast.CastFloatToInt
			env.bag.Warnf(diag.Semantic, v.filename, n.Pos.Line, n.Pos.Column,
				"implicit narrowing cast: argument %d of %q", i+1, name)
		case want.Type == TFloat && got.Type == TInt:
			casts[i] = ast.CastIntToFloat
			env.bag.Warnf(diag.Semantic, v.filename, n.Pos.Line, n.Pos.Column,
				"implicit widening cast: argument %d of %q", i+1, name)
		case want.Type != got.Type || (want.Type == TStruct && want.StructName != got.StructName):
			env.bag.Errorf(diag.Semantic, v.filename, n.Pos.Line, n.Pos.Column,
				"call to %q: argument %d type mismatch, want %s got %s", name, i+1, want, got)
		}
	}
	n.ParameterCasts = casts

	for _, o := range sig.Outputs {
		s.push(typeFromName(o.TypeName, structs))
	}
	if sig.Throws && !n.AbortOnError {
		status := Val{Type: TInt, Tainted: true}
		s.push(status)
	}
	return s
}

func constVal(c *ast.Node) Val {
	lit := c.Children[0]
	switch lit.LitKind {
	case ast.IntLiteral:
		return Val{Type: TInt}
	case ast.FloatLiteral:
		return Val{Type: TFloat}
	default:
		return Val{Type: TString}
	}
}
