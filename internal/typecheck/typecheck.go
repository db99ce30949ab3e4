// Package typecheck implements the SF-IR type checker (C4): it walks every
// definition's body under a type environment seeded with declarations and
// recursive self-bindings, rejecting ill-typed modules before lowering
// (spec.md §4.4).
//
// Grounded on ailang's internal/types typechecker file split (one file per
// concern — typechecker_functions.go, typechecker_data.go,
// typechecker_patterns.go, ...); this package keeps the same split
// (typecheck.go: environment + entry point, expr.go: atomic/operator/let
// forms, apply.go: function application, case.go: case expressions) and on
// ssf::analysis::type_check::TypeChecker for the exact rules (over-application
// legality, non-exhaustive case acceptance).
package typecheck

import (
	"fmt"

	"github.com/sfir-lang/sfirc/internal/diag"
	"github.com/sfir-lang/sfirc/internal/sfir"
	"github.com/sfir-lang/sfirc/internal/types"
)

// Env is a type environment: canonical types keyed by variable name.
type Env struct {
	vars map[string]types.Type
}

// NewEnv creates an empty environment.
func NewEnv() *Env { return &Env{vars: map[string]types.Type{}} }

// With returns a new Env extending e with name: t, leaving e untouched
// (environments are persistent, the way a recursive-descent checker needs
// to backtrack across sibling branches without one branch's bindings
// leaking into another).
func (e *Env) With(name string, t types.Type) *Env {
	out := &Env{vars: make(map[string]types.Type, len(e.vars)+1)}
	for k, v := range e.vars {
		out.vars[k] = v
	}
	out.vars[name] = t
	return out
}

func (e *Env) WithAll(args []sfir.Argument) *Env {
	out := e
	for _, a := range args {
		out = out.With(a.Name, a.Type)
	}
	return out
}

// Lookup resolves a variable's type.
func (e *Env) Lookup(name string) (types.Type, bool) {
	t, ok := e.vars[name]
	return t, ok
}

// Check type-checks an entire module: every foreign declaration, declaration
// and definition is seeded into the global environment first (so mutual and
// forward references all resolve), then every definition's body is checked
// against that environment extended with its own Args and Env.
func Check(m *sfir.Module) error {
	env := NewEnv()
	for _, fd := range m.ForeignDecls {
		env = env.With(fd.Name, types.Canonicalize(fd.Type))
	}
	for _, d := range m.Decls {
		env = env.With(d.Name, types.Canonicalize(d.Type))
	}
	for _, def := range m.Defs {
		env = env.With(def.Name, definitionType(def))
	}

	for _, def := range m.Defs {
		local := env.WithAll(def.Env)
		local = local.WithAll(def.Args)

		actual, err := infer(local, def.Body)
		if err != nil {
			return err
		}
		expected := types.Canonicalize(def.ResultType)
		if !types.Equal(actual, expected) {
			return diag.TypesNotMatched(expected, actual)
		}
	}
	return nil
}

// definitionType reconstructs a Definition's function (or value) type from
// its Args/ResultType, matching how ailang seeds recursive self-bindings
// before checking a function's own body (typechecker_functions.go).
func definitionType(def sfir.Definition) types.Type {
	result := types.Canonicalize(def.ResultType)
	if len(def.Args) == 0 {
		return result
	}
	args := make([]types.Type, len(def.Args))
	for i, a := range def.Args {
		args[i] = types.Canonicalize(a.Type)
	}
	return types.Function{Args: args, Result: result}
}

func recDefType(d sfir.RecDef) types.Type {
	result := types.Canonicalize(d.Type)
	if len(d.Args) == 0 {
		return result
	}
	args := make([]types.Type, len(d.Args))
	for i, a := range d.Args {
		args[i] = types.Canonicalize(a.Type)
	}
	return types.Function{Args: args, Result: result}
}

func renderType(t types.Type) string {
	if t == nil {
		return "<nil>"
	}
	return t.String()
}

type stringer string

func (s stringer) String() string { return string(s) }

func exprRendering(e sfir.Expr) stringer {
	return stringer(fmt.Sprintf("%s", e))
}
