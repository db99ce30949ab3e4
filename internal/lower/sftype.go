package lower

import (
	"github.com/sfir-lang/sfirc/internal/diag"
	"github.com/sfir-lang/sfirc/internal/sfir"
	"github.com/sfir-lang/sfirc/internal/typecheck"
	"github.com/sfir-lang/sfirc/internal/types"
)

// sfType reconstructs an expression's canonical SF-IR type during lowering.
// It mirrors internal/typecheck's infer, reused rather than re-implemented
// from scratch here because the module has already passed Check — any
// mismatch this function would reject was already rejected upstream, so it
// only needs to recompute the type, not validate it, and treats any shape it
// cannot recognize as an internal BuildFailure rather than a user error.
//
// Grounded on the same check_expression match arms as
// internal/typecheck/expr.go, specialized to "compute" instead of
// "compute-and-check".
func sfType(env *typecheck.Env, e sfir.Expr) (types.Type, error) {
	switch x := e.(type) {
	case sfir.Variable:
		t, ok := env.Lookup(x.Name)
		if !ok {
			return nil, diag.BuildFailure("lower", "unresolved variable during lowering: "+x.Name)
		}
		return t, nil

	case sfir.Primitive:
		return types.Canonicalize(x.Type), nil

	case sfir.PrimitiveOperation:
		lhs, err := sfType(env, x.Lhs)
		if err != nil {
			return nil, err
		}
		switch x.Op {
		case sfir.OpEq, sfir.OpNe, sfir.OpLt, sfir.OpLe, sfir.OpGt, sfir.OpGe, sfir.OpAnd, sfir.OpOr:
			return types.Primitive{Kind: types.Int8}, nil
		default:
			return lhs, nil
		}

	case sfir.Bitcast:
		return types.Canonicalize(x.Type), nil

	case sfir.ConstructorApplication:
		return types.Canonicalize(x.Algebraic), nil

	case sfir.FunctionApplication:
		return sfApplicationType(env, x)

	case sfir.Let:
		return sfType(env.With(x.Name, types.Canonicalize(x.Type)), x.Body)

	case sfir.LetRecursive:
		inner := env
		for _, d := range x.Defs {
			inner = inner.With(d.Name, recDefType(d))
		}
		return sfType(inner, x.Body)

	case sfir.Case:
		return sfCaseType(env, x)
	}
	return nil, diag.BuildFailure("lower", "unrecognized expression node during lowering")
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

func sfCaseType(env *typecheck.Env, c sfir.Case) (types.Type, error) {
	if len(c.AlgebraicAlts) > 0 {
		alt := c.AlgebraicAlts[0]
		scrutineeType, err := sfType(env, c.Scrutinee)
		if err != nil {
			return nil, err
		}
		algebraic, ok := scrutineeType.(types.Algebraic)
		if !ok {
			return nil, diag.BuildFailure("lower", "case scrutinee is not algebraic during lowering")
		}
		ctor := algebraic.Constructors[alt.Tag]
		local := env
		for i, name := range alt.Elements {
			local = local.With(name, types.Canonicalize(ctor.Elements[i]))
		}
		return sfType(local, alt.Body)
	}
	if len(c.PrimitiveAlts) > 0 {
		return sfType(env, c.PrimitiveAlts[0].Body)
	}
	if c.HasDefault {
		local := env
		if c.DefaultVar != "" {
			scrutineeType, err := sfType(env, c.Scrutinee)
			if err != nil {
				return nil, err
			}
			local = env.With(c.DefaultVar, scrutineeType)
		}
		return sfType(local, c.Default)
	}
	return nil, diag.BuildFailure("lower", "case has no alternatives during lowering")
}

// sfApplicationType mirrors typecheck's inferFunctionApplication arity
// arithmetic exactly (exact / under / over), since internal/lower/apply.go
// must agree on the same result type the checker already proved.
func sfApplicationType(env *typecheck.Env, a sfir.FunctionApplication) (types.Type, error) {
	fnType, err := sfType(env, a.Fn)
	if err != nil {
		return nil, err
	}
	fn, ok := fnType.(types.Function)
	if !ok {
		return nil, diag.BuildFailure("lower", "application target is not a function during lowering")
	}
	n, m := len(a.Args), len(fn.Args)
	switch {
	case n == m:
		return fn.Result, nil
	case n < m:
		return types.Function{Args: fn.Args[n:], Result: fn.Result}, nil
	default:
		rest, ok := fn.Result.(types.Function)
		if !ok {
			return nil, diag.BuildFailure("lower", "over-application of non-function result during lowering")
		}
		remaining := n - m
		if remaining == len(rest.Args) {
			return rest.Result, nil
		}
		return types.Function{Args: rest.Args[remaining:], Result: rest.Result}, nil
	}
}
