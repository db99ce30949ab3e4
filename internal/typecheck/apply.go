package typecheck

import (
	"github.com/sfir-lang/sfirc/internal/diag"
	"github.com/sfir-lang/sfirc/internal/sfir"
	"github.com/sfir-lang/sfirc/internal/types"
)

// inferFunctionApplication types an n-ary application of fn against fn's
// static arity m (spec.md §4.4, §4.6.4):
//
//   - n == m: ordinary full application, result is the function's result
//     type.
//   - n < m:  under-application; the result is itself a function type over
//     the remaining m-n arguments, since the lowerer emits a curried
//     partial-application adapter to produce exactly that shape at
//     runtime.
//   - n > m:  over-application; legal only if applying the first m
//     arguments yields a function type, in which case the remaining n-m
//     arguments are checked against that nested function (matching the
//     two-call split the lowerer performs at runtime).
//
// Grounded on the FunctionApplication arm of
// ssf::analysis::type_check::type_checker::check_expression, generalized
// from the original's single-argument applications (SF-IR here threads n-ary
// application nodes directly, spec.md §3.1) to the arity arithmetic spec.md
// §4.4 describes for C4.
func inferFunctionApplication(env *Env, a sfir.FunctionApplication) (types.Type, error) {
	fnType, err := infer(env, a.Fn)
	if err != nil {
		return nil, err
	}
	fn, ok := fnType.(types.Function)
	if !ok {
		return nil, diag.FunctionExpected(exprRendering(a.Fn).String())
	}

	argTypes := make([]types.Type, len(a.Args))
	for i, arg := range a.Args {
		t, err := infer(env, arg)
		if err != nil {
			return nil, err
		}
		argTypes[i] = t
	}

	n, m := len(argTypes), len(fn.Args)

	switch {
	case n == m:
		if err := checkArgsAgainst(fn.Args, argTypes); err != nil {
			return nil, err
		}
		return fn.Result, nil

	case n < m:
		if err := checkArgsAgainst(fn.Args[:n], argTypes); err != nil {
			return nil, err
		}
		return types.Function{Args: fn.Args[n:], Result: fn.Result}, nil

	default: // n > m
		if err := checkArgsAgainst(fn.Args, argTypes[:m]); err != nil {
			return nil, err
		}
		rest, ok := fn.Result.(types.Function)
		if !ok {
			return nil, diag.FunctionExpected(exprRendering(a.Fn).String())
		}
		remaining := argTypes[m:]
		if len(remaining) > len(rest.Args) {
			return nil, diag.WrongArgumentsLength("over-application", len(rest.Args), len(remaining))
		}
		if err := checkArgsAgainst(rest.Args[:len(remaining)], remaining); err != nil {
			return nil, err
		}
		if len(remaining) == len(rest.Args) {
			return rest.Result, nil
		}
		return types.Function{Args: rest.Args[len(remaining):], Result: rest.Result}, nil
	}
}

func checkArgsAgainst(want []types.Type, got []types.Type) error {
	for i, g := range got {
		if !types.Equal(g, want[i]) {
			return diag.TypesNotMatched(want[i], g)
		}
	}
	return nil
}
