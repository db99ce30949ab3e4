package typecheck

import (
	"github.com/sfir-lang/sfirc/internal/diag"
	"github.com/sfir-lang/sfirc/internal/sfir"
	"github.com/sfir-lang/sfirc/internal/types"
)

// infer computes e's canonical type under env, or the first diag.Error
// encountered. Grounded on TypeChecker::check_expression in
// ssf::analysis::type_check::type_checker (the case-by-case expression
// match) and on ailang's typechecker_expr.go for the Go shape (one function,
// one switch arm per node kind rather than per-type visitor methods).
func infer(env *Env, e sfir.Expr) (types.Type, error) {
	switch x := e.(type) {
	case sfir.Variable:
		t, ok := env.Lookup(x.Name)
		if !ok {
			return nil, diag.VariableNotFound(x.Name)
		}
		return t, nil

	case sfir.Primitive:
		return types.Canonicalize(x.Type), nil

	case sfir.PrimitiveOperation:
		return inferPrimitiveOperation(env, x)

	case sfir.Bitcast:
		if _, err := infer(env, x.Expr); err != nil {
			return nil, err
		}
		return types.Canonicalize(x.Type), nil

	case sfir.ConstructorApplication:
		return inferConstructorApplication(env, x)

	case sfir.FunctionApplication:
		return inferFunctionApplication(env, x)

	case sfir.Let:
		boundType, err := infer(env, x.Bound)
		if err != nil {
			return nil, err
		}
		declared := types.Canonicalize(x.Type)
		if !types.Equal(boundType, declared) {
			return nil, diag.TypesNotMatched(declared, boundType)
		}
		return infer(env.With(x.Name, declared), x.Body)

	case sfir.LetRecursive:
		return inferLetRecursive(env, x)

	case sfir.Case:
		return inferCase(env, x)
	}
	return nil, diag.BuildFailure("typecheck", "unrecognized expression node")
}

// inferPrimitiveOperation requires both operands to be the same primitive
// type; comparison operators always result in Int8 (a boolean-like tag),
// arithmetic operators result in the (shared) operand type. Grounded
// byte-for-byte on the PrimitiveOperator match in
// ssf::analysis::type_check::type_checker::check_expression.
func inferPrimitiveOperation(env *Env, p sfir.PrimitiveOperation) (types.Type, error) {
	lhsType, err := infer(env, p.Lhs)
	if err != nil {
		return nil, err
	}
	rhsType, err := infer(env, p.Rhs)
	if err != nil {
		return nil, err
	}

	lhsPrim, lhsOK := lhsType.(types.Primitive)
	_, rhsOK := rhsType.(types.Primitive)
	if !lhsOK || !rhsOK || !types.Equal(lhsType, rhsType) {
		return nil, diag.TypesNotMatched(lhsType, rhsType)
	}

	switch p.Op {
	case sfir.OpEq, sfir.OpNe, sfir.OpLt, sfir.OpLe, sfir.OpGt, sfir.OpGe, sfir.OpAnd, sfir.OpOr:
		return types.Primitive{Kind: types.Int8}, nil
	case sfir.OpAdd, sfir.OpSub, sfir.OpMul, sfir.OpDiv:
		return lhsPrim, nil
	}
	return nil, diag.BuildFailure("typecheck", "unrecognized primitive operator "+string(p.Op))
}

// inferConstructorApplication checks the argument count and per-element
// types against the target constructor, then yields the enclosing algebraic
// (not the constructor itself — a constructor has no standalone type, spec
// §3.1). Grounded on the ConstructorApplication arm of check_expression.
func inferConstructorApplication(env *Env, c sfir.ConstructorApplication) (types.Type, error) {
	unfolded := types.Unfold(c.Algebraic)
	ctor, ok := unfolded.Constructors[c.Tag]
	if !ok {
		return nil, diag.BuildFailure("typecheck", "constructor application references unknown tag")
	}
	if len(c.Args) != len(ctor.Elements) {
		return nil, diag.WrongArgumentsLength("constructor application", len(ctor.Elements), len(c.Args))
	}
	for i, arg := range c.Args {
		argType, err := infer(env, arg)
		if err != nil {
			return nil, err
		}
		want := ctor.Elements[i]
		if !types.Equal(argType, want) {
			return nil, diag.TypesNotMatched(want, argType)
		}
	}
	return types.Canonicalize(c.Algebraic), nil
}

// inferLetRecursive seeds every group member's own (possibly function) type
// before checking any body, so mutual recursion across the group resolves
// (mirrors the two-pass LetRecursive arm of check_expression: insert all
// names first, then check_definition each one against that extended
// environment).
func inferLetRecursive(env *Env, l sfir.LetRecursive) (types.Type, error) {
	inner := env
	for _, d := range l.Defs {
		inner = inner.With(d.Name, recDefType(d))
	}
	for _, d := range l.Defs {
		local := inner.WithAll(d.Args)
		actual, err := infer(local, d.Body)
		if err != nil {
			return nil, err
		}
		expected := types.Canonicalize(d.Type)
		if !types.Equal(actual, expected) {
			return nil, diag.TypesNotMatched(expected, actual)
		}
	}
	return infer(inner, l.Body)
}
