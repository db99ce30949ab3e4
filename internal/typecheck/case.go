package typecheck

import (
	"github.com/sfir-lang/sfirc/internal/diag"
	"github.com/sfir-lang/sfirc/internal/sfir"
	"github.com/sfir-lang/sfirc/internal/types"
)

// inferCase types a Case expression: the scrutinee's type must match every
// alternative's expected constructor/literal type, every alternative
// (including a default, if present) must agree on a single result type, and
// at least one alternative (ordinary or default) must exist — a case with
// none is rejected with NoAlternativeFound, matching spec.md §4.4(d)'s
// "non-exhaustive without default is accepted, none at all is not".
// Grounded on the Case::Algebraic / Case::Primitive split in
// ssf::analysis::type_check::type_checker::check_case.
func inferCase(env *Env, c sfir.Case) (types.Type, error) {
	scrutineeType, err := infer(env, c.Scrutinee)
	if err != nil {
		return nil, err
	}

	var result types.Type
	have := false

	combine := func(t types.Type) error {
		if have {
			if !types.Equal(t, result) {
				return diag.TypesNotMatched(result, t)
			}
			return nil
		}
		result, have = t, true
		return nil
	}

	if c.IsAlgebraic {
		algebraic, ok := scrutineeType.(types.Algebraic)
		if !ok {
			return nil, diag.TypesNotMatched(stringer("algebraic"), scrutineeType)
		}
		unfolded := types.Unfold(algebraic)
		for _, alt := range c.AlgebraicAlts {
			ctor, ok := unfolded.Constructors[alt.Tag]
			if !ok {
				return nil, diag.BuildFailure("typecheck", "case alternative references unknown constructor tag")
			}
			if len(alt.Elements) != len(ctor.Elements) {
				return nil, diag.WrongArgumentsLength("case alternative", len(ctor.Elements), len(alt.Elements))
			}
			local := env
			for i, name := range alt.Elements {
				local = local.With(name, ctor.Elements[i])
			}
			altType, err := infer(local, alt.Body)
			if err != nil {
				return nil, err
			}
			if err := combine(altType); err != nil {
				return nil, err
			}
		}
	} else {
		for _, alt := range c.PrimitiveAlts {
			litType, err := literalPrimitiveType(alt.Literal)
			if err != nil {
				return nil, err
			}
			if !types.Equal(litType, scrutineeType) {
				return nil, diag.TypesNotMatched(scrutineeType, litType)
			}
			altType, err := infer(env, alt.Body)
			if err != nil {
				return nil, err
			}
			if err := combine(altType); err != nil {
				return nil, err
			}
		}
	}

	if c.HasDefault {
		local := env
		if c.DefaultVar != "" {
			local = env.With(c.DefaultVar, scrutineeType)
		}
		altType, err := infer(local, c.Default)
		if err != nil {
			return nil, err
		}
		if err := combine(altType); err != nil {
			return nil, err
		}
	}

	if !have {
		return nil, diag.NoAlternativeFound(exprRendering(c).String())
	}
	return result, nil
}

// literalPrimitiveType infers a primitive alternative's literal type from
// its Go value, mirroring check_primitive's value-to-Primitive-kind match.
func literalPrimitiveType(v interface{}) (types.Type, error) {
	switch v.(type) {
	case float32:
		return types.Primitive{Kind: types.Float32}, nil
	case float64:
		return types.Primitive{Kind: types.Float64}, nil
	case int8:
		return types.Primitive{Kind: types.Int8}, nil
	case int32:
		return types.Primitive{Kind: types.Int32}, nil
	case int64:
		return types.Primitive{Kind: types.Int64}, nil
	default:
		return nil, diag.BuildFailure("typecheck", "case alternative literal has unsupported Go type")
	}
}
