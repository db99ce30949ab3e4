package typecheck

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sfir-lang/sfirc/internal/diag"
	"github.com/sfir-lang/sfirc/internal/sfir"
	"github.com/sfir-lang/sfirc/internal/types"
)

func f64() types.Type { return types.Primitive{Kind: types.Float64} }
func i32() types.Type { return types.Primitive{Kind: types.Int32} }

func asDiag(t *testing.T, err error) *diag.Error {
	t.Helper()
	d, ok := err.(*diag.Error)
	require.True(t, ok, "expected *diag.Error, got %T (%v)", err, err)
	return d
}

func TestCheckAcceptsIdentityDefinition(t *testing.T) {
	m := &sfir.Module{
		Defs: []sfir.Definition{
			{
				Name:       "id",
				Args:       []sfir.Argument{{Name: "x", Type: f64()}},
				Body:       sfir.Variable{Name: "x"},
				ResultType: f64(),
			},
		},
	}
	assert.NoError(t, Check(m))
}

func TestCheckRejectsResultTypeMismatch(t *testing.T) {
	m := &sfir.Module{
		Defs: []sfir.Definition{
			{
				Name:       "bad",
				Args:       []sfir.Argument{{Name: "x", Type: f64()}},
				Body:       sfir.Variable{Name: "x"},
				ResultType: i32(),
			},
		},
	}
	err := Check(m)
	require.Error(t, err)
	assert.Equal(t, diag.KindTypesNotMatched, asDiag(t, err).Kind)
}

func TestCheckRejectsUnboundVariable(t *testing.T) {
	m := &sfir.Module{
		Defs: []sfir.Definition{
			{Name: "f", Body: sfir.Variable{Name: "nope"}, ResultType: f64()},
		},
	}
	err := Check(m)
	require.Error(t, err)
	assert.Equal(t, diag.KindVariableNotFound, asDiag(t, err).Kind)
}

func TestCheckRejectsApplicationOfNonFunction(t *testing.T) {
	m := &sfir.Module{
		Defs: []sfir.Definition{
			{
				Name: "f",
				Body: sfir.FunctionApplication{
					Fn:   sfir.Primitive{Type: types.Primitive{Kind: types.Float64}, Value: 1.0},
					Args: []sfir.Expr{sfir.Primitive{Type: types.Primitive{Kind: types.Float64}, Value: 2.0}},
				},
				ResultType: f64(),
			},
		},
	}
	err := Check(m)
	require.Error(t, err)
	assert.Equal(t, diag.KindFunctionExpected, asDiag(t, err).Kind)
}

func TestCheckAcceptsUnderApplicationAsFunctionType(t *testing.T) {
	fType := types.Function{Args: []types.Type{f64(), i32()}, Result: f64()}
	m := &sfir.Module{
		Decls: []sfir.Declaration{{Name: "f", Type: fType}},
		Defs: []sfir.Definition{
			{
				Name: "g",
				Args: []sfir.Argument{{Name: "x", Type: f64()}},
				Body: sfir.FunctionApplication{
					Fn:   sfir.Variable{Name: "f"},
					Args: []sfir.Expr{sfir.Variable{Name: "x"}},
				},
				ResultType: types.Function{Args: []types.Type{i32()}, Result: f64()},
			},
		},
	}
	assert.NoError(t, Check(m))
}

func TestCheckRejectsOverApplicationOfNonFunctionResult(t *testing.T) {
	fType := types.Function{Args: []types.Type{f64()}, Result: f64()}
	m := &sfir.Module{
		Decls: []sfir.Declaration{{Name: "f", Type: fType}},
		Defs: []sfir.Definition{
			{
				Name: "g",
				Body: sfir.FunctionApplication{
					Fn:   sfir.Variable{Name: "f"},
					Args: []sfir.Expr{
						sfir.Primitive{Type: types.Primitive{Kind: types.Float64}, Value: 1.0},
						sfir.Primitive{Type: types.Primitive{Kind: types.Float64}, Value: 2.0},
					},
				},
				ResultType: f64(),
			},
		},
	}
	err := Check(m)
	require.Error(t, err)
	assert.Equal(t, diag.KindFunctionExpected, asDiag(t, err).Kind)
}

func TestCheckRejectsWrongConstructorArity(t *testing.T) {
	algebraic := types.NewAlgebraic(types.Constructor{Elements: []types.Type{f64()}})
	m := &sfir.Module{
		Defs: []sfir.Definition{
			{
				Name: "bad",
				Body: sfir.ConstructorApplication{
					Algebraic: algebraic,
					Tag:       0,
					Args:      []sfir.Expr{},
				},
				ResultType: algebraic,
			},
		},
	}
	err := Check(m)
	require.Error(t, err)
	assert.Equal(t, diag.KindWrongArgumentsLength, asDiag(t, err).Kind)
}

func TestCheckRejectsCaseWithNoAlternatives(t *testing.T) {
	algebraic := types.NewAlgebraic(types.Constructor{Elements: nil})
	m := &sfir.Module{
		Defs: []sfir.Definition{
			{
				Name: "bad",
				Body: sfir.Case{
					Scrutinee:   sfir.ConstructorApplication{Algebraic: algebraic, Tag: 0},
					IsAlgebraic: true,
				},
				ResultType: f64(),
			},
		},
	}
	err := Check(m)
	require.Error(t, err)
	assert.Equal(t, diag.KindNoAlternativeFound, asDiag(t, err).Kind)
}

func TestCheckAcceptsAlgebraicCaseWithMatchingAlternatives(t *testing.T) {
	nilCtor := types.Constructor{Elements: nil}
	consCtor := types.Constructor{Elements: []types.Type{f64()}, Boxed: true}
	list := types.NewAlgebraic(nilCtor, consCtor)

	m := &sfir.Module{
		Defs: []sfir.Definition{
			{
				Name: "head_or_zero",
				Args: []sfir.Argument{{Name: "xs", Type: list}},
				Body: sfir.Case{
					Scrutinee:   sfir.Variable{Name: "xs"},
					IsAlgebraic: true,
					AlgebraicAlts: []sfir.AlgebraicAlternative{
						{Tag: 0, Elements: nil, Body: sfir.Primitive{Type: types.Primitive{Kind: types.Float64}, Value: 0.0}},
						{Tag: 1, Elements: []string{"h"}, Body: sfir.Variable{Name: "h"}},
					},
				},
				ResultType: f64(),
			},
		},
	}
	assert.NoError(t, Check(m))
}

func TestCheckRejectsPrimitiveOperationOperandMismatch(t *testing.T) {
	m := &sfir.Module{
		Defs: []sfir.Definition{
			{
				Name: "bad",
				Body: sfir.PrimitiveOperation{
					Op:  sfir.OpAdd,
					Lhs: sfir.Primitive{Type: types.Primitive{Kind: types.Float64}, Value: 1.0},
					Rhs: sfir.Primitive{Type: types.Primitive{Kind: types.Int32}, Value: int32(1)},
				},
				ResultType: f64(),
			},
		},
	}
	err := Check(m)
	require.Error(t, err)
	assert.Equal(t, diag.KindTypesNotMatched, asDiag(t, err).Kind)
}

func TestCheckComparisonOperatorYieldsInt8(t *testing.T) {
	m := &sfir.Module{
		Defs: []sfir.Definition{
			{
				Name: "lt",
				Body: sfir.PrimitiveOperation{
					Op:  sfir.OpLt,
					Lhs: sfir.Primitive{Type: types.Primitive{Kind: types.Float64}, Value: 1.0},
					Rhs: sfir.Primitive{Type: types.Primitive{Kind: types.Float64}, Value: 2.0},
				},
				ResultType: types.Primitive{Kind: types.Int8},
			},
		},
	}
	assert.NoError(t, Check(m))
}

func TestCheckLetRecursiveAllowsMutualReference(t *testing.T) {
	m := &sfir.Module{
		Defs: []sfir.Definition{
			{
				Name: "entry",
				Body: sfir.LetRecursive{
					Defs: []sfir.RecDef{
						{
							Name: "is_even",
							Args: []sfir.Argument{{Name: "n", Type: i32()}},
							Type: types.Primitive{Kind: types.Int8},
							Body: sfir.FunctionApplication{
								Fn:   sfir.Variable{Name: "is_odd"},
								Args: []sfir.Expr{sfir.Variable{Name: "n"}},
							},
						},
						{
							Name: "is_odd",
							Args: []sfir.Argument{{Name: "n", Type: i32()}},
							Type: types.Primitive{Kind: types.Int8},
							Body: sfir.FunctionApplication{
								Fn:   sfir.Variable{Name: "is_even"},
								Args: []sfir.Expr{sfir.Variable{Name: "n"}},
							},
						},
					},
					Body: sfir.FunctionApplication{
						Fn:   sfir.Variable{Name: "is_even"},
						Args: []sfir.Expr{sfir.Primitive{Type: types.Primitive{Kind: types.Int32}, Value: int32(4)}},
					},
				},
				ResultType: types.Primitive{Kind: types.Int8},
			},
		},
	}
	assert.NoError(t, Check(m))
}
