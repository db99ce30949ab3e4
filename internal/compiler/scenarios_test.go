package compiler

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sfir-lang/sfirc/internal/config"
	"github.com/sfir-lang/sfirc/internal/diag"
	"github.com/sfir-lang/sfirc/internal/sfir"
	"github.com/sfir-lang/sfirc/internal/types"
)

func f64() types.Type  { return types.Primitive{Kind: types.Float64} }
func i32() types.Type  { return types.Primitive{Kind: types.Int32} }
func i64T() types.Type { return types.Primitive{Kind: types.Int64} }

// Scenario 1: identity on Float64.
func TestScenarioIdentityOnFloat64(t *testing.T) {
	prog := sfir.Program{
		Defs: []sfir.Definition{
			{
				Name:       "id",
				Args:       []sfir.Argument{{Name: "x", Type: f64()}},
				Body:       sfir.Variable{Name: "x"},
				ResultType: f64(),
			},
		},
	}

	out, err := Compile(FromProgram(prog), config.Default())
	require.NoError(t, err)

	entry, ok := out.FindFunctionDefinition("id_entry")
	require.True(t, ok)
	require.Len(t, entry.Args, 2)
	assert.Equal(t, "env_ptr", entry.Args[0].Name)
	assert.Equal(t, "x", entry.Args[1].Name)

	require.Len(t, out.VarDefs, 1)
	assert.Equal(t, "id", out.VarDefs[0].Name)
	assert.True(t, out.VarDefs[0].Constant)
}

// Scenario 2: two-argument function, under-applied then fully applied
// through the resulting adapter.
func TestScenarioUnderAppliedThenFullyApplied(t *testing.T) {
	fType := types.Function{Args: []types.Type{f64(), i32()}, Result: f64()}
	prog := sfir.Program{
		Defs: []sfir.Definition{
			{
				Name:       "f",
				Args:       []sfir.Argument{{Name: "x", Type: f64()}, {Name: "y", Type: i32()}},
				Body:       sfir.Variable{Name: "x"},
				ResultType: f64(),
			},
			{
				Name: "g",
				Args: []sfir.Argument{{Name: "x", Type: f64()}},
				Body: sfir.FunctionApplication{
					Fn:   sfir.Variable{Name: "f"},
					Args: []sfir.Expr{sfir.Variable{Name: "x"}},
				},
				ResultType: types.Function{Args: []types.Type{i32()}, Result: f64()},
			},
			{
				Name: "main",
				Body: sfir.FunctionApplication{
					Fn:   sfir.Variable{Name: "g"},
					Args: []sfir.Expr{sfir.Primitive{Type: types.Primitive{Kind: types.Float64}, Value: 42.0}},
				},
				ResultType: types.Function{Args: []types.Type{i32()}, Result: f64()},
				IsThunk:    true,
			},
		},
	}

	_ = fType
	out, err := Compile(FromProgram(prog), config.Default())
	require.NoError(t, err)

	var adapter bool
	for _, fd := range out.FnDefs {
		if len(fd.Name) > len("_partial") && fd.Name[len(fd.Name)-len("_partial"):] == "_partial" {
			adapter = true
		}
	}
	assert.True(t, adapter, "the under-applied call to f inside g synthesizes a partial-application adapter")

	_, ok := out.FindFunctionDefinition("g_entry")
	assert.True(t, ok)
}

// Scenario 3: recursive algebraic type, boxed Cons, enum-shaped Nil.
func TestScenarioRecursiveAlgebraicConsList(t *testing.T) {
	nilCtor := types.Constructor{Elements: nil}
	consCtor := types.Constructor{Elements: []types.Type{i64T(), types.Index{I: 0}}, Boxed: true}
	list := types.NewAlgebraic(nilCtor, consCtor)

	prog := sfir.Program{
		Defs: []sfir.Definition{
			{
				Name: "smallList",
				Body: sfir.ConstructorApplication{
					Algebraic: list,
					Tag:       1,
					Args: []sfir.Expr{
						sfir.Primitive{Type: types.Primitive{Kind: types.Int64}, Value: int64(1)},
						sfir.ConstructorApplication{
							Algebraic: list,
							Tag:       1,
							Args: []sfir.Expr{
								sfir.Primitive{Type: types.Primitive{Kind: types.Int64}, Value: int64(2)},
								sfir.ConstructorApplication{Algebraic: list, Tag: 0},
							},
						},
					},
				},
				ResultType: list,
				IsThunk:    true,
			},
		},
	}

	out, err := Compile(FromProgram(prog), config.Default())
	require.NoError(t, err)

	_, ok := out.FindFunctionDefinition("smallList_entry")
	assert.True(t, ok, "a constructor chain this deep must be built inside a thunk body, never as a folded constant")
}

// Scenario 4: thunk forcing state machine shape.
func TestScenarioThunkForcing(t *testing.T) {
	prog := sfir.Program{
		Defs: []sfir.Definition{
			{
				Name:       "x",
				Body:       sfir.Primitive{Type: types.Primitive{Kind: types.Int64}, Value: int64(42)},
				ResultType: i64T(),
				IsThunk:    true,
			},
		},
	}

	out, err := Compile(FromProgram(prog), config.Default())
	require.NoError(t, err)

	for _, suffix := range []string{"x_entry", "x_entry_normal", "x_entry_locked"} {
		_, ok := out.FindFunctionDefinition(suffix)
		assert.True(t, ok, "missing %s", suffix)
	}
	require.Len(t, out.VarDefs, 1)
	assert.False(t, out.VarDefs[0].Constant)
}

// Scenario 5: mutual recursion via LetRecursive, lowered inside a thunk body.
func TestScenarioMutualRecursionViaLetRecursive(t *testing.T) {
	boolT := func() types.Type { return types.Primitive{Kind: types.Int8} }

	even := sfir.RecDef{
		Name: "even",
		Args: []sfir.Argument{{Name: "n", Type: i64T()}},
		Type: boolT(),
		Body: sfir.Case{
			Scrutinee:  sfir.Variable{Name: "n"},
			HasDefault: true,
			PrimitiveAlts: []sfir.PrimitiveAlternative{
				{Literal: int64(0), Body: sfir.Primitive{Type: types.Primitive{Kind: types.Int8}, Value: int8(1)}},
			},
			Default: sfir.FunctionApplication{
				Fn: sfir.Variable{Name: "odd"},
				Args: []sfir.Expr{
					sfir.PrimitiveOperation{Op: sfir.OpSub, Lhs: sfir.Variable{Name: "n"}, Rhs: sfir.Primitive{Type: types.Primitive{Kind: types.Int64}, Value: int64(1)}},
				},
			},
		},
	}
	odd := sfir.RecDef{
		Name: "odd",
		Args: []sfir.Argument{{Name: "n", Type: i64T()}},
		Type: boolT(),
		Body: sfir.Case{
			Scrutinee:  sfir.Variable{Name: "n"},
			HasDefault: true,
			PrimitiveAlts: []sfir.PrimitiveAlternative{
				{Literal: int64(0), Body: sfir.Primitive{Type: types.Primitive{Kind: types.Int8}, Value: int8(0)}},
			},
			Default: sfir.FunctionApplication{
				Fn: sfir.Variable{Name: "even"},
				Args: []sfir.Expr{
					sfir.PrimitiveOperation{Op: sfir.OpSub, Lhs: sfir.Variable{Name: "n"}, Rhs: sfir.Primitive{Type: types.Primitive{Kind: types.Int64}, Value: int64(1)}},
				},
			},
		},
	}

	prog := sfir.Program{
		Defs: []sfir.Definition{
			{
				Name: "result",
				Body: sfir.LetRecursive{
					Defs: []sfir.RecDef{even, odd},
					Body: sfir.FunctionApplication{
						Fn:   sfir.Variable{Name: "even"},
						Args: []sfir.Expr{sfir.Primitive{Type: types.Primitive{Kind: types.Int64}, Value: int64(10)}},
					},
				},
				ResultType: boolT(),
				IsThunk:    true,
			},
		},
	}

	out, err := Compile(FromProgram(prog), config.Default())
	require.NoError(t, err)
	_, ok := out.FindFunctionDefinition("result_entry")
	assert.True(t, ok)
}

// Scenario 6: circular value initialization is rejected before any LL-IR is
// emitted.
func TestScenarioCircularValueInitializationRejected(t *testing.T) {
	prog := sfir.Program{
		Defs: []sfir.Definition{
			{Name: "x", Body: sfir.Variable{Name: "y"}, ResultType: i64T()},
			{Name: "y", Body: sfir.Variable{Name: "x"}, ResultType: i64T()},
		},
	}

	out, err := Compile(FromProgram(prog), config.Default())
	require.Error(t, err)
	assert.Nil(t, out)

	derr, ok := err.(*diag.Error)
	require.True(t, ok, "expected a *diag.Error, got %T", err)
	assert.Equal(t, diag.KindCircularInitialization, derr.Kind)
}
