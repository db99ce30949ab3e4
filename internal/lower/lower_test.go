package lower

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sfir-lang/sfirc/internal/config"
	"github.com/sfir-lang/sfirc/internal/llir"
	"github.com/sfir-lang/sfirc/internal/sfir"
	"github.com/sfir-lang/sfirc/internal/types"
)

func int64Type() types.Type { return types.Primitive{Kind: types.Int64} }

func TestLowerIdentityFunction(t *testing.T) {
	m := &sfir.Module{
		Defs: []sfir.Definition{
			{
				Name:       "id",
				Args:       []sfir.Argument{{Name: "x", Type: int64Type()}},
				Body:       sfir.Variable{Name: "x"},
				ResultType: int64Type(),
			},
		},
		InitOrder: []string{"id"},
	}

	out, err := Lower(m, config.Default())
	require.NoError(t, err)

	entry, ok := out.FindFunctionDefinition("id_entry")
	require.True(t, ok, "expected an id_entry function definition")
	assert.Len(t, entry.Args, 2, "env_ptr plus one formal argument")
	assert.Equal(t, "env_ptr", entry.Args[0].Name)
	assert.Equal(t, "x", entry.Args[1].Name)
	assert.Equal(t, llir.Return{Expr: llir.Variable{Name: "x", Type: llir.Primitive{Kind: llir.Int64}}}, entry.Instructions[len(entry.Instructions)-1])

	require.Len(t, out.VarDefs, 1)
	closure := out.VarDefs[0]
	assert.Equal(t, "id", closure.Name)
	assert.True(t, closure.Constant, "a plain function closure never gets overwritten after construction")

	rec, ok := closure.Body.(llir.RecordValue)
	require.True(t, ok)
	require.Len(t, rec.Fields, 3)
	entryRef, ok := rec.Fields[0].(llir.Variable)
	require.True(t, ok)
	assert.Equal(t, "id_entry", entryRef.Name)
	arity, ok := rec.Fields[1].(llir.PrimitiveValue)
	require.True(t, ok)
	assert.Equal(t, int64(1), arity.Value)
}

func TestLowerUnderApplicationBuildsAdapter(t *testing.T) {
	m := &sfir.Module{
		Defs: []sfir.Definition{
			{
				Name: "add",
				Args: []sfir.Argument{{Name: "x", Type: int64Type()}, {Name: "y", Type: int64Type()}},
				Body: sfir.PrimitiveOperation{Op: sfir.OpAdd, Lhs: sfir.Variable{Name: "x"}, Rhs: sfir.Variable{Name: "y"}},
				ResultType: int64Type(),
			},
			{
				Name: "addOne",
				Args: []sfir.Argument{},
				Env:  []sfir.Argument{{Name: "add", Type: types.Function{Args: []types.Type{int64Type(), int64Type()}, Result: int64Type()}}},
				Body: sfir.FunctionApplication{
					Fn:   sfir.Variable{Name: "add"},
					Args: []sfir.Expr{sfir.Primitive{Type: types.Primitive{Kind: types.Int64}, Value: int64(1)}},
				},
				ResultType: types.Function{Args: []types.Type{int64Type()}, Result: int64Type()},
				IsThunk:    true,
			},
		},
		InitOrder: []string{"add", "addOne"},
	}

	out, err := Lower(m, config.Default())
	require.NoError(t, err)

	var adapterCount int
	for _, fd := range out.FnDefs {
		if len(fd.Name) > len("_partial") && fd.Name[len(fd.Name)-len("_partial"):] == "_partial" {
			adapterCount++
		}
	}
	assert.Equal(t, 1, adapterCount, "under-application synthesizes exactly one adapter for this call site")
}

func TestLowerThunkEmitsThreeEntries(t *testing.T) {
	m := &sfir.Module{
		Defs: []sfir.Definition{
			{
				Name:       "five",
				Body:       sfir.Primitive{Type: types.Primitive{Kind: types.Int64}, Value: int64(5)},
				ResultType: int64Type(),
				IsThunk:    true,
			},
		},
		InitOrder: []string{"five"},
	}

	out, err := Lower(m, config.Default())
	require.NoError(t, err)

	_, ok := out.FindFunctionDefinition("five_entry")
	assert.True(t, ok)
	_, ok = out.FindFunctionDefinition("five_entry_normal")
	assert.True(t, ok)
	_, ok = out.FindFunctionDefinition("five_entry_locked")
	assert.True(t, ok)

	require.Len(t, out.VarDefs, 1)
	assert.False(t, out.VarDefs[0].Constant, "a thunk's payload slot is overwritten in place on first evaluation")
}

func TestLowerBoxedConstantValueRejected(t *testing.T) {
	nilCtor := types.Constructor{Elements: nil}
	consCtor := types.Constructor{Elements: []types.Type{int64Type(), types.Index{I: 0}}, Boxed: true}
	list := types.NewAlgebraic(nilCtor, consCtor)

	m := &sfir.Module{
		Defs: []sfir.Definition{
			{
				Name: "oneElement",
				Body: sfir.ConstructorApplication{
					Algebraic: list,
					Tag:       1,
					Args: []sfir.Expr{
						sfir.Primitive{Type: types.Primitive{Kind: types.Int64}, Value: int64(1)},
						sfir.Primitive{Type: types.Primitive{Kind: types.Int64}, Value: int64(0)},
					},
				},
				ResultType: list,
			},
		},
		InitOrder: []string{"oneElement"},
	}

	_, err := Lower(m, config.Default())
	require.Error(t, err, "a constant initializer cannot emit the heap allocation a boxed constructor needs")
}

func TestLowerNilConstantValueOmitsPayloadField(t *testing.T) {
	nilCtor := types.Constructor{Elements: nil}
	oneCtor := types.Constructor{Elements: []types.Type{int64Type()}}
	opt := types.NewAlgebraic(nilCtor, oneCtor)

	m := &sfir.Module{
		Defs: []sfir.Definition{
			{
				Name:       "none",
				Body:       sfir.ConstructorApplication{Algebraic: opt, Tag: 0},
				ResultType: opt,
			},
		},
		InitOrder: []string{"none"},
	}

	out, err := Lower(m, config.Default())
	require.NoError(t, err)
	require.Len(t, out.VarDefs, 1)
	rec, ok := out.VarDefs[0].Body.(llir.RecordValue)
	require.True(t, ok)
	// Tag field only: the zero-element constructor contributes no payload
	// field even though its sibling constructor carries a payload.
	assert.Len(t, rec.Fields, 1)
}

func TestLowerForeignDeclarationBuildsAdapterAndDeclaration(t *testing.T) {
	m := &sfir.Module{
		ForeignDecls: []sfir.ForeignDeclaration{
			{
				Name:              "sqrt",
				ForeignName:       "c_sqrt",
				Type:              types.Function{Args: []types.Type{types.Primitive{Kind: types.Float64}}, Result: types.Primitive{Kind: types.Float64}},
				CallingConvention: sfir.CCTarget,
			},
		},
	}

	out, err := Lower(m, config.Default())
	require.NoError(t, err)

	require.Len(t, out.FnDecls, 1)
	assert.Equal(t, "c_sqrt", out.FnDecls[0].Name)
	assert.True(t, out.FnDecls[0].TargetCallingConv)

	_, ok := out.FindFunctionDefinition("sqrt_entry")
	assert.True(t, ok, "a foreign declaration gets its own internal adapter entry")

	require.Len(t, out.VarDefs, 1)
	assert.Equal(t, "sqrt", out.VarDefs[0].Name)
}
