package types

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func intPrim() Type { return Primitive{Kind: Int64} }

func TestCanonicalizeIdempotent(t *testing.T) {
	list := NewAlgebraic(
		Constructor{Elements: nil, Boxed: false}, // Nil
		Constructor{Elements: []Type{intPrim(), Index{I: 0}}, Boxed: true}, // Cons(Int64, List)
	)

	once := Canonicalize(list)
	twice := Canonicalize(once)

	assert.True(t, Equal(once, twice), "canonicalize must be idempotent")
}

func TestCanonicalizeFoldsStructurallyEqualAncestor(t *testing.T) {
	// An Algebraic nested inside itself, written out by hand instead of via
	// Index, should fold down to an Index once canonicalized.
	inner := NewAlgebraic(Constructor{Elements: nil}, Constructor{Elements: []Type{intPrim(), Index{I: 0}}, Boxed: true})
	outer := NewAlgebraic(Constructor{Elements: nil}, Constructor{Elements: []Type{intPrim(), inner}, Boxed: true})

	canon := Canonicalize(outer)
	alg, ok := canon.(Algebraic)
	require.True(t, ok)

	consCtor := alg.Constructors[1]
	require.Len(t, consCtor.Elements, 2)
	_, isIndex := consCtor.Elements[1].(Index)
	assert.True(t, isIndex, "structurally identical nested algebraic should canonicalize to an Index")
}

func TestCanonicalizeDistributesOverFunctionAndConstructor(t *testing.T) {
	fn := Function{Args: []Type{intPrim(), intPrim()}, Result: intPrim()}
	canon := Canonicalize(fn).(Function)
	assert.Equal(t, Canonicalize(intPrim()), canon.Args[0])
	assert.Equal(t, Canonicalize(intPrim()), canon.Result)

	alg := Canonicalize(NewAlgebraic(Constructor{Elements: []Type{fn}})).(Algebraic)
	assert.Equal(t, canon, alg.Constructors[0].Elements[0])
}

func TestEqualAlphaEquivalentRecursiveTypes(t *testing.T) {
	one := NewAlgebraic(Constructor{Elements: []Type{Index{I: 0}}})
	other := NewAlgebraic(Constructor{Elements: []Type{
		NewAlgebraic(Constructor{Elements: []Type{Index{I: 0}}}),
	}})

	assert.True(t, Equal(one, other))
}

func TestEqualRejectsDifferentArity(t *testing.T) {
	one := NewAlgebraic(Constructor{Elements: []Type{intPrim()}})
	other := NewAlgebraic(Constructor{Elements: []Type{intPrim(), intPrim()}})
	assert.False(t, Equal(one, other))
}
