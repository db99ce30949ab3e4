package sfir

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/sfir-lang/sfirc/internal/types"
)

func TestFreeVariablesVariable(t *testing.T) {
	free := FreeVariables(Variable{Name: "x"})
	assert.Contains(t, free, "x")
	assert.Len(t, free, 1)
}

func TestFreeVariablesLetBindsName(t *testing.T) {
	expr := Let{
		Name:  "x",
		Bound: Primitive{Type: types.Primitive{Kind: types.Int64}, Value: int64(1)},
		Body:  FunctionApplication{Fn: Variable{Name: "f"}, Args: []Expr{Variable{Name: "x"}}},
	}
	free := FreeVariables(expr)
	assert.Contains(t, free, "f")
	assert.NotContains(t, free, "x")
}

func TestFreeVariablesCaseBindsElementNames(t *testing.T) {
	expr := Case{
		Scrutinee:   Variable{Name: "lst"},
		IsAlgebraic: true,
		AlgebraicAlts: []AlgebraicAlternative{
			{Tag: 1, Elements: []string{"head", "tail"}, Body: FunctionApplication{
				Fn:   Variable{Name: "f"},
				Args: []Expr{Variable{Name: "head"}, Variable{Name: "tail"}, Variable{Name: "acc"}},
			}},
		},
	}
	free := FreeVariables(expr)
	assert.Contains(t, free, "lst")
	assert.Contains(t, free, "f")
	assert.Contains(t, free, "acc")
	assert.NotContains(t, free, "head")
	assert.NotContains(t, free, "tail")
}

func TestFreeVariablesIdempotent(t *testing.T) {
	// Running inference a second time over the same expression yields the
	// same set.
	expr := FunctionApplication{Fn: Variable{Name: "f"}, Args: []Expr{Variable{Name: "g"}}}
	once := FreeVariables(expr)
	twice := FreeVariables(expr)
	assert.Equal(t, once, twice)
}

func TestFreeVariablesLetRecursiveExcludesMutualNames(t *testing.T) {
	expr := LetRecursive{
		Defs: []RecDef{
			{Name: "even", Args: []Argument{{Name: "n"}}, Body: FunctionApplication{Fn: Variable{Name: "odd"}, Args: []Expr{Variable{Name: "n"}}}},
			{Name: "odd", Args: []Argument{{Name: "n"}}, Body: FunctionApplication{Fn: Variable{Name: "even"}, Args: []Expr{Variable{Name: "n"}}}},
		},
		Body: FunctionApplication{Fn: Variable{Name: "even"}, Args: []Expr{Variable{Name: "z"}}},
	}
	free := FreeVariables(expr)
	assert.NotContains(t, free, "even")
	assert.NotContains(t, free, "odd")
	assert.Contains(t, free, "z")
}

func TestEnvironmentExcludesGlobalsAndArgs(t *testing.T) {
	def := &Definition{
		Name: "f",
		Args: []Argument{{Name: "x"}},
		Body: FunctionApplication{Fn: Variable{Name: "g"}, Args: []Expr{Variable{Name: "x"}, Variable{Name: "cap"}}},
	}
	globals := map[string]struct{}{"g": {}}
	env := Environment(def, globals)

	names := make([]string, len(env))
	for i, a := range env {
		names[i] = a.Name
	}
	assert.Equal(t, []string{"cap"}, names)
}
