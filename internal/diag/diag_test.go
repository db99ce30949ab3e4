package diag

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestErrorRendersKindAndSubject(t *testing.T) {
	err := VariableNotFound("foo")
	assert.Contains(t, err.Error(), "VariableNotFound")
	assert.Contains(t, err.Error(), "foo")
}

func TestIsTypeError(t *testing.T) {
	assert.True(t, IsTypeError(VariableNotFound("x")))
	assert.False(t, IsTypeError(CircularInitialization([]string{"x", "y", "x"})))
}

func TestReporterRenderNoColor(t *testing.T) {
	r := NewReporter(false)
	out := r.Render(CircularInitialization([]string{"x", "y", "x"}))
	assert.Contains(t, out, "x -> y -> x")
	assert.Contains(t, out, "Circular value initialization")
}

func TestRegistryCoversEveryKind(t *testing.T) {
	kinds := []Kind{
		KindTypesNotMatched, KindFunctionExpected, KindVariableNotFound,
		KindWrongArgumentsLength, KindNoAlternativeFound,
		KindForeignDefinitionNotFound, KindCircularInitialization, KindBuildFailure,
	}
	for _, k := range kinds {
		_, ok := Registry[k]
		assert.True(t, ok, "missing registry entry for %s", k)
	}
}
