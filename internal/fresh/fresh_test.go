package fresh

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNextIsMonotonic(t *testing.T) {
	s := NewSource("x")
	a := s.Next()
	b := s.Next()
	assert.NotEqual(t, a, b)
	assert.Equal(t, "x1", a)
	assert.Equal(t, "x2", b)
}

func TestNextThreadSafeUnderConcurrentCallers(t *testing.T) {
	s := NewSource("x")
	const n = 2000
	names := make([]string, n)

	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			names[i] = s.Next()
		}(i)
	}
	wg.Wait()

	seen := make(map[string]bool, n)
	for _, name := range names {
		assert.False(t, seen[name], "duplicate fresh name %q", name)
		seen[name] = true
	}
	assert.Len(t, seen, n)
}

func TestDefaultPrefix(t *testing.T) {
	s := NewSource("")
	assert.Equal(t, "x1", s.Next())
}
