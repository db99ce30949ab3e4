// Package fresh provides the lowering pass's fresh-name source (C8): a
// process-wide monotonic counter producing names of shape "x<integer>".
//
// Grounded on ailang's internal/elaborate.Elaborator.freshVar (same
// "$tmp<n>"-style naming scheme, same "increment then format" shape), but
// spec.md §5 additionally requires this source to be thread-safe — so the
// per-struct `int` counter there is replaced with a sync/atomic counter the
// way ailang's own code never needed to (its elaborator runs single-module,
// single-goroutine).
package fresh

import (
	"sync/atomic"

	"golang.org/x/text/unicode/norm"
)

// Source is a thread-safe monotonic name generator. The zero value is ready
// to use, with the default prefix "x" and counter starting at 0 (first name
// is "x1" — every call returns a value strictly greater than all previous,
// per spec.md §4.8).
type Source struct {
	counter atomic.Uint64
	prefix  string
}

// NewSource creates a Source with the given prefix. The prefix is
// NFC-normalized (golang.org/x/text/unicode/norm), matching the
// normalization ailang's lexer applies to source identifiers
// (internal/lexer/normalize.go) — applied here to the one piece of
// host-supplied string input this package accepts.
func NewSource(prefix string) *Source {
	if prefix == "" {
		prefix = "x"
	}
	return &Source{prefix: norm.NFC.String(prefix)}
}

// Next returns a new name, strictly greater (by counter value) than every
// name returned before it, safe for concurrent callers sharing this Source.
func (s *Source) Next() string {
	n := s.counter.Add(1)
	prefix := s.prefix
	if prefix == "" {
		prefix = "x"
	}
	return formatName(prefix, n)
}

func formatName(prefix string, n uint64) string {
	// Avoid fmt.Sprintf in the hot path of what may be a very large
	// lowering pass; this is the same reasoning ailang's own freshVar
	// accepts paying for with fmt.Sprintf, but since n is always
	// non-negative here a small hand-written uitoa keeps allocation shape
	// simple and obvious.
	return prefix + uitoa(n)
}

func uitoa(n uint64) string {
	if n == 0 {
		return "0"
	}
	var buf [20]byte
	i := len(buf)
	for n > 0 {
		i--
		buf[i] = byte('0' + n%10)
		n /= 10
	}
	return string(buf[i:])
}
