package lower

import (
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
)

// thunkState mirrors the three-entry protocol buildThunkFirstEntry /
// buildThunkNormalEntry / buildThunkLockedEntry compile into LL-IR: an
// atomic "entry" slot starting at "first", swung to "locked" by whichever
// caller wins the CompareAndSwap, then to "normal" once that winner has
// written the result. Every other concurrent caller either spins on
// "locked" or, once the winner finishes, reads the result straight off.
// This simulates the protocol in plain Go to check the property the lowered
// state machine is built to guarantee: exactly one evaluation of the body,
// regardless of how many goroutines call Force concurrently.
type thunkState struct {
	entry  atomic.Int32
	result atomic.Int64
}

const (
	stateFirst int32 = iota
	stateLocked
	stateNormal
)

func (th *thunkState) Force(evaluate func() int64) int64 {
	for {
		switch th.entry.Load() {
		case stateNormal:
			return th.result.Load()
		case stateLocked:
			continue
		default:
			if th.entry.CompareAndSwap(stateFirst, stateLocked) {
				v := evaluate()
				th.result.Store(v)
				th.entry.Store(stateNormal)
				return v
			}
		}
	}
}

func TestThunkProtocolEvaluatesBodyExactlyOnce(t *testing.T) {
	var calls atomic.Int64
	th := &thunkState{}

	const n = 500
	results := make([]int64, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i] = th.Force(func() int64 {
				calls.Add(1)
				return 42
			})
		}(i)
	}
	wg.Wait()

	assert.Equal(t, int64(1), calls.Load(), "the body must run exactly once no matter how many goroutines race to force it")
	for _, r := range results {
		assert.Equal(t, int64(42), r, "every caller observes the same memoized result")
	}
}

func TestThunkProtocolLoserObservesWinnersResult(t *testing.T) {
	th := &thunkState{}
	release := make(chan struct{})
	winnerStarted := make(chan struct{})

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		th.Force(func() int64 {
			close(winnerStarted)
			<-release
			return 7
		})
	}()

	<-winnerStarted
	assert.Equal(t, stateLocked, th.entry.Load(), "every concurrent caller observes the locked entry while evaluation is in flight")

	close(release)
	wg.Wait()
	assert.Equal(t, stateNormal, th.entry.Load())
	assert.Equal(t, int64(7), th.Force(func() int64 {
		t.Fatal("body must not run again once normal entry is installed")
		return 0
	}))
}
