package game

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExecutorRunsJobsInArrivalOrder(t *testing.T) {
	e := NewExecutor(16)
	defer e.Stop()

	var mu sync.Mutex
	var got []int
	for i := 0; i < 100; i++ {
		i := i
		require.True(t, e.Post(func() {
			mu.Lock()
			got = append(got, i)
			mu.Unlock()
		}))
	}
	e.Flush()

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, got, 100)
	for i, v := range got {
		assert.Equal(t, i, v)
	}
}

func TestFlushWaitsForQueuedJobs(t *testing.T) {
	e := NewExecutor(4)
	defer e.Stop()

	var done atomic.Bool
	require.True(t, e.Post(func() {
		time.Sleep(50 * time.Millisecond)
		done.Store(true)
	}))
	e.Flush()
	assert.True(t, done.Load())
}

func TestPostAfterStopReturnsFalse(t *testing.T) {
	e := NewExecutor(4)
	e.Stop()
	assert.False(t, e.Post(func() {}))
}

func TestStopRunsJobsAlreadyAccepted(t *testing.T) {
	e := NewExecutor(32)

	var ran atomic.Int32
	for i := 0; i < 10; i++ {
		require.True(t, e.Post(func() { ran.Add(1) }))
	}
	e.Stop()

	assert.Eventually(t, func() bool { return ran.Load() == 10 },
		time.Second, 5*time.Millisecond)
}
