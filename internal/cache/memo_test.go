package cache

import (
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func newTestMemo(ttl time.Duration, capacity int) (*Memo[int], *fakeClock) {
	clock := &fakeClock{now: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
	m := NewMemo[int](ttl, capacity)
	m.now = clock.Now
	return m, clock
}

func TestMemo_ComputesOnceWithinTTL(t *testing.T) {
	m, clock := newTestMemo(time.Hour, 10)
	var calls int
	compute := func() (int, error) {
		calls++
		return 42, nil
	}

	v, err := m.GetOrCompute("claim", compute)
	require.NoError(t, err)
	assert.Equal(t, 42, v)

	clock.Advance(30 * time.Minute)
	v, err = m.GetOrCompute("claim", compute)
	require.NoError(t, err)
	assert.Equal(t, 42, v)
	assert.Equal(t, 1, calls)

	stats := m.Stats()
	assert.Equal(t, uint64(1), stats.Hits)
	assert.Equal(t, uint64(1), stats.Misses)
}

func TestMemo_RecomputesAfterTTL(t *testing.T) {
	m, clock := newTestMemo(time.Hour, 10)
	var calls int
	compute := func() (int, error) {
		calls++
		return calls, nil
	}

	_, _ = m.GetOrCompute("claim", compute)
	_, _ = m.GetOrCompute("claim", compute)
	clock.Advance(time.Hour)

	v, err := m.GetOrCompute("claim", compute)
	require.NoError(t, err)
	assert.Equal(t, 2, calls)
	assert.Equal(t, 2, v, "stale entry must be replaced")
	assert.Equal(t, 1, m.Len())
}

func TestMemo_ErrorsAreNotStored(t *testing.T) {
	m, _ := newTestMemo(time.Hour, 10)
	boom := errors.New("boom")
	var calls int

	_, err := m.GetOrCompute("k", func() (int, error) {
		calls++
		return 0, boom
	})
	assert.ErrorIs(t, err, boom)

	v, err := m.GetOrCompute("k", func() (int, error) {
		calls++
		return 7, nil
	})
	require.NoError(t, err)
	assert.Equal(t, 7, v)
	assert.Equal(t, 2, calls)
}

func TestMemo_LRUEviction(t *testing.T) {
	m, _ := newTestMemo(time.Hour, 2)

	m.Set("a", 1)
	m.Set("b", 2)
	_, ok := m.Get("a") // a becomes most recently used
	require.True(t, ok)

	m.Set("c", 3)

	_, ok = m.Get("b")
	assert.False(t, ok, "least recently used entry should be evicted")
	_, ok = m.Get("a")
	assert.True(t, ok)
	_, ok = m.Get("c")
	assert.True(t, ok)
	assert.Equal(t, uint64(1), m.Stats().Evictions)
}

func TestMemo_SetReplaces(t *testing.T) {
	m, _ := newTestMemo(time.Hour, 2)
	m.Set("a", 1)
	m.Set("a", 2)
	v, ok := m.Get("a")
	require.True(t, ok)
	assert.Equal(t, 2, v)
	assert.Equal(t, 1, m.Len())
}

func TestMemo_CoalescesConcurrentMisses(t *testing.T) {
	m := NewMemo[int](time.Hour, 10)
	var calls atomic.Int32
	release := make(chan struct{})

	compute := func() (int, error) {
		calls.Add(1)
		<-release
		return 1, nil
	}

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			v, err := m.GetOrCompute("same", compute)
			assert.NoError(t, err)
			assert.Equal(t, 1, v)
		}()
	}

	// Give goroutines a chance to join the in-flight call
	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()

	assert.Equal(t, int32(1), calls.Load())
}

func TestMemo_DeleteAndPurge(t *testing.T) {
	m, _ := newTestMemo(time.Hour, 0)
	m.Set("a", 1)
	m.Set("b", 2)

	m.Delete("a")
	_, ok := m.Get("a")
	assert.False(t, ok)

	m.Purge()
	assert.Equal(t, 0, m.Len())
}
