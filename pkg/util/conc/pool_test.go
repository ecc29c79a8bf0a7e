package conc

import (
	"sync"
	"testing"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPool(t *testing.T) {
	pool := NewPool[int](4)
	defer pool.Release()

	var mu sync.Mutex
	seen := make(map[int]bool)
	futures := make([]*Future[int], 0, 8)
	for i := 0; i < 8; i++ {
		res := i
		futures = append(futures, pool.Submit(func() (int, error) {
			time.Sleep(10 * time.Millisecond)
			mu.Lock()
			seen[res] = true
			mu.Unlock()
			return res, nil
		}))
	}

	for i, future := range futures {
		require.NoError(t, future.Err())
		assert.True(t, future.Done())
		assert.Equal(t, i, future.value)
	}
	assert.Len(t, seen, 8)
}

func TestPoolError(t *testing.T) {
	pool := NewPool[int](2)
	defer pool.Release()

	boom := errors.New("boom")
	future := pool.Submit(func() (int, error) { return 0, boom })
	assert.ErrorIs(t, future.Err(), boom)
	assert.True(t, future.Done())
}

func TestPoolNonBlockingOverload(t *testing.T) {
	pool := NewPool[struct{}](1, WithNonBlocking(true))
	defer pool.Release()

	release := make(chan struct{})
	first := pool.Submit(func() (struct{}, error) {
		<-release
		return struct{}{}, nil
	})

	second := pool.Submit(func() (struct{}, error) { return struct{}{}, nil })
	assert.True(t, IsOverload(second.Err()))

	close(release)
	assert.NoError(t, first.Err())
}

func TestPoolConcealPanic(t *testing.T) {
	pool := NewPool[int](1, WithConcealPanic(true))
	defer pool.Release()

	future := pool.Submit(func() (int, error) { panic("oops") })
	assert.Error(t, future.Err())
}

func TestPoolPanicHandler(t *testing.T) {
	seen := make(chan any, 1)
	pool := NewPool[int](1, WithConcealPanic(true), WithPanicHandler(func(v any) { seen <- v }))
	defer pool.Release()

	future := pool.Submit(func() (int, error) { panic("boom") })
	assert.Error(t, future.Err())
	select {
	case v := <-seen:
		assert.Equal(t, "boom", v)
	case <-time.After(time.Second):
		t.Fatal("panic handler not called")
	}
}

func TestGo(t *testing.T) {
	release := make(chan struct{})
	future := Go(func() (string, error) {
		<-release
		return "done", nil
	})
	assert.False(t, future.Done())
	close(release)
	assert.NoError(t, future.Err())
	assert.Equal(t, "done", future.value)
}
