package semaphore

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/atomic"

	"github.com/armadaproject/jobbuffer/internal/common/armadaerrors"
)

func TestNewSyncTriple_InitialValues(t *testing.T) {
	triple, err := NewSyncTriple(4)
	require.NoError(t, err)

	assert.Equal(t, Counts{Items: 0, Slots: 4, Mutex: 1}, triple.Snapshot())
	assert.Equal(t, 4, triple.Capacity())
	assert.Equal(t, int64(4), triple.Semaphore(Items).Limit())
	assert.Equal(t, int64(4), triple.Semaphore(Slots).Limit())
	assert.Equal(t, int64(1), triple.Semaphore(Mutex).Limit())
	assert.Nil(t, triple.Semaphore("bogus"))
}

func TestNewSyncTriple_InvalidCapacity(t *testing.T) {
	for _, capacity := range []int{0, -3} {
		triple, err := NewSyncTriple(capacity)
		assert.Nil(t, triple)
		require.Error(t, err)

		var resourceErr *armadaerrors.ErrResourceCreation
		assert.True(t, errors.As(err, &resourceErr))
		assert.Equal(t, armadaerrors.ExitCodeResourceCreation, armadaerrors.ExitCodeFromError(err))
	}
}

func TestSyncTriple_WaitAndSignalByName(t *testing.T) {
	triple, err := NewSyncTriple(2)
	require.NoError(t, err)
	ctx := context.Background()

	require.NoError(t, triple.Wait(ctx, Slots))
	require.NoError(t, triple.Wait(ctx, Mutex))
	triple.Signal(Mutex)
	triple.Signal(Items)
	assert.Equal(t, Counts{Items: 1, Slots: 1, Mutex: 1}, triple.Snapshot())

	acquired, err := triple.TimedWait(ctx, Items, time.Second)
	require.NoError(t, err)
	assert.True(t, acquired)
	assert.Equal(t, Counts{Items: 0, Slots: 1, Mutex: 1}, triple.Snapshot())

	assert.Error(t, triple.Wait(ctx, "bogus"))
	_, err = triple.TimedWait(ctx, "bogus", time.Millisecond)
	assert.Error(t, err)
	assert.Panics(t, func() { triple.Signal("bogus") })
}

func TestSyncTriple_TimedWaitOnEmptyItems(t *testing.T) {
	triple, err := NewSyncTriple(1)
	require.NoError(t, err)

	acquired, err := triple.TimedWait(context.Background(), Items, 30*time.Millisecond)
	require.NoError(t, err)
	assert.False(t, acquired)
	assert.Equal(t, Counts{Items: 0, Slots: 1, Mutex: 1}, triple.Snapshot())
}

func TestSyncTriple_LockIsIdempotent(t *testing.T) {
	triple, err := NewSyncTriple(1)
	require.NoError(t, err)

	unlock, err := triple.Lock(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(0), triple.Snapshot().Mutex)

	unlock()
	unlock()
	assert.Equal(t, int64(1), triple.Snapshot().Mutex)
}

func TestSyncTriple_LockCancelled(t *testing.T) {
	triple, err := NewSyncTriple(1)
	require.NoError(t, err)

	unlock, err := triple.Lock(context.Background())
	require.NoError(t, err)
	defer unlock()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err = triple.Lock(ctx)
	assert.True(t, errors.Is(err, context.DeadlineExceeded))
}

func TestSyncTriple_WithMutexReleasesOnPanic(t *testing.T) {
	triple, err := NewSyncTriple(1)
	require.NoError(t, err)

	assert.Panics(t, func() {
		_ = triple.WithMutex(context.Background(), func() { panic("boom") })
	})
	assert.Equal(t, int64(1), triple.Snapshot().Mutex)
}

func TestSyncTriple_WithMutexExcludes(t *testing.T) {
	triple, err := NewSyncTriple(1)
	require.NoError(t, err)

	inside := atomic.NewInt32(0)
	overlaps := atomic.NewInt32(0)
	wg := sync.WaitGroup{}
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				err := triple.WithMutex(context.Background(), func() {
					if inside.Inc() > 1 {
						overlaps.Inc()
					}
					inside.Dec()
				})
				assert.NoError(t, err)
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, int32(0), overlaps.Load())
	assert.Equal(t, int64(1), triple.Snapshot().Mutex)
}

func TestSyncTriple_SnapshotHoldsCapacityInvariant(t *testing.T) {
	const capacity = 3
	triple, err := NewSyncTriple(capacity)
	require.NoError(t, err)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	wg := sync.WaitGroup{}
	wg.Add(2)
	go func() {
		defer wg.Done()
		for i := 0; i < 200; i++ {
			if !assert.NoError(t, triple.Wait(ctx, Slots)) {
				return
			}
			triple.Signal(Items)
		}
	}()
	go func() {
		defer wg.Done()
		for i := 0; i < 200; i++ {
			if !assert.NoError(t, triple.Wait(ctx, Items)) {
				return
			}
			triple.Signal(Slots)
		}
	}()

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()
	for {
		counts := triple.Snapshot()
		assert.GreaterOrEqual(t, counts.Items, int64(0))
		assert.GreaterOrEqual(t, counts.Slots, int64(0))
		assert.LessOrEqual(t, counts.Items+counts.Slots, int64(capacity))
		select {
		case <-done:
			assert.Equal(t, Counts{Items: 0, Slots: capacity, Mutex: 1}, triple.Snapshot())
			return
		default:
		}
	}
}

func TestSyncTriple_Close(t *testing.T) {
	triple, err := NewSyncTriple(1)
	require.NoError(t, err)

	require.NoError(t, triple.Close())
	assert.True(t, errors.Is(triple.Wait(context.Background(), Mutex), ErrClosed))

	err = triple.Close()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "closing semaphore items")
	assert.Contains(t, err.Error(), "closing semaphore mutex")
}

func TestCounts_String(t *testing.T) {
	assert.Equal(t, "items=1 slots=2 mutex=0", Counts{Items: 1, Slots: 2, Mutex: 0}.String())
}
