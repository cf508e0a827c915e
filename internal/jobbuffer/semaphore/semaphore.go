// Package semaphore provides the counting semaphores that coordinate access to the job buffer.
package semaphore

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/atomic"
	"golang.org/x/sync/semaphore"
)

// ErrClosed is returned by operations on a semaphore that has been closed.
var ErrClosed = errors.New("semaphore has been closed")

// Semaphore is a counting semaphore whose value lies in [0, limit]. Waiters are blocked while the value is zero.
// The value is tracked alongside the underlying weighted semaphore so that it can be observed.
type Semaphore struct {
	name     string
	limit    int64
	weighted *semaphore.Weighted
	value    *atomic.Int64
	closed   *atomic.Bool
	// Value updates hold gate for reading, observers hold it for writing. Sharing one gate between several
	// semaphores lets an observer read all of their values as a single consistent cut.
	gate *sync.RWMutex
}

// NewSemaphore creates a semaphore with the given upper limit and initial value.
func NewSemaphore(name string, limit, initial int64) (*Semaphore, error) {
	return newSemaphore(name, limit, initial, &sync.RWMutex{})
}

func newSemaphore(name string, limit, initial int64, gate *sync.RWMutex) (*Semaphore, error) {
	if limit <= 0 {
		return nil, errors.Errorf("semaphore %s: limit must be positive but was %d", name, limit)
	}
	if initial < 0 || initial > limit {
		return nil, errors.Errorf("semaphore %s: initial value %d is outside [0, %d]", name, initial, limit)
	}
	weighted := semaphore.NewWeighted(limit)
	// The weighted semaphore starts with limit units available; hold back the ones that are not.
	if held := limit - initial; held > 0 && !weighted.TryAcquire(held) {
		return nil, errors.Errorf("semaphore %s: failed to set initial value %d", name, initial)
	}
	return &Semaphore{
		name:     name,
		limit:    limit,
		weighted: weighted,
		value:    atomic.NewInt64(initial),
		closed:   atomic.NewBool(false),
		gate:     gate,
	}, nil
}

// Wait blocks until the value is positive and then decrements it. It never times out but returns early with the
// context's error if ctx is cancelled, in which case the value is left unchanged.
func (s *Semaphore) Wait(ctx context.Context) error {
	if s.closed.Load() {
		return errors.WithStack(ErrClosed)
	}
	if err := s.weighted.Acquire(ctx, 1); err != nil {
		return errors.WithStack(err)
	}
	s.add(-1)
	return nil
}

// TimedWait is Wait bounded by timeout. It returns true if the semaphore was acquired and false if the timeout
// expired first. On timeout the value is left unchanged and no error is returned: a timeout is an expected outcome.
// An error is only returned if the semaphore is closed or ctx itself is cancelled.
func (s *Semaphore) TimedWait(ctx context.Context, timeout time.Duration) (bool, error) {
	if s.closed.Load() {
		return false, errors.WithStack(ErrClosed)
	}
	timeoutCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	if err := s.weighted.Acquire(timeoutCtx, 1); err != nil {
		if ctx.Err() != nil {
			return false, errors.WithStack(ctx.Err())
		}
		return false, nil
	}
	s.add(-1)
	return true, nil
}

// Signal increments the value, waking one waiter if there is one. It never blocks.
// Signalling a semaphore whose value is already at its limit is a programming error and panics.
func (s *Semaphore) Signal() {
	if s.add(1) > s.limit {
		s.add(-1)
		panic(fmt.Sprintf("semaphore %s: signalled above its limit of %d", s.name, s.limit))
	}
	s.weighted.Release(1)
}

func (s *Semaphore) add(delta int64) int64 {
	s.gate.RLock()
	defer s.gate.RUnlock()
	return s.value.Add(delta)
}

// Value returns the current value.
func (s *Semaphore) Value() int64 {
	return s.value.Load()
}

func (s *Semaphore) Limit() int64 {
	return s.limit
}

func (s *Semaphore) Name() string {
	return s.name
}

// Close marks the semaphore as destroyed; subsequent Wait and TimedWait calls fail with ErrClosed.
// Close must only be called once nothing is waiting on the semaphore.
func (s *Semaphore) Close() error {
	if !s.closed.CompareAndSwap(false, true) {
		return errors.WithStack(ErrClosed)
	}
	return nil
}
