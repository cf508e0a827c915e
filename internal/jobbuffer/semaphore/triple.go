package semaphore

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/hashicorp/go-multierror"
	"github.com/pkg/errors"

	"github.com/armadaproject/jobbuffer/internal/common/armadaerrors"
)

// Name identifies one of the semaphores in a SyncTriple.
type Name string

const (
	// Items counts jobs that have been deposited but not yet reserved by a consumer.
	Items Name = "items"
	// Slots counts free buffer cells not yet reserved by a producer.
	Slots Name = "slots"
	// Mutex guards the buffer. It is only ever acquired with Wait and released with Signal.
	Mutex Name = "mutex"
)

// Counts is a consistent snapshot of the values of a SyncTriple.
type Counts struct {
	Items int64
	Slots int64
	Mutex int64
}

func (c Counts) String() string {
	return fmt.Sprintf("items=%d slots=%d mutex=%d", c.Items, c.Slots, c.Mutex)
}

// SyncTriple is the set of three semaphores that coordinates a bounded buffer of the given capacity.
// It starts with items=0, slots=capacity and mutex=1. The same *SyncTriple is handed to every worker.
type SyncTriple struct {
	capacity int
	items    *Semaphore
	slots    *Semaphore
	mutex    *Semaphore
	gate     *sync.RWMutex
}

// NewSyncTriple creates the semaphore set for a buffer of the given capacity. Any failure is returned as an
// *armadaerrors.ErrResourceCreation and nothing is left allocated.
func NewSyncTriple(capacity int) (*SyncTriple, error) {
	gate := &sync.RWMutex{}
	c := int64(capacity)
	items, err := newSemaphore(string(Items), c, 0, gate)
	if err != nil {
		return nil, resourceCreationError(string(Items), err)
	}
	slots, err := newSemaphore(string(Slots), c, c, gate)
	if err != nil {
		return nil, resourceCreationError(string(Slots), err)
	}
	mutex, err := newSemaphore(string(Mutex), 1, 1, gate)
	if err != nil {
		return nil, resourceCreationError(string(Mutex), err)
	}
	return &SyncTriple{
		capacity: capacity,
		items:    items,
		slots:    slots,
		mutex:    mutex,
		gate:     gate,
	}, nil
}

func resourceCreationError(name string, err error) error {
	return errors.WithStack(&armadaerrors.ErrResourceCreation{
		Resource: "semaphore set",
		Message:  fmt.Sprintf("semaphore %q could not be initialised", name),
		Err:      err,
	})
}

// Semaphore returns the semaphore with the given name, or nil if there is none.
func (t *SyncTriple) Semaphore(name Name) *Semaphore {
	switch name {
	case Items:
		return t.items
	case Slots:
		return t.slots
	case Mutex:
		return t.mutex
	default:
		return nil
	}
}

func (t *SyncTriple) get(name Name) (*Semaphore, error) {
	s := t.Semaphore(name)
	if s == nil {
		return nil, errors.Errorf("unknown semaphore %q", name)
	}
	return s, nil
}

// Wait decrements the named semaphore, blocking until that is possible or ctx is done.
func (t *SyncTriple) Wait(ctx context.Context, name Name) error {
	s, err := t.get(name)
	if err != nil {
		return err
	}
	return s.Wait(ctx)
}

// TimedWait decrements the named semaphore, giving up after timeout. See Semaphore.TimedWait.
func (t *SyncTriple) TimedWait(ctx context.Context, name Name, timeout time.Duration) (bool, error) {
	s, err := t.get(name)
	if err != nil {
		return false, err
	}
	return s.TimedWait(ctx, timeout)
}

// Signal increments the named semaphore. Unknown names panic.
func (t *SyncTriple) Signal(name Name) {
	s, err := t.get(name)
	if err != nil {
		panic(err)
	}
	s.Signal()
}

// Lock acquires the mutex and returns the function that releases it. The release function is idempotent so it
// can be both deferred and called explicitly.
func (t *SyncTriple) Lock(ctx context.Context) (func(), error) {
	if err := t.mutex.Wait(ctx); err != nil {
		return nil, err
	}
	once := sync.Once{}
	return func() { once.Do(t.mutex.Signal) }, nil
}

// WithMutex runs f while holding the mutex. The mutex is released on every exit path, including a panic in f.
func (t *SyncTriple) WithMutex(ctx context.Context, f func()) error {
	unlock, err := t.Lock(ctx)
	if err != nil {
		return err
	}
	defer unlock()
	f()
	return nil
}

// Snapshot returns the values of all three semaphores as of a single instant.
func (t *SyncTriple) Snapshot() Counts {
	t.gate.Lock()
	defer t.gate.Unlock()
	return Counts{
		Items: t.items.Value(),
		Slots: t.slots.Value(),
		Mutex: t.mutex.Value(),
	}
}

func (t *SyncTriple) Capacity() int {
	return t.capacity
}

// Close destroys the semaphore set. It must only be called once every worker using the set has exited.
func (t *SyncTriple) Close() error {
	var result *multierror.Error
	for _, s := range []*Semaphore{t.items, t.slots, t.mutex} {
		if err := s.Close(); err != nil {
			result = multierror.Append(result, errors.Wrapf(err, "closing semaphore %s", s.Name()))
		}
	}
	return result.ErrorOrNil()
}
