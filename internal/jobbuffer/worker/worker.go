// Package worker implements the producer and consumer loops that fill and drain the job buffer.
package worker

import (
	"time"

	"github.com/pkg/errors"
	"k8s.io/utils/clock"

	"github.com/armadaproject/jobbuffer/internal/common/armadacontext"
	"github.com/armadaproject/jobbuffer/internal/jobbuffer/events"
	"github.com/armadaproject/jobbuffer/internal/jobbuffer/queue"
	"github.com/armadaproject/jobbuffer/internal/jobbuffer/semaphore"
)

// JobQueue is the part of *queue.BoundedQueue used by workers. Every call is made while holding the buffer mutex.
type JobQueue interface {
	NextJob(job queue.Job) queue.Job
	Deposit(job queue.Job)
	Fetch() queue.Job
}

// Shared holds everything the workers of a run share. It is passed explicitly to every worker when it is created.
type Shared struct {
	Triple    *semaphore.SyncTriple
	Queue     JobQueue
	Generator *Generator
	Recorder  events.Recorder
	Clock     clock.Clock
	// How long to wait for a slot or an item before terminating
	IdleTimeout time.Duration
	// Length of one time unit
	TimeUnit time.Duration
}

func (s Shared) record(t events.Type, worker int, job queue.Job) {
	s.Recorder.Record(events.Event{
		Type:   t,
		Worker: worker,
		Job:    job,
		Time:   s.Clock.Now(),
	})
}

// sleep blocks for the given number of time units, returning early with an error if ctx is cancelled.
func (s Shared) sleep(ctx *armadacontext.Context, units int) error {
	if units <= 0 {
		return nil
	}
	select {
	case <-s.Clock.After(time.Duration(units) * s.TimeUnit):
		return nil
	case <-ctx.Done():
		return errors.WithStack(ctx.Err())
	}
}
