package worker

import (
	"go.uber.org/atomic"

	"github.com/armadaproject/jobbuffer/internal/common/armadacontext"
	"github.com/armadaproject/jobbuffer/internal/jobbuffer/events"
	"github.com/armadaproject/jobbuffer/internal/jobbuffer/queue"
	"github.com/armadaproject/jobbuffer/internal/jobbuffer/semaphore"
)

// Consumer fetches jobs from the buffer and executes them until no job has arrived for the idle timeout.
// There is no end of stream marker: a consumer that has been idle for that long assumes production has ended.
type Consumer struct {
	id       int
	shared   Shared
	state    *atomic.Int32
	executed *atomic.Int64
}

func NewConsumer(id int, shared Shared) *Consumer {
	return &Consumer{
		id:       id,
		shared:   shared,
		state:    atomic.NewInt32(int32(AwaitingItem)),
		executed: atomic.NewInt64(0),
	}
}

func (c *Consumer) Id() int {
	return c.id
}

func (c *Consumer) State() ConsumerState {
	return ConsumerState(c.state.Load())
}

// Executed returns the number of jobs this consumer has run to completion.
func (c *Consumer) Executed() int64 {
	return c.executed.Load()
}

func (c *Consumer) setState(ctx *armadacontext.Context, s ConsumerState) {
	c.state.Store(int32(s))
	ctx.Log.Tracef("consumer state %s", s)
}

// Run executes the consumer loop. Idling out is the normal termination and returns nil.
// An error is only returned if ctx is cancelled or the semaphore set is closed underneath the consumer.
func (c *Consumer) Run(ctx *armadacontext.Context) error {
	ctx = armadacontext.WithLogField(ctx, "consumer", c.id)
	for {
		done, err := c.consume(ctx)
		if err != nil {
			c.setState(ctx, ConsumerCancelled)
			ctx.Log.WithError(err).Warnf("consumer stopped after executing %d jobs", c.Executed())
			return err
		}
		if done {
			c.shared.record(events.ConsumerIdledOut, c.id, queue.Job{})
			return nil
		}
	}
}

func (c *Consumer) consume(ctx *armadacontext.Context) (bool, error) {
	s := c.shared

	c.setState(ctx, AwaitingItem)
	acquired, err := s.Triple.TimedWait(ctx, semaphore.Items, s.IdleTimeout)
	if err != nil {
		return false, err
	}
	if !acquired {
		c.setState(ctx, Draining)
		return true, nil
	}

	c.setState(ctx, Dispatching)
	var job queue.Job
	err = s.Triple.WithMutex(ctx, func() {
		job = s.Queue.Fetch()
	})
	if err != nil {
		// Nothing was fetched, hand the reserved item back.
		s.Triple.Signal(semaphore.Items)
		return false, err
	}
	s.Triple.Signal(semaphore.Slots)
	s.record(events.ItemFetched, c.id, job)

	s.record(events.JobExecuting, c.id, job)
	if err := s.sleep(ctx, job.Duration); err != nil {
		return false, err
	}
	c.executed.Inc()
	s.record(events.JobCompleted, c.id, job)
	return false, nil
}
