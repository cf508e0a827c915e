package worker

import (
	"go.uber.org/atomic"

	"github.com/armadaproject/jobbuffer/internal/common/armadacontext"
	"github.com/armadaproject/jobbuffer/internal/jobbuffer/events"
	"github.com/armadaproject/jobbuffer/internal/jobbuffer/queue"
	"github.com/armadaproject/jobbuffer/internal/jobbuffer/semaphore"
)

// Producer generates jobs and deposits them in the buffer until it has deposited quota jobs or has waited longer
// than the idle timeout for a free slot.
type Producer struct {
	id     int
	quota  int
	shared Shared
	state  *atomic.Int32
}

func NewProducer(id, quota int, shared Shared) *Producer {
	return &Producer{
		id:     id,
		quota:  quota,
		shared: shared,
		state:  atomic.NewInt32(int32(Generating)),
	}
}

func (p *Producer) Id() int {
	return p.id
}

func (p *Producer) State() ProducerState {
	return ProducerState(p.state.Load())
}

func (p *Producer) setState(ctx *armadacontext.Context, s ProducerState) {
	p.state.Store(int32(s))
	ctx.Log.Tracef("producer state %s", s)
}

// Run executes the producer loop. Timing out and reaching the quota are both normal terminations and return nil.
// An error is only returned if ctx is cancelled or the semaphore set is closed underneath the producer.
func (p *Producer) Run(ctx *armadacontext.Context) error {
	ctx = armadacontext.WithLogField(ctx, "producer", p.id)
	for deposited := 0; deposited < p.quota; deposited++ {
		if err := p.produce(ctx); err != nil {
			p.setState(ctx, ProducerCancelled)
			ctx.Log.WithError(err).Warnf("producer stopped after depositing %d jobs", deposited)
			return err
		}
		if p.State() == TimedOut {
			p.shared.record(events.ProducerTimedOut, p.id, queue.Job{})
			return nil
		}
	}
	p.setState(ctx, QuotaExhausted)
	p.shared.record(events.ProducerExhaustedQuota, p.id, queue.Job{})
	return nil
}

// produce runs one pass of the loop. On timeout it leaves the producer in the TimedOut state and returns nil.
func (p *Producer) produce(ctx *armadacontext.Context) error {
	s := p.shared

	p.setState(ctx, Generating)
	job := queue.Job{Duration: s.Generator.JobDuration(), Producer: p.id}
	s.record(events.JobGenerated, p.id, job)

	p.setState(ctx, Delaying)
	if err := s.sleep(ctx, s.Generator.ProductionDelay()); err != nil {
		return err
	}

	p.setState(ctx, AcquiringSlot)
	acquired, err := s.Triple.TimedWait(ctx, semaphore.Slots, s.IdleTimeout)
	if err != nil {
		return err
	}
	if !acquired {
		p.setState(ctx, TimedOut)
		return nil
	}

	p.setState(ctx, Depositing)
	err = s.Triple.WithMutex(ctx, func() {
		job = s.Queue.NextJob(job)
		s.Queue.Deposit(job)
	})
	if err != nil {
		// Nothing was deposited, hand the reserved slot back.
		s.Triple.Signal(semaphore.Slots)
		return err
	}
	s.Triple.Signal(semaphore.Items)
	s.record(events.JobDeposited, p.id, job)
	return nil
}
