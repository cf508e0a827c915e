package worker

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/atomic"
	"k8s.io/utils/clock"

	"github.com/armadaproject/jobbuffer/internal/common/armadacontext"
	"github.com/armadaproject/jobbuffer/internal/jobbuffer/configuration"
	"github.com/armadaproject/jobbuffer/internal/jobbuffer/events"
	"github.com/armadaproject/jobbuffer/internal/jobbuffer/queue"
	"github.com/armadaproject/jobbuffer/internal/jobbuffer/semaphore"
)

const (
	testTimeUnit    = time.Millisecond
	testIdleTimeout = 100 * time.Millisecond
)

var noDelay = configuration.Range{Min: 0, Max: 0}

type fixture struct {
	shared    Shared
	queue     *queue.BoundedQueue
	triple    *semaphore.SyncTriple
	collector *events.Collector
}

func newFixture(t *testing.T, capacity int, jobDuration, productionDelay configuration.Range) *fixture {
	triple, err := semaphore.NewSyncTriple(capacity)
	require.NoError(t, err)
	q := queue.NewBoundedQueue(capacity)
	collector := events.NewCollector()
	return &fixture{
		shared: Shared{
			Triple:      triple,
			Queue:       q,
			Generator:   NewGenerator(1, jobDuration, productionDelay),
			Recorder:    collector,
			Clock:       clock.RealClock{},
			IdleTimeout: testIdleTimeout,
			TimeUnit:    testTimeUnit,
		},
		queue:     q,
		triple:    triple,
		collector: collector,
	}
}

// deposit puts jobs in the buffer the way a producer would.
func (f *fixture) deposit(t *testing.T, durations ...int) {
	ctx := armadacontext.Background()
	for _, d := range durations {
		require.NoError(t, f.triple.Wait(ctx, semaphore.Slots))
		require.NoError(t, f.triple.WithMutex(ctx, func() {
			f.queue.Deposit(f.queue.NextJob(queue.Job{Duration: d}))
		}))
		f.triple.Signal(semaphore.Items)
	}
}

// instrumentedQueue counts callers that are inside the queue at the same time.
type instrumentedQueue struct {
	JobQueue
	inside   *atomic.Int32
	overlaps *atomic.Int32
	hold     time.Duration
}

func newInstrumentedQueue(q JobQueue, hold time.Duration) *instrumentedQueue {
	return &instrumentedQueue{
		JobQueue: q,
		inside:   atomic.NewInt32(0),
		overlaps: atomic.NewInt32(0),
		hold:     hold,
	}
}

func (q *instrumentedQueue) enter() {
	if q.inside.Inc() > 1 {
		q.overlaps.Inc()
	}
	time.Sleep(q.hold)
}

func (q *instrumentedQueue) exit() {
	q.inside.Dec()
}

func (q *instrumentedQueue) NextJob(job queue.Job) queue.Job {
	q.enter()
	defer q.exit()
	return q.JobQueue.NextJob(job)
}

func (q *instrumentedQueue) Deposit(job queue.Job) {
	q.enter()
	defer q.exit()
	q.JobQueue.Deposit(job)
}

func (q *instrumentedQueue) Fetch() queue.Job {
	q.enter()
	defer q.exit()
	return q.JobQueue.Fetch()
}
