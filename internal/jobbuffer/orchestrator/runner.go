package orchestrator

import (
	"time"

	"github.com/google/uuid"
	"github.com/hashicorp/go-multierror"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"
	"k8s.io/utils/clock"

	"github.com/armadaproject/jobbuffer/internal/common/armadacontext"
	"github.com/armadaproject/jobbuffer/internal/common/armadaerrors"
	commonconfig "github.com/armadaproject/jobbuffer/internal/common/config"
	"github.com/armadaproject/jobbuffer/internal/common/task"
	"github.com/armadaproject/jobbuffer/internal/jobbuffer/configuration"
	"github.com/armadaproject/jobbuffer/internal/jobbuffer/events"
	"github.com/armadaproject/jobbuffer/internal/jobbuffer/metrics"
	"github.com/armadaproject/jobbuffer/internal/jobbuffer/queue"
	"github.com/armadaproject/jobbuffer/internal/jobbuffer/semaphore"
	"github.com/armadaproject/jobbuffer/internal/jobbuffer/worker"
)

const taskShutdownTimeout = 5 * time.Second

// Observer is called with a snapshot of the semaphore values and the queue length every stats interval.
type Observer func(counts semaphore.Counts, queueLength int)

// Runner orchestrates a single run: it creates the buffer and its semaphores, runs the producers and consumers to
// completion and tears everything down again.
type Runner struct {
	config     configuration.Configuration
	registerer prometheus.Registerer
	recorder   events.Recorder
	observer   Observer
	clock      clock.WithTicker
}

func NewRunner(config configuration.Configuration) *Runner {
	return &Runner{
		config:     config,
		registerer: prometheus.DefaultRegisterer,
		clock:      clock.RealClock{},
	}
}

// WithRegisterer sets the registry the run's metrics are registered with.
func (r *Runner) WithRegisterer(registerer prometheus.Registerer) *Runner {
	r.registerer = registerer
	return r
}

// WithRecorder adds a recorder that receives every event of the run in addition to the built-in ones.
func (r *Runner) WithRecorder(recorder events.Recorder) *Runner {
	r.recorder = recorder
	return r
}

func (r *Runner) WithObserver(observer Observer) *Runner {
	r.observer = observer
	return r
}

func (r *Runner) WithClock(c clock.WithTicker) *Runner {
	r.clock = c
	return r
}

// Run executes the run, returning once every worker has terminated.
//
// It performs the following steps:
//  1. Validates the configuration
//  2. Creates the semaphore set; a failure here aborts the run before any worker is started
//  3. Creates the queue and starts the producers and consumers
//  4. Waits for all workers to terminate, either by reaching their quota or by timing out
//  5. Destroys the semaphore set and releases the queue
//
// Workers only return an error if ctx is cancelled, in which case the remaining workers are cancelled too.
// The summary is returned whenever workers were started, even if the run was cancelled.
func (r *Runner) Run(ctx *armadacontext.Context) (*Summary, error) {
	if err := r.config.Validate(); err != nil {
		commonconfig.LogValidationErrors(ctx.Log, err)
		return nil, errors.WithStack(&armadaerrors.ErrInvalidArgument{
			Name:    "configuration",
			Value:   r.config.Workload,
			Message: err.Error(),
		})
	}
	runId := uuid.New().String()
	ctx = armadacontext.WithLogField(ctx, "runId", runId)
	ctx.Log.Infof(
		"Starting run: buffer size %d, %d jobs per producer, %d producers, %d consumers",
		r.config.BufferSize, r.config.JobsPerProducer, r.config.NumberOfProducers, r.config.NumberOfConsumers,
	)

	triple, err := semaphore.NewSyncTriple(r.config.BufferSize)
	if err != nil {
		return nil, err
	}
	m, err := metrics.New(r.registerer)
	if err != nil {
		return nil, multierror.Append(
			errors.WithStack(&armadaerrors.ErrResourceCreation{Resource: "metrics", Err: err}),
			triple.Close(),
		).ErrorOrNil()
	}
	q := queue.NewBoundedQueue(r.config.BufferSize)

	collector := events.NewCollector()
	recorders := events.MultiRecorder{events.NewLogRecorder(ctx.Log), collector, m}
	if r.recorder != nil {
		recorders = append(recorders, r.recorder)
	}
	shared := worker.Shared{
		Triple:      triple,
		Queue:       q,
		Generator:   worker.NewGenerator(r.config.RandomSeed, r.config.JobDuration, r.config.ProductionDelay),
		Recorder:    recorders,
		Clock:       r.clock,
		IdleTimeout: r.config.IdleTimeout,
		TimeUnit:    r.config.TimeUnit,
	}

	taskManager := task.NewBackgroundTaskManager(metrics.Prefix, r.registerer).WithClock(r.clock)
	if r.config.StatsInterval > 0 {
		taskManager.Register(func() { r.sample(ctx, triple, q, m, collector) }, r.config.StatsInterval, "stats")
	}

	start := r.clock.Now()
	m.SetActiveWorkers(r.config.NumberOfProducers, r.config.NumberOfConsumers)
	g, groupCtx := armadacontext.ErrGroup(ctx)
	for i := 1; i <= r.config.NumberOfProducers; i++ {
		p := worker.NewProducer(i, r.config.JobsPerProducer, shared)
		g.Go(func() error {
			defer m.WorkerExited(metrics.ProducerKind)
			return p.Run(groupCtx)
		})
	}
	for i := 1; i <= r.config.NumberOfConsumers; i++ {
		c := worker.NewConsumer(i, shared)
		g.Go(func() error {
			defer m.WorkerExited(metrics.ConsumerKind)
			return c.Run(groupCtx)
		})
	}
	runErr := g.Wait()
	elapsed := r.clock.Since(start)

	var result *multierror.Error
	if runErr != nil {
		result = multierror.Append(result, errors.WithMessage(runErr, "run did not complete"))
	}
	if taskManager.StopAll(taskShutdownTimeout) {
		ctx.Log.Warn("Timed out waiting for background tasks to stop")
	}
	if err := triple.Close(); err != nil {
		result = multierror.Append(result, err)
	}
	q.Release()

	summary := newSummary(runId, r.config, collector, elapsed)
	summary.Log(ctx.Log)
	return summary, result.ErrorOrNil()
}

// sample records the current semaphore values and logs a progress line.
func (r *Runner) sample(
	ctx *armadacontext.Context,
	triple *semaphore.SyncTriple,
	q *queue.BoundedQueue,
	m *metrics.Metrics,
	collector *events.Collector,
) {
	counts := triple.Snapshot()
	queueLength := 0
	if err := triple.WithMutex(ctx, func() { queueLength = q.Len() }); err != nil {
		// Only happens once the run is being torn down.
		return
	}
	m.ObserveSemaphores(counts, queueLength)
	if r.observer != nil {
		r.observer(counts, queueLength)
	}
	ctx.Log.WithFields(logrus.Fields{
		"items":       counts.Items,
		"slots":       counts.Slots,
		"queueLength": queueLength,
		"deposited":   collector.Count(events.JobDeposited),
		"completed":   collector.Count(events.JobCompleted),
	}).Info("Progress update")
}
