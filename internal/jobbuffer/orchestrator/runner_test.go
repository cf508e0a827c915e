package orchestrator

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/armadaproject/jobbuffer/internal/common/armadacontext"
	"github.com/armadaproject/jobbuffer/internal/common/armadaerrors"
	"github.com/armadaproject/jobbuffer/internal/common/logging"
	"github.com/armadaproject/jobbuffer/internal/jobbuffer/configuration"
	"github.com/armadaproject/jobbuffer/internal/jobbuffer/events"
	"github.com/armadaproject/jobbuffer/internal/jobbuffer/metrics"
	"github.com/armadaproject/jobbuffer/internal/jobbuffer/semaphore"
)

const testIdleTimeout = 150 * time.Millisecond

func testConfig(bufferSize, jobsPerProducer, producers, consumers int) configuration.Configuration {
	c := configuration.Default()
	c.Workload = configuration.Workload{
		BufferSize:        bufferSize,
		JobsPerProducer:   jobsPerProducer,
		NumberOfProducers: producers,
		NumberOfConsumers: consumers,
	}
	c.TimeUnit = time.Millisecond
	c.IdleTimeout = testIdleTimeout
	c.StatsInterval = 2 * time.Millisecond
	c.RandomSeed = 1
	return c
}

func testContext() (*armadacontext.Context, *test.Hook) {
	logger, hook := test.NewNullLogger()
	logger.SetLevel(logrus.DebugLevel)
	return armadacontext.New(context.Background(), logrus.NewEntry(logger)), hook
}

// quietContext discards all log output, for tests that never inspect it.
func quietContext() *armadacontext.Context {
	return armadacontext.New(context.Background(), logrus.NewEntry(logging.NullLogger))
}

// activeWorkers reads the active worker gauge of the given kind from a registry.
func activeWorkers(t *testing.T, registry *prometheus.Registry, kind string) float64 {
	families, err := registry.Gather()
	require.NoError(t, err)
	for _, f := range families {
		if f.GetName() != metrics.Prefix+"active_workers" {
			continue
		}
		for _, m := range f.GetMetric() {
			for _, l := range m.GetLabel() {
				if l.GetName() == "kind" && l.GetValue() == kind {
					return m.GetGauge().GetValue()
				}
			}
		}
	}
	t.Fatalf("no active_workers series for %s", kind)
	return 0
}

// capacityObserver checks every stats sample against the capacity invariant.
type capacityObserver struct {
	mu       sync.Mutex
	capacity int64
	samples  int
	failures []semaphore.Counts
}

func (o *capacityObserver) observe(counts semaphore.Counts, queueLength int) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.samples++
	if counts.Items < 0 || counts.Slots < 0 || counts.Items+counts.Slots > o.capacity ||
		queueLength < 0 || int64(queueLength) > o.capacity {
		o.failures = append(o.failures, counts)
	}
}

func run(t *testing.T, config configuration.Configuration) (*Summary, *events.Collector, *capacityObserver) {
	collector := events.NewCollector()
	observer := &capacityObserver{capacity: int64(config.BufferSize)}
	ctx := quietContext()
	summary, err := NewRunner(config).
		WithRegisterer(prometheus.NewRegistry()).
		WithRecorder(collector).
		WithObserver(observer.observe).
		Run(ctx)
	require.NoError(t, err)
	require.NotNil(t, summary)
	return summary, collector, observer
}

func assertNoLossOrDuplication(t *testing.T, collector *events.Collector) {
	deposited := map[uint64]int{}
	for _, e := range collector.OfType(events.JobDeposited) {
		deposited[e.Job.Sequence]++
	}
	fetched := map[uint64]int{}
	for _, e := range collector.OfType(events.ItemFetched) {
		fetched[e.Job.Sequence]++
	}
	assert.Equal(t, deposited, fetched)
	for seq, n := range deposited {
		assert.Equal(t, 1, n, "sequence %d deposited %d times", seq, n)
	}
}

func TestRunner_ScenarioA(t *testing.T) {
	summary, collector, observer := run(t, testConfig(5, 3, 1, 1))

	assert.Equal(t, 3, summary.Producers.Deposited)
	assert.Equal(t, 3, summary.Consumers.Fetched)
	assert.Equal(t, 3, summary.Consumers.Completed)
	assert.Equal(t, 1, summary.Producers.ExhaustedQuota)
	assert.Equal(t, 0, summary.Producers.TimedOut)
	assert.Equal(t, 1, summary.Consumers.IdledOut)
	assert.Equal(t, 0, summary.Unfinished())
	assertNoLossOrDuplication(t, collector)
	assert.Empty(t, observer.failures)

	// The consumer only gives up after the producer has finished.
	quota := collector.OfType(events.ProducerExhaustedQuota)
	idle := collector.OfType(events.ConsumerIdledOut)
	require.Len(t, quota, 1)
	require.Len(t, idle, 1)
	assert.True(t, idle[0].Time.After(quota[0].Time))
}

func TestRunner_ScenarioB(t *testing.T) {
	summary, collector, observer := run(t, testConfig(1, 2, 2, 1))

	assert.Equal(t, 4, summary.Producers.Deposited)
	assert.Equal(t, 4, summary.Consumers.Fetched)
	assert.Equal(t, 4, summary.Consumers.Completed)
	assert.Equal(t, map[int]int{1: 2, 2: 2}, summary.Producers.DepositedBy)
	assert.Equal(t, map[int]int{1: 4}, summary.Consumers.CompletedBy)
	assertNoLossOrDuplication(t, collector)
	assert.Greater(t, observer.samples, 0)
	assert.Empty(t, observer.failures)

	// With a single cell every job gets id 1.
	for _, e := range collector.OfType(events.ItemFetched) {
		assert.Equal(t, 1, e.Job.Id)
		assert.NotZero(t, e.Job.Duration)
	}
}

func TestRunner_ScenarioC(t *testing.T) {
	config := testConfig(3, 5, 2, 0)
	start := time.Now()
	summary, _, observer := run(t, config)
	elapsed := time.Since(start)

	assert.Equal(t, 3, summary.Producers.Deposited)
	assert.Equal(t, 2, summary.Producers.TimedOut)
	assert.Equal(t, 0, summary.Producers.ExhaustedQuota)
	assert.Equal(t, 0, summary.Consumers.Fetched)
	assert.Equal(t, 3, summary.Unfinished())
	assert.GreaterOrEqual(t, elapsed, config.IdleTimeout)
	assert.Empty(t, observer.failures)
}

func TestRunner_NoLossOrDuplication(t *testing.T) {
	summary, collector, observer := run(t, testConfig(4, 10, 3, 2))

	assert.Equal(t, 30, summary.Producers.Deposited)
	assert.Equal(t, 30, summary.Consumers.Completed)
	assert.Equal(t, 3, summary.Producers.ExhaustedQuota)
	assert.Equal(t, 2, summary.Consumers.IdledOut)
	assertNoLossOrDuplication(t, collector)
	assert.Empty(t, observer.failures)
}

func TestRunner_ConsumersExitAfterIdleTimeout(t *testing.T) {
	config := testConfig(2, 3, 2, 3)
	config.JobDuration = configuration.Range{Min: 0, Max: 0}
	_, collector, _ := run(t, config)

	deposited := collector.OfType(events.JobDeposited)
	require.Len(t, deposited, 6)
	lastDeposit := deposited[len(deposited)-1].Time
	idle := collector.OfType(events.ConsumerIdledOut)
	require.Len(t, idle, 3)
	for _, e := range idle {
		assert.Less(t, e.Time.Sub(lastDeposit), config.IdleTimeout+500*time.Millisecond, "consumer %d", e.Worker)
	}
}

func TestRunner_InvalidConfiguration(t *testing.T) {
	ctx, hook := testContext()
	config := testConfig(0, 3, 1, 1)

	summary, err := NewRunner(config).WithRegisterer(prometheus.NewRegistry()).Run(ctx)

	assert.Nil(t, summary)
	assert.Equal(t, armadaerrors.ExitCodeInvalidArgument, armadaerrors.ExitCodeFromError(err))
	require.NotNil(t, hook.LastEntry())
	assert.Contains(t, hook.LastEntry().Message, "BufferSize")
}

func TestRunner_MetricsRegistrationFailure(t *testing.T) {
	registry := prometheus.NewRegistry()
	ctx := quietContext()
	_, err := NewRunner(testConfig(1, 1, 1, 1)).WithRegisterer(registry).Run(ctx)
	require.NoError(t, err)

	summary, err := NewRunner(testConfig(1, 1, 1, 1)).WithRegisterer(registry).Run(ctx)
	assert.Nil(t, summary)
	assert.Equal(t, armadaerrors.ExitCodeResourceCreation, armadaerrors.ExitCodeFromError(err))
}

func TestRunner_ExportsMetrics(t *testing.T) {
	registry := prometheus.NewRegistry()
	ctx := quietContext()
	_, err := NewRunner(testConfig(2, 2, 1, 1)).WithRegisterer(registry).Run(ctx)
	require.NoError(t, err)

	families, err := registry.Gather()
	require.NoError(t, err)
	names := map[string]bool{}
	for _, f := range families {
		names[f.GetName()] = true
	}
	assert.True(t, names["jobbuffer_events_total"])
	assert.True(t, names["jobbuffer_items"])
	assert.True(t, names["jobbuffer_stats_latency_seconds"])
}

func TestRunner_Cancelled(t *testing.T) {
	config := testConfig(1, 5, 2, 0)
	config.IdleTimeout = time.Hour
	collector := events.NewCollector()
	registry := prometheus.NewRegistry()
	ctx, cancel := armadacontext.WithCancel(quietContext())

	go func() {
		assert.Eventually(t, func() bool { return collector.Count(events.JobDeposited) == 1 }, time.Second, time.Millisecond)
		time.Sleep(10 * time.Millisecond)
		cancel()
	}()
	start := time.Now()
	summary, err := NewRunner(config).WithRegisterer(registry).WithRecorder(collector).Run(ctx)

	assert.Less(t, time.Since(start), 10*time.Second)
	assert.True(t, errors.Is(err, context.Canceled))
	require.NotNil(t, summary)
	assert.Equal(t, 1, summary.Producers.Deposited)
	assert.Equal(t, 0, summary.Producers.TimedOut)
	assert.Equal(t, 0.0, activeWorkers(t, registry, metrics.ProducerKind))
}

func TestRunner_StatsDisabled(t *testing.T) {
	config := testConfig(2, 1, 1, 1)
	config.StatsInterval = 0
	summary, _, observer := run(t, config)
	assert.Equal(t, 1, summary.Consumers.Completed)
	assert.Equal(t, 0, observer.samples)
}
