package metrics

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/armadaproject/jobbuffer/internal/jobbuffer/events"
	"github.com/armadaproject/jobbuffer/internal/jobbuffer/semaphore"
)

const (
	// Prefix is prepended to the name of every metric exported by the run.
	Prefix     = "jobbuffer_"
	eventLabel = "event"
	kindLabel  = "kind"
)

// Metrics exposes the progress of a run as Prometheus metrics. It records every worker event and is periodically
// updated with the semaphore values.
type Metrics struct {
	events        *prometheus.CounterVec
	jobDurations  prometheus.Histogram
	activeWorkers *prometheus.GaugeVec
	items         prometheus.Gauge
	slots         prometheus.Gauge
	queueLength   prometheus.Gauge
}

// New creates the metrics and registers them with r.
func New(r prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		events: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: Prefix + "events_total",
				Help: "Number of worker events by type",
			},
			[]string{eventLabel},
		),
		jobDurations: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    Prefix + "job_duration_units",
				Help:    "Simulated execution time of completed jobs, in time units",
				Buckets: prometheus.LinearBuckets(1, 1, 10),
			},
		),
		activeWorkers: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: Prefix + "active_workers",
				Help: "Number of workers that have not yet terminated",
			},
			[]string{kindLabel},
		),
		items: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: Prefix + "items",
				Help: "Value of the items semaphore",
			},
		),
		slots: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: Prefix + "slots",
				Help: "Value of the slots semaphore",
			},
		),
		queueLength: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: Prefix + "queue_length",
				Help: "Number of jobs deposited but not yet fetched",
			},
		),
	}
	for _, c := range []prometheus.Collector{m.events, m.jobDurations, m.activeWorkers, m.items, m.slots, m.queueLength} {
		if err := r.Register(c); err != nil {
			return nil, err
		}
	}
	// Initialise every series so that they are exported before the first event.
	for _, t := range events.AllTypes {
		m.events.WithLabelValues(t.String())
	}
	return m, nil
}

const (
	ProducerKind = "producer"
	ConsumerKind = "consumer"
)

// SetActiveWorkers sets the number of live producers and consumers, usually once at the start of a run.
func (m *Metrics) SetActiveWorkers(producers, consumers int) {
	m.activeWorkers.WithLabelValues(ProducerKind).Set(float64(producers))
	m.activeWorkers.WithLabelValues(ConsumerKind).Set(float64(consumers))
}

// WorkerExited marks one worker of the given kind as gone, however it terminated.
func (m *Metrics) WorkerExited(kind string) {
	m.activeWorkers.WithLabelValues(kind).Dec()
}

func (m *Metrics) Record(e events.Event) {
	m.events.WithLabelValues(e.Type.String()).Inc()
	switch e.Type {
	case events.JobCompleted:
		m.jobDurations.Observe(float64(e.Job.Duration))
	}
}

// ObserveSemaphores updates the semaphore gauges from a snapshot.
func (m *Metrics) ObserveSemaphores(counts semaphore.Counts, queueLength int) {
	m.items.Set(float64(counts.Items))
	m.slots.Set(float64(counts.Slots))
	m.queueLength.Set(float64(queueLength))
}
