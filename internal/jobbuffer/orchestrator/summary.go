package orchestrator

import (
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"
	"gopkg.in/yaml.v2"

	"github.com/armadaproject/jobbuffer/internal/jobbuffer/configuration"
	"github.com/armadaproject/jobbuffer/internal/jobbuffer/events"
)

// Summary describes the outcome of a run.
type Summary struct {
	RunId     string          `yaml:"runId"`
	Duration  time.Duration   `yaml:"duration"`
	Workload  WorkloadSummary `yaml:"workload"`
	Producers ProducerSummary `yaml:"producers"`
	Consumers ConsumerSummary `yaml:"consumers"`
}

type WorkloadSummary struct {
	BufferSize        int `yaml:"bufferSize"`
	JobsPerProducer   int `yaml:"jobsPerProducer"`
	NumberOfProducers int `yaml:"numberOfProducers"`
	NumberOfConsumers int `yaml:"numberOfConsumers"`
}

type ProducerSummary struct {
	Generated      int `yaml:"generated"`
	Deposited      int `yaml:"deposited"`
	TimedOut       int `yaml:"timedOut"`
	ExhaustedQuota int `yaml:"exhaustedQuota"`
	// Jobs deposited per producer id
	DepositedBy map[int]int `yaml:"depositedBy,omitempty"`
}

type ConsumerSummary struct {
	Fetched   int `yaml:"fetched"`
	Completed int `yaml:"completed"`
	IdledOut  int `yaml:"idledOut"`
	// Jobs completed per consumer id
	CompletedBy map[int]int `yaml:"completedBy,omitempty"`
}

func newSummary(runId string, config configuration.Configuration, collector *events.Collector, elapsed time.Duration) *Summary {
	counts := collector.Counts()
	return &Summary{
		RunId:    runId,
		Duration: elapsed,
		Workload: WorkloadSummary{
			BufferSize:        config.BufferSize,
			JobsPerProducer:   config.JobsPerProducer,
			NumberOfProducers: config.NumberOfProducers,
			NumberOfConsumers: config.NumberOfConsumers,
		},
		Producers: ProducerSummary{
			Generated:      counts[events.JobGenerated],
			Deposited:      counts[events.JobDeposited],
			TimedOut:       counts[events.ProducerTimedOut],
			ExhaustedQuota: counts[events.ProducerExhaustedQuota],
			DepositedBy:    collector.PerWorker(events.JobDeposited),
		},
		Consumers: ConsumerSummary{
			Fetched:     counts[events.ItemFetched],
			Completed:   counts[events.JobCompleted],
			IdledOut:    counts[events.ConsumerIdledOut],
			CompletedBy: collector.PerWorker(events.JobCompleted),
		},
	}
}

// Unfinished returns the number of jobs that were deposited but never completed.
func (s *Summary) Unfinished() int {
	return s.Producers.Deposited - s.Consumers.Completed
}

func (s *Summary) YAML() ([]byte, error) {
	out, err := yaml.Marshal(s)
	if err != nil {
		return nil, errors.WithStack(err)
	}
	return out, nil
}

// Log writes the summary as one line for the run and one line per worker.
func (s *Summary) Log(log *logrus.Entry) {
	log.WithFields(logrus.Fields{
		"duration":         s.Duration,
		"deposited":        s.Producers.Deposited,
		"completed":        s.Consumers.Completed,
		"producerTimeouts": s.Producers.TimedOut,
		"consumerIdleOuts": s.Consumers.IdledOut,
	}).Info("Run complete")

	producers := maps.Keys(s.Producers.DepositedBy)
	slices.Sort(producers)
	for _, id := range producers {
		log.WithField("producer", id).Debugf("Deposited %d jobs", s.Producers.DepositedBy[id])
	}
	consumers := maps.Keys(s.Consumers.CompletedBy)
	slices.Sort(consumers)
	for _, id := range consumers {
		log.WithField("consumer", id).Debugf("Completed %d jobs", s.Consumers.CompletedBy[id])
	}
}
