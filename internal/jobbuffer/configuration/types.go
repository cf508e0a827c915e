package configuration

import (
	"time"

	"github.com/armadaproject/jobbuffer/internal/common/logging"
)

type Configuration struct {
	Workload `mapstructure:",squash"`
	// How long a producer waits for a free slot, and a consumer for an item, before giving up for good
	IdleTimeout time.Duration `validate:"gt=0"`
	// Length of one time unit. Production delays and job durations are expressed in time units.
	TimeUnit time.Duration `validate:"gt=0"`
	// Range of the delay before each job is produced, in time units
	ProductionDelay Range
	// Range of the simulated execution time of a job, in time units
	JobDuration Range
	// Seed for job durations and production delays. 0 seeds from the current time.
	RandomSeed int64
	// Interval at which progress is logged and semaphore gauges are sampled. 0 disables both.
	StatsInterval time.Duration `validate:"gte=0"`
	// Port on which Prometheus metrics are served. 0 disables the endpoint.
	MetricsPort uint16
	Logging     logging.Config
}

// Workload is the shape of a run: the buffer capacity and how many jobs are produced by how many workers.
// These are the four positional command line arguments.
type Workload struct {
	BufferSize        int `validate:"gt=0"`
	JobsPerProducer   int `validate:"gt=0"`
	NumberOfProducers int `validate:"gte=0"`
	NumberOfConsumers int `validate:"gte=0"`
}

// Range is a closed interval [Min, Max] of whole time units.
type Range struct {
	Min int `validate:"gte=0"`
	Max int `validate:"gte=0"`
}
