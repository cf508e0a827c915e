package configuration

import (
	"time"

	"github.com/armadaproject/jobbuffer/internal/common/logging"
)

const (
	DefaultIdleTimeout   = 20 * time.Second
	DefaultTimeUnit      = time.Second
	DefaultStatsInterval = 5 * time.Second
)

// Default returns the configuration used when nothing is overridden. The workload is left empty since it has to
// be supplied on the command line.
func Default() Configuration {
	return Configuration{
		IdleTimeout:     DefaultIdleTimeout,
		TimeUnit:        DefaultTimeUnit,
		ProductionDelay: Range{Min: 1, Max: 5},
		JobDuration:     Range{Min: 1, Max: 10},
		StatsInterval:   DefaultStatsInterval,
		Logging: logging.Config{
			Level:  "info",
			Format: logging.FormatText,
		},
	}
}

// DefaultValues returns Default as a map of config keys, in the form viper expects.
func DefaultValues() map[string]interface{} {
	d := Default()
	return map[string]interface{}{
		"idleTimeout":         d.IdleTimeout,
		"timeUnit":            d.TimeUnit,
		"productionDelay.min": d.ProductionDelay.Min,
		"productionDelay.max": d.ProductionDelay.Max,
		"jobDuration.min":     d.JobDuration.Min,
		"jobDuration.max":     d.JobDuration.Max,
		"randomSeed":          d.RandomSeed,
		"statsInterval":       d.StatsInterval,
		"metricsPort":         d.MetricsPort,
		"logging.level":       d.Logging.Level,
		"logging.format":      d.Logging.Format,
	}
}
