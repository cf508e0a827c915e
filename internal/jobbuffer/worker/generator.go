package worker

import (
	"math/rand"

	"github.com/armadaproject/jobbuffer/internal/common/util"
	"github.com/armadaproject/jobbuffer/internal/jobbuffer/configuration"
)

// Generator draws job durations and production delays uniformly from their configured ranges.
// It is safe for concurrent use.
type Generator struct {
	rand            *rand.Rand
	jobDuration     configuration.Range
	productionDelay configuration.Range
}

// NewGenerator creates a generator. A seed of 0 seeds from the current time.
func NewGenerator(seed int64, jobDuration, productionDelay configuration.Range) *Generator {
	return &Generator{
		rand:            util.NewThreadsafeRand(seed),
		jobDuration:     jobDuration,
		productionDelay: productionDelay,
	}
}

func (g *Generator) JobDuration() int {
	return util.IntBetween(g.rand, g.jobDuration.Min, g.jobDuration.Max)
}

func (g *Generator) ProductionDelay() int {
	return util.IntBetween(g.rand, g.productionDelay.Min, g.productionDelay.Max)
}
