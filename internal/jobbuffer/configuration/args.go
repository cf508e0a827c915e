package configuration

import (
	"strconv"

	"github.com/pkg/errors"

	"github.com/armadaproject/jobbuffer/internal/common/armadaerrors"
)

// ArgumentNames are the positional command line arguments, in order.
var ArgumentNames = []string{"bufferSize", "jobsPerProducer", "numberOfProducers", "numberOfConsumers"}

// ParseArguments parses the positional command line arguments into a Workload. Every argument must be a positive
// integer written with decimal digits only: signs, whitespace and leading or trailing garbage are rejected.
func ParseArguments(args []string) (Workload, error) {
	if len(args) != len(ArgumentNames) {
		return Workload{}, errors.WithStack(&armadaerrors.ErrArgumentCount{
			Expected: len(ArgumentNames),
			Actual:   len(args),
		})
	}
	values := make([]int, len(args))
	for i, arg := range args {
		v, err := parsePositiveInt(ArgumentNames[i], arg)
		if err != nil {
			return Workload{}, err
		}
		values[i] = v
	}
	return Workload{
		BufferSize:        values[0],
		JobsPerProducer:   values[1],
		NumberOfProducers: values[2],
		NumberOfConsumers: values[3],
	}, nil
}

func parsePositiveInt(name, arg string) (int, error) {
	invalid := func(message string) error {
		return errors.WithStack(&armadaerrors.ErrInvalidArgument{
			Name:    name,
			Value:   arg,
			Message: message,
		})
	}
	if arg == "" {
		return 0, invalid("must not be empty")
	}
	for _, r := range arg {
		if r < '0' || r > '9' {
			return 0, invalid("must be a number")
		}
	}
	v, err := strconv.Atoi(arg)
	if err != nil {
		return 0, invalid("is out of range")
	}
	if v <= 0 {
		return 0, invalid("must be positive")
	}
	return v, nil
}
