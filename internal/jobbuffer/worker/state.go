package worker

import "fmt"

type ProducerState int32

const (
	Generating ProducerState = iota
	Delaying
	AcquiringSlot
	Depositing
	// TimedOut is terminal: no slot became free within the idle timeout.
	TimedOut
	// QuotaExhausted is terminal: every job the producer was asked for has been deposited.
	QuotaExhausted
	// ProducerCancelled is terminal: the run was cancelled.
	ProducerCancelled
)

var producerStateNames = map[ProducerState]string{
	Generating:        "Generating",
	Delaying:          "Delaying",
	AcquiringSlot:     "AcquiringSlot",
	Depositing:        "Depositing",
	TimedOut:          "TimedOut",
	QuotaExhausted:    "QuotaExhausted",
	ProducerCancelled: "Cancelled",
}

func (s ProducerState) String() string {
	if name, ok := producerStateNames[s]; ok {
		return name
	}
	return fmt.Sprintf("ProducerState(%d)", int32(s))
}

func (s ProducerState) Terminal() bool {
	return s == TimedOut || s == QuotaExhausted || s == ProducerCancelled
}

type ConsumerState int32

const (
	AwaitingItem ConsumerState = iota
	Dispatching
	// Draining is terminal: no item arrived within the idle timeout.
	Draining
	// ConsumerCancelled is terminal: the run was cancelled.
	ConsumerCancelled
)

var consumerStateNames = map[ConsumerState]string{
	AwaitingItem:      "AwaitingItem",
	Dispatching:       "Dispatching",
	Draining:          "Draining",
	ConsumerCancelled: "Cancelled",
}

func (s ConsumerState) String() string {
	if name, ok := consumerStateNames[s]; ok {
		return name
	}
	return fmt.Sprintf("ConsumerState(%d)", int32(s))
}

func (s ConsumerState) Terminal() bool {
	return s == Draining || s == ConsumerCancelled
}
