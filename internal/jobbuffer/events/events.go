// Package events defines the progress events emitted by producers and consumers, and the recorders that
// consume them.
package events

import (
	"fmt"
	"time"

	"github.com/armadaproject/jobbuffer/internal/jobbuffer/queue"
)

type Type int

const (
	JobGenerated Type = iota
	JobDeposited
	ProducerTimedOut
	ProducerExhaustedQuota
	ItemFetched
	JobExecuting
	JobCompleted
	ConsumerIdledOut
)

var typeNames = map[Type]string{
	JobGenerated:           "job_generated",
	JobDeposited:           "job_deposited",
	ProducerTimedOut:       "producer_timed_out",
	ProducerExhaustedQuota: "producer_exhausted_quota",
	ItemFetched:            "item_fetched",
	JobExecuting:           "job_executing",
	JobCompleted:           "job_completed",
	ConsumerIdledOut:       "consumer_idled_out",
}

// AllTypes lists every event type in emission order.
var AllTypes = []Type{
	JobGenerated,
	JobDeposited,
	ProducerTimedOut,
	ProducerExhaustedQuota,
	ItemFetched,
	JobExecuting,
	JobCompleted,
	ConsumerIdledOut,
}

func (t Type) String() string {
	if name, ok := typeNames[t]; ok {
		return name
	}
	return fmt.Sprintf("unknown(%d)", int(t))
}

// IsProducerEvent reports whether events of this type are emitted by producers.
func (t Type) IsProducerEvent() bool {
	switch t {
	case JobGenerated, JobDeposited, ProducerTimedOut, ProducerExhaustedQuota:
		return true
	default:
		return false
	}
}

// Event is a single state transition of a worker. Job is the zero value for events that do not concern a job
// (timeouts and quota exhaustion). For JobGenerated the job has not been deposited yet, so only its duration is set.
type Event struct {
	Type   Type
	Worker int
	Job    queue.Job
	Time   time.Time
}

func (e Event) String() string {
	return fmt.Sprintf("%s worker=%d %s", e.Type, e.Worker, e.Job)
}

// Recorder receives the events of a run. Implementations must be safe for concurrent use since every worker
// reports to the same recorder.
type Recorder interface {
	Record(event Event)
}

// RecorderFunc adapts a function to the Recorder interface.
type RecorderFunc func(event Event)

func (f RecorderFunc) Record(event Event) {
	f(event)
}

// MultiRecorder fans every event out to each of its recorders in order.
type MultiRecorder []Recorder

func (m MultiRecorder) Record(event Event) {
	for _, r := range m {
		r.Record(event)
	}
}

// NoopRecorder discards all events.
var NoopRecorder Recorder = RecorderFunc(func(Event) {})
