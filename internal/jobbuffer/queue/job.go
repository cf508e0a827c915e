package queue

import "fmt"

// Job is a unit of simulated work. Jobs are values: once fetched from the queue a job belongs solely to the
// consumer that fetched it.
type Job struct {
	// Id is the tail position + 1 at the moment the job was deposited. It is unique among the jobs
	// that are in the buffer at the same time, but repeats once the buffer wraps.
	Id int
	// Duration of the simulated execution, in time units.
	Duration int
	// Producer is the id of the producer that generated the job.
	Producer int
	// Sequence is the 1-based position of the job in the global deposit order. It never repeats within a run.
	Sequence uint64
}

func (j Job) String() string {
	return fmt.Sprintf("job %d (seq %d, producer %d, duration %d)", j.Id, j.Sequence, j.Producer, j.Duration)
}
