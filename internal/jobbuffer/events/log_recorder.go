package events

import (
	"github.com/sirupsen/logrus"
)

// LogRecorder writes one human-readable line per event.
type LogRecorder struct {
	log *logrus.Entry
}

func NewLogRecorder(log *logrus.Entry) *LogRecorder {
	return &LogRecorder{log: log}
}

func (r *LogRecorder) Record(e Event) {
	log := r.log.WithField("event", e.Type.String())
	switch e.Type {
	case JobGenerated:
		log.Debugf("Producer(%d): generated job with duration %d", e.Worker, e.Job.Duration)
	case JobDeposited:
		log.WithField("seq", e.Job.Sequence).
			Infof("Producer(%d): Job ID %d duration %d", e.Worker, e.Job.Id, e.Job.Duration)
	case ProducerTimedOut:
		log.Infof("Producer(%d): terminated due to a timeout", e.Worker)
	case ProducerExhaustedQuota:
		log.Infof("Producer(%d): No more jobs to generate", e.Worker)
	case ItemFetched:
		log.WithField("seq", e.Job.Sequence).
			Debugf("Consumer(%d): fetched Job ID %d", e.Worker, e.Job.Id)
	case JobExecuting:
		log.Infof("Consumer(%d): Job ID %d executing sleep duration %d", e.Worker, e.Job.Id, e.Job.Duration)
	case JobCompleted:
		log.Infof("Consumer(%d): Job ID %d completed", e.Worker, e.Job.Id)
	case ConsumerIdledOut:
		log.Infof("Consumer(%d): No more jobs left", e.Worker)
	default:
		log.Warnf("unknown event %s from worker %d", e.Type, e.Worker)
	}
}
