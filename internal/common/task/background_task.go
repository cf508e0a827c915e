package task

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"k8s.io/utils/clock"
)

type task struct {
	function    func()
	interval    time.Duration
	metricName  string
	stopChannel chan struct{}
}

// BackgroundTaskManager runs functions periodically until StopAll is called.
// It is not threadsafe, it should only be accessed from a single goroutine.
type BackgroundTaskManager struct {
	tasks         []*task
	metricsPrefix string
	registerer    prometheus.Registerer
	clock         clock.WithTicker
	wg            *sync.WaitGroup
}

func NewBackgroundTaskManager(metricsPrefix string, registerer prometheus.Registerer) *BackgroundTaskManager {
	return &BackgroundTaskManager{
		tasks:         []*task{},
		metricsPrefix: metricsPrefix,
		registerer:    registerer,
		clock:         clock.RealClock{},
		wg:            &sync.WaitGroup{},
	}
}

// WithClock replaces the clock used to schedule tasks. Must be called before any task is registered.
func (m *BackgroundTaskManager) WithClock(c clock.WithTicker) *BackgroundTaskManager {
	m.clock = c
	return m
}

// Register starts backgroundTask immediately and then once every interval.
func (m *BackgroundTaskManager) Register(backgroundTask func(), interval time.Duration, metricName string) {
	task := &task{
		function:    backgroundTask,
		interval:    interval,
		metricName:  metricName,
		stopChannel: make(chan struct{}),
	}
	m.startBackgroundTask(task)
	m.tasks = append(m.tasks, task)
}

// StopAll stops every task and waits up to timeout for them to return. Returns true if the wait timed out.
func (m *BackgroundTaskManager) StopAll(timeout time.Duration) bool {
	m.stopTasks()
	return m.waitForShutdownCompletion(timeout)
}

func (m *BackgroundTaskManager) startBackgroundTask(task *task) {
	taskDurationHistogram := promauto.With(m.registerer).NewHistogram(
		prometheus.HistogramOpts{
			Name:    m.metricsPrefix + task.metricName + "_latency_seconds",
			Help:    "Background loop " + task.metricName + " latency in seconds",
			Buckets: prometheus.ExponentialBuckets(0.0001, 2, 15),
		})

	run := func() {
		start := m.clock.Now()
		task.function()
		taskDurationHistogram.Observe(m.clock.Since(start).Seconds())
	}

	ticker := m.clock.NewTicker(task.interval)
	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		defer ticker.Stop()
		run()
		for {
			select {
			case <-ticker.C():
			case <-task.stopChannel:
				return
			}
			run()
		}
	}()
}

func (m *BackgroundTaskManager) waitForShutdownCompletion(timeout time.Duration) bool {
	c := make(chan struct{})
	go func() {
		defer close(c)
		m.wg.Wait()
	}()
	select {
	case <-c:
		return false // completed normally
	case <-time.After(timeout):
		return true // timed out
	}
}

func (m *BackgroundTaskManager) stopTasks() {
	for _, task := range m.tasks {
		close(task.stopChannel)
	}
	m.tasks = nil
}
