package events

import (
	"fmt"
	"strings"
	"sync"

	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"
)

// Collector keeps every event it receives in memory. It is used to build the run summary and to audit runs in
// tests.
type Collector struct {
	mu     sync.Mutex
	events []Event
	counts map[Type]int
}

func NewCollector() *Collector {
	return &Collector{counts: make(map[Type]int)}
}

func (c *Collector) Record(e Event) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events = append(c.events, e)
	c.counts[e.Type]++
}

// Events returns a copy of the events recorded so far, in the order they were recorded.
func (c *Collector) Events() []Event {
	c.mu.Lock()
	defer c.mu.Unlock()
	return slices.Clone(c.events)
}

// OfType returns the recorded events of type t.
func (c *Collector) OfType(t Type) []Event {
	c.mu.Lock()
	defer c.mu.Unlock()
	var result []Event
	for _, e := range c.events {
		if e.Type == t {
			result = append(result, e)
		}
	}
	return result
}

func (c *Collector) Count(t Type) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.counts[t]
}

// Counts returns the number of events recorded per type.
func (c *Collector) Counts() map[Type]int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return maps.Clone(c.counts)
}

// PerWorker returns the number of events of type t recorded per worker id.
func (c *Collector) PerWorker(t Type) map[int]int {
	c.mu.Lock()
	defer c.mu.Unlock()
	result := make(map[int]int)
	for _, e := range c.events {
		if e.Type == t {
			result[e.Worker]++
		}
	}
	return result
}

func (c *Collector) String() string {
	counts := c.Counts()
	types := maps.Keys(counts)
	slices.Sort(types)
	var sb strings.Builder
	sb.WriteString("{")
	for i, t := range types {
		if i > 0 {
			sb.WriteString(", ")
		}
		sb.WriteString(fmt.Sprintf("%s: %d", t, counts[t]))
	}
	sb.WriteString("}")
	return sb.String()
}
