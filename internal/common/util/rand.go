package util

import (
	"math/rand"
	"sync"
	"time"
)

// LockedSource is a random source that is uses a mutex to ensure it is threadsafe
type LockedSource struct {
	lk  sync.Mutex
	src rand.Source
}

func (r *LockedSource) Int63() (n int64) {
	r.lk.Lock()
	n = r.src.Int63()
	r.lk.Unlock()
	return
}

func (r *LockedSource) Seed(seed int64) {
	r.lk.Lock()
	r.src.Seed(seed)
	r.lk.Unlock()
}

// NewThreadsafeRand Returns a *rand.Rand that is safe to share across multiple goroutines.
// A seed of 0 seeds from the current time.
func NewThreadsafeRand(seed int64) *rand.Rand {
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return rand.New(&LockedSource{
		lk:  sync.Mutex{},
		src: rand.NewSource(seed),
	})
}

// IntBetween returns a uniformly distributed integer in the closed interval [min, max].
// If max <= min, min is returned.
func IntBetween(r *rand.Rand, min, max int) int {
	if max <= min {
		return min
	}
	return min + r.Intn(max-min+1)
}
