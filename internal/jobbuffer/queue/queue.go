// Package queue implements the fixed-capacity circular buffer shared by producers and consumers.
package queue

// BoundedQueue is a circular array of jobs. It performs no locking and no bounds checking: callers must hold the
// buffer mutex, must only Deposit after reserving a free slot and must only Fetch after reserving an available item.
// Violating these preconditions silently corrupts the queue.
type BoundedQueue struct {
	head     int
	tail     int
	deposits uint64
	fetches  uint64
	storage  []Job
}

// NewBoundedQueue allocates a queue with room for capacity jobs. capacity must be positive.
func NewBoundedQueue(capacity int) *BoundedQueue {
	return &BoundedQueue{
		storage: make([]Job, capacity),
	}
}

// NextJob stamps job with the id and sequence number it will have once deposited, i.e. the current tail
// position + 1 and the next deposit sequence number. It must be called under the same lock as the Deposit
// that follows it, otherwise two producers can be handed the same id.
func (q *BoundedQueue) NextJob(job Job) Job {
	job.Id = q.tail + 1
	job.Sequence = q.deposits + 1
	return job
}

// Deposit writes job at the tail and advances the tail.
func (q *BoundedQueue) Deposit(job Job) {
	q.storage[q.tail] = job
	q.tail = (q.tail + 1) % len(q.storage)
	q.deposits++
}

// Fetch reads the job at the head and advances the head.
func (q *BoundedQueue) Fetch() Job {
	job := q.storage[q.head]
	q.head = (q.head + 1) % len(q.storage)
	q.fetches++
	return job
}

func (q *BoundedQueue) Capacity() int {
	return len(q.storage)
}

func (q *BoundedQueue) Head() int {
	return q.head
}

func (q *BoundedQueue) Tail() int {
	return q.tail
}

// Deposits returns the number of jobs ever deposited.
func (q *BoundedQueue) Deposits() uint64 {
	return q.deposits
}

// Len returns the number of jobs currently in the queue.
func (q *BoundedQueue) Len() int {
	return int(q.deposits - q.fetches)
}

// Release drops the storage. The queue must not be used afterwards.
func (q *BoundedQueue) Release() {
	q.storage = nil
}
