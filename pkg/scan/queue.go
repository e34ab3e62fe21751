package scan

// DefaultQueueSize is the capacity of the output queue when none is given.
const DefaultQueueSize = 64

// Queue is a fixed size ring buffer of bytes. One slot is kept free to tell a
// full queue from an empty one, so Cap()-1 bytes fit.
//
// Queue has no locking: it expects exactly one producer and one consumer
// running on the same goroutine.
type Queue struct {
	data  []byte
	mask  int
	read  int
	write int
}

// NewQueue creates a queue. size is rounded up to the next power of two;
// values below 4 are raised to 4.
func NewQueue(size int) *Queue {
	n := 4
	for n < size {
		n <<= 1
	}
	return &Queue{
		data: make([]byte, n),
		mask: n - 1,
	}
}

// Enqueue stores c. It returns false and drops c if the queue is full.
func (q *Queue) Enqueue(c byte) bool {
	next := (q.write + 1) & q.mask
	if next == q.read {
		return false
	}
	q.data[q.write] = c
	q.write = next
	return true
}

// Dequeue removes the oldest byte. It returns false if the queue is empty.
func (q *Queue) Dequeue() (byte, bool) {
	if q.read == q.write {
		return 0, false
	}
	c := q.data[q.read]
	q.read = (q.read + 1) & q.mask
	return c, true
}

// Len returns the number of queued bytes.
func (q *Queue) Len() int {
	return (q.write - q.read) & q.mask
}

// Free returns how many more bytes can be enqueued.
func (q *Queue) Free() int {
	return q.Cap() - 1 - q.Len()
}

// Cap returns the size of the underlying buffer.
func (q *Queue) Cap() int {
	return len(q.data)
}
