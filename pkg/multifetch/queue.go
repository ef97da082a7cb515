package multifetch

import "sync"

// submissionQueue is the FIFO shared between callers and the engine
// goroutine. Once closed it rejects every push.
type submissionQueue struct {
	mu     sync.Mutex
	items  []Request
	closed bool
}

// push appends r unless the queue is closed.
func (q *submissionQueue) push(r Request) bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return false
	}
	q.items = append(q.items, r)
	return true
}

// pop removes the oldest request.
func (q *submissionQueue) pop() (Request, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.items) == 0 {
		return Request{}, false
	}
	r := q.items[0]
	q.items[0] = Request{}
	q.items = q.items[1:]
	return r, true
}

func (q *submissionQueue) len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

// close stops accepting pushes. It reports whether this call closed the queue.
func (q *submissionQueue) close() bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return false
	}
	q.closed = true
	return true
}

// discard drops every queued request and returns how many there were.
func (q *submissionQueue) discard() int {
	q.mu.Lock()
	defer q.mu.Unlock()

	n := len(q.items)
	q.items = nil
	return n
}
