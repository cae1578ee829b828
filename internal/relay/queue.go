package relay

import (
	"sync"
	"sync/atomic"
)

// Queue is an unbounded FIFO of stderr lines. Single producer (the
// readiness detector, then the Relay), one consumer (the probe loop),
// which only ever drains it non-blockingly.
//
// The queue never drops: every pushed line stays queued until popped.
// Dropping is fine for a load tester's metrics feed but not here, where
// the transcript is part of the uploaded result.
type Queue struct {
	mu     sync.Mutex
	lines  []string
	closed bool

	pushed atomic.Int64
	popped atomic.Int64
}

// NewQueue creates an empty open queue.
func NewQueue() *Queue {
	return &Queue{}
}

// Push appends a line. Pushes after Close are discarded; by then the
// producer side has terminated and anything arriving is a straggler from
// a racing goroutine shutting down.
func (q *Queue) Push(line string) {
	q.mu.Lock()
	if !q.closed {
		q.lines = append(q.lines, line)
		q.pushed.Add(1)
	}
	q.mu.Unlock()
}

// TryPop removes and returns the oldest line. The second result is false
// when the queue is currently empty; that says nothing about whether the
// producer is done (check Closed for that).
func (q *Queue) TryPop() (string, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.lines) == 0 {
		return "", false
	}
	line := q.lines[0]
	q.lines = q.lines[1:]
	q.popped.Add(1)
	return line, true
}

// Drain removes and returns everything currently queued, in order.
func (q *Queue) Drain() []string {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.lines) == 0 {
		return nil
	}
	out := q.lines
	q.lines = nil
	q.popped.Add(int64(len(out)))
	return out
}

// Close marks the producer side finished. Idempotent.
func (q *Queue) Close() {
	q.mu.Lock()
	q.closed = true
	q.mu.Unlock()
}

// Closed reports whether the producer side has finished. Lines may still
// be queued after Close; consumers drain until TryPop fails.
func (q *Queue) Closed() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.closed
}

// Len returns the number of currently queued lines.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.lines)
}

// Stats returns total lines pushed and popped over the queue's lifetime.
func (q *Queue) Stats() (pushed, popped int64) {
	return q.pushed.Load(), q.popped.Load()
}
