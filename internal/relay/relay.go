package relay

import "sync/atomic"

// Relay drains an adopted stderr stream into a Queue until end-of-stream.
//
// Ownership contract: once the readiness detector hands its LineReader to
// a Relay, the Relay is the stream's only reader. The detector keeps the
// process handle for killing; the Relay keeps the stream for reading.
// Those two never contend.
type Relay struct {
	lr    *LineReader
	queue *Queue

	linesRead atomic.Int64
	done      chan struct{}
}

// New creates a Relay that will feed q from lr.
func New(lr *LineReader, q *Queue) *Relay {
	return &Relay{
		lr:    lr,
		queue: q,
		done:  make(chan struct{}),
	}
}

// Run reads lines until the stream closes, pushing each onto the queue in
// read order. The final partial line, if any, is pushed before stopping.
// A read error terminates the relay silently: the consumer just stops
// seeing new lines, which is exactly what happens when the child dies.
//
// Run must be called in its own goroutine; reads block only the relay.
// It closes the queue's producer side on exit.
func (r *Relay) Run() {
	defer close(r.done)
	defer r.queue.Close()

	for {
		line, err := r.lr.ReadLine()
		if len(line) > 0 {
			r.queue.Push(string(line))
			r.linesRead.Add(1)
		}
		if err != nil || len(line) == 0 {
			return
		}
	}
}

// Done is closed when the relay has terminated.
func (r *Relay) Done() <-chan struct{} {
	return r.done
}

// LinesRead returns the number of lines the relay has pushed.
func (r *Relay) LinesRead() int64 {
	return r.linesRead.Load()
}
