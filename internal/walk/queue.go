package walk

import (
	"context"
	"errors"
	"sync"
)

// ErrReceiverGone is returned by Send once the consumer has abandoned the queue.
var ErrReceiverGone = errors.New("path receiver gone")

// Entry is one discovered regular file and the root it was found under.
type Entry struct {
	Root string
	Path string
}

// Queue is an unbounded FIFO of entries. Senders never wait on the consumer;
// pending entries are buffered in memory, which is cheap next to transfer time.
type Queue struct {
	in   chan Entry
	out  chan Entry
	gone chan struct{}

	closeOnce   sync.Once
	abandonOnce sync.Once
}

// NewQueue starts the relay goroutine. Call Close when done sending.
func NewQueue() *Queue {
	q := &Queue{
		in:   make(chan Entry),
		out:  make(chan Entry),
		gone: make(chan struct{}),
	}
	go q.relay()
	return q
}

// Send enqueues e. It fails only if the consumer abandoned the queue or ctx ended.
func (q *Queue) Send(ctx context.Context, e Entry) error {
	select {
	case <-q.gone:
		return ErrReceiverGone
	default:
	}
	select {
	case q.in <- e:
		return nil
	case <-q.gone:
		return ErrReceiverGone
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close signals that no more entries will be sent. Entries already queued are
// still delivered.
func (q *Queue) Close() {
	q.closeOnce.Do(func() { close(q.in) })
}

// Abandon is called by the consumer when it stops reading. Pending entries are
// dropped and further sends fail.
func (q *Queue) Abandon() {
	q.abandonOnce.Do(func() { close(q.gone) })
}

// Entries returns the receive side. It is closed after Close once the buffer drains.
func (q *Queue) Entries() <-chan Entry {
	return q.out
}

func (q *Queue) relay() {
	defer close(q.out)

	var pending []Entry
	in := q.in
	for in != nil || len(pending) > 0 {
		var out chan Entry
		var next Entry
		if len(pending) > 0 {
			out = q.out
			next = pending[0]
		}

		select {
		case e, ok := <-in:
			if !ok {
				in = nil
				continue
			}
			pending = append(pending, e)
		case out <- next:
			pending[0] = Entry{}
			pending = pending[1:]
		case <-q.gone:
			return
		}
	}
}
