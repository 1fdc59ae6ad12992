package sessions

import (
	"sync"

	"github.com/armaxri/termihub-agent/internal/rpc"
)

// notifyQueue is an unbounded, single-consumer FIFO of outbound
// notifications (spec.md §5's "notification sender is cloneable and
// share-safe; its receiver is single-owner"). A buffered channel can't
// express "unbounded", so this pairs a growable slice with a signal
// channel the consumer selects on.
type notifyQueue struct {
	mu     sync.Mutex
	items  []*rpc.Notification
	signal chan struct{}
	closed bool
}

func newNotifyQueue() *notifyQueue {
	return &notifyQueue{signal: make(chan struct{}, 1)}
}

// push enqueues n. Never blocks.
func (q *notifyQueue) push(n *rpc.Notification) {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return
	}
	q.items = append(q.items, n)
	q.mu.Unlock()
	select {
	case q.signal <- struct{}{}:
	default:
	}
}

// Pop removes and returns the oldest queued notification, if any.
// Exported so the transport loop (a different package) can drain it.
func (q *notifyQueue) Pop() (*rpc.Notification, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.items) == 0 {
		return nil, false
	}
	n := q.items[0]
	q.items = q.items[1:]
	return n, true
}

// Drain discards all currently queued notifications without consuming
// them (used when a new TCP client connects after a stale run, per
// spec.md §4.J: "Stale notifications queued during the previous
// session are drained").
func (q *notifyQueue) Drain() {
	q.mu.Lock()
	q.items = nil
	q.mu.Unlock()
}

// Wait blocks until a notification is pushed or done fires.
func (q *notifyQueue) Wait(done <-chan struct{}) {
	select {
	case <-q.signal:
	case <-done:
	}
}

func (q *notifyQueue) Close() {
	q.mu.Lock()
	q.closed = true
	q.mu.Unlock()
}
