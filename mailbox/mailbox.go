// Package mailbox provides the unbounded FIFO queues that carry work between
// the chat worker goroutine and whoever polls the client.
package mailbox

import (
	"sync"

	"github.com/eapache/queue"
)

// Queue is an unbounded FIFO safe for one producer and one consumer (and, in
// practice, any number of either). Operations hold the lock only for the copy.
type Queue[T any] struct {
	mu sync.Mutex
	q  *queue.Queue
}

// NewQueue returns an empty queue.
func NewQueue[T any]() *Queue[T] {
	return &Queue[T]{q: queue.New()}
}

// Enqueue appends one item.
func (q *Queue[T]) Enqueue(v T) {
	q.mu.Lock()
	q.q.Add(v)
	q.mu.Unlock()
}

// EnqueueAll appends items as one batch; a consumer never observes half of it.
func (q *Queue[T]) EnqueueAll(items []T) {
	if len(items) == 0 {
		return
	}
	q.mu.Lock()
	for _, v := range items {
		q.q.Add(v)
	}
	q.mu.Unlock()
}

// TryDequeue removes the oldest item. ok is false when the queue is empty.
func (q *Queue[T]) TryDequeue() (v T, ok bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.q.Length() == 0 {
		return v, false
	}
	return q.q.Remove().(T), true
}

// DrainAll removes and returns everything currently queued, oldest first.
func (q *Queue[T]) DrainAll() []T {
	q.mu.Lock()
	defer q.mu.Unlock()
	n := q.q.Length()
	if n == 0 {
		return nil
	}
	out := make([]T, 0, n)
	for q.q.Length() > 0 {
		out = append(out, q.q.Remove().(T))
	}
	return out
}

// Len reports the number of queued items.
func (q *Queue[T]) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.q.Length()
}

// Mailbox bundles the three queues shared by a worker and its client: chat
// messages in, requests out, and status events in.
type Mailbox[In, Out, Status any] struct {
	Inbound  *Queue[In]
	Outbound *Queue[Out]
	Events   *Queue[Status]
}

// New allocates a mailbox with empty queues.
func New[In, Out, Status any]() *Mailbox[In, Out, Status] {
	return &Mailbox[In, Out, Status]{
		Inbound:  NewQueue[In](),
		Outbound: NewQueue[Out](),
		Events:   NewQueue[Status](),
	}
}
