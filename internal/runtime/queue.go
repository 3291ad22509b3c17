package runtime

import (
	"context"
	"sync"
)

// Queue runs tasks one at a time in submission order.
// A caller that gives up waiting keeps its place, so later tasks still
// start only after every earlier task has finished or been abandoned.
type Queue struct {
	mu      sync.Mutex
	tail    chan struct{}
	pending int
	onDepth func(int)
}

// NewQueue creates an idle queue. onDepth, if set, observes the number of
// queued or running tasks.
func NewQueue(onDepth func(int)) *Queue {
	tail := make(chan struct{})
	close(tail)
	return &Queue{tail: tail, onDepth: onDepth}
}

// Do waits for every previously submitted task, then runs fn.
// If ctx is done first, fn never runs and ctx.Err() is returned.
func (q *Queue) Do(ctx context.Context, fn func(context.Context) error) error {
	done := make(chan struct{})
	q.mu.Lock()
	prev := q.tail
	q.tail = done
	q.pending++
	q.observe()
	q.mu.Unlock()

	defer func() {
		q.mu.Lock()
		q.pending--
		q.observe()
		q.mu.Unlock()
	}()

	select {
	case <-prev:
	case <-ctx.Done():
		go func() {
			<-prev
			close(done)
		}()
		return ctx.Err()
	}
	defer close(done)
	return fn(ctx)
}

// Len returns the number of queued or running tasks.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.pending
}

func (q *Queue) observe() {
	if q.onDepth != nil {
		q.onDepth(q.pending)
	}
}
