package logsync

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
)

// ErrQueueClosed is returned by Enqueue after Close.
var ErrQueueClosed = errors.New("sync queue closed")

// Batch is a set of lines read from one source in a single pass.
type Batch struct {
	Source string
	Lines  []string
}

// Queue applies batches one at a time in arrival order on a single
// goroutine, so background deliverers never interleave against the store.
type Queue struct {
	o        *Orchestrator
	ch       chan Batch
	onResult func(*Result)

	mu       sync.RWMutex
	closed   bool
	stop     chan struct{}
	stopOnce sync.Once
	started  atomic.Bool
	done     chan struct{}
}

// NewQueue creates a queue holding up to size pending batches. onResult,
// if set, is called on the queue goroutine after each batch.
func NewQueue(o *Orchestrator, size int, onResult func(*Result)) *Queue {
	if size < 1 {
		size = 1
	}
	return &Queue{
		o:        o,
		ch:       make(chan Batch, size),
		onResult: onResult,
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
	}
}

// Run drains the queue until Close is called and all pending batches are
// applied, or ctx is cancelled. Batches still pending when ctx is cancelled
// are dropped. Call it once.
func (q *Queue) Run(ctx context.Context) {
	q.started.Store(true)
	defer close(q.done)
	for {
		select {
		case <-ctx.Done():
			return
		case b, ok := <-q.ch:
			if !ok {
				return
			}
			res := q.o.ApplyLines(ctx, b.Source, b.Lines)
			if q.onResult != nil {
				q.onResult(res)
			}
		}
	}
}

// Enqueue adds a batch, blocking while the queue is full. It returns
// ErrQueueClosed once Close was called or Run has returned.
func (q *Queue) Enqueue(ctx context.Context, b Batch) error {
	q.mu.RLock()
	defer q.mu.RUnlock()
	if q.closed {
		return ErrQueueClosed
	}
	select {
	case <-q.done:
		return ErrQueueClosed
	default:
	}
	select {
	case q.ch <- b:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-q.stop:
		return ErrQueueClosed
	case <-q.done:
		return ErrQueueClosed
	}
}

// Close stops accepting batches, releases blocked senders and, if Run was
// started, waits for it to return. The backlog is applied first unless
// Run's context was already cancelled.
func (q *Queue) Close() {
	q.stopOnce.Do(func() { close(q.stop) })
	q.mu.Lock()
	if !q.closed {
		q.closed = true
		close(q.ch)
	}
	q.mu.Unlock()
	if q.started.Load() {
		<-q.done
	}
}
