package logsync

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/abhisek/questsync/internal/catalog"
)

func TestQueue_AppliesInArrivalOrder(t *testing.T) {
	f := newFixture(t, []catalog.TaskRecord{{ID: "a"}, {ID: "b"}, {ID: "c"}})
	f.o.Parser().MarkLive("log.txt")

	var (
		mu   sync.Mutex
		seen []string
	)
	q := NewQueue(f.o, 1, func(r *Result) {
		mu.Lock()
		defer mu.Unlock()
		seen = append(seen, r.CompletedQuests...)
	})
	ctx := context.Background()
	go q.Run(ctx)

	for i, id := range []string{"a", "b", "c"} {
		lines := block("2024-01-05 10:00:01.000|", 12, id, int64(1704448801+i))
		require.NoError(t, q.Enqueue(ctx, Batch{Source: "log.txt", Lines: lines}))
	}
	q.Close()

	assert.Equal(t, []string{"a", "b", "c"}, seen)
	assert.ErrorIs(t, q.Enqueue(ctx, Batch{Source: "log.txt"}), ErrQueueClosed)
}

func TestQueue_CloseAfterCancelledRun(t *testing.T) {
	f := newFixture(t, []catalog.TaskRecord{{ID: "a"}})
	q := NewQueue(f.o, 1, nil)

	ctx, cancel := context.WithCancel(context.Background())
	go q.Run(ctx)
	cancel()
	<-q.done

	// Nothing drains the queue any more; senders must not block.
	errs := make(chan error, 2)
	go func() {
		for i := 0; i < 2; i++ {
			errs <- q.Enqueue(context.Background(), Batch{Source: "log.txt"})
		}
	}()
	for i := 0; i < 2; i++ {
		select {
		case err := <-errs:
			assert.ErrorIs(t, err, ErrQueueClosed)
		case <-time.After(time.Second):
			t.Fatal("Enqueue blocked after Run returned")
		}
	}

	closed := make(chan struct{})
	go func() {
		q.Close()
		close(closed)
	}()
	select {
	case <-closed:
	case <-time.After(time.Second):
		t.Fatal("Close did not return")
	}
}

func TestQueue_CloseReleasesBlockedSender(t *testing.T) {
	f := newFixture(t, []catalog.TaskRecord{{ID: "a"}})
	q := NewQueue(f.o, 1, nil)
	ctx := context.Background()

	require.NoError(t, q.Enqueue(ctx, Batch{Source: "log.txt"}))
	blocked := make(chan error, 1)
	go func() {
		blocked <- q.Enqueue(ctx, Batch{Source: "log.txt"})
	}()

	q.Close()
	select {
	case err := <-blocked:
		assert.ErrorIs(t, err, ErrQueueClosed)
	case <-time.After(time.Second):
		t.Fatal("blocked Enqueue was not released by Close")
	}
}
