package logwatch

import (
	"context"
	"log/slog"
	"time"

	"github.com/abhisek/questsync/internal/logging"
)

// DeliverFunc receives the lines read from source in one pass.
type DeliverFunc func(ctx context.Context, source string, lines []string)

// Watcher polls a set of files on an interval. The first pass over each
// file is always delivered, even when empty, so consumers can tell the
// existing backlog from lines appended later.
type Watcher struct {
	tailers  []*Tailer
	interval time.Duration
	deliver  DeliverFunc
	logger   *slog.Logger
}

func NewWatcher(paths []string, interval time.Duration, deliver DeliverFunc, logger *slog.Logger) *Watcher {
	w := &Watcher{
		interval: interval,
		deliver:  deliver,
		logger:   logging.OrDiscard(logger),
	}
	for _, p := range paths {
		w.tailers = append(w.tailers, NewTailer(p))
	}
	return w
}

// PollOnce runs one pass over every file.
func (w *Watcher) PollOnce(ctx context.Context) {
	for _, t := range w.tailers {
		first := !t.Polled()
		lines, err := t.Poll()
		if err != nil {
			w.logger.Warn("poll log failed", "path", t.Path(), "err", err)
			continue
		}
		if len(lines) == 0 && !first {
			continue
		}
		w.deliver(ctx, t.Path(), lines)
	}
}

// Run polls until ctx is cancelled.
func (w *Watcher) Run(ctx context.Context) error {
	w.PollOnce(ctx)
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			w.PollOnce(ctx)
		}
	}
}
