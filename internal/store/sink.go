package store

import (
	"context"
	"time"

	"github.com/abhisek/questsync/internal/progress"
)

// DefaultSnapshotKeep is how many progress snapshots a ProgressSink retains.
const DefaultSnapshotKeep = 20

// ProgressSink persists progress as snapshots. It implements progress.Sink.
type ProgressSink struct {
	repo SnapshotRepo
	keep int
	now  func() time.Time
}

// NewProgressSink creates a sink over s keeping the newest keep snapshots.
// keep <= 0 disables pruning.
func NewProgressSink(s *Store, keep int) *ProgressSink {
	return &ProgressSink{repo: s.SnapshotRepo(), keep: keep, now: time.Now}
}

// Load returns the latest saved progress, or an empty state.
func (p *ProgressSink) Load(ctx context.Context) (progress.State, error) {
	snap, err := p.repo.Latest(ctx)
	if err != nil {
		return progress.State{}, err
	}
	if snap == nil {
		return progress.NewState(), nil
	}
	return snap.State, nil
}

// Save appends a snapshot of s and prunes old ones.
func (p *ProgressSink) Save(ctx context.Context, s progress.State) error {
	if err := p.repo.Save(ctx, &Snapshot{Timestamp: p.now(), State: s}); err != nil {
		return err
	}
	if p.keep > 0 {
		return p.repo.Prune(ctx, p.keep)
	}
	return nil
}
