package store

import (
	"context"
	"time"

	"github.com/abhisek/questsync/internal/progress"
)

// QueryOpts configures history queries with filtering and pagination.
type QueryOpts struct {
	Limit  int    // max results (0 = unlimited)
	After  int64  // sequence > After
	Source string // exact source match when set
}

// Snapshot is a point-in-time capture of progress.
type Snapshot struct {
	ID        int
	Sequence  int64
	Timestamp time.Time
	State     progress.State
}

// SnapshotRepo manages progress snapshots.
type SnapshotRepo interface {
	// Save stores a new snapshot and assigns its sequence.
	Save(ctx context.Context, snap *Snapshot) error

	// Latest returns the most recent snapshot, or nil if none exist.
	Latest(ctx context.Context) (*Snapshot, error)

	// Prune deletes all but the N most recent snapshots.
	Prune(ctx context.Context, keep int) error
}

// SyncRun is the stored summary of one applied sync batch.
type SyncRun struct {
	ID                int
	Sequence          int64
	BatchID           string
	Source            string
	AppliedAt         time.Time
	Historical        bool
	Events            int
	Started           int
	Completed         int
	Failed            int
	AutoCompleted     int
	Suppressed        int
	AlternativeGroups int
	Unmatched         []string
	Errors            []string
	Pending           []string
}

// HistoryRepo records sync runs.
type HistoryRepo interface {
	Append(ctx context.Context, run *SyncRun) error

	// Recent returns runs newest first.
	Recent(ctx context.Context, opts QueryOpts) ([]SyncRun, error)
}
