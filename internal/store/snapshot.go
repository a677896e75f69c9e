package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"entgo.io/ent/dialect"
	entsql "entgo.io/ent/dialect/sql"

	"github.com/abhisek/questsync/internal/progress"
)

const snapshotsTable = "progress_snapshots"

// snapshotRepo implements SnapshotRepo with ent's SQL builders.
type snapshotRepo struct {
	drv *entsql.Driver
	seq *sequenceCounter
}

func (r *snapshotRepo) Save(ctx context.Context, snap *Snapshot) error {
	data, err := progress.Marshal(snap.State)
	if err != nil {
		return fmt.Errorf("marshal snapshot data: %w", err)
	}
	seq, err := r.seq.Next(ctx)
	if err != nil {
		return &PersistenceError{Op: "save snapshot", Err: err}
	}
	if snap.Timestamp.IsZero() {
		snap.Timestamp = time.Now()
	}

	query, args := entsql.Dialect(dialect.SQLite).
		Insert(snapshotsTable).
		Columns("sequence", "created_at", "data").
		Values(seq, snap.Timestamp.UnixNano(), string(data)).
		Query()
	var res sql.Result
	if err := r.drv.Exec(ctx, query, args, &res); err != nil {
		return &PersistenceError{Op: "save snapshot", Err: err}
	}
	if id, err := res.LastInsertId(); err == nil {
		snap.ID = int(id)
	}
	snap.Sequence = seq
	return nil
}

func (r *snapshotRepo) Latest(ctx context.Context) (*Snapshot, error) {
	b := entsql.Dialect(dialect.SQLite)
	query, args := b.Select("id", "sequence", "created_at", "data").
		From(b.Table(snapshotsTable)).
		OrderBy(entsql.Desc("sequence")).
		Limit(1).
		Query()

	rows := &entsql.Rows{}
	if err := r.drv.Query(ctx, query, args, rows); err != nil {
		return nil, &PersistenceError{Op: "query latest snapshot", Err: err}
	}
	defer rows.Close()

	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return nil, &PersistenceError{Op: "query latest snapshot", Err: err}
		}
		return nil, nil
	}
	var (
		snap    Snapshot
		created int64
		data    string
	)
	if err := rows.Scan(&snap.ID, &snap.Sequence, &created, &data); err != nil {
		return nil, &PersistenceError{Op: "scan snapshot", Err: err}
	}
	st, err := progress.Unmarshal([]byte(data))
	if err != nil {
		return nil, fmt.Errorf("unmarshal snapshot data: %w", err)
	}
	snap.Timestamp = time.Unix(0, created)
	snap.State = st
	return &snap, nil
}

func (r *snapshotRepo) Prune(ctx context.Context, keep int) error {
	// Find the threshold: the sequence of the first snapshot past keep.
	b := entsql.Dialect(dialect.SQLite)
	query, args := b.Select("sequence").
		From(b.Table(snapshotsTable)).
		OrderBy(entsql.Desc("sequence")).
		Limit(1).
		Offset(keep).
		Query()

	rows := &entsql.Rows{}
	if err := r.drv.Query(ctx, query, args, rows); err != nil {
		return &PersistenceError{Op: "query snapshots for prune", Err: err}
	}
	var threshold int64
	found := rows.Next()
	if found {
		if err := rows.Scan(&threshold); err != nil {
			rows.Close()
			return &PersistenceError{Op: "scan prune threshold", Err: err}
		}
	}
	rows.Close()
	if !found {
		return nil // fewer than keep snapshots exist
	}

	query, args = entsql.Dialect(dialect.SQLite).
		Delete(snapshotsTable).
		Where(entsql.LTE("sequence", threshold)).
		Query()
	if err := r.drv.Exec(ctx, query, args, nil); err != nil {
		return &PersistenceError{Op: "prune snapshots", Err: err}
	}
	return nil
}
