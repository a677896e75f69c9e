package store

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/abhisek/questsync/internal/logsync"
	"github.com/abhisek/questsync/internal/progress"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "questsync.db"))
	if err != nil {
		t.Fatalf("open test store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func sampleState() progress.State {
	st := progress.NewState()
	st.Completed["a"] = true
	st.Failed["b"] = true
	st.InProgress["c"] = true
	st.Objectives[progress.ObjectiveKey("c", 1)] = true
	return st
}

func countRows(t *testing.T, s *Store, table string) int {
	t.Helper()
	var n int
	if err := s.DB().QueryRow("SELECT COUNT(*) FROM " + table).Scan(&n); err != nil {
		t.Fatalf("count %s: %v", table, err)
	}
	return n
}

func TestPragmasApplied(t *testing.T) {
	s := openTestStore(t)
	db := s.DB()

	tests := []struct {
		pragma string
		want   string
	}{
		{"journal_mode", "wal"},
		{"foreign_keys", "1"},
		{"synchronous", "1"}, // NORMAL = 1
	}

	for _, tt := range tests {
		var got string
		err := db.QueryRow("PRAGMA " + tt.pragma).Scan(&got)
		if err != nil {
			t.Errorf("PRAGMA %s: %v", tt.pragma, err)
			continue
		}
		if got != tt.want {
			t.Errorf("PRAGMA %s = %q, want %q", tt.pragma, got, tt.want)
		}
	}
}

func TestMigrationCreatesTables(t *testing.T) {
	s := openTestStore(t)
	for _, table := range []string{snapshotsTable, syncRunsTable, "global_sequence"} {
		var name string
		err := s.DB().QueryRow(
			"SELECT name FROM sqlite_master WHERE type='table' AND name=?", table,
		).Scan(&name)
		if err != nil {
			t.Fatalf("query sqlite_master for %s: %v", table, err)
		}
	}
}

func TestSnapshotSaveAndLatest(t *testing.T) {
	s := openTestStore(t)
	repo := s.SnapshotRepo()
	ctx := context.Background()

	snap, err := repo.Latest(ctx)
	if err != nil {
		t.Fatalf("latest (empty): %v", err)
	}
	if snap != nil {
		t.Fatal("expected nil snapshot when none exist")
	}

	now := time.Now().UTC().Truncate(time.Second)
	saved := &Snapshot{Timestamp: now, State: sampleState()}
	if err := repo.Save(ctx, saved); err != nil {
		t.Fatalf("save: %v", err)
	}
	if saved.Sequence == 0 || saved.ID == 0 {
		t.Fatalf("save did not assign ids: %+v", saved)
	}

	snap, err = repo.Latest(ctx)
	if err != nil {
		t.Fatalf("latest: %v", err)
	}
	if snap == nil {
		t.Fatal("expected non-nil snapshot")
	}
	if snap.Sequence != saved.Sequence {
		t.Errorf("sequence = %d, want %d", snap.Sequence, saved.Sequence)
	}
	if !snap.Timestamp.Equal(now) {
		t.Errorf("timestamp = %v, want %v", snap.Timestamp, now)
	}
	if !snap.State.Equal(sampleState()) {
		t.Errorf("state = %+v, want %+v", snap.State, sampleState())
	}
}

func TestSnapshotPrune(t *testing.T) {
	s := openTestStore(t)
	repo := s.SnapshotRepo()
	ctx := context.Background()

	var last int64
	for i := 0; i < 7; i++ {
		snap := &Snapshot{State: progress.NewState()}
		if err := repo.Save(ctx, snap); err != nil {
			t.Fatalf("save %d: %v", i, err)
		}
		last = snap.Sequence
	}

	if err := repo.Prune(ctx, 5); err != nil {
		t.Fatalf("prune: %v", err)
	}
	if n := countRows(t, s, snapshotsTable); n != 5 {
		t.Errorf("remaining snapshots = %d, want 5", n)
	}

	snap, err := repo.Latest(ctx)
	if err != nil {
		t.Fatalf("latest: %v", err)
	}
	if snap.Sequence != last {
		t.Errorf("latest sequence = %d, want %d", snap.Sequence, last)
	}
}

func TestSnapshotPruneWithFewerThanKeep(t *testing.T) {
	s := openTestStore(t)
	repo := s.SnapshotRepo()
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		if err := repo.Save(ctx, &Snapshot{State: progress.NewState()}); err != nil {
			t.Fatalf("save %d: %v", i, err)
		}
	}
	if err := repo.Prune(ctx, 5); err != nil {
		t.Fatalf("prune: %v", err)
	}
	if n := countRows(t, s, snapshotsTable); n != 2 {
		t.Errorf("remaining snapshots = %d, want 2", n)
	}
}

func TestProgressSinkRoundTrip(t *testing.T) {
	s := openTestStore(t)
	sink := NewProgressSink(s, 3)
	ctx := context.Background()

	st, err := sink.Load(ctx)
	if err != nil {
		t.Fatalf("load (empty): %v", err)
	}
	if !st.Equal(progress.NewState()) {
		t.Fatalf("empty load = %+v", st)
	}

	for i := 0; i < 4; i++ {
		if err := sink.Save(ctx, progress.NewState()); err != nil {
			t.Fatalf("save %d: %v", i, err)
		}
	}
	want := sampleState()
	if err := sink.Save(ctx, want); err != nil {
		t.Fatalf("save: %v", err)
	}

	got, err := sink.Load(ctx)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if !got.Equal(want) {
		t.Errorf("load = %+v, want %+v", got, want)
	}
	if n := countRows(t, s, snapshotsTable); n != 3 {
		t.Errorf("retained snapshots = %d, want 3", n)
	}
}

func TestProgressSinkSurvivesReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "questsync.db")
	ctx := context.Background()

	s, err := Open(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if err := NewProgressSink(s, DefaultSnapshotKeep).Save(ctx, sampleState()); err != nil {
		t.Fatalf("save: %v", err)
	}
	s.Close()

	s, err = Open(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer s.Close()
	got, err := NewProgressSink(s, DefaultSnapshotKeep).Load(ctx)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if !got.Equal(sampleState()) {
		t.Errorf("load after reopen = %+v", got)
	}
}

func TestSequenceCounter(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	sc, err := newSequenceCounter(s.DB())
	if err != nil {
		t.Fatalf("new sequence counter: %v", err)
	}

	var prev int64
	for i := 0; i < 5; i++ {
		seq, err := sc.Next(ctx)
		if err != nil {
			t.Fatalf("next %d: %v", i, err)
		}
		if seq <= prev {
			t.Errorf("seq[%d] = %d, not greater than %d", i, seq, prev)
		}
		prev = seq
	}
}

func TestHistoryAppendAndRecent(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	base := time.Unix(1704448800, 0)

	for i, src := range []string{"a.log", "b.log", "a.log"} {
		res := &logsync.Result{
			BatchID:           "batch-" + string(rune('0'+i)),
			Source:            src,
			AppliedAt:         base.Add(time.Duration(i) * time.Minute),
			TotalEventsFound:  i + 1,
			QuestsCompleted:   i,
			UnmatchedQuestIDs: []string{"zzz"},
			Errors:            []error{errors.New("bad payload")},
		}
		if err := s.RecordSync(ctx, res); err != nil {
			t.Fatalf("record %d: %v", i, err)
		}
	}

	runs, err := s.HistoryRepo().Recent(ctx, QueryOpts{})
	if err != nil {
		t.Fatalf("recent: %v", err)
	}
	if len(runs) != 3 {
		t.Fatalf("runs = %d, want 3", len(runs))
	}
	if runs[0].BatchID != "batch-2" {
		t.Errorf("newest batch = %q, want batch-2", runs[0].BatchID)
	}
	if runs[0].Events != 3 || runs[0].Completed != 2 {
		t.Errorf("newest counts = %+v", runs[0])
	}
	if !runs[0].AppliedAt.Equal(base.Add(2 * time.Minute)) {
		t.Errorf("applied at = %v", runs[0].AppliedAt)
	}
	if len(runs[0].Unmatched) != 1 || runs[0].Unmatched[0] != "zzz" {
		t.Errorf("unmatched = %v", runs[0].Unmatched)
	}
	if len(runs[0].Errors) != 1 || runs[0].Errors[0] != "bad payload" {
		t.Errorf("errors = %v", runs[0].Errors)
	}
	if runs[0].Pending != nil {
		t.Errorf("pending = %v, want nil", runs[0].Pending)
	}

	bySource, err := s.HistoryRepo().Recent(ctx, QueryOpts{Source: "a.log", Limit: 1})
	if err != nil {
		t.Fatalf("recent by source: %v", err)
	}
	if len(bySource) != 1 || bySource[0].BatchID != "batch-2" {
		t.Errorf("by source = %+v", bySource)
	}
}

func TestPersistenceErrorAfterClose(t *testing.T) {
	s, err := Open(filepath.Join(t.TempDir(), "questsync.db"))
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	s.Close()

	_, err = s.SnapshotRepo().Latest(context.Background())
	if !IsPersistenceError(err) {
		t.Fatalf("err = %v, want PersistenceError", err)
	}
}

func TestDefaultDBPathFromEnv(t *testing.T) {
	want := filepath.Join(t.TempDir(), "nested", "q.db")
	t.Setenv("QUESTSYNC_DB", want)
	got, err := DefaultDBPath()
	if err != nil {
		t.Fatalf("default path: %v", err)
	}
	if got != want {
		t.Errorf("path = %q, want %q", got, want)
	}
}

func TestDefaultDBPathXDG(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("QUESTSYNC_DB", "")
	t.Setenv("XDG_DATA_HOME", dir)
	got, err := DefaultDBPath()
	if err != nil {
		t.Fatalf("default path: %v", err)
	}
	if want := filepath.Join(dir, "questsync", "questsync.db"); got != want {
		t.Errorf("path = %q, want %q", got, want)
	}
}
