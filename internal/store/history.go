package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"entgo.io/ent/dialect"
	entsql "entgo.io/ent/dialect/sql"

	"github.com/abhisek/questsync/internal/logsync"
)

const syncRunsTable = "sync_runs"

var syncRunColumns = []string{
	"id", "sequence", "batch_id", "source", "applied_at", "historical",
	"events", "started", "completed", "failed", "auto_completed", "suppressed",
	"alternative_groups", "unmatched", "errors", "pending",
}

type historyRepo struct {
	drv *entsql.Driver
	seq *sequenceCounter
}

func (r *historyRepo) Append(ctx context.Context, run *SyncRun) error {
	unmatched, err := encodeList(run.Unmatched)
	if err != nil {
		return err
	}
	errs, err := encodeList(run.Errors)
	if err != nil {
		return err
	}
	pending, err := encodeList(run.Pending)
	if err != nil {
		return err
	}
	seq, err := r.seq.Next(ctx)
	if err != nil {
		return &PersistenceError{Op: "append sync run", Err: err}
	}

	query, args := entsql.Dialect(dialect.SQLite).
		Insert(syncRunsTable).
		Columns(syncRunColumns[1:]...).
		Values(
			seq, run.BatchID, run.Source, run.AppliedAt.UnixNano(), run.Historical,
			run.Events, run.Started, run.Completed, run.Failed, run.AutoCompleted, run.Suppressed,
			run.AlternativeGroups, unmatched, errs, pending,
		).
		Query()
	var res sql.Result
	if err := r.drv.Exec(ctx, query, args, &res); err != nil {
		return &PersistenceError{Op: "append sync run", Err: err}
	}
	if id, err := res.LastInsertId(); err == nil {
		run.ID = int(id)
	}
	run.Sequence = seq
	return nil
}

func (r *historyRepo) Recent(ctx context.Context, opts QueryOpts) ([]SyncRun, error) {
	b := entsql.Dialect(dialect.SQLite)
	sel := b.Select(syncRunColumns...).
		From(b.Table(syncRunsTable)).
		OrderBy(entsql.Desc("sequence"))
	if opts.After > 0 {
		sel.Where(entsql.GT("sequence", opts.After))
	}
	if opts.Source != "" {
		sel.Where(entsql.EQ("source", opts.Source))
	}
	if opts.Limit > 0 {
		sel.Limit(opts.Limit)
	}
	query, args := sel.Query()

	rows := &entsql.Rows{}
	if err := r.drv.Query(ctx, query, args, rows); err != nil {
		return nil, &PersistenceError{Op: "query sync runs", Err: err}
	}
	defer rows.Close()

	var runs []SyncRun
	for rows.Next() {
		var (
			run                      SyncRun
			appliedAt                int64
			unmatched, errs, pending string
			err                      error
		)
		if err = rows.Scan(
			&run.ID, &run.Sequence, &run.BatchID, &run.Source, &appliedAt, &run.Historical,
			&run.Events, &run.Started, &run.Completed, &run.Failed, &run.AutoCompleted, &run.Suppressed,
			&run.AlternativeGroups, &unmatched, &errs, &pending,
		); err != nil {
			return nil, &PersistenceError{Op: "scan sync run", Err: err}
		}
		run.AppliedAt = time.Unix(0, appliedAt)
		if run.Unmatched, err = decodeList(unmatched); err != nil {
			return nil, err
		}
		if run.Errors, err = decodeList(errs); err != nil {
			return nil, err
		}
		if run.Pending, err = decodeList(pending); err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, &PersistenceError{Op: "query sync runs", Err: err}
	}
	return runs, nil
}

// RecordSync stores the summary of an applied batch. It implements
// logsync.Recorder.
func (s *Store) RecordSync(ctx context.Context, res *logsync.Result) error {
	return s.HistoryRepo().Append(ctx, RunFromResult(res))
}

// RunFromResult converts a sync result into its stored form.
func RunFromResult(res *logsync.Result) *SyncRun {
	return &SyncRun{
		BatchID:           res.BatchID,
		Source:            res.Source,
		AppliedAt:         res.AppliedAt,
		Historical:        res.Historical,
		Events:            res.TotalEventsFound,
		Started:           res.QuestsStarted,
		Completed:         res.QuestsCompleted,
		Failed:            res.QuestsFailed,
		AutoCompleted:     res.PrerequisitesAutoCompleted,
		Suppressed:        res.SuppressedEvents,
		AlternativeGroups: len(res.AlternativeQuestGroups),
		Unmatched:         res.UnmatchedQuestIDs,
		Errors:            res.ErrorStrings(),
		Pending:           res.PendingConfirmations,
	}
}

func encodeList(list []string) (string, error) {
	if list == nil {
		list = []string{}
	}
	b, err := json.Marshal(list)
	if err != nil {
		return "", fmt.Errorf("encode list: %w", err)
	}
	return string(b), nil
}

func decodeList(s string) ([]string, error) {
	var out []string
	if err := json.Unmarshal([]byte(s), &out); err != nil {
		return nil, fmt.Errorf("decode list: %w", err)
	}
	if len(out) == 0 {
		return nil, nil
	}
	return out, nil
}
