// Package logsync applies quest lifecycle evidence from game logs to the
// progress store.
package logsync

import (
	"context"
	"log/slog"
	"slices"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/abhisek/questsync/internal/alternatives"
	"github.com/abhisek/questsync/internal/logging"
	"github.com/abhisek/questsync/internal/logparse"
	"github.com/abhisek/questsync/internal/metrics"
	"github.com/abhisek/questsync/internal/progress"
	"github.com/abhisek/questsync/internal/questgraph"
)

// Recorder keeps a history of applied batches.
type Recorder interface {
	RecordSync(ctx context.Context, r *Result) error
}

// Options configures optional collaborators of an Orchestrator.
type Options struct {
	Parser   *logparse.Parser // nil creates a private parser
	Metrics  *metrics.Metrics
	Recorder Recorder
	Logger   *slog.Logger
	Now      func() time.Time
}

// Orchestrator applies one batch at a time against a single store.
type Orchestrator struct {
	mu       sync.Mutex
	store    *progress.Store
	graph    *questgraph.Graph
	alts     *alternatives.Resolver
	parser   *logparse.Parser
	metrics  *metrics.Metrics
	recorder Recorder
	logger   *slog.Logger
	now      func() time.Time
}

func New(store *progress.Store, graph *questgraph.Graph, alts *alternatives.Resolver, opts Options) *Orchestrator {
	o := &Orchestrator{
		store:    store,
		graph:    graph,
		alts:     alts,
		parser:   opts.Parser,
		metrics:  opts.Metrics,
		recorder: opts.Recorder,
		logger:   logging.OrDiscard(opts.Logger),
		now:      opts.Now,
	}
	if o.parser == nil {
		o.parser = logparse.NewParser()
	}
	if o.now == nil {
		o.now = time.Now
	}
	return o
}

// Parser returns the parser that gates historical batches.
func (o *Orchestrator) Parser() *logparse.Parser {
	return o.parser
}

// ApplyLines parses lines from source and applies the resulting events.
// The first batch of a source is historical and applies nothing.
func (o *Orchestrator) ApplyLines(ctx context.Context, source string, lines []string) *Result {
	o.mu.Lock()
	defer o.mu.Unlock()

	started := o.now()
	pr := o.parser.Parse(source, lines)
	res := o.newResult(source, started)
	res.Historical = pr.Historical
	res.SuppressedEvents = pr.Suppressed
	for _, perr := range pr.Errors {
		res.Errors = append(res.Errors, perr)
	}
	o.applyLocked(ctx, res, pr.Events)
	o.finish(ctx, res, len(pr.Errors), started)
	return res
}

// ApplyEvents applies already parsed events.
func (o *Orchestrator) ApplyEvents(ctx context.Context, source string, events []logparse.Event) *Result {
	o.mu.Lock()
	defer o.mu.Unlock()

	started := o.now()
	res := o.newResult(source, started)
	o.applyLocked(ctx, res, events)
	o.finish(ctx, res, 0, started)
	return res
}

func (o *Orchestrator) newResult(source string, at time.Time) *Result {
	return &Result{
		BatchID:   uuid.NewString(),
		Source:    source,
		AppliedAt: at,
	}
}

func (o *Orchestrator) applyLocked(ctx context.Context, res *Result, events []logparse.Event) {
	events = slices.Clone(events)
	sort.SliceStable(events, func(i, j int) bool {
		return events[i].Timestamp.Before(events[j].Timestamp)
	})
	res.TotalEventsFound = len(events)

	cat := o.graph.Catalog()
	var touched []string
	seenTouched := make(map[string]bool)
	touch := func(ids ...string) {
		for _, id := range ids {
			if !seenTouched[id] {
				seenTouched[id] = true
				touched = append(touched, id)
			}
		}
	}
	triggered := make(map[string]bool)

	for _, ev := range events {
		id := cat.Resolve(ev.RawTaskID)
		if !cat.Has(id) {
			if !slices.Contains(res.UnmatchedQuestIDs, ev.RawTaskID) {
				res.UnmatchedQuestIDs = append(res.UnmatchedQuestIDs, ev.RawTaskID)
			}
			o.logger.Debug("unmatched quest id", "id", ev.RawTaskID, "source", ev.Source, "line", ev.SourceLine)
			continue
		}
		triggered[id] = true
		touch(id)

		var (
			r   progress.Result
			err error
		)
		switch ev.Type {
		case logparse.Started:
			r, err = o.store.StartTask(ctx, id, true)
			if err == nil {
				res.QuestsStarted++
				if r.Previous != progress.TaskDone {
					res.InProgressQuests = appendUnique(res.InProgressQuests, id)
				}
				if r.Changed && r.Previous == progress.TaskFailed {
					res.PendingConfirmations = appendUnique(res.PendingConfirmations, id)
				}
			}
		case logparse.Completed:
			r, err = o.store.CompleteTask(ctx, id, true)
			if err == nil {
				res.QuestsCompleted++
				res.CompletedQuests = appendUnique(res.CompletedQuests, id)
				if r.Previous == progress.TaskFailed {
					res.PendingConfirmations = appendUnique(res.PendingConfirmations, id)
				}
			}
		case logparse.Failed:
			r, err = o.store.FailTask(ctx, id)
			if err == nil {
				res.QuestsFailed++
				res.FailedQuests = appendUnique(res.FailedQuests, id)
				if r.Previous == progress.TaskDone {
					res.PendingConfirmations = appendUnique(res.PendingConfirmations, id)
				}
			}
		}
		if err != nil {
			res.Errors = append(res.Errors, err)
			continue
		}
		res.PrerequisitesAutoCompleted += len(r.AutoCompleted)
		touch(r.AutoCompleted...)
		touch(r.Deferred...)
	}

	res.AlternativeQuestGroups = o.alts.Resolve(touched, triggered, o.store.State())
}

func (o *Orchestrator) finish(ctx context.Context, res *Result, parseErrors int, started time.Time) {
	o.metrics.ObserveBatch(metrics.Batch{
		Started:           res.QuestsStarted,
		Completed:         res.QuestsCompleted,
		Failed:            res.QuestsFailed,
		Unmatched:         len(res.UnmatchedQuestIDs),
		ParseErrors:       parseErrors,
		Suppressed:        res.SuppressedEvents,
		AutoCompleted:     res.PrerequisitesAutoCompleted,
		AlternativeGroups: len(res.AlternativeQuestGroups),
		Duration:          o.now().Sub(started),
		At:                res.AppliedAt,
	})

	o.logger.Info("sync applied",
		"batch", res.BatchID,
		"source", res.Source,
		"historical", res.Historical,
		"events", res.TotalEventsFound,
		"started", res.QuestsStarted,
		"completed", res.QuestsCompleted,
		"failed", res.QuestsFailed,
		"auto_completed", res.PrerequisitesAutoCompleted,
		"unmatched", len(res.UnmatchedQuestIDs),
		"errors", len(res.Errors),
		"alternative_groups", len(res.AlternativeQuestGroups),
	)

	if o.recorder != nil {
		if err := o.recorder.RecordSync(ctx, res); err != nil {
			o.logger.Warn("record sync history failed", "batch", res.BatchID, "err", err)
		}
	}
}

func appendUnique(list []string, id string) []string {
	if slices.Contains(list, id) {
		return list
	}
	return append(list, id)
}
