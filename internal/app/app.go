// Package app wires the catalog, graph, progress store and sync
// orchestrator into one engine with explicit dependencies.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/abhisek/questsync/internal/alternatives"
	"github.com/abhisek/questsync/internal/catalog"
	"github.com/abhisek/questsync/internal/logging"
	"github.com/abhisek/questsync/internal/logparse"
	"github.com/abhisek/questsync/internal/logsync"
	"github.com/abhisek/questsync/internal/metrics"
	"github.com/abhisek/questsync/internal/progress"
	"github.com/abhisek/questsync/internal/questgraph"
	"github.com/abhisek/questsync/internal/status"
)

// ErrNotAlternative is returned when a choice names a task outside any
// alternative group.
var ErrNotAlternative = errors.New("task is not part of an alternative group")

// Options holds the collaborators of an Engine. Catalog is required.
type Options struct {
	Catalog  *catalog.Catalog
	Sink     progress.Sink
	Level    status.LevelSource
	Recorder logsync.Recorder
	Metrics  *metrics.Metrics
	Logger   *slog.Logger
}

// Engine is built once per process and passed to whoever needs it.
type Engine struct {
	cat      *catalog.Catalog
	graph    *questgraph.Graph
	store    *progress.Store
	resolver *status.Resolver
	alts     *alternatives.Resolver
	sync     *logsync.Orchestrator
	logger   *slog.Logger
}

// New builds an Engine and restores saved progress. A failed load is
// logged and the engine starts empty.
func New(ctx context.Context, opts Options) (*Engine, error) {
	if opts.Catalog == nil {
		return nil, errors.New("app: catalog is required")
	}
	logger := logging.OrDiscard(opts.Logger)

	graph := questgraph.New(opts.Catalog, logger.With("component", "graph"))
	store := progress.NewStore(graph, opts.Sink, logger.With("component", "progress"))
	_ = store.Load(ctx)

	resolver := status.NewResolver(graph, opts.Level)
	alts := alternatives.NewResolver(graph, resolver)
	orch := logsync.New(store, graph, alts, logsync.Options{
		Metrics:  opts.Metrics,
		Recorder: opts.Recorder,
		Logger:   logger.With("component", "sync"),
	})

	return &Engine{
		cat:      opts.Catalog,
		graph:    graph,
		store:    store,
		resolver: resolver,
		alts:     alts,
		sync:     orch,
		logger:   logger,
	}, nil
}

func (e *Engine) Catalog() *catalog.Catalog                 { return e.cat }
func (e *Engine) Graph() *questgraph.Graph                  { return e.graph }
func (e *Engine) Orchestrator() *logsync.Orchestrator       { return e.sync }
func (e *Engine) State() progress.State                     { return e.store.State() }
func (e *Engine) Subscribe(fn func(progress.Change)) func() { return e.store.Subscribe(fn) }

// Lookup resolves an id, alias or task name to a catalog record.
func (e *Engine) Lookup(ref string) (catalog.TaskRecord, error) {
	rec, ok := e.cat.FindByName(ref)
	if !ok {
		return catalog.TaskRecord{}, &progress.UnresolvedReferenceError{ID: ref}
	}
	return rec, nil
}

// Status returns the derived status of one task.
func (e *Engine) Status(id string) (status.Status, error) {
	if !e.cat.Has(id) {
		return status.Locked, &progress.UnresolvedReferenceError{ID: id}
	}
	return e.resolver.Status(e.store.State(), id), nil
}

// Statuses returns the derived status of every task.
func (e *Engine) Statuses() map[string]status.Status {
	return e.resolver.Snapshot(e.store.State())
}

func (e *Engine) CompleteTask(ctx context.Context, id string, autoPrereqs bool) (progress.Result, error) {
	return e.store.CompleteTask(ctx, id, autoPrereqs)
}

func (e *Engine) StartTask(ctx context.Context, id string) (progress.Result, error) {
	return e.store.StartTask(ctx, id, true)
}

func (e *Engine) FailTask(ctx context.Context, id string) (progress.Result, error) {
	return e.store.FailTask(ctx, id)
}

func (e *Engine) ResetTask(ctx context.Context, id string) (progress.Result, error) {
	return e.store.ResetTask(ctx, id)
}

func (e *Engine) SetObjectiveCompleted(ctx context.Context, id string, index int, done bool) error {
	return e.store.SetObjectiveCompleted(ctx, id, index, done)
}

// Choice is the outcome of an explicit alternative decision.
type Choice struct {
	Group   string
	Chosen  progress.Result
	Cleared []string // other members whose markers were removed
}

// ChooseAlternative records a human decision for the alternative group of
// id: id is completed with its prerequisites and the markers of the other
// members are cleared. Other members are never marked failed.
func (e *Engine) ChooseAlternative(ctx context.Context, id string) (Choice, error) {
	primary := e.cat.Resolve(id)
	if !e.cat.Has(primary) {
		return Choice{}, &progress.UnresolvedReferenceError{ID: id}
	}
	g, ok := e.cat.GroupOf(primary)
	if !ok {
		return Choice{}, fmt.Errorf("%s: %w", primary, ErrNotAlternative)
	}

	res, err := e.store.CompleteTask(ctx, primary, true)
	if err != nil {
		return Choice{}, err
	}
	choice := Choice{Group: g.ID, Chosen: res}
	for _, m := range g.Members {
		if m == primary {
			continue
		}
		r, err := e.store.ResetTask(ctx, m)
		if err != nil {
			return choice, err
		}
		if r.Changed {
			choice.Cleared = append(choice.Cleared, m)
		}
	}
	e.logger.Info("alternative chosen", "group", g.ID, "task", primary, "cleared", choice.Cleared)
	return choice, nil
}

// ApplySync parses and applies lines read from source.
func (e *Engine) ApplySync(ctx context.Context, source string, lines []string) *logsync.Result {
	return e.sync.ApplyLines(ctx, source, lines)
}

// ApplyEvents applies already parsed events.
func (e *Engine) ApplyEvents(ctx context.Context, source string, events []logparse.Event) *logsync.Result {
	return e.sync.ApplyEvents(ctx, source, events)
}

// PendingAlternatives lists every alternative group with a started,
// completed or conflicting member.
func (e *Engine) PendingAlternatives() []alternatives.Group {
	st := e.store.State()
	var touched []string
	for _, g := range e.cat.Groups() {
		for _, m := range g.Members {
			if st.IsCompleted(m) || st.IsInProgress(m) {
				touched = append(touched, m)
			}
		}
	}
	return e.alts.Resolve(touched, nil, st)
}

func (e *Engine) AllPrerequisites(id string) []string { return e.graph.AllPrerequisites(id) }
func (e *Engine) DirectFollowUps(id string) []string  { return e.graph.DirectFollowUps(id) }
func (e *Engine) OptimalPath(id string) []string      { return e.graph.OptimalPath(id) }
func (e *Engine) KappaPath() []string                 { return e.graph.KappaPath() }

func (e *Engine) DetectCircularDependencies() [][]string {
	return e.graph.DetectCircularDependencies()
}

// KappaProgress counts done tasks in the endgame set.
func (e *Engine) KappaProgress() (done, total int) {
	st := e.store.State()
	for _, id := range e.graph.KappaSet() {
		total++
		if st.IsCompleted(id) {
			done++
		}
	}
	return done, total
}
