package progress

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/abhisek/questsync/internal/logging"
	"github.com/abhisek/questsync/internal/questgraph"
)

// ErrUnknownObjective is returned when a task does not declare the objective index.
var ErrUnknownObjective = errors.New("unknown objective")

// UnresolvedReferenceError reports an id that does not resolve to a catalog task.
type UnresolvedReferenceError struct {
	ID string
}

func (e *UnresolvedReferenceError) Error() string {
	return fmt.Sprintf("unknown task %q", e.ID)
}

// ChangeKind tells subscribers what kind of progress changed.
type ChangeKind int

const (
	ProgressChanged ChangeKind = iota
	ObjectiveChanged
)

// Change is delivered to subscribers after a mutation took effect.
type Change struct {
	Kind           ChangeKind
	TaskIDs        []string
	ObjectiveIndex int
}

// Result describes the effect of a task mutation.
type Result struct {
	TaskID        string
	Changed       bool
	Previous      TaskState // "" when the task had no marker
	AutoCompleted []string  // prerequisites newly marked done
	Deferred      []string  // alternative-group prerequisites left for a human to pick
}

// Store holds the session's authoritative progress. Mutations are
// serialized; every effective mutation is saved through the sink on a
// best-effort basis and then announced to subscribers.
type Store struct {
	mu     sync.RWMutex
	state  State
	graph  *questgraph.Graph
	sink   Sink
	logger *slog.Logger

	subMu  sync.Mutex
	subs   map[int]func(Change)
	nextID int
}

// NewStore creates an empty store. Call Load to restore persisted progress.
func NewStore(graph *questgraph.Graph, sink Sink, logger *slog.Logger) *Store {
	return &Store{
		state:  NewState(),
		graph:  graph,
		sink:   sink,
		logger: logging.OrDiscard(logger),
		subs:   make(map[int]func(Change)),
	}
}

// Load replaces the in-memory state with the sink's. On failure the current
// state is kept and the error is logged and returned.
func (s *Store) Load(ctx context.Context) error {
	if s.sink == nil {
		return nil
	}
	st, err := s.sink.Load(ctx)
	if err != nil {
		s.logger.Warn("load progress failed; starting from in-memory state", "err", err)
		return fmt.Errorf("load progress: %w", err)
	}
	s.mu.Lock()
	s.state = st.Clone()
	s.mu.Unlock()
	return nil
}

// State returns a copy of the current progress.
func (s *Store) State() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.Clone()
}

func (s *Store) IsCompleted(id string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.Completed[id]
}

func (s *Store) IsFailed(id string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.Failed[id]
}

func (s *Store) IsInProgress(id string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.InProgress[id]
}

// Subscribe registers fn for change notifications and returns a function
// that removes it. fn runs on the mutating goroutine after the lock is
// released.
func (s *Store) Subscribe(fn func(Change)) func() {
	s.subMu.Lock()
	defer s.subMu.Unlock()
	id := s.nextID
	s.nextID++
	s.subs[id] = fn
	return func() {
		s.subMu.Lock()
		delete(s.subs, id)
		s.subMu.Unlock()
	}
}

func (s *Store) resolve(id string) (string, error) {
	cat := s.graph.Catalog()
	primary := cat.Resolve(id)
	if !cat.Has(primary) {
		return "", &UnresolvedReferenceError{ID: id}
	}
	return primary, nil
}

// CompleteTask marks id done. With autoPrereqs every transitive prerequisite
// that is not yet done is marked done first. Calling it again is a no-op.
func (s *Store) CompleteTask(ctx context.Context, id string, autoPrereqs bool) (Result, error) {
	id, err := s.resolve(id)
	if err != nil {
		return Result{}, err
	}

	s.mu.Lock()
	res := Result{TaskID: id, Previous: s.marker(id)}
	if autoPrereqs {
		res.AutoCompleted, res.Deferred = s.completePrereqsLocked(id)
	}
	if !s.state.Completed[id] {
		s.state.setCompleted(id)
		res.Changed = true
	}
	res.Changed = res.Changed || len(res.AutoCompleted) > 0
	s.mu.Unlock()

	if res.Changed {
		s.commit(ctx, Change{Kind: ProgressChanged, TaskIDs: append([]string{id}, res.AutoCompleted...)})
	}
	return res, nil
}

// StartTask marks id in progress unless it is already done. With
// autoPrereqs the prerequisite chain is completed as in CompleteTask, since
// a started task implies its prerequisites were satisfied in game.
func (s *Store) StartTask(ctx context.Context, id string, autoPrereqs bool) (Result, error) {
	id, err := s.resolve(id)
	if err != nil {
		return Result{}, err
	}

	s.mu.Lock()
	res := Result{TaskID: id, Previous: s.marker(id)}
	if s.state.Completed[id] {
		s.mu.Unlock()
		return res, nil
	}
	if autoPrereqs {
		res.AutoCompleted, res.Deferred = s.completePrereqsLocked(id)
	}
	if !s.state.InProgress[id] {
		delete(s.state.Failed, id)
		s.state.InProgress[id] = true
		res.Changed = true
	}
	res.Changed = res.Changed || len(res.AutoCompleted) > 0
	s.mu.Unlock()

	if res.Changed {
		s.commit(ctx, Change{Kind: ProgressChanged, TaskIDs: append([]string{id}, res.AutoCompleted...)})
	}
	return res, nil
}

// FailTask marks id failed. Prerequisites and follow-ups are untouched.
func (s *Store) FailTask(ctx context.Context, id string) (Result, error) {
	id, err := s.resolve(id)
	if err != nil {
		return Result{}, err
	}

	s.mu.Lock()
	res := Result{TaskID: id, Previous: s.marker(id)}
	if !s.state.Failed[id] {
		s.state.setFailed(id)
		res.Changed = true
	}
	s.mu.Unlock()

	if res.Changed {
		s.commit(ctx, Change{Kind: ProgressChanged, TaskIDs: []string{id}})
	}
	return res, nil
}

// ResetTask removes every marker from id so its status is derived again.
func (s *Store) ResetTask(ctx context.Context, id string) (Result, error) {
	id, err := s.resolve(id)
	if err != nil {
		return Result{}, err
	}

	s.mu.Lock()
	res := Result{TaskID: id, Previous: s.marker(id)}
	if res.Previous != "" {
		s.state.clear(id)
		res.Changed = true
	}
	s.mu.Unlock()

	if res.Changed {
		s.commit(ctx, Change{Kind: ProgressChanged, TaskIDs: []string{id}})
	}
	return res, nil
}

// SetObjectiveCompleted sets the completion flag of one objective.
func (s *Store) SetObjectiveCompleted(ctx context.Context, id string, index int, done bool) error {
	id, err := s.resolve(id)
	if err != nil {
		return err
	}
	rec, _ := s.graph.Catalog().Get(id)
	if !rec.HasObjective(index) {
		return fmt.Errorf("task %q objective %d: %w", id, index, ErrUnknownObjective)
	}

	key := ObjectiveKey(id, index)
	s.mu.Lock()
	changed := s.state.Objectives[key] != done
	if done {
		s.state.Objectives[key] = true
	} else {
		delete(s.state.Objectives, key)
	}
	s.mu.Unlock()

	if changed {
		s.commit(ctx, Change{Kind: ObjectiveChanged, TaskIDs: []string{id}, ObjectiveIndex: index})
	}
	return nil
}

// marker returns the persisted marker of id. Caller holds s.mu.
func (s *Store) marker(id string) TaskState {
	switch {
	case s.state.Completed[id]:
		return TaskDone
	case s.state.Failed[id]:
		return TaskFailed
	case s.state.InProgress[id]:
		return TaskStarted
	}
	return ""
}

// completePrereqsLocked walks the prerequisite closure of id breadth-first
// and marks what it reaches done. Done prerequisites are skipped without
// descending further. Failed ones keep their marker but are walked through.
// An alternative-group member is never guessed while no member of its group
// is done: the group is returned as deferred and the walk continues with the
// prerequisites every member of the group shares. Caller holds s.mu.
func (s *Store) completePrereqsLocked(id string) (auto, deferred []string) {
	cat := s.graph.Catalog()
	visited := map[string]bool{id: true}
	queue := s.graph.DirectPrerequisites(id)
	deferredGroups := make(map[string]bool)

	for len(queue) > 0 {
		p := queue[0]
		queue = queue[1:]
		if visited[p] {
			continue
		}
		visited[p] = true

		switch {
		case s.state.Completed[p]:
			continue
		case s.state.Failed[p]:
			queue = append(queue, s.graph.DirectPrerequisites(p)...)
			continue
		}
		if g, ok := cat.GroupOf(p); ok {
			if s.anyCompleted(g.Members) || deferredGroups[g.ID] {
				continue
			}
			deferredGroups[g.ID] = true
			deferred = append(deferred, p)
			queue = append(queue, s.sharedPrerequisites(g.Members)...)
			continue
		}
		s.state.setCompleted(p)
		auto = append(auto, p)
		queue = append(queue, s.graph.DirectPrerequisites(p)...)
	}
	return auto, deferred
}

// sharedPrerequisites returns the transitive prerequisites common to every
// member, in the closure order of the first member. Members are excluded.
func (s *Store) sharedPrerequisites(members []string) []string {
	if len(members) == 0 {
		return nil
	}
	inGroup := make(map[string]bool, len(members))
	for _, m := range members {
		inGroup[m] = true
	}
	counts := make(map[string]int)
	for _, m := range members[1:] {
		for _, p := range s.graph.AllPrerequisites(m) {
			counts[p]++
		}
	}
	var out []string
	for _, p := range s.graph.AllPrerequisites(members[0]) {
		if !inGroup[p] && counts[p] == len(members)-1 {
			out = append(out, p)
		}
	}
	return out
}

func (s *Store) anyCompleted(ids []string) bool {
	for _, id := range ids {
		if s.state.Completed[id] {
			return true
		}
	}
	return false
}

// commit saves the current state and notifies subscribers. Save failures
// are logged and otherwise ignored: the in-memory state stays authoritative.
func (s *Store) commit(ctx context.Context, ch Change) {
	if s.sink != nil {
		snap := s.State()
		if err := s.sink.Save(ctx, snap); err != nil {
			s.logger.Warn("save progress failed", "err", err, "tasks", ch.TaskIDs)
		}
	}

	s.subMu.Lock()
	subs := make([]func(Change), 0, len(s.subs))
	for _, fn := range s.subs {
		subs = append(subs, fn)
	}
	s.subMu.Unlock()
	for _, fn := range subs {
		fn(ch)
	}
}
