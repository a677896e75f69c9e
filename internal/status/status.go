package status

import (
	"github.com/abhisek/questsync/internal/catalog"
	"github.com/abhisek/questsync/internal/questgraph"
)

// Status is the runtime state of a task relative to the player.
type Status int

const (
	Locked      Status = iota // One or more prerequisites not done
	Active                    // Available to work on
	Done                      // Explicitly completed
	Failed                    // Explicitly failed
	LevelLocked               // Prerequisites done, player level too low
)

// Label returns the display label for a status.
func (s Status) Label() string {
	switch s {
	case Locked:
		return "Locked"
	case Active:
		return "Active"
	case Done:
		return "Done"
	case Failed:
		return "Failed"
	case LevelLocked:
		return "Level Locked"
	default:
		return "Unknown"
	}
}

// Icon returns the display icon for a status.
func (s Status) Icon() string {
	switch s {
	case Locked:
		return "🔒"
	case Active:
		return "🔓"
	case Done:
		return "✅"
	case Failed:
		return "❌"
	case LevelLocked:
		return "⏳"
	default:
		return "?"
	}
}

func (s Status) String() string { return s.Label() }

// Progress is the persisted, explicit part of task state.
type Progress interface {
	IsCompleted(id string) bool
	IsFailed(id string) bool
}

// LevelSource supplies the current player level at resolution time.
type LevelSource interface {
	PlayerLevel() int
}

// FixedLevel is a constant LevelSource.
type FixedLevel int

func (l FixedLevel) PlayerLevel() int { return int(l) }

// Resolver derives task status from persisted progress, the dependency graph
// and the player level. It holds no mutable state.
type Resolver struct {
	graph *questgraph.Graph
	cat   *catalog.Catalog
	level LevelSource
}

// NewResolver creates a Resolver. A nil level source means level 0.
func NewResolver(graph *questgraph.Graph, level LevelSource) *Resolver {
	if level == nil {
		level = FixedLevel(0)
	}
	return &Resolver{graph: graph, cat: graph.Catalog(), level: level}
}

// Status resolves a single task. Unknown ids resolve as Locked.
func (r *Resolver) Status(p Progress, id string) Status {
	e := r.newEval(p)
	return e.resolve(r.cat.Resolve(id))
}

// Snapshot resolves every task in one pass with a shared memo.
func (r *Resolver) Snapshot(p Progress) map[string]Status {
	e := r.newEval(p)
	for _, id := range r.cat.IDs() {
		e.resolve(id)
	}
	return e.memo
}

// IsSatisfied reports whether id counts as done for the purpose of unlocking
// follow-ups: it is done itself, or another member of its alternative group is.
func (r *Resolver) IsSatisfied(p Progress, id string) bool {
	id = r.cat.Resolve(id)
	if p.IsCompleted(id) {
		return true
	}
	if g, ok := r.cat.GroupOf(id); ok {
		for _, m := range g.Members {
			if p.IsCompleted(m) {
				return true
			}
		}
	}
	return false
}

type eval struct {
	r     *Resolver
	p     Progress
	level int
	memo  map[string]Status
}

func (r *Resolver) newEval(p Progress) *eval {
	return &eval{
		r:     r,
		p:     p,
		level: r.level.PlayerLevel(),
		memo:  make(map[string]Status),
	}
}

// resolve applies the status rules in priority order. A prerequisite's own
// status is Done only when it is explicitly completed, so checking direct
// prerequisites against progress is equivalent to resolving each of them
// recursively, and it cannot loop on cyclic catalogs.
func (e *eval) resolve(id string) Status {
	if s, ok := e.memo[id]; ok {
		return s
	}
	rec, ok := e.r.cat.Get(id)
	if !ok {
		return Locked
	}

	var s Status
	switch {
	case e.p.IsCompleted(id):
		s = Done
	case e.p.IsFailed(id):
		s = Failed
	case !e.prereqsSatisfied(id):
		s = Locked
	case e.level < rec.RequiredLevel:
		s = LevelLocked
	default:
		s = Active
	}
	e.memo[id] = s
	return s
}

func (e *eval) prereqsSatisfied(id string) bool {
	for _, p := range e.r.graph.DirectPrerequisites(id) {
		if !e.r.IsSatisfied(e.p, p) {
			return false
		}
	}
	return true
}
