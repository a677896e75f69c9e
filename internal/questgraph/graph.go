package questgraph

import (
	"log/slog"
	"slices"

	"github.com/abhisek/questsync/internal/catalog"
	"github.com/abhisek/questsync/internal/logging"
)

// Graph holds the task dependency graph with precomputed adjacency. Edges
// are the union of what each record declares in either direction, resolved
// to primary ids and deduplicated. It is immutable after New.
type Graph struct {
	cat       *catalog.Catalog
	prereqs   map[string][]string
	followUps map[string][]string
	roots     []string
	issues    []Issue
}

// New builds the graph over cat. Inconsistent or dangling edges are recorded
// as issues and logged as warnings; they never fail the build.
func New(cat *catalog.Catalog, logger *slog.Logger) *Graph {
	logger = logging.OrDiscard(logger)
	g := &Graph{
		cat:       cat,
		prereqs:   make(map[string][]string, cat.Len()),
		followUps: make(map[string][]string, cat.Len()),
	}

	tasks := cat.Tasks()
	declaredPrereq := make(map[edge]bool)
	declaredFollow := make(map[edge]bool)

	// Prerequisite declarations first, in record order.
	for _, t := range tasks {
		for _, raw := range t.PrerequisiteIDs {
			p, ok := g.resolveRef(t.ID, raw, "prerequisite")
			if !ok {
				continue
			}
			declaredPrereq[edge{from: p, to: t.ID}] = true
			g.addEdge(p, t.ID)
		}
	}

	// Follow-up declarations fill in edges the other side omitted.
	for _, t := range tasks {
		for _, raw := range t.FollowUpIDs {
			f, ok := g.resolveRef(t.ID, raw, "follow-up")
			if !ok {
				continue
			}
			declaredFollow[edge{from: t.ID, to: f}] = true
			g.addEdge(t.ID, f)
		}
	}

	for _, t := range tasks {
		for _, f := range g.followUps[t.ID] {
			e := edge{from: t.ID, to: f}
			if declaredPrereq[e] && declaredFollow[e] {
				continue
			}
			// Catalogs that never list follow-ups are common; only flag edges
			// where the follow-up side was declared without the prerequisite.
			if declaredFollow[e] && !declaredPrereq[e] {
				g.issues = append(g.issues, Issue{
					Kind:   IssueDataIntegrity,
					TaskID: f,
					RefID:  t.ID,
					Detail: "listed as follow-up of " + t.ID + " but prerequisite list omits it",
				})
			} else if declaredPrereq[e] && !declaredFollow[e] && len(t.FollowUpIDs) > 0 {
				g.issues = append(g.issues, Issue{
					Kind:   IssueDataIntegrity,
					TaskID: t.ID,
					RefID:  f,
					Detail: "is a prerequisite of " + f + " but follow-up list omits it",
				})
			}
		}
	}

	for _, t := range tasks {
		if len(g.prereqs[t.ID]) == 0 {
			g.roots = append(g.roots, t.ID)
		}
	}

	for _, is := range g.issues {
		logger.Warn("catalog issue", "kind", is.Kind.String(), "task", is.TaskID, "ref", is.RefID, "detail", is.Detail)
	}
	return g
}

type edge struct {
	from, to string
}

// resolveRef maps a referenced id to a primary id, recording unknown and
// self references.
func (g *Graph) resolveRef(owner, raw, role string) (string, bool) {
	id := g.cat.Resolve(raw)
	if !g.cat.Has(id) {
		g.issues = append(g.issues, Issue{
			Kind:   IssueUnresolvedReference,
			TaskID: owner,
			RefID:  raw,
			Detail: "unknown " + role,
		})
		return "", false
	}
	if id == owner {
		g.issues = append(g.issues, Issue{
			Kind:   IssueCycleDetected,
			TaskID: owner,
			RefID:  raw,
			Detail: "task lists itself as " + role,
		})
		return "", false
	}
	return id, true
}

func (g *Graph) addEdge(prereq, task string) {
	if !slices.Contains(g.prereqs[task], prereq) {
		g.prereqs[task] = append(g.prereqs[task], prereq)
	}
	if !slices.Contains(g.followUps[prereq], task) {
		g.followUps[prereq] = append(g.followUps[prereq], task)
	}
}

// Catalog returns the catalog the graph was built from.
func (g *Graph) Catalog() *catalog.Catalog {
	return g.cat
}

// DirectPrerequisites returns the direct prerequisite ids of id.
func (g *Graph) DirectPrerequisites(id string) []string {
	return slices.Clone(g.prereqs[g.cat.Resolve(id)])
}

// DirectFollowUps returns ids of tasks that directly depend on id.
func (g *Graph) DirectFollowUps(id string) []string {
	return slices.Clone(g.followUps[g.cat.Resolve(id)])
}

// AllPrerequisites returns the transitive prerequisite closure of id in
// breadth-first order. It never contains id and terminates on cyclic data.
func (g *Graph) AllPrerequisites(id string) []string {
	return g.closure(g.cat.Resolve(id), g.prereqs)
}

// AllFollowUps returns every task transitively unlocked by id.
func (g *Graph) AllFollowUps(id string) []string {
	return g.closure(g.cat.Resolve(id), g.followUps)
}

func (g *Graph) closure(start string, adj map[string][]string) []string {
	visited := map[string]bool{start: true}
	queue := []string{start}
	var out []string
	for len(queue) > 0 {
		id := queue[0]
		queue = queue[1:]
		for _, next := range adj[id] {
			if visited[next] {
				continue
			}
			visited[next] = true
			out = append(out, next)
			queue = append(queue, next)
		}
	}
	return out
}

// Roots returns ids of tasks without prerequisites, in catalog order.
func (g *Graph) Roots() []string {
	return slices.Clone(g.roots)
}

// Issues returns the data problems found while building the graph.
func (g *Graph) Issues() []Issue {
	return slices.Clone(g.issues)
}

// KappaSet returns the endgame-required tasks plus all of their
// prerequisites, in catalog order.
func (g *Graph) KappaSet() []string {
	in := make(map[string]bool)
	for _, t := range g.cat.Tasks() {
		if !t.RequiredForEndgame {
			continue
		}
		in[t.ID] = true
		for _, p := range g.closure(t.ID, g.prereqs) {
			in[p] = true
		}
	}
	var out []string
	for _, id := range g.cat.IDs() {
		if in[id] {
			out = append(out, id)
		}
	}
	return out
}

// Stats summarizes the graph.
type Stats struct {
	Tasks           int
	Edges           int
	Roots           int
	Leaves          int
	EndgameRequired int
	KappaSet        int
	AltGroups       int
	Cycles          int
	Issues          int
}

// Stats computes overall statistics.
func (g *Graph) Stats() Stats {
	s := Stats{
		Tasks:     g.cat.Len(),
		Roots:     len(g.roots),
		AltGroups: len(g.cat.Groups()),
		KappaSet:  len(g.KappaSet()),
		Cycles:    len(g.DetectCircularDependencies()),
		Issues:    len(g.issues),
	}
	for _, t := range g.cat.Tasks() {
		s.Edges += len(g.prereqs[t.ID])
		if len(g.followUps[t.ID]) == 0 {
			s.Leaves++
		}
		if t.RequiredForEndgame {
			s.EndgameRequired++
		}
	}
	return s
}
