// Package alternatives reports mutually exclusive task variants touched by
// a sync so a human can pick the one the player actually took.
package alternatives

import (
	"github.com/abhisek/questsync/internal/questgraph"
	"github.com/abhisek/questsync/internal/status"
)

// Choice is one member of an alternative group.
type Choice struct {
	TaskID      string
	Name        string
	IsSelected  bool // the member was named by an event in the batch
	IsCompleted bool
	IsFailed    bool
}

// Group is one alternative group that needs a decision.
type Group struct {
	ID         string
	Choices    []Choice
	IsRequired bool // some member gates a started or completed task outside the group
	Conflict   bool // more than one member selected or completed
}

// Selected returns ids of choices marked selected.
func (g Group) Selected() []string {
	var out []string
	for _, c := range g.Choices {
		if c.IsSelected {
			out = append(out, c.TaskID)
		}
	}
	return out
}

// Progress is the state the resolver reads.
type Progress interface {
	status.Progress
	IsInProgress(id string) bool
}

// Resolver builds alternative groups. It never changes progress.
type Resolver struct {
	graph  *questgraph.Graph
	status *status.Resolver
}

func NewResolver(graph *questgraph.Graph, sr *status.Resolver) *Resolver {
	return &Resolver{graph: graph, status: sr}
}

// Resolve returns one Group per alternative group that contains a touched
// task, in catalog order. triggered holds the primary ids named by events.
func (r *Resolver) Resolve(touched []string, triggered map[string]bool, p Progress) []Group {
	cat := r.graph.Catalog()
	hit := make(map[string]bool)
	for _, id := range touched {
		if g, ok := cat.GroupOf(id); ok {
			hit[g.ID] = true
		}
	}
	if len(hit) == 0 {
		return nil
	}

	var out []Group
	for _, g := range cat.Groups() {
		if !hit[g.ID] {
			continue
		}
		grp := Group{ID: g.ID}
		taken := 0
		for _, id := range g.Members {
			rec, _ := cat.Get(id)
			st := r.status.Status(p, id)
			c := Choice{
				TaskID:      id,
				Name:        rec.Name,
				IsSelected:  triggered[id],
				IsCompleted: st == status.Done,
				IsFailed:    st == status.Failed,
			}
			if c.IsSelected || c.IsCompleted {
				taken++
			}
			grp.Choices = append(grp.Choices, c)
		}
		grp.Conflict = taken > 1
		grp.IsRequired = r.gatesProgress(g.Members, p)
		out = append(out, grp)
	}
	return out
}

func (r *Resolver) gatesProgress(members []string, p Progress) bool {
	in := make(map[string]bool, len(members))
	for _, m := range members {
		in[m] = true
	}
	for _, m := range members {
		for _, f := range r.graph.AllFollowUps(m) {
			if in[f] {
				continue
			}
			if p.IsCompleted(f) || p.IsInProgress(f) {
				return true
			}
		}
	}
	return false
}
