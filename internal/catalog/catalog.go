package catalog

import (
	"slices"
	"strings"
)

// Catalog is the immutable registry of tasks for a session. It is safe for
// concurrent reads.
type Catalog struct {
	tasks   []TaskRecord
	byID    map[string]int
	aliases map[string]string
	groups  []AltGroup
	groupOf map[string]int
}

// New builds a catalog from records in their original order. It rejects
// empty or duplicate ids and aliases that would map to more than one task.
func New(records []TaskRecord) (*Catalog, error) {
	if err := validateRecords(records); err != nil {
		return nil, err
	}

	c := &Catalog{
		tasks:   make([]TaskRecord, len(records)),
		byID:    make(map[string]int, len(records)),
		aliases: make(map[string]string),
		groupOf: make(map[string]int),
	}
	for i, r := range records {
		c.tasks[i] = cloneRecord(r)
		c.byID[r.ID] = i
	}
	for _, r := range records {
		for _, a := range r.AliasIDs {
			if a != r.ID {
				c.aliases[a] = r.ID
			}
		}
	}
	c.buildGroups()
	return c, nil
}

// Resolve maps id to its primary id. Primary and unknown ids resolve to
// themselves.
func (c *Catalog) Resolve(id string) string {
	if _, ok := c.byID[id]; ok {
		return id
	}
	if p, ok := c.aliases[id]; ok {
		return p
	}
	return id
}

// Get returns the record for id (primary or alias).
func (c *Catalog) Get(id string) (TaskRecord, bool) {
	i, ok := c.byID[c.Resolve(id)]
	if !ok {
		return TaskRecord{}, false
	}
	return c.tasks[i], true
}

// Has reports whether id resolves to a known task.
func (c *Catalog) Has(id string) bool {
	_, ok := c.byID[c.Resolve(id)]
	return ok
}

// Index returns the catalog position of id, or -1 when unknown.
func (c *Catalog) Index(id string) int {
	if i, ok := c.byID[c.Resolve(id)]; ok {
		return i
	}
	return -1
}

// Len returns the number of tasks.
func (c *Catalog) Len() int {
	return len(c.tasks)
}

// Tasks returns all records in catalog order.
func (c *Catalog) Tasks() []TaskRecord {
	return slices.Clone(c.tasks)
}

// IDs returns all primary ids in catalog order.
func (c *Catalog) IDs() []string {
	ids := make([]string, len(c.tasks))
	for i, t := range c.tasks {
		ids[i] = t.ID
	}
	return ids
}

// FindByName looks a task up by id, alias, name or any localized name,
// ignoring case and surrounding whitespace.
func (c *Catalog) FindByName(name string) (TaskRecord, bool) {
	if t, ok := c.Get(name); ok {
		return t, true
	}
	want := strings.TrimSpace(name)
	for _, t := range c.tasks {
		if strings.EqualFold(t.Name, want) {
			return t, true
		}
	}
	for _, t := range c.tasks {
		for _, v := range t.NameVariants {
			if strings.EqualFold(v, want) {
				return t, true
			}
		}
	}
	return TaskRecord{}, false
}

// Groups returns every alternative group in catalog order of its first member.
func (c *Catalog) Groups() []AltGroup {
	out := make([]AltGroup, len(c.groups))
	for i, g := range c.groups {
		out[i] = AltGroup{ID: g.ID, Members: slices.Clone(g.Members)}
	}
	return out
}

// GroupOf returns the alternative group id belongs to.
func (c *Catalog) GroupOf(id string) (AltGroup, bool) {
	i, ok := c.groupOf[c.Resolve(id)]
	if !ok {
		return AltGroup{}, false
	}
	g := c.groups[i]
	return AltGroup{ID: g.ID, Members: slices.Clone(g.Members)}, true
}

// buildGroups computes connected components over explicit alternative links
// and shared group tags.
func (c *Catalog) buildGroups() {
	parent := make([]int, len(c.tasks))
	for i := range parent {
		parent[i] = i
	}
	find := func(i int) int {
		for parent[i] != i {
			parent[i] = parent[parent[i]]
			i = parent[i]
		}
		return i
	}
	union := func(a, b int) {
		ra, rb := find(a), find(b)
		if ra == rb {
			return
		}
		// Keep the lowest catalog index as root so group order is stable.
		if rb < ra {
			ra, rb = rb, ra
		}
		parent[rb] = ra
	}

	linked := make([]bool, len(c.tasks))
	tagFirst := make(map[string]int)
	for i, t := range c.tasks {
		if t.AlternativeGroup != "" {
			linked[i] = true
			if first, ok := tagFirst[t.AlternativeGroup]; ok {
				union(first, i)
			} else {
				tagFirst[t.AlternativeGroup] = i
			}
		}
		for _, alt := range t.AlternativeIDs {
			j, ok := c.byID[c.Resolve(alt)]
			if !ok || j == i {
				continue
			}
			linked[i], linked[j] = true, true
			union(i, j)
		}
	}

	members := make(map[int][]int)
	var roots []int
	for i := range c.tasks {
		if !linked[i] {
			continue
		}
		r := find(i)
		if _, ok := members[r]; !ok {
			roots = append(roots, r)
		}
		members[r] = append(members[r], i)
	}

	for _, r := range roots {
		idx := members[r]
		if len(idx) < 2 {
			continue
		}
		g := AltGroup{ID: c.tasks[r].ID}
		for _, i := range idx {
			if tag := c.tasks[i].AlternativeGroup; tag != "" && g.ID == c.tasks[r].ID {
				g.ID = tag
			}
			g.Members = append(g.Members, c.tasks[i].ID)
		}
		for _, i := range idx {
			c.groupOf[c.tasks[i].ID] = len(c.groups)
		}
		c.groups = append(c.groups, g)
	}
}

func cloneRecord(r TaskRecord) TaskRecord {
	r.AliasIDs = slices.Clone(r.AliasIDs)
	r.PrerequisiteIDs = slices.Clone(r.PrerequisiteIDs)
	r.FollowUpIDs = slices.Clone(r.FollowUpIDs)
	r.AlternativeIDs = slices.Clone(r.AlternativeIDs)
	r.Objectives = slices.Clone(r.Objectives)
	if r.NameVariants != nil {
		nv := make(map[string]string, len(r.NameVariants))
		for k, v := range r.NameVariants {
			nv[k] = v
		}
		r.NameVariants = nv
	}
	return r
}
