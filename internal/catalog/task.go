package catalog

// ItemRequirement is an item an objective asks the player to hand in or find.
type ItemRequirement struct {
	ItemID      string `json:"itemId" yaml:"itemId"`
	Count       int    `json:"count,omitempty" yaml:"count,omitempty"`
	FoundInRaid bool   `json:"foundInRaid,omitempty" yaml:"foundInRaid,omitempty"`
}

// Objective is a single step of a task.
type Objective struct {
	Index int               `json:"index" yaml:"index"`
	Type  string            `json:"type,omitempty" yaml:"type,omitempty"`
	Items []ItemRequirement `json:"items,omitempty" yaml:"items,omitempty"`
}

// TaskRecord is a single quest as supplied by the catalog snapshot.
type TaskRecord struct {
	ID                 string            `json:"id" yaml:"id"`
	AliasIDs           []string          `json:"aliasIds,omitempty" yaml:"aliasIds,omitempty"`
	Name               string            `json:"name" yaml:"name"`
	NameVariants       map[string]string `json:"nameVariants,omitempty" yaml:"nameVariants,omitempty"`
	Trader             string            `json:"trader,omitempty" yaml:"trader,omitempty"`
	RequiredLevel      int               `json:"requiredLevel,omitempty" yaml:"requiredLevel,omitempty"`
	PrerequisiteIDs    []string          `json:"prerequisiteIds,omitempty" yaml:"prerequisiteIds,omitempty"`
	FollowUpIDs        []string          `json:"followUpIds,omitempty" yaml:"followUpIds,omitempty"`
	RequiredForEndgame bool              `json:"requiredForEndgame,omitempty" yaml:"requiredForEndgame,omitempty"`
	AlternativeGroup   string            `json:"alternativeGroup,omitempty" yaml:"alternativeGroup,omitempty"`
	AlternativeIDs     []string          `json:"alternativeIds,omitempty" yaml:"alternativeIds,omitempty"`
	Objectives         []Objective       `json:"objectives,omitempty" yaml:"objectives,omitempty"`
}

// DisplayName returns the name for locale, falling back to Name and then ID.
func (t TaskRecord) DisplayName(locale string) string {
	if n := t.NameVariants[locale]; n != "" {
		return n
	}
	if t.Name != "" {
		return t.Name
	}
	return t.ID
}

// HasObjective reports whether the task declares an objective with the given index.
func (t TaskRecord) HasObjective(index int) bool {
	for _, o := range t.Objectives {
		if o.Index == index {
			return true
		}
	}
	return false
}

// AltGroup is a set of mutually-exclusive task variants. Members are
// primary ids in catalog order.
type AltGroup struct {
	ID      string
	Members []string
}

// Contains reports whether id is a member of the group.
func (g AltGroup) Contains(id string) bool {
	for _, m := range g.Members {
		if m == id {
			return true
		}
	}
	return false
}
