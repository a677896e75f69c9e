package catalog

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testRecords() []TaskRecord {
	return []TaskRecord{
		{ID: "debut", Name: "Debut", Trader: "prapor", NameVariants: map[string]string{"ru": "Дебют"}},
		{ID: "checking", Name: "Checking", AliasIDs: []string{"checking-old"}, PrerequisiteIDs: []string{"debut"}},
		{ID: "shootout", Name: "Shootout Picnic", PrerequisiteIDs: []string{"checking"}, RequiredForEndgame: true},
		{ID: "bear-path", Name: "Bear Path", AlternativeGroup: "faction"},
		{ID: "usec-path", Name: "USEC Path", AlternativeGroup: "faction"},
		{ID: "left", Name: "Left", AlternativeIDs: []string{"right"}},
		{ID: "right", Name: "Right"},
	}
}

func newTestCatalog(t *testing.T) *Catalog {
	t.Helper()
	c, err := New(testRecords())
	require.NoError(t, err)
	return c
}

func TestResolve(t *testing.T) {
	c := newTestCatalog(t)

	assert.Equal(t, "checking", c.Resolve("checking"))
	assert.Equal(t, "checking", c.Resolve("checking-old"))
	assert.Equal(t, "zzz", c.Resolve("zzz"), "unknown ids resolve to themselves")
}

func TestGet(t *testing.T) {
	c := newTestCatalog(t)

	rec, ok := c.Get("checking-old")
	require.True(t, ok)
	assert.Equal(t, "checking", rec.ID)

	_, ok = c.Get("zzz")
	assert.False(t, ok)
	assert.False(t, c.Has("zzz"))
	assert.Equal(t, -1, c.Index("zzz"))
	assert.Equal(t, 2, c.Index("shootout"))
}

func TestFindByName(t *testing.T) {
	c := newTestCatalog(t)

	tests := []struct {
		query string
		want  string
	}{
		{"debut", "debut"},
		{"  shootout PICNIC ", "shootout"},
		{"Дебют", "debut"},
		{"checking-old", "checking"},
	}
	for _, tt := range tests {
		rec, ok := c.FindByName(tt.query)
		if !ok {
			t.Errorf("FindByName(%q): not found", tt.query)
			continue
		}
		if rec.ID != tt.want {
			t.Errorf("FindByName(%q) = %q, want %q", tt.query, rec.ID, tt.want)
		}
	}

	_, ok := c.FindByName("nope")
	assert.False(t, ok)
}

func TestGroups(t *testing.T) {
	c := newTestCatalog(t)

	groups := c.Groups()
	require.Len(t, groups, 2)
	assert.Equal(t, "faction", groups[0].ID)
	assert.Equal(t, []string{"bear-path", "usec-path"}, groups[0].Members)
	assert.Equal(t, "left", groups[1].ID)
	assert.Equal(t, []string{"left", "right"}, groups[1].Members)

	g, ok := c.GroupOf("right")
	require.True(t, ok)
	assert.True(t, g.Contains("left"))

	_, ok = c.GroupOf("debut")
	assert.False(t, ok)
}

func TestNew_RejectsDuplicateIDs(t *testing.T) {
	_, err := New([]TaskRecord{{ID: "a"}, {ID: "a"}})
	var verr *ValidationError
	require.True(t, errors.As(err, &verr))
	assert.Contains(t, verr.Error(), `duplicate task ID: "a"`)
}

func TestNew_RejectsAliasCollisions(t *testing.T) {
	tests := []struct {
		name    string
		records []TaskRecord
		want    string
	}{
		{
			name:    "alias shared by two tasks",
			records: []TaskRecord{{ID: "a", AliasIDs: []string{"x"}}, {ID: "b", AliasIDs: []string{"x"}}},
			want:    `alias "x" claimed by both "a" and "b"`,
		},
		{
			name:    "alias equal to another primary",
			records: []TaskRecord{{ID: "a", AliasIDs: []string{"b"}}, {ID: "b"}},
			want:    `collides with a primary task ID`,
		},
		{
			name:    "empty id",
			records: []TaskRecord{{ID: " "}},
			want:    "empty id",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(tt.records)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestNew_CopiesRecords(t *testing.T) {
	records := testRecords()
	c, err := New(records)
	require.NoError(t, err)

	records[1].PrerequisiteIDs[0] = "mutated"
	rec, _ := c.Get("checking")
	assert.Equal(t, []string{"debut"}, rec.PrerequisiteIDs)
}

func TestDisplayName(t *testing.T) {
	rec := TaskRecord{ID: "x", Name: "Name", NameVariants: map[string]string{"de": "Name DE"}}
	assert.Equal(t, "Name DE", rec.DisplayName("de"))
	assert.Equal(t, "Name", rec.DisplayName("fr"))
	assert.Equal(t, "x", TaskRecord{ID: "x"}.DisplayName("en"))
}
