package logsync

import (
	"context"
	"errors"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/abhisek/questsync/internal/alternatives"
	"github.com/abhisek/questsync/internal/catalog"
	"github.com/abhisek/questsync/internal/logparse"
	"github.com/abhisek/questsync/internal/metrics"
	"github.com/abhisek/questsync/internal/progress"
	"github.com/abhisek/questsync/internal/questgraph"
	"github.com/abhisek/questsync/internal/status"
)

type recorder struct {
	mu      sync.Mutex
	results []*Result
}

func (r *recorder) RecordSync(_ context.Context, res *Result) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.results = append(r.results, res)
	return nil
}

type fixture struct {
	o     *Orchestrator
	store *progress.Store
	rec   *recorder
}

func newFixture(t *testing.T, records []catalog.TaskRecord) fixture {
	t.Helper()
	cat, err := catalog.New(records)
	require.NoError(t, err)
	g := questgraph.New(cat, nil)
	store := progress.NewStore(g, &progress.MemorySink{}, nil)
	alts := alternatives.NewResolver(g, status.NewResolver(g, status.FixedLevel(80)))
	rec := &recorder{}
	o := New(store, g, alts, Options{Metrics: metrics.New(), Recorder: rec})
	return fixture{o: o, store: store, rec: rec}
}

func chainRecords() []catalog.TaskRecord {
	return []catalog.TaskRecord{
		{ID: "task1"},
		{ID: "task2", PrerequisiteIDs: []string{"task1"}},
	}
}

func block(ts string, code int, templateID string, dt int64) []string {
	return []string{
		ts + " Got notification | ChatMessageReceived",
		`{"dialogId": "trader1", "message": {`,
		`  "type": ` + strconv.Itoa(code) + `,`,
		`  "dt": ` + strconv.FormatInt(dt, 10) + `,`,
		`  "templateId": "` + templateID + `"`,
		`}}`,
	}
}

func event(raw string, typ logparse.EventType, sec int64) logparse.Event {
	return logparse.Event{RawTaskID: raw, Type: typ, Timestamp: time.Unix(sec, 0)}
}

func TestApplyLines_HistoricalBacklogSuppressed(t *testing.T) {
	f := newFixture(t, chainRecords())
	ctx := context.Background()
	lines := block("2024-01-05 10:00:01.000|Info|push|", 12, "task2 someMessage", 1704448801)

	backlog := f.o.ApplyLines(ctx, "log.txt", lines)
	assert.True(t, backlog.Historical)
	assert.Equal(t, 0, backlog.TotalEventsFound)
	assert.Equal(t, 0, backlog.QuestsCompleted)
	assert.Equal(t, 1, backlog.SuppressedEvents)
	assert.False(t, f.store.IsCompleted("task2"))

	live := f.o.ApplyLines(ctx, "log.txt", lines)
	assert.False(t, live.Historical)
	assert.Equal(t, 1, live.QuestsCompleted)
	assert.Equal(t, 1, live.PrerequisitesAutoCompleted)
	assert.Equal(t, []string{"task2"}, live.CompletedQuests)
	assert.True(t, f.store.IsCompleted("task1"))
	assert.True(t, f.store.IsCompleted("task2"))
	assert.True(t, live.Succeeded())

	require.Len(t, f.rec.results, 2)
	assert.NotEqual(t, f.rec.results[0].BatchID, f.rec.results[1].BatchID)
}

func TestApplyEvents_AlternativeCompletionSurfacesGroup(t *testing.T) {
	f := newFixture(t, []catalog.TaskRecord{
		{ID: "taskA", Name: "A", AlternativeGroup: "slot"},
		{ID: "taskB", Name: "B", AlternativeGroup: "slot"},
	})

	res := f.o.ApplyEvents(context.Background(), "log.txt", []logparse.Event{event("taskA", logparse.Completed, 100)})
	require.Len(t, res.AlternativeQuestGroups, 1)
	assert.True(t, res.NeedsDecision())
	g := res.AlternativeQuestGroups[0]
	require.Len(t, g.Choices, 2)
	assert.Equal(t, "taskA", g.Choices[0].TaskID)
	assert.True(t, g.Choices[0].IsSelected)
	assert.True(t, g.Choices[0].IsCompleted)
	assert.Equal(t, "taskB", g.Choices[1].TaskID)
	assert.False(t, g.Choices[1].IsSelected)
	assert.False(t, g.Choices[1].IsCompleted)

	// Never auto-resolved.
	assert.False(t, f.store.IsFailed("taskB"))
}

func TestApplyEvents_UnknownQuestIDsRecorded(t *testing.T) {
	f := newFixture(t, chainRecords())

	res := f.o.ApplyEvents(context.Background(), "log.txt", []logparse.Event{
		event("zzz", logparse.Completed, 100),
		event("task1", logparse.Completed, 101),
		event("zzz", logparse.Started, 102),
	})
	assert.Equal(t, []string{"zzz"}, res.UnmatchedQuestIDs)
	assert.Equal(t, 3, res.TotalEventsFound)
	assert.Equal(t, 1, res.QuestsCompleted)
	assert.Empty(t, res.Errors)
	assert.True(t, f.store.IsCompleted("task1"))
}

func TestApplyEvents_StartedAutoCompletesPrerequisites(t *testing.T) {
	f := newFixture(t, []catalog.TaskRecord{
		{ID: "a"},
		{ID: "b", PrerequisiteIDs: []string{"a"}},
		{ID: "c", PrerequisiteIDs: []string{"b"}},
	})

	res := f.o.ApplyEvents(context.Background(), "log.txt", []logparse.Event{event("c", logparse.Started, 1)})
	assert.Equal(t, 1, res.QuestsStarted)
	assert.Equal(t, 2, res.PrerequisitesAutoCompleted)
	assert.Equal(t, []string{"c"}, res.InProgressQuests)
	assert.True(t, f.store.IsInProgress("c"))
	assert.True(t, f.store.IsCompleted("a"))
	assert.True(t, f.store.IsCompleted("b"))
}

func TestApplyEvents_CompletesPrerequisitesSharedByAlternatives(t *testing.T) {
	f := newFixture(t, []catalog.TaskRecord{
		{ID: "intro"},
		{ID: "bear", AlternativeGroup: "faction", PrerequisiteIDs: []string{"intro"}},
		{ID: "usec", AlternativeGroup: "faction", PrerequisiteIDs: []string{"intro"}},
		{ID: "after", PrerequisiteIDs: []string{"bear", "usec"}},
	})

	res := f.o.ApplyEvents(context.Background(), "log.txt", []logparse.Event{event("after", logparse.Completed, 1)})
	assert.Equal(t, 1, res.QuestsCompleted)
	assert.Equal(t, 1, res.PrerequisitesAutoCompleted)
	assert.True(t, f.store.IsCompleted("intro"))
	assert.False(t, f.store.IsCompleted("bear"))
	assert.False(t, f.store.IsCompleted("usec"))
}

func TestApplyEvents_StartedOnDoneTask(t *testing.T) {
	f := newFixture(t, chainRecords())
	ctx := context.Background()
	_, err := f.store.CompleteTask(ctx, "task1", false)
	require.NoError(t, err)

	res := f.o.ApplyEvents(ctx, "log.txt", []logparse.Event{event("task1", logparse.Started, 1)})
	assert.Empty(t, res.InProgressQuests)
	assert.True(t, f.store.IsCompleted("task1"))
	assert.False(t, f.store.IsInProgress("task1"))
}

func TestApplyEvents_TimestampOrder(t *testing.T) {
	f := newFixture(t, chainRecords())

	// Arrival order is reversed; the later completion wins.
	res := f.o.ApplyEvents(context.Background(), "log.txt", []logparse.Event{
		event("task1", logparse.Completed, 200),
		event("task1", logparse.Failed, 100),
	})
	assert.True(t, f.store.IsCompleted("task1"))
	assert.False(t, f.store.IsFailed("task1"))
	assert.Equal(t, []string{"task1"}, res.PendingConfirmations)
}

func TestApplyEvents_StableOnTies(t *testing.T) {
	f := newFixture(t, chainRecords())

	res := f.o.ApplyEvents(context.Background(), "log.txt", []logparse.Event{
		event("task1", logparse.Completed, 100),
		event("task1", logparse.Failed, 100),
	})
	assert.True(t, f.store.IsFailed("task1"))
	assert.Equal(t, []string{"task1"}, res.PendingConfirmations)
	assert.Equal(t, 1, res.QuestsFailed)
}

func TestApplyEvents_AliasResolution(t *testing.T) {
	f := newFixture(t, []catalog.TaskRecord{
		{ID: "task1", AliasIDs: []string{"legacy1"}},
	})
	res := f.o.ApplyEvents(context.Background(), "log.txt", []logparse.Event{event("legacy1", logparse.Completed, 1)})
	assert.Empty(t, res.UnmatchedQuestIDs)
	assert.Equal(t, []string{"task1"}, res.CompletedQuests)
	assert.True(t, f.store.IsCompleted("task1"))
}

func TestApplyLines_Deterministic(t *testing.T) {
	lines := append(
		block("2024-01-05 10:00:01.000|", 10, "task2", 1704448801),
		block("2024-01-05 10:00:02.000|", 12, "task2", 1704448802)...,
	)
	lines = append(lines, block("2024-01-05 10:00:03.000|", 12, "nope", 1704448803)...)

	run := func() *Result {
		f := newFixture(t, chainRecords())
		f.o.Parser().MarkLive("log.txt")
		return f.o.ApplyLines(context.Background(), "log.txt", lines)
	}
	a, b := run(), run()
	assert.Equal(t, a.TotalEventsFound, b.TotalEventsFound)
	assert.Equal(t, a.QuestsStarted, b.QuestsStarted)
	assert.Equal(t, a.QuestsCompleted, b.QuestsCompleted)
	assert.Equal(t, a.PrerequisitesAutoCompleted, b.PrerequisitesAutoCompleted)
	assert.Equal(t, a.UnmatchedQuestIDs, b.UnmatchedQuestIDs)
	assert.Equal(t, 3, a.TotalEventsFound)
	assert.Equal(t, 1, a.PrerequisitesAutoCompleted)
}

func TestResult_Succeeded(t *testing.T) {
	tests := []struct {
		name   string
		res    Result
		expect bool
	}{
		{"empty batch", Result{}, true},
		{"events only", Result{TotalEventsFound: 2}, true},
		{"errors only", Result{Errors: []error{errors.New("bad")}}, false},
		// Errors do not fail a batch that found events.
		{"errors and events", Result{Errors: []error{errors.New("bad")}, TotalEventsFound: 1}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expect, tt.res.Succeeded())
		})
	}
}

func TestApplyLines_ParseErrorsReported(t *testing.T) {
	f := newFixture(t, chainRecords())
	f.o.Parser().MarkLive("log.txt")
	lines := append([]string{
		"2024-01-05 10:00:00.000|Info|push|Got notification | ChatMessageReceived",
		"{ not json",
	}, block("2024-01-05 10:00:01.000|", 12, "task1", 1704448801)...)

	res := f.o.ApplyLines(context.Background(), "log.txt", lines)
	require.Len(t, res.Errors, 1)
	var perr *logparse.ParseError
	assert.ErrorAs(t, res.Errors[0], &perr)
	assert.Equal(t, 1, res.QuestsCompleted)
	assert.True(t, res.Succeeded())
	assert.Len(t, res.ErrorStrings(), 1)
}
