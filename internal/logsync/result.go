package logsync

import (
	"time"

	"github.com/abhisek/questsync/internal/alternatives"
)

// Result summarizes one applied batch. It is always complete, even when
// some events could not be used.
type Result struct {
	BatchID   string
	Source    string
	AppliedAt time.Time

	TotalEventsFound           int
	QuestsStarted              int
	QuestsCompleted            int
	QuestsFailed               int
	PrerequisitesAutoCompleted int
	SuppressedEvents           int
	Historical                 bool

	UnmatchedQuestIDs []string
	Errors            []error
	// PendingConfirmations lists tasks whose explicit terminal state was
	// overturned by log evidence (done to failed, or failed to done/started).
	PendingConfirmations []string
	// AlternativeQuestGroups must be shown to a human before the sync is
	// treated as fully committed.
	AlternativeQuestGroups []alternatives.Group

	InProgressQuests []string
	CompletedQuests  []string
	FailedQuests     []string
}

// Succeeded reports the coarse outcome: no errors, or at least one event
// found. A batch with errors still succeeds when it found events, so callers
// should inspect Errors and UnmatchedQuestIDs rather than rely on this alone.
func (r *Result) Succeeded() bool {
	return len(r.Errors) == 0 || r.TotalEventsFound > 0
}

// NeedsDecision reports whether alternative groups await a human choice.
func (r *Result) NeedsDecision() bool {
	return len(r.AlternativeQuestGroups) > 0
}

// ErrorStrings returns the error messages in order.
func (r *Result) ErrorStrings() []string {
	out := make([]string, len(r.Errors))
	for i, err := range r.Errors {
		out[i] = err.Error()
	}
	return out
}
