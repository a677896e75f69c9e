package cmd

import (
	"fmt"
	"io"
	"strings"

	"charm.land/lipgloss/v2"

	"github.com/abhisek/questsync/internal/alternatives"
	"github.com/abhisek/questsync/internal/app"
	"github.com/abhisek/questsync/internal/logsync"
	"github.com/abhisek/questsync/internal/progress"
	"github.com/abhisek/questsync/internal/ui/theme"
)

const rule = "─"

// pad right-pads a styled string to width visible cells.
func pad(s string, width int) string {
	if n := lipgloss.Width(s); n < width {
		return s + strings.Repeat(" ", width-n)
	}
	return s
}

// taskLabel renders "Name (id)" in the configured locale.
func taskLabel(e *app.Engine, locale, id string) string {
	rec, ok := e.Catalog().Get(id)
	if !ok {
		return id
	}
	return fmt.Sprintf("%s (%s)", rec.DisplayName(locale), rec.ID)
}

// printTaskList prints ids with their current status, numbered when asked.
func printTaskList(w io.Writer, e *app.Engine, locale string, ids []string, numbered bool) {
	statuses := e.Statuses()
	for i, id := range ids {
		prefix := "  "
		if numbered {
			prefix = fmt.Sprintf("%4d. ", i+1)
		}
		lipgloss.Fprintf(w, "%s%s %s\n", prefix, pad(theme.RenderStatus(statuses[id]), 16), taskLabel(e, locale, id))
	}
}

func printMutation(w io.Writer, e *app.Engine, locale, verb string, res progress.Result) {
	if !res.Changed {
		lipgloss.Fprintf(w, "%s already %s\n", taskLabel(e, locale, res.TaskID), verb)
		return
	}
	lipgloss.Fprintf(w, "%s %s\n", theme.SuccessText.Render(verb), taskLabel(e, locale, res.TaskID))
	if n := len(res.AutoCompleted); n > 0 {
		lipgloss.Fprintf(w, "  auto-completed %d prerequisite(s):\n", n)
		for _, id := range res.AutoCompleted {
			lipgloss.Fprintf(w, "    %s\n", taskLabel(e, locale, id))
		}
	}
	for _, id := range res.Deferred {
		lipgloss.Fprintf(w, "  %s %s belongs to an alternative group; run `questsync choose` for the variant you took\n",
			theme.WarningText.Render("!"), taskLabel(e, locale, id))
	}
}

func printSyncResult(w io.Writer, e *app.Engine, locale string, res *logsync.Result) {
	header := fmt.Sprintf("sync %s  batch %s", res.Source, res.BatchID)
	lipgloss.Fprintln(w, theme.Heading.Render(header))
	if res.Historical {
		lipgloss.Fprintf(w, "  existing log content: %d event(s) not applied (use --include-history to import them)\n", res.SuppressedEvents)
	}
	lipgloss.Fprintf(w, "  events %d  started %d  completed %d  failed %d  prerequisites auto-completed %d\n",
		res.TotalEventsFound, res.QuestsStarted, res.QuestsCompleted, res.QuestsFailed, res.PrerequisitesAutoCompleted)

	if len(res.UnmatchedQuestIDs) > 0 {
		lipgloss.Fprintf(w, "  unmatched quest ids: %s\n", strings.Join(res.UnmatchedQuestIDs, ", "))
	}
	for _, err := range res.Errors {
		lipgloss.Fprintf(w, "  %s %v\n", theme.ErrorText.Render("error"), err)
	}
	for _, id := range res.PendingConfirmations {
		lipgloss.Fprintf(w, "  %s %s changed terminal state; confirm or reset it\n",
			theme.WarningText.Render("confirm"), taskLabel(e, locale, id))
	}
	if res.NeedsDecision() {
		printGroups(w, e, locale, res.AlternativeQuestGroups)
	}
	if !res.Succeeded() {
		lipgloss.Fprintln(w, theme.ErrorText.Render("  sync found no events and reported errors"))
	}
}

func printGroups(w io.Writer, e *app.Engine, locale string, groups []alternatives.Group) {
	for _, g := range groups {
		var b strings.Builder
		title := "alternative group " + g.ID
		if g.IsRequired {
			title += " (gates later progress)"
		}
		if g.Conflict {
			title += " " + theme.WarningText.Render("conflict")
		}
		b.WriteString(title + "\n")
		for _, c := range g.Choices {
			mark := "[ ]"
			if c.IsSelected {
				mark = "[x]"
			}
			var state []string
			if c.IsCompleted {
				state = append(state, "completed")
			}
			if c.IsFailed {
				state = append(state, "failed")
			}
			line := fmt.Sprintf("%s %s", mark, taskLabel(e, locale, c.TaskID))
			if len(state) > 0 {
				line += "  " + theme.Hint.Render(strings.Join(state, ", "))
			}
			b.WriteString(line + "\n")
		}
		b.WriteString(theme.Hint.Render("decide with: questsync choose <task>"))
		lipgloss.Fprintln(w, theme.Card.Render(b.String()))
	}
}
