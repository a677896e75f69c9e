package theme

import (
	"charm.land/lipgloss/v2"

	"github.com/abhisek/questsync/internal/status"
)

// Color palette
var (
	Primary   = lipgloss.Color("#8B5CF6") // Vivid Purple
	Secondary = lipgloss.Color("#14B8A6") // Teal
	Accent    = lipgloss.Color("#F97316") // Orange
	Success   = lipgloss.Color("#22C55E") // Green
	Error     = lipgloss.Color("#F43F5E") // Rose
	Warning   = lipgloss.Color("#EAB308") // Amber
	Text      = lipgloss.Color("#F8FAFC") // White
	TextDim   = lipgloss.Color("#94A3B8") // Slate
	Border    = lipgloss.Color("#334155") // Slate
)

// Typography
var (
	Title = lipgloss.NewStyle().
		Bold(true).
		Foreground(Primary)

	Subtitle = lipgloss.NewStyle().
			Foreground(TextDim)

	Body = lipgloss.NewStyle().
		Foreground(Text)

	Hint = lipgloss.NewStyle().
		Foreground(TextDim).
		Italic(true)

	Heading = lipgloss.NewStyle().
		Bold(true).
		Foreground(Secondary)
)

// Notices
var (
	WarningText = lipgloss.NewStyle().
			Foreground(Warning).
			Bold(true)

	ErrorText = lipgloss.NewStyle().
			Foreground(Error).
			Bold(true)

	SuccessText = lipgloss.NewStyle().
			Foreground(Success)

	Card = lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(Border).
		Padding(0, 1)
)

// Task states
var (
	StatusDone = lipgloss.NewStyle().
			Foreground(Success)

	StatusActive = lipgloss.NewStyle().
			Foreground(Secondary).
			Bold(true)

	StatusLocked = lipgloss.NewStyle().
			Foreground(TextDim)

	StatusLevelLocked = lipgloss.NewStyle().
				Foreground(Accent)

	StatusFailed = lipgloss.NewStyle().
			Foreground(Error).
			Strikethrough(true)
)

// StatusStyle returns the style for a task status.
func StatusStyle(s status.Status) lipgloss.Style {
	switch s {
	case status.Done:
		return StatusDone
	case status.Active:
		return StatusActive
	case status.Failed:
		return StatusFailed
	case status.LevelLocked:
		return StatusLevelLocked
	default:
		return StatusLocked
	}
}

// RenderStatus renders the icon and label of s.
func RenderStatus(s status.Status) string {
	return StatusStyle(s).Render(s.Icon() + " " + s.Label())
}
