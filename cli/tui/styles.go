// Package tui provides the Bubble Tea view for the branches report.
//
// TUI rules:
//   - TUI is opt-in only (--tui flag)
//   - TUI is read-only (branches report only)
//   - TUI uses the same data payload as non-TUI rendering
package tui

import "github.com/charmbracelet/lipgloss"

// Color palette.
var (
	primaryColor = lipgloss.Color("#7C3AED") // Purple
	successColor = lipgloss.Color("#10B981") // Green
	warningColor = lipgloss.Color("#F59E0B") // Amber
	errorColor   = lipgloss.Color("#EF4444") // Red
	mutedColor   = lipgloss.Color("#6B7280") // Gray
)

// Styles for TUI components.
var (
	// TitleStyle for the report header.
	TitleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(primaryColor).
			MarginBottom(1)

	// BoxStyle for the table container.
	BoxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(mutedColor).
			Padding(0, 1)

	// HelpStyle for the key hint line.
	HelpStyle = lipgloss.NewStyle().
			Foreground(mutedColor).
			MarginTop(1)
)

// StatusStyle returns a style for a git status cell.
func StatusStyle(status string) lipgloss.Style {
	switch status {
	case "clean":
		return lipgloss.NewStyle().Foreground(successColor)
	case "modified":
		return lipgloss.NewStyle().Foreground(warningColor)
	case "error":
		return lipgloss.NewStyle().Foreground(errorColor)
	default:
		return lipgloss.NewStyle()
	}
}
