package tui

import "github.com/charmbracelet/lipgloss"

var (
	// HeaderStyle styles the column header row.
	HeaderStyle = lipgloss.NewStyle().Bold(true)

	statusStyles = map[string]lipgloss.Style{
		// Terminal states
		"installed": lipgloss.NewStyle().Foreground(lipgloss.Color("2")),
		"present":   lipgloss.NewStyle().Foreground(lipgloss.Color("2")),
		"running":   lipgloss.NewStyle().Foreground(lipgloss.Color("2")),
		"ready":     lipgloss.NewStyle().Foreground(lipgloss.Color("2")),

		// Active states
		"downloading":  lipgloss.NewStyle().Foreground(lipgloss.Color("4")),
		"extracting":   lipgloss.NewStyle().Foreground(lipgloss.Color("4")),
		"verifying":    lipgloss.NewStyle().Foreground(lipgloss.Color("4")),
		"provisioning": lipgloss.NewStyle().Foreground(lipgloss.Color("4")),
		"starting":     lipgloss.NewStyle().Foreground(lipgloss.Color("4")),

		// Skipped / warning
		"missing": lipgloss.NewStyle().Foreground(lipgloss.Color("3")),
		"stopped": lipgloss.NewStyle().Foreground(lipgloss.Color("3")),

		// Error
		"failed": lipgloss.NewStyle().Foreground(lipgloss.Color("1")),
		"error":  lipgloss.NewStyle().Foreground(lipgloss.Color("1")),

		// Pending
		"pending": lipgloss.NewStyle().Faint(true),
	}
)

// StatusStyle returns the lipgloss style for the given status string.
func StatusStyle(status string) lipgloss.Style {
	if s, ok := statusStyles[status]; ok {
		return s
	}
	return lipgloss.NewStyle()
}
