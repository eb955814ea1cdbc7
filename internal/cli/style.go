package cli

import "github.com/charmbracelet/lipgloss"

// Oracle red banner for command headers.
var headerStyle = lipgloss.NewStyle().
	Bold(true).
	Foreground(lipgloss.Color("#FAFAFA")).
	Background(lipgloss.Color("#C74634")).
	Padding(1, 5).
	MarginBottom(1).
	Align(lipgloss.Center).
	Border(lipgloss.RoundedBorder())
