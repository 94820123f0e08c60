package output

import "github.com/charmbracelet/lipgloss"

var (
	subtle  = lipgloss.Color("240")
	primary = lipgloss.Color("63")
	warning = lipgloss.Color("220")
	money   = lipgloss.Color("42")

	headerStyle = lipgloss.NewStyle().Bold(true).Foreground(primary).Padding(0, 1)
	cellStyle   = lipgloss.NewStyle().Padding(0, 1)
	amountStyle = cellStyle.Foreground(money).Align(lipgloss.Right)
	mutedStyle  = lipgloss.NewStyle().Foreground(subtle)
	titleStyle  = lipgloss.NewStyle().Bold(true)

	// bannerStyle marks output rendered from the demo dataset
	bannerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(warning).
			Border(lipgloss.RoundedBorder()).
			BorderForeground(warning).
			Padding(0, 1)
)
