package tui

import "github.com/charmbracelet/lipgloss"

type theme struct {
	tabActive   lipgloss.Style
	tabInactive lipgloss.Style
	panel       lipgloss.Style
	title       lipgloss.Style
	user        lipgloss.Style
	ai          lipgloss.Style
	muted       lipgloss.Style
	urgent      lipgloss.Style
	saved       lipgloss.Style
	link        lipgloss.Style
	footer      lipgloss.Style
}

func newTheme() theme {
	accent := lipgloss.Color("#3b82f6")
	muted := lipgloss.Color("#6b7280")
	return theme{
		tabActive:   lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#ffffff")).Background(accent).Padding(0, 2),
		tabInactive: lipgloss.NewStyle().Foreground(muted).Padding(0, 2),
		panel:       lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(lipgloss.Color("#cbd5e1")).Padding(0, 1),
		title:       lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#1f2937")),
		user:        lipgloss.NewStyle().Bold(true).Foreground(accent),
		ai:          lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#10b981")),
		muted:       lipgloss.NewStyle().Foreground(muted),
		urgent:      lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#b91c1c")),
		saved:       lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#16a34a")),
		link:        lipgloss.NewStyle().Underline(true).Foreground(accent),
		footer:      lipgloss.NewStyle().Foreground(muted).Italic(true),
	}
}
