package tui

import "github.com/charmbracelet/lipgloss"

// Styles groups the lipgloss styles shared by both screens.
type Styles struct {
	Title    lipgloss.Style
	Subtitle lipgloss.Style
	Panel    lipgloss.Style
	Label    lipgloss.Style
	Muted    lipgloss.Style
	Accent   lipgloss.Style
	Good     lipgloss.Style
	Bad      lipgloss.Style
	Warn     lipgloss.Style
	Help     lipgloss.Style
	Checked  lipgloss.Style
}

// DefaultStyles returns the sdrig palette.
func DefaultStyles() Styles {
	accent := lipgloss.Color("205")
	return Styles{
		Title:    lipgloss.NewStyle().Bold(true).Foreground(accent),
		Subtitle: lipgloss.NewStyle().Foreground(lipgloss.Color("39")),
		Panel: lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("240")).
			Padding(0, 1),
		Label:   lipgloss.NewStyle().Bold(true),
		Muted:   lipgloss.NewStyle().Foreground(lipgloss.Color("241")),
		Accent:  lipgloss.NewStyle().Foreground(accent),
		Good:    lipgloss.NewStyle().Foreground(lipgloss.Color("42")),
		Bad:     lipgloss.NewStyle().Foreground(lipgloss.Color("196")),
		Warn:    lipgloss.NewStyle().Foreground(lipgloss.Color("214")),
		Help:    lipgloss.NewStyle().Foreground(lipgloss.Color("241")),
		Checked: lipgloss.NewStyle().Foreground(lipgloss.Color("42")).Bold(true),
	}
}
