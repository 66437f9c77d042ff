package tui

import "github.com/charmbracelet/lipgloss"

// Styles holds the lipgloss styles used to render the conversation.
type Styles struct {
	Question lipgloss.Style
	User     lipgloss.Style
	Note     lipgloss.Style
	Dish     lipgloss.Style
	Error    lipgloss.Style
	Muted    lipgloss.Style
	Success  lipgloss.Style
}

// DefaultStyles returns the standard palette.
func DefaultStyles() Styles {
	return Styles{
		Question: lipgloss.NewStyle().Foreground(lipgloss.Color("6")).Bold(true),
		User:     lipgloss.NewStyle().Foreground(lipgloss.Color("4")).PaddingLeft(2),
		Note: lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("3")).
			Padding(0, 1),
		Dish:    lipgloss.NewStyle().Foreground(lipgloss.Color("2")),
		Error:   lipgloss.NewStyle().Foreground(lipgloss.Color("1")),
		Muted:   lipgloss.NewStyle().Faint(true),
		Success: lipgloss.NewStyle().Foreground(lipgloss.Color("2")).Bold(true),
	}
}
