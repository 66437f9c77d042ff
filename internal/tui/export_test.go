package tui

import tea "github.com/charmbracelet/bubbletea"

// StartCmd exposes the session bootstrap command without the cursor blink
// that Init batches with it.
func StartCmd(m Model) tea.Cmd {
	return startSession(m.backend)
}
