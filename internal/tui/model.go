// Package tui is a terminal client that walks a user through the
// interview one question at a time.
package tui

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/ashureev/chef-interview/internal/client"
	"github.com/ashureev/chef-interview/internal/domain"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
)

const requestTimeout = 3 * time.Minute

// Backend is the interview API as seen by the TUI.
type Backend interface {
	StartSession(ctx context.Context) (string, error)
	Questions(ctx context.Context) ([]domain.Question, error)
	SubmitStep(ctx context.Context, sessionID string, step domain.AnsweredStep) error
	Round(ctx context.Context, call client.Call, sessionID string) (*client.Round, error)
	PDF(ctx context.Context, sessionID string) ([]byte, error)
}

var (
	_ Backend   = (*client.API)(nil)
	_ tea.Model = Model{}
)

type sessionStartedMsg struct {
	id        string
	questions []domain.Question
	err       error
}

type stepSentMsg struct {
	text string
	err  error
}

type roundMsg struct {
	round *client.Round
	err   error
}

type pdfSavedMsg struct {
	path string
	err  error
}

// Model is the Bubble Tea model for the interview TUI.
type Model struct {
	// Input is the answer field. Exported for test access.
	Input textinput.Model
	// Viewport shows the conversation. Exported for test access.
	Viewport viewport.Model

	backend Backend
	pdfPath string
	styles  Styles

	state   client.State
	sending bool
	status  string
	err     error
	ready   bool
}

// New creates a TUI model. The PDF is saved to pdfPath on ctrl+s.
func New(backend Backend, pdfPath string) Model {
	ti := textinput.New()
	ti.Placeholder = "Type your answer..."
	ti.Prompt = "> "
	ti.Focus()
	ti.CharLimit = 0

	return Model{
		Input:   ti,
		backend: backend,
		pdfPath: pdfPath,
		styles:  DefaultStyles(),
		status:  "Starting session...",
	}
}

// State returns the conversation state.
func (m Model) State() client.State { return m.state }

// Err returns the last error, if any.
func (m Model) Err() error { return m.err }

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	return tea.Batch(textinput.Blink, startSession(m.backend))
}

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		return m.handleWindowSize(msg), nil

	case tea.KeyMsg:
		return m.handleKey(msg)

	case sessionStartedMsg:
		if msg.err != nil {
			m.err = msg.err
			m.status = "Could not start a session"
			return m.refresh(), nil
		}
		m.state = client.Reduce(m.state, client.SessionAssigned{ID: msg.id})
		m.state = client.Reduce(m.state, client.CatalogLoaded{Questions: msg.questions})
		m.status = ""
		return m.refresh(), nil

	case stepSentMsg:
		m.sending = false
		if msg.err != nil {
			m.err = msg.err
			m.Input.SetValue(msg.text)
			return m.refresh(), nil
		}
		m.err = nil
		m.state = client.Reduce(m.state, client.AnswerSubmitted{Text: msg.text})
		return m.watch()

	case roundMsg:
		if msg.err != nil {
			m.err = msg.err
			m.state = client.Reduce(m.state, client.RoundFailed{Err: msg.err.Error()})
			m.status = "Round failed, ctrl+r to retry"
			return m.refresh(), nil
		}
		m.err = nil
		m.state = client.Reduce(m.state, msg.round.Received())
		m.status = ""
		if m.state.Completed {
			m.status = "Interview complete, ctrl+s saves the PDF"
		}
		return m.refresh(), nil

	case pdfSavedMsg:
		if msg.err != nil {
			m.err = msg.err
		} else {
			m.err = nil
			m.status = "Saved " + msg.path
		}
		return m.refresh(), nil
	}

	var cmds []tea.Cmd
	var cmd tea.Cmd
	m.Viewport, cmd = m.Viewport.Update(msg)
	cmds = append(cmds, cmd)
	m.Input, cmd = m.Input.Update(msg)
	cmds = append(cmds, cmd)
	return m, tea.Batch(cmds...)
}

// watch requests the next round when one is due.
func (m Model) watch() (tea.Model, tea.Cmd) {
	call := client.NextCall(m.state)
	if call == client.CallNone {
		return m.refresh(), nil
	}
	m.state = client.Reduce(m.state, client.RoundRequested{})
	m.status = "Preparing your menu..."
	if call == client.CallRefine {
		m.status = "Updating your menu..."
	}
	return m.refresh(), requestRound(m.backend, call, m.state.SessionID)
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyCtrlC, tea.KeyEsc:
		return m, tea.Quit

	case tea.KeyEnter:
		if m.busy() {
			return m, nil
		}
		text := strings.TrimSpace(m.Input.Value())
		if text == "" {
			return m, nil
		}
		q, ok := m.state.CurrentQuestion()
		if !ok {
			return m, nil
		}
		m.Input.SetValue("")
		m.sending = true
		return m.refresh(), submitStep(m.backend, m.state.SessionID, domain.AnsweredStep{QuestionID: q.ID, UserAnswer: text})

	case tea.KeyCtrlR:
		if m.state.Error == "" || m.state.Awaiting {
			return m, nil
		}
		m.state = client.Reduce(m.state, client.RetryRequested{})
		return m.watch()

	case tea.KeyCtrlS:
		if m.state.SessionID == "" {
			return m, nil
		}
		m.status = "Rendering PDF..."
		return m.refresh(), savePDF(m.backend, m.state.SessionID, m.pdfPath)
	}

	var cmds []tea.Cmd
	var cmd tea.Cmd
	if msg.Type != tea.KeyRunes {
		m.Viewport, cmd = m.Viewport.Update(msg)
		cmds = append(cmds, cmd)
	}
	m.Input, cmd = m.Input.Update(msg)
	cmds = append(cmds, cmd)
	return m, tea.Batch(cmds...)
}

func (m Model) busy() bool {
	return m.sending || m.state.Awaiting || m.state.SessionID == ""
}

// View implements tea.Model.
func (m Model) View() string {
	if !m.ready {
		return "Initializing..."
	}
	var b strings.Builder
	b.WriteString(m.Viewport.View())
	b.WriteString("\n")
	b.WriteString(m.statusLine())
	b.WriteString("\n")
	b.WriteString(m.Input.View())
	return b.String()
}

func (m Model) statusLine() string {
	if m.err != nil {
		return m.styles.Error.Render("Error: " + m.err.Error())
	}
	if m.status != "" {
		if m.state.Completed {
			return m.styles.Success.Render(m.status)
		}
		return m.styles.Muted.Render(m.status)
	}
	return m.styles.Muted.Render("enter: answer · ctrl+s: save PDF · esc: quit")
}

func (m Model) handleWindowSize(msg tea.WindowSizeMsg) Model {
	vpHeight := msg.Height - 4
	if vpHeight < 1 {
		vpHeight = 1
	}
	if !m.ready {
		m.Viewport = viewport.New(msg.Width, vpHeight)
		m.ready = true
	} else {
		m.Viewport.Width = msg.Width
		m.Viewport.Height = vpHeight
	}
	m.Input.Width = msg.Width
	return m.refresh()
}

func (m Model) refresh() Model {
	if !m.ready {
		return m
	}
	m.Viewport.SetContent(m.renderTimeline())
	m.Viewport.GotoBottom()
	return m
}

func (m Model) renderTimeline() string {
	width := m.Viewport.Width
	if width <= 0 {
		width = 80
	}
	var blocks []string
	for _, e := range m.state.Timeline {
		switch e.Role {
		case client.RoleQuestion:
			blocks = append(blocks, m.styles.Question.Width(width).Render(e.Text))
		case client.RoleUser:
			blocks = append(blocks, m.styles.User.Width(width).Render(e.Text))
		case client.RoleNote:
			blocks = append(blocks, m.renderNote(e, width))
		}
	}
	return strings.Join(blocks, "\n\n")
}

func (m Model) renderNote(e client.Entry, width int) string {
	var b strings.Builder
	b.WriteString(strings.TrimSpace(e.Text))
	if len(e.Dishes) > 0 {
		b.WriteString("\n\nSuggested dishes:")
		for _, d := range e.Dishes {
			line := fmt.Sprintf("\n• %s: %s", d.Course, d.DishName)
			if d.Rationale != "" {
				line += " (" + d.Rationale + ")"
			}
			b.WriteString(m.styles.Dish.Render(line))
		}
	}
	noteWidth := width - 4
	if noteWidth < 10 {
		noteWidth = 10
	}
	return m.styles.Note.Width(noteWidth).Render(b.String())
}

func startSession(backend Backend) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		defer cancel()
		id, err := backend.StartSession(ctx)
		if err != nil {
			return sessionStartedMsg{err: err}
		}
		questions, err := backend.Questions(ctx)
		if err != nil {
			return sessionStartedMsg{err: err}
		}
		return sessionStartedMsg{id: id, questions: questions}
	}
}

func submitStep(backend Backend, sessionID string, step domain.AnsweredStep) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		defer cancel()
		return stepSentMsg{text: step.UserAnswer, err: backend.SubmitStep(ctx, sessionID, step)}
	}
}

func requestRound(backend Backend, call client.Call, sessionID string) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		defer cancel()
		round, err := backend.Round(ctx, call, sessionID)
		return roundMsg{round: round, err: err}
	}
}

func savePDF(backend Backend, sessionID, path string) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		defer cancel()
		pdf, err := backend.PDF(ctx, sessionID)
		if err != nil {
			return pdfSavedMsg{err: err}
		}
		if err := os.WriteFile(path, pdf, 0o644); err != nil {
			return pdfSavedMsg{err: fmt.Errorf("write %s: %w", path, err)}
		}
		return pdfSavedMsg{path: path}
	}
}
