package domain

import "time"

// EventType names a change to a session.
type EventType string

const (
	EventSessionStarted EventType = "session_started"
	EventStepSubmitted  EventType = "step_submitted"
	EventRoundGenerated EventType = "round_generated"
	EventRoundFailed    EventType = "round_failed"
	EventPDFRendered    EventType = "pdf_rendered"
	EventSessionExpired EventType = "session_expired"
)

// Event describes something that happened to a session. Step and Round are
// set only for the event types that carry them.
type Event struct {
	Type      EventType     `json:"type"`
	SessionID string        `json:"sessionId"`
	State     SessionState  `json:"state,omitempty"`
	Step      *AnsweredStep `json:"step,omitempty"`
	Round     *ModelRound   `json:"round,omitempty"`
	Error     string        `json:"error,omitempty"`
	RequestID string        `json:"requestId,omitempty"`
	At        time.Time     `json:"at"`
}
