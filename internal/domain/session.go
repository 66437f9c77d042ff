package domain

import (
	"time"
)

// SessionState is the lifecycle position of an interview session.
type SessionState string

const (
	StateInitial  SessionState = "initial"
	StateActive   SessionState = "active"
	StatePending  SessionState = "pending"
	StateComplete SessionState = "complete"
)

// Valid reports whether s is one of the known states.
func (s SessionState) Valid() bool {
	switch s {
	case StateInitial, StateActive, StatePending, StateComplete:
		return true
	}
	return false
}

// AnsweredStep is a single answer given by the client.
type AnsweredStep struct {
	QuestionID string `json:"questionId"`
	UserAnswer string `json:"userAnswer"`
}

// Summary holds the most recent note produced for a session.
type Summary struct {
	Note string `json:"note"`
}

// Session is the per-client interview record.
type Session struct {
	ID    string       `json:"id"`
	State SessionState `json:"state"`

	// FormData holds answers submitted since the last round.
	FormData []AnsweredStep `json:"formData"`
	// SubmittedAnswers holds every answer already folded into a round, oldest first.
	SubmittedAnswers []AnsweredStep `json:"submittedAnswers"`
	History          []ModelRound   `json:"history"`
	Summary          *Summary       `json:"summary,omitempty"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// NewSession returns an empty session in the initial state.
func NewSession(id string, now time.Time) *Session {
	return &Session{
		ID:               id,
		State:            StateInitial,
		FormData:         []AnsweredStep{},
		SubmittedAnswers: []AnsweredStep{},
		History:          []ModelRound{},
		CreatedAt:        now,
		UpdatedAt:        now,
	}
}

// LatestRound returns the most recent model round, if any.
func (s *Session) LatestRound() (ModelRound, bool) {
	if len(s.History) == 0 {
		return ModelRound{}, false
	}
	return s.History[len(s.History)-1], true
}

// Clone returns a deep copy of the session.
func (s *Session) Clone() *Session {
	if s == nil {
		return nil
	}
	c := *s
	c.FormData = append([]AnsweredStep{}, s.FormData...)
	c.SubmittedAnswers = append([]AnsweredStep{}, s.SubmittedAnswers...)
	c.History = make([]ModelRound, len(s.History))
	for i, r := range s.History {
		c.History[i] = r.Clone()
	}
	if s.Summary != nil {
		sum := *s.Summary
		c.Summary = &sum
	}
	return &c
}
