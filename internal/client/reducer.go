// Package client holds the client side of an interview: a pure reducer over
// the visible conversation, the predicate that decides when the next model
// round is due, and an HTTP client for the interview API.
package client

import (
	"slices"

	"github.com/ashureev/chef-interview/internal/domain"
)

// Role identifies who produced a timeline entry.
type Role string

const (
	RoleQuestion Role = "question"
	RoleUser     Role = "user"
	RoleNote     Role = "note"
)

// Entry is one message in the visible timeline.
type Entry struct {
	Role       Role
	Text       string
	QuestionID string
	Dishes     []domain.Suggestion
}

// State is everything the client shows and decides from.
type State struct {
	SessionID string
	Timeline  []Entry
	Questions []domain.Question
	Current   int

	Awaiting  bool // a round request is in flight
	HasRound  bool // at least one round was received
	Completed bool // the latest round had no follow-ups
	Error     string
}

// Action is an input to Reduce.
type Action interface {
	isAction()
}

// SessionAssigned stores the server session id.
type SessionAssigned struct{ ID string }

// CatalogLoaded seeds the question list. Ignored once questions exist.
type CatalogLoaded struct{ Questions []domain.Question }

// AnswerSubmitted records the user's answer to the current question.
type AnswerSubmitted struct{ Text string }

// RoundRequested marks a round request as in flight.
type RoundRequested struct{}

// RoundReceived carries the result of a model round.
type RoundReceived struct {
	Note      string
	Questions []domain.Question
	Dishes    []domain.Suggestion
	State     domain.SessionState
}

// RoundFailed records a failed round request.
type RoundFailed struct{ Err string }

// RetryRequested clears a round failure so the round is attempted again.
type RetryRequested struct{}

func (SessionAssigned) isAction() {}
func (CatalogLoaded) isAction()   {}
func (AnswerSubmitted) isAction() {}
func (RoundRequested) isAction()  {}
func (RoundReceived) isAction()   {}
func (RoundFailed) isAction()     {}
func (RetryRequested) isAction()  {}

// Reduce returns the state that follows s after a. It never modifies s.
func Reduce(s State, a Action) State {
	switch a := a.(type) {
	case SessionAssigned:
		s.SessionID = a.ID

	case CatalogLoaded:
		if len(s.Questions) > 0 || len(a.Questions) == 0 {
			return s
		}
		s.Questions = slices.Clone(a.Questions)
		s.Current = 0
		s.Timeline = appendEntry(s.Timeline, questionEntry(s.Questions[0]))

	case AnswerSubmitted:
		entry := Entry{Role: RoleUser, Text: a.Text}
		if q, ok := s.CurrentQuestion(); ok {
			entry.QuestionID = q.ID
		}
		s.Timeline = appendEntry(s.Timeline, entry)
		if s.Current+1 < len(s.Questions) {
			s.Current++
			s.Timeline = appendEntry(s.Timeline, questionEntry(s.Questions[s.Current]))
		}
		s.Completed = false
		s.Error = ""

	case RoundRequested:
		s.Awaiting = true
		s.Error = ""

	case RoundReceived:
		s.Awaiting = false
		s.HasRound = true
		s.Completed = a.State == domain.StateComplete
		s.Timeline = appendEntry(s.Timeline, Entry{Role: RoleNote, Text: a.Note, Dishes: slices.Clone(a.Dishes)})
		if len(a.Questions) > 0 {
			start := len(s.Questions)
			s.Questions = append(slices.Clone(s.Questions), a.Questions...)
			s.Current = start
			s.Timeline = appendEntry(s.Timeline, questionEntry(s.Questions[start]))
		}

	case RoundFailed:
		s.Awaiting = false
		s.Error = a.Err

	case RetryRequested:
		s.Error = ""
	}
	return s
}

// CurrentQuestion returns the question awaiting an answer.
func (s State) CurrentQuestion() (domain.Question, bool) {
	if s.Current < 0 || s.Current >= len(s.Questions) {
		return domain.Question{}, false
	}
	return s.Questions[s.Current], true
}

func questionEntry(q domain.Question) Entry {
	return Entry{Role: RoleQuestion, Text: q.Text, QuestionID: q.ID}
}

// appendEntry appends to a copy so earlier states keep their timeline.
func appendEntry(timeline []Entry, e Entry) []Entry {
	out := make([]Entry, len(timeline), len(timeline)+1)
	copy(out, timeline)
	return append(out, e)
}
