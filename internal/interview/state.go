// Package interview implements the interview orchestration: answer
// accumulation, conversation building, round processing and the session
// state machine that ties them together.
package interview

import (
	"fmt"

	"github.com/ashureev/chef-interview/internal/domain"
)

// Event drives a session state transition.
type Event int

const (
	// EventStepSubmitted fires when the client submits an answer.
	EventStepSubmitted Event = iota
	// EventRoundWithFollowUps fires when a round asks further questions.
	EventRoundWithFollowUps
	// EventRoundFinal fires when a round asks no further questions.
	EventRoundFinal
)

func (e Event) String() string {
	switch e {
	case EventStepSubmitted:
		return "step_submitted"
	case EventRoundWithFollowUps:
		return "round_with_follow_ups"
	case EventRoundFinal:
		return "round_final"
	}
	return fmt.Sprintf("event(%d)", int(e))
}

// Transition returns the state a session in from moves to on ev.
//
// Submitting a step always leads to active, including from complete: a
// finished interview can be reopened by answering again. A round moves the
// session to pending or complete from any state.
func Transition(from domain.SessionState, ev Event) (domain.SessionState, error) {
	if !from.Valid() {
		return from, fmt.Errorf("unknown session state %q", from)
	}
	switch ev {
	case EventStepSubmitted:
		return domain.StateActive, nil
	case EventRoundWithFollowUps:
		return domain.StatePending, nil
	case EventRoundFinal:
		return domain.StateComplete, nil
	}
	return from, fmt.Errorf("unknown event %s", ev)
}

// roundEvent classifies a round by whether it asked follow-up questions.
func roundEvent(round *domain.ModelRound) Event {
	if round.HasFollowUps() {
		return EventRoundWithFollowUps
	}
	return EventRoundFinal
}
