package interview

import "github.com/ashureev/chef-interview/internal/domain"

// SubmitStep records step as pending input and moves the session to active.
func SubmitStep(session *domain.Session, step domain.AnsweredStep) error {
	next, err := Transition(session.State, EventStepSubmitted)
	if err != nil {
		return err
	}
	session.FormData = append(session.FormData, step)
	session.State = next
	return nil
}

// foldPending moves every pending answer into the cumulative history.
func foldPending(session *domain.Session) {
	session.SubmittedAnswers = append(session.SubmittedAnswers, session.FormData...)
}
