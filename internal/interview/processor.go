package interview

import (
	"fmt"

	"github.com/ashureev/chef-interview/internal/domain"
)

// Apply folds a model round into the session: the note becomes the
// summary, the round is appended to the history, pending answers are
// cleared and the state becomes pending or complete. A nil round leaves
// the session untouched.
func Apply(session *domain.Session, round *domain.ModelRound) error {
	if round == nil {
		return fmt.Errorf("empty round: %w", domain.ErrModelResponseInvalid)
	}
	next, err := Transition(session.State, roundEvent(round))
	if err != nil {
		return err
	}

	session.Summary = &domain.Summary{Note: round.Note}
	session.History = append(session.History, round.Clone())
	session.FormData = []domain.AnsweredStep{}
	session.State = next
	return nil
}

// CheckFollowUps rejects a round whose follow-up ids repeat within the
// round or reuse an id already known to the session.
func CheckFollowUps(ix QuestionIndex, round *domain.ModelRound) error {
	if round == nil {
		return nil
	}
	seen := make(map[string]struct{}, len(round.Questions))
	for _, q := range round.Questions {
		if _, ok := ix.Resolve(q.ID); ok {
			return fmt.Errorf("follow-up id %q already in use: %w", q.ID, domain.ErrModelResponseInvalid)
		}
		if _, ok := seen[q.ID]; ok {
			return fmt.Errorf("follow-up id %q repeated: %w", q.ID, domain.ErrModelResponseInvalid)
		}
		seen[q.ID] = struct{}{}
	}
	return nil
}
