package interview

import "github.com/ashureev/chef-interview/internal/domain"

// BuildInitial turns the pending answers into model turns, resolving ids
// against the catalog only. An unknown id yields a turn with empty question
// text instead of failing the batch.
func BuildInitial(catalog QuestionSource, session *domain.Session) []domain.Turn {
	turns := make([]domain.Turn, 0, len(session.FormData))
	for _, step := range session.FormData {
		q, _ := catalog.Lookup(step.QuestionID)
		turns = append(turns, turnFor(q, step))
	}
	return turns
}

// BuildRefinement turns the full answer history into model turns, resolving
// ids through a QuestionIndex so answers to follow-up questions keep their
// original prompt text. Unknown ids degrade to empty text.
func BuildRefinement(catalog QuestionSource, session *domain.Session) []domain.Turn {
	ix := NewQuestionIndex(catalog, session.History)
	turns := make([]domain.Turn, 0, len(session.SubmittedAnswers))
	for _, step := range session.SubmittedAnswers {
		q, _ := ix.Resolve(step.QuestionID)
		turns = append(turns, turnFor(q, step))
	}
	return turns
}

func turnFor(q domain.Question, step domain.AnsweredStep) domain.Turn {
	return domain.Turn{
		Question:   q.Text,
		Category:   q.Category,
		UserAnswer: step.UserAnswer,
	}
}
