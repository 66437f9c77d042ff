package interview

import "github.com/ashureev/chef-interview/internal/domain"

// QuestionSource is the read side of the question catalog.
type QuestionSource interface {
	Lookup(id string) (domain.Question, bool)
	Questions() []domain.Question
}

// QuestionIndex resolves question ids against the catalog overlaid with
// every follow-up question asked so far. Later rounds replace earlier
// entries sharing an id.
type QuestionIndex struct {
	byID map[string]domain.Question
}

// NewQuestionIndex builds an index from the catalog and the round history,
// oldest round first.
func NewQuestionIndex(catalog QuestionSource, history []domain.ModelRound) QuestionIndex {
	ix := QuestionIndex{byID: make(map[string]domain.Question)}
	for _, q := range catalog.Questions() {
		ix.byID[q.ID] = q
	}
	for _, round := range history {
		for _, q := range round.Questions {
			ix.byID[q.ID] = q
		}
	}
	return ix
}

// Resolve returns the question registered under id.
func (ix QuestionIndex) Resolve(id string) (domain.Question, bool) {
	q, ok := ix.byID[id]
	return q, ok
}

// Len returns the number of distinct ids in the index.
func (ix QuestionIndex) Len() int {
	return len(ix.byID)
}
