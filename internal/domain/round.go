package domain

// Question is a single interview question, either from the catalog or
// produced by a model round.
type Question struct {
	ID       string `json:"id" yaml:"id"`
	Text     string `json:"text" yaml:"text"`
	Category string `json:"category" yaml:"category"`
}

// Suggestion is a dish proposed by the model for the planned meal.
type Suggestion struct {
	Course    string `json:"course"`
	DishName  string `json:"dish_name"`
	Rationale string `json:"rationale"`
}

// ModelRound is one result of the model collaborator. An empty Questions
// slice marks the interview as complete.
type ModelRound struct {
	Note            string       `json:"note"`
	HTML            string       `json:"html,omitempty"`
	Questions       []Question   `json:"questions"`
	SuggestedDishes []Suggestion `json:"suggested_dishes,omitempty"`
}

// HasFollowUps reports whether the round asked further questions.
func (r ModelRound) HasFollowUps() bool {
	return len(r.Questions) > 0
}

// Clone returns a copy that shares no slices with r.
func (r ModelRound) Clone() ModelRound {
	c := r
	c.Questions = append([]Question(nil), r.Questions...)
	c.SuggestedDishes = append([]Suggestion(nil), r.SuggestedDishes...)
	return c
}

// Turn is one (question, category, answer) triple handed to the model.
type Turn struct {
	Question   string
	Category   string
	UserAnswer string
}
