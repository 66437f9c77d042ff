package agent

import (
	"fmt"
	"strings"

	"github.com/ashureev/chef-interview/internal/domain"
)

const outputContract = `Reply with a single JSON object and nothing else:
{
  "note": "markdown summary of the event and the menu brief for the chef",
  "html": "the same note as a self-contained HTML document, ready to print",
  "questions": [{"id": "short_snake_case_id", "text": "follow-up question", "category": "event|preferences|dietary|menu|service|logistics|budget"}],
  "suggested_dishes": [{"course": "starter|main|dessert|side", "dish_name": "name", "rationale": "why it fits"}]
}
Ask follow-up questions only for details a chef still needs. When nothing important is missing, return an empty "questions" array.
Question ids must be new and unique within this interview.`

const initialSystemPrompt = `You are a private chef preparing a meal for a client.
You receive the client's answers to an intake questionnaire. Write a first draft of the planning note that the chef will cook from, propose dishes that fit, and ask about anything that is unclear or missing.

` + outputContract

const refineSystemPrompt = `You are a private chef refining the planning note for a client's meal.
You receive every answer the client has given so far, including answers to your earlier follow-up questions, and the current version of the note. Update the note so it reflects all answers, keep what is still correct, revise the suggested dishes, and ask further questions only when a detail is still missing.

` + outputContract

// FormatTurn renders one answered question the way the model receives it.
func FormatTurn(t domain.Turn) string {
	return fmt.Sprintf("System question: %s. Question category: %s \nUser answer: %s", t.Question, t.Category, t.UserAnswer)
}

func formatConversation(turns []domain.Turn) string {
	var b strings.Builder
	for i, t := range turns {
		if i > 0 {
			b.WriteString("\n\n")
		}
		b.WriteString(FormatTurn(t))
	}
	return b.String()
}

func initialPrompt(turns []domain.Turn) string {
	return "Client answers:\n\n" + formatConversation(turns)
}

func refinePrompt(turns []domain.Turn, priorNote string) string {
	var b strings.Builder
	b.WriteString("Current note:\n\n")
	b.WriteString(priorNote)
	b.WriteString("\n\nClient answers so far:\n\n")
	b.WriteString(formatConversation(turns))
	return b.String()
}
