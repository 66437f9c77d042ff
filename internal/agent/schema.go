package agent

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/ashureev/chef-interview/internal/domain"
	"github.com/xeipuuv/gojsonschema"
)

const roundSchemaJSON = `{
  "type": "object",
  "required": ["note", "questions"],
  "properties": {
    "note": {"type": "string", "minLength": 1},
    "html": {"type": "string"},
    "questions": {
      "type": "array",
      "items": {
        "type": "object",
        "required": ["id", "text"],
        "properties": {
          "id": {"type": "string", "minLength": 1},
          "text": {"type": "string", "minLength": 1},
          "category": {"type": "string"}
        }
      }
    },
    "suggested_dishes": {
      "type": "array",
      "items": {
        "type": "object",
        "required": ["dish_name"],
        "properties": {
          "course": {"type": "string"},
          "dish_name": {"type": "string", "minLength": 1},
          "rationale": {"type": "string"}
        }
      }
    }
  }
}`

var roundSchema = mustSchema(roundSchemaJSON)

func mustSchema(src string) *gojsonschema.Schema {
	s, err := gojsonschema.NewSchema(gojsonschema.NewStringLoader(src))
	if err != nil {
		panic(fmt.Sprintf("agent: invalid round schema: %v", err))
	}
	return s
}

// SchemaError lists the violations of a model reply against the round schema.
type SchemaError struct {
	Violations []string
}

func (e *SchemaError) Error() string {
	return "model reply does not match schema: " + strings.Join(e.Violations, "; ")
}

func (e *SchemaError) Unwrap() error {
	return domain.ErrModelResponseInvalid
}

// ParseRound extracts and validates the JSON round from a model reply.
// A blank reply yields a nil round and no error.
func ParseRound(reply string) (*domain.ModelRound, error) {
	raw := extractJSON(reply)
	if raw == "" {
		if strings.TrimSpace(reply) == "" {
			return nil, nil
		}
		return nil, fmt.Errorf("no JSON object in model reply: %w", domain.ErrModelResponseInvalid)
	}

	result, err := roundSchema.Validate(gojsonschema.NewStringLoader(raw))
	if err != nil {
		return nil, fmt.Errorf("decode model reply: %v: %w", err, domain.ErrModelResponseInvalid)
	}
	if !result.Valid() {
		violations := make([]string, 0, len(result.Errors()))
		for _, e := range result.Errors() {
			violations = append(violations, e.String())
		}
		return nil, &SchemaError{Violations: violations}
	}

	var round domain.ModelRound
	if err := json.Unmarshal([]byte(raw), &round); err != nil {
		return nil, fmt.Errorf("decode model reply: %v: %w", err, domain.ErrModelResponseInvalid)
	}
	if round.Questions == nil {
		round.Questions = []domain.Question{}
	}
	return &round, nil
}

// extractJSON returns the outermost JSON object in s, tolerating code
// fences and surrounding prose.
func extractJSON(s string) string {
	start := strings.Index(s, "{")
	end := strings.LastIndex(s, "}")
	if start < 0 || end < start {
		return ""
	}
	return s[start : end+1]
}
