package api

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/ashureev/chef-interview/internal/domain"
	"github.com/xeipuuv/gojsonschema"
)

const maxBodyBytes = 1 << 20

// validationError carries the client-facing message of a rejected request.
type validationError struct {
	issues []string
}

func (e *validationError) Error() string {
	return "Validation failed: " + strings.Join(e.issues, ", ")
}

func (e *validationError) Unwrap() error {
	return domain.ErrValidationFailed
}

// requestSchema pairs a JSON schema with the messages reported per field.
type requestSchema struct {
	schema   *gojsonschema.Schema
	messages map[string]string
}

func mustSchema(src string, messages map[string]string) requestSchema {
	schema, err := gojsonschema.NewSchema(gojsonschema.NewStringLoader(src))
	if err != nil {
		panic(fmt.Sprintf("compile request schema: %v", err))
	}
	return requestSchema{schema: schema, messages: messages}
}

var sessionRequest = mustSchema(`{
	"type": "object",
	"required": ["sessionId"],
	"properties": {
		"sessionId": {"type": "string", "minLength": 1}
	}
}`, map[string]string{
	"sessionId": "sessionId is required.",
})

var stepRequest = mustSchema(`{
	"type": "object",
	"required": ["sessionId", "data"],
	"properties": {
		"sessionId": {"type": "string", "minLength": 1},
		"data": {
			"type": "object",
			"required": ["questionId", "userAnswer"],
			"properties": {
				"questionId": {"type": "string", "minLength": 1},
				"userAnswer": {"type": "string", "minLength": 1}
			}
		}
	}
}`, map[string]string{
	"sessionId":       "session id is required.",
	"data":            "step data is required.",
	"data.questionId": "question id is required.",
	"data.userAnswer": "user answer is required.",
})

// decode reads the request body, validates it against rs and unmarshals it
// into dst.
func decode(w http.ResponseWriter, r *http.Request, rs requestSchema, dst interface{}) error {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		return &validationError{issues: []string{"request body could not be read."}}
	}
	if !json.Valid(body) {
		return &validationError{issues: []string{"request body must be JSON."}}
	}

	result, err := rs.schema.Validate(gojsonschema.NewBytesLoader(body))
	if err != nil {
		return &validationError{issues: []string{"request body must be JSON."}}
	}
	if !result.Valid() {
		return &validationError{issues: rs.issues(result.Errors())}
	}

	if err := json.Unmarshal(body, dst); err != nil {
		return &validationError{issues: []string{"request body has the wrong shape."}}
	}
	return nil
}

func (rs requestSchema) issues(errs []gojsonschema.ResultError) []string {
	seen := make(map[string]bool, len(errs))
	out := make([]string, 0, len(errs))
	for _, e := range errs {
		msg, ok := rs.messages[fieldOf(e)]
		if !ok {
			msg = e.Description() + "."
		}
		if seen[msg] {
			continue
		}
		seen[msg] = true
		out = append(out, msg)
	}
	return out
}

// fieldOf returns the dotted path of the field an error is about. Required
// errors are reported on the parent object, so the missing property is
// appended.
func fieldOf(e gojsonschema.ResultError) string {
	field := e.Field()
	if e.Type() != "required" {
		return field
	}
	prop, ok := e.Details()["property"].(string)
	if !ok {
		return field
	}
	switch {
	case field == "" || field == "(root)":
		return prop
	case field == prop || strings.HasSuffix(field, "."+prop):
		return field
	default:
		return field + "." + prop
	}
}
