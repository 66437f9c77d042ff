// Package api provides HTTP handlers for the interview API.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/ashureev/chef-interview/internal/domain"
	"github.com/ashureev/chef-interview/internal/interview"
)

// Interview is the set of interview operations served over HTTP.
type Interview interface {
	Questions() []domain.Question
	StartSession(ctx context.Context) (*domain.Session, error)
	Session(ctx context.Context, id string) (*domain.Session, error)
	SubmitStep(ctx context.Context, id string, step domain.AnsweredStep) (*domain.Session, error)
	GenerateInitial(ctx context.Context, id string) (*interview.Result, error)
	GenerateRefinement(ctx context.Context, id string) (*interview.Result, error)
	RenderPDF(ctx context.Context, id string) ([]byte, error)
}

var _ Interview = (*interview.Service)(nil)

// Handler serves the interview endpoints.
type Handler struct {
	svc    Interview
	events http.Handler
}

// NewHandler creates a Handler. events serves the session event stream and
// may be nil.
func NewHandler(svc Interview, events http.Handler) *Handler {
	return &Handler{svc: svc, events: events}
}

// JSON writes a JSON response with the given status code.
func JSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		http.Error(w, `{"error": "failed to encode response"}`, http.StatusInternalServerError)
	}
}

// errorBody is the wire shape of every error response.
type errorBody struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

// Error writes a JSON error response. Client errors carry status "fail",
// server errors "error".
func Error(w http.ResponseWriter, status int, message string) {
	kind := "error"
	if status < http.StatusInternalServerError {
		kind = "fail"
	}
	JSON(w, status, errorBody{Status: kind, Message: message})
}

// writeError maps err to its status and message and logs server errors.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status, message := statusFor(err)
	if status >= http.StatusInternalServerError {
		slog.Error("Request failed", "method", r.Method, "path", r.URL.Path, "status", status, "error", err)
	} else if !errors.Is(err, domain.ErrValidationFailed) {
		slog.Info("Request rejected", "method", r.Method, "path", r.URL.Path, "status", status, "error", err)
	}
	Error(w, status, message)
}
