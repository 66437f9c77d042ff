//nolint:revive // "api" package name is intentionally concise for this layer.
package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/ashureev/chef-interview/internal/domain"
)

func TestJSON(t *testing.T) {
	w := httptest.NewRecorder()
	data := map[string]string{"foo": "bar"}

	JSON(w, http.StatusOK, data)

	resp := w.Result()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("Expected status 200, got %d", resp.StatusCode)
	}

	var got map[string]string
	if err := json.NewDecoder(resp.Body).Decode(&got); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}

	if got["foo"] != "bar" {
		t.Errorf("Expected foo=bar, got %v", got["foo"])
	}
}

func TestError(t *testing.T) {
	tests := []struct {
		status int
		want   string
	}{
		{http.StatusBadRequest, "fail"},
		{http.StatusNotFound, "fail"},
		{http.StatusInternalServerError, "error"},
		{http.StatusGatewayTimeout, "error"},
	}

	for _, tt := range tests {
		w := httptest.NewRecorder()
		Error(w, tt.status, "boom")

		var got errorBody
		if err := json.NewDecoder(w.Body).Decode(&got); err != nil {
			t.Fatalf("Failed to decode response: %v", err)
		}
		if got.Status != tt.want || got.Message != "boom" {
			t.Errorf("status %d: got %+v", tt.status, got)
		}
	}
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		err    error
		status int
		msg    string
	}{
		{fmt.Errorf("get: %w", domain.ErrSessionNotFound), http.StatusNotFound, "Session not found."},
		{fmt.Errorf("question id is required: %w", domain.ErrValidationFailed), http.StatusBadRequest, "Validation failed: question id is required."},
		{&validationError{issues: []string{"a.", "b."}}, http.StatusBadRequest, "Validation failed: a., b."},
		{domain.ErrRenderContentMissing, http.StatusBadRequest, "No content to generate PDF."},
		{fmt.Errorf("s: %w", domain.ErrRoundInProgress), http.StatusConflict, ""},
		{fmt.Errorf("%w: deadline", domain.ErrUpstreamTimeout), http.StatusGatewayTimeout, ""},
		{domain.ErrRenderUnavailable, http.StatusServiceUnavailable, ""},
		{domain.ErrModelResponseInvalid, http.StatusInternalServerError, "Something went wrong on the server."},
		{errors.New("disk on fire"), http.StatusInternalServerError, "Something went wrong"},
	}

	for _, tt := range tests {
		status, msg := statusFor(tt.err)
		if status != tt.status {
			t.Errorf("%v: expected status %d, got %d", tt.err, tt.status, status)
		}
		if tt.msg != "" && msg != tt.msg {
			t.Errorf("%v: expected message %q, got %q", tt.err, tt.msg, msg)
		}
	}
}
