package api

import (
	"errors"
	"net/http"
	"strings"

	"github.com/ashureev/chef-interview/internal/domain"
)

// statusFor returns the HTTP status and client-facing message for err.
func statusFor(err error) (int, string) {
	var verr *validationError
	switch {
	case errors.As(err, &verr):
		return http.StatusBadRequest, verr.Error()
	case errors.Is(err, domain.ErrValidationFailed):
		return http.StatusBadRequest, validationMessage(err)
	case errors.Is(err, domain.ErrSessionNotFound):
		return http.StatusNotFound, "Session not found."
	case errors.Is(err, domain.ErrRenderContentMissing):
		return http.StatusBadRequest, "No content to generate PDF."
	case errors.Is(err, domain.ErrRoundInProgress):
		return http.StatusConflict, "A round is already being generated for this session."
	case errors.Is(err, domain.ErrUpstreamTimeout):
		return http.StatusGatewayTimeout, "The upstream service did not answer in time."
	case errors.Is(err, domain.ErrRenderUnavailable):
		return http.StatusServiceUnavailable, "PDF rendering is not available."
	case errors.Is(err, domain.ErrModelResponseInvalid):
		return http.StatusInternalServerError, "Something went wrong on the server."
	default:
		return http.StatusInternalServerError, "Something went wrong"
	}
}

// validationMessage turns "question id is required: validation failed"
// into "Validation failed: question id is required.".
func validationMessage(err error) string {
	detail := strings.TrimSuffix(err.Error(), domain.ErrValidationFailed.Error())
	detail = strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(detail), ":"))
	if detail == "" {
		return "Validation failed."
	}
	return "Validation failed: " + detail + "."
}
