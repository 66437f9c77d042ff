// Package domain holds the interview data model shared by every layer.
package domain

import "errors"

var (
	// ErrSessionNotFound is returned for an unknown session id.
	ErrSessionNotFound = errors.New("session not found")
	// ErrValidationFailed marks malformed input.
	ErrValidationFailed = errors.New("validation failed")
	// ErrModelResponseInvalid is returned when the model produced no usable round.
	ErrModelResponseInvalid = errors.New("model response invalid")
	// ErrRenderContentMissing is returned when there is no HTML to render.
	ErrRenderContentMissing = errors.New("no content to generate PDF")
	// ErrRoundInProgress is returned when a round is already running for the session.
	ErrRoundInProgress = errors.New("round already in progress")
	// ErrUpstreamTimeout is returned when a collaborator did not answer in time.
	ErrUpstreamTimeout = errors.New("upstream call timed out")
	// ErrRenderUnavailable is returned when no PDF renderer is configured.
	ErrRenderUnavailable = errors.New("pdf rendering is not available")
)
