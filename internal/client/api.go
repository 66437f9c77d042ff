package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/ashureev/chef-interview/internal/domain"
)

const defaultTimeout = 2 * time.Minute

// APIError is a non-2xx response from the interview API.
type APIError struct {
	StatusCode int
	Status     string // "fail" or "error"
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("interview api: HTTP %d: %s", e.StatusCode, e.Message)
}

// Round is the wire result of an initial or refine call.
type Round struct {
	Summary         string              `json:"summary"`
	Questions       []domain.Question   `json:"questions"`
	SuggestedDishes []domain.Suggestion `json:"suggested_dishes"`
	State           domain.SessionState `json:"state"`
}

// Received converts the round into a reducer action.
func (r *Round) Received() RoundReceived {
	return RoundReceived{Note: r.Summary, Questions: r.Questions, Dishes: r.SuggestedDishes, State: r.State}
}

// API talks to the interview HTTP API.
type API struct {
	baseURL    string
	httpClient *http.Client
}

// Option configures an [API].
type Option func(*API)

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(a *API) { a.httpClient = hc }
}

// NewAPI creates a client for the server at baseURL.
func NewAPI(baseURL string, opts ...Option) *API {
	a := &API{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: defaultTimeout},
	}
	for _, o := range opts {
		o(a)
	}
	return a
}

// StartSession creates a session and returns its id.
func (a *API) StartSession(ctx context.Context) (string, error) {
	var out struct {
		SessionID string `json:"sessionId"`
	}
	if err := a.do(ctx, http.MethodPost, "/api/session/start", nil, &out); err != nil {
		return "", err
	}
	return out.SessionID, nil
}

// Questions returns the catalog questions.
func (a *API) Questions(ctx context.Context) ([]domain.Question, error) {
	var out struct {
		Questions []domain.Question `json:"questions"`
	}
	if err := a.do(ctx, http.MethodGet, "/api/form/get-questions", nil, &out); err != nil {
		return nil, err
	}
	return out.Questions, nil
}

// SubmitStep sends one answer.
func (a *API) SubmitStep(ctx context.Context, sessionID string, step domain.AnsweredStep) error {
	body := map[string]interface{}{"sessionId": sessionID, "data": step}
	return a.do(ctx, http.MethodPost, "/api/form/step", body, nil)
}

// Initial requests the first round.
func (a *API) Initial(ctx context.Context, sessionID string) (*Round, error) {
	return a.round(ctx, "/api/agent/initial", sessionID)
}

// Refine requests a follow-up round.
func (a *API) Refine(ctx context.Context, sessionID string) (*Round, error) {
	return a.round(ctx, "/api/agent/refine", sessionID)
}

// Round dispatches the call chosen by [NextCall].
func (a *API) Round(ctx context.Context, call Call, sessionID string) (*Round, error) {
	switch call {
	case CallInitial:
		return a.Initial(ctx, sessionID)
	case CallRefine:
		return a.Refine(ctx, sessionID)
	default:
		return nil, fmt.Errorf("interview api: no round to request")
	}
}

// PDF downloads the latest note as a PDF.
func (a *API) PDF(ctx context.Context, sessionID string) ([]byte, error) {
	resp, err := a.send(ctx, http.MethodPost, "/api/agent/generate-pdf", map[string]string{"sessionId": sessionID})
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("interview api: read pdf: %w", err)
	}
	return data, nil
}

func (a *API) round(ctx context.Context, path, sessionID string) (*Round, error) {
	var out Round
	if err := a.do(ctx, http.MethodPost, path, map[string]string{"sessionId": sessionID}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (a *API) do(ctx context.Context, method, path string, in, out interface{}) error {
	resp, err := a.send(ctx, method, path, in)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("interview api: decode %s: %w", path, err)
	}
	return nil
}

// send performs the request and returns the response only for 2xx
// statuses; other statuses become an *APIError.
func (a *API) send(ctx context.Context, method, path string, in interface{}) (*http.Response, error) {
	var body io.Reader = http.NoBody
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return nil, fmt.Errorf("interview api: %w", err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, a.baseURL+path, body)
	if err != nil {
		return nil, fmt.Errorf("interview api: %w", err)
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := a.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("interview api: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		defer resp.Body.Close()
		return nil, parseHTTPError(resp)
	}
	return resp, nil
}

func parseHTTPError(resp *http.Response) error {
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return &APIError{StatusCode: resp.StatusCode, Message: fmt.Sprintf("failed to read body: %v", err)}
	}
	var apiErr struct {
		Status  string `json:"status"`
		Message string `json:"message"`
	}
	if err := json.Unmarshal(body, &apiErr); err != nil || apiErr.Message == "" {
		return &APIError{StatusCode: resp.StatusCode, Message: strings.TrimSpace(string(body))}
	}
	return &APIError{StatusCode: resp.StatusCode, Status: apiErr.Status, Message: apiErr.Message}
}
