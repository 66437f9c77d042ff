package events

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/ashureev/chef-interview/internal/domain"
	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type lookupFunc func(ctx context.Context, id string) (*domain.Session, error)

func (f lookupFunc) Session(ctx context.Context, id string) (*domain.Session, error) {
	return f(ctx, id)
}

func knownSessions(ids ...string) SessionLookup {
	return lookupFunc(func(_ context.Context, id string) (*domain.Session, error) {
		for _, known := range ids {
			if id == known {
				return domain.NewSession(id, time.Now()), nil
			}
		}
		return nil, domain.ErrSessionNotFound
	})
}

func newTestServer(t *testing.T, hub *Hub, sessions SessionLookup) *httptest.Server {
	t.Helper()
	r := chi.NewRouter()
	r.Get("/api/session/{sessionId}/events", NewWebSocketHandler(hub, sessions, []string{"*"}, false).ServeHTTP)
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return srv
}

func wsURL(srv *httptest.Server, id string) string {
	return "ws" + strings.TrimPrefix(srv.URL, "http") + "/api/session/" + id + "/events"
}

func waitForSubscriber(t *testing.T, hub *Hub, id string) {
	t.Helper()
	require.Eventually(t, func() bool { return hub.Subscribers(id) == 1 }, 2*time.Second, 10*time.Millisecond)
}

func TestWebSocketStreamsEvents(t *testing.T) {
	hub := NewHub(8, nil)
	srv := newTestServer(t, hub, knownSessions("s-1"))

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	conn, _, err := websocket.Dial(ctx, wsURL(srv, "s-1"), nil)
	require.NoError(t, err)
	defer conn.Close(websocket.StatusNormalClosure, "")

	waitForSubscriber(t, hub, "s-1")
	hub.Notify(domain.Event{
		Type:      domain.EventStepSubmitted,
		SessionID: "s-1",
		State:     domain.StateActive,
		Step:      &domain.AnsweredStep{QuestionID: "occasion", UserAnswer: "Birthday"},
	})

	var got domain.Event
	require.NoError(t, wsjson.Read(ctx, conn, &got))
	assert.Equal(t, domain.EventStepSubmitted, got.Type)
	assert.Equal(t, domain.StateActive, got.State)
	require.NotNil(t, got.Step)
	assert.Equal(t, "Birthday", got.Step.UserAnswer)
}

func TestWebSocketClosesOnSessionExpiry(t *testing.T) {
	hub := NewHub(8, nil)
	srv := newTestServer(t, hub, knownSessions("s-1"))

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	conn, _, err := websocket.Dial(ctx, wsURL(srv, "s-1"), nil)
	require.NoError(t, err)
	defer conn.Close(websocket.StatusNormalClosure, "")

	waitForSubscriber(t, hub, "s-1")
	hub.Notify(domain.Event{Type: domain.EventSessionExpired, SessionID: "s-1"})
	hub.CloseSession("s-1")

	var got domain.Event
	require.NoError(t, wsjson.Read(ctx, conn, &got))
	assert.Equal(t, domain.EventSessionExpired, got.Type)

	_, _, err = conn.Read(ctx)
	assert.Equal(t, websocket.StatusNormalClosure, websocket.CloseStatus(err))
}

func TestWebSocketUnknownSession(t *testing.T) {
	hub := NewHub(8, nil)
	srv := newTestServer(t, hub, knownSessions())

	resp, err := http.Get(srv.URL + "/api/session/missing/events")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestWebSocketRejectsOrigin(t *testing.T) {
	hub := NewHub(8, nil)
	r := chi.NewRouter()
	h := NewWebSocketHandler(hub, knownSessions("s-1"), []string{"https://chef.example"}, false)
	r.Get("/api/session/{sessionId}/events", h.ServeHTTP)

	req := httptest.NewRequest(http.MethodGet, "/api/session/s-1/events", nil)
	req.Header.Set("Origin", "https://evil.example")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusForbidden, rec.Code)
}
