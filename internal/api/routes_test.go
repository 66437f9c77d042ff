package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/ashureev/chef-interview/internal/catalog"
	"github.com/ashureev/chef-interview/internal/domain"
	"github.com/ashureev/chef-interview/internal/interview"
	"github.com/ashureev/chef-interview/internal/mock"
	"github.com/ashureev/chef-interview/internal/store"
	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type apiFixture struct {
	router   http.Handler
	gen      *mock.Generator
	renderer *mock.Renderer
}

func newAPIFixture(t *testing.T) *apiFixture {
	t.Helper()
	cat, err := catalog.Default()
	require.NoError(t, err)

	f := &apiFixture{
		gen: &mock.Generator{
			InitialFn: func(context.Context, []domain.Turn) (*domain.ModelRound, error) {
				return &domain.ModelRound{
					Note:      "# Draft menu",
					HTML:      "<h1>Draft menu</h1>",
					Questions: []domain.Question{{ID: "wine", Text: "Wine pairing?", Category: "drinks"}},
					SuggestedDishes: []domain.Suggestion{
						{Course: "main", DishName: "Osso buco", Rationale: "Italian theme"},
					},
				}, nil
			},
			RefineFn: func(context.Context, []domain.Turn, string) (*domain.ModelRound, error) {
				return &domain.ModelRound{Note: "# Final menu", HTML: "<h1>Final menu</h1>"}, nil
			},
		},
		renderer: &mock.Renderer{
			RenderFn: func(_ context.Context, html string) ([]byte, error) {
				return []byte("%PDF " + html), nil
			},
		},
	}
	svc := interview.NewService(store.NewMemory(), cat, f.gen, f.renderer)

	r := chi.NewRouter()
	NewHandler(svc, nil).RegisterRoutes(r)
	f.router = r
	return f
}

func (f *apiFixture) do(t *testing.T, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != "" {
		reader = bytes.NewReader([]byte(body))
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)
	return rec
}

func (f *apiFixture) start(t *testing.T) string {
	t.Helper()
	rec := f.do(t, http.MethodPost, "/api/session/start", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var got map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	require.NotEmpty(t, got["sessionId"])
	return got["sessionId"]
}

func (f *apiFixture) step(t *testing.T, id, questionID, answer string) *httptest.ResponseRecorder {
	t.Helper()
	body, err := json.Marshal(map[string]interface{}{
		"sessionId": id,
		"data":      map[string]string{"questionId": questionID, "userAnswer": answer},
	})
	require.NoError(t, err)
	return f.do(t, http.MethodPost, "/api/form/step", string(body))
}

func decodeBody[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v))
	return v
}

func TestGetQuestions(t *testing.T) {
	f := newAPIFixture(t)
	rec := f.do(t, http.MethodGet, "/api/form/get-questions", "")
	require.Equal(t, http.StatusOK, rec.Code)

	got := decodeBody[map[string][]domain.Question](t, rec)
	require.NotEmpty(t, got["questions"])
	assert.Equal(t, "occasion", got["questions"][0].ID)
}

func TestInterviewFlow(t *testing.T) {
	f := newAPIFixture(t)
	id := f.start(t)

	rec := f.step(t, id, "occasion", "Birthday dinner")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, map[string]string{"status": "ok"}, decodeBody[map[string]string](t, rec))

	rec = f.do(t, http.MethodPost, "/api/agent/initial", `{"sessionId":"`+id+`"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	initial := decodeBody[roundResponse](t, rec)
	assert.Equal(t, "# Draft menu", initial.Summary)
	assert.Equal(t, domain.StatePending, initial.State)
	require.Len(t, initial.Questions, 1)
	assert.Equal(t, "Osso buco", initial.SuggestedDishes[0].DishName)

	// Follow-up ids from the round are accepted as steps.
	rec = f.step(t, id, "wine", "Barolo")
	require.Equal(t, http.StatusOK, rec.Code)

	rec = f.do(t, http.MethodPost, "/api/agent/refine", `{"sessionId":"`+id+`"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	refined := decodeBody[roundResponse](t, rec)
	assert.Equal(t, domain.StateComplete, refined.State)
	assert.Equal(t, []domain.Question{}, refined.Questions)

	rec = f.do(t, http.MethodGet, "/api/session/"+id, "")
	require.Equal(t, http.StatusOK, rec.Code)
	snap := decodeBody[sessionSnapshot](t, rec)
	assert.Equal(t, domain.StateComplete, snap.State)
	assert.Equal(t, 2, snap.Rounds)
	assert.Equal(t, 2, snap.Answered)
	assert.Equal(t, 0, snap.Pending)
	assert.Equal(t, "# Final menu", snap.Summary)

	rec = f.do(t, http.MethodPost, "/api/agent/generate-pdf", `{"sessionId":"`+id+`"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/pdf", rec.Header().Get("Content-Type"))
	assert.Equal(t, `attachment; filename="generated_note.pdf"`, rec.Header().Get("Content-Disposition"))
	assert.Equal(t, "%PDF <h1>Final menu</h1>", rec.Body.String())
}

func TestStepValidation(t *testing.T) {
	f := newAPIFixture(t)
	id := f.start(t)

	tests := []struct {
		name string
		body string
		want []string
	}{
		{"empty object", `{}`, []string{"session id is required.", "step data is required."}},
		{"empty fields", `{"sessionId":"","data":{"questionId":"","userAnswer":""}}`, []string{"session id is required.", "question id is required.", "user answer is required."}},
		{"missing answer", `{"sessionId":"` + id + `","data":{"questionId":"occasion"}}`, []string{"user answer is required."}},
		{"not json", `sessionId=1`, []string{"request body must be JSON."}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := f.do(t, http.MethodPost, "/api/form/step", tt.body)
			require.Equal(t, http.StatusBadRequest, rec.Code)
			got := decodeBody[errorBody](t, rec)
			assert.Equal(t, "fail", got.Status)
			assert.True(t, strings.HasPrefix(got.Message, "Validation failed: "), got.Message)
			for _, want := range tt.want {
				assert.Contains(t, got.Message, want)
			}
		})
	}
}

func TestStepUnknownQuestion(t *testing.T) {
	f := newAPIFixture(t)
	id := f.start(t)

	rec := f.step(t, id, "not-a-question", "yes")
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, decodeBody[errorBody](t, rec).Message, "unknown question id")
}

func TestUnknownSession(t *testing.T) {
	f := newAPIFixture(t)

	for _, path := range []string{"/api/agent/initial", "/api/agent/refine", "/api/agent/generate-pdf"} {
		rec := f.do(t, http.MethodPost, path, `{"sessionId":"missing"}`)
		assert.Equal(t, http.StatusNotFound, rec.Code, path)
		assert.Equal(t, errorBody{Status: "fail", Message: "Session not found."}, decodeBody[errorBody](t, rec))
	}

	rec := f.step(t, "missing", "occasion", "Birthday")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = f.do(t, http.MethodGet, "/api/session/missing", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestGeneratePDFWithoutRound(t *testing.T) {
	f := newAPIFixture(t)
	id := f.start(t)

	rec := f.do(t, http.MethodPost, "/api/agent/generate-pdf", `{"sessionId":"`+id+`"}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "No content to generate PDF.", decodeBody[errorBody](t, rec).Message)
}

func TestInitialModelFailure(t *testing.T) {
	f := newAPIFixture(t)
	f.gen.InitialFn = func(context.Context, []domain.Turn) (*domain.ModelRound, error) {
		return nil, nil
	}
	id := f.start(t)
	require.Equal(t, http.StatusOK, f.step(t, id, "occasion", "Birthday").Code)

	rec := f.do(t, http.MethodPost, "/api/agent/initial", `{"sessionId":"`+id+`"}`)
	require.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, errorBody{Status: "error", Message: "Something went wrong on the server."}, decodeBody[errorBody](t, rec))

	// The pending answer survives the failed round.
	rec = f.do(t, http.MethodGet, "/api/session/"+id, "")
	assert.Equal(t, 1, decodeBody[sessionSnapshot](t, rec).Pending)
}

func TestRefineBeforeInitial(t *testing.T) {
	f := newAPIFixture(t)
	id := f.start(t)

	rec := f.do(t, http.MethodPost, "/api/agent/refine", `{"sessionId":"`+id+`"}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, decodeBody[errorBody](t, rec).Message, "Validation failed")
}

func TestAgentValidation(t *testing.T) {
	f := newAPIFixture(t)

	rec := f.do(t, http.MethodPost, "/api/agent/initial", `{"sessionId":""}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Validation failed: sessionId is required.", decodeBody[errorBody](t, rec).Message)
}

func TestEventsRouteMounted(t *testing.T) {
	cat, err := catalog.Default()
	require.NoError(t, err)
	svc := interview.NewService(store.NewMemory(), cat, &mock.Generator{}, nil)

	called := false
	events := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = chi.URLParam(r, "sessionId") == "abc"
		w.WriteHeader(http.StatusNoContent)
	})
	r := chi.NewRouter()
	NewHandler(svc, events).RegisterRoutes(r)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/session/abc/events", nil))
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.True(t, called)
}
