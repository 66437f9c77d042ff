package api

import (
	"net/http"
	"time"

	"github.com/ashureev/chef-interview/internal/domain"
	"github.com/go-chi/chi/v5"
)

// RegisterRoutes registers the interview routes under /api.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/api", func(r chi.Router) {
		r.Post("/session/start", h.StartSession)
		r.Get("/session/{sessionId}", h.GetSession)
		if h.events != nil {
			r.Get("/session/{sessionId}/events", h.events.ServeHTTP)
		}

		r.Post("/form/step", h.SubmitStep)
		r.Get("/form/get-questions", h.GetQuestions)

		r.Post("/agent/initial", h.Initial)
		r.Post("/agent/refine", h.Refine)
		r.Post("/agent/generate-pdf", h.GeneratePDF)
	})
}

type sessionBody struct {
	SessionID string `json:"sessionId"`
}

type stepBody struct {
	SessionID string              `json:"sessionId"`
	Data      domain.AnsweredStep `json:"data"`
}

type roundResponse struct {
	Summary         string              `json:"summary"`
	Questions       []domain.Question   `json:"questions"`
	SuggestedDishes []domain.Suggestion `json:"suggested_dishes"`
	State           domain.SessionState `json:"state"`
}

type sessionSnapshot struct {
	SessionID string              `json:"sessionId"`
	State     domain.SessionState `json:"state"`
	Summary   string              `json:"summary"`
	Pending   int                 `json:"pending"`
	Answered  int                 `json:"answered"`
	Rounds    int                 `json:"rounds"`
	CreatedAt time.Time           `json:"createdAt"`
	UpdatedAt time.Time           `json:"updatedAt"`
}

// StartSession creates a session and returns its id.
func (h *Handler) StartSession(w http.ResponseWriter, r *http.Request) {
	session, err := h.svc.StartSession(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	JSON(w, http.StatusOK, map[string]string{"sessionId": session.ID})
}

// GetSession returns a summary of a session.
func (h *Handler) GetSession(w http.ResponseWriter, r *http.Request) {
	session, err := h.svc.Session(r.Context(), chi.URLParam(r, "sessionId"))
	if err != nil {
		writeError(w, r, err)
		return
	}

	snap := sessionSnapshot{
		SessionID: session.ID,
		State:     session.State,
		Pending:   len(session.FormData),
		Answered:  len(session.SubmittedAnswers),
		Rounds:    len(session.History),
		CreatedAt: session.CreatedAt,
		UpdatedAt: session.UpdatedAt,
	}
	if session.Summary != nil {
		snap.Summary = session.Summary.Note
	}
	JSON(w, http.StatusOK, snap)
}

// SubmitStep records one answer.
func (h *Handler) SubmitStep(w http.ResponseWriter, r *http.Request) {
	var body stepBody
	if err := decode(w, r, stepRequest, &body); err != nil {
		writeError(w, r, err)
		return
	}
	if _, err := h.svc.SubmitStep(r.Context(), body.SessionID, body.Data); err != nil {
		writeError(w, r, err)
		return
	}
	JSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// GetQuestions lists the catalog questions in order.
func (h *Handler) GetQuestions(w http.ResponseWriter, _ *http.Request) {
	JSON(w, http.StatusOK, map[string][]domain.Question{"questions": h.svc.Questions()})
}

// Initial generates the first note.
func (h *Handler) Initial(w http.ResponseWriter, r *http.Request) {
	var body sessionBody
	if err := decode(w, r, sessionRequest, &body); err != nil {
		writeError(w, r, err)
		return
	}
	res, err := h.svc.GenerateInitial(r.Context(), body.SessionID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	JSON(w, http.StatusOK, toRoundResponse(res.Round, res.State))
}

// Refine generates a follow-up note over all answers so far.
func (h *Handler) Refine(w http.ResponseWriter, r *http.Request) {
	var body sessionBody
	if err := decode(w, r, sessionRequest, &body); err != nil {
		writeError(w, r, err)
		return
	}
	res, err := h.svc.GenerateRefinement(r.Context(), body.SessionID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	JSON(w, http.StatusOK, toRoundResponse(res.Round, res.State))
}

// GeneratePDF renders the latest note as a PDF attachment.
func (h *Handler) GeneratePDF(w http.ResponseWriter, r *http.Request) {
	var body sessionBody
	if err := decode(w, r, sessionRequest, &body); err != nil {
		writeError(w, r, err)
		return
	}
	pdf, err := h.svc.RenderPDF(r.Context(), body.SessionID)
	if err != nil {
		writeError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", `attachment; filename="generated_note.pdf"`)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(pdf)
}

func toRoundResponse(round domain.ModelRound, state domain.SessionState) roundResponse {
	questions := round.Questions
	if questions == nil {
		questions = []domain.Question{}
	}
	dishes := round.SuggestedDishes
	if dishes == nil {
		dishes = []domain.Suggestion{}
	}
	return roundResponse{
		Summary:         round.Note,
		Questions:       questions,
		SuggestedDishes: dishes,
		State:           state,
	}
}
