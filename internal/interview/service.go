package interview

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/ashureev/chef-interview/internal/domain"
	"github.com/ashureev/chef-interview/internal/store"
	"github.com/go-chi/chi/v5/middleware"
)

// Generator produces model rounds. A nil round with a nil error means the
// model gave no usable answer.
type Generator interface {
	GenerateInitial(ctx context.Context, turns []domain.Turn) (*domain.ModelRound, error)
	GenerateRefinement(ctx context.Context, turns []domain.Turn, priorNote string) (*domain.ModelRound, error)
}

// Renderer converts a note's HTML into a PDF document.
type Renderer interface {
	RenderPDF(ctx context.Context, html string) ([]byte, error)
}

// Notifier receives session events after the change has been stored.
type Notifier interface {
	Notify(event domain.Event)
}

// Result is the outcome of a generated round.
type Result struct {
	Round domain.ModelRound
	State domain.SessionState
}

const (
	defaultModelTimeout  = 90 * time.Second
	defaultRenderTimeout = 30 * time.Second
)

// Service runs interview operations against a session store.
type Service struct {
	repo      store.Repository
	catalog   QuestionSource
	gen       Generator
	renderer  Renderer
	notifiers []Notifier
	logger    *slog.Logger
	now       func() time.Time

	modelTimeout  time.Duration
	renderTimeout time.Duration

	locks sessionLocks
}

// Option configures a Service.
type Option func(*Service)

// WithModelTimeout bounds each model call.
func WithModelTimeout(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.modelTimeout = d
		}
	}
}

// WithRenderTimeout bounds each PDF rendering.
func WithRenderTimeout(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.renderTimeout = d
		}
	}
}

// WithNotifier registers a listener for session events.
func WithNotifier(n Notifier) Option {
	return func(s *Service) {
		if n != nil {
			s.notifiers = append(s.notifiers, n)
		}
	}
}

// WithLogger sets the service logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Service) { s.logger = l }
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// NewService creates a Service. renderer may be nil, in which case PDF
// requests fail with domain.ErrRenderUnavailable.
func NewService(repo store.Repository, catalog QuestionSource, gen Generator, renderer Renderer, opts ...Option) *Service {
	s := &Service{
		repo:          repo,
		catalog:       catalog,
		gen:           gen,
		renderer:      renderer,
		logger:        slog.Default(),
		now:           time.Now,
		modelTimeout:  defaultModelTimeout,
		renderTimeout: defaultRenderTimeout,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Questions returns the catalog in order.
func (s *Service) Questions() []domain.Question {
	return s.catalog.Questions()
}

// StartSession creates a new session.
func (s *Service) StartSession(ctx context.Context) (*domain.Session, error) {
	session, err := s.repo.Create(ctx)
	if err != nil {
		return nil, fmt.Errorf("create session: %w", err)
	}
	s.logger.Info("Session started", "session_id", session.ID)
	s.notify(ctx, domain.Event{Type: domain.EventSessionStarted, SessionID: session.ID, State: session.State})
	return session, nil
}

// Session returns a snapshot of the session.
func (s *Service) Session(ctx context.Context, id string) (*domain.Session, error) {
	if err := requireID(id); err != nil {
		return nil, err
	}
	return s.repo.Get(ctx, id)
}

// SubmitStep records an answer. The question id must be known from the
// catalog or from a follow-up question already asked in this session.
func (s *Service) SubmitStep(ctx context.Context, id string, step domain.AnsweredStep) (*domain.Session, error) {
	if err := requireID(id); err != nil {
		return nil, err
	}
	if strings.TrimSpace(step.QuestionID) == "" {
		return nil, fmt.Errorf("question id is required: %w", domain.ErrValidationFailed)
	}
	if strings.TrimSpace(step.UserAnswer) == "" {
		return nil, fmt.Errorf("user answer is required: %w", domain.ErrValidationFailed)
	}

	if err := s.exists(ctx, id); err != nil {
		return nil, err
	}
	unlock, err := s.locks.lock(ctx, id)
	if err != nil {
		return nil, err
	}
	defer unlock()

	session, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if _, ok := NewQuestionIndex(s.catalog, session.History).Resolve(step.QuestionID); !ok {
		return nil, fmt.Errorf("unknown question id %q: %w", step.QuestionID, domain.ErrValidationFailed)
	}

	if err := SubmitStep(session, step); err != nil {
		return nil, err
	}
	session.UpdatedAt = s.now()
	if err := s.repo.Put(ctx, session); err != nil {
		return nil, fmt.Errorf("store step: %w", err)
	}

	s.notify(ctx, domain.Event{Type: domain.EventStepSubmitted, SessionID: id, State: session.State, Step: &step})
	return session, nil
}

// GenerateInitial runs the first round over the pending answers.
func (s *Service) GenerateInitial(ctx context.Context, id string) (*Result, error) {
	return s.generate(ctx, id, func(callCtx context.Context, work *domain.Session) (*domain.ModelRound, error) {
		turns := BuildInitial(s.catalog, work)
		foldPending(work)
		return s.gen.GenerateInitial(callCtx, turns)
	})
}

// GenerateRefinement runs a follow-up round over the full answer history,
// passing the latest note to the model. It requires a previous round.
func (s *Service) GenerateRefinement(ctx context.Context, id string) (*Result, error) {
	return s.generate(ctx, id, func(callCtx context.Context, work *domain.Session) (*domain.ModelRound, error) {
		prior, ok := work.LatestRound()
		if !ok {
			return nil, fmt.Errorf("no note to refine yet: %w", domain.ErrValidationFailed)
		}
		foldPending(work)
		turns := BuildRefinement(s.catalog, work)
		return s.gen.GenerateRefinement(callCtx, turns, prior.Note)
	})
}

type roundFunc func(ctx context.Context, work *domain.Session) (*domain.ModelRound, error)

// generate runs one round on a working copy of the session and stores it
// only when the model produced a usable round, so a failed round leaves
// the pending answers in place for a retry.
func (s *Service) generate(ctx context.Context, id string, run roundFunc) (*Result, error) {
	if err := requireID(id); err != nil {
		return nil, err
	}
	if err := s.exists(ctx, id); err != nil {
		return nil, err
	}
	unlock, ok := s.locks.tryLock(id)
	if !ok {
		return nil, fmt.Errorf("session %s: %w", id, domain.ErrRoundInProgress)
	}
	defer unlock()

	session, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	work := session.Clone()

	callCtx, cancel := context.WithTimeout(ctx, s.modelTimeout)
	defer cancel()

	start := s.now()
	round, err := run(callCtx, work)
	if err == nil {
		err = CheckFollowUps(NewQuestionIndex(s.catalog, work.History), round)
	}
	if err == nil {
		err = Apply(work, round)
	}
	if err != nil {
		if errors.Is(callCtx.Err(), context.DeadlineExceeded) && ctx.Err() == nil {
			err = fmt.Errorf("%w: %w", domain.ErrUpstreamTimeout, err)
		}
		s.logger.Error("Round generation failed", "session_id", id, "error", err)
		s.notify(ctx, domain.Event{Type: domain.EventRoundFailed, SessionID: id, State: session.State, Error: err.Error()})
		return nil, err
	}

	work.UpdatedAt = s.now()
	if err := s.repo.Put(ctx, work); err != nil {
		return nil, fmt.Errorf("store round: %w", err)
	}

	applied, _ := work.LatestRound()
	s.logger.Info("Round generated",
		"session_id", id,
		"state", work.State,
		"follow_ups", len(applied.Questions),
		"duration", s.now().Sub(start))
	s.notify(ctx, domain.Event{Type: domain.EventRoundGenerated, SessionID: id, State: work.State, Round: &applied})

	return &Result{Round: applied, State: work.State}, nil
}

// RenderPDF renders the HTML of the latest round.
func (s *Service) RenderPDF(ctx context.Context, id string) ([]byte, error) {
	if err := requireID(id); err != nil {
		return nil, err
	}
	session, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	round, ok := session.LatestRound()
	if !ok || strings.TrimSpace(round.HTML) == "" {
		return nil, domain.ErrRenderContentMissing
	}
	if s.renderer == nil {
		return nil, domain.ErrRenderUnavailable
	}

	renderCtx, cancel := context.WithTimeout(ctx, s.renderTimeout)
	defer cancel()

	pdf, err := s.renderer.RenderPDF(renderCtx, round.HTML)
	if err != nil {
		if errors.Is(renderCtx.Err(), context.DeadlineExceeded) && ctx.Err() == nil {
			return nil, fmt.Errorf("%w: render pdf: %w", domain.ErrUpstreamTimeout, err)
		}
		return nil, fmt.Errorf("render pdf: %w", err)
	}

	s.notify(ctx, domain.Event{Type: domain.EventPDFRendered, SessionID: id, State: session.State})
	return pdf, nil
}

// Expire tells listeners that a session was removed from the store.
func (s *Service) Expire(id string) {
	s.notify(context.Background(), domain.Event{Type: domain.EventSessionExpired, SessionID: id})
}

// exists keeps lock entries from being created for ids the store has
// never seen.
func (s *Service) exists(ctx context.Context, id string) error {
	_, err := s.repo.Get(ctx, id)
	return err
}

func (s *Service) notify(ctx context.Context, ev domain.Event) {
	ev.At = s.now()
	ev.RequestID = middleware.GetReqID(ctx)
	for _, n := range s.notifiers {
		n.Notify(ev)
	}
}

func requireID(id string) error {
	if strings.TrimSpace(id) == "" {
		return fmt.Errorf("session id is required: %w", domain.ErrValidationFailed)
	}
	return nil
}
