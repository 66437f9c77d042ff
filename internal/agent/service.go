// Package agent talks to the generative model that writes the planning
// note. Providers implement Completer; Service turns interview turns into
// prompts and model replies into rounds.
package agent

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/ashureev/chef-interview/internal/domain"
)

const (
	defaultMaxTokens   = 4096
	defaultTemperature = float32(0.4)
	noteTitle          = "Meal planning note"
)

// Service generates interview rounds with a Completer.
type Service struct {
	completer   Completer
	maxTokens   int
	temperature float32
	logger      *slog.Logger
}

// ServiceOption configures a Service.
type ServiceOption func(*Service)

// WithMaxTokens caps the reply length.
func WithMaxTokens(n int) ServiceOption {
	return func(s *Service) {
		if n > 0 {
			s.maxTokens = n
		}
	}
}

// WithTemperature sets the sampling temperature.
func WithTemperature(t float32) ServiceOption {
	return func(s *Service) {
		if t >= 0 {
			s.temperature = t
		}
	}
}

// WithLogger sets the service logger.
func WithLogger(l *slog.Logger) ServiceOption {
	return func(s *Service) { s.logger = l }
}

// NewService creates a Service on top of completer.
func NewService(completer Completer, opts ...ServiceOption) *Service {
	s := &Service{
		completer:   completer,
		maxTokens:   defaultMaxTokens,
		temperature: defaultTemperature,
		logger:      slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// GenerateInitial writes the first draft of the note from the pending answers.
func (s *Service) GenerateInitial(ctx context.Context, turns []domain.Turn) (*domain.ModelRound, error) {
	return s.generate(ctx, "initial", initialSystemPrompt, initialPrompt(turns))
}

// GenerateRefinement rewrites priorNote using the full answer history.
func (s *Service) GenerateRefinement(ctx context.Context, turns []domain.Turn, priorNote string) (*domain.ModelRound, error) {
	return s.generate(ctx, "refine", refineSystemPrompt, refinePrompt(turns, priorNote))
}

func (s *Service) generate(ctx context.Context, kind, system, prompt string) (*domain.ModelRound, error) {
	start := time.Now()
	reply, err := s.completer.Complete(ctx, CompletionRequest{
		System:      system,
		Prompt:      prompt,
		MaxTokens:   s.maxTokens,
		Temperature: s.temperature,
	})
	if err != nil {
		return nil, fmt.Errorf("%s completion: %w", kind, err)
	}

	round, err := ParseRound(reply)
	if err != nil {
		s.logger.Warn("Unusable model reply", "kind", kind, "error", err, "reply_bytes", len(reply))
		return nil, err
	}
	if round == nil {
		s.logger.Warn("Empty model reply", "kind", kind)
		return nil, nil
	}

	if round.HTML == "" {
		page, err := RenderNoteHTML(noteTitle, round.Note)
		if err != nil {
			return nil, err
		}
		round.HTML = page
	}

	s.logger.Debug("Model round parsed",
		"kind", kind,
		"follow_ups", len(round.Questions),
		"suggestions", len(round.SuggestedDishes),
		"duration", time.Since(start))
	return round, nil
}
