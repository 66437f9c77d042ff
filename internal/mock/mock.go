// Package mock provides test doubles for interview collaborators using
// function fields.
package mock

import (
	"context"
	"sync"

	"github.com/ashureev/chef-interview/internal/domain"
	"github.com/ashureev/chef-interview/internal/interview"
)

// Interface compliance checks.
var (
	_ interview.Generator = (*Generator)(nil)
	_ interview.Renderer  = (*Renderer)(nil)
	_ interview.Notifier  = (*Notifier)(nil)
)

// Generator is a test double for interview.Generator.
// Set InitialFn and RefineFn before calling the matching method.
type Generator struct {
	InitialFn func(ctx context.Context, turns []domain.Turn) (*domain.ModelRound, error)
	RefineFn  func(ctx context.Context, turns []domain.Turn, priorNote string) (*domain.ModelRound, error)
}

// GenerateInitial delegates to InitialFn.
func (g *Generator) GenerateInitial(ctx context.Context, turns []domain.Turn) (*domain.ModelRound, error) {
	return g.InitialFn(ctx, turns)
}

// GenerateRefinement delegates to RefineFn.
func (g *Generator) GenerateRefinement(ctx context.Context, turns []domain.Turn, priorNote string) (*domain.ModelRound, error) {
	return g.RefineFn(ctx, turns, priorNote)
}

// Renderer is a test double for interview.Renderer.
type Renderer struct {
	RenderFn func(ctx context.Context, html string) ([]byte, error)
}

// RenderPDF delegates to RenderFn.
func (r *Renderer) RenderPDF(ctx context.Context, html string) ([]byte, error) {
	return r.RenderFn(ctx, html)
}

// Notifier records every event it receives.
type Notifier struct {
	mu     sync.Mutex
	events []domain.Event
}

// Notify records ev.
func (n *Notifier) Notify(ev domain.Event) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, ev)
}

// Events returns the recorded events in order.
func (n *Notifier) Events() []domain.Event {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]domain.Event(nil), n.events...)
}

// Types returns the recorded event types in order.
func (n *Notifier) Types() []domain.EventType {
	n.mu.Lock()
	defer n.mu.Unlock()
	types := make([]domain.EventType, len(n.events))
	for i, ev := range n.events {
		types[i] = ev.Type
	}
	return types
}
