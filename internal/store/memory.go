package store

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/ashureev/chef-interview/internal/domain"
)

var errIDExhausted = errors.New("could not allocate a unique session id")

// MemoryStore keeps sessions in process memory. Values are copied on the
// way in and out so callers never share state with the store.
type MemoryStore struct {
	mu       sync.RWMutex
	sessions map[string]*domain.Session
	opts     options
}

// NewMemory creates an empty in-memory repository.
func NewMemory(opts ...Option) *MemoryStore {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	return &MemoryStore{
		sessions: make(map[string]*domain.Session),
		opts:     o,
	}
}

// Create implements Repository.
func (s *MemoryStore) Create(_ context.Context) (*domain.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for range maxCreateAttempts {
		id := s.opts.newID()
		if _, taken := s.sessions[id]; taken {
			continue
		}
		session := domain.NewSession(id, s.opts.now())
		s.sessions[id] = session
		return session.Clone(), nil
	}
	return nil, errIDExhausted
}

// Get implements Repository.
func (s *MemoryStore) Get(_ context.Context, id string) (*domain.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	session, ok := s.sessions[id]
	if !ok {
		return nil, notFound(id)
	}
	return session.Clone(), nil
}

// Put implements Repository.
func (s *MemoryStore) Put(_ context.Context, session *domain.Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.sessions[session.ID]; !ok {
		return notFound(session.ID)
	}
	s.sessions[session.ID] = session.Clone()
	return nil
}

// Delete implements Repository.
func (s *MemoryStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.sessions, id)
	return nil
}

// DeleteIdle implements Repository.
func (s *MemoryStore) DeleteIdle(_ context.Context, ttl time.Duration) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cutoff := s.opts.now().Add(-ttl)
	var ids []string
	for id, session := range s.sessions {
		if session.UpdatedAt.Before(cutoff) {
			ids = append(ids, id)
			delete(s.sessions, id)
		}
	}
	return ids, nil
}

// Ping implements Repository.
func (s *MemoryStore) Ping(context.Context) error {
	return nil
}

// Close implements Repository.
func (s *MemoryStore) Close() error {
	return nil
}
