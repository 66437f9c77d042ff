package interview

import "context"

// Test-only bridges so external tests (package interview_test) can reach
// unexported lock internals without an import cycle through internal/mock.

type SessionLocks = sessionLocks

func (l *sessionLocks) Lock(ctx context.Context, id string) (func(), error) { return l.lock(ctx, id) }

func (l *sessionLocks) TryLock(id string) (func(), bool) { return l.tryLock(id) }

func (l *sessionLocks) Size() int { return l.size() }

func LockCount(s *Service) int { return s.locks.size() }
