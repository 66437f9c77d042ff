package interview

import (
	"context"
	"sync"
)

// sessionLocks serializes read-modify-write cycles per session id. Each
// lock is a one-slot channel so waiters can give up when their context
// ends. An entry lives only while someone holds or waits for it.
type sessionLocks struct {
	mu sync.Mutex
	m  map[string]*sessionLock
}

type sessionLock struct {
	ch   chan struct{}
	refs int
}

func (l *sessionLocks) acquire(id string) *sessionLock {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.m == nil {
		l.m = make(map[string]*sessionLock)
	}
	sl, ok := l.m[id]
	if !ok {
		sl = &sessionLock{ch: make(chan struct{}, 1)}
		l.m[id] = sl
	}
	sl.refs++
	return sl
}

func (l *sessionLocks) release(id string, sl *sessionLock) {
	l.mu.Lock()
	defer l.mu.Unlock()
	sl.refs--
	if sl.refs == 0 {
		delete(l.m, id)
	}
}

// lock blocks until the session lock is held or ctx is done.
func (l *sessionLocks) lock(ctx context.Context, id string) (func(), error) {
	sl := l.acquire(id)
	select {
	case sl.ch <- struct{}{}:
		return func() {
			<-sl.ch
			l.release(id, sl)
		}, nil
	case <-ctx.Done():
		l.release(id, sl)
		return nil, ctx.Err()
	}
}

// tryLock acquires the session lock without waiting.
func (l *sessionLocks) tryLock(id string) (func(), bool) {
	sl := l.acquire(id)
	select {
	case sl.ch <- struct{}{}:
		return func() {
			<-sl.ch
			l.release(id, sl)
		}, true
	default:
		l.release(id, sl)
		return nil, false
	}
}

// size reports how many sessions currently have a lock entry.
func (l *sessionLocks) size() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.m)
}
