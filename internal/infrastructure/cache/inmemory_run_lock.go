package cache

import (
	"context"
	"sync"
	"time"
)

// InMemoryRunLock implements RunLock inside one process.
// It does not protect against runs started by other processes.
type InMemoryRunLock struct {
	mu    sync.Mutex
	held  map[string]lockEntry
	now   func() time.Time
	token uint64
}

type lockEntry struct {
	token     uint64
	expiresAt time.Time
}

// NewInMemoryRunLock creates a new in-memory run lock
func NewInMemoryRunLock() *InMemoryRunLock {
	return &InMemoryRunLock{
		held: make(map[string]lockEntry),
		now:  time.Now,
	}
}

// Acquire takes key unless an unexpired holder exists
func (l *InMemoryRunLock) Acquire(_ context.Context, key string, ttl time.Duration) (ReleaseFunc, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	if e, ok := l.held[key]; ok && now.Before(e.expiresAt) {
		return nil, ErrLockHeld
	}

	l.token++
	token := l.token
	l.held[key] = lockEntry{token: token, expiresAt: now.Add(ttl)}

	return func(context.Context) error {
		l.mu.Lock()
		defer l.mu.Unlock()
		// an expired lock may have been taken over; only the owner releases it
		if e, ok := l.held[key]; ok && e.token == token {
			delete(l.held, key)
		}
		return nil
	}, nil
}
