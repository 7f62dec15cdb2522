package session

import (
	"context"
	"sync"
	"time"
)

// MemoryStore is an in-process Store. Suitable for a single bot instance;
// sessions do not survive a restart.
type MemoryStore struct {
	mu       sync.Mutex
	sessions map[string]Session
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{sessions: make(map[string]Session)}
}

func (m *MemoryStore) Get(_ context.Context, userKey string) (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	sess, ok := m.sessions[userKey]
	if !ok {
		return nil, nil
	}
	if sess.Expired(time.Now()) {
		delete(m.sessions, userKey)
		return nil, nil
	}

	cp := sess
	return &cp, nil
}

func (m *MemoryStore) Put(_ context.Context, sess *Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[sess.UserKey] = *sess
	return nil
}

func (m *MemoryStore) Delete(_ context.Context, userKey string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, userKey)
	return nil
}
