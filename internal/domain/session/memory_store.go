package session

import (
	"context"
	"sync"
	"time"
)

type memoryEntry struct {
	sess      *Session
	expiresAt time.Time
}

// MemoryStore is a volatile Store implementation keeping sessions in a
// process-local map. It is safe for concurrent access and suited to tests and
// single-node development. Stored and returned sessions are cloned so callers
// cannot mutate internal state.
type MemoryStore struct {
	mu      sync.RWMutex
	entries map[string]memoryEntry
	now     func() time.Time
}

// NewMemoryStore constructs an empty in-memory session store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		entries: make(map[string]memoryEntry),
		now:     time.Now,
	}
}

// Get returns a clone of the stored session, or (nil, nil) when the key is
// absent or past its deadline. Expired entries are reaped lazily.
func (m *MemoryStore) Get(ctx context.Context, userID string) (*Session, error) {
	m.mu.RLock()
	entry, ok := m.entries[userID]
	m.mu.RUnlock()
	if !ok {
		return nil, nil
	}
	if m.now().After(entry.expiresAt) {
		m.mu.Lock()
		delete(m.entries, userID)
		m.mu.Unlock()
		return nil, nil
	}
	return entry.sess.Clone(), nil
}

// Put stores a clone of the session and resets its deadline.
func (m *MemoryStore) Put(ctx context.Context, userID string, sess *Session, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[userID] = memoryEntry{
		sess:      sess.Clone(),
		expiresAt: m.now().Add(ttl),
	}
	return nil
}

// Delete removes the session, reporting whether an unexpired one existed.
func (m *MemoryStore) Delete(ctx context.Context, userID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	entry, ok := m.entries[userID]
	if !ok {
		return false, nil
	}
	delete(m.entries, userID)
	return m.now().Before(entry.expiresAt), nil
}

// Touch renews the deadline of a present, unexpired session.
func (m *MemoryStore) Touch(ctx context.Context, userID string, ttl time.Duration) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	entry, ok := m.entries[userID]
	if !ok || m.now().After(entry.expiresAt) {
		delete(m.entries, userID)
		return false, nil
	}
	entry.expiresAt = m.now().Add(ttl)
	m.entries[userID] = entry
	return true, nil
}

// SetClock overrides the time source, for deterministic expiry tests.
func (m *MemoryStore) SetClock(now func() time.Time) {
	m.now = now
}
