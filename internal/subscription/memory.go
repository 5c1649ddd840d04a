// ABOUTME: In-memory subscription Store for tests and dry runs
// ABOUTME: Allows the bot and API to run without a database

package subscription

import (
	"context"
	"sync"
	"time"
)

// MemoryStore is an in-memory Store implementation.
type MemoryStore struct {
	mu   sync.RWMutex
	subs map[string]Subscription
	now  func() time.Time
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{subs: make(map[string]Subscription), now: time.Now}
}

// Put stores sub under key.
func (m *MemoryStore) Put(ctx context.Context, key string, sub Subscription) (string, error) {
	sub, err := prepare(key, sub, m.now())
	if err != nil {
		return "", err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.subs[sub.ID] = sub
	return sub.ID, nil
}

// Get returns the subscription stored under key.
func (m *MemoryStore) Get(ctx context.Context, key string) (Subscription, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	sub, ok := m.subs[key]
	if !ok {
		return Subscription{}, notFound(key)
	}
	return sub, nil
}

// Delete removes key.
func (m *MemoryStore) Delete(ctx context.Context, key string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.subs[key]; !ok {
		return "", notFound(key)
	}
	delete(m.subs, key)
	return key, nil
}

// List returns a copy of all subscriptions.
func (m *MemoryStore) List(ctx context.Context) (map[string]Subscription, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make(map[string]Subscription, len(m.subs))
	for k, v := range m.subs {
		out[k] = v
	}
	return out, nil
}

// Close is a no-op.
func (m *MemoryStore) Close() error {
	return nil
}
