package tokenstore

import (
	"context"
	"sync"

	"github.com/adminkit/session/internal/models"
)

// MemoryStore holds the token pair in process memory. It is the fallback
// when persistent storage is unavailable, and the default in tests. Its
// methods never fail.
type MemoryStore struct {
	mu   sync.Mutex
	pair *models.TokenPair
}

func NewMemoryStore() *MemoryStore { return &MemoryStore{} }

func (m *MemoryStore) Get(_ context.Context) (*models.TokenPair, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.pair == nil {
		return nil, nil
	}
	p := *m.pair
	return &p, nil
}

func (m *MemoryStore) Set(_ context.Context, pair models.TokenPair) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pair = &pair
	return nil
}

func (m *MemoryStore) Clear(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pair = nil
	return nil
}
