package scopestore

import (
	"context"
	"sync"
)

type inMemory struct {
	mu     sync.RWMutex
	scopes map[string][]string
}

// NewMemoryStore returns an in-process Store.
func NewMemoryStore() Store {
	return &inMemory{}
}

func (m *inMemory) SaveScope(_ context.Context, server string, tools []string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.scopes == nil {
		// create on first use
		m.scopes = make(map[string][]string)
	}
	cp := make([]string, len(tools))
	copy(cp, tools)
	m.scopes[server] = cp
	return nil
}

func (m *inMemory) GetScope(_ context.Context, server string) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.scopes == nil {
		return nil, nil
	}
	scope := m.scopes[server]
	cp := make([]string, len(scope))
	copy(cp, scope)
	return cp, nil
}

func (m *inMemory) ListServers(_ context.Context) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	servers := make([]string, 0, len(m.scopes))
	for name := range m.scopes {
		servers = append(servers, name)
	}
	return servers, nil
}

func (m *inMemory) Reset(_ context.Context, server string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.scopes != nil {
		delete(m.scopes, server)
	}
	return nil
}
