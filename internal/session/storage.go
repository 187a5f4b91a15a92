package session

import "sync"

// Storage is the durable storage port for the session token. It holds at
// most one token. Load returns an empty string when no token is stored.
type Storage interface {
	Load() (string, error)
	Save(token string) error
	Clear() error
}

// MemoryStorage is an in-memory Storage, used in tests and for sessions that
// should not outlive the process.
type MemoryStorage struct {
	mu    sync.Mutex
	token string
}

// NewMemoryStorage creates a MemoryStorage seeded with token.
func NewMemoryStorage(token string) *MemoryStorage {
	return &MemoryStorage{token: token}
}

func (m *MemoryStorage) Load() (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.token, nil
}

func (m *MemoryStorage) Save(token string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.token = token
	return nil
}

func (m *MemoryStorage) Clear() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.token = ""
	return nil
}
