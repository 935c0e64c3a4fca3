package session

import (
	"sync"

	"taskpal/internal/api"
)

// Credentials is what survives a restart: the bearer token and the user
// record it was issued to.
type Credentials struct {
	Token string   `json:"token"`
	User  api.User `json:"user"`
}

// Empty reports whether no credential is held.
func (c Credentials) Empty() bool {
	return c.Token == "" || c.User.ID == ""
}

// Persistence stores credentials across process restarts. Clearing it is the
// sole logout mechanism; a failed Load is treated as "nothing persisted".
type Persistence interface {
	Load() (Credentials, error)
	Save(Credentials) error
	Clear() error
}

// MemoryPersistence is an in-process Persistence used by tests and by
// ephemeral sessions that should not touch disk.
type MemoryPersistence struct {
	mu    sync.Mutex
	creds Credentials
	held  bool
}

func NewMemoryPersistence() *MemoryPersistence {
	return &MemoryPersistence{}
}

func (m *MemoryPersistence) Load() (Credentials, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.held {
		return Credentials{}, nil
	}
	return m.creds, nil
}

func (m *MemoryPersistence) Save(creds Credentials) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.creds = creds
	m.held = true
	return nil
}

func (m *MemoryPersistence) Clear() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.creds = Credentials{}
	m.held = false
	return nil
}
