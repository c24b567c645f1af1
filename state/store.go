// This code is in Public Domain. Take all the code you want, I'll just write more.
package state

import (
	"context"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

// Store keeps State per client id. Load returns nil, nil when the
// client is unknown or its state expired.
type Store interface {
	Load(ctx context.Context, clientID string) (*State, error)
	Save(ctx context.Context, clientID string, st *State) error
}

// MemoryStore keeps states in process memory. It remembers at most
// maxClients clients, forgetting the least recently used one first.
type MemoryStore struct {
	cache *expirable.LRU[string, *State]
}

// NewMemoryStore creates a store that forgets a client after ttl of
// inactivity. ttl of 0 means never, maxClients of 0 means no limit.
func NewMemoryStore(ttl time.Duration, maxClients int) *MemoryStore {
	return &MemoryStore{
		cache: expirable.NewLRU[string, *State](maxClients, nil, ttl),
	}
}

// Load returns a copy of the client's state
func (m *MemoryStore) Load(ctx context.Context, clientID string) (*State, error) {
	st, ok := m.cache.Get(clientID)
	if !ok {
		return nil, nil
	}
	return st.Clone(), nil
}

// Save stores a copy of st and restarts its ttl. The last Save wins.
func (m *MemoryStore) Save(ctx context.Context, clientID string, st *State) error {
	m.cache.Add(clientID, st.Clone())
	return nil
}

// Len returns number of remembered clients
func (m *MemoryStore) Len() int {
	return m.cache.Len()
}
