package device

import (
	"context"
	"sync"
	"time"
)

// Binding is a principal's bound device fingerprint and token version.
// The token version is monotonic: bumping it invalidates every token issued
// with a lower version, even if the session id is not in the revoked set.
type Binding struct {
	PrincipalID  string
	Fingerprint  string
	TokenVersion int
	BoundAt      time.Time
}

// Store persists device bindings per principal. Principal records live with an
// external collaborator in production; this interface is the pipeline's view
// of them.
type Store interface {
	Get(ctx context.Context, principalID string) (*Binding, error)
	Save(ctx context.Context, b *Binding) error
	// BumpTokenVersion increments and returns the principal's token version.
	BumpTokenVersion(ctx context.Context, principalID string) (int, error)
}

// MemoryStore is an in-memory Store implementation.
type MemoryStore struct {
	mu sync.RWMutex
	m  map[string]Binding
}

// NewMemoryStore returns a new in-memory binding store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{m: make(map[string]Binding)}
}

// Get returns the binding for principalID, or nil if none exists.
func (s *MemoryStore) Get(ctx context.Context, principalID string) (*Binding, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	b, ok := s.m[principalID]
	if !ok {
		return nil, nil
	}
	return &b, nil
}

// Save inserts or replaces the binding for b.PrincipalID.
func (s *MemoryStore) Save(ctx context.Context, b *Binding) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.m[b.PrincipalID] = *b
	return nil
}

// BumpTokenVersion increments the principal's token version, creating the
// binding record if needed.
func (s *MemoryStore) BumpTokenVersion(ctx context.Context, principalID string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b := s.m[principalID]
	b.PrincipalID = principalID
	b.TokenVersion++
	s.m[principalID] = b
	return b.TokenVersion, nil
}
