package repository

import (
	"context"
	"sync"

	"trustplane/internal/audit/domain"
)

const memoryCap = 2000

// MemoryRepository is a bounded in-memory Repository for deployments without a
// database and for tests. Oldest entries are evicted past the cap.
type MemoryRepository struct {
	mu      sync.RWMutex
	entries []*domain.Entry
}

// NewMemoryRepository returns an empty in-memory audit repository.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{}
}

// Create appends the entry, evicting the oldest entry past the cap.
func (r *MemoryRepository) Create(ctx context.Context, e *domain.Entry) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries = append(r.entries, e)
	if len(r.entries) > memoryCap {
		r.entries = r.entries[len(r.entries)-memoryCap:]
	}
	return nil
}

// ListRecent returns up to limit entries, newest first.
func (r *MemoryRepository) ListRecent(ctx context.Context, limit int32) ([]*domain.Entry, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	n := int(limit)
	if n <= 0 || n > len(r.entries) {
		n = len(r.entries)
	}
	out := make([]*domain.Entry, 0, n)
	for i := len(r.entries) - 1; i >= 0 && len(out) < n; i-- {
		out = append(out, r.entries[i])
	}
	return out, nil
}
