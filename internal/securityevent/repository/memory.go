package repository

import (
	"context"
	"sync"

	"trustplane/internal/securityevent/domain"
)

const memoryCap = 2000

// MemoryRepository is a bounded in-memory Repository for deployments without a
// database and for tests. Oldest events are evicted past the cap.
type MemoryRepository struct {
	mu     sync.RWMutex
	events []*domain.Event
}

// NewMemoryRepository returns an empty in-memory security event repository.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{}
}

// Create appends the event, evicting the oldest event past the cap.
func (r *MemoryRepository) Create(ctx context.Context, e *domain.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
	if len(r.events) > memoryCap {
		r.events = r.events[len(r.events)-memoryCap:]
	}
	return nil
}

// ListByTenant returns up to limit events for the tenant, newest first.
func (r *MemoryRepository) ListByTenant(ctx context.Context, tenantID string, limit int32) ([]*domain.Event, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	n := int(limit)
	if n <= 0 {
		n = len(r.events)
	}
	out := make([]*domain.Event, 0, n)
	for i := len(r.events) - 1; i >= 0 && len(out) < n; i-- {
		if r.events[i].TenantID == tenantID {
			out = append(out, r.events[i])
		}
	}
	return out, nil
}
