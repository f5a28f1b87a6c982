package repository

import (
	"context"
	"sync"

	"trustplane/internal/policy/domain"
)

// MemoryRepository is an in-memory Repository for tests and database-less runs.
type MemoryRepository struct {
	mu       sync.RWMutex
	policies []*domain.Policy
}

// NewMemoryRepository returns an empty in-memory policy repository.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{}
}

// GetEnabledByTenant returns all enabled policies for the tenant.
func (r *MemoryRepository) GetEnabledByTenant(ctx context.Context, tenantID string) ([]*domain.Policy, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []*domain.Policy
	for _, p := range r.policies {
		if p.TenantID == tenantID && p.Enabled {
			out = append(out, p)
		}
	}
	return out, nil
}

// Create stores the policy.
func (r *MemoryRepository) Create(ctx context.Context, p *domain.Policy) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.policies = append(r.policies, p)
	return nil
}
