package repository

import (
	"context"

	"trustplane/internal/policy/domain"
)

// Repository defines persistence for enforcement policies.
type Repository interface {
	GetEnabledByTenant(ctx context.Context, tenantID string) ([]*domain.Policy, error)
	Create(ctx context.Context, p *domain.Policy) error
}
