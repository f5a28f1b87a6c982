package repository

import (
	"context"

	"trustplane/internal/securityevent/domain"
)

// Repository defines persistence for security events.
type Repository interface {
	Create(ctx context.Context, e *domain.Event) error
	ListByTenant(ctx context.Context, tenantID string, limit int32) ([]*domain.Event, error)
}
