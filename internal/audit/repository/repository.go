package repository

import (
	"context"

	"trustplane/internal/audit/domain"
)

// Repository defines persistence for audit entries.
type Repository interface {
	Create(ctx context.Context, e *domain.Entry) error
	ListRecent(ctx context.Context, limit int32) ([]*domain.Entry, error)
}
