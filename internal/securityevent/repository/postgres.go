package repository

import (
	"context"
	"database/sql"

	"trustplane/internal/securityevent/domain"
)

type PostgresRepository struct {
	db *sql.DB
}

// NewPostgresRepository returns a security event repository that uses the given db for persistence.
func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// Create persists the event. The event must have ID set.
func (r *PostgresRepository) Create(ctx context.Context, e *domain.Event) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO security_events (id, severity, principal_id, tenant_id, description, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		e.ID, e.Severity, e.PrincipalID, e.TenantID, e.Description, e.CreatedAt,
	)
	return err
}

// ListByTenant returns the most recent events for the tenant, newest first.
// Returns (nil, error) only on database errors.
func (r *PostgresRepository) ListByTenant(ctx context.Context, tenantID string, limit int32) ([]*domain.Event, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, severity, principal_id, tenant_id, description, created_at
		 FROM security_events WHERE tenant_id = $1 ORDER BY created_at DESC LIMIT $2`,
		tenantID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []*domain.Event
	for rows.Next() {
		var e domain.Event
		if err := rows.Scan(&e.ID, &e.Severity, &e.PrincipalID, &e.TenantID, &e.Description, &e.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, &e)
	}
	return out, rows.Err()
}
