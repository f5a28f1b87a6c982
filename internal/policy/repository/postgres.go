package repository

import (
	"context"
	"database/sql"

	"trustplane/internal/policy/domain"
)

type PostgresRepository struct {
	db *sql.DB
}

// NewPostgresRepository returns a policy repository that uses the given db for persistence.
func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// GetEnabledByTenant returns all enabled policies for the tenant.
// Returns (nil, error) only on database errors.
func (r *PostgresRepository) GetEnabledByTenant(ctx context.Context, tenantID string) ([]*domain.Policy, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, tenant_id, rules, enabled, created_at
		 FROM policies WHERE tenant_id = $1 AND enabled`, tenantID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []*domain.Policy
	for rows.Next() {
		var p domain.Policy
		if err := rows.Scan(&p.ID, &p.TenantID, &p.Rules, &p.Enabled, &p.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, &p)
	}
	return out, rows.Err()
}

// Create persists the policy. The policy must have ID set.
func (r *PostgresRepository) Create(ctx context.Context, p *domain.Policy) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO policies (id, tenant_id, rules, enabled, created_at)
		 VALUES ($1, $2, $3, $4, $5)`,
		p.ID, p.TenantID, p.Rules, p.Enabled, p.CreatedAt,
	)
	return err
}
