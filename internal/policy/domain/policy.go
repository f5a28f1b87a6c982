package domain

import "time"

// Policy represents a tenant-level enforcement policy written in Rego.
type Policy struct {
	ID        string
	TenantID  string
	Rules     string
	Enabled   bool
	CreatedAt time.Time
}
