package domain

import "time"

// Event is a security event raised when an evaluation scores above low.
type Event struct {
	ID          string
	Severity    string // mirrors the assessment level: medium, high, critical
	PrincipalID string
	TenantID    string
	Description string
	CreatedAt   time.Time
}
