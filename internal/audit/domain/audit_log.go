package domain

import "time"

// Entry represents one audit trail record written by the trust pipeline.
type Entry struct {
	ID        string
	Actor     string // principal id, or SentinelActor for system-originated records
	Role      string
	Action    string
	Detail    string
	IP        string
	CreatedAt time.Time
}
