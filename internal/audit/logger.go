package audit

import (
	"context"
	"log"
	"time"

	"github.com/google/uuid"

	"trustplane/internal/audit/domain"
	auditrepo "trustplane/internal/audit/repository"
)

// SentinelActor is the actor recorded for audit events with no principal
// (e.g. a scoring failure before identity was established).
const SentinelActor = "_system"

// IPExtractor returns the client IP from the request context (e.g. gRPC metadata or peer).
type IPExtractor func(context.Context) string

// Recorder writes a single audit record. Record is fire-and-forget: it must
// never raise, and failures do not affect the caller.
type Recorder interface {
	Record(ctx context.Context, actor, role, action, detail string)
}

// Logger implements Recorder using the audit repository and an optional IP extractor.
type Logger struct {
	repo        auditrepo.Repository
	ipExtractor IPExtractor
}

// NewLogger returns a Recorder that persists to repo and uses ipExtractor for
// client IP. ipExtractor may be nil; then IP is recorded as "unknown".
func NewLogger(repo auditrepo.Repository, ipExtractor IPExtractor) *Logger {
	return &Logger{repo: repo, ipExtractor: ipExtractor}
}

// Record writes one audit entry. Best-effort: errors are logged and not returned.
func (l *Logger) Record(ctx context.Context, actor, role, action, detail string) {
	if l.repo == nil {
		return
	}
	ip := "unknown"
	if l.ipExtractor != nil {
		ip = l.ipExtractor(ctx)
	}
	if actor == "" {
		actor = SentinelActor
	}
	entry := &domain.Entry{
		ID:        uuid.New().String(),
		Actor:     actor,
		Role:      role,
		Action:    action,
		Detail:    detail,
		IP:        ip,
		CreatedAt: time.Now().UTC(),
	}
	if err := l.repo.Create(ctx, entry); err != nil {
		log.Printf("audit: failed to record %s: %v", action, err)
	}
}
