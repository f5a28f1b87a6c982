// Package securityevent records security events raised by the trust pipeline:
// a bounded in-memory log for observability, best-effort persistence, and an
// optional fire-and-forget Kafka fan-out.
package securityevent

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"

	"trustplane/internal/securityevent/domain"
	"trustplane/internal/securityevent/producer"
	eventrepo "trustplane/internal/securityevent/repository"
)

const defaultCap = 2000

// emitTimeout bounds a single async producer emit.
const emitTimeout = 5 * time.Second

// Sink appends security events. Every write is best-effort: the in-memory log
// always succeeds, repository and producer failures are logged and swallowed.
type Sink struct {
	mu     sync.RWMutex
	events []domain.Event
	cap    int

	repo     eventrepo.Repository
	producer producer.Producer
}

// NewSink returns a sink with the given optional repository and producer.
// Either may be nil.
func NewSink(repo eventrepo.Repository, prod producer.Producer) *Sink {
	return &Sink{cap: defaultCap, repo: repo, producer: prod}
}

// Append records one event, filling in its id and timestamp. The in-memory
// log evicts oldest-first past the cap.
func (s *Sink) Append(ctx context.Context, severity, principalID, tenantID, description string) domain.Event {
	ev := domain.Event{
		ID:          uuid.New().String(),
		Severity:    severity,
		PrincipalID: principalID,
		TenantID:    tenantID,
		Description: description,
		CreatedAt:   time.Now().UTC(),
	}

	s.mu.Lock()
	s.events = append(s.events, ev)
	if len(s.events) > s.cap {
		s.events = s.events[len(s.events)-s.cap:]
	}
	s.mu.Unlock()

	if s.repo != nil {
		if err := s.repo.Create(ctx, &ev); err != nil {
			log.Printf("securityevent: persist failed: %v", err)
		}
	}
	if s.producer != nil {
		// Fire-and-forget: detach from the request context so cancellation
		// does not abort an in-flight emit.
		go func(ev domain.Event) {
			emitCtx, cancel := context.WithTimeout(context.Background(), emitTimeout)
			defer cancel()
			_ = s.producer.Emit(emitCtx, &ev)
		}(ev)
	}
	return ev
}

// Recent returns up to n events, newest first.
func (s *Sink) Recent(n int) []domain.Event {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if n <= 0 || n > len(s.events) {
		n = len(s.events)
	}
	out := make([]domain.Event, 0, n)
	for i := len(s.events) - 1; i >= 0 && len(out) < n; i-- {
		out = append(out, s.events[i])
	}
	return out
}

// Len returns the number of events currently retained in memory.
func (s *Sink) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.events)
}
