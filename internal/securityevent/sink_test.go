package securityevent

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"trustplane/internal/securityevent/domain"
)

type mockEventRepo struct {
	mu        sync.Mutex
	events    []*domain.Event
	createErr error
}

func (m *mockEventRepo) Create(ctx context.Context, e *domain.Event) error {
	if m.createErr != nil {
		return m.createErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, e)
	return nil
}

func (m *mockEventRepo) ListByTenant(ctx context.Context, tenantID string, limit int32) ([]*domain.Event, error) {
	return nil, nil
}

func TestSink_AppendFillsIDAndTimestamp(t *testing.T) {
	s := NewSink(nil, nil)

	ev := s.Append(context.Background(), "high", "user-1", "tenant-1", "combined score 85")

	if ev.ID == "" {
		t.Error("event ID should be set")
	}
	if ev.CreatedAt.IsZero() {
		t.Error("event CreatedAt should be set")
	}
	if s.Len() != 1 {
		t.Errorf("Len() = %d, want 1", s.Len())
	}
}

func TestSink_AppendPersists(t *testing.T) {
	repo := &mockEventRepo{}
	s := NewSink(repo, nil)

	s.Append(context.Background(), "critical", "user-1", "tenant-1", "blocked")

	if len(repo.events) != 1 {
		t.Fatalf("expected 1 persisted event, got %d", len(repo.events))
	}
	if repo.events[0].Severity != "critical" {
		t.Errorf("severity = %q, want critical", repo.events[0].Severity)
	}
}

func TestSink_AppendSwallowsRepoError(t *testing.T) {
	repo := &mockEventRepo{createErr: errors.New("database error")}
	s := NewSink(repo, nil)

	// Best-effort: must not panic, and the in-memory log still records it.
	s.Append(context.Background(), "high", "user-1", "tenant-1", "flagged")
	if s.Len() != 1 {
		t.Errorf("Len() = %d, want 1", s.Len())
	}
}

func TestSink_EvictsOldestPastCap(t *testing.T) {
	s := NewSink(nil, nil)
	s.cap = 3

	for i := 0; i < 5; i++ {
		s.Append(context.Background(), "medium", fmt.Sprintf("user-%d", i), "tenant-1", "")
	}

	if s.Len() != 3 {
		t.Fatalf("Len() = %d, want 3", s.Len())
	}
	recent := s.Recent(3)
	if recent[0].PrincipalID != "user-4" {
		t.Errorf("newest event principal = %q, want user-4", recent[0].PrincipalID)
	}
	if recent[2].PrincipalID != "user-2" {
		t.Errorf("oldest retained principal = %q, want user-2", recent[2].PrincipalID)
	}
}

func TestSink_ConcurrentAppend(t *testing.T) {
	s := NewSink(nil, nil)
	s.cap = 50

	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			s.Append(context.Background(), "medium", fmt.Sprintf("user-%d", i), "tenant-1", "")
			s.Recent(10)
		}(i)
	}
	wg.Wait()

	if s.Len() != 50 {
		t.Errorf("Len() = %d, want capped at 50", s.Len())
	}
}
