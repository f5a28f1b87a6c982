package audit

import (
	"context"
	"errors"
	"testing"

	"trustplane/internal/audit/domain"
)

// mockAuditRepo implements the audit repository interface for tests.
type mockAuditRepo struct {
	entries   []*domain.Entry
	createErr error
}

func (m *mockAuditRepo) Create(ctx context.Context, entry *domain.Entry) error {
	if m.createErr != nil {
		return m.createErr
	}
	m.entries = append(m.entries, entry)
	return nil
}

func (m *mockAuditRepo) ListRecent(ctx context.Context, limit int32) ([]*domain.Entry, error) {
	return nil, nil
}

func TestLogger_Record_Success(t *testing.T) {
	repo := &mockAuditRepo{}
	ipExtractor := func(ctx context.Context) string {
		return "192.168.1.1"
	}
	logger := NewLogger(repo, ipExtractor)
	ctx := context.Background()

	logger.Record(ctx, "user-1", "admin", "trust_flagged", "score=72")

	if len(repo.entries) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(repo.entries))
	}
	entry := repo.entries[0]
	if entry.Actor != "user-1" {
		t.Errorf("actor = %q, want %q", entry.Actor, "user-1")
	}
	if entry.Role != "admin" {
		t.Errorf("role = %q, want %q", entry.Role, "admin")
	}
	if entry.Action != "trust_flagged" {
		t.Errorf("action = %q, want %q", entry.Action, "trust_flagged")
	}
	if entry.Detail != "score=72" {
		t.Errorf("detail = %q, want %q", entry.Detail, "score=72")
	}
	if entry.IP != "192.168.1.1" {
		t.Errorf("ip = %q, want %q", entry.IP, "192.168.1.1")
	}
	if entry.ID == "" {
		t.Error("entry ID should be set")
	}
	if entry.CreatedAt.IsZero() {
		t.Error("entry CreatedAt should be set")
	}
}

func TestLogger_Record_NilIPExtractor(t *testing.T) {
	repo := &mockAuditRepo{}
	logger := NewLogger(repo, nil)

	logger.Record(context.Background(), "user-1", "user", "action", "")

	if len(repo.entries) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(repo.entries))
	}
	if repo.entries[0].IP != "unknown" {
		t.Errorf("ip = %q, want %q", repo.entries[0].IP, "unknown")
	}
}

func TestLogger_Record_SentinelActor(t *testing.T) {
	repo := &mockAuditRepo{}
	logger := NewLogger(repo, nil)

	logger.Record(context.Background(), "", "", "scoring_failure", "")

	if len(repo.entries) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(repo.entries))
	}
	if repo.entries[0].Actor != SentinelActor {
		t.Errorf("actor = %q, want %q", repo.entries[0].Actor, SentinelActor)
	}
}

func TestLogger_Record_RepositoryError(t *testing.T) {
	repo := &mockAuditRepo{createErr: errors.New("database error")}
	logger := NewLogger(repo, nil)

	// Best-effort: must not panic or surface the error.
	logger.Record(context.Background(), "user-1", "user", "action", "")
}

func TestLogger_Record_NilRepo(t *testing.T) {
	logger := NewLogger(nil, nil)

	// No-op when repo is nil.
	logger.Record(context.Background(), "user-1", "user", "action", "")
}
