package session

import (
	"fmt"
	"sync"
	"testing"
	"time"
)

func TestRegister_ActiveCount(t *testing.T) {
	r := NewRegistry(time.Hour, time.Minute)

	r.Register("u1", "s1", time.Hour)
	r.Register("u1", "s2", time.Hour)
	r.Register("u2", "s3", time.Hour)

	if got := r.ActiveCount("u1"); got != 2 {
		t.Errorf("ActiveCount(u1) = %d, want 2", got)
	}
	if got := r.ActiveCount("u2"); got != 1 {
		t.Errorf("ActiveCount(u2) = %d, want 1", got)
	}
}

func TestRegister_RefreshesExistingSession(t *testing.T) {
	r := NewRegistry(time.Hour, time.Minute)

	r.Register("u1", "s1", time.Hour)
	r.Register("u1", "s1", 2*time.Hour)

	if got := r.ActiveCount("u1"); got != 1 {
		t.Errorf("ActiveCount(u1) = %d, want 1", got)
	}
}

func TestRevokeToken_ImmediatelyVisible(t *testing.T) {
	r := NewRegistry(time.Hour, time.Minute)
	r.Register("u1", "s1", time.Hour)

	r.RevokeToken("s1", time.Hour)

	if !r.IsRevoked("s1") {
		t.Error("IsRevoked(s1) = false immediately after RevokeToken")
	}
	if got := r.ActiveCount("u1"); got != 0 {
		t.Errorf("ActiveCount(u1) = %d, want 0 after revocation", got)
	}
}

func TestRevokeAllForPrincipal(t *testing.T) {
	r := NewRegistry(time.Hour, time.Minute)
	r.Register("u1", "s1", time.Hour)
	r.Register("u1", "s2", time.Hour)
	r.Register("u2", "s3", time.Hour)

	revoked := r.RevokeAllForPrincipal("u1")

	if len(revoked) != 2 {
		t.Errorf("revoked %d sessions, want 2", len(revoked))
	}
	if got := r.ActiveCount("u1"); got != 0 {
		t.Errorf("ActiveCount(u1) = %d, want 0", got)
	}
	if !r.IsRevoked("s1") || !r.IsRevoked("s2") {
		t.Error("s1 and s2 should both be revoked")
	}
	if r.IsRevoked("s3") {
		t.Error("s3 belongs to another principal and should not be revoked")
	}
}

func TestIsRevoked_ExpiresAfterTTLAndRead(t *testing.T) {
	r := NewRegistry(time.Hour, time.Minute)
	now := time.Now()
	r.nowF = func() time.Time { return now }

	r.RevokeToken("s1", time.Minute)
	if !r.IsRevoked("s1") {
		t.Fatal("s1 should be revoked within the TTL window")
	}

	now = now.Add(2 * time.Minute)
	if r.IsRevoked("s1") {
		t.Error("s1 should no longer be revoked after the TTL elapses")
	}
	// Lazy deletion on read removed the entry.
	r.mu.RLock()
	_, still := r.revoked["s1"]
	r.mu.RUnlock()
	if still {
		t.Error("expired revocation entry should be deleted on read")
	}
}

func TestSweep_PurgesExpiredEntries(t *testing.T) {
	r := NewRegistry(time.Hour, time.Minute)
	now := time.Now()
	r.nowF = func() time.Time { return now }

	r.Register("u1", "s1", time.Minute)
	r.RevokeToken("s2", time.Minute)

	now = now.Add(2 * time.Minute)
	r.sweep()

	r.mu.RLock()
	_, hasPrincipal := r.active["u1"]
	_, hasRevoked := r.revoked["s2"]
	r.mu.RUnlock()
	if hasPrincipal {
		t.Error("sweep should drop principals with no live sessions")
	}
	if hasRevoked {
		t.Error("sweep should drop expired revocation entries")
	}
}

func TestRegistry_ConcurrentRevocationVisible(t *testing.T) {
	r := NewRegistry(time.Hour, time.Minute)
	for i := 0; i < 50; i++ {
		r.Register("u1", fmt.Sprintf("s%d", i), time.Hour)
	}

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(id string) {
			defer wg.Done()
			r.RevokeToken(id, time.Hour)
			if !r.IsRevoked(id) {
				t.Errorf("IsRevoked(%s) = false after RevokeToken", id)
			}
		}(fmt.Sprintf("s%d", i))
	}
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			r.ActiveCount("u1")
			r.sweep()
		}()
	}
	wg.Wait()

	if got := r.ActiveCount("u1"); got != 0 {
		t.Errorf("ActiveCount(u1) = %d, want 0 after all revocations", got)
	}
}

func TestStartStop(t *testing.T) {
	r := NewRegistry(time.Hour, 10*time.Millisecond)
	now := time.Now()
	var mu sync.Mutex
	r.nowF = func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		return now
	}

	r.Register("u1", "s1", time.Minute)
	mu.Lock()
	now = now.Add(2 * time.Minute)
	mu.Unlock()

	r.Start()
	defer r.Stop()

	deadline := time.After(2 * time.Second)
	for r.ActiveCount("u1") != 0 {
		select {
		case <-deadline:
			t.Fatal("background sweep did not purge the expired session")
		case <-time.After(10 * time.Millisecond):
		}
	}

	r.Stop()
	r.Stop() // idempotent
}
