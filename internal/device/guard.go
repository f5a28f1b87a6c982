// Package device binds principals to a device fingerprint and enforces the
// binding on each request. A first login binds unconditionally; a mismatch is
// always audited and, in strict mode, terminates every live session for the
// principal and bumps their token version.
package device

import (
	"context"
	"fmt"
	"log"
	"time"

	"trustplane/internal/audit"
	"trustplane/internal/principal"
	"trustplane/internal/session"
)

// Verdict is the result of a binding check.
type Verdict struct {
	Allowed  bool
	Mismatch bool
	// Bound is the fingerprint the principal was bound to before this check.
	// Empty on first login. Downstream scoring compares it against the
	// presented fingerprint to detect drift.
	Bound string
	// RevokedSessions lists session ids terminated by a strict-mode mismatch.
	RevokedSessions []string
}

// Guard compares a request's fingerprint against the principal's bound one.
type Guard struct {
	store    Store
	sessions *session.Registry
	audit    audit.Recorder
	strict   bool
	nowF     func() time.Time
}

// NewGuard returns a guard. When strict is false the guard is detect-only:
// mismatches are audited but allowed.
func NewGuard(store Store, sessions *session.Registry, recorder audit.Recorder, strict bool) *Guard {
	return &Guard{store: store, sessions: sessions, audit: recorder, strict: strict, nowF: time.Now}
}

// Check evaluates the principal's fingerprint binding. Store failures fail
// open: the request is allowed and the failure is audited.
func (g *Guard) Check(ctx context.Context, p principal.Principal, fingerprint string) Verdict {
	bound, err := g.store.Get(ctx, p.ID)
	if err != nil {
		log.Printf("device: binding lookup for %s failed: %v", p.ID, err)
		g.record(ctx, p, "device_binding_lookup_failed", err.Error())
		return Verdict{Allowed: true}
	}

	if bound == nil || bound.Fingerprint == "" {
		// First login: bind and allow unconditionally.
		if fingerprint != "" {
			version := 0
			if bound != nil {
				version = bound.TokenVersion
			}
			b := &Binding{PrincipalID: p.ID, Fingerprint: fingerprint, TokenVersion: version, BoundAt: g.nowF().UTC()}
			if err := g.store.Save(ctx, b); err != nil {
				log.Printf("device: binding save for %s failed: %v", p.ID, err)
			}
		}
		return Verdict{Allowed: true}
	}

	if fingerprint == bound.Fingerprint {
		return Verdict{Allowed: true, Bound: bound.Fingerprint}
	}

	detail := fmt.Sprintf("bound=%s presented=%s", bound.Fingerprint, fingerprint)
	g.record(ctx, p, "device_binding_mismatch", detail)

	if !g.strict {
		return Verdict{Allowed: true, Mismatch: true, Bound: bound.Fingerprint}
	}

	revoked := g.sessions.RevokeAllForPrincipal(p.ID)
	if _, err := g.store.BumpTokenVersion(ctx, p.ID); err != nil {
		log.Printf("device: token version bump for %s failed: %v", p.ID, err)
	}
	g.record(ctx, p, "device_binding_enforced", fmt.Sprintf("revoked %d sessions", len(revoked)))
	return Verdict{Allowed: false, Mismatch: true, Bound: bound.Fingerprint, RevokedSessions: revoked}
}

// TokenVersion returns the principal's current token version; 0 when no
// binding exists or the store fails.
func (g *Guard) TokenVersion(ctx context.Context, principalID string) int {
	b, err := g.store.Get(ctx, principalID)
	if err != nil || b == nil {
		return 0
	}
	return b.TokenVersion
}

func (g *Guard) record(ctx context.Context, p principal.Principal, action, detail string) {
	if g.audit == nil {
		return
	}
	g.audit.Record(ctx, p.ID, string(p.Role), action, detail)
}
