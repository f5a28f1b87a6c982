// Package session tracks active sessions and revoked session ids per
// principal, in process memory. The registry is the one piece of mutable
// shared state in the trust pipeline: revocation by one request must be
// visible to the next isRevoked check from any concurrent caller.
//
// The registry is process-local. A second deployed instance has its own
// registry, so true multi-instance revocation requires an external shared
// store; that is a documented limitation, not solved here.
package session

import (
	"sync"
	"time"
)

const defaultSweepInterval = 60 * time.Second

// Registry holds active sessions keyed by principal and a separate revoked-id
// map. A session id is never present in both at once: revocation removes the
// active entry before inserting the revoked one, under the same lock.
type Registry struct {
	mu      sync.RWMutex
	active  map[string]map[string]time.Time // principal id -> session id -> expiresAt
	revoked map[string]time.Time            // session id -> revokedUntil

	defaultTTL    time.Duration
	sweepInterval time.Duration
	nowF          func() time.Time

	done     chan struct{}
	stopOnce sync.Once
}

// NewRegistry returns a registry. defaultTTL is used when revoking sessions in
// bulk, where no per-call TTL is supplied. sweepInterval <= 0 uses 60s.
func NewRegistry(defaultTTL, sweepInterval time.Duration) *Registry {
	if sweepInterval <= 0 {
		sweepInterval = defaultSweepInterval
	}
	return &Registry{
		active:        make(map[string]map[string]time.Time),
		revoked:       make(map[string]time.Time),
		defaultTTL:    defaultTTL,
		sweepInterval: sweepInterval,
		nowF:          time.Now,
		done:          make(chan struct{}),
	}
}

// Start launches the background sweep that purges expired entries from both
// maps. Call Stop on shutdown.
func (r *Registry) Start() {
	go func() {
		ticker := time.NewTicker(r.sweepInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				r.sweep()
			case <-r.done:
				return
			}
		}
	}()
}

// Stop terminates the background sweep. Safe to call multiple times.
func (r *Registry) Stop() {
	r.stopOnce.Do(func() { close(r.done) })
}

// Register inserts or refreshes an active session for the principal.
func (r *Registry) Register(principalID, sessionID string, ttl time.Duration) {
	if principalID == "" || sessionID == "" {
		return
	}
	if ttl <= 0 {
		ttl = r.defaultTTL
	}
	expiresAt := r.nowF().Add(ttl)
	r.mu.Lock()
	defer r.mu.Unlock()
	set, ok := r.active[principalID]
	if !ok {
		set = make(map[string]time.Time)
		r.active[principalID] = set
	}
	set[sessionID] = expiresAt
}

// RevokeToken removes sessionID from every principal's active set and marks it
// revoked until now+ttl, so a replayed id is rejected for at least one full
// TTL window.
func (r *Registry) RevokeToken(sessionID string, ttl time.Duration) {
	if sessionID == "" {
		return
	}
	if ttl <= 0 {
		ttl = r.defaultTTL
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.revokeLocked(sessionID, ttl)
}

// RevokeAllForPrincipal revokes every session currently active for the
// principal and returns the revoked session ids.
func (r *Registry) RevokeAllForPrincipal(principalID string) []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	set := r.active[principalID]
	if len(set) == 0 {
		return nil
	}
	ids := make([]string, 0, len(set))
	for id := range set {
		ids = append(ids, id)
	}
	for _, id := range ids {
		r.revokeLocked(id, r.defaultTTL)
	}
	return ids
}

// revokeLocked removes the id from active sets, then inserts the revoked
// entry. Callers must hold the write lock.
func (r *Registry) revokeLocked(sessionID string, ttl time.Duration) {
	for principalID, set := range r.active {
		if _, ok := set[sessionID]; ok {
			delete(set, sessionID)
			if len(set) == 0 {
				delete(r.active, principalID)
			}
		}
	}
	r.revoked[sessionID] = r.nowF().Add(ttl)
}

// IsRevoked reports whether sessionID is currently revoked. Expired revocation
// entries are lazily deleted on read.
func (r *Registry) IsRevoked(sessionID string) bool {
	r.mu.RLock()
	until, ok := r.revoked[sessionID]
	r.mu.RUnlock()
	if !ok {
		return false
	}
	if !until.After(r.nowF()) {
		r.mu.Lock()
		// Re-check under the write lock; a concurrent Revoke may have refreshed it.
		if u, still := r.revoked[sessionID]; still && !u.After(r.nowF()) {
			delete(r.revoked, sessionID)
		}
		r.mu.Unlock()
		return false
	}
	return true
}

// ActiveCount returns the number of unexpired active sessions for the principal.
func (r *Registry) ActiveCount(principalID string) int {
	now := r.nowF()
	r.mu.RLock()
	defer r.mu.RUnlock()
	n := 0
	for _, expiresAt := range r.active[principalID] {
		if expiresAt.After(now) {
			n++
		}
	}
	return n
}

// sweep purges expired entries from both maps and drops principals left with
// an empty active set, bounding memory growth.
func (r *Registry) sweep() {
	now := r.nowF()
	r.mu.Lock()
	defer r.mu.Unlock()
	for principalID, set := range r.active {
		for id, expiresAt := range set {
			if !expiresAt.After(now) {
				delete(set, id)
			}
		}
		if len(set) == 0 {
			delete(r.active, principalID)
		}
	}
	for id, until := range r.revoked {
		if !until.After(now) {
			delete(r.revoked, id)
		}
	}
}
