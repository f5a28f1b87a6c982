package trust

import (
	"sync"
	"time"

	"trustplane/internal/assessment"
)

const defaultDecisionCap = 3000

// Decision is one evaluation's outcome, kept for observability and ML
// feedback. History, not authoritative state.
type Decision struct {
	ID            string
	PrincipalID   string
	Timestamp     time.Time
	CombinedScore int
	Level         assessment.Level
	Outcome       Outcome
	Path          string
	Breakdown     map[string]int
	Signals       []string
}

// DecisionLog is a bounded append-only log of decisions; the oldest entry is
// evicted past the cap. Safe for concurrent appenders.
type DecisionLog struct {
	mu        sync.RWMutex
	decisions []Decision
	cap       int
}

// NewDecisionLog returns a log holding at most capacity decisions.
// capacity <= 0 uses the default cap.
func NewDecisionLog(capacity int) *DecisionLog {
	if capacity <= 0 {
		capacity = defaultDecisionCap
	}
	return &DecisionLog{cap: capacity}
}

// Append records the decision, evicting oldest-first past the cap.
func (l *DecisionLog) Append(d Decision) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.decisions = append(l.decisions, d)
	if len(l.decisions) > l.cap {
		l.decisions = l.decisions[len(l.decisions)-l.cap:]
	}
}

// Recent returns up to n decisions, newest first.
func (l *DecisionLog) Recent(n int) []Decision {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if n <= 0 || n > len(l.decisions) {
		n = len(l.decisions)
	}
	out := make([]Decision, 0, n)
	for i := len(l.decisions) - 1; i >= 0 && len(out) < n; i-- {
		out = append(out, l.decisions[i])
	}
	return out
}

// Len returns the number of retained decisions.
func (l *DecisionLog) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.decisions)
}
