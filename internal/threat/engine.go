// Package threat scores IP reputation, user-agent strings, fingerprint drift,
// and short-term behavior into a single 0–100 threat score. Like the risk
// engine it is pure, deterministic, and fails open to a fixed fallback
// assessment on internal error.
package threat

import (
	"log"
	"net"
	"strings"

	"trustplane/internal/assessment"
)

const (
	weightIP          = 0.30
	weightUserAgent   = 0.25
	weightFingerprint = 0.25
	weightBehavior    = 0.20

	// denylistScore dominates: a deny-listed IP short-circuits evaluation.
	denylistScore = 90
)

// Signal names emitted by the engine.
const (
	SignalDenylistedIP      = "denylisted_ip"
	SignalMissingIP         = "missing_ip"
	SignalUnknownIP         = "unknown_ip"
	SignalMissingUserAgent  = "missing_user_agent"
	SignalSuspiciousUA      = "suspicious_user_agent"
	SignalNewDevice         = "new_device"
	SignalFingerprintDrift  = "fingerprint_drift"
	SignalRepeatedFailures  = "repeated_login_failures"
	SignalExcessiveFailures = "excessive_login_failures"
	SignalRapidRequests     = "rapid_requests"
	SignalFallback          = "fallback"
)

var levelThresholds = assessment.Thresholds{Critical: 75, High: 50, Medium: 25}

// DefaultSuspiciousUserAgents are matched as substrings against the lowered
// user-agent; each match stacks.
var DefaultSuspiciousUserAgents = []string{"headless", "selenium", "phantom", "crawler", "bot"}

// Config configures the engine. Empty SuspiciousUserAgents uses the defaults.
type Config struct {
	KnownBadIPs          []string
	SuspiciousUserAgents []string
}

// Input is one evaluation's worth of threat signals.
type Input struct {
	IP                  string
	UserAgent           string
	Fingerprint         string
	PreviousFingerprint string
	FailedLogins        int
	RapidRequests       bool
	// Baseline, when non-nil, sets the assessment's Delta.
	Baseline *int
}

// Engine computes threat assessments. Safe for concurrent use.
type Engine struct {
	badIPs    map[string]struct{}
	fragments []string
}

// NewEngine returns an engine using the given deny-list and UA fragment list.
func NewEngine(cfg Config) *Engine {
	bad := make(map[string]struct{}, len(cfg.KnownBadIPs))
	for _, ip := range cfg.KnownBadIPs {
		if ip = strings.TrimSpace(ip); ip != "" {
			bad[ip] = struct{}{}
		}
	}
	fragments := cfg.SuspiciousUserAgents
	if len(fragments) == 0 {
		fragments = DefaultSuspiciousUserAgents
	}
	lowered := make([]string, len(fragments))
	for i, f := range fragments {
		lowered[i] = strings.ToLower(f)
	}
	return &Engine{badIPs: bad, fragments: lowered}
}

// Evaluate scores the input, recovering any internal failure into the fixed
// fallback assessment (score 50, level medium).
func (e *Engine) Evaluate(in Input) (a assessment.Assessment) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("threat: evaluation failed, using fallback: %v", r)
			a = assessment.Assessment{
				Score:    50,
				Level:    assessment.LevelMedium,
				Signals:  []string{SignalFallback},
				Fallback: true,
			}
		}
	}()
	return e.evaluate(in)
}

func (e *Engine) evaluate(in Input) assessment.Assessment {
	if _, bad := e.badIPs[in.IP]; bad {
		a := assessment.Assessment{
			Score:     denylistScore,
			Level:     levelThresholds.LevelFor(denylistScore),
			Signals:   []string{SignalDenylistedIP},
			Breakdown: map[string]int{"ip": denylistScore},
		}
		if in.Baseline != nil {
			a.Delta = denylistScore - *in.Baseline
		}
		return a
	}

	var signals []string
	add := func(s string) { signals = append(signals, s) }

	ipScore := scoreIP(in.IP, add)
	uaScore := e.scoreUserAgent(in.UserAgent, add)
	fpScore := scoreFingerprint(in.Fingerprint, in.PreviousFingerprint, add)
	behaviorScore := scoreBehavior(in.FailedLogins, in.RapidRequests, add)

	score := float64(ipScore)*weightIP +
		float64(uaScore)*weightUserAgent +
		float64(fpScore)*weightFingerprint +
		float64(behaviorScore)*weightBehavior

	final := assessment.Clamp(score)
	a := assessment.Assessment{
		Score:   final,
		Level:   levelThresholds.LevelFor(final),
		Signals: signals,
		Breakdown: map[string]int{
			"ip":          ipScore,
			"user_agent":  uaScore,
			"fingerprint": fpScore,
			"behavior":    behaviorScore,
		},
	}
	if in.Baseline != nil {
		a.Delta = final - *in.Baseline
	}
	return a
}

func scoreIP(ip string, add func(string)) int {
	if ip == "" {
		add(SignalMissingIP)
		return 20
	}
	parsed := net.ParseIP(ip)
	if parsed != nil && (parsed.IsLoopback() || parsed.IsPrivate()) {
		return 0
	}
	add(SignalUnknownIP)
	return 5
}

func (e *Engine) scoreUserAgent(ua string, add func(string)) int {
	if ua == "" {
		add(SignalMissingUserAgent)
		return 30
	}
	score := 0
	lowered := strings.ToLower(ua)
	for _, f := range e.fragments {
		if strings.Contains(lowered, f) {
			score += 50
			add(SignalSuspiciousUA + ":" + f)
		}
	}
	if score == 0 {
		score = 5
	}
	return score
}

func scoreFingerprint(current, previous string, add func(string)) int {
	if previous == "" {
		// First seen device: informational, not punitive.
		add(SignalNewDevice)
		return 10
	}
	if current != previous {
		add(SignalFingerprintDrift)
		return 40
	}
	return 0
}

func scoreBehavior(failedLogins int, rapidRequests bool, add func(string)) int {
	score := 0
	if failedLogins >= 3 {
		score += 25
		add(SignalRepeatedFailures)
	}
	if failedLogins >= 5 {
		score += 45
		add(SignalExcessiveFailures)
	}
	if rapidRequests {
		score += 30
		add(SignalRapidRequests)
	}
	return score
}
