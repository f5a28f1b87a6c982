// Package risk scores a request across geography, device, session concurrency,
// and behavior domains, then combines them with fixed weights into a single
// 0–100 risk score. Scoring is pure and deterministic; an internal failure
// yields a fixed fallback assessment instead of an error.
package risk

import (
	"errors"
	"log"
	"math"
	"strings"

	"trustplane/internal/assessment"
	"trustplane/internal/geo"
	"trustplane/internal/principal"
)

const (
	weightGeo      = 0.20
	weightDevice   = 0.25
	weightSession  = 0.25
	weightBehavior = 0.30

	// Conjunction bonus when a high-risk country and a headless browser are
	// seen on the same request.
	correlationBonus = 15

	// privilegeMultiplier is applied after all additive terms for sensitive roles.
	privilegeMultiplier = 1.15

	// minScore floors a zero result; nothing is risk-free.
	minScore = 5
)

// Signal names emitted by the engine. Consumers match on these, so they are
// part of the engine's contract.
const (
	SignalMissingGeo           = "missing_geo"
	SignalMissingCountry       = "missing_country"
	SignalHighRiskCountry      = "high_risk_country"
	SignalGeoFallback          = "geo_fallback"
	SignalMissingUserAgent     = "missing_user_agent"
	SignalHeadlessBrowser      = "headless_browser"
	SignalAutomationTool       = "automation_tool"
	SignalMissingLanguage      = "missing_language"
	SignalElevatedSessions     = "elevated_session_count"
	SignalExcessiveSessions    = "excessive_session_count"
	SignalRepeatedFailures     = "repeated_login_failures"
	SignalExcessiveFailures    = "excessive_login_failures"
	SignalPrivilegeEscalation  = "privilege_escalation_attempt"
	SignalSharedIP             = "shared_ip_cluster"
	SignalSharedFingerprint    = "shared_fingerprint"
	SignalElevatedUserCluster  = "elevated_user_cluster"
	SignalSensitiveRole        = "sensitive_role"
	SignalFallback             = "fallback"
	SignalCorrelatedAutomation = "correlated_automation"
)

var levelThresholds = assessment.Thresholds{Critical: 80, High: 60, Medium: 35}

// Weights holds the per-domain combination weights. They must sum to 1.0.
type Weights struct {
	Geo      float64
	Device   float64
	Session  float64
	Behavior float64
}

// DefaultWeights returns the canonical weight set.
func DefaultWeights() Weights {
	return Weights{Geo: weightGeo, Device: weightDevice, Session: weightSession, Behavior: weightBehavior}
}

func (w Weights) validate() error {
	sum := w.Geo + w.Device + w.Session + w.Behavior
	if math.Abs(sum-1.0) > 0.001 {
		return errors.New("risk: domain weights must sum to 1.0")
	}
	return nil
}

// Config configures the engine. Zero-value Weights use DefaultWeights.
type Config struct {
	Weights           Weights
	HighRiskCountries []string
}

// Device describes the request's device surface.
type Device struct {
	UserAgent string
	Language  string
}

// Session describes the principal's current session concurrency.
type Session struct {
	ActiveSessions int
}

// Behavior describes short-term account behavior.
type Behavior struct {
	FailedLogins        int
	PrivilegeEscalation bool
}

// Correlation carries optional cross-user correlation context.
type Correlation struct {
	SameIPUsers           int
	SameFingerprintUsers  int
	ElevatedUsersLast5Min int
}

// Input is one evaluation's worth of signals.
type Input struct {
	Geo      *geo.Location
	Device   Device
	Session  Session
	Behavior Behavior
	Role     principal.Role
	// Baseline, when non-nil, is the principal's prior score; the assessment's
	// Delta is computed against it.
	Baseline *int
	// Correlation, when non-nil, enables cross-user correlation scoring.
	Correlation *Correlation
}

// Engine computes risk assessments. Safe for concurrent use.
type Engine struct {
	weights  Weights
	highRisk map[string]struct{}
}

// NewEngine validates cfg and returns an engine. A weight set not summing to
// 1.0 is the one fatal configuration error in this pipeline.
func NewEngine(cfg Config) (*Engine, error) {
	w := cfg.Weights
	if w == (Weights{}) {
		w = DefaultWeights()
	}
	if err := w.validate(); err != nil {
		return nil, err
	}
	hr := make(map[string]struct{}, len(cfg.HighRiskCountries))
	for _, c := range cfg.HighRiskCountries {
		if c = strings.TrimSpace(c); c != "" {
			hr[strings.ToLower(c)] = struct{}{}
		}
	}
	return &Engine{weights: w, highRisk: hr}, nil
}

// Evaluate scores the input. It never panics outward: an internal failure is
// recovered into the fixed fallback assessment (score 60, level high).
func (e *Engine) Evaluate(in Input) (a assessment.Assessment) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("risk: evaluation failed, using fallback: %v", r)
			a = fallbackAssessment()
		}
	}()
	return e.evaluate(in)
}

func (e *Engine) evaluate(in Input) assessment.Assessment {
	var signals []string
	add := func(s string) { signals = append(signals, s) }

	geoScore := e.scoreGeo(in.Geo, add)
	deviceScore := scoreDevice(in.Device, add)
	sessionScore := scoreSession(in.Session, add)
	behaviorScore := scoreBehavior(in.Behavior, add)

	score := float64(geoScore)*e.weights.Geo +
		float64(deviceScore)*e.weights.Device +
		float64(sessionScore)*e.weights.Session +
		float64(behaviorScore)*e.weights.Behavior

	if contains(signals, SignalHighRiskCountry) && contains(signals, SignalHeadlessBrowser) {
		score += correlationBonus
		add(SignalCorrelatedAutomation)
	}
	if c := in.Correlation; c != nil {
		if c.SameIPUsers >= 3 {
			score += 20
			add(SignalSharedIP)
		}
		if c.SameFingerprintUsers >= 2 {
			score += 25
			add(SignalSharedFingerprint)
		}
		if c.ElevatedUsersLast5Min >= 3 {
			score += 30
			add(SignalElevatedUserCluster)
		}
	}
	if in.Role.Sensitive() {
		score *= privilegeMultiplier
		add(SignalSensitiveRole)
	}

	final := assessment.Clamp(score)
	if final == 0 {
		final = minScore
	}

	a := assessment.Assessment{
		Score:   final,
		Level:   levelThresholds.LevelFor(final),
		Signals: signals,
		Breakdown: map[string]int{
			"geo":      geoScore,
			"device":   deviceScore,
			"session":  sessionScore,
			"behavior": behaviorScore,
		},
	}
	if in.Baseline != nil {
		a.Delta = final - *in.Baseline
	}
	return a
}

func (e *Engine) scoreGeo(loc *geo.Location, add func(string)) int {
	if loc == nil {
		add(SignalMissingGeo)
		return 20
	}
	score := 0
	if loc.Country == "" {
		score += 20
		add(SignalMissingCountry)
	} else if _, ok := e.highRisk[strings.ToLower(loc.Country)]; ok {
		score += 45
		add(SignalHighRiskCountry)
	}
	if loc.Source == geo.SourceFallback {
		score += 15
		add(SignalGeoFallback)
	}
	return score
}

func scoreDevice(d Device, add func(string)) int {
	score := 0
	if d.UserAgent == "" {
		score += 30
		add(SignalMissingUserAgent)
	} else {
		ua := strings.ToLower(d.UserAgent)
		if strings.Contains(ua, "headless") {
			score += 45
			add(SignalHeadlessBrowser)
		}
		if strings.Contains(ua, "selenium") {
			score += 45
			add(SignalAutomationTool)
		}
	}
	if d.Language == "" {
		score += 10
		add(SignalMissingLanguage)
	}
	return score
}

func scoreSession(s Session, add func(string)) int {
	score := 0
	if s.ActiveSessions > 3 {
		score += 25
		add(SignalElevatedSessions)
	}
	if s.ActiveSessions > 5 {
		score += 45
		add(SignalExcessiveSessions)
	}
	return score
}

func scoreBehavior(b Behavior, add func(string)) int {
	score := scoreFailedLogins(b.FailedLogins, add)
	if b.PrivilegeEscalation {
		score += 60
		add(SignalPrivilegeEscalation)
	}
	return score
}

// scoreFailedLogins applies the tiered failed-login scoring shared with the
// threat engine: >=3 adds 25, >=5 adds another 45.
func scoreFailedLogins(failed int, add func(string)) int {
	score := 0
	if failed >= 3 {
		score += 25
		add(SignalRepeatedFailures)
	}
	if failed >= 5 {
		score += 45
		add(SignalExcessiveFailures)
	}
	return score
}

func fallbackAssessment() assessment.Assessment {
	return assessment.Assessment{
		Score:    60,
		Level:    assessment.LevelHigh,
		Signals:  []string{SignalFallback},
		Fallback: true,
	}
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
