package threat

import (
	"testing"

	"trustplane/internal/assessment"
)

func TestEvaluate_DenylistedIPDominates(t *testing.T) {
	e := NewEngine(Config{KnownBadIPs: []string{"203.0.113.7"}})

	a := e.Evaluate(Input{IP: "203.0.113.7", UserAgent: "Mozilla/5.0"})

	if a.Score != denylistScore {
		t.Errorf("score = %d, want %d", a.Score, denylistScore)
	}
	if a.Level != assessment.LevelCritical {
		t.Errorf("level = %q, want critical", a.Level)
	}
	if len(a.Signals) != 1 || a.Signals[0] != SignalDenylistedIP {
		t.Errorf("signals = %v, want only %s", a.Signals, SignalDenylistedIP)
	}
}

func TestEvaluate_PrivateIPScoresZero(t *testing.T) {
	e := NewEngine(Config{})

	a := e.Evaluate(Input{IP: "192.168.1.10", UserAgent: "Mozilla/5.0", PreviousFingerprint: "fp", Fingerprint: "fp"})

	if got := a.Breakdown["ip"]; got != 0 {
		t.Errorf("ip subscore = %d, want 0", got)
	}
}

func TestEvaluate_SuspiciousFragmentsStack(t *testing.T) {
	e := NewEngine(Config{})

	a := e.Evaluate(Input{IP: "203.0.113.9", UserAgent: "HeadlessChrome bot/1.0"})

	// headless + bot match: 50 each.
	if got := a.Breakdown["user_agent"]; got != 100 {
		t.Errorf("user_agent subscore = %d, want 100", got)
	}
}

func TestEvaluate_CleanUserAgentGetsBaseline(t *testing.T) {
	e := NewEngine(Config{})

	a := e.Evaluate(Input{IP: "203.0.113.9", UserAgent: "Mozilla/5.0"})

	if got := a.Breakdown["user_agent"]; got != 5 {
		t.Errorf("user_agent subscore = %d, want 5", got)
	}
}

func TestEvaluate_FingerprintDrift(t *testing.T) {
	e := NewEngine(Config{})

	a := e.Evaluate(Input{IP: "203.0.113.9", UserAgent: "Mozilla/5.0", Fingerprint: "new", PreviousFingerprint: "old"})

	if got := a.Breakdown["fingerprint"]; got != 40 {
		t.Errorf("fingerprint subscore = %d, want 40", got)
	}
	if !a.HasSignal(SignalFingerprintDrift) {
		t.Errorf("signals = %v, want %s", a.Signals, SignalFingerprintDrift)
	}
}

func TestEvaluate_FirstSeenDeviceIsInformational(t *testing.T) {
	e := NewEngine(Config{})

	a := e.Evaluate(Input{IP: "203.0.113.9", UserAgent: "Mozilla/5.0", Fingerprint: "fp"})

	if got := a.Breakdown["fingerprint"]; got != 10 {
		t.Errorf("fingerprint subscore = %d, want 10", got)
	}
	if !a.HasSignal(SignalNewDevice) {
		t.Errorf("signals = %v, want %s", a.Signals, SignalNewDevice)
	}
}

func TestEvaluate_BehaviorTiersAndRapidRequests(t *testing.T) {
	e := NewEngine(Config{})

	a := e.Evaluate(Input{IP: "203.0.113.9", UserAgent: "Mozilla/5.0", FailedLogins: 5, RapidRequests: true})

	if got := a.Breakdown["behavior"]; got != 100 {
		t.Errorf("behavior subscore = %d, want 100 (25+45+30)", got)
	}
}

func TestEvaluate_ScoreStaysInRange(t *testing.T) {
	e := NewEngine(Config{})

	a := e.Evaluate(Input{
		UserAgent:           "headless selenium phantom crawler bot",
		Fingerprint:         "new",
		PreviousFingerprint: "old",
		FailedLogins:        9,
		RapidRequests:       true,
	})

	if a.Score < 0 || a.Score > 100 {
		t.Errorf("score = %d, want within [0,100]", a.Score)
	}
}

func TestEvaluate_BaselineDelta(t *testing.T) {
	e := NewEngine(Config{})
	baseline := 10

	a := e.Evaluate(Input{IP: "203.0.113.9", UserAgent: "Mozilla/5.0", FailedLogins: 5, Baseline: &baseline})

	if a.Delta != a.Score-baseline {
		t.Errorf("delta = %d, want %d", a.Delta, a.Score-baseline)
	}
}
