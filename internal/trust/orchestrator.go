// Package trust composes the geo resolver, threat and risk engines, session
// registry, audit trail, and security event sink into a per-request decision:
// allow, flag, or block. The orchestrator's outward contract is that it always
// returns an outcome and never an error; every internal failure resolves to
// allow.
package trust

import (
	"context"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"trustplane/internal/assessment"
	"trustplane/internal/audit"
	"trustplane/internal/geo"
	policyengine "trustplane/internal/policy/engine"
	"trustplane/internal/principal"
	"trustplane/internal/risk"
	"trustplane/internal/securityevent"
	"trustplane/internal/session"
	"trustplane/internal/threat"
)

// Outcome is the terminal result of one evaluation.
type Outcome string

const (
	OutcomeAllow Outcome = "allow"
	OutcomeFlag  Outcome = "flag"
	OutcomeBlock Outcome = "block"
)

const (
	weightThreat = 0.6
	weightRisk   = 0.4

	privilegeMultiplier = 1.15

	defaultCooldown = 5 * time.Second
)

// Combined-score thresholds; same bands as the risk engine.
var combinedThresholds = assessment.Thresholds{Critical: 80, High: 60, Medium: 35}

// Config configures the orchestrator.
type Config struct {
	// Enabled globally switches evaluation; disabled means every request is
	// allowed untouched.
	Enabled bool
	// Strict enables block + revoke-all on high or critical evaluations.
	Strict bool
	// CooldownWindow suppresses re-evaluation storms per principal; the prior
	// outcome is replayed within the window. <= 0 uses 5s.
	CooldownWindow time.Duration
	// BypassPaths are request path prefixes exempt from evaluation
	// (health checks, login, webhook receivers).
	BypassPaths []string
}

// Request is one authenticated request's evaluation input.
type Request struct {
	Principal           principal.Principal
	SessionID           string
	Path                string
	IP                  string
	UserAgent           string
	Language            string
	Fingerprint         string
	PreviousFingerprint string
	FailedLogins        int
	RapidRequests       bool
	PrivilegeEscalation bool
	Correlation         *risk.Correlation
}

// Result is the orchestrator's terminal outcome plus the evidence behind it.
type Result struct {
	Outcome  Outcome
	Decision Decision
	Risk     assessment.Assessment
	Threat   assessment.Assessment
	// FromCooldown marks a replayed prior outcome; no new records were written.
	FromCooldown bool
}

type cooldownEntry struct {
	at     time.Time
	result Result
}

// Orchestrator runs the full evaluation pipeline. Safe for concurrent use.
type Orchestrator struct {
	cfg       Config
	resolver  *geo.Resolver
	riskEng   *risk.Engine
	threatEng *threat.Engine
	sessions  *session.Registry
	auditor   audit.Recorder
	events    *securityevent.Sink
	policy    policyengine.Evaluator
	decisions *DecisionLog

	cooldownMu    sync.Mutex
	cooldowns     map[string]cooldownEntry
	cooldownSwept time.Time

	nowF func() time.Time
}

// NewOrchestrator wires the pipeline. resolver and policy may be nil; the
// other collaborators are required.
func NewOrchestrator(
	cfg Config,
	resolver *geo.Resolver,
	riskEng *risk.Engine,
	threatEng *threat.Engine,
	sessions *session.Registry,
	auditor audit.Recorder,
	events *securityevent.Sink,
	policy policyengine.Evaluator,
) *Orchestrator {
	if cfg.CooldownWindow <= 0 {
		cfg.CooldownWindow = defaultCooldown
	}
	return &Orchestrator{
		cfg:       cfg,
		resolver:  resolver,
		riskEng:   riskEng,
		threatEng: threatEng,
		sessions:  sessions,
		auditor:   auditor,
		events:    events,
		policy:    policy,
		decisions: NewDecisionLog(0),
		cooldowns: make(map[string]cooldownEntry),
		nowF:      time.Now,
	}
}

// Decisions exposes the bounded decision log for observability consumers.
func (o *Orchestrator) Decisions() *DecisionLog {
	return o.decisions
}

// Evaluate runs the pipeline for one request. It never returns an error and
// never panics outward: any unhandled failure is audited and resolved as allow.
func (o *Orchestrator) Evaluate(ctx context.Context, req Request) (res Result) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("trust: evaluation panic, allowing request: %v", r)
			if o.auditor != nil {
				o.auditor.Record(ctx, req.Principal.ID, string(req.Principal.Role),
					"trust_evaluation_failure", fmt.Sprintf("recovered: %v", r))
			}
			res = Result{Outcome: OutcomeAllow}
		}
	}()

	if !o.cfg.Enabled {
		return Result{Outcome: OutcomeAllow}
	}
	if o.bypassed(req.Path) {
		return Result{Outcome: OutcomeAllow}
	}
	// Nothing to evaluate without a principal; the pipeline no-ops and allows.
	if req.Principal.ID == "" {
		return Result{Outcome: OutcomeAllow}
	}

	if prior, ok := o.cooldownHit(req.Principal.ID); ok {
		prior.FromCooldown = true
		return prior
	}

	loc := o.lookupGeo(ctx, req.IP)

	riskIn := risk.Input{
		Geo:     loc,
		Device:  risk.Device{UserAgent: req.UserAgent, Language: req.Language},
		Session: risk.Session{ActiveSessions: o.sessions.ActiveCount(req.Principal.ID)},
		Behavior: risk.Behavior{
			FailedLogins:        req.FailedLogins,
			PrivilegeEscalation: req.PrivilegeEscalation,
		},
		Role:        req.Principal.Role,
		Correlation: req.Correlation,
	}
	threatIn := threat.Input{
		IP:                  req.IP,
		UserAgent:           req.UserAgent,
		Fingerprint:         req.Fingerprint,
		PreviousFingerprint: req.PreviousFingerprint,
		FailedLogins:        req.FailedLogins,
		RapidRequests:       req.RapidRequests,
	}

	// The two engines are independent; run them concurrently. Both fail open
	// internally, so neither goroutine can fail the request.
	var riskA, threatA assessment.Assessment
	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		riskA = o.riskEng.Evaluate(riskIn)
	}()
	go func() {
		defer wg.Done()
		threatA = o.threatEng.Evaluate(threatIn)
	}()
	wg.Wait()

	combined := float64(threatA.Score)*weightThreat + float64(riskA.Score)*weightRisk
	if req.Principal.Role.Sensitive() {
		combined *= privilegeMultiplier
	}
	score := assessment.Clamp(combined)
	level := combinedThresholds.LevelFor(score)

	decision := Decision{
		ID:            uuid.New().String(),
		PrincipalID:   req.Principal.ID,
		Timestamp:     o.nowF().UTC(),
		CombinedScore: score,
		Level:         level,
		Path:          req.Path,
		Breakdown:     map[string]int{"threat": threatA.Score, "risk": riskA.Score},
		Signals:       append(append([]string{}, threatA.Signals...), riskA.Signals...),
	}

	result := Result{Decision: decision, Risk: riskA, Threat: threatA}

	if level == assessment.LevelLow {
		result.Outcome = OutcomeAllow
		decision.Outcome = OutcomeAllow
		result.Decision = decision
		o.decisions.Append(decision)
		o.storeCooldown(req.Principal.ID, result)
		return result
	}

	detail := fmt.Sprintf("score=%d level=%s threat=%d risk=%d path=%s",
		score, level, threatA.Score, riskA.Score, req.Path)
	if o.events != nil {
		o.events.Append(ctx, string(level), req.Principal.ID, req.Principal.TenantID, detail)
	}

	if o.shouldBlock(ctx, req, score, level) {
		revoked := o.sessions.RevokeAllForPrincipal(req.Principal.ID)
		o.record(ctx, req, "trust_blocked", detail)
		o.record(ctx, req, "sessions_terminated", fmt.Sprintf("revoked %d sessions", len(revoked)))
		result.Outcome = OutcomeBlock
	} else {
		o.record(ctx, req, "trust_flagged", detail)
		result.Outcome = OutcomeFlag
	}

	decision.Outcome = result.Outcome
	result.Decision = decision
	o.decisions.Append(decision)
	o.storeCooldown(req.Principal.ID, result)
	return result
}

// shouldBlock consults the enforcement policy; on any policy failure it falls
// back to the config-driven rule: strict deployments block high and critical.
func (o *Orchestrator) shouldBlock(ctx context.Context, req Request, score int, level assessment.Level) bool {
	configBlock := o.cfg.Strict &&
		(level == assessment.LevelHigh || level == assessment.LevelCritical)
	if o.policy == nil {
		return configBlock
	}
	res, err := o.policy.EvaluateEnforcement(ctx, policyengine.EnforcementInput{
		Level:    string(level),
		Score:    score,
		Strict:   o.cfg.Strict,
		Role:     string(req.Principal.Role),
		TenantID: req.Principal.TenantID,
		Path:     req.Path,
	})
	if err != nil {
		log.Printf("trust: enforcement policy failed, using config fallback: %v", err)
		return configBlock
	}
	return res.Block
}

// lookupGeo resolves the request IP, tolerating a nil resolver.
func (o *Orchestrator) lookupGeo(ctx context.Context, ip string) *geo.Location {
	if o.resolver == nil {
		loc := geo.Location{Source: geo.SourceFallback}
		return &loc
	}
	loc := o.resolver.Lookup(ctx, ip)
	return &loc
}

func (o *Orchestrator) bypassed(path string) bool {
	for _, p := range o.cfg.BypassPaths {
		if p != "" && strings.HasPrefix(path, p) {
			return true
		}
	}
	return false
}

func (o *Orchestrator) cooldownHit(principalID string) (Result, bool) {
	now := o.nowF()
	o.cooldownMu.Lock()
	defer o.cooldownMu.Unlock()
	e, ok := o.cooldowns[principalID]
	if !ok || now.Sub(e.at) >= o.cfg.CooldownWindow {
		return Result{}, false
	}
	return e.result, true
}

func (o *Orchestrator) storeCooldown(principalID string, res Result) {
	now := o.nowF()
	o.cooldownMu.Lock()
	defer o.cooldownMu.Unlock()
	// Purge expired entries at most once per window so the map stays bounded
	// by the set of principals seen within it.
	if now.Sub(o.cooldownSwept) >= o.cfg.CooldownWindow {
		for id, e := range o.cooldowns {
			if now.Sub(e.at) >= o.cfg.CooldownWindow {
				delete(o.cooldowns, id)
			}
		}
		o.cooldownSwept = now
	}
	o.cooldowns[principalID] = cooldownEntry{at: now, result: res}
}

func (o *Orchestrator) record(ctx context.Context, req Request, action, detail string) {
	if o.auditor == nil {
		return
	}
	o.auditor.Record(ctx, req.Principal.ID, string(req.Principal.Role), action, detail)
}
