package engine

import "context"

// EnforcementInput is the evaluation context handed to the policy.
type EnforcementInput struct {
	Level    string // low, medium, high, critical
	Score    int
	Strict   bool
	Role     string
	TenantID string
	Path     string
}

// EnforcementResult holds the result of enforcement policy evaluation.
type EnforcementResult struct {
	// Block terminates the principal's sessions and denies the request.
	Block bool
}

// Evaluator decides the enforcement action for an above-low trust evaluation
// using OPA or other engines.
type Evaluator interface {
	// EvaluateEnforcement evaluates platform and tenant enforcement policy for
	// the given evaluation context. Implementations fail open: on error the
	// caller falls back to config-driven enforcement.
	EvaluateEnforcement(ctx context.Context, in EnforcementInput) (EnforcementResult, error)
}
