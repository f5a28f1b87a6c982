package engine

import (
	"context"
	"fmt"
	"log"

	"github.com/open-policy-agent/opa/v1/ast"
	"github.com/open-policy-agent/opa/v1/rego"

	"trustplane/internal/policy/repository"
)

const blockQuery = "data.trustplane.enforcement.block"

// Default Rego policy matching the config-driven behavior: strict deployments
// block on high or critical, everything else is flag-only.
const defaultRegoPolicy = `package trustplane.enforcement

default block = false

block if {
	input.strict
	input.level == "high"
}

block if {
	input.strict
	input.level == "critical"
}
`

// OPAEvaluator evaluates enforcement policies using OPA Rego.
type OPAEvaluator struct {
	policyRepo repository.Repository
}

// NewOPAEvaluator returns an OPA-based enforcement evaluator. policyRepo may
// be nil; then only the default policy applies.
func NewOPAEvaluator(policyRepo repository.Repository) *OPAEvaluator {
	return &OPAEvaluator{policyRepo: policyRepo}
}

// HealthCheck verifies that the in-process OPA Rego engine can compile and
// evaluate the default policy. Does not touch the policy repo or database.
func (e *OPAEvaluator) HealthCheck(ctx context.Context) error {
	modules := map[string]string{"policy_0.rego": defaultRegoPolicy}
	compiler, err := ast.CompileModules(modules)
	if err != nil {
		return fmt.Errorf("compile default policy: %w", err)
	}
	q := rego.New(
		rego.Query(blockQuery),
		rego.Compiler(compiler),
		rego.Input(inputMap(EnforcementInput{Level: "low"})),
	)
	rs, err := q.Eval(ctx)
	if err != nil {
		return fmt.Errorf("eval default policy: %w", err)
	}
	if len(rs) == 0 || len(rs[0].Expressions) == 0 {
		return fmt.Errorf("policy query returned no result")
	}
	return nil
}

// EvaluateEnforcement evaluates enforcement policy for the given context.
// Tenant policies, when present and loadable, replace the default policy.
func (e *OPAEvaluator) EvaluateEnforcement(ctx context.Context, in EnforcementInput) (EnforcementResult, error) {
	var policies []string
	if e.policyRepo != nil && in.TenantID != "" {
		enabled, err := e.policyRepo.GetEnabledByTenant(ctx, in.TenantID)
		if err != nil {
			log.Printf("policy: failed to load policies for tenant %s: %v", in.TenantID, err)
		} else {
			for _, p := range enabled {
				if p.Enabled && p.Rules != "" {
					policies = append(policies, p.Rules)
				}
			}
		}
	}
	if len(policies) == 0 {
		policies = []string{defaultRegoPolicy}
	}
	return e.evaluatePolicies(ctx, policies, inputMap(in))
}

func (e *OPAEvaluator) evaluatePolicies(ctx context.Context, policies []string, input map[string]interface{}) (EnforcementResult, error) {
	modules := make(map[string]string)
	for i, policy := range policies {
		modules[fmt.Sprintf("policy_%d.rego", i)] = policy
	}
	compiler, err := ast.CompileModules(modules)
	if err != nil {
		return EnforcementResult{}, fmt.Errorf("compile policies: %w", err)
	}

	q := rego.New(
		rego.Query(blockQuery),
		rego.Compiler(compiler),
		rego.Input(input),
	)
	rs, err := q.Eval(ctx)
	if err != nil {
		return EnforcementResult{}, fmt.Errorf("eval policies: %w", err)
	}
	out := EnforcementResult{}
	if len(rs) > 0 && len(rs[0].Expressions) > 0 {
		if v, ok := rs[0].Expressions[0].Value.(bool); ok {
			out.Block = v
		}
	}
	return out, nil
}

func inputMap(in EnforcementInput) map[string]interface{} {
	return map[string]interface{}{
		"level":     in.Level,
		"score":     in.Score,
		"strict":    in.Strict,
		"role":      in.Role,
		"tenant_id": in.TenantID,
		"path":      in.Path,
	}
}
