// Package principal defines the authenticated actor a request acts on behalf of.
package principal

// Role is a closed set of roles a principal can hold. Unknown strings parse to
// RoleUser so a typo in upstream claims can only lower privilege, never raise it.
type Role string

const (
	RoleUser    Role = "user"
	RoleSupport Role = "support"
	RoleFinance Role = "finance"
	RoleAdmin   Role = "admin"
)

// ParseRole maps a raw role string to a Role. Unknown values map to RoleUser.
func ParseRole(s string) Role {
	switch Role(s) {
	case RoleAdmin, RoleFinance, RoleSupport, RoleUser:
		return Role(s)
	default:
		return RoleUser
	}
}

// Sensitive reports whether the role carries elevated privilege and should
// receive the privilege weighting during scoring.
func (r Role) Sensitive() bool {
	return r == RoleAdmin || r == RoleFinance
}

// Principal is the authenticated actor attached to a request before the trust
// pipeline runs.
type Principal struct {
	ID       string
	Role     Role
	TenantID string
}
