// Package security issues and validates the session tokens the enforcement
// surface consumes. A token binds a session id, the principal's identity, and
// the principal's token version; bumping the version invalidates every
// outstanding token even when the session id is not in the revoked set.
package security

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	// ErrInvalidToken is returned when a token is malformed or invalid.
	ErrInvalidToken = errors.New("invalid token")
)

// SessionClaims holds JWT claims for the session token.
type SessionClaims struct {
	jwt.RegisteredClaims
	TenantID     string `json:"tenant_id"`
	Role         string `json:"role"`
	SessionID    string `json:"session_id"`
	Fingerprint  string `json:"fingerprint,omitempty"`
	TokenVersion int    `json:"token_version"`
}

// TokenProvider issues and validates HS256 session tokens.
type TokenProvider struct {
	secret   []byte
	issuer   string
	audience string
	ttl      time.Duration
}

// NewTokenProvider returns a TokenProvider signing with the given secret.
// issuer and audience are set on claims and validated on parse.
func NewTokenProvider(secret, issuer, audience string, ttl time.Duration) (*TokenProvider, error) {
	if secret == "" {
		return nil, errors.New("security: token secret must be set")
	}
	return &TokenProvider{
		secret:   []byte(secret),
		issuer:   issuer,
		audience: audience,
		ttl:      ttl,
	}, nil
}

// Issue issues a session token for the given principal, session, fingerprint,
// and token version. Returns the token string and its expiration time.
func (p *TokenProvider) Issue(principalID, tenantID, role, sessionID, fingerprint string, tokenVersion int) (string, time.Time, error) {
	now := time.Now().UTC()
	expiresAt := now.Add(p.ttl)
	claims := SessionClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   principalID,
			Issuer:    p.issuer,
			Audience:  jwt.ClaimStrings{p.audience},
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
		TenantID:     tenantID,
		Role:         role,
		SessionID:    sessionID,
		Fingerprint:  fingerprint,
		TokenVersion: tokenVersion,
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(p.secret)
	if err != nil {
		return "", time.Time{}, err
	}
	return token, expiresAt, nil
}

// Validate parses and verifies the token, returning its claims.
// Returns ErrInvalidToken for any malformed, expired, or mis-signed token.
func (p *TokenProvider) Validate(token string) (*SessionClaims, error) {
	claims := &SessionClaims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidToken
		}
		return p.secret, nil
	},
		jwt.WithIssuer(p.issuer),
		jwt.WithAudience(p.audience),
		jwt.WithExpirationRequired(),
	)
	if err != nil || !parsed.Valid {
		return nil, ErrInvalidToken
	}
	if claims.SessionID == "" || claims.Subject == "" {
		return nil, ErrInvalidToken
	}
	return claims, nil
}
