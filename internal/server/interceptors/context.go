package interceptors

import (
	"context"
	"net"
	"strings"

	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/peer"

	"trustplane/internal/assessment"
	"trustplane/internal/principal"
)

type contextKey struct{ name string }

var (
	principalKey   = contextKey{"principal"}
	sessionIDKey   = contextKey{"session_id"}
	assessmentKey  = contextKey{"assessment"}
	fingerprintKey = contextKey{"fingerprints"}
)

// WithIdentity returns a context with the principal and session id set.
// Handlers and the trust interceptor read these via PrincipalFrom and SessionIDFrom.
func WithIdentity(ctx context.Context, p principal.Principal, sessionID string) context.Context {
	ctx = context.WithValue(ctx, principalKey, p)
	ctx = context.WithValue(ctx, sessionIDKey, sessionID)
	return ctx
}

// PrincipalFrom returns the principal from context and true if set.
func PrincipalFrom(ctx context.Context) (principal.Principal, bool) {
	v, ok := ctx.Value(principalKey).(principal.Principal)
	return v, ok
}

// SessionIDFrom returns the session id from context and true if set.
func SessionIDFrom(ctx context.Context) (string, bool) {
	v, ok := ctx.Value(sessionIDKey).(string)
	return v, ok
}

// WithAssessment annotates a flagged request's context with its combined
// assessment level and score for downstream consumers.
func WithAssessment(ctx context.Context, level assessment.Level, score int) context.Context {
	return context.WithValue(ctx, assessmentKey, FlaggedAssessment{Level: level, Score: score})
}

// FlaggedAssessment is the annotation attached to flagged requests.
type FlaggedAssessment struct {
	Level assessment.Level
	Score int
}

// AssessmentFrom returns the flagged assessment from context and true if set.
func AssessmentFrom(ctx context.Context) (FlaggedAssessment, bool) {
	v, ok := ctx.Value(assessmentKey).(FlaggedAssessment)
	return v, ok
}

type fingerprints struct {
	presented string
	bound     string
}

// WithFingerprints records the fingerprint the request presented and the one
// the principal was bound to before this request, so downstream scoring can
// detect drift.
func WithFingerprints(ctx context.Context, presented, bound string) context.Context {
	return context.WithValue(ctx, fingerprintKey, fingerprints{presented: presented, bound: bound})
}

// FingerprintsFrom returns the presented and previously bound fingerprints
// from context and true if set.
func FingerprintsFrom(ctx context.Context) (presented, bound string, ok bool) {
	v, ok := ctx.Value(fingerprintKey).(fingerprints)
	return v.presented, v.bound, ok
}

// ClientIP returns the client IP from gRPC metadata (x-forwarded-for, x-real-ip) or peer, or "".
func ClientIP(ctx context.Context) string {
	if md, ok := metadata.FromIncomingContext(ctx); ok {
		if vals := md.Get("x-forwarded-for"); len(vals) > 0 {
			if s := strings.TrimSpace(vals[0]); s != "" {
				if i := strings.Index(s, ","); i > 0 {
					s = strings.TrimSpace(s[:i])
				}
				return s
			}
		}
		if vals := md.Get("x-real-ip"); len(vals) > 0 {
			if s := strings.TrimSpace(vals[0]); s != "" {
				return s
			}
		}
	}
	if p, ok := peer.FromContext(ctx); ok && p.Addr != nil {
		if host, _, err := net.SplitHostPort(p.Addr.String()); err == nil {
			return host
		}
		return p.Addr.String()
	}
	return ""
}

// MetadataValue returns the first value for key from incoming gRPC metadata, or "".
func MetadataValue(ctx context.Context, key string) string {
	md, ok := metadata.FromIncomingContext(ctx)
	if !ok {
		return ""
	}
	vals := md.Get(key)
	if len(vals) == 0 {
		return ""
	}
	return strings.TrimSpace(vals[0])
}
