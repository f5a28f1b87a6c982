package interceptors

import (
	"context"
	"strings"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"

	"trustplane/internal/device"
	"trustplane/internal/principal"
	"trustplane/internal/security"
	"trustplane/internal/session"
)

// publicMethods are reachable without a session token.
var publicMethods = map[string]bool{
	"/grpc.health.v1.Health/Check": true,
	"/grpc.health.v1.Health/Watch": true,
}

// IdentityUnary validates the bearer token on every non-public method,
// rejects revoked sessions and stale token versions, runs the device binding
// check, and attaches the authenticated principal to the request context.
func IdentityUnary(tokens *security.TokenProvider, sessions *session.Registry, guard *device.Guard) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req interface{}, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (interface{}, error) {
		if publicMethods[info.FullMethod] {
			return handler(ctx, req)
		}

		token, err := extractBearer(ctx)
		if err != nil {
			return nil, err
		}

		claims, err := tokens.Validate(token)
		if err != nil {
			return nil, status.Error(codes.Unauthenticated, "invalid token")
		}

		if sessions != nil && sessions.IsRevoked(claims.SessionID) {
			return nil, status.Error(codes.Unauthenticated, "session revoked")
		}
		p := principal.Principal{
			ID:       claims.Subject,
			Role:     principal.ParseRole(claims.Role),
			TenantID: claims.TenantID,
		}
		if guard != nil {
			if claims.TokenVersion != guard.TokenVersion(ctx, claims.Subject) {
				return nil, status.Error(codes.Unauthenticated, "token superseded")
			}
			fingerprint := claims.Fingerprint
			if fingerprint == "" {
				fingerprint = MetadataValue(ctx, "x-device-fingerprint")
			}
			verdict := guard.Check(ctx, p, fingerprint)
			if !verdict.Allowed {
				return nil, status.Error(codes.PermissionDenied, "access denied")
			}
			ctx = WithFingerprints(ctx, fingerprint, verdict.Bound)
		}
		ctx = WithIdentity(ctx, p, claims.SessionID)
		return handler(ctx, req)
	}
}

func extractBearer(ctx context.Context) (string, error) {
	md, ok := metadata.FromIncomingContext(ctx)
	if !ok {
		return "", status.Error(codes.Unauthenticated, "missing metadata")
	}
	vals := md.Get("authorization")
	if len(vals) == 0 {
		return "", status.Error(codes.Unauthenticated, "missing authorization")
	}
	parts := strings.SplitN(vals[0], " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") || parts[1] == "" {
		return "", status.Error(codes.Unauthenticated, "malformed authorization")
	}
	return parts[1], nil
}
