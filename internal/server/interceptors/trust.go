package interceptors

import (
	"context"
	"strconv"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"trustplane/internal/trust"
)

// TrustUnary runs the trust evaluation pipeline on every authenticated
// request. Blocked requests get a generic permission error; flagged
// requests proceed with their assessment attached to the context.
func TrustUnary(orch *trust.Orchestrator) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req interface{}, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (interface{}, error) {
		p, ok := PrincipalFrom(ctx)
		if !ok {
			return handler(ctx, req)
		}
		sessionID, _ := SessionIDFrom(ctx)
		fingerprint, bound, ok := FingerprintsFrom(ctx)
		if !ok {
			fingerprint = MetadataValue(ctx, "x-device-fingerprint")
		}

		treq := trust.Request{
			Principal:           p,
			SessionID:           sessionID,
			Path:                info.FullMethod,
			IP:                  ClientIP(ctx),
			UserAgent:           MetadataValue(ctx, "user-agent"),
			Language:            MetadataValue(ctx, "accept-language"),
			Fingerprint:         fingerprint,
			PreviousFingerprint: bound,
			FailedLogins:        metadataInt(ctx, "x-failed-logins"),
			RapidRequests:       MetadataValue(ctx, "x-rapid-requests") == "true",
			PrivilegeEscalation: MetadataValue(ctx, "x-privilege-escalation") == "true",
		}

		result := orch.Evaluate(ctx, treq)
		switch result.Outcome {
		case trust.OutcomeBlock:
			return nil, status.Error(codes.PermissionDenied, "access denied")
		case trust.OutcomeFlag:
			ctx = WithAssessment(ctx, result.Decision.Level, result.Decision.CombinedScore)
		}
		return handler(ctx, req)
	}
}

func metadataInt(ctx context.Context, key string) int {
	v := MetadataValue(ctx, key)
	if v == "" {
		return 0
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0
	}
	return n
}
