// Package server assembles the gRPC server: interceptor chain, health
// service, and graceful lifecycle.
package server

import (
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"trustplane/internal/device"
	"trustplane/internal/security"
	"trustplane/internal/server/interceptors"
	"trustplane/internal/session"
	"trustplane/internal/trust"
)

// Deps holds the collaborators wired into the interceptor chain.
type Deps struct {
	// Tokens validates bearer tokens. Required.
	Tokens *security.TokenProvider
	// Sessions is the revocation registry consulted on every request. May be nil.
	Sessions *session.Registry
	// Guard supplies token versions for stale-token rejection. May be nil.
	Guard *device.Guard
	// Orchestrator runs trust evaluation on authenticated requests. May be nil,
	// in which case only identity is enforced.
	Orchestrator *trust.Orchestrator
}

// New builds the gRPC server with the identity and trust interceptors chained
// in order and the standard health service registered.
func New(deps Deps, opts ...grpc.ServerOption) *grpc.Server {
	chain := []grpc.UnaryServerInterceptor{
		interceptors.IdentityUnary(deps.Tokens, deps.Sessions, deps.Guard),
	}
	if deps.Orchestrator != nil {
		chain = append(chain, interceptors.TrustUnary(deps.Orchestrator))
	}
	opts = append(opts, grpc.ChainUnaryInterceptor(chain...))

	s := grpc.NewServer(opts...)
	healthpb.RegisterHealthServer(s, health.NewServer())
	return s
}
