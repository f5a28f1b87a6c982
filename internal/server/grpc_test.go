package server

import (
	"testing"
	"time"

	"trustplane/internal/security"
)

func TestNew_RegistersHealthService(t *testing.T) {
	tokens, err := security.NewTokenProvider("test-secret-for-server", "trustplane-auth", "trustplane-api", time.Hour)
	if err != nil {
		t.Fatalf("NewTokenProvider: %v", err)
	}
	s := New(Deps{Tokens: tokens})
	defer s.Stop()

	info := s.GetServiceInfo()
	if _, ok := info["grpc.health.v1.Health"]; !ok {
		names := make([]string, 0, len(info))
		for name := range info {
			names = append(names, name)
		}
		t.Errorf("health service not registered; got services %v", names)
	}
}
