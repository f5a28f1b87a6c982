package main

import (
	"log"
	"net"
	"os"
	"os/signal"
	"syscall"
	"time"

	"trustplane/internal/audit"
	auditrepo "trustplane/internal/audit/repository"
	"trustplane/internal/config"
	"trustplane/internal/db"
	"trustplane/internal/device"
	"trustplane/internal/geo"
	policyengine "trustplane/internal/policy/engine"
	policyrepo "trustplane/internal/policy/repository"
	"trustplane/internal/risk"
	"trustplane/internal/security"
	"trustplane/internal/securityevent"
	"trustplane/internal/securityevent/producer"
	eventrepo "trustplane/internal/securityevent/repository"
	"trustplane/internal/server"
	"trustplane/internal/server/interceptors"
	"trustplane/internal/session"
	"trustplane/internal/threat"
	"trustplane/internal/trust"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	if cfg.JWTSecret == "" {
		log.Fatal("config: JWT_SECRET must be set")
	}

	var auditRepo auditrepo.Repository
	var eventRepo eventrepo.Repository
	var polRepo policyrepo.Repository
	if cfg.DatabaseURL != "" {
		pool, err := db.Open(cfg.DatabaseURL)
		if err != nil {
			log.Fatalf("db: %v", err)
		}
		defer pool.Close()
		auditRepo = auditrepo.NewPostgresRepository(pool)
		eventRepo = eventrepo.NewPostgresRepository(pool)
		polRepo = policyrepo.NewPostgresRepository(pool)
		log.Println("using postgres repositories")
	} else {
		auditRepo = auditrepo.NewMemoryRepository()
		eventRepo = eventrepo.NewMemoryRepository()
		log.Println("DATABASE_URL not set; using in-memory repositories")
	}

	tokens, err := security.NewTokenProvider(cfg.JWTSecret, cfg.JWTIssuer, cfg.JWTAudience, cfg.SessionTTLDuration())
	if err != nil {
		log.Fatalf("tokens: %v", err)
	}

	sessions := session.NewRegistry(cfg.SessionTTLDuration(), time.Minute)
	sessions.Start()
	defer sessions.Stop()

	auditor := audit.NewLogger(auditRepo, interceptors.ClientIP)

	prod, err := producer.NewKafkaProducer(cfg.KafkaBrokersList(), cfg.SecurityEventsKafkaTopic)
	if err != nil {
		log.Fatalf("kafka producer: %v", err)
	}
	var eventProducer producer.Producer
	if prod != nil {
		defer prod.Close()
		eventProducer = prod
	}
	events := securityevent.NewSink(eventRepo, eventProducer)

	riskEng, err := risk.NewEngine(risk.Config{
		Weights:           risk.DefaultWeights(),
		HighRiskCountries: cfg.HighRiskCountryList(),
	})
	if err != nil {
		log.Fatalf("risk engine: %v", err)
	}
	threatEng := threat.NewEngine(threat.Config{
		KnownBadIPs:          cfg.KnownBadIPList(),
		SuspiciousUserAgents: cfg.SuspiciousUserAgentList(),
	})

	var resolver *geo.Resolver
	if cfg.GeoAPIBaseURL != "" {
		resolver = geo.NewResolver(cfg.GeoAPIBaseURL, cfg.GeoTimeoutDuration())
	}

	evaluator := policyengine.NewOPAEvaluator(polRepo)

	guard := device.NewGuard(device.NewMemoryStore(), sessions, auditor, cfg.DeviceBindingStrict)

	orch := trust.NewOrchestrator(trust.Config{
		Enabled:        cfg.ZeroTrustEnabled,
		Strict:         cfg.ZeroTrustStrict,
		CooldownWindow: cfg.TrustCooldownDuration(),
		BypassPaths:    cfg.BypassPathList(),
	}, resolver, riskEng, threatEng, sessions, auditor, events, evaluator)

	lis, err := net.Listen("tcp", cfg.GRPCAddr)
	if err != nil {
		log.Fatalf("listen: %v", err)
	}
	defer lis.Close()

	s := server.New(server.Deps{
		Tokens:       tokens,
		Sessions:     sessions,
		Guard:        guard,
		Orchestrator: orch,
	})

	go func() {
		log.Printf("gRPC server listening on %s", cfg.GRPCAddr)
		if err := s.Serve(lis); err != nil {
			log.Fatalf("serve: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	log.Println("shutting down gRPC server...")
	s.GracefulStop()
	log.Println("gRPC server stopped")
}
