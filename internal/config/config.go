// Package config loads and validates app config from env and an optional .env file using Viper.
package config

import (
	"errors"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds application configuration loaded from the environment.
type Config struct {
	// GRPCAddr is the address the gRPC server listens on (e.g. :8080).
	GRPCAddr string `mapstructure:"GRPC_ADDR"`
	// DatabaseURL is the Postgres DSN; empty runs with in-memory repositories.
	DatabaseURL string `mapstructure:"DATABASE_URL"`

	// ZeroTrustEnabled globally enables the trust orchestrator.
	ZeroTrustEnabled bool `mapstructure:"ZERO_TRUST_ENABLED"`
	// ZeroTrustStrict enables block + revoke-all on high/critical evaluations.
	ZeroTrustStrict bool `mapstructure:"ZERO_TRUST_STRICT"`
	// DeviceBindingStrict enables block + revoke-all on fingerprint mismatch.
	DeviceBindingStrict bool `mapstructure:"DEVICE_BINDING_STRICT"`

	// HighRiskCountries is a comma-separated country list scored +45 by the risk engine.
	HighRiskCountries string `mapstructure:"HIGH_RISK_COUNTRIES"`
	// SuspiciousUserAgents is a comma-separated fragment list; empty uses the engine defaults.
	SuspiciousUserAgents string `mapstructure:"SUSPICIOUS_USER_AGENTS"`
	// KnownBadIPs is a comma-separated IP deny-list for the threat engine.
	KnownBadIPs string `mapstructure:"KNOWN_BAD_IPS"`

	// BypassPaths is a comma-separated list of method prefixes exempt from
	// trust evaluation (health checks, login-style methods).
	BypassPaths string `mapstructure:"BYPASS_PATHS"`

	// SessionTTL is the default session lifetime (e.g. "24h").
	SessionTTL string `mapstructure:"SESSION_TTL"`
	// TrustCooldown is the per-principal re-evaluation window (e.g. "5s").
	TrustCooldown string `mapstructure:"TRUST_COOLDOWN"`

	// GeoAPIBaseURL is the ip-api style lookup endpoint; empty disables remote lookups.
	GeoAPIBaseURL string `mapstructure:"GEO_API_BASE_URL"`
	// GeoTimeout bounds one geo lookup (e.g. "3s").
	GeoTimeout string `mapstructure:"GEO_TIMEOUT"`

	// JWTSecret signs session tokens (HS256); required when the server runs.
	JWTSecret string `mapstructure:"JWT_SECRET"`
	// JWTIssuer is the iss claim (e.g. "trustplane-auth").
	JWTIssuer string `mapstructure:"JWT_ISSUER"`
	// JWTAudience is the aud claim (e.g. "trustplane-api").
	JWTAudience string `mapstructure:"JWT_AUDIENCE"`

	// KafkaBrokers is a comma-separated broker list; empty disables security event fan-out.
	KafkaBrokers string `mapstructure:"KAFKA_BROKERS"`
	// SecurityEventsKafkaTopic is the topic for security events (default trustplane-security-events).
	SecurityEventsKafkaTopic string `mapstructure:"SECURITY_EVENTS_KAFKA_TOPIC"`
}

// Load reads .env (if present), then builds and validates Config from the environment via Viper.
// Missing .env is ignored (e.g. in CI). Env vars override .env. Returns an error if required fields are invalid.
func Load() (*Config, error) {
	v := viper.New()

	v.SetConfigFile(".env")
	v.SetConfigType("env")
	_ = v.ReadInConfig() // ignore ErrConfigFileNotFound

	v.AutomaticEnv()

	v.SetDefault("GRPC_ADDR", ":8080")
	v.SetDefault("DATABASE_URL", "")
	v.SetDefault("ZERO_TRUST_ENABLED", true)
	v.SetDefault("ZERO_TRUST_STRICT", false)
	v.SetDefault("DEVICE_BINDING_STRICT", false)
	v.SetDefault("HIGH_RISK_COUNTRIES", "")
	v.SetDefault("SUSPICIOUS_USER_AGENTS", "")
	v.SetDefault("KNOWN_BAD_IPS", "")
	v.SetDefault("BYPASS_PATHS", "/grpc.health.v1.Health/")
	v.SetDefault("SESSION_TTL", "24h")
	v.SetDefault("TRUST_COOLDOWN", "5s")
	v.SetDefault("GEO_API_BASE_URL", "")
	v.SetDefault("GEO_TIMEOUT", "3s")
	v.SetDefault("JWT_SECRET", "")
	v.SetDefault("JWT_ISSUER", "trustplane-auth")
	v.SetDefault("JWT_AUDIENCE", "trustplane-api")
	v.SetDefault("KAFKA_BROKERS", "")
	v.SetDefault("SECURITY_EVENTS_KAFKA_TOPIC", "trustplane-security-events")

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	if cfg.GRPCAddr == "" {
		return nil, errors.New("config: GRPC_ADDR must be set")
	}

	return &cfg, nil
}

// SessionTTLDuration parses SessionTTL. Returns 24h if unset or invalid.
func (c *Config) SessionTTLDuration() time.Duration {
	d, err := time.ParseDuration(c.SessionTTL)
	if err != nil || d <= 0 {
		return 24 * time.Hour
	}
	return d
}

// TrustCooldownDuration parses TrustCooldown. Returns 5s if unset or invalid.
func (c *Config) TrustCooldownDuration() time.Duration {
	d, err := time.ParseDuration(c.TrustCooldown)
	if err != nil || d <= 0 {
		return 5 * time.Second
	}
	return d
}

// GeoTimeoutDuration parses GeoTimeout. Returns 3s if unset or invalid.
func (c *Config) GeoTimeoutDuration() time.Duration {
	d, err := time.ParseDuration(c.GeoTimeout)
	if err != nil || d <= 0 {
		return 3 * time.Second
	}
	return d
}

// HighRiskCountryList returns the high-risk countries from the comma-separated config.
func (c *Config) HighRiskCountryList() []string {
	return splitList(c.HighRiskCountries)
}

// SuspiciousUserAgentList returns the suspicious UA fragments from the comma-separated config.
func (c *Config) SuspiciousUserAgentList() []string {
	return splitList(c.SuspiciousUserAgents)
}

// KnownBadIPList returns the deny-listed IPs from the comma-separated config.
func (c *Config) KnownBadIPList() []string {
	return splitList(c.KnownBadIPs)
}

// BypassPathList returns the evaluation-exempt method prefixes from the
// comma-separated config.
func (c *Config) BypassPathList() []string {
	return splitList(c.BypassPaths)
}

// KafkaBrokersList returns Kafka broker addresses from the comma-separated config.
// Used to decide if event fan-out is enabled (non-empty list) and to create the producer.
func (c *Config) KafkaBrokersList() []string {
	if c == nil {
		return nil
	}
	return splitList(c.KafkaBrokers)
}

func splitList(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if v := strings.TrimSpace(p); v != "" {
			out = append(out, v)
		}
	}
	return out
}
