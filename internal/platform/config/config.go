package config

import (
	"os"
	"strings"
	"time"
)

// Config is centralized process configuration. Keep infra values here and pass
// typed config into builders so main stays lean.
type Config struct {
	Addr          string
	PostgresDSN   string
	RedisURL      string
	KafkaBrokers  []string
	JWTSigningKey string
	JWTIssuer     string

	ProviderAPIKey  string
	ProviderBaseURL string
	ProviderTimeout time.Duration

	SiteDomain string

	// ReceiptCacheTTL bounds how long a settled-session receipt stays in the
	// fast replay cache. Correctness never depends on it.
	ReceiptCacheTTL time.Duration

	OutboxPollInterval time.Duration
}

// FromEnv builds a Config from environment variables with dev defaults.
func FromEnv() Config {
	addr := os.Getenv("TUITIONHUB_ADDR")
	if addr == "" {
		addr = ":8080"
	}

	jwtSigningKey := os.Getenv("JWT_SIGNING_KEY")
	if jwtSigningKey == "" {
		// Dev default; must be overridden in production.
		jwtSigningKey = "dev-secret-key-change-in-production"
	}
	jwtIssuer := os.Getenv("JWT_ISSUER")
	if jwtIssuer == "" {
		jwtIssuer = "tuitionhub"
	}

	providerBaseURL := os.Getenv("CHECKOUT_PROVIDER_URL")
	if providerBaseURL == "" {
		providerBaseURL = "https://api.stripe.com"
	}

	siteDomain := os.Getenv("SITE_DOMAIN")
	if siteDomain == "" {
		siteDomain = "http://localhost:3000"
	}

	var brokers []string
	for _, value := range strings.Split(os.Getenv("KAFKA_BROKERS"), ",") {
		value = strings.TrimSpace(value)
		if value != "" {
			brokers = append(brokers, value)
		}
	}

	return Config{
		Addr:               addr,
		PostgresDSN:        os.Getenv("POSTGRES_DSN"),
		RedisURL:           os.Getenv("REDIS_URL"),
		KafkaBrokers:       brokers,
		JWTSigningKey:      jwtSigningKey,
		JWTIssuer:          jwtIssuer,
		ProviderAPIKey:     os.Getenv("CHECKOUT_PROVIDER_KEY"),
		ProviderBaseURL:    providerBaseURL,
		ProviderTimeout:    envDuration("CHECKOUT_PROVIDER_TIMEOUT", 10*time.Second),
		SiteDomain:         siteDomain,
		ReceiptCacheTTL:    envDuration("RECEIPT_CACHE_TTL", 24*time.Hour),
		OutboxPollInterval: envDuration("OUTBOX_POLL_INTERVAL", 2*time.Second),
	}
}

func envDuration(name string, fallback time.Duration) time.Duration {
	raw := strings.TrimSpace(os.Getenv(name))
	if raw == "" {
		return fallback
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return fallback
	}
	return d
}
