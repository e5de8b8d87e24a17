// Package config builds runtime configuration from the environment so main
// stays lean. A local .env file is honored when present.
package config

import (
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config captures everything the server needs at startup. Empty URLs mean the
// corresponding backend is not configured and in-memory fallbacks are wired.
type Config struct {
	Addr string

	DatabaseURL string
	RedisURL    string

	KafkaBrokers []string
	KafkaTopic   string

	GatewayBaseURL     string
	GatewaySecretKey   string
	GatewayCallbackURL string

	SessionSigningKey string
	SessionTTL        time.Duration

	Currency string
}

// FromEnv loads .env if present and reads configuration from the environment.
func FromEnv() Config {
	_ = godotenv.Load()

	cfg := Config{
		Addr:               getEnv("OVATION_ADDR", ":8080"),
		DatabaseURL:        os.Getenv("DATABASE_URL"),
		RedisURL:           os.Getenv("REDIS_URL"),
		KafkaTopic:         getEnv("KAFKA_TOPIC", "ovation.notifications"),
		GatewayBaseURL:     os.Getenv("GATEWAY_BASE_URL"),
		GatewaySecretKey:   os.Getenv("GATEWAY_SECRET_KEY"),
		GatewayCallbackURL: getEnv("GATEWAY_CALLBACK_URL", "http://localhost:8080/payments/return"),
		SessionSigningKey:  getEnv("SESSION_SIGNING_KEY", "dev-secret-key-change-in-production"),
		SessionTTL:         24 * time.Hour,
		Currency:           getEnv("OVATION_CURRENCY", "USD"),
	}

	if brokers := os.Getenv("KAFKA_BROKERS"); brokers != "" {
		cfg.KafkaBrokers = strings.Split(brokers, ",")
	}

	if ttl := os.Getenv("SESSION_TTL"); ttl != "" {
		if parsed, err := time.ParseDuration(ttl); err == nil {
			cfg.SessionTTL = parsed
		}
	}

	return cfg
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}
