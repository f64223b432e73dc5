// Package config loads runtime configuration from the environment.
package config

import (
	"os"
	"strings"

	"github.com/joho/godotenv"
)

// Config holds everything the binaries need. Optional collaborators
// (Redis, Kafka, SMTP) are empty strings when not configured; callers
// degrade accordingly.
type Config struct {
	Env  string // development | production
	Port string

	DatabaseURL string
	RedisURL    string

	KafkaBrokers []string
	KafkaGroup   string

	StripeSecretKey     string
	StripeWebhookSecret string

	IdentityWebhookSecret string

	JWTSecret string

	SMTPHost string
	SMTPPort string
	SMTPUser string
	SMTPPass string
	SMTPFrom string
}

// Load reads .env if present, then the process environment.
func Load() Config {
	_ = godotenv.Load()

	cfg := Config{
		Env:                   getenv("APP_ENV", "development"),
		Port:                  getenv("APP_PORT", "8080"),
		DatabaseURL:           os.Getenv("DATABASE_URL"),
		RedisURL:              os.Getenv("REDIS_URL"),
		KafkaGroup:            getenv("KAFKA_GROUP", "bazaar-workers"),
		StripeSecretKey:       os.Getenv("STRIPE_SECRET_KEY"),
		StripeWebhookSecret:   os.Getenv("STRIPE_WEBHOOK_SECRET"),
		IdentityWebhookSecret: os.Getenv("IDENTITY_WEBHOOK_SECRET"),
		JWTSecret:             os.Getenv("JWT_SECRET"),
		SMTPHost:              os.Getenv("SMTP_HOST"),
		SMTPPort:              getenv("SMTP_PORT", "587"),
		SMTPUser:              os.Getenv("SMTP_USER"),
		SMTPPass:              os.Getenv("SMTP_PASS"),
		SMTPFrom:              getenv("SMTP_FROM", "no-reply@bazaar.example"),
	}

	if brokers := os.Getenv("KAFKA_BROKERS"); brokers != "" {
		for _, b := range strings.Split(brokers, ",") {
			if b = strings.TrimSpace(b); b != "" {
				cfg.KafkaBrokers = append(cfg.KafkaBrokers, b)
			}
		}
	}
	return cfg
}

// Production reports whether the binary runs with production error hygiene
// (internal error messages suppressed from clients).
func (c Config) Production() bool { return c.Env == "production" }

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
