// Package config loads application configuration from environment
// variables. A .env file, when present, is applied by the command before
// Load runs.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all runtime configuration values. Each field corresponds
// to an environment variable.
type Config struct {
	Env         string   // APP_ENV (dev, test, prod)
	Port        string   // APP_PORT
	LogLevel    string   // LOG_LEVEL
	CORSOrigins []string // CORS_ORIGINS, comma separated

	DBUser string // DB_USER
	DBPass string // DB_PASS (empty allowed)
	DBHost string // DB_HOST
	DBPort string // DB_PORT
	DBName string // DB_NAME

	JWTSecret    string // JWT_SECRET
	AccessTTLMin int    // ACCESS_TOKEN_TTL_MIN
	BcryptCost   int    // BCRYPT_COST

	LockBackend string        // LOCK_BACKEND: local or redis
	LockTTL     time.Duration // LOCK_TTL
	LockRetry   time.Duration // LOCK_RETRY

	HubBuffer      int           // HUB_BUFFER, per-viewer queue length
	WSWriteTimeout time.Duration // WS_WRITE_TIMEOUT
	WSPingInterval time.Duration // WS_PING_INTERVAL

	Broker  BrokerConfig
	Payment PaymentConfig
}

// BrokerConfig configures the booking event exchange. An empty URL
// disables publishing.
type BrokerConfig struct {
	URL      string // RABBITMQ_URL
	Exchange string // BOOKING_EXCHANGE
	Queue    string // BOOKING_QUEUE
	LogDir   string // BOOKING_LOG_DIR
}

// PaymentConfig configures the checkout provider. An empty key disables
// the payment routes.
type PaymentConfig struct {
	StripeKey     string // STRIPE_API_KEY
	WebhookSecret string // STRIPE_WEBHOOK_SECRET
	Currency      string // PAYMENT_CURRENCY
}

// IsDev reports whether the app runs in a development environment.
func (c Config) IsDev() bool { return c.Env == "dev" || c.Env == "development" }

// Load reads the environment. All required variables are checked at
// once and reported in a single error.
func Load() (Config, error) { return load(true) }

// LoadMemory is Load for the in-memory serve mode: database settings are
// optional and JWT_SECRET falls back to a development value.
func LoadMemory() (Config, error) {
	cfg, err := load(false)
	if err == nil && cfg.JWTSecret == "" {
		cfg.JWTSecret = "dev-only-secret"
	}
	return cfg, err
}

func load(strict bool) (Config, error) {
	var missing, invalid []string
	must := func(k string) string {
		v, ok := os.LookupEnv(k)
		if (!ok || v == "") && strict {
			missing = append(missing, k)
		}
		return v
	}
	mustInt := func(k string, def int) int {
		v := os.Getenv(k)
		if v == "" {
			return def
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			invalid = append(invalid, k)
		}
		return n
	}

	cfg := Config{
		Env:         getenv("APP_ENV", "dev"),
		Port:        getenv("APP_PORT", "8000"),
		LogLevel:    getenv("LOG_LEVEL", "info"),
		CORSOrigins: envList("CORS_ORIGINS", "*"),

		DBUser: must("DB_USER"),
		DBPass: os.Getenv("DB_PASS"),
		DBHost: must("DB_HOST"),
		DBPort: getenv("DB_PORT", "3306"),
		DBName: must("DB_NAME"),

		JWTSecret:    must("JWT_SECRET"),
		AccessTTLMin: mustInt("ACCESS_TOKEN_TTL_MIN", 24*60),
		BcryptCost:   mustInt("BCRYPT_COST", 10),

		LockBackend: strings.ToLower(getenv("LOCK_BACKEND", "local")),
		LockTTL:     envDur("LOCK_TTL", 10*time.Second),
		LockRetry:   envDur("LOCK_RETRY", 25*time.Millisecond),

		HubBuffer:      envInt("HUB_BUFFER", 16),
		WSWriteTimeout: envDur("WS_WRITE_TIMEOUT", 5*time.Second),
		WSPingInterval: envDur("WS_PING_INTERVAL", 30*time.Second),

		Broker: BrokerConfig{
			URL:      os.Getenv("RABBITMQ_URL"),
			Exchange: getenv("BOOKING_EXCHANGE", "bookings"),
			Queue:    getenv("BOOKING_QUEUE", "booking.audit"),
			LogDir:   getenv("BOOKING_LOG_DIR", "logs"),
		},
		Payment: PaymentConfig{
			StripeKey:     os.Getenv("STRIPE_API_KEY"),
			WebhookSecret: os.Getenv("STRIPE_WEBHOOK_SECRET"),
			Currency:      strings.ToLower(getenv("PAYMENT_CURRENCY", "usd")),
		},
	}

	if cfg.LockBackend != "local" && cfg.LockBackend != "redis" {
		invalid = append(invalid, "LOCK_BACKEND")
	}
	if len(missing) > 0 || len(invalid) > 0 {
		var parts []string
		if len(missing) > 0 {
			parts = append(parts, "missing required env vars: "+strings.Join(missing, ", "))
		}
		if len(invalid) > 0 {
			parts = append(parts, "invalid env vars: "+strings.Join(invalid, ", "))
		}
		return Config{}, fmt.Errorf("config: %s", strings.Join(parts, "; "))
	}
	return cfg, nil
}
