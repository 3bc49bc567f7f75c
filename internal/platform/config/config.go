package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config is the full process configuration, built once in main.
type Config struct {
	Server   Server
	Postgres PostgresConfig
	Redis    RedisConfig
	Kafka    KafkaConfig
	Ledger   LedgerConfig
	Trigger  TriggerConfig
}

// Server captures HTTP server level configuration.
type Server struct {
	Addr          string
	JWTSigningKey string
	JWTIssuer     string
	JWTAudience   string
}

// PostgresConfig selects the durable stores. Empty URL means in-memory stores.
type PostgresConfig struct {
	URL          string
	MaxOpenConns int
	MaxIdleConns int
}

// RedisConfig selects the Redis-backed profile store and transfer lease.
type RedisConfig struct {
	URL          string
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// KafkaConfig enables activity event publishing when Brokers is non-empty.
type KafkaConfig struct {
	Brokers []string
	Topic   string
}

// LedgerConfig points at the custody ledger. Empty URL runs the in-process simulator.
type LedgerConfig struct {
	URL              string
	Timeout          time.Duration
	FailureThreshold int
	Cooldown         time.Duration
}

// TriggerConfig tunes the automatic transfer sweep.
type TriggerConfig struct {
	TickInterval   time.Duration
	Concurrency    int
	RetryInitial   time.Duration
	RetryMax       time.Duration
	LeaseTTL       time.Duration
	AttemptTimeout time.Duration
}

// FromEnv builds the config from environment variables so main stays lean.
func FromEnv() Config {
	jwtSigningKey := os.Getenv("JWT_SIGNING_KEY")
	if jwtSigningKey == "" {
		// Use a default for development - should be overridden in production
		jwtSigningKey = "dev-secret-key-change-in-production"
	}

	return Config{
		Server: Server{
			Addr:          envOr("SATVAULT_ADDR", ":8080"),
			JWTSigningKey: jwtSigningKey,
			JWTIssuer:     envOr("JWT_ISSUER", "satvault"),
			JWTAudience:   envOr("JWT_AUDIENCE", "satvault-api"),
		},
		Postgres: PostgresConfig{
			URL:          os.Getenv("DATABASE_URL"),
			MaxOpenConns: envInt("DATABASE_MAX_OPEN_CONNS", 20),
			MaxIdleConns: envInt("DATABASE_MAX_IDLE_CONNS", 5),
		},
		Redis: RedisConfig{
			URL:          os.Getenv("REDIS_URL"),
			PoolSize:     envInt("REDIS_POOL_SIZE", 10),
			MinIdleConns: envInt("REDIS_MIN_IDLE_CONNS", 2),
			DialTimeout:  5 * time.Second,
			ReadTimeout:  3 * time.Second,
			WriteTimeout: 3 * time.Second,
		},
		Kafka: KafkaConfig{
			Brokers: splitList(os.Getenv("KAFKA_BROKERS")),
			Topic:   envOr("KAFKA_TOPIC", "vault.activity"),
		},
		Ledger: LedgerConfig{
			URL:              os.Getenv("LEDGER_URL"),
			Timeout:          envDuration("LEDGER_TIMEOUT", 30*time.Second),
			FailureThreshold: envInt("LEDGER_BREAKER_FAILURES", 5),
			Cooldown:         envDuration("LEDGER_BREAKER_COOLDOWN", 30*time.Second),
		},
		Trigger: TriggerConfig{
			TickInterval:   envDuration("TRIGGER_TICK_INTERVAL", time.Minute),
			Concurrency:    envInt("TRIGGER_CONCURRENCY", 8),
			RetryInitial:   envDuration("TRIGGER_RETRY_INITIAL", 30*time.Second),
			RetryMax:       envDuration("TRIGGER_RETRY_MAX", time.Hour),
			LeaseTTL:       envDuration("TRIGGER_LEASE_TTL", 2*time.Minute),
			AttemptTimeout: envDuration("TRIGGER_ATTEMPT_TIMEOUT", time.Minute),
		},
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	v, err := strconv.Atoi(os.Getenv(key))
	if err != nil || v <= 0 {
		return fallback
	}
	return v
}

func envDuration(key string, fallback time.Duration) time.Duration {
	v, err := time.ParseDuration(os.Getenv(key))
	if err != nil || v <= 0 {
		return fallback
	}
	return v
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
