package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the tradegate service
// ⭐ SSOT: 모든 환경변수는 여기서만 읽음
type Config struct {
	// Server
	Port string
	Env  string // development, staging, production

	// Database
	Database DatabaseConfig

	// Redis (limits cache)
	Redis RedisConfig

	// Risk gate
	Gate GateConfig

	// Audit trail
	Audit AuditConfig

	// Logging
	LogLevel  string
	LogFormat string

	// Monitoring
	MetricsEnabled bool
	MetricsPort    string
}

// DatabaseConfig holds PostgreSQL configuration
type DatabaseConfig struct {
	Host     string
	Port     string
	Name     string
	User     string
	Password string
	URL      string

	// Connection Pool
	MaxConns        int
	MinConns        int
	MaxConnLifetime time.Duration
	MaxConnIdleTime time.Duration
}

// RedisConfig holds Redis configuration
type RedisConfig struct {
	Host     string
	Port     string
	Password string
	DB       int
	Enabled  bool
}

// GateConfig holds risk gate behavior configuration
type GateConfig struct {
	// Mode: shadow (log only), enforce (deny), off (pass-through)
	Mode string

	// LimitsFile is an optional YAML file with per-workspace risk limits.
	// When set it takes precedence over the database limits provider
	// (development / demo use).
	LimitsFile string

	// LimitsCacheTTL controls how long per-workspace limits stay cached.
	LimitsCacheTTL time.Duration

	// RateLimitPerSecond / RateLimitBurst bound the evaluate endpoint per client.
	RateLimitPerSecond float64
	RateLimitBurst     int
}

// AuditConfig holds decision-record emitter configuration
type AuditConfig struct {
	Enabled       bool
	QueueSize     int           // emitter channel buffer
	EmitTimeout   time.Duration // per-write timeout
	RetentionDays int           // purge records older than this
}

// Load reads configuration from environment variables
// ⭐ SSOT: 이 함수만 os.Getenv()를 호출함
func Load() (*Config, error) {
	loadEnvFile()

	cfg := &Config{
		Port: getEnv("PORT", "8090"),
		Env:  getEnv("ENV", "development"),

		Database: DatabaseConfig{
			Host:            getEnv("DB_HOST", "localhost"),
			Port:            getEnv("DB_PORT", "5432"),
			Name:            getEnv("DB_NAME", "tradegate"),
			User:            getEnv("DB_USER", "tradegate"),
			Password:        getEnv("DB_PASSWORD", ""),
			URL:             getEnv("DATABASE_URL", ""),
			MaxConns:        getEnvAsInt("DB_MAX_CONNS", 25),
			MinConns:        getEnvAsInt("DB_MIN_CONNS", 5),
			MaxConnLifetime: getEnvAsDuration("DB_MAX_CONN_LIFETIME", "1h"),
			MaxConnIdleTime: getEnvAsDuration("DB_MAX_CONN_IDLE_TIME", "30m"),
		},

		Redis: RedisConfig{
			Host:     getEnv("REDIS_HOST", "localhost"),
			Port:     getEnv("REDIS_PORT", "6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvAsInt("REDIS_DB", 0),
			Enabled:  getEnvAsBool("REDIS_ENABLED", false),
		},

		Gate: GateConfig{
			Mode:               getEnv("GATE_MODE", "enforce"),
			LimitsFile:         getEnv("GATE_LIMITS_FILE", ""),
			LimitsCacheTTL:     getEnvAsDuration("GATE_LIMITS_CACHE_TTL", "30s"),
			RateLimitPerSecond: getEnvAsFloat("GATE_RATE_LIMIT_RPS", 50),
			RateLimitBurst:     getEnvAsInt("GATE_RATE_LIMIT_BURST", 100),
		},

		Audit: AuditConfig{
			Enabled:       getEnvAsBool("AUDIT_ENABLED", true),
			QueueSize:     getEnvAsInt("AUDIT_QUEUE_SIZE", 1024),
			EmitTimeout:   getEnvAsDuration("AUDIT_EMIT_TIMEOUT", "5s"),
			RetentionDays: getEnvAsInt("AUDIT_RETENTION_DAYS", 90),
		},

		LogLevel:  getEnv("LOG_LEVEL", "debug"),
		LogFormat: getEnv("LOG_FORMAT", "json"),

		MetricsEnabled: getEnvAsBool("METRICS_ENABLED", true),
		MetricsPort:    getEnv("METRICS_PORT", "9090"),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks configuration consistency
func (c *Config) Validate() error {
	switch c.Gate.Mode {
	case "shadow", "enforce", "off":
	default:
		return fmt.Errorf("invalid GATE_MODE %q (use: shadow, enforce, off)", c.Gate.Mode)
	}

	if c.Audit.QueueSize <= 0 {
		return fmt.Errorf("AUDIT_QUEUE_SIZE must be > 0, got %d", c.Audit.QueueSize)
	}

	if c.Database.URL == "" && c.Database.Host == "" {
		return fmt.Errorf("either DATABASE_URL or DB_HOST must be set")
	}

	return nil
}

// DatabaseURL returns the connection URL, building one from parts if needed
func (c *Config) DatabaseURL() string {
	if c.Database.URL != "" {
		return c.Database.URL
	}
	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s",
		c.Database.User, c.Database.Password,
		c.Database.Host, c.Database.Port, c.Database.Name)
}

// IsProduction returns true when running in production
func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

// loadEnvFile tries to load .env from several likely locations
func loadEnvFile() {
	paths := []string{
		".env",
		filepath.Join("..", ".env"),
		filepath.Join("..", "..", ".env"),
	}

	for _, path := range paths {
		if _, err := os.Stat(path); err == nil {
			_ = godotenv.Load(path)
			return
		}
	}
}

// Helper functions

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.ParseFloat(valueStr, 64)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.ParseBool(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsDuration(key, defaultValue string) time.Duration {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		valueStr = defaultValue
	}
	value, err := time.ParseDuration(valueStr)
	if err != nil {
		fallback, _ := time.ParseDuration(defaultValue)
		return fallback
	}
	return value
}
