// Copyright 2026 The OpenTrusty Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all application configuration
type Config struct {
	Server        ServerConfig
	Database      DatabaseConfig
	Redis         RedisConfig
	Storage       StorageConfig
	Messaging     MessagingConfig
	Auth          AuthConfig
	Chat          ChatConfig
	Serial        SerialConfig
	Observability ObservabilityConfig
	Security      SecurityConfig
	RateLimit     RateLimitConfig
	Bootstrap     BootstrapConfig
}

// RateLimitConfig holds rate limiting configuration
type RateLimitConfig struct {
	RequestsPerSecond float64
	Burst             int
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host         string
	Port         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration

	// TrustProxyHeaders takes client addresses from X-Forwarded-For/X-Real-IP
	TrustProxyHeaders bool
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	Backend         string // postgres, memory
	Host            string
	Port            string
	User            string
	Password        string
	Database        string
	SSLMode         string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

// RedisConfig holds the optional Redis connection used for chat sessions
type RedisConfig struct {
	Enabled  bool
	Host     string
	Port     int
	Password string
	DB       int
	PoolSize int
}

// StorageConfig holds object storage settings for certificates and codes
type StorageConfig struct {
	Enabled       bool
	Endpoint      string
	AccessKey     string
	SecretKey     string
	Bucket        string
	UseSSL        bool
	PublicBaseURL string
}

// MessagingConfig holds the outbound chat gateway and inbound webhook settings
type MessagingConfig struct {
	APIURL        string
	APIKey        string
	PhoneNumber   string
	Timeout       time.Duration
	WebhookSecret string
	VerifyToken   string
}

// AuthConfig holds session token settings
type AuthConfig struct {
	JWTSecret     string
	TokenLifetime time.Duration
	Issuer        string
}

// ChatConfig holds conversational session settings
type ChatConfig struct {
	SessionStore  string // memory, redis
	SessionTTL    time.Duration
	SweepInterval time.Duration
	TurnTimeout   time.Duration
}

// SerialConfig holds defaults for new stores
type SerialConfig struct {
	DefaultPrefix   string
	DefaultStrategy string // counter, random
}

// ObservabilityConfig holds logging and tracing configuration
type ObservabilityConfig struct {
	LogLevel       string
	LogFormat      string
	OTELEnabled    bool
	OTLPEndpoint   string // empty: OTEL_EXPORTER_OTLP_* defaults
	SamplingRate   float64
	ServiceName    string
	ServiceVersion string
}

// SecurityConfig holds security-related configuration
type SecurityConfig struct {
	Argon2Memory       uint32
	Argon2Iterations   uint32
	Argon2Parallelism  uint8
	Argon2SaltLength   uint32
	Argon2KeyLength    uint32
	LockoutMaxAttempts int
	LockoutDuration    time.Duration
}

// BootstrapConfig seeds a first account and store on startup when set
type BootstrapConfig struct {
	AdminEmail    string
	AdminPassword string
	StoreName     string
}

// Load loads configuration from a .env file (when present) and environment variables
func Load() (*Config, error) {
	// A missing .env is normal outside local development.
	_ = godotenv.Load()

	cfg := &Config{
		Server: ServerConfig{
			Host:         getEnv("SERVER_HOST", "0.0.0.0"),
			Port:         getEnv("SERVER_PORT", "8080"),
			ReadTimeout:  parseDuration("SERVER_READ_TIMEOUT", "15s"),
			WriteTimeout: parseDuration("SERVER_WRITE_TIMEOUT", "30s"),
			IdleTimeout:  parseDuration("SERVER_IDLE_TIMEOUT", "60s"),

			TrustProxyHeaders: parseBool("SERVER_TRUST_PROXY_HEADERS", false),
		},
		Database: DatabaseConfig{
			Backend:         strings.ToLower(getEnv("DB_BACKEND", "postgres")),
			Host:            getEnv("DB_HOST", "localhost"),
			Port:            getEnv("DB_PORT", "5432"),
			User:            getEnv("DB_USER", "warrantyhub"),
			Password:        getEnv("DB_PASSWORD", ""),
			Database:        getEnv("DB_NAME", "warrantyhub"),
			SSLMode:         getEnv("DB_SSLMODE", "disable"),
			MaxOpenConns:    parseInt("DB_MAX_OPEN_CONNS", 25),
			MaxIdleConns:    parseInt("DB_MAX_IDLE_CONNS", 5),
			ConnMaxLifetime: parseDuration("DB_CONN_MAX_LIFETIME", "5m"),
		},
		Redis: RedisConfig{
			Enabled:  parseBool("REDIS_ENABLED", false),
			Host:     getEnv("REDIS_HOST", "localhost"),
			Port:     parseInt("REDIS_PORT", 6379),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       parseInt("REDIS_DB", 0),
			PoolSize: parseInt("REDIS_POOL_SIZE", 10),
		},
		Storage: StorageConfig{
			Enabled:       parseBool("MINIO_ENABLED", false),
			Endpoint:      getEnv("MINIO_ENDPOINT", "localhost:9000"),
			AccessKey:     getEnv("MINIO_ACCESS_KEY", ""),
			SecretKey:     getEnv("MINIO_SECRET_KEY", ""),
			Bucket:        getEnv("MINIO_BUCKET", "warranty-documents"),
			UseSSL:        parseBool("MINIO_USE_SSL", false),
			PublicBaseURL: getEnv("MINIO_PUBLIC_BASE_URL", ""),
		},
		Messaging: MessagingConfig{
			APIURL:        getEnv("KWIC_API_URL", ""),
			APIKey:        getEnv("KWIC_API_KEY", ""),
			PhoneNumber:   getEnv("KWIC_PHONE_NUMBER", ""),
			Timeout:       parseDuration("KWIC_TIMEOUT", "30s"),
			WebhookSecret: getEnv("WEBHOOK_APP_SECRET", ""),
			VerifyToken:   getEnv("WEBHOOK_VERIFY_TOKEN", ""),
		},
		Auth: AuthConfig{
			JWTSecret:     getEnv("JWT_SECRET", ""),
			TokenLifetime: parseDuration("JWT_LIFETIME", "168h"),
			Issuer:        getEnv("JWT_ISSUER", "warrantyhub"),
		},
		Chat: ChatConfig{
			SessionStore:  strings.ToLower(getEnv("CHAT_SESSION_STORE", "memory")),
			SessionTTL:    parseDuration("CHAT_SESSION_TTL", "30m"),
			SweepInterval: parseDuration("CHAT_SWEEP_INTERVAL", "5m"),
			TurnTimeout:   parseDuration("CHAT_TURN_TIMEOUT", "20s"),
		},
		Serial: SerialConfig{
			DefaultPrefix:   getEnv("SERIAL_DEFAULT_PREFIX", "PRD"),
			DefaultStrategy: strings.ToLower(getEnv("SERIAL_DEFAULT_STRATEGY", "random")),
		},
		Observability: ObservabilityConfig{
			LogLevel:       getEnv("LOG_LEVEL", "info"),
			LogFormat:      getEnv("LOG_FORMAT", "json"),
			OTELEnabled:    parseBool("OTEL_ENABLED", false),
			OTLPEndpoint:   getEnv("OTEL_TRACES_ENDPOINT", ""),
			SamplingRate:   parseFloat("OTEL_SAMPLING_RATE", 1.0),
			ServiceName:    getEnv("OTEL_SERVICE_NAME", "warrantyhub"),
			ServiceVersion: getEnv("OTEL_SERVICE_VERSION", "0.1.0"),
		},
		Security: SecurityConfig{
			Argon2Memory:       uint32(parseInt("ARGON2_MEMORY", 65536)),
			Argon2Iterations:   uint32(parseInt("ARGON2_ITERATIONS", 3)),
			Argon2Parallelism:  uint8(parseInt("ARGON2_PARALLELISM", 4)),
			Argon2SaltLength:   uint32(parseInt("ARGON2_SALT_LENGTH", 16)),
			Argon2KeyLength:    uint32(parseInt("ARGON2_KEY_LENGTH", 32)),
			LockoutMaxAttempts: parseInt("SECURITY_LOCKOUT_MAX_ATTEMPTS", 5),
			LockoutDuration:    parseDuration("SECURITY_LOCKOUT_DURATION", "15m"),
		},
		RateLimit: RateLimitConfig{
			RequestsPerSecond: parseFloat("RATELIMIT_RPS", 10),
			Burst:             parseInt("RATELIMIT_BURST", 20),
		},
		Bootstrap: BootstrapConfig{
			AdminEmail:    getEnv("BOOTSTRAP_ADMIN_EMAIL", ""),
			AdminPassword: getEnv("BOOTSTRAP_ADMIN_PASSWORD", ""),
			StoreName:     getEnv("BOOTSTRAP_STORE_NAME", ""),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// Validate validates the configuration
func (c *Config) Validate() error {
	var errs []error
	switch c.Database.Backend {
	case "postgres":
		if c.Database.Password == "" {
			errs = append(errs, errors.New("DB_PASSWORD is required"))
		}
	case "memory":
	default:
		errs = append(errs, fmt.Errorf("unknown DB_BACKEND %q", c.Database.Backend))
	}
	if len(c.Auth.JWTSecret) < 32 {
		errs = append(errs, errors.New("JWT_SECRET must be at least 32 bytes"))
	}
	switch c.Chat.SessionStore {
	case "memory":
	case "redis":
		if !c.Redis.Enabled {
			errs = append(errs, errors.New("CHAT_SESSION_STORE=redis requires REDIS_ENABLED=true"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown CHAT_SESSION_STORE %q", c.Chat.SessionStore))
	}
	if c.Serial.DefaultStrategy != "counter" && c.Serial.DefaultStrategy != "random" {
		errs = append(errs, fmt.Errorf("unknown SERIAL_DEFAULT_STRATEGY %q", c.Serial.DefaultStrategy))
	}
	if c.Storage.Enabled && (c.Storage.AccessKey == "" || c.Storage.SecretKey == "") {
		errs = append(errs, errors.New("MINIO_ACCESS_KEY and MINIO_SECRET_KEY are required when MINIO_ENABLED=true"))
	}
	return errors.Join(errs...)
}

// Helper functions
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func parseInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func parseFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}

func parseBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

func parseDuration(key string, defaultValue string) time.Duration {
	value := getEnv(key, defaultValue)
	d, err := time.ParseDuration(value)
	if err != nil {
		// Fallback to default
		d, _ = time.ParseDuration(defaultValue)
	}
	return d
}
