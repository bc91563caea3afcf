package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Service identifies which binary is loading the configuration.
// Defaults and validation differ between the two.
type Service string

const (
	ServiceIdentity Service = "identity"
	ServiceTasks    Service = "tasks"
)

// Token formats understood by the identity service.
const (
	TokenFormatJWT    = "jwt"
	TokenFormatPaseto = "paseto"
)

// Verification modes for the task service's auth gate.
const (
	VerifyModeRemote = "remote"
	VerifyModeLocal  = "local"
)

type Config struct {
	Service  Service
	Server   ServerConfig
	Database DatabaseConfig
	Redis    RedisConfig
	Auth     AuthConfig
	Identity IdentityConfig
}

type ServerConfig struct {
	Port            string
	Env             string // dev or prod
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
	TrustedOrigins  []string // CORS allowed origins
}

type DatabaseConfig struct {
	Host            string
	Port            string
	User            string
	Password        string
	DBName          string
	SSLMode         string
	ChannelBinding  string // "require" for Neon DB, empty for local
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxIdleTime time.Duration
}

type RedisConfig struct {
	Host     string
	Port     string
	Password string
	DB       int
}

type AuthConfig struct {
	// TokenFormat is either "jwt" (HS256) or "paseto" (v4.local)
	TokenFormat string
	// TokenSecret signs JWTs or encrypts PASETO tokens (exactly 32 bytes for PASETO)
	TokenSecret []byte
	TokenTTL    time.Duration
	// Login/register attempts allowed per IP within RateLimitWindow, 0 disables
	RateLimitAttempts int
	RateLimitWindow   time.Duration
}

// IdentityConfig describes how the task service reaches the identity service.
type IdentityConfig struct {
	BaseURL      string
	Timeout      time.Duration
	VerifyMode   string
	MaxRetries   int
	RetryBackoff time.Duration
}

// Load reads configuration for the given service from environment variables.
// Values from the env files (default ".env") are loaded first and never
// override variables already present in the environment.
func Load(service Service, envFiles ...string) (*Config, error) {
	// Missing env files are fine
	_ = godotenv.Load(envFiles...)

	defaultPort := "8080"
	defaultDBName := "tasks"
	if service == ServiceIdentity {
		defaultPort = "8081"
		defaultDBName = "identity"
	}

	cfg := &Config{
		Service: service,
		Server: ServerConfig{
			Port:            getEnv("SERVER_PORT", defaultPort),
			Env:             getEnv("APP_ENV", "dev"),
			ReadTimeout:     getDurationEnv("SERVER_READ_TIMEOUT", 10*time.Second),
			WriteTimeout:    getDurationEnv("SERVER_WRITE_TIMEOUT", 10*time.Second),
			ShutdownTimeout: getDurationEnv("SERVER_SHUTDOWN_TIMEOUT", 15*time.Second),
			TrustedOrigins:  getSliceEnv("TRUSTED_ORIGINS", []string{"http://localhost:3000"}),
		},
		Database: DatabaseConfig{
			Host:            getEnv("DB_HOST", "localhost"),
			Port:            getEnv("DB_PORT", "5432"),
			User:            getEnv("DB_USER", "postgres"),
			Password:        getEnv("DB_PASSWORD", "postgres"),
			DBName:          getEnv("DB_NAME", defaultDBName),
			SSLMode:         getEnv("DB_SSLMODE", "disable"),
			ChannelBinding:  getEnv("DB_CHANNEL_BINDING", ""),
			MaxOpenConns:    getIntEnv("DB_MAX_OPEN_CONNS", 20),
			MaxIdleConns:    getIntEnv("DB_MAX_IDLE_CONNS", 5),
			ConnMaxIdleTime: getDurationEnv("DB_CONN_MAX_IDLE_TIME", 30*time.Second),
		},
		Redis: RedisConfig{
			Host:     getEnv("REDIS_HOST", "localhost"),
			Port:     getEnv("REDIS_PORT", "6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getIntEnv("REDIS_DB", 0),
		},
		Auth: AuthConfig{
			TokenFormat:       strings.ToLower(getEnv("TOKEN_FORMAT", TokenFormatJWT)),
			TokenSecret:       []byte(getEnv("TOKEN_SECRET", "")),
			TokenTTL:          getDurationEnv("TOKEN_TTL", time.Hour),
			RateLimitAttempts: getIntEnv("RATE_LIMIT_ATTEMPTS", 10),
			RateLimitWindow:   getDurationEnv("RATE_LIMIT_WINDOW", 15*time.Minute),
		},
		Identity: IdentityConfig{
			BaseURL:      strings.TrimRight(getEnv("IDENTITY_URL", "http://localhost:8081"), "/"),
			Timeout:      getDurationEnv("IDENTITY_TIMEOUT", 5*time.Second),
			VerifyMode:   strings.ToLower(getEnv("IDENTITY_VERIFY_MODE", VerifyModeRemote)),
			MaxRetries:   getIntEnv("IDENTITY_MAX_RETRIES", 0),
			RetryBackoff: getMillisEnv("IDENTITY_RETRY_BACKOFF_MS", 100*time.Millisecond),
		},
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) validate() error {
	switch c.Service {
	case ServiceIdentity:
		return c.Auth.validateSecret()
	case ServiceTasks:
		switch c.Identity.VerifyMode {
		case VerifyModeRemote:
			if c.Identity.BaseURL == "" {
				return fmt.Errorf("IDENTITY_URL is required in %s verify mode", VerifyModeRemote)
			}
		case VerifyModeLocal:
			return c.Auth.validateSecret()
		default:
			return fmt.Errorf("IDENTITY_VERIFY_MODE must be %q or %q, got %q", VerifyModeRemote, VerifyModeLocal, c.Identity.VerifyMode)
		}
		if c.Identity.Timeout <= 0 {
			return fmt.Errorf("IDENTITY_TIMEOUT must be positive")
		}
		if c.Identity.MaxRetries < 0 {
			return fmt.Errorf("IDENTITY_MAX_RETRIES must not be negative")
		}
		return nil
	default:
		return fmt.Errorf("unknown service %q", c.Service)
	}
}

func (c *AuthConfig) validateSecret() error {
	switch c.TokenFormat {
	case TokenFormatPaseto:
		// v4.local needs a 32 byte symmetric key
		if len(c.TokenSecret) != 32 {
			return fmt.Errorf("TOKEN_SECRET must be exactly 32 bytes for paseto, got %d", len(c.TokenSecret))
		}
	case TokenFormatJWT:
		if len(c.TokenSecret) < 32 {
			return fmt.Errorf("TOKEN_SECRET must be at least 32 bytes for jwt, got %d", len(c.TokenSecret))
		}
	default:
		return fmt.Errorf("TOKEN_FORMAT must be %q or %q, got %q", TokenFormatJWT, TokenFormatPaseto, c.TokenFormat)
	}
	return nil
}

func (c *DatabaseConfig) ConnectionString() string {
	connStr := fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.DBName, c.SSLMode,
	)

	// Add channel_binding if configured (required for Neon DB)
	if c.ChannelBinding != "" {
		connStr += fmt.Sprintf(" channel_binding=%s", c.ChannelBinding)
	}

	return connStr
}

// Address returns Redis connection address (host:port)
func (c *RedisConfig) Address() string {
	return fmt.Sprintf("%s:%s", c.Host, c.Port)
}

// IsDevelopment returns true if the environment is set to dev
func (c *ServerConfig) IsDevelopment() bool {
	return c.Env == "dev"
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getIntEnv(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	intValue, err := strconv.Atoi(value)
	if err != nil {
		return defaultValue
	}

	return intValue
}

func getDurationEnv(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	seconds, err := strconv.Atoi(value)
	if err != nil {
		return defaultValue
	}

	return time.Duration(seconds) * time.Second
}

func getMillisEnv(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	millis, err := strconv.Atoi(value)
	if err != nil {
		return defaultValue
	}

	return time.Duration(millis) * time.Millisecond
}

func getSliceEnv(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	// Split by comma and trim whitespace
	parts := strings.Split(value, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			result = append(result, trimmed)
		}
	}

	if len(result) == 0 {
		return defaultValue
	}

	return result
}
