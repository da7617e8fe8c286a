package config

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"github.com/spf13/viper"

	"github.com/segyhp/travel-loan-engine/internal/domain"
	"github.com/segyhp/travel-loan-engine/pkg/utils"
)

const (
	StoreDriverMemory   = "memory"
	StoreDriverPostgres = "postgres"
)

// development defaults that must be overridden in production
const (
	devSigningKey = "dev-secret-key-change-in-production"
	devAdminToken = "admin"
)

// Config holds all configuration for our application
type Config struct {
	Server    ServerConfig    `mapstructure:",squash"`
	Database  DatabaseConfig  `mapstructure:",squash"`
	Redis     RedisConfig     `mapstructure:",squash"`
	Scheduler SchedulerConfig `mapstructure:",squash"`
	Logging   LoggingConfig   `mapstructure:",squash"`
	Auth      AuthConfig      `mapstructure:",squash"`
	Business  BusinessConfig  `mapstructure:",squash"`
	Lifecycle LifecycleConfig `mapstructure:",squash"`
	Health    HealthConfig    `mapstructure:",squash"`
}

type ServerConfig struct {
	Port         string        `mapstructure:"SERVER_PORT"`
	Host         string        `mapstructure:"SERVER_HOST"`
	Env          string        `mapstructure:"ENV"`
	ReadTimeout  time.Duration `mapstructure:"SERVER_READ_TIMEOUT"`
	WriteTimeout time.Duration `mapstructure:"SERVER_WRITE_TIMEOUT"`
}

type DatabaseConfig struct {
	Driver          string        `mapstructure:"STORE_DRIVER"`
	URL             string        `mapstructure:"DATABASE_URL"`
	MaxOpenConns    int           `mapstructure:"DATABASE_MAX_OPEN_CONNS"`
	MaxIdleConns    int           `mapstructure:"DATABASE_MAX_IDLE_CONNS"`
	ConnMaxLifetime time.Duration `mapstructure:"DATABASE_CONN_MAX_LIFETIME"`
}

type RedisConfig struct {
	URL      string        `mapstructure:"REDIS_URL"`
	CacheTTL time.Duration `mapstructure:"REDIS_CACHE_TTL"`
}

type SchedulerConfig struct {
	SweepSchedule string `mapstructure:"SWEEP_SCHEDULE"`
}

type LoggingConfig struct {
	Level  string `mapstructure:"LOG_LEVEL"`
	Format string `mapstructure:"LOG_FORMAT"`
}

type AuthConfig struct {
	JWTSigningKey string        `mapstructure:"JWT_SIGNING_KEY"`
	JWTIssuer     string        `mapstructure:"JWT_ISSUER"`
	TokenTTL      time.Duration `mapstructure:"JWT_TOKEN_TTL"`
	OTPCode       string        `mapstructure:"AUTH_OTP_CODE"`
	AdminToken    string        `mapstructure:"ADMIN_TOKEN"`
	AdminUsername string        `mapstructure:"ADMIN_USERNAME"`
	AdminPassword string        `mapstructure:"ADMIN_PASSWORD"`
}

type BusinessConfig struct {
	MinAmount     string `mapstructure:"LOAN_MIN_AMOUNT"`
	MaxAmount     string `mapstructure:"LOAN_MAX_AMOUNT"`
	AllowedTenors []int  `mapstructure:"LOAN_ALLOWED_TENORS"`
	SeedRequests  bool   `mapstructure:"SEED_REQUESTS"`
}

type LifecycleConfig struct {
	IdentityCheckDelay  time.Duration `mapstructure:"IDENTITY_CHECK_DELAY"`
	LetterFallbackDelay time.Duration `mapstructure:"LETTER_FALLBACK_DELAY"`
	IdentitySuccessRate float64       `mapstructure:"IDENTITY_SUCCESS_RATE"`
}

type HealthConfig struct {
	Timeout time.Duration `mapstructure:"HEALTH_CHECK_TIMEOUT"`
}

// Load reads configuration from environment variables and files
func Load() (*Config, error) {
	v := viper.New()

	// Set defaults
	v.SetDefault("SERVER_PORT", "8080")
	v.SetDefault("SERVER_HOST", "0.0.0.0")
	v.SetDefault("ENV", "development")
	v.SetDefault("SERVER_READ_TIMEOUT", "15s")
	v.SetDefault("SERVER_WRITE_TIMEOUT", "15s")
	v.SetDefault("STORE_DRIVER", StoreDriverMemory)
	v.SetDefault("DATABASE_URL", "")
	v.SetDefault("DATABASE_MAX_OPEN_CONNS", 10)
	v.SetDefault("DATABASE_MAX_IDLE_CONNS", 5)
	v.SetDefault("DATABASE_CONN_MAX_LIFETIME", "30m")
	v.SetDefault("REDIS_URL", "")
	v.SetDefault("REDIS_CACHE_TTL", "30s")
	v.SetDefault("SWEEP_SCHEDULE", "*/5 * * * * *")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "")
	v.SetDefault("JWT_SIGNING_KEY", devSigningKey)
	v.SetDefault("JWT_ISSUER", "travel-loan-engine")
	v.SetDefault("JWT_TOKEN_TTL", "24h")
	v.SetDefault("AUTH_OTP_CODE", "12345")
	v.SetDefault("ADMIN_TOKEN", devAdminToken)
	v.SetDefault("ADMIN_USERNAME", "admin")
	v.SetDefault("ADMIN_PASSWORD", "admin")
	v.SetDefault("LOAN_MIN_AMOUNT", "30000000")
	v.SetDefault("LOAN_MAX_AMOUNT", "100000000")
	v.SetDefault("LOAN_ALLOWED_TENORS", []int{12, 18, 24})
	v.SetDefault("SEED_REQUESTS", false)
	v.SetDefault("IDENTITY_CHECK_DELAY", "3s")
	v.SetDefault("LETTER_FALLBACK_DELAY", "10s")
	v.SetDefault("IDENTITY_SUCCESS_RATE", 0.9)
	v.SetDefault("HEALTH_CHECK_TIMEOUT", "5s")

	// Read from environment variables
	v.AutomaticEnv()

	// Try to read from .env file (optional)
	v.SetConfigName(".env")
	v.SetConfigType("env")
	v.AddConfigPath(".")
	v.AddConfigPath("./deployments")

	// Don't fail if .env file doesn't exist
	_ = v.ReadInConfig()

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}

	// Validate configuration
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.Server.Port == "" {
		return fmt.Errorf("SERVER_PORT is required")
	}

	switch c.Database.Driver {
	case StoreDriverMemory:
	case StoreDriverPostgres:
		if c.Database.URL == "" {
			return fmt.Errorf("DATABASE_URL is required when STORE_DRIVER is postgres")
		}
	default:
		return fmt.Errorf("STORE_DRIVER must be %q or %q", StoreDriverMemory, StoreDriverPostgres)
	}

	min, err := utils.DecimalFromString(c.Business.MinAmount)
	if err != nil {
		return fmt.Errorf("LOAN_MIN_AMOUNT must be a valid decimal: %w", err)
	}
	max, err := utils.DecimalFromString(c.Business.MaxAmount)
	if err != nil {
		return fmt.Errorf("LOAN_MAX_AMOUNT must be a valid decimal: %w", err)
	}
	if !min.IsPositive() || min.GreaterThan(max) {
		return fmt.Errorf("LOAN_MIN_AMOUNT must be positive and not exceed LOAN_MAX_AMOUNT")
	}

	if len(c.Business.AllowedTenors) == 0 {
		return fmt.Errorf("LOAN_ALLOWED_TENORS must not be empty")
	}
	for _, tenor := range c.Business.AllowedTenors {
		if tenor <= 0 {
			return fmt.Errorf("LOAN_ALLOWED_TENORS must contain only positive values")
		}
	}

	if c.Lifecycle.IdentitySuccessRate < 0 || c.Lifecycle.IdentitySuccessRate > 1 {
		return fmt.Errorf("IDENTITY_SUCCESS_RATE must be between 0 and 1")
	}
	if c.Lifecycle.IdentityCheckDelay <= 0 || c.Lifecycle.LetterFallbackDelay <= 0 {
		return fmt.Errorf("IDENTITY_CHECK_DELAY and LETTER_FALLBACK_DELAY must be positive")
	}

	if c.Auth.JWTSigningKey == "" {
		return fmt.Errorf("JWT_SIGNING_KEY is required")
	}
	if c.Auth.AdminToken == "" {
		return fmt.Errorf("ADMIN_TOKEN is required")
	}
	if c.IsProduction() && (c.Auth.JWTSigningKey == devSigningKey || c.Auth.AdminToken == devAdminToken) {
		return fmt.Errorf("JWT_SIGNING_KEY and ADMIN_TOKEN must be changed from their defaults in production")
	}
	if c.Auth.TokenTTL <= 0 {
		return fmt.Errorf("JWT_TOKEN_TTL must be positive")
	}

	if c.Scheduler.SweepSchedule == "" {
		return fmt.Errorf("SWEEP_SCHEDULE is required")
	}

	return nil
}

// IsDevelopment returns true if running in development environment
func (c *Config) IsDevelopment() bool {
	return c.Server.Env == "development" || c.Server.Env == "dev"
}

// IsProduction returns true if running in production environment
func (c *Config) IsProduction() bool {
	return c.Server.Env == "production" || c.Server.Env == "prod"
}

// LogFormat returns LOG_FORMAT, or the console encoder in development and
// JSON elsewhere when it is unset
func (c *Config) LogFormat() string {
	if c.Logging.Format != "" {
		return c.Logging.Format
	}
	if c.IsDevelopment() {
		return "console"
	}
	return "json"
}

// Addr returns the host:port the HTTP server listens on
func (c *Config) Addr() string {
	return c.Server.Host + ":" + c.Server.Port
}

// GetMinAmount returns the minimum loan amount as decimal
func (c *Config) GetMinAmount() decimal.Decimal {
	amount, _ := utils.DecimalFromString(c.Business.MinAmount)
	return amount
}

// AmountBounds returns the configured request amount range
func (c *Config) AmountBounds() domain.AmountBounds {
	return domain.AmountBounds{Min: c.GetMinAmount(), Max: c.GetMaxAmount()}
}

// GetMaxAmount returns the maximum loan amount as decimal
func (c *Config) GetMaxAmount() decimal.Decimal {
	amount, _ := utils.DecimalFromString(c.Business.MaxAmount)
	return amount
}
