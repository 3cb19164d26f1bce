package config

import (
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Appointment storage backends.
const (
	StorePostgres = "postgres"
	StoreFile     = "file"
)

// Account backends used by the portal.
const (
	AccountLocal  = "local"
	AccountRemote = "remote"
)

type Config struct {
	Port               string        `mapstructure:"PORT"`
	Env                string        `mapstructure:"ENV"`
	DatabaseURL        string        `mapstructure:"DATABASE_URL"`
	DBMaxConns         int32         `mapstructure:"DB_MAX_CONNS"`
	DBMinConns         int32         `mapstructure:"DB_MIN_CONNS"`
	DBStatementTimeout time.Duration `mapstructure:"DB_STATEMENT_TIMEOUT"`
	MigrationsDir      string        `mapstructure:"MIGRATIONS_DIR"`
	RedisURL           string        `mapstructure:"REDIS_URL"`
	AppointmentStore   string        `mapstructure:"APPOINTMENT_STORE"`
	AppointmentsFile   string        `mapstructure:"APPOINTMENTS_FILE"`
	JWTSigningKey      string        `mapstructure:"JWT_SIGNING_KEY"`
	JWTIssuer          string        `mapstructure:"JWT_ISSUER"`
	TokenTTL           time.Duration `mapstructure:"TOKEN_TTL"`
	SessionTTL         time.Duration `mapstructure:"SESSION_TTL"`
	SessionCookie      string        `mapstructure:"SESSION_COOKIE"`
	StagingTTL         time.Duration `mapstructure:"STAGING_TTL"`
	AccountBackend     string        `mapstructure:"ACCOUNT_BACKEND"`
	AccountAPIURL      string        `mapstructure:"ACCOUNT_API_URL"`
	DailyMedURL        string        `mapstructure:"DAILYMED_URL"`
	LowStockThreshold  int           `mapstructure:"LOW_STOCK_THRESHOLD"`
	CORSOrigins        []string      `mapstructure:"CORS_ORIGINS"`
	RateLimitRPS       float64       `mapstructure:"RATE_LIMIT_RPS"`
	RateLimitBurst     int           `mapstructure:"RATE_LIMIT_BURST"`
	RequestTimeout     time.Duration `mapstructure:"REQUEST_TIMEOUT"`
}

var keys = []string{
	"PORT", "ENV", "DATABASE_URL", "DB_MAX_CONNS", "DB_MIN_CONNS", "DB_STATEMENT_TIMEOUT", "MIGRATIONS_DIR",
	"REDIS_URL", "APPOINTMENT_STORE", "APPOINTMENTS_FILE",
	"JWT_SIGNING_KEY", "JWT_ISSUER", "TOKEN_TTL",
	"SESSION_TTL", "SESSION_COOKIE", "STAGING_TTL",
	"ACCOUNT_BACKEND", "ACCOUNT_API_URL", "DAILYMED_URL", "LOW_STOCK_THRESHOLD",
	"CORS_ORIGINS", "RATE_LIMIT_RPS", "RATE_LIMIT_BURST", "REQUEST_TIMEOUT",
}

func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigFile(".env")
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("PORT", "8000")
	v.SetDefault("ENV", "development")
	v.SetDefault("DB_MAX_CONNS", 20)
	v.SetDefault("DB_MIN_CONNS", 2)
	v.SetDefault("DB_STATEMENT_TIMEOUT", "30s")
	v.SetDefault("MIGRATIONS_DIR", "./migrations")
	v.SetDefault("APPOINTMENT_STORE", StorePostgres)
	v.SetDefault("APPOINTMENTS_FILE", "appointments.json")
	v.SetDefault("JWT_ISSUER", "curenet")
	v.SetDefault("TOKEN_TTL", "24h")
	v.SetDefault("SESSION_TTL", "12h")
	v.SetDefault("SESSION_COOKIE", "curenet_session")
	v.SetDefault("STAGING_TTL", "30m")
	v.SetDefault("ACCOUNT_BACKEND", AccountLocal)
	v.SetDefault("DAILYMED_URL", "https://dailymed.nlm.nih.gov/dailymed/services/v2")
	v.SetDefault("LOW_STOCK_THRESHOLD", 10)
	v.SetDefault("CORS_ORIGINS", "http://localhost:3000")
	v.SetDefault("RATE_LIMIT_RPS", 50)
	v.SetDefault("RATE_LIMIT_BURST", 100)
	v.SetDefault("REQUEST_TIMEOUT", "30s")

	// Bind env vars explicitly so Unmarshal picks them up
	for _, k := range keys {
		_ = v.BindEnv(k)
	}

	// Try reading .env file, but don't fail if missing
	_ = v.ReadInConfig()

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if len(cfg.CORSOrigins) <= 1 {
		origins := v.GetString("CORS_ORIGINS")
		if origins != "" {
			cfg.CORSOrigins = strings.Split(origins, ",")
		}
	}
	for i := range cfg.CORSOrigins {
		cfg.CORSOrigins[i] = strings.TrimSpace(cfg.CORSOrigins[i])
	}

	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}

	if cfg.IsDev() && cfg.JWTSigningKey == "" {
		log.Println("WARNING: JWT_SIGNING_KEY is empty; using an insecure development key.")
		cfg.JWTSigningKey = "curenet-development-signing-key"
	}

	return cfg, nil
}

func (c *Config) IsDev() bool {
	return c.Env == "development"
}

// IsProduction returns true when the server is configured for production mode.
func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

// Validate checks that the configuration is safe to run.
func (c *Config) Validate() error {
	if c.DatabaseURL == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}
	if !c.IsDev() && len(c.JWTSigningKey) < 32 {
		return fmt.Errorf("JWT_SIGNING_KEY must be at least 32 characters outside development, got %d", len(c.JWTSigningKey))
	}

	switch c.AppointmentStore {
	case StorePostgres:
	case StoreFile:
		if c.AppointmentsFile == "" {
			return fmt.Errorf("APPOINTMENTS_FILE is required when APPOINTMENT_STORE is %q", StoreFile)
		}
	default:
		return fmt.Errorf("APPOINTMENT_STORE must be %q or %q, got %q", StorePostgres, StoreFile, c.AppointmentStore)
	}

	switch c.AccountBackend {
	case AccountLocal:
	case AccountRemote:
		if c.AccountAPIURL == "" {
			return fmt.Errorf("ACCOUNT_API_URL is required when ACCOUNT_BACKEND is %q", AccountRemote)
		}
	default:
		return fmt.Errorf("ACCOUNT_BACKEND must be %q or %q, got %q", AccountLocal, AccountRemote, c.AccountBackend)
	}

	if c.TokenTTL <= 0 || c.SessionTTL <= 0 || c.StagingTTL <= 0 {
		return fmt.Errorf("TOKEN_TTL, SESSION_TTL and STAGING_TTL must be positive")
	}
	return nil
}
