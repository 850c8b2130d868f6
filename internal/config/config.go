package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const (
	StoreMemory   = "memory"
	StorePostgres = "postgres"

	AuthDevelopment = "development"
	AuthJWT         = "jwt"

	ConsentLatest   = "latest"
	ConsentEarliest = "earliest"
)

type Config struct {
	Port                string        `mapstructure:"PORT"`
	Env                 string        `mapstructure:"ENV"`
	AuthMode            string        `mapstructure:"AUTH_MODE"`
	Store               string        `mapstructure:"STORE"`
	DatabaseURL         string        `mapstructure:"DATABASE_URL"`
	DBMaxConns          int32         `mapstructure:"DB_MAX_CONNS"`
	DBMinConns          int32         `mapstructure:"DB_MIN_CONNS"`
	DefaultSite         string        `mapstructure:"DEFAULT_SITE"`
	MigrationsDir       string        `mapstructure:"MIGRATIONS_DIR"`
	RecordTypesFile     string        `mapstructure:"RECORD_TYPES_FILE"`
	AuthIssuer          string        `mapstructure:"AUTH_ISSUER"`
	AuthAudience        string        `mapstructure:"AUTH_AUDIENCE"`
	AuthJWKSURL         string        `mapstructure:"AUTH_JWKS_URL"`
	AuthSigningKey      string        `mapstructure:"AUTH_SIGNING_KEY"`
	LogLevel            string        `mapstructure:"LOG_LEVEL"`
	BodyLimit           string        `mapstructure:"BODY_LIMIT"`
	RequestTimeout      time.Duration `mapstructure:"REQUEST_TIMEOUT"`
	ValidateConcurrency int           `mapstructure:"VALIDATE_CONCURRENCY"`
	ConsentOrder        string        `mapstructure:"CONSENT_ORDER"`
}

var keys = []string{
	"PORT", "ENV", "AUTH_MODE", "STORE", "DATABASE_URL", "DB_MAX_CONNS", "DB_MIN_CONNS",
	"DEFAULT_SITE", "MIGRATIONS_DIR", "RECORD_TYPES_FILE", "AUTH_ISSUER", "AUTH_AUDIENCE",
	"AUTH_JWKS_URL", "AUTH_SIGNING_KEY", "LOG_LEVEL", "BODY_LIMIT", "REQUEST_TIMEOUT",
	"VALIDATE_CONCURRENCY", "CONSENT_ORDER",
}

// Load reads the environment and an optional .env file. It does not
// validate; callers run Validate once flags have been applied.
func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigFile(".env")
	v.SetConfigType("env")
	v.AutomaticEnv()

	v.SetDefault("PORT", "8000")
	v.SetDefault("ENV", "development")
	v.SetDefault("AUTH_MODE", "") // "" -> inferred from ENV
	v.SetDefault("STORE", StoreMemory)
	v.SetDefault("DB_MAX_CONNS", 20)
	v.SetDefault("DB_MIN_CONNS", 2)
	v.SetDefault("DEFAULT_SITE", "default")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("BODY_LIMIT", "1M")
	v.SetDefault("REQUEST_TIMEOUT", "30s")
	v.SetDefault("VALIDATE_CONCURRENCY", 8)
	v.SetDefault("CONSENT_ORDER", ConsentLatest)

	for _, k := range keys {
		_ = v.BindEnv(k)
	}

	// .env is optional.
	_ = v.ReadInConfig()

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	cfg.Store = strings.ToLower(cfg.Store)
	cfg.ConsentOrder = strings.ToLower(cfg.ConsentOrder)
	return cfg, nil
}

func (c *Config) IsDev() bool {
	return c.Env == "development"
}

func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

// ResolvedAuthMode returns AUTH_MODE when set, "development" in a
// development environment and "jwt" otherwise.
func (c *Config) ResolvedAuthMode() string {
	if c.AuthMode != "" {
		return c.AuthMode
	}
	if c.IsDev() {
		return AuthDevelopment
	}
	return AuthJWT
}

// Validate checks that the configuration is safe to run.
func (c *Config) Validate() error {
	switch c.Store {
	case StoreMemory:
	case StorePostgres:
		if c.DatabaseURL == "" {
			return fmt.Errorf("DATABASE_URL is required when STORE is %q", StorePostgres)
		}
		if c.DBMinConns > c.DBMaxConns {
			return fmt.Errorf("DB_MIN_CONNS (%d) exceeds DB_MAX_CONNS (%d)", c.DBMinConns, c.DBMaxConns)
		}
	default:
		return fmt.Errorf("STORE must be %q or %q, got %q", StoreMemory, StorePostgres, c.Store)
	}

	switch mode := c.ResolvedAuthMode(); mode {
	case AuthDevelopment:
		if c.IsProduction() {
			return fmt.Errorf("AUTH_MODE %q is not allowed in production", AuthDevelopment)
		}
	case AuthJWT:
		if c.AuthSigningKey == "" && c.AuthJWKSURL == "" {
			return fmt.Errorf("AUTH_SIGNING_KEY or AUTH_JWKS_URL must be set when AUTH_MODE is %q", AuthJWT)
		}
	default:
		return fmt.Errorf("AUTH_MODE must be %q or %q, got %q", AuthDevelopment, AuthJWT, mode)
	}

	if c.ValidateConcurrency < 1 {
		return fmt.Errorf("VALIDATE_CONCURRENCY must be positive, got %d", c.ValidateConcurrency)
	}
	if c.RequestTimeout <= 0 {
		return fmt.Errorf("REQUEST_TIMEOUT must be positive, got %s", c.RequestTimeout)
	}
	switch c.ConsentOrder {
	case "", ConsentLatest, ConsentEarliest:
	default:
		return fmt.Errorf("CONSENT_ORDER must be %q or %q, got %q", ConsentLatest, ConsentEarliest, c.ConsentOrder)
	}
	return nil
}

// RecordTables reads the record type to table mapping from
// RECORD_TYPES_FILE. The file holds a "record_types" map; an unset path
// yields nil and the built-in mapping applies.
func (c *Config) RecordTables() (map[string]string, error) {
	if c.RecordTypesFile == "" {
		return nil, nil
	}
	v := viper.New()
	v.SetConfigFile(c.RecordTypesFile)
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("read record types: %w", err)
	}
	tables := v.GetStringMapString("record_types")
	if len(tables) == 0 {
		return nil, fmt.Errorf("record types file %s has no record_types entries", c.RecordTypesFile)
	}
	for t, table := range tables {
		if table == "" {
			return nil, fmt.Errorf("record type %s has an empty table", t)
		}
	}
	return tables, nil
}
