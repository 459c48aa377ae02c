// Package config provides application configuration loading and management.
package config

import (
	"errors"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Identity provider kinds accepted in IDP_KIND.
const (
	IdPSupabase = "supabase"
	IdPJWT      = "jwt"
	IdPOIDC     = "oidc"
)

// Schema modes accepted in DB_SCHEMA_MODE.
const (
	SchemaModeAuto = "auto"
	SchemaModeSQL  = "sql"
	SchemaModeNone = "none"
)

// Config holds application configuration values loaded from file or environment variables.
type Config struct {
	Env         string `mapstructure:"APP_ENV"`
	ServiceName string `mapstructure:"SERVICE_NAME"`
	Port        string `mapstructure:"PORT"`
	LogLevel    string `mapstructure:"LOG_LEVEL"`

	DatabaseURL              string `mapstructure:"DATABASE_URL"`
	DBMaxOpenConns           int    `mapstructure:"DB_MAX_OPEN_CONNS"`
	DBMaxIdleConns           int    `mapstructure:"DB_MAX_IDLE_CONNS"`
	DBConnMaxLifetimeMinutes int    `mapstructure:"DB_CONN_MAX_LIFETIME_MINUTES"`
	DBSchemaMode             string `mapstructure:"DB_SCHEMA_MODE"`

	RedisURL           string `mapstructure:"REDIS_URL"`
	AllowedOrigins     string `mapstructure:"ALLOWED_ORIGINS"`
	RateLimitPerMinute int    `mapstructure:"RATE_LIMIT_PER_MINUTE"`

	IdPKind                 string `mapstructure:"IDP_KIND"`
	SupabaseURL             string `mapstructure:"SUPABASE_URL"`
	SupabaseAnonKey         string `mapstructure:"SUPABASE_ANON_KEY"`
	SupabaseJWTSecret       string `mapstructure:"SUPABASE_JWT_SECRET"`
	OIDCIssuer              string `mapstructure:"OIDC_ISSUER"`
	OIDCClientID            string `mapstructure:"OIDC_CLIENT_ID"`
	IdPTimeoutSeconds       int    `mapstructure:"IDP_TIMEOUT_SECONDS"`
	IdentityCacheTTLSeconds int    `mapstructure:"IDENTITY_CACHE_TTL_SECONDS"`

	TracingEnabled     bool    `mapstructure:"TRACING_ENABLED"`
	TracingExporter    string  `mapstructure:"TRACING_EXPORTER"`
	OTLPEndpoint       string  `mapstructure:"OTLP_ENDPOINT"`
	TracingSampleRatio float64 `mapstructure:"TRACING_SAMPLE_RATIO"`
}

// LoadConfig loads application configuration from .env files, config.yml and
// environment variables, in increasing order of precedence.
func LoadConfig() (*Config, error) {
	if err := loadDotEnv(currentEnv()); err != nil {
		return nil, err
	}

	v := viper.New()
	v.AddConfigPath(".")
	v.AddConfigPath("..")
	v.AddConfigPath("../..")
	v.SetConfigName("config")
	v.SetConfigType("yml")
	v.AutomaticEnv()
	_ = v.BindEnv("APP_ENV", "APP_ENV", "ENVIRONMENT", "ENV")

	// The base file is optional.
	_ = v.ReadInConfig()

	env := v.GetString("APP_ENV")
	if env != "" && env != "development" {
		v.SetConfigName("config." + env)
		if err := v.MergeInConfig(); err == nil {
			log.Printf("Loaded profile-specific configuration: config.%s.yml", env)
		}
	}

	setDefaults(v)

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("unable to decode config into struct: %w", err)
	}
	config.IdPKind = strings.ToLower(strings.TrimSpace(config.IdPKind))
	config.DBSchemaMode = strings.ToLower(strings.TrimSpace(config.DBSchemaMode))

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("APP_ENV", "development")
	v.SetDefault("SERVICE_NAME", "vista-api")
	v.SetDefault("PORT", "8000")
	v.SetDefault("LOG_LEVEL", "")
	v.SetDefault("DATABASE_URL", "")
	v.SetDefault("DB_MAX_OPEN_CONNS", 25)
	v.SetDefault("DB_MAX_IDLE_CONNS", 5)
	v.SetDefault("DB_CONN_MAX_LIFETIME_MINUTES", 5)
	v.SetDefault("DB_SCHEMA_MODE", "")
	v.SetDefault("REDIS_URL", "")
	v.SetDefault("ALLOWED_ORIGINS", "http://localhost:5173,http://localhost:3000")
	v.SetDefault("RATE_LIMIT_PER_MINUTE", 120)
	v.SetDefault("IDP_KIND", IdPSupabase)
	v.SetDefault("SUPABASE_URL", "")
	v.SetDefault("SUPABASE_ANON_KEY", "")
	v.SetDefault("SUPABASE_JWT_SECRET", "")
	v.SetDefault("OIDC_ISSUER", "")
	v.SetDefault("OIDC_CLIENT_ID", "")
	v.SetDefault("IDP_TIMEOUT_SECONDS", 10)
	v.SetDefault("IDENTITY_CACHE_TTL_SECONDS", 0)
	v.SetDefault("TRACING_ENABLED", false)
	v.SetDefault("TRACING_EXPORTER", "stdout")
	v.SetDefault("OTLP_ENDPOINT", "localhost:4318")
	v.SetDefault("TRACING_SAMPLE_RATIO", 1.0)
}

// currentEnv reads the environment name before any file has been loaded.
func currentEnv() string {
	for _, key := range []string{"APP_ENV", "ENVIRONMENT", "ENV"} {
		if v := strings.TrimSpace(os.Getenv(key)); v != "" {
			return v
		}
	}
	return ""
}

// loadDotEnv loads .env.<env> and then .env into the process environment.
// Variables already set are never overwritten, so the profile file wins over
// the base file and the real environment wins over both.
func loadDotEnv(env string) error {
	files := []string{".env"}
	if env != "" && env != "development" {
		files = append([]string{".env." + env}, files...)
	}
	for _, f := range files {
		if _, err := os.Stat(f); err != nil {
			continue
		}
		if err := godotenv.Load(f); err != nil {
			return fmt.Errorf("load %s: %w", f, err)
		}
	}
	return nil
}

// IsProduction reports whether the service runs with production settings.
func (c *Config) IsProduction() bool {
	return c.Env == "production" || c.Env == "prod"
}

// IsDeployed reports whether the service runs in a shared environment where
// logs are machine-read.
func (c *Config) IsDeployed() bool {
	return c.IsProduction() || c.Env == "staging"
}

// SchemaMode returns the effective schema mode.
func (c *Config) SchemaMode() string {
	if c.DBSchemaMode != "" {
		return c.DBSchemaMode
	}
	if c.IsProduction() {
		return SchemaModeSQL
	}
	return SchemaModeAuto
}

// IdPTimeout returns the identity provider request timeout.
func (c *Config) IdPTimeout() time.Duration {
	return time.Duration(c.IdPTimeoutSeconds) * time.Second
}

// IdentityCacheTTL returns how long verified profiles may be cached.
func (c *Config) IdentityCacheTTL() time.Duration {
	return time.Duration(c.IdentityCacheTTLSeconds) * time.Second
}

// Validate ensures that required configuration values are present and meet security standards.
func (c *Config) Validate() error {
	if c.Port == "" {
		return errors.New("PORT is required")
	}
	if c.DatabaseURL == "" {
		return errors.New("DATABASE_URL is required")
	}
	if c.DBConnMaxLifetimeMinutes < 0 {
		return errors.New("DB_CONN_MAX_LIFETIME_MINUTES must not be negative")
	}
	switch c.DBSchemaMode {
	case "", SchemaModeAuto, SchemaModeSQL, SchemaModeNone:
	default:
		return fmt.Errorf("unknown DB_SCHEMA_MODE %q", c.DBSchemaMode)
	}
	if c.IdentityCacheTTLSeconds < 0 {
		return errors.New("IDENTITY_CACHE_TTL_SECONDS must not be negative")
	}

	switch c.IdPKind {
	case IdPSupabase:
		if c.SupabaseURL == "" || c.SupabaseAnonKey == "" {
			return errors.New("SUPABASE_URL and SUPABASE_ANON_KEY are required for the supabase identity provider")
		}
	case IdPJWT:
		if c.SupabaseJWTSecret == "" {
			return errors.New("SUPABASE_JWT_SECRET is required for the jwt identity provider")
		}
	case IdPOIDC:
		if c.OIDCIssuer == "" || c.OIDCClientID == "" {
			return errors.New("OIDC_ISSUER and OIDC_CLIENT_ID are required for the oidc identity provider")
		}
	default:
		return fmt.Errorf("unknown IDP_KIND %q", c.IdPKind)
	}

	if c.IsProduction() {
		if c.AllowedOrigins == "*" {
			return errors.New("ALLOWED_ORIGINS must not be '*' in production")
		}
		if c.IdPKind == IdPJWT && len(c.SupabaseJWTSecret) < 32 {
			return errors.New("SUPABASE_JWT_SECRET must be at least 32 characters in production")
		}
	} else if c.RedisURL == "" {
		log.Println("WARNING: REDIS_URL is empty; rate limiting falls back to in-process limiters.")
	}

	return nil
}
