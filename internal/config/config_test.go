package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validConfig() *Config {
	return &Config{
		Env:                      "development",
		Port:                     "8000",
		DatabaseURL:              "sqlite://vista.db",
		DBConnMaxLifetimeMinutes: 5,
		RedisURL:                 "redis://localhost:6379",
		AllowedOrigins:           "http://localhost:5173",
		IdPKind:                  IdPSupabase,
		SupabaseURL:              "https://project.supabase.co",
		SupabaseAnonKey:          "anon",
	}
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name        string
		mutate      func(c *Config)
		expectError bool
	}{
		{"Valid supabase config", func(*Config) {}, false},
		{"Missing database url", func(c *Config) { c.DatabaseURL = "" }, true},
		{"Missing port", func(c *Config) { c.Port = "" }, true},
		{"Unknown schema mode", func(c *Config) { c.DBSchemaMode = "magic" }, true},
		{"Unknown identity provider", func(c *Config) { c.IdPKind = "ldap" }, true},
		{"Supabase without anon key", func(c *Config) { c.SupabaseAnonKey = "" }, true},
		{"JWT without secret", func(c *Config) { c.IdPKind = IdPJWT }, true},
		{"JWT with short secret outside production", func(c *Config) {
			c.IdPKind = IdPJWT
			c.SupabaseJWTSecret = "short"
		}, false},
		{"JWT with short secret in production", func(c *Config) {
			c.Env = "production"
			c.IdPKind = IdPJWT
			c.SupabaseJWTSecret = "short"
		}, true},
		{"OIDC without client id", func(c *Config) {
			c.IdPKind = IdPOIDC
			c.OIDCIssuer = "https://issuer.example.com"
		}, true},
		{"Wildcard origins in production", func(c *Config) {
			c.Env = "production"
			c.AllowedOrigins = "*"
		}, true},
		{"Negative identity cache ttl", func(c *Config) { c.IdentityCacheTTLSeconds = -1 }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := validConfig()
			tt.mutate(c)

			err := c.Validate()
			if tt.expectError {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestConfig_SchemaMode(t *testing.T) {
	c := validConfig()
	assert.Equal(t, SchemaModeAuto, c.SchemaMode())

	c.Env = "production"
	assert.Equal(t, SchemaModeSQL, c.SchemaMode())

	c.DBSchemaMode = SchemaModeNone
	assert.Equal(t, SchemaModeNone, c.SchemaMode())
}

func TestLoadConfig_FromEnvironment(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("APP_ENV", "test")
	t.Setenv("DATABASE_URL", "sqlite://:memory:")
	t.Setenv("IDP_KIND", "JWT")
	t.Setenv("SUPABASE_JWT_SECRET", "a-test-secret")
	t.Setenv("IDENTITY_CACHE_TTL_SECONDS", "30")

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, "test", cfg.Env)
	assert.Equal(t, "8000", cfg.Port)
	assert.Equal(t, IdPJWT, cfg.IdPKind)
	assert.Equal(t, 25, cfg.DBMaxOpenConns)
	assert.Equal(t, 30*time.Second, cfg.IdentityCacheTTL())
	assert.Equal(t, 10*time.Second, cfg.IdPTimeout())
	assert.Equal(t, "vista-api", cfg.ServiceName)
}

func TestLoadConfig_EnvironmentAlias(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("APP_ENV", "")
	os.Unsetenv("APP_ENV")
	t.Setenv("ENVIRONMENT", "staging")
	t.Setenv("DATABASE_URL", "postgres://localhost/vista")
	t.Setenv("SUPABASE_URL", "https://project.supabase.co")
	t.Setenv("SUPABASE_ANON_KEY", "anon")

	cfg, err := LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, "staging", cfg.Env)
	assert.True(t, cfg.IsDeployed())
	assert.False(t, cfg.IsProduction())
}

func TestLoadDotEnv_ProfileWinsOverBase(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)

	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte("VISTA_DOTENV_A=base\nVISTA_DOTENV_B=base\n"), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env.staging"), []byte("VISTA_DOTENV_A=staging\n"), 0o600))
	t.Cleanup(func() {
		os.Unsetenv("VISTA_DOTENV_A")
		os.Unsetenv("VISTA_DOTENV_B")
	})

	require.NoError(t, loadDotEnv("staging"))
	assert.Equal(t, "staging", os.Getenv("VISTA_DOTENV_A"))
	assert.Equal(t, "base", os.Getenv("VISTA_DOTENV_B"))
}

func TestLoadDotEnv_MissingFilesAreIgnored(t *testing.T) {
	t.Chdir(t.TempDir())
	assert.NoError(t, loadDotEnv("production"))
}
