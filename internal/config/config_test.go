package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sakif/toolhub/internal/apperror"
	"github.com/sakif/toolhub/internal/auth"
)

// isolate points ENV_FILE at a path that does not exist so a developer's
// local .env never leaks into the test.
func isolate(t *testing.T) {
	t.Helper()
	t.Setenv("ENV_FILE", filepath.Join(t.TempDir(), "missing.env"))
}

func TestLoad_Defaults(t *testing.T) {
	isolate(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 8000, cfg.Port)
	assert.Equal(t, DriverSQLite, cfg.DB.Driver)
	assert.Equal(t, "toolhub_schema", cfg.DB.Schema)
	assert.Equal(t, "https://accounts.google.com", cfg.OAuth.Issuer)
	assert.Equal(t, "http://localhost:8080", cfg.CORSOrigin)
	assert.Equal(t, "gpt-3.5-turbo", cfg.LLM.Model)
	assert.Equal(t, "text-embedding-3-small", cfg.LLM.EmbeddingModel)
	assert.Equal(t, 14*24*time.Hour, cfg.Session.TTL)
	assert.False(t, cfg.OAuth.Configured())
}

func TestLoad_EnvironmentOverrides(t *testing.T) {
	isolate(t)
	t.Setenv("PORT", "9090")
	t.Setenv("DB_DRIVER", "Postgres")
	t.Setenv("DATABASE_URL", "postgres://u:p@localhost/db")
	t.Setenv("GOOGLE_CLIENT_ID", "id")
	t.Setenv("GOOGLE_CLIENT_SECRET", "secret")
	t.Setenv("SESSION_TTL", "1h")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Port)
	assert.Equal(t, DriverPostgres, cfg.DB.Driver)
	assert.Equal(t, "postgres://u:p@localhost/db", cfg.DB.URL)
	assert.True(t, cfg.OAuth.Configured())
	assert.Equal(t, time.Hour, cfg.Session.TTL)
}

func TestLoad_DotenvFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.env")
	require.NoError(t, os.WriteFile(path, []byte("FRONTEND_URL=http://app.local/\n"), 0o600))
	t.Setenv("ENV_FILE", path)
	// godotenv sets real process env vars; make sure t.Setenv restores it.
	t.Setenv("FRONTEND_URL", "")
	os.Unsetenv("FRONTEND_URL")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "http://app.local/", cfg.FrontendURL)
}

func TestValidateServer(t *testing.T) {
	base := func() Config {
		return Config{
			Port:    8000,
			DB:      DBConfig{Driver: DriverSQLite, Path: ":memory:"},
			Session: SessionConfig{Secret: "0123456789abcdef", TTL: time.Hour},
		}
	}

	tests := []struct {
		name      string
		mutate    func(c *Config)
		wantField string
	}{
		{name: "valid", mutate: func(c *Config) {}},
		{name: "missing secret", mutate: func(c *Config) { c.Session.Secret = "" }, wantField: "SESSION_SECRET_KEY"},
		{name: "short secret", mutate: func(c *Config) { c.Session.Secret = "short" }, wantField: "SESSION_SECRET_KEY"},
		{name: "secret at token minimum", mutate: func(c *Config) { c.Session.Secret = strings.Repeat("k", auth.MinSecretLength) }},
		{name: "secret one below token minimum", mutate: func(c *Config) { c.Session.Secret = strings.Repeat("k", auth.MinSecretLength-1) }, wantField: "SESSION_SECRET_KEY"},
		{name: "unknown driver", mutate: func(c *Config) { c.DB.Driver = "mysql" }, wantField: "DB_DRIVER"},
		{name: "postgres without url", mutate: func(c *Config) { c.DB.Driver = DriverPostgres }, wantField: "DATABASE_URL"},
		{name: "bad port", mutate: func(c *Config) { c.Port = 0 }, wantField: "PORT"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := base()
			tt.mutate(&cfg)

			err := cfg.ValidateServer()
			if tt.wantField == "" {
				assert.NoError(t, err)
				return
			}
			require.ErrorIs(t, err, apperror.ErrConfig)
			var appErr *apperror.AppError
			require.ErrorAs(t, err, &appErr)
			assert.Equal(t, tt.wantField, appErr.Field)
		})
	}
}

func TestValidate_BatchDoesNotNeedSecret(t *testing.T) {
	cfg := Config{DB: DBConfig{Driver: DriverSQLite, Path: ":memory:"}}
	assert.NoError(t, cfg.Validate())
}
