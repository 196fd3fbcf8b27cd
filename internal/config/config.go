// Package config loads runtime settings from the environment.
//
// Values come from three places, highest priority first:
//  1. real environment variables
//  2. a dotenv file (ENV_FILE, default ".env"), loaded with godotenv
//  3. defaults registered on the viper instance below
//
// godotenv never overwrites a variable that is already set, so exporting a
// value in the shell always wins over the file.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/sakif/toolhub/internal/apperror"
	"github.com/sakif/toolhub/internal/auth"
)

const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// Config is the fully resolved application configuration.
type Config struct {
	Port        int
	FrontendURL string // where the browser lands after a successful login
	CORSOrigin  string // the single origin allowed to call the API with credentials

	DB      DBConfig
	Session SessionConfig
	OAuth   OAuthConfig
	LLM     LLMConfig
	Sources SourceConfig
	Log     LogConfig
}

type DBConfig struct {
	Driver       string
	Path         string // sqlite file, or ":memory:"
	URL          string // postgres DSN
	Schema       string // postgres namespace holding the tables
	MaxOpenConns int
	MaxIdleConns int
}

type SessionConfig struct {
	Secret string
	TTL    time.Duration
	Secure bool
}

type OAuthConfig struct {
	ClientID     string
	ClientSecret string
	RedirectURL  string // empty means "derive from the incoming request"
	Issuer       string
}

// Configured reports whether client credentials are present.
func (o OAuthConfig) Configured() bool {
	return o.ClientID != "" && o.ClientSecret != ""
}

type LLMConfig struct {
	APIKey         string
	BaseURL        string
	Model          string // chat model for descriptions
	EmbeddingModel string // embedding model for ai_search
}

type SourceConfig struct {
	PublicAPIsURL string // JSON directory used by the fetch job
	ReadmeURL     string // markdown table used by the scrape job
}

type LogConfig struct {
	Level  string
	Format string // "json" or "console"
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("port", 8000)
	v.SetDefault("frontend_url", "http://localhost:8080/")
	v.SetDefault("cors_origin", "http://localhost:8080")

	v.SetDefault("db_driver", DriverSQLite)
	v.SetDefault("db_path", "data/toolhub.db")
	v.SetDefault("database_url", "")
	v.SetDefault("db_schema", "toolhub_schema")
	v.SetDefault("db_max_open_conns", 16)
	v.SetDefault("db_max_idle_conns", 8)

	v.SetDefault("session_secret_key", "")
	v.SetDefault("session_ttl", 14*24*time.Hour)
	v.SetDefault("secure_cookies", false)

	v.SetDefault("google_client_id", "")
	v.SetDefault("google_client_secret", "")
	v.SetDefault("google_redirect_uri", "")
	v.SetDefault("oidc_issuer", "https://accounts.google.com")

	v.SetDefault("openai_api_key", "")
	v.SetDefault("openai_base_url", "")
	v.SetDefault("openai_model", "gpt-3.5-turbo")
	v.SetDefault("openai_embedding_model", "text-embedding-3-small")

	v.SetDefault("public_apis_url", "https://api.publicapis.org/entries")
	v.SetDefault("public_apis_readme_url", "https://raw.githubusercontent.com/public-apis/public-apis/master/README.md")

	v.SetDefault("log_level", "info")
	v.SetDefault("log_format", "json")
}

// Load reads the dotenv file (if any) and the environment.
// A missing dotenv file is not an error.
func Load() (Config, error) {
	v := viper.New()
	v.AutomaticEnv()
	v.SetDefault("env_file", ".env")

	if err := godotenv.Load(v.GetString("env_file")); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, fmt.Errorf("config: loading %s: %w", v.GetString("env_file"), err)
	}

	setDefaults(v)

	cfg := Config{
		Port:        v.GetInt("port"),
		FrontendURL: v.GetString("frontend_url"),
		CORSOrigin:  v.GetString("cors_origin"),
		DB: DBConfig{
			Driver:       strings.ToLower(strings.TrimSpace(v.GetString("db_driver"))),
			Path:         v.GetString("db_path"),
			URL:          v.GetString("database_url"),
			Schema:       v.GetString("db_schema"),
			MaxOpenConns: v.GetInt("db_max_open_conns"),
			MaxIdleConns: v.GetInt("db_max_idle_conns"),
		},
		Session: SessionConfig{
			Secret: v.GetString("session_secret_key"),
			TTL:    v.GetDuration("session_ttl"),
			Secure: v.GetBool("secure_cookies"),
		},
		OAuth: OAuthConfig{
			ClientID:     v.GetString("google_client_id"),
			ClientSecret: v.GetString("google_client_secret"),
			RedirectURL:  v.GetString("google_redirect_uri"),
			Issuer:       v.GetString("oidc_issuer"),
		},
		LLM: LLMConfig{
			APIKey:         v.GetString("openai_api_key"),
			BaseURL:        v.GetString("openai_base_url"),
			Model:          v.GetString("openai_model"),
			EmbeddingModel: v.GetString("openai_embedding_model"),
		},
		Sources: SourceConfig{
			PublicAPIsURL: v.GetString("public_apis_url"),
			ReadmeURL:     v.GetString("public_apis_readme_url"),
		},
		Log: LogConfig{
			Level:  v.GetString("log_level"),
			Format: v.GetString("log_format"),
		},
	}

	return cfg, nil
}

// Validate checks the settings every entry point needs: the database.
func (c Config) Validate() error {
	switch c.DB.Driver {
	case DriverSQLite:
		if c.DB.Path == "" {
			return apperror.Config("DB_PATH", "DB_PATH is required for the sqlite driver")
		}
	case DriverPostgres:
		if c.DB.URL == "" {
			return apperror.Config("DATABASE_URL", "DATABASE_URL is required for the postgres driver")
		}
	default:
		return apperror.Config("DB_DRIVER", fmt.Sprintf("unsupported DB_DRIVER %q", c.DB.Driver))
	}
	return nil
}

// ValidateServer adds the checks only the HTTP server needs. The session
// secret signs every session cookie, so the server refuses to start without
// it. The length floor is the one auth.NewTokenService enforces.
func (c Config) ValidateServer() error {
	if err := c.Validate(); err != nil {
		return err
	}
	if c.Port <= 0 || c.Port > 65535 {
		return apperror.Config("PORT", fmt.Sprintf("invalid PORT %d", c.Port))
	}
	if c.Session.Secret == "" {
		return apperror.Config("SESSION_SECRET_KEY", "SESSION_SECRET_KEY is required")
	}
	if len(c.Session.Secret) < auth.MinSecretLength {
		return apperror.Config("SESSION_SECRET_KEY",
			fmt.Sprintf("SESSION_SECRET_KEY must be at least %d characters", auth.MinSecretLength))
	}
	if c.Session.TTL <= 0 {
		return apperror.Config("SESSION_TTL", "SESSION_TTL must be positive")
	}
	return nil
}
