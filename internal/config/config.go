// Package config loads server configuration from the environment and an
// optional config file using Viper.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"orgadmin/internal/core/security"
)

// Environment names a deployment tier.
type Environment string

const (
	EnvLocal       Environment = "local"
	EnvDevelopment Environment = "development"
	EnvTest        Environment = "test"
	EnvStaging     Environment = "staging"
	EnvProduction  Environment = "production"
)

// Valid reports whether e is a known environment.
func (e Environment) Valid() bool {
	switch e {
	case EnvLocal, EnvDevelopment, EnvTest, EnvStaging, EnvProduction:
		return true
	}
	return false
}

// Config holds the application configuration.
type Config struct {
	App            AppConfig            `mapstructure:"app"`
	Log            LogConfig            `mapstructure:"log"`
	Database       DatabaseConfig       `mapstructure:"database"`
	Auth           AuthConfig           `mapstructure:"auth"`
	OrgHint        OrgHintConfig        `mapstructure:"org_hint"`
	TestAuthBypass TestAuthBypassConfig `mapstructure:"test_auth_bypass"`
}

// AppConfig holds process-level settings.
type AppConfig struct {
	Env  Environment `mapstructure:"env"`
	Port string      `mapstructure:"port"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// DatabaseConfig holds connection pool settings.
type DatabaseConfig struct {
	URL              string        `mapstructure:"url"`
	MaxConns         int32         `mapstructure:"max_conns"`
	MinConns         int32         `mapstructure:"min_conns"`
	AcquireTimeout   time.Duration `mapstructure:"acquire_timeout"`
	StatementTimeout time.Duration `mapstructure:"statement_timeout"`
}

// AuthConfig holds provider token verification settings.
type AuthConfig struct {
	JWTSecret    string        `mapstructure:"jwt_secret"`
	JWTPublicKey string        `mapstructure:"jwt_public_key"`
	Issuer       string        `mapstructure:"issuer"`
	Audience     string        `mapstructure:"audience"`
	MFAWindow    time.Duration `mapstructure:"mfa_window"`
}

// OrgHintConfig holds organization hint cookie settings.
type OrgHintConfig struct {
	Secret  string `mapstructure:"secret"`
	Persist bool   `mapstructure:"persist"`
}

// TestAuthBypassConfig holds the header identity override settings.
type TestAuthBypassConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Secret  string `mapstructure:"secret"`
}

// IsProduction reports whether the query-parameter hint must be ignored.
func (c *Config) IsProduction() bool { return c.App.Env == EnvProduction }

// IsLocal reports whether the process runs on a developer machine.
func (c *Config) IsLocal() bool { return c.App.Env == EnvLocal }

// Load reads configuration from configPath (optional) and the environment.
// Environment variables use the upper-cased key with dots replaced by
// underscores, e.g. DATABASE_URL for database.url.
func Load(configPath string) (*Config, error) {
	v := viper.New()

	setDefaults(v)

	if configPath != "" {
		v.SetConfigFile(configPath)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", configPath, err)
		}
	}

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	cfg.App.Env = Environment(strings.ToLower(string(cfg.App.Env)))

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// setDefaults configures default values. Every key needs a default so
// AutomaticEnv can bind it during Unmarshal.
func setDefaults(v *viper.Viper) {
	v.SetDefault("app.env", string(EnvDevelopment))
	v.SetDefault("app.port", "8080")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "")

	v.SetDefault("database.url", "")
	v.SetDefault("database.max_conns", 25)
	v.SetDefault("database.min_conns", 2)
	v.SetDefault("database.acquire_timeout", 5*time.Second)
	v.SetDefault("database.statement_timeout", 30*time.Second)

	v.SetDefault("auth.jwt_secret", "")
	v.SetDefault("auth.jwt_public_key", "")
	v.SetDefault("auth.issuer", "")
	v.SetDefault("auth.audience", "")
	v.SetDefault("auth.mfa_window", security.DefaultMFAWindow)

	v.SetDefault("org_hint.secret", "")
	v.SetDefault("org_hint.persist", true)

	v.SetDefault("test_auth_bypass.enabled", false)
	v.SetDefault("test_auth_bypass.secret", "")
}

// Validate reports every configuration problem at once.
func (c *Config) Validate() error {
	var errs []error

	if !c.App.Env.Valid() {
		errs = append(errs, fmt.Errorf("APP_ENV %q is not one of local, development, test, staging, production", c.App.Env))
	}
	if c.Database.URL == "" {
		errs = append(errs, errors.New("DATABASE_URL is required"))
	}
	if c.Database.MaxConns <= 0 {
		errs = append(errs, errors.New("DATABASE_MAX_CONNS must be positive"))
	}
	if c.Database.MinConns < 0 || c.Database.MinConns > c.Database.MaxConns {
		errs = append(errs, errors.New("DATABASE_MIN_CONNS must be between 0 and DATABASE_MAX_CONNS"))
	}
	if c.Auth.JWTSecret == "" && c.Auth.JWTPublicKey == "" {
		errs = append(errs, errors.New("one of AUTH_JWT_SECRET or AUTH_JWT_PUBLIC_KEY is required"))
	}
	if c.OrgHint.Secret == "" && !c.IsLocal() {
		errs = append(errs, errors.New("ORG_HINT_SECRET is required outside local"))
	}
	if c.TestAuthBypass.Enabled && !c.IsLocal() && c.TestAuthBypass.Secret == "" {
		errs = append(errs, errors.New("TEST_AUTH_BYPASS_SECRET is required when the bypass is enabled outside local"))
	}

	return errors.Join(errs...)
}
