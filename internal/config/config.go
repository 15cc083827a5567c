package config

import (
	"time"
)

// Config is the typed view of the layered configuration: defaults, an
// optional YAML file, a .env file, ADSMIRROR_* environment variables and
// flags, in increasing precedence.
type Config struct {
	Server  ServerConfig  `mapstructure:"server" yaml:"server"`
	Store   StoreConfig   `mapstructure:"store" yaml:"store"`
	Graph   GraphConfig   `mapstructure:"graph" yaml:"graph"`
	Auth    AuthConfig    `mapstructure:"auth" yaml:"auth"`
	Logging LoggingConfig `mapstructure:"logging" yaml:"logging"`
	Metrics MetricsConfig `mapstructure:"metrics" yaml:"metrics"`
	Health  HealthConfig  `mapstructure:"health" yaml:"health"`
	Debug   DebugConfig   `mapstructure:"debug" yaml:"debug"`
}

// ServerConfig contains HTTP server configuration.
//
// WriteTimeout must cover the longest rate-limit wait a mutation may sit
// through, so its default is far above a typical API server's.
type ServerConfig struct {
	Host            string        `mapstructure:"host" yaml:"host"`
	Port            int           `mapstructure:"port" yaml:"port"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout" yaml:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout" yaml:"write_timeout"`
	IdleTimeout     time.Duration `mapstructure:"idle_timeout" yaml:"idle_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout" yaml:"shutdown_timeout"`
	CORSOrigins     []string      `mapstructure:"cors_origins" yaml:"cors_origins"`
	AdminToken      string        `mapstructure:"admin_token" yaml:"admin_token"`
}

// StoreConfig contains database configuration for libsql/Turso
type StoreConfig struct {
	Driver    string `mapstructure:"driver" yaml:"driver"`
	Path      string `mapstructure:"path" yaml:"path"`
	URL       string `mapstructure:"url" yaml:"url"`
	AuthToken string `mapstructure:"auth_token" yaml:"auth_token"`
}

// GraphConfig addresses the Marketing API and tunes the gateway's retry loop.
type GraphConfig struct {
	AccessToken  string        `mapstructure:"access_token" yaml:"access_token"`
	AdAccountID  string        `mapstructure:"ad_account_id" yaml:"ad_account_id"`
	PageID       string        `mapstructure:"page_id" yaml:"page_id"`
	APIVersion   string        `mapstructure:"api_version" yaml:"api_version"`
	BaseURL      string        `mapstructure:"base_url" yaml:"base_url"`
	MaxRetries   int           `mapstructure:"max_retries" yaml:"max_retries"`
	BaseWaitTime time.Duration `mapstructure:"base_wait_time" yaml:"base_wait_time"`
	Timeout      time.Duration `mapstructure:"timeout" yaml:"timeout"`
}

// AuthConfig controls API token signing.
type AuthConfig struct {
	JWTSecret string        `mapstructure:"jwt_secret" yaml:"jwt_secret"`
	TokenTTL  time.Duration `mapstructure:"token_ttl" yaml:"token_ttl"`
	Issuer    string        `mapstructure:"issuer" yaml:"issuer"`
}

// LoggingConfig contains logging configuration.
type LoggingConfig struct {
	// Level is one of trace, debug, info, warn, error.
	Level string `mapstructure:"level" yaml:"level"`

	// Format is json or console for the server logger.
	Format string `mapstructure:"format" yaml:"format"`

	// Environment is attached to every structured record.
	Environment string `mapstructure:"environment" yaml:"environment"`
}

// MetricsConfig contains Prometheus metrics configuration
type MetricsConfig struct {
	Enabled bool `mapstructure:"enabled" yaml:"enabled"`

	// Port is the exporter's own port; /metrics on the API port proxies it.
	Port int `mapstructure:"port" yaml:"port"`

	// Namespace prefixes metric names; empty uses the binary name.
	Namespace string `mapstructure:"namespace" yaml:"namespace"`
}

// HealthConfig contains health check configuration
type HealthConfig struct {
	Enabled bool `mapstructure:"enabled" yaml:"enabled"`
}

// DebugConfig contains debug and profiling configuration
type DebugConfig struct {
	Enabled bool `mapstructure:"enabled" yaml:"enabled"`

	// PprofEnabled mounts net/http/pprof under /debug. Development only.
	PprofEnabled bool `mapstructure:"pprof_enabled" yaml:"pprof_enabled"`
}
