// Package config provides centralized configuration management for creditclean.
// Settings come from built-in defaults, an optional YAML file and environment
// variables, in increasing order of precedence, and are validated on startup
// to fail fast on misconfiguration.
package config

import (
	"fmt"
	"net"
	"strconv"
	"strings"
	"time"
)

// Config holds all application configuration.
// Every setting can be overridden with a CREDITCLEAN_<SECTION>_<FIELD>
// environment variable, e.g. CREDITCLEAN_SERVER_PORT.
type Config struct {
	Input    InputConfig    `yaml:"input" envconfig:"INPUT"`
	Server   ServerConfig   `yaml:"server" envconfig:"SERVER"`
	Limits   LimitsConfig   `yaml:"limits" envconfig:"LIMITS"`
	Database DatabaseConfig `yaml:"database" envconfig:"DATABASE"`
	Logging  LoggingConfig  `yaml:"logging" envconfig:"LOGGING"`
	Security SecurityConfig `yaml:"security" envconfig:"SECURITY"`
}

// InputConfig holds source file settings.
type InputConfig struct {
	// Path is the file cleaned when no path is given (default: solicitudes_credito.csv)
	Path string `yaml:"path" split_words:"true" validate:"required"`

	// Delimiter is the single-character field separator (default: ;)
	Delimiter string `yaml:"delimiter" split_words:"true" validate:"len=1"`

	// Sheet is the worksheet read from xlsx sources (default: first sheet)
	Sheet string `yaml:"sheet" split_words:"true"`

	// MaxFileSize is the maximum accepted source size in bytes (default: 100MB)
	MaxFileSize int64 `yaml:"max_file_size" split_words:"true" validate:"gt=0"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	// Host is the interface to bind to (default: 0.0.0.0)
	Host string `yaml:"host" split_words:"true"`

	// Port is the port to listen on (default: 8080)
	Port int `yaml:"port" split_words:"true" validate:"min=1,max=65535"`

	// ReadTimeout is the maximum duration for reading a request (default: 15s)
	ReadTimeout time.Duration `yaml:"read_timeout" split_words:"true" validate:"gte=0"`

	// WriteTimeout is the maximum duration for writing a response (default: 60s)
	WriteTimeout time.Duration `yaml:"write_timeout" split_words:"true" validate:"gte=0"`

	// IdleTimeout is the keep-alive timeout (default: 60s)
	IdleTimeout time.Duration `yaml:"idle_timeout" split_words:"true" validate:"gte=0"`

	// ShutdownTimeout bounds graceful shutdown (default: 30s)
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" split_words:"true" validate:"gt=0"`

	// RequestTimeout is the middleware timeout per request (default: 60s)
	RequestTimeout time.Duration `yaml:"request_timeout" split_words:"true" validate:"gt=0"`

	// TrustedProxies lists CIDRs or IPs whose X-Real-IP and X-Forwarded-For
	// headers are believed. Comma-separated in the environment.
	TrustedProxies []string `yaml:"trusted_proxies" split_words:"true" validate:"dive,cidr|ip"`
}

// LimitsConfig bounds concurrent clean runs served over HTTP.
type LimitsConfig struct {
	// MaxConcurrent is the number of clean runs allowed at once (default: 4)
	MaxConcurrent int `yaml:"max_concurrent" split_words:"true" validate:"gt=0"`

	// MaxWait is how long a request waits for a run slot (default: 30s)
	MaxWait time.Duration `yaml:"max_wait" split_words:"true" validate:"gt=0"`
}

// DatabaseConfig holds the optional Postgres sink settings.
type DatabaseConfig struct {
	// URL is the PostgreSQL connection string. Empty disables the sink.
	// DATABASE_URL is read as a fallback.
	URL string `yaml:"url" split_words:"true"`

	// Table receives cleaned records (default: solicitudes_credito_limpias)
	Table string `yaml:"table" split_words:"true" validate:"required"`

	// MaxConns is the maximum number of pooled connections (default: 4)
	MaxConns int32 `yaml:"max_conns" split_words:"true" validate:"gt=0"`

	// MinConns is the minimum number of connections kept open (default: 0)
	MinConns int32 `yaml:"min_conns" split_words:"true" validate:"gte=0,ltefield=MaxConns"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	// Level is the minimum log level: debug, info, warn, error (default: info)
	Level string `yaml:"level" split_words:"true" validate:"oneof=debug info warn error"`

	// Format is the log format: text or json (default: text)
	Format string `yaml:"format" split_words:"true" validate:"oneof=text json"`
}

// SecurityConfig holds API access settings.
type SecurityConfig struct {
	// RequireAPIKey enables X-API-Key checks on /api routes (default: false)
	RequireAPIKey bool `yaml:"require_api_key" split_words:"true"`

	// APIKeys are the accepted keys. Comma-separated in the environment.
	APIKeys []string `yaml:"api_keys" split_words:"true" validate:"required_if=RequireAPIKey true,dive,required"`
}

// Default returns the configuration used when nothing is overridden.
func Default() *Config {
	return &Config{
		Input: InputConfig{
			Path:        "solicitudes_credito.csv",
			Delimiter:   ";",
			MaxFileSize: 100 << 20,
		},
		Server: ServerConfig{
			Host:            "0.0.0.0",
			Port:            8080,
			ReadTimeout:     15 * time.Second,
			WriteTimeout:    60 * time.Second,
			IdleTimeout:     60 * time.Second,
			ShutdownTimeout: 30 * time.Second,
			RequestTimeout:  60 * time.Second,
		},
		Limits: LimitsConfig{
			MaxConcurrent: 4,
			MaxWait:       30 * time.Second,
		},
		Database: DatabaseConfig{
			Table:    "solicitudes_credito_limpias",
			MaxConns: 4,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// DelimiterRune returns the configured field separator.
func (c *InputConfig) DelimiterRune() rune {
	for _, r := range c.Delimiter {
		return r
	}
	return ';'
}

// Addr returns the server listen address in host:port format.
func (c *ServerConfig) Addr() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}

// Enabled reports whether a database URL is configured.
func (c *DatabaseConfig) Enabled() bool {
	return c.URL != ""
}

// String returns a safe string representation of the config for logging.
// The database URL is masked.
func (c *Config) String() string {
	dbURL := "[unset]"
	if c.Database.URL != "" {
		dbURL = "[MASKED]"
	}

	var b strings.Builder
	b.WriteString("Config{")
	fmt.Fprintf(&b, "Input: {Path: %q, Delimiter: %q, MaxFileSize: %d}, ",
		c.Input.Path, c.Input.Delimiter, c.Input.MaxFileSize)
	fmt.Fprintf(&b, "Server: {Host: %q, Port: %d}, ", c.Server.Host, c.Server.Port)
	fmt.Fprintf(&b, "Limits: {MaxConcurrent: %d, MaxWait: %s}, ", c.Limits.MaxConcurrent, c.Limits.MaxWait)
	fmt.Fprintf(&b, "Database: {URL: %s, Table: %q}, ", dbURL, c.Database.Table)
	fmt.Fprintf(&b, "Logging: {Level: %q, Format: %q}, ", c.Logging.Level, c.Logging.Format)
	fmt.Fprintf(&b, "Security: {RequireAPIKey: %t, APIKeys: %d configured}", c.Security.RequireAPIKey, len(c.Security.APIKeys))
	b.WriteString("}")
	return b.String()
}
