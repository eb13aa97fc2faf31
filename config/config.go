// Package config defines the server configuration and how it is loaded.
package config

import (
	"context"
	"fmt"
	"strings"
)

// Config contains process configuration.
type Config struct {
	// Addr is the HTTP listen address, e.g. ":8080".
	Addr string `koanf:"addr"`

	// DBPath is the SQLite database file. ":memory:" keeps everything in RAM.
	DBPath string `koanf:"db_path"`

	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// CORSOrigins lists the browser origins allowed to call the API.
	// Empty means DefaultCORSOrigins.
	CORSOrigins []string `koanf:"cors_origins"`

	// RatesDefaultYear is the rate-table year used for years the table lacks.
	// Zero keeps the year the embedded table declares.
	RatesDefaultYear int `koanf:"rates_default_year"`

	// HomeCountryCode seeds the settings of crew members who stored none.
	HomeCountryCode string `koanf:"home_country_code"`

	// MetricsEnabled mounts GET /metrics.
	MetricsEnabled bool `koanf:"metrics_enabled"`
}

// DefaultCORSOrigins are the local frontend dev servers.
var DefaultCORSOrigins = []string{"http://localhost:3000", "http://localhost:5173"}

// New returns a Config with defaults. Context is accepted first for
// symmetry with Load and is currently unused.
func New(_ context.Context) *Config {
	return &Config{
		Addr:            ":8080",
		DBPath:          "./data/crewtax.db",
		LogLevel:        "info",
		HomeCountryCode: "DE",
		MetricsEnabled:  true,
	}
}

// AllowedOrigins returns CORSOrigins or the defaults.
func (c *Config) AllowedOrigins() []string {
	if len(c.CORSOrigins) == 0 {
		return DefaultCORSOrigins
	}
	return c.CORSOrigins
}

// Validate checks the loaded values.
func (c *Config) Validate() error {
	switch {
	case c.Addr == "":
		return fmt.Errorf("%w: addr must not be empty", ErrInvalidConfig)
	case c.DBPath == "":
		return fmt.Errorf("%w: db_path must not be empty", ErrInvalidConfig)
	case len(c.HomeCountryCode) != 2:
		return fmt.Errorf("%w: home_country_code %q is not an ISO country code", ErrInvalidConfig, c.HomeCountryCode)
	case c.RatesDefaultYear != 0 && (c.RatesDefaultYear < 2000 || c.RatesDefaultYear > 2100):
		return fmt.Errorf("%w: rates_default_year %d out of range", ErrInvalidConfig, c.RatesDefaultYear)
	}
	switch strings.ToLower(c.LogLevel) {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("%w: log_level %q", ErrInvalidConfig, c.LogLevel)
	}
	return nil
}
