// internal/common/config/config.go
package config

import "time"

// Config is the main application configuration struct.
type Config struct {
	App        AppConfig        `mapstructure:"app"`
	API        APIConfig        `mapstructure:"api"`
	TokenStore TokenStoreConfig `mapstructure:"token_store"`
	LeadCookie LeadCookieConfig `mapstructure:"lead_cookie"`
	Server     ServerConfig     `mapstructure:"server"`
	Logging    LoggingConfig    `mapstructure:"logging"`
	Metrics    MetricsConfig    `mapstructure:"metrics"`
}

// --- Core App Config ---
type AppConfig struct {
	Name        string `mapstructure:"name"`
	Version     string `mapstructure:"version"`
	Environment string `mapstructure:"environment"`
}

// APIConfig describes the remote lead-intake backend and how outbound
// calls to it are authorized. The endpoint lists are read once at startup
// and never change afterwards.
type APIConfig struct {
	BaseURL            string          `mapstructure:"base_url"`
	Timeout            int             `mapstructure:"timeout"` // milliseconds, 0 = transport default
	PublicEndpoints    []string        `mapstructure:"public_endpoints"`
	BasicAuthEndpoints []string        `mapstructure:"basic_auth_endpoints"`
	BasicAuth          BasicAuthConfig `mapstructure:"basic_auth"`
}

type BasicAuthConfig struct {
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
}

// TokenStoreConfig selects where the bearer token lives.
type TokenStoreConfig struct {
	Backend string      `mapstructure:"backend"` // "memory" or "redis"
	Key     string      `mapstructure:"key"`
	Redis   RedisConfig `mapstructure:"redis"`
}

type RedisConfig struct {
	Address  string `mapstructure:"address"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// LeadCookieConfig holds the cookie written after a successful submission.
type LeadCookieConfig struct {
	Name       string `mapstructure:"name"`
	Domain     string `mapstructure:"domain"`
	Path       string `mapstructure:"path"`
	ExpiryDays int    `mapstructure:"expiry_days"`
}

// Expiry returns the cookie lifetime.
func (c LeadCookieConfig) Expiry() time.Duration {
	return time.Duration(c.ExpiryDays) * 24 * time.Hour
}

type ServerConfig struct {
	Address      string `mapstructure:"address"`
	DashboardURL string `mapstructure:"dashboard_url"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
	Output string `mapstructure:"output"`
}

type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Path    string `mapstructure:"path"`
}
