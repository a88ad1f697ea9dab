// internal/common/config/loader.go
package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"salon-partner-intake/internal/common/errors"
)

const (
	DefaultBaseURL       = "https://eagle-backend-v2-staging.up.railway.app/api"
	DefaultBasicUsername = "admin"
	DefaultBasicPassword = "password"
	DefaultTokenKey      = "salon-token"
	DefaultCookieName    = "salon-lead-Id"
	DefaultCookieDomain  = ".eagleverse.tech"
	DefaultCookieDays    = 365
	DefaultDashboardURL  = "https://salon.eagleverse.tech"
)

// DefaultPublicEndpoints are reachable without any authorization header.
var DefaultPublicEndpoints = []string{"/auth/login", "/leads"}

// Load reads configs/config.yaml (and config.<env>.yaml) with env overrides.
// A missing config file is not an error; defaults cover every field.
func Load() (*Config, error) {
	loadEnvFile()

	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath("./configs")
	v.AddConfigPath("../../configs")
	v.AddConfigPath(".")

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	env := os.Getenv("APP_ENVIRONMENT")
	if env == "" {
		env = "development"
	}

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading base config: %w", err)
		}
	}

	v.SetConfigName(fmt.Sprintf("config.%s", env))
	_ = v.MergeInConfig() // ignore error if not found

	return finish(v)
}

// LoadFromFile loads configuration from a specific file path
func LoadFromFile(path string) (*Config, error) {
	loadEnvFile()

	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	return finish(v)
}

func finish(v *viper.Viper) (*Config, error) {
	expandEnvVars(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	overrideFromEnv(&cfg)
	applyDefaults(&cfg)

	if err := validateConfig(&cfg); err != nil {
		return nil, errors.NewConfigInvalidError(err)
	}
	return &cfg, nil
}

// Load .env from the working directory or the project root.
func loadEnvFile() {
	possiblePaths := []string{
		".env",
		"../.env",
		"../../.env",
	}
	if rootDir := findProjectRoot(); rootDir != "" {
		possiblePaths = append(possiblePaths, filepath.Join(rootDir, ".env"))
	}

	for _, path := range possiblePaths {
		if _, err := os.Stat(path); err == nil {
			if err := godotenv.Load(path); err == nil {
				return
			}
		}
	}
}

// Find project root by looking for go.mod
func findProjectRoot() string {
	dir, err := os.Getwd()
	if err != nil {
		return ""
	}

	for {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}
	return ""
}

// expandEnvVars resolves ${VAR} placeholders in string values.
func expandEnvVars(v *viper.Viper) {
	for _, key := range v.AllKeys() {
		strVal, ok := v.Get(key).(string)
		if !ok {
			continue
		}
		if strings.Contains(strVal, "${") || (strings.HasPrefix(strVal, "$") && len(strVal) > 1) {
			expanded := os.ExpandEnv(strVal)
			if expanded != strVal && expanded != "" {
				v.Set(key, expanded)
			}
		}
	}
}

// overrideFromEnv applies the well-known environment variables. The basic
// auth pair is read from the environment first, falling back to whatever
// the config file holds and finally to the hardcoded defaults.
func overrideFromEnv(cfg *Config) {
	if val := os.Getenv("BASIC_AUTH_USERNAME"); val != "" {
		cfg.API.BasicAuth.Username = val
	}
	if val := os.Getenv("BASIC_AUTH_PASSWORD"); val != "" {
		cfg.API.BasicAuth.Password = val
	}

	if cfg.TokenStore.Redis.Address == "" {
		if val := os.Getenv("REDIS_ADDRESS"); val != "" {
			cfg.TokenStore.Redis.Address = val
		}
	}
	if cfg.TokenStore.Redis.Password == "" {
		if val := os.Getenv("REDIS_PASSWORD"); val != "" {
			cfg.TokenStore.Redis.Password = val
		}
	}
}

// applyDefaults sets default values for optional configuration fields
func applyDefaults(cfg *Config) {
	if cfg.App.Name == "" {
		cfg.App.Name = "partner-intake"
	}

	if cfg.API.BaseURL == "" {
		cfg.API.BaseURL = DefaultBaseURL
	}
	if cfg.API.PublicEndpoints == nil {
		cfg.API.PublicEndpoints = append([]string(nil), DefaultPublicEndpoints...)
	}
	if cfg.API.BasicAuth.Username == "" {
		cfg.API.BasicAuth.Username = DefaultBasicUsername
	}
	if cfg.API.BasicAuth.Password == "" {
		cfg.API.BasicAuth.Password = DefaultBasicPassword
	}

	if cfg.TokenStore.Backend == "" {
		cfg.TokenStore.Backend = "memory"
	}
	if cfg.TokenStore.Key == "" {
		cfg.TokenStore.Key = DefaultTokenKey
	}

	if cfg.LeadCookie.Name == "" {
		cfg.LeadCookie.Name = DefaultCookieName
	}
	if cfg.LeadCookie.Domain == "" {
		cfg.LeadCookie.Domain = DefaultCookieDomain
	}
	if cfg.LeadCookie.Path == "" {
		cfg.LeadCookie.Path = "/"
	}
	if cfg.LeadCookie.ExpiryDays == 0 {
		cfg.LeadCookie.ExpiryDays = DefaultCookieDays
	}

	if cfg.Server.Address == "" {
		cfg.Server.Address = ":8080"
	}
	if cfg.Server.DashboardURL == "" {
		cfg.Server.DashboardURL = DefaultDashboardURL
	}

	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "json"
	}
	if cfg.Logging.Output == "" {
		cfg.Logging.Output = "stdout"
	}

	if cfg.Metrics.Path == "" {
		cfg.Metrics.Path = "/metrics"
	}
}

// validateConfig validates critical configuration fields
func validateConfig(cfg *Config) error {
	u, err := url.Parse(cfg.API.BaseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("api.base_url must be an absolute URL, got %q", cfg.API.BaseURL)
	}
	if cfg.API.Timeout < 0 {
		return fmt.Errorf("api.timeout must not be negative")
	}

	for _, ep := range append(append([]string{}, cfg.API.PublicEndpoints...), cfg.API.BasicAuthEndpoints...) {
		if !strings.HasPrefix(ep, "/") {
			return fmt.Errorf("endpoint %q must start with /", ep)
		}
	}

	switch cfg.TokenStore.Backend {
	case "memory":
	case "redis":
		if cfg.TokenStore.Redis.Address == "" {
			return fmt.Errorf("token_store.redis.address is required for the redis backend")
		}
	default:
		return fmt.Errorf("token_store.backend must be memory or redis, got %q", cfg.TokenStore.Backend)
	}

	if cfg.LeadCookie.ExpiryDays < 0 {
		return fmt.Errorf("lead_cookie.expiry_days must not be negative")
	}
	return nil
}

// GetDuration converts milliseconds from config to time.Duration
func GetDuration(milliseconds int) time.Duration {
	return time.Duration(milliseconds) * time.Millisecond
}
