package partnerform

import (
	"fmt"
	"net/http"
	"time"

	"salon-partner-intake/internal/common/config"
)

type Config struct {
	Source       string        `mapstructure:"source"`
	CookieName   string        `mapstructure:"cookie_name"`
	CookieDomain string        `mapstructure:"cookie_domain"`
	CookiePath   string        `mapstructure:"cookie_path"`
	CookieExpiry time.Duration `mapstructure:"cookie_expiry"`
	DashboardURL string        `mapstructure:"dashboard_url"`
}

func DefaultConfig() *Config {
	return &Config{
		Source:       "website",
		CookieName:   config.DefaultCookieName,
		CookieDomain: config.DefaultCookieDomain,
		CookiePath:   "/",
		CookieExpiry: config.DefaultCookieDays * 24 * time.Hour,
		DashboardURL: config.DefaultDashboardURL,
	}
}

func (c *Config) Validate() error {
	if c.Source == "" {
		return fmt.Errorf("source is required")
	}
	if c.CookieName == "" {
		return fmt.Errorf("cookie_name is required")
	}
	if c.CookieExpiry <= 0 {
		return fmt.Errorf("cookie_expiry must be positive")
	}
	return nil
}

// LeadCookie builds the cookie that remembers the last submitted lead.
func (c *Config) LeadCookie(leadID string, now time.Time) *http.Cookie {
	return &http.Cookie{
		Name:     c.CookieName,
		Value:    leadID,
		Domain:   c.CookieDomain,
		Path:     c.CookiePath,
		Expires:  now.Add(c.CookieExpiry),
		MaxAge:   int(c.CookieExpiry.Seconds()),
		SameSite: http.SameSiteLaxMode,
	}
}

func createConfigFromAppConfig(appConfig *config.Config, customConfig *Config) *Config {
	if customConfig != nil {
		return customConfig
	}

	cfg := DefaultConfig()
	if appConfig == nil {
		return cfg
	}

	lc := appConfig.LeadCookie
	if lc.Name != "" {
		cfg.CookieName = lc.Name
	}
	if lc.Domain != "" {
		cfg.CookieDomain = lc.Domain
	}
	if lc.Path != "" {
		cfg.CookiePath = lc.Path
	}
	if lc.ExpiryDays > 0 {
		cfg.CookieExpiry = lc.Expiry()
	}
	if appConfig.Server.DashboardURL != "" {
		cfg.DashboardURL = appConfig.Server.DashboardURL
	}
	return cfg
}
