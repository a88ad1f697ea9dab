package main

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"salon-partner-intake/internal/common/config"
	"salon-partner-intake/internal/common/database"
	apihttp "salon-partner-intake/internal/common/http"
	"salon-partner-intake/internal/common/leads"
	"salon-partner-intake/internal/common/logger"
	partnerform "salon-partner-intake/internal/intake/partner-form"
)

// tokenStore is the request client's view plus the write side used by
// the token subcommand.
type tokenStore interface {
	apihttp.TokenStore
	SetToken(ctx context.Context, token string) error
}

// app holds the shared wiring every subcommand starts from.
type app struct {
	cfg    *config.Config
	zapLog *zap.Logger
	log    logger.Logger
	redis  *database.RedisClient
	tokens tokenStore
	api    *apihttp.Client
	leads  *leads.Client
}

func newApp(ctx context.Context) (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("config load failed: %w", err)
	}

	zapLog := logger.New(cfg.Logging.Level, cfg.Logging.Format, cfg.Logging.Output)
	log := logger.NewZapAdapter(zapLog).WithFields(map[string]interface{}{
		"app":         cfg.App.Name,
		"environment": cfg.App.Environment,
	})

	a := &app{cfg: cfg, zapLog: zapLog, log: log}

	switch strings.ToLower(cfg.TokenStore.Backend) {
	case "redis":
		rc, err := database.NewRedis(cfg.TokenStore.Redis)
		if err != nil {
			return nil, err
		}
		if err := rc.Ping(ctx); err != nil {
			_ = rc.Close()
			return nil, err
		}
		a.redis = rc
		a.tokens = database.NewRedisTokenStore(rc, cfg.TokenStore.Key)
		zapLog.Info("Using Redis token store", zap.String("address", cfg.TokenStore.Redis.Address))
	default:
		a.tokens = apihttp.NewMemoryTokenStore("")
	}

	a.api, err = apihttp.NewClient(apihttp.Options{
		BaseURL: cfg.API.BaseURL,
		Policy: apihttp.NewEndpointPolicy(
			cfg.API.PublicEndpoints,
			cfg.API.BasicAuthEndpoints,
			cfg.API.BasicAuth.Username,
			cfg.API.BasicAuth.Password,
		),
		Tokens:  a.tokens,
		Timeout: config.GetDuration(cfg.API.Timeout),
		Logger:  log,
	})
	if err != nil {
		a.Close()
		return nil, err
	}
	a.leads = leads.NewClient(a.api, log)
	return a, nil
}

// cookieWriter picks where the lead cookie goes when there is no browser:
// Redis when configured, otherwise a Set-Cookie line on stdout.
func (a *app) cookieWriter(out func(string)) partnerform.LeadCookieWriter {
	if a.redis != nil {
		return database.NewRedisCookieStore(a.redis)
	}
	return printedCookie(out)
}

type printedCookie func(string)

func (p printedCookie) WriteCookie(_ context.Context, cookie *http.Cookie) error {
	p("Set-Cookie: " + cookie.String())
	return nil
}

func (a *app) Close() {
	if a.redis != nil {
		_ = a.redis.Close()
	}
	_ = a.zapLog.Sync()
}
