// internal/common/database/redis.go
package database

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/redis/go-redis/v9"

	"salon-partner-intake/internal/common/config"
)

// RedisClient wraps the Redis client
type RedisClient struct {
	Client *redis.Client
}

// NewRedis creates a new Redis client
func NewRedis(cfg config.RedisConfig) (*RedisClient, error) {
	if cfg.Address == "" {
		return nil, fmt.Errorf("redis address is required")
	}
	rdb := redis.NewClient(&redis.Options{
		Addr:         cfg.Address,
		Password:     cfg.Password,
		DB:           cfg.DB,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
		PoolSize:     4,
	})

	return &RedisClient{Client: rdb}, nil
}

// Ping tests the Redis connection
func (c *RedisClient) Ping(ctx context.Context) error {
	if err := c.Client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis ping failed: %w", err)
	}
	return nil
}

// Close closes the Redis connection
func (c *RedisClient) Close() error {
	if c.Client != nil {
		return c.Client.Close()
	}
	return nil
}

// RedisTokenStore keeps the bearer token under a single key so that it
// survives process restarts and is shared by every process on the host.
type RedisTokenStore struct {
	client *RedisClient
	key    string
}

func NewRedisTokenStore(client *RedisClient, key string) *RedisTokenStore {
	return &RedisTokenStore{client: client, key: key}
}

// Token returns "" when the key is absent.
func (s *RedisTokenStore) Token(ctx context.Context) (string, error) {
	token, err := s.client.Client.Get(ctx, s.key).Result()
	if errors.Is(err, redis.Nil) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("read token %q: %w", s.key, err)
	}
	return token, nil
}

func (s *RedisTokenStore) SetToken(ctx context.Context, token string) error {
	if err := s.client.Client.Set(ctx, s.key, token, 0).Err(); err != nil {
		return fmt.Errorf("write token %q: %w", s.key, err)
	}
	return nil
}

func (s *RedisTokenStore) ClearToken(ctx context.Context) error {
	if err := s.client.Client.Del(ctx, s.key).Err(); err != nil {
		return fmt.Errorf("clear token %q: %w", s.key, err)
	}
	return nil
}

// RedisCookieStore persists cookies for clients that have no browser
// cookie jar. Each cookie lives under "cookie:<domain>:<name>" with a TTL
// matching its lifetime.
type RedisCookieStore struct {
	client *RedisClient
}

func NewRedisCookieStore(client *RedisClient) *RedisCookieStore {
	return &RedisCookieStore{client: client}
}

func cookieKey(domain, name string) string {
	return "cookie:" + domain + ":" + name
}

func (s *RedisCookieStore) WriteCookie(ctx context.Context, cookie *http.Cookie) error {
	ttl := time.Duration(cookie.MaxAge) * time.Second
	if ttl <= 0 && !cookie.Expires.IsZero() {
		ttl = time.Until(cookie.Expires)
	}
	if ttl < 0 {
		ttl = 0
	}
	key := cookieKey(cookie.Domain, cookie.Name)
	if err := s.client.Client.Set(ctx, key, cookie.Value, ttl).Err(); err != nil {
		return fmt.Errorf("write cookie %q: %w", key, err)
	}
	return nil
}

// ReadCookie returns "" when the cookie is absent or expired.
func (s *RedisCookieStore) ReadCookie(ctx context.Context, domain, name string) (string, error) {
	value, err := s.client.Client.Get(ctx, cookieKey(domain, name)).Result()
	if errors.Is(err, redis.Nil) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("read cookie %q: %w", name, err)
	}
	return value, nil
}
