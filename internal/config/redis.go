package config

import (
	"context"
	"crypto/tls"
	"fmt"
	"net"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisConfig locates the Redis server shared by the layout cache and
// the rate limiter.
type RedisConfig struct {
	Addr        string
	Password    string
	DB          int
	TLS         bool
	DialTimeout time.Duration
}

// LoadRedisConfig reads REDIS_ADDR, or REDIS_HOST and REDIS_PORT, plus
// REDIS_PASSWORD, REDIS_DB, REDIS_TLS and REDIS_DIAL_TIMEOUT.
func LoadRedisConfig() RedisConfig {
	addr := envStr("REDIS_ADDR", "localhost:6379")
	if host, port := envStr("REDIS_HOST", ""), envStr("REDIS_PORT", ""); host != "" && port != "" {
		addr = net.JoinHostPort(host, port)
	}
	return RedisConfig{
		Addr:        addr,
		Password:    envStr("REDIS_PASSWORD", ""),
		DB:          envInt("REDIS_DB", 0),
		TLS:         envBool("REDIS_TLS", false),
		DialTimeout: envDur("REDIS_DIAL_TIMEOUT", 2*time.Second),
	}
}

// Options converts the config into client options.
func (c RedisConfig) Options() *redis.Options {
	opts := &redis.Options{
		Addr:        c.Addr,
		Password:    c.Password,
		DB:          c.DB,
		DialTimeout: c.DialTimeout,
	}
	if c.TLS {
		opts.TLSConfig = &tls.Config{MinVersion: tls.VersionTLS12}
	}
	return opts
}

// NewRedisClient connects and pings the server.  On failure the client
// is closed and the error returned; the service then runs without cache
// and rate limiting.
func NewRedisClient(ctx context.Context, cfg RedisConfig) (*redis.Client, error) {
	client := redis.NewClient(cfg.Options())

	pingCtx, cancel := context.WithTimeout(ctx, cfg.DialTimeout+time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis %s: %w", cfg.Addr, err)
	}
	return client, nil
}
