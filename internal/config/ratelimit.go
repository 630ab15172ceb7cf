package config

import (
	"math"
	"time"
)

// Budget is one token bucket: Rate tokens per second refill up to Burst.
type Budget struct {
	Rate  float64
	Burst int
}

// RateLimitConfig configures the Redis rate limiter applied to the floor
// routes.  Layout writes draw from their own, smaller budget so a burst
// of draft saves cannot starve the status board.
type RateLimitConfig struct {
	Enabled     bool
	Read        Budget
	Write       Budget
	TTL         time.Duration
	KeyStrategy string // ip, user, route, ip_user, user_route or ip_user_route
	Prefix      string
	Debug       bool
}

// LoadRateLimitConfig reads the RATE_LIMIT_* variables.
func LoadRateLimitConfig() RateLimitConfig {
	cfg := RateLimitConfig{
		Enabled: envBool("RATE_LIMIT_ENABLED", true),
		Read: Budget{
			Rate:  envFloat("RATE_LIMIT_RATE", 2),
			Burst: envInt("RATE_LIMIT_BURST", 60),
		},
		Write: Budget{
			Rate:  envFloat("RATE_LIMIT_WRITE_RATE", 0.5),
			Burst: envInt("RATE_LIMIT_WRITE_BURST", 10),
		},
		TTL:         envDur("RATE_LIMIT_TTL", 10*time.Minute),
		KeyStrategy: envStr("RATE_LIMIT_KEY_STRATEGY", "ip_user_route"),
		Prefix:      envStr("RATE_LIMIT_PREFIX", "rl"),
		Debug:       envBool("RATE_LIMIT_DEBUG", false),
	}
	return cfg.normalize()
}

func (b Budget) normalize() Budget {
	if b.Burst < 1 {
		b.Burst = 1
	}
	if b.Rate <= 0 || math.IsNaN(b.Rate) || math.IsInf(b.Rate, 0) {
		b.Rate = 1
	}
	return b
}

// RefillTime is how long an empty bucket takes to fill up.
func (b Budget) RefillTime() time.Duration {
	return time.Duration(float64(b.Burst) / b.Rate * float64(time.Second))
}

func (cfg RateLimitConfig) normalize() RateLimitConfig {
	cfg.Read = cfg.Read.normalize()
	cfg.Write = cfg.Write.normalize()
	// an expired key is a full bucket, so keys must live until refilled
	for _, b := range []Budget{cfg.Read, cfg.Write} {
		if rt := b.RefillTime(); cfg.TTL < rt {
			cfg.TTL = rt
		}
	}
	if cfg.TTL < time.Second {
		cfg.TTL = time.Second
	}
	return cfg
}
