package config

import "time"

// CacheConfig configures the Redis cache of active floor layouts.
type CacheConfig struct {
	Enabled bool
	TTL     time.Duration
	Prefix  string
}

// LoadCacheConfig reads CACHE_ENABLED, CACHE_TTL and CACHE_PREFIX.
func LoadCacheConfig() CacheConfig {
	return CacheConfig{
		Enabled: envBool("CACHE_ENABLED", true),
		TTL:     envDur("CACHE_TTL", 5*time.Minute),
		Prefix:  envStr("CACHE_PREFIX", "floor"),
	}
}
