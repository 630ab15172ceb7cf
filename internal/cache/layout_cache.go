// Package cache keeps active floor layouts in Redis so the read path of
// the live service does not hit MySQL on every request.
//
// A Redis outage never fails a request: a nil client or any Redis error
// is treated as a miss and the caller falls back to the database.
//
// Every floor has a version fence next to its cached layout.  Writes of a
// layout older than the fence are dropped, so a reader that loaded the
// previous active layout just before an activation cannot put it back
// into the cache after the activation evicted it.
package cache

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/iliyamo/floor-layout/internal/config"
	"github.com/iliyamo/floor-layout/internal/model"
)

// minFenceTTL keeps a fence alive well past any read that could still be
// racing the activation that raised it.
const minFenceTTL = time.Hour

// setScript stores a layout unless the fence is already past its version.
// KEYS[1]=layout key, KEYS[2]=fence key
// ARGV[1]=layout JSON, ARGV[2]=version, ARGV[3]=layout ttl ms, ARGV[4]=fence ttl ms
var setScript = redis.NewScript(`
local fence = tonumber(redis.call('GET', KEYS[2]) or '0')
local v = tonumber(ARGV[2])
if v < fence then
  return 0
end
redis.call('SET', KEYS[1], ARGV[1], 'PX', ARGV[3])
redis.call('SET', KEYS[2], ARGV[2], 'PX', ARGV[4])
return 1
`)

// invalidateScript raises the fence to a new version and drops the cached
// layout.  A fence already at or past the version means the layout in
// the cache is at least as new, so nothing is touched.
// KEYS[1]=layout key, KEYS[2]=fence key
// ARGV[1]=version, ARGV[2]=fence ttl ms
var invalidateScript = redis.NewScript(`
local fence = tonumber(redis.call('GET', KEYS[2]) or '0')
local v = tonumber(ARGV[1])
if v <= fence then
  return 0
end
redis.call('SET', KEYS[2], ARGV[1], 'PX', ARGV[2])
redis.call('DEL', KEYS[1])
return 1
`)

// LayoutCache stores model.FloorLayout values under "<prefix>:layout:<floor>"
// and their fence under "<prefix>:layout:<floor>:fence".
type LayoutCache struct {
	rdb      *redis.Client
	ttl      time.Duration // lifetime of a cached layout
	fenceTTL time.Duration // lifetime of a fence, never shorter than ttl
	prefix   string
}

// NewLayoutCache returns a cache backed by rdb.  When caching is disabled
// or rdb is nil every operation is a no-op.
func NewLayoutCache(cfg config.CacheConfig, rdb *redis.Client) *LayoutCache {
	if !cfg.Enabled {
		rdb = nil
	}
	ttl := cfg.TTL
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &LayoutCache{rdb: rdb, ttl: ttl, fenceTTL: max(ttl, minFenceTTL), prefix: cfg.Prefix}
}

func (c *LayoutCache) key(floorID string) string {
	return c.prefix + ":layout:" + floorID
}

func (c *LayoutCache) fenceKey(floorID string) string {
	return c.key(floorID) + ":fence"
}

// Get returns the cached layout and whether it was found.
func (c *LayoutCache) Get(ctx context.Context, floorID string) (*model.FloorLayout, bool) {
	if c == nil || c.rdb == nil {
		return nil, false
	}
	bs, err := c.rdb.Get(ctx, c.key(floorID)).Bytes()
	if err != nil {
		// redis.Nil is a plain miss; anything else is treated the same
		return nil, false
	}
	var l model.FloorLayout
	if err := json.Unmarshal(bs, &l); err != nil {
		return nil, false
	}
	return &l, true
}

// Set stores l for the configured TTL.  A layout older than the floor's
// fence is silently dropped.
func (c *LayoutCache) Set(ctx context.Context, l *model.FloorLayout) error {
	if c == nil || c.rdb == nil || l == nil {
		return nil
	}
	bs, err := json.Marshal(l)
	if err != nil {
		return err
	}
	keys := []string{c.key(l.FloorID), c.fenceKey(l.FloorID)}
	return setScript.Run(ctx, c.rdb, keys,
		string(bs), l.Version, c.ttl.Milliseconds(), c.fenceTTL.Milliseconds()).Err()
}

// InvalidateFloor records that version is now the active layout of
// floorID and drops any older cached layout.
func (c *LayoutCache) InvalidateFloor(ctx context.Context, floorID string, version int64) error {
	if c == nil || c.rdb == nil {
		return nil
	}
	keys := []string{c.key(floorID), c.fenceKey(floorID)}
	return invalidateScript.Run(ctx, c.rdb, keys, version, c.fenceTTL.Milliseconds()).Err()
}
