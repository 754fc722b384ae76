package services

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"sync/atomic"
	"time"

	json "github.com/goccy/go-json"

	"github.com/platformbuilds/delivery-hours/pkg/cache"
	"github.com/platformbuilds/delivery-hours/pkg/logger"
)

const cacheKeyPrefix = "delivery_service:"

// PayloadCache stores raw upstream answers so repeated lookups skip the
// network. Failures are logged and treated as misses; a nil *PayloadCache
// disables caching.
type PayloadCache struct {
	cache  cache.ValkeyCluster
	logger logger.Logger
	ttl    atomic.Int64 // nanoseconds
}

func NewPayloadCache(c cache.ValkeyCluster, ttl time.Duration, log logger.Logger) *PayloadCache {
	p := &PayloadCache{cache: c, logger: log}
	p.ttl.Store(int64(ttl))
	return p
}

// SetTTL changes the TTL of entries written from now on.
func (p *PayloadCache) SetTTL(ttl time.Duration) {
	if p == nil || ttl <= 0 {
		return
	}
	p.ttl.Store(int64(ttl))
}

func (p *PayloadCache) Get(ctx context.Context, service, endpoint string, params map[string]string) ([]byte, bool) {
	if p == nil || p.cache == nil {
		return nil, false
	}
	key := cacheKey(service, endpoint, params)
	b, err := p.cache.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, cache.ErrCacheMiss) {
			p.logger.Warn("Cache get failed", "service", service, "endpoint", endpoint, "error", err)
		} else {
			p.logger.Debug("Cache miss", "service", service, "endpoint", endpoint, "cache_key", key)
		}
		return nil, false
	}
	p.logger.Debug("Cache hit", "service", service, "endpoint", endpoint, "cache_key", key)
	return b, true
}

func (p *PayloadCache) Set(ctx context.Context, service, endpoint string, params map[string]string, payload []byte) {
	if p == nil || p.cache == nil {
		return
	}
	key := cacheKey(service, endpoint, params)
	ttl := time.Duration(p.ttl.Load())
	if err := p.cache.Set(ctx, key, payload, ttl); err != nil {
		p.logger.Warn("Cache set failed", "service", service, "endpoint", endpoint, "error", err)
		return
	}
	p.logger.Debug("Cache set successful", "service", service, "cache_key", key, "ttl", ttl)
}

// InvalidateService drops every cached payload of one upstream.
func (p *PayloadCache) InvalidateService(ctx context.Context, service string) (int64, error) {
	if p == nil || p.cache == nil {
		return 0, nil
	}
	n, err := p.cache.DeleteByPrefix(ctx, cacheKeyPrefix+service+":")
	if err != nil {
		p.logger.Warn("Cache invalidation failed", "service", service, "error", err)
		return n, err
	}
	p.logger.Info("Cache invalidation completed", "service", service, "deleted_keys", n)
	return n, nil
}

// cacheKey hashes endpoint and params; map keys marshal in sorted order.
func cacheKey(service, endpoint string, params map[string]string) string {
	sorted := ""
	if len(params) > 0 {
		b, _ := json.Marshal(params)
		sorted = string(b)
	}
	sum := sha256.Sum256([]byte(service + ":" + endpoint + ":" + sorted))
	return cacheKeyPrefix + service + ":" + hex.EncodeToString(sum[:])
}
