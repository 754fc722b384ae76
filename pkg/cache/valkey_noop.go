package cache

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/platformbuilds/delivery-hours/internal/monitoring"
	"github.com/platformbuilds/delivery-hours/pkg/logger"
)

// ErrNoExternalCache is reported by the in-memory cache health check.
var ErrNoExternalCache = errors.New("valkey noop cache in use (external cache not connected)")

type memEntry struct {
	data      []byte
	expiresAt time.Time // zero means no expiry
}

// noopValkeyCache provides an in-memory, process-local fallback that satisfies
// ValkeyCluster when the external cache is unavailable. Entries honour their
// TTL; data is not shared across replicas and is lost on restart.
type noopValkeyCache struct {
	m      map[string]memEntry
	mu     sync.RWMutex
	logger logger.Logger
	ttl    time.Duration
	now    func() time.Time
}

func NewNoopValkeyCache(log logger.Logger, defaultTTL time.Duration) ValkeyCluster {
	log.Warn("Valkey cache unavailable; using in-memory fallback (noop)")
	return newNoopValkeyCache(log, defaultTTL)
}

func newNoopValkeyCache(log logger.Logger, defaultTTL time.Duration) *noopValkeyCache {
	return &noopValkeyCache{
		m:      make(map[string]memEntry),
		logger: log,
		ttl:    defaultTTL,
		now:    time.Now,
	}
}

func (n *noopValkeyCache) Get(_ context.Context, key string) ([]byte, error) {
	n.mu.RLock()
	e, ok := n.m[key]
	n.mu.RUnlock()
	if ok && !e.expiresAt.IsZero() && !n.now().Before(e.expiresAt) {
		n.mu.Lock()
		delete(n.m, key)
		n.mu.Unlock()
		ok = false
	}
	if !ok {
		monitoring.RecordCacheOperation("get", "miss")
		return nil, fmt.Errorf("%w: %s", ErrCacheMiss, key)
	}
	monitoring.RecordCacheOperation("get", "hit")
	return e.data, nil
}

func (n *noopValkeyCache) Set(_ context.Context, key string, value interface{}, ttl time.Duration) error {
	b, err := encodeValue(key, value)
	if err != nil {
		monitoring.RecordCacheOperation("set", "error")
		return err
	}
	if ttl <= 0 {
		ttl = n.ttl
	}
	e := memEntry{data: b}
	if ttl > 0 {
		e.expiresAt = n.now().Add(ttl)
	}
	n.mu.Lock()
	n.m[key] = e
	n.mu.Unlock()
	monitoring.RecordCacheOperation("set", "success")
	return nil
}

func (n *noopValkeyCache) Delete(_ context.Context, key string) error {
	n.mu.Lock()
	delete(n.m, key)
	n.mu.Unlock()
	monitoring.RecordCacheOperation("delete", "success")
	return nil
}

func (n *noopValkeyCache) DeleteByPrefix(_ context.Context, prefix string) (int64, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	var deleted int64
	now := n.now()
	for k, e := range n.m {
		if !strings.HasPrefix(k, prefix) {
			continue
		}
		// expired entries are dropped but not counted
		if e.expiresAt.IsZero() || now.Before(e.expiresAt) {
			deleted++
		}
		delete(n.m, k)
	}
	monitoring.RecordCacheOperation("delete_prefix", "success")
	return deleted, nil
}

// HealthCheck returns an error to indicate no external Valkey connectivity.
func (n *noopValkeyCache) HealthCheck(context.Context) error {
	return ErrNoExternalCache
}
