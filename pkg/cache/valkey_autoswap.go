package cache

import (
	"context"
	"sync"
	"time"

	"github.com/platformbuilds/delivery-hours/pkg/logger"
)

// autoSwapCache wraps a ValkeyCluster implementation and can swap from a
// fallback (e.g., in-memory noop) to a real Valkey client once it becomes
// available. It satisfies the ValkeyCluster interface by delegating all calls
// to the currently active implementation.
type autoSwapCache struct {
	mu      sync.RWMutex
	current ValkeyCluster
	logger  logger.Logger

	stopOnce sync.Once
	stopCh   chan struct{}
}

// newAutoSwapCache creates an auto-swapping cache that starts with `fallback`
// and keeps trying `dialReal` every interval until it succeeds, then swaps.
func newAutoSwapCache(
	fallback ValkeyCluster,
	log logger.Logger,
	interval time.Duration,
	dialReal func() (ValkeyCluster, error),
) *autoSwapCache {
	a := &autoSwapCache{
		current: fallback,
		logger:  log,
		stopCh:  make(chan struct{}),
	}

	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-a.stopCh:
				return
			case <-ticker.C:
				real, err := dialReal()
				if err != nil {
					a.logger.Warn("Valkey connection attempt failed; will retry", "error", err)
					continue
				}
				a.mu.Lock()
				a.current = real
				a.mu.Unlock()
				a.logger.Info("Valkey connection established; switched from in-memory to real cache")
				return // stop after first successful swap
			}
		}
	}()

	return a
}

// Stop stops the background connector. Safe to call more than once.
func (a *autoSwapCache) Stop() {
	a.stopOnce.Do(func() { close(a.stopCh) })
}

func (a *autoSwapCache) active() ValkeyCluster {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.current
}

func (a *autoSwapCache) Get(ctx context.Context, key string) ([]byte, error) {
	return a.active().Get(ctx, key)
}

func (a *autoSwapCache) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	return a.active().Set(ctx, key, value, ttl)
}

func (a *autoSwapCache) Delete(ctx context.Context, key string) error {
	return a.active().Delete(ctx, key)
}

func (a *autoSwapCache) DeleteByPrefix(ctx context.Context, prefix string) (int64, error) {
	return a.active().DeleteByPrefix(ctx, prefix)
}

func (a *autoSwapCache) HealthCheck(ctx context.Context) error {
	return a.active().HealthCheck(ctx)
}

// Stopper is implemented by caches that own background goroutines.
type Stopper interface{ Stop() }

const reconnectInterval = 5 * time.Second

// NewAutoSwapForURL creates an auto-swapping cache that upgrades from
// in-memory to a single-node Valkey client addressed by URL when reachable.
func NewAutoSwapForURL(rawURL string, ttl time.Duration, log logger.Logger, fallback ValkeyCluster) ValkeyCluster {
	return newAutoSwapCache(fallback, log, reconnectInterval, func() (ValkeyCluster, error) {
		return NewValkeyFromURL(rawURL, ttl, log)
	})
}

// NewAutoSwapForCluster creates an auto-swapping cache that upgrades from
// in-memory to a Valkey cluster client when reachable.
func NewAutoSwapForCluster(nodes []string, password string, ttl time.Duration, log logger.Logger, fallback ValkeyCluster) ValkeyCluster {
	return newAutoSwapCache(fallback, log, reconnectInterval, func() (ValkeyCluster, error) {
		return NewValkeyCluster(nodes, password, ttl, log)
	})
}
