package cache

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/go-redis/redis/v8"
	json "github.com/goccy/go-json"

	"github.com/platformbuilds/delivery-hours/internal/monitoring"
	"github.com/platformbuilds/delivery-hours/pkg/logger"
)

// ErrCacheMiss is returned by Get when the key is absent or expired.
var ErrCacheMiss = errors.New("cache: key not found")

// scanBatch is the COUNT hint used when walking keys for prefix deletion.
const scanBatch = 200

// ValkeyCluster is the cache used for raw upstream payloads. Implementations
// exist for a Valkey cluster, a single node and a process-local fallback.
type ValkeyCluster interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	Delete(ctx context.Context, key string) error

	// DeleteByPrefix removes every key starting with prefix and reports how
	// many were removed.
	DeleteByPrefix(ctx context.Context, prefix string) (int64, error)

	HealthCheck(ctx context.Context) error
}

type valkeyClusterImpl struct {
	client *redis.ClusterClient
	logger logger.Logger
	ttl    time.Duration
}

func NewValkeyCluster(nodes []string, password string, defaultTTL time.Duration, log logger.Logger) (ValkeyCluster, error) {
	client := redis.NewClusterClient(&redis.ClusterOptions{
		Addrs:        nodes,
		Password:     password,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 5 * time.Second,
		PoolSize:     10,
		MinIdleConns: 5,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Valkey cluster: %w", err)
	}

	return &valkeyClusterImpl{
		client: client,
		logger: log,
		ttl:    defaultTTL,
	}, nil
}

func (v *valkeyClusterImpl) Get(ctx context.Context, key string) ([]byte, error) {
	b, err := v.client.Get(ctx, key).Bytes()
	return recordGet(key, b, err)
}

func (v *valkeyClusterImpl) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	data, err := encodeValue(key, value)
	if err != nil {
		monitoring.RecordCacheOperation("set", "error")
		return err
	}
	if ttl <= 0 {
		ttl = v.ttl
	}
	return recordResult("set", v.client.Set(ctx, key, data, ttl).Err())
}

func (v *valkeyClusterImpl) Delete(ctx context.Context, key string) error {
	return recordResult("delete", v.client.Del(ctx, key).Err())
}

// DeleteByPrefix scans every master since keys are spread across slots.
func (v *valkeyClusterImpl) DeleteByPrefix(ctx context.Context, prefix string) (int64, error) {
	var deleted int64
	err := v.client.ForEachMaster(ctx, func(ctx context.Context, node *redis.Client) error {
		n, err := deleteMatching(ctx, node, prefix)
		atomic.AddInt64(&deleted, n)
		return err
	})
	if err != nil {
		v.logger.Warn("Prefix invalidation incomplete", "prefix", prefix, "deleted", deleted, "error", err)
	}
	return deleted, recordResult("delete_prefix", err)
}

func (v *valkeyClusterImpl) HealthCheck(ctx context.Context) error {
	return v.client.Ping(ctx).Err()
}

// deleteMatching walks one node with SCAN and deletes keys one by one;
// a multi-key DEL could span hash slots on a cluster.
func deleteMatching(ctx context.Context, node redis.Cmdable, prefix string) (int64, error) {
	var (
		cursor  uint64
		deleted int64
	)
	for {
		keys, next, err := node.Scan(ctx, cursor, prefix+"*", scanBatch).Result()
		if err != nil {
			return deleted, err
		}
		for _, k := range keys {
			n, err := node.Del(ctx, k).Result()
			if err != nil {
				return deleted, err
			}
			deleted += n
		}
		cursor = next
		if cursor == 0 {
			return deleted, nil
		}
	}
}

func recordGet(key string, b []byte, err error) ([]byte, error) {
	if errors.Is(err, redis.Nil) {
		monitoring.RecordCacheOperation("get", "miss")
		return nil, fmt.Errorf("%w: %s", ErrCacheMiss, key)
	}
	if err != nil {
		monitoring.RecordCacheOperation("get", "error")
		return nil, err
	}
	monitoring.RecordCacheOperation("get", "hit")
	return b, nil
}

func recordResult(op string, err error) error {
	if err != nil {
		monitoring.RecordCacheOperation(op, "error")
		return err
	}
	monitoring.RecordCacheOperation(op, "success")
	return nil
}

func encodeValue(key string, value interface{}) ([]byte, error) {
	switch x := value.(type) {
	case []byte:
		return x, nil
	case string:
		return []byte(x), nil
	default:
		j, err := json.Marshal(x)
		if err != nil {
			return nil, fmt.Errorf("marshal value for key %s: %w", key, err)
		}
		return j, nil
	}
}
