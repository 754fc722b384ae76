package cache

import (
	"time"

	"github.com/platformbuilds/delivery-hours/pkg/logger"
)

// Options selects and configures the cache backend.
type Options struct {
	// URL of a single node (redis://host:6379/0). Used when Nodes is empty.
	URL string
	// Nodes of a Valkey cluster.
	Nodes    []string
	Password string
	TTL      time.Duration
}

// New connects to the configured backend. When it is unreachable the
// returned cache serves from memory and upgrades itself in the background
// once the backend answers; call Stop on it (see Stopper) at shutdown.
func New(opts Options, log logger.Logger) ValkeyCluster {
	if len(opts.Nodes) > 0 {
		c, err := NewValkeyCluster(opts.Nodes, opts.Password, opts.TTL, log)
		if err == nil {
			log.Info("Valkey cluster cache initialized", "nodes", len(opts.Nodes))
			return c
		}
		log.Warn("Valkey cluster unreachable", "nodes", opts.Nodes, "error", err)
		return NewAutoSwapForCluster(opts.Nodes, opts.Password, opts.TTL, log, NewNoopValkeyCache(log, opts.TTL))
	}
	if opts.URL == "" {
		return NewNoopValkeyCache(log, opts.TTL)
	}
	c, err := NewValkeyFromURL(opts.URL, opts.TTL, log)
	if err == nil {
		log.Info("Valkey single-node cache initialized")
		return c
	}
	log.Warn("Valkey single-node unreachable", "error", err)
	return NewAutoSwapForURL(opts.URL, opts.TTL, log, NewNoopValkeyCache(log, opts.TTL))
}
