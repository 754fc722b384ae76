package discovery

import (
	"context"
	"fmt"
	"net"
	"sort"
	"strings"
	"time"

	"github.com/platformbuilds/delivery-hours/internal/config"
	"github.com/platformbuilds/delivery-hours/pkg/logger"
)

// DNSConfig defines a simple DNS-based discovery target
type DNSConfig struct {
	Enabled        bool
	Service        string // e.g. venue-service.venues.svc.cluster.local (or short form in same namespace)
	Port           int
	Scheme         string // http | https
	BasePath       string // appended to every discovered base URL, e.g. /venue-service
	RefreshSeconds int    // how often to re-resolve
	UseSRV         bool   // if true, query _http._tcp.<service>
}

// FromConfig maps the upstream discovery block onto a DNSConfig.
func FromConfig(c config.K8sDiscoveryConfig) DNSConfig {
	return DNSConfig{
		Enabled:        c.Enabled,
		Service:        c.Service,
		Port:           c.Port,
		Scheme:         c.Scheme,
		BasePath:       c.BasePath,
		RefreshSeconds: c.RefreshSeconds,
		UseSRV:         c.UseSRV,
	}
}

// EndpointsSink is implemented by upstream clients that can accept updated endpoint lists
type EndpointsSink interface {
	ReplaceEndpoints([]string)
}

type resolver interface {
	LookupSRV(ctx context.Context, service, proto, name string) (string, []*net.SRV, error)
	LookupIPAddr(ctx context.Context, host string) ([]net.IPAddr, error)
}

// StartDNSDiscovery periodically resolves service name to pod IPs and updates sink
func StartDNSDiscovery(ctx context.Context, cfg DNSConfig, sink EndpointsSink, log logger.Logger) {
	startDNSDiscovery(ctx, cfg, sink, log, net.DefaultResolver)
}

func startDNSDiscovery(ctx context.Context, cfg DNSConfig, sink EndpointsSink, log logger.Logger, r resolver) {
	if !cfg.Enabled || sink == nil {
		return
	}
	if cfg.RefreshSeconds <= 0 {
		cfg.RefreshSeconds = 30
	}
	if cfg.Scheme == "" {
		cfg.Scheme = "http"
	}

	resolveAndPush := func() {
		eps := resolveEndpoints(ctx, cfg, r)
		if len(eps) > 0 {
			sink.ReplaceEndpoints(eps)
			log.Debug("DNS discovery refreshed endpoints", "service", cfg.Service, "count", len(eps))
		} else {
			log.Warn("DNS discovery resolved no endpoints", "service", cfg.Service)
		}
	}
	// run once immediately
	resolveAndPush()

	ticker := time.NewTicker(time.Duration(cfg.RefreshSeconds) * time.Second)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				resolveAndPush()
			case <-ctx.Done():
				return
			}
		}
	}()
}

func resolveEndpoints(ctx context.Context, cfg DNSConfig, r resolver) []string {
	if cfg.Service == "" {
		return nil
	}
	basePath := ""
	if p := strings.Trim(cfg.BasePath, "/"); p != "" {
		basePath = "/" + p
	}

	var out []string
	if cfg.UseSRV {
		// Construct _http._tcp.service form
		service := cfg.Service
		if !strings.HasPrefix(service, "_") {
			service = fmt.Sprintf("_http._tcp.%s", service)
		}
		_, addrs, err := r.LookupSRV(ctx, "", "", service)
		if err == nil {
			for _, a := range addrs {
				host := strings.TrimSuffix(a.Target, ".")
				out = append(out, fmt.Sprintf("%s://%s%s", cfg.Scheme, net.JoinHostPort(host, fmt.Sprint(a.Port)), basePath))
			}
		}
	} else {
		// A/AAAA records (works with headless services to list pods)
		ips, err := r.LookupIPAddr(ctx, cfg.Service)
		if err == nil {
			for _, ip := range ips {
				out = append(out, fmt.Sprintf("%s://%s%s", cfg.Scheme, net.JoinHostPort(ip.IP.String(), fmt.Sprint(cfg.Port)), basePath))
			}
		}
	}
	// de-duplicate + stable order
	m := map[string]struct{}{}
	uniq := make([]string, 0, len(out))
	for _, e := range out {
		if _, ok := m[e]; ok {
			continue
		}
		m[e] = struct{}{}
		uniq = append(uniq, e)
	}
	sort.Strings(uniq)
	return uniq
}
