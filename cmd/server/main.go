package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/platformbuilds/delivery-hours/internal/api"
	"github.com/platformbuilds/delivery-hours/internal/api/handlers"
	"github.com/platformbuilds/delivery-hours/internal/config"
	"github.com/platformbuilds/delivery-hours/internal/discovery"
	"github.com/platformbuilds/delivery-hours/internal/security/cabundle"
	"github.com/platformbuilds/delivery-hours/internal/services"
	"github.com/platformbuilds/delivery-hours/internal/tracing"
	"github.com/platformbuilds/delivery-hours/internal/version"
	"github.com/platformbuilds/delivery-hours/pkg/cache"
	"github.com/platformbuilds/delivery-hours/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	appLogger := logger.New(cfg.LogLevel)
	appLogger.Info("Starting delivery hours service",
		"version", version.Version, "commit", version.CommitHash, "environment", cfg.Environment)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		<-sigChan
		appLogger.Info("Shutdown signal received")
		cancel()
	}()

	// Tracing must be installed before services create their tracers.
	if cfg.Monitoring.TracingEnabled {
		tp, err := tracing.NewTracerProvider(ctx, tracing.Options{
			ServiceName:    "delivery-hours-service",
			ServiceVersion: version.Version,
			OTLPEndpoint:   cfg.Monitoring.OTLPEndpoint,
			Insecure:       cfg.Monitoring.OTLPInsecure,
			SampleRatio:    cfg.Monitoring.SampleRatio,
		})
		if err != nil {
			appLogger.Warn("Tracing disabled", "error", err)
		} else {
			defer func() {
				shutdownCtx, done := context.WithTimeout(context.Background(), 5*time.Second)
				defer done()
				if err := tp.Shutdown(shutdownCtx); err != nil {
					appLogger.Warn("Tracer shutdown failed", "error", err)
				}
			}()
			appLogger.Info("Tracing enabled", "endpoint", cfg.Monitoring.OTLPEndpoint)
		}
	}

	valkeyCache := cache.New(cache.Options{
		URL:      cfg.Cache.URL,
		Nodes:    cfg.Cache.Nodes,
		Password: cfg.Cache.Password,
		TTL:      cfg.CacheTTL(),
	}, appLogger)
	if s, ok := valkeyCache.(cache.Stopper); ok {
		defer s.Stop()
	}
	payloads := services.NewPayloadCache(valkeyCache, cfg.CacheTTL(), appLogger)

	venueClient := services.NewUpstreamClient("venue", cfg.Upstream.Venue, appLogger)
	venueBreaker := services.NewCircuitBreaker("venue", cfg.CircuitBreaker, appLogger)
	courierClient := services.NewUpstreamClient("courier", cfg.Upstream.Courier, appLogger)
	courierBreaker := services.NewCircuitBreaker("courier", cfg.CircuitBreaker, appLogger)

	if tlsCfg := cfg.Upstream.TLS; tlsCfg.CABundle != "" || tlsCfg.InsecureSkipVerify {
		bundle, err := cabundle.NewManager(tlsCfg.CABundle, tlsCfg.InsecureSkipVerify, appLogger)
		if err != nil {
			appLogger.Error("Upstream TLS setup failed", "error", err)
			return
		}
		defer func() { _ = bundle.Close() }()
		for _, c := range []*services.UpstreamClient{venueClient, courierClient} {
			c.UseTLS(bundle.TLSConfig())
			bundle.OnChange(c.UseTLS)
		}
	}

	discovery.StartDNSDiscovery(ctx, discovery.FromConfig(cfg.Upstream.Venue.Discovery), venueClient, appLogger)
	discovery.StartDNSDiscovery(ctx, discovery.FromConfig(cfg.Upstream.Courier.Discovery), courierClient, appLogger)

	deliveryService := services.NewDeliveryHoursService(
		services.NewVenueHoursService(venueClient, venueBreaker, payloads, appLogger),
		services.NewCourierHoursService(courierClient, courierBreaker, payloads, appLogger),
		appLogger,
	)

	if path := config.ConfigFilePath(); path != "" {
		watcher := config.NewConfigWatcher(path, cfg, appLogger)
		watcher.RegisterWatcher(func(next *config.Config) {
			if ls, ok := appLogger.(logger.LevelSetter); ok {
				ls.SetLevel(next.LogLevel)
			}
			payloads.SetTTL(next.CacheTTL())
			appLogger.Info("Configuration reloaded", "log_level", next.LogLevel, "cache_ttl", next.CacheTTL())
		})
		go func() {
			if err := watcher.Start(ctx); err != nil {
				appLogger.Warn("Configuration watcher stopped", "error", err)
			}
		}()
		defer watcher.Stop()
	}

	apiServer := api.NewServer(cfg, appLogger, api.Dependencies{
		DeliveryHours: deliveryService,
		Payloads:      payloads,
		Cache:         valkeyCache,
		Upstreams: []handlers.Upstream{
			{Probe: venueClient, Breaker: venueBreaker},
			{Probe: courierClient, Breaker: courierBreaker},
		},
	})

	if err := apiServer.Start(ctx); err != nil {
		appLogger.Error("Server failed", "error", err)
		cancel()
		return
	}

	appLogger.Info("Delivery hours service shutdown complete")
}
