package main

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/fjod/go_cart/cartsync/internal/cache"
	"github.com/fjod/go_cart/cartsync/internal/config"
	"github.com/fjod/go_cart/cartsync/internal/events"
	"github.com/fjod/go_cart/cartsync/internal/metrics"
	"github.com/fjod/go_cart/cartsync/internal/repository"
	"github.com/fjod/go_cart/cartsync/internal/service"
	"github.com/fjod/go_cart/cartsync/internal/session"
	"github.com/fjod/go_cart/cartsync/pkg/circuitbreaker"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
)

// app holds the client-side wiring shared by every cart command.
type app struct {
	cfg      *config.Config
	log      *slog.Logger
	registry *prometheus.Registry
	metrics  *metrics.Metrics
	cache    *cache.Cache
	sessions *session.Provider
	carts    *service.CartService

	closers []func()
}

func newApp(ctx context.Context, cfg *config.Config, log *slog.Logger) *app {
	a := &app{
		cfg:      cfg,
		log:      log,
		registry: prometheus.NewRegistry(),
	}
	a.metrics = metrics.New(a.registry)

	a.cache = cache.New(a.medium(ctx),
		cache.WithPrefix(cfg.Cache.Prefix),
		cache.WithLogger(log),
	)
	a.sessions = session.NewProvider(a.cache,
		session.WithTTL(cfg.SessionTTL),
		session.WithLogger(log),
	)

	repoOpts := []repository.Option{
		repository.WithTimeout(cfg.CartAPI.Timeout),
		repository.WithLogger(log),
	}
	if cfg.Breaker.Enabled {
		breakerCfg := circuitbreaker.DefaultConfig("cart-api")
		breakerCfg.MaxFailures = uint32(cfg.Breaker.MaxFailures)
		breakerCfg.OpenTimeout = cfg.Breaker.OpenTimeout
		repoOpts = append(repoOpts, repository.WithBreaker(breakerCfg))
	}

	bus := events.NewBus(log, events.WithObserver(a.metrics))
	if cfg.Kafka.Enabled() {
		a.forward(bus)
	}

	a.carts = service.NewCartService(service.Deps{
		Repo:    repository.NewHTTPRepository(cfg.CartAPI.BaseURL, repoOpts...),
		Cache:   a.cache,
		Bus:     bus,
		Log:     log,
		Metrics: a.metrics,
		CartTTL: cfg.SessionTTL,
	})
	return a
}

// medium picks the cache backend. An unreachable Redis is kept: the cache
// degrades every call to a no-op instead of failing the command. A sqlite file
// that cannot be opened falls back to process memory.
func (a *app) medium(ctx context.Context) cache.Medium {
	switch a.cfg.Cache.Driver {
	case config.DriverRedis:
		return a.redisMedium(ctx)
	case config.DriverSQLite:
		if m := a.sqliteMedium(ctx); m != nil {
			return m
		}
	}
	return cache.NewMemoryMedium(0)
}

func (a *app) redisMedium(ctx context.Context) cache.Medium {
	client := redis.NewClient(&redis.Options{
		Addr:     a.cfg.Redis.Addr,
		Password: a.cfg.Redis.Password,
		DB:       a.cfg.Redis.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		a.log.Warn("redis unreachable, cart cache disabled", "addr", a.cfg.Redis.Addr, "error", err)
	}
	a.closers = append(a.closers, func() { _ = client.Close() })
	return cache.NewRedisMedium(client)
}

func (a *app) sqliteMedium(ctx context.Context) *cache.SQLiteMedium {
	path := a.cfg.Cache.Path
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		a.log.Warn("cache directory unavailable, using memory cache", "path", path, "error", err)
		return nil
	}
	m, err := cache.OpenSQLiteMedium(ctx, path)
	if err != nil {
		a.log.Warn("cache database unavailable, using memory cache", "path", path, "error", err)
		return nil
	}
	a.closers = append(a.closers, func() {
		if err := m.Close(); err != nil {
			a.log.Warn("failed to close cache database", "error", err)
		}
	})
	return m
}

func (a *app) forward(bus *events.Bus) {
	writer := events.NewKafkaWriter(a.cfg.Kafka.Brokers, a.cfg.Kafka.Topic)
	fwd := events.NewForwarder(bus, writer, a.log)
	fwd.Attach()

	ctx, cancel := context.WithCancel(context.Background())
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		fwd.Run(ctx)
	}()

	a.closers = append(a.closers, func() {
		cancel()
		wg.Wait()
		if err := fwd.Close(); err != nil {
			a.log.Warn("failed to close kafka writer", "error", err)
		}
	})
	a.log.Info("forwarding cart events to kafka", "brokers", a.cfg.Kafka.Brokers, "topic", a.cfg.Kafka.Topic)
}

// sessionID returns the override when given, otherwise the cached session.
func (a *app) sessionID(ctx context.Context, override string) string {
	if override != "" {
		return override
	}
	return a.sessions.GetOrCreate(ctx)
}

func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
}
