package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/fjod/go_cart/cartsync/internal/cartapi"
	"github.com/fjod/go_cart/cartsync/internal/config"
	"github.com/fjod/go_cart/cartsync/internal/metrics"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

const shutdownTimeout = 10 * time.Second

// serve runs the local cart API until ctx is cancelled.
func serve(ctx context.Context, cfg *config.Config, log *slog.Logger) error {
	store, closeStore, err := openStore(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer closeStore()

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	router := cartapi.NewRouter(cartapi.NewCarts(store, cartapi.DemoCatalog()), cartapi.RouterConfig{
		AllowedOrigins: cfg.Server.AllowedOrigins,
		Recorder:       metrics.New(reg),
		Gatherer:       reg,
		Log:            log,
	})

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 35 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("cart API starting", "addr", srv.Addr, "store", cfg.Server.StoreDriver)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	log.Info("shutting down cart API")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}
	log.Info("cart API stopped")
	return nil
}

func openStore(ctx context.Context, cfg *config.Config, log *slog.Logger) (cartapi.Store, func(), error) {
	if cfg.Server.StoreDriver != config.DriverMongo {
		return cartapi.NewMemoryStore(), func() {}, nil
	}

	connectCtx, cancel := context.WithTimeout(ctx, 15*time.Second)
	defer cancel()

	db, err := cartapi.ConnectMongoDB(connectCtx, cartapi.MongoOptions{
		URI:         cfg.Server.MongoURI,
		Database:    cfg.Server.MongoDB,
		MaxPoolSize: uint64(cfg.Server.MongoMaxPool),
		Timeout:     cfg.Server.MongoTimeout,
	})
	if err != nil {
		return nil, nil, err
	}
	store := cartapi.NewMongoStore(db)
	if err := store.CreateIndexes(connectCtx); err != nil {
		_ = db.Client().Disconnect(context.Background())
		return nil, nil, err
	}
	log.Info("connected to MongoDB", "database", cfg.Server.MongoDB)

	return store, func() {
		if err := db.Client().Disconnect(context.Background()); err != nil {
			log.Warn("failed to disconnect from MongoDB", "error", err)
		}
	}, nil
}
