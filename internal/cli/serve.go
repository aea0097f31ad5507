package cli

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/aretw0/chatflow"
	"github.com/aretw0/chatflow/internal/logging"
	"github.com/aretw0/chatflow/pkg/adapters/file"
	httpadapter "github.com/aretw0/chatflow/pkg/adapters/http"
	"github.com/aretw0/chatflow/pkg/adapters/memory"
	"github.com/aretw0/chatflow/pkg/adapters/redis"
	"github.com/aretw0/chatflow/pkg/observability"
	"github.com/aretw0/chatflow/pkg/persistence/middleware"
	"github.com/aretw0/chatflow/pkg/ports"
	"github.com/aretw0/chatflow/pkg/session"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// shutdownTimeout bounds how long outstanding requests may take once shutdown starts.
const shutdownTimeout = 5 * time.Second

// BuildStore creates the snapshot store selected by cfg.
// The returned close function releases connections held by the store.
func BuildStore(cfg StoreConfig) (ports.SnapshotStore, func() error, error) {
	noop := func() error { return nil }
	switch cfg.Driver {
	case "", "memory":
		return memory.NewStore(), noop, nil
	case "file":
		return file.New(cfg.Path), noop, nil
	case "redis":
		var opts []redis.Option
		if cfg.Redis.Prefix != "" {
			opts = append(opts, redis.WithPrefix(cfg.Redis.Prefix))
		}
		if cfg.Redis.TTL > 0 {
			opts = append(opts, redis.WithTTL(cfg.Redis.TTL))
		}
		store := redis.New(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB, opts...)
		return store, store.Close, nil
	default:
		return nil, nil, fmt.Errorf("unknown store driver %q", cfg.Driver)
	}
}

// storeMiddlewares builds the instrumentation and, when a key is configured, encryption layers.
func storeMiddlewares(cfg StoreConfig, reg prometheus.Registerer, logger *slog.Logger) ([]middleware.Middleware, error) {
	storeMetrics, err := middleware.NewStoreMetrics(reg)
	if err != nil {
		return nil, err
	}
	mws := []middleware.Middleware{middleware.NewInstrumentedMiddleware(storeMetrics, logger)}
	if cfg.EncryptionKey == "" {
		return mws, nil
	}

	key, err := base64.StdEncoding.DecodeString(cfg.EncryptionKey)
	if err != nil {
		return nil, fmt.Errorf("invalid encryption key: %w", err)
	}
	encryption, err := middleware.NewEncryptionMiddleware(middleware.EncryptionConfig{ActiveKey: key})
	if err != nil {
		return nil, fmt.Errorf("invalid encryption key: %w", err)
	}
	return append(mws, encryption), nil
}

// NewServer wires the store, previews, metrics and routes of the HTTP API.
func NewServer(cfg ServeConfig, logger *slog.Logger) (*http.Server, func() error, error) {
	store, closeStore, err := BuildStore(cfg.Store)
	if err != nil {
		return nil, nil, err
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	metrics, err := observability.NewMetrics(reg)
	if err != nil {
		_ = closeStore()
		return nil, nil, err
	}
	mws, err := storeMiddlewares(cfg.Store, reg, logger)
	if err != nil {
		_ = closeStore()
		return nil, nil, err
	}

	studio := chatflow.New(
		chatflow.WithStore(middleware.Wrap(store, mws...)),
		chatflow.WithLogger(logger),
		chatflow.WithDelay(cfg.Preview.Delay),
		chatflow.WithMaxSteps(cfg.Preview.MaxSteps),
		chatflow.WithLifecycleHooks(observability.Chain(metrics.Hooks(), observability.LogHooks(logger))),
	)
	sessions := session.NewManager(studio, session.WithLogger(logger))

	handler := httpadapter.NewHandler(sessions,
		httpadapter.WithLogger(logger),
		httpadapter.WithMetricsHandler(promhttp.HandlerFor(reg, promhttp.HandlerOpts{})),
	)

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}
	cleanup := func() error {
		sessions.Close()
		return closeStore()
	}
	return srv, cleanup, nil
}

// Serve runs the HTTP API until ctx is cancelled, then shuts down gracefully.
func Serve(ctx context.Context, cfg ServeConfig) error {
	level, err := logging.ParseLevel(cfg.Log.Level)
	if err != nil {
		return err
	}
	logger := logging.NewWithWriter(stderr, level, cfg.Log.JSON)

	srv, cleanup, err := NewServer(cfg, logger)
	if err != nil {
		return err
	}
	defer func() {
		if err := cleanup(); err != nil {
			logger.Warn("cleanup failed", "err", err)
		}
	}()

	serverErrors := make(chan error, 1)
	go func() {
		logger.Info("starting chatflow server", "addr", srv.Addr, "store", cfg.Store.Driver)
		serverErrors <- srv.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("server error: %w", err)
	case <-ctx.Done():
		logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Warn("graceful shutdown did not complete", "timeout", shutdownTimeout, "err", err)
			return srv.Close()
		}
		logger.Info("server stopped gracefully")
		return nil
	}
}
