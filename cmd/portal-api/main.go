// cmd/portal-api/main.go
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"barangay-portal/internal/api"
	"barangay-portal/internal/cache"
	"barangay-portal/internal/common/camunda"
	"barangay-portal/internal/common/config"
	"barangay-portal/internal/common/database"
	"barangay-portal/internal/common/logger"
	"barangay-portal/internal/common/observability"
	"barangay-portal/internal/repository"
	"barangay-portal/internal/search"
	"barangay-portal/internal/service"
	"barangay-portal/internal/session"
	"barangay-portal/internal/storage"
)

// retryWithBackoff attempts to execute a function with exponential backoff
func retryWithBackoff(operation func() error, maxRetries int, initialDelay time.Duration, log *zap.Logger, operationName string) error {
	var err error
	delay := initialDelay

	for i := 0; i < maxRetries; i++ {
		err = operation()
		if err == nil {
			return nil
		}

		if i < maxRetries-1 {
			log.Warn(fmt.Sprintf("%s failed, retrying...", operationName),
				zap.Error(err),
				zap.Int("attempt", i+1),
				zap.Int("maxRetries", maxRetries),
				zap.Duration("nextRetryIn", delay),
			)
			time.Sleep(delay)
			delay *= 2
		}
	}

	return fmt.Errorf("%s failed after %d attempts: %w", operationName, maxRetries, err)
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config load failed: %v\n", err)
		os.Exit(1)
	}

	zapLog := logger.New(cfg.Logging.Level, cfg.Logging.Format, cfg.Logging.Output)
	defer zapLog.Sync()
	log := logger.NewZapAdapter(zapLog)

	zapLog.Info("Starting portal API...", zap.String("version", cfg.App.Version))

	obs, err := observability.New("portal-api", cfg.Observability.JaegerEndpoint)
	if err != nil {
		zapLog.Fatal("observability init failed", zap.Error(err))
	}
	defer obs.Shutdown()

	ctx := context.Background()

	// --- PostgreSQL ---
	var pg *database.PostgresClient
	err = retryWithBackoff(func() error {
		var err error
		pg, err = database.NewPostgres(cfg.Database.Postgres)
		if err != nil {
			return err
		}
		return pg.Ping(ctx)
	}, 15, 2*time.Second, zapLog, "PostgreSQL connection")
	if err != nil {
		zapLog.Fatal("postgres failed after retries", zap.Error(err))
	}
	defer pg.Close()
	if err := pg.EnsureSchema(ctx); err != nil {
		zapLog.Fatal("schema migration failed", zap.Error(err))
	}
	zapLog.Info("PostgreSQL connected successfully")

	// --- Redis ---
	var rdb *database.RedisClient
	err = retryWithBackoff(func() error {
		var err error
		rdb, err = database.NewRedis(cfg.Database.Redis)
		if err != nil {
			return err
		}
		return rdb.Ping(ctx)
	}, 10, 2*time.Second, zapLog, "Redis connection")
	if err != nil {
		zapLog.Fatal("redis failed after retries", zap.Error(err))
	}
	defer rdb.Close()
	zapLog.Info("Redis connected successfully")

	// --- Elasticsearch (optional) ---
	var searcher service.Searcher
	if cfg.Database.Elasticsearch.Enabled {
		var es *database.ElasticsearchClient
		err = retryWithBackoff(func() error {
			var err error
			es, err = database.NewElasticsearch(cfg.Database.Elasticsearch)
			if err != nil {
				return err
			}
			return es.Ping(ctx)
		}, 15, 2*time.Second, zapLog, "Elasticsearch connection")
		if err != nil {
			zapLog.Fatal("elasticsearch failed after retries", zap.Error(err))
		}
		index := search.New(es.Client, cfg.Search.Index)
		if err := index.EnsureIndex(ctx); err != nil {
			zapLog.Fatal("search index setup failed", zap.Error(err))
		}
		searcher = index
		zapLog.Info("Elasticsearch connected successfully", zap.String("index", index.Name()))
	}

	// --- Workflow publisher ---
	var publisher camunda.Publisher = camunda.NewNoopPublisher(log)
	var zc *camunda.Client
	if cfg.Camunda.Enabled {
		err = retryWithBackoff(func() error {
			var err error
			zc, err = camunda.NewClientFromConfig(cfg.Camunda)
			return err
		}, 10, 2*time.Second, zapLog, "Zeebe client initialization")
		if err != nil {
			zapLog.Fatal("zeebe client failed after retries", zap.Error(err))
		}
		defer zc.Close()
		publisher = camunda.NewZeebePublisher(zc, cfg.Camunda.ProcessID, log)
		zapLog.Info("Zeebe client connected successfully")
	}

	files := storage.NewOS(cfg.Uploads)
	svc := service.New(service.Deps{
		Store:      repository.New(pg.DB),
		Cache:      cache.New(rdb.Client, cfg.Cache, log),
		Publisher:  publisher,
		Sessions:   session.NewStore(rdb.Client, time.Duration(cfg.Auth.SessionTTL)*time.Minute),
		Storage:    files,
		Search:     searcher,
		Logger:     log,
		BcryptCost: cfg.Auth.BcryptCost,
	})

	ready := func(ctx context.Context) error {
		if err := pg.Ping(ctx); err != nil {
			return fmt.Errorf("postgres: %w", err)
		}
		if err := rdb.Ping(ctx); err != nil {
			return fmt.Errorf("redis: %w", err)
		}
		if zc != nil {
			if err := zc.HealthCheck(ctx); err != nil {
				return fmt.Errorf("zeebe: %w", err)
			}
		}
		return nil
	}

	srv := api.NewServer(api.Options{
		Service:        svc,
		Storage:        files,
		Redis:          rdb.Client,
		Server:         cfg.Server,
		IdempotencyTTL: time.Duration(cfg.Auth.IdempotencyTTL) * time.Minute,
		Ready:          ready,
		Logger:         log,
	})

	httpServer := &http.Server{
		Addr:              cfg.Server.Address,
		Handler:           srv.Handler(),
		ReadTimeout:       config.GetDuration(cfg.Server.ReadTimeout),
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      config.GetDuration(cfg.Server.WriteTimeout),
		IdleTimeout:       2 * time.Minute,
	}
	go func() {
		zapLog.Info("API server listening", zap.String("address", cfg.Server.Address))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			zapLog.Fatal("API server failed", zap.Error(err))
		}
	}()

	var opsServer *http.Server
	if cfg.Server.OpsAddress != "" && cfg.Server.OpsAddress != cfg.Server.Address {
		opsServer = &http.Server{
			Addr:              cfg.Server.OpsAddress,
			Handler:           api.OpsHandler(ready),
			ReadHeaderTimeout: 5 * time.Second,
		}
		go func() {
			zapLog.Info("Health/Metrics server listening", zap.String("address", cfg.Server.OpsAddress))
			if err := opsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				zapLog.Error("Health/Metrics server failed", zap.Error(err))
			}
		}()
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	zapLog.Info("Shutdown signal received, draining requests...")
	timeout := config.GetDuration(cfg.Server.ShutdownTimeout)
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		zapLog.Error("API server shutdown failed", zap.Error(err))
	}
	if opsServer != nil {
		if err := opsServer.Shutdown(shutdownCtx); err != nil {
			zapLog.Error("Health/Metrics server shutdown failed", zap.Error(err))
		}
	}

	zapLog.Info("Portal API stopped gracefully")
}
