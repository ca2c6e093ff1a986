// cmd/portal-worker/main.go
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"barangay-portal/internal/api"
	awsclient "barangay-portal/internal/common/aws"
	"barangay-portal/internal/common/camunda"
	"barangay-portal/internal/common/config"
	"barangay-portal/internal/common/database"
	"barangay-portal/internal/common/logger"
	"barangay-portal/internal/common/observability"
	"barangay-portal/internal/repository"
	"barangay-portal/internal/search"

	isr "barangay-portal/internal/workers/lifecycle/index-service-request"
	nr "barangay-portal/internal/workers/lifecycle/notify-resident"
	rae "barangay-portal/internal/workers/lifecycle/record-audit-event"
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

	zapLog.Info("Starting portal worker...")

	obs, err := observability.New("portal-worker", cfg.Observability.JaegerEndpoint)
	if err != nil {
		zapLog.Fatal("observability init failed", zap.Error(err))
	}
	defer obs.Shutdown()

	ctx := context.Background()

	// --- Init Zeebe Client with retry ---
	var zc *camunda.Client
	err = retryWithBackoff(func() error {
		var err error
		zc, err = camunda.NewClientFromConfig(cfg.Camunda)
		return err
	}, 10, 2*time.Second, zapLog, "Zeebe client initialization")
	if err != nil {
		zapLog.Fatal("zeebe client failed after retries", zap.Error(err))
	}
	zapLog.Info("Zeebe client connected successfully")

	// --- Init PostgreSQL with retry ---
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
	zapLog.Info("PostgreSQL connected successfully")

	repo := repository.New(pg.DB)
	var workers []*camunda.Worker

	// --- record-audit-event ---
	if wcfg := config.GetWorkerConfig(cfg, rae.TaskType); wcfg.Enabled {
		handler := rae.NewHandler(rae.LoadConfig(cfg), repo, log)
		workers = append(workers, camunda.StartWorker(zc.GetClient(), rae.TaskType, wcfg, handler, log))
	}

	// --- index-service-request ---
	if wcfg := config.GetWorkerConfig(cfg, isr.TaskType); wcfg.Enabled && cfg.Database.Elasticsearch.Enabled {
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
		zapLog.Info("Elasticsearch connected successfully")

		handler := isr.NewHandler(isr.LoadConfig(cfg), repo, index, log)
		workers = append(workers, camunda.StartWorker(zc.GetClient(), isr.TaskType, wcfg, handler, log))
	}

	// --- notify-resident ---
	if wcfg := config.GetWorkerConfig(cfg, nr.TaskType); wcfg.Enabled {
		ncfg := nr.LoadConfig(cfg)
		aws := cfg.Integrations.AWS

		var mailer nr.Mailer
		ncfg.EmailEnabled = ncfg.EmailEnabled && aws.SES.Enabled
		if ncfg.EmailEnabled {
			from := aws.SES.FromEmail
			if from == "" {
				from = cfg.Notifications.Email.FromEmail
			}
			ses, err := awsclient.NewSESClient(ctx, aws.Region, from)
			if err != nil {
				zapLog.Fatal("failed to create SES client", zap.Error(err))
			}
			mailer = ses
		}

		var texter nr.Texter
		ncfg.SMSEnabled = ncfg.SMSEnabled && aws.SNS.Enabled
		if ncfg.SMSEnabled {
			sns, err := awsclient.NewSNSClient(ctx, aws.Region, aws.SNS.DefaultSMSSenderID)
			if err != nil {
				zapLog.Fatal("failed to create SNS client", zap.Error(err))
			}
			texter = sns
		}

		handler := nr.NewHandler(ncfg, repo, mailer, texter, log)
		workers = append(workers, camunda.StartWorker(zc.GetClient(), nr.TaskType, wcfg, handler, log))
	}

	zapLog.Info("Lifecycle workers registered", zap.Int("count", len(workers)))

	ready := func(ctx context.Context) error {
		if err := pg.Ping(ctx); err != nil {
			return fmt.Errorf("postgres: %w", err)
		}
		if err := zc.HealthCheck(ctx); err != nil {
			return fmt.Errorf("zeebe: %w", err)
		}
		return nil
	}
	opsAddress := cfg.Server.OpsAddress
	if opsAddress == "" {
		opsAddress = ":8080"
	}
	opsServer := &http.Server{
		Addr:              opsAddress,
		Handler:           api.OpsHandler(ready),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		zapLog.Info("Health/Metrics server listening", zap.String("address", opsAddress))
		if err := opsServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			zapLog.Error("Health/Metrics server failed", zap.Error(err))
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	zapLog.Info("Shutdown signal received, stopping workers...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	for _, w := range workers {
		if w != nil {
			w.Close()
		}
	}
	if err := opsServer.Shutdown(shutdownCtx); err != nil {
		zapLog.Error("Health/Metrics server shutdown failed", zap.Error(err))
	}
	if err := zc.Close(); err != nil {
		zapLog.Error("Error closing Zeebe client", zap.Error(err))
	}

	zapLog.Info("Portal worker stopped gracefully")
}
