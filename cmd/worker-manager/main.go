// cmd/worker-manager/main.go
package main

import (
	"context"
	stderrors "errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"agrocredit-workers/internal/api"
	"agrocredit-workers/internal/common/camunda"
	"agrocredit-workers/internal/common/config"
	"agrocredit-workers/internal/common/database"
	"agrocredit-workers/internal/common/logger"
	"agrocredit-workers/internal/common/observability"
	"agrocredit-workers/internal/events"
	"agrocredit-workers/internal/matching"
	"agrocredit-workers/internal/pipeline"
	"agrocredit-workers/internal/scoring"
	"agrocredit-workers/internal/search"
	"agrocredit-workers/internal/store"

	cr "agrocredit-workers/internal/workers/scoring/calculate-risk-score"
	pm "agrocredit-workers/internal/workers/matching/run-partner-match"
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
	bootLog := logger.New("info", "console")

	cfg, err := config.Load()
	if err != nil {
		bootLog.Fatal("config load failed", zap.Error(err))
	}

	zapLog := logger.New(cfg.Logging.Level, cfg.Logging.Format).With(
		zap.String("service", cfg.App.Name),
		zap.String("environment", cfg.App.Environment),
	)
	defer zapLog.Sync()
	log := logger.NewZapAdapter(zapLog)

	zapLog.Info("Starting worker manager...", zap.String("version", cfg.App.Version))

	obs, err := observability.New(cfg.App.Name)
	if err != nil {
		zapLog.Fatal("observability init failed", zap.Error(err))
	}

	ctx := context.Background()
	checks := map[string]api.Pinger{}

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
	checks["postgres"] = pg
	zapLog.Info("PostgreSQL connected successfully")

	if cfg.Database.Postgres.MigrateOnStart {
		if err := database.Migrate(ctx, pg.DB); err != nil {
			zapLog.Fatal("migrations failed", zap.Error(err))
		}
		zapLog.Info("Migrations applied")
	}

	var repo store.Repository = store.NewPostgresStore(pg.DB)

	// --- Redis read cache ---
	if cfg.Cache.Enabled {
		var rdb *database.RedisClient
		err = retryWithBackoff(func() error {
			rdb = database.NewRedis(cfg.Database.Redis)
			return rdb.Ping(ctx)
		}, 10, 2*time.Second, zapLog, "Redis connection")
		if err != nil {
			zapLog.Fatal("redis failed after retries", zap.Error(err))
		}
		defer rdb.Close()
		checks["redis"] = rdb
		repo = store.NewCachedRepository(repo, rdb.Client, time.Duration(cfg.Cache.TTL)*time.Second, log)
		zapLog.Info("Redis connected successfully")
	}

	opts := []pipeline.Option{pipeline.WithObservability(obs)}

	// --- Elasticsearch match index ---
	if cfg.Search.Enabled {
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
		checks["elasticsearch"] = es
		opts = append(opts, pipeline.WithIndexer(search.NewMatchIndexer(es.Client, cfg.Search.Index)))
		zapLog.Info("Elasticsearch connected successfully")
	}

	// --- SNS domain events ---
	if cfg.Events.Enabled {
		publisher, err := events.NewSNSPublisher(ctx, cfg.Events.Region, cfg.Events.TopicARN)
		if err != nil {
			zapLog.Fatal("sns publisher init failed", zap.Error(err))
		}
		opts = append(opts, pipeline.WithPublisher(publisher))
		zapLog.Info("SNS publisher configured", zap.String("topicArn", cfg.Events.TopicARN))
	}

	svc := pipeline.NewService(
		repo,
		scoring.NewEngine(scoring.DefaultWeights(), scoring.WithValidity(cfg.Scoring.Validity())),
		matching.NewEngine(matching.DefaultWeights(), matching.WithMinScoreExclusive(cfg.Matching.MinScoreExclusive)),
		log,
		opts...,
	)

	// --- Zeebe ---
	var zb *camunda.Client
	err = retryWithBackoff(func() error {
		var err error
		zb, err = camunda.NewClient(ctx, cfg.Camunda)
		return err
	}, 10, 2*time.Second, zapLog, "Zeebe client initialization")
	if err != nil {
		zapLog.Fatal("zeebe client failed after retries", zap.Error(err))
	}
	checks["zeebe"] = zb
	zapLog.Info("Zeebe client connected successfully")

	workers := camunda.NewWorkerGroup(zb.Zeebe(), zapLog)

	scoreHandler, err := cr.NewHandler(cr.HandlerOptions{AppConfig: cfg, Runner: svc, Logger: log})
	if err != nil {
		zapLog.Fatal("failed to create calculate-risk-score handler", zap.Error(err))
	}
	workers.Start(cr.TaskType, config.GetWorkerConfig(cfg, cr.TaskType), scoreHandler.Handle)

	matchHandler, err := pm.NewHandler(pm.HandlerOptions{AppConfig: cfg, Runner: svc, Logger: log})
	if err != nil {
		zapLog.Fatal("failed to create run-partner-match handler", zap.Error(err))
	}
	workers.Start(pm.TaskType, config.GetWorkerConfig(cfg, pm.TaskType), matchHandler.Handle)

	zapLog.Info("Workers registered", zap.Strings("taskTypes", workers.TaskTypes()))

	// --- HTTP API, health & metrics ---
	srv := &http.Server{
		Addr:         cfg.HTTP.Address,
		Handler:      api.NewRouter(api.NewHandler(svc, zb, log), checks, log),
		ReadTimeout:  config.GetDuration(cfg.HTTP.ReadTimeout),
		WriteTimeout: config.GetDuration(cfg.HTTP.WriteTimeout),
	}
	go func() {
		zapLog.Info("HTTP server listening", zap.String("address", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !stderrors.Is(err, http.ErrServerClosed) {
			zapLog.Error("HTTP server failed", zap.Error(err))
		}
	}()

	// --- Graceful Shutdown ---
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	zapLog.Info("Shutdown signal received, stopping workers...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		zapLog.Error("Error stopping HTTP server", zap.Error(err))
	}
	workers.Close()
	if err := zb.Close(); err != nil {
		zapLog.Error("Error closing Zeebe client", zap.Error(err))
	}
	if err := obs.Shutdown(shutdownCtx); err != nil {
		zapLog.Error("Error flushing telemetry", zap.Error(err))
	}

	zapLog.Info("Worker manager stopped gracefully")
}
