// cmd/connector-manager/main.go
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"hub-connectors/internal/common/camunda"
	"hub-connectors/internal/common/config"
	"hub-connectors/internal/common/database"
	httpclient "hub-connectors/internal/common/http"
	"hub-connectors/internal/common/logger"
	"hub-connectors/internal/common/observability"
	"hub-connectors/internal/common/validation"
	"hub-connectors/internal/connectors"
	"hub-connectors/internal/connectors/jira"
	"hub-connectors/internal/dedup"
	"hub-connectors/internal/server"
	bc "hub-connectors/internal/workers/cards/build-card"
	"hub-connectors/pkg/registry"
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

	zapLog := logger.New(cfg.Logging.Level, cfg.Logging.Format)
	defer zapLog.Sync()
	log := logger.NewZapAdapter(zapLog)

	zapLog.Info("Starting connector manager...",
		zap.String("version", cfg.App.Version),
		zap.String("environment", cfg.App.Environment),
	)

	obs, err := observability.New(cfg.App.Name)
	if err != nil {
		zapLog.Fatal("observability init failed", zap.Error(err))
	}

	ctx := context.Background()

	// --- Init Redis with retry ---
	var redis *database.RedisClient
	store := dedup.NewStore(nil, dedup.Config{}, log)
	if cfg.Dedup.Enabled {
		var rtt time.Duration
		err = retryWithBackoff(func() error {
			var err error
			redis, rtt, err = database.ConnectRedis(ctx, cfg.Database.Redis)
			return err
		}, 10, 2*time.Second, zapLog, "Redis connection")

		if err != nil {
			zapLog.Fatal("redis failed after retries", zap.Error(err))
		}
		defer redis.Close()
		zapLog.Info("Redis connected successfully", zap.Duration("rtt", rtt))

		store = dedup.NewStore(redis.GetClient(), dedup.Config{
			TTL:       config.GetDuration(cfg.Dedup.TTL),
			KeyPrefix: cfg.Dedup.KeyPrefix,
		}, log)
	}

	validator, err := validation.NewCardValidator()
	if err != nil {
		zapLog.Fatal("card schema failed to compile", zap.Error(err))
	}

	// --- Connectors ---
	conns := connectors.NewRegistry()
	var actions server.IssueActions
	if cfg.Connectors.Jira.Enabled {
		jc := cfg.Connectors.Jira
		conn, err := jira.New(jira.Config{
			BaseURL:       jc.BaseURL,
			Email:         jc.Email,
			APIToken:      jc.APIToken,
			Projects:      jc.Projects,
			JQL:           jc.JQL,
			FetchSize:     jc.FetchSize,
			Timeout:       config.GetDuration(jc.Timeout),
			CardTTL:       config.GetDuration(jc.CardTTL),
			ActionBaseURL: cfg.App.BaseURL,
			Breaker: httpclient.BreakerSettings{
				MaxFailures:      cfg.Breaker.MaxFailures,
				Interval:         config.GetDuration(cfg.Breaker.Interval),
				OpenTimeout:      config.GetDuration(cfg.Breaker.OpenTimeout),
				HalfOpenRequests: cfg.Breaker.HalfOpenRequests,
			},
		}, log)
		if err != nil {
			zapLog.Fatal("jira connector init failed", zap.Error(err))
		}
		conns.Register(conn)
		actions = conn
		zapLog.Info("Jira connector enabled", zap.String("baseUrl", jc.BaseURL))
	}

	var discovery *registry.Discovery
	if cfg.Server.DiscoveryPath != "" {
		discovery, err = registry.LoadDiscovery(cfg.Server.DiscoveryPath)
		if err != nil {
			zapLog.Warn("discovery metadata not loaded", zap.String("path", cfg.Server.DiscoveryPath), zap.Error(err))
		}
	}

	// --- Init Zeebe Client with retry ---
	var zeebe *camunda.Client
	if cfg.Camunda.Enabled {
		err = retryWithBackoff(func() error {
			var err error
			zeebe, err = camunda.Connect(ctx, cfg.Camunda, log)
			return err
		}, 10, 2*time.Second, zapLog, "Zeebe client initialization")

		if err != nil {
			zapLog.Fatal("zeebe client failed after retries", zap.Error(err))
		}
		zapLog.Info("Zeebe client connected successfully")

		wcfg := config.GetWorkerConfig(cfg, bc.TaskType)
		handler := bc.NewHandler(
			&bc.Config{Timeout: config.GetDuration(wcfg.Timeout), Strict: cfg.Connectors.Strict},
			validator, obs, log,
		)
		zeebe.StartWorker(bc.TaskType, wcfg, handler.Handle)
	}

	// --- HTTP Server ---
	srv := server.New(cfg.Server, cfg.App.BaseURL, server.Deps{
		Connectors:       conns,
		DefaultConnector: jira.Name,
		Actions:          actions,
		Dedup:            store,
		Validator:        validator,
		Discovery:        discovery,
		Observability:    obs,
		Ready: func(ctx context.Context) error {
			if redis != nil {
				if err := redis.Ping(ctx); err != nil {
					return err
				}
			}
			if zeebe != nil {
				return zeebe.HealthCheck(ctx)
			}
			return nil
		},
		Logger: log,
	})

	go func() {
		if err := srv.Start(); err != nil {
			zapLog.Fatal("HTTP server failed", zap.Error(err))
		}
	}()

	// --- Graceful Shutdown ---
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	zapLog.Info("Shutdown signal received, stopping...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeoutDuration())
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		zapLog.Error("Error stopping HTTP server", zap.Error(err))
	}
	if zeebe != nil {
		if err := zeebe.Close(); err != nil {
			zapLog.Error("Error closing Zeebe client", zap.Error(err))
		}
	}
	if err := obs.Shutdown(shutdownCtx); err != nil {
		zapLog.Error("Error flushing metrics", zap.Error(err))
	}

	zapLog.Info("Connector manager stopped gracefully")
}
