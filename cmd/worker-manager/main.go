// cmd/worker-manager/main.go
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/automaxprocs/maxprocs"
	"go.uber.org/zap"

	"car-recommender/internal/common/camunda"
	"car-recommender/internal/common/config"
	"car-recommender/internal/common/database"
	"car-recommender/internal/common/logger"
	"car-recommender/internal/common/observability"
	"car-recommender/internal/history"
	"car-recommender/internal/recommender"

	rr "car-recommender/internal/workers/recommendation/request-recommendations"
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

	if _, err := maxprocs.Set(maxprocs.Logger(zapLog.Sugar().Infof)); err != nil {
		zapLog.Warn("failed to set GOMAXPROCS", zap.Error(err))
	}

	zapLog.Info("Starting worker manager...",
		zap.String("app", cfg.App.Name),
		zap.String("version", cfg.App.Version),
		zap.String("endpoint", cfg.Recommender.Endpoint),
	)

	obs, err := observability.New("worker-manager")
	if err != nil {
		zapLog.Warn("observability disabled", zap.Error(err))
	}
	defer obs.Shutdown()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// --- Init Zeebe Client with retry ---
	var zeebe *camunda.Client
	err = retryWithBackoff(func() error {
		var err error
		zeebe, err = camunda.NewClientWithConfig(ctx, camunda.ConfigFrom(cfg.Camunda))
		return err
	}, 10, 2*time.Second, zapLog, "Zeebe client initialization")
	if err != nil {
		zapLog.Fatal("zeebe client failed after retries", zap.Error(err))
	}
	zapLog.Info("Zeebe client connected successfully")

	// --- Optional Redis history ---
	var recorder recommender.Recorder
	var redis *database.RedisClient
	if cfg.History.Enabled {
		redis = database.NewRedis(cfg.Database.Redis)
		err = retryWithBackoff(func() error {
			return redis.Ping(ctx)
		}, 5, time.Second, zapLog, "Redis connection")
		if err != nil {
			zapLog.Warn("history disabled, redis unavailable", zap.Error(err))
			_ = redis.Close()
			redis = nil
		} else {
			recorder = history.NewStore(redis, cfg.History, log)
			zapLog.Info("Redis connected successfully")
		}
	}

	// --- Workers ---
	recClient := recommender.NewClient(recommender.LoadConfig(cfg.Recommender), log)

	var workers []*camunda.CamundaWorker
	if config.IsWorkerEnabled(cfg, rr.TaskType) {
		handler := rr.NewHandler(rr.HandlerOptions{
			Config:    rr.LoadConfig(cfg),
			Client:    recClient,
			Recorder:  recorder,
			Telemetry: obs,
			Logger:    &workerLoggerAdapter{log.With(map[string]interface{}{"taskType": rr.TaskType})},
		})
		workers = append(workers, startWorker(zeebe, rr.TaskType, config.GetWorkerConfig(cfg, rr.TaskType), handler, zapLog))
	} else {
		zapLog.Info("worker disabled", zap.String("taskType", rr.TaskType))
	}
	zapLog.Info("workers registered", zap.Int("count", len(workers)))

	// --- Health & Metrics Server ---
	var srv *http.Server
	if cfg.Metrics.Enabled {
		srv = newOpsServer(cfg.Metrics.Address, zeebe, zapLog)
		go func() {
			zapLog.Info("Health/Metrics server listening", zap.String("address", cfg.Metrics.Address))
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				zapLog.Error("Health/Metrics server failed", zap.Error(err))
			}
		}()
	}

	// --- Graceful Shutdown ---
	<-ctx.Done()
	zapLog.Info("Shutdown signal received, stopping workers...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	for _, w := range workers {
		w.Stop()
	}
	if srv != nil {
		if err := srv.Shutdown(shutdownCtx); err != nil {
			zapLog.Error("Error stopping Health/Metrics server", zap.Error(err))
		}
	}
	if redis != nil {
		_ = redis.Close()
	}
	if err := zeebe.Close(); err != nil {
		zapLog.Error("Error closing Zeebe client", zap.Error(err))
	}

	zapLog.Info("Worker manager stopped gracefully")
}

func newOpsServer(addr string, zeebe *camunda.Client, log *zap.Logger) *http.Server {
	mux := http.NewServeMux()
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		writeStatus(w, http.StatusOK, "healthy")
	})
	mux.HandleFunc("/ready", func(w http.ResponseWriter, r *http.Request) {
		if err := zeebe.HealthCheck(r.Context()); err != nil {
			log.Warn("readiness check failed", zap.Error(err))
			writeStatus(w, http.StatusServiceUnavailable, "unavailable")
			return
		}
		writeStatus(w, http.StatusOK, "ready")
	})
	mux.Handle("/metrics", promhttp.Handler())

	return &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
}

func writeStatus(w http.ResponseWriter, code int, status string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(map[string]string{
		"status": status,
		"time":   time.Now().Format(time.RFC3339),
	})
}

// workerLoggerAdapter narrows logger.Logger to the worker's own interface.
type workerLoggerAdapter struct {
	logger.Logger
}

var _ rr.Logger = (*workerLoggerAdapter)(nil)

func startWorker(client *camunda.Client, taskType string, wcfg config.WorkerConfig, handler camunda.JobHandler, log *zap.Logger) *camunda.CamundaWorker {
	return camunda.NewWorker(
		client.GetClient(),
		taskType,
		wcfg.MaxJobsActive,
		config.GetDuration(wcfg.Timeout),
		handler,
		log,
	)
}
