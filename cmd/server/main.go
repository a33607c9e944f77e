// cmd/server/main.go
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"weather-notify/internal/api"
	"weather-notify/internal/common/config"
	"weather-notify/internal/common/database"
	"weather-notify/internal/common/httpx"
	"weather-notify/internal/common/logger"
	"weather-notify/internal/fanout"
	"weather-notify/internal/scheduler"
	"weather-notify/internal/store"
	"weather-notify/internal/weather"
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

	// Wrap zap logger with our logger interface
	log := logger.NewZapAdapter(zapLog)

	zapLog.Info("Starting weather-notify server...",
		zap.String("version", cfg.App.Version),
		zap.String("environment", cfg.App.Environment),
	)

	ctx := context.Background()

	// --- Init Redis with retry ---
	var redisClient *database.RedisClient
	err = retryWithBackoff(func() error {
		var err error
		redisClient, err = database.NewRedis(cfg.Redis)
		if err != nil {
			return err
		}
		return redisClient.Ping(ctx)
	}, 10, 2*time.Second, zapLog, "Redis connection")

	if err != nil {
		zapLog.Fatal("redis failed after retries", zap.Error(err))
	}
	defer redisClient.Close()
	zapLog.Info("Redis connected successfully")

	recipientStore := store.NewRedisStore(redisClient.Client, log)

	// --- Weather provider client ---
	weatherHTTP := httpx.NewClient("open-meteo",
		time.Duration(cfg.Weather.Timeout)*time.Millisecond,
		httpx.BackoffConfig{
			MaxRetries:      cfg.Weather.MaxRetries,
			InitialInterval: 200 * time.Millisecond,
			MaxInterval:     2 * time.Second,
		},
	)
	weatherClient := weather.NewClient(cfg.Weather.ForecastURL, cfg.Weather.GeocodeURL, weatherHTTP)

	// --- Push dispatcher ---
	pushHTTP := &http.Client{Timeout: time.Duration(cfg.Push.Timeout) * time.Millisecond}
	limiter := rate.NewLimiter(rate.Limit(cfg.Fanout.BatchesPerSecond), 1)
	dispatcher := fanout.NewDispatcher(pushHTTP, limiter, recipientStore, log)

	orchestrator := fanout.NewOrchestrator(
		fanout.Config{
			BatchLimit: cfg.Fanout.BatchLimit,
			ScanLimit:  cfg.Fanout.ScanLimit,
			AppBaseURL: cfg.App.BaseURL,
		},
		recipientStore, weatherClient, dispatcher, log,
	)

	// --- HTTP surface ---
	app := api.NewApp(cfg.App.Name)
	handler := api.NewHandler(recipientStore, weatherClient, orchestrator, cfg.Scheduler.CronKey, log)
	handler.Register(app)

	go func() {
		if err := app.Listen(cfg.Server.ListenAddr); err != nil {
			zapLog.Fatal("http server failed", zap.Error(err))
		}
	}()
	zapLog.Info("HTTP server listening", zap.String("addr", cfg.Server.ListenAddr))

	// --- Metrics server ---
	metricsMux := http.NewServeMux()
	metricsMux.Handle("/metrics", promhttp.Handler())
	metricsSrv := &http.Server{Addr: cfg.Server.MetricsAddr, Handler: metricsMux}
	go func() {
		if err := metricsSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			zapLog.Error("metrics server failed", zap.Error(err))
		}
	}()
	zapLog.Info("Metrics server listening", zap.String("addr", cfg.Server.MetricsAddr))

	// --- Daily trigger ---
	var sched *scheduler.Scheduler
	if cfg.Scheduler.Enabled {
		sched = scheduler.New(orchestrator, cfg.Scheduler.Hour, log)
		if err := sched.Start(); err != nil {
			zapLog.Fatal("scheduler start failed", zap.Error(err))
		}
		zapLog.Info("Scheduler started", zap.Int("hourUTC", cfg.Scheduler.Hour))
	}

	// --- Graceful shutdown ---
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig

	zapLog.Info("Shutting down...")
	if sched != nil {
		sched.Stop()
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		zapLog.Error("http shutdown failed", zap.Error(err))
	}
	if err := metricsSrv.Shutdown(shutdownCtx); err != nil {
		zapLog.Error("metrics shutdown failed", zap.Error(err))
	}

	zapLog.Info("Shutdown complete")
}
