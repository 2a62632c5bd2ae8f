package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"
	"log/slog"

	"github.com/guardiavault-oss/Paradexx-sub007/libs/health"
	"github.com/guardiavault-oss/Paradexx-sub007/libs/httpmiddleware"
	"github.com/guardiavault-oss/Paradexx-sub007/libs/kafka"
	"github.com/guardiavault-oss/Paradexx-sub007/libs/logging"
	"github.com/guardiavault-oss/Paradexx-sub007/libs/metrics"
	"github.com/guardiavault-oss/Paradexx-sub007/libs/trace"
	"github.com/guardiavault-oss/Paradexx-sub007/services/vault/internal/clock"
	"github.com/guardiavault-oss/Paradexx-sub007/services/vault/internal/config"
	"github.com/guardiavault-oss/Paradexx-sub007/services/vault/internal/consumer"
	"github.com/guardiavault-oss/Paradexx-sub007/services/vault/internal/distribution"
	"github.com/guardiavault-oss/Paradexx-sub007/services/vault/internal/handlers"
	"github.com/guardiavault-oss/Paradexx-sub007/services/vault/internal/monitor"
	"github.com/guardiavault-oss/Paradexx-sub007/services/vault/internal/notify"
	"github.com/guardiavault-oss/Paradexx-sub007/services/vault/internal/rate"
	"github.com/guardiavault-oss/Paradexx-sub007/services/vault/internal/service"
	"github.com/guardiavault-oss/Paradexx-sub007/services/vault/internal/storage"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config error: %v\n", err)
		os.Exit(1)
	}

	logger := logging.NewLogger(cfg.App.LogLevel, cfg.App.ServiceName, cfg.App.Env)
	shutdownTracer, err := trace.InitTracer(cfg.App.ServiceName, cfg.App.Env)
	if err != nil {
		logger.Error("tracer init failed", "error", err)
	} else {
		defer func() {
			_ = shutdownTracer(context.Background())
		}()
	}

	if cfg.App.Env == "dev" {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector())
	registry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	metrics.Register(registry)

	serviceMetrics := service.NewMetrics(registry)
	monitorMetrics := monitor.NewMetrics(registry)
	distributionMetrics := distribution.NewMetrics(registry)
	notifyMetrics := notify.NewMetrics(registry)
	kafkaMetrics := kafka.NewProducerMetrics(registry)

	ready := health.NewManager(false)

	pool, err := connectDB(cfg)
	if err != nil {
		logger.Error("db connection failed", "error", err)
		os.Exit(1)
	}
	defer pool.Close()

	producer, err := kafka.NewSyncProducer(cfg.Kafka.Brokers, logger, kafkaMetrics)
	if err != nil {
		logger.Error("kafka producer init failed", "error", err)
		os.Exit(1)
	}
	defer producer.Close()
	publisher := kafka.Publisher(producer)
	if strings.TrimSpace(cfg.Kafka.Topics.DeadLetter) != "" {
		publisher = kafka.NewDLQPublisher(producer, producer, cfg.Kafka.Topics.DeadLetter, logger)
	}

	consumerGroup, err := kafka.NewConsumer(cfg.Kafka.Brokers, cfg.Kafka.ConsumerGroup, logger)
	if err != nil {
		logger.Error("kafka consumer init failed", "error", err)
		os.Exit(1)
	}
	consumerGroup.WithDLQ(producer, cfg.Kafka.Topics.DeadLetter)
	defer consumerGroup.Close()

	store := storage.New(pool)
	clk := clock.System()
	notifier := notify.New(publisher, cfg.Kafka.Topics.Notifications, logger, notifyMetrics)
	trigger := distribution.NewTrigger(publisher, cfg.Kafka.Topics.DistributionRequest, logger, distributionMetrics)

	vaultService := service.New(store, trigger, notifier, clk, logger, serviceMetrics, service.Config{
		DefaultQuorumBps:    cfg.Vault.DefaultQuorumBps,
		DefaultBypassWindow: cfg.Vault.DefaultBypassWindow,
	})

	vaultMonitor := monitor.New(store, trigger, notifier, clk, logger, monitorMetrics, monitor.Config{
		SweepInterval: cfg.Monitor.SweepInterval,
		SweepTimeout:  cfg.Monitor.SweepTimeout,
		MaxConcurrent: cfg.Monitor.MaxConcurrent,
		BatchSize:     cfg.Monitor.BatchSize,
		BackoffBase:   cfg.Monitor.BackoffBase,
		BackoffMax:    cfg.Monitor.BackoffMax,
	})

	reconciler := distribution.NewReconciler(store, trigger, cfg.Reconciler.Interval, cfg.Reconciler.RetryAfter, cfg.Reconciler.BatchSize, logger, distributionMetrics)

	var limiter rate.Limiter
	if cfg.RateLimit.Enabled {
		redisClient := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer redisClient.Close()

		pingCtx, cancelPing := context.WithTimeout(context.Background(), 2*time.Second)
		err = redisClient.Ping(pingCtx).Err()
		cancelPing()
		if err != nil {
			logger.Warn("redis unavailable, using in-memory rate limiter", "error", err)
			limiter = rate.NewMemory(cfg.RateLimit.Limit, cfg.RateLimit.Window)
		} else {
			limiter = rate.NewRedis(redisClient, cfg.RateLimit.Limit, cfg.RateLimit.Window, "")
		}
	}

	handler := handlers.New(vaultService, logger, limiter, cfg.ExecutorKeyHash)
	httpServer := buildHTTPServer(cfg, ready, registry, logger, handler)

	resultConsumer := consumer.NewResultConsumer(vaultService, logger)

	ready.SetReady(true)

	workerCtx, workerCancel := context.WithCancel(context.Background())
	defer workerCancel()

	go func() {
		logger.Info("vault http starting", "addr", httpServer.Addr)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("http server error", "error", err)
		}
	}()

	go vaultMonitor.Run(workerCtx)
	go reconciler.Run(workerCtx)

	go func() {
		logger.Info("vault consumer starting", "topic", cfg.Kafka.Topics.DistributionResults)
		if err := consumerGroup.Consume(workerCtx, []string{cfg.Kafka.Topics.DistributionResults}, resultConsumer); err != nil {
			logger.Error("kafka consumer error", "error", err)
		}
	}()

	waitForShutdown(httpServer, ready, workerCancel, logger)
}

func connectDB(cfg *config.Config) (*pgxpool.Pool, error) {
	connStr := fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		cfg.DB.User,
		cfg.DB.Password,
		cfg.DB.Host,
		cfg.DB.Port,
		cfg.DB.Name,
		cfg.DB.SSLMode,
	)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	pool, err := pgxpool.New(ctx, connStr)
	if err != nil {
		return nil, err
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return pool, nil
}

func buildHTTPServer(cfg *config.Config, ready *health.Manager, registry *prometheus.Registry, logger *slog.Logger, handler *handlers.Handler) *http.Server {
	router := gin.New()
	router.Use(httpmiddleware.RequestID())
	router.Use(httpmiddleware.Logger(logger))
	router.Use(httpmiddleware.Recovery(logger))
	router.Use(trace.Middleware(cfg.App.ServiceName))

	router.GET("/healthz", health.LivenessHandler)
	router.GET("/readyz", health.ReadinessHandler(ready))
	router.GET(cfg.App.MetricsPath, gin.WrapH(metrics.Handler(registry)))

	handler.Register(router, []byte(cfg.JWTSecret))

	addr := fmt.Sprintf("%s:%d", cfg.App.HTTP.Host, cfg.App.HTTP.Port)
	return &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  cfg.App.HTTP.ReadTimeout,
		WriteTimeout: cfg.App.HTTP.WriteTimeout,
		IdleTimeout:  cfg.App.HTTP.IdleTimeout,
	}
}

func waitForShutdown(httpServer *http.Server, ready *health.Manager, cancel context.CancelFunc, logger *slog.Logger) {
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	logger.Info("shutdown started")
	ready.SetReady(false)
	cancel()

	ctx, cancelTimeout := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancelTimeout()

	if err := httpServer.Shutdown(ctx); err != nil {
		logger.Error("http shutdown error", "error", err)
	}
	logger.Info("shutdown complete")
}
