package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/gatherly/rsvp-admission/internal/di"
	"github.com/gatherly/rsvp-admission/internal/metrics"
	"github.com/gatherly/rsvp-admission/internal/repository"
	"github.com/gatherly/rsvp-admission/internal/service"
	"github.com/gatherly/rsvp-admission/internal/worker"
	"github.com/gatherly/rsvp-admission/pkg/config"
	"github.com/gatherly/rsvp-admission/pkg/database"
	"github.com/gatherly/rsvp-admission/pkg/logger"
	"github.com/gatherly/rsvp-admission/pkg/middleware"
	pkgredis "github.com/gatherly/rsvp-admission/pkg/redis"
	"github.com/gatherly/rsvp-admission/pkg/telemetry"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Initialize logger
	logCfg := &logger.Config{
		Level:       cfg.App.Environment,
		ServiceName: "rsvp-admission",
		Development: cfg.IsDevelopment(),
	}
	if err := logger.Init(logCfg); err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer logger.Sync()

	appLog := logger.Get()
	appLog.Info("Starting RSVP Admission Service...")

	ctx := context.Background()

	// Initialize tracing
	if _, err := telemetry.Init(ctx, &telemetry.Config{
		Enabled:        cfg.OTel.Enabled,
		ServiceName:    cfg.OTel.ServiceName,
		ServiceVersion: cfg.App.Version,
		Environment:    cfg.App.Environment,
		CollectorAddr:  cfg.OTel.CollectorAddr,
	}); err != nil {
		appLog.Warn(fmt.Sprintf("Telemetry init failed, continuing without tracing: %v", err))
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = telemetry.Shutdown(shutdownCtx)
	}()

	if err := metrics.Init(); err != nil {
		appLog.Warn(fmt.Sprintf("Metrics init failed: %v", err))
	}

	// Initialize database connection
	dbCfg := &database.PostgresConfig{
		Host:            cfg.Database.Host,
		Port:            cfg.Database.Port,
		User:            cfg.Database.User,
		Password:        cfg.Database.Password,
		Database:        cfg.Database.DBName,
		SSLMode:         cfg.Database.SSLMode,
		MaxConns:        int32(cfg.Database.MaxOpenConns),
		MinConns:        int32(cfg.Database.MaxIdleConns),
		MaxConnLifetime: cfg.Database.ConnMaxLifetime,
		MaxConnIdleTime: cfg.Database.ConnMaxIdleTime,
		ConnectTimeout:  5 * time.Second,
		MaxRetries:      3,
		RetryInterval:   time.Second,
		EnableTracing:   cfg.OTel.Enabled,
	}
	db, err := database.NewPostgres(ctx, dbCfg)
	if err != nil {
		appLog.Fatal(fmt.Sprintf("Database connection failed: %v", err))
	}
	defer db.Close()
	appLog.Info(fmt.Sprintf("Database connected (pool: min=%d, max=%d)", dbCfg.MinConns, dbCfg.MaxConns))

	// Initialize Redis connection
	redisCfg := &pkgredis.Config{
		Host:          cfg.Redis.Host,
		Port:          cfg.Redis.Port,
		Password:      cfg.Redis.Password,
		DB:            cfg.Redis.DB,
		PoolSize:      cfg.Redis.PoolSize,
		MinIdleConns:  cfg.Redis.MinIdleConns,
		DialTimeout:   cfg.Redis.DialTimeout,
		ReadTimeout:   cfg.Redis.ReadTimeout,
		WriteTimeout:  cfg.Redis.WriteTimeout,
		MaxRetries:    3,
		RetryInterval: 100 * time.Millisecond,
	}
	redisClient, err := pkgredis.NewClient(ctx, redisCfg)
	if err != nil {
		appLog.Fatal(fmt.Sprintf("Redis connection failed: %v", err))
	}
	defer redisClient.Close()
	appLog.Info("Redis connected")

	// Initialize Kafka event publisher
	var eventPublisher service.EventPublisher
	if cfg.Kafka.Enabled {
		eventPublisher, err = service.NewKafkaEventPublisher(ctx, &service.EventPublisherConfig{
			Brokers:  cfg.Kafka.Brokers,
			Topic:    cfg.Kafka.Topic,
			ClientID: cfg.Kafka.ClientID,
		})
		if err != nil {
			appLog.Warn(fmt.Sprintf("Kafka connection failed, using no-op publisher: %v", err))
			eventPublisher = service.NewNoOpEventPublisher()
		} else {
			appLog.Info("Kafka event publisher connected")
		}
	} else {
		eventPublisher = service.NewNoOpEventPublisher()
	}
	defer eventPublisher.Close()

	// Initialize repositories
	eventRepo := repository.NewPostgresEventRepository(db.Pool())
	attendeeRepo := repository.NewPostgresAttendeeRepository(db.Pool())
	waitlistRepo := repository.NewPostgresWaitlistRepository(db.Pool())

	// Build dependency injection container
	container := di.NewContainer(&di.ContainerConfig{
		Version:        cfg.App.Version,
		DB:             db,
		Redis:          redisClient,
		EventRepo:      eventRepo,
		AttendeeRepo:   attendeeRepo,
		WaitlistRepo:   waitlistRepo,
		EventPublisher: eventPublisher,
		AdmissionConfig: &service.AdmissionServiceConfig{
			PromotionPolicy:      service.PromotionPolicy(cfg.Admission.PromotionPolicy),
			NotifyResponseWindow: cfg.Admission.NotifyResponseWindow,
		},
	})

	// Start the notification sweep worker
	sweeper := worker.NewSweepWorker(container.AdmissionService, &worker.SweepWorkerConfig{
		ScanInterval: cfg.Admission.SweepInterval,
		BatchSize:    cfg.Admission.SweepBatchSize,
	})
	if err := sweeper.Start(ctx); err != nil {
		appLog.Fatal(fmt.Sprintf("Failed to start sweep worker: %v", err))
	}
	defer sweeper.Stop()

	// Setup Gin
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(telemetry.TracingMiddleware(cfg.OTel.ServiceName))

	// Health check endpoints
	router.GET("/health", container.HealthHandler.Liveness)
	router.GET("/health/ready", container.HealthHandler.Readiness)

	// Idempotency middleware for write operations
	idempotencyConfig := middleware.DefaultIdempotencyConfig(redisClient.Client())
	idempotent := middleware.IdempotencyMiddleware(idempotencyConfig)

	auth := middleware.AuthMiddleware(cfg.JWT.Secret)
	organizer := middleware.RequireRole("organizer")

	// API routes
	v1 := router.Group("/api/v1")
	{
		events := v1.Group("/events")
		{
			events.GET("/:event_id/capacity", container.AdmissionHandler.GetCapacity)
			events.POST("/:event_id/join", idempotent, container.AdmissionHandler.Join)
			events.POST("/:event_id/cancel", idempotent, container.AdmissionHandler.Cancel)
			events.GET("/:event_id/waitlist", container.AdmissionHandler.ListWaitlist)
			events.GET("/:event_id/waitlist/position", container.AdmissionHandler.GetPosition)
			events.POST("/:event_id/waitlist/promote", auth, organizer, container.AdmissionHandler.Promote)
		}

		waitlist := v1.Group("/waitlist")
		{
			waitlist.POST("/:entry_id/convert", idempotent, container.AdmissionHandler.Convert)
			waitlist.DELETE("/:entry_id", idempotent, container.AdmissionHandler.Remove)
			waitlist.PATCH("/:entry_id/status", auth, organizer, container.AdmissionHandler.SetStatus)
		}

		v1.POST("/forms/evaluate", container.FormHandler.Evaluate)

		recurring := v1.Group("/events/recurring", auth)
		{
			recurring.POST("", container.RecurringHandler.CreateSeries)
			recurring.GET("", container.RecurringHandler.ListSeries)
			recurring.DELETE("/:event_id", container.RecurringHandler.DeleteSeries)
		}
	}

	// Create HTTP server
	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	// Start server in goroutine
	go func() {
		appLog.Info(fmt.Sprintf("RSVP Admission Service listening on %s", addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			appLog.Fatal(fmt.Sprintf("Failed to start server: %v", err))
		}
	}()

	// Wait for interrupt signal for graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	appLog.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		appLog.Fatal(fmt.Sprintf("Server forced to shutdown: %v", err))
	}

	appLog.Info("Server exited gracefully")
}
