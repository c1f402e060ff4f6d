// Standalone waitlist sweeper. Expires overdue notifications and promotes
// the next waiting entry without running the HTTP API. Useful when the
// sweep cadence needs to be managed separately from the API deployment.
package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gatherly/rsvp-admission/internal/repository"
	"github.com/gatherly/rsvp-admission/internal/service"
	"github.com/gatherly/rsvp-admission/internal/worker"
	"github.com/gatherly/rsvp-admission/pkg/config"
	"github.com/gatherly/rsvp-admission/pkg/database"
	"github.com/gatherly/rsvp-admission/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	if err := logger.Init(&logger.Config{
		Level:       cfg.App.Environment,
		ServiceName: "waitlist-sweeper",
		Development: cfg.IsDevelopment(),
	}); err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer logger.Sync()

	appLog := logger.Get()
	appLog.Info("Starting waitlist sweeper...")

	ctx := context.Background()

	dbCfg := database.DefaultPostgresConfig()
	dbCfg.Host = cfg.Database.Host
	dbCfg.Port = cfg.Database.Port
	dbCfg.User = cfg.Database.User
	dbCfg.Password = cfg.Database.Password
	dbCfg.Database = cfg.Database.DBName
	dbCfg.SSLMode = cfg.Database.SSLMode
	db, err := database.NewPostgres(ctx, dbCfg)
	if err != nil {
		appLog.Fatal(fmt.Sprintf("Database connection failed: %v", err))
	}
	defer db.Close()

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
		}
	} else {
		eventPublisher = service.NewNoOpEventPublisher()
	}
	defer eventPublisher.Close()

	admissionService := service.NewAdmissionService(
		repository.NewPostgresEventRepository(db.Pool()),
		repository.NewPostgresAttendeeRepository(db.Pool()),
		repository.NewPostgresWaitlistRepository(db.Pool()),
		eventPublisher,
		&service.AdmissionServiceConfig{
			PromotionPolicy:      service.PromotionPolicy(cfg.Admission.PromotionPolicy),
			NotifyResponseWindow: cfg.Admission.NotifyResponseWindow,
		},
	)

	sweeper := worker.NewSweepWorker(admissionService, &worker.SweepWorkerConfig{
		ScanInterval: cfg.Admission.SweepInterval,
		BatchSize:    cfg.Admission.SweepBatchSize,
	})
	if err := sweeper.Start(ctx); err != nil {
		appLog.Fatal(fmt.Sprintf("Failed to start sweep worker: %v", err))
	}

	appLog.Info(fmt.Sprintf("Waitlist sweeper running (interval: %s, batch: %d)",
		cfg.Admission.SweepInterval, cfg.Admission.SweepBatchSize))

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	appLog.Info("Shutting down waitlist sweeper...")
	sweeper.Stop()

	stats := sweeper.GetStats()
	appLog.Info(fmt.Sprintf("Sweeper stopped (total expired: %d, last scan: %s)",
		stats.TotalExpired, stats.LastScanTime.Format(time.RFC3339)))
}
