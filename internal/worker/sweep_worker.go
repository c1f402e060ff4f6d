package worker

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/gatherly/rsvp-admission/internal/service"
	"github.com/gatherly/rsvp-admission/pkg/logger"
)

// SweepWorkerConfig contains configuration for the notification sweep worker
type SweepWorkerConfig struct {
	// ScanInterval is the interval between sweeps for overdue notifications
	ScanInterval time.Duration
	// BatchSize is the number of entries to expire in each sweep
	BatchSize int
}

// DefaultSweepWorkerConfig returns default configuration
func DefaultSweepWorkerConfig() *SweepWorkerConfig {
	return &SweepWorkerConfig{
		ScanInterval: time.Minute,
		BatchSize:    100,
	}
}

// SweepWorker periodically expires notified waitlist entries whose response
// window has lapsed, freeing their slots toward the next waiting entry
type SweepWorker struct {
	admission service.AdmissionService
	config    *SweepWorkerConfig
	log       *logger.Logger
	stopCh    chan struct{}
	wg        sync.WaitGroup
	mu        sync.Mutex
	running   bool

	// Stats
	totalExpired     int64
	lastScanTime     time.Time
	lastExpiredCount int
}

// NewSweepWorker creates a new notification sweep worker
func NewSweepWorker(admission service.AdmissionService, config *SweepWorkerConfig) *SweepWorker {
	if config == nil {
		config = DefaultSweepWorkerConfig()
	}

	return &SweepWorker{
		admission: admission,
		config:    config,
		log:       logger.Get(),
		stopCh:    make(chan struct{}),
	}
}

// Start starts the sweep worker
func (w *SweepWorker) Start(ctx context.Context) error {
	w.mu.Lock()
	if w.running {
		w.mu.Unlock()
		return fmt.Errorf("sweep worker already running")
	}
	w.running = true
	w.mu.Unlock()

	w.log.Info("Starting notification sweep worker")

	w.wg.Add(1)
	go w.scanLoop(ctx)

	return nil
}

// Stop stops the sweep worker
func (w *SweepWorker) Stop() {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		return
	}
	w.running = false
	w.mu.Unlock()

	w.log.Info("Stopping notification sweep worker")
	close(w.stopCh)
	w.wg.Wait()
	w.log.Info("Notification sweep worker stopped")
}

// scanLoop runs sweeps on the configured interval
func (w *SweepWorker) scanLoop(ctx context.Context) {
	defer w.wg.Done()

	ticker := time.NewTicker(w.config.ScanInterval)
	defer ticker.Stop()

	// Run immediately on start
	w.sweep(ctx)

	for {
		select {
		case <-ctx.Done():
			return
		case <-w.stopCh:
			return
		case <-ticker.C:
			w.sweep(ctx)
		}
	}
}

// sweep expires one batch of overdue notifications
func (w *SweepWorker) sweep(ctx context.Context) {
	w.mu.Lock()
	w.lastScanTime = time.Now()
	w.mu.Unlock()

	expired, err := w.admission.ExpireOverdueNotifications(ctx, w.config.BatchSize)
	if err != nil {
		w.log.Error(fmt.Sprintf("Sweep failed: %v", err))
		return
	}

	w.mu.Lock()
	w.lastExpiredCount = expired
	w.totalExpired += int64(expired)
	w.mu.Unlock()

	if expired > 0 {
		w.log.Info(fmt.Sprintf("Expired %d overdue notifications", expired))
	}
}

// GetStats returns worker statistics
func (w *SweepWorker) GetStats() *SweepWorkerStats {
	w.mu.Lock()
	defer w.mu.Unlock()

	return &SweepWorkerStats{
		IsRunning:        w.running,
		TotalExpired:     w.totalExpired,
		LastScanTime:     w.lastScanTime,
		LastExpiredCount: w.lastExpiredCount,
	}
}

// SweepWorkerStats contains worker statistics
type SweepWorkerStats struct {
	IsRunning        bool      `json:"is_running"`
	TotalExpired     int64     `json:"total_expired"`
	LastScanTime     time.Time `json:"last_scan_time"`
	LastExpiredCount int       `json:"last_expired_count"`
}
