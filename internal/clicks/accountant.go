// Package clicks implements the click accountant: best-effort, asynchronous
// accounting of redirects. Nothing in this package may ever fail or delay a
// redirect response; every error stops here and is only logged.
package clicks

import (
	"LinkLoom-Backend/internal/domain"
	"LinkLoom-Backend/internal/repository"
	"LinkLoom-Backend/pkg/useragent"
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Click is one redirect to account for.
type Click struct {
	LinkID     int64
	IPAddress  *string
	UserAgent  *string
	Referer    *string
	OccurredAt time.Time
}

// Recorder is the interface the redirect path depends on.
type Recorder interface {
	Submit(click *Click) error
}

// Config holds accountant tuning.
type Config struct {
	Workers         int           // number of worker goroutines
	QueueSize       int           // size of the job queue buffer
	RetryAttempts   int           // retry attempts for the counter increment
	RetryDelay      time.Duration // base delay between retries
	ShutdownTimeout time.Duration // time to wait for graceful shutdown
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		Workers:         3,
		QueueSize:       1000,
		RetryAttempts:   3,
		RetryDelay:      time.Second,
		ShutdownTimeout: 30 * time.Second,
	}
}

// Accountant drains a bounded queue of clicks through a worker pool. For each
// click it performs two independent operations: the atomic counter increment
// (authoritative, retried) and the detailed event append (supplementary,
// best-effort). Failure of either never affects the other.
type Accountant struct {
	config   Config
	storage  repository.Storage
	log      *zap.Logger
	jobQueue chan *Click
	wg       sync.WaitGroup
	ctx      context.Context
	cancel   context.CancelFunc
	started  bool
	mu       sync.RWMutex
}

// NewAccountant creates a click accountant.
func NewAccountant(storage repository.Storage, log *zap.Logger, config Config) *Accountant {
	ctx, cancel := context.WithCancel(context.Background())

	return &Accountant{
		config:   config,
		storage:  storage,
		log:      log,
		jobQueue: make(chan *Click, config.QueueSize),
		ctx:      ctx,
		cancel:   cancel,
	}
}

// Start launches the worker pool.
func (a *Accountant) Start() error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.started {
		return fmt.Errorf("accountant already started")
	}

	a.log.Info("starting click accountant",
		zap.Int("workers", a.config.Workers),
		zap.Int("queue_size", a.config.QueueSize))

	for i := 0; i < a.config.Workers; i++ {
		a.wg.Add(1)
		go a.worker(i)
	}

	a.started = true
	return nil
}

// Stop gracefully shuts down the accountant.
func (a *Accountant) Stop() error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if !a.started {
		return fmt.Errorf("accountant not started")
	}

	a.log.Info("stopping click accountant")

	// Close first so workers drain the queue to empty before exiting. The
	// context is cancelled only after the drain (or on timeout), otherwise a
	// worker could observe the cancellation before a still-queued click and
	// exit with clicks unaccounted.
	close(a.jobQueue)
	a.started = false

	done := make(chan struct{})
	go func() {
		a.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		a.cancel()
		a.log.Info("click accountant stopped gracefully")
		return nil
	case <-time.After(a.config.ShutdownTimeout):
		a.cancel()
		a.log.Warn("click accountant shutdown timeout reached")
		return fmt.Errorf("shutdown timeout reached")
	}
}

// Submit enqueues a click without blocking the caller. A full queue drops the
// click: losing an accounting entry is acceptable, delaying a redirect is not.
func (a *Accountant) Submit(click *Click) error {
	a.mu.RLock()
	defer a.mu.RUnlock()

	if !a.started {
		return fmt.Errorf("accountant not started")
	}

	select {
	case a.jobQueue <- click:
		return nil
	case <-a.ctx.Done():
		return fmt.Errorf("accountant is shutting down")
	default:
		a.log.Error("click queue is full, dropping click",
			zap.Int64("link_id", click.LinkID),
			zap.Int("queue_size", len(a.jobQueue)))
		return fmt.Errorf("click queue is full")
	}
}

// QueueStats reports queue fill for the health surface.
func (a *Accountant) QueueStats() map[string]interface{} {
	a.mu.RLock()
	defer a.mu.RUnlock()

	return map[string]interface{}{
		"started":        a.started,
		"queue_length":   len(a.jobQueue),
		"queue_capacity": cap(a.jobQueue),
		"worker_count":   a.config.Workers,
	}
}

func (a *Accountant) worker(workerID int) {
	defer a.wg.Done()

	log := a.log.With(zap.Int("worker_id", workerID))
	log.Debug("click worker started")

	// Workers exit only once the queue is closed and drained. Shutdown must
	// not skip clicks that were accepted before Stop was called.
	for click := range a.jobQueue {
		a.account(log, click)
	}
	log.Debug("click worker stopped")
}

// account performs the two independent accounting operations for one click.
func (a *Accountant) account(log *zap.Logger, click *Click) {
	a.incrementWithRetry(log, click)
	a.appendEvent(log, click)
}

// incrementWithRetry bumps the authoritative counter, retrying with backoff.
func (a *Accountant) incrementWithRetry(log *zap.Logger, click *Click) {
	var lastErr error

	for attempt := 1; attempt <= a.config.RetryAttempts; attempt++ {
		ctx, cancel := context.WithTimeout(a.ctx, 30*time.Second)
		err := a.storage.IncrementClickCount(ctx, click.LinkID)
		cancel()

		if err == nil {
			return
		}
		lastErr = err

		if attempt == a.config.RetryAttempts {
			break
		}

		delay := a.config.RetryDelay * time.Duration(1<<(attempt-1))
		select {
		case <-time.After(delay):
		case <-a.ctx.Done():
			log.Debug("worker shutdown during retry delay")
			return
		}
	}

	log.Error("click count increment failed after all retries",
		zap.Int64("link_id", click.LinkID),
		zap.Int("attempts", a.config.RetryAttempts),
		zap.Error(lastErr))
}

// appendEvent writes the detailed log entry. Single attempt; the counter is
// the user-facing metric and does not depend on this succeeding.
func (a *Accountant) appendEvent(log *zap.Logger, click *Click) {
	event := a.buildEvent(click)

	ctx, cancel := context.WithTimeout(a.ctx, 30*time.Second)
	defer cancel()

	if err := a.storage.CreateClickEvent(ctx, event); err != nil {
		log.Warn("failed to append click event",
			zap.Int64("link_id", click.LinkID),
			zap.Error(err))
	}
}

// buildEvent assembles a click event with whatever client metadata is
// available.
func (a *Accountant) buildEvent(click *Click) *domain.ClickEvent {
	event := &domain.ClickEvent{
		LinkID:     click.LinkID,
		IPAddress:  click.IPAddress,
		UserAgent:  click.UserAgent,
		Referer:    click.Referer,
		OccurredAt: click.OccurredAt,
	}

	deviceType := "unknown"
	if click.UserAgent != nil {
		if parser := useragent.GetGlobalParser(); parser != nil {
			info := parser.ParseUserAgent(*click.UserAgent)
			deviceType = info.DeviceType
			event.Browser = &info.Browser
			event.OS = &info.OS
		} else {
			deviceType = fallbackDeviceType(*click.UserAgent)
		}
	}
	event.DeviceType = &deviceType

	return event
}

// fallbackDeviceType is the coarse classification used when the User-Agent
// parser is unavailable.
func fallbackDeviceType(ua string) string {
	lower := strings.ToLower(ua)
	switch {
	case strings.Contains(lower, "bot") || strings.Contains(lower, "spider"):
		return "bot"
	case strings.Contains(lower, "tablet") || strings.Contains(lower, "ipad"):
		return "tablet"
	case strings.Contains(lower, "mobile") || strings.Contains(lower, "android") || strings.Contains(lower, "iphone"):
		return "mobile"
	default:
		return "desktop"
	}
}
