package services

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"expensetracker/internal/core"
)

// CatchUpRunnerConfig holds configuration for the catch-up runner
type CatchUpRunnerConfig struct {
	// Interval is how often due occurrences are materialized (default: 1h)
	Interval time.Duration
}

// DefaultCatchUpRunnerConfig returns sensible defaults
func DefaultCatchUpRunnerConfig() CatchUpRunnerConfig {
	return CatchUpRunnerConfig{Interval: time.Hour}
}

// CatchUpper is the part of RecurringScheduler the runner drives.
type CatchUpper interface {
	CatchUp(ctx context.Context, asOf core.Date) (CatchUpResult, error)
}

// CatchUpRunner periodically materializes due recurring expenses.
type CatchUpRunner struct {
	scheduler CatchUpper
	config    CatchUpRunnerConfig
	today     func() core.Date

	mu      sync.Mutex
	running bool
	stopCh  chan struct{}
	doneCh  chan struct{}
}

func NewCatchUpRunner(scheduler CatchUpper, config CatchUpRunnerConfig) *CatchUpRunner {
	if config.Interval <= 0 {
		config.Interval = DefaultCatchUpRunnerConfig().Interval
	}
	return &CatchUpRunner{scheduler: scheduler, config: config, today: core.Today}
}

// Start begins the processing loop. Returns an error if already running.
func (r *CatchUpRunner) Start(ctx context.Context) error {
	r.mu.Lock()
	if r.running {
		r.mu.Unlock()
		return fmt.Errorf("catch-up runner is already running")
	}
	r.running = true
	r.stopCh = make(chan struct{})
	r.doneCh = make(chan struct{})
	r.mu.Unlock()

	go r.runLoop(ctx)

	slog.InfoContext(ctx, "Catch-up runner started", "interval", r.config.Interval)
	return nil
}

// Stop gracefully stops the runner and waits for the current run to finish.
func (r *CatchUpRunner) Stop(ctx context.Context) error {
	r.mu.Lock()
	if !r.running {
		r.mu.Unlock()
		return nil
	}
	stopCh, doneCh := r.stopCh, r.doneCh
	r.mu.Unlock()

	close(stopCh)

	select {
	case <-doneCh:
		slog.InfoContext(ctx, "Catch-up runner stopped gracefully")
	case <-ctx.Done():
		slog.WarnContext(ctx, "Catch-up runner stop timed out")
		return ctx.Err()
	}

	r.mu.Lock()
	r.running = false
	r.mu.Unlock()
	return nil
}

func (r *CatchUpRunner) IsRunning() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.running
}

// Run processes immediately and then on every tick until ctx is cancelled.
func (r *CatchUpRunner) Run(ctx context.Context) error {
	if err := r.Start(ctx); err != nil {
		return err
	}
	<-ctx.Done()
	stopCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	return r.Stop(stopCtx)
}

func (r *CatchUpRunner) runLoop(ctx context.Context) {
	defer close(r.doneCh)

	ticker := time.NewTicker(r.config.Interval)
	defer ticker.Stop()

	// Process immediately on startup
	r.RunOnce(ctx)

	for {
		select {
		case <-r.stopCh:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.RunOnce(ctx)
		}
	}
}

// RunOnce performs a single catch-up as of today.
func (r *CatchUpRunner) RunOnce(ctx context.Context) {
	res, err := r.scheduler.CatchUp(ctx, r.today())
	if err != nil {
		slog.ErrorContext(ctx, "Catch-up run failed", "error", err)
	}
	for _, a := range res.Alerts {
		slog.WarnContext(ctx, a.Message(), "category", a.Category, "month", a.Month.String())
	}
}
