package discovery

import (
	"context"
	"errors"
	"log/slog"
	"time"
)

// Schedule controls automatic builds.
type Schedule struct {
	// Interval between periodic builds.
	Interval time.Duration
	// StartupDelay before the initial staleness check.
	StartupDelay time.Duration
}

// DefaultSchedule rebuilds daily and checks staleness five seconds after
// startup.
func DefaultSchedule() Schedule {
	return Schedule{Interval: 24 * time.Hour, StartupDelay: 5 * time.Second}
}

// Stale reports whether the last build is missing or older than maxAge.
func (b *Builder) Stale(maxAge time.Duration) bool {
	last := b.store.Discovery().LastUpdated
	return stale(last, b.now(), maxAge)
}

func stale(last *time.Time, now time.Time, maxAge time.Duration) bool {
	return last == nil || now.Sub(*last) > maxAge
}

// StartScheduler runs builds until ctx is canceled: once after
// StartupDelay if the stored results are stale, then every Interval.
func (b *Builder) StartScheduler(ctx context.Context, sched Schedule) {
	b.logger.Info("discovery scheduler started",
		slog.String("interval", sched.Interval.String()))

	startup := time.NewTimer(sched.StartupDelay)
	defer startup.Stop()
	ticker := time.NewTicker(sched.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			b.logger.Info("discovery scheduler stopped")
			return
		case <-startup.C:
			last := b.store.Discovery().LastUpdated
			if !stale(last, b.now(), sched.Interval) {
				b.logger.Info("discovery results are fresh, skipping startup build",
					slog.Time("last_updated", *last))
				continue
			}
			b.scheduledRun(ctx)
		case <-ticker.C:
			b.scheduledRun(ctx)
		}
	}
}

func (b *Builder) scheduledRun(ctx context.Context) {
	err := b.Run(ctx)
	switch {
	case errors.Is(err, ErrAlreadyRunning):
		b.logger.Info("scheduled discovery build skipped: already running")
	case err != nil:
		b.logger.Error("scheduled discovery build failed", slog.Any("error", err))
	}
}
