package monitor

import (
	"context"
	"fmt"
	"time"

	"github.com/sandvault/sandvault/internal/logger"
)

const minInterval = time.Minute

// Runner drives the scanner on a fixed interval until its context is
// cancelled. Scans never overlap; a slow scan simply delays the next tick.
type Runner struct {
	scanner  *Scanner
	interval time.Duration
	log      logger.Logger
}

func NewRunner(scanner *Scanner, interval time.Duration, log logger.Logger) (*Runner, error) {
	if scanner == nil {
		return nil, fmt.Errorf("runner requires a scanner")
	}
	if interval < minInterval {
		return nil, fmt.Errorf("minimum scan interval is %s", minInterval)
	}
	if log == nil {
		log = logger.New()
	}
	return &Runner{scanner: scanner, interval: interval, log: log}, nil
}

// Start runs an immediate scan, then one per interval. It returns when the
// context is cancelled.
func (r *Runner) Start(ctx context.Context) error {
	r.log.WithField("interval", r.interval.String()).Info("starting lease monitoring")

	r.runOnce(ctx)

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			r.log.Info("lease monitoring stopped")
			return ctx.Err()
		case <-ticker.C:
			r.runOnce(ctx)
		}
	}
}

func (r *Runner) runOnce(ctx context.Context) {
	started := time.Now()
	if err := r.scanner.Scan(ctx); err != nil {
		r.log.Error("monitoring scan failed", err)
		return
	}
	r.log.WithField("duration", time.Since(started).String()).Debug("monitoring scan complete")
}
