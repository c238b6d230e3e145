package scheduler

import (
	"context"
	"time"

	"github.com/madhasoeki/scalevxmailketing/platform/config"
	"github.com/madhasoeki/scalevxmailketing/platform/logger"
)

// LeadExpirer is the slice of the leads service the sweep drives.
type LeadExpirer interface {
	SweepExpired(ctx context.Context, cutoff, now time.Time) (int, error)
}

// Sweeper expires follow_up leads whose window has run out. It is invoked by
// the asynq worker when Redis is configured, or by its own ticker otherwise.
type Sweeper struct {
	leads LeadExpirer
	cfg   config.SweepConfig
	log   *logger.Logger

	now func() time.Time
}

// NewSweeper creates the expiry sweeper.
func NewSweeper(leads LeadExpirer, cfg config.SweepConfig, log *logger.Logger) *Sweeper {
	return &Sweeper{leads: leads, cfg: cfg, log: log, now: time.Now}
}

// SweepOnce runs a single sweep pass and returns how many leads were expired.
func (s *Sweeper) SweepOnce(ctx context.Context) (int, error) {
	now := s.now().In(s.cfg.GetLocation())
	cutoff := now.Add(-s.cfg.GetFollowUpExpiry())

	moved, err := s.leads.SweepExpired(ctx, cutoff, now)
	if moved > 0 {
		s.log.Info("expiry sweep moved leads to not_closing", "count", moved)
	}
	if err != nil {
		return moved, err
	}
	return moved, nil
}

// Run is the ticker fallback used when no Redis is configured. It sweeps
// immediately, then on every interval until the context ends.
func (s *Sweeper) Run(ctx context.Context) {
	if s == nil || s.leads == nil {
		return
	}

	s.sweep(ctx)

	ticker := time.NewTicker(s.cfg.GetSweepInterval())
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.sweep(ctx)
		}
	}
}

func (s *Sweeper) sweep(ctx context.Context) {
	if _, err := s.SweepOnce(ctx); err != nil {
		s.log.Warn("expiry sweep failed", "error", err)
	}
}
