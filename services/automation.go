package services

import (
	"context"
	"log/slog"
	"time"

	"Mediarr/config"
)

// retentionWindow is how long notified requests and ledger entries stick
// around before the daily prune drops them.
const retentionWindow = 30 * 24 * time.Hour

// AutomationService runs the periodic background work: the reconciliation
// sweep, the recently-added check, and the daily prune. Everything in here
// is terminal-local: failures are logged and the next tick retries.
type AutomationService struct {
	cfg     *config.Config
	tracker *RequestTracker
	recent  *RecentlyAddedNotifier
	trigger chan struct{}
}

func NewAutomationService(cfg *config.Config, tracker *RequestTracker, recent *RecentlyAddedNotifier) *AutomationService {
	return &AutomationService{
		cfg:     cfg,
		tracker: tracker,
		recent:  recent,
		trigger: make(chan struct{}, 1),
	}
}

// TriggerSweep requests an immediate sweep outside the timer. Coalesces: a
// trigger while one is already queued is a no-op.
func (s *AutomationService) TriggerSweep() {
	select {
	case s.trigger <- struct{}{}:
	default:
	}
}

// Start runs the loops until the context is cancelled. Call in a goroutine.
func (s *AutomationService) Start(ctx context.Context) {
	slog.Info("Starting automation service",
		"sweep_interval_minutes", s.cfg.SweepIntervalMinutes,
		"recent_interval_minutes", s.cfg.RecentIntervalMinutes)

	sweepTicker := time.NewTicker(time.Duration(s.cfg.SweepIntervalMinutes) * time.Minute)
	defer sweepTicker.Stop()

	recentTicker := time.NewTicker(time.Duration(s.cfg.RecentIntervalMinutes) * time.Minute)
	defer recentTicker.Stop()

	pruneTicker := time.NewTicker(24 * time.Hour)
	defer pruneTicker.Stop()

	// One pass right away so a restart doesn't wait a full interval to
	// notice content that finished while the process was down.
	s.tracker.Sweep(ctx)

	for {
		select {
		case <-ctx.Done():
			slog.Info("Automation service stopping")
			return
		case <-sweepTicker.C:
			s.tracker.Sweep(ctx)
		case <-s.trigger:
			slog.Info("Immediate sweep triggered")
			s.tracker.Sweep(ctx)
		case <-recentTicker.C:
			s.recent.CheckAndNotify(ctx)
		case <-pruneTicker.C:
			if _, err := s.tracker.PruneOld(retentionWindow); err != nil {
				slog.Error("Failed to prune old requests", "error", err)
			}
			if _, err := s.recent.PruneLedger(retentionWindow); err != nil {
				slog.Error("Failed to prune notified-items ledger", "error", err)
			}
		}
	}
}
