package scheduler

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"

	"unireview/internal/config"
	"unireview/internal/service"
)

// Scheduler drives the publication engine. The cron probe only asks
// whether a run is due; the trigger decision and the run itself live
// in the shuffle service, so a probe firing on several instances at
// once is harmless.
type Scheduler struct {
	cronEngine *cron.Cron
	shuffle    *service.ShuffleService
	claims     *service.ClaimService
	config     config.ShuffleConfig
}

// NewScheduler creates a new scheduler
func NewScheduler(shuffle *service.ShuffleService, claims *service.ClaimService, cfg config.ShuffleConfig) *Scheduler {
	return &Scheduler{
		cronEngine: cron.New(cron.WithLocation(time.UTC)),
		shuffle:    shuffle,
		claims:     claims,
		config:     cfg,
	}
}

// Start registers the probe and optional cleanup jobs and starts the
// cron engine.
func (s *Scheduler) Start() error {
	slog.Info("Starting scheduler",
		"probe_cron", s.config.ProbeCron,
		"cleanup_enabled", s.config.CleanupEnabled)

	if _, err := s.cronEngine.AddFunc(s.config.ProbeCron, s.probeShuffle); err != nil {
		return fmt.Errorf("failed to register shuffle probe: %w", err)
	}

	if s.config.CleanupEnabled {
		// Daily is plenty: the ledger only grows by one row per
		// claimant per two-month cycle.
		if _, err := s.cronEngine.AddFunc("30 3 * * *", s.purgeClaimLedger); err != nil {
			return fmt.Errorf("failed to register ledger cleanup: %w", err)
		}
	}

	s.cronEngine.Start()
	return nil
}

// Stop stops the cron engine and waits for running jobs to finish.
func (s *Scheduler) Stop() {
	slog.Info("Stopping scheduler")
	<-s.cronEngine.Stop().Done()
	slog.Info("Scheduler stopped")
}

func (s *Scheduler) probeShuffle() {
	published, err := s.shuffle.RunIfDue(time.Now())
	if err != nil {
		slog.Error("Shuffle run failed", "error", err)
		return
	}
	if published > 0 {
		slog.Info("Shuffle probe published batch", "published", published)
	}
}

func (s *Scheduler) purgeClaimLedger() {
	purged, err := s.claims.PurgePastCycles(time.Now())
	if err != nil {
		slog.Error("Claim ledger cleanup failed", "error", err)
		return
	}
	if purged > 0 {
		slog.Info("Claim ledger cleanup removed past cycles", "rows", purged)
	}
}
