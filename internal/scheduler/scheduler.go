// Package scheduler runs the registry's periodic jobs on cron schedules.
package scheduler

import (
	"context"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/tinoosan/bank/internal/service/journal"
)

// InterestAccruer credits interest to every savings account.
type InterestAccruer interface {
	ApplyInterestAll(ctx context.Context) (int, error)
}

// Reconciler checks every account's balance against its ledger.
type Reconciler interface {
	ReconcileAll(ctx context.Context) ([]journal.Reconciliation, error)
}

type Config struct {
	// InterestSchedule and ReconcileSchedule are standard 5-field cron specs
	// (or descriptors such as "@monthly"). Empty disables the job.
	InterestSchedule  string
	ReconcileSchedule string
	// JobTimeout bounds a single run. Zero means one minute.
	JobTimeout time.Duration
}

// Scheduler manages the cron jobs.
type Scheduler struct {
	cron       *cron.Cron
	interest   InterestAccruer
	reconciler Reconciler
	logger     *slog.Logger
	config     Config
}

func New(interest InterestAccruer, reconciler Reconciler, logger *slog.Logger, cfg Config) *Scheduler {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.JobTimeout <= 0 {
		cfg.JobTimeout = time.Minute
	}
	cronLogger := cron.PrintfLogger(slog.NewLogLogger(logger.Handler(), slog.LevelInfo))
	c := cron.New(cron.WithChain(cron.Recover(cronLogger), cron.SkipIfStillRunning(cronLogger)))
	return &Scheduler{cron: c, interest: interest, reconciler: reconciler, logger: logger, config: cfg}
}

// Register adds the configured jobs. It returns the first invalid schedule.
func (s *Scheduler) Register() error {
	if s.config.InterestSchedule != "" && s.interest != nil {
		if _, err := s.cron.AddFunc(s.config.InterestSchedule, s.AccrueInterest); err != nil {
			return err
		}
		s.logger.Info("scheduled interest job", "schedule", s.config.InterestSchedule)
	}
	if s.config.ReconcileSchedule != "" && s.reconciler != nil {
		if _, err := s.cron.AddFunc(s.config.ReconcileSchedule, s.Reconcile); err != nil {
			return err
		}
		s.logger.Info("scheduled reconciliation job", "schedule", s.config.ReconcileSchedule)
	}
	return nil
}

// Start registers the jobs and starts the cron scheduler.
func (s *Scheduler) Start() error {
	if err := s.Register(); err != nil {
		return err
	}
	s.cron.Start()
	return nil
}

// Stop stops the scheduler; the returned context is done once running jobs finish.
func (s *Scheduler) Stop() context.Context {
	return s.cron.Stop()
}

// Entries reports how many jobs are registered.
func (s *Scheduler) Entries() int { return len(s.cron.Entries()) }

// AccrueInterest is the interest job body.
func (s *Scheduler) AccrueInterest() {
	ctx, cancel := context.WithTimeout(context.Background(), s.config.JobTimeout)
	defer cancel()
	start := time.Now()
	n, err := s.interest.ApplyInterestAll(ctx)
	if err != nil {
		s.logger.Error("interest job failed", "credited", n, "err", err)
		return
	}
	s.logger.Info("interest job complete", "credited", n, "duration", time.Since(start).String())
}

// Reconcile is the reconciliation job body. Mismatches are logged at ERROR.
func (s *Scheduler) Reconcile() {
	ctx, cancel := context.WithTimeout(context.Background(), s.config.JobTimeout)
	defer cancel()
	rs, err := s.reconciler.ReconcileAll(ctx)
	if err != nil {
		s.logger.Error("reconciliation job failed", "err", err)
		return
	}
	bad := 0
	for _, r := range rs {
		if !r.OK() {
			bad++
			s.logger.Error("ledger mismatch", "account", r.Number, "problem", r.Problem)
		}
	}
	s.logger.Info("reconciliation job complete", "accounts", len(rs), "mismatches", bad)
}
