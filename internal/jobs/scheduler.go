package jobs

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"

	"bloogle/internal/config"
)

// purgeSpec runs the registration purge once a day at 03:30.
const purgeSpec = "0 30 3 * * *"

const jobTimeout = time.Minute

type SessionSweeper interface {
	Sweep(ctx context.Context) (int64, error)
}

type RegistrationPurger interface {
	PurgeStaleRegistrations(ctx context.Context, olderThan time.Duration) (int64, error)
}

type Scheduler struct {
	cron    *cron.Cron
	cfg     config.JobsConfig
	ctx     context.Context
	cancel  context.CancelFunc
	sweeper SessionSweeper
	purger  RegistrationPurger
	log     zerolog.Logger
}

func NewScheduler(cfg config.JobsConfig, sweeper SessionSweeper, purger RegistrationPurger, log zerolog.Logger) *Scheduler {
	ctx, cancel := context.WithCancel(context.Background())
	return &Scheduler{
		cron:    cron.New(cron.WithSeconds()),
		cfg:     cfg,
		ctx:     ctx,
		cancel:  cancel,
		sweeper: sweeper,
		purger:  purger,
		log:     log,
	}
}

func (s *Scheduler) Start() error {
	if s.cfg.SessionSweepInterval <= 0 {
		return fmt.Errorf("jobs.sessionsweepinterval must be positive")
	}

	if _, err := s.cron.AddFunc("@every "+s.cfg.SessionSweepInterval.String(), s.sweepSessions); err != nil {
		return fmt.Errorf("schedule session sweep: %w", err)
	}
	if s.cfg.PurgeUnverifiedAfter > 0 && s.purger != nil {
		if _, err := s.cron.AddFunc(purgeSpec, s.purgeRegistrations); err != nil {
			return fmt.Errorf("schedule registration purge: %w", err)
		}
	}

	s.cron.Start()
	s.log.Info().
		Dur("session_sweep", s.cfg.SessionSweepInterval).
		Dur("purge_unverified_after", s.cfg.PurgeUnverifiedAfter).
		Msg("scheduler started")
	return nil
}

// Stop halts scheduling and returns a context that is done once running jobs finish.
func (s *Scheduler) Stop() context.Context {
	s.cancel()
	return s.cron.Stop()
}

func (s *Scheduler) sweepSessions() {
	ctx, cancel := context.WithTimeout(s.ctx, jobTimeout)
	defer cancel()

	n, err := s.sweeper.Sweep(ctx)
	if err != nil {
		s.log.Error().Err(err).Msg("session sweep failed")
		return
	}
	if n > 0 {
		s.log.Info().Int64("deleted", n).Msg("expired sessions swept")
	}
}

func (s *Scheduler) purgeRegistrations() {
	ctx, cancel := context.WithTimeout(s.ctx, jobTimeout)
	defer cancel()

	n, err := s.purger.PurgeStaleRegistrations(ctx, s.cfg.PurgeUnverifiedAfter)
	if err != nil {
		s.log.Error().Err(err).Msg("unverified registration purge failed")
		return
	}
	if n > 0 {
		s.log.Info().Int64("deleted", n).Msg("stale registrations purged")
	}
}
