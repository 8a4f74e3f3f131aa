package monitor

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"

	"stockwatch/internal/config"
	"stockwatch/pkg/utils"
)

// marketHoursSpecs are the fixed check times during US market hours,
// expressed in the exchange's timezone.
var marketHoursSpecs = []string{
	"35 9 * * MON-FRI",
	"30 10 * * MON-FRI",
	"0 12 * * MON-FRI",
	"0 14 * * MON-FRI",
	"55 15 * * MON-FRI",
}

// Job is a unit of scheduled work.
type Job interface {
	Run() error
	Name() string
}

// Scheduler manages the background check schedule.
type Scheduler struct {
	cron *cron.Cron
	log  zerolog.Logger
}

// NewScheduler creates a scheduler running in the US market timezone.
func NewScheduler(logger zerolog.Logger) (*Scheduler, error) {
	loc, err := time.LoadLocation("America/New_York")
	if err != nil {
		return nil, fmt.Errorf("loading market timezone: %w", err)
	}
	return &Scheduler{
		cron: cron.New(cron.WithLocation(loc)),
		log:  logger.With().Str("component", "scheduler").Logger(),
	}, nil
}

// Start begins executing registered jobs.
func (s *Scheduler) Start() {
	s.cron.Start()
	s.log.Info().Msg("Scheduler started")
}

// Stop halts scheduling and waits for any running job to finish.
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	s.log.Info().Msg("Scheduler stopped")
}

// AddJob registers a job with a cron schedule.
func (s *Scheduler) AddJob(schedule string, job Job) error {
	_, err := s.cron.AddFunc(schedule, func() {
		s.log.Debug().Str("job", job.Name()).Msg("Running job")

		if err := job.Run(); err != nil {
			s.log.Error().
				Err(err).
				Str("job", job.Name()).
				Msg("Job failed")
		} else {
			s.log.Debug().Str("job", job.Name()).Msg("Job completed")
		}
	})
	if err != nil {
		return err
	}

	s.log.Info().
		Str("schedule", schedule).
		Str("job", job.Name()).
		Msg("Job registered")
	return nil
}

// AddCheckJob wires the monitoring cycle onto the schedule the configuration
// selects: fixed market-hours check times, or a flat interval fallback.
func (s *Scheduler) AddCheckJob(cfg config.MonitorConfig, job Job) error {
	if cfg.MarketHoursSchedule {
		for _, spec := range marketHoursSpecs {
			if err := s.AddJob(spec, job); err != nil {
				return err
			}
		}
		return nil
	}
	return s.AddJob(fmt.Sprintf("@every %dm", cfg.CheckIntervalMinutes), job)
}

// RunNow executes a job immediately, outside its schedule.
func (s *Scheduler) RunNow(job Job) error {
	s.log.Info().Str("job", job.Name()).Msg("Running job immediately")
	return job.Run()
}

// CycleJob adapts the monitor's cycle to the scheduler's Job interface.
type CycleJob struct {
	monitor         *Monitor
	timeout         time.Duration
	marketHoursOnly bool
}

// NewCycleJob wraps m as a scheduled job. Each run gets its own context with
// the given timeout; a non-positive timeout means no limit.
func NewCycleJob(m *Monitor, timeout time.Duration) *CycleJob {
	return &CycleJob{monitor: m, timeout: timeout}
}

// SetMarketHoursOnly makes the job a no-op outside the regular US trading
// session. Used by the flat-interval schedule, which fires around the clock.
func (j *CycleJob) SetMarketHoursOnly(only bool) {
	j.marketHoursOnly = only
}

func (j *CycleJob) Name() string { return "price-check-cycle" }

func (j *CycleJob) Run() error {
	if j.marketHoursOnly && !utils.IsMarketOpen() {
		j.monitor.logger.Debug().Msg("market closed, skipping cycle")
		return nil
	}

	ctx := context.Background()
	if j.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, j.timeout)
		defer cancel()
	}
	_, err := j.monitor.RunCycle(ctx)
	return err
}
