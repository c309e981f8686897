package scheduler

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// ScheduleTime is a time of day at which the scheduler runs.
type ScheduleTime struct {
	Hour   int
	Minute int
}

func (st ScheduleTime) String() string {
	return fmt.Sprintf("%02d:%02d", st.Hour, st.Minute)
}

// ParseScheduleTime parses a 24-hour HH:MM time of day.
func ParseScheduleTime(s string) (ScheduleTime, error) {
	t, err := time.Parse("15:04", s)
	if err != nil {
		return ScheduleTime{}, fmt.Errorf("invalid schedule time %q (expected HH:MM): %w", s, err)
	}
	return ScheduleTime{Hour: t.Hour(), Minute: t.Minute()}, nil
}

// JobProvider builds the jobs of one scheduled run.
type JobProvider func(ctx context.Context) ([]Job, error)

// Scheduler submits the jobs of its provider to a worker pool at fixed
// times of day.
type Scheduler struct {
	pool          *WorkerPool
	scheduleTimes []ScheduleTime
	runOnStartup  bool
	jobProvider   JobProvider
	log           zerolog.Logger

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu    sync.Mutex
	fired time.Time // minute of the last scheduled run
}

type SchedulerConfig struct {
	ScheduleTimes []string
	RunOnStartup  bool
	JobProvider   JobProvider
	// Pool runs the jobs. The scheduler starts and shuts it down.
	Pool   *WorkerPool
	Logger zerolog.Logger
}

func NewScheduler(config SchedulerConfig) (*Scheduler, error) {
	scheduleTimes := make([]ScheduleTime, 0, len(config.ScheduleTimes))
	for _, timeStr := range config.ScheduleTimes {
		st, err := ParseScheduleTime(timeStr)
		if err != nil {
			return nil, fmt.Errorf("failed to parse schedule time %q: %w", timeStr, err)
		}
		scheduleTimes = append(scheduleTimes, st)
	}

	if len(scheduleTimes) == 0 {
		return nil, errors.New("at least one schedule time is required")
	}
	if config.Pool == nil {
		return nil, errors.New("worker pool is required")
	}

	ctx, cancel := context.WithCancel(context.Background())
	log := config.Logger.With().Str("component", "scheduler").Logger()
	log.Info().Strs("times", config.ScheduleTimes).Msg("scheduler initialized")

	return &Scheduler{
		pool:          config.Pool,
		scheduleTimes: scheduleTimes,
		runOnStartup:  config.RunOnStartup,
		jobProvider:   config.JobProvider,
		log:           log,
		ctx:           ctx,
		cancel:        cancel,
	}, nil
}

// Start launches the worker pool and the scheduling loop.
func (s *Scheduler) Start() {
	s.pool.Start()

	if s.runOnStartup {
		s.log.Info().Msg("running initial job batch on startup")
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			s.runJobs()
		}()
	}

	s.wg.Add(1)
	go s.scheduleLoop()

	s.log.Info().Msg("scheduler started")
}

func (s *Scheduler) scheduleLoop() {
	defer s.wg.Done()

	// Polling twice a minute keeps ticker drift from skipping a slot.
	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-s.ctx.Done():
			return

		case now := <-ticker.C:
			if s.due(now) {
				s.log.Info().Str("at", now.Format("15:04")).Msg("scheduled run triggered")
				s.runJobs()
			}
		}
	}
}

// due reports whether now falls on a schedule time. A minute fires at most
// once however often it is polled.
func (s *Scheduler) due(now time.Time) bool {
	minute := now.Truncate(time.Minute)
	if !slices.ContainsFunc(s.scheduleTimes, func(st ScheduleTime) bool {
		return st.Hour == minute.Hour() && st.Minute == minute.Minute()
	}) {
		return false
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fired.Equal(minute) {
		return false
	}
	s.fired = minute
	return true
}

// runJobs fetches the jobs of one run and submits them to the pool.
func (s *Scheduler) runJobs() int {
	if s.jobProvider == nil {
		s.log.Warn().Msg("no job provider configured")
		return 0
	}

	ctx, cancel := context.WithTimeout(s.ctx, 5*time.Minute)
	defer cancel()

	jobs, err := s.jobProvider(ctx)
	if err != nil {
		s.log.Error().Err(err).Msg("failed to fetch jobs")
		return 0
	}
	if len(jobs) == 0 {
		s.log.Info().Msg("no jobs to process")
		return 0
	}

	return s.pool.SubmitBatch(jobs)
}

// Shutdown stops the scheduling loop and then the worker pool.
func (s *Scheduler) Shutdown(timeout time.Duration) {
	s.log.Info().Msg("initiating graceful shutdown")

	s.cancel()

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(timeout):
		s.log.Warn().Msg("timeout waiting for scheduler loop to stop")
	}

	s.pool.ShutdownWithTimeout(timeout)
	s.log.Info().Msg("scheduler shutdown complete")
}

// TriggerNow runs the job provider immediately.
func (s *Scheduler) TriggerNow() {
	s.log.Info().Msg("manual trigger")
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.runJobs()
	}()
}

// NextRun returns the first schedule time after now.
func (s *Scheduler) NextRun(now time.Time) time.Time {
	var next time.Time
	for _, st := range s.scheduleTimes {
		t := time.Date(now.Year(), now.Month(), now.Day(), st.Hour, st.Minute, 0, 0, now.Location())
		if !t.After(now) {
			t = t.AddDate(0, 0, 1)
		}
		if next.IsZero() || t.Before(next) {
			next = t
		}
	}
	return next
}

func (s *Scheduler) ScheduleTimes() []ScheduleTime {
	return s.scheduleTimes
}
