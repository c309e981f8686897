// Command syncd keeps the local aggregation cache in sync with the remote
// API on a daily schedule.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"finsync/internal/app"
	"finsync/internal/interfaces/scheduler"
	"finsync/internal/shared/config"
	"finsync/internal/shared/logger"
	"finsync/internal/shared/telemetry"
)

const shutdownTimeout = 30 * time.Second

func main() {
	once := flag.Bool("once", false, "run one full sync and exit")
	flag.Parse()

	if err := run(*once); err != nil {
		fmt.Fprintf(os.Stderr, "syncd: %v\n", err)
		os.Exit(1)
	}
}

func run(once bool) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	log := logger.NewWithOptions(os.Stdout, logger.Options{Level: cfg.Log.Level, Format: cfg.Log.Format})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	ctx = logger.WithContext(ctx, log)

	pool := scheduler.NewWorkerPool(cfg.Scheduler.WorkerCount, cfg.Scheduler.JobDelay, cfg.Scheduler.QueueSize, log)

	deps, err := app.NewDependencies(ctx, cfg, pool, log)
	if err != nil {
		return err
	}
	defer deps.Close()

	if cfg.Telemetry.Enabled {
		shutdownTelemetry, err := telemetry.Init(ctx, telemetry.Config{
			ServiceName:  cfg.Telemetry.ServiceName,
			Environment:  cfg.Telemetry.Environment,
			OTLPEndpoint: cfg.Telemetry.OTLPEndpoint,
			SampleRatio:  cfg.Telemetry.SampleRatio,
			MetricsPort:  cfg.Telemetry.MetricsPort,
			Ready:        deps.Ping,
		}, log)
		if err != nil {
			shutdownTelemetry(context.Background())
			return fmt.Errorf("failed to initialize telemetry: %w", err)
		}
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			if err := shutdownTelemetry(shutdownCtx); err != nil {
				log.Error().Err(err).Msg("telemetry shutdown failed")
			}
		}()
	}

	services := scheduler.Services{
		Aggregation: deps.Aggregation,
		Goals:       deps.Goals,
		Cards:       deps.Cards,
		Tags:        deps.Tags,
	}

	if once || !cfg.Scheduler.Enabled {
		return syncOnce(ctx, pool, services, log)
	}

	sched, err := scheduler.NewScheduler(scheduler.SchedulerConfig{
		ScheduleTimes: cfg.Scheduler.ScheduleTimes,
		RunOnStartup:  cfg.Scheduler.RunOnStartup,
		JobProvider:   scheduler.FullSyncProvider(services, log),
		Pool:          pool,
		Logger:        log,
	})
	if err != nil {
		return err
	}
	sched.Start()
	log.Info().Time("next_run", sched.NextRun(time.Now())).Msg("syncd running")

	<-ctx.Done()
	log.Info().Msg("shutting down")
	sched.Shutdown(shutdownTimeout)
	return nil
}

// syncOnce runs a full sync in the foreground. Backfills it triggers run on
// the pool and are drained before returning.
func syncOnce(ctx context.Context, pool *scheduler.WorkerPool, services scheduler.Services, log zerolog.Logger) error {
	pool.Start()
	defer pool.ShutdownWithTimeout(shutdownTimeout)

	job := scheduler.NewSyncJob("full sync", scheduler.FullSyncSteps(services), log)
	if err := job.Execute(ctx); err != nil {
		return fmt.Errorf("sync failed: %w", err)
	}
	log.Info().Msg("sync completed")
	return nil
}
