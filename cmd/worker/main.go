// Package main is the entry point of the attendance worker.
//
// The worker runs the periodic maintenance jobs:
//   - auto checkout of students who never checked out (evening, academy time)
//   - merging of duplicate same-day records
//
// Jobs take a Redis lock before running, so several workers may be deployed
// side by side. Without Redis only one worker must run.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/academy-hub/attendance-hub/config"
	"github.com/academy-hub/attendance-hub/internal/application/command"
	"github.com/academy-hub/attendance-hub/internal/bootstrap"
	"github.com/academy-hub/attendance-hub/internal/infrastructure/scheduler"
	"github.com/academy-hub/attendance-hub/internal/infrastructure/scheduler/jobs"
	"github.com/academy-hub/attendance-hub/pkg/logger"
)

// metricsPortOffset is added to the API port for the worker's scrape endpoint.
const metricsPortOffset = 1

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "fatal error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	// ─────────────────────────────────────────────────────────────────────────
	// 1. CONFIGURATION & LOGGING
	// ─────────────────────────────────────────────────────────────────────────
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	log := bootstrap.NewLogger(cfg).With(logger.Component("worker"))

	if !cfg.Scheduler.Enabled {
		log.Warn("scheduler is disabled, nothing to do")
		return nil
	}

	log.Info("starting attendance worker",
		logger.String("version", cfg.App.Version),
		logger.String("timezone", cfg.App.Timezone),
		logger.String("host", bootstrap.Hostname()),
	)

	// ─────────────────────────────────────────────────────────────────────────
	// 2. BACKENDS
	// ─────────────────────────────────────────────────────────────────────────
	c, err := bootstrap.New(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer c.Close()

	locker := c.JobLocker()
	if locker == nil {
		log.Warn("redis is unavailable, job locks are process-local")
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 3. JOBS
	// ─────────────────────────────────────────────────────────────────────────
	sched := scheduler.NewScheduler(scheduler.SchedulerConfig{
		Logger:       log,
		Timezone:     cfg.App.Location,
		TickInterval: cfg.Scheduler.TickInterval,
	})
	sched.OnJobComplete(func(r scheduler.JobResult) {
		c.Metrics.ObserveJob(r.JobName, r.Success, r.Duration)
	})

	if err := registerJobs(sched, c, locker); err != nil {
		return err
	}

	for _, info := range sched.ListJobs() {
		log.Info("job registered",
			logger.String("job", info.Name),
			logger.String("schedule", info.Schedule),
			logger.String("next_run", info.NextRun.Format(time.RFC3339)),
		)
	}

	if err := sched.Start(ctx); err != nil {
		return fmt.Errorf("failed to start scheduler: %w", err)
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 4. METRICS ENDPOINT
	// ─────────────────────────────────────────────────────────────────────────
	var metricsServer *http.Server
	if cfg.Observability.MetricsEnabled {
		metricsServer = newMetricsServer(cfg, c)
		go func() {
			log.Info("metrics endpoint listening", logger.String("address", metricsServer.Addr))
			if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Error("metrics endpoint failed", logger.Err(err))
			}
		}()
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 5. GRACEFUL SHUTDOWN
	// ─────────────────────────────────────────────────────────────────────────
	<-ctx.Done()
	log.Info("received shutdown signal")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.App.ShutdownTimeout)
	defer cancel()

	done := make(chan struct{})
	go func() {
		if err := sched.Stop(); err != nil {
			log.Error("scheduler stop failed", logger.Err(err))
		}
		close(done)
	}()

	select {
	case <-done:
	case <-shutdownCtx.Done():
		log.Warn("timed out waiting for running jobs")
	}

	if metricsServer != nil {
		if err := metricsServer.Shutdown(shutdownCtx); err != nil {
			log.Error("metrics endpoint shutdown failed", logger.Err(err))
		}
	}

	log.Info("shutdown completed")
	return nil
}

func registerJobs(sched *scheduler.Scheduler, c *bootstrap.Container, locker jobs.Locker) error {
	cfg := c.Config
	deps := c.CommandDeps()

	if cfg.Features.AutoCheckout {
		cron, err := scheduler.ParseCronSchedule(cfg.Attendance.AutoCheckoutCron, cfg.App.Location)
		if err != nil {
			return fmt.Errorf("auto checkout schedule: %w", err)
		}
		job := jobs.NewAutoCheckoutJob(command.NewAutoCheckoutHandler(deps), locker, c.Logger)
		if err := sched.Register(job, cron); err != nil {
			return err
		}
	}

	if cfg.Features.Cleanup {
		job := jobs.NewCleanupDuplicatesJob(command.NewCleanupDuplicatesHandler(deps), locker, c.Logger)
		if err := sched.Register(job, scheduler.NewIntervalSchedule(cfg.Attendance.CleanupInterval)); err != nil {
			return err
		}
	}
	return nil
}

func newMetricsServer(cfg *config.Config, c *bootstrap.Container) *http.Server {
	r := chi.NewRouter()
	r.Handle("/metrics", c.Metrics.Handler())
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		status := c.Health.Check(r.Context())
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		if !status.Healthy {
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte(status.Message))
			return
		}
		_, _ = w.Write([]byte("ok"))
	})

	return &http.Server{
		Addr:              cfg.HTTP.Host + ":" + strconv.Itoa(cfg.HTTP.Port+metricsPortOffset),
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
	}
}
