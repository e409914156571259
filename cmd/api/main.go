// Package main is the entry point of the attendance API.
//
// The API serves the reconciliation endpoints (marking, checkout, teacher
// login, today's status and classes, daily stats and reports) together with
// health probes and the Prometheus scrape endpoint.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/academy-hub/attendance-hub/config"
	"github.com/academy-hub/attendance-hub/internal/application/command"
	"github.com/academy-hub/attendance-hub/internal/application/query"
	"github.com/academy-hub/attendance-hub/internal/bootstrap"
	"github.com/academy-hub/attendance-hub/internal/infrastructure/auth"
	"github.com/academy-hub/attendance-hub/internal/infrastructure/report"
	httpserver "github.com/academy-hub/attendance-hub/internal/interface/http"
	"github.com/academy-hub/attendance-hub/pkg/logger"
)

func main() {
	adminSubject := flag.String("issue-admin-token", "", "print an admin token for the given subject and exit")
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, *adminSubject); err != nil {
		fmt.Fprintf(os.Stderr, "fatal error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, adminSubject string) error {
	// ─────────────────────────────────────────────────────────────────────────
	// 1. CONFIGURATION & LOGGING
	// ─────────────────────────────────────────────────────────────────────────
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	log := bootstrap.NewLogger(cfg).With(logger.Component("api"))

	if adminSubject != "" {
		token, expires, err := auth.NewIssuer(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL, nil).Issue(adminSubject, auth.RoleAdmin)
		if err != nil {
			return err
		}
		fmt.Printf("%s\n# expires %s\n", token, expires.Format("2006-01-02 15:04 MST"))
		return nil
	}

	log.Info("starting attendance API",
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

	// ─────────────────────────────────────────────────────────────────────────
	// 3. APPLICATION HANDLERS
	// ─────────────────────────────────────────────────────────────────────────
	cmdDeps := c.CommandDeps()
	qDeps := c.QueryDeps()

	deps := httpserver.Dependencies{
		MarkAttendance: command.NewMarkAttendanceHandler(cmdDeps),
		MarkScheduled:  command.NewMarkScheduledHandler(cmdDeps),
		CheckOut:       command.NewCheckOutHandler(cmdDeps),
		TeacherLogin:   command.NewTeacherLoginHandler(cmdDeps, c.Tokens),
		TodayStatus:    query.NewTodayStatusHandler(qDeps),
		TodayClasses:   query.NewTodayClassesHandler(qDeps),
		DailyStats:     query.NewDailyStatsHandler(qDeps, c.StatsCache()),
		Metrics:        c.Metrics,
		HealthChecker:  c.Health,
		Location:       cfg.App.Location,
		Logger:         log,
	}
	if cfg.Features.Cleanup {
		deps.CleanupDuplicates = command.NewCleanupDuplicatesHandler(cmdDeps)
	}
	if cfg.Features.AutoCheckout {
		deps.AutoCheckout = command.NewAutoCheckoutHandler(cmdDeps)
	}
	if cfg.Features.Reports {
		deps.Workbook = report.NewDailyWorkbook(c.Ledger, c.People)
	}
	if !cfg.Auth.Disabled {
		deps.Tokens = c.Tokens
	} else {
		log.Warn("bearer auth is disabled")
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 4. HTTP SERVER
	// ─────────────────────────────────────────────────────────────────────────
	httpCfg := httpserver.DefaultConfig()
	httpCfg.Host = cfg.HTTP.Host
	httpCfg.Port = cfg.HTTP.Port
	httpCfg.ReadTimeout = cfg.HTTP.ReadTimeout
	httpCfg.WriteTimeout = cfg.HTTP.WriteTimeout
	httpCfg.IdleTimeout = cfg.HTTP.IdleTimeout
	httpCfg.MaxBodyBytes = cfg.HTTP.MaxBodyBytes
	httpCfg.AllowedOrigins = cfg.HTTP.AllowedOrigins
	httpCfg.EnableMetrics = cfg.Observability.MetricsEnabled
	httpCfg.LoginRatePerMinute = cfg.HTTP.LoginRatePerMinute

	server := httpserver.NewServer(httpCfg, deps)
	errCh := server.StartAsync()

	// ─────────────────────────────────────────────────────────────────────────
	// 5. GRACEFUL SHUTDOWN
	// ─────────────────────────────────────────────────────────────────────────
	select {
	case err := <-errCh:
		if err != nil {
			return err
		}
	case <-ctx.Done():
		log.Info("received shutdown signal")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.App.ShutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("http shutdown failed", logger.Err(err))
	}

	log.Info("shutdown completed")
	return nil
}
