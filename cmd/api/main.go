package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	apphttp "github.com/madhasoeki/scalevxmailketing/internal/http"
	"github.com/madhasoeki/scalevxmailketing/internal/http/router"
	"github.com/madhasoeki/scalevxmailketing/internal/leads"
	"github.com/madhasoeki/scalevxmailketing/internal/rules"
	"github.com/madhasoeki/scalevxmailketing/internal/scheduler"
	"github.com/madhasoeki/scalevxmailketing/internal/settings"
	"github.com/madhasoeki/scalevxmailketing/internal/webhook"
	"github.com/madhasoeki/scalevxmailketing/migrations"
	"github.com/madhasoeki/scalevxmailketing/platform/config"
	"github.com/madhasoeki/scalevxmailketing/platform/db"
	"github.com/madhasoeki/scalevxmailketing/platform/logger"
	"github.com/madhasoeki/scalevxmailketing/platform/validator"

	"github.com/jackc/pgx/v5/pgxpool"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	log := logger.New(cfg.Env)
	log.Info("starting server", "env", cfg.Env, "addr", cfg.HTTPAddr)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// ========================================================================
	// Infrastructure Layer
	// ========================================================================

	if err := withRetry(ctx, log, "database migrations", 5, 2*time.Second, func() error {
		return db.RunMigrations(ctx, cfg, migrations.FS)
	}); err != nil {
		log.Error("failed to run database migrations", "error", err)
		panic("failed to run database migrations: " + err.Error())
	}
	log.Info("database migrations complete")

	var pool *pgxpool.Pool
	if err := withRetry(ctx, log, "database connection", 5, 2*time.Second, func() error {
		p, err := db.NewPool(ctx, cfg)
		if err != nil {
			return err
		}
		pool = p
		return nil
	}); err != nil {
		log.Error("failed to connect to database", "error", err)
		panic("failed to connect to database: " + err.Error())
	}
	defer pool.Close()
	log.Info("database connection established")

	val := validator.New()

	// ========================================================================
	// Domain Modules (Composition Root)
	// ========================================================================

	settingsModule := settings.NewModule(pool, log)
	rulesModule := rules.NewModule(pool, val, log)
	leadsModule := leads.NewModule(pool, settingsModule.MailketingClient(), log)

	webhookModule := webhook.NewModule(
		rulesModule.Resolver(),
		leadsModule.Service(),
		settingsModule.Repository(),
		log,
	)

	sweeper := scheduler.NewSweeper(leadsModule.Service(), cfg, log)
	sweepClient, closeSweepClient := initSweepClient(cfg, log)
	if closeSweepClient != nil {
		defer closeSweepClient()
	}
	schedulerModule := scheduler.NewModule(sweeper, sweepClient, log)

	// ========================================================================
	// HTTP Layer
	// ========================================================================

	app := &apphttp.App{
		Config: cfg,
		Logger: log,
		Health: db.NewPoolAdapter(pool),
		Modules: []apphttp.Module{
			webhookModule,
			rulesModule,
			leadsModule,
			settingsModule,
			schedulerModule,
		},
	}

	engine := router.New(app)

	srvErr := make(chan error, 1)
	go func() {
		log.Info("server listening", "addr", cfg.HTTPAddr)
		srvErr <- engine.Run(cfg.HTTPAddr)
	}()

	select {
	case <-ctx.Done():
		log.Info("shutdown signal received, gracefully shutting down")
	case err := <-srvErr:
		if err != nil {
			log.Error("server error", "error", err)
			panic("server error: " + err.Error())
		}
	}
}

// initSweepClient builds the asynq client for manual sweep triggers. Without
// Redis the admin trigger runs the sweep inline instead.
func initSweepClient(cfg config.SchedulerConfig, log *logger.Logger) (*scheduler.Client, func()) {
	if cfg.GetRedisURL() == "" {
		log.Warn("REDIS_URL not configured; manual sweeps run inline")
		return nil, nil
	}

	client, err := scheduler.NewClient(cfg)
	if err != nil {
		log.Error("failed to initialize sweep client", "error", err)
		return nil, nil
	}

	return client, func() {
		_ = client.Close()
	}
}

func withRetry(ctx context.Context, log *logger.Logger, name string, attempts int, baseDelay time.Duration, fn func() error) error {
	if attempts < 1 {
		return errors.New(name + ": invalid retry attempts")
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if err := fn(); err == nil {
			return nil
		} else {
			lastErr = err
			log.Warn("retryable operation failed", "operation", name, "attempt", attempt, "error", err)
		}

		if attempt < attempts {
			delay := time.Duration(attempt*attempt) * baseDelay
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
			}
		}
	}

	return errors.New(name + ": " + lastErr.Error())
}
