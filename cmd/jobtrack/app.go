package main

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/lightningshop/jobtrack/internal/changefeed"
	"github.com/lightningshop/jobtrack/internal/clock"
	"github.com/lightningshop/jobtrack/internal/config"
	"github.com/lightningshop/jobtrack/internal/estimate"
	"github.com/lightningshop/jobtrack/internal/export"
	"github.com/lightningshop/jobtrack/internal/invoice"
	invoiceservice "github.com/lightningshop/jobtrack/internal/invoice/service"
	"github.com/lightningshop/jobtrack/internal/job"
	"github.com/lightningshop/jobtrack/internal/lock"
	"github.com/lightningshop/jobtrack/internal/migration"
	"github.com/lightningshop/jobtrack/internal/observability"
	"github.com/lightningshop/jobtrack/internal/observability/logger"
	"github.com/lightningshop/jobtrack/internal/observability/metrics"
	"github.com/lightningshop/jobtrack/internal/providers"
	"github.com/lightningshop/jobtrack/internal/ratelimit"
	"github.com/lightningshop/jobtrack/internal/redisconn"
	"github.com/lightningshop/jobtrack/internal/report"
	"github.com/lightningshop/jobtrack/internal/scheduler"
	"github.com/lightningshop/jobtrack/pkg/db"
	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"
	"go.uber.org/zap"
)

const (
	startTimeout = 30 * time.Second
	stopTimeout  = 15 * time.Second
)

// infrastructure is everything below the domain services.
func infrastructure() fx.Option {
	return fx.Options(
		config.Module,
		observability.Module,
		fx.Provide(newSnowflakeNode),
		db.Module,
		migration.Module,
		redisconn.Module,
		changefeed.Module,
		lock.Module,
		clock.Module,
	)
}

func domains() fx.Option {
	return fx.Options(
		job.Module,
		invoice.Module,
		providers.Module,
		export.Module,
		report.Module,
		estimate.Module,
		scheduler.Module,
		ratelimit.Module,
		fx.Provide(
			func(m *metrics.Metrics) invoiceservice.StatusRecorder { return m },
			func(m *metrics.Metrics) export.Recorder { return m },
			func(m *metrics.SchedulerMetrics) scheduler.Recorder { return m },
		),
	)
}

func newSnowflakeNode(cfg config.Config) (*snowflake.Node, error) {
	return snowflake.NewNode(cfg.NodeID)
}

func zapEventLogger(log *zap.Logger) fxevent.Logger {
	return &fxevent.ZapLogger{Logger: log.Named("fx")}
}

// quietLogging keeps stdout free for command output.
func quietLogging() fx.Option {
	return fx.Decorate(func(cfg logger.Config) logger.Config {
		cfg.Output = "stderr"
		if !cfg.Debug {
			cfg.Level = "warn"
		}
		return cfg
	})
}

// runOnce starts a short-lived app, hands the populated targets to fn and
// stops the app again.
func runOnce(ctx context.Context, opts fx.Option, fn func(context.Context) error) error {
	app := fx.New(
		fx.NopLogger,
		quietLogging(),
		opts,
	)
	if err := app.Err(); err != nil {
		return err
	}

	startCtx, cancel := context.WithTimeout(ctx, startTimeout)
	defer cancel()
	if err := app.Start(startCtx); err != nil {
		return err
	}
	defer func() {
		stopCtx, cancel := context.WithTimeout(context.Background(), stopTimeout)
		defer cancel()
		_ = app.Stop(stopCtx)
	}()

	return fn(ctx)
}
