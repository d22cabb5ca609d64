// Package db opens the gorm connection shared by every repository.
package db

import (
	"context"
	"fmt"

	"github.com/lightningshop/jobtrack/internal/config"
	"github.com/lightningshop/jobtrack/internal/observability/logger"
	"github.com/uptrace/opentelemetry-go-extra/otelgorm"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var Module = fx.Module("db",
	fx.Provide(ConfigFrom),
	fx.Provide(NewLifecycle),
)

type Params struct {
	fx.In

	Lifecycle fx.Lifecycle
	Config    Config
	Log       *zap.Logger
}

// NewLifecycle opens the database and closes it when the app stops.
func NewLifecycle(p Params) (*gorm.DB, error) {
	gdb, err := New(p.Config)
	if err != nil {
		return nil, err
	}

	log := p.Log.Named("db")
	p.Lifecycle.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			sqlDB, err := gdb.DB()
			if err != nil {
				return err
			}
			log.Info("closing database", zap.String("type", p.Config.Type))
			return sqlDB.Close()
		},
	})
	return gdb, nil
}

// New opens a connection with the zap gorm logger, pool limits and
// OpenTelemetry instrumentation.
func New(cfg Config) (*gorm.DB, error) {
	dialector, err := Dialect(cfg)
	if err != nil {
		return nil, err
	}

	gdb, err := gorm.Open(dialector, &gorm.Config{
		Logger:         logger.NewGormLogger(logger.DefaultGormLoggerConfig()),
		TranslateError: true,
	})
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	sqlDB, err := gdb.DB()
	if err != nil {
		return nil, err
	}
	if cfg.MaxIdleConn > 0 {
		sqlDB.SetMaxIdleConns(cfg.MaxIdleConn)
	}
	if cfg.MaxOpenConn > 0 {
		sqlDB.SetMaxOpenConns(cfg.MaxOpenConn)
	}
	if cfg.ConnMaxLifetime > 0 {
		sqlDB.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	}
	if cfg.ConnMaxIdleTime > 0 {
		sqlDB.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)
	}

	if err := gdb.Use(otelgorm.NewPlugin(otelgorm.WithDBName(dbName(cfg)))); err != nil {
		return nil, fmt.Errorf("register tracing plugin: %w", err)
	}

	return gdb, nil
}

func dbName(cfg Config) string {
	if cfg.Name != "" {
		return cfg.Name
	}
	return cfg.Type
}

// FromProcessConfig is a convenience for commands that run outside fx.
func FromProcessConfig(cfg config.Config) (*gorm.DB, error) {
	return New(ConfigFrom(cfg))
}
