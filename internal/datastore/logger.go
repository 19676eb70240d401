// Package datastore logging: adapts GORM's logger interface onto slog.
package datastore

import (
	"context"
	"log/slog"
	"time"

	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/snapwatch/snapwatch/internal/errors"
	"github.com/snapwatch/snapwatch/internal/logging"
)

// slowQueryThreshold defines the duration after which a query is considered slow.
const slowQueryThreshold = time.Second

// createGormLogger configures and returns a new GORM logger instance.
func createGormLogger() gormlogger.Interface {
	return &gormSlogAdapter{
		log:   logging.ForService("datastore"),
		level: gormlogger.Warn,
	}
}

// gormSlogAdapter routes GORM log output through the application's slog loggers.
type gormSlogAdapter struct {
	log   *slog.Logger
	level gormlogger.LogLevel
}

func (g *gormSlogAdapter) LogMode(level gormlogger.LogLevel) gormlogger.Interface {
	clone := *g
	clone.level = level
	return &clone
}

func (g *gormSlogAdapter) Info(ctx context.Context, msg string, args ...any) {
	if g.level >= gormlogger.Info {
		g.log.InfoContext(ctx, "gorm: "+msg, "args", args)
	}
}

func (g *gormSlogAdapter) Warn(ctx context.Context, msg string, args ...any) {
	if g.level >= gormlogger.Warn {
		g.log.WarnContext(ctx, "gorm: "+msg, "args", args)
	}
}

func (g *gormSlogAdapter) Error(ctx context.Context, msg string, args ...any) {
	if g.level >= gormlogger.Error {
		g.log.ErrorContext(ctx, "gorm: "+msg, "args", args)
	}
}

func (g *gormSlogAdapter) Trace(ctx context.Context, begin time.Time, fc func() (string, int64), err error) {
	if g.level <= gormlogger.Silent {
		return
	}

	elapsed := time.Since(begin)
	switch {
	case err != nil && !errors.Is(err, gorm.ErrRecordNotFound) && g.level >= gormlogger.Error:
		sql, rows := fc()
		g.log.ErrorContext(ctx, "query failed",
			"error", err,
			"sql", sql,
			"rows", rows,
			"elapsed", elapsed)
	case elapsed > slowQueryThreshold && g.level >= gormlogger.Warn:
		sql, rows := fc()
		g.log.WarnContext(ctx, "slow query",
			"sql", sql,
			"rows", rows,
			"elapsed", elapsed)
	case g.level >= gormlogger.Info:
		sql, rows := fc()
		g.log.DebugContext(ctx, "query",
			"sql", sql,
			"rows", rows,
			"elapsed", elapsed)
	}
}
