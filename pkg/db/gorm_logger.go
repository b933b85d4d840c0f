package db

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/angelmondragon/library-backend/pkg/logger"
)

// queryLogger forwards gorm diagnostics to the service logger. Successful
// statements are logged only when slower than the threshold; missing rows are
// not errors.
type queryLogger struct {
	logg          *logger.Logger
	level         gormlogger.LogLevel
	slowThreshold time.Duration
}

func newQueryLogger(logg *logger.Logger, slowThreshold time.Duration) gormlogger.Interface {
	if logg == nil {
		return gormlogger.Discard
	}
	return &queryLogger{logg: logg, level: gormlogger.Warn, slowThreshold: slowThreshold}
}

func (l *queryLogger) LogMode(level gormlogger.LogLevel) gormlogger.Interface {
	clone := *l
	clone.level = level
	return &clone
}

func (l *queryLogger) Info(ctx context.Context, msg string, args ...any) {
	if l.level >= gormlogger.Info {
		l.logg.Info(l.logg.WithField(ctx, "gorm", fmt.Sprintf(msg, args...)), "db.info")
	}
}

func (l *queryLogger) Warn(ctx context.Context, msg string, args ...any) {
	if l.level >= gormlogger.Warn {
		l.logg.Warn(l.logg.WithField(ctx, "gorm", fmt.Sprintf(msg, args...)), "db.warn")
	}
}

func (l *queryLogger) Error(ctx context.Context, msg string, args ...any) {
	if l.level >= gormlogger.Error {
		l.logg.Error(ctx, "db.error", errors.New(fmt.Sprintf(msg, args...)))
	}
}

func (l *queryLogger) Trace(ctx context.Context, begin time.Time, fc func() (string, int64), err error) {
	if l.level <= gormlogger.Silent {
		return
	}
	elapsed := time.Since(begin)
	failed := err != nil && !errors.Is(err, gorm.ErrRecordNotFound)
	slow := l.slowThreshold > 0 && elapsed > l.slowThreshold

	if !failed && !slow && l.level < gormlogger.Info {
		return
	}

	sql, rows := fc()
	entry := l.logg.WithFields(ctx, map[string]any{
		"sql":         sql,
		"rows":        rows,
		"duration_ms": elapsed.Milliseconds(),
	})
	switch {
	case failed && l.level >= gormlogger.Error:
		l.logg.Error(entry, "db.query.failed", err)
	case slow && l.level >= gormlogger.Warn:
		l.logg.Warn(entry, "db.query.slow")
	case l.level >= gormlogger.Info:
		l.logg.Debug(entry, "db.query")
	}
}
