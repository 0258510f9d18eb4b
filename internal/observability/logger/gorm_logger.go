package logger

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"
	gormlogger "gorm.io/gorm/logger"
)

const defaultSlowQuery = 200 * time.Millisecond

// QueryLogger routes GORM's query trace into the zap pipeline. Statements
// run with their bound values stripped, so nothing subscriber-identifying
// reaches the log output.
type QueryLogger struct {
	level     gormlogger.LogLevel
	slowQuery time.Duration
}

// NewQueryLogger returns a logger that reports errors and slow statements.
func NewQueryLogger() *QueryLogger {
	return &QueryLogger{
		level:     gormlogger.Warn,
		slowQuery: defaultSlowQuery,
	}
}

func (l *QueryLogger) LogMode(level gormlogger.LogLevel) gormlogger.Interface {
	next := *l
	next.level = level
	return &next
}

func (l *QueryLogger) Info(ctx context.Context, msg string, data ...interface{}) {
	l.emit(ctx, gormlogger.Info, msg, data)
}

func (l *QueryLogger) Warn(ctx context.Context, msg string, data ...interface{}) {
	l.emit(ctx, gormlogger.Warn, msg, data)
}

func (l *QueryLogger) Error(ctx context.Context, msg string, data ...interface{}) {
	l.emit(ctx, gormlogger.Error, msg, data)
}

func (l *QueryLogger) emit(ctx context.Context, at gormlogger.LogLevel, msg string, data []interface{}) {
	if l.level < at {
		return
	}
	fields := []zap.Field{zap.String("source", "db")}
	if len(data) > 0 {
		fields = append(fields, zap.Any("detail", data))
	}
	log := FromContext(ctx)
	switch at {
	case gormlogger.Error:
		log.Error(msg, fields...)
	case gormlogger.Warn:
		log.Warn(msg, fields...)
	default:
		log.Info(msg, fields...)
	}
}

// Trace reports each finished statement. Failures log as errors, statements
// over the slow threshold as warnings and everything else only at Info level.
func (l *QueryLogger) Trace(ctx context.Context, begin time.Time, fc func() (string, int64), err error) {
	if l.level <= gormlogger.Silent {
		return
	}

	elapsed := time.Since(begin)
	failed := err != nil && !errors.Is(err, gormlogger.ErrRecordNotFound)
	slow := l.slowQuery > 0 && elapsed >= l.slowQuery

	switch {
	case failed && l.level >= gormlogger.Error:
		l.trace(ctx, fc, elapsed, err).Error("query failed")
	case slow && l.level >= gormlogger.Warn:
		l.trace(ctx, fc, elapsed, nil).Warn("slow query")
	case l.level >= gormlogger.Info:
		l.trace(ctx, fc, elapsed, nil).Debug("query")
	}
}

// ParamsFilter drops bound values from the traced SQL.
func (l *QueryLogger) ParamsFilter(ctx context.Context, sql string, params ...interface{}) (string, []interface{}) {
	return sql, nil
}

func (l *QueryLogger) trace(ctx context.Context, fc func() (string, int64), elapsed time.Duration, err error) *zap.Logger {
	sql, rows := fc()
	fields := []zap.Field{
		zap.String("source", "db"),
		zap.String("statement", strings.TrimSpace(sql)),
		zap.Duration("elapsed", elapsed),
	}
	if rows >= 0 {
		fields = append(fields, zap.Int64("rows", rows))
	}
	if err != nil {
		fields = append(fields, zap.Error(err))
	}
	return FromContext(ctx).With(fields...)
}

var _ gormlogger.Interface = (*QueryLogger)(nil)
