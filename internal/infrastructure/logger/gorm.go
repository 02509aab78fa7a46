package logger

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	gormlogger "gorm.io/gorm/logger"
)

// DefaultSlowSQLThreshold is the slow query threshold used unless overridden
const DefaultSlowSQLThreshold = 200 * time.Millisecond

// GormLogger routes gorm statements to zap, tagged with the landed cost table
// they touch, the request id and the active trace.
type GormLogger struct {
	logger             *zap.Logger
	logLevel           gormlogger.LogLevel
	slowThreshold      time.Duration
	skipRecordNotFound bool
}

// GormLoggerOption configures a GormLogger
type GormLoggerOption func(*GormLogger)

// WithSlowThreshold sets the duration above which statements are logged as slow
func WithSlowThreshold(threshold time.Duration) GormLoggerOption {
	return func(l *GormLogger) { l.slowThreshold = threshold }
}

// WithIgnoreRecordNotFoundError controls whether lookups that find nothing are logged
func WithIgnoreRecordNotFoundError(ignore bool) GormLoggerOption {
	return func(l *GormLogger) { l.skipRecordNotFound = ignore }
}

// NewGormLogger creates a gorm logger backed by zap
func NewGormLogger(base *zap.Logger, level gormlogger.LogLevel, opts ...GormLoggerOption) *GormLogger {
	l := &GormLogger{
		logger:             base.Named("gorm"),
		logLevel:           level,
		slowThreshold:      DefaultSlowSQLThreshold,
		skipRecordNotFound: true,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// LogMode implements gormlogger.Interface
func (l *GormLogger) LogMode(level gormlogger.LogLevel) gormlogger.Interface {
	clone := *l
	clone.logLevel = level
	return &clone
}

// Info implements gormlogger.Interface
func (l *GormLogger) Info(ctx context.Context, msg string, data ...any) {
	if l.logLevel >= gormlogger.Info {
		l.scoped(ctx).Info(fmt.Sprintf(msg, data...))
	}
}

// Warn implements gormlogger.Interface
func (l *GormLogger) Warn(ctx context.Context, msg string, data ...any) {
	if l.logLevel >= gormlogger.Warn {
		l.scoped(ctx).Warn(fmt.Sprintf(msg, data...))
	}
}

// Error implements gormlogger.Interface
func (l *GormLogger) Error(ctx context.Context, msg string, data ...any) {
	if l.logLevel >= gormlogger.Error {
		l.scoped(ctx).Error(fmt.Sprintf(msg, data...))
	}
}

// Trace implements gormlogger.Interface
func (l *GormLogger) Trace(ctx context.Context, begin time.Time, fc func() (sql string, rowsAffected int64), err error) {
	if l.logLevel <= gormlogger.Silent {
		return
	}
	if err != nil && l.skipRecordNotFound && errors.Is(err, gormlogger.ErrRecordNotFound) {
		return
	}

	elapsed := time.Since(begin)
	slow := l.slowThreshold > 0 && elapsed > l.slowThreshold
	switch {
	case err != nil && l.logLevel >= gormlogger.Error:
	case slow && l.logLevel >= gormlogger.Warn:
	case l.logLevel >= gormlogger.Info:
	default:
		return
	}

	sql, rows := fc()
	log := l.scoped(ctx).With(
		zap.Duration("elapsed", elapsed),
		zap.Int64("rows", rows),
		zap.String("sql", sql),
	)
	if table := landedCostTable(sql); table != "" {
		log = log.With(zap.String("table", table))
	}

	switch {
	case err != nil && l.logLevel >= gormlogger.Error:
		if kind := contentionKind(err); kind != "" {
			log.Warn("SQL lock timeout", zap.String("kind", kind), zap.Error(err))
			return
		}
		log.Error("SQL Error", zap.Error(err))
	case slow:
		log.Warn(fmt.Sprintf("SLOW SQL >= %v", l.slowThreshold))
	default:
		log.Debug("SQL Query")
	}
}

func (l *GormLogger) scoped(ctx context.Context) *zap.Logger {
	log := l.logger
	if requestID := GetRequestID(ctx); requestID != "" {
		log = log.With(zap.String("request_id", requestID))
	}
	return WithTraceContext(ctx, log)
}

// contentionKind classifies row-lock contention reported by PostgreSQL
func contentionKind(err error) string {
	msg := err.Error()
	switch {
	case strings.Contains(msg, "55P03") || strings.Contains(msg, "lock timeout"):
		return "lock_not_available"
	case strings.Contains(msg, "40P01") || strings.Contains(msg, "deadlock detected"):
		return "deadlock"
	default:
		return ""
	}
}

// landedCostTable returns the first lcm_ table named in sql
func landedCostTable(sql string) string {
	for _, tok := range strings.FieldsFunc(sql, func(r rune) bool {
		return r == ' ' || r == '"' || r == '`' || r == ',' || r == '(' || r == ')' || r == '.' || r == '\n'
	}) {
		if strings.HasPrefix(tok, "lcm_") {
			return tok
		}
	}
	return ""
}

// MapGormLogLevel maps a log level name to the gorm log level
func MapGormLogLevel(level string) gormlogger.LogLevel {
	switch level {
	case "silent":
		return gormlogger.Silent
	case "error":
		return gormlogger.Error
	case "warn":
		return gormlogger.Warn
	case "info", "debug":
		return gormlogger.Info
	default:
		return gormlogger.Warn
	}
}
