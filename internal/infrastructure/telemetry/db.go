package telemetry

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/uptrace/opentelemetry-go-extra/otelgorm"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// DefaultSlowQueryThreshold marks queries slower than this on spans and metrics
const DefaultSlowQueryThreshold = 200 * time.Millisecond

// DBTracingConfig controls the otelgorm plugin.
type DBTracingConfig struct {
	Enabled    bool
	LogFullSQL bool   // include bound variables in db.statement
	DBSystem   string // postgresql or sqlite
}

// RegisterDBTracing installs the otelgorm plugin on db.
func RegisterDBTracing(db *gorm.DB, cfg DBTracingConfig, logger *zap.Logger) error {
	if !cfg.Enabled {
		logger.Debug("Database tracing disabled, skipping otelgorm registration")
		return nil
	}

	opts := []otelgorm.Option{
		otelgorm.WithDBName(cfg.DBSystem),
	}
	if !cfg.LogFullSQL {
		opts = append(opts, otelgorm.WithoutQueryVariables())
	}
	if err := db.Use(otelgorm.NewPlugin(opts...)); err != nil {
		return err
	}

	logger.Info("Database tracing enabled",
		zap.Bool("log_full_sql", cfg.LogFullSQL),
		zap.String("db_system", cfg.DBSystem),
	)
	return nil
}

// DBMetrics is a gorm plugin recording query counts, durations and slow
// queries, plus observable connection pool gauges.
type DBMetrics struct {
	queryTotal     *Counter
	queryDuration  *Histogram
	slowQueryTotal *Counter
	slowThreshold  time.Duration
	logger         *zap.Logger
}

// NewDBMetrics creates the query instruments and registers the pool gauges
// for sqlDB. sqlDB may be nil when pool stats are not wanted.
func NewDBMetrics(meter metric.Meter, sqlDB *sql.DB, slowThreshold time.Duration, logger *zap.Logger) (*DBMetrics, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if slowThreshold <= 0 {
		slowThreshold = DefaultSlowQueryThreshold
	}

	m := &DBMetrics{slowThreshold: slowThreshold, logger: logger}
	var err error
	if m.queryTotal, err = NewCounter(meter,
		"db_query_total",
		"Total number of database queries by operation type",
		"{query}",
	); err != nil {
		return nil, err
	}
	if m.queryDuration, err = NewHistogram(meter, HistogramOpts{
		Name:        "db_query_duration_seconds",
		Description: "Database query latency distribution in seconds",
		Unit:        "s",
		Boundaries:  DBDurationBuckets,
	}); err != nil {
		return nil, err
	}
	if m.slowQueryTotal, err = NewCounter(meter,
		"db_slow_query_total",
		"Total number of slow database queries",
		"{query}",
	); err != nil {
		return nil, err
	}

	if sqlDB != nil {
		if err := registerPoolGauges(meter, sqlDB); err != nil {
			return nil, err
		}
	}
	return m, nil
}

func registerPoolGauges(meter metric.Meter, sqlDB *sql.DB) error {
	connections, err := meter.Int64ObservableGauge("db_pool_connections",
		metric.WithDescription("Number of connections in the pool by state"),
		metric.WithUnit("{connection}"),
	)
	if err != nil {
		return err
	}
	maxConnections, err := meter.Int64ObservableGauge("db_pool_connections_max",
		metric.WithDescription("Maximum number of connections in the pool"),
		metric.WithUnit("{connection}"),
	)
	if err != nil {
		return err
	}

	_, err = meter.RegisterCallback(func(_ context.Context, o metric.Observer) error {
		stats := sqlDB.Stats()
		o.ObserveInt64(maxConnections, int64(stats.MaxOpenConnections))
		o.ObserveInt64(connections, int64(stats.Idle), metric.WithAttributes(AttrDBState.String("idle")))
		o.ObserveInt64(connections, int64(stats.InUse), metric.WithAttributes(AttrDBState.String("in_use")))
		o.ObserveInt64(connections, int64(stats.OpenConnections), metric.WithAttributes(AttrDBState.String("open")))
		return nil
	}, connections, maxConnections)
	return err
}

// RecordQuery records one statement.
func (m *DBMetrics) RecordQuery(ctx context.Context, operation, table string, duration time.Duration) {
	operation = strings.ToUpper(operation)
	if operation == "" {
		operation = "UNKNOWN"
	}
	m.queryTotal.Inc(ctx, AttrDBOperation.String(operation))
	m.queryDuration.RecordDuration(ctx, duration, AttrDBOperation.String(operation))

	if duration > m.slowThreshold {
		if table == "" {
			table = "unknown"
		}
		m.slowQueryTotal.Inc(ctx, AttrDBTable.String(table))
		span := trace.SpanFromContext(ctx)
		if span.IsRecording() {
			span.SetAttributes(
				attribute.Bool("db.slow_query", true),
				attribute.Int64("db.query_duration_ms", duration.Milliseconds()),
			)
		}
	}
}

// Name implements gorm.Plugin.
func (m *DBMetrics) Name() string {
	return "landedcost:db_metrics"
}

type queryStartKey struct{}

// Initialize implements gorm.Plugin.
func (m *DBMetrics) Initialize(db *gorm.DB) error {
	before := func(tx *gorm.DB) {
		if tx.Statement.Context != nil {
			tx.Statement.Context = context.WithValue(tx.Statement.Context, queryStartKey{}, time.Now())
		}
	}
	after := func(operation string) func(*gorm.DB) {
		return func(tx *gorm.DB) {
			ctx := tx.Statement.Context
			if ctx == nil {
				return
			}
			start, ok := ctx.Value(queryStartKey{}).(time.Time)
			if !ok {
				return
			}
			op := operation
			if op == "" {
				op = detectOperationType(tx.Statement.SQL.String())
			}
			m.RecordQuery(ctx, op, tx.Statement.Table, time.Since(start))
		}
	}

	cb := db.Callback()
	register := []struct {
		name string
		err  error
	}{
		{"create:before", cb.Create().Before("gorm:create").Register("lcm_metrics:before_create", before)},
		{"create:after", cb.Create().After("gorm:create").Register("lcm_metrics:after_create", after("INSERT"))},
		{"query:before", cb.Query().Before("gorm:query").Register("lcm_metrics:before_query", before)},
		{"query:after", cb.Query().After("gorm:query").Register("lcm_metrics:after_query", after("SELECT"))},
		{"update:before", cb.Update().Before("gorm:update").Register("lcm_metrics:before_update", before)},
		{"update:after", cb.Update().After("gorm:update").Register("lcm_metrics:after_update", after("UPDATE"))},
		{"delete:before", cb.Delete().Before("gorm:delete").Register("lcm_metrics:before_delete", before)},
		{"delete:after", cb.Delete().After("gorm:delete").Register("lcm_metrics:after_delete", after("DELETE"))},
		{"row:before", cb.Row().Before("gorm:row").Register("lcm_metrics:before_row", before)},
		{"row:after", cb.Row().After("gorm:row").Register("lcm_metrics:after_row", after(""))},
		{"raw:before", cb.Raw().Before("gorm:raw").Register("lcm_metrics:before_raw", before)},
		{"raw:after", cb.Raw().After("gorm:raw").Register("lcm_metrics:after_raw", after(""))},
	}
	var errs []error
	for _, r := range register {
		if r.err != nil {
			errs = append(errs, r.err)
		}
	}
	return errors.Join(errs...)
}

// detectOperationType returns the leading SQL verb of a raw statement
func detectOperationType(sql string) string {
	sql = strings.TrimSpace(sql)
	if sql == "" {
		return "UNKNOWN"
	}
	verb := strings.ToUpper(strings.Fields(sql)[0])
	switch verb {
	case "SELECT", "INSERT", "UPDATE", "DELETE", "SET":
		return verb
	default:
		return "OTHER"
	}
}
