package telemetry

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

type meteredRow struct {
	ID   uint `gorm:"primaryKey"`
	Name string
}

func openMeteredDB(t *testing.T) (*gorm.DB, *sdkmetric.ManualReader) {
	t.Helper()
	db, err := gorm.Open(sqlite.Open("file:"+uuid.NewString()+"?mode=memory&cache=shared"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqlDB.Close() })

	reader := sdkmetric.NewManualReader()
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	t.Cleanup(func() { _ = provider.Shutdown(context.Background()) })

	metrics, err := NewDBMetrics(provider.Meter("test"), sqlDB, 0, zap.NewNop())
	require.NoError(t, err)
	require.NoError(t, db.Use(metrics))
	require.NoError(t, db.AutoMigrate(&meteredRow{}))
	return db, reader
}

func TestDBMetrics_RecordsQueriesAndPool(t *testing.T) {
	db, reader := openMeteredDB(t)
	ctx := context.Background()

	require.NoError(t, db.WithContext(ctx).Create(&meteredRow{Name: "freight"}).Error)
	var rows []meteredRow
	require.NoError(t, db.WithContext(ctx).Find(&rows).Error)
	require.NoError(t, db.WithContext(ctx).Model(&meteredRow{}).Where("id = ?", rows[0].ID).Update("name", "duty").Error)

	got := collect(t, reader)
	queries := got["db_query_total"]
	assert.Equal(t, int64(1), sumFor(t, queries, AttrDBOperation.String("INSERT")))
	assert.GreaterOrEqual(t, sumFor(t, queries, AttrDBOperation.String("SELECT")), int64(1))
	assert.Equal(t, int64(1), sumFor(t, queries, AttrDBOperation.String("UPDATE")))

	pool, ok := got["db_pool_connections_max"].Data.(metricdata.Gauge[int64])
	require.True(t, ok)
	require.Len(t, pool.DataPoints, 1)
}

func TestDBMetrics_SlowQuery(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	defer provider.Shutdown(context.Background())

	m, err := NewDBMetrics(provider.Meter("test"), nil, 10*time.Millisecond, nil)
	require.NoError(t, err)

	ctx := context.Background()
	m.RecordQuery(ctx, "select", "lcm_charges", 50*time.Millisecond)
	m.RecordQuery(ctx, "select", "lcm_charges", time.Millisecond)
	m.RecordQuery(ctx, "", "", 20*time.Millisecond)

	got := collect(t, reader)
	slow := got["db_slow_query_total"]
	assert.Equal(t, int64(1), sumFor(t, slow, AttrDBTable.String("lcm_charges")))
	assert.Equal(t, int64(1), sumFor(t, slow, AttrDBTable.String("unknown")))
	assert.Equal(t, int64(1), sumFor(t, got["db_query_total"], AttrDBOperation.String("UNKNOWN")))
	_, hasPool := got["db_pool_connections"]
	assert.False(t, hasPool)
}

func TestDetectOperationType(t *testing.T) {
	tests := map[string]string{
		"":                                  "UNKNOWN",
		"  select * from lcm_charges":       "SELECT",
		"SET LOCAL lock_timeout = '5000ms'": "SET",
		"UPDATE lcm_allocations SET x = 1":  "UPDATE",
		"WITH x AS (SELECT 1) SELECT 2":     "OTHER",
	}
	for sql, want := range tests {
		assert.Equal(t, want, detectOperationType(sql), sql)
	}
}

func TestRegisterDBTracing_Disabled(t *testing.T) {
	db, _ := openMeteredDB(t)
	assert.NoError(t, RegisterDBTracing(db, DBTracingConfig{Enabled: false}, zap.NewNop()))
}

func TestRegisterDBTracing_Enabled(t *testing.T) {
	db, _ := openMeteredDB(t)
	require.NoError(t, RegisterDBTracing(db, DBTracingConfig{Enabled: true, DBSystem: "sqlite"}, zap.NewNop()))

	var rows []meteredRow
	assert.NoError(t, db.Find(&rows).Error)
}
