package telemetry

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func newDBMetricsFixture(t *testing.T, cfg DBMetricsConfig) (*DBMetrics, *sdkmetric.ManualReader) {
	t.Helper()

	reader := sdkmetric.NewManualReader()
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	t.Cleanup(func() { _ = provider.Shutdown(context.Background()) })

	metrics, err := NewDBMetrics(provider.Meter("finz.db.test"), cfg, zap.NewNop())
	require.NoError(t, err)
	return metrics, reader
}

func collectMetrics(t *testing.T, reader *sdkmetric.ManualReader) metricdata.ResourceMetrics {
	t.Helper()
	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))
	return rm
}

func hasMetric(rm metricdata.ResourceMetrics, name string) bool {
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			if m.Name == name {
				return true
			}
		}
	}
	return false
}

func TestDefaultDBMetricsConfig(t *testing.T) {
	cfg := DefaultDBMetricsConfig()

	assert.True(t, cfg.Enabled)
	assert.Equal(t, 200*time.Millisecond, cfg.SlowQueryThreshold)
	assert.Equal(t, 15*time.Second, cfg.PoolStatsInterval)
}

func TestNewDBMetrics_ZeroConfigGetsDefaults(t *testing.T) {
	metrics, _ := newDBMetricsFixture(t, DBMetricsConfig{})

	assert.Equal(t, 200*time.Millisecond, metrics.config.SlowQueryThreshold)
	assert.Equal(t, 15*time.Second, metrics.config.PoolStatsInterval)
}

func TestNewDBMetrics_NilLogger(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	defer provider.Shutdown(context.Background())

	metrics, err := NewDBMetrics(provider.Meter("t"), DefaultDBMetricsConfig(), nil)
	require.NoError(t, err)
	require.NotNil(t, metrics.logger)
}

func TestDBMetrics_RecordQuery(t *testing.T) {
	ctx := context.Background()

	t.Run("count and duration recorded", func(t *testing.T) {
		metrics, reader := newDBMetricsFixture(t, DefaultDBMetricsConfig())

		metrics.RecordQuery(ctx, "SELECT", "taxonomy_entries", 5*time.Millisecond, nil)

		rm := collectMetrics(t, reader)
		assert.True(t, hasMetric(rm, "db_query_total"))
		assert.True(t, hasMetric(rm, "db_query_duration_seconds"))
	})

	t.Run("slow query counted past threshold", func(t *testing.T) {
		metrics, reader := newDBMetricsFixture(t, DBMetricsConfig{
			Enabled:            true,
			SlowQueryThreshold: 100 * time.Millisecond,
		})

		// Materialization upserts over a 36 month window routinely land
		// in this bucket on cold caches.
		metrics.RecordQuery(ctx, "INSERT", "allocation_records", 250*time.Millisecond, nil)

		assert.True(t, hasMetric(collectMetrics(t, reader), "db_slow_query_total"))
	})

	t.Run("fast query leaves slow counter at zero", func(t *testing.T) {
		metrics, reader := newDBMetricsFixture(t, DefaultDBMetricsConfig())

		metrics.RecordQuery(ctx, "SELECT", "allocation_records", 5*time.Millisecond, nil)

		rm := collectMetrics(t, reader)
		for _, sm := range rm.ScopeMetrics {
			for _, m := range sm.Metrics {
				if m.Name != "db_slow_query_total" {
					continue
				}
				for _, dp := range m.Data.(metricdata.Sum[int64]).DataPoints {
					assert.Zero(t, dp.Value)
				}
			}
		}
	})

	t.Run("operation normalized, empty becomes UNKNOWN", func(t *testing.T) {
		metrics, reader := newDBMetricsFixture(t, DefaultDBMetricsConfig())

		metrics.RecordQuery(ctx, "select", "projects", time.Millisecond, nil)
		metrics.RecordQuery(ctx, "Insert", "baselines", time.Millisecond, nil)
		metrics.RecordQuery(ctx, "", "baselines", time.Millisecond, nil)

		assert.True(t, hasMetric(collectMetrics(t, reader), "db_query_total"))
	})

	t.Run("empty table on slow query recorded as unknown", func(t *testing.T) {
		metrics, reader := newDBMetricsFixture(t, DBMetricsConfig{
			Enabled:            true,
			SlowQueryThreshold: 10 * time.Millisecond,
		})

		metrics.RecordQuery(ctx, "SELECT", "", 50*time.Millisecond, nil)

		assert.True(t, hasMetric(collectMetrics(t, reader), "db_slow_query_total"))
	})
}

func TestDBMetrics_PoolStats(t *testing.T) {
	t.Run("samples pool gauges", func(t *testing.T) {
		mockDB, _, err := sqlmock.New()
		require.NoError(t, err)
		defer mockDB.Close()

		metrics, reader := newDBMetricsFixture(t, DBMetricsConfig{
			Enabled:           true,
			PoolStatsInterval: 50 * time.Millisecond,
		})
		metrics.SetSQLDB(mockDB)

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		metrics.StartPoolStatsCollection(ctx)

		time.Sleep(100 * time.Millisecond)
		metrics.Stop()

		rm := collectMetrics(t, reader)
		assert.True(t, hasMetric(rm, "db_pool_connections"))
		assert.True(t, hasMetric(rm, "db_pool_connections_max"))
	})

	t.Run("no-op when sqlDB unset", func(t *testing.T) {
		metrics, _ := newDBMetricsFixture(t, DefaultDBMetricsConfig())

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		metrics.StartPoolStatsCollection(ctx)
		metrics.Stop()
	})

	t.Run("stops on context cancellation", func(t *testing.T) {
		mockDB, _, err := sqlmock.New()
		require.NoError(t, err)
		defer mockDB.Close()

		metrics, _ := newDBMetricsFixture(t, DBMetricsConfig{
			Enabled:           true,
			PoolStatsInterval: time.Second,
		})
		metrics.SetSQLDB(mockDB)

		ctx, cancel := context.WithCancel(context.Background())
		metrics.StartPoolStatsCollection(ctx)
		cancel()
		metrics.Stop()
	})
}

func TestDBMetrics_StopDoesNotBlock(t *testing.T) {
	mockDB, _, err := sqlmock.New()
	require.NoError(t, err)
	defer mockDB.Close()

	metrics, _ := newDBMetricsFixture(t, DBMetricsConfig{
		Enabled:           true,
		PoolStatsInterval: 100 * time.Millisecond,
	})
	metrics.SetSQLDB(mockDB)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	metrics.StartPoolStatsCollection(ctx)

	done := make(chan struct{})
	go func() {
		metrics.Stop()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Stop() blocked")
	}

	// Repeat calls must not panic on the closed channel.
	assert.NotPanics(t, func() { metrics.Stop() })
	assert.NotPanics(t, func() { metrics.Stop() })
}

func TestDBMetricsPlugin(t *testing.T) {
	metrics, _ := newDBMetricsFixture(t, DefaultDBMetricsConfig())
	plugin := NewDBMetricsPlugin(metrics, zap.NewNop())

	assert.Equal(t, "db_metrics", plugin.Name())

	mockDB, _, err := sqlmock.New()
	require.NoError(t, err)
	defer mockDB.Close()

	gormDB, err := gorm.Open(postgres.New(postgres.Config{Conn: mockDB}), &gorm.Config{})
	require.NoError(t, err)

	require.NoError(t, plugin.Initialize(gormDB))
}

func TestDetectOperationType(t *testing.T) {
	tests := []struct {
		sql  string
		want string
	}{
		{"SELECT * FROM taxonomy_entries", "SELECT"},
		{"  select rubro_id from taxonomy_aliases", "SELECT"},
		{"INSERT INTO allocation_records VALUES (1)", "INSERT"},
		{"update baselines set status = 'ACCEPTED'", "UPDATE"},
		{"DELETE FROM allocation_records WHERE baseline_id = $1", "DELETE"},
		{"CREATE TABLE projects", "OTHER"},
		{"TRUNCATE TABLE allocation_records", "OTHER"},
		{"", "OTHER"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, detectOperationType(tt.sql), "sql %q", tt.sql)
	}
}

func TestDBMetrics_ConcurrentRecordQuery(t *testing.T) {
	ctx := context.Background()
	metrics, reader := newDBMetricsFixture(t, DefaultDBMetricsConfig())

	operations := []string{"SELECT", "INSERT", "UPDATE", "DELETE"}
	tables := []string{"projects", "baselines", "allocation_records", "taxonomy_entries"}

	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			metrics.RecordQuery(ctx, operations[i%4], tables[i%4], time.Duration(i)*time.Millisecond, nil)
		}(i)
	}
	wg.Wait()

	assert.True(t, hasMetric(collectMetrics(t, reader), "db_query_total"))
}
