package tagdex

import (
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kailas-cloud/tagdex/internal/domain"
)

func TestNew_NoAddress(t *testing.T) {
	_, err := New(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "database address required")
}

func TestCreateStore_UnknownDriver(t *testing.T) {
	cfg := &clientConfig{driver: "unknown", addrs: []string{"localhost:1234"}}
	_, err := createStore(cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), `unknown driver "unknown"`)
}

func TestClientOptions(t *testing.T) {
	cfg := &clientConfig{}
	WithValkey("localhost:6379", "secret").apply(cfg)
	assert.Equal(t, "valkey", cfg.driver)
	assert.Equal(t, []string{"localhost:6379"}, cfg.addrs)
	assert.Equal(t, "secret", cfg.password)

	WithRedis("localhost:6380", "pass").apply(cfg)
	assert.Equal(t, "redis", cfg.driver)
	assert.Equal(t, []string{"localhost:6380"}, cfg.addrs)

	WithStandalone().apply(cfg)
	WithKeyPrefix("app:").apply(cfg)
	WithReadinessTimeout(3 * time.Second).apply(cfg)
	WithMaxBatchSize(250).apply(cfg)
	WithGracePeriod(5 * time.Minute).apply(cfg)
	assert.True(t, cfg.standalone)
	assert.Equal(t, "app:", cfg.keyPrefix)
	assert.Equal(t, 3*time.Second, cfg.readinessTimeout)
	assert.Equal(t, 250, cfg.maxBatchSize)
	assert.Equal(t, 5*time.Minute, cfg.gracePeriod)

	logger := slog.Default()
	WithLogger(logger).apply(cfg)
	assert.Same(t, logger, cfg.logger)

	reg := prometheus.NewRegistry()
	WithPrometheus(reg).apply(cfg)
	assert.Equal(t, reg, cfg.metricsReg)
}

func TestClient_Close_NilStore(t *testing.T) {
	c := &Client{}
	assert.NotPanics(t, c.Close)
}

func TestObserver_NilSafe(t *testing.T) {
	var obs *observer
	assert.NotPanics(t, func() {
		obs.observe("test", time.Now(), nil)
		obs.observeItems("test", []ItemResult{{ID: "1", Status: StatusApplied}})
	})
}

func TestObserver_WithPrometheus(t *testing.T) {
	reg := prometheus.NewRegistry()
	obs, err := newObserver(nil, reg)
	require.NoError(t, err)

	obs.observe("tag.get", time.Now().Add(-10*time.Millisecond), nil)
	obs.observe("tag.get", time.Now(), domain.ErrTagNotFound)
	obs.observe("tag.add", time.Now(), &domain.PartialFailureError{})
	obs.observe("tag.add", time.Now(), errors.New("boom"))
	obs.observeItems("tag.add", []ItemResult{
		{ID: "1", Status: StatusApplied},
		{ID: "2", Status: StatusNotFound},
		{ID: "3", Status: StatusApplied},
	})

	assert.InDelta(t, 1, testutil.ToFloat64(obs.metrics.operations.WithLabelValues("tag.get", "ok")), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(obs.metrics.operations.WithLabelValues("tag.get", "not_found")), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(obs.metrics.operations.WithLabelValues("tag.add", "partial")), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(obs.metrics.operations.WithLabelValues("tag.add", "error")), 0)
	assert.InDelta(t, 2, testutil.ToFloat64(obs.metrics.items.WithLabelValues("tag.add", "applied")), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(obs.metrics.items.WithLabelValues("tag.add", "not_found")), 0)
}

func TestObserver_ReusesRegisteredMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	first, err := newObserver(nil, reg)
	require.NoError(t, err)
	second, err := newObserver(nil, reg)
	require.NoError(t, err)

	second.observe("ping", time.Now(), nil)
	assert.InDelta(t, 1, testutil.ToFloat64(first.metrics.operations.WithLabelValues("ping", "ok")), 0)
}

func TestItemResult_Failed(t *testing.T) {
	assert.False(t, ItemResult{Status: StatusApplied}.Failed())
	assert.False(t, ItemResult{Status: StatusUnchanged}.Failed())
	assert.True(t, ItemResult{Status: StatusNotFound}.Failed())
	assert.True(t, ItemResult{Status: StatusError}.Failed())
}
