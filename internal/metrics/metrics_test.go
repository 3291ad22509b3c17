package metrics_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/aretw0/lattice/internal/metrics"
	"github.com/aretw0/lattice/pkg/domain"
	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func value(t *testing.T, c prometheus.Metric) float64 {
	t.Helper()
	var m dto.Metric
	require.NoError(t, c.Write(&m))
	switch {
	case m.Counter != nil:
		return m.Counter.GetValue()
	case m.Gauge != nil:
		return m.Gauge.GetValue()
	case m.Histogram != nil:
		return float64(m.Histogram.GetSampleCount())
	}
	return 0
}

func TestHooksCountChanges(t *testing.T) {
	m := metrics.New(prometheus.NewRegistry())
	hooks := m.Hooks()
	ctx := context.Background()

	hooks.OnChange(ctx, &domain.ChangeEvent{Kind: domain.ChangeAddLayer})
	hooks.OnChange(ctx, &domain.ChangeEvent{Kind: domain.ChangeAddLayer})
	hooks.OnChange(ctx, &domain.ChangeEvent{Kind: domain.ChangeSaveFile, Saved: true})
	hooks.OnRejected(ctx, domain.ChangeCreateEdge, errors.New("boom"))

	assert.Equal(t, 2.0, value(t, m.Changes.WithLabelValues("add_layer")))
	assert.Equal(t, 1.0, value(t, m.Rejections.WithLabelValues("create_edge")))
	assert.Equal(t, 0.0, value(t, m.Unsaved))
}

func TestGauges(t *testing.T) {
	m := metrics.New(prometheus.NewRegistry())
	m.ObserveHistory(3, 1)
	m.ObserveQueue(2)
	m.ObserveRemote("Add", 10*time.Millisecond, nil)

	assert.Equal(t, 3.0, value(t, m.UndoDepth))
	assert.Equal(t, 1.0, value(t, m.RedoDepth))
	assert.Equal(t, 2.0, value(t, m.QueueDepth))
	h, err := m.RemoteDuration.GetMetricWithLabelValues("Add", "ok")
	require.NoError(t, err)
	assert.Equal(t, 1.0, value(t, h.(prometheus.Metric)))
}

func TestNilMetricsIsSafe(t *testing.T) {
	var m *metrics.Metrics
	assert.NotPanics(t, func() {
		m.ObserveChange(&domain.ChangeEvent{Kind: domain.ChangeUndo})
		m.ObserveHistory(1, 1)
		m.ObserveQueue(1)
		m.ObserveRemote("Add", time.Second, nil)
		m.Hooks().OnRejected(context.Background(), domain.ChangeUndo, errors.New("x"))
	})
}
