// Package metrics exposes the engine's prometheus collectors.
package metrics

import (
	"context"
	"time"

	"github.com/aretw0/lattice/pkg/domain"
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics groups the collectors. A nil *Metrics is valid and records nothing.
type Metrics struct {
	Changes        *prometheus.CounterVec
	Rejections     *prometheus.CounterVec
	RemoteDuration *prometheus.HistogramVec
	UndoDepth      prometheus.Gauge
	RedoDepth      prometheus.Gauge
	QueueDepth     prometheus.Gauge
	Unsaved        prometheus.Gauge
}

// New creates the collectors and registers them with reg.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		Changes: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "lattice_changes_total",
				Help: "Total number of committed change requests",
			},
			[]string{"kind"},
		),
		Rejections: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "lattice_rejections_total",
				Help: "Total number of rejected change requests",
			},
			[]string{"kind"},
		),
		RemoteDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "lattice_remote_compute_duration_seconds",
				Help:    "Duration of remote layer computations",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"layer", "outcome"},
		),
		UndoDepth: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "lattice_history_undo_depth",
			Help: "Number of undoable steps",
		}),
		RedoDepth: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "lattice_history_redo_depth",
			Help: "Number of redoable steps",
		}),
		QueueDepth: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "lattice_queue_depth",
			Help: "Number of external requests waiting in the ordering queue",
		}),
		Unsaved: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "lattice_unsaved_changes",
			Help: "1 when the document differs from the last saved or opened file",
		}),
	}
	reg.MustRegister(m.Changes, m.Rejections, m.RemoteDuration, m.UndoDepth, m.RedoDepth, m.QueueDepth, m.Unsaved)
	return m
}

// Hooks returns lifecycle hooks feeding the change counters.
func (m *Metrics) Hooks() domain.LifecycleHooks {
	return domain.LifecycleHooks{
		OnChange: func(ctx context.Context, e *domain.ChangeEvent) {
			m.ObserveChange(e)
		},
		OnRejected: func(ctx context.Context, kind domain.ChangeKind, err error) {
			m.ObserveRejection(kind)
		},
	}
}

// ObserveChange counts a committed change.
func (m *Metrics) ObserveChange(e *domain.ChangeEvent) {
	if m == nil {
		return
	}
	m.Changes.WithLabelValues(string(e.Kind)).Inc()
	if e.Saved {
		m.Unsaved.Set(0)
	} else {
		m.Unsaved.Set(1)
	}
}

// ObserveRejection counts a rejected change request.
func (m *Metrics) ObserveRejection(kind domain.ChangeKind) {
	if m == nil {
		return
	}
	m.Rejections.WithLabelValues(string(kind)).Inc()
}

// ObserveHistory records the undo and redo depths.
func (m *Metrics) ObserveHistory(undo, redo int) {
	if m == nil {
		return
	}
	m.UndoDepth.Set(float64(undo))
	m.RedoDepth.Set(float64(redo))
}

// ObserveQueue records the number of waiting requests.
func (m *Metrics) ObserveQueue(depth int) {
	if m == nil {
		return
	}
	m.QueueDepth.Set(float64(depth))
}

// ObserveRemote records one remote computation.
func (m *Metrics) ObserveRemote(layerType string, d time.Duration, err error) {
	if m == nil {
		return
	}
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	m.RemoteDuration.WithLabelValues(layerType, outcome).Observe(d.Seconds())
}
