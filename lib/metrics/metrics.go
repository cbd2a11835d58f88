// Package metrics exposes visionhome counters in the Prometheus format.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the counters for one process.
type Metrics struct {
	registry *prometheus.Registry

	// Trigger signals by result: accepted, busy, unauthorized.
	Triggers *prometheus.CounterVec
	// Capture cycles by outcome: detected, empty, failed.
	Cycles *prometheus.CounterVec
	// Camera open failures, including the retried attempt.
	CameraErrors prometheus.Counter
	// Top detections by object label.
	Detections *prometheus.CounterVec
	// Dispatched jobs by job name and result: ok, failed, dropped.
	Dispatch *prometheus.CounterVec
	// Collector records by result: stored, rejected, unauthorized.
	Records *prometheus.CounterVec
}

func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		Triggers: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "visionhome_triggers_total",
			Help: "Trigger signals received",
		}, []string{"result"}),
		Cycles: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "visionhome_cycles_total",
			Help: "Capture cycles completed",
		}, []string{"outcome"}),
		CameraErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "visionhome_camera_errors_total",
			Help: "Camera open failures",
		}),
		Detections: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "visionhome_detections_total",
			Help: "Top detections by label",
		}, []string{"object"}),
		Dispatch: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "visionhome_dispatch_total",
			Help: "Background jobs by result",
		}, []string{"job", "result"}),
		Records: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "visionhome_records_total",
			Help: "Detection records received by the collector",
		}, []string{"result"}),
	}
	m.registry.MustRegister(m.Triggers, m.Cycles, m.CameraErrors, m.Detections, m.Dispatch, m.Records)
	return m
}

// Gauge registers a gauge read from f at scrape time.
func (m *Metrics) Gauge(name, help string, f func() float64) {
	m.registry.MustRegister(prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name: name,
		Help: help,
	}, f))
}

// Handler serves the registry.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
