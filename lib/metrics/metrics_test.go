package metrics

import (
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestCounters(t *testing.T) {
	m := New()
	m.Triggers.WithLabelValues("busy").Inc()
	m.Triggers.WithLabelValues("busy").Inc()
	m.Dispatch.WithLabelValues("report", "dropped").Inc()
	assert.Equal(t, 2.0, testutil.ToFloat64(m.Triggers.WithLabelValues("busy")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Dispatch.WithLabelValues("report", "dropped")))
}

func TestHandler(t *testing.T) {
	m := New()
	m.Gauge("visionhome_queue_depth", "Jobs waiting", func() float64 { return 3 })
	m.Cycles.WithLabelValues("empty").Inc()

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	body := rec.Body.String()
	assert.Contains(t, body, `visionhome_cycles_total{outcome="empty"} 1`)
	assert.Contains(t, body, "visionhome_queue_depth 3")
}
