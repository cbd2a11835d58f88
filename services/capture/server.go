package capture

import (
	"log"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/smartvision/visionhome/lib/metrics"
	"github.com/smartvision/visionhome/services"
)

type api struct {
	key     string
	trigger *Trigger
	loop    *Loop
	metrics *metrics.Metrics
}

func (self *api) detect(w http.ResponseWriter, r *http.Request) {
	if !services.ValidKey(r.Header.Get("X-Device-Key"), self.key) {
		log.Printf("capture: unauthorized trigger from %s", r.RemoteAddr)
		self.metrics.Triggers.WithLabelValues("unauthorized").Inc()
		services.TextResponse(w, http.StatusUnauthorized, "Unauthorized")
		return
	}
	if !self.trigger.Fire() {
		self.metrics.Triggers.WithLabelValues("busy").Inc()
		services.TextResponse(w, http.StatusBadRequest, "Busy")
		return
	}
	self.metrics.Triggers.WithLabelValues("accepted").Inc()
	services.TextResponse(w, http.StatusOK, "Starting capture")
}

func (self *api) status(w http.ResponseWriter, r *http.Request) {
	services.JSONResponse(w, http.StatusOK, self.loop.Status())
}

func health(w http.ResponseWriter, r *http.Request) {
	services.JSONResponse(w, http.StatusOK, map[string]string{"status": "ok"})
}

// Router serves the trigger endpoint:
//
// GET /detect - start a capture cycle (X-Device-Key required)
//
// GET /status - state of the capture loop
//
// GET /health, GET /metrics
func Router(key string, trigger *Trigger, loop *Loop, m *metrics.Metrics) http.Handler {
	a := &api{key: key, trigger: trigger, loop: loop, metrics: m}
	router := mux.NewRouter()
	router.Path("/detect").Methods("GET").HandlerFunc(a.detect)
	router.Path("/status").Methods("GET").HandlerFunc(a.status)
	router.Path("/health").Methods("GET").HandlerFunc(health)
	router.Path("/metrics").Methods("GET").Handler(m.Handler())
	return services.LoggingHandler(router)
}
