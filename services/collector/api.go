package collector

import (
	"io"
	"log"
	"net/http"

	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"

	"github.com/smartvision/visionhome/detection"
	"github.com/smartvision/visionhome/lib/metrics"
	"github.com/smartvision/visionhome/services"
)

const maxBody = 64 << 10

type response struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

// Collector receives detection records from capture nodes and serves them
// to the dashboard.
type Collector struct {
	Key     string
	Store   Store
	Hub     *Hub
	Metrics *metrics.Metrics
}

// Add stores r and pushes it to connected dashboards.
func (self *Collector) Add(r detection.Record) error {
	if err := self.Store.Append(r); err != nil {
		return err
	}
	log.Printf("collector: stored %s (%.2f%%) at %s", r.Object, r.Confidence, r.Timestamp)
	self.Metrics.Records.WithLabelValues("stored").Inc()
	if self.Hub != nil {
		self.Hub.Broadcast(r)
	}
	return nil
}

func (self *Collector) newDetection(w http.ResponseWriter, r *http.Request) {
	if !services.ValidKey(r.Header.Get("X-Device-Key"), self.Key) {
		log.Printf("collector: unauthorized record from %s", r.RemoteAddr)
		self.Metrics.Records.WithLabelValues("unauthorized").Inc()
		services.JSONResponse(w, http.StatusUnauthorized, response{"error", "Unauthorized"})
		return
	}
	record, err := detection.Decode(io.LimitReader(r.Body, maxBody))
	if err != nil {
		log.Printf("collector: rejected record from %s: %s", r.RemoteAddr, err)
		self.Metrics.Records.WithLabelValues("rejected").Inc()
		services.JSONResponse(w, http.StatusBadRequest, response{"error", err.Error()})
		return
	}
	if err := self.Add(record); err != nil {
		log.Println("collector: storing record:", err)
		self.Metrics.Records.WithLabelValues("failed").Inc()
		services.JSONResponse(w, http.StatusInternalServerError, response{"error", "Storage failed"})
		return
	}
	services.JSONResponse(w, http.StatusOK, response{"success", "Data stored"})
}

func (self *Collector) getData(w http.ResponseWriter, r *http.Request) {
	records, err := self.Store.All()
	if err != nil {
		log.Println("collector: reading records:", err)
	}
	if records == nil {
		records = []detection.Record{}
	}
	services.JSONResponse(w, http.StatusOK, records)
}

func health(w http.ResponseWriter, r *http.Request) {
	services.JSONResponse(w, http.StatusOK, map[string]string{"status": "ok"})
}

// Router serves:
//
// POST /new_detection - store a record (X-Device-Key required)
//
// GET /get_data - all records, most recent first
//
// GET /ws - live feed of new records
//
// GET /health, GET /metrics
func (self *Collector) Router(origins []string) http.Handler {
	router := mux.NewRouter()
	router.Path("/new_detection").Methods("POST").HandlerFunc(self.newDetection)
	router.Path("/get_data").Methods("GET").HandlerFunc(self.getData)
	if self.Hub != nil {
		router.Path("/ws").Methods("GET").Handler(self.Hub)
	}
	router.Path("/health").Methods("GET").HandlerFunc(health)
	router.Path("/metrics").Methods("GET").Handler(self.Metrics.Handler())

	cors := handlers.CORS(
		handlers.AllowedOrigins(origins),
		handlers.AllowedMethods([]string{"GET", "POST", "OPTIONS"}),
		handlers.AllowedHeaders([]string{"Content-Type", "X-Device-Key"}),
	)
	return services.LoggingHandler(cors(router))
}
