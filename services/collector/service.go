// Package collector is the dashboard backend: it stores the detection
// records posted by capture nodes and serves them back as JSON.
package collector

import (
	"context"
	"log"

	"github.com/smartvision/visionhome/detection"
	"github.com/smartvision/visionhome/pubsub"
	"github.com/smartvision/visionhome/services"
)

// Service collector
type Service struct {
	collector *Collector
}

// ID of the service
func (self *Service) ID() string {
	return "collector"
}

func (self *Service) Init() error {
	conf := services.Config
	if err := conf.ValidateCollector(); err != nil {
		return err
	}
	store, err := OpenStore(conf.Collector.Store, conf.Collector.Path)
	if err != nil {
		return err
	}
	log.Printf("collector: storing records in %s (%s)", conf.Collector.Path, conf.Collector.Store)
	hub := NewHub(conf.Collector.Allowed_origins)
	services.Metrics.Gauge("visionhome_websocket_clients", "Connected dashboards", func() float64 {
		return float64(hub.Clients())
	})
	self.collector = &Collector{
		Key:     conf.Collector.Key,
		Store:   store,
		Hub:     hub,
		Metrics: services.Metrics,
	}
	return nil
}

// Run serves the collector API until the process is signalled.
func (self *Service) Run() error {
	ctx := services.Context()
	conf := services.Config.Collector
	defer self.collector.Store.Close()
	defer self.collector.Hub.Close()

	if conf.Ingest {
		if services.Subscriber == nil {
			log.Println("collector: ingest enabled but no broker configured")
		} else {
			go self.collector.Follow(ctx, services.Subscriber)
		}
	}
	return services.ListenAndServe(ctx, conf.Addr(), self.collector.Router(conf.Allowed_origins), 0)
}

// Follow subscribes to detection events and ingests them until ctx is
// cancelled or the subscription ends.
func (self *Collector) Follow(ctx context.Context, sub pubsub.Subscriber) {
	ch := sub.Subscribe(pubsub.Exact("detection"))
	defer sub.Close(ch)
	self.Ingest(ctx, ch)
}

// Ingest stores detection events published on the bus until ctx is
// cancelled or events is closed.
func (self *Collector) Ingest(ctx context.Context, events <-chan *pubsub.Event) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-events:
			if !ok {
				return
			}
			record, err := detection.FromFields(ev.MapField("record"))
			if err != nil {
				log.Println("collector: ignoring detection event:", err)
				self.Metrics.Records.WithLabelValues("rejected").Inc()
				continue
			}
			if err := self.Add(record); err != nil {
				log.Println("collector: storing record:", err)
			}
		}
	}
}
