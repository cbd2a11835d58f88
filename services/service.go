// Package services is the runtime shared by the visionhome services: a
// registry, configuration, event bus and metrics set up once per process.
package services

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"sort"
	"sync"
	"syscall"
	"time"

	"github.com/smartvision/visionhome/config"
	"github.com/smartvision/visionhome/lib/metrics"
	"github.com/smartvision/visionhome/pubsub"
	"github.com/smartvision/visionhome/pubsub/mqtt"
)

// Service interface
type Service interface {
	ID() string
	Run() error
}

// ServiceInit interface
type ServiceInit interface {
	Service
	Init() error
}

var serviceMap map[string]Service = map[string]Service{}
var enabled []Service
var Config *config.Config
var Metrics = metrics.New()

var Publisher pubsub.Publisher = pubsub.Discard{}
var Subscriber pubsub.Subscriber

var (
	ctx     context.Context
	stop    context.CancelFunc
	ctxOnce sync.Once
)

// Context is cancelled on SIGINT or SIGTERM.
func Context() context.Context {
	ctxOnce.Do(func() {
		ctx, stop = signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	})
	return ctx
}

func SetupLogging() {
	log.SetFlags(log.Ltime | log.Lmicroseconds)
	log.SetOutput(os.Stdout)
}

// SetupBroker connects the event bus if a broker is configured. Without one
// events are discarded.
func SetupBroker(name string) error {
	url := Config.Endpoints.Mqtt.Broker
	if url == "" {
		log.Println("mqtt: no broker configured, events will not be published")
		return nil
	}
	broker, err := mqtt.NewBroker(url, name)
	if err != nil {
		return err
	}
	Publisher = broker.Publisher()
	Subscriber = broker.Subscriber()
	log.Println("mqtt: connected to", url)
	return nil
}

func Launch(ss []string) {
	enabled = []Service{}
	for _, name := range ss {
		if service, ok := serviceMap[name]; ok {
			enabled = append(enabled, service)
		} else {
			log.Fatalf("Service %s does not exist", name)
		}
	}

	if Config == nil {
		conf, err := config.Open()
		if err != nil {
			log.Fatalln("Error reading config:", err)
		}
		Config = conf
	}
	if err := SetupBroker(ss[0]); err != nil {
		log.Fatalln("Error connecting to broker:", err)
	}

	for _, service := range enabled {
		log.Printf("Starting %s\n", service.ID())
		if service, ok := service.(ServiceInit); ok {
			err := service.Init()
			if err != nil {
				log.Fatalf("Error init service %s: %s", service.ID(), err.Error())
			}
			log.Printf("Initialized %s\n", service.ID())
		}
	}

	errs := make(chan error, len(enabled))
	for _, service := range enabled {
		go Heartbeat(Context(), service.ID())
		go func(service Service) {
			err := service.Run()
			if err != nil {
				err = fmt.Errorf("Error running service %s: %s", service.ID(), err.Error())
			}
			errs <- err
		}(service)
	}
	for range enabled {
		if err := <-errs; err != nil {
			log.Fatalln(err)
		}
	}
	Shutdown()
}

var (
	heartbeatDelay    = 5 * time.Second
	heartbeatInterval = 60 * time.Second
)

// Heartbeat publishes a retained liveness event for the service until ctx
// is cancelled.
func Heartbeat(ctx context.Context, id string) {
	started := time.Now()
	fields := pubsub.Fields{
		"device":  fmt.Sprintf("heartbeat.%s", id),
		"pid":     os.Getpid(),
		"started": started.Format(time.RFC3339),
	}

	// wait before heartbeating - if the process dies very soon
	delay := heartbeatDelay
	for {
		select {
		case <-ctx.Done():
			return
		case <-time.After(delay):
		}
		delay = heartbeatInterval

		f := pubsub.Fields{"uptime": int(time.Since(started).Seconds())}
		for k, v := range fields {
			f[k] = v
		}
		ev := pubsub.NewEvent("heartbeat/"+id, f)
		ev.SetRetained(true)
		Publisher.Emit(ev)
	}
}

func Register(service Service) {
	if _, exists := serviceMap[service.ID()]; exists {
		log.Fatalf("Duplicate service registered: %s", service.ID())
	}
	serviceMap[service.ID()] = service
}

// Registered lists the service ids available to Launch.
func Registered() []string {
	var ret []string
	for id := range serviceMap {
		ret = append(ret, id)
	}
	sort.Strings(ret)
	return ret
}

func Shutdown() {
	if stop != nil {
		stop()
	}
	if Publisher != nil {
		Publisher.Close()
	}
}
