// Package capture is the camera node: it waits for a trigger over HTTP or
// a serial line, photographs the scene, runs object detection and hands the
// top detection to the collector and the configured messaging services.
package capture

import (
	"context"
	"net/http"
	"sync"

	"github.com/pkg/errors"

	"github.com/smartvision/visionhome/config"
	"github.com/smartvision/visionhome/lib/dispatch"
	"github.com/smartvision/visionhome/lib/vision"
	"github.com/smartvision/visionhome/notify"
	"github.com/smartvision/visionhome/services"
)

// Vision opens the camera and model for the configuration.
type Vision func(conf *config.Config) (vision.Camera, vision.Detector, vision.Annotator, error)

// Service capture
type Service struct {
	Vision Vision

	trigger    *Trigger
	loop       *Loop
	dispatcher *dispatch.Dispatcher
	handler    http.Handler
}

// ID of the service
func (self *Service) ID() string {
	return "capture"
}

func (self *Service) Init() error {
	conf := services.Config
	if err := conf.ValidateCapture(); err != nil {
		return err
	}
	if self.Vision == nil {
		return errors.New("no camera backend")
	}
	filter, err := notify.NewFilter(conf.Alert.When)
	if err != nil {
		return err
	}
	camera, detector, annotator, err := self.Vision(conf)
	if err != nil {
		return errors.Wrap(err, "loading model")
	}

	m := services.Metrics
	self.dispatcher = dispatch.New(conf.Dispatch.Workers, conf.Dispatch.Queue, func(job string, result dispatch.Result, err error) {
		m.Dispatch.WithLabelValues(job, string(result)).Inc()
	})
	m.Gauge("visionhome_dispatch_pending", "Jobs waiting for a worker", func() float64 {
		return float64(self.dispatcher.Pending())
	})

	c := conf.Capture
	self.trigger = NewTrigger()
	self.loop = &Loop{
		Trigger:    self.trigger,
		Camera:     camera,
		Detector:   detector,
		Annotator:  annotator,
		Dispatcher: self.dispatcher,
		Reporter:   &HTTPReporter{URL: c.Collector_url, Key: c.Collector_key},
		Notifiers:  notify.FromConfig(conf),
		Filter:     filter,
		Publisher:  services.Publisher,
		Metrics:    m,
		Crop:       c.Camera.Crop,
		Threshold:  c.Model.Threshold,
		Timing: Timing{
			Countdown: c.Timing.Countdown,
			Tick:      c.Timing.Tick.Duration,
			Retry:     c.Timing.Retry.Duration,
			Pause:     c.Timing.Pause.Duration,
			Poll:      c.Timing.Poll.Duration,
			Report:    conf.Dispatch.Report.Duration,
			Alert:     conf.Dispatch.Alert.Duration,
		},
	}
	self.handler = Router(c.Key, self.trigger, self.loop, m)
	return nil
}

// Run serves the trigger endpoint and runs the capture loop until the
// process is signalled.
func (self *Service) Run() error {
	return self.run(services.Context())
}

func (self *Service) run(ctx context.Context) error {
	c := services.Config.Capture
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var wg sync.WaitGroup
	if c.Serial.Device != "" {
		serial := &SerialTrigger{Device: c.Serial.Device, Baud: c.Serial.Baud, Word: c.Serial.Word, Trigger: self.trigger}
		wg.Add(1)
		go func() {
			defer wg.Done()
			serial.Run(ctx)
		}()
	}

	errs := make(chan error, 1)
	wg.Add(1)
	go func() {
		defer wg.Done()
		errs <- services.ListenAndServe(ctx, c.Addr(), self.handler, c.Max_connections)
		cancel()
	}()

	err := self.loop.Run(ctx)
	cancel()
	wg.Wait()
	self.dispatcher.Stop()
	if err != nil {
		return err
	}
	return <-errs
}
