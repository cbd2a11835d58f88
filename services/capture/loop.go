package capture

import (
	"context"
	"image"
	"log"
	"sync"
	"time"

	"github.com/barnybug/gofsm"

	"github.com/smartvision/visionhome/detection"
	"github.com/smartvision/visionhome/lib/dispatch"
	"github.com/smartvision/visionhome/lib/metrics"
	"github.com/smartvision/visionhome/lib/vision"
	"github.com/smartvision/visionhome/notify"
	"github.com/smartvision/visionhome/pubsub"
	"github.com/smartvision/visionhome/util"
)

// Timing of a capture cycle.
type Timing struct {
	Countdown int
	Tick      time.Duration
	Retry     time.Duration
	Pause     time.Duration
	Poll      time.Duration
	Report    time.Duration
	Alert     time.Duration
}

// Submitter queues background jobs without blocking.
type Submitter interface {
	Submit(job dispatch.Job) bool
}

// Status of the loop, as served by /status.
type Status struct {
	State string            `json:"state"`
	Since time.Time         `json:"since"`
	For   string            `json:"for"`
	Busy  bool              `json:"busy"`
	Last  *detection.Record `json:"last,omitempty"`
}

// Loop drives the camera through Idle, Priming, Capturing and Dispatching
// each time the trigger fires.
type Loop struct {
	Trigger    *Trigger
	Camera     vision.Camera
	Detector   vision.Detector
	Annotator  vision.Annotator
	Dispatcher Submitter
	Reporter   Reporter
	Notifiers  []notify.Notifier
	Filter     *notify.Filter
	Publisher  pubsub.Publisher
	Metrics    *metrics.Metrics
	Crop       int
	Threshold  float64
	Timing     Timing
	Now        func() time.Time

	automata  *gofsm.Automata
	automaton *gofsm.Automaton
	open      bool
	outcome   string
	frame     image.Image
	found     vision.Detection

	mu    sync.Mutex
	state string
	since time.Time
	last  *detection.Record
}

func (self *Loop) init() error {
	if self.automaton != nil {
		return nil
	}
	automata, automaton, err := loadMachine()
	if err != nil {
		return err
	}
	self.automata, self.automaton = automata, automaton
	if self.Publisher == nil {
		self.Publisher = pubsub.Discard{}
	}
	if self.Metrics == nil {
		self.Metrics = metrics.New()
	}
	if self.Filter == nil {
		self.Filter, _ = notify.NewFilter("")
	}
	if self.Annotator == nil {
		self.Annotator = vision.BoxAnnotator{}
	}
	if self.Now == nil {
		self.Now = time.Now
	}
	if self.Timing.Poll <= 0 {
		self.Timing.Poll = 100 * time.Millisecond
	}
	self.mu.Lock()
	self.state, self.since = automaton.State.Name, automaton.Since
	self.mu.Unlock()
	return nil
}

// Run waits for the trigger and runs a cycle each time it fires, until ctx
// is cancelled.
func (self *Loop) Run(ctx context.Context) error {
	if err := self.init(); err != nil {
		return err
	}
	log.Println("capture: waiting for trigger, camera off")

	ticker := time.NewTicker(self.Timing.Poll)
	defer ticker.Stop()
	defer self.release(context.Background())
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-self.Trigger.Wake():
		case <-ticker.C:
		}
		self.Cycle(ctx)
	}
}

// Cycle runs one capture cycle if the trigger is pending and the camera is
// not already in use. It returns when the loop is back in Idle.
func (self *Loop) Cycle(ctx context.Context) {
	if err := self.init(); err != nil {
		log.Println("capture:", err)
		return
	}
	if !self.Trigger.Pending() || self.open {
		return
	}
	log.Println("capture: trigger received, camera on")
	self.process(ctx, "triggered")
}

// process feeds ev to the machine, performing the actions it emits until
// no further events result.
func (self *Loop) process(ctx context.Context, ev string) {
	events := []string{ev}
	for len(events) > 0 {
		ev, events = events[0], events[1:]
		self.automaton.Process(event(ev))
		for _, action := range self.drain() {
			if next := self.perform(ctx, action); next != "" {
				events = append(events, next)
			}
		}
	}
}

func (self *Loop) drain() []string {
	var actions []string
	for {
		select {
		case change := <-self.automata.Changes:
			self.changed(change)
		case action := <-self.automata.Actions:
			actions = append(actions, action.Name)
		default:
			return actions
		}
	}
}

func (self *Loop) changed(change gofsm.Change) {
	log.Printf("capture: %s->%s after %s (event: %s)", change.Old, change.New, util.ShortDuration(change.Duration), change.Trigger)
	self.mu.Lock()
	self.state, self.since = change.New, change.Since.Add(change.Duration)
	self.mu.Unlock()
	self.Publisher.Emit(pubsub.NewEvent("state", pubsub.Fields{
		"state":    change.New,
		"previous": change.Old,
		"duration": change.Duration.Seconds(),
	}))
}

func (self *Loop) perform(ctx context.Context, action string) string {
	switch action {
	case "prime":
		return self.prime(ctx)
	case "capture":
		return self.capture()
	case "dispatch":
		return self.dispatch()
	case "release":
		self.release(ctx)
	default:
		log.Println("capture: unknown action", action)
	}
	return ""
}

// prime opens the camera, retrying once, then counts down while frames are
// read and discarded so exposure can settle.
func (self *Loop) prime(ctx context.Context) string {
	if err := self.openCamera(ctx); err != nil {
		log.Println("capture: camera unavailable, abandoning cycle:", err)
		self.outcome = "failed"
		return "failed"
	}
	for i := self.Timing.Countdown; i > 0; i-- {
		log.Printf("capture: countdown %d", i)
		self.Publisher.Emit(pubsub.NewEvent("countdown", pubsub.Fields{"remaining": i}))
		if !self.settle(ctx, self.Timing.Tick) {
			self.outcome = "failed"
			return "failed"
		}
	}
	return "primed"
}

func (self *Loop) openCamera(ctx context.Context) error {
	err := self.Camera.Open()
	if err == nil {
		self.open = true
		return nil
	}
	self.Metrics.CameraErrors.Inc()
	log.Printf("capture: failed to initialise camera: %s, retrying in %s", err, self.Timing.Retry)
	if !util.Sleep(ctx, self.Timing.Retry) {
		return ctx.Err()
	}
	if err := self.Camera.Open(); err != nil {
		self.Metrics.CameraErrors.Inc()
		return err
	}
	self.open = true
	return nil
}

func (self *Loop) settle(ctx context.Context, d time.Duration) bool {
	deadline := time.Now().Add(d)
	for time.Now().Before(deadline) {
		if ctx.Err() != nil {
			return false
		}
		if _, err := self.Camera.Read(); err != nil {
			util.Sleep(ctx, 50*time.Millisecond)
		}
	}
	return ctx.Err() == nil
}

func (self *Loop) capture() string {
	log.Println("capture: processing image")
	img, err := self.Camera.Read()
	if err != nil {
		log.Println("capture: failed to read frame:", err)
		self.outcome = "failed"
		return "failed"
	}
	img = vision.CropCenter(img, self.Crop)
	detections, err := self.Detector.Detect(img, self.Threshold)
	if err != nil {
		log.Println("capture: inference failed:", err)
		self.outcome = "failed"
		return "failed"
	}
	top, ok := vision.Top(detections, self.Threshold)
	if !ok {
		log.Println("capture: no objects detected")
		self.outcome = "empty"
		return "empty"
	}
	self.frame, self.found = img, top
	return "detected"
}

// dispatch hands the report and alerts to the dispatcher without waiting
// on them.
func (self *Loop) dispatch() string {
	found, frame := self.found, self.frame
	self.frame = nil
	self.outcome = "detected"

	record := detection.New(found.Label, found.Score, self.Now())
	log.Printf("capture: detected %s (%.1f%%)", record.Object, record.Confidence)
	self.Metrics.Detections.WithLabelValues(record.Object).Inc()
	self.mu.Lock()
	self.last = &record
	self.mu.Unlock()

	if self.Reporter != nil {
		self.Dispatcher.Submit(dispatch.Job{
			Name:    "report",
			Timeout: self.Timing.Report,
			Run: func(ctx context.Context) error {
				return self.Reporter.Report(ctx, record)
			},
		})
	}
	self.alert(record, frame, found)

	self.Publisher.Emit(pubsub.NewEvent("detection", pubsub.Fields{"record": record.Fields()}))
	return "dispatched"
}

func (self *Loop) alert(record detection.Record, frame image.Image, found vision.Detection) {
	if len(self.Notifiers) == 0 {
		return
	}
	match, err := self.Filter.Match(record)
	if err != nil {
		log.Println("capture:", err)
		return
	}
	if !match {
		log.Printf("capture: %s does not match alert filter %s", record.Object, self.Filter)
		return
	}
	photo, err := self.Annotator.Annotate(frame, found)
	if err != nil {
		log.Println("capture: annotating frame failed, sending plain box:", err)
		if photo, err = (vision.BoxAnnotator{}).Annotate(frame, found); err != nil {
			log.Println("capture: encoding frame failed:", err)
			return
		}
	}
	alert := notify.Alert{Record: record, Photo: photo}
	for _, n := range self.Notifiers {
		n := n
		self.Dispatcher.Submit(dispatch.Job{
			Name:    n.Name(),
			Timeout: self.Timing.Alert,
			Run: func(ctx context.Context) error {
				return n.Notify(ctx, alert)
			},
		})
	}
}

// release closes the camera and clears the trigger for the next signal.
func (self *Loop) release(ctx context.Context) {
	if self.open {
		if err := self.Camera.Close(); err != nil {
			log.Println("capture: closing camera:", err)
		}
		self.open = false
		log.Println("capture: camera off")
	}
	self.Trigger.Clear()
	if self.outcome != "" {
		self.Metrics.Cycles.WithLabelValues(self.outcome).Inc()
		self.outcome = ""
		util.Sleep(ctx, self.Timing.Pause)
	}
}

// State of the machine and whether a cycle is pending.
func (self *Loop) Status() Status {
	self.mu.Lock()
	defer self.mu.Unlock()
	status := Status{State: self.state, Since: self.since, Busy: self.Trigger.Pending(), Last: self.last}
	if status.State == "" {
		status.State = Idle
	} else {
		status.For = util.ShortDuration(time.Since(status.Since))
	}
	return status
}
