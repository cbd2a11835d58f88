package dummy

import (
	"sync"

	"github.com/smartvision/visionhome/pubsub"
)

// Dummy Publisher for testing
type Publisher struct {
	mu     sync.Mutex
	events []*pubsub.Event
}

func (self *Publisher) ID() string {
	return "dummy"
}

func (self *Publisher) Emit(ev *pubsub.Event) {
	self.mu.Lock()
	self.events = append(self.events, ev)
	self.mu.Unlock()
}

func (self *Publisher) Close() {}

// Events returns a copy of everything emitted so far.
func (self *Publisher) Events() []*pubsub.Event {
	self.mu.Lock()
	defer self.mu.Unlock()
	return append([]*pubsub.Event(nil), self.events...)
}

// Topic returns the emitted events matching topic.
func (self *Publisher) Topic(topic string) []*pubsub.Event {
	var ret []*pubsub.Event
	for _, ev := range self.Events() {
		if ev.Topic == topic {
			ret = append(ret, ev)
		}
	}
	return ret
}
