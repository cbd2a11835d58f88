package dummy

import (
	"sync"

	"github.com/smartvision/visionhome/pubsub"
)

// Subscriber replays Events to each subscription, in order and filtered by
// topic, then closes the channel.
type Subscriber struct {
	Events []*pubsub.Event

	mu     sync.Mutex
	closed int
}

func (self *Subscriber) ID() string {
	return "dummy"
}

func (self *Subscriber) Subscribe(topics ...pubsub.Topic) <-chan *pubsub.Event {
	var matched []*pubsub.Event
	for _, ev := range self.Events {
		for _, t := range topics {
			if t.Match(ev.Topic) {
				matched = append(matched, ev)
				break
			}
		}
	}
	ch := make(chan *pubsub.Event, len(matched))
	for _, ev := range matched {
		ch <- ev
	}
	close(ch)
	return ch
}

// Close counts the subscriptions released.
func (self *Subscriber) Close(<-chan *pubsub.Event) {
	self.mu.Lock()
	self.closed++
	self.mu.Unlock()
}

func (self *Subscriber) Closed() int {
	self.mu.Lock()
	defer self.mu.Unlock()
	return self.closed
}
