package mqtt

import (
	"log"
	"time"

	"github.com/smartvision/visionhome/pubsub"
)

const publishTimeout = 5 * time.Second

// Publisher for mqtt
type Publisher struct {
	broker *Broker
}

func (pub *Publisher) ID() string {
	return pub.broker.ID()
}

// Emit an event. Failures are logged, events are not queued.
func (pub *Publisher) Emit(ev *pubsub.Event) {
	token := pub.broker.client.Publish(prefix+ev.Topic, 1, ev.Retained, ev.Bytes())
	if !token.WaitTimeout(publishTimeout) {
		log.Printf("mqtt: publish %s timed out", ev.Topic)
		return
	}
	if err := token.Error(); err != nil {
		log.Printf("mqtt: publish %s: %s", ev.Topic, err)
	}
}

func (pub *Publisher) Close() {
	pub.broker.Close()
}
