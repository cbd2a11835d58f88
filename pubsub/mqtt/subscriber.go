package mqtt

import (
	"log"
	"strings"
	"sync"

	"github.com/smartvision/visionhome/pubsub"

	MQTT "github.com/eclipse/paho.mqtt.golang"
)

type eventChannel struct {
	C      chan *pubsub.Event
	topics []pubsub.Topic
}

// Subscriber struct
type Subscriber struct {
	broker       *Broker
	channels     []eventChannel
	channelsLock sync.Mutex
	topicCount   map[string]int
	topicLock    sync.Mutex
}

func newSubscriber(broker *Broker) *Subscriber {
	return &Subscriber{broker: broker, topicCount: map[string]int{}}
}

func (self *Subscriber) ID() string {
	return self.broker.ID()
}

func (self *Subscriber) publishHandler(client MQTT.Client, msg MQTT.Message) {
	topic := strings.TrimPrefix(msg.Topic(), prefix)
	event := pubsub.Parse(string(msg.Payload()), topic)
	if event == nil {
		return
	}
	event.SetRetained(msg.Retained())

	self.channelsLock.Lock()
	defer self.channelsLock.Unlock()
	for _, ch := range self.channels {
		if matchAny(ch.topics, topic) {
			select {
			case ch.C <- event:
			default:
				log.Printf("mqtt: subscriber full, dropping %s", topic)
			}
		}
	}
}

func matchAny(topics []pubsub.Topic, topic string) bool {
	for _, t := range topics {
		if t.Match(topic) {
			return true
		}
	}
	return false
}

func (self *Subscriber) connectHandler(client MQTT.Client) {
	// (re)subscribe when (re)connected
	subs := map[string]byte{}
	self.topicLock.Lock()
	for topic := range self.topicCount {
		subs[topic] = 1
	}
	self.topicLock.Unlock()

	if len(subs) > 0 {
		log.Println("mqtt: connected, subscribing:", subs)
		self.subscribe(subs)
	}
}

func (self *Subscriber) subscribe(subs map[string]byte) {
	// nil callback: messages go to the default handler
	if token := self.broker.client.SubscribeMultiple(subs, nil); token.Wait() && token.Error() != nil {
		log.Println("mqtt: error subscribing:", token.Error())
	}
}

func topicToMqtt(topic pubsub.Topic) string {
	switch topic := topic.(type) {
	case *pubsub.AllTopic:
		return prefix + "#"
	case *pubsub.ExactTopic:
		return prefix + topic.Exact
	case *pubsub.PrefixTopic:
		return prefix + topic.Prefix + "/#"
	default:
		log.Panicln("Topic type unsupported")
	}
	return ""
}

func (self *Subscriber) Subscribe(topics ...pubsub.Topic) <-chan *pubsub.Event {
	subs := map[string]byte{}
	self.topicLock.Lock()
	for _, topic := range topics {
		t := topicToMqtt(topic)
		if _, exists := self.topicCount[t]; !exists {
			subs[t] = 1
		}
		self.topicCount[t] += 1
	}
	self.topicLock.Unlock()

	ch := eventChannel{C: make(chan *pubsub.Event, 16), topics: topics}
	self.channelsLock.Lock()
	self.channels = append(self.channels, ch)
	self.channelsLock.Unlock()

	if len(subs) > 0 {
		self.subscribe(subs)
	}
	return ch.C
}

func (self *Subscriber) Close(channel <-chan *pubsub.Event) {
	self.channelsLock.Lock()
	defer self.channelsLock.Unlock()
	var channels []eventChannel
	for _, ch := range self.channels {
		if channel != (<-chan *pubsub.Event)(ch.C) {
			channels = append(channels, ch)
			continue
		}
		for _, topic := range ch.topics {
			t := topicToMqtt(topic)
			self.topicLock.Lock()
			self.topicCount[t] -= 1
			current := self.topicCount[t]
			if current == 0 {
				delete(self.topicCount, t)
			}
			self.topicLock.Unlock()
			if current == 0 {
				if token := self.broker.client.Unsubscribe(t); token.Wait() && token.Error() != nil {
					log.Println("mqtt: error unsubscribing:", token.Error())
				}
			}
		}
		close(ch.C)
	}
	self.channels = channels
}
