// Package mqtt implements the pubsub interfaces on an MQTT broker. All
// topics are placed under "visionhome/".
package mqtt

import (
	"fmt"
	"math/rand"
	"os"
	"time"

	MQTT "github.com/eclipse/paho.mqtt.golang"
	"github.com/pkg/errors"
)

const prefix = "visionhome/"

type Broker struct {
	broker     string
	client     MQTT.Client
	subscriber *Subscriber
}

func clientID(name string) string {
	hostname, _ := os.Hostname()
	return fmt.Sprintf("visionhome/%s-%s-%d-%d", name, hostname, os.Getpid(), rand.Int())
}

// NewBroker connects to the broker url, e.g. tcp://127.0.0.1:1883.
func NewBroker(broker, name string) (*Broker, error) {
	self := &Broker{broker: broker}
	self.subscriber = newSubscriber(self)

	opts := MQTT.NewClientOptions()
	opts.AddBroker(broker)
	opts.SetClientID(clientID(name))
	opts.SetCleanSession(true)
	opts.SetAutoReconnect(true)
	opts.SetConnectTimeout(10 * time.Second)
	opts.SetDefaultPublishHandler(self.subscriber.publishHandler)
	opts.SetOnConnectHandler(self.subscriber.connectHandler)

	self.client = MQTT.NewClient(opts)
	if token := self.client.Connect(); token.Wait() && token.Error() != nil {
		return nil, errors.Wrapf(token.Error(), "connecting to %s", broker)
	}
	return self, nil
}

func (self *Broker) ID() string {
	return "mqtt: " + self.broker
}

func (self *Broker) Subscriber() *Subscriber {
	return self.subscriber
}

func (self *Broker) Publisher() *Publisher {
	return &Publisher{broker: self}
}

func (self *Broker) Close() {
	self.client.Disconnect(250)
}
