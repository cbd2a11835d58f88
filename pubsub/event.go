// Package pubsub carries visionhome events (detections, loop state changes,
// countdown ticks) to the rest of a home automation setup.
package pubsub

import (
	"encoding/json"
	"time"
)

// Fields of an event payload. Values are JSON compatible.
type Fields map[string]interface{}

// Event is a topic plus a flat JSON payload. On the wire the topic and
// timestamp sit alongside the fields.
type Event struct {
	Topic     string
	Timestamp time.Time
	Fields    Fields
	Retained  bool
}

// TimeFormat of the wire timestamp, UTC with milliseconds.
const TimeFormat = "2006-01-02 15:04:05.000"

const (
	topicKey     = "topic"
	timestampKey = "timestamp"
)

// NewEvent stamps fields with the current time, or with fields["timestamp"]
// when it parses.
func NewEvent(topic string, fields Fields) *Event {
	ev := &Event{Topic: topic, Timestamp: time.Now().UTC(), Fields: fields}
	if ev.Fields == nil {
		ev.Fields = Fields{}
	}
	if s, ok := ev.Fields[timestampKey].(string); ok {
		delete(ev.Fields, timestampKey)
		if t, err := time.Parse(TimeFormat, s); err == nil {
			ev.Timestamp = t
		}
	}
	return ev
}

func (self *Event) MarshalJSON() ([]byte, error) {
	payload := make(Fields, len(self.Fields)+2)
	for k, v := range self.Fields {
		payload[k] = v
	}
	payload[topicKey] = self.Topic
	payload[timestampKey] = self.Timestamp.Format(TimeFormat)
	return json.Marshal(map[string]interface{}(payload))
}

// Bytes is the wire encoding. Fields that cannot be encoded give nil.
func (self *Event) Bytes() []byte {
	b, err := json.Marshal(self)
	if err != nil {
		return nil
	}
	return b
}

func (self *Event) String() string {
	return string(self.Bytes())
}

func (self *Event) StringField(name string) string {
	s, _ := self.Fields[name].(string)
	return s
}

func (self *Event) MapField(name string) map[string]interface{} {
	m, _ := self.Fields[name].(map[string]interface{})
	return m
}

func (self *Event) SetRetained(retained bool) {
	self.Retained = retained
}

// Parse decodes a wire message received on topic. When topic is empty the
// one carried in the body is used; nil is returned if neither is present
// or msg is not a JSON object.
func Parse(msg string, topic string) *Event {
	var fields Fields
	if json.Unmarshal([]byte(msg), &fields) != nil || fields == nil {
		return nil
	}
	if body, ok := fields[topicKey].(string); ok && topic == "" {
		topic = body
	}
	delete(fields, topicKey)
	if topic == "" {
		return nil
	}
	return NewEvent(topic, fields)
}
