// Package detection holds the record the capture node produces for every
// successful inference and the collector stores.
package detection

import (
	"encoding/json"
	"io"
	"math"
	"strconv"
	"strings"
	"time"
	"unicode"

	"github.com/pkg/errors"
)

// TimeFormat of Record.Timestamp, local wall clock.
const TimeFormat = "2006-01-02 15:04:05"

// Header of the flat file, one column per Record field.
var Header = []string{"Timestamp", "Object", "Confidence", "Hour"}

type Record struct {
	Timestamp  string  `json:"timestamp"`
	Object     string  `json:"object"`
	Confidence float64 `json:"confidence"`
	Hour       int     `json:"hour"`
}

// New builds a record for a detection with model score in [0, 1] made at
// now. Confidence is stored as a percentage rounded to two decimals.
func New(object string, score float64, now time.Time) Record {
	return Record{
		Timestamp:  now.Format(TimeFormat),
		Object:     object,
		Confidence: math.Round(score*100*100) / 100,
		Hour:       now.Hour(),
	}
}

// Time parses the timestamp in the local time zone.
func (self Record) Time() (time.Time, error) {
	return time.ParseInLocation(TimeFormat, self.Timestamp, time.Local)
}

// Clock returns the HH:MM:SS part of the timestamp.
func (self Record) Clock() string {
	t, err := self.Time()
	if err != nil {
		return self.Timestamp
	}
	return t.Format("15:04:05")
}

// Fields returns the record as a generic map, as used by alert expressions
// and event payloads.
func (self Record) Fields() map[string]interface{} {
	return map[string]interface{}{
		"timestamp":  self.Timestamp,
		"object":     self.Object,
		"confidence": self.Confidence,
		"hour":       self.Hour,
	}
}

// Row converts the record to a flat file row in Header order.
func (self Record) Row() []string {
	return []string{
		self.Timestamp,
		self.Object,
		strconv.FormatFloat(self.Confidence, 'f', -1, 64),
		strconv.Itoa(self.Hour),
	}
}

// FromRow parses a flat file row written by Row.
func FromRow(row []string) (Record, error) {
	if len(row) != len(Header) {
		return Record{}, errors.Errorf("expected %d columns, got %d", len(Header), len(row))
	}
	confidence, err := strconv.ParseFloat(row[2], 64)
	if err != nil {
		return Record{}, errors.Wrap(err, "confidence")
	}
	hour, err := strconv.Atoi(row[3])
	if err != nil {
		return Record{}, errors.Wrap(err, "hour")
	}
	return Record{Timestamp: row[0], Object: row[1], Confidence: confidence, Hour: hour}, nil
}

// Decode reads a json record, rejecting missing, null or out of range
// fields.
func Decode(r io.Reader) (Record, error) {
	var fields map[string]interface{}
	dec := json.NewDecoder(r)
	if err := dec.Decode(&fields); err != nil {
		return Record{}, errors.Wrap(err, "invalid json")
	}
	if fields == nil {
		return Record{}, errors.New("invalid json: expected an object")
	}
	var extra json.RawMessage
	if err := dec.Decode(&extra); err != io.EOF {
		return Record{}, errors.New("invalid json: unexpected data after object")
	}
	return FromFields(fields)
}

// FromFields validates a generic map (decoded json) into a Record.
func FromFields(fields map[string]interface{}) (Record, error) {
	var self Record
	for _, key := range []string{"timestamp", "object", "confidence", "hour"} {
		if v, ok := fields[key]; !ok || v == nil {
			return self, errors.Errorf("missing field: %s", key)
		}
	}

	var ok bool
	if self.Timestamp, ok = fields["timestamp"].(string); !ok {
		return self, errors.New("timestamp: expected a string")
	}
	if _, err := self.Time(); err != nil {
		return self, errors.Errorf("timestamp: expected format %s", TimeFormat)
	}
	if self.Object, ok = fields["object"].(string); !ok || self.Object == "" {
		return self, errors.New("object: expected a non-empty string")
	}
	if strings.IndexFunc(self.Object, unicode.IsControl) >= 0 {
		return self, errors.New("object: contains control characters")
	}
	if self.Confidence, ok = fields["confidence"].(float64); !ok {
		return self, errors.New("confidence: expected a number")
	}
	if self.Confidence < 0 || self.Confidence > 100 {
		return self, errors.Errorf("confidence: %g out of range [0, 100]", self.Confidence)
	}
	hour, ok := fields["hour"].(float64)
	if i, isInt := fields["hour"].(int); isInt {
		hour, ok = float64(i), true
	}
	if !ok || hour != math.Trunc(hour) {
		return self, errors.New("hour: expected an integer")
	}
	if hour < 0 || hour > 23 {
		return self, errors.Errorf("hour: %g out of range [0, 23]", hour)
	}
	self.Hour = int(hour)
	return self, nil
}
