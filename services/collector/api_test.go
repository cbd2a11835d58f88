package collector

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/smartvision/visionhome/detection"
	"github.com/smartvision/visionhome/lib/metrics"
	"github.com/smartvision/visionhome/pubsub"
	"github.com/smartvision/visionhome/pubsub/dummy"
)

const body = `{"timestamp":"2024-05-01 14:30:05","object":"dog","confidence":87.65,"hour":14}`

func newCollector(t *testing.T) *Collector {
	return &Collector{
		Key:     "secret",
		Store:   NewCSVStore(filepath.Join(t.TempDir(), "log.csv")),
		Hub:     NewHub([]string{"*"}),
		Metrics: metrics.New(),
	}
}

func post(h http.Handler, key, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest("POST", "/new_detection", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if key != "" {
		req.Header.Set("X-Device-Key", key)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func getData(t *testing.T, h http.Handler) []detection.Record {
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest("GET", "/get_data", nil))
	require.Equal(t, 200, rec.Code)
	var records []detection.Record
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &records))
	return records
}

func TestNewDetection(t *testing.T) {
	c := newCollector(t)
	h := c.Router([]string{"*"})

	rec := post(h, "secret", body)
	assert.Equal(t, 200, rec.Code)
	assert.JSONEq(t, `{"status":"success","message":"Data stored"}`, rec.Body.String())
	assert.Equal(t, []detection.Record{dog}, getData(t, h))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.Metrics.Records.WithLabelValues("stored")))
}

func TestNewDetectionUnauthorized(t *testing.T) {
	c := newCollector(t)
	h := c.Router([]string{"*"})
	for _, key := range []string{"", "wrong"} {
		rec := post(h, key, body)
		assert.Equal(t, 401, rec.Code)
		assert.JSONEq(t, `{"status":"error","message":"Unauthorized"}`, rec.Body.String())
	}
	assert.Empty(t, getData(t, h))
}

func TestNewDetectionInvalid(t *testing.T) {
	var tests = []struct {
		body    string
		message string
	}{
		{`not json`, "invalid json"},
		{body + ` not json at all`, "unexpected data after object"},
		{`{"timestamp":"2024-05-01 14:30:05","object":"box\r\nlid","confidence":92.3,"hour":10}`, "object: contains control characters"},
		{`{"object":"dog","confidence":87.65,"hour":14}`, "missing field: timestamp"},
		{`{"timestamp":"2024-05-01 14:30:05","object":"dog","hour":14}`, "missing field: confidence"},
		{`{"timestamp":"yesterday","object":"dog","confidence":87.65,"hour":14}`, "timestamp: expected format"},
		{`{"timestamp":"2024-05-01 14:30:05","object":"","confidence":87.65,"hour":14}`, "object: expected a non-empty string"},
		{`{"timestamp":"2024-05-01 14:30:05","object":"dog","confidence":"high","hour":14}`, "confidence: expected a number"},
		{`{"timestamp":"2024-05-01 14:30:05","object":"dog","confidence":187,"hour":14}`, "out of range"},
		{`{"timestamp":"2024-05-01 14:30:05","object":"dog","confidence":87.65,"hour":24}`, "hour: 24 out of range"},
	}
	c := newCollector(t)
	h := c.Router([]string{"*"})
	for _, test := range tests {
		rec := post(h, "secret", test.body)
		assert.Equal(t, 400, rec.Code, test.body)
		var resp response
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.Equal(t, "error", resp.Status)
		assert.Contains(t, resp.Message, test.message)
	}
	assert.Empty(t, getData(t, h))
	assert.Equal(t, float64(len(tests)), testutil.ToFloat64(c.Metrics.Records.WithLabelValues("rejected")))
}

func TestRoundTrip(t *testing.T) {
	records := []detection.Record{
		{Timestamp: "2024-05-01 00:00:00", Object: "traffic light", Confidence: 0.01, Hour: 0},
		{Timestamp: "2024-05-01 09:15:00", Object: `box, "large"`, Confidence: 100, Hour: 9},
		{Timestamp: "2024-05-01 23:59:59", Object: " café ", Confidence: 33.33, Hour: 23},
		{Timestamp: "2024-05-01 12:00:00", Object: "=1+1", Confidence: 50.5, Hour: 12},
	}
	for _, kind := range []string{"csv", "sqlite"} {
		t.Run(kind, func(t *testing.T) {
			store, err := OpenStore(kind, filepath.Join(t.TempDir(), "log."+kind))
			require.NoError(t, err)
			defer store.Close()
			c := &Collector{Key: "secret", Store: store, Hub: NewHub(nil), Metrics: metrics.New()}
			h := c.Router([]string{"*"})

			for _, r := range records {
				b, err := json.Marshal(r)
				require.NoError(t, err)
				require.Equal(t, 200, post(h, "secret", string(b)).Code, string(b))
			}
			got := getData(t, h)
			require.Len(t, got, len(records))
			for i, r := range records {
				assert.Equal(t, r, got[len(got)-1-i])
			}
		})
	}
}

func TestGetDataOrder(t *testing.T) {
	c := newCollector(t)
	h := c.Router([]string{"*"})
	assert.Equal(t, "[]\n", func() string {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest("GET", "/get_data", nil))
		return rec.Body.String()
	}())

	require.NoError(t, c.Add(dog))
	require.NoError(t, c.Add(person))
	assert.Equal(t, []detection.Record{person, dog}, getData(t, h))
}

func TestCORS(t *testing.T) {
	c := newCollector(t)
	h := c.Router([]string{"http://localhost:3000"})

	req := httptest.NewRequest("OPTIONS", "/new_detection", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	req.Header.Set("Access-Control-Request-Method", "POST")
	req.Header.Set("Access-Control-Request-Headers", "X-Device-Key")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, "http://localhost:3000", rec.Header().Get("Access-Control-Allow-Origin"))

	req = httptest.NewRequest("GET", "/get_data", nil)
	req.Header.Set("Origin", "http://evil.example")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestHealth(t *testing.T) {
	h := newCollector(t).Router([]string{"*"})
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest("GET", "/health", nil))
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestWebsocketFeed(t *testing.T) {
	c := newCollector(t)
	server := httptest.NewServer(c.Router([]string{"*"}))
	defer server.Close()

	url := "ws" + strings.TrimPrefix(server.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()
	require.Eventually(t, func() bool { return c.Hub.Clients() == 1 }, time.Second, 5*time.Millisecond)

	rec := post(c.Router([]string{"*"}), "secret", body)
	require.Equal(t, 200, rec.Code)

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var got detection.Record
	require.NoError(t, conn.ReadJSON(&got))
	assert.Equal(t, dog, got)
}

func TestIngest(t *testing.T) {
	c := newCollector(t)
	events := make(chan *pubsub.Event, 3)
	events <- pubsub.NewEvent("detection", pubsub.Fields{"record": dog.Fields()})
	events <- pubsub.NewEvent("detection", pubsub.Fields{"record": map[string]interface{}{"object": "cat"}})
	// as received over the broker
	ev := pubsub.Parse(string(pubsub.NewEvent("detection", pubsub.Fields{"record": person.Fields()}).Bytes()), "detection")
	require.NotNil(t, ev)
	events <- ev
	close(events)

	c.Ingest(context.Background(), events)
	records, err := c.Store.All()
	require.NoError(t, err)
	assert.Equal(t, []detection.Record{person, dog}, records)
	assert.Equal(t, 1.0, testutil.ToFloat64(c.Metrics.Records.WithLabelValues("rejected")))
}

func TestFollow(t *testing.T) {
	c := newCollector(t)
	sub := &dummy.Subscriber{Events: []*pubsub.Event{
		pubsub.NewEvent("state", pubsub.Fields{"state": "Capturing"}),
		pubsub.NewEvent("detection", pubsub.Fields{"record": dog.Fields()}),
		pubsub.NewEvent("detection/other", pubsub.Fields{"record": person.Fields()}),
	}}
	c.Follow(context.Background(), sub)

	records, err := c.Store.All()
	require.NoError(t, err)
	assert.Equal(t, []detection.Record{dog}, records)
	assert.Equal(t, 1, sub.Closed())
}
