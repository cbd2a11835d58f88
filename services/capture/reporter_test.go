package capture

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/smartvision/visionhome/detection"
)

func TestHTTPReporter(t *testing.T) {
	var got detection.Record
	var key string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "POST", r.Method)
		assert.Equal(t, "/new_detection", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		key = r.Header.Get("X-Device-Key")
		json.NewDecoder(r.Body).Decode(&got)
		w.Write([]byte(`{"status":"success","message":"Data stored"}`))
	}))
	defer server.Close()

	record := detection.Record{Timestamp: "2024-05-01 14:30:05", Object: "dog", Confidence: 87.65, Hour: 14}
	reporter := &HTTPReporter{URL: server.URL + "/", Key: "secret"}
	require.NoError(t, reporter.Report(context.Background(), record))
	assert.Equal(t, record, got)
	assert.Equal(t, "secret", key)
}

func TestHTTPReporterRejected(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer server.Close()

	reporter := &HTTPReporter{URL: server.URL, Key: "wrong"}
	err := reporter.Report(context.Background(), detection.Record{Object: "dog"})
	assert.EqualError(t, err, "collector returned 401 Unauthorized")
}

func TestHTTPReporterUnreachable(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	url := server.URL
	server.Close()

	reporter := &HTTPReporter{URL: url, Key: "k"}
	err := reporter.Report(context.Background(), detection.Record{Object: "dog"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "collector not reachable")
}
