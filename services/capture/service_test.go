package capture

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/smartvision/visionhome/config"
	"github.com/smartvision/visionhome/lib/metrics"
	"github.com/smartvision/visionhome/lib/vision"
	"github.com/smartvision/visionhome/services"
	"github.com/smartvision/visionhome/services/collector"
)

func freePort(t *testing.T) int {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()
	return ln.Addr().(*net.TCPAddr).Port
}

func mockVision(*config.Config) (vision.Camera, vision.Detector, vision.Annotator, error) {
	detector := &vision.MockDetector{Detections: []vision.Detection{{Label: "suitcase", Score: 0.91}}}
	return &vision.MockCamera{}, detector, nil, nil
}

func TestServiceInitValidates(t *testing.T) {
	services.Config = config.Must(config.OpenRaw([]byte("")))
	services.Metrics = metrics.New()
	err := (&Service{Vision: mockVision}).Init()
	assert.EqualError(t, err, "capture.key (TRIGGER_KEY) is required")
}

func TestServiceInitBadFilter(t *testing.T) {
	services.Config = config.Must(config.OpenRaw([]byte(`
capture: {key: a, collector_key: b, model: {path: /m.pb}}
alert: {when: "(confidence > 3"}
`)))
	services.Metrics = metrics.New()
	assert.Error(t, (&Service{Vision: mockVision}).Init())
}

func TestServiceEndToEnd(t *testing.T) {
	store := collector.NewCSVStore(filepath.Join(t.TempDir(), "log.csv"))
	c := &collector.Collector{Key: "collector-key", Store: store, Metrics: metrics.New()}
	server := httptest.NewServer(c.Router([]string{"*"}))
	defer server.Close()

	port := freePort(t)
	services.Config = config.Must(config.OpenRaw([]byte(fmt.Sprintf(`
capture:
  host: 127.0.0.1
  port: %d
  key: trigger-key
  collector_url: %s
  collector_key: collector-key
  model:
    path: /models/ssd.pb
  timing:
    countdown: 1
    tick: 10ms
    pause: 1ms
`, port, server.URL))))
	services.Metrics = metrics.New()

	service := &Service{Vision: mockVision}
	require.NoError(t, service.Init())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error)
	go func() { done <- service.run(ctx) }()

	url := fmt.Sprintf("http://127.0.0.1:%d/detect", port)
	require.Eventually(t, func() bool {
		req, _ := http.NewRequest("GET", url, nil)
		req.Header.Set("X-Device-Key", "trigger-key")
		resp, err := http.DefaultClient.Do(req)
		if err != nil {
			return false
		}
		resp.Body.Close()
		return resp.StatusCode == http.StatusOK
	}, 2*time.Second, 10*time.Millisecond)

	require.Eventually(t, func() bool {
		records, _ := store.All()
		return len(records) == 1
	}, 2*time.Second, 10*time.Millisecond)

	records, _ := store.All()
	assert.Equal(t, "suitcase", records[0].Object)
	assert.Equal(t, 91.0, records[0].Confidence)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("service did not stop")
	}
}
