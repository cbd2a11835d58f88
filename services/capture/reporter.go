package capture

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"io/ioutil"
	"log"
	"net/http"
	"strings"

	"github.com/pkg/errors"

	"github.com/smartvision/visionhome/detection"
)

// Reporter forwards a detection record to the collector.
type Reporter interface {
	Report(ctx context.Context, r detection.Record) error
}

// HTTPReporter posts records to the collector's /new_detection.
type HTTPReporter struct {
	URL    string
	Key    string
	Client *http.Client
}

func (self *HTTPReporter) Report(ctx context.Context, r detection.Record) error {
	body, err := json.Marshal(r)
	if err != nil {
		return err
	}
	url := strings.TrimRight(self.URL, "/") + "/new_detection"
	req, err := http.NewRequestWithContext(ctx, "POST", url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Device-Key", self.Key)

	client := self.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return errors.Wrap(err, "collector not reachable")
	}
	defer resp.Body.Close()
	io.Copy(ioutil.Discard, resp.Body)
	if resp.StatusCode/100 != 2 {
		return errors.Errorf("collector returned %s", resp.Status)
	}
	log.Printf("capture: reported %s to collector", r.Object)
	return nil
}
