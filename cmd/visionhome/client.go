package main

import (
	"encoding/json"
	"fmt"
	"io"
	"io/ioutil"
	"net/http"
	"strings"
	"time"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v2"

	"github.com/smartvision/visionhome/config"
	"github.com/smartvision/visionhome/detection"
)

var client = &http.Client{Timeout: 10 * time.Second}

func trigger(url, key string) error {
	req, err := http.NewRequest("GET", strings.TrimRight(url, "/")+"/detect", nil)
	if err != nil {
		return err
	}
	req.Header.Set("X-Device-Key", key)
	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	body, _ := ioutil.ReadAll(resp.Body)
	fmt.Printf("%d %s\n", resp.StatusCode, body)
	if resp.StatusCode != http.StatusOK {
		return errors.Errorf("capture node returned %s", resp.Status)
	}
	return nil
}

func records(w io.Writer, url string, limit int) error {
	resp, err := client.Get(strings.TrimRight(url, "/") + "/get_data")
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return errors.Errorf("collector returned %s", resp.Status)
	}
	var rs []detection.Record
	if err := json.NewDecoder(resp.Body).Decode(&rs); err != nil {
		return errors.Wrap(err, "decoding records")
	}
	if limit > 0 && len(rs) > limit {
		rs = rs[:limit]
	}
	for _, r := range rs {
		fmt.Fprintf(w, "%s  %-12s %6.2f%%\n", r.Timestamp, r.Object, r.Confidence)
	}
	if len(rs) == 0 {
		fmt.Fprintln(w, "No records")
	}
	return nil
}

func mask(s string) string {
	if s == "" {
		return ""
	}
	return "********"
}

// printConfig writes conf as yaml with keys and tokens masked.
func printConfig(w io.Writer, conf *config.Config) error {
	c := *conf
	c.Capture.Key = mask(c.Capture.Key)
	c.Capture.Collector_key = mask(c.Capture.Collector_key)
	c.Collector.Key = mask(c.Collector.Key)
	c.Telegram.Token = mask(c.Telegram.Token)
	c.Pushbullet.Token = mask(c.Pushbullet.Token)
	c.Slack.Token = mask(c.Slack.Token)
	data, err := yaml.Marshal(&c)
	if err != nil {
		return err
	}
	_, err = w.Write(data)
	return err
}
