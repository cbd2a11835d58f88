// Package config loads visionhome configuration from a yaml file, a .env
// file and the environment, in that order of increasing precedence.
package config

import (
	"fmt"
	"io"
	"io/ioutil"
	"net"
	"os"
	"path"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v2"

	"github.com/smartvision/visionhome/util"
)

type Duration struct {
	Duration time.Duration
}

func (self *Duration) UnmarshalYAML(unmarshal func(interface{}) error) error {
	var s string
	if err := unmarshal(&s); err != nil {
		return err
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return err
	}
	self.Duration = d
	return nil
}

func (self Duration) MarshalYAML() (interface{}, error) {
	return self.Duration.String(), nil
}

type CameraConf struct {
	Device string
	Width  int
	Height int
	Crop   int
}

type ModelConf struct {
	Path      string
	Config    string
	Labels    string
	Threshold float64
}

type SerialConf struct {
	Device string
	Baud   int
	Word   string
}

type TimingConf struct {
	Countdown int
	Tick      Duration
	Retry     Duration
	Pause     Duration
	Poll      Duration
}

type CaptureConf struct {
	Host            string
	Port            int
	Key             string
	Max_connections int
	Collector_url   string
	Collector_key   string
	Camera          CameraConf
	Model           ModelConf
	Serial          SerialConf
	Timing          TimingConf
}

func (self CaptureConf) Addr() string {
	return net.JoinHostPort(self.Host, strconv.Itoa(self.Port))
}

type CollectorConf struct {
	Host            string
	Port            int
	Key             string
	Store           string
	Path            string
	Allowed_origins []string
	// Also store detections published on the event bus.
	Ingest bool
}

func (self CollectorConf) Addr() string {
	return net.JoinHostPort(self.Host, strconv.Itoa(self.Port))
}

type DispatchConf struct {
	Workers int
	Queue   int
	Report  Duration
	Alert   Duration
}

type AlertConf struct {
	When string
}

type EndpointsConf struct {
	Mqtt struct {
		Broker string
	}
}

type PushbulletConf struct {
	Token string
}

type SlackConf struct {
	Token   string
	Channel string
}

type TelegramConf struct {
	Token   string
	Chat_id int64
}

// Configuration structure
type Config struct {
	Capture    CaptureConf
	Collector  CollectorConf
	Dispatch   DispatchConf
	Alert      AlertConf
	Endpoints  EndpointsConf
	Pushbullet PushbulletConf
	Slack      SlackConf
	Telegram   TelegramConf
}

// Load configuration: .env, then the yaml file at path (if present), then
// environment overrides and finally defaults.
func Load(p string) (*Config, error) {
	// a missing .env is normal outside of development
	_ = godotenv.Load()

	self := &Config{}
	data, err := ioutil.ReadFile(p)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, self); err != nil {
			return nil, errors.Wrapf(err, "parsing %s", p)
		}
	case os.IsNotExist(err):
	default:
		return nil, errors.Wrapf(err, "reading %s", p)
	}

	if err := self.applyEnv(); err != nil {
		return nil, err
	}
	self.applyDefaults()
	return self, nil
}

// Open configuration from the default location.
func Open() (*Config, error) {
	p := os.Getenv("VISIONHOME_CONFIG")
	if p == "" {
		p = ConfigPath("visionhome.yml")
	}
	return Load(util.ExpandUser(p))
}

// Open configuration from a reader. The environment is not consulted.
func OpenReader(r io.Reader) (*Config, error) {
	data, err := ioutil.ReadAll(r)
	if err != nil {
		return nil, err
	}
	return OpenRaw(data)
}

// Open configuration from []byte. The environment is not consulted.
func OpenRaw(data []byte) (*Config, error) {
	self := &Config{}
	err := yaml.Unmarshal(data, self)
	if err != nil {
		return nil, err
	}
	self.applyDefaults()
	return self, nil
}

func Must(c *Config, err error) *Config {
	if err != nil {
		panic(err)
	}
	return c
}

func (self *Config) applyEnv() error {
	e := &env{}
	e.str(&self.Capture.Key, "TRIGGER_KEY")
	e.str(&self.Capture.Host, "CAPTURE_HOST")
	e.number(&self.Capture.Port, "CAPTURE_PORT")
	e.str(&self.Capture.Collector_url, "COLLECTOR_URL")
	e.str(&self.Capture.Collector_key, "COLLECTOR_KEY")
	e.str(&self.Capture.Camera.Device, "CAMERA_DEVICE")
	e.str(&self.Capture.Model.Path, "MODEL_PATH")
	e.str(&self.Capture.Model.Config, "MODEL_CONFIG")
	e.str(&self.Capture.Model.Labels, "MODEL_LABELS")
	e.str(&self.Capture.Serial.Device, "SERIAL_DEVICE")

	e.str(&self.Collector.Key, "COLLECTOR_KEY")
	e.str(&self.Collector.Host, "COLLECTOR_HOST")
	e.number(&self.Collector.Port, "COLLECTOR_PORT")
	e.str(&self.Collector.Store, "STORE")
	e.str(&self.Collector.Path, "DATA_FILE")
	e.boolean(&self.Collector.Ingest, "COLLECTOR_INGEST")
	if v := os.Getenv("ALLOWED_ORIGINS"); v != "" {
		self.Collector.Allowed_origins = splitList(v)
	}

	e.str(&self.Alert.When, "ALERT_WHEN")
	e.str(&self.Endpoints.Mqtt.Broker, "MQTT_BROKER")
	e.str(&self.Pushbullet.Token, "PUSHBULLET_TOKEN")
	e.str(&self.Slack.Token, "SLACK_TOKEN")
	e.str(&self.Slack.Channel, "SLACK_CHANNEL")
	e.str(&self.Telegram.Token, "TELEGRAM_TOKEN")
	e.id(&self.Telegram.Chat_id, "TELEGRAM_CHAT_ID")
	return e.err()
}

func (self *Config) applyDefaults() {
	c := &self.Capture
	defaultString(&c.Host, "0.0.0.0")
	defaultInt(&c.Port, 5000)
	defaultInt(&c.Max_connections, 16)
	defaultString(&c.Collector_url, "http://127.0.0.1:8000")
	defaultString(&c.Camera.Device, "0")
	defaultInt(&c.Camera.Width, 1280)
	defaultInt(&c.Camera.Height, 960)
	defaultInt(&c.Camera.Crop, 800)
	if c.Model.Threshold == 0 {
		c.Model.Threshold = 0.5
	}
	c.Model.Path = util.ExpandUser(c.Model.Path)
	c.Model.Config = util.ExpandUser(c.Model.Config)
	c.Model.Labels = util.ExpandUser(c.Model.Labels)
	defaultInt(&c.Serial.Baud, 9600)
	defaultString(&c.Serial.Word, "detect")
	defaultInt(&c.Timing.Countdown, 3)
	defaultDuration(&c.Timing.Tick, time.Second)
	defaultDuration(&c.Timing.Retry, time.Second)
	defaultDuration(&c.Timing.Pause, 500*time.Millisecond)
	defaultDuration(&c.Timing.Poll, 100*time.Millisecond)

	d := &self.Collector
	defaultString(&d.Host, "0.0.0.0")
	defaultInt(&d.Port, 8000)
	defaultString(&d.Store, "csv")
	defaultString(&d.Path, "log_detections.csv")
	if len(d.Allowed_origins) == 0 {
		d.Allowed_origins = []string{"*"}
	}
	d.Path = util.ExpandUser(d.Path)

	defaultInt(&self.Dispatch.Workers, 2)
	defaultInt(&self.Dispatch.Queue, 16)
	defaultDuration(&self.Dispatch.Report, 3*time.Second)
	defaultDuration(&self.Dispatch.Alert, 10*time.Second)
}

// ValidateCapture checks the settings required by the capture service.
func (self *Config) ValidateCapture() error {
	switch {
	case self.Capture.Key == "":
		return errors.New("capture.key (TRIGGER_KEY) is required")
	case self.Capture.Collector_key == "":
		return errors.New("capture.collector_key (COLLECTOR_KEY) is required")
	case self.Capture.Model.Path == "":
		return errors.New("capture.model.path (MODEL_PATH) is required")
	case self.Capture.Camera.Crop <= 0:
		return errors.Errorf("capture.camera.crop must be positive, got %d", self.Capture.Camera.Crop)
	case self.Capture.Model.Threshold <= 0 || self.Capture.Model.Threshold > 1:
		return errors.Errorf("capture.model.threshold must be in (0, 1], got %g", self.Capture.Model.Threshold)
	}
	return nil
}

// ValidateCollector checks the settings required by the collector service.
func (self *Config) ValidateCollector() error {
	switch {
	case self.Collector.Key == "":
		return errors.New("collector.key (COLLECTOR_KEY) is required")
	case self.Collector.Store != "csv" && self.Collector.Store != "sqlite":
		return errors.Errorf("collector.store must be csv or sqlite, got %q", self.Collector.Store)
	}
	return nil
}

// helpers

// env applies environment overrides, collecting values that do not parse.
type env struct {
	bad []string
}

func (self *env) lookup(key string) (string, bool) {
	v, ok := os.LookupEnv(key)
	return strings.TrimSpace(v), ok && strings.TrimSpace(v) != ""
}

func (self *env) invalid(key, v, want string) {
	self.bad = append(self.bad, fmt.Sprintf("%s=%q is not %s", key, v, want))
}

func (self *env) str(dst *string, key string) {
	if v, ok := self.lookup(key); ok {
		*dst = v
	}
}

func (self *env) number(dst *int, key string) {
	if v, ok := self.lookup(key); ok {
		if i, err := strconv.Atoi(v); err == nil {
			*dst = i
		} else {
			self.invalid(key, v, "an integer")
		}
	}
}

func (self *env) id(dst *int64, key string) {
	if v, ok := self.lookup(key); ok {
		if i, err := strconv.ParseInt(v, 10, 64); err == nil {
			*dst = i
		} else {
			self.invalid(key, v, "an integer")
		}
	}
}

func (self *env) boolean(dst *bool, key string) {
	if v, ok := self.lookup(key); ok {
		if b, err := strconv.ParseBool(v); err == nil {
			*dst = b
		} else {
			self.invalid(key, v, "a boolean")
		}
	}
}

func (self *env) err() error {
	if len(self.bad) == 0 {
		return nil
	}
	return errors.Errorf("invalid environment: %s", strings.Join(self.bad, "; "))
}

func defaultString(dst *string, value string) {
	if *dst == "" {
		*dst = value
	}
}

func defaultInt(dst *int, value int) {
	if *dst == 0 {
		*dst = value
	}
}

func defaultDuration(dst *Duration, value time.Duration) {
	if dst.Duration == 0 {
		dst.Duration = value
	}
}

func splitList(s string) []string {
	var ret []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			ret = append(ret, p)
		}
	}
	return ret
}

// Resolve a configuration file under .config/visionhome
func ConfigPath(p string) string {
	config := os.Getenv("XDG_CONFIG_HOME")
	if config == "" {
		config = path.Join(os.Getenv("HOME"), ".config")
	}
	return path.Join(config, "visionhome", p)
}
