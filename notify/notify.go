// Package notify sends photo alerts for detections to messaging services.
//
// Every notifier makes a single attempt bounded by the context deadline;
// callers log failures and move on.
package notify

import (
	"context"
	"fmt"
	"net/http"

	"github.com/smartvision/visionhome/config"
	"github.com/smartvision/visionhome/detection"
)

// Alert is one detection and its annotated JPEG.
type Alert struct {
	Record detection.Record
	Photo  []byte
}

type Notifier interface {
	Name() string
	Notify(ctx context.Context, alert Alert) error
}

// Caption renders the alert text.
func Caption(r detection.Record) string {
	return fmt.Sprintf("NEW DELIVERY DETECTED\n\nObject: %s\nAccuracy: %.1f%%\nTime: %s", r.Object, r.Confidence, r.Clock())
}

// contextTransport binds every request to ctx, for clients that take no
// context of their own.
type contextTransport struct {
	ctx  context.Context
	base http.RoundTripper
}

func (t contextTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	base := t.base
	if base == nil {
		base = http.DefaultTransport
	}
	return base.RoundTrip(req.WithContext(t.ctx))
}

func clientFor(ctx context.Context, base http.RoundTripper) *http.Client {
	return &http.Client{Transport: contextTransport{ctx, base}}
}

// FromConfig returns a notifier for each messaging service with credentials
// configured.
func FromConfig(conf *config.Config) []Notifier {
	var ret []Notifier
	if conf.Telegram.Token != "" && conf.Telegram.Chat_id != 0 {
		ret = append(ret, &Telegram{Token: conf.Telegram.Token, ChatID: conf.Telegram.Chat_id})
	}
	if conf.Pushbullet.Token != "" {
		ret = append(ret, &Pushbullet{Token: conf.Pushbullet.Token})
	}
	if conf.Slack.Token != "" && conf.Slack.Channel != "" {
		ret = append(ret, &Slack{Token: conf.Slack.Token, Channel: conf.Slack.Channel})
	}
	return ret
}
