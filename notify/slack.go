package notify

import (
	"context"

	"github.com/nlopes/slack"
	"github.com/pkg/errors"
)

// Slack posts the caption to a channel.
type Slack struct {
	Token   string
	Channel string
}

func (self *Slack) Name() string {
	return "slack"
}

func (self *Slack) Notify(ctx context.Context, alert Alert) error {
	api := slack.New(self.Token)
	params := slack.NewPostMessageParameters()
	params.AsUser = true

	done := make(chan error, 1)
	go func() {
		_, _, err := api.PostMessage(self.Channel, Caption(alert.Record), params)
		done <- err
	}()
	select {
	case err := <-done:
		return errors.Wrap(err, "slack postMessage")
	case <-ctx.Done():
		return errors.Wrap(ctx.Err(), "slack postMessage")
	}
}
