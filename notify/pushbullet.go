package notify

import (
	"context"
	"net/http"

	"github.com/mitsuse/pushbullet-go"
	"github.com/mitsuse/pushbullet-go/requests"
	"github.com/pkg/errors"
)

// Pushbullet pushes the caption as a note.
type Pushbullet struct {
	Token     string
	Transport http.RoundTripper
}

func (self *Pushbullet) Name() string {
	return "pushbullet"
}

func (self *Pushbullet) Notify(ctx context.Context, alert Alert) error {
	pb := pushbullet.NewClient(self.Token, clientFor(ctx, self.Transport))
	n := requests.NewNote()
	n.Title = "visionhome"
	n.Body = Caption(alert.Record)
	if _, err := pb.PostPushesNote(n); err != nil {
		return errors.Wrap(err, "pushbullet note")
	}
	return nil
}
