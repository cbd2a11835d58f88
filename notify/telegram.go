package notify

import (
	"context"
	"net/http"
	"sync"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/pkg/errors"
)

// Telegram sends the photo with a Markdown caption to a chat.
type Telegram struct {
	Token  string
	ChatID int64
	// Endpoint overrides the Bot API url format, see tgbotapi.APIEndpoint.
	Endpoint  string
	Transport http.RoundTripper

	mu  sync.Mutex
	bot *tgbotapi.BotAPI
}

func (self *Telegram) Name() string {
	return "telegram"
}

func (self *Telegram) Notify(ctx context.Context, alert Alert) error {
	self.mu.Lock()
	defer self.mu.Unlock()

	client := clientFor(ctx, self.Transport)
	if self.bot == nil {
		// the bot checks the token with getMe on creation
		endpoint := self.Endpoint
		if endpoint == "" {
			endpoint = tgbotapi.APIEndpoint
		}
		bot, err := tgbotapi.NewBotAPIWithClient(self.Token, endpoint, client)
		if err != nil {
			return errors.Wrap(err, "telegram login")
		}
		self.bot = bot
	}
	self.bot.Client = client

	msg := tgbotapi.NewPhoto(self.ChatID, tgbotapi.FileBytes{Name: "capture.jpg", Bytes: alert.Photo})
	msg.Caption = Caption(alert.Record)
	msg.ParseMode = tgbotapi.ModeMarkdown
	if _, err := self.bot.Send(msg); err != nil {
		return errors.Wrap(err, "telegram sendPhoto")
	}
	return nil
}
