// Package telegram is the notification-delivery transport and the
// chat-command surface, both on one telebot long-polling connection.
package telegram

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"
	tele "gopkg.in/telebot.v4"

	logx "redwatch/pkg/logx"
)

type Config struct {
	Token string
	// ChatID is the default destination chat. Unless AllowAnyChat is
	// set, it is also the only chat whose commands are accepted.
	ChatID       int64
	AllowAnyChat bool

	// SendDelay is the minimum interval between outgoing messages
	// (Telegram per-chat rate limits).
	SendDelay   time.Duration
	PollTimeout time.Duration
}

type Bot struct {
	cfg     Config
	bot     *tele.Bot
	limiter *rate.Limiter
	log     logx.Logger
}

func New(cfg Config, log logx.Logger) (*Bot, error) {
	if strings.TrimSpace(cfg.Token) == "" {
		return nil, errors.New("telegram token is empty")
	}
	if log.IsZero() {
		log = logx.Nop()
	}
	timeout := cfg.PollTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	delay := cfg.SendDelay
	if delay <= 0 {
		delay = 2 * time.Second
	}
	b, err := tele.NewBot(tele.Settings{
		Token:  cfg.Token,
		Poller: &tele.LongPoller{Timeout: timeout},
	})
	if err != nil {
		return nil, err
	}
	return &Bot{
		cfg:     cfg,
		bot:     b,
		limiter: rate.NewLimiter(rate.Every(delay), 1),
		log:     log,
	}, nil
}

// Start begins long polling. It returns immediately; telebot runs its
// own dispatch loop.
func (b *Bot) Start() {
	go b.bot.Start()
	b.log.Info("telegram polling started")
}

func (b *Bot) Stop() {
	b.bot.Stop()
	b.log.Info("telegram polling stopped")
}

// DefaultDestination is the registry key for the configured chat.
func (b *Bot) DefaultDestination() string {
	return strconv.FormatInt(b.cfg.ChatID, 10)
}

// Send implements the notification sink: one rate-limited message per
// call, link previews disabled. A failure is returned for the caller to
// log; there is no retry here.
func (b *Bot) Send(ctx context.Context, dest, text string) error {
	if err := b.limiter.Wait(ctx); err != nil {
		return err
	}
	id, err := strconv.ParseInt(dest, 10, 64)
	if err != nil {
		return errors.New("invalid destination id: " + dest)
	}
	_, err = b.bot.Send(&tele.Chat{ID: id}, text, &tele.SendOptions{
		DisableWebPagePreview: true,
	})
	return err
}

// allowed reports whether commands from this chat are accepted.
func (b *Bot) allowed(c tele.Context) bool {
	if b.cfg.AllowAnyChat {
		return true
	}
	return c.Chat() != nil && c.Chat().ID == b.cfg.ChatID
}

func destOf(c tele.Context) string {
	if c.Chat() == nil {
		return ""
	}
	return strconv.FormatInt(c.Chat().ID, 10)
}
