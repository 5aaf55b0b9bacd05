package telegram

import (
	"context"
	"fmt"
	"strings"
	"time"

	tele "gopkg.in/telebot.v4"
)

const (
	RunModeWebhook  = "webhook"
	RunModeLongpoll = "longpoll"
)

// PollerOptions configures BuildPoller.
type PollerOptions struct {
	RunMode                string
	LongPollTimeoutSeconds int
	WebhookListen          string
	WebhookURL             string
}

// BuildPoller returns a telebot poller based on the options.
func BuildPoller(opts PollerOptions) tele.Poller {
	if strings.EqualFold(strings.TrimSpace(opts.RunMode), RunModeWebhook) {
		return &tele.Webhook{
			Listen:   opts.WebhookListen,
			Endpoint: &tele.WebhookEndpoint{PublicURL: opts.WebhookURL},
		}
	}

	timeoutSec := opts.LongPollTimeoutSeconds
	if timeoutSec <= 0 {
		timeoutSec = 10
	}
	return &tele.LongPoller{Timeout: time.Duration(timeoutSec) * time.Second}
}

// Run starts a bot wired to the bridge and blocks until ctx ends.
func (b *Bridge) Run(ctx context.Context, token string, opts PollerOptions) error {
	if strings.TrimSpace(token) == "" {
		return fmt.Errorf("telegram: empty bot token")
	}

	bot, err := tele.NewBot(tele.Settings{
		Token:  token,
		Poller: BuildPoller(opts),
		OnError: func(err error, c tele.Context) {
			b.logger.Error("telegram: handler failed", "err", err)
		},
	})
	if err != nil {
		return fmt.Errorf("telegram: bot initialization failed: %w", err)
	}
	b.Register(bot)

	runDone := make(chan struct{})
	go func() {
		b.logger.Info("telegram bot started", "mode", opts.RunMode, "bot", bot.Me.Username)
		bot.Start()
		close(runDone)
	}()

	select {
	case <-ctx.Done():
		bot.Stop()
		<-runDone
	case <-runDone:
	}
	return nil
}
