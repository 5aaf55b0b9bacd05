// Package telegram bridges Telegram chats to the turn engine: inbound updates
// become activities, and replies become Telegram messages with reply keyboards.
package telegram

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/aretw0/turnstile/internal/logging"
	"github.com/aretw0/turnstile/pkg/domain"
	"github.com/aretw0/turnstile/pkg/ports"
	"github.com/aretw0/turnstile/pkg/runner"
	tele "gopkg.in/telebot.v4"
)

// ChannelID is the identity channel of every Telegram conversation.
const ChannelID = "telegram"

// CommandReset discards the dialog stack of the chat.
const CommandReset = "/reset"

// Bridge forwards Telegram updates to the engine.
type Bridge struct {
	engine  ports.TurnEngine
	logger  *slog.Logger
	timeout time.Duration
	perRow  int
}

// Option configures the Bridge.
type Option func(*Bridge)

// WithLogger configures the bridge logger.
func WithLogger(logger *slog.Logger) Option {
	return func(b *Bridge) {
		b.logger = logger
	}
}

// WithTurnTimeout bounds each turn started from an update. Zero disables it.
func WithTurnTimeout(d time.Duration) Option {
	return func(b *Bridge) {
		b.timeout = d
	}
}

// WithButtonsPerRow sets how many suggested actions share a keyboard row.
func WithButtonsPerRow(n int) Option {
	return func(b *Bridge) {
		b.perRow = n
	}
}

// NewBridge creates a bridge for the engine.
func NewBridge(engine ports.TurnEngine, opts ...Option) *Bridge {
	b := &Bridge{
		engine: engine,
		logger: logging.NewNop(),
		perRow: 3,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// IdentityOf maps a chat and its sender to an engine identity.
func IdentityOf(chatID, senderID int64) domain.Identity {
	return domain.Identity{
		ChannelID:      ChannelID,
		ConversationID: strconv.FormatInt(chatID, 10),
		UserID:         strconv.FormatInt(senderID, 10),
	}
}

func account(u *tele.User) domain.Account {
	if u == nil {
		return domain.Account{}
	}
	name := strings.TrimSpace(u.FirstName + " " + u.LastName)
	if name == "" {
		name = u.Username
	}
	return domain.Account{ID: strconv.FormatInt(u.ID, 10), Name: name}
}

// ActivityFromMessage converts a Telegram message. It reports false for
// messages the engine has no use for.
func ActivityFromMessage(m *tele.Message) (domain.Identity, domain.Activity, bool) {
	if m == nil || m.Chat == nil || m.Sender == nil {
		return domain.Identity{}, domain.Activity{}, false
	}
	id := IdentityOf(m.Chat.ID, m.Sender.ID)

	var act domain.Activity
	switch {
	case m.UserJoined != nil || len(m.UsersJoined) > 0:
		var members []domain.Account
		if m.UserJoined != nil {
			members = append(members, account(m.UserJoined))
		}
		for i := range m.UsersJoined {
			members = append(members, account(&m.UsersJoined[i]))
		}
		act = domain.NewMembersAdded(members...)
	case m.Text != "":
		act = domain.NewMessage(m.Text)
	default:
		return domain.Identity{}, domain.Activity{}, false
	}

	act.ID = strconv.Itoa(m.ID)
	act.From = account(m.Sender)
	if m.Unixtime != 0 {
		act.Timestamp = m.Time()
	}
	return id, act, true
}

// Outbound is one Telegram send derived from the replies of a turn.
type Outbound struct {
	Typing   bool
	Text     string
	PhotoURL string
	Markup   *tele.ReplyMarkup
}

// ToOutbound converts replies to Telegram sends. Traces are dropped, cards
// become captioned photos and suggested actions become a reply keyboard.
func ToOutbound(replies []domain.Reply, perRow int) []Outbound {
	var out []Outbound
	for _, r := range replies {
		switch r.Type {
		case domain.ReplyTyping:
			out = append(out, Outbound{Typing: true})
		case domain.ReplyTrace:
			continue
		default:
			if r.Text != "" {
				out = append(out, Outbound{Text: r.Text})
			}
			for _, a := range r.Attachments {
				o := Outbound{Text: cardText(a)}
				if len(a.Images) > 0 {
					o.PhotoURL = a.Images[0]
				}
				if labels := actionLabels(a.Buttons); len(labels) > 0 {
					o.Markup = replyKeyboard(labels, perRow)
				}
				out = append(out, o)
			}
			if labels := actionLabels(r.SuggestedActions); len(labels) > 0 {
				if len(out) == 0 || out[len(out)-1].Typing {
					out = append(out, Outbound{Text: "…"})
				}
				out[len(out)-1].Markup = replyKeyboard(labels, perRow)
			}
		}
	}
	return out
}

func cardText(a domain.Attachment) string {
	var lines []string
	for _, s := range []string{a.Title, a.Subtitle, a.Text} {
		if s != "" {
			lines = append(lines, s)
		}
	}
	return strings.Join(lines, "\n")
}

// actionLabels returns the text a user taps. Tapping sends the label back as
// a message, so the value must be the label itself.
func actionLabels(actions []domain.CardAction) []string {
	labels := make([]string, 0, len(actions))
	for _, a := range actions {
		label := a.Value
		if label == "" {
			label = a.Title
		}
		if label != "" {
			labels = append(labels, label)
		}
	}
	return labels
}

func replyKeyboard(labels []string, perRow int) *tele.ReplyMarkup {
	if perRow <= 0 {
		perRow = 1
	}
	markup := &tele.ReplyMarkup{ResizeKeyboard: true, OneTimeKeyboard: true}
	var rows []tele.Row
	for i := 0; i < len(labels); i += perRow {
		end := min(i+perRow, len(labels))
		btns := make([]tele.Btn, 0, end-i)
		for _, l := range labels[i:end] {
			btns = append(btns, markup.Text(l))
		}
		rows = append(rows, markup.Row(btns...))
	}
	markup.Reply(rows...)
	return markup
}

// Handle processes one update. Rejected input and failed turns are reported to
// the chat; only delivery failures are returned.
func (b *Bridge) Handle(c tele.Context) error {
	id, act, ok := ActivityFromMessage(c.Message())
	if !ok {
		return nil
	}

	act, err := runner.SanitizeActivity(act)
	if err != nil {
		b.logger.Warn("telegram: input rejected", "identity", id.Key(), "err", err)
		return c.Send("Sorry, I could not read that message.")
	}

	ctx := context.Background()
	if b.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, b.timeout)
		defer cancel()
	}

	replies, err := b.engine.ProcessTurn(ctx, id, act)
	if err != nil {
		b.logger.Error("telegram: turn failed", "identity", id.Key(), "err", err)
		if errors.Is(err, domain.ErrConflict) || errors.Is(err, domain.ErrTurnTimeout) {
			return c.Send("I'm a bit busy, please try again.")
		}
		return c.Send("Something went wrong.")
	}
	return b.deliver(c, replies)
}

// HandleReset discards the dialog stack of the chat.
func (b *Bridge) HandleReset(c tele.Context) error {
	m := c.Message()
	if m == nil || m.Chat == nil || m.Sender == nil {
		return nil
	}
	id := IdentityOf(m.Chat.ID, m.Sender.ID)
	if err := b.engine.Reset(context.Background(), id); err != nil {
		b.logger.Error("telegram: reset failed", "identity", id.Key(), "err", err)
		return c.Send("Something went wrong.")
	}
	return c.Send("Conversation reset.", &tele.ReplyMarkup{RemoveKeyboard: true})
}

func (b *Bridge) deliver(c tele.Context, replies []domain.Reply) error {
	for _, o := range ToOutbound(replies, b.perRow) {
		var err error
		switch {
		case o.Typing:
			err = c.Notify(tele.Typing)
		case o.PhotoURL != "":
			photo := &tele.Photo{File: tele.FromURL(o.PhotoURL), Caption: o.Text}
			if o.Markup != nil {
				err = c.Send(photo, o.Markup)
			} else {
				err = c.Send(photo)
			}
		case o.Markup != nil:
			err = c.Send(o.Text, o.Markup)
		default:
			err = c.Send(o.Text)
		}
		if err != nil {
			return fmt.Errorf("telegram send: %w", err)
		}
	}
	return nil
}

// Register binds the bridge to a bot.
func (b *Bridge) Register(bot *tele.Bot) {
	bot.Handle(CommandReset, b.HandleReset)
	bot.Handle(tele.OnText, b.Handle)
	bot.Handle(tele.OnUserJoined, b.Handle)
}
