package telegram

import (
	"testing"

	"github.com/aretw0/turnstile"
	"github.com/aretw0/turnstile/pkg/domain"
	"github.com/aretw0/turnstile/pkg/dsl"
	"github.com/aretw0/turnstile/pkg/registry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	tele "gopkg.in/telebot.v4"
)

// fakeContext records what the bridge sends. Methods the bridge does not use
// panic through the nil embedded interface.
type fakeContext struct {
	tele.Context
	msg     *tele.Message
	sent    []any
	options [][]any
	typing  int
}

func (f *fakeContext) Message() *tele.Message { return f.msg }

func (f *fakeContext) Send(what any, opts ...any) error {
	f.sent = append(f.sent, what)
	f.options = append(f.options, opts)
	return nil
}

func (f *fakeContext) Notify(action tele.ChatAction) error {
	if action == tele.Typing {
		f.typing++
	}
	return nil
}

func text(chatID, userID int64, s string) *tele.Message {
	return &tele.Message{
		ID:       7,
		Text:     s,
		Chat:     &tele.Chat{ID: chatID},
		Sender:   &tele.User{ID: userID, FirstName: "Ada"},
		Unixtime: 1700000000,
	}
}

func TestIdentityOf(t *testing.T) {
	assert.Equal(t, domain.Identity{ChannelID: "telegram", ConversationID: "-100", UserID: "42"}, IdentityOf(-100, 42))
}

func TestActivityFromMessage(t *testing.T) {
	id, act, ok := ActivityFromMessage(text(1, 2, "hello"))
	require.True(t, ok)
	assert.Equal(t, IdentityOf(1, 2), id)
	assert.Equal(t, domain.ActivityMessage, act.Kind)
	assert.Equal(t, "hello", act.Text)
	assert.Equal(t, "7", act.ID)
	assert.Equal(t, domain.Account{ID: "2", Name: "Ada"}, act.From)
	assert.Equal(t, int64(1700000000), act.Timestamp.Unix())

	joined := &tele.Message{
		Chat:        &tele.Chat{ID: 1},
		Sender:      &tele.User{ID: 2},
		UsersJoined: []tele.User{{ID: 3, Username: "bob"}},
	}
	_, act, ok = ActivityFromMessage(joined)
	require.True(t, ok)
	assert.Equal(t, domain.ActivityMembersAdded, act.Kind)
	assert.Equal(t, []domain.Account{{ID: "3", Name: "bob"}}, act.MembersAdded)

	_, _, ok = ActivityFromMessage(&tele.Message{Chat: &tele.Chat{ID: 1}, Sender: &tele.User{ID: 2}})
	assert.False(t, ok, "empty message is ignored")
	_, _, ok = ActivityFromMessage(nil)
	assert.False(t, ok)
}

func TestToOutbound(t *testing.T) {
	replies := []domain.Reply{
		domain.Typing(),
		domain.Trace("debug", 1),
		{
			Type:             domain.ReplyMessage,
			Text:             "Pick a size",
			SuggestedActions: []domain.CardAction{domain.IMBack("Small"), domain.IMBack("Medium"), domain.IMBack("Large"), domain.IMBack("Huge")},
		},
		{
			Type: domain.ReplyMessage,
			Attachments: []domain.Attachment{
				domain.HeroCard("Margherita", "Classic", []string{"https://img.example/m.png"}, domain.IMBack("Margherita")),
			},
		},
	}

	out := ToOutbound(replies, 3)
	require.Len(t, out, 3)
	assert.True(t, out[0].Typing)

	assert.Equal(t, "Pick a size", out[1].Text)
	require.NotNil(t, out[1].Markup)
	require.Len(t, out[1].Markup.ReplyKeyboard, 2)
	assert.Len(t, out[1].Markup.ReplyKeyboard[0], 3)
	assert.Equal(t, "Huge", out[1].Markup.ReplyKeyboard[1][0].Text)

	assert.Equal(t, "Margherita\nClassic", out[2].Text)
	assert.Equal(t, "https://img.example/m.png", out[2].PhotoURL)
	require.NotNil(t, out[2].Markup)
	assert.Equal(t, "Margherita", out[2].Markup.ReplyKeyboard[0][0].Text)
}

func newBridge(t *testing.T) *Bridge {
	t.Helper()
	b := dsl.New("size")
	b.Ask("size", domain.InputChoice, dsl.Choices("Which size?", domain.StyleSuggestedAction, "Small", "Large"))
	b.Say("done", "Got it.")
	eng, err := turnstile.New(turnstile.WithRegistry(registry.New().MustRegister(b.MustBuild())))
	require.NoError(t, err)
	return NewBridge(eng)
}

func TestBridge_Handle(t *testing.T) {
	bridge := newBridge(t)

	c := &fakeContext{msg: text(10, 20, "hi")}
	require.NoError(t, bridge.Handle(c))
	require.Len(t, c.sent, 1)
	assert.Equal(t, "Which size?", c.sent[0])
	require.Len(t, c.options[0], 1)
	markup, ok := c.options[0][0].(*tele.ReplyMarkup)
	require.True(t, ok)
	assert.Equal(t, "Small", markup.ReplyKeyboard[0][0].Text)

	c = &fakeContext{msg: text(10, 20, "Large")}
	require.NoError(t, bridge.Handle(c))
	assert.Equal(t, []any{"Got it."}, c.sent)
}

func TestBridge_RejectsOversizedInput(t *testing.T) {
	bridge := newBridge(t)
	big := make([]byte, 5000)
	for i := range big {
		big[i] = 'a'
	}

	c := &fakeContext{msg: text(10, 20, string(big))}
	require.NoError(t, bridge.Handle(c))
	assert.Equal(t, []any{"Sorry, I could not read that message."}, c.sent)
}

func TestBridge_HandleReset(t *testing.T) {
	bridge := newBridge(t)
	require.NoError(t, bridge.Handle(&fakeContext{msg: text(10, 20, "hi")}))

	c := &fakeContext{msg: text(10, 20, "/reset")}
	require.NoError(t, bridge.HandleReset(c))
	assert.Equal(t, []any{"Conversation reset."}, c.sent)

	_, err := bridge.engine.Inspect(t.Context(), IdentityOf(10, 20))
	assert.ErrorIs(t, err, domain.ErrStackNotFound)
}

func TestBuildPoller(t *testing.T) {
	p := BuildPoller(PollerOptions{RunMode: "WEBHOOK", WebhookListen: ":8443", WebhookURL: "https://bot.example/hook"})
	hook, ok := p.(*tele.Webhook)
	require.True(t, ok)
	assert.Equal(t, ":8443", hook.Listen)

	p = BuildPoller(PollerOptions{})
	lp, ok := p.(*tele.LongPoller)
	require.True(t, ok)
	assert.Equal(t, "10s", lp.Timeout.String())
}
