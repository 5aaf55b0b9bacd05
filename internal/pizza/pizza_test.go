package pizza_test

import (
	"context"
	"testing"

	"github.com/aretw0/turnstile"
	"github.com/aretw0/turnstile/internal/pizza"
	"github.com/aretw0/turnstile/pkg/domain"
	"github.com/aretw0/turnstile/pkg/registry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var user = domain.Identity{ChannelID: "emulator", ConversationID: "c1", UserID: "u1"}

func newEngine(t *testing.T, hooks domain.LifecycleHooks) *turnstile.Engine {
	t.Helper()
	reg := registry.New()
	require.NoError(t, pizza.Register(reg))
	eng, err := turnstile.New(turnstile.WithRegistry(reg), turnstile.WithLifecycleHooks(hooks))
	require.NoError(t, err)
	return eng
}

func texts(replies []domain.Reply) []string {
	var out []string
	for _, r := range replies {
		if r.Type == domain.ReplyMessage {
			out = append(out, r.Text)
		}
	}
	return out
}

func TestPizzaDialog_WithToppings(t *testing.T) {
	var order pizza.Order
	eng := newEngine(t, domain.LifecycleHooks{})
	ctx := context.Background()

	turn := func(text string) []domain.Reply {
		replies, err := eng.ProcessTurn(ctx, user, domain.NewMessage(text))
		require.NoError(t, err)
		return replies
	}

	replies := turn("hello")
	assert.Equal(t, []string{pizza.WelcomeText, pizza.NameText}, texts(replies))
	assert.Equal(t, domain.ReplyTyping, replies[1].Type, "typing precedes the name prompt")

	replies = turn("Alice")
	assert.Equal(t, []string{"It's nice to meet you Alice", pizza.PizzaText}, texts(replies))
	last := replies[len(replies)-1]
	assert.Equal(t, domain.LayoutCarousel, last.AttachmentLayout)
	require.Len(t, last.Attachments, 4)
	assert.Equal(t, "Meat Lovers", last.Attachments[2].Buttons[0].Value)

	replies = turn("Meat Lovers")
	assert.Equal(t, []string{
		"Excellent choice, I'm sure you'll love our Meat Lovers pizza!",
		"What size Meat Lovers pizza do you want?",
	}, texts(replies))
	assert.Len(t, replies[1].SuggestedActions, 3)

	assert.Equal(t, []string{pizza.MoreToppingsText}, texts(turn("16 inch")))
	assert.Equal(t, []string{pizza.SelectToppingText}, texts(turn("yes please")))

	replies = turn("Pineapple")
	assert.Equal(t, []string{pizza.PineappleRetry, pizza.SelectToppingText}, texts(replies))

	stack, err := eng.Inspect(ctx, user)
	require.NoError(t, err)
	order, err = pizza.DecodeOrder(stack.Active().Results)
	require.NoError(t, err)
	assert.Equal(t, pizza.Order{Name: "Alice", Pizza: "Meat Lovers", Size: "16 inch"}, order)

	assert.Equal(t, []string{pizza.ReadyText, pizza.ThanksText}, texts(turn("olives")))

	stack, err = eng.Inspect(ctx, user)
	require.NoError(t, err)
	assert.True(t, stack.Empty())
}

func TestPizzaDialog_NoToppings(t *testing.T) {
	var ended []string
	eng := newEngine(t, domain.LifecycleHooks{
		OnDialogEnd: func(_ context.Context, e *domain.DialogEvent) { ended = append(ended, e.DialogID) },
	})
	ctx := context.Background()

	for _, text := range []string{"hi", "Bob", "Cheese", "12 inch"} {
		_, err := eng.ProcessTurn(ctx, user, domain.NewMessage(text))
		require.NoError(t, err)
	}

	replies, err := eng.ProcessTurn(ctx, user, domain.NewMessage("No thanks"))
	require.NoError(t, err)
	assert.Equal(t, []string{pizza.ReadyText, pizza.ThanksText}, texts(replies))
	assert.Equal(t, []string{pizza.DialogID}, ended)
}

func TestPizzaDialog_MembersAdded(t *testing.T) {
	eng := newEngine(t, domain.LifecycleHooks{})
	act := domain.NewMembersAdded(domain.Account{ID: "bot"}, domain.Account{ID: "u1"})
	act.Recipient = domain.Account{ID: "bot"}

	replies, err := eng.ProcessTurn(context.Background(), user, act)
	require.NoError(t, err)
	assert.Equal(t, []string{pizza.WelcomeText, pizza.NameText}, texts(replies))
}

func TestDecodeOrder(t *testing.T) {
	o, err := pizza.DecodeOrder(map[string]any{"name": "Ann", "pizza": "Veggie", "size": "20 inch", "toppings": "Onion"})
	require.NoError(t, err)
	assert.Equal(t, "Onion", o.Topping)
}
