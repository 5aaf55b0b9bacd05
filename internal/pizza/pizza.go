// Package pizza is the reference dialog: a waterfall that takes a pizza order.
package pizza

import (
	"context"
	"fmt"
	"strings"

	"github.com/aretw0/turnstile/pkg/domain"
	"github.com/aretw0/turnstile/pkg/dsl"
	"github.com/aretw0/turnstile/pkg/registry"
	"github.com/aretw0/turnstile/pkg/validate"
)

// DialogID is the id the pizza dialog is registered under.
const DialogID = "pizza"

// Prompt ids.
const (
	PromptName     = "name"
	PromptPizza    = "pizza"
	PromptSize     = "size"
	PromptMore     = "more_toppings"
	PromptToppings = "toppings"
)

// Messages that tests and transports may match on.
const (
	WelcomeText       = "Welcome to the pizza ordering bot!"
	NameText          = "What is your name?"
	PizzaText         = "What kind of pizza would you like?"
	MoreToppingsText  = "Would you like additional toppings?"
	SelectToppingText = "Select an additional topping for your pizza"
	PineappleRetry    = "Sorry, pineapple is not a valid choice, please re-evaluate your life decisions"
	ReadyText         = "You're all set! Your imaginary pizza will be ready in 20-30 minutes"
	ThanksText        = "Thanks for order through the pizza bot!"
)

// NoPineapple is the validator name registered by Register.
const NoPineapple = "no_pineapple"

// Sizes and toppings on the menu.
var (
	Sizes    = []string{"12 inch", "16 inch", "20 inch"}
	Toppings = []string{"Pepperoni", "Onion", "Bell Pepper", "Sausage", "Olives", "Pineapple"}
)

var menu = []struct {
	Name  string
	Image string
}{
	{"Cheese", "https://imagesvc.meredithcorp.io/v3/mm/image?url=https%3A%2F%2Fstatic.onecms.io%2Fwp-content%2Fuploads%2Fsites%2F9%2F2022%2F02%2F15%2Fclassic-cheese-pizza-FT-RECIPE0422.jpg&q=60"},
	{"Pepperoni", "https://www.simplyrecipes.com/thmb/RiK7px2b_-buGiK2w55_jdRiAKM=/1333x1333/smart/filters:no_upscale()/__opt__aboutcom__coeus__resources__content_migration__simply_recipes__uploads__2019__09__easy-pepperoni-pizza-lead-3-8f256746d649404baa36a44d271329bc.jpg"},
	{"Meat Lovers", "https://www.queensleeappetit.com/wp-content/uploads/2019/02/Meat-Lovers-Pizza-5-1-480x480.jpg"},
	{"Veggie", "https://cookieandkate.com/images/2020/10/best-veggie-pizza-recipe-1.jpg"},
}

// Order is the completion value of the dialog.
type Order struct {
	Name    string `mapstructure:"name" json:"name"`
	Pizza   string `mapstructure:"pizza" json:"pizza"`
	Size    string `mapstructure:"size" json:"size"`
	Topping string `mapstructure:"toppings" json:"topping,omitempty"`
}

// DecodeOrder reads an order out of frame results.
func DecodeOrder(results map[string]any) (Order, error) {
	var o Order
	err := domain.DecodeResults(results, &o)
	return o, err
}

// New builds the pizza dialog.
func New() *domain.Dialog {
	b := dsl.New(DialogID)

	b.Prompt(PromptName, domain.InputText)
	b.Prompt(PromptPizza, domain.InputActivity)
	b.Prompt(PromptSize, domain.InputChoice)
	b.Prompt(PromptToppings, domain.InputChoice).
		Validate(validate.RejectContaining("pineapple")).
		Retry(PineappleRetry)

	b.Say("welcome", WelcomeText)
	b.Do(PromptName, askName)
	b.Do(PromptPizza, askPizza)
	b.Do(PromptSize, askSize)
	b.Ask(PromptMore, domain.InputChoice, dsl.Choices(MoreToppingsText, domain.StyleSuggestedAction, "Yes please!", "No thanks"))
	b.Do(PromptToppings, askToppings)
	b.Do("finish", finish)

	return b.MustBuild()
}

// Register adds the dialog and its named validator to reg.
func Register(reg *registry.Registry) error {
	reg.RegisterValidator(NoPineapple, validate.RejectContaining("pineapple"))
	return reg.Register(New())
}

func askName(_ context.Context, sc domain.StepContext) (domain.StepResult, error) {
	sc.Send(domain.Typing())
	return domain.Suspend(PromptName, domain.PromptOptions{Text: NameText}), nil
}

func askPizza(_ context.Context, sc domain.StepContext) (domain.StepResult, error) {
	name, _ := sc.Result(PromptName)
	sc.Send(domain.Typing(), domain.Message(fmt.Sprintf("It's nice to meet you %v", name)))

	cards := make([]domain.Attachment, len(menu))
	for i, p := range menu {
		cards[i] = domain.HeroCard(p.Name+" Pizza", "", []string{p.Image}, domain.CardAction{
			Type:  domain.ActionIMBack,
			Title: "Select",
			Value: p.Name,
		})
	}

	return domain.Suspend(PromptPizza, domain.PromptOptions{
		Text:             PizzaText,
		Attachments:      cards,
		AttachmentLayout: domain.LayoutCarousel,
	}), nil
}

func askSize(_ context.Context, sc domain.StepContext) (domain.StepResult, error) {
	pizza, _ := sc.Result(PromptPizza)
	sc.Send(domain.Message(fmt.Sprintf("Excellent choice, I'm sure you'll love our %v pizza!", pizza)))

	return domain.Suspend(PromptSize, domain.PromptOptions{
		Text:    fmt.Sprintf("What size %v pizza do you want?", pizza),
		Choices: Sizes,
		Style:   domain.StyleSuggestedAction,
	}), nil
}

func askToppings(_ context.Context, sc domain.StepContext) (domain.StepResult, error) {
	more, _ := sc.Result(PromptMore)
	if !strings.Contains(strings.ToLower(fmt.Sprint(more)), "yes") {
		return domain.Advance(), nil
	}
	return domain.Suspend(PromptToppings, domain.PromptOptions{
		Text:    SelectToppingText,
		Choices: Toppings,
	}), nil
}

func finish(_ context.Context, sc domain.StepContext) (domain.StepResult, error) {
	sc.Send(
		domain.Message(ReadyText),
		domain.Typing(),
		domain.Message(ThanksText),
	)
	return domain.Complete(sc.Results()), nil
}
