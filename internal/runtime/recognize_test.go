package runtime

import (
	"testing"

	"github.com/aretw0/turnstile/pkg/domain"
	"github.com/stretchr/testify/assert"
)

func TestRecognize(t *testing.T) {
	sizes := domain.PromptOptions{Choices: []string{"12 inch", "16 inch", "20 inch"}}
	pizzas := domain.PromptOptions{Choices: []string{"Cheese", "Veggie", "Meat Lovers"}}

	tests := []struct {
		name   string
		kind   domain.InputKind
		act    domain.Activity
		opts   domain.PromptOptions
		want   any
		wantOK bool
	}{
		{"text trimmed", domain.InputText, domain.NewMessage("  Alice "), domain.PromptOptions{}, "Alice", true},
		{"text blank", domain.InputText, domain.NewMessage("   "), domain.PromptOptions{}, "", false},
		{"text from value", domain.InputText, domain.Activity{Value: "Bob"}, domain.PromptOptions{}, "Bob", true},

		{"choice exact", domain.InputChoice, domain.NewMessage("veggie"), pizzas, "Veggie", true},
		{"choice ordinal", domain.InputChoice, domain.NewMessage("3"), pizzas, "Meat Lovers", true},
		{"choice ordinal out of range", domain.InputChoice, domain.NewMessage("4"), pizzas, nil, false},
		{"choice partial", domain.InputChoice, domain.NewMessage("meat"), pizzas, "Meat Lovers", true},
		{"choice contained", domain.InputChoice, domain.NewMessage("I'd like cheese please"), pizzas, "Cheese", true},
		{"choice ambiguous", domain.InputChoice, domain.NewMessage("inch"), sizes, nil, false},
		{"choice unknown", domain.InputChoice, domain.NewMessage("Pineapple"), pizzas, nil, false},
		{"choice without options", domain.InputChoice, domain.NewMessage("Pineapple"), domain.PromptOptions{}, "Pineapple", true},

		{"confirm yes", domain.InputConfirm, domain.NewMessage("Yes please!"), domain.PromptOptions{}, true, true},
		{"confirm no", domain.InputConfirm, domain.NewMessage("No thanks"), domain.PromptOptions{}, false, true},
		{"confirm value", domain.InputConfirm, domain.Activity{Value: false}, domain.PromptOptions{}, false, true},
		{"confirm unknown", domain.InputConfirm, domain.NewMessage("maybe"), domain.PromptOptions{}, nil, false},

		{"number", domain.InputNumber, domain.NewMessage("16"), domain.PromptOptions{}, 16.0, true},
		{"number value", domain.InputNumber, domain.Activity{Value: 3}, domain.PromptOptions{}, 3.0, true},
		{"number invalid", domain.InputNumber, domain.NewMessage("sixteen"), domain.PromptOptions{}, nil, false},
		{"number NaN", domain.InputNumber, domain.NewMessage("NaN"), domain.PromptOptions{}, nil, false},
		{"number Inf", domain.InputNumber, domain.NewMessage("+Inf"), domain.PromptOptions{}, nil, false},
		{"number infinity", domain.InputNumber, domain.NewMessage("-infinity"), domain.PromptOptions{}, nil, false},

		{"activity text", domain.InputActivity, domain.NewMessage("anything"), domain.PromptOptions{}, "anything", true},
		{"activity value", domain.InputActivity, domain.Activity{Value: map[string]any{"a": 1.0}}, domain.PromptOptions{}, map[string]any{"a": 1.0}, true},
		{"activity typing", domain.InputActivity, domain.Activity{Kind: domain.ActivityTyping}, domain.PromptOptions{}, nil, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := recognize(tt.kind, tt.act, tt.opts)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}
