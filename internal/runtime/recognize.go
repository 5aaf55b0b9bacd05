package runtime

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/aretw0/turnstile/pkg/domain"
)

var (
	truthy = []string{"yes", "y", "true", "1", "ok", "okay", "sure", "yes please", "yep"}
	falsy  = []string{"no", "n", "false", "0", "no thanks", "nope"}
)

// recognize turns raw input into a typed value for the given input kind.
// It reports false when the input cannot be understood.
func recognize(kind domain.InputKind, act domain.Activity, opts domain.PromptOptions) (any, bool) {
	input := inputText(act)

	switch kind {
	case domain.InputText:
		return input, input != ""

	case domain.InputChoice:
		if len(opts.Choices) == 0 {
			return input, input != ""
		}
		return recognizeChoice(input, opts.Choices)

	case domain.InputConfirm:
		if b, ok := act.Value.(bool); ok && act.Text == "" {
			return b, true
		}
		clean := strings.ToLower(strings.TrimRight(input, ".!"))
		for _, s := range truthy {
			if clean == s {
				return true, true
			}
		}
		for _, s := range falsy {
			if clean == s {
				return false, true
			}
		}
		return nil, false

	case domain.InputNumber:
		switch v := act.Value.(type) {
		case float64:
			if act.Text == "" {
				return v, finite(v)
			}
		case int:
			if act.Text == "" {
				return float64(v), true
			}
		}
		f, err := strconv.ParseFloat(input, 64)
		if err != nil || !finite(f) {
			return nil, false
		}
		return f, true

	case domain.InputActivity:
		if !act.IsMessage() {
			return nil, false
		}
		if act.Text == "" && act.Value != nil {
			return act.Value, true
		}
		return act.Text, true

	default:
		return nil, false
	}
}

// finite rejects NaN and infinities, which no store can encode as JSON.
func finite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}

// recognizeChoice matches exact text first, then a 1-based ordinal, then a
// unique partial match in either direction.
func recognizeChoice(input string, choices []string) (any, bool) {
	if input == "" {
		return nil, false
	}

	for _, c := range choices {
		if strings.EqualFold(input, c) {
			return c, true
		}
	}

	if n, err := strconv.Atoi(input); err == nil {
		if n >= 1 && n <= len(choices) {
			return choices[n-1], true
		}
		return nil, false
	}

	lower := strings.ToLower(input)
	match := ""
	found := 0
	for _, c := range choices {
		lc := strings.ToLower(c)
		if strings.Contains(lc, lower) || strings.Contains(lower, lc) {
			match = c
			found++
		}
	}
	if found == 1 {
		return match, true
	}
	return nil, false
}

// inputText is the trimmed text of the activity, falling back to a scalar
// structured value such as a button payload.
func inputText(act domain.Activity) string {
	if s := strings.TrimSpace(act.Text); s != "" {
		return s
	}
	switch v := act.Value.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(v)
	case map[string]any, []any:
		return ""
	default:
		return strings.TrimSpace(fmt.Sprint(v))
	}
}
