// Package validate provides reusable prompt validators.
package validate

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/aretw0/turnstile/pkg/domain"
)

// text renders a recognized value the way a user would have typed it.
func text(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case nil:
		return ""
	case fmt.Stringer:
		return t.String()
	default:
		return fmt.Sprint(t)
	}
}

// RejectContaining rejects values containing any of the substrings,
// case-insensitively.
func RejectContaining(substrings ...string) domain.Validator {
	lowered := make([]string, len(substrings))
	for i, s := range substrings {
		lowered[i] = strings.ToLower(s)
	}
	return func(v any) bool {
		s := strings.ToLower(text(v))
		for _, sub := range lowered {
			if sub != "" && strings.Contains(s, sub) {
				return false
			}
		}
		return true
	}
}

// OneOf accepts values equal to one of the options, case-insensitively.
func OneOf(options ...string) domain.Validator {
	return func(v any) bool {
		s := text(v)
		for _, o := range options {
			if strings.EqualFold(s, o) {
				return true
			}
		}
		return false
	}
}

// NonEmpty rejects blank values.
func NonEmpty() domain.Validator {
	return func(v any) bool {
		return strings.TrimSpace(text(v)) != ""
	}
}

// MinLength accepts values with at least n characters.
func MinLength(n int) domain.Validator {
	return func(v any) bool {
		return len([]rune(strings.TrimSpace(text(v)))) >= n
	}
}

// Range accepts numbers within [min, max].
func Range(min, max float64) domain.Validator {
	return func(v any) bool {
		var f float64
		switch t := v.(type) {
		case float64:
			f = t
		case int:
			f = float64(t)
		case int64:
			f = float64(t)
		default:
			parsed, err := strconv.ParseFloat(strings.TrimSpace(text(v)), 64)
			if err != nil {
				return false
			}
			f = parsed
		}
		return f >= min && f <= max
	}
}

// All accepts values every validator accepts.
func All(validators ...domain.Validator) domain.Validator {
	return func(v any) bool {
		for _, fn := range validators {
			if fn != nil && !fn(v) {
				return false
			}
		}
		return true
	}
}

// Not inverts a validator.
func Not(fn domain.Validator) domain.Validator {
	return func(v any) bool {
		return !fn(v)
	}
}
