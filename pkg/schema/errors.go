package schema

import (
	"fmt"
	"strings"
)

// ValidationError is a single key that failed its type.
type ValidationError struct {
	Key    string
	Reason string
	Value  any
}

func (e *ValidationError) Error() string {
	if e.Value == nil {
		return fmt.Sprintf("result %q: %s", e.Key, e.Reason)
	}
	return fmt.Sprintf("result %q: %s (got %T)", e.Key, e.Reason, e.Value)
}

// AggregateError collects every failed key, ordered by key.
type AggregateError struct {
	Errors []*ValidationError
}

func (e *AggregateError) Error() string {
	if len(e.Errors) == 1 {
		return e.Errors[0].Error()
	}
	parts := make([]string, len(e.Errors))
	for i, err := range e.Errors {
		parts[i] = err.Error()
	}
	return fmt.Sprintf("%d invalid results: %s", len(e.Errors), strings.Join(parts, "; "))
}

// Keys returns the failed keys.
func (e *AggregateError) Keys() []string {
	keys := make([]string, len(e.Errors))
	for i, err := range e.Errors {
		keys[i] = err.Key
	}
	return keys
}
