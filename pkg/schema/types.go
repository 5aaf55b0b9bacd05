package schema

import (
	"fmt"
	"reflect"
	"strings"
)

// Type validates a single value.
type Type interface {
	Name() string
	Validate(value any) error
}

type scalar struct {
	name  string
	check func(any) bool
}

func (t scalar) Name() string { return t.name }

func (t scalar) Validate(value any) error {
	if !t.check(value) {
		return fmt.Errorf("expected %s", t.name)
	}
	return nil
}

func isString(v any) bool {
	_, ok := v.(string)
	return ok
}

func isBool(v any) bool {
	_, ok := v.(bool)
	return ok
}

func isNumber(v any) bool {
	switch v.(type) {
	case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64, float32, float64:
		return true
	}
	return false
}

// isInt accepts whole floats, as stored stacks come back from JSON.
func isInt(v any) bool {
	switch n := v.(type) {
	case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64:
		return true
	case float64:
		return n == float64(int64(n))
	case float32:
		return n == float32(int64(n))
	}
	return false
}

func isPresent(v any) bool { return v != nil }

// String accepts text.
func String() Type { return scalar{name: "string", check: isString} }

// Int accepts whole numbers.
func Int() Type { return scalar{name: "int", check: isInt} }

// Number accepts any numeric value.
func Number() Type { return scalar{name: "number", check: isNumber} }

// Bool accepts true or false.
func Bool() Type { return scalar{name: "bool", check: isBool} }

// Any accepts every non-nil value.
func Any() Type { return scalar{name: "any", check: isPresent} }

type list struct {
	elem Type
}

// List accepts a slice whose elements all match elem.
func List(elem Type) Type { return list{elem: elem} }

func (t list) Name() string { return "[" + t.elem.Name() + "]" }

func (t list) Validate(value any) error {
	rv := reflect.ValueOf(value)
	if !rv.IsValid() || (rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array) {
		return fmt.Errorf("expected %s", t.Name())
	}
	for i := 0; i < rv.Len(); i++ {
		if err := t.elem.Validate(rv.Index(i).Interface()); err != nil {
			return fmt.Errorf("element %d: %w", i, err)
		}
	}
	return nil
}

type custom struct {
	name     string
	validate func(any) error
}

// Custom wraps a user-defined check.
func Custom(name string, validate func(any) error) Type {
	return custom{name: name, validate: validate}
}

func (t custom) Name() string             { return t.name }
func (t custom) Validate(value any) error { return t.validate(value) }

// Field is a typed key of a Schema.
type Field struct {
	Type     Type
	Optional bool
}

// ParseType converts a type string such as "int" or "[string]".
func ParseType(s string) (Type, error) {
	s = strings.TrimSpace(s)
	if len(s) > 2 && s[0] == '[' && s[len(s)-1] == ']' {
		elem, err := ParseType(s[1 : len(s)-1])
		if err != nil {
			return nil, err
		}
		return List(elem), nil
	}

	switch s {
	case "string", "text":
		return String(), nil
	case "int":
		return Int(), nil
	case "number", "float":
		return Number(), nil
	case "bool":
		return Bool(), nil
	case "any":
		return Any(), nil
	default:
		return nil, fmt.Errorf("unsupported type %q", s)
	}
}

// ParseField parses a type string with an optional "?" suffix.
func ParseField(s string) (Field, error) {
	s = strings.TrimSpace(s)
	optional := strings.HasSuffix(s, "?")
	t, err := ParseType(strings.TrimSuffix(s, "?"))
	if err != nil {
		return Field{}, err
	}
	return Field{Type: t, Optional: optional}, nil
}
