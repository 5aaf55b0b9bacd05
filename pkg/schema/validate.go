package schema

import (
	"fmt"
	"sort"
)

// Schema maps result keys to their declared field.
type Schema map[string]Field

// Parse builds a Schema from key to type-string pairs.
func Parse(types map[string]string) (Schema, error) {
	s := make(Schema, len(types))
	for key, typ := range types {
		f, err := ParseField(typ)
		if err != nil {
			return nil, fmt.Errorf("result %q: %w", key, err)
		}
		s[key] = f
	}
	return s, nil
}

// Keys returns the declared keys, sorted.
func (s Schema) Keys() []string {
	keys := make([]string, 0, len(s))
	for k := range s {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Validate checks values against the schema. Keys not in the schema are
// ignored. Every failure is reported in an *AggregateError.
func (s Schema) Validate(values map[string]any) error {
	var errs []*ValidationError
	for _, key := range s.Keys() {
		f := s[key]
		v, ok := values[key]
		if !ok || v == nil {
			if !f.Optional {
				errs = append(errs, &ValidationError{Key: key, Reason: "missing"})
			}
			continue
		}
		if err := f.Type.Validate(v); err != nil {
			errs = append(errs, &ValidationError{Key: key, Reason: err.Error(), Value: v})
		}
	}
	if len(errs) > 0 {
		return &AggregateError{Errors: errs}
	}
	return nil
}
