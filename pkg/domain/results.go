package domain

import (
	"fmt"

	"github.com/mitchellh/mapstructure"
)

// DecodeResults decodes the values collected by a frame into a typed struct.
// Fields are matched by their `mapstructure` tag, falling back to the field
// name. Values that went through JSON persistence (float64 for numbers) are
// converted with weak typing.
func DecodeResults(results map[string]any, out any) error {
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           out,
		WeaklyTypedInput: true,
	})
	if err != nil {
		return fmt.Errorf("failed to build results decoder: %w", err)
	}
	if err := decoder.Decode(results); err != nil {
		return fmt.Errorf("failed to decode results: %w", err)
	}
	return nil
}
