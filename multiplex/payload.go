package multiplex

import (
	"fmt"

	"github.com/mitchellh/mapstructure"
)

// DecodePayload copies a decoded message payload (typically a map from the
// JSON or CBOR host codec) into v, which must be a pointer. Struct fields
// are matched using their json tags.
func DecodePayload(payload interface{}, v interface{}) error {
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           v,
		TagName:          "json",
		WeaklyTypedInput: true,
	})
	if err != nil {
		return fmt.Errorf("multiplex: payload decoder: %w", err)
	}
	if err := dec.Decode(payload); err != nil {
		return fmt.Errorf("multiplex: decode payload: %w", err)
	}
	return nil
}
