package httputil

import (
	"bytes"
	"encoding/json"
)

// OptionalString tracks presence and value for JSON PATCH semantics (RFC 7396):
//   - Present=false: field absent from JSON (don't change)
//   - Present=true, Value=nil: field is JSON null (clear)
//   - Present=true, Value=&"text": field has value
type OptionalString struct {
	Present bool
	Value   *string
}

// Some returns a present OptionalString holding v.
func Some(v string) OptionalString {
	return OptionalString{Present: true, Value: &v}
}

// Null returns a present OptionalString holding JSON null.
func Null() OptionalString {
	return OptionalString{Present: true}
}

// IsNull reports whether the field was sent as JSON null.
func (o OptionalString) IsNull() bool {
	return o.Present && o.Value == nil
}

// UnmarshalJSON is only invoked when the field is present in the payload.
func (o *OptionalString) UnmarshalJSON(data []byte) error {
	o.Present = true

	if string(bytes.TrimSpace(data)) == "null" {
		o.Value = nil
		return nil
	}

	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	o.Value = &s
	return nil
}
