package ask

import (
	"fmt"

	askerrors "askview/internal/shared/errors"
	jsonx "askview/internal/shared/json"
)

// Decoded is the outcome of ParseContent. Value is the decoded payload when
// Err is nil. When a textual payload was not valid JSON, Err is a
// *errors.DegradedError whose fallback is the original text.
type Decoded struct {
	Value any
	Err   error
}

// OK reports whether the payload was decoded (or needed no decoding).
func (d Decoded) OK() bool {
	return d.Err == nil
}

// OrOriginal returns the decoded value, or the original text when decoding
// failed.
func (d Decoded) OrOriginal() any {
	if fallback, ok := askerrors.FallbackContent(d.Err); ok {
		return fallback
	}
	return d.Value
}

// ParseContent interprets raw as JSON when it is textual (string, []byte or
// raw JSON). Anything else is returned unchanged. It never panics.
func ParseContent(raw any) Decoded {
	var text string
	switch v := raw.(type) {
	case string:
		text = v
	case []byte:
		text = string(v)
	case jsonx.RawMessage:
		text = string(v)
	default:
		return Decoded{Value: raw}
	}

	value, err := jsonx.DecodeAny([]byte(text))
	if err != nil {
		return Decoded{
			Err: askerrors.NewDegradedError(
				fmt.Errorf("decode payload: %w", err),
				"payload is not JSON; kept as text",
				text,
			),
		}
	}
	return Decoded{Value: value}
}
