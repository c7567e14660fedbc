package jsonx

import (
	"bytes"
	"errors"
	"strings"

	"github.com/goccy/go-json"
)

// Thin wrapper so the decoder, service and delivery layers share one JSON
// implementation.
var (
	Marshal       = json.Marshal
	MarshalIndent = json.MarshalIndent
	Unmarshal     = json.Unmarshal
	NewDecoder    = json.NewDecoder
	NewEncoder    = json.NewEncoder
	Valid         = json.Valid
)

type RawMessage = json.RawMessage
type Number = json.Number

var errInvalid = errors.New("jsonx: input is not a single valid JSON value")

// DecodeAny decodes data into a generic value (map[string]any, []any,
// string, float64, bool or nil). Anything other than exactly one JSON value,
// surrounding whitespace aside, is an error.
func DecodeAny(data []byte) (any, error) {
	if !json.Valid(data) {
		return nil, errInvalid
	}
	var out any
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// CompactString returns the compact JSON encoding of v without HTML
// escaping, or "" when v cannot be encoded.
func CompactString(v any) string {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return ""
	}
	return strings.TrimRight(buf.String(), "\n")
}
