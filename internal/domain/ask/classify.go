package ask

import (
	"math"

	"askview/internal/domain/tooldata"
)

// Payload is one recognized payload shape. The set of implementations is
// closed: NewEnvelope, WrappedMessage, LegacyStructured, LegacyText and
// Unrecognized.
type Payload interface {
	payload()
}

// NewEnvelope is an object carrying a tool_execution envelope.
type NewEnvelope struct {
	// Execution is the tool_execution object.
	Execution map[string]any
	// Outer is the object holding tool_execution; its summary is the
	// status fallback.
	Outer map[string]any
}

// WrappedMessage is a role/content pair whose content must be classified
// again.
type WrappedMessage struct {
	Role    any
	Content any
}

// LegacyStructured is a tool call recognized by the tool-data extractor
// with both arguments and a non-null recorded result.
type LegacyStructured struct {
	Data tooldata.ToolData
}

// LegacyText is content flattened to text for pattern matching.
type LegacyText struct {
	Text string
}

// Unrecognized carries nothing usable.
type Unrecognized struct{}

func (NewEnvelope) payload()      {}
func (WrappedMessage) payload()   {}
func (LegacyStructured) payload() {}
func (LegacyText) payload()       {}
func (Unrecognized) payload()     {}

// classifyStructured classifies an already parsed value for the new-format
// path: NewEnvelope, WrappedMessage or Unrecognized.
func classifyStructured(parsed any) Payload {
	obj, ok := parsed.(map[string]any)
	if !ok {
		return Unrecognized{}
	}
	if execution, ok := obj["tool_execution"].(map[string]any); ok {
		return NewEnvelope{Execution: execution, Outer: obj}
	}
	role, hasRole := obj["role"]
	content, hasContent := obj["content"]
	if hasRole && hasContent {
		return WrappedMessage{Role: role, Content: content}
	}
	return Unrecognized{}
}

// ClassifyStructured parses raw and classifies it for the new-format path.
func ClassifyStructured(raw any) Payload {
	return classifyStructured(ParseContent(raw).OrOriginal())
}

// classifyLegacy classifies raw for the legacy path: LegacyStructured,
// LegacyText or Unrecognized.
func classifyLegacy(raw any, extractor ToolDataExtractor, normalizer ContentNormalizer) Payload {
	if data, ok := extractor.Extract(raw); ok && data.HasResult && truthy(data.Result) && data.Arguments != nil {
		return LegacyStructured{Data: data}
	}
	text := normalizer.Normalize(raw)
	if text == "" {
		return Unrecognized{}
	}
	return LegacyText{Text: text}
}

// truthy reports whether a recorded tool result counts as present: false,
// zero, NaN, the empty string and null do not.
func truthy(value any) bool {
	switch v := value.(type) {
	case nil:
		return false
	case bool:
		return v
	case string:
		return v != ""
	case float64:
		return v != 0 && !math.IsNaN(v)
	case int:
		return v != 0
	case int64:
		return v != 0
	default:
		return true
	}
}
