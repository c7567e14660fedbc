package tooldata

import (
	"fmt"
	"strconv"
	"strings"

	jsonx "askview/internal/shared/json"
)

// Normalizer collapses arbitrary message content into one display string.
type Normalizer struct {
	maxDepth int
}

func NewNormalizer() *Normalizer {
	return &Normalizer{maxDepth: defaultMaxDepth}
}

// Normalize flattens content: strings are returned as-is unless they hold a
// JSON object or array, objects with a content field collapse to that
// field, {"type":"text"} parts collapse to their text, arrays are flattened
// element-wise and newline-joined, and any other object becomes compact JSON.
func (n *Normalizer) Normalize(content any) string {
	return n.normalize(content, 0)
}

func (n *Normalizer) normalize(content any, depth int) string {
	if depth > n.maxDepth {
		return jsonx.CompactString(content)
	}
	switch v := content.(type) {
	case nil:
		return ""
	case string:
		trimmed := strings.TrimSpace(v)
		if strings.HasPrefix(trimmed, "{") || strings.HasPrefix(trimmed, "[") {
			if decoded, err := jsonx.DecodeAny([]byte(trimmed)); err == nil {
				return n.normalize(decoded, depth+1)
			}
		}
		return v
	case []byte:
		return n.normalize(string(v), depth)
	case map[string]any:
		if inner, ok := v["content"]; ok && inner != nil {
			return n.normalize(inner, depth+1)
		}
		if text, ok := v["text"].(string); ok && v["type"] == "text" {
			return text
		}
		return jsonx.CompactString(v)
	case []any:
		parts := make([]string, 0, len(v))
		for _, item := range v {
			if text := n.normalize(item, depth+1); text != "" {
				parts = append(parts, text)
			}
		}
		return strings.Join(parts, "\n")
	case bool:
		return strconv.FormatBool(v)
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	default:
		return fmt.Sprint(v)
	}
}
