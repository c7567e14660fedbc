// Package tooldata recognizes tool-call shaped payloads emitted by the agent
// runtime and flattens arbitrary message content into display text.
package tooldata

import (
	"regexp"
	"strings"

	"github.com/kaptinlin/jsonrepair"

	jsonx "askview/internal/shared/json"
	"askview/internal/shared/logging"
)

const defaultMaxDepth = 8

// ToolData is a tool invocation recognized inside a message payload.
type ToolData struct {
	ToolName  string
	Arguments map[string]any
	// Result is the recorded tool result; nil with HasResult true means the
	// payload carried an explicit null result.
	Result    any
	HasResult bool
}

var (
	toolCallPattern   = regexp.MustCompile(`(?s)<tool_call>(.*?)</tool_call>`)
	toolResultPattern = regexp.MustCompile(`(?s)<tool_result>(.*?)</tool_result>`)
	toolNamePattern   = regexp.MustCompile(`^[a-zA-Z][a-zA-Z0-9_\-]*$`)
)

var (
	nameKeys      = []string{"tool_name", "name", "function_name", "xml_tag_name"}
	argumentsKeys = []string{"parameters", "arguments", "args"}
	resultKeys    = []string{"result", "tool_result", "output"}
)

// Extractor finds a single tool call (name, arguments, result) in message
// content. It understands JSON objects, JSON-encoded strings of them,
// role/content wrappers, tool_execution envelopes and the tagged
// <tool_call>/<tool_result> text format.
type Extractor struct {
	maxDepth int
	logger   logging.Logger
}

// ExtractorOption configures an Extractor.
type ExtractorOption func(*Extractor)

// WithExtractorLogger sets the diagnostic logger.
func WithExtractorLogger(logger logging.Logger) ExtractorOption {
	return func(e *Extractor) {
		e.logger = logging.OrNop(logger)
	}
}

// WithExtractorMaxDepth bounds how many wrappers are unwrapped.
func WithExtractorMaxDepth(depth int) ExtractorOption {
	return func(e *Extractor) {
		if depth > 0 {
			e.maxDepth = depth
		}
	}
}

func NewExtractor(opts ...ExtractorOption) *Extractor {
	e := &Extractor{maxDepth: defaultMaxDepth, logger: logging.Nop()}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Extract reports the tool call carried by content, if any.
func (e *Extractor) Extract(content any) (ToolData, bool) {
	return e.extract(content, 0)
}

func (e *Extractor) extract(content any, depth int) (ToolData, bool) {
	if depth > e.maxDepth {
		return ToolData{}, false
	}
	switch v := content.(type) {
	case string:
		return e.extractText(v, depth)
	case []byte:
		return e.extractText(string(v), depth)
	case map[string]any:
		return e.extractObject(v, depth)
	default:
		return ToolData{}, false
	}
}

func (e *Extractor) extractText(text string, depth int) (ToolData, bool) {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return ToolData{}, false
	}
	if decoded, err := jsonx.DecodeAny([]byte(trimmed)); err == nil {
		return e.extract(decoded, depth+1)
	}
	return e.extractTagged(trimmed)
}

func (e *Extractor) extractObject(obj map[string]any, depth int) (ToolData, bool) {
	if execution, ok := obj["tool_execution"].(map[string]any); ok {
		return e.extractObject(execution, depth+1)
	}
	if function, ok := obj["function"].(map[string]any); ok {
		if data, found := e.extractObject(function, depth+1); found {
			if !data.HasResult {
				data.Result, data.HasResult = lookupResult(obj)
			}
			return data, true
		}
	}

	name := firstString(obj, nameKeys)
	args, hasArgs := e.lookupArguments(obj)
	if name != "" && hasArgs && toolNamePattern.MatchString(name) {
		result, hasResult := lookupResult(obj)
		return ToolData{
			ToolName:  name,
			Arguments: args,
			Result:    result,
			HasResult: hasResult,
		}, true
	}

	_, hasRole := obj["role"]
	inner, hasContent := obj["content"]
	if hasRole && hasContent {
		return e.extract(inner, depth+1)
	}
	return ToolData{}, false
}

// extractTagged parses the <tool_call>{"name":..,"args":{..}}</tool_call>
// format, pairing the first valid call with an optional <tool_result>.
func (e *Extractor) extractTagged(text string) (ToolData, bool) {
	matches := toolCallPattern.FindAllStringSubmatch(text, -1)
	for _, match := range matches {
		decoded, err := jsonx.DecodeAny([]byte(strings.TrimSpace(match[1])))
		if err != nil {
			e.logger.Debug("tool_call block is not valid JSON: %v", err)
			continue
		}
		obj, ok := decoded.(map[string]any)
		if !ok {
			continue
		}
		name := firstString(obj, nameKeys)
		if !toolNamePattern.MatchString(name) {
			continue
		}
		args, hasArgs := e.lookupArguments(obj)
		if !hasArgs {
			args = map[string]any{}
		}
		data := ToolData{ToolName: name, Arguments: args}
		if result := toolResultPattern.FindStringSubmatch(text); result != nil {
			data.Result = strings.TrimSpace(result[1])
			data.HasResult = true
		}
		return data, true
	}
	return ToolData{}, false
}

func (e *Extractor) lookupArguments(obj map[string]any) (map[string]any, bool) {
	for _, key := range argumentsKeys {
		raw, ok := obj[key]
		if !ok {
			continue
		}
		switch v := raw.(type) {
		case map[string]any:
			return v, true
		case string:
			if args, ok := e.parseArgumentString(v); ok {
				return args, true
			}
		}
	}
	return nil, false
}

// parseArgumentString decodes a JSON-encoded argument object, repairing it
// when the model emitted malformed JSON.
func (e *Extractor) parseArgumentString(raw string) (map[string]any, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return map[string]any{}, true
	}
	if decoded, err := jsonx.DecodeAny([]byte(raw)); err == nil {
		args, ok := decoded.(map[string]any)
		return args, ok
	}
	if !strings.HasPrefix(raw, "{") {
		return nil, false
	}
	repaired, err := jsonrepair.JSONRepair(raw)
	if err != nil {
		e.logger.Debug("tool arguments repair failed: %v", err)
		return nil, false
	}
	decoded, err := jsonx.DecodeAny([]byte(repaired))
	if err != nil {
		return nil, false
	}
	args, ok := decoded.(map[string]any)
	if ok {
		e.logger.Debug("tool arguments repaired (%d -> %d bytes)", len(raw), len(repaired))
	}
	return args, ok
}

func lookupResult(obj map[string]any) (any, bool) {
	for _, key := range resultKeys {
		if value, ok := obj[key]; ok {
			return value, true
		}
	}
	return nil, false
}

func firstString(obj map[string]any, keys []string) string {
	for _, key := range keys {
		if s, ok := obj[key].(string); ok {
			if s = strings.TrimSpace(s); s != "" {
				return s
			}
		}
	}
	return ""
}
