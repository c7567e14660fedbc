// Package ask decodes the agent's ask tool output into one canonical record.
//
// The agent runtime emits ask payloads in two channels (an assistant message
// and a tool message) and in several shapes: a tool_execution envelope, a
// role/content wrapper around one, a legacy structured tool call, or free
// text with <ask> markup. Decoding never fails; unusable input degrades to
// an empty record.
package ask

import (
	"strings"

	jsonx "askview/internal/shared/json"
)

// Source names the reconciliation tier that produced a record.
type Source string

const (
	SourceAssistantEnvelope Source = "assistant_envelope"
	SourceToolEnvelope      Source = "tool_envelope"
	SourceLegacy            Source = "legacy"
	SourceEmpty             Source = "empty"
)

// Record is the canonical ask record. Empty Text or Status and nil
// Attachments mean absent. Attachments, when present, are non-empty,
// trimmed and free of blanks.
type Record struct {
	Text               string
	Attachments        []string
	Status             string
	Success            bool
	AssistantTimestamp string
	ToolTimestamp      string
	Source             Source
}

// Prior carries the caller's fallback success flag and timestamps.
type Prior struct {
	Success            bool
	ToolTimestamp      string
	AssistantTimestamp string
}

// IsEmpty reports whether the record carries nothing to show.
func (r Record) IsEmpty() bool {
	return r.Text == "" && len(r.Attachments) == 0 && r.Status == ""
}

// RecordView is the wire form of a Record: absent text and status encode
// as null.
type RecordView struct {
	Text               *string  `json:"text" yaml:"text" msgpack:"text"`
	Attachments        []string `json:"attachments" yaml:"attachments" msgpack:"attachments"`
	Status             *string  `json:"status" yaml:"status" msgpack:"status"`
	Success            bool     `json:"success" yaml:"success" msgpack:"success"`
	AssistantTimestamp string   `json:"assistant_timestamp,omitempty" yaml:"assistant_timestamp,omitempty" msgpack:"assistant_timestamp,omitempty"`
	ToolTimestamp      string   `json:"tool_timestamp,omitempty" yaml:"tool_timestamp,omitempty" msgpack:"tool_timestamp,omitempty"`
	Source             Source   `json:"source,omitempty" yaml:"source,omitempty" msgpack:"source,omitempty"`
}

// View converts the record to its wire form.
func (r Record) View() RecordView {
	return RecordView{
		Text:               nullable(r.Text),
		Attachments:        r.Attachments,
		Status:             nullable(r.Status),
		Success:            r.Success,
		AssistantTimestamp: r.AssistantTimestamp,
		ToolTimestamp:      r.ToolTimestamp,
		Source:             r.Source,
	}
}

// Record converts a wire form back, restoring the attachment invariant.
func (v RecordView) Record() Record {
	rec := Record{
		Attachments:        cleanAttachmentList(v.Attachments),
		Success:            v.Success,
		AssistantTimestamp: v.AssistantTimestamp,
		ToolTimestamp:      v.ToolTimestamp,
		Source:             v.Source,
	}
	if v.Text != nil {
		rec.Text = *v.Text
	}
	if v.Status != nil {
		rec.Status = *v.Status
	}
	return rec
}

func (r Record) MarshalJSON() ([]byte, error) {
	return jsonx.Marshal(r.View())
}

func (r *Record) UnmarshalJSON(data []byte) error {
	var view RecordView
	if err := jsonx.Unmarshal(data, &view); err != nil {
		return err
	}
	*r = view.Record()
	return nil
}

func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// splitAttachments splits a comma-separated attachment list, trimming each
// entry and dropping blanks. It returns nil when nothing remains.
func splitAttachments(raw string) []string {
	return cleanAttachmentList(strings.Split(raw, ","))
}

func cleanAttachmentList(items []string) []string {
	var out []string
	for _, item := range items {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}

// attachmentsFrom accepts a comma-separated string or a sequence. Sequence
// entries that are not strings are skipped.
func attachmentsFrom(raw any) []string {
	switch v := raw.(type) {
	case string:
		return splitAttachments(v)
	case []string:
		return cleanAttachmentList(v)
	case []any:
		items := make([]string, 0, len(v))
		for _, item := range v {
			if s, ok := item.(string); ok {
				items = append(items, s)
			}
		}
		return cleanAttachmentList(items)
	default:
		return nil
	}
}
