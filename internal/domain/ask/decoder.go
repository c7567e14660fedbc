package ask

import (
	"askview/internal/domain/tooldata"
	"askview/internal/shared/logging"
)

const defaultMaxUnwrapDepth = 8

// ToolDataExtractor recognizes a tool call in message content.
type ToolDataExtractor interface {
	Extract(content any) (tooldata.ToolData, bool)
}

// ContentNormalizer collapses message content into one display string.
type ContentNormalizer interface {
	Normalize(content any) string
}

// Decoder reconciles the assistant and tool channels into one Record. It
// holds no mutable state and is safe for concurrent use.
type Decoder struct {
	extractor       ToolDataExtractor
	normalizer      ContentNormalizer
	logger          logging.Logger
	maxUnwrapDepth  int
	onParseFallback func()
}

// Option configures a Decoder.
type Option func(*Decoder)

// WithToolDataExtractor replaces the legacy tool-call extractor.
func WithToolDataExtractor(extractor ToolDataExtractor) Option {
	return func(d *Decoder) {
		if extractor != nil {
			d.extractor = extractor
		}
	}
}

// WithContentNormalizer replaces the legacy content normalizer.
func WithContentNormalizer(normalizer ContentNormalizer) Option {
	return func(d *Decoder) {
		if normalizer != nil {
			d.normalizer = normalizer
		}
	}
}

// WithLogger sets the diagnostic logger. Logging never affects output.
func WithLogger(logger logging.Logger) Option {
	return func(d *Decoder) {
		d.logger = logging.OrNop(logger)
	}
}

// WithMaxUnwrapDepth bounds role/content unwrapping on the new-format path.
func WithMaxUnwrapDepth(depth int) Option {
	return func(d *Decoder) {
		if depth > 0 {
			d.maxUnwrapDepth = depth
		}
	}
}

// WithParseFallbackHook registers fn to run whenever a textual payload was
// not JSON and was kept as text.
func WithParseFallbackHook(fn func()) Option {
	return func(d *Decoder) {
		d.onParseFallback = fn
	}
}

func NewDecoder(opts ...Option) *Decoder {
	d := &Decoder{
		extractor:      tooldata.NewExtractor(),
		normalizer:     tooldata.NewNormalizer(),
		logger:         logging.Nop(),
		maxUnwrapDepth: defaultMaxUnwrapDepth,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Decode reconciles both channels. First match wins:
//  1. the assistant channel's envelope, adopted wholesale;
//  2. the tool channel's envelope, adopted wholesale;
//  3. legacy extraction of both channels, merged field by field with the
//     assistant channel preferred.
//
// Success and timestamps keep the prior values unless tier 1 or 2 supplies
// them.
func (d *Decoder) Decode(assistantContent, toolContent any, prior Prior) Record {
	rec := Record{
		Success:            prior.Success,
		AssistantTimestamp: prior.AssistantTimestamp,
		ToolTimestamp:      prior.ToolTimestamp,
	}

	if assistant := d.extractNewFormat(assistantContent); assistant.HasContent() {
		adopt(&rec, assistant)
		if assistant.Timestamp != "" {
			rec.AssistantTimestamp = assistant.Timestamp
		}
		rec.Source = SourceAssistantEnvelope
		d.logger.Debug("Ask view: using assistant envelope data")
		return rec
	}

	if tool := d.extractNewFormat(toolContent); tool.HasContent() {
		adopt(&rec, tool)
		if tool.Timestamp != "" {
			rec.ToolTimestamp = tool.Timestamp
		}
		rec.Source = SourceToolEnvelope
		d.logger.Debug("Ask view: using tool envelope data")
		return rec
	}

	assistant := d.extractLegacy(assistantContent)
	tool := d.extractLegacy(toolContent)
	rec.Text = firstNonEmpty(assistant.Text, tool.Text)
	rec.Attachments = assistant.Attachments
	if len(rec.Attachments) == 0 {
		rec.Attachments = tool.Attachments
	}
	rec.Status = firstNonEmpty(assistant.Status, tool.Status)

	rec.Source = SourceLegacy
	if rec.IsEmpty() {
		rec.Source = SourceEmpty
	}
	d.logger.Debug("Ask view: using legacy data (text=%t attachments=%d status=%t)",
		rec.Text != "", len(rec.Attachments), rec.Status != "")
	return rec
}

// adopt copies text, attachments and status wholesale and the success flag
// when the extraction defined one.
func adopt(rec *Record, ext Extraction) {
	rec.Text = ext.Text
	rec.Attachments = ext.Attachments
	rec.Status = ext.Status
	if ext.Success != nil {
		rec.Success = *ext.Success
	}
}

func (d *Decoder) parseFallback() {
	if d.onParseFallback != nil {
		d.onParseFallback()
	}
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

var defaultDecoder = NewDecoder()

// ExtractAskData decodes with the default collaborators. toolTimestamp and
// assistantTimestamp are the caller's fallbacks.
func ExtractAskData(assistantContent, toolContent any, success bool, toolTimestamp, assistantTimestamp string) Record {
	return defaultDecoder.Decode(assistantContent, toolContent, Prior{
		Success:            success,
		ToolTimestamp:      toolTimestamp,
		AssistantTimestamp: assistantTimestamp,
	})
}
