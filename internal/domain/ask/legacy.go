package ask

import (
	"fmt"
	"regexp"
	"strings"
)

// Legacy text is matched with two best-effort patterns rather than parsed;
// existing legacy payloads depend on exactly this leniency.
var (
	legacyAttachmentsPattern = regexp.MustCompile(`(?i)attachments=["']([^"']*)["']`)
	legacyAskTextPattern     = regexp.MustCompile(`(?is)<ask[^>]*>(.*?)</ask>`)
)

// extractLegacy runs the legacy path against one channel. Status, success
// and timestamp are never produced here.
func (d *Decoder) extractLegacy(raw any) Extraction {
	switch payload := classifyLegacy(raw, d.extractor, d.normalizer).(type) {
	case LegacyStructured:
		args := payload.Data.Arguments
		out := Extraction{
			Text:        stringField(args, "text"),
			Attachments: attachmentsFrom(args["attachments"]),
		}
		d.logger.Debug("Ask view: extracted from legacy tool call %q (text=%t attachments=%d)",
			payload.Data.ToolName, out.Text != "", len(out.Attachments))
		return out
	case LegacyText:
		out := matchLegacyText(payload.Text)
		d.logger.Debug("Ask view: extracted from legacy text (text=%t attachments=%d)",
			out.Text != "", len(out.Attachments))
		return out
	case Unrecognized:
		return Extraction{}
	default:
		return Extraction{}
	}
}

func matchLegacyText(text string) Extraction {
	var out Extraction
	if match := legacyAttachmentsPattern.FindStringSubmatch(text); match != nil {
		out.Attachments = splitAttachments(match[1])
	}
	if match := legacyAskTextPattern.FindStringSubmatch(text); match != nil {
		out.Text = strings.TrimSpace(match[1])
	}
	return out
}

// LegacyMarkup renders the text and attachments of rec as legacy <ask>
// markup. Decoding the markup again yields the same text and attachments as
// long as the text is trimmed and contains no "</ask>", and no attachment
// contains a comma or quote.
func LegacyMarkup(rec Record) string {
	var b strings.Builder
	b.WriteString("<ask")
	if len(rec.Attachments) > 0 {
		fmt.Fprintf(&b, ` attachments="%s"`, strings.Join(rec.Attachments, ","))
	}
	b.WriteString(">")
	b.WriteString(rec.Text)
	b.WriteString("</ask>")
	return b.String()
}
