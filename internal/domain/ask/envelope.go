package ask

// Extraction is what one extractor found in one channel. Success is nil
// when the channel said nothing about it.
type Extraction struct {
	Text        string
	Attachments []string
	Status      string
	Success     *bool
	Timestamp   string
}

// HasContent reports whether text, attachments or status were found.
func (e Extraction) HasContent() bool {
	return e.Text != "" || len(e.Attachments) > 0 || e.Status != ""
}

// extractEnvelope pulls the canonical fields out of a tool_execution
// envelope.
func (d *Decoder) extractEnvelope(env NewEnvelope) Extraction {
	args, _ := env.Execution["arguments"].(map[string]any)
	result, _ := env.Execution["result"].(map[string]any)
	details, _ := env.Execution["execution_details"].(map[string]any)

	out := Extraction{
		Text:        stringField(args, "text"),
		Attachments: attachmentsFrom(args["attachments"]),
	}

	output := result["output"]
	if _, isText := output.(string); isText {
		decoded := ParseContent(output)
		if !decoded.OK() {
			d.parseFallback()
		}
		output = decoded.OrOriginal()
	}
	if outputObj, ok := output.(map[string]any); ok {
		out.Status = stringField(outputObj, "status")
	}
	if out.Status == "" {
		out.Status = stringField(env.Outer, "summary")
	}

	if success, ok := result["success"].(bool); ok {
		out.Success = &success
	}
	out.Timestamp = stringField(details, "timestamp")
	return out
}

// extractNewFormat runs the new-format path against one channel.
func (d *Decoder) extractNewFormat(raw any) Extraction {
	return d.extractNewFormatAt(raw, 0)
}

func (d *Decoder) extractNewFormatAt(raw any, depth int) Extraction {
	if depth > d.maxUnwrapDepth {
		d.logger.Debug("Ask view: wrapper nesting exceeds %d levels, ignoring", d.maxUnwrapDepth)
		return Extraction{}
	}

	parsed := ParseContent(raw)
	if !parsed.OK() {
		d.parseFallback()
	}

	switch payload := classifyStructured(parsed.OrOriginal()).(type) {
	case NewEnvelope:
		out := d.extractEnvelope(payload)
		d.logger.Debug("Ask view: extracted from envelope (text=%t attachments=%d status=%t success=%s)",
			out.Text != "", len(out.Attachments), out.Status != "", formatOptionalBool(out.Success))
		return out
	case WrappedMessage:
		return d.extractNewFormatAt(payload.Content, depth+1)
	case Unrecognized:
		return Extraction{}
	default:
		return Extraction{}
	}
}

// stringField returns obj[key] when it is a string; nil maps read as empty.
func stringField(obj map[string]any, key string) string {
	s, _ := obj[key].(string)
	return s
}

func formatOptionalBool(b *bool) string {
	if b == nil {
		return "unset"
	}
	if *b {
		return "true"
	}
	return "false"
}
