package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/fatih/color"
	"github.com/vmihailenco/msgpack/v5"
	"golang.org/x/term"
	"gopkg.in/yaml.v3"

	"askview/internal/domain/ask"
	jsonx "askview/internal/shared/json"
)

const (
	formatJSON    = "json"
	formatYAML    = "yaml"
	formatMsgpack = "msgpack"
	formatText    = "text"
	formatMarkup  = "markup"
)

var (
	styleBox = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("14")).
			Padding(0, 1)
	styleLabel = lipgloss.NewStyle().Bold(true)
)

// isTTY reports whether w is an interactive terminal.
func isTTY(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

func validateFormat(format string) error {
	switch format {
	case formatJSON, formatYAML, formatMsgpack, formatText, formatMarkup:
		return nil
	default:
		return fmt.Errorf("unsupported format %q (want json, yaml, msgpack, text or markup)", format)
	}
}

// writeRecords renders records in the requested format. JSON and YAML
// emit a single value for one record and a list otherwise.
func writeRecords(w io.Writer, format string, records []ask.Record) error {
	views := make([]ask.RecordView, len(records))
	for i, rec := range records {
		views[i] = rec.View()
	}
	var payload any = views
	if len(views) == 1 {
		payload = views[0]
	}

	switch format {
	case formatJSON:
		data, err := jsonx.MarshalIndent(payload, "", "  ")
		if err != nil {
			return fmt.Errorf("encode json: %w", err)
		}
		_, err = fmt.Fprintln(w, string(data))
		return err
	case formatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(payload); err != nil {
			return fmt.Errorf("encode yaml: %w", err)
		}
		return enc.Close()
	case formatMsgpack:
		enc := msgpack.NewEncoder(w)
		if err := enc.Encode(payload); err != nil {
			return fmt.Errorf("encode msgpack: %w", err)
		}
		return nil
	case formatText:
		colorize := isTTY(w)
		for i, rec := range records {
			if i > 0 {
				fmt.Fprintln(w)
			}
			if _, err := fmt.Fprintln(w, renderText(rec, colorize)); err != nil {
				return err
			}
		}
		return nil
	case formatMarkup:
		for _, rec := range records {
			if _, err := fmt.Fprintln(w, ask.LegacyMarkup(rec)); err != nil {
				return err
			}
		}
		return nil
	default:
		return validateFormat(format)
	}
}

// renderText lays a record out for humans. Colors and the box border are
// only used on terminals.
func renderText(rec ask.Record, colorize bool) string {
	label := func(s string) string { return s }
	value := fmt.Sprint
	state := func(ok bool) string {
		if ok {
			return "success"
		}
		return "failed"
	}
	if colorize {
		label = func(s string) string { return styleLabel.Render(s) }
		gray := color.New(color.FgHiBlack).SprintFunc()
		value = func(a ...any) string { return gray(a...) }
		state = func(ok bool) string {
			if ok {
				return color.GreenString("success")
			}
			return color.RedString("failed")
		}
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%s %s\n", label("Question:"), orDash(rec.Text))
	if len(rec.Attachments) > 0 {
		fmt.Fprintf(&b, "%s\n", label("Attachments:"))
		for _, a := range rec.Attachments {
			fmt.Fprintf(&b, "  - %s\n", a)
		}
	}
	if rec.Status != "" {
		fmt.Fprintf(&b, "%s %s\n", label("Status:"), rec.Status)
	}
	fmt.Fprintf(&b, "%s %s\n", label("Result:"), state(rec.Success))
	if rec.AssistantTimestamp != "" {
		fmt.Fprintf(&b, "%s %s\n", label("Assistant at:"), value(rec.AssistantTimestamp))
	}
	if rec.ToolTimestamp != "" {
		fmt.Fprintf(&b, "%s %s\n", label("Tool at:"), value(rec.ToolTimestamp))
	}
	fmt.Fprintf(&b, "%s %s", label("Source:"), value(string(rec.Source)))

	if !colorize {
		return b.String()
	}
	return styleBox.Render(b.String())
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
