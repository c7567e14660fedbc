package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"askview/internal/app/askview"
	"askview/internal/domain/ask"
)

type decodeOptions struct {
	assistantPath      string
	toolPath           string
	success            bool
	toolTimestamp      string
	assistantTimestamp string
	format             string
}

func newDecodeCommand(c *cli) *cobra.Command {
	opts := &decodeOptions{}
	cmd := &cobra.Command{
		Use:   "decode",
		Short: "Decode one assistant/tool message pair",
		Long: `Decode one assistant/tool message pair into an ask record.

Each channel is read from a file, or from stdin when the path is "-".
Omitted channels are treated as empty.`,
		Example: `  askview decode --assistant assistant.json --tool tool.txt
  cat tool.json | askview decode --tool - --format yaml`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runDecode(cmd, opts)
		},
	}

	cmd.Flags().StringVar(&opts.assistantPath, "assistant", "", "Assistant message file, or - for stdin")
	cmd.Flags().StringVar(&opts.toolPath, "tool", "", "Tool message file, or - for stdin")
	cmd.Flags().BoolVar(&opts.success, "success", true, "Success flag assumed when the payload does not say")
	cmd.Flags().StringVar(&opts.toolTimestamp, "tool-timestamp", "", "Fallback tool timestamp")
	cmd.Flags().StringVar(&opts.assistantTimestamp, "assistant-timestamp", "", "Fallback assistant timestamp")
	cmd.Flags().StringVarP(&opts.format, "format", "f", formatText, "Output format: json, yaml, msgpack, text or markup")
	return cmd
}

func (c *cli) runDecode(cmd *cobra.Command, opts *decodeOptions) error {
	if err := validateFormat(opts.format); err != nil {
		return err
	}
	if opts.assistantPath == "-" && opts.toolPath == "-" {
		return fmt.Errorf("only one of --assistant and --tool may read stdin")
	}

	assistant, err := c.readChannel(opts.assistantPath)
	if err != nil {
		return fmt.Errorf("read assistant message: %w", err)
	}
	tool, err := c.readChannel(opts.toolPath)
	if err != nil {
		return fmt.Errorf("read tool message: %w", err)
	}

	svc, err := c.newService()
	if err != nil {
		return err
	}
	rec, err := svc.Decode(cmd.Context(), askview.Request{
		AssistantContent:   assistant,
		ToolContent:        tool,
		Success:            opts.success,
		ToolTimestamp:      opts.toolTimestamp,
		AssistantTimestamp: opts.assistantTimestamp,
	})
	if err != nil {
		return err
	}
	return writeRecords(c.stdout, opts.format, []ask.Record{rec})
}

// readChannel returns nil for an omitted channel so it decodes as absent.
func (c *cli) readChannel(path string) (any, error) {
	switch path {
	case "":
		return nil, nil
	case "-":
		data, err := io.ReadAll(c.stdin)
		if err != nil {
			return nil, err
		}
		return string(data), nil
	default:
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, err
		}
		return string(data), nil
	}
}
