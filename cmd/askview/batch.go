package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/sergi/go-diff/diffmatchpatch"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"askview/internal/app/askview"
	"askview/internal/domain/ask"
)

// batchCase is one fixture entry. Expect, when set, is compared against the
// decoded record.
type batchCase struct {
	Name               string          `yaml:"name"`
	AssistantContent   any             `yaml:"assistant_content"`
	ToolContent        any             `yaml:"tool_content"`
	Success            bool            `yaml:"success"`
	ToolTimestamp      string          `yaml:"tool_timestamp"`
	AssistantTimestamp string          `yaml:"assistant_timestamp"`
	Expect             *ask.RecordView `yaml:"expect"`
}

type batchFile struct {
	Cases []batchCase `yaml:"cases"`
}

type batchOptions struct {
	format string
}

func newBatchCommand(c *cli) *cobra.Command {
	opts := &batchOptions{}
	cmd := &cobra.Command{
		Use:   "batch FILE",
		Short: "Decode a YAML or JSON file of cases",
		Long: `Decode every case in FILE concurrently.

FILE holds a "cases" list; each case carries assistant_content, tool_content,
success and the fallback timestamps. Cases with an "expect" record are
checked, and any mismatch is reported as a diff with exit code 2.
Use "-" to read the file from stdin.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runBatch(cmd, args[0], opts)
		},
	}
	cmd.Flags().StringVarP(&opts.format, "format", "f", formatYAML, "Output format for records: json, yaml, msgpack, text or markup")
	return cmd
}

func (c *cli) runBatch(cmd *cobra.Command, path string, opts *batchOptions) error {
	if err := validateFormat(opts.format); err != nil {
		return err
	}
	cases, err := c.readBatchFile(path)
	if err != nil {
		return err
	}

	reqs := make([]askview.Request, len(cases))
	for i, tc := range cases {
		reqs[i] = askview.Request{
			AssistantContent:   tc.AssistantContent,
			ToolContent:        tc.ToolContent,
			Success:            tc.Success,
			ToolTimestamp:      tc.ToolTimestamp,
			AssistantTimestamp: tc.AssistantTimestamp,
		}
	}

	svc, err := c.newService()
	if err != nil {
		return err
	}
	records, err := svc.DecodeBatch(cmd.Context(), reqs)
	if err != nil {
		return err
	}

	var checked, failed int
	for i, tc := range cases {
		if tc.Expect == nil {
			continue
		}
		checked++
		if diff := diffRecords(tc.Expect.Record(), records[i]); diff != "" {
			failed++
			fmt.Fprintf(c.stdout, "%s %s\n%s\n", color.RedString("FAIL"), caseName(tc, i), diff)
		}
	}
	if checked == 0 {
		return writeRecords(c.stdout, opts.format, records)
	}

	fmt.Fprintf(c.stdout, "%d/%d expectations passed\n", checked-failed, checked)
	if failed > 0 {
		return &ExitCodeError{Code: 2, Err: fmt.Errorf("%d of %d cases did not match", failed, checked)}
	}
	return nil
}

func (c *cli) readBatchFile(path string) ([]batchCase, error) {
	var (
		data []byte
		err  error
	)
	if path == "-" {
		data, err = io.ReadAll(c.stdin)
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return nil, fmt.Errorf("read batch file: %w", err)
	}

	var file batchFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parse batch file: %w", err)
	}
	if len(file.Cases) == 0 {
		return nil, errors.New("batch file has no cases")
	}
	return file.Cases, nil
}

func caseName(tc batchCase, index int) string {
	if tc.Name != "" {
		return tc.Name
	}
	return fmt.Sprintf("case #%d", index+1)
}

// diffRecords compares the fields an expectation can state, ignoring the
// source tier unless the expectation names one. It returns "" on a match.
func diffRecords(expected, actual ask.Record) string {
	if expected.Source == "" {
		actual.Source = ""
	}
	want := recordYAML(expected)
	got := recordYAML(actual)
	if want == got {
		return ""
	}

	dmp := diffmatchpatch.New()
	wantChars, gotChars, lines := dmp.DiffLinesToChars(want, got)
	diffs := dmp.DiffCharsToLines(dmp.DiffMain(wantChars, gotChars, false), lines)

	var b strings.Builder
	for _, d := range diffs {
		for _, line := range strings.SplitAfter(d.Text, "\n") {
			if line == "" {
				continue
			}
			switch d.Type {
			case diffmatchpatch.DiffDelete:
				b.WriteString(color.RedString("- " + line))
			case diffmatchpatch.DiffInsert:
				b.WriteString(color.GreenString("+ " + line))
			default:
				b.WriteString("  " + line)
			}
		}
	}
	return strings.TrimRight(b.String(), "\n")
}

func recordYAML(rec ask.Record) string {
	data, err := yaml.Marshal(rec.View())
	if err != nil {
		return fmt.Sprintf("<unencodable record: %v>", err)
	}
	return string(data)
}
