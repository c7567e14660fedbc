package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"askview/internal/app/askview"
	"askview/internal/observability"
	"askview/internal/shared/config"
	"askview/internal/shared/logging"
)

var version = "dev"

// cli holds state shared by every subcommand.
type cli struct {
	stdin  io.Reader
	stdout io.Writer
	stderr io.Writer

	configPath string
	verbose    bool

	cfg  config.Config
	meta config.Metadata
}

func newRootCommand(stdin io.Reader, stdout, stderr io.Writer) *cobra.Command {
	c := &cli{stdin: stdin, stdout: stdout, stderr: stderr}

	rootCmd := &cobra.Command{
		Use:           "askview",
		Short:         "Decode ask tool output into canonical ask records",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Annotations["skipConfig"] == "true" {
				return nil
			}
			return c.loadConfig()
		},
	}
	rootCmd.SetIn(stdin)
	rootCmd.SetOut(stdout)
	rootCmd.SetErr(stderr)

	rootCmd.PersistentFlags().StringVarP(&c.configPath, "config", "c", "", "Config file (default: ./askview.yaml or ~/.askview/askview.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&c.verbose, "verbose", "v", false, "Print decoder diagnostics to stderr")

	rootCmd.AddCommand(newDecodeCommand(c))
	rootCmd.AddCommand(newBatchCommand(c))
	rootCmd.AddCommand(newServeCommand(c))
	rootCmd.AddCommand(newConfigCommand(c))
	rootCmd.AddCommand(newVersionCommand(c))
	return rootCmd
}

func (c *cli) loadConfig() error {
	opts := []config.Option{}
	if c.configPath != "" {
		opts = append(opts, config.WithConfigPath(c.configPath))
	}
	cfg, meta, err := config.Load(opts...)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	c.cfg = cfg
	c.meta = meta
	return nil
}

// decodeLogger writes decoder diagnostics to the decode log file, and to
// stderr with --verbose.
func (c *cli) decodeLogger() logging.Logger {
	fileLogger := logging.NewDecodeLogger("Decoder")
	if !c.verbose {
		return fileLogger
	}
	return logging.Multi(fileLogger, logging.NewWriterLogger(c.stderr, "Decoder", "debug"))
}

func (c *cli) newService(opts ...askview.Option) (*askview.Service, error) {
	dc := c.cfg.Decoder
	base := []askview.Option{askview.WithDecodeLogger(c.decodeLogger())}
	return askview.NewService(askview.Config{
		MaxUnwrapDepth:   dc.MaxUnwrapDepth,
		CacheSize:        dc.CacheSize,
		CacheTTL:         dc.CacheTTL,
		BatchConcurrency: dc.BatchConcurrency,
	}, append(base, opts...)...)
}

func (c *cli) structuredLogger(output io.Writer) *observability.Logger {
	if output == nil {
		output = os.Stderr
	}
	logCfg := c.cfg.Observability.Logging
	return observability.NewLogger(observability.LogConfig{
		Level:  logCfg.Level,
		Format: logCfg.Format,
		Output: output,
	})
}

func newVersionCommand(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:         "version",
		Short:       "Show version information",
		Annotations: map[string]string{"skipConfig": "true"},
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(c.stdout, "askview %s\n", version)
		},
	}
}
