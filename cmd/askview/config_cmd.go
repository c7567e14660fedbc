package main

import (
	"fmt"
	"os"
	"sort"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"askview/internal/shared/config"
)

func newConfigCommand(c *cli) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Configuration management",
	}

	var force bool
	initCmd := &cobra.Command{
		Use:         "init [PATH]",
		Short:       "Write the default configuration to PATH (default askview.yaml)",
		Args:        cobra.MaximumNArgs(1),
		Annotations: map[string]string{"skipConfig": "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			path := config.DefaultConfigName + ".yaml"
			if len(args) == 1 {
				path = args[0]
			}
			if _, err := os.Stat(path); err == nil && !force {
				return fmt.Errorf("%s already exists (use --force to overwrite)", path)
			}
			if err := config.Save(config.Default(), path); err != nil {
				return err
			}
			fmt.Fprintf(c.stdout, "Wrote %s\n", path)
			return nil
		},
	}
	initCmd.Flags().BoolVar(&force, "force", false, "Overwrite an existing file")

	showCmd := &cobra.Command{
		Use:   "show",
		Short: "Show the effective configuration and where each value came from",
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := yaml.Marshal(c.cfg)
			if err != nil {
				return fmt.Errorf("encode config: %w", err)
			}
			fmt.Fprint(c.stdout, string(data))

			file := c.meta.ConfigFile()
			if file == "" {
				file = "(none)"
			}
			fmt.Fprintf(c.stdout, "\n# config file: %s\n", file)
			sources := c.meta.Sources()
			keys := make([]string, 0, len(sources))
			for key := range sources {
				keys = append(keys, key)
			}
			sort.Strings(keys)
			for _, key := range keys {
				fmt.Fprintf(c.stdout, "# %s: %s\n", key, sources[key])
			}
			return nil
		},
	}

	cmd.AddCommand(initCmd, showCmd)
	return cmd
}
