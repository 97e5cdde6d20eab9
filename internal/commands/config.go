package commands

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"github.com/talkwire/talkhttp/logger"
)

// NewConfigCommand creates the config command
func NewConfigCommand(root *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Print the effective configuration",
		Long: `Print every configuration key after defaults, files, inline YAML and
environment variables are merged. Secrets such as the proxy password are masked.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := root.load()
			if err != nil {
				return fmt.Errorf("failed to load configuration: %w", err)
			}

			values := logger.NewSensitiveDataFilter(nil).FilterFields(cfg.All())
			keys := make([]string, 0, len(values))
			for k := range values {
				keys = append(keys, k)
			}
			sort.Strings(keys)

			out := cmd.OutOrStdout()
			for _, k := range keys {
				fmt.Fprintf(out, "%s=%v\n", k, values[k])
			}
			return nil
		},
	}
}
