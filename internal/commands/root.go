// Package commands implements the talkhttp command line.
package commands

import (
	"github.com/spf13/cobra"

	"github.com/talkwire/talkhttp/app"
	"github.com/talkwire/talkhttp/config"
	"github.com/talkwire/talkhttp/logger"
)

// RootOptions holds flags shared by every command
type RootOptions struct {
	ConfigFile   string
	InlineConfig string
	Debug        bool
}

// NewRootCommand creates the talkhttp command tree
func NewRootCommand(version string) *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "talkhttp",
		Short: "Exercise the chat client HTTP transport",
		Long: `talkhttp builds the same HTTP client the chat application uses (proxy,
proxy authentication, response cache and mandatory OCS headers) and lets you
send requests through it or inspect its state.

Configuration is read from config.yaml, --config, --config-inline and
TALK_* environment variables, in that order.`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().StringVarP(&opts.ConfigFile, "config", "c", "", "Path to a YAML configuration file")
	cmd.PersistentFlags().StringVar(&opts.InlineConfig, "config-inline", "", "YAML configuration layered over the file")
	cmd.PersistentFlags().BoolVarP(&opts.Debug, "debug", "d", false, "Log requests and responses")

	cmd.AddCommand(
		NewGetCommand(opts),
		NewProxyCommand(opts),
		NewCacheCommand(opts),
		NewConfigCommand(opts),
		NewVersionCommand(version),
	)

	return cmd
}

// load reads configuration according to the shared flags.
func (o *RootOptions) load() (*config.Config, error) {
	var loadOpts []config.Option
	if o.ConfigFile != "" {
		loadOpts = append(loadOpts, config.WithFile(o.ConfigFile))
	}
	if o.InlineConfig != "" {
		loadOpts = append(loadOpts, config.WithYAML([]byte(o.InlineConfig)))
	}

	cfg, err := config.Load(loadOpts...)
	if err != nil {
		return nil, err
	}
	if o.Debug {
		cfg.App.Debug = true
	}
	return cfg, nil
}

// newLogger sends logs to stderr so command output stays parseable.
func newLogger(cmd *cobra.Command, cfg *config.Config) logger.Logger {
	return app.NewLoggerWithWriter(cfg, cmd.ErrOrStderr())
}
