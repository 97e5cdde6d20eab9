package commands

import (
	"fmt"
	"net"

	"github.com/spf13/cobra"

	"github.com/talkwire/talkhttp/proxy"
)

// NewProxyCommand creates the proxy command
func NewProxyCommand(root *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "proxy",
		Short: "Show the proxy the client would use",
		Long: `Resolve the configured proxy preference the way the client does at build
time and print the result. HTTP proxy hosts are looked up eagerly; SOCKS
hosts are passed to the proxy unresolved.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := root.load()
			if err != nil {
				return fmt.Errorf("failed to load configuration: %w", err)
			}

			pref, err := cfg.ProxyServer()
			if err != nil {
				return err
			}
			desc, err := proxy.Resolve(cmd.Context(), pref, net.DefaultResolver)
			if err != nil {
				return err
			}

			printDescriptor(cmd, desc)
			return nil
		},
	}
}

func printDescriptor(cmd *cobra.Command, desc *proxy.Descriptor) {
	out := cmd.OutOrStdout()
	if desc == nil {
		fmt.Fprintln(out, "proxy: none")
		return
	}
	fmt.Fprintf(out, "proxy: %s\n", desc.Type)
	fmt.Fprintf(out, "address: %s\n", desc.Addr)
	fmt.Fprintf(out, "resolved: %t\n", desc.Resolved)
	fmt.Fprintf(out, "authenticator: %t\n", desc.HasCredentials())
}
