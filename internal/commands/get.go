package commands

import (
	"fmt"
	"io"
	"net/http"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/talkwire/talkhttp/app"
	"github.com/talkwire/talkhttp/httpclient"
	"github.com/talkwire/talkhttp/observability"
)

// GetOptions holds flags for the get command
type GetOptions struct {
	*RootOptions
	Include   bool
	RequestID bool
	Headers   []string
}

// NewGetCommand creates the get command
func NewGetCommand(root *RootOptions) *cobra.Command {
	opts := &GetOptions{RootOptions: root}

	cmd := &cobra.Command{
		Use:   "get <url>",
		Short: "Send a GET request through the configured client",
		Long: `Send a GET request through the same proxy, cache and header pipeline the
chat application uses and print the response body.

A non-2xx status is reported as an error after the body is printed.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runGet(cmd, opts, args[0])
		},
	}

	cmd.Flags().BoolVarP(&opts.Include, "include", "i", false, "Print the status line and response headers")
	cmd.Flags().BoolVar(&opts.RequestID, "request-id", false, "Send an X-Request-ID header")
	cmd.Flags().StringArrayVarP(&opts.Headers, "header", "H", nil, `Extra request header as "Name: value"`)

	return cmd
}

func runGet(cmd *cobra.Command, opts *GetOptions, rawURL string) error {
	cfg, err := opts.load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	log := newLogger(cmd, cfg)

	extra, err := parseHeaders(opts.Headers)
	if err != nil {
		return err
	}

	telemetry, err := app.NewTelemetry(cfg, log, cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	defer func() {
		if err := observability.Shutdown(telemetry, observability.DefaultShutdownTimeout); err != nil {
			log.Warn().Err(err).Msg("Failed to flush telemetry")
		}
	}()

	appOpts := app.OptionsFromConfig(cfg)
	appOpts.Telemetry = telemetry
	if opts.RequestID {
		appOpts.Interceptors = append(appOpts.Interceptors, httpclient.NewTraceIDInterceptor())
	}

	transport := app.NewTransport(cfg, appOpts, log)
	defer transport.Close()

	ctx := cmd.Context()
	client, err := transport.Client(ctx)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, http.NoBody)
	if err != nil {
		return fmt.Errorf("invalid url %q: %w", rawURL, err)
	}
	for name, values := range extra {
		req.Header[name] = values
	}

	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	out := cmd.OutOrStdout()
	if opts.Include {
		printResponseHead(out, resp)
	}
	if _, err := io.Copy(out, resp.Body); err != nil {
		return fmt.Errorf("failed to read response body: %w", err)
	}

	if !httpclient.IsSuccessStatus(resp.StatusCode) {
		return fmt.Errorf("unexpected status: %s", resp.Status)
	}
	return nil
}

// parseHeaders turns "Name: value" flags into a header map.
func parseHeaders(raw []string) (http.Header, error) {
	h := make(http.Header, len(raw))
	for _, line := range raw {
		name, value, ok := strings.Cut(line, ":")
		name = strings.TrimSpace(name)
		if !ok || name == "" {
			return nil, fmt.Errorf("invalid header %q: expected \"Name: value\"", line)
		}
		h.Add(name, strings.TrimSpace(value))
	}
	return h, nil
}

func printResponseHead(w io.Writer, resp *http.Response) {
	fmt.Fprintf(w, "%s %s\n", resp.Proto, resp.Status)
	names := make([]string, 0, len(resp.Header))
	for name := range resp.Header {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		for _, v := range resp.Header[name] {
			fmt.Fprintf(w, "%s: %s\n", name, v)
		}
	}
	fmt.Fprintln(w)
}
