package commands

import (
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"sort"

	"github.com/spf13/cobra"

	"github.com/talkwire/talkhttp/cache"
	"github.com/talkwire/talkhttp/cache/disk"
)

// errCacheDisabled is returned when a cache command runs with http.cache.enabled=false.
var errCacheDisabled = errors.New("response cache is disabled")

// NewCacheCommand creates the cache command group
func NewCacheCommand(root *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Inspect or clear the on-disk response cache",
	}

	cmd.AddCommand(
		&cobra.Command{
			Use:   "stats",
			Short: "Print cache statistics",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				store, err := openCache(cmd, root)
				if err != nil {
					return err
				}
				printStats(cmd.OutOrStdout(), store.Stats())
				return nil
			},
		},
		&cobra.Command{
			Use:   "purge",
			Short: "Delete every cached response",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				store, err := openCache(cmd, root)
				if err != nil {
					return err
				}
				entries := store.Len()
				if err := store.Purge(); err != nil {
					return fmt.Errorf("failed to purge %s: %w", store.Dir(), err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "purged %d entries from %s\n", entries, store.Dir())
				return nil
			},
		},
	)

	return cmd
}

// openCache opens the same directory the client builder writes to.
func openCache(cmd *cobra.Command, root *RootOptions) (*disk.Store, error) {
	cfg, err := root.load()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	dir := cfg.CacheDir()
	if dir == "" {
		return nil, errCacheDisabled
	}
	return disk.New(filepath.Join(dir, cache.DefaultDirName), cfg.HTTP.Cache.MaxBytes, newLogger(cmd, cfg))
}

func printStats(w io.Writer, stats map[string]any) {
	keys := make([]string, 0, len(stats))
	for k := range stats {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintf(w, "%s: %v\n", k, stats[k])
	}
}
