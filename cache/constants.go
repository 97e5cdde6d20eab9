package cache

// Disk store default configuration.
const (
	// DefaultMaxBytes is the default capacity of the on-disk response cache (128 MiB).
	DefaultMaxBytes int64 = 128 * 1024 * 1024

	// DefaultDirName is the subdirectory of the application cache dir holding responses.
	DefaultDirName = "http"

	// TempFilePattern names in-flight writes; leftovers are removed when a store is opened.
	TempFilePattern = "*.tmp"
)
