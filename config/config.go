// Package config loads the transport configuration with koanf.
//
// Sources are applied in order, later sources overriding earlier ones:
//  1. built-in defaults
//  2. YAML file (config.yaml unless another path is given; optional)
//  3. inline YAML bytes
//  4. environment variables prefixed with TALK_ (TALK_PROXY_HOST -> proxy.host)
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env/v2"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/rawbytes"
	"github.com/knadh/koanf/v2"

	"github.com/talkwire/talkhttp/observability"
)

const (
	// EnvPrefix marks environment variables read as configuration
	EnvPrefix = "TALK_"
	// DefaultFile is the YAML file loaded when present
	DefaultFile = "config.yaml"
	// DefaultCacheDirName is created under the user cache directory
	DefaultCacheDirName = "talkhttp"
)

// Environment constants
const (
	EnvDevelopment = "development"
	EnvStaging     = "staging"
	EnvProduction  = "production"
)

type loader struct {
	file         string
	fileRequired bool
	inline       []byte
	environ      func() []string
}

// Option customizes Load.
type Option func(*loader)

// WithFile loads path instead of config.yaml. The file must exist.
func WithFile(path string) Option {
	return func(l *loader) {
		l.file = path
		l.fileRequired = true
	}
}

// WithYAML layers inline YAML over the file.
func WithYAML(data []byte) Option {
	return func(l *loader) {
		l.inline = data
	}
}

// WithEnviron replaces os.Environ as the source of environment variables.
func WithEnviron(environ func() []string) Option {
	return func(l *loader) {
		l.environ = environ
	}
}

// Load loads, validates and returns the configuration.
func Load(opts ...Option) (*Config, error) {
	l := &loader{
		file:    DefaultFile,
		environ: os.Environ,
	}
	for _, opt := range opts {
		opt(l)
	}

	k := koanf.New(".")

	if err := loadDefaults(k); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	if err := l.loadFile(k); err != nil {
		return nil, err
	}

	if len(l.inline) > 0 {
		if err := k.Load(rawbytes.Provider(l.inline), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to parse inline config: %w", err)
		}
	}

	if err := k.Load(env.Provider(".", env.Opt{
		Prefix:        EnvPrefix,
		TransformFunc: transformEnv,
		EnvironFunc:   l.environ,
	}), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	cfg.k = k

	if err := Validate(&cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

func (l *loader) loadFile(k *koanf.Koanf) error {
	if l.file == "" {
		return nil
	}
	if _, err := os.Stat(l.file); err != nil {
		if errors.Is(err, fs.ErrNotExist) && !l.fileRequired {
			return nil
		}
		return fmt.Errorf("failed to open %s: %w", l.file, err)
	}
	if err := k.Load(file.Provider(l.file), yaml.Parser()); err != nil {
		return fmt.Errorf("failed to parse %s: %w", l.file, err)
	}
	return nil
}

// transformEnv maps TALK_PROXY_HOST to proxy.host. Empty values are skipped
// so an exported but blank variable does not erase a configured value.
func transformEnv(key, value string) (string, any) {
	if value == "" {
		return "", nil
	}
	key = strings.TrimPrefix(key, EnvPrefix)
	return strings.ReplaceAll(strings.ToLower(key), "_", "."), value
}

func loadDefaults(k *koanf.Koanf) error {
	defaults := map[string]any{
		"app.name":    "talkhttp",
		"app.version": "1.0.0",
		"app.env":     EnvDevelopment,
		"app.debug":   false,

		"log.level":  "info",
		"log.pretty": false,

		"proxy.host":     "",
		"proxy.port":     0,
		"proxy.type":     "HTTP",
		"proxy.username": "",
		"proxy.password": "",

		"http.timeout":            "30s",
		"http.useragent":          "",
		"http.tracing":            false,
		"http.maxpayloadlogbytes": 1 << 20,
		"http.cache.enabled":      true,
		"http.cache.dir":          defaultCacheDir(),
		"http.cache.maxbytes":     128 * 1024 * 1024,

		"observability.enabled":          false,
		"observability.endpoint":         observability.EndpointStdout,
		"observability.protocol":         observability.ProtocolHTTP,
		"observability.insecure":         false,
		"observability.samplerate":       1.0,
		"observability.metrics.enabled":  false,
		"observability.metrics.interval": observability.DefaultMetricsInterval.String(),
	}

	return k.Load(confmap.Provider(defaults, "."), nil)
}

func defaultCacheDir() string {
	base, err := os.UserCacheDir()
	if err != nil {
		base = os.TempDir()
	}
	return filepath.Join(base, DefaultCacheDirName)
}
