// Package app owns the process-wide HTTP client: it reads the user's proxy
// preference, builds the client on first use, and rebuilds it when asked.
package app

import (
	"io"
	"os"

	"github.com/talkwire/talkhttp/config"
	"github.com/talkwire/talkhttp/httpclient"
	"github.com/talkwire/talkhttp/logger"
	"github.com/talkwire/talkhttp/observability"
	"github.com/talkwire/talkhttp/proxy"
)

// Options contains optional dependencies for creating a Transport
type Options struct {
	HTTP httpclient.Config
	// Resolver resolves HTTP proxy hosts; net.DefaultResolver when nil
	Resolver     proxy.HostResolver
	Interceptors []httpclient.RequestInterceptor
	// Telemetry instruments the network transport when set
	Telemetry observability.Provider
}

// OptionsFromConfig maps loaded configuration onto transport options.
func OptionsFromConfig(cfg *config.Config) Options {
	userAgent := cfg.HTTP.UserAgent
	if userAgent == "" {
		userAgent = httpclient.UserAgent(cfg.App.Version)
	}

	return Options{
		HTTP: httpclient.Config{
			UserAgent:          userAgent,
			Timeout:            cfg.HTTP.Timeout,
			CacheDir:           cfg.CacheDir(),
			CacheMaxBytes:      cfg.HTTP.Cache.MaxBytes,
			Debug:              cfg.App.Debug,
			MaxPayloadLogBytes: cfg.HTTP.MaxPayloadLogBytes,
			Tracing:            cfg.HTTP.Tracing || cfg.Observability.Enabled,
		},
	}
}

// NewLogger creates the logger described by cfg. Debug mode lowers the level to debug.
func NewLogger(cfg *config.Config) logger.Logger {
	return NewLoggerWithWriter(cfg, os.Stdout)
}

// NewLoggerWithWriter is NewLogger writing to w.
func NewLoggerWithWriter(cfg *config.Config, w io.Writer) logger.Logger {
	level := cfg.Log.Level
	if cfg.App.Debug {
		level = "debug"
	}
	return logger.NewWithWriter(level, cfg.Log.Pretty, w, logger.DefaultFilterConfig()).WithFields(map[string]any{
		"app":     cfg.App.Name,
		"version": cfg.App.Version,
	})
}

// NewTelemetry creates the telemetry provider described by cfg. Stdout
// exporters write to w. A disabled configuration yields a no-op provider.
func NewTelemetry(cfg *config.Config, log logger.Logger, w io.Writer) (observability.Provider, error) {
	obs := cfg.ObservabilityConfig()
	return observability.NewProvider(&obs, observability.WithLogger(log), observability.WithWriter(w))
}
