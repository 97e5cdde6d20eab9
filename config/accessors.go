package config

import (
	"maps"
	"strings"
	"time"

	"github.com/talkwire/talkhttp/observability"
	"github.com/talkwire/talkhttp/proxy"
)

// GetString returns the string at key, or defaultVal[0] when the key is unset.
func (c *Config) GetString(key string, defaultVal ...string) string {
	if c.k == nil || !c.k.Exists(key) {
		return optionalDefault("", defaultVal...)
	}
	return c.k.String(key)
}

// GetBool returns the bool at key, or defaultVal[0] when the key is unset.
func (c *Config) GetBool(key string, defaultVal ...bool) bool {
	if c.k == nil || !c.k.Exists(key) {
		return optionalDefault(false, defaultVal...)
	}
	return c.k.Bool(key)
}

// GetDuration returns the duration at key, or defaultVal[0] when the key is unset.
func (c *Config) GetDuration(key string, defaultVal ...time.Duration) time.Duration {
	if c.k == nil || !c.k.Exists(key) {
		return optionalDefault(time.Duration(0), defaultVal...)
	}
	return c.k.Duration(key)
}

// Exists reports whether key was set by any source.
func (c *Config) Exists(key string) bool {
	return c.k != nil && c.k.Exists(key)
}

// All returns every loaded key with its value, flattened with "." separators.
// Secrets are included; callers printing the result must mask them.
func (c *Config) All() map[string]any {
	if c.k == nil {
		return map[string]any{}
	}
	return maps.Clone(c.k.All())
}

// ProxyServer returns the proxy preference. A set host with an unknown type
// is reported as a *ConfigError wrapping proxy.ErrUnknownType.
func (c *Config) ProxyServer() (proxy.Preference, error) {
	p := c.Proxy
	pref := proxy.Preference{
		Host:     strings.TrimSpace(p.Host),
		Port:     p.Port,
		Username: p.Username,
		Password: p.Password,
	}
	if pref.Host == "" {
		return pref, nil
	}

	typ, err := proxy.ParseType(p.Type)
	if err != nil {
		cfgErr := NewInvalidFieldError("proxy.type", "unknown proxy type "+p.Type, proxy.ValidTypes())
		cfgErr.Err = err
		return proxy.Preference{}, cfgErr
	}
	pref.Type = typ
	return pref, nil
}

// ObservabilityConfig returns the telemetry settings with the service identity
// taken from the app section.
func (c *Config) ObservabilityConfig() observability.Config {
	obs := c.Observability
	obs.Service = observability.ServiceConfig{
		Name:        c.App.Name,
		Version:     c.App.Version,
		Environment: c.App.Env,
	}
	return obs
}

// CacheDir returns the response cache directory, or "" when caching is disabled.
func (c *Config) CacheDir() string {
	if !c.HTTP.Cache.Enabled {
		return ""
	}
	return c.HTTP.Cache.Dir
}

func optionalDefault[T any](zero T, overrides ...T) T {
	if len(overrides) > 0 {
		return overrides[0]
	}
	return zero
}
