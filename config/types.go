package config

import (
	"time"

	"github.com/knadh/koanf/v2"

	"github.com/talkwire/talkhttp/observability"
)

// Config represents the overall configuration of the chat client transport.
// The embedded koanf.Koanf instance allows access to keys not modeled here.
type Config struct {
	App   AppConfig   `koanf:"app" json:"app" yaml:"app" mapstructure:"app"`
	Log   LogConfig   `koanf:"log" json:"log" yaml:"log" mapstructure:"log"`
	Proxy ProxyConfig `koanf:"proxy" json:"proxy" yaml:"proxy" mapstructure:"proxy"`
	HTTP  HTTPConfig  `koanf:"http" json:"http" yaml:"http" mapstructure:"http"`

	Observability observability.Config `koanf:"observability" json:"observability" yaml:"observability" mapstructure:"observability"`

	// k holds the underlying Koanf instance for flexible access to custom configurations
	k *koanf.Koanf `json:"-" yaml:"-" mapstructure:"-"`
}

// AppConfig holds general application settings.
type AppConfig struct {
	Name    string `koanf:"name" json:"name" yaml:"name" mapstructure:"name" validate:"required"`
	Version string `koanf:"version" json:"version" yaml:"version" mapstructure:"version" validate:"required"`
	Env     string `koanf:"env" json:"env" yaml:"env" mapstructure:"env" validate:"oneof=development staging production"`
	Debug   bool   `koanf:"debug" json:"debug" yaml:"debug" mapstructure:"debug"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level  string `koanf:"level" json:"level" yaml:"level" mapstructure:"level" validate:"oneof=trace debug info warn error fatal"`
	Pretty bool   `koanf:"pretty" json:"pretty" yaml:"pretty" mapstructure:"pretty"`
}

// ProxyConfig holds the user's proxy preference. An empty Host disables the
// proxy and the remaining fields are then ignored.
type ProxyConfig struct {
	Host     string `koanf:"host" json:"host" yaml:"host" mapstructure:"host"`
	Port     int    `koanf:"port" json:"port" yaml:"port" mapstructure:"port" validate:"min=0,max=65535"`
	Type     string `koanf:"type" json:"type" yaml:"type" mapstructure:"type"`
	Username string `koanf:"username" json:"username" yaml:"username" mapstructure:"username"`
	Password string `koanf:"password" json:"-" yaml:"password" mapstructure:"password"`
}

// HTTPConfig holds HTTP client settings.
type HTTPConfig struct {
	Timeout            time.Duration `koanf:"timeout" json:"timeout" yaml:"timeout" mapstructure:"timeout" validate:"min=0"`
	UserAgent          string        `koanf:"useragent" json:"useragent" yaml:"useragent" mapstructure:"useragent"`
	Cache              CacheConfig   `koanf:"cache" json:"cache" yaml:"cache" mapstructure:"cache"`
	Tracing            bool          `koanf:"tracing" json:"tracing" yaml:"tracing" mapstructure:"tracing"`
	MaxPayloadLogBytes int           `koanf:"maxpayloadlogbytes" json:"maxpayloadlogbytes" yaml:"maxpayloadlogbytes" mapstructure:"maxpayloadlogbytes" validate:"min=0"`
}

// CacheConfig holds response cache settings.
// Dir defaults to <user cache dir>/talkhttp; set Enabled to false to disable caching.
type CacheConfig struct {
	Enabled  bool   `koanf:"enabled" json:"enabled" yaml:"enabled" mapstructure:"enabled"`
	Dir      string `koanf:"dir" json:"dir" yaml:"dir" mapstructure:"dir"`
	MaxBytes int64  `koanf:"maxbytes" json:"maxbytes" yaml:"maxbytes" mapstructure:"maxbytes" validate:"min=0"`
}
