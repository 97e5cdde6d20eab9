package observability

import (
	"fmt"
	"strings"
	"time"
)

const (
	// EndpointStdout writes telemetry to the provider's writer instead of a collector.
	EndpointStdout = "stdout"

	// ProtocolHTTP specifies OTLP over HTTP/protobuf.
	ProtocolHTTP = "http"

	// ProtocolGRPC specifies OTLP over gRPC.
	ProtocolGRPC = "grpc"

	// DefaultMetricsInterval is how often metrics are exported.
	DefaultMetricsInterval = 10 * time.Second

	// DefaultBatchTimeout bounds how long finished spans wait before export.
	DefaultBatchTimeout = 500 * time.Millisecond
)

// Config defines the telemetry exported for outgoing requests.
type Config struct {
	// Enabled turns on the SDK providers. When false every operation is a no-op.
	Enabled bool `koanf:"enabled" json:"enabled" yaml:"enabled" mapstructure:"enabled"`

	// Endpoint is "stdout" or a collector address. HTTP endpoints may carry a scheme;
	// gRPC endpoints are host:port.
	Endpoint string `koanf:"endpoint" json:"endpoint" yaml:"endpoint" mapstructure:"endpoint"`

	Protocol string            `koanf:"protocol" json:"protocol" yaml:"protocol" mapstructure:"protocol"`
	Insecure bool              `koanf:"insecure" json:"insecure" yaml:"insecure" mapstructure:"insecure"`
	Headers  map[string]string `koanf:"headers" json:"headers" yaml:"headers" mapstructure:"headers"`

	// SampleRate is the fraction of traces recorded, between 0 and 1.
	SampleRate float64 `koanf:"samplerate" json:"samplerate" yaml:"samplerate" mapstructure:"samplerate"`

	Metrics MetricsConfig `koanf:"metrics" json:"metrics" yaml:"metrics" mapstructure:"metrics"`

	// Service identifies the process in exported telemetry. It is filled in by
	// the caller rather than read from configuration.
	Service ServiceConfig `koanf:"-" json:"-" yaml:"-" mapstructure:"-"`
}

// MetricsConfig controls the HTTP client metrics recorded by otelhttp.
type MetricsConfig struct {
	Enabled  bool          `koanf:"enabled" json:"enabled" yaml:"enabled" mapstructure:"enabled"`
	Interval time.Duration `koanf:"interval" json:"interval" yaml:"interval" mapstructure:"interval"`
}

// ServiceConfig contains service identification metadata.
type ServiceConfig struct {
	Name        string
	Version     string
	Environment string
}

// ApplyDefaults fills unset fields.
func (c *Config) ApplyDefaults() {
	if c.Endpoint == "" {
		c.Endpoint = EndpointStdout
	}
	if c.Protocol == "" {
		c.Protocol = ProtocolHTTP
	}
	if c.Metrics.Interval <= 0 {
		c.Metrics.Interval = DefaultMetricsInterval
	}
	if c.Service.Version == "" {
		c.Service.Version = "unknown"
	}
}

// Validate checks a defaulted configuration. A disabled configuration is always valid.
func (c *Config) Validate() error {
	if c == nil {
		return ErrNilConfig
	}
	if !c.Enabled {
		return nil
	}
	if strings.TrimSpace(c.Service.Name) == "" {
		return ErrMissingServiceName
	}
	if c.SampleRate < 0 || c.SampleRate > 1 {
		return fmt.Errorf("%w: %v", ErrInvalidSampleRate, c.SampleRate)
	}
	if c.Endpoint == EndpointStdout {
		return nil
	}

	switch c.Protocol {
	case ProtocolHTTP:
	case ProtocolGRPC:
		if strings.Contains(c.Endpoint, "://") {
			return fmt.Errorf("%w: grpc endpoint %q must be host:port", ErrInvalidEndpointFormat, c.Endpoint)
		}
	default:
		return fmt.Errorf("%w: %q", ErrInvalidProtocol, c.Protocol)
	}
	return nil
}
