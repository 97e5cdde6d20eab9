// Package proxy turns the user's stored proxy preference into the descriptor the
// HTTP transport dials through, and implements the bounded proxy authentication
// challenge protocol.
package proxy

import (
	"errors"
	"fmt"
	"strings"
)

// Type identifies how connections reach the remote server.
type Type string

// Proxy types accepted in stored preferences. Values are matched exactly.
const (
	TypeDirect Type = "DIRECT"
	TypeHTTP   Type = "HTTP"
	TypeSOCKS  Type = "SOCKS"
)

var (
	// ErrUnknownType is returned when a preference names a proxy type that is not DIRECT, HTTP or SOCKS.
	ErrUnknownType = errors.New("proxy: unknown proxy type")
	// ErrInvalidPort is returned when a proxy host is configured with a port outside 0-65535.
	ErrInvalidPort = errors.New("proxy: port out of range")
)

// ValidTypes lists the accepted type names, in the order they are documented.
func ValidTypes() []string {
	return []string{string(TypeDirect), string(TypeHTTP), string(TypeSOCKS)}
}

// ParseType converts a persisted type name into a Type.
func ParseType(s string) (Type, error) {
	switch t := Type(s); t {
	case TypeDirect, TypeHTTP, TypeSOCKS:
		return t, nil
	default:
		return "", fmt.Errorf("%w: %q (must be one of: %s)", ErrUnknownType, s, strings.Join(ValidTypes(), ", "))
	}
}

// Preference is the proxy configuration as the user stored it.
// An empty Host means no proxy regardless of the other fields.
type Preference struct {
	Host     string `koanf:"host" json:"host" yaml:"host" mapstructure:"host"`
	Port     int    `koanf:"port" json:"port" yaml:"port" mapstructure:"port"`
	Type     Type   `koanf:"type" json:"type" yaml:"type" mapstructure:"type"`
	Username string `koanf:"username" json:"username" yaml:"username" mapstructure:"username"`
	Password string `koanf:"password" json:"password" yaml:"password" mapstructure:"password"` //nolint:gosec // user supplied proxy secret
}

// Enabled reports whether the preference asks for a proxy at all.
func (p Preference) Enabled() bool {
	return p.Host != ""
}

// HasCredentials reports whether both username and password are set.
func (p Preference) HasCredentials() bool {
	return p.Username != "" && p.Password != ""
}
