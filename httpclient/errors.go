package httpclient

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrorType represents the type of HTTP client error
type ErrorType string

const (
	// ConfigurationError indicates the client could not be built from its settings
	ConfigurationError ErrorType = "configuration"
	// ProxyError indicates the proxy refused to open a tunnel
	ProxyError ErrorType = "proxy"
	// InterceptorError indicates a request interceptor rejected the request
	InterceptorError ErrorType = "interceptor"
)

// ClientError represents a typed error produced by the HTTP client
type ClientError interface {
	error
	Type() ErrorType
}

// configError represents a builder configuration failure
type configError struct {
	field   string
	message string
	err     error
}

func (e *configError) Error() string {
	if e.err != nil {
		return fmt.Sprintf("configuration error: %s: %s: %v", e.field, e.message, e.err)
	}
	return fmt.Sprintf("configuration error: %s: %s", e.field, e.message)
}

func (e *configError) Type() ErrorType {
	return ConfigurationError
}

func (e *configError) Unwrap() error {
	return e.err
}

// Field returns the builder setting that was rejected
func (e *configError) Field() string {
	return e.field
}

// ProxyConnectError is returned when an HTTP proxy answers a CONNECT request
// with anything other than 200. A 407 means the proxy's challenges were not
// satisfied within the authentication bound.
type ProxyConnectError struct {
	Proxy      string
	Target     string
	StatusCode int
	Status     string
	Attempts   int
}

func (e *ProxyConnectError) Error() string {
	return fmt.Sprintf("proxy error: CONNECT %s via %s: %s (after %d attempts)", e.Target, e.Proxy, e.Status, e.Attempts)
}

// Type returns ProxyError.
func (e *ProxyConnectError) Type() ErrorType {
	return ProxyError
}

// AuthenticationRequired reports whether the proxy still demanded credentials.
func (e *ProxyConnectError) AuthenticationRequired() bool {
	return e.StatusCode == http.StatusProxyAuthRequired
}

// interceptorError represents request interceptor failures
type interceptorError struct {
	message string
	stage   string
	err     error
}

func (e *interceptorError) Error() string {
	if e.err != nil {
		return fmt.Sprintf("interceptor error: %s (stage: %s): %v", e.message, e.stage, e.err)
	}
	return fmt.Sprintf("interceptor error: %s (stage: %s)", e.message, e.stage)
}

func (e *interceptorError) Type() ErrorType {
	return InterceptorError
}

func (e *interceptorError) Unwrap() error {
	return e.err
}

// NewConfigError creates a new configuration error
func NewConfigError(field, message string, err error) ClientError {
	return &configError{
		field:   field,
		message: message,
		err:     err,
	}
}

// NewInterceptorError creates a new interceptor error
func NewInterceptorError(message, stage string, err error) ClientError {
	return &interceptorError{
		message: message,
		stage:   stage,
		err:     err,
	}
}

// IsErrorType checks if an error is of a specific type
func IsErrorType(err error, errorType ErrorType) bool {
	if err == nil {
		return false
	}

	var clientErr ClientError
	if errors.As(err, &clientErr) {
		return clientErr.Type() == errorType
	}

	return false
}

// IsProxyAuthError reports whether err is a CONNECT tunnel rejected with 407.
func IsProxyAuthError(err error) bool {
	var connectErr *ProxyConnectError
	return errors.As(err, &connectErr) && connectErr.AuthenticationRequired()
}

// IsSuccessStatus checks if the status code indicates success (2xx)
func IsSuccessStatus(statusCode int) bool {
	return statusCode >= 200 && statusCode < 300
}
