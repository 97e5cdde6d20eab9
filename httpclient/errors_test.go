package httpclient

import (
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
)

const testInvalidSetting = "invalid setting"

// TestErrorTypeFormatting tests the Error() method behavior per error type
func TestErrorTypeFormatting(t *testing.T) {
	tests := []struct {
		name     string
		error    error
		contains []string
	}{
		{
			name:     "config error without wrapped error",
			error:    NewConfigError("proxy", testInvalidSetting, nil),
			contains: []string{"configuration error", "proxy", testInvalidSetting},
		},
		{
			name:     "config error with wrapped error",
			error:    NewConfigError("cache", "cannot open", errors.New("permission denied")),
			contains: []string{"configuration error", "cache", "cannot open", "permission denied"},
		},
		{
			name:     "interceptor error",
			error:    NewInterceptorError("processing failed", "request", errors.New("parsing error")),
			contains: []string{"interceptor error", "processing failed", "request", "parsing error"},
		},
		{
			name: "proxy connect error",
			error: &ProxyConnectError{
				Proxy:      "HTTP proxy.example.com:3128",
				Target:     "cloud.example.com:443",
				StatusCode: http.StatusProxyAuthRequired,
				Status:     "407 Proxy Authentication Required",
				Attempts:   2,
			},
			contains: []string{"proxy error", "CONNECT cloud.example.com:443", "proxy.example.com:3128", "407", "2 attempts"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			errorMsg := tt.error.Error()
			for _, expected := range tt.contains {
				assert.Contains(t, errorMsg, expected, "Error message should contain: %s", expected)
			}
		})
	}
}

// TestErrorTypeIdentification tests the Type() method for each error type
func TestErrorTypeIdentification(t *testing.T) {
	tests := []struct {
		name     string
		error    ClientError
		expected ErrorType
	}{
		{name: "config error type", error: NewConfigError("f", "m", nil), expected: ConfigurationError},
		{name: "interceptor error type", error: NewInterceptorError("test", "stage", nil), expected: InterceptorError},
		{name: "proxy connect error type", error: &ProxyConnectError{}, expected: ProxyError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.error.Type())
		})
	}
}

// TestErrorUnwrapping tests Unwrap() implementations and error chaining
func TestErrorUnwrapping(t *testing.T) {
	t.Run("config error unwrapping", func(t *testing.T) {
		underlyingErr := errors.New("mkdir failed")
		cfgErr := NewConfigError("cache", "cannot open", underlyingErr)

		assert.True(t, errors.Is(cfgErr, underlyingErr))

		var target *configError
		assert.True(t, errors.As(cfgErr, &target))
		assert.Equal(t, "cache", target.Field())
	})

	t.Run("interceptor error unwrapping", func(t *testing.T) {
		underlyingErr := errors.New("parsing failed")
		intErr := NewInterceptorError("interceptor failed", "request", underlyingErr)

		assert.True(t, errors.Is(intErr, underlyingErr))

		var target *interceptorError
		assert.True(t, errors.As(intErr, &target))
		assert.Equal(t, "interceptor failed", target.message)
		assert.Equal(t, "request", target.stage)
	})

	t.Run("interceptor error without wrapped error", func(t *testing.T) {
		intErr := NewInterceptorError("failed", "request", nil)

		if unwrapper, ok := intErr.(interface{ Unwrap() error }); ok {
			assert.Nil(t, unwrapper.Unwrap())
		}
	})
}

// TestErrorTypeUtilities tests the utility functions for error type checking
func TestErrorTypeUtilities(t *testing.T) {
	connectErr := &ProxyConnectError{StatusCode: http.StatusProxyAuthRequired, Status: "407 Proxy Authentication Required"}
	// http.Client wraps transport errors in *url.Error
	wrapped := &url.Error{Op: "Get", URL: "https://cloud.example.com", Err: connectErr}

	t.Run("IsErrorType function", func(t *testing.T) {
		tests := []struct {
			name      string
			error     error
			errorType ErrorType
			expected  bool
		}{
			{name: "nil error", error: nil, errorType: ProxyError, expected: false},
			{name: "config error matches", error: NewConfigError("f", "m", nil), errorType: ConfigurationError, expected: true},
			{name: "config error doesn't match proxy", error: NewConfigError("f", "m", nil), errorType: ProxyError, expected: false},
			{name: "standard error doesn't match", error: errors.New("standard error"), errorType: ProxyError, expected: false},
			{name: "wrapped proxy error matches", error: wrapped, errorType: ProxyError, expected: true},
			{name: "fmt wrapped error matches", error: fmt.Errorf("build: %w", NewConfigError("f", "m", nil)), errorType: ConfigurationError, expected: true},
		}

		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				assert.Equal(t, tt.expected, IsErrorType(tt.error, tt.errorType))
			})
		}
	})

	t.Run("IsProxyAuthError function", func(t *testing.T) {
		assert.True(t, IsProxyAuthError(wrapped))
		assert.True(t, connectErr.AuthenticationRequired())
		assert.False(t, IsProxyAuthError(&ProxyConnectError{StatusCode: http.StatusBadGateway}))
		assert.False(t, IsProxyAuthError(errors.New("407")))
		assert.False(t, IsProxyAuthError(nil))
	})

	t.Run("IsSuccessStatus function", func(t *testing.T) {
		tests := []struct {
			statusCode int
			expected   bool
		}{
			{199, false},
			{200, true},
			{204, true},
			{299, true},
			{300, false},
			{407, false},
			{500, false},
		}

		for _, tt := range tests {
			t.Run(fmt.Sprintf("status_%d", tt.statusCode), func(t *testing.T) {
				assert.Equal(t, tt.expected, IsSuccessStatus(tt.statusCode), "Status %d success check failed", tt.statusCode)
			})
		}
	})
}
