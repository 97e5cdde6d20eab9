package config

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/talkwire/talkhttp/proxy"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(field reflect.StructField) string {
		name, _, _ := strings.Cut(field.Tag.Get("koanf"), ",")
		if name == "" {
			return field.Name
		}
		return name
	})
	v.RegisterStructValidation(validateProxy, ProxyConfig{})
	return v
}

// Validate checks cfg and returns a *ConfigError describing the first problem.
func Validate(cfg *Config) error {
	if err := validate.Struct(cfg); err != nil {
		var validationErrors validator.ValidationErrors
		if errors.As(err, &validationErrors) && len(validationErrors) > 0 {
			return fieldError(validationErrors[0])
		}
		return err
	}

	obs := cfg.ObservabilityConfig()
	obs.ApplyDefaults()
	if err := obs.Validate(); err != nil {
		invalid := NewInvalidFieldError("observability", err.Error(), nil)
		invalid.Err = err
		return invalid
	}
	return nil
}

// validateProxy applies only when a proxy host is set.
func validateProxy(sl validator.StructLevel) {
	p := sl.Current().Interface().(ProxyConfig)
	if strings.TrimSpace(p.Host) == "" {
		return
	}
	if _, err := proxy.ParseType(p.Type); err != nil {
		sl.ReportError(p.Type, "type", "Type", "proxytype", "")
	}
	if p.Port == 0 && p.Type != string(proxy.TypeDirect) {
		sl.ReportError(p.Port, "port", "Port", "required", "")
	}
}

// fieldError converts a validator error into a ConfigError with guidance.
func fieldError(fe validator.FieldError) *ConfigError {
	field := configKey(fe.Namespace())

	switch fe.Tag() {
	case "required":
		return NewMissingFieldError(field, envVarFor(field), field)
	case "oneof":
		return NewInvalidFieldError(field, fmt.Sprintf("invalid value %q", fmt.Sprint(fe.Value())), strings.Fields(fe.Param()))
	case "proxytype":
		err := NewInvalidFieldError(field, fmt.Sprintf("unknown proxy type %q", fmt.Sprint(fe.Value())), proxy.ValidTypes())
		err.Err = proxy.ErrUnknownType
		return err
	case "min", "max":
		return NewInvalidFieldError(field, fmt.Sprintf("value %v out of range (%s %s)", fe.Value(), fe.Tag(), fe.Param()), nil)
	default:
		return NewInvalidFieldError(field, fmt.Sprintf("failed %s validation", fe.Tag()), nil)
	}
}

// configKey turns "Config.proxy.port" into "proxy.port".
func configKey(namespace string) string {
	if i := strings.IndexByte(namespace, '.'); i >= 0 {
		return namespace[i+1:]
	}
	return namespace
}
