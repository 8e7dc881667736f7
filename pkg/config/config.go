package config

import (
	stderrors "errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/core-tools/hsu-watchdog/pkg/errors"
	"github.com/core-tools/hsu-watchdog/pkg/probe"
	"github.com/core-tools/hsu-watchdog/pkg/remediation"
)

// Variant selects how the target is addressed
type Variant string

const (
	// VariantPortable addresses the target by full URL
	VariantPortable Variant = "portable"
	// VariantNative addresses the target by host, port and path
	VariantNative Variant = "native"
)

// Config is loaded once at startup and never modified afterwards
type Config struct {
	Variant     Variant              `validate:"oneof=portable native"`
	Delay       time.Duration        `validate:"gte=0"`
	Timeout     time.Duration        `validate:"gt=0"`
	Certificate string               `validate:"required"`
	Target      probe.Target         `validate:"-"`
	Commands    remediation.Commands `validate:"-"`
	BufferSize  int                  `validate:"gte=0"`
	MetricsFile string
	Log         LogConfig
	// ExtraArgs are trailing positionals after the last expected one.
	// They are accepted and ignored.
	ExtraArgs   []string             `validate:"-"`
}

// LogConfig selects the diagnostic output backend
type LogConfig struct {
	Level  string `validate:"oneof=debug info warn error"`
	Format string `validate:"oneof=console json text"`
}

// ProbeOptions derives the prober transport options
func (c *Config) ProbeOptions() probe.Options {
	return probe.Options{
		Timeout:    c.Timeout,
		BufferSize: c.BufferSize,
	}
}

// FileConfig is the YAML representation accepted by --config
type FileConfig struct {
	Delay       string               `yaml:"delay"`
	Timeout     string               `yaml:"timeout"`
	Certificate string               `yaml:"certificate"`
	Target      probe.Target         `yaml:"target"`
	Commands    remediation.Commands `yaml:"commands"`
	BufferSize  int                  `yaml:"buffer_size,omitempty"`
	MetricsFile string               `yaml:"metrics_file,omitempty"`
}

// LoadConfigFromFile loads the watchdog configuration from a YAML file
func LoadConfigFromFile(filename string, variant Variant) (*Config, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, errors.NewIOError("failed to read configuration file", err).WithContext("filename", filename)
	}

	var file FileConfig
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, errors.NewValidationError("failed to parse YAML configuration", err).WithContext("filename", filename)
	}

	config := &Config{
		Variant:     variant,
		Certificate: file.Certificate,
		Target:      file.Target,
		Commands:    file.Commands,
		BufferSize:  file.BufferSize,
		MetricsFile: file.MetricsFile,
	}

	if config.Delay, err = ParseInterval("delay", file.Delay); err != nil {
		return nil, err
	}
	if config.Timeout, err = ParseInterval("timeout", file.Timeout); err != nil {
		return nil, err
	}

	return config, nil
}

// ParseInterval accepts whole seconds ("30") or a Go duration ("1500ms")
func ParseInterval(name, value string) (time.Duration, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return 0, errors.NewValidationError(name+" is required", nil)
	}

	if seconds, err := strconv.ParseUint(value, 10, 32); err == nil {
		return time.Duration(seconds) * time.Second, nil
	}

	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, errors.NewValidationError(fmt.Sprintf("invalid %s: %q", name, value), err)
	}
	if d < 0 {
		return 0, errors.NewValidationError(name+" cannot be negative", nil)
	}
	return d, nil
}

// setConfigDefaults applies default values to configuration
func setConfigDefaults(config *Config) {
	if config.Log.Level == "" {
		config.Log.Level = "info"
	}
	if config.Log.Format == "" {
		config.Log.Format = "console"
	}
	if config.Variant == VariantNative && config.Target.Path == "" {
		config.Target.Path = "/"
	}
}

var validate = validator.New()

// ValidateConfig validates the entire configuration structure
func ValidateConfig(config *Config) error {
	if config == nil {
		return errors.NewValidationError("configuration cannot be nil", nil)
	}

	collection := errors.NewErrorCollection()

	if err := validate.Struct(config); err != nil {
		var fieldErrors validator.ValidationErrors
		if !stderrors.As(err, &fieldErrors) {
			return errors.NewValidationError("invalid configuration", err)
		}
		for _, fe := range fieldErrors {
			collection.Add(errors.NewValidationError(
				fmt.Sprintf("field %s failed '%s' validation", fe.Namespace(), fe.Tag()), nil,
			).WithContext("value", fe.Value()))
		}
	}

	collection.Add(validateTarget(config.Variant, config.Target))
	collection.Add(config.Commands.Validate())

	if collection.HasErrors() {
		return errors.NewValidationError("invalid configuration", collection.ToError())
	}
	return nil
}

func validateTarget(variant Variant, target probe.Target) error {
	switch variant {
	case VariantPortable:
		if target.URL == "" {
			return errors.NewValidationError("target URL is required", nil)
		}
		if target.Host != "" || target.Port != 0 {
			return errors.NewValidationError("host and port cannot be combined with a target URL", nil)
		}
		if !strings.HasPrefix(strings.ToLower(target.URL), "https://") {
			return errors.NewValidationError("target URL must use https", nil).WithContext("url", target.URL)
		}

	case VariantNative:
		if target.URL != "" {
			return errors.NewValidationError("a target URL cannot be used with host, port and path", nil)
		}
		if target.Host == "" {
			return errors.NewValidationError("target host is required", nil)
		}
		if target.Port <= 0 || target.Port > 65535 {
			return errors.NewValidationError(
				fmt.Sprintf("invalid port number: %d", target.Port), nil,
			).WithContext("valid_range", "1-65535")
		}
	}
	return nil
}
