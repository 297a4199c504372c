package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// EnvPrefix starts every environment override.
const EnvPrefix = "RINGLOG_"

// Parse decodes YAML, applies defaults and validates. Unknown keys are
// rejected.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := decodeStrict(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse configuration: %w", err)
	}
	ApplyDefaults(&cfg)
	if err := Validate(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func decodeStrict(data []byte, cfg *Config) error {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}

// LoadConfig loads configuration from a YAML file at the specified path.
// It applies default values, validates the configuration, and returns any errors.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read configuration file %q: %w", path, err)
	}
	var cfg Config
	if err := decodeStrict(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse configuration file %q: %w", path, err)
	}
	ApplyDefaults(&cfg)
	if err := Validate(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// LoadConfigWithEnvOverrides loads configuration from a YAML file and applies
// environment variable overrides named RINGLOG_SECTION_FIELD (for example
// RINGLOG_PIPELINE_CAPACITY). An empty path starts from Default.
// Environment variables always take precedence over file-based configuration.
func LoadConfigWithEnvOverrides(path string) (*Config, error) {
	var cfg Config
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read configuration file %q: %w", path, err)
		}
		if err := decodeStrict(data, &cfg); err != nil {
			return nil, fmt.Errorf("failed to parse configuration file %q: %w", path, err)
		}
	}
	ApplyDefaults(&cfg)
	if err := ApplyEnvOverrides(&cfg, os.LookupEnv); err != nil {
		return nil, err
	}
	if err := Validate(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// ApplyEnvOverrides overrides cfg from lookup, which is usually
// os.LookupEnv. A value that does not parse is an ErrInvalid error naming
// the variable.
func ApplyEnvOverrides(cfg *Config, lookup func(string) (string, bool)) error {
	o := envOverrider{lookup: lookup}

	o.str("NAME", &cfg.Name)
	o.str("LEVEL", &cfg.Level)
	o.boolean("CALLER", &cfg.Caller)
	o.boolean("COARSE_CLOCK", &cfg.CoarseClock)

	o.boolean("PIPELINE_DISABLED", &cfg.Pipeline.Disabled)
	o.integer("PIPELINE_CAPACITY", &cfg.Pipeline.Capacity)
	o.str("PIPELINE_POLICY", &cfg.Pipeline.Policy)
	o.str("PIPELINE_DISCARD_THRESHOLD", &cfg.Pipeline.DiscardThreshold)
	o.duration("PIPELINE_BLOCK_TIMEOUT", &cfg.Pipeline.BlockTimeout)
	o.duration("PIPELINE_DRAIN_TIMEOUT", &cfg.Pipeline.DrainTimeout)
	o.str("PIPELINE_WAIT_STRATEGY", &cfg.Pipeline.WaitStrategy)
	o.duration("PIPELINE_PARK_TIMEOUT", &cfg.Pipeline.ParkTimeout)

	o.boolean("METRICS_ENABLED", &cfg.Metrics.Enabled)
	o.str("METRICS_NAMESPACE", &cfg.Metrics.Namespace)
	o.str("METRICS_ADDR", &cfg.Metrics.Addr)
	o.str("STATUS_LEVEL", &cfg.Status.Level)
	o.str("REPORT_SCHEDULE", &cfg.Report.Schedule)

	if len(o.errs) > 0 {
		return ValidationError{Errors: o.errs}
	}
	return nil
}

type envOverrider struct {
	lookup func(string) (string, bool)
	errs   []FieldError
}

func (o *envOverrider) get(name string) (string, bool) {
	v, ok := o.lookup(EnvPrefix + name)
	return v, ok && v != ""
}

func (o *envOverrider) fail(name string, err error) {
	o.errs = append(o.errs, FieldError{Field: EnvPrefix + name, Message: err.Error()})
}

func (o *envOverrider) str(name string, dst *string) {
	if v, ok := o.get(name); ok {
		*dst = v
	}
}

func (o *envOverrider) boolean(name string, dst *bool) {
	if v, ok := o.get(name); ok {
		b, err := strconv.ParseBool(v)
		if err != nil {
			o.fail(name, err)
			return
		}
		*dst = b
	}
}

func (o *envOverrider) integer(name string, dst *int) {
	if v, ok := o.get(name); ok {
		i, err := strconv.Atoi(v)
		if err != nil {
			o.fail(name, err)
			return
		}
		*dst = i
	}
}

func (o *envOverrider) duration(name string, dst *time.Duration) {
	if v, ok := o.get(name); ok {
		d, err := time.ParseDuration(v)
		if err != nil {
			o.fail(name, err)
			return
		}
		*dst = d
	}
}
