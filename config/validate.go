package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap/zapcore"

	"github.com/philipp01105/ringlog/core"
	"github.com/philipp01105/ringlog/handler"
	"github.com/philipp01105/ringlog/handler/consolehandler"
	"github.com/philipp01105/ringlog/ring"
)

// ErrInvalid matches every ValidationError.
var ErrInvalid = errors.New("config: invalid configuration")

// FieldError represents a validation error for a specific configuration field.
type FieldError struct {
	// Field is the dotted path to the configuration field (e.g., "pipeline.capacity").
	Field string

	// Message is a human-readable error message.
	Message string
}

// Error returns the error message for this field error.
func (e FieldError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidationError represents one or more validation errors in a configuration.
type ValidationError struct {
	Errors []FieldError
}

// Error returns a formatted string containing all validation errors.
func (e ValidationError) Error() string {
	if len(e.Errors) == 0 {
		return "configuration validation failed"
	}
	if len(e.Errors) == 1 {
		return fmt.Sprintf("configuration validation failed: %s", e.Errors[0].Error())
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "configuration validation failed with %d errors:\n", len(e.Errors))
	for _, err := range e.Errors {
		fmt.Fprintf(&sb, "  - %s\n", err.Error())
	}
	return sb.String()
}

// Is reports whether target is ErrInvalid.
func (e ValidationError) Is(target error) bool {
	return target == ErrInvalid
}

// Validate validates the entire configuration. All problems are collected
// into one ValidationError.
func Validate(cfg *Config) error {
	var errs []FieldError
	add := func(field, format string, args ...any) {
		errs = append(errs, FieldError{Field: field, Message: fmt.Sprintf(format, args...)})
	}

	if _, err := core.ParseLevel(cfg.Level); err != nil {
		add("level", "%v", err)
	}

	errs = append(errs, validatePipeline(&cfg.Pipeline)...)

	if len(cfg.Handlers) == 0 {
		add("handlers", "at least one handler is required")
	}
	for i := range cfg.Handlers {
		errs = append(errs, validateHandler(fmt.Sprintf("handlers[%d]", i), &cfg.Handlers[i])...)
	}

	if cfg.Metrics.Enabled && cfg.Metrics.Namespace == "" {
		add("metrics.namespace", "must not be empty when metrics are enabled")
	}
	if _, err := zapcore.ParseLevel(cfg.Status.Level); err != nil {
		add("status.level", "%v", err)
	}
	if cfg.Report.Schedule != "" {
		if _, err := cron.ParseStandard(cfg.Report.Schedule); err != nil {
			add("report.schedule", "%v", err)
		}
	}

	if len(errs) > 0 {
		return ValidationError{Errors: errs}
	}
	return nil
}

func validatePipeline(p *PipelineConfig) []FieldError {
	var errs []FieldError
	add := func(field, format string, args ...any) {
		errs = append(errs, FieldError{Field: "pipeline." + field, Message: fmt.Sprintf(format, args...)})
	}

	if p.Capacity <= 0 || p.Capacity&(p.Capacity-1) != 0 {
		add("capacity", "must be a positive power of two, got %d", p.Capacity)
	}
	if _, err := handler.ParsePolicyKind(p.Policy); err != nil {
		add("policy", "%v", err)
	}
	if threshold, err := core.ParseLevel(p.DiscardThreshold); err != nil {
		add("discard_threshold", "%v", err)
	} else if threshold > core.ErrorLevel {
		add("discard_threshold", "must be error or lower, got %s", threshold)
	}
	if p.DrainTimeout < 0 {
		add("drain_timeout", "must not be negative")
	}
	if _, err := ring.ParseWaitStrategy(p.WaitStrategy); err != nil {
		add("wait_strategy", "%v", err)
	}
	if p.ParkTimeout < 0 {
		add("park_timeout", "must not be negative")
	}
	return errs
}

func validateHandler(path string, h *HandlerConfig) []FieldError {
	var errs []FieldError
	add := func(field, format string, args ...any) {
		errs = append(errs, FieldError{Field: path + "." + field, Message: fmt.Sprintf(format, args...)})
	}

	switch h.Format {
	case "text", "json":
	default:
		add("format", "must be text or json, got %q", h.Format)
	}

	switch h.Type {
	case "console":
		switch h.Output {
		case "stdout", "stderr":
		default:
			add("output", "must be stdout or stderr, got %q", h.Output)
		}
		if _, err := consolehandler.ParseColorMode(h.Color); err != nil {
			add("color", "%v", err)
		}
	case "file":
		if h.Path == "" {
			add("path", "is required")
		}
		if h.MaxSize < 0 {
			add("max_size", "must not be negative")
		}
		if h.MaxBackups < 0 {
			add("max_backups", "must not be negative")
		}
	case "sqlite":
		if h.DSN == "" {
			add("dsn", "is required")
		}
		if h.BatchSize < 0 {
			add("batch_size", "must not be negative")
		}
	default:
		add("type", "must be console, file or sqlite, got %q", h.Type)
	}
	return errs
}
