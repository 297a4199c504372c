// Package config loads ringlog's configuration from YAML with RINGLOG_*
// environment overrides.
//
// The configuration is read once at startup; there is no reload. Loading
// applies defaults, then environment overrides, then validation:
//
//	cfg, err := config.LoadConfigWithEnvOverrides("ringlog.yaml")
//	if err != nil {
//		return err
//	}
//	sys, err := setup.New(cfg)
//
// Durations are Go duration strings ("100ms", "5s"). Validation collects
// every problem into a ValidationError, which matches ErrInvalid with
// errors.Is.
package config
