package config

import "time"

// Default values for configuration fields.
const (
	DefaultName  = "app"
	DefaultLevel = "info"

	// Pipeline defaults
	DefaultCapacity         = 1024
	DefaultPolicy           = "discard"
	DefaultDiscardThreshold = "error"
	DefaultBlockTimeout     = 100 * time.Millisecond
	DefaultDrainTimeout     = 5 * time.Second
	DefaultWaitStrategy     = "blocking"
	DefaultParkTimeout      = 10 * time.Millisecond

	// Handler defaults
	DefaultFormat = "text"
	DefaultOutput = "stdout"
	DefaultColor  = "auto"
	DefaultTable  = "events"

	DefaultMetricsNamespace = "ringlog"
	DefaultStatusLevel      = "warn"
)

// Default returns a configuration with every default applied: one text
// console handler behind a discard pipeline.
func Default() *Config {
	cfg := &Config{}
	ApplyDefaults(cfg)
	return cfg
}

// ApplyDefaults fills zero-value fields with defaults.
func ApplyDefaults(cfg *Config) {
	if cfg.Name == "" {
		cfg.Name = DefaultName
	}
	if cfg.Level == "" {
		cfg.Level = DefaultLevel
	}

	applyPipelineDefaults(&cfg.Pipeline)

	if len(cfg.Handlers) == 0 {
		cfg.Handlers = []HandlerConfig{{Type: "console"}}
	}
	for i := range cfg.Handlers {
		applyHandlerDefaults(&cfg.Handlers[i])
	}

	if cfg.Metrics.Namespace == "" {
		cfg.Metrics.Namespace = DefaultMetricsNamespace
	}
	if cfg.Status.Level == "" {
		cfg.Status.Level = DefaultStatusLevel
	}
}

func applyPipelineDefaults(p *PipelineConfig) {
	if p.Capacity == 0 {
		p.Capacity = DefaultCapacity
	}
	if p.Policy == "" {
		p.Policy = DefaultPolicy
	}
	if p.DiscardThreshold == "" {
		p.DiscardThreshold = DefaultDiscardThreshold
	}
	if p.BlockTimeout == 0 {
		p.BlockTimeout = DefaultBlockTimeout
	}
	if p.DrainTimeout == 0 {
		p.DrainTimeout = DefaultDrainTimeout
	}
	if p.WaitStrategy == "" {
		p.WaitStrategy = DefaultWaitStrategy
	}
	if p.ParkTimeout == 0 {
		p.ParkTimeout = DefaultParkTimeout
	}
}

func applyHandlerDefaults(h *HandlerConfig) {
	if h.Format == "" {
		h.Format = DefaultFormat
	}
	switch h.Type {
	case "console":
		if h.Output == "" {
			h.Output = DefaultOutput
		}
		if h.Color == "" {
			h.Color = DefaultColor
		}
	case "sqlite":
		if h.Table == "" {
			h.Table = DefaultTable
		}
	}
}
