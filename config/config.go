package config

import (
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the root configuration.
type Config struct {
	// Name is the logger name carried by every entry.
	Name string `yaml:"name"`

	// Level is the minimum level logged: trace, debug, info, warn, error
	// or fatal.
	Level string `yaml:"level"`

	// Caller captures file, line and function of every call.
	Caller bool `yaml:"caller"`

	// CoarseClock timestamps entries from a clock refreshed every 500µs.
	CoarseClock bool `yaml:"coarse_clock"`

	Pipeline PipelineConfig  `yaml:"pipeline"`
	Handlers []HandlerConfig `yaml:"handlers"`
	Metrics  MetricsConfig   `yaml:"metrics"`
	Status   StatusConfig    `yaml:"status"`
	Report   ReportConfig    `yaml:"report"`
}

// PipelineConfig configures the async pipeline in front of the handlers.
type PipelineConfig struct {
	// Disabled writes on the calling goroutine without a pipeline.
	Disabled bool `yaml:"disabled"`

	// Capacity is the ring size, a power of two.
	Capacity int `yaml:"capacity"`

	// Policy is the queue-full policy: blocking, discard or sync.
	Policy string `yaml:"policy"`

	// DiscardThreshold is the lowest level the discard policy keeps.
	DiscardThreshold string `yaml:"discard_threshold"`

	// BlockTimeout bounds the wait for a free slot; zero or less waits
	// without deadline under the blocking policy.
	BlockTimeout time.Duration `yaml:"block_timeout"`

	// DrainTimeout bounds the drain at shutdown.
	DrainTimeout time.Duration `yaml:"drain_timeout"`

	// WaitStrategy is how the idle consumer waits: blocking, sleeping or
	// yielding.
	WaitStrategy string `yaml:"wait_strategy"`

	// ParkTimeout bounds one park of the consumer or a waiting producer.
	ParkTimeout time.Duration `yaml:"park_timeout"`
}

// HandlerConfig configures one output.
type HandlerConfig struct {
	// Type is console, file or sqlite.
	Type string `yaml:"type"`

	// Format is text or json. Not used by sqlite.
	Format string `yaml:"format"`

	// Console
	Output string `yaml:"output"` // stdout or stderr
	Color  string `yaml:"color"`  // auto, always or never

	// File
	Path           string        `yaml:"path"`
	MaxSize        int64         `yaml:"max_size"`
	MaxAge         time.Duration `yaml:"max_age"`
	MaxBackups     int           `yaml:"max_backups"`
	RotateInterval time.Duration `yaml:"rotate_interval"`
	Compress       bool          `yaml:"compress"`
	Watch          bool          `yaml:"watch"`

	// SQLite
	DSN       string `yaml:"dsn"`
	Table     string `yaml:"table"`
	BatchSize int    `yaml:"batch_size"`
}

// MetricsConfig configures the Prometheus collector.
type MetricsConfig struct {
	Enabled   bool   `yaml:"enabled"`
	Namespace string `yaml:"namespace"`
	// Addr serves /metrics when set, e.g. ":9090".
	Addr string `yaml:"addr"`
}

// StatusConfig configures ringlog's own diagnostics.
type StatusConfig struct {
	// Level is a zap level: debug, info, warn or error.
	Level string `yaml:"level"`
}

// ReportConfig configures periodic stats reports.
type ReportConfig struct {
	// Schedule is a cron spec ("@every 1m", "*/5 * * * *"). Empty disables
	// reports.
	Schedule string `yaml:"schedule"`
}

// YAML renders the configuration.
func (c *Config) YAML() ([]byte, error) {
	return yaml.Marshal(c)
}
