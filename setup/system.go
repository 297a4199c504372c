package setup

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"os"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/multierr"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/philipp01105/ringlog/config"
	"github.com/philipp01105/ringlog/core"
	"github.com/philipp01105/ringlog/handler"
	"github.com/philipp01105/ringlog/handler/asynchandler"
	"github.com/philipp01105/ringlog/internal/status"
	"github.com/philipp01105/ringlog/logger"
	"github.com/philipp01105/ringlog/metrics"
	"github.com/philipp01105/ringlog/reporter"
	"github.com/philipp01105/ringlog/ring"
)

// Option customises New.
type Option func(*options)

type options struct {
	stdout   io.Writer
	stderr   io.Writer
	registry *prometheus.Registry
	status   *zap.Logger
}

// WithStdout replaces os.Stdout for console handlers.
func WithStdout(w io.Writer) Option { return func(o *options) { o.stdout = w } }

// WithStderr replaces os.Stderr for console handlers and the status logger.
func WithStderr(w io.Writer) Option { return func(o *options) { o.stderr = w } }

// WithRegistry registers metrics with r instead of a private registry.
func WithRegistry(r *prometheus.Registry) Option { return func(o *options) { o.registry = r } }

// WithStatusLogger uses l as the status logger instead of building one from
// the configuration.
func WithStatusLogger(l *zap.Logger) Option { return func(o *options) { o.status = l } }

// System is a configured logger with everything behind it.
type System struct {
	Config *config.Config
	Logger *logger.Logger

	// Pipeline is nil when the configuration disables it.
	Pipeline *asynchandler.Pipeline
	// Handler receives entries from the pipeline, or from the logger
	// directly without one.
	Handler handler.Handler

	// Metrics is nil unless metrics are enabled.
	Metrics *metrics.Collector
	// Reporter is nil without a report schedule.
	Reporter *reporter.Reporter

	log           *zap.Logger
	server        *http.Server
	listener      net.Listener
	serveDone     chan struct{}
	restoreStatus func()

	shutdownOnce sync.Once
	shutdownErr  error
}

// New builds and starts the system described by cfg. Defaults are applied
// to a copy of cfg and the result is validated before anything is opened.
func New(cfg *config.Config, opts ...Option) (*System, error) {
	if cfg == nil {
		cfg = config.Default()
	} else {
		c := *cfg
		c.Handlers = append([]config.HandlerConfig(nil), cfg.Handlers...)
		cfg = &c
		config.ApplyDefaults(cfg)
	}
	if err := config.Validate(cfg); err != nil {
		return nil, err
	}

	o := &options{stdout: os.Stdout, stderr: os.Stderr}
	for _, opt := range opts {
		opt(o)
	}

	s := &System{Config: cfg}

	// Status logger
	statusLog := o.status
	if statusLog == nil {
		l, err := status.NewWriter(zapcore.Lock(zapcore.AddSync(o.stderr)), cfg.Status.Level)
		if err != nil {
			return nil, err
		}
		statusLog = l
	}
	s.restoreStatus = status.Set(statusLog)
	s.log = statusLog.Named("setup")

	handlers, err := buildHandlers(cfg.Handlers, cfg.Caller, o)
	if err != nil {
		s.restoreStatus()
		return nil, fmt.Errorf("failed to build handlers: %w", err)
	}
	s.Handler = fanOut(handlers)

	var sink handler.Handler = s.Handler
	if !cfg.Pipeline.Disabled {
		p, err := newPipeline(cfg, s.Handler, statusLog)
		if err != nil {
			s.restoreStatus()
			return nil, multierr.Append(err, s.Handler.Close())
		}
		p.Start()
		s.Pipeline = p
		sink = p
	}

	level, _ := core.ParseLevel(cfg.Level)
	s.Logger = logger.NewBuilder().
		WithHandler(sink).
		WithLevel(level).
		WithName(cfg.Name).
		WithCaller(cfg.Caller).
		WithCoarseClock(cfg.CoarseClock).
		Build()

	if err := s.startObservers(o); err != nil {
		return nil, multierr.Append(err, s.Shutdown(0))
	}

	s.log.Info("logging system started",
		zap.String("name", cfg.Name),
		zap.String("level", cfg.Level),
		zap.Int("handlers", len(handlers)),
		zap.Bool("async", s.Pipeline != nil))
	return s, nil
}

// Slog returns a log/slog logger that feeds the same pipeline as Logger.
func (s *System) Slog() *slog.Logger {
	h := handler.NewSlogHandler(s.Logger.Handler(), s.Logger.Level()).WithLoggerName(s.Config.Name)
	return slog.New(h)
}

// FromFile loads path with environment overrides and calls New.
func FromFile(path string, opts ...Option) (*System, error) {
	cfg, err := config.LoadConfigWithEnvOverrides(path)
	if err != nil {
		return nil, err
	}
	return New(cfg, opts...)
}

func newPipeline(cfg *config.Config, h handler.Handler, statusLog *zap.Logger) (*asynchandler.Pipeline, error) {
	pc := cfg.Pipeline
	kind, err := handler.ParsePolicyKind(pc.Policy)
	if err != nil {
		return nil, err
	}
	threshold, err := core.ParseLevel(pc.DiscardThreshold)
	if err != nil {
		return nil, err
	}
	policy, err := handler.NewPolicy(handler.PolicyConfig{
		Kind:         kind,
		Threshold:    threshold,
		BlockTimeout: pc.BlockTimeout,
	})
	if err != nil {
		return nil, err
	}
	wait, err := ring.ParseWaitStrategy(pc.WaitStrategy)
	if err != nil {
		return nil, err
	}
	return asynchandler.New(asynchandler.Config{
		Handler:      h,
		Name:         cfg.Name,
		Capacity:     pc.Capacity,
		Policy:       policy,
		DrainTimeout: pc.DrainTimeout,
		WaitStrategy: wait,
		ParkTimeout:  pc.ParkTimeout,
		Status:       statusLog.Named("pipeline"),
	})
}

// startObservers registers metrics, serves them and schedules reports.
// Both need a pipeline to observe.
func (s *System) startObservers(o *options) error {
	if s.Pipeline == nil {
		return nil
	}
	cfg := s.Config

	if cfg.Metrics.Enabled {
		s.Metrics = metrics.NewCollector(cfg.Metrics.Namespace, o.registry)
		s.Metrics.Add(s.Pipeline)

		if cfg.Metrics.Addr != "" {
			if err := s.serveMetrics(cfg.Metrics.Addr); err != nil {
				return err
			}
		}
	}

	if cfg.Report.Schedule != "" {
		r, err := reporter.New(cfg.Report.Schedule, s.log.Named("reporter"), s.Pipeline)
		if err != nil {
			return err
		}
		if err := r.Start(); err != nil {
			return err
		}
		s.Reporter = r
	}
	return nil
}

func (s *System) serveMetrics(addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to listen for metrics on %s: %w", addr, err)
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", s.Metrics.Handler())

	s.listener = ln
	s.server = &http.Server{Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	s.serveDone = make(chan struct{})
	go func() {
		defer close(s.serveDone)
		if err := s.server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.log.Error("metrics server failed", zap.Error(err))
		}
	}()
	s.log.Info("serving metrics", zap.String("addr", ln.Addr().String()))
	return nil
}

// MetricsAddr returns the address of the metrics endpoint, or "" when it is
// not served.
func (s *System) MetricsAddr() string {
	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

// Shutdown drains the pipeline within timeout, closes every handler and
// stops the observers. A timeout of zero or less uses the configured drain
// timeout. Later calls return the first result.
func (s *System) Shutdown(timeout time.Duration) error {
	s.shutdownOnce.Do(func() {
		s.shutdownErr = s.shutdown(timeout)
	})
	return s.shutdownErr
}

func (s *System) shutdown(timeout time.Duration) error {
	if timeout <= 0 {
		timeout = s.Config.Pipeline.DrainTimeout
	}
	var err error

	if s.Reporter != nil {
		s.Reporter.Stop()
	}

	if s.Pipeline != nil {
		undelivered, stopErr := s.Pipeline.Stop(timeout)
		if stopErr != nil {
			s.log.Warn("pipeline drain incomplete", zap.Int64("undelivered", undelivered))
		}
		err = multierr.Append(err, stopErr)
		err = multierr.Append(err, s.Pipeline.Close())
	} else if s.Handler != nil {
		err = multierr.Append(err, s.Handler.Close())
	}

	// One last report so the final counters are on record.
	if s.Reporter != nil {
		s.Reporter.Report()
	}

	if s.server != nil {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		err = multierr.Append(err, s.server.Shutdown(ctx))
		cancel()
		<-s.serveDone
	}

	s.log.Info("logging system stopped")
	_ = s.log.Sync()
	if s.restoreStatus != nil {
		s.restoreStatus()
	}
	return err
}
