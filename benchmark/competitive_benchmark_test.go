package benchmark

import (
	"io"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/sirupsen/logrus"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/philipp01105/ringlog/core"
	"github.com/philipp01105/ringlog/diag"
	"github.com/philipp01105/ringlog/formatter"
	"github.com/philipp01105/ringlog/handler"
	"github.com/philipp01105/ringlog/handler/asynchandler"
	"github.com/philipp01105/ringlog/handler/consolehandler"
	"github.com/philipp01105/ringlog/logger"
)

// ---------------------------------------------------------------------------
// Helpers – identical sink for every framework (io.Discard / no-op writer)
// ---------------------------------------------------------------------------

// newRinglogLogger returns a ringlog logger that writes JSON to w on the
// calling goroutine.
func newRinglogLogger(w io.Writer, level core.Level) *logger.Logger {
	h := consolehandler.NewConsoleHandler(consolehandler.ConsoleConfig{
		Writer:    w,
		Formatter: formatter.NewJSONFormatter(formatter.Config{}),
	})
	return logger.NewBuilder().
		WithHandler(h).
		WithLevel(level).
		Build()
}

// newRinglogAsync returns a ringlog logger behind a started pipeline. The
// blocking policy keeps every entry so the numbers are comparable.
func newRinglogAsync(b *testing.B, w io.Writer) *logger.Logger {
	b.Helper()
	h := consolehandler.NewConsoleHandler(consolehandler.ConsoleConfig{
		Writer:    w,
		Formatter: formatter.NewJSONFormatter(formatter.Config{}),
	})
	p, err := asynchandler.New(asynchandler.Config{
		Handler:  h,
		Name:     "bench",
		Capacity: 8192,
		Policy:   handler.BlockingPolicy{},
	})
	if err != nil {
		b.Fatal(err)
	}
	p.Start()
	return logger.NewBuilder().
		WithHandler(p).
		WithLevel(core.DebugLevel).
		Build()
}

// newZapLogger returns a zap.Logger that writes JSON to w.
func newZapLogger(w io.Writer, level zapcore.Level) *zap.Logger {
	enc := zapcore.NewJSONEncoder(zap.NewProductionEncoderConfig())
	core := zapcore.NewCore(enc, zapcore.AddSync(w), level)
	return zap.New(core)
}

// newSlogLogger returns an slog.Logger that writes JSON to w.
func newSlogLogger(w io.Writer, level slog.Level) *slog.Logger {
	return slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{Level: level}))
}

// newLogrusLogger returns a logrus.Logger that writes JSON to w.
func newLogrusLogger(w io.Writer, level logrus.Level) *logrus.Logger {
	l := logrus.New()
	l.SetOutput(w)
	l.SetFormatter(&logrus.JSONFormatter{})
	l.SetLevel(level)
	return l
}

// newZerologLogger returns a zerolog.Logger that writes JSON to w.
func newZerologLogger(w io.Writer, level zerolog.Level) zerolog.Logger {
	return zerolog.New(w).With().Timestamp().Logger().Level(level)
}

// ---------------------------------------------------------------------------
// Scenario 1 – Info message, no fields
// ---------------------------------------------------------------------------

func BenchmarkCompetitive_InfoNoFields(b *testing.B) {
	b.Run("ringlog", func(b *testing.B) {
		l := newRinglogLogger(io.Discard, core.DebugLevel)
		defer l.Close()
		b.ResetTimer()
		b.ReportAllocs()
		for i := 0; i < b.N; i++ {
			l.Info("info message")
		}
	})

	b.Run("ringlog-async", func(b *testing.B) {
		l := newRinglogAsync(b, io.Discard)
		defer l.Close()
		b.ResetTimer()
		b.ReportAllocs()
		for i := 0; i < b.N; i++ {
			l.Info("info message")
		}
	})

	b.Run("zap", func(b *testing.B) {
		l := newZapLogger(io.Discard, zap.DebugLevel)
		b.ResetTimer()
		b.ReportAllocs()
		for i := 0; i < b.N; i++ {
			l.Info("info message")
		}
	})

	b.Run("slog", func(b *testing.B) {
		l := newSlogLogger(io.Discard, slog.LevelDebug)
		b.ResetTimer()
		b.ReportAllocs()
		for i := 0; i < b.N; i++ {
			l.Info("info message")
		}
	})

	b.Run("logrus", func(b *testing.B) {
		l := newLogrusLogger(io.Discard, logrus.DebugLevel)
		b.ResetTimer()
		b.ReportAllocs()
		for i := 0; i < b.N; i++ {
			l.Info("info message")
		}
	})

	b.Run("zerolog", func(b *testing.B) {
		l := newZerologLogger(io.Discard, zerolog.DebugLevel)
		b.ResetTimer()
		b.ReportAllocs()
		for i := 0; i < b.N; i++ {
			l.Info().Msg("info message")
		}
	})
}

// ---------------------------------------------------------------------------
// Scenario 2 – Structured logging with common fields
// ---------------------------------------------------------------------------

func BenchmarkCompetitive_InfoWithFields(b *testing.B) {
	b.Run("ringlog", func(b *testing.B) {
		l := newRinglogLogger(io.Discard, core.DebugLevel)
		defer l.Close()
		b.ResetTimer()
		b.ReportAllocs()
		for i := 0; i < b.N; i++ {
			l.Info("request handled",
				logger.String("method", "GET"),
				logger.String("path", "/api/users"),
				logger.Int("status", 200),
				logger.Duration("latency", 150*time.Millisecond),
			)
		}
	})

	b.Run("ringlog-async", func(b *testing.B) {
		l := newRinglogAsync(b, io.Discard)
		defer l.Close()
		b.ResetTimer()
		b.ReportAllocs()
		for i := 0; i < b.N; i++ {
			l.Info("request handled",
				logger.String("method", "GET"),
				logger.String("path", "/api/users"),
				logger.Int("status", 200),
				logger.Duration("latency", 150*time.Millisecond),
			)
		}
	})

	b.Run("zap", func(b *testing.B) {
		l := newZapLogger(io.Discard, zap.DebugLevel)
		b.ResetTimer()
		b.ReportAllocs()
		for i := 0; i < b.N; i++ {
			l.Info("request handled",
				zap.String("method", "GET"),
				zap.String("path", "/api/users"),
				zap.Int("status", 200),
				zap.Duration("latency", 150*time.Millisecond),
			)
		}
	})

	b.Run("slog", func(b *testing.B) {
		l := newSlogLogger(io.Discard, slog.LevelDebug)
		b.ResetTimer()
		b.ReportAllocs()
		for i := 0; i < b.N; i++ {
			l.Info("request handled",
				slog.String("method", "GET"),
				slog.String("path", "/api/users"),
				slog.Int("status", 200),
				slog.Duration("latency", 150*time.Millisecond),
			)
		}
	})

	b.Run("logrus", func(b *testing.B) {
		l := newLogrusLogger(io.Discard, logrus.DebugLevel)
		b.ResetTimer()
		b.ReportAllocs()
		for i := 0; i < b.N; i++ {
			l.WithFields(logrus.Fields{
				"method":  "GET",
				"path":    "/api/users",
				"status":  200,
				"latency": 150 * time.Millisecond,
			}).Info("request handled")
		}
	})

	b.Run("zerolog", func(b *testing.B) {
		l := newZerologLogger(io.Discard, zerolog.DebugLevel)
		b.ResetTimer()
		b.ReportAllocs()
		for i := 0; i < b.N; i++ {
			l.Info().
				Str("method", "GET").
				Str("path", "/api/users").
				Int("status", 200).
				Dur("latency", 150*time.Millisecond).
				Msg("request handled")
		}
	})
}

// ---------------------------------------------------------------------------
// Scenario 3 – Disabled level (measure level-check overhead)
// ---------------------------------------------------------------------------

func BenchmarkCompetitive_DisabledLevel(b *testing.B) {
	b.Run("ringlog", func(b *testing.B) {
		l := newRinglogLogger(io.Discard, core.ErrorLevel)
		defer l.Close()
		b.ResetTimer()
		b.ReportAllocs()
		for i := 0; i < b.N; i++ {
			l.Debug("should be skipped", logger.String("key", "value"))
		}
	})

	b.Run("zap", func(b *testing.B) {
		l := newZapLogger(io.Discard, zap.ErrorLevel)
		b.ResetTimer()
		b.ReportAllocs()
		for i := 0; i < b.N; i++ {
			l.Debug("should be skipped", zap.String("key", "value"))
		}
	})

	b.Run("slog", func(b *testing.B) {
		l := newSlogLogger(io.Discard, slog.LevelError)
		b.ResetTimer()
		b.ReportAllocs()
		for i := 0; i < b.N; i++ {
			l.Debug("should be skipped", slog.String("key", "value"))
		}
	})

	b.Run("logrus", func(b *testing.B) {
		l := newLogrusLogger(io.Discard, logrus.ErrorLevel)
		b.ResetTimer()
		b.ReportAllocs()
		for i := 0; i < b.N; i++ {
			l.WithField("key", "value").Debug("should be skipped")
		}
	})

	b.Run("zerolog", func(b *testing.B) {
		l := newZerologLogger(io.Discard, zerolog.ErrorLevel)
		b.ResetTimer()
		b.ReportAllocs()
		for i := 0; i < b.N; i++ {
			l.Debug().Str("key", "value").Msg("should be skipped")
		}
	})
}

// ---------------------------------------------------------------------------
// Scenario 4 – Request-scoped context (diagnostic context vs child loggers)
// ---------------------------------------------------------------------------

func BenchmarkCompetitive_RequestContext(b *testing.B) {
	b.Run("ringlog", func(b *testing.B) {
		dc := diag.New("worker")
		dc.Put("service", "api")
		dc.Put("env", "prod")
		dc.Put("request_id", "4f1c")
		l := newRinglogAsync(b, io.Discard).Bind(dc)
		defer l.Close()
		b.ResetTimer()
		b.ReportAllocs()
		for i := 0; i < b.N; i++ {
			l.Info("request", logger.Int("status", 200))
		}
	})

	b.Run("zap", func(b *testing.B) {
		l := newZapLogger(io.Discard, zap.DebugLevel).With(
			zap.String("service", "api"),
			zap.String("env", "prod"),
			zap.String("request_id", "4f1c"),
		)
		b.ResetTimer()
		b.ReportAllocs()
		for i := 0; i < b.N; i++ {
			l.Info("request", zap.Int("status", 200))
		}
	})

	b.Run("slog", func(b *testing.B) {
		l := newSlogLogger(io.Discard, slog.LevelDebug).With(
			slog.String("service", "api"),
			slog.String("env", "prod"),
			slog.String("request_id", "4f1c"),
		)
		b.ResetTimer()
		b.ReportAllocs()
		for i := 0; i < b.N; i++ {
			l.Info("request", slog.Int("status", 200))
		}
	})

	b.Run("logrus", func(b *testing.B) {
		l := newLogrusLogger(io.Discard, logrus.DebugLevel).WithFields(logrus.Fields{
			"service":    "api",
			"env":        "prod",
			"request_id": "4f1c",
		})
		b.ResetTimer()
		b.ReportAllocs()
		for i := 0; i < b.N; i++ {
			l.WithField("status", 200).Info("request")
		}
	})

	b.Run("zerolog", func(b *testing.B) {
		l := newZerologLogger(io.Discard, zerolog.DebugLevel).With().
			Str("service", "api").
			Str("env", "prod").
			Str("request_id", "4f1c").
			Logger()
		b.ResetTimer()
		b.ReportAllocs()
		for i := 0; i < b.N; i++ {
			l.Info().Int("status", 200).Msg("request")
		}
	})
}

// ---------------------------------------------------------------------------
// Scenario 5 – Parallel / high-concurrency logging
// ---------------------------------------------------------------------------

func BenchmarkCompetitive_Parallel(b *testing.B) {
	b.Run("ringlog", func(b *testing.B) {
		l := newRinglogLogger(io.Discard, core.DebugLevel)
		defer l.Close()
		b.ResetTimer()
		b.ReportAllocs()
		b.RunParallel(func(pb *testing.PB) {
			for pb.Next() {
				l.Info("parallel log",
					logger.String("key", "value"),
					logger.Int("count", 42),
				)
			}
		})
	})

	b.Run("ringlog-async", func(b *testing.B) {
		base := newRinglogAsync(b, io.Discard)
		defer base.Close()
		b.ResetTimer()
		b.ReportAllocs()
		b.RunParallel(func(pb *testing.PB) {
			l := base.Bind(diag.New("producer"))
			for pb.Next() {
				l.Info("parallel log",
					logger.String("key", "value"),
					logger.Int("count", 42),
				)
			}
		})
	})

	b.Run("zap", func(b *testing.B) {
		l := newZapLogger(io.Discard, zap.DebugLevel)
		b.ResetTimer()
		b.ReportAllocs()
		b.RunParallel(func(pb *testing.PB) {
			for pb.Next() {
				l.Info("parallel log",
					zap.String("key", "value"),
					zap.Int("count", 42),
				)
			}
		})
	})

	b.Run("slog", func(b *testing.B) {
		l := newSlogLogger(io.Discard, slog.LevelDebug)
		b.ResetTimer()
		b.ReportAllocs()
		b.RunParallel(func(pb *testing.PB) {
			for pb.Next() {
				l.Info("parallel log",
					slog.String("key", "value"),
					slog.Int("count", 42),
				)
			}
		})
	})

	b.Run("logrus", func(b *testing.B) {
		l := newLogrusLogger(io.Discard, logrus.DebugLevel)
		b.ResetTimer()
		b.ReportAllocs()
		b.RunParallel(func(pb *testing.PB) {
			for pb.Next() {
				l.WithFields(logrus.Fields{
					"key":   "value",
					"count": 42,
				}).Info("parallel log")
			}
		})
	})

	b.Run("zerolog", func(b *testing.B) {
		l := newZerologLogger(io.Discard, zerolog.DebugLevel)
		b.ResetTimer()
		b.ReportAllocs()
		b.RunParallel(func(pb *testing.PB) {
			for pb.Next() {
				l.Info().
					Str("key", "value").
					Int("count", 42).
					Msg("parallel log")
			}
		})
	})
}

// ---------------------------------------------------------------------------
// Scenario 6 – File output (real I/O, equal conditions)
// ---------------------------------------------------------------------------

func benchFile(b *testing.B, pattern string) *os.File {
	b.Helper()
	f, err := os.CreateTemp(b.TempDir(), pattern)
	if err != nil {
		b.Fatal(err)
	}
	return f
}

func BenchmarkCompetitive_FileOutput(b *testing.B) {
	b.Run("ringlog", func(b *testing.B) {
		f := benchFile(b, "bench-ringlog-*.log")
		l := newRinglogLogger(f, core.InfoLevel)
		b.ResetTimer()
		b.ReportAllocs()
		for i := 0; i < b.N; i++ {
			l.Info("file log", logger.String("key", "value"))
		}
		b.StopTimer()
		l.Close()
		f.Close()
	})

	b.Run("ringlog-async", func(b *testing.B) {
		f := benchFile(b, "bench-ringlog-async-*.log")
		l := newRinglogAsync(b, f)
		b.ResetTimer()
		b.ReportAllocs()
		for i := 0; i < b.N; i++ {
			l.Info("file log", logger.String("key", "value"))
		}
		// The drain is part of the cost.
		l.Close()
		b.StopTimer()
		f.Close()
	})

	b.Run("zap", func(b *testing.B) {
		f := benchFile(b, "bench-zap-*.log")
		l := newZapLogger(f, zap.InfoLevel)
		b.ResetTimer()
		b.ReportAllocs()
		for i := 0; i < b.N; i++ {
			l.Info("file log", zap.String("key", "value"))
		}
		b.StopTimer()
		l.Sync()
		f.Close()
	})

	b.Run("slog", func(b *testing.B) {
		f := benchFile(b, "bench-slog-*.log")
		l := newSlogLogger(f, slog.LevelInfo)
		b.ResetTimer()
		b.ReportAllocs()
		for i := 0; i < b.N; i++ {
			l.Info("file log", slog.String("key", "value"))
		}
		b.StopTimer()
		f.Close()
	})

	b.Run("logrus", func(b *testing.B) {
		f := benchFile(b, "bench-logrus-*.log")
		l := newLogrusLogger(f, logrus.InfoLevel)
		b.ResetTimer()
		b.ReportAllocs()
		for i := 0; i < b.N; i++ {
			l.WithField("key", "value").Info("file log")
		}
		b.StopTimer()
		f.Close()
	})

	b.Run("zerolog", func(b *testing.B) {
		f := benchFile(b, "bench-zerolog-*.log")
		l := newZerologLogger(f, zerolog.InfoLevel)
		b.ResetTimer()
		b.ReportAllocs()
		for i := 0; i < b.N; i++ {
			l.Info().Str("key", "value").Msg("file log")
		}
		b.StopTimer()
		f.Close()
	})
}
