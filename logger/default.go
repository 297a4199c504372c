package logger

import (
	"os"
	"sync"
	"sync/atomic"

	"github.com/philipp01105/ringlog/core"
	"github.com/philipp01105/ringlog/diag"
	"github.com/philipp01105/ringlog/handler/consolehandler"
)

// The package-level logger is created on first use so that importing the
// package does not start a consumer goroutine. pkgLogger is the same logger
// with one extra caller frame for the wrappers below.
var (
	defaultOnce sync.Once
	current     atomic.Pointer[Logger]
	pkgLogger   atomic.Pointer[Logger]
)

func newDefault() *Logger {
	h := consolehandler.NewConsoleHandler(consolehandler.ConsoleConfig{
		Writer:     os.Stderr,
		Async:      true,
		BufferSize: 1024,
	})
	return NewBuilder().WithHandler(h).Build()
}

func store(l *Logger) {
	current.Store(l)
	wrapped := l.clone()
	wrapped.callerSkip++
	pkgLogger.Store(wrapped)
}

func initDefault() {
	defaultOnce.Do(func() {
		if current.Load() == nil {
			store(newDefault())
		}
	})
}

// Default returns the package-level logger. Unless replaced, it writes text
// to stderr through a small async console pipeline at INFO.
func Default() *Logger {
	initDefault()
	return current.Load()
}

// SetDefault replaces the package-level logger. A nil l is ignored.
func SetDefault(l *Logger) {
	if l == nil {
		return
	}
	defaultOnce.Do(func() {})
	store(l)
}

// ReplaceDefault installs l and returns a func that restores the previous
// logger. The replaced logger is not closed.
func ReplaceDefault(l *Logger) (restore func()) {
	prev := Default()
	SetDefault(l)
	return func() { SetDefault(prev) }
}

func pkg() *Logger {
	initDefault()
	return pkgLogger.Load()
}

func Trace(msg string, fields ...core.Field) { pkg().Trace(msg, fields...) }
func Debug(msg string, fields ...core.Field) { pkg().Debug(msg, fields...) }
func Info(msg string, fields ...core.Field)  { pkg().Info(msg, fields...) }
func Warn(msg string, fields ...core.Field)  { pkg().Warn(msg, fields...) }
func Error(msg string, fields ...core.Field) { pkg().Error(msg, fields...) }

// Fatal logs through the package-level logger, syncs it and exits with
// status 1.
func Fatal(msg string, fields ...core.Field) { pkg().Fatal(msg, fields...) }

// Panic logs at ERROR and panics with msg.
func Panic(msg string, fields ...core.Field) { pkg().Panic(msg, fields...) }

func Tracef(format string, args ...any) { pkg().Tracef(format, args...) }
func Debugf(format string, args ...any) { pkg().Debugf(format, args...) }
func Infof(format string, args ...any)  { pkg().Infof(format, args...) }
func Warnf(format string, args ...any)  { pkg().Warnf(format, args...) }
func Errorf(format string, args ...any) { pkg().Errorf(format, args...) }
func Fatalf(format string, args ...any) { pkg().Fatalf(format, args...) }
func Panicf(format string, args ...any) { pkg().Panicf(format, args...) }

// With returns the package-level logger with fields added.
func With(fields ...core.Field) *Logger { return Default().With(fields...) }

// Bind returns the package-level logger bound to dc.
func Bind(dc *diag.Context) *Logger { return Default().Bind(dc) }

// Sync flushes the package-level logger's handler.
func Sync() error { return Default().Sync() }
