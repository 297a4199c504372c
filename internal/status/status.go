// Package status is ringlog's internal diagnostic channel. Pipeline and sink
// failures are reported here, on a zap logger that never routes through a
// ringlog pipeline, so a failing sink cannot feed back into itself.
package status

import (
	"fmt"
	"os"
	"sync/atomic"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

const rootName = "ringlog"

var global atomic.Pointer[zap.Logger]

func init() {
	l, err := New("warn")
	if err != nil {
		l = zap.NewNop()
	}
	global.Store(l)
}

// New builds a JSON status logger writing to stderr at the given level.
func New(level string) (*zap.Logger, error) {
	return NewWriter(zapcore.Lock(os.Stderr), level)
}

// NewWriter builds a JSON status logger writing to w at the given level.
func NewWriter(w zapcore.WriteSyncer, level string) (*zap.Logger, error) {
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		return nil, fmt.Errorf("status level: %w", err)
	}

	encoderCfg := zap.NewProductionEncoderConfig()
	encoderCfg.EncodeTime = zapcore.ISO8601TimeEncoder
	core := zapcore.NewCore(
		zapcore.NewJSONEncoder(encoderCfg),
		w,
		zap.NewAtomicLevelAt(lvl),
	)
	return zap.New(core, zap.WithCaller(false)).Named(rootName), nil
}

// L returns the process-wide status logger.
func L() *zap.Logger {
	return global.Load()
}

// For returns a child of the status logger for one component.
func For(component string) *zap.Logger {
	return L().Named(component)
}

// Set replaces the process-wide status logger and returns a function that
// restores the previous one. A nil logger disables status output.
func Set(l *zap.Logger) (restore func()) {
	if l == nil {
		l = zap.NewNop()
	}
	prev := global.Swap(l)
	return func() { global.Store(prev) }
}

// Nop returns a status logger that discards everything.
func Nop() *zap.Logger {
	return zap.NewNop()
}
