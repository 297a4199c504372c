package logger

import (
	"context"
	"fmt"
	"os"

	"github.com/philipp01105/ringlog/core"
	"github.com/philipp01105/ringlog/diag"
	"github.com/philipp01105/ringlog/handler"
)

// osExit is a variable to allow overriding os.Exit in tests
var osExit = os.Exit

// Logger is the main logging interface (immutable)
//
// A Logger bound to a diag.Context with Bind captures that context on every
// call and must stay on the goroutine that owns it. Unbound loggers are safe
// for concurrent use.
type Logger struct {
	handler       handler.Handler
	level         core.Level
	name          string
	fields        []core.Field
	dc            *diag.Context
	includeCaller bool
	callerSkip    int
	recycleEntry  bool
	coarseClock   bool
}

// Builder provides a fluent API for building Logger instances
type Builder struct {
	handler       handler.Handler
	level         core.Level
	name          string
	fields        []core.Field
	includeCaller bool
	callerSkip    int
	recycleEntry  bool
	coarseClock   bool
}

// NewBuilder creates a new logger builder
func NewBuilder() *Builder {
	return &Builder{
		level:      core.InfoLevel, // Default level
		callerSkip: 3,              // Default skip for getCaller
	}
}

// WithHandler sets the handler
func (b *Builder) WithHandler(h handler.Handler) *Builder {
	b.handler = h
	// Pre-compute recycleEntry to avoid interface assertion in Build()
	b.recycleEntry = h != nil && handler.CanRecycle(h)
	return b
}

// WithLevel sets the log level
func (b *Builder) WithLevel(level core.Level) *Builder {
	b.level = level
	return b
}

// WithName sets the logger name carried by every entry.
func (b *Builder) WithName(name string) *Builder {
	b.name = name
	return b
}

// WithFields adds default fields to all log entries
func (b *Builder) WithFields(fields ...core.Field) *Builder {
	b.fields = append(b.fields, fields...)
	return b
}

// WithCaller enables caller information
func (b *Builder) WithCaller(enabled bool) *Builder {
	b.includeCaller = enabled
	return b
}

// WithCoarseClock timestamps entries with core.CoarseNow instead of
// time.Now. Timestamps lose sub-millisecond precision and the monotonic
// reading.
func (b *Builder) WithCoarseClock(enabled bool) *Builder {
	b.coarseClock = enabled
	if enabled {
		core.StartCoarseClock()
	}
	return b
}

// Build creates the Logger instance
func (b *Builder) Build() *Logger {
	return &Logger{
		handler:       b.handler,
		level:         b.level,
		name:          b.name,
		fields:        b.fields,
		includeCaller: b.includeCaller,
		callerSkip:    b.callerSkip,
		recycleEntry:  b.recycleEntry,
		coarseClock:   b.coarseClock,
	}
}

func (l *Logger) clone() *Logger {
	c := *l
	return &c
}

// With creates a new Logger with additional fields (immutable operation)
func (l *Logger) With(fields ...core.Field) *Logger {
	newFields := make([]core.Field, len(l.fields)+len(fields))
	copy(newFields, l.fields)
	copy(newFields[len(l.fields):], fields)

	c := l.clone()
	c.fields = newFields
	return c
}

// WithName returns a Logger whose entries carry name.
func (l *Logger) WithName(name string) *Logger {
	c := l.clone()
	c.name = name
	return c
}

// Bind returns a Logger that captures dc into every entry and reports
// dc's ID and name as the producer. The returned Logger belongs to the
// goroutine that owns dc.
//
// Unbound loggers all report producer ID 0. Ordering guarantees that are
// kept per producer, such as the sync fallback of an async pipeline, then
// treat every unbound goroutine as one producer: a fallback write waits for
// the backlog of all of them. Bind each long-lived goroutine to keep those
// waits independent.
func (l *Logger) Bind(dc *diag.Context) *Logger {
	c := l.clone()
	c.dc = dc
	return c
}

// Ctx is Bind with the diag.Context carried by ctx, if any.
func (l *Logger) Ctx(ctx context.Context) *Logger {
	dc := diag.FromContext(ctx)
	if dc == nil {
		return l
	}
	return l.Bind(dc)
}

// Context returns the bound diag.Context, or nil.
func (l *Logger) Context() *diag.Context { return l.dc }

// Name returns the logger name.
func (l *Logger) Name() string { return l.name }

// Level returns the minimum level that is logged.
func (l *Logger) Level() core.Level { return l.level }

// Enabled reports whether level passes the level gate.
func (l *Logger) Enabled(level core.Level) bool { return level >= l.level }

// Handler returns the logger's handler.
func (l *Logger) Handler() handler.Handler { return l.handler }

// Log logs a message at the specified level
func (l *Logger) Log(level core.Level, msg string, fields ...core.Field) {
	// Level check optimization - exit early BEFORE any allocations
	if level < l.level {
		return
	}

	l.log(level, msg, "", nil, fields)
}

// log is the internal logging method that takes a pre-allocated slice.
// Either msg or format is set. format is rendered lazily by the formatter
// only when every arg is plain; otherwise it is rendered here so that no
// String or Error method runs on an async consumer.
func (l *Logger) log(level core.Level, msg, format string, args []any, fields []core.Field) {
	// Handler check - exit if no handler (avoid any work)
	if l.handler == nil {
		return
	}
	if format != "" && !core.PlainArgs(args) {
		msg = fmt.Sprintf(format, args...)
		format, args = "", nil
	}

	// Get entry from pool AFTER level check
	entry := core.GetEntry()
	if l.coarseClock {
		entry.Time = core.CoarseNow()
	}
	entry.Level = level
	entry.LoggerName = l.name
	entry.Message = msg
	entry.Format = format
	entry.Args = args

	entry.ThreadID = l.dc.ID()
	entry.ThreadName = l.dc.Name()
	entry.Context = l.dc.Capture()

	// Add logger's default fields
	if len(l.fields) > 0 {
		entry.Fields = append(entry.Fields, l.fields...)
	}

	// Add provided fields
	if len(fields) > 0 {
		entry.Fields = append(entry.Fields, fields...)
	}
	for i := range entry.Fields {
		if err := entry.Fields[i].Err(); err != nil {
			entry.Err = core.FreezeError(err)
			break
		}
	}

	if l.includeCaller {
		entry.Caller = core.GetCaller(l.callerSkip)
	}

	err := l.handler.Handle(entry)
	if err != nil {
		return
	}

	// Return entry to pool if handler supports it
	if l.recycleEntry {
		core.PutEntry(entry)
	}
}

// Trace logs a trace message
func (l *Logger) Trace(msg string, fields ...core.Field) {
	if core.TraceLevel < l.level {
		return
	}
	l.log(core.TraceLevel, msg, "", nil, fields)
}

// Debug logs a debug message
func (l *Logger) Debug(msg string, fields ...core.Field) {
	if core.DebugLevel < l.level {
		return
	}
	l.log(core.DebugLevel, msg, "", nil, fields)
}

// Info logs an info message
func (l *Logger) Info(msg string, fields ...core.Field) {
	if core.InfoLevel < l.level {
		return
	}
	l.log(core.InfoLevel, msg, "", nil, fields)
}

// Warn logs a warning message
func (l *Logger) Warn(msg string, fields ...core.Field) {
	if core.WarnLevel < l.level {
		return
	}
	l.log(core.WarnLevel, msg, "", nil, fields)
}

// Error logs an error message
func (l *Logger) Error(msg string, fields ...core.Field) {
	if core.ErrorLevel < l.level {
		return
	}
	l.log(core.ErrorLevel, msg, "", nil, fields)
}

// Fatal logs a fatal message, waits for the handler to write it and exits
// the program with os.Exit(1)
func (l *Logger) Fatal(msg string, fields ...core.Field) {
	l.log(core.FatalLevel, msg, "", nil, fields)
	_ = l.Sync()
	osExit(1)
}

// Panic logs an error message and panics with msg
func (l *Logger) Panic(msg string, fields ...core.Field) {
	l.log(core.ErrorLevel, msg, "", nil, fields)
	_ = l.Sync()
	panic(msg)
}

// The formatted variants store format and args on the entry when every arg is
// a plain value; the message is then rendered by the formatter, which for an
// async handler runs on the consumer. Any other arg, such as a Stringer that
// may itself log, makes the call render the message before it returns.

// Tracef logs a trace message with formatting
func (l *Logger) Tracef(format string, args ...interface{}) {
	if core.TraceLevel < l.level {
		return
	}
	l.log(core.TraceLevel, "", format, args, nil)
}

// Debugf logs a debug message with formatting
func (l *Logger) Debugf(format string, args ...interface{}) {
	if core.DebugLevel < l.level {
		return
	}
	l.log(core.DebugLevel, "", format, args, nil)
}

// Infof logs an info message with formatting
func (l *Logger) Infof(format string, args ...interface{}) {
	if core.InfoLevel < l.level {
		return
	}
	l.log(core.InfoLevel, "", format, args, nil)
}

// Warnf logs a warning message with formatting
func (l *Logger) Warnf(format string, args ...interface{}) {
	if core.WarnLevel < l.level {
		return
	}
	l.log(core.WarnLevel, "", format, args, nil)
}

// Errorf logs an error message with formatting
func (l *Logger) Errorf(format string, args ...interface{}) {
	if core.ErrorLevel < l.level {
		return
	}
	l.log(core.ErrorLevel, "", format, args, nil)
}

// Fatalf logs a fatal message with formatting and exits the program with os.Exit(1)
func (l *Logger) Fatalf(format string, args ...interface{}) {
	l.log(core.FatalLevel, "", format, args, nil)
	_ = l.Sync()
	osExit(1)
}

// Panicf logs an error message with formatting and panics with the
// rendered message
func (l *Logger) Panicf(format string, args ...interface{}) {
	e := core.Entry{Format: format, Args: args}
	msg := e.RenderedMessage()
	l.log(core.ErrorLevel, msg, "", nil, nil)
	_ = l.Sync()
	panic(msg)
}

// Sync waits until the handler has written everything logged so far. It
// uses the handler's Sync method when it has one, as an async pipeline
// does, and Flush otherwise.
func (l *Logger) Sync() error {
	switch h := l.handler.(type) {
	case interface{ Sync() error }:
		return h.Sync()
	case handler.Flusher:
		return h.Flush()
	}
	return nil
}

// Close closes the logger's handler
func (l *Logger) Close() error {
	if l.handler != nil {
		return l.handler.Close()
	}
	return nil
}
