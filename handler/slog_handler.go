package handler

import (
	"context"
	"log/slog"

	"github.com/philipp01105/ringlog/core"
	"github.com/philipp01105/ringlog/diag"
)

// SlogHandler is an adapter that implements slog.Handler using a ringlog Handler.
// This allows ringlog to be used as a drop-in backend for log/slog. Wrapping an
// async pipeline routes slog records through the ring like any other entry.
//
// A *diag.Context found on the record's context.Context is captured into the
// entry, so slog callers get the same diagnostic context as ringlog callers.
type SlogHandler struct {
	handler Handler
	level   core.Level
	name    string
	attrs   []core.Field
	group   string
}

// NewSlogHandler creates a new slog.Handler adapter wrapping the given Handler.
func NewSlogHandler(h Handler, level core.Level) *SlogHandler {
	return &SlogHandler{
		handler: h,
		level:   level,
	}
}

// WithLoggerName returns a copy that stamps name on every entry.
func (s *SlogHandler) WithLoggerName(name string) *SlogHandler {
	c := *s
	c.name = name
	return &c
}

// Enabled reports whether the handler handles records at the given level.
func (s *SlogHandler) Enabled(_ context.Context, level slog.Level) bool {
	return slogLevelToCore(level) >= s.level
}

// Handle processes a slog.Record by converting it to a core.Entry and passing it to the wrapped handler.
func (s *SlogHandler) Handle(ctx context.Context, record slog.Record) error {
	entry := core.GetEntry()
	entry.LoggerName = s.name
	entry.Time = record.Time
	entry.Level = slogLevelToCore(record.Level)
	entry.Message = record.Message

	if dc := diag.FromContext(ctx); dc != nil {
		entry.ThreadID = dc.ID()
		entry.ThreadName = dc.Name()
		entry.Context = dc.Capture()
	} else {
		entry.Context = diag.Empty()
	}

	// Add pre-configured attrs
	if len(s.attrs) > 0 {
		entry.Fields = append(entry.Fields, s.attrs...)
	}

	// Add record attrs
	record.Attrs(func(a slog.Attr) bool {
		entry.Fields = appendSlogAttr(entry.Fields, s.group, a)
		return true
	})
	for _, f := range entry.Fields {
		if err := f.Err(); err != nil {
			entry.Err = core.FreezeError(err)
			break
		}
	}

	err := s.handler.Handle(entry)
	if CanRecycle(s.handler) {
		core.PutEntry(entry)
	}
	return err
}

// WithAttrs returns a new SlogHandler with additional attributes.
func (s *SlogHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	newAttrs := make([]core.Field, len(s.attrs), len(s.attrs)+len(attrs))
	copy(newAttrs, s.attrs)
	for _, a := range attrs {
		newAttrs = appendSlogAttr(newAttrs, s.group, a)
	}
	c := *s
	c.attrs = newAttrs
	return &c
}

// WithGroup returns a new SlogHandler with the given group name.
func (s *SlogHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return s
	}
	newGroup := name
	if s.group != "" {
		newGroup = s.group + "." + name
	}
	c := *s
	c.attrs = append([]core.Field(nil), s.attrs...)
	c.group = newGroup
	return &c
}

// slogLevelToCore converts a slog.Level to a core.Level. Levels below
// slog.LevelDebug map to TRACE.
func slogLevelToCore(level slog.Level) core.Level {
	switch {
	case level >= slog.LevelError:
		return core.ErrorLevel
	case level >= slog.LevelWarn:
		return core.WarnLevel
	case level >= slog.LevelInfo:
		return core.InfoLevel
	case level >= slog.LevelDebug:
		return core.DebugLevel
	default:
		return core.TraceLevel
	}
}

// appendSlogAttr converts a slog.Attr to core.Fields, prepending the group
// prefix if present. Group attrs are flattened into dotted keys.
func appendSlogAttr(fields []core.Field, group string, a slog.Attr) []core.Field {
	a.Value = a.Value.Resolve()
	if a.Equal(slog.Attr{}) {
		return fields
	}

	key := a.Key
	if group != "" && key != "" {
		key = group + "." + a.Key
	} else if key == "" {
		key = group
	}

	switch v := a.Value; v.Kind() {
	case slog.KindString:
		return append(fields, core.StringField(key, v.String()))
	case slog.KindInt64:
		return append(fields, core.Int64Field(key, v.Int64()))
	case slog.KindUint64:
		return append(fields, core.Uint64Field(key, v.Uint64()))
	case slog.KindFloat64:
		return append(fields, core.Float64Field(key, v.Float64()))
	case slog.KindBool:
		return append(fields, core.BoolField(key, v.Bool()))
	case slog.KindTime:
		return append(fields, core.TimeField(key, v.Time()))
	case slog.KindDuration:
		return append(fields, core.DurationField(key, v.Duration()))
	case slog.KindGroup:
		for _, ga := range v.Group() {
			fields = appendSlogAttr(fields, key, ga)
		}
		return fields
	default:
		return append(fields, core.AnyField(key, v.Any()))
	}
}
