package logger

import (
	"fmt"
	"time"

	"github.com/philipp01105/ringlog/core"
)

// String, Int and friends build typed fields without allocating. They are
// thin wrappers over the core constructors so call sites only import logger.

func String(key, val string) core.Field { return core.StringField(key, val) }

func Int(key string, val int) core.Field {
	return core.Field{Key: key, Type: core.IntType, Int64: int64(val)}
}

func Int64(key string, val int64) core.Field { return core.Int64Field(key, val) }

func Uint64(key string, val uint64) core.Field { return core.Uint64Field(key, val) }

func Float64(key string, val float64) core.Field { return core.Float64Field(key, val) }

func Bool(key string, val bool) core.Field { return core.BoolField(key, val) }

func Time(key string, val time.Time) core.Field { return core.TimeField(key, val) }

func Duration(key string, val time.Duration) core.Field {
	return core.DurationField(key, val)
}

// Err returns an error field keyed "error". The first error field of a call
// also becomes the entry's attached error, whose cause chain formatters
// render.
func Err(err error) core.Field { return core.ErrorField("error", err) }

// NamedErr is Err under a caller-chosen key.
func NamedErr(key string, err error) core.Field { return core.ErrorField(key, err) }

// Stringer renders val.String() on the calling goroutine. A String method
// may itself log, since it never runs on an async consumer.
func Stringer(key string, val fmt.Stringer) core.Field {
	return core.StringerField(key, val)
}

// Any picks the field type from val's dynamic type. Errors become error
// fields; anything else is rendered with %v.
func Any(key string, val any) core.Field {
	switch v := val.(type) {
	case string:
		return String(key, v)
	case int:
		return Int(key, v)
	case int64:
		return Int64(key, v)
	case uint64:
		return Uint64(key, v)
	case float64:
		return Float64(key, v)
	case bool:
		return Bool(key, v)
	case time.Time:
		return Time(key, v)
	case time.Duration:
		return Duration(key, v)
	}
	return core.AnyField(key, val)
}
