package core

import (
	"errors"
	"fmt"
	"strconv"
	"time"
)

// FieldType selects which member of a Field holds the value.
type FieldType uint8

const (
	StringType FieldType = iota
	IntType
	Int64Type
	Float64Type
	BoolType
	TimeType
	DurationType
	ErrorType
	// AnyType holds a value rendered with %v when the field is built.
	AnyType
	Uint64Type
)

// Field is one structured key/value pair attached to an Entry. Scalars live
// in Int64 or Float64 so that building a field never allocates.
//
// Fields never run caller code after construction: Stringers, errors and
// arbitrary values are rendered into Str by their constructors. An async
// pipeline's consumer can therefore format a field without calling back
// into the application, which may itself be logging.
type Field struct {
	Key     string
	Type    FieldType
	Int64   int64
	Float64 float64
	Str     string
	Any     any
}

// StringField returns a StringType field.
func StringField(key, val string) Field {
	return Field{Key: key, Type: StringType, Str: val}
}

// Int64Field returns an Int64Type field.
func Int64Field(key string, val int64) Field {
	return Field{Key: key, Type: Int64Type, Int64: val}
}

// Uint64Field stores val bit-for-bit in Int64.
func Uint64Field(key string, val uint64) Field {
	return Field{Key: key, Type: Uint64Type, Int64: int64(val)}
}

func Float64Field(key string, val float64) Field {
	return Field{Key: key, Type: Float64Type, Float64: val}
}

func BoolField(key string, val bool) Field {
	f := Field{Key: key, Type: BoolType}
	if val {
		f.Int64 = 1
	}
	return f
}

// TimeField keeps nanosecond precision; the location is not preserved.
func TimeField(key string, val time.Time) Field {
	return Field{Key: key, Type: TimeType, Int64: val.UnixNano()}
}

func DurationField(key string, val time.Duration) Field {
	return Field{Key: key, Type: DurationType, Int64: int64(val)}
}

// ErrorField captures err's message eagerly and keeps err for cause chains.
// A nil error yields an empty ErrorType field.
func ErrorField(key string, err error) Field {
	if err == nil {
		return Field{Key: key, Type: ErrorType}
	}
	return Field{Key: key, Type: ErrorType, Str: err.Error(), Any: err}
}

// StringerField renders val.String() now. A nil or panicking Stringer
// renders as a placeholder instead of propagating the panic.
func StringerField(key string, val fmt.Stringer) Field {
	return Field{Key: key, Type: StringType, Str: SafeString(val)}
}

// AnyField renders val now. Errors become error fields and Stringers string
// fields; anything else keeps AnyType with its %v form in Str.
func AnyField(key string, val any) Field {
	switch v := val.(type) {
	case error:
		return ErrorField(key, v)
	case fmt.Stringer:
		return StringerField(key, v)
	}
	return Field{Key: key, Type: AnyType, Str: fmt.Sprint(val)}
}

// Bool reports the value of a BoolType field.
func (f Field) Bool() bool { return f.Int64 == 1 }

// Err returns the error carried by an ErrorType field, if any.
func (f Field) Err() error {
	if f.Type != ErrorType {
		return nil
	}
	err, _ := f.Any.(error)
	return err
}

// AppendText appends the plain-text form of the value to dst.
func (f Field) AppendText(dst []byte) []byte {
	switch f.Type {
	case StringType, ErrorType, AnyType:
		return append(dst, f.Str...)
	case IntType, Int64Type:
		return strconv.AppendInt(dst, f.Int64, 10)
	case Uint64Type:
		return strconv.AppendUint(dst, uint64(f.Int64), 10)
	case Float64Type:
		return strconv.AppendFloat(dst, f.Float64, 'f', -1, 64)
	case BoolType:
		return strconv.AppendBool(dst, f.Bool())
	case TimeType:
		return time.Unix(0, f.Int64).AppendFormat(dst, time.RFC3339)
	case DurationType:
		return append(dst, time.Duration(f.Int64).String()...)
	}
	return dst
}

// StringValue returns the plain-text form of the value.
func (f Field) StringValue() string {
	switch f.Type {
	case StringType, ErrorType, AnyType:
		return f.Str
	}
	var scratch [32]byte
	return string(f.AppendText(scratch[:0]))
}

// SafeString calls s.String(), turning a panic into a placeholder. Stringers
// with nil pointer receivers are the usual culprit.
func SafeString(s fmt.Stringer) (out string) {
	defer func() {
		if r := recover(); r != nil {
			out = fmt.Sprintf("<%T panicked: %v>", s, r)
		}
	}()
	return s.String()
}

// FreezeError renders err and every error it wraps now. The result reports
// the same messages through Error and Unwrap, and answers errors.Is and
// errors.As from the original chain.
func FreezeError(err error) error {
	if err == nil {
		return nil
	}
	if _, ok := err.(*frozenError); ok {
		return err
	}
	return &frozenError{
		msg:   safeError(err),
		cause: FreezeError(errors.Unwrap(err)),
		orig:  err,
	}
}

type frozenError struct {
	msg   string
	cause error
	orig  error
}

func (e *frozenError) Error() string        { return e.msg }
func (e *frozenError) Unwrap() error        { return e.cause }
func (e *frozenError) Is(target error) bool { return errors.Is(e.orig, target) }
func (e *frozenError) As(target any) bool   { return errors.As(e.orig, target) }

func safeError(err error) (out string) {
	defer func() {
		if r := recover(); r != nil {
			out = fmt.Sprintf("<%T panicked: %v>", err, r)
		}
	}()
	return err.Error()
}

// PlainArgs reports whether formatting args can run no caller code: every
// arg is a string, bool, number, time.Time or time.Duration.
func PlainArgs(args []any) bool {
	for _, a := range args {
		switch a.(type) {
		case nil, string, bool,
			int, int8, int16, int32, int64,
			uint, uint8, uint16, uint32, uint64, uintptr,
			float32, float64, complex64, complex128,
			time.Time, time.Duration:
		default:
			return false
		}
	}
	return true
}
