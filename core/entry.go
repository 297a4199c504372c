package core

import (
	"fmt"
	"path/filepath"
	"runtime"
	"strings"
	"sync"
	"time"

	"github.com/philipp01105/ringlog/diag"
)

// Level represents the severity level of a log entry
type Level int8

const (
	// TraceLevel for very fine-grained diagnostics
	TraceLevel Level = iota
	// DebugLevel for detailed debugging information
	DebugLevel
	// InfoLevel for general informational messages (default)
	InfoLevel
	// WarnLevel for warning messages
	WarnLevel
	// ErrorLevel for error messages
	ErrorLevel
	// FatalLevel for fatal messages (causes os.Exit(1))
	FatalLevel
)

// NumLevels is the number of defined levels. Levels are valid array indexes
// in [0, NumLevels).
const NumLevels = int(FatalLevel) + 1

// String returns the string representation of the level
func (l Level) String() string {
	switch l {
	case TraceLevel:
		return "TRACE"
	case DebugLevel:
		return "DEBUG"
	case InfoLevel:
		return "INFO"
	case WarnLevel:
		return "WARN"
	case ErrorLevel:
		return "ERROR"
	case FatalLevel:
		return "FATAL"
	default:
		return "UNKNOWN"
	}
}

// Valid reports whether l is one of the defined levels.
func (l Level) Valid() bool {
	return l >= TraceLevel && l <= FatalLevel
}

// ParseLevel converts a case-insensitive level name into a Level.
func ParseLevel(s string) (Level, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "TRACE":
		return TraceLevel, nil
	case "DEBUG":
		return DebugLevel, nil
	case "INFO", "":
		return InfoLevel, nil
	case "WARN", "WARNING":
		return WarnLevel, nil
	case "ERROR":
		return ErrorLevel, nil
	case "FATAL":
		return FatalLevel, nil
	default:
		return InfoLevel, fmt.Errorf("unknown log level %q", s)
	}
}

// MarshalText implements encoding.TextMarshaler.
func (l Level) MarshalText() ([]byte, error) {
	return []byte(strings.ToLower(l.String())), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (l *Level) UnmarshalText(text []byte) error {
	parsed, err := ParseLevel(string(text))
	if err != nil {
		return err
	}
	*l = parsed
	return nil
}

// Entry is the event envelope: everything known about one log call. It is
// fully populated by the producer before it is handed to a handler and is
// not modified afterwards.
type Entry struct {
	LoggerName string
	Time       time.Time
	Level      Level

	// Message is the rendered message. When it is empty and Format is set,
	// the message is rendered lazily from Format and Args.
	Message string
	Format  string
	Args    []any

	ThreadID   uint64
	ThreadName string

	Context *diag.Snapshot
	Err     error
	Fields  []Field
	Caller  CallerInfo

	// Sequence is the ring sequence assigned by an async pipeline, or -1.
	Sequence int64
}

// RenderedMessage returns Message, rendering Format and Args when the
// message was logged lazily.
func (e *Entry) RenderedMessage() string {
	if e.Message != "" || e.Format == "" {
		return e.Message
	}
	if len(e.Args) == 0 {
		return e.Format
	}
	return fmt.Sprintf(e.Format, e.Args...)
}

// CopyFrom overwrites e with src, reusing e's Fields backing array so that a
// long-lived destination does not allocate once it has grown.
func (e *Entry) CopyFrom(src *Entry) {
	fields := append(e.Fields[:0], src.Fields...)
	*e = *src
	e.Fields = fields
}

// Reset drops every reference held by e while keeping the Fields capacity.
func (e *Entry) Reset() {
	clear(e.Fields)
	fields := e.Fields[:0]
	*e = Entry{Fields: fields, Sequence: -1}
}

// CallerInfo contains information about the caller
type CallerInfo struct {
	File      string
	ShortFile string
	Line      int
	Function  string
	Defined   bool
}

// entryPool is a pool of Entry objects to reduce allocations
var entryPool = sync.Pool{
	New: func() interface{} {
		return &Entry{
			Fields:   make([]Field, 0, 8), // Pre-allocate for 8 fields
			Sequence: -1,
		}
	},
}

// GetEntry retrieves an Entry from the pool
func GetEntry() *Entry {
	e := entryPool.Get().(*Entry)
	e.Time = time.Now()
	return e
}

// PutEntry returns an Entry to the pool
func PutEntry(e *Entry) {
	if e == nil {
		return
	}
	if cap(e.Fields) > 64 { // Don't keep entries that grew very large
		return
	}
	e.Reset()
	entryPool.Put(e)
}

// GetCaller retrieves caller information
func GetCaller(skip int) CallerInfo {
	pc, file, line, ok := runtime.Caller(skip)
	if !ok {
		return CallerInfo{}
	}

	fn := runtime.FuncForPC(pc)
	var funcName string
	if fn != nil {
		funcName = fn.Name()
	}

	return CallerInfo{
		File:      file,
		ShortFile: filepath.Base(file),
		Line:      line,
		Function:  funcName,
		Defined:   true,
	}
}
