package formatter

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/philipp01105/ringlog/core"
)

// Formatter defines the interface for log formatters
type Formatter interface {
	// Format formats a log entry into bytes
	Format(entry *core.Entry) ([]byte, error)
}

// WriterFormatter is an optional interface that formatters can implement
// to write directly to a writer without intermediate byte slice allocation.
type WriterFormatter interface {
	// FormatTo formats a log entry and writes it directly to the writer
	FormatTo(entry *core.Entry, w io.Writer) error
}

// BufferFormatter is an optional interface that formatters can implement
// to format directly into a caller-provided buffer, avoiding internal
// buffer pool overhead.
type BufferFormatter interface {
	// FormatEntry formats a log entry into the given buffer.
	FormatEntry(entry *core.Entry, buf *bytes.Buffer)
}

// Config holds common formatter configuration
type Config struct {
	// IncludeCaller enables caller information in log output
	IncludeCaller bool
	// TimestampFormat specifies the time format (empty for RFC3339)
	TimestampFormat string
	// OmitContext leaves the diagnostic context out of the output.
	OmitContext bool
	// Colors wraps level names in ANSI colours. Only the text formatter
	// uses it.
	Colors bool
}

// bufferPool is a pool of bytes.Buffer to reduce allocations
var bufferPool = &sync.Pool{
	New: func() interface{} {
		b := new(bytes.Buffer)
		b.Grow(256)
		return b
	},
}

func getBuffer() *bytes.Buffer {
	buf := bufferPool.Get().(*bytes.Buffer)
	buf.Reset()
	return buf
}

func putBuffer(buf *bytes.Buffer) {
	if buf.Cap() > 64*1024 { // Don't keep very large buffers
		return
	}
	bufferPool.Put(buf)
}

// writeMessage writes the entry's message, rendering a lazily formatted
// message straight into buf.
func writeMessage(buf *bytes.Buffer, entry *core.Entry) {
	if entry.Message == "" && entry.Format != "" && len(entry.Args) > 0 {
		fmt.Fprintf(buf, entry.Format, entry.Args...)
		return
	}
	buf.WriteString(entry.RenderedMessage())
}

// hasErrorField reports whether the entry's error is already rendered as a
// structured field.
func hasErrorField(entry *core.Entry) bool {
	for i := range entry.Fields {
		if entry.Fields[i].Type == core.ErrorType {
			return true
		}
	}
	return false
}

// causes calls fn for every error wrapped by err, outermost first. err
// itself is not visited.
func causes(err error, fn func(error)) {
	for cause := errors.Unwrap(err); cause != nil; cause = errors.Unwrap(cause) {
		fn(cause)
	}
}
