package formatter

import (
	"bytes"
	"io"
	"strconv"
	"time"

	"github.com/philipp01105/ringlog/core"
)

// TextFormatter formats log entries as human-readable text:
//
//	2026-02-18T13:00:00Z [INFO] api (worker-1) [main.go:42] request done status=200 req=1 ndc=http/users
type TextFormatter struct {
	Config
}

// NewTextFormatter creates a new text formatter
func NewTextFormatter(cfg Config) *TextFormatter {
	if cfg.TimestampFormat == "" {
		cfg.TimestampFormat = time.RFC3339
	}
	return &TextFormatter{Config: cfg}
}

// Format formats an entry as text
func (f *TextFormatter) Format(entry *core.Entry) ([]byte, error) {
	buf := getBuffer()
	defer putBuffer(buf)

	f.formatToBuffer(entry, buf)

	// Copy buffer content to return
	result := make([]byte, buf.Len())
	copy(result, buf.Bytes())
	return result, nil
}

// FormatTo formats an entry and writes it directly to the writer
func (f *TextFormatter) FormatTo(entry *core.Entry, w io.Writer) error {
	buf := getBuffer()

	f.formatToBuffer(entry, buf)

	_, err := w.Write(buf.Bytes())
	putBuffer(buf)
	return err
}

// FormatEntry formats an entry as text into the given buffer (implements BufferFormatter).
func (f *TextFormatter) FormatEntry(entry *core.Entry, buf *bytes.Buffer) {
	f.formatToBuffer(entry, buf)
}

// pre-formatted level strings to avoid multiple WriteString calls
var levelBrackets = [...]string{
	core.TraceLevel: " [TRACE] ",
	core.DebugLevel: " [DEBUG] ",
	core.InfoLevel:  " [INFO] ",
	core.WarnLevel:  " [WARN] ",
	core.ErrorLevel: " [ERROR] ",
	core.FatalLevel: " [FATAL] ",
}

const colorReset = "\x1b[0m"

var coloredLevelBrackets = [...]string{
	core.TraceLevel: " [\x1b[34mTRACE" + colorReset + "] ",
	core.DebugLevel: " [\x1b[32mDEBUG" + colorReset + "] ",
	core.InfoLevel:  " [\x1b[92mINFO" + colorReset + "] ",
	core.WarnLevel:  " [\x1b[93mWARN" + colorReset + "] ",
	core.ErrorLevel: " [\x1b[91mERROR" + colorReset + "] ",
	core.FatalLevel: " [\x1b[1;91mFATAL" + colorReset + "] ",
}

// formatToBuffer writes the formatted entry into the given buffer
func (f *TextFormatter) formatToBuffer(entry *core.Entry, buf *bytes.Buffer) {
	// Timestamp - use AppendFormat to avoid string allocation
	buf.Write(entry.Time.AppendFormat(buf.AvailableBuffer(), f.TimestampFormat))

	// Level - use pre-formatted string
	switch {
	case !entry.Level.Valid():
		buf.WriteString(" [UNKNOWN] ")
	case f.Colors:
		buf.WriteString(coloredLevelBrackets[entry.Level])
	default:
		buf.WriteString(levelBrackets[entry.Level])
	}

	if entry.LoggerName != "" {
		buf.WriteString(entry.LoggerName)
		buf.WriteByte(' ')
	}
	if entry.ThreadName != "" {
		buf.WriteByte('(')
		buf.WriteString(entry.ThreadName)
		buf.WriteString(") ")
	}

	// Caller info if enabled
	if f.IncludeCaller && entry.Caller.Defined {
		buf.WriteByte('[')
		buf.WriteString(entry.Caller.ShortFile)
		buf.WriteByte(':')
		buf.Write(strconv.AppendInt(buf.AvailableBuffer(), int64(entry.Caller.Line), 10))
		buf.WriteString("] ")
	}

	writeMessage(buf, entry)

	// Fields
	for _, field := range entry.Fields {
		buf.WriteByte(' ')
		buf.WriteString(field.Key)
		buf.WriteByte('=')
		writeTextValue(buf, field.StringValue())
	}

	if entry.Err != nil {
		if !hasErrorField(entry) {
			buf.WriteString(" error=")
			writeTextValue(buf, entry.Err.Error())
		}
		causes(entry.Err, func(cause error) {
			buf.WriteString(" cause=")
			writeTextValue(buf, cause.Error())
		})
	}

	if !f.OmitContext && entry.Context != nil {
		entry.Context.Range(func(key, value string) bool {
			buf.WriteByte(' ')
			buf.WriteString(key)
			buf.WriteByte('=')
			writeTextValue(buf, value)
			return true
		})
		if depth := entry.Context.StackDepth(); depth > 0 {
			buf.WriteString(" ndc=")
			for i := 0; i < depth; i++ {
				if i > 0 {
					buf.WriteByte('/')
				}
				buf.WriteString(entry.Context.StackAt(i))
			}
		}
	}

	buf.WriteByte('\n')
}

// writeTextValue quotes values that would otherwise break the key=value
// layout.
func writeTextValue(buf *bytes.Buffer, s string) {
	for i := 0; i < len(s); i++ {
		if c := s[i]; c <= ' ' || c == '"' || c == '=' {
			buf.Write(strconv.AppendQuote(buf.AvailableBuffer(), s))
			return
		}
	}
	buf.WriteString(s)
}
