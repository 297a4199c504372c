// Package formatter defines how log entries are serialized into bytes.
//
// It exposes Formatter, which returns a []byte, WriterFormatter, which
// writes directly to an io.Writer, and BufferFormatter, which appends into
// a caller-owned buffer. Handlers check for the optional interfaces at
// construction time and prefer them when available, eliminating the
// intermediate byte slice allocation on the write path.
//
// Both built-in formatters (TextFormatter and JSONFormatter) implement
// all three. Besides the message and fields they render the logger name,
// the producer, the diagnostic context snapshot, and the attached error
// together with every error it wraps. Messages logged with a format string
// are rendered here, on the consumer, rather than on the producer.
//
// Formatters hold no mutable state and are safe to call from the consumer
// goroutine and from producers writing synchronously at the same time.
//
// Buffers larger than 64 KiB are not returned to the pool to prevent
// a single large log line from permanently inflating memory usage.
package formatter
