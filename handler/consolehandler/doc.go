// Package consolehandler provides a console handler that writes formatted
// log entries to any io.Writer (default: os.Stdout).
//
// ConsoleHandler writes on the calling goroutine. Uncontended writes format
// into a handler-owned buffer under TryLock; parallel writers format into
// pooled buffers outside the lock.
//
// With ConsoleConfig.Async set, NewConsoleHandler returns a started
// asynchandler.Pipeline in front of the ConsoleHandler, so the application
// only pays for copying the entry into the ring.
//
// The default text formatter colours level names when the writer is a
// terminal and NO_COLOR is not set; ColorAlways and ColorNever override
// the detection.
package consolehandler
