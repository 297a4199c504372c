package logger

import (
	"github.com/philipp01105/ringlog/core"
)

// Level Re-export type and constants for convenience
type Level = core.Level

const (
	TraceLevel = core.TraceLevel
	DebugLevel = core.DebugLevel
	InfoLevel  = core.InfoLevel
	WarnLevel  = core.WarnLevel
	ErrorLevel = core.ErrorLevel
	FatalLevel = core.FatalLevel
)

// ParseLevel converts a string to a Level, falling back to InfoLevel for
// unknown names. Use core.ParseLevel to detect them.
func ParseLevel(s string) Level {
	l, _ := core.ParseLevel(s)
	return l
}
