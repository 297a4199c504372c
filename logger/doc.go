// Package logger is the public API of ringlog. Most users only need to
// import this package.
//
// A Logger is immutable after construction: the fields, the level, the
// name and the handler are set once via the Builder and never modified.
// This makes an unbound Logger safe for concurrent use without any locking
// on the read path.
//
// A default Logger (async pipeline, InfoLevel, text to stderr) is created on
// first use. The package-level functions such as Info and Debugf delegate to
// it, so simple programs can log without any setup. SetDefault and
// ReplaceDefault swap it out:
//
//	logger.Info("ready", logger.Int("port", 8080))
//	defer logger.Sync()
//
// For custom configuration, use the Builder:
//
//	log := logger.NewBuilder().
//	    WithHandler(myHandler).
//	    WithLevel(logger.DebugLevel).
//	    WithCaller(true).
//	    Build()
//
// Each goroutine that wants a diagnostic context owns a diag.Context and
// binds it. Every call captures an immutable snapshot of the context into
// the entry, so later changes never show up in entries already logged:
//
//	dc := diag.New("worker-1")
//	wlog := log.Bind(dc)
//	dc.Put("request_id", id)
//	wlog.Info("accepted")
//
// Child loggers with extra fields are created via With:
//
//	reqLog := log.With(logger.String("request_id", id))
//
// Level checks happen before any allocation, so filtered-out
// messages cost only a single integer comparison.
package logger
