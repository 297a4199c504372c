// Package handler provides the Handler interface, the queue-full policies
// of the async pipeline, and the handlers that only route entries.
//
// A Handler receives fully populated *core.Entry values. Handlers that
// buffer output implement Flusher; an async pipeline calls Flush at the end
// of each batch it dispatches. Handlers that are done with an entry when
// Handle returns implement Recycler so callers can reuse the entry.
//
// When the ring of an async pipeline (package handler/asynchandler) has no
// free slot, the producer consults a QueueFullPolicy:
//
//   - BlockingPolicy waits for a slot, optionally with a deadline.
//   - DiscardByLevelPolicy drops entries below a threshold level (default
//     ERROR, so DEBUG, INFO and WARN are dropped) and blocks for the rest.
//   - SyncFallbackPolicy writes the entry on the calling goroutine after
//     that producer's earlier entries have been written.
//
// Policies are chosen once at configuration time with NewPolicy. Every
// outcome is counted in Stats, which can be queried at runtime.
//
// Routing handlers:
//
//   - MultiHandler fans out a single entry to multiple child handlers and
//     combines their errors.
//   - SlogHandler adapts the Handler interface to log/slog.Handler,
//     allowing ringlog to serve as a drop-in backend for the standard library.
//
// Output handlers live in the consolehandler, filehandler and sqlhandler
// subpackages.
package handler
