// Package diag holds the diagnostic context that producers attach to log
// events: a key/value map (correlation IDs, user, tenant) and a stack of
// nested scope names.
//
// Go has no thread-local storage, so the per-producer state is an explicit
// *Context owned by exactly one goroutine. It is either bound to a logger
//
//	dc := diag.New("worker-1")
//	dc.Put("req", id)
//	log := base.Bind(dc)
//
// or carried on a context.Context with WithContext / FromContext.
//
// At every log call the logger calls Capture, which returns an immutable
// *Snapshot. Capture does not allocate when the context is empty (the
// shared Empty snapshot is returned) or unchanged since the previous
// capture (the cached snapshot is returned). When the context has changed
// a new, exactly-sized backing store is allocated; snapshots handed out
// earlier keep their own storage and never observe later mutations.
//
// A Context is not safe for concurrent use. A Snapshot is immutable and may
// be read from any goroutine.
package diag
