// Package asynchandler moves log entries off the producer goroutine. A
// Pipeline is a handler.Handler that copies each entry into a slot of a
// bounded ring (package ring) and returns. A single consumer goroutine
// dispatches the slots to a downstream handler in claim order.
//
// The consumer goes through NotStarted, Running, Draining and Stopped.
// Start opens the ring and starts the consumer. Stop drains it: everything
// claimed before the drain began is dispatched, the ring is closed, and
// everything claimed before the close is dispatched too. Stop gives up after
// its timeout and reports how many entries were left undelivered.
//
//	p, err := asynchandler.New(asynchandler.Config{
//		Handler:  fileHandler,
//		Capacity: 1024,
//	})
//	p.Start()
//	defer p.Close()
//
// When the ring is full the configured handler.QueueFullPolicy decides
// between waiting, dropping by level and writing on the caller. Entries
// logged before Start or after Stop are written synchronously. After Close
// they are counted and dropped. Logging never returns an error or blocks
// indefinitely because of the pipeline's lifecycle.
//
// Downstream failures and panics are recovered, counted in Stats and
// reported on the internal status logger; the consumer keeps running.
//
// A downstream handler must not log through the pipeline that feeds it.
// When the ring is full such a call would wait for the consumer it runs on.
package asynchandler
