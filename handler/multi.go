package handler

import (
	"go.uber.org/multierr"

	"github.com/philipp01105/ringlog/core"
)

// MultiHandler sends log entries to multiple handlers
type MultiHandler struct {
	handlers     []Handler
	flushers     []Flusher
	recycleEntry bool // true when every child supports entry recycling
}

// NewMultiHandler creates a new multi-handler
func NewMultiHandler(handlers ...Handler) *MultiHandler {
	m := &MultiHandler{
		handlers:     handlers,
		recycleEntry: true,
	}
	for _, h := range handlers {
		if f, ok := h.(Flusher); ok {
			m.flushers = append(m.flushers, f)
		}
		if !CanRecycle(h) {
			m.recycleEntry = false
		}
	}
	return m
}

// Handle processes a log entry by sending it to all handlers. Every child
// sees the entry even when an earlier one fails.
func (h *MultiHandler) Handle(entry *core.Entry) error {
	var err error
	for _, handler := range h.handlers {
		if herr := handler.Handle(entry); herr != nil {
			err = multierr.Append(err, &DispatchError{Handler: Name(handler), Sequence: entry.Sequence, Err: herr})
		}
	}
	return err
}

// Flush flushes every child that buffers output.
func (h *MultiHandler) Flush() error {
	var err error
	for _, f := range h.flushers {
		err = multierr.Append(err, f.Flush())
	}
	return err
}

// CanRecycleEntry returns true if the caller can recycle the entry after Handle returns.
// This is safe when all child handlers process entries synchronously.
func (h *MultiHandler) CanRecycleEntry() bool {
	return h.recycleEntry
}

// Name implements the optional naming used in diagnostics.
func (h *MultiHandler) Name() string { return "multi" }

// Handlers returns the children in dispatch order.
func (h *MultiHandler) Handlers() []Handler {
	return h.handlers
}

// Close closes all handlers
func (h *MultiHandler) Close() error {
	var err error
	for _, handler := range h.handlers {
		err = multierr.Append(err, handler.Close())
	}
	return err
}
