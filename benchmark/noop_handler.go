// Package benchmark compares ringlog with other Go loggers and measures the
// async pipeline under load. It is a separate module so that the
// comparison loggers stay out of ringlog's dependencies.
package benchmark

import (
	"github.com/philipp01105/ringlog/core"
	"github.com/philipp01105/ringlog/handler"
)

// noopHandler measures the pipeline without formatting or I/O.
type noopHandler struct{}

func newNoopHandler() handler.Handler {
	return &noopHandler{}
}

func (h *noopHandler) Handle(e *core.Entry) error {
	_ = len(e.Message)
	return nil
}

func (h *noopHandler) CanRecycleEntry() bool { return true }

func (h *noopHandler) Close() error {
	return nil
}
