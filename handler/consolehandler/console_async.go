package consolehandler

import (
	"github.com/philipp01105/ringlog/handler"
	"github.com/philipp01105/ringlog/handler/asynchandler"
	"github.com/philipp01105/ringlog/ring"
)

// newAsyncConsoleHandler puts a started async pipeline in front of h. The
// pipeline's single consumer is the only writer, so h's uncontended TryLock
// path is taken on every write.
func newAsyncConsoleHandler(h *ConsoleHandler, cfg ConsoleConfig) *asynchandler.Pipeline {
	policy := cfg.Policy
	if policy == nil {
		pc := handler.DefaultPolicyConfig()
		pc.BlockTimeout = cfg.BlockTimeout
		policy, _ = handler.NewPolicy(pc)
	}
	capacity := asynchandler.DefaultCapacity
	if cfg.BufferSize > 0 {
		capacity = ring.RoundUp(cfg.BufferSize)
	}

	// Capacity is a power of two and the handler is set, so New cannot fail.
	p, err := asynchandler.New(asynchandler.Config{
		Handler:      h,
		Name:         "console",
		Capacity:     capacity,
		Policy:       policy,
		DrainTimeout: cfg.DrainTimeout,
	})
	if err != nil {
		panic(err)
	}
	p.Start()
	return p
}
