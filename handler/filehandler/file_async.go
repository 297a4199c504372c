package filehandler

import (
	"github.com/philipp01105/ringlog/handler"
	"github.com/philipp01105/ringlog/handler/asynchandler"
	"github.com/philipp01105/ringlog/ring"
)

// newAsyncFileHandler puts a started async pipeline in front of h. The
// pipeline flushes h after every batch.
func newAsyncFileHandler(h *FileHandler, cfg FileConfig) (*asynchandler.Pipeline, error) {
	policy := cfg.Policy
	if policy == nil {
		pc := handler.DefaultPolicyConfig()
		if cfg.BlockTimeout > 0 {
			pc.BlockTimeout = cfg.BlockTimeout
		}
		var err error
		if policy, err = handler.NewPolicy(pc); err != nil {
			h.Close()
			return nil, err
		}
	}
	capacity := asynchandler.DefaultCapacity
	if cfg.BufferSize > 0 {
		capacity = ring.RoundUp(cfg.BufferSize)
	}

	p, err := asynchandler.New(asynchandler.Config{
		Handler:      h,
		Name:         "file",
		Capacity:     capacity,
		Policy:       policy,
		DrainTimeout: cfg.DrainTimeout,
	})
	if err != nil {
		h.Close()
		return nil, err
	}
	p.Start()
	return p, nil
}
