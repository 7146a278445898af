package model

import (
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/i474232898/pedocs-forecast/internal/metrics"
)

// Loader produces a model, typically by reading an artifact from disk.
type Loader func() (*Model, error)

// FileLoader returns a Loader that reads the artifact at path.
func FileLoader(path string) Loader {
	return func() (*Model, error) {
		return Load(path)
	}
}

// Holder lazily loads a model on first use and then serves it to all
// callers. A failed load is retried by the next Get.
type Holder struct {
	loader Loader
	model  atomic.Pointer[Model]
	mu     sync.Mutex
	loads  atomic.Int64
}

// NewHolder creates a Holder around loader.
func NewHolder(loader Loader) *Holder {
	return &Holder{loader: loader}
}

// Get returns the loaded model, loading it if needed.
func (h *Holder) Get() (*Model, error) {
	if m := h.model.Load(); m != nil {
		return m, nil
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	if m := h.model.Load(); m != nil {
		return m, nil
	}

	h.loads.Add(1)
	m, err := h.loader()
	if err != nil {
		metrics.ModelLoads.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("%w: %w", ErrLoad, err)
	}
	metrics.ModelLoads.WithLabelValues("ok").Inc()
	h.model.Store(m)
	return m, nil
}

// Loads returns how many times the loader has been invoked.
func (h *Holder) Loads() int64 {
	return h.loads.Load()
}
