package jobstore

import (
	"sync"

	"remindbot/internal/logger"
)

// Registry hands out one shared Store per database path. The composition
// root owns the single Registry instance and calls CloseAll exactly once at
// shutdown, so no package-level state is involved.
type Registry struct {
	logger *logger.Logger

	mu     sync.Mutex
	stores map[string]*Store
}

// NewRegistry creates an empty store registry.
func NewRegistry(log *logger.Logger) *Registry {
	return &Registry{
		logger: log,
		stores: make(map[string]*Store),
	}
}

// Open returns the shared store for path, opening it on first use.
func (r *Registry) Open(path string) (*Store, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if store, ok := r.stores[path]; ok {
		r.logger.Debug("reusing job store", logger.Field{Key: "path", Value: path})
		return store, nil
	}

	store, err := Open(path)
	if err != nil {
		return nil, err
	}

	r.stores[path] = store
	r.logger.Info("job store opened", logger.Field{Key: "path", Value: path})
	return store, nil
}

// CloseAll closes every opened store. The last error encountered is
// returned; every close is attempted regardless.
func (r *Registry) CloseAll() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	var lastErr error
	for path, store := range r.stores {
		if err := store.Close(); err != nil {
			r.logger.Error("failed to close job store", err,
				logger.Field{Key: "path", Value: path})
			lastErr = err
		}
		delete(r.stores, path)
	}
	return lastErr
}
