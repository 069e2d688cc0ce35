package insights

import (
	"sync"

	"clementus360/task-insights/config"
)

// Factory builds the engine for one user.
type Factory func(userID string) (*Engine, error)

// Registry keeps one started engine per user.
type Registry struct {
	factory Factory

	mu      sync.Mutex
	engines map[string]*Engine
}

func NewRegistry(factory Factory) *Registry {
	return &Registry{factory: factory, engines: make(map[string]*Engine)}
}

// Get returns the user's engine, creating and starting it on first use.
func (r *Registry) Get(userID string) (*Engine, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if e, ok := r.engines[userID]; ok {
		return e, nil
	}

	e, err := r.factory(userID)
	if err != nil {
		return nil, err
	}
	if err := e.Start(); err != nil {
		return nil, err
	}
	r.engines[userID] = e

	config.Logger.WithField("user_id", userID).Info("Insights engine started")
	return e, nil
}

func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.engines)
}

// Close stops every engine.
func (r *Registry) Close() {
	r.mu.Lock()
	engines := r.engines
	r.engines = make(map[string]*Engine)
	r.mu.Unlock()

	for _, e := range engines {
		e.Stop()
	}
}
