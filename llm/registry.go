package llm

import (
	"fmt"
	"sync"
)

// Factory constructs a backend for an identity.
type Factory func(id Identity) (Backend, error)

// Registry memoizes backend handles by identity. Construction runs at most
// once per identity even under concurrent first access; a construction error
// is memoized the same way and is not retried.
type Registry struct {
	mu      sync.Mutex
	factory Factory
	entries map[Identity]*registryEntry
}

type registryEntry struct {
	once    sync.Once
	backend Backend
	err     error
}

// NewRegistry creates a registry using the given factory. A nil factory
// falls back to DefaultFactory.
func NewRegistry(factory Factory) *Registry {
	if factory == nil {
		factory = DefaultFactory()
	}
	return &Registry{
		factory: factory,
		entries: make(map[Identity]*registryEntry),
	}
}

// Backend returns the memoized handle for id, constructing it on first use.
func (r *Registry) Backend(id Identity) (Backend, error) {
	r.mu.Lock()
	entry, ok := r.entries[id]
	if !ok {
		entry = &registryEntry{}
		r.entries[id] = entry
	}
	r.mu.Unlock()

	entry.once.Do(func() {
		entry.backend, entry.err = r.factory(id)
	})

	if entry.err != nil {
		return nil, entry.err
	}
	return entry.backend, nil
}

// Size returns the number of identities the registry has seen.
func (r *Registry) Size() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.entries)
}

// DefaultFactory constructs backends with their default endpoints. For
// KindGPT4All the identity model is the packaged model file path.
func DefaultFactory() Factory {
	return func(id Identity) (Backend, error) {
		switch id.Kind {
		case KindOllama:
			model := id.Model
			if model == "" {
				model = OllamaMistral
			}
			return NewOllamaBackend(WithOllamaModel(model)), nil
		case KindGPT4All:
			return NewGPT4AllBackend(id.Model)
		case KindSeqPipeline:
			model := id.Model
			if model == "" {
				model = SeqPipelineDefaultModel
			}
			return NewSeqPipelineBackend(WithSeqPipelineModel(model)), nil
		default:
			return nil, fmt.Errorf("unknown backend kind %q", id.Kind)
		}
	}
}
