package condition

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/viant/signoff/model"
)

// Registry maps evaluator identifiers to factories.
type Registry struct {
	mu        sync.RWMutex
	factories map[string]Factory
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{factories: map[string]Factory{}}
}

// New creates a registry with the built-in evaluators registered.
func New() *Registry {
	ret := NewRegistry()
	ret.MustRegister(AlwaysID, Static(Always()))
	ret.MustRegister(NeverID, Static(Never()))
	ret.MustRegister(ThresholdID, NewThreshold)
	ret.MustRegister(ScriptID, NewScript)
	return ret
}

// Register adds a factory; the identifier must be unique and non-blank.
func (r *Registry) Register(id string, factory Factory) error {
	id = strings.TrimSpace(id)
	if id == "" {
		return fmt.Errorf("%w: identifier was empty", ErrInvalidFactory)
	}
	if factory == nil {
		return fmt.Errorf("%w: %v: factory was nil", ErrInvalidFactory, id)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.factories[id]; ok {
		return fmt.Errorf("%w: %v: already registered", ErrInvalidFactory, id)
	}
	r.factories[id] = factory
	return nil
}

// MustRegister is Register that panics on error.
func (r *Registry) MustRegister(id string, factory Factory) {
	if err := r.Register(id, factory); err != nil {
		panic(err)
	}
}

// Has reports whether id is registered.
func (r *Registry) Has(id string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.factories[id]
	return ok
}

// IDs returns registered identifiers, sorted.
func (r *Registry) IDs() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ret := make([]string, 0, len(r.factories))
	for id := range r.factories {
		ret = append(ret, id)
	}
	sort.Strings(ret)
	return ret
}

// Resolve builds the evaluator referenced by ref.
func (r *Registry) Resolve(ref *model.ConditionRef) (Evaluator, error) {
	if ref == nil {
		return nil, fmt.Errorf("%w: reference was nil", ErrUnknownEvaluator)
	}
	r.mu.RLock()
	factory, ok := r.factories[ref.ID]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownEvaluator, ref.ID)
	}
	evaluator, err := factory(ref.Params)
	if err != nil {
		return nil, fmt.Errorf("%w: %v: %v", ErrInvalidFactory, ref.ID, err)
	}
	if evaluator == nil {
		return nil, fmt.Errorf("%w: %v: factory returned nil evaluator", ErrInvalidFactory, ref.ID)
	}
	return evaluator, nil
}
