package subst

import (
	"errors"
	"fmt"
	"sort"
)

// Scope models a named precedence bucket (defaults, file, env, override...).
// Higher priority values represent stronger layers.
type Scope struct {
	Name     string
	Label    string
	Priority int
	Metadata map[string]any
}

// ScopeOption configures metadata on Scope creation.
type ScopeOption func(*scopeConfig)

type scopeConfig struct {
	label    string
	metadata map[string]any
}

// WithScopeLabel sets a human-friendly label on the scope.
func WithScopeLabel(label string) ScopeOption {
	return func(cfg *scopeConfig) {
		cfg.label = label
	}
}

// WithScopeMetadata attaches arbitrary metadata to the scope. The map is copied
// so the resulting Scope remains immutable even if the caller mutates their
// reference.
func WithScopeMetadata(metadata map[string]any) ScopeOption {
	return func(cfg *scopeConfig) {
		if len(metadata) == 0 {
			return
		}
		cfg.metadata = copyMetadata(metadata)
	}
}

// NewScope builds a Scope. Validation is deferred to Stack construction.
func NewScope(name string, priority int, opts ...ScopeOption) Scope {
	cfg := scopeConfig{}
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		opt(&cfg)
	}
	return Scope{
		Name:     name,
		Label:    cfg.label,
		Priority: priority,
		Metadata: copyMetadata(cfg.metadata),
	}
}

func (s Scope) clone() Scope {
	return Scope{
		Name:     s.Name,
		Label:    s.Label,
		Priority: s.Priority,
		Metadata: copyMetadata(s.Metadata),
	}
}

// Layer pairs a scope with the Lookup holding that scope's values.
type Layer struct {
	Scope  Scope
	Source Lookup
}

// NewLayer constructs a Layer with a detached copy of the scope metadata.
func NewLayer(scope Scope, source Lookup) Layer {
	return Layer{Scope: scope.clone(), Source: source}
}

var (
	// ErrScopeNameRequired indicates a missing scope name.
	ErrScopeNameRequired = errors.New("scope: name must be provided")
	// ErrDuplicateScopeName indicates Stack construction received multiple
	// layers with the same scope name.
	ErrDuplicateScopeName = errors.New("scope: names must be unique")
	// ErrPriorityOrder indicates Stack construction detected duplicate
	// priorities.
	ErrPriorityOrder = errors.New("scope: priorities must be strictly ordered")
	// ErrLayerSourceRequired indicates a layer without a Lookup.
	ErrLayerSourceRequired = errors.New("scope: layer source must be provided")
)

// Stack is a Lookup over layers ordered from strongest to weakest. The first
// layer holding a key wins. The layer list is immutable after construction;
// the layers' own lookups may still change.
type Stack struct {
	layers []Layer
}

// NewStack validates the layers and sorts them strongest (highest priority)
// first.
func NewStack(layers ...Layer) (*Stack, error) {
	if len(layers) == 0 {
		return &Stack{}, nil
	}

	seenNames := make(map[string]struct{}, len(layers))
	copied := make([]Layer, len(layers))
	for i, layer := range layers {
		layer := NewLayer(layer.Scope, layer.Source)
		if layer.Scope.Name == "" {
			return nil, ErrScopeNameRequired
		}
		if layer.Source == nil {
			return nil, fmt.Errorf("%w: %s", ErrLayerSourceRequired, layer.Scope.Name)
		}
		if _, ok := seenNames[layer.Scope.Name]; ok {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateScopeName, layer.Scope.Name)
		}
		seenNames[layer.Scope.Name] = struct{}{}
		copied[i] = layer
	}

	sort.Slice(copied, func(i, j int) bool {
		if copied[i].Scope.Priority == copied[j].Scope.Priority {
			return copied[i].Scope.Name < copied[j].Scope.Name
		}
		return copied[i].Scope.Priority > copied[j].Scope.Priority
	})

	for i := 1; i < len(copied); i++ {
		if copied[i-1].Scope.Priority <= copied[i].Scope.Priority {
			return nil, fmt.Errorf("%w: %d", ErrPriorityOrder, copied[i].Scope.Priority)
		}
	}

	return &Stack{layers: copied}, nil
}

// Layers returns a copy of the layers, strongest first.
func (s *Stack) Layers() []Layer {
	if s == nil || len(s.layers) == 0 {
		return nil
	}
	out := make([]Layer, len(s.layers))
	for i := range s.layers {
		out[i] = NewLayer(s.layers[i].Scope, s.layers[i].Source)
	}
	return out
}

// Len returns the number of layers in the stack.
func (s *Stack) Len() int {
	if s == nil {
		return 0
	}
	return len(s.layers)
}

// Layer returns the layer registered under name.
func (s *Stack) Layer(name string) (Layer, bool) {
	if s == nil {
		return Layer{}, false
	}
	for _, layer := range s.layers {
		if layer.Scope.Name == name {
			return NewLayer(layer.Scope, layer.Source), true
		}
	}
	return Layer{}, false
}

// Get implements Lookup.
func (s *Stack) Get(key string) (string, bool) {
	if s == nil {
		return "", false
	}
	for _, layer := range s.layers {
		if value, ok := layer.Source.Get(key); ok {
			return value, true
		}
	}
	return "", false
}

// Set implements Lookup by writing to the strongest layer.
func (s *Stack) Set(key, value string) {
	if s == nil || len(s.layers) == 0 {
		return
	}
	s.layers[0].Source.Set(key, value)
}

// Keys implements KeyLister with the sorted union of keys from every layer
// that can enumerate them.
func (s *Stack) Keys() []string {
	if s == nil {
		return nil
	}
	seen := map[string]struct{}{}
	for _, layer := range s.layers {
		lister, ok := layer.Source.(KeyLister)
		if !ok {
			continue
		}
		for _, key := range lister.Keys() {
			seen[key] = struct{}{}
		}
	}
	keys := make([]string, 0, len(seen))
	for key := range seen {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}
