package subst

const (
	// Recommended priorities for common layering patterns. Higher numbers win.
	ScopePriorityDefaults = 100
	ScopePriorityFile     = 200
	ScopePriorityEnv      = 300
	ScopePriorityOverride = 400
)

// DefaultsFileEnv assembles the canonical stack (env → file → defaults). Nil
// sources are skipped.
func DefaultsFileEnv(defaults, file, env Lookup) (*Stack, error) {
	candidates := []Layer{
		NewLayer(NewScope("env", ScopePriorityEnv, WithScopeLabel("Environment")), env),
		NewLayer(NewScope("file", ScopePriorityFile, WithScopeLabel("Configuration File")), file),
		NewLayer(NewScope("defaults", ScopePriorityDefaults, WithScopeLabel("Defaults")), defaults),
	}
	layers := make([]Layer, 0, len(candidates))
	for _, layer := range candidates {
		if layer.Source == nil || isNilLookup(layer.Source) {
			continue
		}
		layers = append(layers, layer)
	}
	return NewStack(layers...)
}

func isNilLookup(l Lookup) bool {
	switch typed := l.(type) {
	case *MapLookup:
		return typed == nil
	case *EnvLookup:
		return typed == nil
	case *Stack:
		return typed == nil
	default:
		return false
	}
}
