package subst

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/goliatone/go-subst/internal/hydrate"
	"github.com/goliatone/go-subst/layering"
)

// Provider serves substituted values from a source Lookup. It is the piece a
// layered configuration reads through: Get substitutes, Set writes the raw
// value through to the source.
type Provider struct {
	source      Lookup
	substitutor *Substitutor
	separator   string
}

// ProviderOption configures a Provider.
type ProviderOption func(*Provider)

// WithKeySeparator sets the section separator used by ChildKeys, Snapshot
// trees and Bind. The default is ".".
func WithKeySeparator(separator string) ProviderOption {
	return func(p *Provider) {
		if separator != "" {
			p.separator = separator
		}
	}
}

// NewProvider wraps source. A nil substitutor uses NewDefault().
func NewProvider(source Lookup, substitutor *Substitutor, opts ...ProviderOption) (*Provider, error) {
	if source == nil {
		return nil, &ConfigError{Field: "provider source", Err: errLookupRequired}
	}
	if substitutor == nil {
		var err error
		substitutor, err = NewDefault()
		if err != nil {
			return nil, err
		}
	}
	p := &Provider{
		source:      source,
		substitutor: substitutor,
		separator:   layering.DefaultSeparator,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(p)
		}
	}
	return p, nil
}

// Source returns the wrapped lookup.
func (p *Provider) Source() Lookup {
	return p.source
}

// Substitutor returns the substitutor values are resolved with.
func (p *Provider) Substitutor() *Substitutor {
	return p.substitutor
}

// Get returns the substituted value of key.
func (p *Provider) Get(key string) (string, bool, error) {
	return p.GetContext(context.Background(), key)
}

// GetContext is Get with a context for tracing and activity hooks.
func (p *Provider) GetContext(ctx context.Context, key string) (string, bool, error) {
	return p.substitutor.ResolveContext(ctx, p.source, key)
}

// Raw returns the unsubstituted value of key.
func (p *Provider) Raw(key string) (string, bool) {
	return p.source.Get(key)
}

// Set writes value to the source unchanged.
func (p *Provider) Set(key, value string) {
	p.source.Set(key, value)
}

// Keys returns the source keys, or nil when the source cannot list them.
func (p *Provider) Keys() []string {
	lister, ok := p.source.(KeyLister)
	if !ok {
		return nil
	}
	return lister.Keys()
}

// ChildKeys returns the immediate child segments below parentPath (every
// top-level segment when parentPath is empty) concatenated with earlierKeys
// and sorted. Duplicates are kept, as each provider in a chain reports its
// own view.
func (p *Provider) ChildKeys(earlierKeys []string, parentPath string) []string {
	prefix := ""
	if parentPath != "" {
		prefix = parentPath + p.separator
	}
	seen := map[string]struct{}{}
	var keys []string
	for _, key := range p.Keys() {
		if !strings.HasPrefix(key, prefix) || len(key) == len(prefix) {
			continue
		}
		segment, _, _ := strings.Cut(key[len(prefix):], p.separator)
		if _, ok := seen[segment]; ok {
			continue
		}
		seen[segment] = struct{}{}
		keys = append(keys, segment)
	}
	keys = append(keys, earlierKeys...)
	sort.Strings(keys)
	return keys
}

// Snapshot resolves every key of the source. It fails if the source cannot
// list its keys or if any key fails to resolve; no partial result is
// returned.
func (p *Provider) Snapshot(ctx context.Context) (map[string]string, error) {
	lister, ok := p.source.(KeyLister)
	if !ok {
		return nil, fmt.Errorf("subst: snapshot: source %T cannot list keys", p.source)
	}
	out := map[string]string{}
	for _, key := range lister.Keys() {
		value, found, err := p.substitutor.ResolveContext(ctx, p.source, key)
		if err != nil {
			return nil, err
		}
		if found {
			out[key] = value
		}
	}
	return out, nil
}

// Section returns the resolved snapshot restricted to keys below section,
// with the section prefix removed.
func (p *Provider) Section(ctx context.Context, section string) (map[string]string, error) {
	snapshot, err := p.Snapshot(ctx)
	if err != nil {
		return nil, err
	}
	if section == "" {
		return snapshot, nil
	}
	prefix := section + p.separator
	out := map[string]string{}
	for key, value := range snapshot {
		if strings.HasPrefix(key, prefix) {
			out[strings.TrimPrefix(key, prefix)] = value
		}
	}
	return out, nil
}

// Tree returns the resolved snapshot of section as a nested map.
func (p *Provider) Tree(ctx context.Context, section string) (map[string]any, error) {
	flat, err := p.Section(ctx, section)
	if err != nil {
		return nil, err
	}
	return layering.Expand(flat, p.separator)
}

// Bind resolves section (all keys when empty) and decodes it into T using
// `mapstructure` struct tags. String values are converted to the field types.
func Bind[T any](ctx context.Context, p *Provider, section string) (T, error) {
	var zero T
	if p == nil {
		return zero, fmt.Errorf("subst: bind: provider is required")
	}
	tree, err := p.Tree(ctx, section)
	if err != nil {
		return zero, err
	}
	return hydrate.NewDecoder[T]().Decode(hydrate.Context{Section: section}, tree)
}
