package subst

import (
	"strings"

	"github.com/goliatone/go-subst/pkg/cache"
)

// DefaultsStore keeps fallback defaults learned from inline references. It
// must be safe for concurrent use. Entries are only ever added or
// overwritten; *cache.Store[string] satisfies it.
type DefaultsStore interface {
	Get(key string) (string, bool)
	Set(key, value string)
}

// NewDefaultsStore returns an unbounded, never-expiring DefaultsStore.
func NewDefaultsStore() *cache.Store[string] {
	return cache.NewPermanent[string]("subst-fallback-defaults")
}

// splitFallback cuts body at the first occurrence of delimiter. The literal
// keeps any later occurrences verbatim.
func splitFallback(body, delimiter string) (key, literal string, ok bool) {
	if delimiter == "" {
		return "", "", false
	}
	return strings.Cut(body, delimiter)
}

// learnFallback records literal as the default for key unless the lookup
// already holds a non-empty value for it. In write-back mode a lookup that
// drops the write (a read-only LookupFunc) falls back to the defaults store.
func (r *resolution) learnFallback(key, literal string) {
	if current, ok := r.lookup.Get(key); ok && current != "" {
		return
	}
	stored := false
	if r.s.cfg.writeBack {
		r.lookup.Set(key, literal)
		_, stored = r.lookup.Get(key)
	}
	if !stored {
		r.s.defaults.Set(key, literal)
	}
	r.emitLearned(key, literal, stored)
}
