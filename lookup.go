package subst

import (
	"os"
	"sort"
	"strings"
	"sync"

	"golang.org/x/text/cases"
)

// Lookup is the key/value store references are resolved against. Get reports
// whether key holds a value; an empty string is a value. Set is only used when
// fallback defaults are written back to the store. Implementations own their
// own thread-safety.
type Lookup interface {
	Get(key string) (string, bool)
	Set(key, value string)
}

// KeyLister is implemented by lookups that can enumerate their keys.
type KeyLister interface {
	Keys() []string
}

// LookupFunc adapts a read-only function to Lookup. Set is a no-op.
type LookupFunc func(key string) (string, bool)

// Get implements Lookup.
func (f LookupFunc) Get(key string) (string, bool) {
	if f == nil {
		return "", false
	}
	return f(key)
}

// Set implements Lookup and discards the value.
func (LookupFunc) Set(string, string) {}

// MapLookup is an in-memory Lookup safe for concurrent use.
type MapLookup struct {
	mu      sync.RWMutex
	fold    bool
	records map[string]mapRecord
}

type mapRecord struct {
	key   string
	value string
}

// MapOption configures a MapLookup.
type MapOption func(*MapLookup)

// WithCaseInsensitiveKeys makes key comparison use Unicode case folding. The
// spelling used by the first Set of a key is the one Keys reports.
func WithCaseInsensitiveKeys() MapOption {
	return func(m *MapLookup) {
		m.fold = true
	}
}

// NewMapLookup copies values into a new MapLookup.
func NewMapLookup(values map[string]string, opts ...MapOption) *MapLookup {
	m := &MapLookup{records: make(map[string]mapRecord, len(values))}
	for _, opt := range opts {
		if opt != nil {
			opt(m)
		}
	}
	for key, value := range values {
		m.setLocked(key, value)
	}
	return m
}

func (m *MapLookup) normalize(key string) string {
	if !m.fold {
		return key
	}
	return cases.Fold().String(key)
}

// Get implements Lookup.
func (m *MapLookup) Get(key string) (string, bool) {
	if m == nil {
		return "", false
	}
	m.mu.RLock()
	record, ok := m.records[m.normalize(key)]
	m.mu.RUnlock()
	return record.value, ok
}

// Set implements Lookup.
func (m *MapLookup) Set(key, value string) {
	m.mu.Lock()
	m.setLocked(key, value)
	m.mu.Unlock()
}

func (m *MapLookup) setLocked(key, value string) {
	if m.records == nil {
		m.records = map[string]mapRecord{}
	}
	normalized := m.normalize(key)
	if existing, ok := m.records[normalized]; ok {
		key = existing.key
	}
	m.records[normalized] = mapRecord{key: key, value: value}
}

// Delete removes key.
func (m *MapLookup) Delete(key string) {
	m.mu.Lock()
	delete(m.records, m.normalize(key))
	m.mu.Unlock()
}

// Replace swaps the whole content atomically.
func (m *MapLookup) Replace(values map[string]string) {
	records := make(map[string]mapRecord, len(values))
	for key, value := range values {
		records[m.normalize(key)] = mapRecord{key: key, value: value}
	}
	m.mu.Lock()
	m.records = records
	m.mu.Unlock()
}

// Keys implements KeyLister. Keys are sorted.
func (m *MapLookup) Keys() []string {
	m.mu.RLock()
	keys := make([]string, 0, len(m.records))
	for _, record := range m.records {
		keys = append(keys, record.key)
	}
	m.mu.RUnlock()
	sort.Strings(keys)
	return keys
}

// Values returns a copy of the content keyed by the reported spelling.
func (m *MapLookup) Values() map[string]string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make(map[string]string, len(m.records))
	for _, record := range m.records {
		out[record.key] = record.value
	}
	return out
}

// EnvLookup reads process environment variables. Keys are mapped to variable
// names by upper-casing, replacing "." and "-" with "_" and adding Prefix.
// Set records values in a private overlay and never touches the process
// environment.
type EnvLookup struct {
	Prefix string

	mu      sync.RWMutex
	overlay map[string]string
}

// NewEnvLookup returns an EnvLookup for variables starting with prefix.
func NewEnvLookup(prefix string) *EnvLookup {
	return &EnvLookup{Prefix: prefix}
}

var envReplacer = strings.NewReplacer(".", "_", "-", "_")

// VariableName returns the environment variable consulted for key.
func (e *EnvLookup) VariableName(key string) string {
	return e.Prefix + strings.ToUpper(envReplacer.Replace(key))
}

// Get implements Lookup.
func (e *EnvLookup) Get(key string) (string, bool) {
	name := e.VariableName(key)
	e.mu.RLock()
	value, ok := e.overlay[name]
	e.mu.RUnlock()
	if ok {
		return value, true
	}
	return os.LookupEnv(name)
}

// Set implements Lookup.
func (e *EnvLookup) Set(key, value string) {
	e.mu.Lock()
	if e.overlay == nil {
		e.overlay = map[string]string{}
	}
	e.overlay[e.VariableName(key)] = value
	e.mu.Unlock()
}

// Keys implements KeyLister, returning the prefixed variable names with the
// prefix stripped, lower-cased, and "_" mapped to ".".
func (e *EnvLookup) Keys() []string {
	seen := map[string]struct{}{}
	add := func(name string) {
		if !strings.HasPrefix(name, e.Prefix) || len(name) == len(e.Prefix) {
			return
		}
		key := strings.ToLower(strings.ReplaceAll(strings.TrimPrefix(name, e.Prefix), "_", "."))
		seen[key] = struct{}{}
	}
	for _, entry := range os.Environ() {
		name, _, _ := strings.Cut(entry, "=")
		add(name)
	}
	e.mu.RLock()
	for name := range e.overlay {
		add(name)
	}
	e.mu.RUnlock()

	keys := make([]string, 0, len(seen))
	for key := range seen {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}
