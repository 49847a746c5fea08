// Package viperlookup exposes a viper instance as a substitution lookup.
package viperlookup

import (
	"sort"

	"github.com/spf13/viper"
)

// Lookup reads keys from a viper instance. viper keys are case-insensitive
// and use "." between sections.
type Lookup struct {
	v *viper.Viper
}

// New wraps v. A nil v uses the global viper instance.
func New(v *viper.Viper) *Lookup {
	if v == nil {
		v = viper.GetViper()
	}
	return &Lookup{v: v}
}

// Viper returns the wrapped instance.
func (l *Lookup) Viper() *viper.Viper {
	return l.v
}

// Get reports the string form of key. Sections (maps) are not values.
func (l *Lookup) Get(key string) (string, bool) {
	if !l.v.IsSet(key) {
		return "", false
	}
	switch l.v.Get(key).(type) {
	case map[string]any, map[any]any:
		return "", false
	}
	return l.v.GetString(key), true
}

// Set overrides key in the viper instance.
func (l *Lookup) Set(key, value string) {
	l.v.Set(key, value)
}

// Keys returns every leaf key known to viper, sorted.
func (l *Lookup) Keys() []string {
	keys := l.v.AllKeys()
	sort.Strings(keys)
	return keys
}
