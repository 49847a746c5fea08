// Package layering converts nested configuration trees (as decoded from YAML,
// TOML or JSON) to and from flat key paths, and merges trees ordered from
// strongest to weakest.
package layering

import (
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// DefaultSeparator joins path segments.
const DefaultSeparator = "."

// ErrKeyConflict reports a flat key that is both a value and a parent.
var ErrKeyConflict = errors.New("layering: key is both a value and a section")

// MergeLayers composes trees ordered from strongest to weakest, returning a
// new tree that keeps explicit settings from stronger layers while filling
// missing data from weaker ones. Nested maps merge; any other value in a
// stronger layer replaces the weaker one.
func MergeLayers(layers ...map[string]any) map[string]any {
	if len(layers) == 0 {
		return nil
	}
	merged := Clone(layers[len(layers)-1])
	for i := len(layers) - 2; i >= 0; i-- {
		merged = mergeMaps(layers[i], merged)
	}
	return merged
}

func mergeMaps(strong, weak map[string]any) map[string]any {
	if strong == nil {
		return Clone(weak)
	}
	result := make(map[string]any, len(strong)+len(weak))
	for key, value := range weak {
		result[key] = cloneValue(value)
	}
	for key, value := range strong {
		strongMap, strongIsMap := asMap(value)
		weakMap, weakIsMap := asMap(result[key])
		if strongIsMap && weakIsMap {
			result[key] = mergeMaps(strongMap, weakMap)
			continue
		}
		result[key] = cloneValue(value)
	}
	return result
}

// Clone deep copies a tree. map[any]any sections are normalised to
// map[string]any.
func Clone(tree map[string]any) map[string]any {
	if tree == nil {
		return nil
	}
	out := make(map[string]any, len(tree))
	for key, value := range tree {
		out[key] = cloneValue(value)
	}
	return out
}

func cloneValue(value any) any {
	if m, ok := asMap(value); ok {
		return Clone(m)
	}
	if list, ok := value.([]any); ok {
		out := make([]any, len(list))
		for i, item := range list {
			out[i] = cloneValue(item)
		}
		return out
	}
	return value
}

// asMap accepts both map[string]any and the map[any]any some YAML decoders
// produce.
func asMap(value any) (map[string]any, bool) {
	switch typed := value.(type) {
	case map[string]any:
		return typed, true
	case map[any]any:
		converted := make(map[string]any, len(typed))
		for k, v := range typed {
			converted[fmt.Sprint(k)] = v
		}
		return converted, true
	default:
		return nil, false
	}
}

// Flatten turns a tree into flat keys joined by sep. List items use their
// index as a segment. Nil leaves become empty strings; other scalars are
// formatted with fmt.
func Flatten(tree map[string]any, sep string) map[string]string {
	if sep == "" {
		sep = DefaultSeparator
	}
	out := map[string]string{}
	flatten("", tree, sep, out)
	return out
}

func flatten(prefix string, value any, sep string, out map[string]string) {
	join := func(segment string) string {
		if prefix == "" {
			return segment
		}
		return prefix + sep + segment
	}

	if m, ok := asMap(value); ok {
		for key, child := range m {
			flatten(join(key), child, sep, out)
		}
		return
	}
	switch list := value.(type) {
	case []any:
		for i, child := range list {
			flatten(join(strconv.Itoa(i)), child, sep, out)
		}
		return
	case []map[string]any:
		for i, child := range list {
			flatten(join(strconv.Itoa(i)), child, sep, out)
		}
		return
	}
	if prefix == "" {
		return
	}
	switch typed := value.(type) {
	case nil:
		out[prefix] = ""
	case string:
		out[prefix] = typed
	default:
		out[prefix] = fmt.Sprint(typed)
	}
}

// Expand rebuilds a tree from flat keys. Segments are always map keys; list
// indices come back as "0", "1", ... keys.
func Expand(flat map[string]string, sep string) (map[string]any, error) {
	if sep == "" {
		sep = DefaultSeparator
	}
	keys := make([]string, 0, len(flat))
	for key := range flat {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	root := map[string]any{}
	for _, key := range keys {
		segments := strings.Split(key, sep)
		node := root
		for i, segment := range segments {
			last := i == len(segments)-1
			existing, exists := node[segment]
			if last {
				if exists {
					if _, isMap := existing.(map[string]any); isMap {
						return nil, fmt.Errorf("%w: %s", ErrKeyConflict, key)
					}
				}
				node[segment] = flat[key]
				continue
			}
			if !exists {
				child := map[string]any{}
				node[segment] = child
				node = child
				continue
			}
			child, isMap := existing.(map[string]any)
			if !isMap {
				return nil, fmt.Errorf("%w: %s", ErrKeyConflict, strings.Join(segments[:i+1], sep))
			}
			node = child
		}
	}
	return root, nil
}
