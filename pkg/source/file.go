// Package source loads configuration files into flat substitution lookups
// and keeps them current as the files change.
package source

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"

	subst "github.com/goliatone/go-subst"
	"github.com/goliatone/go-subst/layering"
)

// Format identifies a configuration file syntax.
type Format string

const (
	FormatYAML Format = "yaml"
	FormatTOML Format = "toml"
	FormatJSON Format = "json"
)

// ErrUnknownFormat reports a file whose format cannot be inferred.
var ErrUnknownFormat = errors.New("source: unknown file format")

// FormatFromPath infers the format from the file extension.
func FormatFromPath(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return FormatYAML, nil
	case ".toml":
		return FormatTOML, nil
	case ".json":
		return FormatJSON, nil
	default:
		return "", fmt.Errorf("%w: %s", ErrUnknownFormat, path)
	}
}

// Parse decodes data into a configuration tree.
func Parse(data []byte, format Format) (map[string]any, error) {
	tree := map[string]any{}
	if len(bytes.TrimSpace(data)) == 0 {
		return tree, nil
	}
	var err error
	switch format {
	case FormatYAML:
		err = yaml.Unmarshal(data, &tree)
	case FormatTOML:
		_, err = toml.Decode(string(data), &tree)
	case FormatJSON:
		err = json.Unmarshal(data, &tree)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownFormat, format)
	}
	if err != nil {
		return nil, fmt.Errorf("parsing %s: %w", format, err)
	}
	return tree, nil
}

// LoadFile reads and parses a single file.
func LoadFile(path string) (map[string]any, error) {
	format, err := FormatFromPath(path)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	tree, err := Parse(data, format)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return tree, nil
}

// Files is a set of configuration files flattened into one MapLookup. Later
// paths override earlier ones.
type Files struct {
	paths     []string
	separator string
	lookup    *subst.MapLookup
}

// Option configures Files.
type Option func(*Files)

// WithSeparator sets the separator joining nested keys. The default is ".".
func WithSeparator(separator string) Option {
	return func(f *Files) {
		if separator != "" {
			f.separator = separator
		}
	}
}

// WithLookup loads into an existing lookup, for example one built with
// subst.WithCaseInsensitiveKeys.
func WithLookup(lookup *subst.MapLookup) Option {
	return func(f *Files) {
		if lookup != nil {
			f.lookup = lookup
		}
	}
}

// Load reads paths in order and returns the merged result.
func Load(paths []string, opts ...Option) (*Files, error) {
	if len(paths) == 0 {
		return nil, errors.New("source: at least one file is required")
	}
	f := &Files{
		paths:     append([]string(nil), paths...),
		separator: layering.DefaultSeparator,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(f)
		}
	}
	if f.lookup == nil {
		f.lookup = subst.NewMapLookup(nil)
	}
	if err := f.Reload(); err != nil {
		return nil, err
	}
	return f, nil
}

// Paths returns the loaded file paths, weakest first.
func (f *Files) Paths() []string {
	return append([]string(nil), f.paths...)
}

// Lookup returns the lookup the files are flattened into. It is updated in
// place by Reload.
func (f *Files) Lookup() *subst.MapLookup {
	return f.lookup
}

// Reload re-reads every file and swaps the lookup content atomically. On
// error the previous content is kept.
func (f *Files) Reload() error {
	trees := make([]map[string]any, len(f.paths))
	for i, path := range f.paths {
		tree, err := LoadFile(path)
		if err != nil {
			return err
		}
		// MergeLayers wants the strongest tree first.
		trees[len(f.paths)-1-i] = tree
	}
	f.lookup.Replace(layering.Flatten(layering.MergeLayers(trees...), f.separator))
	return nil
}
