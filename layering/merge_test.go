package layering

import (
	"errors"
	"reflect"
	"testing"
)

func TestMergeLayersStrongestWins(t *testing.T) {
	strong := map[string]any{
		"db":    map[string]any{"host": "prod.internal"},
		"debug": false,
	}
	weak := map[string]any{
		"db":    map[string]any{"host": "localhost", "port": 5432},
		"debug": true,
		"name":  "svc",
	}

	got := MergeLayers(strong, weak)
	want := map[string]any{
		"db":    map[string]any{"host": "prod.internal", "port": 5432},
		"debug": false,
		"name":  "svc",
	}
	if !reflect.DeepEqual(want, got) {
		t.Fatalf("merged tree mismatch:\nwant: %#v\n got: %#v", want, got)
	}
}

func TestMergeLayersDoesNotAliasInputs(t *testing.T) {
	weak := map[string]any{"db": map[string]any{"host": "localhost"}}
	merged := MergeLayers(map[string]any{}, weak)

	merged["db"].(map[string]any)["host"] = "changed"
	if weak["db"].(map[string]any)["host"] != "localhost" {
		t.Fatalf("expected weak layer untouched, got %v", weak["db"])
	}
}

func TestMergeLayersZeroInput(t *testing.T) {
	if got := MergeLayers(); got != nil {
		t.Fatalf("expected nil for no layers, got %#v", got)
	}
}

func TestMergeLayersNormalisesAnyKeyedMaps(t *testing.T) {
	strong := map[string]any{"db": map[any]any{"host": "a"}}
	weak := map[string]any{"db": map[string]any{"port": 1}}

	got := MergeLayers(strong, weak)
	want := map[string]any{"db": map[string]any{"host": "a", "port": 1}}
	if !reflect.DeepEqual(want, got) {
		t.Fatalf("merged tree mismatch:\nwant: %#v\n got: %#v", want, got)
	}
}

func TestFlatten(t *testing.T) {
	tree := map[string]any{
		"db": map[string]any{
			"host":  "localhost",
			"port":  5432,
			"ssl":   true,
			"extra": nil,
		},
		"hosts": []any{"a", map[string]any{"name": "b"}},
	}

	got := Flatten(tree, "")
	want := map[string]string{
		"db.host":      "localhost",
		"db.port":      "5432",
		"db.ssl":       "true",
		"db.extra":     "",
		"hosts.0":      "a",
		"hosts.1.name": "b",
	}
	if !reflect.DeepEqual(want, got) {
		t.Fatalf("flatten mismatch:\nwant: %#v\n got: %#v", want, got)
	}
}

func TestExpandRoundTripsFlatten(t *testing.T) {
	flat := map[string]string{
		"db:host": "localhost",
		"db:port": "5432",
		"name":    "svc",
	}

	tree, err := Expand(flat, ":")
	if err != nil {
		t.Fatalf("expand: %v", err)
	}
	want := map[string]any{
		"db":   map[string]any{"host": "localhost", "port": "5432"},
		"name": "svc",
	}
	if !reflect.DeepEqual(want, tree) {
		t.Fatalf("expand mismatch:\nwant: %#v\n got: %#v", want, tree)
	}
	if back := Flatten(tree, ":"); !reflect.DeepEqual(flat, back) {
		t.Fatalf("expected round trip, got %#v", back)
	}
}

func TestExpandReportsConflicts(t *testing.T) {
	_, err := Expand(map[string]string{"db": "x", "db.host": "y"}, ".")
	if !errors.Is(err, ErrKeyConflict) {
		t.Fatalf("expected ErrKeyConflict, got %v", err)
	}
}
