package source_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	subst "github.com/goliatone/go-subst"
	"github.com/goliatone/go-subst/pkg/source"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestFormatFromPath(t *testing.T) {
	for path, want := range map[string]source.Format{
		"a.yaml": source.FormatYAML,
		"a.YML":  source.FormatYAML,
		"a.toml": source.FormatTOML,
		"a.json": source.FormatJSON,
	} {
		got, err := source.FormatFromPath(path)
		require.NoError(t, err)
		assert.Equal(t, want, got, path)
	}
	_, err := source.FormatFromPath("a.ini")
	assert.ErrorIs(t, err, source.ErrUnknownFormat)
}

func TestParseFormats(t *testing.T) {
	yamlTree, err := source.Parse([]byte("db:\n  host: localhost\n  port: 5432\n"), source.FormatYAML)
	require.NoError(t, err)
	tomlTree, err := source.Parse([]byte("[db]\nhost = \"localhost\"\nport = 5432\n"), source.FormatTOML)
	require.NoError(t, err)
	jsonTree, err := source.Parse([]byte(`{"db":{"host":"localhost","port":5432}}`), source.FormatJSON)
	require.NoError(t, err)

	for name, tree := range map[string]map[string]any{"yaml": yamlTree, "toml": tomlTree, "json": jsonTree} {
		db, ok := tree["db"].(map[string]any)
		require.True(t, ok, name)
		assert.Equal(t, "localhost", db["host"], name)
	}

	empty, err := source.Parse([]byte("  \n"), source.FormatYAML)
	require.NoError(t, err)
	assert.Empty(t, empty)

	_, err = source.Parse([]byte("db: ["), source.FormatYAML)
	assert.Error(t, err)
}

func TestLoadMergesFilesLaterWins(t *testing.T) {
	dir := t.TempDir()
	base := writeFile(t, dir, "base.yaml", `
db:
  host: localhost
  port: 5432
  url: "postgres://{db.host}:{db.port}/{db.name:app}"
hosts:
  - a
  - b
`)
	override := writeFile(t, dir, "override.toml", `
[db]
host = "db.internal"
`)

	files, err := source.Load([]string{base, override})
	require.NoError(t, err)

	lookup := files.Lookup()
	value, ok := lookup.Get("db.host")
	require.True(t, ok)
	assert.Equal(t, "db.internal", value)
	value, _ = lookup.Get("db.port")
	assert.Equal(t, "5432", value)
	value, _ = lookup.Get("hosts.1")
	assert.Equal(t, "b", value)

	s, err := subst.NewDefault(subst.WithFallbackDelimiter(":"))
	require.NoError(t, err)
	url, found, err := s.Resolve(lookup, "db.url")
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, "postgres://db.internal:5432/app", url)
}

func TestLoadErrors(t *testing.T) {
	_, err := source.Load(nil)
	assert.Error(t, err)

	_, err = source.Load([]string{filepath.Join(t.TempDir(), "missing.yaml")})
	assert.Error(t, err)
}

func TestReloadKeepsContentOnError(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "app.json", `{"name":"one"}`)
	files, err := source.Load([]string{path}, source.WithLookup(subst.NewMapLookup(nil, subst.WithCaseInsensitiveKeys())))
	require.NoError(t, err)

	writeFile(t, dir, "app.json", `{"name":`)
	assert.Error(t, files.Reload())
	value, _ := files.Lookup().Get("NAME")
	assert.Equal(t, "one", value)

	writeFile(t, dir, "app.json", `{"name":"two"}`)
	require.NoError(t, files.Reload())
	value, _ = files.Lookup().Get("name")
	assert.Equal(t, "two", value)
}

func TestWatcherReloadsOnWrite(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "app.yaml", "name: one\n")
	files, err := source.Load([]string{path})
	require.NoError(t, err)

	watcher, err := source.NewWatcher(files, 20*time.Millisecond)
	require.NoError(t, err)
	reloads, err := watcher.Start()
	require.NoError(t, err)
	t.Cleanup(func() { _ = watcher.Stop() })

	writeFile(t, dir, "unrelated.yaml", "name: ignored\n")
	writeFile(t, dir, "app.yaml", "name: two\n")

	select {
	case err := <-reloads:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for reload")
	}
	value, _ := files.Lookup().Get("name")
	assert.Equal(t, "two", value)
}
