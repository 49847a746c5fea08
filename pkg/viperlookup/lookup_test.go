package viperlookup_test

import (
	"strings"
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	subst "github.com/goliatone/go-subst"
	"github.com/goliatone/go-subst/pkg/viperlookup"
)

func newViper(t *testing.T, yaml string) *viper.Viper {
	t.Helper()
	v := viper.New()
	v.SetConfigType("yaml")
	require.NoError(t, v.ReadConfig(strings.NewReader(yaml)))
	return v
}

func TestLookupReadsViperValues(t *testing.T) {
	v := newViper(t, `
database:
  host: localhost
  port: 5432
  url: "postgres://{database.host}:{database.port}/app"
empty: ""
`)
	lookup := viperlookup.New(v)

	value, ok := lookup.Get("database.port")
	require.True(t, ok)
	assert.Equal(t, "5432", value)

	value, ok = lookup.Get("empty")
	require.True(t, ok)
	assert.Equal(t, "", value)

	_, ok = lookup.Get("database")
	assert.False(t, ok, "sections are not values")

	_, ok = lookup.Get("missing")
	assert.False(t, ok)

	assert.Equal(t, []string{"database.host", "database.port", "database.url", "empty"}, lookup.Keys())
}

func TestLookupResolvesThroughSubstitutor(t *testing.T) {
	v := newViper(t, `
database:
  host: localhost
  port: 5432
  url: "postgres://{database.host}:{database.port}/{database.name:app}"
`)
	s, err := subst.NewDefault(subst.WithFallbackDelimiter(":"), subst.WithFallbackWriteBack(true))
	require.NoError(t, err)

	lookup := viperlookup.New(v)
	value, found, err := s.Resolve(lookup, "Database.URL")
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, "postgres://localhost:5432/app", value)
	assert.Equal(t, "app", v.GetString("database.name"), "write-back stores the default in viper")
}

func TestNewDefaultsToGlobalViper(t *testing.T) {
	assert.Same(t, viper.GetViper(), viperlookup.New(nil).Viper())
}
