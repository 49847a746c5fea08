package cache

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestNewPermanent(t *testing.T) {
	require.NotPanics(t, func() {
		NewPermanent[string]("test")
	})
}

type exampleStruct struct {
	ID   int
	Name string
}

func TestStore_GetExistingValue_StructType(t *testing.T) {
	store := NewPermanent[exampleStruct]("food-cache")
	example := exampleStruct{Name: "apple"}
	store.Set("ex:1", example)

	got, ok := store.Get("ex:1")
	require.True(t, ok)
	require.Equal(t, example, got)
}

func TestStore_GetWithNoExistingValue(t *testing.T) {
	store := NewPermanent[string]("food-cache")

	got, ok := store.Get("food")
	require.False(t, ok)
	require.Empty(t, got)
}

func TestStore_GetWithExistingInvalidValueType(t *testing.T) {
	store := NewPermanent[string]("food-cache")
	store.cache.Set("food", 123, NoExpiration)

	got, ok := store.Get("food")
	require.False(t, ok)
	require.Empty(t, got)
}

func TestStore_SetWithTTLExpires(t *testing.T) {
	store := New[string]("ttl-cache", NoExpiration, 0)
	store.SetWithTTL("food", "apple", time.Millisecond)

	require.Eventually(t, func() bool {
		_, ok := store.Get("food")
		return !ok
	}, time.Second, 5*time.Millisecond)
}

func TestStore_DeleteFlushAndKeys(t *testing.T) {
	store := NewPermanent[string]("food-cache")
	store.Set("b", "banana")
	store.Set("a", "apple")
	store.Set("c", "cherry")

	require.Equal(t, []string{"a", "b", "c"}, store.Keys())
	require.Equal(t, 3, store.Len())

	store.Delete("b")
	require.Equal(t, []string{"a", "c"}, store.Keys())

	store.Flush()
	require.Zero(t, store.Len())
	require.Empty(t, store.Keys())
}

func TestStore_ConcurrentSetGet(t *testing.T) {
	store := NewPermanent[int]("counter")
	var wg sync.WaitGroup
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			store.Set("shared", i)
			_, _ = store.Get("shared")
		}(i)
	}
	wg.Wait()

	_, ok := store.Get("shared")
	require.True(t, ok)
	require.Equal(t, "counter", store.UseCase())
}
