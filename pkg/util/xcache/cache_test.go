package xcache_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/rebasekit/ostag/pkg/util/xcache"
)

func TestMemoryCache(t *testing.T) {
	ctx := context.Background()
	cache := xcache.NewMemory[string]()

	_, ok := cache.Get(ctx, "token")
	assert.False(t, ok)

	cache.Set(ctx, "token", "opaque-value")
	got, ok := cache.Get(ctx, "token")
	assert.True(t, ok)
	assert.Equal(t, "opaque-value", got)

	cache.Delete(ctx, "token")
	_, ok = cache.Get(ctx, "token")
	assert.False(t, ok)
}

func TestMemoryCacheLoader(t *testing.T) {
	ctx := context.Background()
	cache := xcache.NewMemory[string]()

	calls := 0
	loader := xcache.WithLoader(func(_ context.Context, key string) (string, bool) {
		calls++
		return "loaded:" + key, true
	})

	got, ok := cache.Get(ctx, "k", loader)
	assert.True(t, ok)
	assert.Equal(t, "loaded:k", got)

	// second hit comes from the cache, not the loader
	got, ok = cache.Get(ctx, "k", loader)
	assert.True(t, ok)
	assert.Equal(t, "loaded:k", got)
	assert.Equal(t, 1, calls)
}

func TestDiscardCache(t *testing.T) {
	ctx := context.Background()
	cache := xcache.NewDiscard[int]()

	cache.Set(ctx, "k", 42)
	_, ok := cache.Get(ctx, "k")
	assert.False(t, ok)
}
