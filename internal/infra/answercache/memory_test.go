package answercache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestMemoryCacheRoundTrip(t *testing.T) {
	cache := NewMemoryCache()
	ctx := context.Background()

	_, found, err := cache.Get(ctx, "root-1")
	require.NoError(t, err)
	require.False(t, found)

	require.NoError(t, cache.Set(ctx, "root-1", "summary", time.Hour))

	text, found, err := cache.Get(ctx, "root-1")
	require.NoError(t, err)
	require.True(t, found)
	require.Equal(t, "summary", text)
}

func TestMemoryCacheExpiry(t *testing.T) {
	cache := NewMemoryCache()
	ctx := context.Background()

	require.NoError(t, cache.Set(ctx, "root-1", "summary", time.Nanosecond))
	time.Sleep(5 * time.Millisecond)

	_, found, err := cache.Get(ctx, "root-1")
	require.NoError(t, err)
	require.False(t, found)
}

func TestMemoryCacheIgnoresEmptyKeyAndText(t *testing.T) {
	cache := NewMemoryCache()
	ctx := context.Background()

	require.NoError(t, cache.Set(ctx, "", "text", time.Hour))
	require.NoError(t, cache.Set(ctx, "key", "", time.Hour))

	_, found, err := cache.Get(ctx, "key")
	require.NoError(t, err)
	require.False(t, found)
}
