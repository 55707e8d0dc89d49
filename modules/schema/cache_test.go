package schema_test

import (
	"context"
	"testing"

	"tx-composer/modules/schema"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCache(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	genesis := [32]byte{0xe1, 0x43}

	cache, err := schema.OpenCache(dir)
	require.NoError(t, err)

	_, ok, err := cache.Get(ctx, genesis, 1)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, cache.Put(ctx, genesis, 1, []byte("meta")))
	raw, ok, err := cache.Get(ctx, genesis, 1)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, []byte("meta"), raw)

	_, ok, err = cache.Get(ctx, genesis, 2)
	require.NoError(t, err)
	assert.False(t, ok)
	require.NoError(t, cache.Close())

	reopened, err := schema.OpenCache(dir)
	require.NoError(t, err)
	defer reopened.Close()
	raw, ok, err = reopened.Get(ctx, genesis, 1)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, []byte("meta"), raw)
}
