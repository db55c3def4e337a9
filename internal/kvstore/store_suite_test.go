package kvstore

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// exerciseStore checks the Store contract against any backend.
func exerciseStore(t *testing.T, s Store) {
	t.Helper()
	ctx := context.Background()

	_, err := s.Get(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, s.Set(ctx, KeyProductCart, `[{"item_id":1}]`))
	v, err := s.Get(ctx, KeyProductCart)
	require.NoError(t, err)
	assert.Equal(t, `[{"item_id":1}]`, v)

	// overwrite
	require.NoError(t, s.Set(ctx, KeyProductCart, `[]`))
	v, err = s.Get(ctx, KeyProductCart)
	require.NoError(t, err)
	assert.Equal(t, `[]`, v)

	// keys are independent
	require.NoError(t, s.Set(ctx, KeyVoucherCart, `[{"item_id":2}]`))
	require.NoError(t, s.Remove(ctx, KeyProductCart))
	_, err = s.Get(ctx, KeyProductCart)
	assert.ErrorIs(t, err, ErrNotFound)
	v, err = s.Get(ctx, KeyVoucherCart)
	require.NoError(t, err)
	assert.Equal(t, `[{"item_id":2}]`, v)

	// removing an absent key is fine
	assert.NoError(t, s.Remove(ctx, "never-set"))
}
