package kvstore

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStore_Contract(t *testing.T) {
	exerciseStore(t, NewMemoryStore())
}

func TestMemoryStore_CancelledContext(t *testing.T) {
	s := NewMemoryStore()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := s.Get(ctx, KeyAuthToken)
	assert.ErrorIs(t, err, context.Canceled)
	assert.ErrorIs(t, s.Set(ctx, KeyAuthToken, "x"), context.Canceled)
	assert.ErrorIs(t, s.Remove(ctx, KeyAuthToken), context.Canceled)
}

func TestMemoryStore_ConcurrentAccess(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			key := fmt.Sprintf("k%d", i)
			assert.NoError(t, s.Set(ctx, key, "v"))
			_, err := s.Get(ctx, key)
			assert.NoError(t, err)
		}(i)
	}
	wg.Wait()

	v, err := s.Get(ctx, "k49")
	require.NoError(t, err)
	assert.Equal(t, "v", v)
}
