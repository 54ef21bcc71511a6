package localstore

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryRoundTrip(t *testing.T) {
	ctx := context.Background()
	s := NewMemory()

	_, err := s.Get(ctx, "missing")
	require.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, SetJSON(ctx, s, "wishlist", []string{"1", "7"}))
	var got []string
	require.NoError(t, GetJSON(ctx, s, "wishlist", &got))
	assert.Equal(t, []string{"1", "7"}, got)
}

func TestGetJSONCorrupt(t *testing.T) {
	ctx := context.Background()
	s := NewMemory()
	require.NoError(t, s.Set(ctx, "vogue_elite_cart", "{not json"))

	var v []int
	err := GetJSON(ctx, s, "vogue_elite_cart", &v)
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, err, ErrCorrupt)
}

func TestClearPrefix(t *testing.T) {
	ctx := context.Background()
	s := NewMemory()
	for _, k := range []string{"product_1", "product_2", "compare"} {
		require.NoError(t, s.Set(ctx, k, "x"))
	}

	require.NoError(t, Clear(ctx, s, "product_"))

	keys, err := s.Keys(ctx, "")
	require.NoError(t, err)
	assert.Equal(t, []string{"compare"}, keys)
}
