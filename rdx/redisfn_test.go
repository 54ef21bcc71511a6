package rdx

import (
	"context"
	"sort"
	"testing"

	"vogue/localstore"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestConn(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	conn := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = conn.Close() })
	return mr, conn
}

func TestSessionStoreNamespacing(t *testing.T) {
	ctx := context.Background()
	mr, conn := newTestConn(t)

	a := SessionStore(conn, "a")
	b := SessionStore(conn, "b")
	require.NoError(t, a.Set(ctx, "vogue_elite_cart", "[]"))

	_, err := b.Get(ctx, "vogue_elite_cart")
	require.ErrorIs(t, err, localstore.ErrNotFound)

	v, err := a.Get(ctx, "vogue_elite_cart")
	require.NoError(t, err)
	assert.Equal(t, "[]", v)
	assert.True(t, mr.Exists("session:a:vogue_elite_cart"))
	assert.True(t, mr.TTL("session:a:vogue_elite_cart") > 0)
}

func TestKeysAndDrop(t *testing.T) {
	ctx := context.Background()
	_, conn := newTestConn(t)
	s := SessionStore(conn, "s1")
	for _, k := range []string{"product_1", "product_2", "wishlist"} {
		require.NoError(t, s.Set(ctx, k, "x"))
	}

	keys, err := s.Keys(ctx, "product_")
	require.NoError(t, err)
	sort.Strings(keys)
	assert.Equal(t, []string{"product_1", "product_2"}, keys)

	require.NoError(t, DropSession(ctx, conn, "s1"))
	keys, err = s.Keys(ctx, "")
	require.NoError(t, err)
	assert.Empty(t, keys)
}
