package catalog

import (
	"context"
	"testing"

	"vogue/localstore"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestToggleWishlist(t *testing.T) {
	ctx := context.Background()
	storage := localstore.NewMemory()
	n := &notes{}
	wl := &listPushes{}
	s := New(Options{Storage: storage, Notifier: n, WishlistSync: wl})

	assert.True(t, s.ToggleWishlist(ctx, "4"))
	assert.True(t, s.ToggleWishlist(ctx, "7"))
	assert.True(t, s.InWishlist("4"))
	assert.False(t, s.ToggleWishlist(ctx, "4"))

	assert.Equal(t, []string{"7"}, s.WishlistIDs())
	assert.Equal(t, [][]string{{"4"}, {"4", "7"}, {"7"}}, wl.got)
	assert.Equal(t, "Удалено из избранного", n.shown[len(n.shown)-1])

	var stored []string
	require.NoError(t, localstore.GetJSON(ctx, storage, Wishlist, &stored))
	assert.Equal(t, []string{"7"}, stored)
}

func TestCompareIsIndependent(t *testing.T) {
	ctx := context.Background()
	cmp := &listPushes{}
	s := New(Options{CompareSync: cmp})

	assert.True(t, s.ToggleCompare(ctx, "1"))
	assert.Empty(t, s.WishlistIDs())
	assert.Equal(t, []string{"1"}, s.CompareIDs())
	assert.Len(t, cmp.got, 1)
}

func TestLoadListsAndSetList(t *testing.T) {
	ctx := context.Background()
	storage := localstore.NewMemory()
	require.NoError(t, storage.Set(ctx, Compare, "{broken"))
	require.NoError(t, localstore.SetJSON(ctx, storage, Wishlist, []string{"2", "3"}))

	s := New(Options{Storage: storage})
	s.LoadLists(ctx)
	assert.Equal(t, []string{"2", "3"}, s.WishlistIDs())
	assert.Empty(t, s.CompareIDs())

	s.SetList(ctx, Compare, []string{"9"})
	assert.Equal(t, []string{"9"}, s.CompareIDs())
}
