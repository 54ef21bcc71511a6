package cache

import (
	"context"
	"testing"
	"time"

	"vogue/localstore"
	"vogue/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type clock struct{ t time.Time }

func (c *clock) now() time.Time          { return c.t }
func (c *clock) advance(d time.Duration) { c.t = c.t.Add(d) }

func TestProductCacheTTL(t *testing.T) {
	ctx := context.Background()
	clk := &clock{t: time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)}
	c := NewProductCache(localstore.NewMemory(), nil)
	c.Now = clk.now

	p := models.Product{ID: "1", Name: "Вечернее платье", Price: 4500, Stock: 10}
	c.Put(ctx, p)

	got, ok := c.Get(ctx, "1")
	require.True(t, ok)
	assert.Equal(t, p, got)

	clk.advance(4*time.Minute + 59*time.Second)
	_, ok = c.Get(ctx, "1")
	assert.True(t, ok)

	clk.advance(time.Second)
	_, ok = c.Get(ctx, "1")
	assert.False(t, ok, "entry must be stale once the TTL has elapsed")
}

func TestProductCacheCorruptEntryIsMiss(t *testing.T) {
	ctx := context.Background()
	store := localstore.NewMemory()
	require.NoError(t, store.Set(ctx, "product_9", "garbage"))

	_, ok := NewProductCache(store, nil).Get(ctx, "9")
	assert.False(t, ok)
}

func TestListingCacheTTL(t *testing.T) {
	ctx := context.Background()
	clk := &clock{t: time.Unix(1_700_000_000, 0)}
	c := NewListingCache(localstore.NewMemory(), nil)
	c.Now = clk.now

	_, ok := c.Get(ctx)
	require.False(t, ok)

	c.Put(ctx, []models.Product{{ID: "1"}, {ID: "2"}})
	got, ok := c.Get(ctx)
	require.True(t, ok)
	assert.Len(t, got, 2)

	clk.advance(time.Hour)
	_, ok = c.Get(ctx)
	assert.False(t, ok)
}
