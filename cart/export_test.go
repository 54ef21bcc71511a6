package cart

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"vogue/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExportImport(t *testing.T) {
	ctx := context.Background()
	s, _ := newStore(t, nil)
	require.True(t, s.AddItem(ctx, "1", 2, nil))

	data, err := s.ExportJSON()
	require.NoError(t, err)
	var doc Export
	require.NoError(t, json.Unmarshal(data, &doc))
	assert.Equal(t, 2, doc.TotalItems)
	assert.InDelta(t, 9000, doc.TotalPrice, 1e-9)

	other, _ := newStore(t, nil)
	require.True(t, other.ImportJSON(ctx, data))
	require.Len(t, other.Items(), 1)
	assert.Equal(t, s.Items()[0].ID, other.Items()[0].ID)
	assert.Equal(t, 2, other.TotalItems())

	assert.False(t, other.ImportJSON(ctx, []byte(`{"items": 3}`)))
	assert.False(t, other.ImportJSON(ctx, []byte(`{}`)))
	assert.Equal(t, 2, other.TotalItems())
}

func TestBackupRestore(t *testing.T) {
	ctx := context.Background()
	s, _ := newStore(t, nil)
	s.opts.Now = func() time.Time { return time.UnixMilli(1_700_000_000_000) }
	require.True(t, s.AddItem(ctx, "1", 1, nil))

	key, err := s.Backup(ctx)
	require.NoError(t, err)
	assert.Equal(t, "vogue_elite_cart_backup_1700000000000", key)

	require.True(t, s.ClearCart(ctx))
	require.True(t, s.RestoreBackup(ctx, key))
	assert.Equal(t, 1, s.TotalItems())

	keys, err := s.Backups(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{key}, keys)

	assert.False(t, s.RestoreBackup(ctx, "wishlist"))
}

func TestImportNormalizesLines(t *testing.T) {
	ctx := context.Background()
	s, _ := newStore(t, nil)
	gloves := `"product":{"id":"3","price":350,"stock":3}`
	doc := `{"items":[
		{"id":"a","product_id":"3",` + gloves + `,"quantity":-4},
		{"id":"b","product_id":"3",` + gloves + `,"quantity":99},
		{"id":"c","product_id":"3",` + gloves + `,"quantity":1,"options":{"size":"M"}},
		{"id":"","product_id":"1","quantity":1},
		{"id":"d","product_id":"","quantity":1}
	]}`
	require.True(t, s.ImportJSON(ctx, []byte(doc)))

	items := s.Items()
	require.Len(t, items, 2)
	assert.Equal(t, "a", items[0].ID)
	assert.Equal(t, 3, items[0].Quantity)
	assert.Equal(t, "c", items[1].ID)
	assert.Equal(t, 1, items[1].Quantity)

	require.True(t, s.AddItem(ctx, "3", 1, nil))
	for _, it := range s.Items() {
		assert.GreaterOrEqual(t, it.Quantity, 1)
		assert.LessOrEqual(t, it.Quantity, 3)
	}
	assert.Equal(t, 4, s.TotalItems())
	assert.InDelta(t, 1400, s.TotalPrice(), 1e-9)
}

func TestReplaceKeepsQuantityAboveZero(t *testing.T) {
	ctx := context.Background()
	s, _ := newStore(t, nil)
	s.Replace(ctx, []models.CartItem{{ID: "x", ProductID: "1", Quantity: 0}})
	require.Len(t, s.Items(), 1)
	assert.Equal(t, 1, s.Items()[0].Quantity)

	require.True(t, s.AddItem(ctx, "1", 2, nil))
	assert.Equal(t, 3, s.Items()[0].Quantity)
}
