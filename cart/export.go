package cart

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"vogue/localstore"
	"vogue/models"

	"go.uber.org/zap"
)

// Export is the document produced by ExportJSON.
type Export struct {
	Items      []models.CartItem `json:"items"`
	TotalItems int               `json:"total_items"`
	TotalPrice float64           `json:"total_price"`
	ExportDate time.Time         `json:"export_date"`
}

func (s *Store) ExportJSON() ([]byte, error) {
	v := s.Snapshot()
	return json.MarshalIndent(Export{
		Items:      v.Items,
		TotalItems: v.TotalItems,
		TotalPrice: v.TotalPrice,
		ExportDate: s.opts.Now().UTC(),
	}, "", "  ")
}

// ImportJSON replaces the cart with the items of an exported document.
func (s *Store) ImportJSON(ctx context.Context, data []byte) bool {
	var doc struct {
		Items *[]models.CartItem `json:"items"`
	}
	if err := json.Unmarshal(data, &doc); err != nil || doc.Items == nil {
		if err != nil {
			s.log.Warn("cart import failed", zap.Error(err))
		}
		s.opts.Notifier.Show("Ошибка импорта корзины", models.KindError)
		return false
	}
	s.Replace(ctx, *doc.Items)
	s.opts.Notifier.Show("Корзина импортирована", models.KindSuccess)
	return true
}

// Backup copies the cart to a timestamped key and returns it.
func (s *Store) Backup(ctx context.Context) (string, error) {
	key := backupPrefix + strconv.FormatInt(s.opts.Now().UnixMilli(), 10)
	if err := localstore.SetJSON(ctx, s.opts.Storage, key, s.Items()); err != nil {
		return "", fmt.Errorf("backup cart: %w", err)
	}
	return key, nil
}

// Backups lists backup keys, oldest first.
func (s *Store) Backups(ctx context.Context) ([]string, error) {
	return s.opts.Storage.Keys(ctx, backupPrefix)
}

// RestoreBackup replaces the cart with a previous backup.
func (s *Store) RestoreBackup(ctx context.Context, key string) bool {
	if !strings.HasPrefix(key, backupPrefix) {
		return false
	}
	var items []models.CartItem
	if err := localstore.GetJSON(ctx, s.opts.Storage, key, &items); err != nil {
		s.log.Warn("cart restore failed", zap.String("key", key), zap.Error(err))
		return false
	}
	s.Replace(ctx, items)
	s.opts.Notifier.Show("Корзина восстановлена", models.KindSuccess)
	return true
}

// Replace swaps in items wholesale, e.g. the server copy of the cart. Lines
// without an id or product are dropped, quantities are brought into
// [1, stock] and lines with the same product and options are merged.
func (s *Store) Replace(ctx context.Context, items []models.CartItem) {
	items = normalizeItems(items)
	s.mu.Lock()
	s.items = items
	out := s.commitLocked(ctx)
	s.mu.Unlock()
	s.afterMutation(out)
}

func normalizeItems(items []models.CartItem) []models.CartItem {
	out := make([]models.CartItem, 0, len(items))
	for _, it := range cloneItems(items) {
		if it.ID == "" || it.ProductID == "" {
			continue
		}
		merged := false
		for i := range out {
			if out[i].ProductID == it.ProductID && models.SameOptions(out[i].Options, it.Options) {
				out[i].Quantity = clampQuantity(out[i].Quantity+max(it.Quantity, 1), out[i].Product.Stock)
				merged = true
				break
			}
		}
		if !merged {
			it.Quantity = clampQuantity(it.Quantity, it.Product.Stock)
			out = append(out, it)
		}
	}
	return out
}

// clampQuantity keeps q within [1, stock]; an unknown stock (< 1) leaves the
// upper bound open.
func clampQuantity(q, stock int) int {
	if stock >= 1 && q > stock {
		q = stock
	}
	return max(q, 1)
}
