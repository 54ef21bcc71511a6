// Package cart owns the shopping cart line items.
package cart

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"vogue/localstore"
	"vogue/models"
	"vogue/notify"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	StorageKey   = "vogue_elite_cart"
	backupPrefix = StorageKey + "_backup_"

	DefaultRemoveDelay    = 300 * time.Millisecond
	DefaultClearStepDelay = 100 * time.Millisecond
)

// Resolver looks up current product details, including stock.
type Resolver interface {
	Resolve(ctx context.Context, id string) (models.Product, bool)
}

// Syncer receives the full item list after every mutation.
type Syncer interface {
	Push(items []models.CartItem)
}

// Renderer is handed an immutable view after every mutation.
type Renderer interface {
	RenderCart(v View)
	ItemAdded(productID string)
}

// Confirmer asks the user before destructive operations.
type Confirmer func(ctx context.Context, prompt string) bool

// View is a read-only snapshot of the cart.
type View struct {
	Items      []models.CartItem `json:"items"`
	TotalItems int               `json:"total_items"`
	TotalPrice float64           `json:"total_price"`
}

type Options struct {
	Storage  localstore.Store
	Resolver Resolver
	Notifier notify.Notifier
	Renderer Renderer
	Sync     Syncer
	Confirm  Confirmer
	Log      *zap.Logger

	Now            func() time.Time
	NewID          func() string
	RemoveDelay    time.Duration
	ClearStepDelay time.Duration
}

type Store struct {
	opts Options
	log  *zap.Logger

	mu    sync.Mutex
	items []models.CartItem
}

// New builds a store and loads the persisted cart. A corrupt blob yields an
// empty cart.
func New(ctx context.Context, opts Options) *Store {
	if opts.Log == nil {
		opts.Log = zap.NewNop()
	}
	if opts.Storage == nil {
		opts.Storage = localstore.NewMemory()
	}
	if opts.Notifier == nil {
		opts.Notifier = notify.Discard
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.NewID == nil {
		opts.NewID = uuid.NewString
	}
	s := &Store{opts: opts, log: opts.Log}
	s.load(ctx)
	return s
}

// Reload re-reads the persisted cart, dropping the in-memory copy.
func (s *Store) Reload(ctx context.Context) {
	s.load(ctx)
	s.mu.Lock()
	v := viewOf(s.items)
	s.mu.Unlock()
	if s.opts.Renderer != nil {
		s.opts.Renderer.RenderCart(v)
	}
}

func (s *Store) load(ctx context.Context) {
	var items []models.CartItem
	err := localstore.GetJSON(ctx, s.opts.Storage, StorageKey, &items)
	switch {
	case errors.Is(err, localstore.ErrNotFound):
		items = nil
	case err != nil:
		s.log.Error("cart load failed, starting empty", zap.Error(err))
		items = nil
	}
	s.mu.Lock()
	s.items = items
	s.mu.Unlock()
	s.log.Debug("cart loaded", zap.Int("lines", len(items)))
}

// AddItem adds quantity of productID with the given options, merging into an
// existing line with identical options. It reports false when the product
// can't be resolved or is out of stock.
func (s *Store) AddItem(ctx context.Context, productID string, quantity int, options map[string]string) bool {
	product, ok := s.resolve(ctx, productID)
	if !ok {
		s.opts.Notifier.Show("Товар не найден", models.KindError)
		return false
	}
	if product.Stock <= 0 {
		s.opts.Notifier.Show(fmt.Sprintf("%s нет в наличии", product.Name), models.KindWarning)
		return false
	}
	if quantity < 1 {
		quantity = 1
	}
	if quantity > product.Stock {
		s.opts.Notifier.Show(fmt.Sprintf("Доступно только %d шт. на складе", product.Stock), models.KindWarning)
		quantity = product.Stock
	}

	s.mu.Lock()
	merged := -1
	for i := range s.items {
		if s.items[i].ProductID == productID && models.SameOptions(s.items[i].Options, options) {
			merged = i
			break
		}
	}
	var message string
	if merged >= 0 {
		q := clampQuantity(s.items[merged].Quantity+quantity, product.Stock)
		s.items[merged].Quantity = q
		message = fmt.Sprintf("Количество товара обновлено: %d шт.", q)
	} else {
		opts := copyOptions(options)
		s.items = append(s.items, models.CartItem{
			ID:            s.opts.NewID(),
			ProductID:     productID,
			Product:       product.Snapshot(),
			Quantity:      quantity,
			Options:       opts,
			AddedAt:       s.opts.Now(),
			SelectedSize:  opts["size"],
			SelectedColor: opts["color"],
		})
		message = "Товар добавлен в корзину!"
	}
	kind := models.KindSuccess
	if merged >= 0 {
		kind = models.KindInfo
	}
	items := s.commitLocked(ctx)
	s.mu.Unlock()

	s.afterMutation(items)
	s.opts.Notifier.Show(message, kind)
	if s.opts.Renderer != nil {
		s.opts.Renderer.ItemAdded(productID)
	}
	return true
}

// UpdateQuantity sets a line's quantity, coerced to at least 1 and clamped to
// the product's current stock.
func (s *Store) UpdateQuantity(ctx context.Context, itemID string, quantity int) bool {
	s.mu.Lock()
	idx := s.indexLocked(itemID)
	var productID string
	if idx >= 0 {
		productID = s.items[idx].ProductID
	}
	s.mu.Unlock()
	if idx < 0 {
		return false
	}

	product, ok := s.resolve(ctx, productID)
	if !ok {
		return false
	}
	if quantity < 1 {
		quantity = 1
	}
	if product.Stock >= 1 && quantity > product.Stock {
		s.opts.Notifier.Show(fmt.Sprintf("Доступно только %d шт. на складе", product.Stock), models.KindWarning)
		quantity = product.Stock
	}

	s.mu.Lock()
	// the line may have gone while we were resolving
	idx = s.indexLocked(itemID)
	if idx < 0 {
		s.mu.Unlock()
		return false
	}
	s.items[idx].Quantity = quantity
	items := s.commitLocked(ctx)
	s.mu.Unlock()

	s.afterMutation(items)
	s.opts.Notifier.Show(fmt.Sprintf("Количество обновлено: %d шт.", quantity), models.KindInfo)
	return true
}

// UpdateQuantityInput parses the leading integer of raw user input, so "3abc"
// is 3 and "2.5" is 2; input without one becomes 1.
func (s *Store) UpdateQuantityInput(ctx context.Context, itemID, raw string) bool {
	return s.UpdateQuantity(ctx, itemID, leadingInt(raw))
}

func leadingInt(raw string) int {
	raw = strings.TrimSpace(raw)
	end := 0
	if end < len(raw) && (raw[end] == '-' || raw[end] == '+') {
		end++
	}
	digits := end
	for end < len(raw) && raw[end] >= '0' && raw[end] <= '9' {
		end++
	}
	if end == digits {
		return 1
	}
	n, err := strconv.Atoi(raw[:end])
	if err != nil {
		return 1
	}
	return n
}

// ChangeQuantity adds delta to a line, removing it when it would drop below 1.
func (s *Store) ChangeQuantity(ctx context.Context, itemID string, delta int) bool {
	s.mu.Lock()
	idx := s.indexLocked(itemID)
	current := 0
	if idx >= 0 {
		current = s.items[idx].Quantity
	}
	s.mu.Unlock()
	if idx < 0 {
		return false
	}
	if current+delta < 1 {
		return s.RemoveItem(ctx, itemID)
	}
	return s.UpdateQuantity(ctx, itemID, current+delta)
}

// RemoveItem deletes a line after the removal delay.
func (s *Store) RemoveItem(ctx context.Context, itemID string) bool {
	s.mu.Lock()
	found := s.indexLocked(itemID) >= 0
	s.mu.Unlock()
	if !found {
		return false
	}
	if err := sleep(ctx, s.opts.RemoveDelay); err != nil {
		return false
	}

	s.mu.Lock()
	idx := s.indexLocked(itemID)
	if idx < 0 {
		s.mu.Unlock()
		return false
	}
	s.items = append(s.items[:idx], s.items[idx+1:]...)
	items := s.commitLocked(ctx)
	s.mu.Unlock()

	s.afterMutation(items)
	s.opts.Notifier.Show("Товар удален из корзины", models.KindInfo)
	return true
}

// ClearCart empties the cart once the user confirms. The wait before the
// items go scales with the number of lines.
func (s *Store) ClearCart(ctx context.Context) bool {
	s.mu.Lock()
	n := len(s.items)
	s.mu.Unlock()
	if n == 0 {
		return false
	}
	if s.opts.Confirm != nil && !s.opts.Confirm(ctx, "Вы уверены, что хотите очистить корзину?") {
		return false
	}
	if err := sleep(ctx, time.Duration(n)*s.opts.ClearStepDelay); err != nil {
		return false
	}

	s.mu.Lock()
	s.items = nil
	items := s.commitLocked(ctx)
	s.mu.Unlock()

	s.afterMutation(items)
	s.opts.Notifier.Show("Корзина очищена", models.KindInfo)
	return true
}

// Items returns a copy of the lines.
func (s *Store) Items() []models.CartItem {
	s.mu.Lock()
	defer s.mu.Unlock()
	return cloneItems(s.items)
}

func (s *Store) IsEmpty() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.items) == 0
}

func (s *Store) TotalItems() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return totalItems(s.items)
}

func (s *Store) TotalPrice() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return totalPrice(s.items)
}

func (s *Store) Snapshot() View {
	s.mu.Lock()
	defer s.mu.Unlock()
	return viewOf(s.items)
}

// Resync pushes the current items again, e.g. from a periodic task.
func (s *Store) Resync() {
	if s.opts.Sync != nil {
		s.opts.Sync.Push(s.Items())
	}
}

func (s *Store) resolve(ctx context.Context, id string) (models.Product, bool) {
	if s.opts.Resolver == nil {
		return models.Product{}, false
	}
	return s.opts.Resolver.Resolve(ctx, id)
}

func (s *Store) indexLocked(itemID string) int {
	for i := range s.items {
		if s.items[i].ID == itemID {
			return i
		}
	}
	return -1
}

// commitLocked persists the items and returns a copy for rendering and sync.
func (s *Store) commitLocked(ctx context.Context) []models.CartItem {
	items := s.items
	if items == nil {
		items = []models.CartItem{}
	}
	if err := localstore.SetJSON(ctx, s.opts.Storage, StorageKey, items); err != nil {
		s.log.Error("cart save failed", zap.Error(err))
	}
	return cloneItems(s.items)
}

func (s *Store) afterMutation(items []models.CartItem) {
	if s.opts.Renderer != nil {
		s.opts.Renderer.RenderCart(viewOf(items))
	}
	if s.opts.Sync != nil {
		s.opts.Sync.Push(items)
	}
}

func viewOf(items []models.CartItem) View {
	return View{Items: cloneItems(items), TotalItems: totalItems(items), TotalPrice: totalPrice(items)}
}

func totalItems(items []models.CartItem) int {
	n := 0
	for _, it := range items {
		n += it.Quantity
	}
	return n
}

func totalPrice(items []models.CartItem) float64 {
	sum := 0.0
	for _, it := range items {
		sum += it.LineTotal()
	}
	return sum
}

func cloneItems(items []models.CartItem) []models.CartItem {
	out := make([]models.CartItem, len(items))
	for i, it := range items {
		it.Options = copyOptions(it.Options)
		out[i] = it
	}
	return out
}

func copyOptions(in map[string]string) map[string]string {
	out := make(map[string]string, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
