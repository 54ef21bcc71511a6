// Package catalog holds the product listing, the user's filter selection and
// the derived, paginated view.
package catalog

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"math"
	"slices"
	"strconv"
	"strings"
	"sync"
	"time"

	"vogue/cache"
	"vogue/localstore"
	"vogue/models"
	"vogue/notify"

	"go.uber.org/zap"
)

const (
	FiltersKey = "catalog_filters"
	OrderKey   = "product_order"

	PerPage = 12
)

// ErrUnknownFilter is returned for filter names the catalog doesn't know.
var ErrUnknownFilter = errors.New("catalog: unknown filter")

// Source is the upstream product listing.
type Source interface {
	FetchProducts(ctx context.Context) ([]models.Product, error)
	FetchQuickView(ctx context.Context, id string) (models.QuickView, error)
}

// Renderer receives the derived view after every recompute.
type Renderer interface {
	RenderCatalog(v View)
}

// ListSyncer takes the full wishlist or compare list after a toggle.
type ListSyncer interface {
	Push(ids []string)
}

// Origin reports where LoadProducts got its products from.
type Origin string

const (
	OriginCache  Origin = "cache"
	OriginRemote Origin = "remote"
	OriginDemo   Origin = "demo"
)

// View is a read-only snapshot of the current page.
type View struct {
	Products   []models.Product   `json:"products"`
	Total      int                `json:"total"`
	Page       int                `json:"page"`
	TotalPages int                `json:"total_pages"`
	Filters    models.FilterState `json:"filters"`
	Query      string             `json:"query,omitempty"`
}

type Options struct {
	Storage      localstore.Store
	Source       Source
	Listing      *cache.ListingCache
	Notifier     notify.Notifier
	Renderer     Renderer
	WishlistSync ListSyncer
	CompareSync  ListSyncer
	Log          *zap.Logger

	Now func() time.Time
	// Seed feeds the demo generator.
	Seed uint64
}

type Store struct {
	opts Options
	log  *zap.Logger

	mu         sync.Mutex
	products   []models.Product
	filtered   []models.Product
	filters    models.FilterState
	query      string
	page       int
	totalPages int
	wishlist   []string
	compare    []string
}

func New(opts Options) *Store {
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
	return &Store{
		opts:       opts,
		log:        opts.Log,
		filters:    models.DefaultFilterState(),
		page:       1,
		totalPages: 1,
	}
}

// LoadProducts fills the base list from the listing cache, then the upstream,
// then the demo set. It never fails. A persisted manual order is applied to
// the result and the view is recomputed.
func (s *Store) LoadProducts(ctx context.Context) Origin {
	products, origin := s.fetch(ctx)
	order := s.loadOrder(ctx)

	s.mu.Lock()
	s.products = applyOrder(products, order)
	v := s.recomputeLocked()
	s.mu.Unlock()

	s.log.Info("catalog loaded", zap.String("origin", string(origin)), zap.Int("products", len(products)))
	s.render(v)
	return origin
}

func (s *Store) fetch(ctx context.Context) ([]models.Product, Origin) {
	if s.opts.Listing != nil {
		if ps, ok := s.opts.Listing.Get(ctx); ok {
			return ps, OriginCache
		}
	}
	if s.opts.Source != nil {
		ps, err := s.opts.Source.FetchProducts(ctx)
		if err == nil {
			if s.opts.Listing != nil {
				s.opts.Listing.Put(ctx, ps)
			}
			return ps, OriginRemote
		}
		s.log.Warn("product listing unavailable, using demo set", zap.Error(err))
	}
	return Demo(s.opts.Now(), s.opts.Seed), OriginDemo
}

// ApplyFilters recomputes the filtered list from the full list, persists the
// filter state and renders. Any active search is dropped.
func (s *Store) ApplyFilters(ctx context.Context) View {
	s.mu.Lock()
	s.query = ""
	v := s.recomputeLocked()
	filters := s.filters.Clone()
	s.mu.Unlock()

	if err := localstore.SetJSON(ctx, s.opts.Storage, FiltersKey, filters); err != nil {
		s.log.Error("save filters failed", zap.Error(err))
	}
	s.render(v)
	return v
}

// SearchProducts matches every whitespace-separated term, case-insensitively,
// against name, category, brand, color and description across the full list.
// Filters are ignored while a search is active; a blank query goes back to
// ApplyFilters.
func (s *Store) SearchProducts(ctx context.Context, query string) View {
	if strings.TrimSpace(query) == "" {
		return s.ApplyFilters(ctx)
	}
	s.mu.Lock()
	s.query = query
	v := s.recomputeLocked()
	s.mu.Unlock()

	s.render(v)
	return v
}

// SetFilter replaces a filter value. List filters take any number of values;
// scalar filters use the first.
func (s *Store) SetFilter(ctx context.Context, name string, values ...string) error {
	first := ""
	if len(values) > 0 {
		first = values[0]
	}
	s.mu.Lock()
	switch name {
	case "category":
		if first == "" {
			first = models.CategoryAll
		}
		s.filters.Category = first
	case "sort":
		s.filters.Sort = first
	case "view":
		s.filters.View = first
	case "gridSize":
		n, err := strconv.Atoi(first)
		if err != nil || n < 1 {
			s.mu.Unlock()
			return fmt.Errorf("catalog: grid size %q: invalid", first)
		}
		s.filters.GridSize = n
	default:
		list := s.listLocked(name)
		if list == nil {
			s.mu.Unlock()
			return fmt.Errorf("%w: %s", ErrUnknownFilter, name)
		}
		*list = append([]string{}, values...)
	}
	s.mu.Unlock()

	s.ApplyFilters(ctx)
	return nil
}

// ToggleFilter adds value to a list filter, or removes it if present.
func (s *Store) ToggleFilter(ctx context.Context, name, value string) error {
	s.mu.Lock()
	list := s.listLocked(name)
	if list == nil {
		s.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrUnknownFilter, name)
	}
	if i := slices.Index(*list, value); i >= 0 {
		*list = slices.Delete(*list, i, i+1)
	} else {
		*list = append(*list, value)
	}
	s.mu.Unlock()

	s.ApplyFilters(ctx)
	return nil
}

func (s *Store) SetPriceRange(ctx context.Context, lo, hi float64) {
	s.mu.Lock()
	s.filters.Price = models.PriceRange{Min: lo, Max: hi}
	s.mu.Unlock()
	s.ApplyFilters(ctx)
}

func (s *Store) ResetFilters(ctx context.Context) View {
	s.mu.Lock()
	s.filters = models.DefaultFilterState()
	s.mu.Unlock()
	v := s.ApplyFilters(ctx)
	s.opts.Notifier.Show("Фильтры сброшены", models.KindInfo)
	return v
}

func (s *Store) listLocked(name string) *[]string {
	switch name {
	case "brands":
		return &s.filters.Brands
	case "colors":
		return &s.filters.Colors
	case "sizes":
		return &s.filters.Sizes
	case "specials":
		return &s.filters.Specials
	}
	return nil
}

// GoToPage moves to page p. Out-of-range pages and the current page are
// ignored.
func (s *Store) GoToPage(p int) bool {
	s.mu.Lock()
	if p < 1 || p > s.totalPages || p == s.page {
		s.mu.Unlock()
		return false
	}
	s.page = p
	v := s.viewLocked()
	s.mu.Unlock()

	s.render(v)
	return true
}

// Reorder moves the listed products to the front of the base list in the
// given order, keeping the rest in place, and persists the order.
func (s *Store) Reorder(ctx context.Context, ids []string) {
	if err := localstore.SetJSON(ctx, s.opts.Storage, OrderKey, ids); err != nil {
		s.log.Error("save product order failed", zap.Error(err))
	}
	s.mu.Lock()
	s.products = applyOrder(s.products, ids)
	v := s.recomputeLocked()
	s.mu.Unlock()
	s.render(v)
}

// RestoreState reloads the persisted filters and product order. Corrupt
// entries fall back to the defaults.
func (s *Store) RestoreState(ctx context.Context) {
	filters := models.DefaultFilterState()
	err := localstore.GetJSON(ctx, s.opts.Storage, FiltersKey, &filters)
	if err != nil {
		if !errors.Is(err, localstore.ErrNotFound) {
			s.log.Warn("stored filters unreadable, using defaults", zap.Error(err))
		}
		filters = models.DefaultFilterState()
	}
	normalizeFilters(&filters)
	order := s.loadOrder(ctx)

	s.mu.Lock()
	s.filters = filters
	s.products = applyOrder(s.products, order)
	v := s.recomputeLocked()
	s.mu.Unlock()
	s.render(v)
}

func (s *Store) loadOrder(ctx context.Context) []string {
	var order []string
	err := localstore.GetJSON(ctx, s.opts.Storage, OrderKey, &order)
	if err != nil && !errors.Is(err, localstore.ErrNotFound) {
		s.log.Warn("stored product order unreadable", zap.Error(err))
		return nil
	}
	return order
}

// QuickView returns the extended detail for a loaded product, falling back to
// the listing data when the upstream can't provide it.
func (s *Store) QuickView(ctx context.Context, id string) (models.QuickView, bool) {
	p, ok := s.Product(id)
	if !ok {
		return models.QuickView{}, false
	}
	if s.opts.Source != nil {
		qv, err := s.opts.Source.FetchQuickView(ctx, id)
		if err == nil {
			return qv, true
		}
		s.log.Debug("quick view detail unavailable", zap.String("product_id", id), zap.Error(err))
	}
	return models.QuickView{Product: p}, true
}

// Product looks a product up in the loaded list.
func (s *Store) Product(id string) (models.Product, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, p := range s.products {
		if p.ID == id {
			return p, true
		}
	}
	return models.Product{}, false
}

// Products returns a copy of the full base list.
func (s *Store) Products() []models.Product {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.products)
}

func (s *Store) Filters() models.FilterState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.filters.Clone()
}

func (s *Store) Snapshot() View {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.viewLocked()
}

// recomputeLocked derives the filtered (or searched) list, sorts it and
// re-clamps the current page.
func (s *Store) recomputeLocked() View {
	if s.query != "" {
		s.filtered = search(s.products, s.query)
	} else {
		s.filtered = filter(s.products, s.filters)
	}
	sortProducts(s.filtered, s.filters.Sort)

	s.totalPages = int(math.Ceil(float64(len(s.filtered)) / PerPage))
	s.page = min(max(s.page, 1), max(s.totalPages, 1))
	return s.viewLocked()
}

func (s *Store) viewLocked() View {
	start := min((s.page-1)*PerPage, len(s.filtered))
	end := min(start+PerPage, len(s.filtered))
	return View{
		Products:   slices.Clone(s.filtered[start:end]),
		Total:      len(s.filtered),
		Page:       s.page,
		TotalPages: s.totalPages,
		Filters:    s.filters.Clone(),
		Query:      s.query,
	}
}

func (s *Store) render(v View) {
	if s.opts.Renderer != nil {
		s.opts.Renderer.RenderCatalog(v)
	}
}

func filter(products []models.Product, f models.FilterState) []models.Product {
	out := make([]models.Product, 0, len(products))
	for _, p := range products {
		if f.Category != models.CategoryAll && f.Category != "" && p.Category != f.Category {
			continue
		}
		if p.Price < f.Price.Min || p.Price > f.Price.Max {
			continue
		}
		if len(f.Brands) > 0 && !slices.Contains(f.Brands, p.Brand) {
			continue
		}
		if len(f.Colors) > 0 && !slices.Contains(f.Colors, p.Color) {
			continue
		}
		if len(f.Sizes) > 0 && !slices.Contains(f.Sizes, p.Size) {
			continue
		}
		if len(f.Specials) > 0 && !slices.ContainsFunc(f.Specials, func(sp string) bool { return hasSpecial(p, sp) }) {
			continue
		}
		out = append(out, p)
	}
	return out
}

func hasSpecial(p models.Product, special string) bool {
	switch special {
	case models.SpecialNew:
		return p.IsNew
	case models.SpecialSale:
		return p.Discount > 0
	case models.SpecialExclusive:
		return p.IsExclusive
	case models.SpecialLimited:
		return p.IsLimited
	}
	return false
}

func search(products []models.Product, query string) []models.Product {
	terms := strings.Fields(strings.ToLower(query))
	out := make([]models.Product, 0)
	for _, p := range products {
		text := strings.ToLower(strings.Join([]string{p.Name, p.Category, p.Brand, p.Color, p.Description}, " "))
		match := true
		for _, t := range terms {
			if !strings.Contains(text, t) {
				match = false
				break
			}
		}
		if match {
			out = append(out, p)
		}
	}
	return out
}

// sortProducts orders in place; ties keep their base order.
func sortProducts(ps []models.Product, key string) {
	var by func(a, b models.Product) int
	switch key {
	case models.SortManual:
		return
	case models.SortPriceLow:
		by = func(a, b models.Product) int { return cmp.Compare(a.DiscountedPrice(), b.DiscountedPrice()) }
	case models.SortPriceHigh:
		by = func(a, b models.Product) int { return cmp.Compare(b.DiscountedPrice(), a.DiscountedPrice()) }
	case models.SortPopular, models.SortRating:
		by = func(a, b models.Product) int { return cmp.Compare(b.Rating, a.Rating) }
	case models.SortDiscount:
		by = func(a, b models.Product) int { return cmp.Compare(b.Discount, a.Discount) }
	default:
		by = func(a, b models.Product) int { return b.CreatedAt.Compare(a.CreatedAt) }
	}
	slices.SortStableFunc(ps, by)
}

// applyOrder moves the products named in order to the front, in that order.
// Unknown ids are skipped; the remaining products follow in their old order.
func applyOrder(products []models.Product, order []string) []models.Product {
	if len(order) == 0 {
		return products
	}
	byID := make(map[string]int, len(products))
	for i, p := range products {
		byID[p.ID] = i
	}
	used := make([]bool, len(products))
	out := make([]models.Product, 0, len(products))
	for _, id := range order {
		i, ok := byID[id]
		if !ok || used[i] {
			continue
		}
		used[i] = true
		out = append(out, products[i])
	}
	for i, p := range products {
		if !used[i] {
			out = append(out, p)
		}
	}
	return out
}

func normalizeFilters(f *models.FilterState) {
	d := models.DefaultFilterState()
	if f.Category == "" {
		f.Category = d.Category
	}
	if f.Sort == "" {
		f.Sort = d.Sort
	}
	if f.View == "" {
		f.View = d.View
	}
	if f.GridSize < 1 {
		f.GridSize = d.GridSize
	}
	if f.Brands == nil {
		f.Brands = []string{}
	}
	if f.Colors == nil {
		f.Colors = []string{}
	}
	if f.Sizes == nil {
		f.Sizes = []string{}
	}
	if f.Specials == nil {
		f.Specials = []string{}
	}
}
