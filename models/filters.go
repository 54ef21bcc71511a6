package models

// Sort keys understood by the catalog.
const (
	SortNewest    = "newest"
	SortPriceLow  = "price-low"
	SortPriceHigh = "price-high"
	SortPopular   = "popular"
	SortRating    = "rating"
	SortDiscount  = "discount"
	SortManual    = "manual"
)

// Special flags a product may be filtered by.
const (
	SpecialNew       = "new"
	SpecialSale      = "sale"
	SpecialExclusive = "exclusive"
	SpecialLimited   = "limited"
)

const (
	CategoryAll     = "all"
	DefaultPriceMax = 100000
)

type PriceRange struct {
	Min float64 `json:"min"`
	Max float64 `json:"max"`
}

// FilterState is the user's catalog filter selection.
type FilterState struct {
	Category string     `json:"category"`
	Price    PriceRange `json:"price"`
	Brands   []string   `json:"brands"`
	Colors   []string   `json:"colors"`
	Sizes    []string   `json:"sizes"`
	Specials []string   `json:"specials"`
	Sort     string     `json:"sort"`
	View     string     `json:"view"`
	GridSize int        `json:"gridSize"`
}

func DefaultFilterState() FilterState {
	return FilterState{
		Category: CategoryAll,
		Price:    PriceRange{Min: 0, Max: DefaultPriceMax},
		Brands:   []string{},
		Colors:   []string{},
		Sizes:    []string{},
		Specials: []string{},
		Sort:     SortNewest,
		View:     "grid",
		GridSize: 2,
	}
}

// Clone returns a deep copy so callers can't alias the store's slices.
func (f FilterState) Clone() FilterState {
	out := f
	out.Brands = append([]string{}, f.Brands...)
	out.Colors = append([]string{}, f.Colors...)
	out.Sizes = append([]string{}, f.Sizes...)
	out.Specials = append([]string{}, f.Specials...)
	return out
}
