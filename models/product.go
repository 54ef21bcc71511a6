package models

import "time"

// Product is a catalog entry as served by the upstream API.
type Product struct {
	ID          string    `json:"id" bson:"productid"`
	Name        string    `json:"name" bson:"name"`
	Price       float64   `json:"price" bson:"price"`
	Discount    float64   `json:"discount,omitempty" bson:"discount,omitempty"` // percent, 0-100
	ImageURL    string    `json:"image_url" bson:"image_url"`
	Category    string    `json:"category" bson:"category"`
	Stock       int       `json:"stock" bson:"stock"`
	Brand       string    `json:"brand,omitempty" bson:"brand,omitempty"`
	Color       string    `json:"color,omitempty" bson:"color,omitempty"`
	Size        string    `json:"size,omitempty" bson:"size,omitempty"`
	Rating      float64   `json:"rating,omitempty" bson:"rating,omitempty"`
	IsNew       bool      `json:"is_new,omitempty" bson:"is_new,omitempty"`
	IsExclusive bool      `json:"is_exclusive,omitempty" bson:"is_exclusive,omitempty"`
	IsLimited   bool      `json:"is_limited,omitempty" bson:"is_limited,omitempty"`
	Description string    `json:"description,omitempty" bson:"description,omitempty"`
	CreatedAt   time.Time `json:"created_at" bson:"created_at"`
}

// DiscountedPrice returns the list price with the percentage discount applied.
func (p Product) DiscountedPrice() float64 {
	return p.Price * (1 - p.Discount/100)
}

// Snapshot copies the fields a cart line keeps at add time.
func (p Product) Snapshot() ProductSnapshot {
	return ProductSnapshot{
		ID:       p.ID,
		Name:     p.Name,
		Price:    p.Price,
		ImageURL: p.ImageURL,
		Category: p.Category,
		Stock:    p.Stock,
		Discount: p.Discount,
	}
}

// QuickView is the extended product detail shown in the quick-view modal.
type QuickView struct {
	Product `bson:",inline"`
	Images   []string          `json:"images,omitempty" bson:"images,omitempty"`
	Sizes    []string          `json:"sizes,omitempty" bson:"sizes,omitempty"`
	Colors   []string          `json:"colors,omitempty" bson:"colors,omitempty"`
	Specs    map[string]string `json:"specs,omitempty" bson:"specs,omitempty"`
	Reviews  int               `json:"reviews,omitempty" bson:"reviews,omitempty"`
	Shipping string            `json:"shipping,omitempty" bson:"shipping,omitempty"`
}
