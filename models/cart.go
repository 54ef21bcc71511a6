package models

import "time"

// ProductSnapshot is the copy of product fields a cart line captures when added.
type ProductSnapshot struct {
	ID       string  `json:"id" bson:"id"`
	Name     string  `json:"name" bson:"name"`
	Price    float64 `json:"price" bson:"price"`
	ImageURL string  `json:"image_url" bson:"image_url"`
	Category string  `json:"category" bson:"category"`
	Stock    int     `json:"stock" bson:"stock"`
	Discount float64 `json:"discount" bson:"discount"`
}

// CartItem represents a single line in the cart.
type CartItem struct {
	ID            string            `json:"id" bson:"id"`
	ProductID     string            `json:"product_id" bson:"product_id"`
	Product       ProductSnapshot   `json:"product" bson:"product"`
	Quantity      int               `json:"quantity" bson:"quantity"`
	Options       map[string]string `json:"options" bson:"options"`
	AddedAt       time.Time         `json:"added_at" bson:"added_at"`
	SelectedSize  string            `json:"selected_size,omitempty" bson:"selected_size,omitempty"`
	SelectedColor string            `json:"selected_color,omitempty" bson:"selected_color,omitempty"`
}

// LineTotal is the discounted unit price times quantity, unrounded.
func (c CartItem) LineTotal() float64 {
	return c.Product.Price * (1 - c.Product.Discount/100) * float64(c.Quantity)
}

// SameOptions reports whether two option sets have the same keys and values.
// A nil map and an empty map are equal.
func SameOptions(a, b map[string]string) bool {
	if len(a) != len(b) {
		return false
	}
	for k, v := range a {
		w, ok := b[k]
		if !ok || w != v {
			return false
		}
	}
	return true
}

// CartSync is the payload exchanged with the cart sync endpoint.
type CartSync struct {
	UserID    string     `json:"userId,omitempty" bson:"userId"`
	SessionID string     `json:"sessionId,omitempty" bson:"sessionId"`
	Items     []CartItem `json:"items" bson:"items"`
	UpdatedAt time.Time  `json:"updatedAt" bson:"updatedAt"`
}
