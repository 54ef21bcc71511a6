package products

import "vogue/models"

// fallbackTable covers a handful of well-known ids when the upstream is down.
var fallbackTable = map[string]models.Product{
	"1": {
		ID:       "1",
		Name:     "Вечернее платье с золотой вышивкой",
		Price:    4500,
		ImageURL: "https://images.unsplash.com/photo-1595777457583-95e059d581b8",
		Category: "Платья",
		Stock:    10,
	},
	"2": {
		ID:       "2",
		Name:     "Шелковый шарф с принтом",
		Price:    400,
		ImageURL: "https://images.unsplash.com/photo-1584917865442-de89df76afd3",
		Category: "Аксессуары",
		Stock:    25,
	},
	"3": {
		ID:       "3",
		Name:     "Кожаные перчатки",
		Price:    350,
		ImageURL: "https://images.unsplash.com/photo-1584917865442-de89df76afd3",
		Category: "Аксессуары",
		Stock:    15,
	},
}

// Fallback returns the static entry for id, if any.
func Fallback(id string) (models.Product, bool) {
	p, ok := fallbackTable[id]
	return p, ok
}

// Placeholder is the generic product used when nothing else knows id.
func Placeholder(id string) models.Product {
	return models.Product{
		ID:       id,
		Name:     "Товар",
		Price:    1000,
		Category: "Категория",
		Stock:    5,
	}
}
