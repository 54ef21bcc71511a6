package catalog

import (
	"fmt"
	"math/rand/v2"
	"strconv"
	"time"

	"vogue/models"
)

// DemoSize is the number of products in the offline demo set.
const DemoSize = 48

var (
	demoTypes = []string{
		"Вечернее платье с золотой вышивкой",
		"Костюм премиум-класса",
		"Шелковая блуза",
		"Кожаная куртка",
		"Юбка-карандаш",
		"Брюки-клеш",
		"Пальто из кашемира",
		"Сумочка из крокодиловой кожи",
		"Туфли на каблуке",
		"Колье с бриллиантами",
	}
	demoAdjectives = []string{"Роскошное", "Эксклюзивное", "Лимитированное", "VIP", "Дизайнерское"}
	demoCategories = []string{"Платья", "Костюмы", "Блузы", "Брюки", "Юбки", "Куртки", "Пальто", "Обувь", "Сумки", "Украшения"}
	demoPrices     = []float64{4500, 3200, 2800, 1900, 3500, 4200, 3800, 2900, 2100, 5500}
	demoBrands     = []string{"vogue", "dior", "chanel", "gucci", "prada"}
	demoColors     = []string{"черный", "белый", "красный", "синий", "зеленый", "золотой", "серебряный"}
	demoSizes      = []string{"XS", "S", "M", "L", "XL"}
)

const demoDescription = "Эксклюзивный товар премиум-класса из коллекции VOGUE ÉLITE"

// Demo builds the offline product set. Everything except stock and rating is
// derived from the index; those two come from a PCG seeded with seed, so the
// same seed and clock always give the same catalog.
func Demo(now time.Time, seed uint64) []models.Product {
	r := rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
	out := make([]models.Product, DemoSize)
	for i := range out {
		discount := 0.0
		switch {
		case i%5 == 0:
			discount = 20
		case i%7 == 0:
			discount = 15
		}
		out[i] = models.Product{
			ID:          strconv.Itoa(i + 1),
			Name:        demoAdjectives[i%len(demoAdjectives)] + " " + demoTypes[i%len(demoTypes)],
			Category:    demoCategories[i%len(demoCategories)],
			Price:       demoPrices[i%len(demoPrices)],
			Discount:    discount,
			ImageURL:    fmt.Sprintf("https://images.unsplash.com/photo-%d?w=800&h=1200&fit=crop&q=80", 1595777457583+i),
			Brand:       demoBrands[i%len(demoBrands)],
			Color:       demoColors[i%len(demoColors)],
			Size:        demoSizes[i%len(demoSizes)],
			IsNew:       i < 12,
			IsExclusive: i%10 == 0,
			IsLimited:   i%15 == 0,
			Stock:       r.IntN(50) + 5,
			Rating:      4 + r.Float64(),
			Description: demoDescription,
			CreatedAt:   now.Add(-time.Duration(i) * 24 * time.Hour),
		}
	}
	return out
}
