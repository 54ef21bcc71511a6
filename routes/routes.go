package routes

import (
	"fmt"
	"net/http"

	"vogue/catalog"
	"vogue/metrics"
	"vogue/session"
	"vogue/upstream"

	"github.com/julienschmidt/httprouter"
)

// Index is a simple health check handler.
func Index(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	fmt.Fprint(w, "200")
}

func AddUtilityRoutes(router *httprouter.Router) {
	router.GET("/health", Index)
	router.GET("/metrics", metrics.Handler())
}

// AddUpstreamRoutes registers the storefront API.
func AddUpstreamRoutes(router *httprouter.Router, s *upstream.Server) {
	auth := s.JWT.Authenticate
	optional := s.JWT.OptionalAuth

	router.GET("/", s.Landing)

	router.GET("/api/products", s.GetProducts)
	router.GET("/api/products/:id/quick-view", s.GetQuickView)
	router.GET("/api/cart/product/:id", s.GetProduct)

	router.GET("/api/cart", optional(s.GetCart))
	router.POST("/api/cart/sync", optional(s.SyncCart))

	router.POST("/api/auth/login", s.Limiter.Limit(s.Login))
	router.POST("/api/auth/logout", auth(s.Logout))
	router.GET("/api/auth/check", auth(s.AuthCheck))

	for _, kind := range []string{catalog.Wishlist, catalog.Compare} {
		router.GET("/api/"+kind, optional(s.GetList(kind)))
		router.PUT("/api/"+kind, optional(s.PutList(kind)))
	}

	router.POST("/api/analytics/track", s.Limiter.Limit(optional(s.Track)))
	router.GET("/api/notifications/unread", auth(s.UnreadNotifications))
}

// AddSessionRoutes registers the per-session storefront endpoints.
func AddSessionRoutes(router *httprouter.Router, m *session.Manager) {
	router.GET("/session/cart", m.GetCart)
	router.POST("/session/cart/items", m.AddItem)
	router.PATCH("/session/cart/items/:id", m.UpdateItem)
	router.DELETE("/session/cart/items/:id", m.RemoveItem)
	router.DELETE("/session/cart", m.ClearCart)

	router.GET("/session/catalog", m.GetCatalog)
	router.POST("/session/catalog/filters", m.SetFilters)
	router.POST("/session/catalog/reset", m.ResetFilters)
	router.POST("/session/catalog/order", m.Reorder)

	router.POST("/session/wishlist/:id", m.ToggleWishlist)
	router.POST("/session/compare/:id", m.ToggleCompare)

	router.POST("/session/login", m.Login)
	router.POST("/session/logout", m.Logout)
	router.GET("/session/navigate", m.Navigate)
	router.GET("/session/export", m.Export)
	router.POST("/session/import", m.Import)

	router.GET("/session/notifications/ws", m.Notifications)
}
