// Package upstream serves the storefront API the session engines call:
// products, carts, auth, wishlist and compare lists, analytics ingestion and
// notifications.
package upstream

import (
	"context"
	"encoding/json"
	"errors"
	"html/template"
	"net/http"
	"time"

	"vogue/db"
	"vogue/middleware"
	"vogue/models"
	"vogue/ratelim"
	"vogue/utils"

	"github.com/julienschmidt/httprouter"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

// Repository is the persistence the API needs; db.Mongo implements it.
type Repository interface {
	Products(ctx context.Context, q utils.QueryOptions) ([]models.Product, error)
	Product(ctx context.Context, id string) (models.Product, error)
	QuickView(ctx context.Context, id string) (models.QuickView, error)
	Cart(ctx context.Context, owner string) (models.CartSync, error)
	SaveCart(ctx context.Context, owner string, items []models.CartItem, at time.Time) error
	UserByEmail(ctx context.Context, email string) (models.User, error)
	UserByID(ctx context.Context, id string) (models.User, error)
	TouchLogin(ctx context.Context, id string, at time.Time) error
	List(ctx context.Context, owner, kind string) ([]string, error)
	SaveList(ctx context.Context, owner, kind string, ids []string, at time.Time) error
	UnreadNotifications(ctx context.Context, userID string) ([]models.Notification, error)
	RecordEvent(ctx context.Context, ev models.AnalyticsEvent) error
}

var _ Repository = (*db.Mongo)(nil)

// Emitter hands analytics events to the background worker.
type Emitter interface {
	Emit(ctx context.Context, ev models.AnalyticsEvent) error
}

const requestTimeout = 10 * time.Second

type Server struct {
	Repo    Repository
	JWT     middleware.JWT
	Events  Emitter
	Limiter *ratelim.RateLimiter
	// SiteConfig is embedded in the landing page's app-config meta tag.
	SiteConfig map[string]any
	Log        *zap.Logger
	Now        func() time.Time
}

// New builds a server. events may be nil, in which case analytics are
// written straight to the repository.
func New(repo Repository, jwt middleware.JWT, events Emitter, limiter *ratelim.RateLimiter, log *zap.Logger) *Server {
	if log == nil {
		log = zap.NewNop()
	}
	if limiter == nil {
		limiter = ratelim.NewRateLimiter(120, 20)
	}
	return &Server{
		Repo:    repo,
		JWT:     jwt,
		Events:  events,
		Limiter: limiter,
		SiteConfig: map[string]any{
			"siteName":             "VOGUE ÉLITE",
			"currency":             "€",
			"currencySymbol":       "€",
			"language":             "ru",
			"enableAjaxNavigation": true,
		},
		Log: log,
		Now: time.Now,
	}
}

var landing = template.Must(template.New("landing").Parse(`<!doctype html>
<html lang="ru">
<head>
<meta charset="utf-8">
<title>{{.Title}}</title>
<meta name="app-config" content="{{.Config}}">
</head>
<body><main id="main-content"><h1>{{.Title}}</h1></main></body>
</html>
`))

// Landing serves the shell page carrying the client configuration.
func (s *Server) Landing(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	cfg, err := json.Marshal(s.SiteConfig)
	if err != nil {
		s.Log.Error("encode site config", zap.Error(err))
		http.Error(w, "Failed to render page", http.StatusInternalServerError)
		return
	}
	title, _ := s.SiteConfig["siteName"].(string)
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := landing.Execute(w, struct{ Title, Config string }{title, string(cfg)}); err != nil {
		s.Log.Error("render landing", zap.Error(err))
	}
}

func (s *Server) GetProducts(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	products, err := s.Repo.Products(ctx, utils.ParseQueryOptions(r))
	if err != nil {
		s.Log.Error("list products", zap.Error(err))
		http.Error(w, "Could not retrieve products", http.StatusInternalServerError)
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, products)
}

func (s *Server) GetProduct(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	p, err := s.Repo.Product(ctx, ps.ByName("id"))
	if s.lookupFailed(w, err, "product") {
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, p)
}

func (s *Server) GetQuickView(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	q, err := s.Repo.QuickView(ctx, ps.ByName("id"))
	if s.lookupFailed(w, err, "quick view") {
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, q)
}

// lookupFailed writes 404 or 500 for err and reports whether it did.
func (s *Server) lookupFailed(w http.ResponseWriter, err error, what string) bool {
	switch {
	case err == nil:
		return false
	case errors.Is(err, db.ErrNotFound):
		http.Error(w, "Not found", http.StatusNotFound)
	default:
		s.Log.Error("lookup failed", zap.String("what", what), zap.Error(err))
		http.Error(w, "Internal error", http.StatusInternalServerError)
	}
	return true
}

// SyncCart stores the pushed item list for the user or session and returns
// what is stored.
func (s *Server) SyncCart(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	owner := utils.OwnerFromRequest(r)
	if owner == "" {
		http.Error(w, "Missing session", http.StatusBadRequest)
		return
	}
	var in models.CartSync
	if err := utils.DecodeJSON(w, r, &in); err != nil {
		http.Error(w, "Invalid JSON payload", http.StatusBadRequest)
		return
	}
	items := make([]models.CartItem, 0, len(in.Items))
	for _, it := range in.Items {
		if it.ProductID == "" || it.Quantity < 1 {
			continue
		}
		items = append(items, it)
	}
	now := s.Now().UTC()
	if err := s.Repo.SaveCart(ctx, owner, items, now); err != nil {
		s.Log.Error("save cart", zap.String("owner", owner), zap.Error(err))
		http.Error(w, "Failed to save cart", http.StatusInternalServerError)
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, models.CartSync{Items: items, UpdatedAt: now})
}

func (s *Server) GetCart(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	owner := utils.OwnerFromRequest(r)
	if owner == "" {
		utils.RespondWithJSON(w, http.StatusOK, models.CartSync{Items: []models.CartItem{}})
		return
	}
	c, err := s.Repo.Cart(ctx, owner)
	if err != nil {
		s.Log.Error("get cart", zap.String("owner", owner), zap.Error(err))
		http.Error(w, "Could not retrieve cart", http.StatusInternalServerError)
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, c)
}

// GetList and PutList serve one of the wishlist or compare lists.
func (s *Server) GetList(kind string) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
		defer cancel()

		owner := utils.OwnerFromRequest(r)
		if owner == "" {
			utils.RespondWithJSON(w, http.StatusOK, models.IDList{IDs: []string{}})
			return
		}
		ids, err := s.Repo.List(ctx, owner, kind)
		if err != nil {
			s.Log.Error("get list", zap.String("list", kind), zap.Error(err))
			http.Error(w, "Could not retrieve list", http.StatusInternalServerError)
			return
		}
		utils.RespondWithJSON(w, http.StatusOK, models.IDList{IDs: ids})
	}
}

func (s *Server) PutList(kind string) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
		defer cancel()

		owner := utils.OwnerFromRequest(r)
		if owner == "" {
			http.Error(w, "Missing session", http.StatusBadRequest)
			return
		}
		var in models.IDList
		if err := utils.DecodeJSON(w, r, &in); err != nil {
			http.Error(w, "Invalid JSON payload", http.StatusBadRequest)
			return
		}
		if in.IDs == nil {
			in.IDs = []string{}
		}
		if err := s.Repo.SaveList(ctx, owner, kind, in.IDs, s.Now().UTC()); err != nil {
			s.Log.Error("save list", zap.String("list", kind), zap.Error(err))
			http.Error(w, "Failed to save list", http.StatusInternalServerError)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

// Track accepts one analytics event.
func (s *Server) Track(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	var ev models.AnalyticsEvent
	if err := utils.DecodeJSON(w, r, &ev); err != nil || ev.Event == "" {
		http.Error(w, "Invalid event", http.StatusBadRequest)
		return
	}
	if ev.Timestamp == 0 {
		ev.Timestamp = s.Now().UnixMilli()
	}
	var err error
	if s.Events != nil {
		err = s.Events.Emit(ctx, ev)
	} else {
		err = s.Repo.RecordEvent(ctx, ev)
	}
	if err != nil {
		s.Log.Error("track event", zap.String("event", ev.Event), zap.Error(err))
		http.Error(w, "Failed to record event", http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) UnreadNotifications(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	ns, err := s.Repo.UnreadNotifications(ctx, utils.GetUserIDFromRequest(r))
	if err != nil {
		s.Log.Error("unread notifications", zap.Error(err))
		http.Error(w, "Could not retrieve notifications", http.StatusInternalServerError)
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, ns)
}

// HashPassword is what account creation stores in User.PasswordHash.
func HashPassword(password string, cost int) (string, error) {
	if cost == 0 {
		cost = bcrypt.DefaultCost
	}
	h, err := bcrypt.GenerateFromPassword([]byte(password), cost)
	if err != nil {
		return "", err
	}
	return string(h), nil
}
