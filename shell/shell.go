// Package shell wires the storefront stores together for one browser session
// and coordinates what happens between them: initial load, user events,
// periodic sync, navigation and offline handling.
package shell

import (
	"context"
	"errors"
	"sync"
	"time"

	"vogue/analytics"
	"vogue/auth"
	"vogue/cache"
	"vogue/cart"
	"vogue/catalog"
	"vogue/localstore"
	"vogue/models"
	"vogue/notify"
	"vogue/products"
	"vogue/remote"
	"vogue/syncgw"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const (
	PreferencesKey = "user_preferences"
	AutosaveKey    = "autosave"
)

// App event names delivered to listeners.
const (
	EventInitialized = "app:initialized"
	EventNavigated   = "app:navigated"
	EventOnline      = "app:online"
	EventOffline     = "app:offline"
	EventPageHidden  = "app:pageHidden"
	EventPageVisible = "app:pageVisible"
)

// AppEvent is what listeners receive.
type AppEvent struct {
	Name      string         `json:"name"`
	Timestamp time.Time      `json:"timestamp"`
	Data      map[string]any `json:"data,omitempty"`
}

type Listener func(AppEvent)

// Intervals of the periodic tasks started by Run.
type Intervals struct {
	Session       time.Duration
	Autosave      time.Duration
	Notifications time.Duration
	Sync          time.Duration
}

func DefaultIntervals() Intervals {
	return Intervals{
		Session:       time.Minute,
		Autosave:      30 * time.Second,
		Notifications: time.Minute,
		Sync:          2 * time.Minute,
	}
}

type Deps struct {
	SessionID string
	Storage   localstore.Store
	// Remote defaults to a client with no upstream, which fails every call.
	Remote    *remote.Client
	Notifier  *notify.Center
	Config    *Config

	CartRenderer    cart.Renderer
	CatalogRenderer catalog.Renderer
	Confirm         cart.Confirmer

	Log       *zap.Logger
	Now       func() time.Time
	Intervals Intervals
	// RemoveDelay and ClearStepDelay are the cart's cosmetic waits.
	RemoveDelay    time.Duration
	ClearStepDelay time.Duration
}

// Shell is one session's storefront.
type Shell struct {
	Cart      *cart.Store
	Catalog   *catalog.Store
	Auth      *auth.Manager
	Analytics *analytics.Tracker
	Notify    *notify.Center

	remote    *remote.Client
	storage   localstore.Store
	log       *zap.Logger
	now       func() time.Time
	intervals Intervals

	cartSync     *syncgw.Gateway[[]models.CartItem]
	wishlistSync *syncgw.Gateway[[]string]
	compareSync  *syncgw.Gateway[[]string]

	mu        sync.RWMutex
	config    Config
	online    bool
	prefs     map[string]any
	listeners map[string][]Listener
}

func New(d Deps) *Shell {
	if d.Log == nil {
		d.Log = zap.NewNop()
	}
	if d.Storage == nil {
		d.Storage = localstore.NewMemory()
	}
	if d.Notifier == nil {
		d.Notifier = notify.NewCenter(d.Log)
	}
	if d.Now == nil {
		d.Now = time.Now
	}
	if d.Remote == nil {
		d.Remote = remote.New("")
	}
	if d.Intervals == (Intervals{}) {
		d.Intervals = DefaultIntervals()
	}
	cfg := DefaultConfig()
	if d.Config != nil {
		cfg = *d.Config
	}
	log := d.Log.With(zap.String("session", d.SessionID))
	r := d.Remote

	s := &Shell{
		Notify:    d.Notifier,
		remote:    r,
		storage:   d.Storage,
		log:       log,
		now:       d.Now,
		intervals: d.Intervals,
		config:    cfg,
		online:    true,
		prefs:     map[string]any{},
		listeners: map[string][]Listener{},
	}

	s.cartSync = syncgw.New("cart", func(ctx context.Context, items []models.CartItem) error {
		_, err := r.SyncCart(ctx, items)
		return err
	}, log)
	s.wishlistSync = syncgw.New("wishlist", func(ctx context.Context, ids []string) error {
		return r.PutList(ctx, catalog.Wishlist, ids)
	}, log)
	s.compareSync = syncgw.New("compare", func(ctx context.Context, ids []string) error {
		return r.PutList(ctx, catalog.Compare, ids)
	}, log)

	resolver := products.Default(cache.NewProductCache(d.Storage, log), r, log)
	s.Cart = cart.New(context.Background(), cart.Options{
		Storage:        d.Storage,
		Resolver:       resolver,
		Notifier:       d.Notifier,
		Renderer:       d.CartRenderer,
		Sync:           s.cartSync,
		Confirm:        d.Confirm,
		Log:            log.Named("cart"),
		Now:            d.Now,
		RemoveDelay:    d.RemoveDelay,
		ClearStepDelay: d.ClearStepDelay,
	})
	s.Catalog = catalog.New(catalog.Options{
		Storage:      d.Storage,
		Source:       r,
		Listing:      cache.NewListingCache(d.Storage, log),
		Notifier:     d.Notifier,
		Renderer:     d.CatalogRenderer,
		WishlistSync: s.wishlistSync,
		CompareSync:  s.compareSync,
		Log:          log.Named("catalog"),
		Now:          d.Now,
		Seed:         uint64(d.Now().UnixNano()),
	})
	s.Auth = auth.NewManager(r, log.Named("auth"))
	s.Analytics = analytics.NewTracker(d.Storage, r, d.SessionID, log.Named("analytics"))
	s.Analytics.Now = d.Now
	s.Analytics.Debug = cfg.Debug
	return s
}

// Init loads configuration, the catalog, the server cart and the user's data,
// then tracks the page view. Every step is best-effort.
func (s *Shell) Init(ctx context.Context) error {
	s.loadConfig(ctx)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		s.Catalog.LoadLists(gctx)
		s.Catalog.RestoreState(gctx)
		s.Catalog.LoadProducts(gctx)
		return nil
	})
	g.Go(func() error {
		s.loadServerCart(gctx)
		return nil
	})
	g.Go(func() error {
		s.loadUserData(gctx)
		return nil
	})
	if err := g.Wait(); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	s.Analytics.TrackPageView(ctx, "/", s.Config().SiteName)
	s.emit(EventInitialized, nil)
	s.log.Info("storefront initialized")
	return nil
}

func (s *Shell) loadConfig(ctx context.Context) {
	page, err := s.remote.FetchPage(ctx, "/")
	if err != nil {
		s.log.Debug("no landing page for config", zap.Error(err))
		return
	}
	cfg, err := ParseConfig(page, s.Config())
	if err != nil {
		if !errors.Is(err, errNoConfig) {
			s.log.Warn("app-config unreadable, keeping defaults", zap.Error(err))
		}
		return
	}
	s.mu.Lock()
	s.config = cfg
	s.mu.Unlock()
	s.Analytics.Debug = cfg.Debug
}

// loadServerCart adopts the server's cart when the local one is empty.
func (s *Shell) loadServerCart(ctx context.Context) {
	server, err := s.remote.FetchCart(ctx)
	if err != nil {
		s.log.Debug("server cart unavailable", zap.Error(err))
		return
	}
	if len(server.Items) > 0 && s.Cart.IsEmpty() {
		s.Cart.Replace(ctx, server.Items)
	}
}

func (s *Shell) loadUserData(ctx context.Context) {
	u, ok := s.Auth.Check(ctx)
	if !ok {
		return
	}
	s.Analytics.SetUser(&u)
	s.loadLists(ctx)
	s.loadPreferences(ctx)
}

func (s *Shell) loadLists(ctx context.Context) {
	for _, kind := range []string{catalog.Wishlist, catalog.Compare} {
		ids, err := s.remote.FetchList(ctx, kind)
		if err != nil {
			s.log.Debug("list unavailable", zap.String("list", kind), zap.Error(err))
			continue
		}
		s.Catalog.SetList(ctx, kind, ids)
	}
}

func (s *Shell) loadPreferences(ctx context.Context) {
	prefs := map[string]any{}
	err := localstore.GetJSON(ctx, s.storage, PreferencesKey, &prefs)
	if err != nil {
		if !errors.Is(err, localstore.ErrNotFound) {
			s.log.Warn("preferences unreadable", zap.Error(err))
		}
		return
	}
	s.mu.Lock()
	s.prefs = prefs
	if c, ok := prefs["currency"].(string); ok && c != "" {
		s.config.Currency = c
		s.config.CurrencySymbol = c
	}
	s.mu.Unlock()
}

// SetPreference stores one user preference.
func (s *Shell) SetPreference(ctx context.Context, key string, value any) error {
	s.mu.Lock()
	s.prefs[key] = value
	if key == "currency" {
		if c, ok := value.(string); ok && c != "" {
			s.config.Currency = c
			s.config.CurrencySymbol = c
		}
	}
	prefs := cloneMap(s.prefs)
	s.mu.Unlock()
	return localstore.SetJSON(ctx, s.storage, PreferencesKey, prefs)
}

func (s *Shell) Preferences() map[string]any {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return cloneMap(s.prefs)
}

func (s *Shell) Config() Config {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.config
}

func (s *Shell) Online() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.online
}

// On registers fn for an app event name.
func (s *Shell) On(name string, fn Listener) {
	s.mu.Lock()
	s.listeners[name] = append(s.listeners[name], fn)
	s.mu.Unlock()
}

func (s *Shell) emit(name string, data map[string]any) {
	s.mu.RLock()
	fns := append([]Listener(nil), s.listeners[name]...)
	debug := s.config.Debug
	s.mu.RUnlock()

	if debug {
		s.log.Debug("app event", zap.String("event", name), zap.Any("data", data))
	}
	ev := AppEvent{Name: name, Timestamp: s.now(), Data: data}
	for _, fn := range fns {
		fn(ev)
	}
}

// Close waits for in-flight syncs and releases the notification center.
func (s *Shell) Close(ctx context.Context) error {
	err := errors.Join(
		s.cartSync.Flush(ctx),
		s.wishlistSync.Flush(ctx),
		s.compareSync.Flush(ctx),
	)
	s.Notify.Close()
	return err
}

func cloneMap(m map[string]any) map[string]any {
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
