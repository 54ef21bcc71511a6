package session_test

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"vogue/cart"
	"vogue/models"
	"vogue/routes"
	"vogue/session"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/julienschmidt/httprouter"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type clock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func fakeUpstream(t *testing.T) *httptest.Server {
	t.Helper()
	products := map[string]models.Product{
		"7": {ID: "7", Name: "Шарф", Price: 400, Stock: 3, Category: "Аксессуары"},
		"8": {ID: "8", Name: "Распродано", Price: 900, Stock: 0, Category: "Аксессуары"},
		"9": {ID: "9", Name: "Платье", Price: 5000, Stock: 10, Category: "Платья"},
	}
	writeJSON := func(w http.ResponseWriter, v any) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(v)
	}
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/products", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, []models.Product{products["7"], products["8"], products["9"]})
	})
	mux.HandleFunc("GET /api/cart/product/{id}", func(w http.ResponseWriter, r *http.Request) {
		p, ok := products[r.PathValue("id")]
		if !ok {
			http.NotFound(w, r)
			return
		}
		writeJSON(w, p)
	})
	mux.HandleFunc("GET /api/cart", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, models.CartSync{Items: []models.CartItem{}})
	})
	mux.HandleFunc("POST /api/cart/sync", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, models.CartSync{})
	})
	mux.HandleFunc("GET /api/auth/check", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	})
	mux.HandleFunc("POST /api/analytics/track", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
	mux.HandleFunc("PUT /api/{kind}", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

type harness struct {
	mgr   *session.Manager
	srv   *httptest.Server
	redis *miniredis.Miniredis
	clock *clock
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	up := fakeUpstream(t)
	mr := miniredis.RunT(t)
	conn := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = conn.Close() })

	clk := &clock{now: time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)}
	mgr := session.NewManager(session.Options{
		Redis:    conn,
		Upstream: up.URL,
		IdleTTL:  time.Hour,
		Now:      clk.Now,
	})
	router := httprouter.New()
	routes.AddSessionRoutes(router, mgr)
	srv := httptest.NewServer(router)
	t.Cleanup(func() {
		srv.Close()
		_ = mgr.Close(context.Background())
	})
	return &harness{mgr: mgr, srv: srv, redis: mr, clock: clk}
}

func (h *harness) client(t *testing.T) *http.Client {
	t.Helper()
	jar, err := cookiejar.New(nil)
	require.NoError(t, err)
	return &http.Client{Jar: jar}
}

func do(t *testing.T, c *http.Client, method, url, body string) (int, map[string]any) {
	t.Helper()
	req, err := http.NewRequest(method, url, strings.NewReader(body))
	require.NoError(t, err)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := c.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	out := map[string]any{}
	if len(data) > 0 {
		require.NoError(t, json.Unmarshal(data, &out), string(data))
	}
	return resp.StatusCode, out
}

func sessionID(t *testing.T, c *http.Client, base string) string {
	t.Helper()
	u, err := url.Parse(base)
	require.NoError(t, err)
	for _, ck := range c.Jar.Cookies(u) {
		if ck.Name == session.CookieName {
			return ck.Value
		}
	}
	t.Fatal("no session cookie")
	return ""
}

func TestCartOverSession(t *testing.T) {
	h := newHarness(t)
	c := h.client(t)

	code, body := do(t, c, http.MethodGet, h.srv.URL+"/session/cart", "")
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, 0.0, body["total_items"])
	id := sessionID(t, c, h.srv.URL)
	assert.Equal(t, 1, h.mgr.Len())

	code, body = do(t, c, http.MethodPost, h.srv.URL+"/session/cart/items", `{"product_id":"7","quantity":2}`)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, 2.0, body["total_items"])
	assert.Equal(t, 800.0, body["total_price"])
	assert.Equal(t, "2 товара", body["label"])

	code, body = do(t, c, http.MethodPost, h.srv.URL+"/session/cart/items", `{"product_id":"8"}`)
	assert.Equal(t, http.StatusConflict, code)
	assert.Contains(t, body["error"], "нет в наличии")

	assert.Equal(t, 1, h.mgr.Len(), "the cookie keeps the same session")
	assert.True(t, h.redis.Exists("session:"+id+":"+cart.StorageKey))

	_, current := do(t, c, http.MethodGet, h.srv.URL+"/session/cart", "")
	line := current["items"].([]any)[0].(map[string]any)
	itemURL := h.srv.URL + "/session/cart/items/" + line["id"].(string)

	code, body = do(t, c, http.MethodPatch, itemURL, `{"quantity":"50"}`)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, 3.0, body["total_items"], "clamped to stock")

	code, body = do(t, c, http.MethodPatch, itemURL, `{"delta":-1}`)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, 2.0, body["total_items"])

	code, _ = do(t, c, http.MethodPatch, itemURL, `{}`)
	assert.Equal(t, http.StatusBadRequest, code)

	code, _ = do(t, c, http.MethodDelete, h.srv.URL+"/session/cart", "")
	assert.Equal(t, http.StatusConflict, code, "clearing needs confirmation")

	code, body = do(t, c, http.MethodDelete, h.srv.URL+"/session/cart?confirm=true", "")
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, 0.0, body["total_items"])
}

func TestCatalogOverSession(t *testing.T) {
	h := newHarness(t)
	c := h.client(t)

	code, body := do(t, c, http.MethodGet, h.srv.URL+"/session/catalog", "")
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, 3.0, body["total"])

	code, body = do(t, c, http.MethodPost, h.srv.URL+"/session/catalog/filters", `{"filter":"category","values":["Аксессуары"]}`)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, 2.0, body["total"])

	code, _ = do(t, c, http.MethodPost, h.srv.URL+"/session/catalog/filters", `{"filter":"weight","values":["1"]}`)
	assert.Equal(t, http.StatusConflict, code)

	code, _ = do(t, c, http.MethodPost, h.srv.URL+"/session/catalog/filters", `{}`)
	assert.Equal(t, http.StatusBadRequest, code)

	code, body = do(t, c, http.MethodPost, h.srv.URL+"/session/catalog/reset", "")
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, 3.0, body["total"])

	code, body = do(t, c, http.MethodPost, h.srv.URL+"/session/wishlist/9", "")
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, []any{"9"}, body["ids"])
	code, body = do(t, c, http.MethodPost, h.srv.URL+"/session/wishlist/9", "")
	require.Equal(t, http.StatusOK, code)
	assert.Empty(t, body["ids"])
}

func TestConcurrentFirstRequestsShareOneSession(t *testing.T) {
	h := newHarness(t)
	id := uuid.NewString()

	var wg sync.WaitGroup
	for range 5 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			req, err := http.NewRequest(http.MethodGet, h.srv.URL+"/session/cart", nil)
			if !assert.NoError(t, err) {
				return
			}
			req.AddCookie(&http.Cookie{Name: session.CookieName, Value: id})
			resp, err := http.DefaultClient.Do(req)
			if assert.NoError(t, err) {
				resp.Body.Close()
				assert.Equal(t, http.StatusOK, resp.StatusCode)
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, 1, h.mgr.Len())
}

func TestIdleSessionsEndButKeepStorage(t *testing.T) {
	h := newHarness(t)
	c := h.client(t)

	code, _ := do(t, c, http.MethodPost, h.srv.URL+"/session/cart/items", `{"product_id":"9"}`)
	require.Equal(t, http.StatusOK, code)

	h.clock.Advance(30 * time.Minute)
	assert.Zero(t, h.mgr.Sweep(context.Background()))
	h.clock.Advance(31 * time.Minute)
	assert.Equal(t, 1, h.mgr.Sweep(context.Background()))
	assert.Zero(t, h.mgr.Len())

	code, body := do(t, c, http.MethodGet, h.srv.URL+"/session/cart", "")
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, 1.0, body["total_items"], "the cart comes back from redis")
}

func TestInvalidCookieStartsFreshSession(t *testing.T) {
	h := newHarness(t)
	req, err := http.NewRequest(http.MethodGet, h.srv.URL+"/session/cart", nil)
	require.NoError(t, err)
	req.AddCookie(&http.Cookie{Name: session.CookieName, Value: "../../etc"})
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()

	var fresh string
	for _, ck := range resp.Cookies() {
		if ck.Name == session.CookieName {
			fresh = ck.Value
		}
	}
	_, err = uuid.Parse(fresh)
	assert.NoError(t, err)
}
