package remote

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"vogue/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFetchProductSendsAuthAndSession(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/cart/product/42", r.URL.Path)
		assert.Equal(t, "Bearer tok", r.Header.Get("Authorization"))
		assert.Equal(t, "sess-1", r.Header.Get("X-Session-ID"))
		_ = json.NewEncoder(w).Encode(models.Product{ID: "42", Name: "Шелковая блуза", Stock: 3})
	}))
	defer srv.Close()

	c := New(srv.URL)
	c.SessionID = "sess-1"
	c.SetToken("tok")

	p, err := c.FetchProduct(context.Background(), "42")
	require.NoError(t, err)
	assert.Equal(t, "Шелковая блуза", p.Name)
	assert.Equal(t, 3, p.Stock)
}

func TestStatusErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/products":
			http.Error(w, "boom", http.StatusBadGateway)
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()
	c := New(srv.URL)

	_, err := c.FetchProduct(context.Background(), "nope")
	require.ErrorIs(t, err, ErrNotFound)

	_, err = c.FetchProducts(context.Background())
	var se *StatusError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, http.StatusBadGateway, se.Code)
}

func TestSyncCartRoundTrip(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "csrf-1", r.Header.Get("X-CSRF-Token"))
		var in models.CartSync
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&in))
		in.UserID = "u1"
		_ = json.NewEncoder(w).Encode(in)
	}))
	defer srv.Close()
	c := New(srv.URL)
	c.SetCSRFToken("csrf-1")

	out, err := c.SyncCart(context.Background(), []models.CartItem{{ID: "a", ProductID: "1", Quantity: 2}})
	require.NoError(t, err)
	assert.Equal(t, "u1", out.UserID)
	require.Len(t, out.Items, 1)
	assert.Equal(t, 2, out.Items[0].Quantity)
}

func TestSubmitForm(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.NoError(t, r.ParseForm())
		assert.Equal(t, "a@b.c", r.PostForm.Get("email"))
		_ = json.NewEncoder(w).Encode(FormResult{Success: true, Message: "Subscribed"})
	}))
	defer srv.Close()

	res, err := New(srv.URL).SubmitForm(context.Background(), "post", "/newsletter", url.Values{"email": {"a@b.c"}})
	require.NoError(t, err)
	assert.True(t, res.Success)
	assert.Equal(t, "Subscribed", res.Message)
}

func TestResolve(t *testing.T) {
	c := New("http://shop.local/")
	got, err := c.Resolve("/catalog?page=2")
	require.NoError(t, err)
	assert.Equal(t, "http://shop.local/catalog?page=2", got)
}
