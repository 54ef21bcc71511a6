package auth

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"vogue/models"
	"vogue/remote"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func upstream(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/auth/login", func(w http.ResponseWriter, r *http.Request) {
		var c models.Credentials
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&c))
		if c.Password != "secret" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		_ = json.NewEncoder(w).Encode(models.LoginResponse{Token: "tok", User: models.User{UserID: "u1", Email: c.Email}})
	})
	mux.HandleFunc("GET /api/auth/check", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer tok" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		_ = json.NewEncoder(w).Encode(models.User{UserID: "u1"})
	})
	mux.HandleFunc("POST /api/auth/logout", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func TestLoginCheckLogout(t *testing.T) {
	ctx := context.Background()
	client := remote.New(upstream(t).URL)
	m := NewManager(client, nil)

	_, ok := m.Check(ctx)
	assert.False(t, ok)

	res := m.Login(ctx, models.Credentials{Email: "a@b.c", Password: "secret"})
	require.True(t, res.Success)
	assert.Equal(t, "tok", client.Token())
	assert.True(t, m.IsAuthenticated())
	assert.Equal(t, "a@b.c", m.User().Email)

	u, ok := m.Check(ctx)
	require.True(t, ok)
	assert.Equal(t, "u1", u.UserID)

	res = m.Logout(ctx)
	require.True(t, res.Success)
	assert.False(t, m.IsAuthenticated())
	assert.Nil(t, m.User())
	assert.Empty(t, client.Token())
}

func TestLoginFailures(t *testing.T) {
	ctx := context.Background()
	m := NewManager(remote.New(upstream(t).URL), nil)
	res := m.Login(ctx, models.Credentials{Email: "a@b.c", Password: "wrong"})
	assert.False(t, res.Success)
	assert.Equal(t, "Ошибка авторизации", res.Error)

	down := httptest.NewServer(http.NotFoundHandler())
	down.Close()
	m = NewManager(remote.New(down.URL), nil)
	res = m.Login(ctx, models.Credentials{Email: "a@b.c", Password: "secret"})
	assert.Equal(t, "Ошибка сети", res.Error)
	assert.False(t, m.IsAuthenticated())
}
