package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"vogue/utils"

	"github.com/julienschmidt/httprouter"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func whoami(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	_, _ = w.Write([]byte(utils.GetUserIDFromRequest(r)))
}

func call(h httprouter.Handle, header string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if header != "" {
		req.Header.Set("Authorization", header)
	}
	rec := httptest.NewRecorder()
	h(rec, req, nil)
	return rec
}

func TestAuthenticate(t *testing.T) {
	j := JWT{Secret: []byte("k")}
	token, err := j.Issue("u1", "a@b.c", time.Now())
	require.NoError(t, err)

	rec := call(j.Authenticate(whoami), "Bearer "+token)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "u1", rec.Body.String())

	assert.Equal(t, http.StatusUnauthorized, call(j.Authenticate(whoami), "").Code)
	assert.Contains(t, call(j.Authenticate(whoami), token).Body.String(), "Invalid token format")

	other := JWT{Secret: []byte("other")}
	assert.Equal(t, http.StatusUnauthorized, call(other.Authenticate(whoami), "Bearer "+token).Code)
}

func TestExpiredToken(t *testing.T) {
	j := JWT{Secret: []byte("k"), TTL: time.Minute}
	token, err := j.Issue("u1", "", time.Now().Add(-time.Hour))
	require.NoError(t, err)
	_, err = j.ValidateJWT("Bearer " + token)
	assert.Error(t, err)
}

func TestOptionalAuth(t *testing.T) {
	j := JWT{Secret: []byte("k")}
	token, err := j.Issue("u2", "", time.Now())
	require.NoError(t, err)

	assert.Equal(t, "u2", call(j.OptionalAuth(whoami), "Bearer "+token).Body.String())
	rec := call(j.OptionalAuth(whoami), "Bearer garbage")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, rec.Body.String())
}
