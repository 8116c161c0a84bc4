package http

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"rental-escrow-backend/internal/security"
	"rental-escrow-backend/internal/storage"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakePinger struct {
	err error
}

func (f fakePinger) PingContext(ctx context.Context) error { return f.err }

func newTestRouter(t *testing.T, db Pinger) (http.Handler, *storage.LocalStorage, security.TokenManager) {
	t.Helper()
	local, err := storage.NewLocalStorage(t.TempDir())
	require.NoError(t, err)
	tokens := security.NewTokenManager("0123456789abcdef0123456789abcdef", "rental-escrow", time.Hour)
	router := NewRouter(RouterOptions{
		DB:             db,
		Images:         local,
		Tokens:         tokens,
		AllowedOrigins: []string{"https://app.example.com"},
	})
	return router, local, tokens
}

func TestHealthz(t *testing.T) {
	router, _, _ := newTestRouter(t, fakePinger{})
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())

	router, _, _ = newTestRouter(t, fakePinger{err: errors.New("down")})
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestMetricsRoute(t *testing.T) {
	router, _, _ := newTestRouter(t, nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestImageDownload(t *testing.T) {
	router, local, tokens := newTestRouter(t, nil)
	key, err := local.Store(context.Background(), storage.DirHandover, "photo.png", []byte("png-bytes"))
	require.NoError(t, err)

	t.Run("requires a token", func(t *testing.T) {
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/images/"+key, nil))
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	token, err := tokens.GenerateAccessToken(1, "", nil)
	require.NoError(t, err)

	t.Run("streams the image", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/v1/images/"+key, nil)
		req.Header.Set("Authorization", "Bearer "+token)
		req.Header.Set("Origin", "https://app.example.com")
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "image/png", rec.Header().Get("Content-Type"))
		assert.Equal(t, "https://app.example.com", rec.Header().Get("Access-Control-Allow-Origin"))
		body, _ := io.ReadAll(rec.Body)
		assert.Equal(t, "png-bytes", string(body))
	})

	t.Run("unknown key", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/v1/images/handover/missing.png", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})
}
