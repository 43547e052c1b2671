package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusOK) })
}

func TestRateLimiter(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	rl := NewRateLimiter(ctx, 1, 2)
	rl.now = func() time.Time { return now }
	h := rl.Limit(okHandler())

	serve := func(remote string) int {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.RemoteAddr = remote
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		return rec.Code
	}

	assert.Equal(t, http.StatusOK, serve("10.0.0.1:1000"))
	assert.Equal(t, http.StatusOK, serve("10.0.0.1:1001"))
	assert.Equal(t, http.StatusTooManyRequests, serve("10.0.0.1:1002"))
	assert.Equal(t, http.StatusOK, serve("10.0.0.2:1000"))

	now = now.Add(time.Second)
	assert.Equal(t, http.StatusOK, serve("10.0.0.1:1003"))
	assert.Equal(t, http.StatusTooManyRequests, serve("10.0.0.1:1004"))
}

func TestCORS(t *testing.T) {
	h := CORS([]string{"https://app.example.com/"}, "X-Admin-Key")(okHandler())

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Origin", "https://app.example.com")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, "https://app.example.com", rec.Header().Get("Access-Control-Allow-Origin"))

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Origin", "https://evil.example.com")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestLogging_PassesStatusThrough(t *testing.T) {
	h := Logging(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/brew", nil))
	assert.Equal(t, http.StatusTeapot, rec.Code)
}
