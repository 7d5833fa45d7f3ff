package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/adhiadhi/oxeye-server/internal/model"
)

func TestRateLimiter(t *testing.T) {
	t.Run("allows requests under the limit", func(t *testing.T) {
		rl := NewRateLimiter()

		for i := 0; i < 5; i++ {
			allowed, _, _ := rl.Check("key", 5)
			assert.True(t, allowed)
		}
	})

	t.Run("blocks once the limit is hit", func(t *testing.T) {
		rl := NewRateLimiter()

		for i := 0; i < 3; i++ {
			rl.Check("key", 3)
		}
		allowed, remaining, _ := rl.Check("key", 3)
		assert.False(t, allowed)
		assert.Zero(t, remaining)
	})

	t.Run("limits keys independently", func(t *testing.T) {
		rl := NewRateLimiter()

		for i := 0; i < 3; i++ {
			rl.Check("a", 3)
		}
		allowed, _, _ := rl.Check("b", 3)
		assert.True(t, allowed)
	})

	t.Run("reports decreasing remaining", func(t *testing.T) {
		rl := NewRateLimiter()

		_, r1, _ := rl.Check("key", 10)
		_, r2, _ := rl.Check("key", 10)
		assert.Equal(t, 9, r1)
		assert.Equal(t, 8, r2)
	})
}

func TestRateLimitMiddleware(t *testing.T) {
	okHandler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	withServer := func(r *http.Request) *http.Request {
		server := &model.Server{APIKeyHash: "hash", Name: "survival", GuildID: 42}
		return r.WithContext(context.WithValue(r.Context(), ServerContextKey, server))
	}

	t.Run("sets rate limit headers", func(t *testing.T) {
		m := NewRateLimitMiddleware(10)

		req := withServer(httptest.NewRequest(http.MethodGet, "/", nil))
		rec := httptest.NewRecorder()

		m.Handler(okHandler).ServeHTTP(rec, req)
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "10", rec.Header().Get("X-RateLimit-Limit"))
		assert.Equal(t, "9", rec.Header().Get("X-RateLimit-Remaining"))
	})

	t.Run("returns 429 past the limit", func(t *testing.T) {
		m := NewRateLimitMiddleware(2)

		var rec *httptest.ResponseRecorder
		for i := 0; i < 3; i++ {
			req := withServer(httptest.NewRequest(http.MethodGet, "/", nil))
			rec = httptest.NewRecorder()
			m.Handler(okHandler).ServeHTTP(rec, req)
		}

		assert.Equal(t, http.StatusTooManyRequests, rec.Code)
		assert.Equal(t, "60", rec.Header().Get("Retry-After"))
	})

	t.Run("skips unauthenticated requests", func(t *testing.T) {
		m := NewRateLimitMiddleware(1)

		for i := 0; i < 3; i++ {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			rec := httptest.NewRecorder()
			m.Handler(okHandler).ServeHTTP(rec, req)
			assert.Equal(t, http.StatusOK, rec.Code)
		}
	})
}
