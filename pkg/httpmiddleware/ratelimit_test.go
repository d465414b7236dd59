package httpmiddleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func doFrom(h http.Handler, method, path, remoteAddr string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, nil)
	req.RemoteAddr = remoteAddr
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func TestRateLimit_LimitsPerClient(t *testing.T) {
	h := RateLimit(RateLimitConfig{Max: 3, Window: time.Minute})(okHandler())

	for i := range 3 {
		w := doFrom(h, http.MethodPost, "/api/auth/login", "10.0.0.1:1000")
		require.Equal(t, http.StatusOK, w.Code, "request %d", i+1)
		assert.Equal(t, "3", w.Header().Get("X-RateLimit-Limit"))
	}

	w := doFrom(h, http.MethodPost, "/api/auth/login", "10.0.0.1:2000")
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, "0", w.Header().Get("X-RateLimit-Remaining"))
	assert.NotEmpty(t, w.Header().Get("Retry-After"))
	assert.JSONEq(t, `{"code":429,"message":"too many requests, slow down"}`, w.Body.String())

	w = doFrom(h, http.MethodPost, "/api/auth/login", "10.0.0.2:1000")
	assert.Equal(t, http.StatusOK, w.Code, "other clients are independent")
}

func TestRateLimit_RemainingCountsDown(t *testing.T) {
	h := RateLimit(RateLimitConfig{Max: 3, Window: time.Minute})(okHandler())

	var got []string
	for range 3 {
		got = append(got, doFrom(h, http.MethodGet, "/", "10.0.0.1:1").Header().Get("X-RateLimit-Remaining"))
	}
	assert.Equal(t, []string{"2", "1", "0"}, got)
}

func TestRateLimit_PathPrefixes(t *testing.T) {
	h := RateLimit(RateLimitConfig{
		Max:          1,
		Window:       time.Minute,
		PathPrefixes: []string{"/api/auth/"},
	})(okHandler())

	assert.Equal(t, http.StatusOK, doFrom(h, http.MethodPost, "/api/auth/login", "10.0.0.1:1").Code)
	assert.Equal(t, http.StatusTooManyRequests, doFrom(h, http.MethodPost, "/api/auth/signup", "10.0.0.1:1").Code)

	for range 5 {
		w := doFrom(h, http.MethodGet, "/api/products", "10.0.0.1:1")
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Empty(t, w.Header().Get("X-RateLimit-Limit"), "unlimited paths get no headers")
	}
}

func TestRateLimit_CustomKeyFunc(t *testing.T) {
	h := RateLimit(RateLimitConfig{
		Max:     1,
		Window:  time.Minute,
		KeyFunc: func(r *http.Request) string { return r.Header.Get("Authorization") },
	})(okHandler())

	do := func(token string) int {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Authorization", token)
		w := httptest.NewRecorder()
		h.ServeHTTP(w, req)
		return w.Code
	}

	assert.Equal(t, http.StatusOK, do("Bearer a"))
	assert.Equal(t, http.StatusTooManyRequests, do("Bearer a"))
	assert.Equal(t, http.StatusOK, do("Bearer b"))
}

func TestLimiter_SlidingWindow(t *testing.T) {
	l := newLimiter(RateLimitConfig{Max: 4, Window: time.Minute})
	start := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)

	for range 4 {
		_, _, ok := l.take("k", start)
		require.True(t, ok)
	}
	_, _, ok := l.take("k", start.Add(30*time.Second))
	assert.False(t, ok, "same window is full")

	// Half way into the next window the previous one still counts for half.
	_, _, ok = l.take("k", start.Add(90*time.Second))
	assert.True(t, ok)
	_, _, ok = l.take("k", start.Add(90*time.Second))
	assert.True(t, ok)
	_, _, ok = l.take("k", start.Add(90*time.Second))
	assert.False(t, ok)

	// Two windows later everything is forgotten.
	for range 4 {
		_, _, ok = l.take("k", start.Add(5*time.Minute))
		require.True(t, ok)
	}
}

func TestLimiter_Evict(t *testing.T) {
	l := newLimiter(RateLimitConfig{Max: 1, Window: time.Minute})
	now := time.Now()
	l.take("a", now)
	l.take("b", now.Add(3*time.Minute))

	l.evict(now.Add(3 * time.Minute))
	assert.NotContains(t, l.windows, "a")
	assert.Contains(t, l.windows, "b")
}

func TestClientIP(t *testing.T) {
	tests := []struct {
		name   string
		header map[string]string
		remote string
		want   string
	}{
		{name: "forwarded first hop", header: map[string]string{"X-Forwarded-For": "203.0.113.50, 70.41.3.18"}, remote: "10.0.0.1:1", want: "203.0.113.50"},
		{name: "real ip", header: map[string]string{"X-Real-IP": "198.51.100.7"}, remote: "10.0.0.1:1", want: "198.51.100.7"},
		{name: "remote addr", remote: "192.0.2.1:5555", want: "192.0.2.1"},
		{name: "remote without port", remote: "192.0.2.1", want: "192.0.2.1"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.RemoteAddr = tt.remote
			for k, v := range tt.header {
				req.Header.Set(k, v)
			}
			assert.Equal(t, tt.want, ClientIP(req))
		})
	}
}
