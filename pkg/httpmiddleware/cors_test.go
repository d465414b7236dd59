package httpmiddleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func corsRequest(method, origin string, preflight bool) *http.Request {
	req := httptest.NewRequest(method, "/api/cart", nil)
	if origin != "" {
		req.Header.Set("Origin", origin)
	}
	if preflight {
		req.Header.Set("Access-Control-Request-Method", http.MethodPatch)
		req.Header.Set("Access-Control-Request-Headers", "Content-Type")
	}
	return req
}

func TestCORS_Preflight(t *testing.T) {
	h := CORS(CORSConfig{
		AllowOrigins: []string{"https://Shop.example.com"},
		AllowHeaders: []string{"Content-Type", "Authorization"},
		MaxAge:       600,
	})(okHandler())

	w := httptest.NewRecorder()
	h.ServeHTTP(w, corsRequest(http.MethodOptions, "https://shop.example.com", true))

	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "https://Shop.example.com", w.Header().Get("Access-Control-Allow-Origin"))
	assert.Contains(t, w.Header().Get("Access-Control-Allow-Methods"), http.MethodPatch)
	assert.Equal(t, "Content-Type, Authorization", w.Header().Get("Access-Control-Allow-Headers"))
	assert.Equal(t, "600", w.Header().Get("Access-Control-Max-Age"))
	assert.ElementsMatch(t,
		[]string{"Origin", "Access-Control-Request-Method", "Access-Control-Request-Headers"},
		w.Header().Values("Vary"))
}

func TestCORS_PreflightDisallowed(t *testing.T) {
	h := CORS(CORSConfig{AllowOrigins: []string{"https://shop.example.com"}})(okHandler())

	w := httptest.NewRecorder()
	h.ServeHTTP(w, corsRequest(http.MethodOptions, "https://evil.example.com", true))

	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Empty(t, w.Header().Get("Access-Control-Allow-Origin"))
}

func TestCORS_EchoesRequestedHeaders(t *testing.T) {
	h := CORS(CORSConfig{})(okHandler())

	w := httptest.NewRecorder()
	h.ServeHTTP(w, corsRequest(http.MethodOptions, "https://any.example.com", true))

	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "Content-Type", w.Header().Get("Access-Control-Allow-Headers"))
}

func TestCORS_Actual(t *testing.T) {
	tests := []struct {
		name        string
		cfg         CORSConfig
		origin      string
		wantOrigin  string
		wantCreds   string
		wantVary    bool
		wantExposed string
	}{
		{
			name:       "wildcard",
			cfg:        CORSConfig{AllowOrigins: []string{"*"}},
			origin:     "https://a.example.com",
			wantOrigin: "*",
		},
		{
			name:        "listed origin with credentials",
			cfg:         CORSConfig{AllowOrigins: []string{"https://shop.example.com"}, AllowCredentials: true, ExposeHeaders: []string{"X-Request-ID"}},
			origin:      "https://shop.example.com",
			wantOrigin:  "https://shop.example.com",
			wantCreds:   "true",
			wantVary:    true,
			wantExposed: "X-Request-ID",
		},
		{
			name:       "wildcard with credentials echoes origin",
			cfg:        CORSConfig{AllowOrigins: []string{"*"}, AllowCredentials: true},
			origin:     "https://b.example.com",
			wantOrigin: "https://b.example.com",
			wantCreds:  "true",
			wantVary:   true,
		},
		{
			name:     "unlisted origin",
			cfg:      CORSConfig{AllowOrigins: []string{"https://shop.example.com"}},
			origin:   "https://evil.example.com",
			wantVary: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := CORS(tt.cfg)(okHandler())
			w := httptest.NewRecorder()
			h.ServeHTTP(w, corsRequest(http.MethodGet, tt.origin, false))

			assert.Equal(t, http.StatusOK, w.Code)
			assert.Equal(t, tt.wantOrigin, w.Header().Get("Access-Control-Allow-Origin"))
			assert.Equal(t, tt.wantCreds, w.Header().Get("Access-Control-Allow-Credentials"))
			assert.Equal(t, tt.wantExposed, w.Header().Get("Access-Control-Expose-Headers"))
			if tt.wantVary {
				assert.Equal(t, "Origin", w.Header().Get("Vary"))
			} else {
				assert.Empty(t, w.Header().Get("Vary"))
			}
		})
	}
}

func TestCORS_NoOrigin(t *testing.T) {
	h := CORS(CORSConfig{AllowOrigins: []string{"https://shop.example.com"}})(okHandler())

	w := httptest.NewRecorder()
	h.ServeHTTP(w, corsRequest(http.MethodGet, "", false))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, w.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "Origin", w.Header().Get("Vary"))
}
