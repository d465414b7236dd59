// Package handler serves the storefront and admin JSON API over net/http.
package handler

import (
	"net/http"
	"strings"
	"time"

	"github.com/CharityMuthoka/c-braids-beauty-shop/internal/domain/admin"
	"github.com/CharityMuthoka/c-braids-beauty-shop/internal/domain/auth"
	"github.com/CharityMuthoka/c-braids-beauty-shop/internal/domain/cart"
	"github.com/CharityMuthoka/c-braids-beauty-shop/internal/domain/checkout"
	"github.com/CharityMuthoka/c-braids-beauty-shop/internal/domain/product"
)

// HandlerConfig holds non-dependency configuration for the Handler.
type HandlerConfig struct {
	// ImageBaseURL is prepended to relative image paths in responses.
	// When empty, image paths are returned as stored.
	ImageBaseURL string
	// SecureCookies marks the cart session cookie Secure.
	SecureCookies bool
	// KeepAlive is the comment interval on event streams. Defaults to 15s.
	KeepAlive time.Duration
}

// Handler owns the HTTP surface and delegates to the domain services.
type Handler struct {
	catalog  *product.Catalog
	carts    *cart.Sessions
	checkout *checkout.Service
	auth     *auth.Service
	console  *admin.Console

	imageBaseURL  string
	secureCookies bool
	keepAlive     time.Duration
}

// NewHandler constructs a Handler with the required domain dependencies.
func NewHandler(
	cfg HandlerConfig,
	catalog *product.Catalog,
	carts *cart.Sessions,
	checkoutService *checkout.Service,
	authService *auth.Service,
	console *admin.Console,
) *Handler {
	if cfg.KeepAlive <= 0 {
		cfg.KeepAlive = 15 * time.Second
	}
	return &Handler{
		catalog:       catalog,
		carts:         carts,
		checkout:      checkoutService,
		auth:          authService,
		console:       console,
		imageBaseURL:  strings.TrimRight(cfg.ImageBaseURL, "/"),
		secureCookies: cfg.SecureCookies,
		keepAlive:     cfg.KeepAlive,
	}
}

// Register mounts every API route on mux.
func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/products", h.listProducts)
	mux.HandleFunc("GET /api/products/{id}", h.getProduct)

	mux.HandleFunc("GET /api/cart", h.getCart)
	mux.HandleFunc("DELETE /api/cart", h.clearCart)
	mux.HandleFunc("POST /api/cart/items", h.addCartItem)
	mux.HandleFunc("PATCH /api/cart/items/{id}", h.updateCartItem)
	mux.HandleFunc("DELETE /api/cart/items/{id}", h.removeCartItem)

	mux.HandleFunc("POST /api/checkout", h.placeOrder)

	mux.HandleFunc("POST /api/auth/signup", h.signUp)
	mux.HandleFunc("POST /api/auth/login", h.signIn)
	mux.HandleFunc("POST /api/auth/logout", h.signOut)
	mux.HandleFunc("GET /api/auth/session", h.getSession)

	mux.HandleFunc("GET /api/admin/products", h.adminListProducts)
	mux.HandleFunc("POST /api/admin/products", h.adminCreateProduct)
	mux.HandleFunc("PUT /api/admin/products/{id}", h.adminUpdateProduct)
	mux.HandleFunc("GET /api/admin/orders", h.adminListOrders)
	mux.HandleFunc("PATCH /api/admin/orders/{id}", h.adminUpdateOrder)
	mux.HandleFunc("GET /api/admin/orders/events", h.orderEvents)
}

// imageURL prefixes relative image paths with the configured base URL.
func (h *Handler) imageURL(path string) string {
	if path == "" || h.imageBaseURL == "" ||
		strings.HasPrefix(path, "http://") || strings.HasPrefix(path, "https://") {
		return path
	}
	return h.imageBaseURL + "/" + strings.TrimLeft(path, "/")
}
