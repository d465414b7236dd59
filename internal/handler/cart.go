package handler

import (
	"net/http"

	"github.com/go-faster/jx"
	"github.com/google/uuid"

	"github.com/CharityMuthoka/c-braids-beauty-shop/internal/domain/cart"
)

const (
	cartCookie       = "cart_session"
	cartCookieMaxAge = 30 * 24 * 60 * 60
)

// cartFor returns the cart of the requesting client, issuing a new session
// cookie when the request carries none or an invalid one.
func (h *Handler) cartFor(w http.ResponseWriter, r *http.Request) *cart.Store {
	var id string
	if c, err := r.Cookie(cartCookie); err == nil && uuid.Validate(c.Value) == nil {
		id = c.Value
	} else {
		id = uuid.NewString()
		http.SetCookie(w, &http.Cookie{
			Name:     cartCookie,
			Value:    id,
			Path:     "/",
			MaxAge:   cartCookieMaxAge,
			HttpOnly: true,
			Secure:   h.secureCookies,
			SameSite: http.SameSiteLaxMode,
		})
	}
	return h.carts.Get(r.Context(), id)
}

// getCart serves GET /api/cart.
func (h *Handler) getCart(w http.ResponseWriter, r *http.Request) {
	h.writeCart(w, http.StatusOK, h.cartFor(w, r))
}

// addCartItem serves POST /api/cart/items {"productId":...}.
func (h *Handler) addCartItem(w http.ResponseWriter, r *http.Request) {
	var productID string
	err := decodeBody(w, r, func(d *jx.Decoder, key string) error {
		switch key {
		case "productId":
			v, err := d.Str()
			productID = v
			return err
		default:
			return d.Skip()
		}
	})
	if err != nil {
		h.fail(w, r, err)
		return
	}
	if productID == "" {
		h.fail(w, r, badRequest("productId is required"))
		return
	}

	store := h.cartFor(w, r)
	if _, err := h.catalog.AddToCart(r.Context(), store, productID); err != nil {
		h.fail(w, r, err)
		return
	}
	h.writeCart(w, http.StatusOK, store)
}

// updateCartItem serves PATCH /api/cart/items/{id} {"quantity":n}. A
// quantity below one removes the line.
func (h *Handler) updateCartItem(w http.ResponseWriter, r *http.Request) {
	var (
		quantity int
		set      bool
	)
	err := decodeBody(w, r, func(d *jx.Decoder, key string) error {
		switch key {
		case "quantity":
			v, err := d.Int()
			quantity, set = v, err == nil
			return err
		default:
			return d.Skip()
		}
	})
	if err != nil {
		h.fail(w, r, err)
		return
	}
	if !set {
		h.fail(w, r, badRequest("quantity is required"))
		return
	}

	store := h.cartFor(w, r)
	store.UpdateQuantity(r.PathValue("id"), quantity)
	h.writeCart(w, http.StatusOK, store)
}

// removeCartItem serves DELETE /api/cart/items/{id}.
func (h *Handler) removeCartItem(w http.ResponseWriter, r *http.Request) {
	store := h.cartFor(w, r)
	store.RemoveItem(r.PathValue("id"))
	h.writeCart(w, http.StatusOK, store)
}

// clearCart serves DELETE /api/cart.
func (h *Handler) clearCart(w http.ResponseWriter, r *http.Request) {
	h.cartFor(w, r).Clear()
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) writeCart(w http.ResponseWriter, status int, store *cart.Store) {
	items := store.Items()
	var count int
	for _, it := range items {
		count += it.Quantity
	}
	writeJSON(w, status, func(e *jx.Encoder) {
		e.ObjStart()
		e.FieldStart("items")
		h.encodeItems(e, items)
		e.FieldStart("totalItems")
		e.Int(count)
		e.FieldStart("totalPrice")
		encodeDecimal(e, cart.Total(items))
		e.ObjEnd()
	})
}

func (h *Handler) encodeItems(e *jx.Encoder, items []cart.Item) {
	e.ArrStart()
	for _, it := range items {
		e.ObjStart()
		e.FieldStart("id")
		e.Str(it.ID)
		e.FieldStart("name")
		e.Str(it.Name)
		e.FieldStart("price")
		encodeDecimal(e, it.Price)
		e.FieldStart("image_url")
		if it.ImageURL == "" {
			e.Null()
		} else {
			e.Str(h.imageURL(it.ImageURL))
		}
		e.FieldStart("quantity")
		e.Int(it.Quantity)
		e.ObjEnd()
	}
	e.ArrEnd()
}
