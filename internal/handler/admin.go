package handler

import (
	"net/http"

	"github.com/go-faster/jx"

	"github.com/CharityMuthoka/c-braids-beauty-shop/internal/domain/admin"
	"github.com/CharityMuthoka/c-braids-beauty-shop/internal/domain/cart"
)

// adminListProducts serves GET /api/admin/products.
func (h *Handler) adminListProducts(w http.ResponseWriter, r *http.Request) {
	sess, err := h.session(r, bearerToken(r))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	products, err := h.console.ListProducts(r.Context(), sess)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, func(e *jx.Encoder) {
		h.encodeProducts(e, products)
	})
}

// adminCreateProduct serves POST /api/admin/products.
func (h *Handler) adminCreateProduct(w http.ResponseWriter, r *http.Request) {
	h.saveProduct(w, r, "", http.StatusCreated)
}

// adminUpdateProduct serves PUT /api/admin/products/{id}.
func (h *Handler) adminUpdateProduct(w http.ResponseWriter, r *http.Request) {
	h.saveProduct(w, r, r.PathValue("id"), http.StatusOK)
}

func (h *Handler) saveProduct(w http.ResponseWriter, r *http.Request, id string, status int) {
	sess, err := h.session(r, bearerToken(r))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	form, err := decodeProductForm(w, r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	p, err := h.console.SaveProduct(r.Context(), sess, id, form)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, status, func(e *jx.Encoder) {
		h.encodeProduct(e, *p)
	})
}

func decodeProductForm(w http.ResponseWriter, r *http.Request) (admin.ProductForm, error) {
	var f admin.ProductForm
	err := decodeBody(w, r, func(d *jx.Decoder, key string) error {
		var err error
		switch key {
		case "name":
			f.Name, err = optStr(d)
		case "price":
			if f.Price, err = cart.DecodeDecimal(d); err != nil {
				return badRequest("price must be a number")
			}
		case "category":
			f.Category, err = optStr(d)
		case "image_url":
			f.ImageURL, err = optStr(d)
		case "description":
			f.Description, err = optStr(d)
		case "stock":
			if f.Stock, err = d.Int(); err != nil {
				return badRequest("stock must be an integer")
			}
		case "featured":
			f.Featured, err = d.Bool()
		default:
			err = d.Skip()
		}
		return err
	})
	return f, err
}

// adminListOrders serves GET /api/admin/orders.
func (h *Handler) adminListOrders(w http.ResponseWriter, r *http.Request) {
	sess, err := h.session(r, bearerToken(r))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	orders, err := h.console.ListOrders(r.Context(), sess)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, func(e *jx.Encoder) {
		h.encodeOrders(e, orders)
	})
}

// adminUpdateOrder serves PATCH /api/admin/orders/{id} {"status":...}.
func (h *Handler) adminUpdateOrder(w http.ResponseWriter, r *http.Request) {
	sess, err := h.session(r, bearerToken(r))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	var status string
	err = decodeBody(w, r, func(d *jx.Decoder, key string) error {
		if key != "status" {
			return d.Skip()
		}
		v, err := d.Str()
		status = v
		return err
	})
	if err != nil {
		h.fail(w, r, err)
		return
	}

	id := r.PathValue("id")
	if err := h.console.UpdateOrderStatus(r.Context(), sess, id, status); err != nil {
		h.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
