package handler

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-faster/jx"

	"github.com/CharityMuthoka/c-braids-beauty-shop/internal/domain/product"
)

// listProducts serves GET /api/products?category=&featured=.
func (h *Handler) listProducts(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	category, err := product.ParseCategory(q.Get("category"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	var featured bool
	if v := q.Get("featured"); v != "" {
		if featured, err = strconv.ParseBool(v); err != nil {
			h.fail(w, r, badRequest("featured must be a boolean"))
			return
		}
	}

	var products []product.Product
	if featured && category == "" {
		products, err = h.catalog.Featured(r.Context())
	} else {
		products, err = h.catalog.List(r.Context(), product.Filter{Category: category, Featured: featured})
	}
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, func(e *jx.Encoder) {
		h.encodeProducts(e, products)
	})
}

// getProduct serves GET /api/products/{id}.
func (h *Handler) getProduct(w http.ResponseWriter, r *http.Request) {
	p, err := h.catalog.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, func(e *jx.Encoder) {
		h.encodeProduct(e, *p)
	})
}

func (h *Handler) encodeProducts(e *jx.Encoder, products []product.Product) {
	e.ArrStart()
	for _, p := range products {
		h.encodeProduct(e, p)
	}
	e.ArrEnd()
}

func (h *Handler) encodeProduct(e *jx.Encoder, p product.Product) {
	e.ObjStart()
	e.FieldStart("id")
	e.Str(p.ID)
	e.FieldStart("name")
	e.Str(p.Name)
	e.FieldStart("price")
	encodeDecimal(e, p.Price)
	e.FieldStart("category")
	e.Str(string(p.Category))
	e.FieldStart("image_url")
	if p.ImageURL == "" {
		e.Null()
	} else {
		e.Str(h.imageURL(p.ImageURL))
	}
	e.FieldStart("description")
	e.Str(p.Description)
	e.FieldStart("stock")
	e.Int(p.Stock)
	e.FieldStart("in_stock")
	e.Bool(p.InStock())
	e.FieldStart("featured")
	e.Bool(p.Featured)
	e.FieldStart("created_at")
	e.Str(p.CreatedAt.UTC().Format(time.RFC3339))
	e.ObjEnd()
}
