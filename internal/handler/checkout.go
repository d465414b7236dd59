package handler

import (
	"net/http"
	"time"

	"github.com/go-faster/jx"

	"github.com/CharityMuthoka/c-braids-beauty-shop/internal/domain/order"
)

// placeOrder serves POST /api/checkout with the customer details; the items
// come from the caller's cart.
func (h *Handler) placeOrder(w http.ResponseWriter, r *http.Request) {
	var c order.Customer
	err := decodeBody(w, r, func(d *jx.Decoder, key string) error {
		var (
			v   string
			err error
		)
		switch key {
		case "name":
			v, err = optStr(d)
			c.Name = v
		case "email":
			v, err = optStr(d)
			c.Email = v
		case "phone":
			v, err = optStr(d)
			c.Phone = v
		case "address":
			v, err = optStr(d)
			c.Address = v
		default:
			err = d.Skip()
		}
		return err
	})
	if err != nil {
		h.fail(w, r, err)
		return
	}

	o, err := h.checkout.Checkout(r.Context(), h.cartFor(w, r), c)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, func(e *jx.Encoder) {
		h.encodeOrder(e, *o)
	})
}

func (h *Handler) encodeOrders(e *jx.Encoder, orders []order.Order) {
	e.ArrStart()
	for _, o := range orders {
		h.encodeOrder(e, o)
	}
	e.ArrEnd()
}

func (h *Handler) encodeOrder(e *jx.Encoder, o order.Order) {
	e.ObjStart()
	e.FieldStart("id")
	e.Str(o.ID)
	e.FieldStart("customer")
	e.ObjStart()
	e.FieldStart("name")
	e.Str(o.Customer.Name)
	e.FieldStart("email")
	e.Str(o.Customer.Email)
	e.FieldStart("phone")
	e.Str(o.Customer.Phone)
	e.FieldStart("address")
	e.Str(o.Customer.Address)
	e.ObjEnd()
	e.FieldStart("items")
	h.encodeItems(e, o.Items)
	e.FieldStart("total")
	encodeDecimal(e, o.Total)
	e.FieldStart("status")
	e.Str(string(o.Status))
	e.FieldStart("created_at")
	e.Str(o.CreatedAt.UTC().Format(time.RFC3339))
	e.FieldStart("updated_at")
	e.Str(o.UpdatedAt.UTC().Format(time.RFC3339))
	e.ObjEnd()
}
