// Package admin implements the back-office console: order and product
// management plus a live feed of order updates. Every operation requires a
// session whose user holds the admin role.
package admin

import (
	"context"
	"strings"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/CharityMuthoka/c-braids-beauty-shop/internal/domain/auth"
	"github.com/CharityMuthoka/c-braids-beauty-shop/internal/domain/order"
	"github.com/CharityMuthoka/c-braids-beauty-shop/internal/domain/product"
	"github.com/CharityMuthoka/c-braids-beauty-shop/internal/realtime"
	"github.com/CharityMuthoka/c-braids-beauty-shop/internal/validation"
)

// ErrForbidden is returned when the caller is not an admin.
var ErrForbidden = errors.New("admin role required")

// Authorizer answers whether a user is an admin.
type Authorizer interface {
	IsAdmin(ctx context.Context, userID string) (bool, error)
}

// Subscriber is the realtime source the console watches.
type Subscriber interface {
	Subscribe(table string, typ realtime.EventType) (*realtime.Subscription, error)
	Unsubscribe(s *realtime.Subscription)
}

// ProductForm is the editable part of a product.
type ProductForm struct {
	Name        string          `json:"name" validate:"required,max=200"`
	Price       decimal.Decimal `json:"price"`
	Category    string          `json:"category" validate:"required,oneof=perfume shoes haircare makeup skincare"`
	ImageURL    string          `json:"image_url" validate:"omitempty,url"`
	Description string          `json:"description" validate:"max=2000"`
	Stock       int             `json:"stock" validate:"gte=0"`
	Featured    bool            `json:"featured"`
}

func (f *ProductForm) validate() error {
	f.Name = strings.TrimSpace(f.Name)
	f.ImageURL = strings.TrimSpace(f.ImageURL)

	err := validation.Struct(f)
	var verr *validation.Error
	switch {
	case err == nil:
		verr = &validation.Error{Fields: map[string]string{}}
	case !errors.As(err, &verr):
		return err
	}
	if msg := product.CheckPrice(f.Price); msg != "" {
		verr.Fields["price"] = msg
	}
	if len(verr.Fields) > 0 {
		return verr
	}
	return nil
}

// Console is the admin-only view over orders and products.
type Console struct {
	authz    Authorizer
	orders   order.Repository
	products product.Repository
	events   Subscriber
}

// NewConsole creates a Console.
func NewConsole(authz Authorizer, orders order.Repository, products product.Repository, events Subscriber) *Console {
	return &Console{
		authz:    authz,
		orders:   orders,
		products: products,
		events:   events,
	}
}

// Authorize returns ErrForbidden unless sess belongs to an admin.
func (c *Console) Authorize(ctx context.Context, sess *auth.Session) error {
	if sess == nil {
		return ErrForbidden
	}
	ok, err := c.authz.IsAdmin(ctx, sess.User.ID)
	if err != nil {
		return errors.Wrap(err, "authorize")
	}
	if !ok {
		return ErrForbidden
	}
	return nil
}

// ListOrders returns all orders, newest first.
func (c *Console) ListOrders(ctx context.Context, sess *auth.Session) ([]order.Order, error) {
	if err := c.Authorize(ctx, sess); err != nil {
		return nil, err
	}
	orders, err := c.orders.List(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "list orders")
	}
	return orders, nil
}

// UpdateOrderStatus moves an order to status.
func (c *Console) UpdateOrderStatus(ctx context.Context, sess *auth.Session, id, status string) error {
	if err := c.Authorize(ctx, sess); err != nil {
		return err
	}
	st, err := order.ParseStatus(status)
	if err != nil {
		return err
	}
	if err := c.orders.UpdateStatus(ctx, id, st); err != nil {
		if errors.Is(err, order.ErrNotFound) {
			return order.ErrNotFound
		}
		return errors.Wrap(err, "update order status")
	}
	return nil
}

// ListProducts returns all products, newest first.
func (c *Console) ListProducts(ctx context.Context, sess *auth.Session) ([]product.Product, error) {
	if err := c.Authorize(ctx, sess); err != nil {
		return nil, err
	}
	products, err := c.products.List(ctx, product.Filter{})
	if err != nil {
		return nil, errors.Wrap(err, "list products")
	}
	return products, nil
}

// SaveProduct inserts a new product when id is empty and updates the
// existing one otherwise.
func (c *Console) SaveProduct(ctx context.Context, sess *auth.Session, id string, form ProductForm) (*product.Product, error) {
	if err := c.Authorize(ctx, sess); err != nil {
		return nil, err
	}
	if err := form.validate(); err != nil {
		return nil, err
	}

	if id == "" {
		p := &product.Product{ID: uuid.New().String()}
		apply(p, form)
		if err := c.products.Create(ctx, p); err != nil {
			return nil, errors.Wrap(err, "create product")
		}
		return p, nil
	}

	p, err := c.products.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, product.ErrNotFound) {
			return nil, product.ErrNotFound
		}
		return nil, errors.Wrap(err, "get product")
	}
	apply(p, form)
	if err := c.products.Update(ctx, p); err != nil {
		if errors.Is(err, product.ErrNotFound) {
			return nil, product.ErrNotFound
		}
		return nil, errors.Wrap(err, "update product")
	}
	return p, nil
}

func apply(p *product.Product, f ProductForm) {
	p.Name = f.Name
	p.Price = f.Price
	p.Category = product.Category(f.Category)
	p.ImageURL = f.ImageURL
	p.Description = f.Description
	p.Stock = f.Stock
	p.Featured = f.Featured
}
