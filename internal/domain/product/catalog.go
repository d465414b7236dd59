package product

import (
	"context"

	"github.com/go-faster/errors"

	"github.com/CharityMuthoka/c-braids-beauty-shop/internal/domain/cart"
)

// FeaturedLimit caps the featured products shown on the landing page.
const FeaturedLimit = 8

// Catalog serves the storefront product views.
type Catalog struct {
	products Repository
}

// NewCatalog creates a Catalog over the given repository.
func NewCatalog(products Repository) *Catalog {
	return &Catalog{products: products}
}

// List returns products matching f, newest first.
func (c *Catalog) List(ctx context.Context, f Filter) ([]Product, error) {
	products, err := c.products.List(ctx, f)
	if err != nil {
		return nil, errors.Wrap(err, "list products")
	}
	return products, nil
}

// Featured returns up to FeaturedLimit featured products.
func (c *Catalog) Featured(ctx context.Context) ([]Product, error) {
	return c.List(ctx, Filter{Featured: true, Limit: FeaturedLimit})
}

// Get returns a single product.
func (c *Catalog) Get(ctx context.Context, id string) (*Product, error) {
	p, err := c.products.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, errors.Wrap(err, "get product")
	}
	return p, nil
}

// AddToCart adds one unit of the product to store. Products without stock
// are rejected with ErrOutOfStock and the cart is left untouched.
func (c *Catalog) AddToCart(ctx context.Context, store *cart.Store, id string) (*Product, error) {
	p, err := c.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !p.InStock() {
		return nil, ErrOutOfStock
	}

	store.AddItem(cart.Product{
		ID:       p.ID,
		Name:     p.Name,
		Price:    p.Price,
		ImageURL: p.ImageURL,
	})
	return p, nil
}
