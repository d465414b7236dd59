package product

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

var (
	// ErrNotFound is returned when a requested product does not exist.
	ErrNotFound = errors.New("product not found")
	// ErrOutOfStock is returned when adding a product with no stock to a cart.
	ErrOutOfStock = errors.New("product is out of stock")
	// ErrInvalidCategory is returned for a category outside the fixed set.
	ErrInvalidCategory = errors.New("invalid category")
)

// Category is one of the fixed catalog sections.
type Category string

const (
	CategoryPerfume  Category = "perfume"
	CategoryShoes    Category = "shoes"
	CategoryHaircare Category = "haircare"
	CategoryMakeup   Category = "makeup"
	CategorySkincare Category = "skincare"
)

// Categories lists every valid category in display order.
var Categories = []Category{
	CategoryPerfume,
	CategoryShoes,
	CategoryHaircare,
	CategoryMakeup,
	CategorySkincare,
}

// ParseCategory validates s. The empty string and "all" mean no category.
func ParseCategory(s string) (Category, error) {
	if s == "" || s == "all" {
		return "", nil
	}
	for _, c := range Categories {
		if string(c) == s {
			return c, nil
		}
	}
	return "", errors.Wrapf(ErrInvalidCategory, "%q", s)
}

// Product is a catalog item.
type Product struct {
	ID          string
	Name        string
	Price       decimal.Decimal
	Category    Category
	ImageURL    string
	Description string
	Stock       int
	Featured    bool
	CreatedAt   time.Time
}

// PriceScale is the number of decimal places a stored price keeps.
const PriceScale = 2

// MaxPrice is the largest price the catalog stores.
var MaxPrice = decimal.New(1, 10).Sub(decimal.New(1, -PriceScale))

// CheckPrice returns why p cannot be stored as a price, or "" when it can.
func CheckPrice(p decimal.Decimal) string {
	switch {
	case p.IsNegative():
		return "must be greater than or equal to 0"
	case !p.Equal(p.Truncate(PriceScale)):
		return "must have at most 2 decimal places"
	case p.GreaterThan(MaxPrice):
		return "must not exceed " + MaxPrice.String()
	}
	return ""
}

// InStock reports whether the product can be added to a cart.
func (p *Product) InStock() bool {
	return p.Stock > 0
}

// Filter narrows a product listing. Zero values mean "no constraint".
type Filter struct {
	Category Category
	Featured bool
	Limit    int
}

// Repository defines catalog persistence. List orders by creation time,
// newest first.
type Repository interface {
	List(ctx context.Context, f Filter) ([]Product, error)
	GetByID(ctx context.Context, id string) (*Product, error)
	Create(ctx context.Context, p *Product) error
	Update(ctx context.Context, p *Product) error
}
