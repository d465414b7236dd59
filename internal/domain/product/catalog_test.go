package product

import (
	"context"
	"testing"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/CharityMuthoka/c-braids-beauty-shop/internal/domain/cart"
)

// --- Mock implementations ---

type mockRepo struct {
	byID     map[string]*Product
	listErr  error
	getErr   error
	lastList Filter
}

func (m *mockRepo) List(_ context.Context, f Filter) ([]Product, error) {
	m.lastList = f
	if m.listErr != nil {
		return nil, m.listErr
	}
	var out []Product
	for _, p := range m.byID {
		out = append(out, *p)
	}
	return out, nil
}

func (m *mockRepo) GetByID(_ context.Context, id string) (*Product, error) {
	if m.getErr != nil {
		return nil, m.getErr
	}
	p, ok := m.byID[id]
	if !ok {
		return nil, ErrNotFound
	}
	return p, nil
}

func (m *mockRepo) Create(_ context.Context, _ *Product) error { return nil }
func (m *mockRepo) Update(_ context.Context, _ *Product) error { return nil }

func newRepo(products ...Product) *mockRepo {
	byID := make(map[string]*Product, len(products))
	for i := range products {
		byID[products[i].ID] = &products[i]
	}
	return &mockRepo{byID: byID}
}

// --- Tests ---

func TestParseCategory(t *testing.T) {
	for _, c := range Categories {
		got, err := ParseCategory(string(c))
		require.NoError(t, err)
		assert.Equal(t, c, got)
	}

	for _, s := range []string{"", "all"} {
		got, err := ParseCategory(s)
		require.NoError(t, err)
		assert.Empty(t, got)
	}

	_, err := ParseCategory("jewelry")
	require.ErrorIs(t, err, ErrInvalidCategory)
}

func TestCatalog_Featured(t *testing.T) {
	repo := newRepo()
	c := NewCatalog(repo)

	_, err := c.Featured(context.Background())
	require.NoError(t, err)
	assert.Equal(t, Filter{Featured: true, Limit: FeaturedLimit}, repo.lastList)
}

func TestCatalog_ListError(t *testing.T) {
	c := NewCatalog(&mockRepo{listErr: errors.New("db down")})

	_, err := c.List(context.Background(), Filter{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "list products")
}

func TestCatalog_Get(t *testing.T) {
	c := NewCatalog(newRepo(Product{ID: "p1", Name: "Oud"}))

	p, err := c.Get(context.Background(), "p1")
	require.NoError(t, err)
	assert.Equal(t, "Oud", p.Name)

	_, err = c.Get(context.Background(), "missing")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestCatalog_AddToCart(t *testing.T) {
	inStock := Product{ID: "p1", Name: "Shea Butter", Price: decimal.RequireFromString("450"), Stock: 3, ImageURL: "shea.jpg"}
	soldOut := Product{ID: "p2", Name: "Rose Oil", Price: decimal.RequireFromString("900"), Stock: 0}
	negative := Product{ID: "p3", Name: "Legacy", Price: decimal.RequireFromString("1"), Stock: -2}

	tests := []struct {
		name      string
		id        string
		wantErr   error
		wantItems int
	}{
		{name: "in stock is added", id: "p1", wantItems: 1},
		{name: "zero stock is rejected", id: "p2", wantErr: ErrOutOfStock},
		{name: "negative stock is rejected", id: "p3", wantErr: ErrOutOfStock},
		{name: "unknown product", id: "nope", wantErr: ErrNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := NewCatalog(newRepo(inStock, soldOut, negative))
			store := cart.New(nil, cart.StorageKey, nil)

			_, err := c.AddToCart(context.Background(), store, tt.id)
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				assert.Zero(t, store.Len(), "cart must not change on rejection")
				return
			}

			require.NoError(t, err)
			items := store.Items()
			require.Len(t, items, tt.wantItems)
			assert.Equal(t, "Shea Butter", items[0].Name)
			assert.Equal(t, "shea.jpg", items[0].ImageURL)
			assert.True(t, inStock.Price.Equal(items[0].Price))
		})
	}
}

func TestCheckPrice(t *testing.T) {
	tests := []struct {
		price string
		want  string
	}{
		{price: "0", want: ""},
		{price: "1250.50", want: ""},
		{price: "9999999999.99", want: ""},
		{price: "-0.01", want: "must be greater than or equal to 0"},
		{price: "12.345", want: "must have at most 2 decimal places"},
		{price: "10000000000", want: "must not exceed 9999999999.99"},
	}
	for _, tt := range tests {
		t.Run(tt.price, func(t *testing.T) {
			assert.Equal(t, tt.want, CheckPrice(decimal.RequireFromString(tt.price)))
		})
	}
}
