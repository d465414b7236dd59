package postgres

import (
	"context"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/CharityMuthoka/c-braids-beauty-shop/internal/domain/cart"
)

const (
	loadCartSQL = `SELECT blob::text FROM cart_storage WHERE key = $1`

	saveCartSQL = `INSERT INTO cart_storage (key, blob, updated_at) VALUES ($1, $2, now())
		ON CONFLICT (key) DO UPDATE SET blob = EXCLUDED.blob, updated_at = now()`
)

var _ cart.Storage = (*CartStorage)(nil)

// CartStorage stores serialized carts in the cart_storage table.
type CartStorage struct {
	pool *pgxpool.Pool
}

// NewCartStorage returns a CartStorage that uses the given pool.
func NewCartStorage(pool *pgxpool.Pool) *CartStorage {
	return &CartStorage{pool: pool}
}

// Load returns the blob stored under key or cart.ErrNotStored.
func (s *CartStorage) Load(ctx context.Context, key string) ([]byte, error) {
	var blob string
	if err := s.pool.QueryRow(ctx, loadCartSQL, key).Scan(&blob); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, cart.ErrNotStored
		}
		return nil, fmt.Errorf("loading cart %q: %w", key, err)
	}
	return []byte(blob), nil
}

// Save upserts blob under key.
func (s *CartStorage) Save(ctx context.Context, key string, blob []byte) error {
	if _, err := s.pool.Exec(ctx, saveCartSQL, key, string(blob)); err != nil {
		return fmt.Errorf("saving cart %q: %w", key, err)
	}
	return nil
}
