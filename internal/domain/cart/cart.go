// Package cart holds the client-side shopping cart: an ordered set of line
// items keyed by product id, persisted as a blob after every mutation.
package cart

import (
	"context"
	"sync"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// StorageKey is the fixed key the cart blob is stored under. Per-session
// carts append ":<session id>".
const StorageKey = "cart-storage"

// ErrNotStored is returned by Storage.Load when no blob exists for a key.
var ErrNotStored = errors.New("cart not stored")

// Item is a single line item: one product plus its requested quantity.
type Item struct {
	ID       string
	Name     string
	Price    decimal.Decimal
	ImageURL string
	Quantity int
}

// Product is a product reference without quantity, as passed to AddItem.
type Product struct {
	ID       string
	Name     string
	Price    decimal.Decimal
	ImageURL string
}

// Storage persists serialized cart blobs under a key.
type Storage interface {
	Load(ctx context.Context, key string) ([]byte, error)
	Save(ctx context.Context, key string, blob []byte) error
}

const defaultSaveTimeout = 2 * time.Second

// Store is the cart state container. All operations are safe for concurrent
// use and never fail: persistence errors are logged and dropped, the
// in-memory state stays authoritative.
type Store struct {
	mu    sync.Mutex
	items []Item
	index map[string]int

	storage     Storage
	key         string
	lg          *zap.Logger
	saveTimeout time.Duration
	touched     time.Time

	// evicted is set once Sessions drops the store; every later call is
	// served by the store resolve returns.
	evicted bool
	resolve func() *Store
}

// New returns an empty Store persisting to storage under key. A nil storage
// disables persistence.
func New(storage Storage, key string, lg *zap.Logger) *Store {
	if lg == nil {
		lg = zap.NewNop()
	}
	return &Store{
		index:       make(map[string]int),
		storage:     storage,
		key:         key,
		lg:          lg,
		saveTimeout: defaultSaveTimeout,
		touched:     time.Now(),
	}
}

// Load restores a Store from storage. A missing, unreadable or corrupt blob
// yields an empty cart.
func Load(ctx context.Context, storage Storage, key string, lg *zap.Logger) *Store {
	s := New(storage, key, lg)
	if storage == nil {
		return s
	}

	blob, err := storage.Load(ctx, key)
	switch {
	case errors.Is(err, ErrNotStored):
		return s
	case err != nil:
		s.lg.Warn("Load cart", zap.String("key", key), zap.Error(err))
		return s
	}

	items, err := Unmarshal(blob)
	if err != nil {
		s.lg.Warn("Decode cart", zap.String("key", key), zap.Error(err))
		return s
	}
	for _, it := range items {
		s.index[it.ID] = len(s.items)
		s.items = append(s.items, it)
	}
	return s
}

// AddItem increments the quantity of p if present, otherwise appends it with
// quantity 1.
func (s *Store) AddItem(p Product) {
	s = s.acquire()
	defer s.mu.Unlock()

	if i, ok := s.index[p.ID]; ok {
		s.items[i].Quantity++
	} else {
		s.index[p.ID] = len(s.items)
		s.items = append(s.items, Item{
			ID:       p.ID,
			Name:     p.Name,
			Price:    p.Price,
			ImageURL: p.ImageURL,
			Quantity: 1,
		})
	}
	s.persistLocked()
}

// RemoveItem drops the item with the given id. Absent ids are ignored.
func (s *Store) RemoveItem(id string) {
	s = s.acquire()
	defer s.mu.Unlock()

	s.removeLocked(id)
	s.persistLocked()
}

// UpdateQuantity sets the quantity of id. A quantity of zero or less removes
// the item. Absent ids are ignored.
func (s *Store) UpdateQuantity(id string, quantity int) {
	s = s.acquire()
	defer s.mu.Unlock()

	i, ok := s.index[id]
	if !ok {
		s.persistLocked()
		return
	}
	if quantity <= 0 {
		s.removeLocked(id)
	} else {
		s.items[i].Quantity = quantity
	}
	s.persistLocked()
}

// Clear empties the cart.
func (s *Store) Clear() {
	s = s.acquire()
	defer s.mu.Unlock()

	s.items = nil
	s.index = make(map[string]int)
	s.persistLocked()
}

// Subtract takes the quantities of items off the matching lines. Lines that
// reach zero are removed; lines added or increased since items was taken
// keep the difference.
func (s *Store) Subtract(items []Item) {
	s = s.acquire()
	defer s.mu.Unlock()

	for _, it := range items {
		i, ok := s.index[it.ID]
		if !ok {
			continue
		}
		if left := s.items[i].Quantity - it.Quantity; left > 0 {
			s.items[i].Quantity = left
		} else {
			s.removeLocked(it.ID)
		}
	}
	s.persistLocked()
}

// Items returns a copy of the line items in insertion order.
func (s *Store) Items() []Item {
	s = s.acquire()
	defer s.mu.Unlock()

	out := make([]Item, len(s.items))
	copy(out, s.items)
	return out
}

// Len returns the number of distinct line items.
func (s *Store) Len() int {
	s = s.acquire()
	defer s.mu.Unlock()
	return len(s.items)
}

// TotalItems returns the sum of quantities.
func (s *Store) TotalItems() int {
	s = s.acquire()
	defer s.mu.Unlock()

	n := 0
	for _, it := range s.items {
		n += it.Quantity
	}
	return n
}

// TotalPrice returns the sum of price×quantity, recomputed from the current
// items on every call.
func (s *Store) TotalPrice() decimal.Decimal {
	s = s.acquire()
	defer s.mu.Unlock()
	return Total(s.items)
}

// Total sums price×quantity over items.
func Total(items []Item) decimal.Decimal {
	total := decimal.Zero
	for _, it := range items {
		total = total.Add(it.Price.Mul(decimal.NewFromInt(int64(it.Quantity))))
	}
	return total
}

// acquire locks and returns the store currently serving this cart.
func (s *Store) acquire() *Store {
	for {
		s.mu.Lock()
		if !s.evicted {
			return s
		}
		next := s.resolve
		s.mu.Unlock()
		s = next()
	}
}

func (s *Store) touch(now time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.touched = now
}

// evictIfIdle marks the store evicted when it has been idle for longer than
// idle. Calls in progress finish first since they hold the lock.
func (s *Store) evictIfIdle(now time.Time, idle time.Duration, resolve func() *Store) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if now.Sub(s.touched) <= idle {
		return false
	}
	s.evicted = true
	s.resolve = resolve
	return true
}

func (s *Store) removeLocked(id string) {
	i, ok := s.index[id]
	if !ok {
		return
	}
	s.items = append(s.items[:i], s.items[i+1:]...)
	delete(s.index, id)
	for j := i; j < len(s.items); j++ {
		s.index[s.items[j].ID] = j
	}
}

// persistLocked writes the current snapshot. Failures are logged only.
func (s *Store) persistLocked() {
	s.touched = time.Now()
	if s.storage == nil {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), s.saveTimeout)
	defer cancel()

	if err := s.storage.Save(ctx, s.key, Marshal(s.items)); err != nil {
		s.lg.Warn("Persist cart", zap.String("key", s.key), zap.Error(err))
	}
}
