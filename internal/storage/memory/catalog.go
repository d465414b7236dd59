package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/CharityMuthoka/c-braids-beauty-shop/internal/domain/order"
	"github.com/CharityMuthoka/c-braids-beauty-shop/internal/domain/product"
	"github.com/CharityMuthoka/c-braids-beauty-shop/internal/realtime"
)

var (
	_ product.Repository = (*Products)(nil)
	_ order.Repository   = (*Orders)(nil)
)

// Products is an in-memory product.Repository.
type Products struct {
	mu   sync.RWMutex
	byID map[string]product.Product
	now  func() time.Time
}

// NewProducts returns an empty Products.
func NewProducts() *Products {
	return &Products{byID: make(map[string]product.Product), now: time.Now}
}

// List returns products matching f, newest first.
func (r *Products) List(_ context.Context, f product.Filter) ([]product.Product, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]product.Product, 0, len(r.byID))
	for _, p := range r.byID {
		if f.Category != "" && p.Category != f.Category {
			continue
		}
		if f.Featured && !p.Featured {
			continue
		}
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	if f.Limit > 0 && len(out) > f.Limit {
		out = out[:f.Limit]
	}
	return out, nil
}

// GetByID returns a copy of the product or product.ErrNotFound.
func (r *Products) GetByID(_ context.Context, id string) (*product.Product, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	p, ok := r.byID[id]
	if !ok {
		return nil, product.ErrNotFound
	}
	return &p, nil
}

// Create stores p, stamping CreatedAt when unset.
func (r *Products) Create(_ context.Context, p *product.Product) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if p.CreatedAt.IsZero() {
		p.CreatedAt = r.now()
	}
	r.byID[p.ID] = *p
	return nil
}

// Update replaces an existing product.
func (r *Products) Update(_ context.Context, p *product.Product) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	old, ok := r.byID[p.ID]
	if !ok {
		return product.ErrNotFound
	}
	p.CreatedAt = old.CreatedAt
	r.byID[p.ID] = *p
	return nil
}

// Orders is an in-memory order.Repository. When a publisher is set, status
// updates are broadcast the same way the database trigger does.
type Orders struct {
	mu   sync.RWMutex
	byID map[string]order.Order
	now  func() time.Time
	pub  interface{ Publish(realtime.Event) }
}

// NewOrders returns an empty Orders. pub may be nil.
func NewOrders(pub interface{ Publish(realtime.Event) }) *Orders {
	return &Orders{byID: make(map[string]order.Order), now: time.Now, pub: pub}
}

// Create stores o and stamps its timestamps.
func (r *Orders) Create(_ context.Context, o *order.Order) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	o.CreatedAt, o.UpdatedAt = now, now
	cp := *o
	cp.Items = append(cp.Items[:0:0], o.Items...)
	r.byID[o.ID] = cp
	return nil
}

// GetByID returns a copy of the order or order.ErrNotFound.
func (r *Orders) GetByID(_ context.Context, id string) (*order.Order, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	o, ok := r.byID[id]
	if !ok {
		return nil, order.ErrNotFound
	}
	return &o, nil
}

// List returns all orders, newest first.
func (r *Orders) List(context.Context) ([]order.Order, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]order.Order, 0, len(r.byID))
	for _, o := range r.byID {
		out = append(out, o)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

// UpdateStatus sets the status and publishes an orders UPDATE event.
func (r *Orders) UpdateStatus(_ context.Context, id string, status order.Status) error {
	r.mu.Lock()
	o, ok := r.byID[id]
	if !ok {
		r.mu.Unlock()
		return order.ErrNotFound
	}
	prev := o.Status
	o.Status = status
	o.UpdatedAt = r.now()
	r.byID[id] = o
	r.mu.Unlock()

	if r.pub != nil {
		r.pub.Publish(realtime.Event{
			Table: "orders",
			Type:  realtime.Update,
			New:   statusRow(id, status),
			Old:   statusRow(id, prev),
		})
	}
	return nil
}
