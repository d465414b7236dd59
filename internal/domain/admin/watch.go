package admin

import (
	"context"

	"github.com/go-faster/errors"

	"github.com/CharityMuthoka/c-braids-beauty-shop/internal/domain/auth"
	"github.com/CharityMuthoka/c-braids-beauty-shop/internal/domain/order"
	"github.com/CharityMuthoka/c-braids-beauty-shop/internal/realtime"
)

const ordersTable = "orders"

// OrderChange is an order update observed on the realtime feed.
type OrderChange struct {
	OrderID        string
	Status         order.Status
	PreviousStatus order.Status
	// PaymentReceived is set when the order moved to processing.
	PaymentReceived bool
}

// WatchOrders calls fn for every order update until ctx is done, the feed
// closes, or fn returns an error, which is then returned. The subscription is
// released on every exit path.
func (c *Console) WatchOrders(ctx context.Context, sess *auth.Session, fn func(OrderChange) error) error {
	if err := c.Authorize(ctx, sess); err != nil {
		return err
	}

	sub, err := c.events.Subscribe(ordersTable, realtime.Update)
	if err != nil {
		return errors.Wrap(err, "subscribe")
	}
	defer c.events.Unsubscribe(sub)

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-sub.C():
			if !ok {
				return nil
			}
			change, ok := orderChange(ev)
			if !ok {
				continue
			}
			if err := fn(change); err != nil {
				return err
			}
		}
	}
}

func orderChange(ev realtime.Event) (OrderChange, bool) {
	id, ok := realtime.StringField(ev.New, "id")
	if !ok {
		return OrderChange{}, false
	}
	status, _ := realtime.StringField(ev.New, "status")
	prev, _ := realtime.StringField(ev.Old, "status")

	return OrderChange{
		OrderID:         id,
		Status:          order.Status(status),
		PreviousStatus:  order.Status(prev),
		PaymentReceived: order.Status(status) == order.StatusProcessing,
	}, true
}
