// Package checkout places orders from a cart: it records a pending order and
// then asks the payment provider to prompt the customer's phone.
package checkout

import (
	"context"
	"fmt"
	"strings"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"

	"github.com/CharityMuthoka/c-braids-beauty-shop/internal/domain/cart"
	"github.com/CharityMuthoka/c-braids-beauty-shop/internal/domain/order"
	"github.com/CharityMuthoka/c-braids-beauty-shop/internal/validation"
)

// ErrEmptyCart is returned when checkout is attempted with no items.
var ErrEmptyCart = errors.New("cart is empty")

// PaymentError reports that the order was recorded but the payment prompt
// could not be sent. The order stays pending; the customer may retry.
type PaymentError struct {
	OrderID string
	Err     error
}

func (e *PaymentError) Error() string {
	return fmt.Sprintf("initiate payment for order %s: %v", e.OrderID, e.Err)
}

func (e *PaymentError) Unwrap() error { return e.Err }

// PaymentRequest is the payload sent to the payment provider. Amount is in
// whole currency units.
type PaymentRequest struct {
	Phone   string
	Amount  int64
	OrderID string
}

// PaymentInitiator dispatches a payment prompt to the customer's phone.
type PaymentInitiator interface {
	Initiate(ctx context.Context, req PaymentRequest) error
}

// Service runs the checkout sequence.
type Service struct {
	orders   order.Repository
	payments PaymentInitiator

	placed          metric.Int64Counter
	paymentFailures metric.Int64Counter
}

// NewService creates a checkout Service. Counters are registered on meter.
func NewService(orders order.Repository, payments PaymentInitiator, meter metric.Meter) (*Service, error) {
	placed, err := meter.Int64Counter("shop.checkout.orders",
		metric.WithDescription("Orders recorded at checkout"),
	)
	if err != nil {
		return nil, errors.Wrap(err, "orders counter")
	}
	failures, err := meter.Int64Counter("shop.checkout.payment_failures",
		metric.WithDescription("Payment prompts that could not be sent"),
	)
	if err != nil {
		return nil, errors.Wrap(err, "payment failures counter")
	}
	return &Service{
		orders:          orders,
		payments:        payments,
		placed:          placed,
		paymentFailures: failures,
	}, nil
}

// Checkout validates the cart and customer, records a pending order, and
// initiates payment. When initiation succeeds the ordered lines are taken
// off the cart, and lines added in the meantime stay. A failed initiation
// returns *PaymentError and leaves the order pending; nothing is rolled back.
func (s *Service) Checkout(ctx context.Context, store *cart.Store, customer order.Customer) (*order.Order, error) {
	items := store.Items()
	if len(items) == 0 {
		return nil, ErrEmptyCart
	}

	customer = normalizeCustomer(customer)
	if err := validation.Struct(customer); err != nil {
		return nil, err
	}

	o := &order.Order{
		ID:       uuid.New().String(),
		Customer: customer,
		Items:    items,
		Total:    cart.Total(items),
		Status:   order.StatusPending,
	}
	if err := s.orders.Create(ctx, o); err != nil {
		return nil, errors.Wrap(err, "create order")
	}
	s.placed.Add(ctx, 1)

	err := s.payments.Initiate(ctx, PaymentRequest{
		Phone:   customer.Phone,
		Amount:  o.Total.Round(0).IntPart(),
		OrderID: o.ID,
	})
	if err != nil {
		s.paymentFailures.Add(ctx, 1, metric.WithAttributes(attribute.String("reason", failureReason(err))))
		zctx.From(ctx).Warn("Payment initiation failed",
			zap.String("order_id", o.ID),
			zap.Error(err),
		)
		return nil, &PaymentError{OrderID: o.ID, Err: err}
	}

	store.Subtract(items)
	return o, nil
}

func normalizeCustomer(c order.Customer) order.Customer {
	return order.Customer{
		Name:    strings.TrimSpace(c.Name),
		Email:   strings.TrimSpace(c.Email),
		Phone:   strings.TrimSpace(c.Phone),
		Address: strings.TrimSpace(c.Address),
	}
}

func failureReason(err error) string {
	if errors.Is(err, context.DeadlineExceeded) {
		return "timeout"
	}
	var se interface{ StatusCode() int }
	if errors.As(err, &se) {
		return "rejected"
	}
	return "transport"
}
