package order

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"

	"github.com/xenking/storefront/internal/domain/tax"
)

// ErrNotFound is returned by readers when the order does not exist for the user.
var ErrNotFound = errors.New("order not found")

// Order is a placed order. Lines are price snapshots taken from the cart at
// creation time.
type Order struct {
	ID           int64
	UserID       int64
	Lines        []Line
	DeliveryCost decimal.Decimal
	Tax          decimal.Decimal
	CreatedAt    time.Time
}

// Line represents a single line item in an order.
type Line struct {
	ProductID int64           `json:"product_id"`
	Name      string          `json:"name"`
	Quantity  int             `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unit_price"`
}

// Subtotal returns the sum of quantity * unit price across all lines.
func (o *Order) Subtotal() decimal.Decimal {
	sum := decimal.Zero
	for _, l := range o.Lines {
		sum = sum.Add(l.UnitPrice.Mul(decimal.NewFromInt(int64(l.Quantity))))
	}
	return sum
}

// Total returns subtotal plus delivery and tax.
func (o *Order) Total() decimal.Decimal {
	return o.Subtotal().Add(o.DeliveryCost).Add(o.Tax)
}

// Basket returns the taxable view of the order.
func (o *Order) Basket() tax.Basket {
	lines := make([]tax.Line, len(o.Lines))
	for i, l := range o.Lines {
		lines[i] = tax.Line{Quantity: l.Quantity, UnitPrice: l.UnitPrice}
	}
	return tax.Basket{Lines: lines, DeliveryCost: o.DeliveryCost}
}

// Page is one page of a user's orders.
type Page[T any] struct {
	Items    []T
	Page     int
	PageSize int
	Total    int
}

// Writer persists new orders.
type Writer interface {
	// CreateOrder stores o and returns its new identifier. A zero id means
	// the store could not assign one.
	CreateOrder(ctx context.Context, o *Order) (int64, error)
}

// HistoryReader returns raw order rows for reporting.
type HistoryReader interface {
	GetOrderHistory(ctx context.Context, from, to time.Time) ([]HistoryRow, error)
}

// Reader loads persisted orders.
type Reader interface {
	HistoryReader
	// GetOrder returns ErrNotFound when no order with orderID belongs to userID.
	GetOrder(ctx context.Context, userID, orderID int64) (*Order, error)
	// GetOrders returns a page of the user's orders, newest first.
	GetOrders(ctx context.Context, userID int64, page, pageSize int) (Page[Order], error)
}

// EventPublisher announces placed orders to other services.
type EventPublisher interface {
	PublishOrderCreated(ctx context.Context, o *Order) error
}
