package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/xenking/storefront/internal/domain/order"
)

const (
	createOrderSQL = `INSERT INTO orders (user_id, lines, item_count, subtotal, delivery_cost, tax)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id`

	getOrderSQL = `SELECT id, user_id, lines, delivery_cost, tax, created_at
		FROM orders WHERE id = $1 AND user_id = $2`

	countOrdersSQL = `SELECT count(*) FROM orders WHERE user_id = $1`

	listOrdersSQL = `SELECT id, user_id, lines, delivery_cost, tax, created_at
		FROM orders WHERE user_id = $1
		ORDER BY id DESC
		LIMIT $2 OFFSET $3`

	orderHistorySQL = `SELECT id, created_at, item_count, subtotal, delivery_cost, tax
		FROM orders WHERE created_at BETWEEN $1 AND $2
		ORDER BY created_at`
)

var (
	_ order.Writer = (*OrderRepository)(nil)
	_ order.Reader = (*OrderRepository)(nil)
)

// OrderRepository implements order.Writer and order.Reader backed by
// PostgreSQL.
type OrderRepository struct {
	pool *pgxpool.Pool
}

// NewOrderRepository returns an OrderRepository that uses the given pool.
func NewOrderRepository(pool *pgxpool.Pool) *OrderRepository {
	return &OrderRepository{pool: pool}
}

// CreateOrder persists a new order. Lines are serialized to JSON for storage
// in the JSONB column; item count and subtotal are denormalized for reports.
func (r *OrderRepository) CreateOrder(ctx context.Context, o *order.Order) (int64, error) {
	linesJSON, err := json.Marshal(o.Lines)
	if err != nil {
		return 0, fmt.Errorf("marshaling order lines: %w", err)
	}

	items := 0
	for _, l := range o.Lines {
		items += l.Quantity
	}

	var id int64
	err = r.pool.QueryRow(ctx, createOrderSQL,
		o.UserID, linesJSON, items, o.Subtotal(), o.DeliveryCost, o.Tax,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("creating order for user %d: %w", o.UserID, err)
	}

	return id, nil
}

// GetOrder returns order.ErrNotFound when orderID does not belong to userID.
func (r *OrderRepository) GetOrder(ctx context.Context, userID, orderID int64) (*order.Order, error) {
	rows, err := r.pool.Query(ctx, getOrderSQL, orderID, userID)
	if err != nil {
		return nil, fmt.Errorf("getting order %d: %w", orderID, err)
	}

	o, err := pgx.CollectExactlyOneRow(rows, scanOrder)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, order.ErrNotFound
		}
		return nil, fmt.Errorf("getting order %d: %w", orderID, err)
	}
	return &o, nil
}

// GetOrders returns a page of the user's orders, newest first.
func (r *OrderRepository) GetOrders(ctx context.Context, userID int64, page, pageSize int) (order.Page[order.Order], error) {
	p := order.Page[order.Order]{Page: page, PageSize: pageSize}

	if err := r.pool.QueryRow(ctx, countOrdersSQL, userID).Scan(&p.Total); err != nil {
		return p, fmt.Errorf("counting orders of user %d: %w", userID, err)
	}

	rows, err := r.pool.Query(ctx, listOrdersSQL, userID, pageSize, (page-1)*pageSize)
	if err != nil {
		return p, fmt.Errorf("listing orders of user %d: %w", userID, err)
	}
	p.Items, err = pgx.CollectRows(rows, scanOrder)
	if err != nil {
		return p, fmt.Errorf("listing orders of user %d: %w", userID, err)
	}
	return p, nil
}

// GetOrderHistory returns every order created in [from, to].
func (r *OrderRepository) GetOrderHistory(ctx context.Context, from, to time.Time) ([]order.HistoryRow, error) {
	rows, err := r.pool.Query(ctx, orderHistorySQL, from, to)
	if err != nil {
		return nil, fmt.Errorf("reading order history: %w", err)
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (order.HistoryRow, error) {
		var h order.HistoryRow
		err := row.Scan(&h.OrderID, &h.CreatedAt, &h.Items, &h.Subtotal, &h.DeliveryCost, &h.Tax)
		return h, err
	})
}

func scanOrder(row pgx.CollectableRow) (order.Order, error) {
	var (
		o         order.Order
		linesJSON []byte
	)
	if err := row.Scan(&o.ID, &o.UserID, &linesJSON, &o.DeliveryCost, &o.Tax, &o.CreatedAt); err != nil {
		return o, err
	}
	if err := json.Unmarshal(linesJSON, &o.Lines); err != nil {
		return o, fmt.Errorf("unmarshaling lines of order %d: %w", o.ID, err)
	}
	return o, nil
}
