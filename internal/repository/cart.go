package repository

import (
	"context"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/xenking/storefront/internal/domain/cart"
)

const (
	getCartSQL = `SELECT id, user_id FROM carts WHERE id = $1 AND user_id = $2`

	getCartLinesSQL = `SELECT product_id, name, quantity, unit_price
		FROM cart_lines WHERE cart_id = $1 ORDER BY product_id`

	createCartSQL = `INSERT INTO carts (user_id) VALUES ($1) RETURNING id`

	upsertCartLineSQL = `INSERT INTO cart_lines (cart_id, product_id, name, quantity, unit_price)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (cart_id, product_id) DO UPDATE
		SET name = EXCLUDED.name, quantity = EXCLUDED.quantity, unit_price = EXCLUDED.unit_price`
)

var _ cart.Reader = (*CartRepository)(nil)

// CartRepository implements cart.Reader backed by PostgreSQL.
type CartRepository struct {
	pool *pgxpool.Pool
}

// NewCartRepository returns a CartRepository that uses the given pool.
func NewCartRepository(pool *pgxpool.Pool) *CartRepository {
	return &CartRepository{pool: pool}
}

// GetCart returns the cart with its lines. A cart owned by another user is
// reported as cart.ErrNotFound.
func (r *CartRepository) GetCart(ctx context.Context, userID, cartID int64) (*cart.Cart, error) {
	var c cart.Cart
	err := r.pool.QueryRow(ctx, getCartSQL, cartID, userID).Scan(&c.ID, &c.UserID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, cart.ErrNotFound
		}
		return nil, fmt.Errorf("getting cart %d: %w", cartID, err)
	}

	rows, err := r.pool.Query(ctx, getCartLinesSQL, cartID)
	if err != nil {
		return nil, fmt.Errorf("getting lines of cart %d: %w", cartID, err)
	}
	c.Lines, err = pgx.CollectRows(rows, scanCartLine)
	if err != nil {
		return nil, fmt.Errorf("scanning lines of cart %d: %w", cartID, err)
	}
	return &c, nil
}

// CreateCart inserts a cart with its lines in one transaction.
func (r *CartRepository) CreateCart(ctx context.Context, c *cart.Cart) (int64, error) {
	var id int64
	err := pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		if err := tx.QueryRow(ctx, createCartSQL, c.UserID).Scan(&id); err != nil {
			return fmt.Errorf("inserting cart: %w", err)
		}
		for _, l := range c.Lines {
			if _, err := tx.Exec(ctx, upsertCartLineSQL, id, l.ProductID, l.Name, l.Quantity, l.UnitPrice); err != nil {
				return fmt.Errorf("inserting cart line %d: %w", l.ProductID, err)
			}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return id, nil
}

func scanCartLine(row pgx.CollectableRow) (cart.Line, error) {
	var l cart.Line
	err := row.Scan(&l.ProductID, &l.Name, &l.Quantity, &l.UnitPrice)
	return l, err
}
