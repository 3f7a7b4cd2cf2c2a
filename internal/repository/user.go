package repository

import (
	"context"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/xenking/storefront/internal/domain/user"
)

const (
	getUserSQL = `SELECT id, email, country_code, delivery_address, is_admin
		FROM users WHERE id = $1`

	upsertUserSQL = `INSERT INTO users (email, country_code, delivery_address, is_admin)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (email) DO UPDATE
		SET country_code = EXCLUDED.country_code,
			delivery_address = EXCLUDED.delivery_address,
			is_admin = EXCLUDED.is_admin
		RETURNING id`
)

var _ user.Reader = (*UserRepository)(nil)

// UserRepository implements user.Reader backed by PostgreSQL.
type UserRepository struct {
	pool *pgxpool.Pool
}

// NewUserRepository returns a UserRepository that uses the given pool.
func NewUserRepository(pool *pgxpool.Pool) *UserRepository {
	return &UserRepository{pool: pool}
}

// GetUser returns the profile of userID.
func (r *UserRepository) GetUser(ctx context.Context, userID int64) (*user.Profile, error) {
	rows, err := r.pool.Query(ctx, getUserSQL, userID)
	if err != nil {
		return nil, fmt.Errorf("getting user %d: %w", userID, err)
	}

	p, err := pgx.CollectExactlyOneRow(rows, pgx.RowToStructByPos[user.Profile])
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, user.ErrNotFound
		}
		return nil, fmt.Errorf("getting user %d: %w", userID, err)
	}
	return &p, nil
}

// UpsertUser inserts or updates a user keyed by email and returns its id.
func (r *UserRepository) UpsertUser(ctx context.Context, p *user.Profile) (int64, error) {
	var id int64
	err := r.pool.QueryRow(ctx, upsertUserSQL, p.Email, p.CountryCode, p.DeliveryAddress, p.IsAdmin).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("upserting user %q: %w", p.Email, err)
	}
	return id, nil
}
