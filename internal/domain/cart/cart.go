package cart

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// ErrNotFound is returned when the cart does not exist for the given user.
var ErrNotFound = errors.New("cart not found")

// Cart is a user's shopping cart. It is owned elsewhere and read-only here.
type Cart struct {
	ID     int64
	UserID int64
	Lines  []Line
}

// Line is a product in the cart with its current catalog price.
type Line struct {
	ProductID int64
	Name      string
	Quantity  int
	UnitPrice decimal.Decimal
}

// Reader loads carts.
type Reader interface {
	// GetCart returns ErrNotFound when no cart with cartID belongs to userID.
	GetCart(ctx context.Context, userID, cartID int64) (*Cart, error)
}
