package user

import (
	"context"

	"github.com/go-faster/errors"
)

// ErrNotFound is returned when a user does not exist.
var ErrNotFound = errors.New("user not found")

// Profile holds the user data needed to fulfil and tax an order.
type Profile struct {
	ID              int64
	Email           string
	CountryCode     string
	DeliveryAddress string
	IsAdmin         bool
}

// Reader loads user profiles.
type Reader interface {
	// GetUser returns ErrNotFound when the user does not exist.
	GetUser(ctx context.Context, userID int64) (*Profile, error)
}
