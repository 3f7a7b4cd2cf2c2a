// Package seed loads user and cart fixtures into the database.
package seed

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/xenking/storefront/internal/domain/cart"
	"github.com/xenking/storefront/internal/domain/user"
)

// Fixture is a user with the carts to create for them.
type Fixture struct {
	User  user.Profile
	Carts [][]cart.Line
}

// Users stores profiles.
type Users interface {
	UpsertUser(ctx context.Context, p *user.Profile) (int64, error)
}

// Carts stores carts.
type Carts interface {
	CreateCart(ctx context.Context, c *cart.Cart) (int64, error)
}

// Seeded is a fixture after it was written.
type Seeded struct {
	User    user.Profile
	CartIDs []int64
}

// Parse decodes a JSON array of fixtures.
func Parse(data []byte) ([]Fixture, error) {
	var out []Fixture
	d := jx.DecodeBytes(data)
	err := d.Arr(func(d *jx.Decoder) error {
		f, err := decodeFixture(d)
		if err != nil {
			return errors.Wrapf(err, "fixture %d", len(out))
		}
		out = append(out, f)
		return nil
	})
	if err != nil {
		return nil, errors.Wrap(err, "decode fixtures")
	}
	return out, nil
}

func decodeFixture(d *jx.Decoder) (Fixture, error) {
	var f Fixture
	err := d.Obj(func(d *jx.Decoder, key string) error {
		var err error
		switch key {
		case "email":
			f.User.Email, err = d.Str()
		case "country_code":
			f.User.CountryCode, err = d.Str()
		case "delivery_address":
			f.User.DeliveryAddress, err = d.Str()
		case "is_admin":
			f.User.IsAdmin, err = d.Bool()
		case "carts":
			err = d.Arr(func(d *jx.Decoder) error {
				lines, err := decodeCart(d)
				if err != nil {
					return err
				}
				f.Carts = append(f.Carts, lines)
				return nil
			})
		default:
			err = d.Skip()
		}
		if err != nil {
			return errors.Wrap(err, key)
		}
		return nil
	})
	if err != nil {
		return Fixture{}, err
	}
	if f.User.Email == "" {
		return Fixture{}, errors.New("email is required")
	}
	return f, nil
}

func decodeCart(d *jx.Decoder) ([]cart.Line, error) {
	lines := []cart.Line{}
	err := d.Obj(func(d *jx.Decoder, key string) error {
		if key != "lines" {
			return d.Skip()
		}
		return d.Arr(func(d *jx.Decoder) error {
			l, err := decodeLine(d)
			if err != nil {
				return err
			}
			lines = append(lines, l)
			return nil
		})
	})
	return lines, err
}

func decodeLine(d *jx.Decoder) (cart.Line, error) {
	var l cart.Line
	err := d.Obj(func(d *jx.Decoder, key string) error {
		var err error
		switch key {
		case "product_id":
			l.ProductID, err = d.Int64()
		case "name":
			l.Name, err = d.Str()
		case "quantity":
			l.Quantity, err = d.Int()
		case "unit_price":
			var s string
			if s, err = d.Str(); err == nil {
				l.UnitPrice, err = decimal.NewFromString(s)
			}
		default:
			err = d.Skip()
		}
		if err != nil {
			return errors.Wrap(err, key)
		}
		return nil
	})
	return l, err
}

// Load upserts every user and creates their carts. Carts are created anew
// on each call.
func Load(ctx context.Context, lg *zap.Logger, users Users, carts Carts, fixtures []Fixture) ([]Seeded, error) {
	out := make([]Seeded, 0, len(fixtures))
	for _, f := range fixtures {
		p := f.User
		id, err := users.UpsertUser(ctx, &p)
		if err != nil {
			return nil, errors.Wrapf(err, "upsert user %s", p.Email)
		}
		p.ID = id

		s := Seeded{User: p}
		for _, lines := range f.Carts {
			cartID, err := carts.CreateCart(ctx, &cart.Cart{UserID: id, Lines: lines})
			if err != nil {
				return nil, errors.Wrapf(err, "create cart for %s", p.Email)
			}
			s.CartIDs = append(s.CartIDs, cartID)
		}
		lg.Info("Seeded user",
			zap.Int64("user_id", id),
			zap.String("email", p.Email),
			zap.String("country", p.CountryCode),
			zap.Int64s("carts", s.CartIDs),
		)
		out = append(out, s)
	}
	return out, nil
}
