//go:build integration

package repository

import (
	"context"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/xenking/storefront/internal/domain/cart"
	"github.com/xenking/storefront/internal/domain/order"
	"github.com/xenking/storefront/internal/domain/tax"
	"github.com/xenking/storefront/internal/domain/user"
)

type RepositorySuite struct {
	suite.Suite

	ctx       context.Context
	container *postgres.PostgresContainer
	pool      *pgxpool.Pool

	users  *UserRepository
	carts  *CartRepository
	orders *OrderRepository
}

func TestRepositorySuite(t *testing.T) {
	suite.Run(t, new(RepositorySuite))
}

func (s *RepositorySuite) SetupSuite() {
	s.ctx = context.Background()

	var err error
	s.container, err = postgres.Run(s.ctx,
		"postgres:17.5-alpine",
		postgres.WithDatabase("store"),
		postgres.WithUsername("store"),
		postgres.WithPassword("store"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(2*time.Minute),
		),
	)
	s.Require().NoError(err)

	dsn, err := s.container.ConnectionString(s.ctx, "sslmode=disable")
	s.Require().NoError(err)

	s.pool, err = NewPool(s.ctx, dsn)
	s.Require().NoError(err)
	s.Require().NoError(RunMigrations(s.ctx, s.pool))
	// Migrations are idempotent.
	s.Require().NoError(RunMigrations(s.ctx, s.pool))

	s.users = NewUserRepository(s.pool)
	s.carts = NewCartRepository(s.pool)
	s.orders = NewOrderRepository(s.pool)
}

func (s *RepositorySuite) TearDownSuite() {
	if s.pool != nil {
		s.pool.Close()
	}
	if s.container != nil {
		s.Require().NoError(testcontainers.TerminateContainer(s.container))
	}
}

func (s *RepositorySuite) SetupTest() {
	_, err := s.pool.Exec(s.ctx, `TRUNCATE orders, cart_lines, carts, users RESTART IDENTITY CASCADE`)
	s.Require().NoError(err)
}

func (s *RepositorySuite) seedUser(email, country, address string) int64 {
	id, err := s.users.UpsertUser(s.ctx, &user.Profile{
		Email:           email,
		CountryCode:     country,
		DeliveryAddress: address,
	})
	s.Require().NoError(err)
	return id
}

func (s *RepositorySuite) TestUsers() {
	id := s.seedUser("olivia@store.example", "AUS", "1 George St, Sydney NSW 2000")

	got, err := s.users.GetUser(s.ctx, id)
	s.Require().NoError(err)
	s.Equal("AUS", got.CountryCode)
	s.Equal("olivia@store.example", got.Email)

	again := s.seedUser("olivia@store.example", "GBR", "221B Baker St, London")
	s.Equal(id, again)

	_, err = s.users.GetUser(s.ctx, 9999)
	s.ErrorIs(err, user.ErrNotFound)
}

func (s *RepositorySuite) TestCarts() {
	owner := s.seedUser("a@store.example", "AUS", "")
	other := s.seedUser("b@store.example", "AUS", "")

	id, err := s.carts.CreateCart(s.ctx, &cart.Cart{UserID: owner, Lines: []cart.Line{
		{ProductID: 2, Name: "Brownie", Quantity: 1, UnitPrice: decimal.RequireFromString("5.00")},
		{ProductID: 1, Name: "Waffle", Quantity: 2, UnitPrice: decimal.RequireFromString("10.00")},
	}})
	s.Require().NoError(err)

	c, err := s.carts.GetCart(s.ctx, owner, id)
	s.Require().NoError(err)
	s.Require().Len(c.Lines, 2)
	s.Equal(int64(1), c.Lines[0].ProductID)
	s.True(decimal.RequireFromString("10.00").Equal(c.Lines[0].UnitPrice))

	_, err = s.carts.GetCart(s.ctx, other, id)
	s.ErrorIs(err, cart.ErrNotFound)

	emptyID, err := s.carts.CreateCart(s.ctx, &cart.Cart{UserID: owner})
	s.Require().NoError(err)
	empty, err := s.carts.GetCart(s.ctx, owner, emptyID)
	s.Require().NoError(err)
	s.Empty(empty.Lines)
}

func (s *RepositorySuite) TestOrderRoundTrip() {
	userID := s.seedUser("a@store.example", "AUS", "")

	draft := &order.Order{
		UserID: userID,
		Lines: []order.Line{
			{ProductID: 1, Name: "Waffle", Quantity: 2, UnitPrice: decimal.RequireFromString("10.00")},
			{ProductID: 2, Name: "Brownie", Quantity: 1, UnitPrice: decimal.RequireFromString("5.00")},
		},
		DeliveryCost: decimal.RequireFromString("3.99"),
		Tax:          decimal.RequireFromString("2.90"),
	}
	id, err := s.orders.CreateOrder(s.ctx, draft)
	s.Require().NoError(err)
	s.NotZero(id)

	got, err := s.orders.GetOrder(s.ctx, userID, id)
	s.Require().NoError(err)
	s.Equal(id, got.ID)
	s.Len(got.Lines, 2)
	s.True(draft.Total().Equal(got.Total()), "total %s", got.Total())
	s.False(got.CreatedAt.IsZero())

	_, err = s.orders.GetOrder(s.ctx, userID+1, id)
	s.ErrorIs(err, order.ErrNotFound)
}

func (s *RepositorySuite) TestOrderPagingAndHistory() {
	userID := s.seedUser("a@store.example", "AUS", "")
	for i := range 5 {
		_, err := s.orders.CreateOrder(s.ctx, &order.Order{
			UserID: userID,
			Lines: []order.Line{
				{ProductID: int64(i + 1), Name: "Item", Quantity: 1, UnitPrice: decimal.RequireFromString("1.00")},
			},
			DeliveryCost: decimal.RequireFromString("3.99"),
			Tax:          decimal.Zero,
		})
		s.Require().NoError(err)
	}

	p, err := s.orders.GetOrders(s.ctx, userID, 2, 2)
	s.Require().NoError(err)
	s.Equal(5, p.Total)
	s.Require().Len(p.Items, 2)
	s.Equal(int64(3), p.Items[0].ID)

	beyond, err := s.orders.GetOrders(s.ctx, userID, 10, 2)
	s.Require().NoError(err)
	s.Empty(beyond.Items)

	now := time.Now()
	history, err := s.orders.GetOrderHistory(s.ctx, now.Add(-time.Hour), now.Add(time.Hour))
	s.Require().NoError(err)
	s.Len(history, 5)

	rows := order.Aggregate(history, order.IntervalDay)
	s.Require().NotEmpty(rows)
	total := 0
	for _, r := range rows {
		total += r.Orders
	}
	s.Equal(5, total)
}

func (s *RepositorySuite) TestServiceEndToEnd() {
	userID := s.seedUser("jake@store.example", "USA", "10 Congress Ave, Austin TX 78701")
	cartID, err := s.carts.CreateCart(s.ctx, &cart.Cart{UserID: userID, Lines: []cart.Line{
		{ProductID: 1, Name: "Waffle", Quantity: 1, UnitPrice: decimal.RequireFromString("100.00")},
	}})
	s.Require().NoError(err)

	reg, err := tax.NewRegistry(tax.DefaultRules()...)
	s.Require().NoError(err)
	svc, err := order.NewService(s.carts, s.users, s.orders, s.orders, reg)
	s.Require().NoError(err)

	res := svc.CreateOrder(s.ctx, userID, cartID)
	require.True(s.T(), res.OK(), res.Err())
	s.True(decimal.RequireFromString("6.50").Equal(res.Value().Tax), "tax %s", res.Value().Tax)
}
