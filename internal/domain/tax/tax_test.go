package tax

import (
	"testing"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var delivery = decimal.RequireFromString("3.99")

func basket(deliveryCost decimal.Decimal, lines ...Line) Basket {
	return Basket{Lines: lines, DeliveryCost: deliveryCost}
}

func line(qty int, price string) Line {
	return Line{Quantity: qty, UnitPrice: decimal.RequireFromString(price)}
}

func TestBasketAmount(t *testing.T) {
	b := basket(delivery, line(2, "10.00"), line(1, "5.00"))
	assert.True(t, decimal.RequireFromString("28.99").Equal(b.Amount()), "got %s", b.Amount())

	empty := basket(decimal.Zero)
	assert.True(t, decimal.Zero.Equal(empty.Amount()))
}

func TestFlatRate(t *testing.T) {
	tests := []struct {
		name    string
		rule    *FlatRate
		basket  Basket
		wantTax string
	}{
		{
			name:    "GBR twenty percent includes delivery",
			rule:    NewFlatRate("GBR", decimal.RequireFromString("0.20")),
			basket:  basket(delivery, line(1, "100.00")),
			wantTax: "20.798",
		},
		{
			name:    "AUS ten percent",
			rule:    NewFlatRate("AUS", decimal.RequireFromString("0.10")),
			basket:  basket(delivery, line(2, "10.00"), line(1, "5.00")),
			wantTax: "2.899",
		},
		{
			name:    "delivery only",
			rule:    NewFlatRate("GBR", decimal.RequireFromString("0.20")),
			basket:  basket(delivery),
			wantTax: "0.798",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.rule.Compute(tt.basket, Location{})
			require.NoError(t, err)
			want := decimal.RequireFromString(tt.wantTax)
			assert.True(t, want.Equal(got), "expected %s, got %s", want, got)
		})
	}
}

func TestFlatRateIsLinear(t *testing.T) {
	rule := NewFlatRate("GBR", decimal.RequireFromString("0.20"))

	small, err := rule.Compute(basket(delivery, line(1, "50.00")), Location{})
	require.NoError(t, err)
	double, err := rule.Compute(basket(delivery.Mul(decimal.NewFromInt(2)), line(2, "50.00")), Location{})
	require.NoError(t, err)

	assert.True(t, small.Mul(decimal.NewFromInt(2)).Equal(double))
}

func TestFlatRateCanHandle(t *testing.T) {
	rule := NewFlatRate("GBR", decimal.RequireFromString("0.20"))
	assert.True(t, rule.CanHandle("GBR"))
	assert.False(t, rule.CanHandle("gbr"))
	assert.False(t, rule.CanHandle("AUS"))
	assert.Equal(t, []string{"GBR"}, rule.Countries())
}

func TestExtractRegion(t *testing.T) {
	tests := []struct {
		address string
		want    string
		ok      bool
	}{
		{address: "10 Downing St, Austin TX 78701", want: "TX", ok: true},
		{address: "123 Main St, Springfield IL 62701", want: "IL", ok: true},
		{address: "1 Ocean Dr, Miami FL", want: "FL", ok: true},
		{address: "1 Ocean Dr, Miami FL\t", want: "FL", ok: true},
		{address: "10 downing st, london", ok: false},
		{address: "TX 78701", ok: false},
		{address: "Austin TXS 78701", ok: false},
		{address: "", ok: false},
	}

	for _, tt := range tests {
		t.Run(tt.address, func(t *testing.T) {
			got, ok := ExtractRegion(tt.address)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestUSSalesTax(t *testing.T) {
	rule := NewUSSalesTax()
	b := basket(delivery, line(1, "100.00"))

	t.Run("state rate applied", func(t *testing.T) {
		rate, err := rule.RateFor("TX")
		require.NoError(t, err)
		assert.True(t, decimal.RequireFromString("0.0625").Equal(rate))

		got, err := rule.Compute(b, Location{CountryCode: "USA", Address: "10 Downing St, Austin TX 78701"})
		require.NoError(t, err)
		want := decimal.RequireFromString("103.99").Mul(decimal.RequireFromString("0.0625"))
		assert.True(t, want.Equal(got), "expected %s, got %s", want, got)
	})

	t.Run("zero rate state", func(t *testing.T) {
		got, err := rule.Compute(b, Location{CountryCode: "USA", Address: "1 Main St, Portland OR 97201"})
		require.NoError(t, err)
		assert.True(t, got.IsZero())
	})

	t.Run("no region token is an error, not zero", func(t *testing.T) {
		_, err := rule.Compute(b, Location{CountryCode: "USA", Address: "10 downing st, austin"})
		require.ErrorIs(t, err, ErrRegionUndefined)
	})

	t.Run("unknown region is a configuration error", func(t *testing.T) {
		_, err := rule.Compute(b, Location{CountryCode: "USA", Address: "5 Elm St, Nowhere ZZ 00000"})
		require.ErrorIs(t, err, ErrUnknownRegion)

		var cfgErr *ConfigError
		require.True(t, errors.As(err, &cfgErr))
		assert.Equal(t, "ZZ", cfgErr.Key)
		assert.Equal(t, "region:USA", cfgErr.Rule)
	})

	t.Run("rates stay within bounds", func(t *testing.T) {
		upper := decimal.RequireFromString("0.105")
		for region, rate := range usStateRates {
			assert.False(t, rate.IsNegative(), region)
			assert.True(t, rate.LessThanOrEqual(upper), region)
		}
	})
}

func TestNewRegionRateCopiesTable(t *testing.T) {
	rates := map[string]decimal.Decimal{"ON": decimal.RequireFromString("0.13")}
	rule := NewRegionRate("CAN", rates)
	rates["ON"] = decimal.Zero

	rate, err := rule.RateFor("ON")
	require.NoError(t, err)
	assert.True(t, decimal.RequireFromString("0.13").Equal(rate))
}
