package tax

import (
	"testing"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// predicateRule claims countries through CanHandle only.
type predicateRule struct {
	name  string
	match func(string) bool
	tax   decimal.Decimal
}

func (r predicateRule) Name() string { return r.name }

func (r predicateRule) CanHandle(country string) bool { return r.match(country) }

func (r predicateRule) Compute(Basket, Location) (decimal.Decimal, error) {
	return r.tax, nil
}

func TestRegistrySelect(t *testing.T) {
	reg, err := NewRegistry(DefaultRules()...)
	require.NoError(t, err)

	tests := []struct {
		country string
		want    string
	}{
		{country: "GBR", want: "flat:GBR"},
		{country: "AUS", want: "flat:AUS"},
		{country: "USA", want: "region:USA"},
		{country: "ZZZ", want: "none"},
		{country: "", want: "none"},
	}

	for _, tt := range tests {
		t.Run(tt.country, func(t *testing.T) {
			assert.Equal(t, tt.want, reg.Select(tt.country).Name())
		})
	}
}

func TestRegistryUnknownCountryIsZeroTax(t *testing.T) {
	reg, err := NewRegistry(DefaultRules()...)
	require.NoError(t, err)

	b := basket(delivery, line(10, "999.99"), line(3, "12.50"))
	got, err := reg.Select("ZZZ").Compute(b, Location{CountryCode: "ZZZ", Address: "anything"})
	require.NoError(t, err)
	assert.True(t, got.IsZero())
}

func TestRegistryEmpty(t *testing.T) {
	reg, err := NewRegistry()
	require.NoError(t, err)
	assert.Equal(t, NoTax, reg.Select("GBR"))
	assert.Empty(t, reg.Rules())
}

func TestRegistryRejectsDuplicateClaims(t *testing.T) {
	_, err := NewRegistry(
		NewFlatRate("GBR", decimal.RequireFromString("0.20")),
		NewFlatRate("GBR", decimal.RequireFromString("0.05")),
	)
	require.ErrorIs(t, err, ErrDuplicateClaim)

	var cfgErr *ConfigError
	require.True(t, errors.As(err, &cfgErr))
	assert.Equal(t, "GBR", cfgErr.Key)
}

func TestRegistryFirstRegisteredWinsForPredicates(t *testing.T) {
	first := predicateRule{name: "first", match: func(c string) bool { return c == "NZL" }, tax: decimal.NewFromInt(1)}
	second := predicateRule{name: "second", match: func(c string) bool { return c == "NZL" }, tax: decimal.NewFromInt(2)}

	reg, err := NewRegistry(first, second)
	require.NoError(t, err)
	assert.Equal(t, "first", reg.Select("NZL").Name())
}

func TestRegistryIsolatedFromCaller(t *testing.T) {
	rules := DefaultRules()
	reg, err := NewRegistry(rules...)
	require.NoError(t, err)

	rules[0] = NoTax
	assert.Equal(t, "flat:GBR", reg.Select("GBR").Name())
}

func TestNoTaxNeverClaims(t *testing.T) {
	for _, c := range []string{"GBR", "AUS", "USA", "ZZZ", ""} {
		assert.False(t, NoTax.CanHandle(c), c)
	}
}
