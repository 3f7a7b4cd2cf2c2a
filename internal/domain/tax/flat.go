package tax

import (
	"github.com/shopspring/decimal"
)

var _ interface {
	Rule
	Claimer
} = (*FlatRate)(nil)

// FlatRate charges a single rate on the whole basket, delivery included.
type FlatRate struct {
	country string
	rate    decimal.Decimal
}

// NewFlatRate returns a rule charging rate (0.20 for 20%) in country.
func NewFlatRate(country string, rate decimal.Decimal) *FlatRate {
	return &FlatRate{country: country, rate: rate}
}

// Name implements Rule.
func (r *FlatRate) Name() string { return "flat:" + r.country }

// CanHandle implements Rule.
func (r *FlatRate) CanHandle(countryCode string) bool { return countryCode == r.country }

// Countries implements Claimer.
func (r *FlatRate) Countries() []string { return []string{r.country} }

// Rate returns the configured rate.
func (r *FlatRate) Rate() decimal.Decimal { return r.rate }

// Compute implements Rule.
func (r *FlatRate) Compute(b Basket, _ Location) (decimal.Decimal, error) {
	return b.Amount().Mul(r.rate), nil
}
