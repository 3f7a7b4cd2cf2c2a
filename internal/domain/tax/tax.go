// Package tax computes sales tax for an order based on the buyer's location.
//
// Each jurisdiction is a Rule. A Registry holds the configured rules and
// picks the one that claims a country code, falling back to a zero-tax rule
// for jurisdictions nobody claims.
package tax

import (
	"fmt"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

var (
	// ErrRegionUndefined is returned when a region-based rule cannot find a
	// region code in the buyer's delivery address.
	ErrRegionUndefined = errors.New("delivery address has no region code")
	// ErrUnknownRegion is returned when a region code is present but missing
	// from the rule's rate table.
	ErrUnknownRegion = errors.New("region not in rate table")
	// ErrDuplicateClaim is returned by NewRegistry when two rules claim the
	// same country code.
	ErrDuplicateClaim = errors.New("country claimed by more than one rule")
)

// ConfigError reports broken tax configuration: a rate table miss or an
// ambiguous registry. It must not be treated as "no tax".
type ConfigError struct {
	Rule string
	Key  string
	Err  error
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("tax config: rule %s: %s: %v", e.Rule, e.Key, e.Err)
}

func (e *ConfigError) Unwrap() error { return e.Err }

// Line is a single taxable line: quantity times unit price.
type Line struct {
	Quantity  int
	UnitPrice decimal.Decimal
}

// Basket is the taxable view of an order.
type Basket struct {
	Lines        []Line
	DeliveryCost decimal.Decimal
}

// Amount returns the sum of all line totals plus the delivery cost.
func (b Basket) Amount() decimal.Decimal {
	sum := b.DeliveryCost
	for _, l := range b.Lines {
		sum = sum.Add(l.UnitPrice.Mul(decimal.NewFromInt(int64(l.Quantity))))
	}
	return sum
}

// Location is where the buyer receives the order.
type Location struct {
	// CountryCode is an ISO 3166-1 alpha-3 code such as "GBR".
	CountryCode string
	// Address is the free-text delivery address.
	Address string
}

// Rule computes tax for the jurisdictions it claims. Implementations are
// stateless and safe for concurrent use.
type Rule interface {
	// Name identifies the rule in logs and metrics.
	Name() string
	// CanHandle reports whether the rule applies to the country code.
	CanHandle(countryCode string) bool
	// Compute returns the tax owed on b for a buyer at loc.
	Compute(b Basket, loc Location) (decimal.Decimal, error)
}

// Claimer is implemented by rules that can list the country codes they
// handle. The Registry uses it to reject duplicate claims.
type Claimer interface {
	Countries() []string
}
