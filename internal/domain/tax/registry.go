package tax

import (
	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// NoTax is the fallback rule. It claims no country and always returns zero.
var NoTax Rule = noTax{}

type noTax struct{}

func (noTax) Name() string { return "none" }

func (noTax) CanHandle(string) bool { return false }

func (noTax) Compute(Basket, Location) (decimal.Decimal, error) { return decimal.Zero, nil }

// DefaultRules returns the jurisdictions the store charges tax in.
func DefaultRules() []Rule {
	return []Rule{
		NewFlatRate("GBR", decimal.RequireFromString("0.20")),
		NewFlatRate("AUS", decimal.RequireFromString("0.10")),
		NewUSSalesTax(),
	}
}

// Registry selects the Rule for a country code. It is immutable after
// construction and safe for concurrent use.
type Registry struct {
	rules []Rule
}

// NewRegistry builds a Registry from rules in registration order.
//
// Rules implementing Claimer are checked for overlapping countries and a
// *ConfigError is returned on the first duplicate. For rules that cannot
// list their countries the first registered match wins in Select.
func NewRegistry(rules ...Rule) (*Registry, error) {
	claimed := make(map[string]string)
	for _, rule := range rules {
		c, ok := rule.(Claimer)
		if !ok {
			continue
		}
		for _, country := range c.Countries() {
			if owner, dup := claimed[country]; dup {
				return nil, &ConfigError{
					Rule: rule.Name(),
					Key:  country,
					Err:  errors.Wrapf(ErrDuplicateClaim, "already claimed by %s", owner),
				}
			}
			claimed[country] = rule.Name()
		}
	}

	rs := make([]Rule, len(rules))
	copy(rs, rules)
	return &Registry{rules: rs}, nil
}

// Select returns the first rule that handles countryCode, or NoTax.
func (r *Registry) Select(countryCode string) Rule {
	for _, rule := range r.rules {
		if rule.CanHandle(countryCode) {
			return rule
		}
	}
	return NoTax
}

// Rules returns the registered rules in registration order.
func (r *Registry) Rules() []Rule {
	rs := make([]Rule, len(r.rules))
	copy(rs, r.rules)
	return rs
}
