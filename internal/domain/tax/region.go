package tax

import (
	"regexp"

	"github.com/shopspring/decimal"
)

var _ interface {
	Rule
	Claimer
} = (*RegionRate)(nil)

// regionPattern matches a two-letter uppercase token preceded by whitespace
// and followed by whitespace or end of input, e.g. "IL" in
// "123 Main St, Springfield IL 62701".
var regionPattern = regexp.MustCompile(`\s([A-Z]{2})(?:\s|$)`)

// usStateRates are state-level sales tax rates keyed by postal abbreviation.
var usStateRates = map[string]decimal.Decimal{
	"AL": decimal.RequireFromString("0.04"),
	"AK": decimal.Zero,
	"AZ": decimal.RequireFromString("0.056"),
	"AR": decimal.RequireFromString("0.065"),
	"CA": decimal.RequireFromString("0.0725"),
	"CO": decimal.RequireFromString("0.029"),
	"CT": decimal.RequireFromString("0.0635"),
	"DE": decimal.Zero,
	"DC": decimal.RequireFromString("0.06"),
	"FL": decimal.RequireFromString("0.06"),
	"GA": decimal.RequireFromString("0.04"),
	"GU": decimal.RequireFromString("0.04"),
	"HI": decimal.RequireFromString("0.04166"),
	"ID": decimal.RequireFromString("0.06"),
	"IL": decimal.RequireFromString("0.0625"),
	"IN": decimal.RequireFromString("0.07"),
	"IA": decimal.RequireFromString("0.06"),
	"KS": decimal.RequireFromString("0.065"),
	"KY": decimal.RequireFromString("0.06"),
	"LA": decimal.RequireFromString("0.0445"),
	"ME": decimal.RequireFromString("0.055"),
	"MD": decimal.RequireFromString("0.06"),
	"MA": decimal.RequireFromString("0.0625"),
	"MI": decimal.RequireFromString("0.06"),
	"MN": decimal.RequireFromString("0.06875"),
	"MS": decimal.RequireFromString("0.07"),
	"MO": decimal.RequireFromString("0.04225"),
	"MT": decimal.Zero,
	"NE": decimal.RequireFromString("0.055"),
	"NV": decimal.RequireFromString("0.0685"),
	"NH": decimal.Zero,
	"NJ": decimal.RequireFromString("0.06625"),
	"NM": decimal.RequireFromString("0.05125"),
	"NY": decimal.RequireFromString("0.04"),
	"NC": decimal.RequireFromString("0.0475"),
	"ND": decimal.RequireFromString("0.05"),
	"OH": decimal.RequireFromString("0.0575"),
	"OK": decimal.RequireFromString("0.045"),
	"OR": decimal.Zero,
	"PA": decimal.RequireFromString("0.06"),
	"PR": decimal.RequireFromString("0.105"),
	"RI": decimal.RequireFromString("0.07"),
	"SC": decimal.RequireFromString("0.06"),
	"SD": decimal.RequireFromString("0.04"),
	"TN": decimal.RequireFromString("0.07"),
	"TX": decimal.RequireFromString("0.0625"),
	"UT": decimal.RequireFromString("0.061"),
	"VT": decimal.RequireFromString("0.06"),
	"VA": decimal.RequireFromString("0.053"),
	"WA": decimal.RequireFromString("0.065"),
	"WV": decimal.RequireFromString("0.06"),
	"WI": decimal.RequireFromString("0.05"),
	"WY": decimal.RequireFromString("0.04"),
}

// RegionRate looks up the rate by a region code parsed from the delivery
// address. The table is fixed at construction.
type RegionRate struct {
	country string
	rates   map[string]decimal.Decimal
}

// NewRegionRate returns a rule for country using rates keyed by region code.
// The map is copied.
func NewRegionRate(country string, rates map[string]decimal.Decimal) *RegionRate {
	cp := make(map[string]decimal.Decimal, len(rates))
	for k, v := range rates {
		cp[k] = v
	}
	return &RegionRate{country: country, rates: cp}
}

// NewUSSalesTax returns the state sales tax rule for "USA".
func NewUSSalesTax() *RegionRate {
	return NewRegionRate("USA", usStateRates)
}

// Name implements Rule.
func (r *RegionRate) Name() string { return "region:" + r.country }

// CanHandle implements Rule.
func (r *RegionRate) CanHandle(countryCode string) bool { return countryCode == r.country }

// Countries implements Claimer.
func (r *RegionRate) Countries() []string { return []string{r.country} }

// Compute implements Rule. It returns ErrRegionUndefined when the address has
// no region token and a *ConfigError when the token is not in the table.
func (r *RegionRate) Compute(b Basket, loc Location) (decimal.Decimal, error) {
	region, ok := ExtractRegion(loc.Address)
	if !ok {
		return decimal.Zero, ErrRegionUndefined
	}
	rate, err := r.RateFor(region)
	if err != nil {
		return decimal.Zero, err
	}
	return b.Amount().Mul(rate), nil
}

// RateFor returns the rate for a region code.
func (r *RegionRate) RateFor(region string) (decimal.Decimal, error) {
	rate, ok := r.rates[region]
	if !ok {
		return decimal.Zero, &ConfigError{Rule: r.Name(), Key: region, Err: ErrUnknownRegion}
	}
	return rate, nil
}

// ExtractRegion returns the first two-letter uppercase token in address.
func ExtractRegion(address string) (string, bool) {
	m := regionPattern.FindStringSubmatch(address)
	if m == nil {
		return "", false
	}
	return m[1], true
}
