package enums

import "fmt"

// Currency is the settlement currency of an order. Flow settles
// Chilean pesos only, so CLP is the single supported value.
type Currency string

const (
	CurrencyCLP Currency = "CLP"
)

var validCurrencies = []Currency{
	CurrencyCLP,
}

// String implements fmt.Stringer.
func (c Currency) String() string {
	return string(c)
}

// IsValid reports whether the currency is recognized.
func (c Currency) IsValid() bool {
	for _, candidate := range validCurrencies {
		if candidate == c {
			return true
		}
	}
	return false
}

// ParseCurrency converts raw input into a Currency.
func ParseCurrency(value string) (Currency, error) {
	for _, candidate := range validCurrencies {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid currency %q", value)
}
