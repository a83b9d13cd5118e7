package quoting

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// ErrCurrencyMismatch is returned when amount arithmetic crosses two
// different currencies.
var ErrCurrencyMismatch = errors.New("currency mismatch")

// Currency identifies an asset on a specific chain.
//
// Two currencies are the same asset iff ChainID and Denom are equal; Symbol
// and Decimals are display metadata carried along from the token registry.
type Currency struct {
	ChainID  string `json:"chain_id"`  // e.g., "osmosis-1"
	Denom    string `json:"denom"`     // canonical asset id on that chain
	Symbol   string `json:"symbol"`    // e.g., "ATOM"
	Decimals int32  `json:"decimals"`  // display precision
}

// SameAsset reports whether c and other identify the same asset.
func (c Currency) SameAsset(other Currency) bool {
	return c.ChainID == other.ChainID && c.Denom == other.Denom
}

// CurrencyAmount is a raw integer amount (smallest unit) bound to a currency.
// Arithmetic is only defined between amounts of the same currency.
type CurrencyAmount struct {
	Currency Currency
	Raw      decimal.Decimal
}

// NewCurrencyAmount parses a raw integer amount string for the given currency.
func NewCurrencyAmount(currency Currency, raw string) (CurrencyAmount, error) {
	d, err := decimal.NewFromString(raw)
	if err != nil {
		return CurrencyAmount{}, fmt.Errorf("invalid amount %q: %w", raw, err)
	}
	if !d.IsInteger() {
		return CurrencyAmount{}, fmt.Errorf("amount %q is not a raw integer", raw)
	}
	if d.IsNegative() {
		return CurrencyAmount{}, fmt.Errorf("amount %q is negative", raw)
	}
	return CurrencyAmount{Currency: currency, Raw: d}, nil
}

// IsZero reports whether the amount is zero.
func (a CurrencyAmount) IsZero() bool {
	return a.Raw.IsZero()
}

// Equal reports value equality. Amounts of different currencies are never
// equal.
func (a CurrencyAmount) Equal(other CurrencyAmount) bool {
	return a.Currency.SameAsset(other.Currency) && a.Raw.Equal(other.Raw)
}

// Cmp compares two amounts of the same currency: -1 if a < other, 0 if equal,
// +1 if a > other.
func (a CurrencyAmount) Cmp(other CurrencyAmount) (int, error) {
	if !a.Currency.SameAsset(other.Currency) {
		return 0, fmt.Errorf("%w: %s vs %s", ErrCurrencyMismatch, a.Currency.Denom, other.Currency.Denom)
	}
	return a.Raw.Cmp(other.Raw), nil
}

// GreaterThan reports whether a > other for amounts of the same currency.
func (a CurrencyAmount) GreaterThan(other CurrencyAmount) (bool, error) {
	c, err := a.Cmp(other)
	if err != nil {
		return false, err
	}
	return c > 0, nil
}

// Display returns the amount shifted into display units per the currency's
// decimals, e.g. 1500000 uatom -> "1.5".
func (a CurrencyAmount) Display() string {
	return a.Raw.Shift(-a.Currency.Decimals).String()
}

func (a CurrencyAmount) String() string {
	return fmt.Sprintf("%s %s", a.Raw.String(), a.Currency.Denom)
}
