package quoting

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// Trade is the derived, immutable result of a successful quote. It is rebuilt
// from scratch whenever the inputs or the quote change, never mutated.
type Trade struct {
	Input  CurrencyAmount
	Output CurrencyAmount
	Type   TradeType
	Route  []RouteHop
	GasUSD decimal.Decimal
}

// RouteTransform builds a Trade from a quote and the two sides of the pair.
// The production transform is NewTradeFromQuote; the resolver treats it as an
// opaque transform whose failure downgrades the state instead of propagating.
type RouteTransform func(result *QuoteResult, specified CurrencyAmount, other Currency, tradeType TradeType) (*Trade, error)

// NewTradeFromQuote constructs a Trade from a quote result.
//
// The quoted raw amount is reinterpreted in the currency that is not the
// specified side: for ExactInput the quote is the output amount, for
// ExactOutput it is the input amount.
func NewTradeFromQuote(result *QuoteResult, specified CurrencyAmount, other Currency, tradeType TradeType) (*Trade, error) {
	if result == nil {
		return nil, errors.New("no quote result")
	}
	if len(result.Route) == 0 {
		return nil, errors.New("empty route")
	}

	quoted, err := NewCurrencyAmount(other, result.Amount)
	if err != nil {
		return nil, fmt.Errorf("quoted amount: %w", err)
	}
	if quoted.IsZero() {
		return nil, errors.New("quoted amount is zero")
	}

	gas := decimal.Zero
	if result.GasUSD != "" {
		gas, err = decimal.NewFromString(result.GasUSD)
		if err != nil {
			return nil, fmt.Errorf("gas estimate: %w", err)
		}
	}

	input, output := specified, quoted
	if tradeType == ExactOutput {
		input, output = quoted, specified
	}

	route := make([]RouteHop, len(result.Route))
	copy(route, result.Route)

	return &Trade{
		Input:  input,
		Output: output,
		Type:   tradeType,
		Route:  route,
		GasUSD: gas,
	}, nil
}
