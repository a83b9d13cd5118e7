package quoting

import (
	"errors"
	"fmt"
)

// ErrUnsupportedChain is returned when a request would target a chain outside
// the configured allow-list. It is a hard error: callers must surface it
// instead of resolving it into a trade state.
var ErrUnsupportedChain = errors.New("unsupported chain")

// ChainSet is the allow-list of chains requests may be issued against.
type ChainSet map[string]struct{}

// NewChainSet builds a ChainSet from chain ids.
func NewChainSet(ids ...string) ChainSet {
	s := make(ChainSet, len(ids))
	for _, id := range ids {
		s[id] = struct{}{}
	}
	return s
}

// Supports reports whether the chain id is in the allow-list.
func (s ChainSet) Supports(chainID string) bool {
	_, ok := s[chainID]
	return ok
}

// QueryArgs is the canonical request descriptor for the quoting service.
// All fields are comparable strings so that plain == equality drives request
// de-duplication and polling continuation.
type QueryArgs struct {
	TokenInChainID  string
	TokenInDenom    string
	TokenOutChainID string
	TokenOutDenom   string
	// Amount is the raw integer amount of the specified side.
	Amount    string
	TradeType TradeType
	// EndpointOverride, when set, replaces the provider endpoint for this
	// request only.
	EndpointOverride string
	// ProviderURL is the quoting provider endpoint the request targets.
	ProviderURL string

	skip bool
}

// SkipToken is the "no request" sentinel. A fetcher given SkipToken goes
// idle instead of issuing a request.
var SkipToken = QueryArgs{skip: true}

// IsSkip reports whether the args are the "no request" sentinel.
func (a QueryArgs) IsSkip() bool {
	return a.skip
}

func (a QueryArgs) String() string {
	if a.skip {
		return "skip"
	}
	return fmt.Sprintf("%s/%s->%s/%s amount=%s type=%s",
		a.TokenInChainID, a.TokenInDenom, a.TokenOutChainID, a.TokenOutDenom, a.Amount, a.TradeType)
}

// BuildQueryArgs converts the debounced inputs into canonical QueryArgs.
//
// The specified amount's currency and the other currency are ordered into
// tokenIn/tokenOut by trade type: for ExactInput the specified side is the
// input, for ExactOutput it is the output.
//
// Returns SkipToken when the amount or either currency is absent, when the
// amount is zero, or when both sides resolve to the same asset. Returns
// ErrUnsupportedChain when either side's chain is outside the allow-list;
// that error is fatal and must not be retried.
func BuildQueryArgs(
	amount *CurrencyAmount,
	otherCurrency *Currency,
	tradeType TradeType,
	chains ChainSet,
	endpointOverride string,
	providerURL string,
) (QueryArgs, error) {
	if amount == nil || otherCurrency == nil || amount.IsZero() {
		return SkipToken, nil
	}

	specified := amount.Currency
	if specified.SameAsset(*otherCurrency) {
		return SkipToken, nil
	}

	for _, c := range []Currency{specified, *otherCurrency} {
		if !chains.Supports(c.ChainID) {
			return SkipToken, fmt.Errorf("%w: %s", ErrUnsupportedChain, c.ChainID)
		}
	}

	tokenIn, tokenOut := specified, *otherCurrency
	if tradeType == ExactOutput {
		tokenIn, tokenOut = tokenOut, tokenIn
	}

	return QueryArgs{
		TokenInChainID:   tokenIn.ChainID,
		TokenInDenom:     tokenIn.Denom,
		TokenOutChainID:  tokenOut.ChainID,
		TokenOutDenom:    tokenOut.Denom,
		Amount:           amount.Raw.String(),
		TradeType:        tradeType,
		EndpointOverride: endpointOverride,
		ProviderURL:      providerURL,
	}, nil
}
