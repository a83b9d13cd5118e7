package quoting

// TradeState is the discrete status derived from the raw quote signals.
// Exactly one state holds at any instant.
type TradeState int

const (
	// TradeStateInvalid: inputs are incomplete or the quote could not be
	// turned into a trade.
	TradeStateInvalid TradeState = iota
	// TradeStateLoading: the first fetch for the active request is in flight
	// and there is no previous result to show.
	TradeStateLoading
	// TradeStateNoRouteFound: the service found no route, the fetch errored,
	// or no request is active.
	TradeStateNoRouteFound
	// TradeStateSyncing: a previous valid trade is shown while a fetch for a
	// newer request is still pending.
	TradeStateSyncing
	// TradeStateValid: the shown trade belongs to the latest successful
	// fetch for the active request.
	TradeStateValid
)

func (s TradeState) String() string {
	switch s {
	case TradeStateInvalid:
		return "invalid"
	case TradeStateLoading:
		return "loading"
	case TradeStateNoRouteFound:
		return "no_route_found"
	case TradeStateSyncing:
		return "syncing"
	case TradeStateValid:
		return "valid"
	default:
		return "unknown"
	}
}

// ResolveInput carries every signal the resolver depends on. The resolver is
// a pure function of this struct so that all global signals (visibility,
// chain support, block freshness) stay upstream of it.
type ResolveInput struct {
	// CurrencyIn and CurrencyOut are the two sides of the pair; nil when the
	// user has not picked one yet.
	CurrencyIn  *Currency
	CurrencyOut *Currency
	// Amount is the specified-side amount, nil when absent or gated off.
	Amount *CurrencyAmount
	// TradeType determines which side the quoted amount belongs to.
	TradeType TradeType
	// Args is the active request descriptor, possibly SkipToken.
	Args QueryArgs
	// IsFetching is true only while the first fetch for the active args is in
	// flight, i.e. no previous successful result exists yet. Background
	// refreshes of an already-shown result do not set it.
	IsFetching bool
	// IsError is true when the most recent fetch attempt failed.
	IsError bool
	// Result is the displayed quote after block-validity filtering: the most
	// recent successfully fetched result, which may belong to a superseded
	// request while a newer one is pending.
	Result *QuoteResult
	// IsSyncing is true when Result belongs to a superseded request and the
	// fetch for the active one has not completed yet.
	IsSyncing bool
	// Transform builds the trade; nil means NewTradeFromQuote.
	Transform RouteTransform
}

// Resolve derives the trade state and, when possible, the trade itself.
// First matching rule wins:
//
//  1. missing currency on either side        -> invalid
//  2. first fetch for the active args in flight -> loading
//  3. fetch errored, no quoted amount, empty route, or no active request
//     -> no route found
//  4. trade construction failed              -> invalid (failure swallowed)
//  5. otherwise valid, or syncing while a newer request is pending
func Resolve(in ResolveInput) (TradeState, *Trade) {
	if in.CurrencyIn == nil || in.CurrencyOut == nil {
		return TradeStateInvalid, nil
	}

	if in.IsFetching {
		return TradeStateLoading, nil
	}

	haveAmount := in.Result != nil && in.Result.Amount != "" && in.Amount != nil
	routeEmpty := in.Result == nil || len(in.Result.Route) == 0

	if in.IsError || !haveAmount || routeEmpty || in.Args.IsSkip() {
		return TradeStateNoRouteFound, nil
	}

	other := *in.CurrencyOut
	if in.TradeType == ExactOutput {
		other = *in.CurrencyIn
	}

	transform := in.Transform
	if transform == nil {
		transform = NewTradeFromQuote
	}

	// A malformed route must never take the consumer down with it.
	trade, err := transform(in.Result, *in.Amount, other, in.TradeType)
	if err != nil || trade == nil {
		return TradeStateInvalid, nil
	}

	if in.IsSyncing {
		return TradeStateSyncing, trade
	}
	return TradeStateValid, trade
}
