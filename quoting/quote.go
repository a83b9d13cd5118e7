package quoting

// RouteHop is one pool hop of a quoted route, as reported by the quoting
// service. The engine treats the hop list as an opaque route description.
type RouteHop struct {
	PoolID        string `json:"pool_id"`
	TokenInDenom  string `json:"token_in_denom"`
	TokenOutDenom string `json:"token_out_denom"`
}

// QuoteResult is the raw response of the quoting service for one QueryArgs.
// It is immutable once received and replaced wholesale on every fetch.
type QuoteResult struct {
	// Amount is the quoted raw amount of the non-specified side.
	Amount string `json:"amount"`
	// BlockNumber is the chain height the quote was computed against.
	BlockNumber uint64 `json:"block_number"`
	// GasUSD is the estimated execution cost in USD, as a decimal string.
	GasUSD string `json:"gas_usd"`
	// Route describes the pools the quote would execute through.
	Route []RouteHop `json:"route"`
}
