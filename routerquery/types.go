package routerquery

import "github.com/openport-labs/swapquote/quoting"

// quoteResponse is the wire shape of the provider's /router/quote endpoint.
type quoteResponse struct {
	Amount      string            `json:"amount"`
	BlockNumber uint64            `json:"block_number"`
	GasUSD      string            `json:"gas_usd"`
	Route       []quoting.RouteHop `json:"route"`
}

// statusResponse is the wire shape of the provider's /status endpoint. It
// doubles as the health probe during failover.
type statusResponse struct {
	LatestBlockNumber uint64 `json:"latest_block_number"`
}

// errorResponse is the provider's error body.
type errorResponse struct {
	Message string `json:"message"`
}
