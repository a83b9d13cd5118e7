package fetcher

import "github.com/openport-labs/swapquote/quoting"

// Gate passes the debounced amount downstream only while the consuming
// surface is visible and the amount's chain is supported. In every other
// case it substitutes "no amount" so the request pipeline treats the input
// as absent. Pure filter, fails closed.
func Gate(amount *quoting.CurrencyAmount, visible bool, chains quoting.ChainSet) *quoting.CurrencyAmount {
	if amount == nil || !visible {
		return nil
	}
	if !chains.Supports(amount.Currency.ChainID) {
		return nil
	}
	return amount
}
